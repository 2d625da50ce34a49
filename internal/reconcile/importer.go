package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/wolfeidau/wallchart/internal/roster"
	"github.com/wolfeidau/wallchart/internal/telemetry"
)

// ErrShortFeed is returned when a feed has fewer rows than the importer's
// minimum. Reconciling a truncated feed would mark most workers inactive.
var ErrShortFeed = errors.New("roster feed is shorter than the minimum row count")

// Importer parses a feed file and reconciles it, refusing empty and
// truncated feeds before the store is touched.
type Importer struct {
	Reconciler *Reconciler
	Format     roster.Format
	// MinRows rejects feeds with fewer rows. Zero disables the check.
	MinRows int
}

// NewImporter creates an Importer using the default feed format.
func NewImporter(r *Reconciler, minRows int) *Importer {
	return &Importer{
		Reconciler: r,
		Format:     roster.DefaultFormat(),
		MinRows:    minRows,
	}
}

// Import parses the named feed and reconciles it.
func (i *Importer) Import(ctx context.Context, filename string, r io.Reader, mapping roster.Mapping) (*Report, error) {
	rows, err := roster.Parse(filename, r, i.Format)
	if err != nil {
		telemetry.GetMetrics().ImportFailuresTotal.Add(ctx, 1)
		return nil, err
	}

	if err := i.check(len(rows)); err != nil {
		telemetry.GetMetrics().ImportFailuresTotal.Add(ctx, 1)
		return nil, err
	}

	return i.Reconciler.Reconcile(ctx, rows, mapping)
}

func (i *Importer) check(n int) error {
	if n == 0 {
		return roster.ErrEmptyFeed
	}
	if i.MinRows > 0 && n < i.MinRows {
		return fmt.Errorf("%w: got %d rows, need at least %d", ErrShortFeed, n, i.MinRows)
	}
	return nil
}
