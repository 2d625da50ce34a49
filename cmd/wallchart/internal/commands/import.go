package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/wolfeidau/wallchart/internal/logger"
	"github.com/wolfeidau/wallchart/internal/reconcile"
)

type ImportCmd struct {
	File string `arg:"" type:"existingfile" help:"roster feed (.csv, .txt or .xlsx)"`
	JSON bool   `help:"print the report as JSON"`

	Feed  FeedFlags  `embed:"" prefix:"feed-"`
	Store StoreFlags `embed:""`
}

func (c *ImportCmd) Validate() error {
	return c.Feed.validate()
}

func (c *ImportCmd) Run(ctx context.Context, globals *Globals) error {
	logger.Install(logger.Setup(globals.Debug))
	return c.run(ctx, os.Stdout)
}

func (c *ImportCmd) run(ctx context.Context, out io.Writer) error {
	st, err := c.Store.open(ctx, false)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	importer, mapping, err := c.Feed.importer(st)
	if err != nil {
		return fmt.Errorf("failed to load mapping: %w", err)
	}

	f, err := os.Open(c.File)
	if err != nil {
		return err
	}
	defer f.Close()

	rep, err := importer.Import(ctx, filepath.Base(c.File), f, mapping)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	if c.JSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	}
	return printReport(out, rep)
}

func printReport(out io.Writer, rep *reconcile.Report) error {
	_, err := fmt.Fprintf(out,
		"rows: %d\nnew: %d\nreturning: %d\ndeparted: %d\nunits created: %d\ndepartments created: %d\n",
		rep.RowCount, rep.NewCount, rep.ReturningCount, rep.DepartedCount,
		rep.UnitsCreated, rep.DepartmentsCreated)
	if err != nil {
		return err
	}
	for _, name := range rep.NewWorkers {
		if _, err := fmt.Fprintf(out, "  + %s\n", name); err != nil {
			return err
		}
	}
	return nil
}
