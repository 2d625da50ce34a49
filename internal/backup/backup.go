package backup

import (
	"context"
	"encoding/binary"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/minio/crc64nvme"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/wolfeidau/wallchart/internal/store"
	"github.com/wolfeidau/wallchart/internal/store/sqlite"
	"github.com/wolfeidau/wallchart/internal/telemetry"
)

// Artifact describes a written backup. Checksum is the CRC64-NVME of the
// compressed bytes.
type Artifact struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Checksum uint64 `json:"checksum"`
}

// ChecksumHex returns the checksum as 16 hex digits.
func (a Artifact) ChecksumHex() string {
	return fmt.Sprintf("%016x", a.Checksum)
}

// ChecksumBase64 returns the checksum in the big endian base64 form used by
// S3 for x-amz-checksum-crc64nvme.
func (a Artifact) ChecksumBase64() string {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], a.Checksum)
	return base64.StdEncoding.EncodeToString(buf[:])
}

// Exporter writes the whole store as a zstd compressed SQLite database. The
// database uses the same schema as the sqlite store, so an artifact can be
// decompressed and opened with --store-type sqlite.
type Exporter struct {
	store store.Store
	clock func() time.Time
	level zstd.EncoderLevel
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithClock sets the time source used for artifact names.
func WithClock(clock func() time.Time) Option {
	return func(e *Exporter) {
		e.clock = clock
	}
}

// WithLevel sets the zstd compression level.
func WithLevel(level zstd.EncoderLevel) Option {
	return func(e *Exporter) {
		e.level = level
	}
}

// NewExporter creates an Exporter.
func NewExporter(s store.Store, opts ...Option) *Exporter {
	e := &Exporter{
		store: s,
		clock: time.Now,
		level: zstd.SpeedDefault,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the artifact file name for the current day.
func (e *Exporter) Name() string {
	return "wallcharts-backup-" + e.clock().Format(time.DateOnly) + ".db.zst"
}

// Write exports the store to w.
func (e *Exporter) Write(ctx context.Context, w io.Writer) (Artifact, error) {
	art, err := e.write(ctx, w)
	m := telemetry.GetMetrics()
	if err != nil {
		m.BackupErrorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", "write")))
		return Artifact{}, err
	}
	m.BackupsTotal.Add(ctx, 1)
	m.BackupBytesTotal.Add(ctx, art.Size)

	log.Ctx(ctx).Info().
		Str("name", art.Name).
		Int64("size", art.Size).
		Str("crc64nvme", art.ChecksumHex()).
		Msg("Backup written")
	return art, nil
}

func (e *Exporter) write(ctx context.Context, w io.Writer) (Artifact, error) {
	snap, err := store.Export(ctx, e.store)
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to export store: %w", err)
	}

	dir, err := os.MkdirTemp("", "wallchart-backup-")
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	path := filepath.Join(dir, "wallchart.db")
	if err := sqlite.WriteFile(ctx, path, snap); err != nil {
		return Artifact{}, fmt.Errorf("failed to write database: %w", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return Artifact{}, err
	}
	defer func() { _ = f.Close() }()

	hash := crc64nvme.New()
	counter := &countingWriter{}
	enc, err := zstd.NewWriter(io.MultiWriter(w, hash, counter), zstd.WithEncoderLevel(e.level))
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to create encoder: %w", err)
	}
	if _, err := io.Copy(enc, f); err != nil {
		_ = enc.Close()
		return Artifact{}, fmt.Errorf("failed to compress database: %w", err)
	}
	if err := enc.Close(); err != nil {
		return Artifact{}, fmt.Errorf("failed to compress database: %w", err)
	}

	return Artifact{
		Name:     e.Name(),
		Size:     counter.n,
		Checksum: hash.Sum64(),
	}, nil
}

// Restore decompresses an artifact into a SQLite database file at path and
// returns its content.
func Restore(ctx context.Context, r io.Reader, path string) (*store.Snapshot, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}
	defer dec.Close()

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(f, dec); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to decompress backup: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return sqlite.ReadFile(ctx, path)
}

type countingWriter struct {
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}
