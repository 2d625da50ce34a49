package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/wolfeidau/wallchart/internal/backup"
	"github.com/wolfeidau/wallchart/internal/logger"
)

type BackupCmd struct {
	Dir string          `help:"directory to write the artifact to" env:"WALLCHART_BACKUP_DIR"`
	S3  backup.S3Config `embed:"" prefix:"s3-"`

	Store StoreFlags `embed:""`
}

func (c *BackupCmd) Validate() error {
	switch {
	case c.Dir == "" && c.S3.Bucket == "":
		return errors.New("a backup destination is required (--dir or --s3-bucket)")
	case c.Dir != "" && c.S3.Bucket != "":
		return errors.New("only one backup destination may be set (--dir or --s3-bucket)")
	}
	return nil
}

func (c *BackupCmd) Run(ctx context.Context, globals *Globals) error {
	logger.Install(logger.Setup(globals.Debug))
	return c.run(ctx, os.Stdout)
}

func (c *BackupCmd) run(ctx context.Context, out io.Writer) error {
	var sink backup.Sink = backup.FileSink{Dir: c.Dir}
	if c.S3.Bucket != "" {
		s3Sink, err := backup.NewS3Sink(ctx, c.S3)
		if err != nil {
			return err
		}
		sink = s3Sink
	}

	st, err := c.Store.open(ctx, false)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	art, location, err := backup.Run(ctx, backup.NewExporter(st), sink)
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	_, err = fmt.Fprintf(out, "%s %d bytes crc64nvme=%s\n", location, art.Size, art.ChecksumHex())
	return err
}
