package main

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/alecthomas/kong"
	"github.com/joho/godotenv"

	"github.com/wolfeidau/wallchart/cmd/wallchart/internal/commands"
)

var (
	version = "dev"
	cli     struct {
		Debug        bool `help:"Enable debug mode." env:"WALLCHART_DEBUG"`
		Version      kong.VersionFlag
		Server       commands.ServerCmd       `cmd:"" help:"Start the HTTP server"`
		Import       commands.ImportCmd       `cmd:"" help:"Reconcile a roster feed against the store"`
		Backup       commands.BackupCmd       `cmd:"" help:"Write a backup artifact to a directory or S3"`
		Migrate      commands.MigrateCmd      `cmd:"" help:"Create the schema and seed the Admin department"`
		HashPassword commands.HashPasswordCmd `cmd:"" help:"Print a password hash for a password read from stdin"`
	}
)

func main() {
	// Values already in the environment win over .env
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_, _ = os.Stderr.WriteString("failed to load .env: " + err.Error() + "\n")
	}

	ctx := context.Background()
	cmd := kong.Parse(&cli,
		kong.Name("wallchart"),
		kong.Description("Workforce roster and structure test tracking."),
		kong.Vars{
			"version": version,
		},
		kong.BindTo(ctx, (*context.Context)(nil)))
	err := cmd.Run(&commands.Globals{Debug: cli.Debug, Version: version})
	cmd.FatalIfErrorf(err)
}
