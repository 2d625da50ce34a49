package commands

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/wolfeidau/wallchart/internal/logger"
	"github.com/wolfeidau/wallchart/internal/store"
)

type MigrateCmd struct {
	Store StoreFlags `embed:""`
}

func (c *MigrateCmd) Run(ctx context.Context, globals *Globals) error {
	logger.Install(logger.Setup(globals.Debug))
	return c.run(ctx)
}

func (c *MigrateCmd) run(ctx context.Context) error {
	st, err := c.Store.open(ctx, true)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	// An empty write commits the seeded state, which creates the SQLite file
	// with the Admin department in place.
	if err := st.Update(ctx, func(store.Tx) error { return nil }); err != nil {
		return err
	}

	log.Info().Str("store", c.Store.StoreType).Msg("Store is ready")
	return nil
}
