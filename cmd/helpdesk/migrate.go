package main

import (
	"context"
	"errors"

	"github.com/urfave/cli/v3"

	"github.com/spec-kit/helpdesk-service/internal/persistence"
)

func cmdMigrate(rt *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply embedded SQL migrations to POSTGRES_DSN",
		Action: func(ctx context.Context, _ *cli.Command) error {
			if rt.cfg.Postgres.DSN == "" {
				return errors.New("POSTGRES_DSN is required for migrate")
			}
			pg, err := persistence.NewPostgres(ctx, rt.cfg.Postgres, rt.logger)
			if err != nil {
				return err
			}
			defer pg.Close()
			return persistence.RunMigrations(ctx, pg.Pool, rt.logger)
		},
	}
}
