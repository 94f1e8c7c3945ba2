package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/observability"
)

type cliEnv struct {
	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	rt := &cliEnv{}
	return &cli.Command{
		Name:  "helpdesk",
		Usage: "ticket lifecycle and escalation service",
		Before: func(ctx context.Context, _ *cli.Command) (context.Context, error) {
			cfg, err := config.Load()
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			logger, err := observability.NewLogger(cfg.Logger)
			if err != nil {
				return ctx, fmt.Errorf("init logger: %w", err)
			}
			rt.cfg, rt.logger = cfg, logger
			return ctx, nil
		},
		After: func(context.Context, *cli.Command) error {
			if rt.logger != nil {
				_ = rt.logger.Sync()
			}
			return nil
		},
		Commands: []*cli.Command{
			cmdServe(rt),
			cmdMigrate(rt),
			cmdSeed(rt),
		},
	}
}
