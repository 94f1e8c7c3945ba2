package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/spec-kit/helpdesk-service/internal/audit"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/service"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// seedFile is the YAML layout accepted by `helpdesk seed`.
type seedFile struct {
	Clients []struct {
		Name     string `yaml:"name"`
		Email    string `yaml:"email"`
		Password string `yaml:"password"`
	} `yaml:"clients"`
	Analysts []struct {
		Name      string `yaml:"name"`
		Email     string `yaml:"email"`
		Password  string `yaml:"password"`
		Specialty string `yaml:"specialty"`
		Admin     bool   `yaml:"admin"`
	} `yaml:"analysts"`
}

type seedResult struct {
	Created int
	Skipped int
}

func cmdSeed(rt *cliEnv) *cli.Command {
	var file string
	return &cli.Command{
		Name:  "seed",
		Usage: "Create clients and analysts from a YAML file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "file",
				Aliases:     []string{"f"},
				Usage:       "path to the seed YAML",
				Required:    true,
				Destination: &file,
			},
		},
		Action: func(ctx context.Context, _ *cli.Command) error {
			if rt.cfg.Postgres.DSN == "" {
				return errors.New("POSTGRES_DSN is required for seed; the in-memory store does not outlive the command")
			}
			f, err := os.Open(file)
			if err != nil {
				return err
			}
			defer f.Close()

			pg, err := persistence.NewPostgres(ctx, rt.cfg.Postgres, rt.logger)
			if err != nil {
				return err
			}
			defer pg.Close()

			directory := service.NewDirectoryService(service.DirectoryDependencies{
				Store:     audit.NewRecorder(audit.RecorderDependencies{Store: pg.Store(), Logger: rt.logger}),
				Passwords: auth.NewPasswords(rt.cfg.Auth.BcryptCost),
				Logger:    rt.logger,
			})
			result, err := seed(ctx, directory, f, rt.logger)
			if err != nil {
				return err
			}
			rt.logger.Info("seed finished", zap.Int("created", result.Created), zap.Int("skipped", result.Skipped))
			return nil
		},
	}
}

// seed creates every account in r. Accounts whose email already exists are
// skipped so the command can be re-run.
func seed(ctx context.Context, directory *service.DirectoryService, r io.Reader, logger *zap.Logger) (seedResult, error) {
	var data seedFile
	if err := yaml.NewDecoder(r).Decode(&data); err != nil && !errors.Is(err, io.EOF) {
		return seedResult{}, fmt.Errorf("parse seed file: %w", err)
	}

	var result seedResult
	record := func(kind, email string, err error) error {
		switch {
		case err == nil:
			result.Created++
		case apperrors.HasCode(err, apperrors.CodeConflict):
			logger.Info("account exists; skipping", zap.String("kind", kind), zap.String("email", email))
			result.Skipped++
		default:
			return fmt.Errorf("seed %s %s: %w", kind, email, err)
		}
		return nil
	}

	for _, c := range data.Clients {
		_, err := directory.CreateClient(ctx, service.NewClientInput{Name: c.Name, Email: c.Email, Password: c.Password})
		if err := record("client", c.Email, err); err != nil {
			return result, err
		}
	}
	for _, a := range data.Analysts {
		_, err := directory.CreateAnalyst(ctx, service.NewAnalystInput{
			Name:      a.Name,
			Email:     a.Email,
			Password:  a.Password,
			Specialty: a.Specialty,
			IsAdmin:   a.Admin,
		})
		if err := record("analyst", a.Email, err); err != nil {
			return result, err
		}
	}
	return result, nil
}
