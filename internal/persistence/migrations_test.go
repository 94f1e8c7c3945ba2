package persistence

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

func TestMigrationNamesAreSorted(t *testing.T) {
	names, err := migrationNames()
	require.NoError(t, err)
	require.NotEmpty(t, names)
	assert.Equal(t, "0001_init.sql", names[0])
	assert.IsNonDecreasing(t, names)
}

func TestRunMigrationsWithoutPool(t *testing.T) {
	assert.NoError(t, RunMigrations(context.Background(), nil, zap.NewNop()))
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	logger := zap.NewNop()

	pg, err := NewPostgres(ctx, config.PostgresConfig{DSN: dsn, MaxConns: 4}, logger)
	require.NoError(t, err)
	defer pg.Close()

	require.NoError(t, RunMigrations(ctx, pg.Pool, logger))
	require.NoError(t, RunMigrations(ctx, pg.Pool, logger), "second run must be a no-op")
	require.NoError(t, pg.Ping(ctx))

	store := pg.Store()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx) //nolint:errcheck

	client := &domain.Client{Name: "Ana", Email: "ana+" + time.Now().Format("150405.000000") + "@example.com", PasswordHash: "x"}
	require.NoError(t, tx.CreateClient(ctx, client))
	ticket := &domain.Ticket{
		Code:     domain.NewTicketCode(),
		ClientID: client.ID,
		Title:    "VPN",
		OpenedAt: time.Now().UTC().Truncate(time.Microsecond),
		Status:   domain.TicketStatusOpenAI,
		Priority: domain.TicketPriorityMedium,
	}
	require.NoError(t, tx.CreateTicket(ctx, ticket))

	locked, err := tx.LockTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.Code, locked.Code)
	assert.True(t, ticket.OpenedAt.Equal(locked.OpenedAt))
}
