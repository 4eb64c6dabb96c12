package postgres_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/vncsmyrnk/presencepoll/internal/core/domain"
)

func setupPostgresContainer(ctx context.Context) (testcontainers.Container, string, error) {
	pgContainer, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		return nil, "", err
	}

	return pgContainer, connStr, nil
}

func applyMigrations(db *sql.DB) error {
	dirPath := "migrations"

	entries, err := os.ReadDir(dirPath)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), "up.sql") {
			continue
		}

		content, err := os.ReadFile(filepath.Join(dirPath, entry.Name()))
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", entry.Name(), err)
		}

		if _, err := db.Exec(string(content)); err != nil {
			return fmt.Errorf("failed to execute migration %s: %w", entry.Name(), err)
		}
	}

	return nil
}

// setupDB starts a dedicated database with the schema applied.
func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}

	ctx := context.Background()
	container, connStr, err := setupPostgresContainer(ctx)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, applyMigrations(db))
	return db
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func newPoll(owner uuid.UUID, mode domain.AccessMode) *domain.Poll {
	created := now()
	poll := &domain.Poll{
		ID:         uuid.New(),
		CreatedBy:  owner,
		Title:      "Board election",
		Type:       domain.PollTypeOpen,
		Visibility: domain.VisibilityPublic,
		AccessMode: mode,
		Status:     domain.StatusActive,
		CreatedAt:  created,
	}
	for i, text := range []string{"Yes", "No"} {
		poll.Options = append(poll.Options, domain.PollOption{
			ID:        uuid.New(),
			PollID:    poll.ID,
			Order:     i,
			Text:      text,
			CreatedAt: created,
		})
	}
	return poll
}

func insertUser(t *testing.T, db *sql.DB, superAdmin bool) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := db.Exec(
		"INSERT INTO users (id, email, name, is_super_admin) VALUES ($1, $2, $3, $4)",
		id, fmt.Sprintf("user-%s@example.com", id), fmt.Sprintf("User %s", id), superAdmin,
	)
	require.NoError(t, err)
	return id
}
