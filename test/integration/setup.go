package integration

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	handler "github.com/vncsmyrnk/presencepoll/internal/adapters/handler/http"
	"github.com/vncsmyrnk/presencepoll/internal/adapters/notify"
	repo "github.com/vncsmyrnk/presencepoll/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/presencepoll/internal/core/domain"
	"github.com/vncsmyrnk/presencepoll/internal/core/services"
)

const jwtSecret = "test-secret"

type TestApp struct {
	DB          *sql.DB
	Server      *httptest.Server
	Client      *http.Client
	DBContainer testcontainers.Container
}

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
	dirPath := "../../internal/adapters/repository/postgres/migrations"

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

func setupTestApp(t *testing.T) *TestApp {
	t.Helper()

	ctx := context.Background()
	dbContainer, dbURL, err := setupPostgresContainer(ctx)
	require.NoError(t, err)

	db, err := sql.Open("postgres", dbURL)
	require.NoError(t, err)
	require.NoError(t, applyMigrations(db))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := services.SystemClock{}

	pollRepo := repo.NewPollRepository(db)
	voteRepo := repo.NewVoteRepository(db)
	proxyRepo := repo.NewProxyRepository(db)
	verificationRepo := repo.NewVerificationRepository(db)
	dir := repo.NewDirectoryRepository(db)

	pollSvc := services.NewPollService(pollRepo, dir, clock, logger)
	invitationSvc := services.NewInvitationService(services.InvitationServiceConfig{
		Polls:       pollRepo,
		Invitations: repo.NewInvitationRepository(db),
		Proxies:     proxyRepo,
		Directory:   dir,
		Authorizer:  dir,
		Notifier:    notify.NewLogNotifier(logger),
		Logger:      logger,
	})
	eligibilitySvc := services.NewEligibilityService(invitationSvc, verificationRepo, proxyRepo, clock)
	ledger := services.NewVoteLedger(pollRepo, voteRepo, clock)
	voteSvc := services.NewVoteService(pollRepo, voteRepo, pollSvc, eligibilitySvc, ledger, logger)
	presenceSvc := services.NewPresenceService(services.PresenceServiceConfig{
		Polls:         pollRepo,
		Credentials:   repo.NewCredentialRepository(db),
		Verifications: verificationRepo,
		Authorizer:    dir,
		Eligibility:   eligibilitySvc,
		Clock:         clock,
		Logger:        logger,
	})

	router := handler.NewHandler(handler.Handlers{
		Auth:  handler.NewAuthenticator(jwtSecret),
		Polls: handler.NewPollHandler(pollSvc),
		Votes: handler.NewVoteHandler(voteSvc, pollSvc, eligibilitySvc),
		Presence: handler.NewPresenceHandler(handler.PresenceHandlerConfig{
			Service:         presenceSvc,
			Clock:           clock,
			VerificationURL: func(token string) string { return "http://polls.test/api/presence/scan/" + token },
			PollPageURL:     func(id uuid.UUID) string { return "http://polls.test/polls/" + id.String() },
			LoginURL:        "http://polls.test/login",
		}),
		Invitations:    handler.NewInvitationHandler(invitationSvc),
		Proxies:        handler.NewProxyHandler(services.NewProxyService(pollRepo, proxyRepo, dir, clock, logger)),
		RequestTimeout: 10 * time.Second,
	})

	server := httptest.NewServer(router)

	return &TestApp{
		DB:          db,
		Server:      server,
		Client:      server.Client(),
		DBContainer: dbContainer,
	}
}

func (app *TestApp) Teardown(t *testing.T) {
	app.Server.Close()
	app.DB.Close()
	if err := app.DBContainer.Terminate(context.Background()); err != nil {
		t.Logf("failed to terminate container: %v", err)
	}
}

type user struct {
	ID    uuid.UUID
	Token string
}

func (app *TestApp) createUser(t *testing.T) user {
	t.Helper()

	userID := uuid.New()
	email := fmt.Sprintf("user-%s@example.com", userID)
	name := fmt.Sprintf("User %s", userID)
	_, err := app.DB.Exec("INSERT INTO users (id, email, name) VALUES ($1, $2, $3)", userID, email, name)
	require.NoError(t, err)

	claims := jwt.MapClaims{
		"sub":   userID.String(),
		"email": email,
		"exp":   time.Now().Add(15 * time.Minute).Unix(),
		"iat":   time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(jwtSecret))
	require.NoError(t, err)
	return user{ID: userID, Token: signedToken}
}

// request sends body as JSON, authenticated as u when u is non-nil.
func (app *TestApp) request(t *testing.T, method, path string, u *user, body any) *http.Response {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req, err := http.NewRequest(method, app.Server.URL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if u != nil {
		req.AddCookie(&http.Cookie{Name: "access_token", Value: u.Token})
	}

	resp, err := app.Client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (app *TestApp) createPoll(t *testing.T, owner user, payload map[string]any) domain.Poll {
	t.Helper()

	if _, ok := payload["options"]; !ok {
		payload["options"] = []map[string]string{{"text": "Option A"}, {"text": "Option B"}}
	}
	resp := app.request(t, http.MethodPost, "/api/polls", &owner, payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[domain.Poll](t, resp)
}
