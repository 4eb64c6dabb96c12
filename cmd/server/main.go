package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	goredis "github.com/redis/go-redis/v9"

	"github.com/vncsmyrnk/presencepoll/internal/adapters/handler/http"
	"github.com/vncsmyrnk/presencepoll/internal/adapters/notify"
	"github.com/vncsmyrnk/presencepoll/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/presencepoll/internal/adapters/repository/postgres"
	redisstore "github.com/vncsmyrnk/presencepoll/internal/adapters/repository/redis"
	"github.com/vncsmyrnk/presencepoll/internal/config"
	"github.com/vncsmyrnk/presencepoll/internal/core/ports"
	"github.com/vncsmyrnk/presencepoll/internal/core/services"
)

type stores struct {
	polls         ports.PollRepository
	votes         ports.VoteRepository
	credentials   ports.CredentialRepository
	verifications ports.VerificationRepository
	invitations   ports.InvitationRepository
	proxies       ports.ProxyRepository
	authorizer    ports.PresenceAuthorizer
	directory     ports.DepartmentDirectory
	close         func()
}

func main() {
	config.LoadDotEnv(slog.Default())

	cfg, err := config.Parse("server", os.Args[1:])
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	if err := cfg.RequireJWTSecret(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	st, err := openStores(cfg, logger)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer st.close()

	clock := services.SystemClock{}

	pollSvc := services.NewPollService(st.polls, st.authorizer, clock, logger)
	invitationSvc := services.NewInvitationService(services.InvitationServiceConfig{
		Polls:       st.polls,
		Invitations: st.invitations,
		Proxies:     st.proxies,
		Directory:   st.directory,
		Authorizer:  st.authorizer,
		Notifier:    notify.NewLogNotifier(logger),
		Logger:      logger,
	})
	eligibilitySvc := services.NewEligibilityService(invitationSvc, st.verifications, st.proxies, clock)
	ledger := services.NewVoteLedger(st.polls, st.votes, clock)
	voteSvc := services.NewVoteService(st.polls, st.votes, pollSvc, eligibilitySvc, ledger, logger)
	presenceSvc := services.NewPresenceService(services.PresenceServiceConfig{
		Polls:         st.polls,
		Credentials:   st.credentials,
		Verifications: st.verifications,
		Authorizer:    st.authorizer,
		Eligibility:   eligibilitySvc,
		Clock:         clock,
		TokenTTL:      cfg.PresenceTokenTTL,
		Logger:        logger,
	})
	proxySvc := services.NewProxyService(st.polls, st.proxies, st.authorizer, clock, logger)

	handler := http.NewHandler(http.Handlers{
		Auth:  http.NewAuthenticator(cfg.JWTSecret),
		Polls: http.NewPollHandler(pollSvc),
		Votes: http.NewVoteHandler(voteSvc, pollSvc, eligibilitySvc),
		Presence: http.NewPresenceHandler(http.PresenceHandlerConfig{
			Service:         presenceSvc,
			Clock:           clock,
			VerificationURL: cfg.VerificationURL,
			PollPageURL: func(pollID uuid.UUID) string {
				return strings.TrimRight(cfg.PublicBaseURL, "/") + "/polls/" + pollID.String()
			},
			LoginURL: cfg.LoginURL,
		}),
		Invitations:    http.NewInvitationHandler(invitationSvc),
		Proxies:        http.NewProxyHandler(proxySvc),
		RequestTimeout: cfg.RequestTimeout,
	})
	server := &stdhttp.Server{Addr: cfg.HTTPAddr, Handler: handler}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("listening", "addr", cfg.HTTPAddr, "storage", cfg.StorageDriver, "presence_store", cfg.PresenceStore)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

func openStores(cfg config.Config, logger *slog.Logger) (*stores, error) {
	var st *stores
	switch cfg.StorageDriver {
	case config.StorageMemory:
		mem := memory.NewStore()
		dir := mem.Directory()
		st = &stores{
			polls:         mem.Polls(),
			votes:         mem.Votes(),
			credentials:   mem.Credentials(),
			verifications: mem.Verifications(),
			invitations:   mem.Invitations(),
			proxies:       mem.Proxies(),
			authorizer:    dir,
			directory:     dir,
			close:         func() {},
		}
		logger.Warn("using in-memory storage; data is lost on restart")
	default:
		db, err := sql.Open("postgres", cfg.DatabaseURL())
		if err != nil {
			return nil, err
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, err
		}
		dir := postgres.NewDirectoryRepository(db)
		st = &stores{
			polls:         postgres.NewPollRepository(db),
			votes:         postgres.NewVoteRepository(db),
			credentials:   postgres.NewCredentialRepository(db),
			verifications: postgres.NewVerificationRepository(db),
			invitations:   postgres.NewInvitationRepository(db),
			proxies:       postgres.NewProxyRepository(db),
			authorizer:    dir,
			directory:     dir,
			close:         func() { db.Close() },
		}
	}

	if cfg.PresenceStore == config.PresenceRedis {
		opts, err := goredis.ParseURL(cfg.RedisURL)
		if err != nil {
			st.close()
			return nil, err
		}
		client := goredis.NewClient(opts)
		if err := client.Ping(context.Background()).Err(); err != nil {
			client.Close()
			st.close()
			return nil, err
		}
		st.credentials = redisstore.NewCredentialStore(client, cfg.CredentialRetention)
		closeDB := st.close
		st.close = func() {
			client.Close()
			closeDB()
		}
	}

	return st, nil
}
