package cli

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"sparklab/internal/app"
	"sparklab/internal/auth"
	"sparklab/internal/config"
	"sparklab/internal/domain"
	"sparklab/internal/infra/memory"
	pgstore "sparklab/internal/infra/postgres"
	"sparklab/internal/infra/rabbit"
	redisstore "sparklab/internal/infra/redis"
	"sparklab/internal/logger"
	transport "sparklab/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the sparklab server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
	cmd.Flags().StringVar(port, "port", "", "port to listen on (overrides config and PORT)")
	return cmd
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	deps, closeDeps, err := buildServices(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeDeps()

	router := transport.NewRouter(deps, transport.RouterConfig{
		EmbedOrigin: cfg.Embed.AllowedOrigin,
		Log:         log,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info("starting sparklab", "port", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("failed to start server", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info("shutting down server")
	case <-ctx.Done():
		log.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildServices picks Postgres, Redis and RabbitMQ when configured and falls back to memory.
func buildServices(ctx context.Context, cfg config.Config, log *logger.Logger) (transport.Services, func(), error) {
	var closers []io.Closer
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closers = append(closers, redisClient)
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 7*24*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			closeAll()
			return transport.Services{}, nil, err
		}
		closers = append(closers, closerFunc(func() error { pool.Close(); return nil }))
	}

	var (
		loader     memory.QuizLoader = memory.NewStaticQuizLoader(domain.BuiltinQuizzes())
		users      app.UserRepository
		activities app.ActivityRepository
		results    app.ResultRepository
		progress   app.ProgressRepository
		actions    app.ActionRepository
	)
	if pool != nil {
		pgLoader := pgstore.NewQuizLoader(pool)
		pgActivities := pgstore.NewActivityStore(pool)
		if err := pgLoader.SeedQuizzes(ctx, domain.BuiltinQuizzes()); err != nil {
			closeAll()
			return transport.Services{}, nil, err
		}
		if err := pgActivities.SeedActivities(ctx, domain.BuiltinActivities()); err != nil {
			closeAll()
			return transport.Services{}, nil, err
		}
		loader = pgLoader
		users = pgstore.NewUserStore(pool)
		activities = pgActivities
		results = pgstore.NewResultStore(pool)
		progress = pgstore.NewProgressStore(pool)
		actions = pgstore.NewActionStore(pool)
	} else {
		users = memory.NewUserStore()
		activities = memory.NewActivityStore(domain.BuiltinActivities()...)
		results = memory.NewResultStore()
		progress = memory.NewProgressStore()
		actions = memory.NewActionStore(cfg.Redis.ActionsCap)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
		// Redis is the hot copy of progress when there is no Postgres.
		if pool == nil {
			progress = redisstore.NewProgressStore(redisClient, redisTTL)
			actions = redisstore.NewActionStore(redisClient, cfg.Redis.ActionsCap)
		}
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	opts := []app.ActivityOption{}
	if cfg.Progress.MaxAnswers > 0 {
		opts = append(opts, app.WithMaxAnswers(cfg.Progress.MaxAnswers))
	}
	if cfg.Rabbit.URL != "" {
		pub, err := rabbit.Dial(cfg.Rabbit.URL, cfg.Rabbit.Exchange)
		if err != nil {
			closeAll()
			return transport.Services{}, nil, err
		}
		closers = append(closers, pub)
		opts = append(opts, app.WithPublisher(pub))
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		log.Warn("auth.jwt_secret not set, using an insecure development secret")
		secret = "sparklab-dev-secret"
	}
	tokens := auth.NewTokens(secret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))

	return transport.Services{
		Users:      app.NewUserService(users, tokens, log),
		Quizzes:    app.NewQuizService(quizRepo, results, log),
		Activities: app.NewActivityService(activities, progress, actions, log, opts...),
	}, closeAll, nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
