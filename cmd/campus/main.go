package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/campus-erp/cmd/campus/cli"
	"github.com/odyssey-erp/campus-erp/internal/app"
	"github.com/odyssey-erp/campus-erp/internal/platform/cache"
	"github.com/odyssey-erp/campus-erp/internal/shared"
	"github.com/odyssey-erp/campus-erp/internal/users"
	"github.com/odyssey-erp/campus-erp/jobs"
)

const usage = `usage: campus [command]

commands:
  serve                         run the HTTP API (default)
  seed-admin -email -password   create the first administrator
  jobs trigger <name> [arg]     enqueue fees:overdue_scan [YYYY-MM-DD] or mail:send <to>
  jobs stats                    show default queue counters
  jobs scheduled                list scheduled tasks
`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}
	switch cmd {
	case "serve":
		err = serve(ctx, cfg, logger)
	case "seed-admin":
		err = seedAdmin(ctx, cfg, logger, args)
	case "jobs":
		err = jobsCommand(ctx, cfg, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error(cmd, slog.Any("error", err))
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	store, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	deps := app.Deps{Store: store}
	redisClient, err := cache.New(ctx, cfg.RedisOptions())
	if err != nil {
		logger.Warn("redis unavailable, running without locks, idempotency and caching", slog.Any("error", err))
	} else {
		defer closeRedis(logger, redisClient)
		deps.Redis = redisClient

		redisOpts := cfg.RedisOptions().Asynq()
		mail, err := jobs.NewClient(redisOpts)
		if err != nil {
			return fmt.Errorf("init job client: %w", err)
		}
		defer func() {
			if err := mail.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		deps.Mail = mail

		inspector := asynq.NewInspector(redisOpts)
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		deps.Inspector = inspector
	}

	container, err := app.Build(cfg, logger, deps)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := container.Close(flushCtx); err != nil {
			logger.Warn("flush telemetry", slog.Any("error", err))
		}
	}()

	server := &http.Server{
		Addr:              cfg.AppAddr,
		Handler:           container.Handler,
		ReadTimeout:       cfg.AppReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("store", cfg.StoreDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

func seedAdmin(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("seed-admin", flag.ContinueOnError)
	email := fs.String("email", os.Getenv("ADMIN_EMAIL"), "administrator email")
	password := fs.String("password", os.Getenv("ADMIN_PASSWORD"), "initial password, at least 8 characters")
	name := fs.String("name", "", "display name")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, closeStore, err := app.OpenStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	accounts := users.NewService(users.NewRepository(store), shared.NewAuditLogger(store), cfg.BcryptCost)
	user, created, err := cli.SeedAdmin(ctx, accounts, *email, *password, *name)
	if err != nil {
		return err
	}
	if !created {
		logger.Info("administrator already exists", slog.String("email", *email))
		return nil
	}
	logger.Info("administrator created", slog.String("id", user.ID), slog.String("email", user.Email))
	return nil
}

func jobsCommand(ctx context.Context, cfg *app.Config, args []string) error {
	if len(args) == 0 {
		return errors.New("jobs: subcommand required (trigger, stats, scheduled)")
	}
	queue := cli.NewQueue(cfg.RedisOptions().Asynq())
	defer queue.Close()

	switch args[0] {
	case "trigger":
		if len(args) < 2 {
			return errors.New("jobs trigger: job name required")
		}
		var arg string
		if len(args) > 2 {
			arg = args[2]
		}
		info, err := queue.Trigger(ctx, args[1], arg)
		if err != nil {
			return err
		}
		fmt.Printf("enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return nil
	case "stats":
		return queue.Stats(os.Stdout)
	case "scheduled":
		return queue.Scheduled(os.Stdout, 0)
	default:
		return fmt.Errorf("jobs: unknown subcommand %s", args[0])
	}
}

func closeRedis(logger *slog.Logger, client *redis.Client) {
	if err := client.Close(); err != nil {
		logger.Warn("redis close", slog.Any("error", err))
	}
}
