/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave-request LINE bot. Handles configuration,
  dependency injection, and graceful shutdown, plus a few admin commands.

COMMANDS:
  serve     Run the webhook server (default)
  migrate   Create or upgrade the SQLite schema and exit
  seed      Install the default leave types and statutory annual-leave tiers
  account   Create or update an employee account

STARTUP SEQUENCE (serve):
  1. Load configuration from LEAVEBOT_* environment variables
  2. Initialize logger and SQLite store
  3. Connect the conversation state backend (sqlite, redis or mongo)
  4. Build the LINE client and bot dispatcher
  5. Configure HTTP router, start the state sweeper
  6. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Wait for in-flight reviewer and applicant notifications
  4. Close state backend and database
  5. Exit

EXAMPLES:
  # Run against a local database
  LEAVEBOT_LINE_CHANNEL_ACCESS_TOKEN=... LEAVEBOT_LINE_CHANNEL_SECRET=... ./server serve

  # Keep dialog state in redis
  LEAVEBOT_STATE_BACKEND=redis LEAVEBOT_REDIS_ADDR=redis:6379 ./server serve

  # Prepare a fresh database
  ./server migrate && ./server seed
  ./server account --email amy@example.com --name Amy --hire-date 2023-01-15

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - bot/dispatcher.go: Event handling
*/
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/leavebot/api"
	"github.com/warp/leavebot/bot"
	"github.com/warp/leavebot/config"
	"github.com/warp/leavebot/conversation"
	"github.com/warp/leavebot/leave"
	"github.com/warp/leavebot/line"
	"github.com/warp/leavebot/logger"
	"github.com/warp/leavebot/store/mongostate"
	"github.com/warp/leavebot/store/redisstate"
	"github.com/warp/leavebot/store/sqlite"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "server",
		Short: "LINE bot for filing leave requests",
		RunE:  func(cmd *cobra.Command, args []string) error { return serve() },
	}

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the webhook server",
		RunE:  func(cmd *cobra.Command, args []string) error { return serve() },
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store *sqlite.Store) error {
				fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
				return nil
			})
		},
	})

	rootCmd.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Install default leave types and annual-leave tiers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(ctx context.Context, store *sqlite.Store) error {
				return seed(ctx, store)
			})
		},
	})

	rootCmd.AddCommand(accountCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// =============================================================================
// SERVE
// =============================================================================

func serve() error {
	cfg, err := config.New()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	if cfg.ChannelSecret == "" {
		log.Warn("LEAVEBOT_LINE_CHANNEL_SECRET not set, webhook signatures are not verified")
	}

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()

	states, err := openStates(cfg, store, log)
	if err != nil {
		return err
	}
	defer states.close()

	client := line.NewClient(cfg.LineAPIBase, cfg.ChannelAccessToken, cfg.LineTimeout)
	dispatcher := bot.New(store, conversation.NewManager(states.backend), client, bot.Config{
		DailyHours:     cfg.DefaultDailyHours,
		WorkStart:      cfg.WorkStart,
		WorkEnd:        cfg.WorkEnd,
		NotifyTargetID: cfg.NotifyTargetID,
		AppURL:         cfg.AppURL,
		Location:       cfg.Location(),
	}, log)

	handler := api.NewHandler(store, dispatcher, cfg.ChannelSecret, log)
	handler.Pusher = client
	handler.Location = cfg.Location()
	if states.pinger != nil {
		handler.AddCheck(cfg.StateBackend, states.pinger)
	}
	router := api.NewRouter(handler, cfg.CORSOrigins)

	if states.purger != nil {
		sweeper := api.NewSweeper(states.purger, cfg.SweepInterval, log)
		sweeper.Start()
		defer sweeper.Stop()
	}

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	errc := make(chan error, 1)
	go func() {
		log.Info("server starting",
			zap.Int("port", cfg.Port),
			zap.String("state_backend", cfg.StateBackend),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errc:
		return fmt.Errorf("server failed: %w", err)
	}

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	dispatcher.Wait()
	handler.Wait()

	log.Info("server stopped")
	return nil
}

// stateBackend bundles the chosen conversation backend with its optional
// capabilities.
type stateBackend struct {
	backend conversation.Backend
	pinger  api.Pinger
	purger  api.Purger
	close   func()
}

func openStates(cfg *config.Config, store *sqlite.Store, log *zap.Logger) (*stateBackend, error) {
	switch cfg.StateBackend {
	case config.BackendRedis:
		b, err := redisstate.New(redisstate.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, log)
		if err != nil {
			return nil, err
		}
		return &stateBackend{backend: b, pinger: b, close: func() { b.Close() }}, nil

	case config.BackendMongo:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		b, err := mongostate.New(ctx, cfg.MongoURI, cfg.MongoDatabase, log)
		if err != nil {
			return nil, err
		}
		return &stateBackend{backend: b, pinger: b, purger: b, close: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			b.Close(ctx)
		}}, nil

	default:
		return &stateBackend{backend: store, purger: store, close: func() {}}, nil
	}
}

// =============================================================================
// ADMIN
// =============================================================================

func withStore(fn func(ctx context.Context, store *sqlite.Store) error) error {
	cfg, err := config.New()
	if err != nil {
		return err
	}
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer store.Close()
	return fn(context.Background(), store)
}

func seed(ctx context.Context, store *sqlite.Store) error {
	for _, p := range leave.DefaultPolicies() {
		if err := store.SavePolicy(ctx, p); err != nil {
			return fmt.Errorf("save policy %s: %w", p.LeaveType, err)
		}
	}
	return store.ReplaceAnnualLeaveRules(ctx, leave.StatutoryAnnualRules())
}

func accountCmd() *cobra.Command {
	var a sqlite.Account
	var hireDate string

	cmd := &cobra.Command{
		Use:   "account",
		Short: "Create or update an employee account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if hireDate != "" {
				d, err := leave.ParseDate(hireDate)
				if err != nil {
					return fmt.Errorf("--hire-date: %w", err)
				}
				a.HireDate = &d
			}
			return withStore(func(ctx context.Context, store *sqlite.Store) error {
				if err := store.SaveAccount(ctx, a); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "saved account %s\n", a.Email)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&a.ID, "id", "", "Account ID (generated when empty)")
	cmd.Flags().StringVar(&a.Email, "email", "", "Work email used for binding (required)")
	cmd.Flags().StringVar(&a.Name, "name", "", "Display name (required)")
	cmd.Flags().StringVar(&a.Department, "department", "", "Department")
	cmd.Flags().StringVar(&hireDate, "hire-date", "", "Hire date, YYYY-MM-DD")
	cmd.Flags().IntVar(&a.DailyWorkHours, "daily-hours", 0, "Daily work hours (default 8)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}
