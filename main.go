package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"library-borrowing/internal/config"
	"library-borrowing/internal/httpapi"
	"library-borrowing/internal/storage"
	"library-borrowing/library"
)

func main() {
	if err := newRootCmd(config.Load()).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(cfg config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           "library",
		Short:         "Borrow books from the library catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
		// Without a subcommand the terminal borrow page starts.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBorrow(cmd.Context(), cfg)
		},
	}
	root.PersistentFlags().StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to the SQLite database")
	root.PersistentFlags().StringVar(&cfg.HistoryBackend, "history", cfg.HistoryBackend, "history backend: sqlite, memory or redis")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), cfg)
		},
	}
	serve.Flags().StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "listen address")

	borrow := &cobra.Command{
		Use:   "borrow",
		Short: "Interactive borrow page in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBorrow(cmd.Context(), cfg)
		},
	}

	seed := &cobra.Command{
		Use:   "seed",
		Short: "Load the demo catalog into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, closeAll, err := openManager(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeAll()
			n, err := mgr.SeedDemo()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d books.\n", n)
			return nil
		},
	}

	root.AddCommand(serve, borrow, seed)
	return root
}

// openManager opens the database and the configured history backend. The
// returned func closes both.
func openManager(ctx context.Context, cfg config.Config) (*library.LibraryManager, func(), error) {
	logger := cfg.NewLogger()
	opts := []library.ManagerOption{
		library.WithManagerLogger(logger),
		library.WithAccountOptions(library.WithEmailDomain(cfg.EmailDomain)),
	}

	closers := []func(){}
	switch cfg.HistoryBackend {
	case "", "sqlite":
	case "memory":
		opts = append(opts, library.WithHistoryStorage(library.NewMemoryStorage()))
	case "redis":
		rs := storage.NewRedisStorage(storage.NewClient(cfg.RedisAddr))
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rs.Ping(pingCtx)
		cancel()
		if err != nil {
			rs.Close()
			return nil, nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		closers = append(closers, func() { rs.Close() })
		opts = append(opts, library.WithHistoryStorage(rs))
	default:
		return nil, nil, fmt.Errorf("unknown history backend %q", cfg.HistoryBackend)
	}

	mgr, err := library.NewLibraryManager(cfg.DBPath, opts...)
	if err != nil {
		for _, c := range closers {
			c()
		}
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.SeedDemo {
		if _, err := mgr.SeedDemo(); err != nil {
			mgr.Close()
			for _, c := range closers {
				c()
			}
			return nil, nil, err
		}
	}
	logger.Debug("library opened", "db", cfg.DBPath, "history", cfg.HistoryBackend)

	return mgr, func() {
		mgr.Close()
		for _, c := range closers {
			c()
		}
	}, nil
}

func runServe(ctx context.Context, cfg config.Config) error {
	mgr, closeAll, err := openManager(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeAll()

	logger := cfg.NewLogger()
	if cfg.Level() > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}
	api := httpapi.NewServer(mgr, logger)
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: api.Router()}

	errc := make(chan error, 1)
	go func() {
		logger.Info("HTTP listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go api.SweepIdle(sigCtx, cfg.SessionIdleTTL)
	select {
	case err := <-errc:
		return fmt.Errorf("listen: %w", err)
	case <-sigCtx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
