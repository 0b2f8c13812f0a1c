// sessiond is the chat session service: it owns session storage, runs
// chat turns against the configured NLU classifier, and retires idle
// sessions on a schedule.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/chatgo-dev/chatgo/internal/chat"
	"github.com/chatgo-dev/chatgo/internal/httpapi"
	"github.com/chatgo-dev/chatgo/pkg/config"
	"github.com/chatgo-dev/chatgo/pkg/nlu"
	"github.com/chatgo-dev/chatgo/pkg/observability"
	"github.com/chatgo-dev/chatgo/pkg/session"
)

// Version is set via ldflags.
var Version = "dev"

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:           "sessiond",
		Short:         "Chat session service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", os.Getenv("CONFIG_FILE"), "configuration file")
	rootCmd.AddCommand(newServeCmd(), newSweepCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("sessiond: %v", err)
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the session service",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run a single session expiry pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	log.Printf("Starting sessiond v%s", Version)
	log.Printf("Port: %d, session backend: %s, NLU provider: %s",
		cfg.Server.Port, cfg.Session.Backend, cfg.NLU.Provider)

	observability.InitMetrics()
	if err := observability.Init(cfg.Tracing); err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := session.Open(ctx, cfg.Session)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()

	manager := session.NewManager(store)

	sweeper := session.NewSweeper(manager, cfg.Session.MaxIdle.Std())
	if err := sweeper.Start(cfg.Session.SweepSchedule); err != nil {
		return fmt.Errorf("start sweeper: %w", err)
	}
	defer sweeper.Stop()

	classifier, err := nlu.New(cfg.NLU.Provider, cfg.NLU.Options)
	if err != nil {
		return fmt.Errorf("create classifier: %w", err)
	}

	orchestrator := chat.NewOrchestrator(manager, classifier, cfg.NLU.Timeout.Std())

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(httpapi.MetricsMiddleware())
	httpapi.NewHandler(manager, orchestrator).RegisterRoutes(e)

	checker := observability.NewHealthChecker("sessiond")
	checker.Register(observability.StoreCheck(store.Ping))
	obsServer := observability.NewServer(cfg.Server.MetricsPort, checker)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		log.Printf("sessiond: listening on %s", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := obsServer.Start(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("observability server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Println("sessiond: shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Printf("sessiond: http shutdown error: %v", err)
		}
		if err := obsServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("sessiond: observability shutdown error: %v", err)
		}
		if err := observability.Shutdown(shutdownCtx); err != nil {
			log.Printf("sessiond: tracing shutdown error: %v", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Println("sessiond: stopped")
	return nil
}

func runSweep(ctx context.Context) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	store, err := session.Open(ctx, cfg.Session)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer store.Close()

	sweeper := session.NewSweeper(session.NewManager(store), cfg.Session.MaxIdle.Std())
	n, err := sweeper.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}
	log.Printf("sessiond: retired %d expired sessions", n)
	return nil
}
