// gateway is the public edge of the chatgo platform. It authenticates
// users, rate limits clients, and proxies traffic to the session and
// NLU services.
package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/chatgo-dev/chatgo/internal/gateway"
	"github.com/chatgo-dev/chatgo/pkg/config"
	"github.com/chatgo-dev/chatgo/pkg/observability"
)

// Version is set via ldflags.
var Version = "dev"

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:           "gateway",
		Short:         "API gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", os.Getenv("CONFIG_FILE"), "configuration file")
	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the API gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	})

	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("gateway: %v", err)
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	log.Printf("Starting gateway v%s", Version)
	log.Printf("Port: %d, session service: %s, NLU service: %s",
		cfg.Gateway.Port, cfg.Gateway.SessionServiceURL, cfg.Gateway.NLUServiceURL)

	observability.InitMetrics()

	secret := cfg.Gateway.JWTSecret
	if secret == "" {
		// Without a configured secret, tokens do not survive a restart.
		secret = randomSecret()
		log.Println("gateway: JWT_SECRET not set, using a generated secret")
	}

	sessionURL, err := url.Parse(cfg.Gateway.SessionServiceURL)
	if err != nil {
		return fmt.Errorf("parse session service URL: %w", err)
	}
	nluURL, err := url.Parse(cfg.Gateway.NLUServiceURL)
	if err != nil {
		return fmt.Errorf("parse NLU service URL: %w", err)
	}

	gw := gateway.New(
		gateway.NewUserStore(),
		gateway.NewTokenIssuer(secret, cfg.Gateway.TokenTTL.Std()),
		gateway.NewRateLimiter(cfg.Gateway.RateLimit.RequestsPerSecond, cfg.Gateway.RateLimit.Burst),
		sessionURL, nluURL,
	)
	e := gw.Router()

	checker := observability.NewHealthChecker("gateway")
	checker.Register(observability.UpstreamCheck("session-service", pingURL(cfg.Gateway.SessionServiceURL+"/health")))
	checker.Register(observability.UpstreamCheck("nlu-service", pingURL(cfg.Gateway.NLUServiceURL+"/health")))
	obsServer := observability.NewServer(cfg.Gateway.MetricsPort, checker)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := fmt.Sprintf(":%d", cfg.Gateway.Port)
		log.Printf("gateway: listening on %s", addr)
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
		log.Println("gateway: shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Printf("gateway: http shutdown error: %v", err)
		}
		if err := obsServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("gateway: observability shutdown error: %v", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Println("gateway: stopped")
	return nil
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		log.Fatalf("gateway: generate secret: %v", err)
	}
	return hex.EncodeToString(buf)
}

func pingURL(target string) func(context.Context) error {
	client := &http.Client{Timeout: 5 * time.Second}
	return func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return nil
	}
}
