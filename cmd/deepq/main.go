// Command deepq runs the analysis-job broker: the worker-facing HTTP
// API and aggregator ("serve"), the upstream stream ingester
// ("listen"), or a one-shot ApiUser minting helper ("mint-key").
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
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	deepqapi "github.com/lichess-org/deepq/pkg/api"
	"github.com/lichess-org/deepq/pkg/aggregator"
	"github.com/lichess-org/deepq/pkg/broker"
	"github.com/lichess-org/deepq/pkg/config"
	"github.com/lichess-org/deepq/pkg/database"
	"github.com/lichess-org/deepq/pkg/events"
	"github.com/lichess-org/deepq/pkg/ingestion"
	"github.com/lichess-org/deepq/pkg/models"
	"github.com/lichess-org/deepq/pkg/sink"
	"github.com/lichess-org/deepq/pkg/stream"
	"github.com/lichess-org/deepq/pkg/version"
)

const serverShutdownGrace = 10 * time.Second

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd, args := os.Args[1], os.Args[2:]

	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("deepq: failed to load configuration", "error", err)
		os.Exit(1)
	}

	var runErr error
	switch cmd {
	case "serve":
		runErr = runServe(cfg, args)
	case "listen":
		runErr = runListen(cfg, args)
	case "mint-key":
		runErr = runMintKey(cfg, args)
	default:
		usage()
		os.Exit(2)
	}

	if runErr != nil {
		slog.Error("deepq: fatal", "command", cmd, "error", runErr)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "%s\n\nusage: deepq <command> [options]\n\ncommands:\n  serve      run the worker HTTP API + aggregator\n  listen     run the upstream stream ingester\n  mint-key   mint a new ApiUser and print its key\n", version.Full())
}

// runServe implements the "serve" subcommand: the worker-facing HTTP
// API (acquire/abort/analysis/status) plus the aggregator goroutine,
// both sharing one event bus and store.
func runServe(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	fs.Parse(args)

	if err := cfg.ValidateForServe(); err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dbClient, err := database.NewClient(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("serve: connect database: %w", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			slog.Error("serve: closing database client", "error", err)
		}
	}()

	store := database.NewStore(dbClient)
	bus := events.NewBus()

	b := broker.New(store, bus)
	sk := sink.New(store, bus)
	agg := aggregator.New(store, bus, cfg.DownstreamURL)

	go agg.Run(ctx)

	server := deepqapi.NewServer(dbClient, store, b, sk)

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), serverShutdownGrace)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("serve: shutdown", "error", err)
		}
	}()

	slog.Info("serve: worker API listening", "addr", cfg.Addr(), "version", version.Full())
	if err := server.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

// runListen implements the "listen" subcommand: the upstream stream
// ingester, run to completion (it only returns when ctx is cancelled).
func runListen(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("listen", flag.ExitOnError)
	fs.Parse(args)

	if err := cfg.ValidateForListen(); err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	dbClient, err := database.NewClient(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("listen: connect database: %w", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			slog.Error("listen: closing database client", "error", err)
		}
	}()

	store := database.NewStore(dbClient)
	pipeline := ingestion.NewPipeline(store)
	ingester := stream.New(cfg.StreamURL, cfg.StreamBearerKey, pipeline)

	slog.Info("listen: streaming review requests", "url", cfg.StreamURL)
	ingester.Run(ctx)
	return nil
}

// runMintKey implements the "mint-key" subcommand: insert a fresh
// ApiUser with the requested permissions and print its bearer key.
func runMintKey(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("mint-key", flag.ExitOnError)
	name := fs.String("name", "", "human-readable name for the ApiUser")
	user := fs.String("user", "", "optional Lichess user id to bind this key to")
	perms := fs.String("perms", "user_analysis,system_analysis", "comma-separated analysis kinds this key may claim")
	fs.Parse(args)

	if *name == "" {
		return fmt.Errorf("mint-key: -name is required")
	}

	kinds, err := parseKinds(*perms)
	if err != nil {
		return fmt.Errorf("mint-key: %w", err)
	}

	ctx := context.Background()
	dbClient, err := database.NewClient(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("mint-key: connect database: %w", err)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			slog.Error("mint-key: closing database client", "error", err)
		}
	}()

	store := database.NewStore(dbClient)

	key, err := models.GenerateApiKey()
	if err != nil {
		return fmt.Errorf("mint-key: generate key: %w", err)
	}

	u := &models.ApiUser{
		ID:          uuid.NewString(),
		Key:         key,
		Name:        *name,
		Permissions: kinds,
	}
	if *user != "" {
		id := models.NormalizeUserId(*user)
		u.User = &id
	}

	if err := store.InsertApiUser(ctx, u); err != nil {
		return fmt.Errorf("mint-key: %w", err)
	}

	fmt.Printf("minted key for %q: %s\n", u.Name, u.Key)
	return nil
}

func parseKinds(raw string) ([]models.AnalysisKind, error) {
	parts := strings.Split(raw, ",")
	kinds := make([]models.AnalysisKind, 0, len(parts))
	for _, p := range parts {
		k := models.AnalysisKind(strings.TrimSpace(p))
		if !models.ValidKind(k) {
			return nil, fmt.Errorf("unknown analysis kind %q", p)
		}
		kinds = append(kinds, k)
	}
	if len(kinds) == 0 {
		return nil, fmt.Errorf("at least one permission is required")
	}
	return kinds, nil
}

