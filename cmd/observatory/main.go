// Command observatory is the command-line client for the Open Observatory
// platform: browse the catalog, report observations, vote and look up
// achievements.
//
// Usage:
//
//	observatory <command> [flags]
//
// Run "observatory help" for the list of commands.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/couchcryptid/open-observatory/internal/adapter/api"
	kafkaadapter "github.com/couchcryptid/open-observatory/internal/adapter/kafka"
	"github.com/couchcryptid/open-observatory/internal/adapter/mapbox"
	"github.com/couchcryptid/open-observatory/internal/adapter/redis"
	"github.com/couchcryptid/open-observatory/internal/config"
	"github.com/couchcryptid/open-observatory/internal/domain"
	"github.com/couchcryptid/open-observatory/internal/observability"
	"github.com/couchcryptid/open-observatory/internal/session"
)

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"catalog":      {"list the celestial bodies that can be observed", runCatalog},
	"report":       {"report an observation", runReport},
	"show":         {"show an observation", runShow},
	"vote":         {"vote on an observation", runVote},
	"achievements": {"list a user's badges", runAchievements},
	"profile":      {"show a user's profile and karma", runProfile},
	"nearby":       {"list current observations around a point", runNearby},
	"register":     {"create an account", runRegister},
	"login":        {"exchange credentials for an access token", runLogin},
}

// app carries the wiring shared by every command.
type app struct {
	cfg       *config.Config
	client    *api.Client
	catalog   session.CatalogSource
	geocoder  domain.Geocoder
	publisher session.ActivityPublisher
	metrics   *observability.Metrics
	logger    *slog.Logger
	out       io.Writer
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "warning: failed to read .env:", err)
	}
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage(stderr)
		return 2
	}
	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, "config:", err)
		return 1
	}
	if err := domain.ValidateAchievementTables(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, cleanup := newApp(ctx, cfg, observability.NewLoggerTo(stderr, cfg), stdout)
	defer cleanup()

	if err := cmd.run(ctx, a, args[1:]); err != nil {
		fmt.Fprintln(stderr, "error:", describe(err))
		return 1
	}
	return 0
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) (*app, func()) {
	metrics := observability.NewMetricsWith(prometheus.NewRegistry())
	client := api.NewClient(cfg.APIBaseURL, cfg.APITimeout, cfg.APIToken, metrics, logger)
	a := &app{
		cfg:     cfg,
		client:  client,
		catalog: client,
		metrics: metrics,
		logger:  logger,
		out:     out,
	}
	var closers []func() error

	if cfg.MapboxEnabled {
		a.geocoder = mapbox.NewCachedGeocoder(
			mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, metrics, logger),
			cfg.MapboxCacheSize, metrics,
		)
		metrics.GeocodeEnabled.Set(1)
	}

	if cfg.RedisURL != "" {
		rdb, err := redis.Open(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("catalog cache unavailable", "error", err)
		} else {
			a.catalog = redis.NewCachedCatalog(rdb, client, cfg.CatalogCacheTTL, metrics, logger)
			closers = append(closers, rdb.Close)
		}
	}

	return a, func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Debug("close failed", "error", err)
			}
		}
	}
}

// withActivity enables activity publishing for the commands that change a record.
func (a *app) withActivity(enabled bool) func() {
	if !enabled || !a.cfg.ActivityEnabled {
		return func() {}
	}
	w := kafkaadapter.NewWriter(a.cfg, a.logger)
	a.publisher = w
	return func() {
		if err := w.Close(); err != nil {
			a.logger.Debug("kafka writer close failed", "error", err)
		}
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: observatory <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "commands:")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %-13s %s\n", name, commands[name].summary)
	}
}

// describe renders err for a person at a terminal.
func describe(err error) string {
	var (
		verr *domain.ValidationError
		aerr *domain.AuthenticationError
		nerr *domain.NetworkError
	)
	switch {
	case errors.As(err, &verr):
		return err.Error()
	case errors.As(err, &aerr):
		return err.Error() + " (log in and set API_TOKEN)"
	case errors.As(err, &nerr):
		return err.Error() + " (retry the command)"
	case errors.Is(err, domain.ErrNotFound):
		return "not found"
	default:
		return err.Error()
	}
}
