// Command prepare refreshes the artifact cache ahead of a deployment. The
// processed artifact is always rebuilt; the raw artifact is reused unless
// -force is given.
//
// Usage:
//
//	CACHE_DIR=data go run ./cmd/prepare -force
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/emissions-globe-service/internal/adapter/cache"
	"github.com/couchcryptid/emissions-globe-service/internal/adapter/owid"
	"github.com/couchcryptid/emissions-globe-service/internal/config"
	"github.com/couchcryptid/emissions-globe-service/internal/observability"
	"github.com/couchcryptid/emissions-globe-service/internal/pipeline"
	"github.com/jonboulle/clockwork"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	force := flag.Bool("force", false, "download the raw dataset even if a raw artifact is cached")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetricsForTesting()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := cache.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open artifact cache: %w", err)
	}
	defer closeStore() //nolint:errcheck // process exits right after

	var rawStore cache.Store = store
	if *force {
		rawStore = refreshStore{store}
	}
	source := owid.NewCachedSource(owid.NewClient(cfg, metrics, logger), rawStore, metrics, logger)
	p := pipeline.New(source, refreshStore{store}, nil, clockwork.NewRealClock(), logger, metrics)

	table, err := p.Build(ctx)
	if err != nil {
		return err
	}

	first, last := table.YearRange()
	fmt.Fprintf(os.Stdout, "Prepared %d regions (%d-%d, default year %d) in %s cache.\n",
		table.Len(), first, last, table.DefaultYear(), cfg.CacheBackend)
	return nil
}

// refreshStore hides existing artifacts so every Get misses and the build
// writes a fresh copy.
type refreshStore struct {
	cache.Store
}

func (refreshStore) Get(context.Context, string) ([]byte, error) {
	return nil, cache.ErrNotFound
}
