// Package pipeline builds the region table once at startup.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/couchcryptid/emissions-globe-service/internal/adapter/cache"
	"github.com/couchcryptid/emissions-globe-service/internal/domain"
	"github.com/couchcryptid/emissions-globe-service/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Publisher receives the table after every successful build.
type Publisher interface {
	Publish(ctx context.Context, table *domain.Table) error
}

// Pipeline runs the fetch-normalize-persist-publish build.
type Pipeline struct {
	source    domain.RawSource
	store     cache.Store
	publisher Publisher
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	table     atomic.Pointer[domain.Table]
}

// New creates a Pipeline. publisher may be nil.
func New(source domain.RawSource, store cache.Store, publisher Publisher, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Pipeline{
		source:    source,
		store:     store,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once a table has been built, or an error
// describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.table.Load() == nil {
		return errors.New("region table has not been built yet")
	}
	return nil
}

// Table returns the last built table, or nil before the first build.
func (p *Pipeline) Table() *domain.Table {
	return p.table.Load()
}

// Build produces the table. A usable processed artifact short-circuits the
// raw fetch. Persistence and publication failures are logged and do not fail
// the build; a raw source failure does.
func (p *Pipeline) Build(ctx context.Context) (*domain.Table, error) {
	start := p.clock.Now()

	table, ok := p.loadProcessed(ctx)
	if !ok {
		raw, err := p.source.FetchRaw(ctx)
		if err != nil {
			return nil, fmt.Errorf("build table: %w", err)
		}

		series, report := domain.NormalizeWithReport(raw)
		p.recordReport(report)
		table = domain.NewTable(series, p.clock.Now())
		if table.Len() == 0 {
			p.logger.Warn("normalization produced no regions", "raw_regions", len(raw))
		}
		p.persist(ctx, table)
	}

	p.publish(ctx, table)

	first, last := table.YearRange()
	p.metrics.BuildDuration.Observe(p.clock.Since(start).Seconds())
	p.metrics.RegionsNormalized.Set(float64(table.Len()))
	p.metrics.TableReady.Set(1)
	p.table.Store(table)

	p.logger.Info("region table ready",
		"regions", table.Len(),
		"first_year", first,
		"last_year", last,
		"from_cache", ok,
	)
	return table, nil
}

func (p *Pipeline) loadProcessed(ctx context.Context) (*domain.Table, bool) {
	data, err := p.store.Get(ctx, cache.ProcessedArtifact)
	switch {
	case errors.Is(err, cache.ErrNotFound):
		p.metrics.CacheLookups.WithLabelValues(cache.ProcessedArtifact, "miss").Inc()
		return nil, false
	case err != nil:
		p.metrics.CacheLookups.WithLabelValues(cache.ProcessedArtifact, "error").Inc()
		p.logger.Warn("read processed artifact failed", "artifact", cache.ProcessedArtifact, "error", err)
		return nil, false
	}

	var series map[string]domain.RegionTimeSeries
	if err := json.Unmarshal(data, &series); err != nil {
		p.metrics.CacheLookups.WithLabelValues(cache.ProcessedArtifact, "error").Inc()
		p.logger.Warn("processed artifact unreadable, rebuilding", "artifact", cache.ProcessedArtifact, "error", err)
		return nil, false
	}

	table := domain.NewTable(series, p.clock.Now())
	if table.Len() == 0 {
		p.metrics.CacheLookups.WithLabelValues(cache.ProcessedArtifact, "miss").Inc()
		return nil, false
	}
	if dropped := len(series) - table.Len(); dropped > 0 {
		p.logger.Warn("processed artifact contained invalid records", "dropped", dropped)
	}
	p.metrics.CacheLookups.WithLabelValues(cache.ProcessedArtifact, "hit").Inc()
	return table, true
}

func (p *Pipeline) persist(ctx context.Context, table *domain.Table) {
	data, err := json.Marshal(table.Regions())
	if err != nil {
		p.logger.Warn("encode processed artifact failed", "error", err)
		return
	}
	if err := p.store.Put(ctx, cache.ProcessedArtifact, data); err != nil {
		p.logger.Warn("write processed artifact failed", "artifact", cache.ProcessedArtifact, "error", err)
	}
}

func (p *Pipeline) publish(ctx context.Context, table *domain.Table) {
	if p.publisher == nil {
		return
	}
	if err := p.publisher.Publish(ctx, table); err != nil {
		p.metrics.SnapshotMessages.WithLabelValues("error").Add(float64(table.Len()))
		p.logger.Warn("publish table failed", "regions", table.Len(), "error", err)
		return
	}
	p.metrics.SnapshotMessages.WithLabelValues("success").Add(float64(table.Len()))
}

func (p *Pipeline) recordReport(report domain.Report) {
	for reason, n := range report.CountByReason() {
		p.metrics.RegionsRejected.WithLabelValues(string(reason)).Add(float64(n))
	}
	p.metrics.MalformedPoints.Add(float64(report.MalformedPoints))
	if len(report.Rejected) > 0 || report.MalformedPoints > 0 {
		p.logger.Debug("normalization report",
			"rejected", len(report.Rejected),
			"malformed_points", report.MalformedPoints,
		)
	}
}
