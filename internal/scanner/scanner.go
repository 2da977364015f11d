package scanner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dispatchly/ghostload/internal/opportunity"
	"github.com/dispatchly/ghostload/internal/source"
	"go.uber.org/zap"
)

// Matcher is triggered after a scan cycle that ingested new opportunities.
// Implemented by the match optimizer.
type Matcher interface {
	RunCycle(ctx context.Context)
}

// OpportunityStore persists newly discovered opportunities.
type OpportunityStore interface {
	StoreOpportunity(ctx context.Context, opp *opportunity.Opportunity) error
}

// Scanner polls the load-board source for abandoned postings on a fixed
// interval and ingests them into the registry.
type Scanner struct {
	adapter       source.Adapter
	registry      *opportunity.Registry
	matcher       Matcher
	store         OpportunityStore
	scanInterval  time.Duration
	sweepInterval time.Duration
	retention     time.Duration
	sourceTimeout time.Duration
	logger        *zap.Logger
	scanning      atomic.Bool
	wg            sync.WaitGroup
}

// Config holds scanner configuration.
type Config struct {
	Adapter       source.Adapter
	Registry      *opportunity.Registry
	Matcher       Matcher
	Store         OpportunityStore // optional
	ScanInterval  time.Duration
	SweepInterval time.Duration
	Retention     time.Duration
	SourceTimeout time.Duration
	Logger        *zap.Logger
}

// New creates a new scanner.
func New(cfg *Config) *Scanner {
	return &Scanner{
		adapter:       cfg.Adapter,
		registry:      cfg.Registry,
		matcher:       cfg.Matcher,
		store:         cfg.Store,
		scanInterval:  cfg.ScanInterval,
		sweepInterval: cfg.SweepInterval,
		retention:     cfg.Retention,
		sourceTimeout: cfg.SourceTimeout,
		logger:        cfg.Logger,
	}
}

// Run starts the scan and retention loops and blocks until ctx is cancelled.
func (s *Scanner) Run(ctx context.Context) error {
	s.logger.Info("scanner-starting",
		zap.Duration("scan-interval", s.scanInterval),
		zap.Duration("sweep-interval", s.sweepInterval),
		zap.Duration("retention", s.retention))

	s.wg.Add(1)
	go s.sweepLoop(ctx)

	ticker := time.NewTicker(s.scanInterval)
	defer ticker.Stop()

	// Initial scan
	if err := s.Scan(ctx); err != nil {
		s.logger.Error("initial-scan-failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scanner-stopping")
			s.wg.Wait()
			return ctx.Err()
		case <-ticker.C:
			if err := s.Scan(ctx); err != nil {
				s.logger.Error("scan-failed", zap.Error(err))
			}
		}
	}
}

// Scan runs one discovery cycle. A cycle that overlaps a still-running one
// is skipped, not queued.
func (s *Scanner) Scan(ctx context.Context) error {
	if !s.scanning.CompareAndSwap(false, true) {
		ScansSkippedTotal.Inc()
		s.logger.Warn("scan-still-in-progress-skipping")
		return nil
	}
	defer s.scanning.Store(false)

	start := time.Now()
	defer func() {
		ScanDurationSeconds.Observe(time.Since(start).Seconds())
	}()
	ScansTotal.Inc()

	fetchCtx, cancel := context.WithTimeout(ctx, s.sourceTimeout)
	defer cancel()

	raws, err := s.adapter.FetchBatch(fetchCtx)
	if err != nil {
		ScanErrorsTotal.Inc()
		if errors.Is(err, source.ErrSourceUnavailable) {
			// The source being down is routine; the next tick retries.
			s.logger.Warn("source-unavailable", zap.Error(err))
			return nil
		}
		return fmt.Errorf("fetch batch: %w", err)
	}

	added := s.registry.Ingest(raws, time.Now())

	for i := range added {
		s.logger.Info("opportunity-discovered",
			zap.String("opportunity-id", added[i].ID),
			zap.String("external-id", added[i].ExternalID),
			zap.Float64("target-rate", added[i].TargetRate),
			zap.Float64("margin-potential", added[i].MarginPotential))

		if s.store != nil {
			if err := s.store.StoreOpportunity(ctx, &added[i]); err != nil {
				s.logger.Error("opportunity-store-failed",
					zap.String("opportunity-id", added[i].ID),
					zap.Error(err))
			}
		}
	}

	s.logger.Debug("scan-complete",
		zap.Int("fetched", len(raws)),
		zap.Int("new", len(added)),
		zap.Duration("duration", time.Since(start)))

	// Kick the matcher without holding up the scan loop.
	if len(added) > 0 && s.matcher != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.matcher.RunCycle(ctx)
		}()
	}

	return nil
}

// sweepLoop expires stale opportunities and prunes terminal ones past the
// retention window.
func (s *Scanner) sweepLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, removed := s.registry.Sweep(time.Now(), s.retention)
			if expired > 0 || removed > 0 {
				s.logger.Info("retention-sweep-complete",
					zap.Int("expired", expired),
					zap.Int("removed", removed))
			}
		}
	}
}
