// Package matching ranks insertion candidates across the whole fleet and the
// whole open-opportunity population.
package matching

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dispatchly/ghostload/internal/fleet"
	"github.com/dispatchly/ghostload/internal/insertion"
	"github.com/dispatchly/ghostload/internal/opportunity"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AssignmentGuard answers whether a vehicle already carries an active
// assignment. Implemented by the assignment workflow; assigned vehicles are
// excluded from candidate generation.
type AssignmentGuard interface {
	VehicleAssigned(vehicleID string) bool
}

// Candidate pairs one opportunity with one vehicle under a concrete
// insertion plan. Candidates are recomputed every cycle and never persisted.
type Candidate struct {
	ID          string                  `json:"id"`
	Opportunity opportunity.Opportunity `json:"opportunity"`
	Vehicle     fleet.VehicleSnapshot   `json:"vehicle"`
	Plan        insertion.Plan          `json:"plan"`
	Acceptance  float64                 `json:"acceptance"`
	Score       float64                 `json:"score"`
	ComputedAt  time.Time               `json:"computed_at"`
}

// Config holds optimizer configuration.
type Config struct {
	MinFeasibility  int
	TopK            int
	Workers         int
	SnapshotTimeout time.Duration
	Logger          *zap.Logger
}

// Optimizer runs the cross-product scan and keeps the latest ranked top-K.
type Optimizer struct {
	registry *opportunity.Registry
	provider fleet.Provider
	analyzer *insertion.Analyzer
	model    AcceptanceModel
	guard    AssignmentGuard
	cfg      Config
	logger   *zap.Logger

	mu     sync.RWMutex
	latest []Candidate
	byID   map[string]Candidate
}

// New creates an optimizer. guard may be nil until the assignment workflow is
// wired in.
func New(cfg Config, registry *opportunity.Registry, provider fleet.Provider, analyzer *insertion.Analyzer, model AcceptanceModel) *Optimizer {
	return &Optimizer{
		registry: registry,
		provider: provider,
		analyzer: analyzer,
		model:    model,
		cfg:      cfg,
		logger:   cfg.Logger,
		byID:     make(map[string]Candidate),
	}
}

// SetGuard wires the assignment-side vehicle exclusion.
func (o *Optimizer) SetGuard(guard AssignmentGuard) {
	o.guard = guard
}

// pair is one unit of analyzer work.
type pair struct {
	opp opportunity.Opportunity
	veh fleet.VehicleSnapshot
}

// RunCycle recomputes the ranked candidate list. Snapshot failures are
// absorbed: the previous ranking stays in place and the next cycle retries.
// Analysis is pure and side-effect-free, so pairs fan out across workers.
func (o *Optimizer) RunCycle(ctx context.Context) {
	start := time.Now()
	defer func() {
		CycleDurationSeconds.Observe(time.Since(start).Seconds())
	}()

	CyclesTotal.Inc()

	snapshotCtx, cancel := context.WithTimeout(ctx, o.cfg.SnapshotTimeout)
	defer cancel()

	vehicles, err := o.provider.ListActiveVehicles(snapshotCtx)
	if err != nil {
		SnapshotErrorsTotal.Inc()
		o.logger.Warn("fleet-snapshot-unavailable", zap.Error(err))
		return
	}

	available := vehicles[:0]
	for _, veh := range vehicles {
		if o.guard != nil && o.guard.VehicleAssigned(veh.VehicleID) {
			continue
		}
		available = append(available, veh)
	}

	opps := o.registry.ListByStatus(
		opportunity.StatusDiscovered,
		opportunity.StatusAnalyzing,
		opportunity.StatusMatching,
	)

	// Newly discovered opportunities move to analyzing for the duration of
	// the scan.
	for i := range opps {
		if opps[i].Status == opportunity.StatusDiscovered {
			_, _ = o.registry.Transition(opps[i].ID, opportunity.StatusAnalyzing, opportunity.StatusDiscovered)
		}
	}

	now := time.Now()
	candidates := o.analyzePairs(opps, available, now)

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	// Every opportunity with at least one retained candidate advances to
	// matching; its insertion-fit score is the best feasibility seen.
	bestFit := make(map[string]int)
	for i := range candidates {
		oppID := candidates[i].Opportunity.ID
		if candidates[i].Plan.Feasibility > bestFit[oppID] {
			bestFit[oppID] = candidates[i].Plan.Feasibility
		}
	}
	for oppID, fit := range bestFit {
		_, _ = o.registry.Transition(oppID, opportunity.StatusMatching,
			opportunity.StatusDiscovered, opportunity.StatusAnalyzing)
		o.registry.SetInsertionFit(oppID, fit)
	}

	if len(candidates) > o.cfg.TopK {
		candidates = candidates[:o.cfg.TopK]
	}

	byID := make(map[string]Candidate, len(candidates))
	for i := range candidates {
		byID[candidates[i].ID] = candidates[i]
	}

	o.mu.Lock()
	o.latest = candidates
	o.byID = byID
	o.mu.Unlock()

	TopCandidates.Set(float64(len(candidates)))

	o.logger.Info("match-cycle-complete",
		zap.Int("vehicles", len(available)),
		zap.Int("open-opportunities", len(opps)),
		zap.Int("ranked-candidates", len(candidates)),
		zap.Duration("duration", time.Since(start)))
}

// analyzePairs fans the opportunity × vehicle cross-product out across the
// worker pool and gathers the candidates that clear the feasibility floor.
func (o *Optimizer) analyzePairs(opps []opportunity.Opportunity, vehicles []fleet.VehicleSnapshot, now time.Time) []Candidate {
	if len(opps) == 0 || len(vehicles) == 0 {
		return nil
	}

	workers := o.cfg.Workers
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan pair, workers)
	results := make(chan Candidate, len(opps)*len(vehicles))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				PairsAnalyzedTotal.Inc()

				plan, ok := o.analyzer.Analyze(&p.opp, &p.veh, now)
				if !ok || plan.Feasibility < o.cfg.MinFeasibility {
					continue
				}

				acceptance := o.model.Score(&p.opp, &p.veh, plan)

				results <- Candidate{
					ID:          uuid.New().String(),
					Opportunity: p.opp,
					Vehicle:     p.veh,
					Plan:        *plan,
					Acceptance:  acceptance,
					Score:       plan.NetProfit * (float64(plan.Feasibility) / 100) * (acceptance / 100),
					ComputedAt:  now,
				}
			}
		}()
	}

	for i := range opps {
		for j := range vehicles {
			jobs <- pair{opp: opps[i], veh: vehicles[j]}
		}
	}
	close(jobs)

	wg.Wait()
	close(results)

	candidates := make([]Candidate, 0, len(results))
	for c := range results {
		candidates = append(candidates, c)
	}

	CandidatesRetainedTotal.Add(float64(len(candidates)))

	return candidates
}

// TopMatches returns the latest ranked candidate list.
func (o *Optimizer) TopMatches() []Candidate {
	o.mu.RLock()
	defer o.mu.RUnlock()

	out := make([]Candidate, len(o.latest))
	copy(out, o.latest)
	return out
}

// Candidate looks up a ranked candidate by id.
func (o *Optimizer) Candidate(id string) (Candidate, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	c, ok := o.byID[id]
	return c, ok
}
