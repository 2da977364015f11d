package opportunity

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrNotFound is returned when an opportunity id is unknown to the registry.
var ErrNotFound = errors.New("opportunity not found")

// Registry is the owned store of discovered opportunities. All status
// transitions go through Transition, which performs a compare-and-swap under
// the registry lock so concurrent scan/match/assign paths cannot both win.
type Registry struct {
	mu          sync.RWMutex
	byID        map[string]*Opportunity
	byExternal  map[string]string // external id → internal id
	costPerMile float64
	logger      *zap.Logger
}

// RegistryConfig holds registry configuration.
type RegistryConfig struct {
	CostPerMile float64
	Logger      *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(cfg *RegistryConfig) *Registry {
	return &Registry{
		byID:        make(map[string]*Opportunity),
		byExternal:  make(map[string]string),
		costPerMile: cfg.CostPerMile,
		logger:      cfg.Logger,
	}
}

// Ingest stores the genuinely-new records from a source batch and returns
// them. Records whose external id is already known are skipped, so redelivery
// by the source is harmless.
func (r *Registry) Ingest(raws []Raw, now time.Time) []Opportunity {
	r.mu.Lock()
	defer r.mu.Unlock()

	var added []Opportunity

	for i := range raws {
		raw := raws[i]
		if raw.ExternalID != "" {
			if _, exists := r.byExternal[raw.ExternalID]; exists {
				DuplicatesSkippedTotal.Inc()
				continue
			}
		}

		opp := New(raw, r.costPerMile, now)
		r.byID[opp.ID] = opp
		if opp.ExternalID != "" {
			r.byExternal[opp.ExternalID] = opp.ID
		}

		added = append(added, *opp)
		IngestedTotal.Inc()

		r.logger.Info("opportunity-ingested",
			zap.String("opportunity-id", opp.ID),
			zap.String("external-id", opp.ExternalID),
			zap.String("reason", opp.DiscoveryReason),
			zap.Float64("target-rate", opp.TargetRate),
			zap.Float64("distance-miles", opp.DistanceMiles))
	}

	OpenOpportunities.Set(float64(r.openCountLocked()))

	return added
}

// Get returns a copy of the opportunity, if present.
func (r *Registry) Get(id string) (Opportunity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	opp, ok := r.byID[id]
	if !ok {
		return Opportunity{}, false
	}
	return *opp, true
}

// ListByStatus returns copies of all opportunities in any of the given
// statuses. With no statuses it returns everything.
func (r *Registry) ListByStatus(statuses ...Status) []Opportunity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Opportunity
	for _, opp := range r.byID {
		if len(statuses) == 0 {
			out = append(out, *opp)
			continue
		}
		for _, s := range statuses {
			if opp.Status == s {
				out = append(out, *opp)
				break
			}
		}
	}
	return out
}

// Transition atomically moves the opportunity to the given status, provided
// its current status is one of allowedFrom and the move is a legal lifecycle
// step. It returns false (and no error) when the opportunity exists but is
// not in an allowed status: that is how a losing committer observes the race.
func (r *Registry) Transition(id string, to Status, allowedFrom ...Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	opp, ok := r.byID[id]
	if !ok {
		return false, ErrNotFound
	}

	allowed := len(allowedFrom) == 0
	for _, from := range allowedFrom {
		if opp.Status == from {
			allowed = true
			break
		}
	}
	if !allowed || !canTransition(opp.Status, to) {
		return false, nil
	}

	opp.Status = to
	opp.UpdatedAt = time.Now()
	StatusTransitionsTotal.WithLabelValues(string(to)).Inc()
	OpenOpportunities.Set(float64(r.openCountLocked()))

	return true, nil
}

// SetInsertionFit records the lazily computed insertion-fit score.
func (r *Registry) SetInsertionFit(id string, score int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if opp, ok := r.byID[id]; ok {
		opp.InsertionFitScore = score
	}
}

// Sweep expires pre-assignment opportunities whose pickup window has closed
// and deletes terminal opportunities whose last update is older than the
// retention window. Returns (expired, removed).
func (r *Registry) Sweep(now time.Time, retention time.Duration) (int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired, removed int

	for id, opp := range r.byID {
		if opp.Status.preAssignment() && !opp.PickupWindow.End.IsZero() && opp.PickupWindow.End.Before(now) {
			opp.Status = StatusExpired
			opp.UpdatedAt = now
			expired++
			StatusTransitionsTotal.WithLabelValues(string(StatusExpired)).Inc()
			continue
		}

		if opp.Status.Terminal() && now.Sub(opp.UpdatedAt) > retention {
			if opp.ExternalID != "" {
				delete(r.byExternal, opp.ExternalID)
			}
			delete(r.byID, id)
			removed++
		}
	}

	SweepExpiredTotal.Add(float64(expired))
	SweepRemovedTotal.Add(float64(removed))
	OpenOpportunities.Set(float64(r.openCountLocked()))

	if expired > 0 || removed > 0 {
		r.logger.Info("retention-sweep-complete",
			zap.Int("expired", expired),
			zap.Int("removed", removed))
	}

	return expired, removed
}

// Analytics is a derived, read-only view over the registry. OldestOpenAge
// tracks how long the stalest uncommitted opportunity has been sitting, a
// signal that matching is falling behind discovery.
type Analytics struct {
	Total            int            `json:"total"`
	ByStatus         map[string]int `json:"by_status"`
	ByReason         map[string]int `json:"by_reason"`
	PotentialRevenue float64        `json:"potential_revenue"`
	AverageMargin    float64        `json:"average_margin"`
	OldestOpenAge    float64        `json:"oldest_open_age_seconds"`
}

// Snapshot computes the aggregate analytics view.
func (r *Registry) Snapshot() Analytics {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a := Analytics{
		ByStatus: make(map[string]int),
		ByReason: make(map[string]int),
	}

	now := time.Now()
	var oldest time.Duration
	var marginSum float64
	var marginCount int

	for _, opp := range r.byID {
		a.Total++
		a.ByStatus[string(opp.Status)]++
		if opp.DiscoveryReason != "" {
			a.ByReason[opp.DiscoveryReason]++
		}
		if !opp.Status.Terminal() {
			a.PotentialRevenue += opp.TargetRate
			if age := opp.Age(now); age > oldest {
				oldest = age
			}
		}
		if opp.MarginPotential != 0 {
			marginSum += opp.MarginPotential
			marginCount++
		}
	}

	a.OldestOpenAge = oldest.Seconds()

	if marginCount > 0 {
		a.AverageMargin = marginSum / float64(marginCount)
	}

	return a
}

// Count returns the number of stored opportunities.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// openCountLocked counts non-terminal opportunities. Caller holds the lock.
func (r *Registry) openCountLocked() int {
	n := 0
	for _, opp := range r.byID {
		if !opp.Status.Terminal() {
			n++
		}
	}
	return n
}
