package matching

import (
	"math/rand"
	"sync"

	"github.com/dispatchly/ghostload/internal/fleet"
	"github.com/dispatchly/ghostload/internal/insertion"
	"github.com/dispatchly/ghostload/internal/opportunity"
)

// AcceptanceModel estimates how likely the operating party is to agree to a
// match, on a 0-100 scale. The heuristic implementation stands in for a
// learned behavioral model; swapping it out does not touch the ranking.
type AcceptanceModel interface {
	Score(opp *opportunity.Opportunity, veh *fleet.VehicleSnapshot, plan *insertion.Plan) float64
}

const (
	acceptanceBase = 50.0
	acceptanceMin  = 10.0
	acceptanceMax  = 95.0

	// Driver-specific flexibility the heuristic cannot see; bounded noise.
	acceptanceJitter = 10.0
)

// HeuristicAcceptance scores acceptance from rate density, deadhead relief
// and detour burden, plus a bounded random adjustment.
type HeuristicAcceptance struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewHeuristicAcceptance creates the default acceptance model. The seed is
// explicit so tests can pin the random term.
func NewHeuristicAcceptance(seed int64) *HeuristicAcceptance {
	return &HeuristicAcceptance{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Score implements AcceptanceModel.
func (h *HeuristicAcceptance) Score(opp *opportunity.Opportunity, veh *fleet.VehicleSnapshot, plan *insertion.Plan) float64 {
	score := acceptanceBase

	haul := opp.DistanceMiles
	if haul <= 0 {
		haul = 1
	}
	ratePerMile := opp.TargetRate / haul

	switch {
	case ratePerMile >= 2.5:
		score += 25
	case ratePerMile >= 2.0:
		score += 15
	case ratePerMile >= 1.5:
		score += 8
	}

	switch {
	case plan.DeadheadSavedMiles > 150:
		score += 20
	case plan.DeadheadSavedMiles > 75:
		score += 10
	}

	if plan.AdditionalMiles > 200 {
		score -= 20
	}

	if plan.Class == insertion.ClassDetourDuring {
		score += 10
	}

	h.mu.Lock()
	score += h.rng.Float64()*2*acceptanceJitter - acceptanceJitter
	h.mu.Unlock()

	if score < acceptanceMin {
		score = acceptanceMin
	}
	if score > acceptanceMax {
		score = acceptanceMax
	}

	return score
}
