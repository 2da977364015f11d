// Package insertion decides whether and how one opportunity can be grafted
// onto one vehicle's itinerary, and at what marginal cost.
package insertion

import (
	"time"

	"github.com/dispatchly/ghostload/internal/fleet"
	"github.com/dispatchly/ghostload/internal/geo"
	"github.com/dispatchly/ghostload/internal/opportunity"
	"go.uber.org/zap"
)

// Class is the strategy by which an opportunity is grafted onto a route.
// A before-current class (picking up ahead of the route's own origin) is not
// modeled.
type Class string

const (
	// ClassDetourDuring reroutes the vehicle's active leg through the
	// opportunity's pickup and delivery.
	ClassDetourDuring Class = "detour_during"

	// ClassAfterCurrent sends the vehicle to the pickup after its current
	// route completes, or directly from its position when it runs empty.
	ClassAfterCurrent Class = "after_current"
)

// Feasibility score components. Additive; a candidate needs the pickup-window
// award plus at least one other to clear the optimizer's retention floor.
const (
	scorePickupFeasible  = 40
	scoreShortAdditional = 30
	scoreDeadheadSaved   = 20
	scoreEquipmentMatch  = 10

	deadheadScoreFloorMiles = 50
)

// Params holds the fixed economics of insertion analysis.
type Params struct {
	// DetourSlackMiles is the maximum extra distance a detour may add over
	// the direct leg before falling back to after-current. Doubles as the
	// "short additional distance" scoring threshold.
	DetourSlackMiles float64

	// DeadheadCapMiles caps how much pickup distance counts as deadhead
	// eliminated for an empty vehicle.
	DeadheadCapMiles float64

	AvgSpeedMPH      float64
	FuelCostPerMile  float64
	TotalCostPerMile float64

	// RequireEquipmentMatch hard-disqualifies equipment mismatches instead
	// of only withholding the match award.
	RequireEquipmentMatch bool
}

// Plan is the structured result of a feasible insertion.
type Plan struct {
	Class              Class         `json:"class"`
	AdditionalMiles    float64       `json:"additional_miles"`
	AdditionalTime     time.Duration `json:"additional_time"`
	FuelCost           float64       `json:"fuel_cost"`
	NetProfit          float64       `json:"net_profit"`
	Margin             float64       `json:"margin"`
	DeadheadSavedMiles float64       `json:"deadhead_saved_miles"`
	Feasibility        int           `json:"feasibility"`
	PickupETA          time.Time     `json:"pickup_eta"`
}

// Analyzer computes insertion plans. It is stateless and safe for concurrent
// use.
type Analyzer struct {
	params Params
	logger *zap.Logger
}

// NewAnalyzer creates an analyzer with the given economics.
func NewAnalyzer(params Params, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		params: params,
		logger: logger,
	}
}

// Analyze returns the cheapest feasible insertion of opp into veh's
// itinerary, or (nil, false) when the pair is infeasible. Infeasible pairs
// never become match candidates.
func (a *Analyzer) Analyze(opp *opportunity.Opportunity, veh *fleet.VehicleSnapshot, now time.Time) (*Plan, bool) {
	if a.params.RequireEquipmentMatch && veh.Equipment != opp.Equipment {
		RejectedTotal.WithLabelValues("equipment_mismatch").Inc()
		return nil, false
	}

	var (
		class           Class
		additionalMiles float64
		deadheadSaved   float64
		milesToPickup   float64
	)

	if veh.Route != nil {
		direct := geo.DistanceMiles(veh.Route.Origin, veh.Route.Destination)
		detour := geo.DistanceMiles(veh.Route.Origin, opp.Origin) +
			a.haulMiles(opp) +
			geo.DistanceMiles(opp.Destination, veh.Route.Destination)
		detourExtra := detour - direct

		if detourExtra < a.params.DetourSlackMiles {
			class = ClassDetourDuring
			additionalMiles = detourExtra
			milesToPickup = geo.DistanceMiles(veh.Position, opp.Origin)
		} else {
			// Detour is uneconomical: chain the pickup after the current
			// route finishes.
			class = ClassAfterCurrent
			additionalMiles = geo.DistanceMiles(veh.Route.Destination, opp.Origin)
			milesToPickup = veh.Route.RemainingMiles + additionalMiles
		}
	} else {
		class = ClassAfterCurrent
		milesToPickup = geo.DistanceMiles(veh.Position, opp.Origin)
		additionalMiles = milesToPickup

		deadheadSaved = milesToPickup
		if deadheadSaved > a.params.DeadheadCapMiles {
			deadheadSaved = a.params.DeadheadCapMiles
		}
	}

	pickupETA := now.Add(geo.TravelTime(milesToPickup, a.params.AvgSpeedMPH))
	if !opp.PickupWindow.End.IsZero() && pickupETA.After(opp.PickupWindow.End) {
		RejectedTotal.WithLabelValues("pickup_window_missed").Inc()
		a.logger.Debug("insertion-infeasible-pickup-window",
			zap.String("opportunity-id", opp.ID),
			zap.String("vehicle-id", veh.VehicleID),
			zap.Time("pickup-eta", pickupETA),
			zap.Time("window-end", opp.PickupWindow.End))
		return nil, false
	}

	if additionalMiles < 0 {
		// A detour through the pickup can come out shorter than the direct
		// leg when the stops sit on the way; marginal cost is zero, not a
		// credit.
		additionalMiles = 0
	}

	feasibility := scorePickupFeasible
	if additionalMiles < a.params.DetourSlackMiles {
		feasibility += scoreShortAdditional
	}
	if deadheadSaved > deadheadScoreFloorMiles {
		feasibility += scoreDeadheadSaved
	}
	if veh.Equipment == opp.Equipment {
		feasibility += scoreEquipmentMatch
	}

	rate := opp.TargetRate
	netProfit := rate - additionalMiles*a.params.TotalCostPerMile

	var margin float64
	if rate > 0 {
		margin = netProfit / rate
	}

	plan := &Plan{
		Class:              class,
		AdditionalMiles:    additionalMiles,
		AdditionalTime:     geo.TravelTime(additionalMiles, a.params.AvgSpeedMPH),
		FuelCost:           additionalMiles * a.params.FuelCostPerMile,
		NetProfit:          netProfit,
		Margin:             margin,
		DeadheadSavedMiles: deadheadSaved,
		Feasibility:        feasibility,
		PickupETA:          pickupETA,
	}

	PlansTotal.WithLabelValues(string(class)).Inc()

	return plan, true
}

// haulMiles prefers the board-reported haul distance and falls back to the
// great-circle estimate.
func (a *Analyzer) haulMiles(opp *opportunity.Opportunity) float64 {
	if opp.DistanceMiles > 0 {
		return opp.DistanceMiles
	}
	return geo.DistanceMiles(opp.Origin, opp.Destination)
}
