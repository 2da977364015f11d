// Package opportunity holds the ghost-load domain model and the registry that
// owns its lifecycle.
package opportunity

import (
	"time"

	"github.com/dispatchly/ghostload/internal/geo"
	"github.com/google/uuid"
)

// Status is the lifecycle state of an opportunity. Statuses only advance
// forward or terminate; an assigned opportunity is never re-matched.
type Status string

const (
	StatusDiscovered Status = "discovered"
	StatusAnalyzing  Status = "analyzing"
	StatusMatching   Status = "matching"
	StatusAssigned   Status = "assigned"
	StatusInTransit  Status = "in_transit"
	StatusDelivered  Status = "delivered"
	StatusExpired    Status = "expired"
	StatusCancelled  Status = "cancelled"
)

// statusRank orders the forward progression. Terminal statuses are handled
// separately.
var statusRank = map[Status]int{
	StatusDiscovered: 0,
	StatusAnalyzing:  1,
	StatusMatching:   2,
	StatusAssigned:   3,
	StatusInTransit:  4,
	StatusDelivered:  5,
}

// Valid reports whether s is a known lifecycle status.
func (s Status) Valid() bool {
	if _, ok := statusRank[s]; ok {
		return true
	}
	return s == StatusExpired || s == StatusCancelled
}

// Terminal reports whether the status ends the lifecycle.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusExpired || s == StatusCancelled
}

// preAssignment reports whether the status precedes assignment.
func (s Status) preAssignment() bool {
	rank, ok := statusRank[s]
	return ok && rank < statusRank[StatusAssigned]
}

// canTransition reports whether from→to is a legal lifecycle move.
func canTransition(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	switch to {
	case StatusExpired:
		return from.preAssignment()
	case StatusCancelled:
		return true
	default:
		fromRank, okFrom := statusRank[from]
		toRank, okTo := statusRank[to]
		return okFrom && okTo && toRank > fromRank
	}
}

// FlexClass describes how negotiable a pickup or delivery window is.
type FlexClass string

const (
	FlexRigid    FlexClass = "rigid"
	FlexModerate FlexClass = "moderate"
	FlexFlexible FlexClass = "flexible"
)

// TimeWindow is a pickup or delivery window.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Raw is an opportunity record as delivered by a source adapter, before the
// registry has accepted it.
type Raw struct {
	ExternalID      string
	Origin          geo.Coordinate
	Destination     geo.Coordinate
	PickupWindow    TimeWindow
	DeliveryWindow  TimeWindow
	PickupFlex      FlexClass
	DeliveryFlex    FlexClass
	Equipment       string
	WeightLbs       float64
	DistanceMiles   float64
	QuotedRate      float64
	MarketRate      float64
	DiscoveryReason string
	PassedOnBy      int
}

// Opportunity is a freight movement not currently committed to any vehicle.
type Opportunity struct {
	ID         string `json:"id"`
	ExternalID string `json:"external_id,omitempty"`

	Origin         geo.Coordinate `json:"origin"`
	Destination    geo.Coordinate `json:"destination"`
	PickupWindow   TimeWindow     `json:"pickup_window"`
	DeliveryWindow TimeWindow     `json:"delivery_window"`
	PickupFlex     FlexClass      `json:"pickup_flex"`
	DeliveryFlex   FlexClass      `json:"delivery_flex"`

	Equipment     string  `json:"equipment"`
	WeightLbs     float64 `json:"weight_lbs"`
	DistanceMiles float64 `json:"distance_miles"`
	QuotedRate    float64 `json:"quoted_rate"`
	MarketRate    float64 `json:"market_rate"`
	TargetRate    float64 `json:"target_rate"`

	DiscoveryReason string `json:"discovery_reason"`
	PassedOnBy      int    `json:"passed_on_by"`

	// InsertionFitScore is computed lazily by the optimizer from the best
	// candidate seen for this opportunity. Zero until first analyzed.
	InsertionFitScore int     `json:"insertion_fit_score"`
	MarginPotential   float64 `json:"margin_potential"`

	Status    Status    `json:"status"`
	FirstSeen time.Time `json:"first_seen"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New builds an Opportunity from a raw record, computing its target rate and
// margin potential. costPerMile is the all-in marginal cost used for the
// margin estimate.
func New(raw Raw, costPerMile float64, now time.Time) *Opportunity {
	target := raw.QuotedRate
	if target <= 0 {
		target = raw.MarketRate
	}

	var margin float64
	if target > 0 {
		margin = (target - raw.DistanceMiles*costPerMile) / target
	}

	return &Opportunity{
		ID:              uuid.New().String(),
		ExternalID:      raw.ExternalID,
		Origin:          raw.Origin,
		Destination:     raw.Destination,
		PickupWindow:    raw.PickupWindow,
		DeliveryWindow:  raw.DeliveryWindow,
		PickupFlex:      raw.PickupFlex,
		DeliveryFlex:    raw.DeliveryFlex,
		Equipment:       raw.Equipment,
		WeightLbs:       raw.WeightLbs,
		DistanceMiles:   raw.DistanceMiles,
		QuotedRate:      raw.QuotedRate,
		MarketRate:      raw.MarketRate,
		TargetRate:      target,
		DiscoveryReason: raw.DiscoveryReason,
		PassedOnBy:      raw.PassedOnBy,
		MarginPotential: margin,
		Status:          StatusDiscovered,
		FirstSeen:       now,
		UpdatedAt:       now,
	}
}

// Age returns how long ago the opportunity was first seen.
func (o *Opportunity) Age(now time.Time) time.Duration {
	return now.Sub(o.FirstSeen)
}
