// Package source adapts external load boards and broker feeds into raw
// opportunity batches for the scanner.
package source

import (
	"context"
	"errors"
	"time"

	"github.com/dispatchly/ghostload/internal/geo"
	"github.com/dispatchly/ghostload/internal/opportunity"
)

// ErrSourceUnavailable is returned when the adapter cannot reach its feed.
// The scheduler absorbs it by skipping ingestion for the cycle.
var ErrSourceUnavailable = errors.New("opportunity source unavailable")

// Adapter is the boundary to an external opportunity feed. Implementations
// must tolerate redelivery; the registry dedups by external id.
type Adapter interface {
	FetchBatch(ctx context.Context) ([]opportunity.Raw, error)
}

// posting is the wire shape shared by the HTTP board API and the streaming
// feed.
type posting struct {
	PostingID     string         `json:"posting_id"`
	Origin        geo.Coordinate `json:"origin"`
	Destination   geo.Coordinate `json:"destination"`
	PickupStart   time.Time      `json:"pickup_start"`
	PickupEnd     time.Time      `json:"pickup_end"`
	DeliveryStart time.Time      `json:"delivery_start"`
	DeliveryEnd   time.Time      `json:"delivery_end"`
	PickupFlex    string         `json:"pickup_flex"`
	DeliveryFlex  string         `json:"delivery_flex"`
	Equipment     string         `json:"equipment"`
	WeightLbs     float64        `json:"weight_lbs"`
	DistanceMiles float64        `json:"distance_miles"`
	QuotedRate    float64        `json:"quoted_rate"`
	MarketRate    float64        `json:"market_rate"`
	AbandonReason string         `json:"abandon_reason"`
	PassedOnBy    int            `json:"passed_on_by"`
}

func (p *posting) toRaw() opportunity.Raw {
	return opportunity.Raw{
		ExternalID:      p.PostingID,
		Origin:          p.Origin,
		Destination:     p.Destination,
		PickupWindow:    opportunity.TimeWindow{Start: p.PickupStart, End: p.PickupEnd},
		DeliveryWindow:  opportunity.TimeWindow{Start: p.DeliveryStart, End: p.DeliveryEnd},
		PickupFlex:      flexClass(p.PickupFlex),
		DeliveryFlex:    flexClass(p.DeliveryFlex),
		Equipment:       p.Equipment,
		WeightLbs:       p.WeightLbs,
		DistanceMiles:   p.DistanceMiles,
		QuotedRate:      p.QuotedRate,
		MarketRate:      p.MarketRate,
		DiscoveryReason: p.AbandonReason,
		PassedOnBy:      p.PassedOnBy,
	}
}

func flexClass(s string) opportunity.FlexClass {
	switch opportunity.FlexClass(s) {
	case opportunity.FlexRigid, opportunity.FlexModerate, opportunity.FlexFlexible:
		return opportunity.FlexClass(s)
	default:
		return opportunity.FlexModerate
	}
}
