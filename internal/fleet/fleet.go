// Package fleet defines the fleet-snapshot boundary: who is moving, where,
// and with what capacity, at scan time.
package fleet

import (
	"context"
	"errors"

	"github.com/dispatchly/ghostload/internal/geo"
)

// ErrSnapshotUnavailable is returned when the provider cannot produce a fleet
// snapshot. The scheduler absorbs it by skipping matching for the cycle.
var ErrSnapshotUnavailable = errors.New("fleet snapshot unavailable")

// Provider supplies the point-in-time fleet view. Called at most once per
// scan cycle; the engine never persists what it returns.
type Provider interface {
	ListActiveVehicles(ctx context.Context) ([]VehicleSnapshot, error)
}

// ActiveRoute is a vehicle's current committed movement.
type ActiveRoute struct {
	Origin             geo.Coordinate `json:"origin"`
	Destination        geo.Coordinate `json:"destination"`
	CompletionFraction float64        `json:"completion_fraction"`
	RemainingMiles     float64        `json:"remaining_miles"`
}

// VehicleSnapshot is a read-only description of one vehicle at scan time.
type VehicleSnapshot struct {
	VehicleID string         `json:"vehicle_id"`
	DriverID  string         `json:"driver_id,omitempty"`
	Position  geo.Coordinate `json:"position"`
	Equipment string         `json:"equipment"`

	// Route is nil when the vehicle is deadheading (no committed load).
	Route *ActiveRoute `json:"route,omitempty"`

	TripMiles   float64 `json:"trip_miles"`
	TripRevenue float64 `json:"trip_revenue"`
}

// Deadheading reports whether the vehicle is running without cargo.
func (v *VehicleSnapshot) Deadheading() bool {
	return v.Route == nil
}
