package matching

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/dispatchly/ghostload/internal/fleet"
	"github.com/dispatchly/ghostload/internal/geo"
	"github.com/dispatchly/ghostload/internal/insertion"
	"github.com/dispatchly/ghostload/internal/opportunity"
	"go.uber.org/zap"
)

const milesPerDegreeLat = 69.0936

func northOf(miles float64) geo.Coordinate {
	return geo.Coordinate{Lat: miles / milesPerDegreeLat, Lng: 0}
}

type fakeProvider struct {
	vehicles []fleet.VehicleSnapshot
	err      error
}

func (f *fakeProvider) ListActiveVehicles(ctx context.Context) ([]fleet.VehicleSnapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vehicles, nil
}

type fakeGuard struct {
	assigned map[string]bool
}

func (f *fakeGuard) VehicleAssigned(vehicleID string) bool {
	return f.assigned[vehicleID]
}

func testAnalyzer() *insertion.Analyzer {
	return insertion.NewAnalyzer(insertion.Params{
		DetourSlackMiles: 100,
		DeadheadCapMiles: 200,
		AvgSpeedMPH:      52.5,
		FuelCostPerMile:  0.62,
		TotalCostPerMile: 1.80,
	}, zap.NewNop())
}

func newTestOptimizer(registry *opportunity.Registry, provider fleet.Provider) *Optimizer {
	return New(Config{
		MinFeasibility:  70,
		TopK:            20,
		Workers:         4,
		SnapshotTimeout: time.Second,
		Logger:          zap.NewNop(),
	}, registry, provider, testAnalyzer(), NewHeuristicAcceptance(1))
}

func seedRegistry(t *testing.T, rates ...float64) (*opportunity.Registry, []opportunity.Opportunity) {
	t.Helper()

	registry := opportunity.NewRegistry(&opportunity.RegistryConfig{
		CostPerMile: 1.80,
		Logger:      zap.NewNop(),
	})

	now := time.Now()
	raws := make([]opportunity.Raw, 0, len(rates))
	for i, rate := range rates {
		raws = append(raws, opportunity.Raw{
			ExternalID:      fmt.Sprintf("ext-%d", i),
			Origin:          northOf(50),
			Destination:     northOf(550),
			PickupWindow:    opportunity.TimeWindow{Start: now, End: now.Add(12 * time.Hour)},
			Equipment:       "dry_van",
			DistanceMiles:   500,
			QuotedRate:      rate,
			MarketRate:      rate * 0.9,
			DiscoveryReason: "broker_abandoned",
		})
	}

	added := registry.Ingest(raws, now)
	if len(added) != len(rates) {
		t.Fatalf("seed: expected %d ingested, got %d", len(rates), len(added))
	}

	return registry, added
}

func deadheadingVehicle(id string) fleet.VehicleSnapshot {
	return fleet.VehicleSnapshot{
		VehicleID: id,
		Position:  northOf(0),
		Equipment: "dry_van",
	}
}

func TestRunCycle_RanksByScore(t *testing.T) {
	registry, _ := seedRegistry(t, 1200, 2400, 1800)
	provider := &fakeProvider{vehicles: []fleet.VehicleSnapshot{deadheadingVehicle("veh-1")}}

	opt := newTestOptimizer(registry, provider)
	opt.RunCycle(context.Background())

	matches := opt.TopMatches()
	if len(matches) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(matches))
	}

	for i := range matches {
		if matches[i].Plan.Feasibility < 70 {
			t.Errorf("candidate %d feasibility = %d, want >= 70", i, matches[i].Plan.Feasibility)
		}
		if i > 0 && matches[i].Score > matches[i-1].Score {
			t.Errorf("ranking not descending at %d: %.2f > %.2f", i, matches[i].Score, matches[i-1].Score)
		}
	}

	// The highest-rate opportunity should rank first: feasibility and
	// acceptance inputs are identical across the three.
	if matches[0].Opportunity.QuotedRate != 2400 {
		t.Errorf("top candidate rate = %.0f, want 2400", matches[0].Opportunity.QuotedRate)
	}
}

func TestRunCycle_MarksOpportunitiesMatching(t *testing.T) {
	registry, added := seedRegistry(t, 1800)
	provider := &fakeProvider{vehicles: []fleet.VehicleSnapshot{deadheadingVehicle("veh-1")}}

	opt := newTestOptimizer(registry, provider)
	opt.RunCycle(context.Background())

	opp, ok := registry.Get(added[0].ID)
	if !ok {
		t.Fatal("opportunity vanished")
	}
	if opp.Status != opportunity.StatusMatching {
		t.Errorf("status = %s, want %s", opp.Status, opportunity.StatusMatching)
	}
	if opp.InsertionFitScore < 70 {
		t.Errorf("InsertionFitScore = %d, want >= 70", opp.InsertionFitScore)
	}
}

func TestRunCycle_SnapshotUnavailableKeepsPreviousRanking(t *testing.T) {
	registry, _ := seedRegistry(t, 1800)
	provider := &fakeProvider{vehicles: []fleet.VehicleSnapshot{deadheadingVehicle("veh-1")}}

	opt := newTestOptimizer(registry, provider)
	opt.RunCycle(context.Background())

	before := opt.TopMatches()
	if len(before) == 0 {
		t.Fatal("setup: expected candidates")
	}

	provider.err = fleet.ErrSnapshotUnavailable
	opt.RunCycle(context.Background())

	after := opt.TopMatches()
	if len(after) != len(before) {
		t.Errorf("ranking changed on snapshot failure: %d → %d", len(before), len(after))
	}
}

func TestRunCycle_TopKTruncation(t *testing.T) {
	rates := make([]float64, 30)
	for i := range rates {
		rates[i] = 1500 + float64(i)*10
	}
	registry, _ := seedRegistry(t, rates...)
	provider := &fakeProvider{vehicles: []fleet.VehicleSnapshot{deadheadingVehicle("veh-1")}}

	opt := newTestOptimizer(registry, provider)
	opt.RunCycle(context.Background())

	matches := opt.TopMatches()
	if len(matches) != 20 {
		t.Errorf("expected top-K of 20, got %d", len(matches))
	}
}

func TestRunCycle_GuardExcludesAssignedVehicles(t *testing.T) {
	registry, _ := seedRegistry(t, 1800)
	provider := &fakeProvider{vehicles: []fleet.VehicleSnapshot{deadheadingVehicle("veh-1")}}

	opt := newTestOptimizer(registry, provider)
	opt.SetGuard(&fakeGuard{assigned: map[string]bool{"veh-1": true}})
	opt.RunCycle(context.Background())

	if got := len(opt.TopMatches()); got != 0 {
		t.Errorf("expected no candidates for an assigned vehicle, got %d", got)
	}
}

func TestRunCycle_FeasibilityGate(t *testing.T) {
	// Mismatched equipment and a 250-mile approach: 40 (window) + 20
	// (deadhead, capped at 200) = 60, below the floor.
	registry, _ := seedRegistry(t, 1800)
	provider := &fakeProvider{vehicles: []fleet.VehicleSnapshot{
		{
			VehicleID: "veh-far",
			Position:  northOf(-200),
			Equipment: "reefer",
		},
	}}

	opt := newTestOptimizer(registry, provider)
	opt.RunCycle(context.Background())

	if got := len(opt.TopMatches()); got != 0 {
		t.Errorf("expected gate to exclude sub-70 candidates, got %d", got)
	}
}

func TestCandidateLookup(t *testing.T) {
	registry, _ := seedRegistry(t, 1800)
	provider := &fakeProvider{vehicles: []fleet.VehicleSnapshot{deadheadingVehicle("veh-1")}}

	opt := newTestOptimizer(registry, provider)
	opt.RunCycle(context.Background())

	matches := opt.TopMatches()
	if len(matches) == 0 {
		t.Fatal("setup: expected candidates")
	}

	got, ok := opt.Candidate(matches[0].ID)
	if !ok {
		t.Fatal("expected candidate lookup to succeed")
	}
	if got.Opportunity.ID != matches[0].Opportunity.ID {
		t.Errorf("lookup returned wrong candidate")
	}

	if _, ok := opt.Candidate("no-such-id"); ok {
		t.Error("expected lookup miss for unknown id")
	}
}
