package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dispatchly/ghostload/internal/fleet"
	"github.com/dispatchly/ghostload/internal/geo"
	"github.com/dispatchly/ghostload/internal/opportunity"
	"github.com/dispatchly/ghostload/pkg/config"
	"go.uber.org/zap"
)

const milesPerDegreeLat = 69.0936

func northOf(c geo.Coordinate, miles float64) geo.Coordinate {
	return geo.Coordinate{Lat: c.Lat + miles/milesPerDegreeLat, Lng: c.Lng}
}

// boardPosting mirrors the load-board wire shape for the fake server.
type boardPosting struct {
	PostingID     string         `json:"posting_id"`
	Origin        geo.Coordinate `json:"origin"`
	Destination   geo.Coordinate `json:"destination"`
	PickupStart   time.Time      `json:"pickup_start"`
	PickupEnd     time.Time      `json:"pickup_end"`
	Equipment     string         `json:"equipment"`
	DistanceMiles float64        `json:"distance_miles"`
	QuotedRate    float64        `json:"quoted_rate"`
	AbandonReason string         `json:"abandon_reason"`
	PassedOnBy    int            `json:"passed_on_by"`
}

func newTestApp(t *testing.T) *App {
	t.Helper()

	now := time.Now()
	pickup := geo.Coordinate{Lat: 40.0, Lng: -100.0}

	board := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/postings/abandoned" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode([]boardPosting{{
			PostingID:     "post-1",
			Origin:        pickup,
			Destination:   northOf(pickup, 400),
			PickupStart:   now,
			PickupEnd:     now.Add(12 * time.Hour),
			Equipment:     "dry_van",
			DistanceMiles: 400,
			QuotedRate:    1400,
			AbandonReason: "carrier_fell_through",
			PassedOnBy:    2,
		}})
	}))
	t.Cleanup(board.Close)

	telemetry := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/vehicles/active" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode([]fleet.VehicleSnapshot{{
			VehicleID: "veh-1",
			Position:  northOf(pickup, -50),
			Equipment: "dry_van",
		}})
	}))
	t.Cleanup(telemetry.Close)

	cfg, err := config.LoadFromEnv()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	cfg.SourceBaseURL = board.URL
	cfg.FleetBaseURL = telemetry.URL
	cfg.HTTPPort = "0"
	cfg.StorageMode = "console"

	a, err := New(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("create app: %v", err)
	}
	t.Cleanup(func() { a.cancel() })

	return a
}

// Full pipeline: scan ingests a posting, a match cycle ranks it against the
// fleet snapshot, and committing the top match assigns the vehicle.
func TestScanMatchCommitPipeline(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	if err := a.scanner.Scan(ctx); err != nil {
		t.Fatalf("scan failed: %v", err)
	}

	opps := a.registry.ListByStatus()
	if len(opps) != 1 {
		t.Fatalf("expected 1 opportunity, got %d", len(opps))
	}

	// The scan already kicked an async cycle; run one synchronously so the
	// ranking is settled before asserting.
	a.optimizer.RunCycle(ctx)

	matches := a.optimizer.TopMatches()
	if len(matches) != 1 {
		t.Fatalf("expected 1 ranked match, got %d", len(matches))
	}
	if matches[0].Plan.Feasibility < 70 {
		t.Fatalf("feasibility = %d, want >= 70", matches[0].Plan.Feasibility)
	}
	if matches[0].Plan.NetProfit <= 0 {
		t.Fatalf("net profit = %.2f, want > 0", matches[0].Plan.NetProfit)
	}

	committed, err := a.workflow.Commit(ctx, matches[0].ID)
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	opp, _ := a.registry.Get(committed.OpportunityID)
	if opp.Status != opportunity.StatusAssigned {
		t.Errorf("status = %s, want %s", opp.Status, opportunity.StatusAssigned)
	}

	// The assigned vehicle is excluded from the next cycle.
	a.optimizer.RunCycle(ctx)
	if got := len(a.optimizer.TopMatches()); got != 0 {
		t.Errorf("expected empty ranking after assignment, got %d candidates", got)
	}
}

// A second scan re-delivers the same posting; the registry dedups it.
func TestScanIdempotent(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	if err := a.scanner.Scan(ctx); err != nil {
		t.Fatalf("first scan failed: %v", err)
	}
	if err := a.scanner.Scan(ctx); err != nil {
		t.Fatalf("second scan failed: %v", err)
	}

	if got := a.registry.Count(); got != 1 {
		t.Errorf("registry count = %d, want 1", got)
	}
}
