package assignment

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dispatchly/ghostload/internal/fleet"
	"github.com/dispatchly/ghostload/internal/insertion"
	"github.com/dispatchly/ghostload/internal/matching"
	"github.com/dispatchly/ghostload/internal/opportunity"
	"go.uber.org/zap"
)

type fakeCandidates struct {
	byID map[string]matching.Candidate
}

func (f *fakeCandidates) Candidate(id string) (matching.Candidate, bool) {
	c, ok := f.byID[id]
	return c, ok
}

type recordingStore struct {
	mu     sync.Mutex
	stored []Assignment
	err    error
}

func (r *recordingStore) StoreAssignment(ctx context.Context, a *Assignment) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stored = append(r.stored, *a)
	return nil
}

func seedWorkflow(t *testing.T, oppCount int) (*Workflow, *opportunity.Registry, []string, *recordingStore) {
	t.Helper()

	registry := opportunity.NewRegistry(&opportunity.RegistryConfig{
		CostPerMile: 1.80,
		Logger:      zap.NewNop(),
	})

	now := time.Now()
	raws := make([]opportunity.Raw, oppCount)
	for i := range raws {
		raws[i] = opportunity.Raw{
			ExternalID: string(rune('a' + i)),
			QuotedRate: 1800,
			PickupWindow: opportunity.TimeWindow{
				Start: now, End: now.Add(12 * time.Hour),
			},
			DistanceMiles: 500,
		}
	}
	added := registry.Ingest(raws, now)

	candidates := &fakeCandidates{byID: make(map[string]matching.Candidate)}
	matchIDs := make([]string, oppCount)
	for i, opp := range added {
		matchIDs[i] = "match-" + opp.ID
		candidates.byID[matchIDs[i]] = matching.Candidate{
			ID:          matchIDs[i],
			Opportunity: opp,
			Vehicle:     fleet.VehicleSnapshot{VehicleID: "veh-1", Equipment: "dry_van"},
			Plan:        insertion.Plan{NetProfit: 900, Feasibility: 80},
			Acceptance:  75,
		}
	}

	store := &recordingStore{}
	w := New(&Config{
		Registry:   registry,
		Candidates: candidates,
		Store:      store,
		Logger:     zap.NewNop(),
	})

	return w, registry, matchIDs, store
}

func TestCommit(t *testing.T) {
	w, registry, matchIDs, store := seedWorkflow(t, 1)

	a, err := w.Commit(context.Background(), matchIDs[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if a.NetProfit != 900 {
		t.Errorf("NetProfit = %.2f, want 900", a.NetProfit)
	}
	if a.VehicleID != "veh-1" {
		t.Errorf("VehicleID = %s, want veh-1", a.VehicleID)
	}

	opp, _ := registry.Get(a.OpportunityID)
	if opp.Status != opportunity.StatusAssigned {
		t.Errorf("opportunity status = %s, want %s", opp.Status, opportunity.StatusAssigned)
	}

	if !w.VehicleAssigned("veh-1") {
		t.Error("vehicle should be excluded from further matching")
	}

	if len(store.stored) != 1 {
		t.Errorf("expected 1 stored assignment, got %d", len(store.stored))
	}

	select {
	case ev := <-w.Events():
		if ev.AssignmentID != a.ID || ev.NetProfit != 900 {
			t.Errorf("unexpected event %+v", ev)
		}
	default:
		t.Error("expected an assignment event")
	}
}

func TestCommit_NotFound(t *testing.T) {
	w, _, _, _ := seedWorkflow(t, 1)

	_, err := w.Commit(context.Background(), "no-such-match")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCommit_TerminalOpportunity(t *testing.T) {
	// An expired or cancelled opportunity carries no assignment, so a commit
	// against it is a miss, not a conflict.
	w, registry, matchIDs, _ := seedWorkflow(t, 1)

	oppID := strings.TrimPrefix(matchIDs[0], "match-")
	if _, err := registry.Transition(oppID, opportunity.StatusCancelled); err != nil {
		t.Fatalf("cancel transition failed: %v", err)
	}

	_, err := w.Commit(context.Background(), matchIDs[0])
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for a terminal opportunity, got %v", err)
	}

	// The failed commit must not leave the vehicle reserved.
	if w.VehicleAssigned("veh-1") {
		t.Error("vehicle should not stay reserved after a failed commit")
	}
}

func TestCommit_ConcurrentSameMatch(t *testing.T) {
	// Two concurrent commits of the same candidate: exactly one wins, the
	// other observes the conflict.
	w, registry, matchIDs, _ := seedWorkflow(t, 1)

	const committers = 8

	var wg sync.WaitGroup
	errs := make(chan error, committers)

	for i := 0; i < committers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := w.Commit(context.Background(), matchIDs[0])
			errs <- err
		}()
	}

	wg.Wait()
	close(errs)

	var wins, conflicts int
	for err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrAlreadyAssigned):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}

	if wins != 1 {
		t.Errorf("expected exactly 1 successful commit, got %d", wins)
	}
	if conflicts != committers-1 {
		t.Errorf("expected %d conflicts, got %d", committers-1, conflicts)
	}

	opps := registry.ListByStatus(opportunity.StatusAssigned)
	if len(opps) != 1 {
		t.Errorf("expected exactly 1 assigned opportunity, got %d", len(opps))
	}
}

func TestCommit_VehicleExclusivity(t *testing.T) {
	// Two different opportunities matched to the same vehicle: the second
	// commit conflicts even though its opportunity is still assignable.
	w, registry, matchIDs, _ := seedWorkflow(t, 2)

	_, err := w.Commit(context.Background(), matchIDs[0])
	if err != nil {
		t.Fatalf("first commit failed: %v", err)
	}

	_, err = w.Commit(context.Background(), matchIDs[1])
	if !errors.Is(err, ErrAlreadyAssigned) {
		t.Errorf("expected ErrAlreadyAssigned for busy vehicle, got %v", err)
	}

	// The losing opportunity stays assignable.
	opps := registry.ListByStatus(opportunity.StatusDiscovered)
	if len(opps) != 1 {
		t.Errorf("expected 1 opportunity still discovered, got %d", len(opps))
	}
}

func TestCompleteReleasesVehicle(t *testing.T) {
	w, registry, matchIDs, _ := seedWorkflow(t, 1)

	a, err := w.Commit(context.Background(), matchIDs[0])
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	err = w.Complete(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}

	if w.VehicleAssigned("veh-1") {
		t.Error("vehicle should be released after completion")
	}

	opp, _ := registry.Get(a.OpportunityID)
	if opp.Status != opportunity.StatusDelivered {
		t.Errorf("opportunity status = %s, want %s", opp.Status, opportunity.StatusDelivered)
	}

	if len(w.Active()) != 0 {
		t.Errorf("expected no active assignments, got %d", len(w.Active()))
	}
}

func TestCancelReleasesVehicle(t *testing.T) {
	w, registry, matchIDs, _ := seedWorkflow(t, 1)

	a, err := w.Commit(context.Background(), matchIDs[0])
	if err != nil {
		t.Fatalf("commit failed: %v", err)
	}

	err = w.Cancel(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("cancel failed: %v", err)
	}

	opp, _ := registry.Get(a.OpportunityID)
	if opp.Status != opportunity.StatusCancelled {
		t.Errorf("opportunity status = %s, want %s", opp.Status, opportunity.StatusCancelled)
	}

	err = w.Cancel(context.Background(), a.ID)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on double-cancel, got %v", err)
	}
}

func TestCommit_StoreFailureDoesNotFailCommit(t *testing.T) {
	w, _, matchIDs, store := seedWorkflow(t, 1)
	store.err = errors.New("postgres down")

	_, err := w.Commit(context.Background(), matchIDs[0])
	if err != nil {
		t.Errorf("commit should survive storage failure, got %v", err)
	}
}
