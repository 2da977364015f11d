// Package assignment turns chosen match candidates into durable assignments,
// enforcing that each opportunity and each vehicle carries at most one.
package assignment

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/dispatchly/ghostload/internal/matching"
	"github.com/dispatchly/ghostload/internal/opportunity"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNotFound means the match, opportunity or vehicle no longer exists.
	ErrNotFound = errors.New("match not found")

	// ErrAlreadyAssigned means the commit lost a race: the opportunity or
	// the vehicle already belongs to an active assignment.
	ErrAlreadyAssigned = errors.New("already assigned")
)

// Assignment links one opportunity to one vehicle.
type Assignment struct {
	ID            string    `json:"id"`
	MatchID       string    `json:"match_id"`
	OpportunityID string    `json:"opportunity_id"`
	VehicleID     string    `json:"vehicle_id"`
	NetProfit     float64   `json:"net_profit"`
	CreatedAt     time.Time `json:"created_at"`
}

// Event is emitted after a successful commit for notification/dispatch
// consumers.
type Event struct {
	AssignmentID  string
	OpportunityID string
	VehicleID     string
	NetProfit     float64
	CreatedAt     time.Time
}

// CandidateSource resolves a match id to the current ranked candidate.
// Implemented by the optimizer.
type CandidateSource interface {
	Candidate(id string) (matching.Candidate, bool)
}

// Store persists committed assignments.
type Store interface {
	StoreAssignment(ctx context.Context, a *Assignment) error
}

// Config holds workflow configuration.
type Config struct {
	Registry   *opportunity.Registry
	Candidates CandidateSource
	Store      Store
	Logger     *zap.Logger
}

// Workflow commits matches. It implements matching.AssignmentGuard so the
// optimizer stops generating candidates for busy vehicles.
type Workflow struct {
	registry   *opportunity.Registry
	candidates CandidateSource
	store      Store
	logger     *zap.Logger
	events     chan Event

	mu          sync.Mutex
	active      map[string]*Assignment // assignment id → assignment
	vehicleBusy map[string]string      // vehicle id → assignment id
}

// New creates an assignment workflow.
func New(cfg *Config) *Workflow {
	return &Workflow{
		registry:    cfg.Registry,
		candidates:  cfg.Candidates,
		store:       cfg.Store,
		logger:      cfg.Logger,
		events:      make(chan Event, 50),
		active:      make(map[string]*Assignment),
		vehicleBusy: make(map[string]string),
	}
}

// Commit turns the referenced match candidate into an assignment and returns
// it with the committed net-profit figure. Exactly one of two racing commits
// on the same opportunity succeeds; the loser gets ErrAlreadyAssigned.
func (w *Workflow) Commit(ctx context.Context, matchID string) (*Assignment, error) {
	c, ok := w.candidates.Candidate(matchID)
	if !ok {
		CommitsTotal.WithLabelValues("not_found").Inc()
		return nil, ErrNotFound
	}

	oppID := c.Opportunity.ID
	vehicleID := c.Vehicle.VehicleID

	// Reserve the vehicle before touching the opportunity so two commits on
	// different opportunities cannot share a vehicle.
	w.mu.Lock()
	if _, busy := w.vehicleBusy[vehicleID]; busy {
		w.mu.Unlock()
		CommitsTotal.WithLabelValues("vehicle_busy").Inc()
		return nil, ErrAlreadyAssigned
	}
	w.vehicleBusy[vehicleID] = "" // reserved, assignment id filled in below
	w.mu.Unlock()

	won, err := w.registry.Transition(oppID, opportunity.StatusAssigned,
		opportunity.StatusDiscovered, opportunity.StatusAnalyzing, opportunity.StatusMatching)
	if err != nil || !won {
		w.releaseVehicle(vehicleID)
		if errors.Is(err, opportunity.ErrNotFound) {
			CommitsTotal.WithLabelValues("not_found").Inc()
			return nil, ErrNotFound
		}
		// An expired or cancelled opportunity has nothing assigned to it;
		// only a live one in a later status means a race was lost.
		if opp, ok := w.registry.Get(oppID); ok && opp.Status.Terminal() {
			CommitsTotal.WithLabelValues("not_found").Inc()
			return nil, ErrNotFound
		}
		CommitsTotal.WithLabelValues("lost_race").Inc()
		return nil, ErrAlreadyAssigned
	}

	a := &Assignment{
		ID:            uuid.New().String(),
		MatchID:       matchID,
		OpportunityID: oppID,
		VehicleID:     vehicleID,
		NetProfit:     c.Plan.NetProfit,
		CreatedAt:     time.Now(),
	}

	w.mu.Lock()
	w.active[a.ID] = a
	w.vehicleBusy[vehicleID] = a.ID
	w.mu.Unlock()

	if w.store != nil {
		err = w.store.StoreAssignment(ctx, a)
		if err != nil {
			w.logger.Error("failed-to-store-assignment",
				zap.String("assignment-id", a.ID),
				zap.Error(err))
		}
	}

	CommitsTotal.WithLabelValues("ok").Inc()
	CommittedProfit.Add(a.NetProfit)
	ActiveAssignments.Set(float64(len(w.active)))

	w.logger.Info("assignment-committed",
		zap.String("assignment-id", a.ID),
		zap.String("opportunity-id", oppID),
		zap.String("vehicle-id", vehicleID),
		zap.Float64("net-profit", a.NetProfit))

	select {
	case w.events <- Event{
		AssignmentID:  a.ID,
		OpportunityID: oppID,
		VehicleID:     vehicleID,
		NetProfit:     a.NetProfit,
		CreatedAt:     a.CreatedAt,
	}:
	default:
		w.logger.Warn("assignment-event-channel-full", zap.String("assignment-id", a.ID))
	}

	return a, nil
}

// Complete closes out an assignment on the external delivered signal,
// releasing the vehicle for future candidate generation.
func (w *Workflow) Complete(ctx context.Context, assignmentID string) error {
	return w.finish(assignmentID, opportunity.StatusDelivered)
}

// Cancel abandons an assignment, releasing the vehicle.
func (w *Workflow) Cancel(ctx context.Context, assignmentID string) error {
	return w.finish(assignmentID, opportunity.StatusCancelled)
}

func (w *Workflow) finish(assignmentID string, to opportunity.Status) error {
	w.mu.Lock()
	a, ok := w.active[assignmentID]
	if !ok {
		w.mu.Unlock()
		return ErrNotFound
	}
	delete(w.active, assignmentID)
	delete(w.vehicleBusy, a.VehicleID)
	ActiveAssignments.Set(float64(len(w.active)))
	w.mu.Unlock()

	_, err := w.registry.Transition(a.OpportunityID, to)
	if err != nil && !errors.Is(err, opportunity.ErrNotFound) {
		return err
	}

	w.logger.Info("assignment-finished",
		zap.String("assignment-id", assignmentID),
		zap.String("opportunity-id", a.OpportunityID),
		zap.String("final-status", string(to)))

	return nil
}

// VehicleAssigned implements matching.AssignmentGuard.
func (w *Workflow) VehicleAssigned(vehicleID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, busy := w.vehicleBusy[vehicleID]
	return busy
}

// Active returns the current active assignments.
func (w *Workflow) Active() []Assignment {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]Assignment, 0, len(w.active))
	for _, a := range w.active {
		out = append(out, *a)
	}
	return out
}

// Events returns the channel of committed-assignment events.
func (w *Workflow) Events() <-chan Event {
	return w.events
}

// releaseVehicle drops a reservation taken by a commit that did not win.
func (w *Workflow) releaseVehicle(vehicleID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if id, ok := w.vehicleBusy[vehicleID]; ok && id == "" {
		delete(w.vehicleBusy, vehicleID)
	}
}

// Close stops event emission.
func (w *Workflow) Close() error {
	close(w.events)
	return nil
}
