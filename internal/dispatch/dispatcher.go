package dispatch

import (
	"context"
	"sync"

	"github.com/dispatchly/ghostload/internal/assignment"
	"go.uber.org/zap"
)

// Notifier delivers a committed assignment to the carrier-facing channel
// (driver app push, TMS webhook). Implementations must be safe for
// concurrent use.
type Notifier interface {
	NotifyAssignment(ctx context.Context, ev assignment.Event) error
}

// Dispatcher consumes assignment events and forwards them to the notifier.
type Dispatcher struct {
	logger      *zap.Logger
	events      <-chan assignment.Event
	notifier    Notifier
	ctx         context.Context
	wg          sync.WaitGroup
	mu          sync.Mutex
	dispatched  int
	totalProfit float64
}

// Config holds dispatcher configuration.
type Config struct {
	Logger   *zap.Logger
	Events   <-chan assignment.Event
	Notifier Notifier // optional
}

// New creates a new dispatcher.
func New(cfg *Config) *Dispatcher {
	return &Dispatcher{
		logger:   cfg.Logger,
		events:   cfg.Events,
		notifier: cfg.Notifier,
	}
}

// Start starts the dispatch loop.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.ctx = ctx
	d.logger.Info("dispatcher-starting")

	d.wg.Add(1)
	go d.dispatchLoop()

	return nil
}

// dispatchLoop processes committed assignments.
func (d *Dispatcher) dispatchLoop() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			d.drainBuffered()
			d.logger.Info("dispatcher-stopping")
			return
		case ev, ok := <-d.events:
			if !ok {
				d.logger.Info("assignment-channel-closed")
				return
			}
			d.dispatch(d.ctx, ev)
		}
	}
}

// drainBuffered delivers events committed before shutdown began. Uses a fresh
// context so notification of an already-committed assignment still goes out.
func (d *Dispatcher) drainBuffered() {
	for {
		select {
		case ev, ok := <-d.events:
			if !ok {
				return
			}
			d.dispatch(context.Background(), ev)
		default:
			return
		}
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, ev assignment.Event) {
	if d.notifier != nil {
		if err := d.notifier.NotifyAssignment(ctx, ev); err != nil {
			d.logger.Error("dispatch-notify-failed",
				zap.String("assignment-id", ev.AssignmentID),
				zap.String("vehicle-id", ev.VehicleID),
				zap.Error(err))
			NotifyErrorsTotal.Inc()
			return
		}
	}

	d.mu.Lock()
	d.dispatched++
	d.totalProfit += ev.NetProfit
	cumulative := d.totalProfit
	d.mu.Unlock()

	DispatchedTotal.Inc()

	d.logger.Info("assignment-dispatched",
		zap.String("assignment-id", ev.AssignmentID),
		zap.String("opportunity-id", ev.OpportunityID),
		zap.String("vehicle-id", ev.VehicleID),
		zap.Float64("net-profit", ev.NetProfit),
		zap.Float64("cumulative-profit", cumulative))
}

// Stats returns the number of dispatched assignments and their cumulative
// projected profit.
func (d *Dispatcher) Stats() (int, float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dispatched, d.totalProfit
}

// Stop waits for the dispatch loop to drain.
func (d *Dispatcher) Stop() {
	d.wg.Wait()
	d.logger.Info("dispatcher-stopped")
}
