package storage

import (
	"context"

	"github.com/dispatchly/ghostload/internal/assignment"
	"github.com/dispatchly/ghostload/internal/opportunity"
)

// Storage is the interface for persisting discovered opportunities and
// committed assignments.
type Storage interface {
	// StoreOpportunity stores a newly discovered ghost-load opportunity.
	StoreOpportunity(ctx context.Context, opp *opportunity.Opportunity) error

	// StoreAssignment stores a committed assignment.
	StoreAssignment(ctx context.Context, a *assignment.Assignment) error

	// Close closes the storage connection.
	Close() error
}
