package storage

import (
	"context"
	"fmt"

	"github.com/dispatchly/ghostload/internal/assignment"
	"github.com/dispatchly/ghostload/internal/opportunity"
	"go.uber.org/zap"
)

// ConsoleStorage implements Storage by pretty-printing to console.
type ConsoleStorage struct {
	logger *zap.Logger
}

// NewConsoleStorage creates a new console storage.
func NewConsoleStorage(logger *zap.Logger) *ConsoleStorage {
	logger.Info("console-storage-initialized")
	return &ConsoleStorage{
		logger: logger,
	}
}

// StoreOpportunity pretty-prints a discovered opportunity to console.
func (c *ConsoleStorage) StoreOpportunity(ctx context.Context, opp *opportunity.Opportunity) error {
	fmt.Println("\n" + "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("👻 GHOST LOAD DISCOVERED\n")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("ID:        %s\n", opp.ID[:8])
	fmt.Printf("External:  %s\n", opp.ExternalID)
	fmt.Printf("Reason:    %s (passed on by %d carriers)\n", opp.DiscoveryReason, opp.PassedOnBy)
	fmt.Printf("Seen:      %s\n", opp.FirstSeen.Format("2006-01-02 15:04:05"))
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("📦 LOAD\n")
	fmt.Printf("  Lane:      (%.4f, %.4f) → (%.4f, %.4f)\n",
		opp.Origin.Lat, opp.Origin.Lng, opp.Destination.Lat, opp.Destination.Lng)
	fmt.Printf("  Distance:  %.0f mi\n", opp.DistanceMiles)
	fmt.Printf("  Equipment: %s @ %.0f lbs\n", opp.Equipment, opp.WeightLbs)
	fmt.Printf("  Pickup:    %s → %s (%s)\n",
		opp.PickupWindow.Start.Format("01-02 15:04"),
		opp.PickupWindow.End.Format("01-02 15:04"),
		opp.PickupFlex)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("💰 ECONOMICS\n")
	fmt.Printf("  Quoted Rate:  $%.2f\n", opp.QuotedRate)
	fmt.Printf("  Market Rate:  $%.2f\n", opp.MarketRate)
	fmt.Printf("  Target Rate:  $%.2f\n", opp.TargetRate)
	fmt.Printf("  Margin:       %.1f%%\n", opp.MarginPotential*100)
	if opp.MarginPotential > 0 {
		fmt.Printf("  ✅ POSITIVE margin at target rate\n")
	} else {
		fmt.Printf("  ❌ NEGATIVE margin at target rate\n")
	}
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	return nil
}

// StoreAssignment pretty-prints a committed assignment to console.
func (c *ConsoleStorage) StoreAssignment(ctx context.Context, a *assignment.Assignment) error {
	fmt.Println("\n" + "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("🚚 ASSIGNMENT COMMITTED\n")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("ID:          %s\n", a.ID[:8])
	fmt.Printf("Opportunity: %s\n", a.OpportunityID)
	fmt.Printf("Vehicle:     %s\n", a.VehicleID)
	fmt.Printf("Net Profit:  $%.2f\n", a.NetProfit)
	fmt.Printf("Committed:   %s\n", a.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

	return nil
}

// Close is a no-op for console storage.
func (c *ConsoleStorage) Close() error {
	c.logger.Info("closing-console-storage")
	return nil
}
