package storage

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dispatchly/ghostload/internal/assignment"
	"github.com/dispatchly/ghostload/internal/geo"
	"github.com/dispatchly/ghostload/internal/opportunity"
	"go.uber.org/zap"
)

func testOpportunity() *opportunity.Opportunity {
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	return &opportunity.Opportunity{
		ID:              "opp-12345678",
		ExternalID:      "post-42",
		Origin:          geo.Coordinate{Lat: 41.8781, Lng: -87.6298},
		Destination:     geo.Coordinate{Lat: 39.7392, Lng: -104.9903},
		PickupWindow:    opportunity.TimeWindow{Start: now, End: now.Add(8 * time.Hour)},
		DeliveryWindow:  opportunity.TimeWindow{Start: now.Add(24 * time.Hour), End: now.Add(36 * time.Hour)},
		PickupFlex:      opportunity.FlexModerate,
		DeliveryFlex:    opportunity.FlexFlexible,
		Equipment:       "dry_van",
		WeightLbs:       24000,
		DistanceMiles:   1003,
		QuotedRate:      2400,
		MarketRate:      2250,
		TargetRate:      2400,
		MarginPotential: 0.2478,
		DiscoveryReason: "carrier_fell_through",
		PassedOnBy:      3,
		Status:          opportunity.StatusDiscovered,
		FirstSeen:       now,
	}
}

func testAssignment() *assignment.Assignment {
	return &assignment.Assignment{
		ID:            "asg-12345678",
		MatchID:       "match-1",
		OpportunityID: "opp-12345678",
		VehicleID:     "veh-7",
		NetProfit:     612.50,
		CreatedAt:     time.Date(2026, 3, 14, 9, 5, 0, 0, time.UTC),
	}
}

func TestConsoleStorage_New(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	storage := NewConsoleStorage(logger)

	if storage == nil {
		t.Fatal("expected non-nil storage")
	}

	if storage.logger == nil {
		t.Error("expected non-nil logger")
	}
}

func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := fn()

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String(), err
}

func TestConsoleStorage_StoreOpportunity(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	storage := NewConsoleStorage(logger)

	opp := testOpportunity()

	output, err := captureStdout(t, func() error {
		return storage.StoreOpportunity(context.Background(), opp)
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if !bytes.Contains([]byte(output), []byte("GHOST LOAD DISCOVERED")) {
		t.Error("expected output to contain 'GHOST LOAD DISCOVERED'")
	}

	if !bytes.Contains([]byte(output), []byte(opp.ExternalID)) {
		t.Errorf("expected output to contain external id %s", opp.ExternalID)
	}

	if !bytes.Contains([]byte(output), []byte(opp.DiscoveryReason)) {
		t.Errorf("expected output to contain discovery reason %s", opp.DiscoveryReason)
	}
}

func TestConsoleStorage_StoreAssignment(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	storage := NewConsoleStorage(logger)

	a := testAssignment()

	output, err := captureStdout(t, func() error {
		return storage.StoreAssignment(context.Background(), a)
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if !bytes.Contains([]byte(output), []byte("ASSIGNMENT COMMITTED")) {
		t.Error("expected output to contain 'ASSIGNMENT COMMITTED'")
	}

	if !bytes.Contains([]byte(output), []byte(a.VehicleID)) {
		t.Errorf("expected output to contain vehicle id %s", a.VehicleID)
	}
}

func TestConsoleStorage_Close(t *testing.T) {
	logger, _ := zap.NewDevelopment()
	storage := NewConsoleStorage(logger)

	err := storage.Close()
	if err != nil {
		t.Errorf("expected no error on close, got %v", err)
	}
}

func TestPostgresStorage_StoreOpportunity(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	storage := &PostgresStorage{
		db:     db,
		logger: logger,
	}

	opp := testOpportunity()
	ctx := context.Background()

	mock.ExpectExec("INSERT INTO ghost_load_opportunities").
		WithArgs(
			opp.ID,
			opp.ExternalID,
			opp.Origin.Lat,
			opp.Origin.Lng,
			opp.Destination.Lat,
			opp.Destination.Lng,
			sqlmock.AnyArg(), // pickup_start
			sqlmock.AnyArg(), // pickup_end
			sqlmock.AnyArg(), // delivery_start
			sqlmock.AnyArg(), // delivery_end
			opp.Equipment,
			opp.WeightLbs,
			opp.DistanceMiles,
			opp.QuotedRate,
			opp.MarketRate,
			opp.TargetRate,
			opp.MarginPotential,
			opp.DiscoveryReason,
			opp.PassedOnBy,
			string(opp.Status),
			sqlmock.AnyArg(), // first_seen
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = storage.StoreOpportunity(ctx, opp)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStorage_StoreOpportunity_Error(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	storage := &PostgresStorage{
		db:     db,
		logger: logger,
	}

	mock.ExpectExec("INSERT INTO ghost_load_opportunities").
		WillReturnError(sqlmock.ErrCancelled)

	err = storage.StoreOpportunity(context.Background(), testOpportunity())
	if err == nil {
		t.Error("expected error, got nil")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStorage_StoreAssignment(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	defer db.Close()

	storage := &PostgresStorage{
		db:     db,
		logger: logger,
	}

	a := testAssignment()

	mock.ExpectExec("INSERT INTO ghost_load_assignments").
		WithArgs(
			a.ID,
			a.MatchID,
			a.OpportunityID,
			a.VehicleID,
			a.NetProfit,
			sqlmock.AnyArg(), // created_at
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = storage.StoreAssignment(context.Background(), a)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestPostgresStorage_Close(t *testing.T) {
	logger, _ := zap.NewDevelopment()

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	storage := &PostgresStorage{
		db:     db,
		logger: logger,
	}

	mock.ExpectClose()

	err = storage.Close()
	if err != nil {
		t.Errorf("expected no error on close, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func TestStorage_Interface(t *testing.T) {
	// Verify both implementations satisfy the Storage interface
	logger, _ := zap.NewDevelopment()

	var _ Storage = NewConsoleStorage(logger)

	db, _, _ := sqlmock.New()
	defer db.Close()

	var _ Storage = &PostgresStorage{db: db, logger: logger}
}
