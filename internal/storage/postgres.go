package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dispatchly/ghostload/internal/assignment"
	"github.com/dispatchly/ghostload/internal/opportunity"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresStorage implements Storage using PostgreSQL.
type PostgresStorage struct {
	db     *sql.DB
	logger *zap.Logger
}

// PostgresConfig holds PostgreSQL configuration.
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	Logger   *zap.Logger
}

// NewPostgresStorage creates a new PostgreSQL storage.
func NewPostgresStorage(cfg *PostgresConfig) (*PostgresStorage, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Test connection
	err = db.Ping()
	if err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cfg.Logger.Info("postgres-storage-connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Database))

	return &PostgresStorage{
		db:     db,
		logger: cfg.Logger,
	}, nil
}

// StoreOpportunity stores a discovered opportunity in PostgreSQL.
func (p *PostgresStorage) StoreOpportunity(ctx context.Context, opp *opportunity.Opportunity) error {
	query := `
		INSERT INTO ghost_load_opportunities (
			id, external_id, origin_lat, origin_lng, dest_lat, dest_lng,
			pickup_start, pickup_end, delivery_start, delivery_end,
			equipment, weight_lbs, distance_miles,
			quoted_rate, market_rate, target_rate, margin_potential,
			discovery_reason, passed_on_by, status, first_seen
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		opp.ID,
		opp.ExternalID,
		opp.Origin.Lat,
		opp.Origin.Lng,
		opp.Destination.Lat,
		opp.Destination.Lng,
		opp.PickupWindow.Start,
		opp.PickupWindow.End,
		opp.DeliveryWindow.Start,
		opp.DeliveryWindow.End,
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
		opp.FirstSeen,
	)

	if err != nil {
		return fmt.Errorf("insert opportunity: %w", err)
	}

	p.logger.Debug("opportunity-stored",
		zap.String("opportunity-id", opp.ID),
		zap.String("external-id", opp.ExternalID))

	return nil
}

// StoreAssignment stores a committed assignment in PostgreSQL.
func (p *PostgresStorage) StoreAssignment(ctx context.Context, a *assignment.Assignment) error {
	query := `
		INSERT INTO ghost_load_assignments (
			id, match_id, opportunity_id, vehicle_id, net_profit, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
	`

	_, err := p.db.ExecContext(ctx, query,
		a.ID,
		a.MatchID,
		a.OpportunityID,
		a.VehicleID,
		a.NetProfit,
		a.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}

	p.logger.Debug("assignment-stored",
		zap.String("assignment-id", a.ID),
		zap.String("vehicle-id", a.VehicleID))

	return nil
}

// Close closes the database connection.
func (p *PostgresStorage) Close() error {
	p.logger.Info("closing-postgres-storage")
	return p.db.Close()
}
