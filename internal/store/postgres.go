package store

import (
    "context"
    "database/sql"
    "encoding/json"
    "errors"
    "time"

    "github.com/google/uuid"
    _ "github.com/jackc/pgx/v5/stdlib"

    "github.com/yourorg/simulation-api/internal/sim"
)

type Store struct { DB *sql.DB }

func Open(dsn string) (*Store, error) {
    db, err := sql.Open("pgx", dsn)
    if err != nil { return nil, err }
    db.SetMaxOpenConns(10)
    db.SetMaxIdleConns(5)
    db.SetConnMaxLifetime(30 * time.Minute)
    return &Store{DB: db}, nil
}

func (s *Store) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

func (s *Store) Migrate(ctx context.Context) error {
    stmts := []string{
        `CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
        `CREATE TABLE IF NOT EXISTS listings (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            source_id       TEXT,
            title           TEXT,
            address         TEXT,
            locality        TEXT,
            property_type   TEXT,
            price           BIGINT,
            building_area   DOUBLE PRECISION,
            land_area       DOUBLE PRECISION,
            rooms           INTEGER,
            lat             DOUBLE PRECISION,
            lng             DOUBLE PRECISION,
            created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
            updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
        );`,
        `CREATE INDEX IF NOT EXISTS idx_listings_locality ON listings(locality);`,
        `CREATE TABLE IF NOT EXISTS cost_parameters (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            cleaning_fee_per_stay BIGINT NOT NULL,
            ota_fee_rate          DOUBLE PRECISION NOT NULL,
            management_fee_rate   DOUBLE PRECISION NOT NULL,
            other_cost_rate       DOUBLE PRECISION NOT NULL,
            updated_at            TIMESTAMPTZ NOT NULL DEFAULT now()
        );`,
        `CREATE TABLE IF NOT EXISTS simulations (
            id UUID PRIMARY KEY,
            listing_id      UUID NOT NULL REFERENCES listings(id) ON DELETE CASCADE,
            scenario        TEXT NOT NULL,
            annual_revenue  BIGINT NOT NULL,
            annual_profit   BIGINT NOT NULL,
            assumptions     JSONB NOT NULL,
            created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
        );`,
        `CREATE INDEX IF NOT EXISTS idx_simulations_listing ON simulations(listing_id);`,
        `CREATE TABLE IF NOT EXISTS simulation_months (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            simulation_id   UUID NOT NULL REFERENCES simulations(id) ON DELETE CASCADE,
            month           SMALLINT NOT NULL,
            nightly_rate    BIGINT NOT NULL,
            occupancy_rate  DOUBLE PRECISION NOT NULL,
            occupied_nights INTEGER NOT NULL,
            reservations    INTEGER NOT NULL,
            avg_stay_nights DOUBLE PRECISION NOT NULL,
            revenue         BIGINT NOT NULL
        );`,
        `CREATE INDEX IF NOT EXISTS idx_simmonths_simulation ON simulation_months(simulation_id);`,
    }
    for _, q := range stmts {
        if _, err := s.DB.ExecContext(ctx, q); err != nil { return err }
    }
    return nil
}

// Listing is a candidate row as stored. Nullable columns stay nullable here;
// mapping to engine inputs happens at the job boundary.
type Listing struct {
    ID           string
    Address      sql.NullString
    Locality     sql.NullString
    PropertyType sql.NullString
    Price        sql.NullInt64
    BuildingArea sql.NullFloat64
    LandArea     sql.NullFloat64
    Rooms        sql.NullInt64
    Lat          sql.NullFloat64
    Lng          sql.NullFloat64
}

// ListCandidates returns listings that have no simulation yet, oldest first.
func (s *Store) ListCandidates(ctx context.Context, limit int) ([]Listing, error) {
    if limit <= 0 { limit = 100 }
    rows, err := s.DB.QueryContext(ctx, `
        SELECT l.id, l.address, l.locality, l.property_type, l.price,
               l.building_area, l.land_area, l.rooms, l.lat, l.lng
        FROM listings l
        WHERE NOT EXISTS (SELECT 1 FROM simulations sm WHERE sm.listing_id = l.id)
        ORDER BY l.created_at ASC
        LIMIT $1`, limit)
    if err != nil { return nil, err }
    defer rows.Close()

    var out []Listing
    for rows.Next() {
        var l Listing
        if err := rows.Scan(&l.ID, &l.Address, &l.Locality, &l.PropertyType, &l.Price,
            &l.BuildingArea, &l.LandArea, &l.Rooms, &l.Lat, &l.Lng); err != nil {
            return nil, err
        }
        out = append(out, l)
    }
    return out, rows.Err()
}

// HasSimulations reports whether a listing already has persisted results.
// Re-checked per listing inside the batch, never cached at batch start.
func (s *Store) HasSimulations(ctx context.Context, listingID string) (bool, error) {
    var n int
    err := s.DB.QueryRowContext(ctx,
        `SELECT COUNT(1) FROM simulations WHERE listing_id = $1`, listingID).Scan(&n)
    if err != nil { return false, err }
    return n > 0, nil
}

// LoadCostParameters returns the configured cost parameters, or the engine
// defaults when the table is empty.
func (s *Store) LoadCostParameters(ctx context.Context) (sim.CostParameters, error) {
    var p sim.CostParameters
    err := s.DB.QueryRowContext(ctx, `
        SELECT cleaning_fee_per_stay, ota_fee_rate, management_fee_rate, other_cost_rate
        FROM cost_parameters ORDER BY updated_at DESC LIMIT 1`).
        Scan(&p.CleaningFeePerStay, &p.OTAFeeRate, &p.ManagementFeeRate, &p.OtherCostRate)
    if errors.Is(err, sql.ErrNoRows) { return sim.DefaultCostParameters(), nil }
    if err != nil { return p, err }
    return p, nil
}

// InsertSimulationSet writes one listing's scenario results and their monthly
// rows in a single transaction. Parent and children commit or roll back
// together so a listing can never end up with a partial scenario set.
func (s *Store) InsertSimulationSet(ctx context.Context, listingID string, results []sim.SimulationResult) error {
    if s.DB == nil { return errors.New("nil db") }
    tx, err := s.DB.BeginTx(ctx, nil)
    if err != nil { return err }
    defer func() { if err != nil { _ = tx.Rollback() } }()

    for _, res := range results {
        simID := uuid.NewString()
        var blob []byte
        blob, err = json.Marshal(res.Assumptions)
        if err != nil { return err }
        _, err = tx.ExecContext(ctx, `
            INSERT INTO simulations (id, listing_id, scenario, annual_revenue, annual_profit, assumptions)
            VALUES ($1,$2,$3,$4,$5,$6)`,
            simID, listingID, string(res.Scenario), res.AnnualRevenue, res.AnnualProfit, string(blob))
        if err != nil { return err }

        for _, m := range res.Months {
            _, err = tx.ExecContext(ctx, `
                INSERT INTO simulation_months (simulation_id, month, nightly_rate, occupancy_rate, occupied_nights, reservations, avg_stay_nights, revenue)
                VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
                simID, m.Month, m.NightlyRate, m.OccupancyRate, m.OccupiedNights, m.Reservations, m.AvgStayNights, m.Revenue)
            if err != nil { return err }
        }
    }

    err = tx.Commit()
    return err
}

// SimulationRecord is a persisted scenario result read back for the API.
type SimulationRecord struct {
    ID            string                  `json:"id"`
    ListingID     string                  `json:"listing_id"`
    Scenario      string                  `json:"scenario"`
    AnnualRevenue int64                   `json:"annual_revenue"`
    AnnualProfit  int64                   `json:"annual_profit"`
    Assumptions   json.RawMessage         `json:"assumptions"`
    CreatedAt     time.Time               `json:"created_at"`
    Months        []sim.MonthlyProjection `json:"months"`
}

// ListSimulations returns a listing's persisted scenario results with their
// monthly rows, months ordered 1..12.
func (s *Store) ListSimulations(ctx context.Context, listingID string) ([]SimulationRecord, error) {
    rows, err := s.DB.QueryContext(ctx, `
        SELECT id, listing_id, scenario, annual_revenue, annual_profit, assumptions, created_at
        FROM simulations WHERE listing_id = $1 ORDER BY created_at ASC, scenario ASC`, listingID)
    if err != nil { return nil, err }
    defer rows.Close()

    var out []SimulationRecord
    for rows.Next() {
        var rec SimulationRecord
        var blob []byte
        if err := rows.Scan(&rec.ID, &rec.ListingID, &rec.Scenario, &rec.AnnualRevenue, &rec.AnnualProfit, &blob, &rec.CreatedAt); err != nil {
            return nil, err
        }
        rec.Assumptions = json.RawMessage(blob)
        out = append(out, rec)
    }
    if err := rows.Err(); err != nil { return nil, err }

    for i := range out {
        months, err := s.listMonths(ctx, out[i].ID)
        if err != nil { return nil, err }
        out[i].Months = months
    }
    return out, nil
}

func (s *Store) listMonths(ctx context.Context, simulationID string) ([]sim.MonthlyProjection, error) {
    rows, err := s.DB.QueryContext(ctx, `
        SELECT month, nightly_rate, occupancy_rate, occupied_nights, reservations, avg_stay_nights, revenue
        FROM simulation_months WHERE simulation_id = $1 ORDER BY month ASC`, simulationID)
    if err != nil { return nil, err }
    defer rows.Close()

    var out []sim.MonthlyProjection
    for rows.Next() {
        var m sim.MonthlyProjection
        if err := rows.Scan(&m.Month, &m.NightlyRate, &m.OccupancyRate, &m.OccupiedNights, &m.Reservations, &m.AvgStayNights, &m.Revenue); err != nil {
            return nil, err
        }
        out = append(out, m)
    }
    return out, rows.Err()
}
