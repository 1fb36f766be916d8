package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/simulation-api/internal/sim"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &Store{DB: db}, mock
}

func TestLoadCostParametersDefaultsWhenEmpty(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT cleaning_fee_per_stay`).WillReturnRows(
		sqlmock.NewRows([]string{"cleaning_fee_per_stay", "ota_fee_rate", "management_fee_rate", "other_cost_rate"}))

	p, err := s.LoadCostParameters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, sim.DefaultCostParameters(), p)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadCostParametersReadsRow(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT cleaning_fee_per_stay`).WillReturnRows(
		sqlmock.NewRows([]string{"cleaning_fee_per_stay", "ota_fee_rate", "management_fee_rate", "other_cost_rate"}).
			AddRow(6000, 12.0, 18.0, 4.0))

	p, err := s.LoadCostParameters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(6000), p.CleaningFeePerStay)
	assert.Equal(t, 12.0, p.OTAFeeRate)
}

func TestHasSimulations(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`SELECT COUNT\(1\) FROM simulations`).
		WithArgs("l1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	ok, err := s.HasSimulations(context.Background(), "l1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestListCandidatesScansRows(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(`FROM listings l`).
		WithArgs(100).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "address", "locality", "property_type", "price",
			"building_area", "land_area", "rooms", "lat", "lng",
		}).AddRow("l1", "札幌市中央区南3条", "札幌市", "アパート", 19800000, 180.0, 220.0, 6, nil, nil))

	out, err := s.ListCandidates(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "l1", out[0].ID)
	assert.True(t, out[0].Rooms.Valid)
	assert.False(t, out[0].Lat.Valid)
}

func TestInsertSimulationSetTransactional(t *testing.T) {
	s, mock := newMockStore(t)
	results := []sim.SimulationResult{{
		Scenario:      sim.ScenarioNeutral,
		AnnualRevenue: 100,
		AnnualProfit:  40,
		Months: []sim.MonthlyProjection{
			{Month: 1, NightlyRate: 10, OccupancyRate: 50, OccupiedNights: 5, Reservations: 2, AvgStayNights: 2.5, Revenue: 50},
			{Month: 2, NightlyRate: 10, OccupancyRate: 50, OccupiedNights: 5, Reservations: 2, AvgStayNights: 2.5, Revenue: 50},
		},
	}}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO simulations`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO simulation_months`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO simulation_months`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.InsertSimulationSet(context.Background(), "l1", results))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertSimulationSetRollsBackOnChildFailure(t *testing.T) {
	s, mock := newMockStore(t)
	results := []sim.SimulationResult{{
		Scenario: sim.ScenarioNeutral,
		Months:   []sim.MonthlyProjection{{Month: 1}},
	}}

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO simulations`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO simulation_months`).WillReturnError(assert.AnError)
	mock.ExpectRollback()

	require.Error(t, s.InsertSimulationSet(context.Background(), "l1", results))
	assert.NoError(t, mock.ExpectationsWereMet())
}
