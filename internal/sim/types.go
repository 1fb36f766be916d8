package sim

// Scenario tags the three fixed revenue-adjustment cases.
type Scenario string

const (
	ScenarioNegative Scenario = "NEGATIVE"
	ScenarioNeutral  Scenario = "NEUTRAL"
	ScenarioPositive Scenario = "POSITIVE"
)

// ScenarioOrder is the order results are produced and persisted in.
var ScenarioOrder = [3]Scenario{ScenarioNegative, ScenarioNeutral, ScenarioPositive}

// ScenarioFactor returns the revenue multiplier for a scenario.
func ScenarioFactor(s Scenario) float64 {
	switch s {
	case ScenarioNegative:
		return 0.90
	case ScenarioPositive:
		return 1.10
	default:
		return 1.0
	}
}

// Data source tags recorded in Assumptions for auditability.
const (
	SourceHeuristics = "heuristics"
	SourceAirROI     = "airroi"
)

// PropertyAttributes is the immutable per-listing input to the engine.
// Owned by the calling system; zero values mean "unknown" and fall back to
// the engine defaults.
type PropertyAttributes struct {
	ListingID    string
	Address      string
	Locality     string
	PropertyType string
	BuildingArea float64 // m²
	LandArea     float64 // m²
	Rooms        int
	Lat          *float64
	Lng          *float64
}

// CostParameters converts gross revenue into operating costs. All rates are
// percentages of annual gross revenue; cleaning is charged per reservation.
type CostParameters struct {
	CleaningFeePerStay int64   `json:"cleaning_fee_per_stay"`
	OTAFeeRate         float64 `json:"ota_fee_rate"`
	ManagementFeeRate  float64 `json:"management_fee_rate"`
	OtherCostRate      float64 `json:"other_cost_rate"`
}

// DefaultCostParameters are used when no row exists in cost_parameters.
func DefaultCostParameters() CostParameters {
	return CostParameters{
		CleaningFeePerStay: 8000,
		OTAFeeRate:         15,
		ManagementFeeRate:  20,
		OtherCostRate:      5,
	}
}

// MonthlyProjection is one of twelve rows per scenario.
type MonthlyProjection struct {
	Month          int     `json:"month"`
	NightlyRate    int64   `json:"nightly_rate"`
	OccupancyRate  float64 `json:"occupancy_rate"` // 0..100
	OccupiedNights int     `json:"occupied_nights"`
	Reservations   int     `json:"reservations"`
	AvgStayNights  float64 `json:"avg_stay_nights"`
	Revenue        int64   `json:"revenue"`
}

// CostBreakdown itemizes annual operating costs.
type CostBreakdown struct {
	Cleaning      int64 `json:"cleaning"`
	OTAFee        int64 `json:"ota_fee"`
	ManagementFee int64 `json:"management_fee"`
	Other         int64 `json:"other"`
	Total         int64 `json:"total"`
}

// Assumptions captures every derived parameter that went into a result so a
// reviewer can audit where the numbers came from.
type Assumptions struct {
	DataSource     string         `json:"data_source"`
	ScenarioFactor float64        `json:"scenario_factor"`
	Bedrooms       int            `json:"bedrooms"`
	Guests         int            `json:"guests"`
	Units          int            `json:"units"`
	AreaPerUnit    float64        `json:"area_per_unit_sqm"`
	AvgStayNights  float64        `json:"avg_stay_nights"`
	Costs          CostBreakdown  `json:"costs"`
	CostParams     CostParameters `json:"cost_params"`

	// Heuristic branch.
	MarketKey     string  `json:"market_key,omitempty"`
	BaseADR       float64 `json:"base_adr,omitempty"`
	BaseOccupancy float64 `json:"base_occupancy,omitempty"`

	// Market-data branch.
	Comparables    int     `json:"comparables,omitempty"`
	Samples        int     `json:"samples,omitempty"`
	MonthsWithData int     `json:"months_with_data,omitempty"`
	RadiusKm       float64 `json:"radius_km,omitempty"`

	FallbackReason string `json:"fallback_reason,omitempty"`
}

// SimulationResult is one scenario's full projection for one listing.
type SimulationResult struct {
	Scenario      Scenario            `json:"scenario"`
	Months        []MonthlyProjection `json:"months"`
	AnnualRevenue int64               `json:"annual_revenue"`
	AnnualProfit  int64               `json:"annual_profit"`
	Assumptions   Assumptions         `json:"assumptions"`
}

// ComparableSample is a single month observed on one comparable listing,
// consumed only during aggregation. Occupancy is in the provider's native
// convention until normalized at the aggregation boundary.
type ComparableSample struct {
	Month     int
	Revenue   float64
	Occupancy float64
	ADR       float64
}

// AggregatedMonthly is the market-data equivalent of the heuristic model's
// monthly base values. A zero SampleSize means "no signal", never
// "confirmed zero demand".
type AggregatedMonthly struct {
	Month         int     `json:"month"`
	AvgRevenue    float64 `json:"avg_revenue"`
	MedianRevenue float64 `json:"median_revenue"`
	AvgOccupancy  float64 `json:"avg_occupancy"`
	AvgADR        float64 `json:"avg_adr"`
	SampleSize    int     `json:"sample_size"`
}

// daysInMonth is the standard non-leap calendar, index month-1.
var daysInMonth = [12]int{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
