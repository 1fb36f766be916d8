package airroi

type Comparable struct {
    ID        string  `json:"id"`
    Relevance float64 `json:"relevance"`
    Bedrooms  int     `json:"bedrooms"`
    Guests    int     `json:"guests"`
    DistanceKm float64 `json:"distance_km"`
}

// MonthlySample is one month of a comparable's trailing history as the
// provider reports it. Occupancy stays in the provider's native convention
// (0..1 or 0..100); normalization is the aggregator's job.
type MonthlySample struct {
    Month     int     `json:"month"`
    Revenue   float64 `json:"revenue"`
    Occupancy float64 `json:"occupancy"`
    ADR       float64 `json:"adr"`
}
