package sim

import "math"

// ComputeCosts converts a scenario's annual revenue and reservation volume
// into an operating cost breakdown. Cleaning is charged per reservation;
// the other lines are percentages of annual gross revenue.
func ComputeCosts(annualRevenue int64, totalReservations int, p CostParameters) CostBreakdown {
	b := CostBreakdown{
		Cleaning:      int64(totalReservations) * p.CleaningFeePerStay,
		OTAFee:        pctOf(annualRevenue, p.OTAFeeRate),
		ManagementFee: pctOf(annualRevenue, p.ManagementFeeRate),
		Other:         pctOf(annualRevenue, p.OtherCostRate),
	}
	b.Total = b.Cleaning + b.OTAFee + b.ManagementFee + b.Other
	return b
}

func pctOf(v int64, rate float64) int64 {
	return int64(math.Round(float64(v) * rate / 100))
}
