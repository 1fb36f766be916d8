package sim

import "math"

// ProjectFromMarket builds one scenario's 12 monthly rows from aggregated
// comparable statistics. The adjustment is multiplicative on revenue and
// occupancy; occupied nights are derived from the adjusted occupancy first,
// then the nightly rate is back-derived as revenue divided by nights. That
// ordering is load-bearing: deriving the rate first produces different
// rounding artifacts.
//
// The median monthly revenue is used as the base revenue signal; the mean is
// kept in the assumptions for auditing. Months without samples carry no
// signal and project as zero rows.
func ProjectFromMarket(stats MarketStats, eco UnitEconomics, factor, avgStay float64) []MonthlyProjection {
	if avgStay <= 0 {
		avgStay = 2.5
	}
	units := eco.Units
	if units < 1 {
		units = 1
	}
	months := make([]MonthlyProjection, 0, 12)
	for i, agg := range stats.Months {
		mo := i + 1
		if agg.SampleSize == 0 {
			months = append(months, MonthlyProjection{Month: mo, AvgStayNights: avgStay})
			continue
		}

		perUnitRevenue := int64(math.Round(agg.MedianRevenue * factor))
		occ := clampPct(agg.AvgOccupancy * factor)
		nights := int(math.Round(float64(daysInMonth[i]) * occ / 100))
		reservations := int(math.Round(float64(nights) / avgStay))

		var rate int64
		if nights > 0 {
			rate = int64(math.Round(float64(perUnitRevenue) / float64(nights)))
		} else {
			rate = int64(math.Round(agg.AvgADR * factor))
		}

		months = append(months, MonthlyProjection{
			Month:          mo,
			NightlyRate:    rate,
			OccupancyRate:  occ,
			OccupiedNights: nights,
			Reservations:   reservations * units,
			AvgStayNights:  avgStay,
			Revenue:        perUnitRevenue * int64(units),
		})
	}
	return months
}

// AnnualRevenue sums a scenario's monthly revenues.
func AnnualRevenue(months []MonthlyProjection) int64 {
	var total int64
	for _, m := range months {
		total += m.Revenue
	}
	return total
}

// TotalReservations sums a scenario's monthly reservation counts.
func TotalReservations(months []MonthlyProjection) int {
	total := 0
	for _, m := range months {
		total += m.Reservations
	}
	return total
}
