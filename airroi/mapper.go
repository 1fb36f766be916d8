package airroi

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/yourorg/simulation-api/internal/sim"
)

// flexMonth accepts a month as a JSON number (7), numeric string ("7") or a
// calendar-month string ("2024-07" / "2024-07-01"), keeping just 1..12.
type flexMonth int

func (m *flexMonth) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*m = 0
		return nil
	}
	// "YYYY-MM" or "YYYY-MM-DD"
	if parts := strings.Split(s, "-"); len(parts) >= 2 && len(parts[0]) == 4 {
		if v, err := strconv.Atoi(strings.TrimPrefix(parts[1], "0")); err == nil {
			*m = flexMonth(v)
			return nil
		}
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	*m = flexMonth(v)
	return nil
}

// MapSearchPayload maps a comparable search response. The payload shape has
// drifted across API versions; map defensively and tolerate both the
// wrapped and bare-array forms.
func MapSearchPayload(raw []byte) ([]Comparable, error) {
	var root struct {
		Comparables []Comparable `json:"comparables"`
		Results     []Comparable `json:"results"`
	}
	if err := json.Unmarshal(raw, &root); err == nil {
		if len(root.Comparables) > 0 {
			return root.Comparables, nil
		}
		if len(root.Results) > 0 {
			return root.Results, nil
		}
	}
	var bare []Comparable
	if err := json.Unmarshal(raw, &bare); err == nil {
		return bare, nil
	}
	// Valid JSON but neither shape: treat as empty, not an error.
	if json.Valid(raw) {
		return nil, nil
	}
	return nil, json.Unmarshal(raw, &root)
}

// MapMetricsPayload maps a monthly metrics response to engine samples.
// Rows without a resolvable calendar month are dropped.
func MapMetricsPayload(raw []byte) ([]sim.ComparableSample, error) {
	type row struct {
		Month     flexMonth `json:"month"`
		Revenue   float64   `json:"revenue"`
		Occupancy float64   `json:"occupancy"`
		ADR       float64   `json:"adr"`
	}
	var root struct {
		Months []row `json:"months"`
	}
	var rows []row
	if err := json.Unmarshal(raw, &root); err == nil {
		rows = root.Months
	}
	if len(rows) == 0 {
		var bare []row
		if err := json.Unmarshal(raw, &bare); err == nil {
			rows = bare
		}
	}
	if rows == nil && !json.Valid(raw) {
		return nil, json.Unmarshal(raw, &root)
	}

	out := make([]sim.ComparableSample, 0, len(rows))
	for _, r := range rows {
		if r.Month < 1 || r.Month > 12 {
			continue
		}
		out = append(out, sim.ComparableSample{
			Month:     int(r.Month),
			Revenue:   r.Revenue,
			Occupancy: r.Occupancy,
			ADR:       r.ADR,
		})
	}
	return out, nil
}
