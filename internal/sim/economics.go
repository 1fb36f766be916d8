package sim

import (
	"math"
	"strings"
)

const (
	defaultBuildingArea  = 80.0
	defaultMultiUnitSize = 6
	sqmPerBedroom        = 40.0
)

// multiUnitKeywords mark property-type categories that rent as multiple
// independent units rather than one whole house.
var multiUnitKeywords = []string{
	"アパート",
	"マンション",
	"共同住宅",
	"apartment",
	"multi",
}

// UnitEconomics is the per-unit shape of a property derived from building
// attributes: how many rentable units, and bedrooms/guests per unit.
type UnitEconomics struct {
	Units       int
	Bedrooms    int
	Guests      int
	AreaPerUnit float64
}

// IsMultiUnit reports whether a property-type category describes a
// multi-unit building. Matching is case-insensitive substring containment.
func IsMultiUnit(propertyType string) bool {
	t := strings.ToLower(propertyType)
	for _, kw := range multiUnitKeywords {
		if strings.Contains(t, kw) {
			return true
		}
	}
	return false
}

// EstimateUnits derives unit/bedroom/guest counts from building attributes.
// Pure function: missing inputs take defined defaults, there are no failure
// modes.
func EstimateUnits(buildingArea float64, multiUnit bool, rooms int) UnitEconomics {
	if buildingArea <= 0 {
		buildingArea = defaultBuildingArea
	}

	units := 1
	if multiUnit {
		units = rooms
		if units <= 0 {
			units = defaultMultiUnitSize
		}
	}

	areaPerUnit := buildingArea
	if multiUnit && units > 1 {
		areaPerUnit = buildingArea / float64(units)
	}

	bedrooms := int(math.Ceil(areaPerUnit / sqmPerBedroom))
	if bedrooms < 1 {
		bedrooms = 1
	}

	return UnitEconomics{
		Units:       units,
		Bedrooms:    bedrooms,
		Guests:      bedrooms*2 + 1,
		AreaPerUnit: areaPerUnit,
	}
}
