package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateUnitsSingleFamily(t *testing.T) {
	eco := EstimateUnits(80, false, 0)
	assert.Equal(t, 1, eco.Units)
	assert.Equal(t, 2, eco.Bedrooms)
	assert.Equal(t, 5, eco.Guests)
	assert.Equal(t, 80.0, eco.AreaPerUnit)
}

func TestEstimateUnitsDefaultsMissingArea(t *testing.T) {
	eco := EstimateUnits(0, false, 0)
	assert.Equal(t, 80.0, eco.AreaPerUnit)
	assert.Equal(t, 2, eco.Bedrooms)
}

func TestEstimateUnitsMultiUnit(t *testing.T) {
	// 240m² over 6 units -> 40m² per unit -> 1 bedroom, 3 guests.
	eco := EstimateUnits(240, true, 6)
	assert.Equal(t, 6, eco.Units)
	assert.Equal(t, 40.0, eco.AreaPerUnit)
	assert.Equal(t, 1, eco.Bedrooms)
	assert.Equal(t, 3, eco.Guests)
}

func TestEstimateUnitsMultiUnitDefaultRooms(t *testing.T) {
	eco := EstimateUnits(300, true, 0)
	assert.Equal(t, 6, eco.Units)
	assert.Equal(t, 50.0, eco.AreaPerUnit)
	assert.Equal(t, 2, eco.Bedrooms)
}

func TestEstimateUnitsMinimumBedroom(t *testing.T) {
	eco := EstimateUnits(18, false, 0)
	assert.Equal(t, 1, eco.Bedrooms)
	assert.Equal(t, 3, eco.Guests)
}

func TestIsMultiUnit(t *testing.T) {
	cases := map[string]bool{
		"中古アパート":       true,
		"区分マンション":      true,
		"共同住宅":         true,
		"Apartment 2F": true,
		"戸建て":          false,
		"中古一戸建て":       false,
		"":             false,
	}
	for in, want := range cases {
		assert.Equal(t, want, IsMultiUnit(in), "property type %q", in)
	}
}
