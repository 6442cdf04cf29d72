package valuation

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoefficientTable_Lookup(t *testing.T) {
	tables := DefaultTables()

	assert.Equal(t, 1.00, tables.Topography.Coefficient("Plano"))
	assert.Equal(t, 0.90, tables.Topography.Coefficient("ondulado"))
	assert.Equal(t, 0.75, tables.Access.Coefficient("RUIM"))
	assert.Equal(t, 0.30, tables.Surface.Coefficient("permanentemente alagada"))
	assert.Equal(t, 1.10, tables.Access.Coefficient("ótimo"))
}

func TestCoefficientTable_DefaultsForUnknownValues(t *testing.T) {
	tables := DefaultTables()

	assert.Equal(t, DefaultCoefficient, tables.Topography.Coefficient(""))
	assert.Equal(t, DefaultCoefficient, tables.Topography.Coefficient("Lunar"))
	// no trimming: padded labels are unknown
	assert.Equal(t, DefaultCoefficient, tables.Topography.Coefficient(" Ondulado "))

	var zero CoefficientTable
	assert.Equal(t, DefaultCoefficient, zero.Coefficient("Plano"))
	assert.Empty(t, zero.entries)
}

func TestNewCoefficientTable_Validation(t *testing.T) {
	_, err := NewCoefficientTable("Custom", map[string]float64{"a": -0.1})
	assert.Error(t, err)

	_, err = NewCoefficientTable("Custom", map[string]float64{"a": math.NaN()})
	assert.Error(t, err)

	_, err = NewCoefficientTable("Custom", map[string]float64{"Rocky": 0.8, "ROCKY": 0.7})
	assert.Error(t, err)

	table, err := NewCoefficientTable("Custom", map[string]float64{"Rocky": 0.8, "Flat": 1.2})
	require.NoError(t, err)
	assert.Equal(t, "Custom", table.Name())
	assert.Len(t, table.entries, 2)
	assert.Equal(t, 0.8, table.Coefficient("rocky"))
	assert.Equal(t, 1.2, table.Coefficient("flat"))
}

func TestDefaultTables_Sizes(t *testing.T) {
	tables := DefaultTables()

	assert.Len(t, tables.Topography.entries, 6)
	assert.Len(t, tables.Access.entries, 7)
	assert.Len(t, tables.Surface.entries, 6)
}
