package valuation

import (
	"fmt"
	"math"
	"strings"
)

// DefaultCoefficient is returned for absent or unknown categorical values
const DefaultCoefficient = 1.00

// CoefficientTable maps categorical attribute values to adjustment
// coefficients. Lookups are case-insensitive and never fail. A table is
// immutable once built.
type CoefficientTable struct {
	name    string
	entries map[string]float64
}

// NewCoefficientTable builds a table from label/coefficient pairs. Labels are
// matched case-insensitively, so two labels differing only in case collide.
func NewCoefficientTable(name string, entries map[string]float64) (CoefficientTable, error) {
	t := CoefficientTable{name: name, entries: make(map[string]float64, len(entries))}
	for label, value := range entries {
		if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
			return CoefficientTable{}, fmt.Errorf("%s table: coefficient for %q must be a finite non-negative number", name, label)
		}
		key := strings.ToLower(label)
		if _, dup := t.entries[key]; dup {
			return CoefficientTable{}, fmt.Errorf("%s table: duplicate label %q", name, label)
		}
		t.entries[key] = value
	}
	return t, nil
}

func mustTable(name string, entries map[string]float64) CoefficientTable {
	t, err := NewCoefficientTable(name, entries)
	if err != nil {
		panic(err)
	}
	return t
}

// Name returns the table name used in factor audit entries
func (t CoefficientTable) Name() string {
	return t.name
}

// Coefficient returns the coefficient for key, or DefaultCoefficient when the
// key is empty or not present. Zero-value tables behave as all-default.
func (t CoefficientTable) Coefficient(key string) float64 {
	if key == "" || t.entries == nil {
		return DefaultCoefficient
	}
	if v, ok := t.entries[strings.ToLower(key)]; ok {
		return v
	}
	return DefaultCoefficient
}

// CoefficientTables groups the three tables used by rural homogenization
type CoefficientTables struct {
	Topography CoefficientTable
	Access     CoefficientTable
	Surface    CoefficientTable
}

// DefaultTables returns the standard rural coefficient tables
func DefaultTables() CoefficientTables {
	return CoefficientTables{
		Topography: mustTable("Topography", map[string]float64{
			"Plano":          1.00,
			"Suave Ondulado": 0.95,
			"Ondulado":       0.90,
			"Forte Ondulado": 0.80,
			"Montanhoso":     0.70,
			"Escarpado":      0.60,
		}),
		Access: mustTable("Access", map[string]float64{
			"Ótimo":     1.10,
			"Muito Bom": 1.05,
			"Bom":       1.00,
			"Regular":   0.90,
			"Ruim":      0.75,
			"Péssimo":   0.60,
			"Encravado": 0.50,
		}),
		Surface: mustTable("Surface", map[string]float64{
			"Seca":                    1.00,
			"Pedregosa":               0.85,
			"Alagadiça":               0.70,
			"Brejosa":                 0.60,
			"Inundável":               0.50,
			"Permanentemente Alagada": 0.30,
		}),
	}
}
