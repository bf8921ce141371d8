package ingest

import (
	"strings"

	"github.com/shopspring/decimal"

	"mfgdocs/model"
)

type ValidationSummary struct {
	Matched  int `json:"matched"`
	Mismatch int `json:"mismatch"`
	Pending  int `json:"pending"`
}

// ValidateRequisition tags every material of batch by comparing its quantity
// to issue with the quantity formula declares for the same material code.
// Materials without a formula or without a declared quantity stay pending.
// tolerance is absolute, in the material's unit.
func ValidateRequisition(batch *model.RequisitionBatch, formula *model.FormulaMaster, tolerance float64) ValidationSummary {
	var sum ValidationSummary
	required := formulaRequirements(formula)
	tol := decimal.NewFromFloat(tolerance)

	for i := range batch.Materials {
		m := &batch.Materials[i]
		m.FormulaQuantity = nil
		m.VariancePercent = nil

		want, ok := required[normalizeCode(m.MaterialCode)]
		if !ok {
			m.ValidationStatus = model.ValidationPending
			sum.Pending++
			continue
		}

		formulaQty := want.InexactFloat64()
		m.FormulaQuantity = &formulaQty
		issued := decimal.NewFromFloat(m.QuantityToIssue)
		diff := issued.Sub(want)
		if !want.IsZero() {
			variance := diff.Div(want).Mul(decimal.NewFromInt(100)).Round(2).InexactFloat64()
			m.VariancePercent = &variance
		}

		if diff.Abs().LessThanOrEqual(tol) {
			m.ValidationStatus = model.ValidationMatched
			sum.Matched++
		} else {
			m.ValidationStatus = model.ValidationMismatch
			sum.Mismatch++
		}
	}
	return sum
}

// formulaRequirements maps material code to its declared quantity, searching
// raw materials, packing materials and then process materials. The first
// declaration of a code wins.
func formulaRequirements(f *model.FormulaMaster) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	if f == nil {
		return out
	}
	add := func(materials []model.FormulaMaterial) {
		for _, m := range materials {
			code := normalizeCode(m.MaterialCode)
			if code == "" {
				continue
			}
			if _, ok := out[code]; !ok {
				out[code] = decimal.NewFromFloat(m.Quantity)
			}
		}
	}
	add(f.Materials)
	add(f.PackingMaterials)
	for _, p := range f.Processes {
		add(p.Materials)
	}
	return out
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
