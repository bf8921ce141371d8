package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mfgdocs/model"
)

func formula(id, mfc, product, license string, fills ...string) model.FormulaMaster {
	f := model.FormulaMaster{
		ID: id,
		MasterFormulaDetails: model.MasterFormulaDetails{
			MasterCardNo:           mfc,
			ProductCode:            product,
			ProductName:            "Product " + product,
			ManufacturingLicenseNo: license,
		},
	}
	for _, code := range fills {
		f.FillingDetails = append(f.FillingDetails, model.FillingDetail{ProductCode: code})
	}
	return f
}

func registry(file string, items ...model.BatchItem) model.BatchRegistry {
	return model.BatchRegistry{FileName: file, Batches: items}
}

func item(batch, code, license string) model.BatchItem {
	return model.BatchItem{BatchNumber: batch, ItemCode: code, ItemName: "Item " + code, MfgLicNo: license}
}

func TestBuild(t *testing.T) {
	formulas := []model.FormulaMaster{
		formula("F1", "MFC-100", "P1", "MH / 123 ", "P1-10"),
		formula("F2", "MFC-200", "P2", "L2"),
	}
	registries := []model.BatchRegistry{
		registry("jan.xml", item("B1", "P1", "mh/123"), item("B2", "P1-10", "MH/999")),
		registry("feb.xml", item("B3", "X9", "L"), item("B4", "X9", "L")),
	}

	r := Build(formulas, registries, nil)

	require.Len(t, r.Formulas, 2)
	f1 := r.Formulas[0]
	assert.Equal(t, "F1", f1.FormulaID)
	assert.Equal(t, []string{"P1", "P1-10"}, f1.LinkedCodes)
	assert.Equal(t, model.ReconPartially, f1.Status)
	assert.Equal(t, model.FormulaStatsSummary{TotalBatches: 2, ReconciledBatches: 1, MismatchedBatches: 1}, f1.Stats)
	require.Len(t, f1.BatchDetails, 2)
	assert.True(t, f1.BatchDetails[0].Matched)
	assert.Equal(t, "jan.xml", f1.BatchDetails[0].RegistryFile)
	assert.False(t, f1.BatchDetails[1].Matched)

	f2 := r.Formulas[1]
	assert.Equal(t, model.ReconNoBatches, f2.Status)
	assert.Empty(t, f2.BatchDetails)

	require.Len(t, r.LicenseMismatches, 1)
	mm := r.LicenseMismatches[0]
	assert.Equal(t, "B2", mm.BatchNumber)
	assert.Equal(t, "MFC-100", mm.MasterCardNo)
	assert.Equal(t, model.SeverityCritical, mm.Severity)

	require.Len(t, r.OrphanBatches, 1)
	g := r.OrphanBatches[0]
	assert.Equal(t, "X9", g.ItemCode)
	assert.Equal(t, 2, g.BatchCount)
	assert.Equal(t, []string{"B3", "B4"}, g.BatchNumbers)
	assert.True(t, g.ComplianceRisk)
	assert.Equal(t, model.RiskMedium, g.RiskLevel)

	s := r.Summary
	assert.Equal(t, 2, s.TotalFormulas)
	assert.Equal(t, 1, s.FormulasPartiallyReconciled)
	assert.Equal(t, 1, s.FormulasWithoutBatches)
	assert.Equal(t, 4, s.TotalBatchesInSystem)
	assert.Equal(t, 2, s.BatchesMatchedToFormula)
	assert.Equal(t, 2, s.BatchesNotMatchedToFormula)
	assert.Equal(t, 1, s.ReconciledBatches)
	assert.Equal(t, 1, s.MismatchedBatches)
	assert.Equal(t, 25.0, s.BatchReconciliationPercentage)
	assert.True(t, s.CountsConsistent)
	assert.Equal(t, 32.5, s.ComplianceScore)

	for _, f := range r.Formulas {
		assert.Equal(t, f.Stats.TotalBatches, f.Stats.ReconciledBatches+f.Stats.MismatchedBatches)
		for _, d := range f.BatchDetails {
			assert.NotEqual(t, "X9", d.ItemCode, "orphans never appear in formula details")
		}
	}

	require.NotEmpty(t, r.Recommendations)
	assert.Equal(t, PriorityCritical, r.Recommendations[0].Priority)
	assert.Equal(t, "license_mismatch", r.Recommendations[0].Category)
	last := r.Recommendations[len(r.Recommendations)-1]
	assert.Equal(t, "formulas_without_batches", last.Category)
	assert.Equal(t, []string{"MFC-200"}, last.Subjects)
}

func TestBuildEmpty(t *testing.T) {
	r := Build(nil, nil, nil)
	assert.True(t, r.Summary.CountsConsistent)
	assert.Zero(t, r.Summary.ComplianceScore)
	assert.NotNil(t, r.OrphanBatches)
	assert.NotNil(t, r.LicenseMismatches)
	assert.Empty(t, r.Recommendations)
}

func TestBuildHighRiskOrphans(t *testing.T) {
	var items []model.BatchItem
	for _, b := range []string{"B1", "B2", "B3", "B4", "B5"} {
		items = append(items, item(b, "Z1", "L"))
	}
	items = append(items, item("C1", "A1", "L"))

	r := Build(nil, []model.BatchRegistry{registry("r.xml", items...)}, nil)
	require.Len(t, r.OrphanBatches, 2)
	assert.Equal(t, "Z1", r.OrphanBatches[0].ItemCode)
	assert.Equal(t, model.RiskHigh, r.OrphanBatches[0].RiskLevel)
	assert.Equal(t, model.RiskMedium, r.OrphanBatches[1].RiskLevel)

	require.Len(t, r.Recommendations, 2)
	assert.Equal(t, PriorityHigh, r.Recommendations[0].Priority)
	assert.Equal(t, []string{"Z1"}, r.Recommendations[0].Subjects)
	assert.Equal(t, PriorityMedium, r.Recommendations[1].Priority)
}

func TestLinkedCodeTieBreak(t *testing.T) {
	formulas := []model.FormulaMaster{
		formula("F3", "MFC-300", "Q3", "L", "SHARED"),
		formula("F2", "MFC-200", "Q2", "L", "P1"),
		formula("F1", "MFC-100", "P1", "L", "SHARED"),
	}
	owner := linkCodes(formulas)
	assert.Equal(t, 2, owner["P1"], "the main product code owner wins")
	assert.Equal(t, 2, owner["SHARED"], "then the lowest master card number")
	assert.Equal(t, 0, owner["Q3"])
}

func TestNormalizeLicense(t *testing.T) {
	assert.Equal(t, NormalizeLicense("MH / 123  "), NormalizeLicense("mh/123"))
	assert.Equal(t, "MH/123", NormalizeLicense("\tmh/ 123\n"))
	assert.Empty(t, NormalizeLicense(" n/a "))
	assert.NotEqual(t, NormalizeLicense("MH/123"), NormalizeLicense("MH/124"))
}

func TestBuildMissingLicenceIsCriticalMismatch(t *testing.T) {
	formulas := []model.FormulaMaster{
		formula("F1", "MFC-100", "P1", ""),
		formula("F2", "MFC-200", "P2", "MH/1"),
	}
	registries := []model.BatchRegistry{registry("r.xml",
		item("B1", "P1", ""),
		item("B2", "P1", "N/A"),
		item("B3", "P2", " n/a "),
		item("B4", "P2", "mh / 1"),
	)}

	r := Build(formulas, registries, nil)

	assert.Equal(t, 1, r.Summary.ReconciledBatches)
	assert.Equal(t, 3, r.Summary.MismatchedBatches)
	assert.Equal(t, model.ReconNot, r.Formulas[0].Status)
	require.Len(t, r.LicenseMismatches, 3)
	for _, m := range r.LicenseMismatches {
		assert.Equal(t, model.SeverityCritical, m.Severity)
		assert.Equal(t, "batch has no manufacturing licence", m.Reason)
	}
	assert.True(t, r.Summary.CountsConsistent)
}

func TestFormulaStatus(t *testing.T) {
	tests := []struct {
		stats model.FormulaStatsSummary
		want  string
	}{
		{model.FormulaStatsSummary{}, model.ReconNoBatches},
		{model.FormulaStatsSummary{TotalBatches: 2, ReconciledBatches: 2}, model.ReconFully},
		{model.FormulaStatsSummary{TotalBatches: 2, ReconciledBatches: 1, MismatchedBatches: 1}, model.ReconPartially},
		{model.FormulaStatsSummary{TotalBatches: 1, MismatchedBatches: 1}, model.ReconNot},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, formulaStatus(tt.stats))
		})
	}
}

func TestRequisitionSummary(t *testing.T) {
	reqs := []model.RequisitionRecord{{Batches: []model.RequisitionBatch{
		{BatchNumber: "B1", Materials: []model.RequisitionMaterial{
			{ValidationStatus: model.ValidationMatched},
			{ValidationStatus: model.ValidationMismatch},
		}},
		{BatchNumber: "B7", Materials: []model.RequisitionMaterial{{}}},
	}}}
	r := Build(nil, []model.BatchRegistry{registry("r.xml", item("B1", "P1", "L"))}, reqs)

	assert.Equal(t, model.RequisitionSummary{
		TotalRequisitions:      1,
		TotalMaterials:         3,
		MatchedMaterials:       1,
		MismatchedMaterials:    1,
		PendingMaterials:       1,
		BatchesWithoutRegistry: []string{"B7"},
	}, r.Requisitions)
}
