package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mfgdocs/model"
)

func TestValidateRequisition(t *testing.T) {
	formula := &model.FormulaMaster{
		Materials:        []model.FormulaMaterial{{MaterialCode: "RM1", Quantity: 50}},
		PackingMaterials: []model.FormulaMaterial{{MaterialCode: "PM1", Quantity: 2}},
		Processes: []model.FormulaProcess{
			{Materials: []model.FormulaMaterial{{MaterialCode: "RM1", Quantity: 999}, {MaterialCode: "RM2", Quantity: 0}}},
		},
	}
	batch := model.RequisitionBatch{Materials: []model.RequisitionMaterial{
		{MatReqDtlID: "1", MaterialCode: "rm1 ", QuantityToIssue: 50.005},
		{MatReqDtlID: "2", MaterialCode: "PM1", QuantityToIssue: 2.5},
		{MatReqDtlID: "3", MaterialCode: "RM2", QuantityToIssue: 0},
		{MatReqDtlID: "4", MaterialCode: "XX9", QuantityToIssue: 1},
	}}

	sum := ValidateRequisition(&batch, formula, 0.01)
	assert.Equal(t, ValidationSummary{Matched: 2, Mismatch: 1, Pending: 1}, sum)

	m := batch.Materials
	assert.Equal(t, model.ValidationMatched, m[0].ValidationStatus)
	require.NotNil(t, m[0].FormulaQuantity)
	assert.Equal(t, 50.0, *m[0].FormulaQuantity, "first declaration wins")
	require.NotNil(t, m[0].VariancePercent)
	assert.Equal(t, 0.01, *m[0].VariancePercent)

	assert.Equal(t, model.ValidationMismatch, m[1].ValidationStatus)
	assert.Equal(t, 25.0, *m[1].VariancePercent)

	assert.Equal(t, model.ValidationMatched, m[2].ValidationStatus)
	assert.Nil(t, m[2].VariancePercent, "no variance against a zero requirement")

	assert.Equal(t, model.ValidationPending, m[3].ValidationStatus)
	assert.Nil(t, m[3].FormulaQuantity)
}

func TestValidateRequisitionWithoutFormula(t *testing.T) {
	q := 1.0
	batch := model.RequisitionBatch{Materials: []model.RequisitionMaterial{
		{MaterialCode: "RM1", QuantityToIssue: 1, ValidationStatus: model.ValidationMatched, FormulaQuantity: &q},
	}}
	sum := ValidateRequisition(&batch, nil, 0.01)
	assert.Equal(t, ValidationSummary{Pending: 1}, sum)
	assert.Equal(t, model.ValidationPending, batch.Materials[0].ValidationStatus)
	assert.Nil(t, batch.Materials[0].FormulaQuantity)
}
