package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mfgdocs/model"
)

func fill(code string) model.FillingDetail {
	return model.FillingDetail{ProductCode: code, ProductName: "Pack " + code}
}

func storedFormula() model.FormulaMaster {
	return model.FormulaMaster{
		ID:          "F1",
		ContentHash: "h1",
		MasterFormulaDetails: model.MasterFormulaDetails{
			MasterCardNo: "MFC-100",
			ProductCode:  "P1",
		},
		FillingDetails: []model.FillingDetail{fill("P1-10")},
		Processes: []model.FormulaProcess{
			{ProcessName: "Granulation", Sequence: 1},
			{ProcessName: "Strip Filling", Sequence: 2, FillingProducts: []model.FillingDetail{fill("P1-10")}},
		},
	}
}

func TestMergeFormulaNothingNew(t *testing.T) {
	existing := storedFormula()
	incoming := storedFormula()
	incoming.ContentHash = "h2"
	incoming.FillingDetails[0].ProductName = "renamed"

	merged, sum := MergeFormula(existing, incoming)
	assert.False(t, sum.Changed())
	assert.Equal(t, existing, merged)
	assert.Empty(t, merged.SourceHashes, "a true duplicate does not record its source")
}

func TestMergeFormulaIntoSameNamedProcess(t *testing.T) {
	existing := storedFormula()
	incoming := storedFormula()
	incoming.ContentHash = "h2"
	incoming.FillingDetails = append(incoming.FillingDetails, fill("P1-20"))
	incoming.Processes[1].ProcessName = "  strip filling "
	incoming.Processes[1].FillingProducts = append(incoming.Processes[1].FillingProducts, fill("P1-20"))

	merged, sum := MergeFormula(existing, incoming)
	require.True(t, sum.Changed())
	assert.Equal(t, []string{"P1-20"}, sum.NewItemCodes)
	assert.Equal(t, 1, sum.AddedFillingDetails)
	assert.Equal(t, 1, sum.MergedProcesses)
	assert.Equal(t, 0, sum.AddedProcesses)
	assert.True(t, sum.SourceHashAdded)

	assert.Len(t, merged.FillingDetails, 2)
	require.Len(t, merged.Processes, 2)
	assert.Len(t, merged.Processes[1].FillingProducts, 2)
	assert.Equal(t, "Strip Filling", merged.Processes[1].ProcessName)
	assert.Equal(t, []string{"h2"}, merged.SourceHashes)

	assert.Len(t, existing.FillingDetails, 1, "existing is not mutated")
	assert.Len(t, existing.Processes[1].FillingProducts, 1)
}

func TestMergeFormulaAppendsNewProcess(t *testing.T) {
	existing := storedFormula()
	incoming := storedFormula()
	incoming.ContentHash = "h3"
	incoming.FillingDetails = []model.FillingDetail{fill("P1-10"), fill("P1-B")}
	incoming.Processes = []model.FormulaProcess{
		{ProcessName: "Bottle Filling", Sequence: 1, FillingProducts: []model.FillingDetail{fill("P1-B"), fill("P1-10")}},
	}

	merged, sum := MergeFormula(existing, incoming)
	require.True(t, sum.Changed())
	assert.Equal(t, 1, sum.AddedProcesses)
	require.Len(t, merged.Processes, 3)
	added := merged.Processes[2]
	assert.Equal(t, "Bottle Filling", added.ProcessName)
	assert.Equal(t, 3, added.Sequence)
	assert.Equal(t, []model.FillingDetail{fill("P1-B")}, added.FillingProducts, "known codes are not copied")
}

func TestMergeFormulaSameFileDoesNotAddSourceHash(t *testing.T) {
	existing := storedFormula()
	incoming := storedFormula()
	incoming.FillingDetails = append(incoming.FillingDetails, fill("P1-30"))

	merged, sum := MergeFormula(existing, incoming)
	require.True(t, sum.Changed())
	assert.False(t, sum.SourceHashAdded)
	assert.Empty(t, merged.SourceHashes)
	assert.Len(t, merged.FillingDetails, 2)
}
