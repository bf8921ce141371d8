package parsers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mfgdocs/model"
)

const batchRegister = `<?xml version="1.0" encoding="UTF-8"?>
<BATCHCRREGI>
  <CF_COMPANYNAME>Acme Pharma Ltd</CF_COMPANYNAME>
  <CF_ADDRESS>Plot 7, MIDC</CF_ADDRESS>
  <LIST_G_MATCODE>
    <G_MATCODE>
      <BATCHNO>B001</BATCHNO><MATCODE>P1</MATCODE><MATNAME>Paracetamol Tabs</MATNAME>
      <MFCDT>01/2024</MFCDT><EXPDT>12/2026</EXPDT><BATCHSIZE>100000</BATCHSIZE><UOM>NOS</UOM>
      <MFGLICNO>MH/123</MFGLICNO><MRP></MRP><DEPT>TAB</DEPT>
    </G_MATCODE>
    <G_MATCODE>
      <BATCHNO>B002</BATCHNO><MATCODE>P1</MATCODE><MATNAME>Paracetamol Tabs</MATNAME>
      <MFGLICNO>MH/123</MFGLICNO><MRP>   </MRP>
    </G_MATCODE>
    <G_MATCODE>
      <BATCHNO>B003</BATCHNO><ITEMCODE>P2</ITEMCODE><MATNAME>Cough Syrup</MATNAME>
      <MFGLICNO>MH/123</MFGLICNO><MRP>45.00</MRP><CONVRATIO>1</CONVRATIO>
    </G_MATCODE>
  </LIST_G_MATCODE>
</BATCHCRREGI>`

func TestParseBatchRegistry(t *testing.T) {
	res := ParseBatchRegistry(batchRegister)
	require.True(t, res.Success, res.Errors)

	reg := res.Data
	assert.Equal(t, "Acme Pharma Ltd", reg.CompanyName)
	assert.Equal(t, "Plot 7, MIDC", reg.CompanyAddress)
	require.Len(t, reg.Batches, 3)
	assert.Equal(t, 3, reg.TotalBatches)
	assert.Equal(t, 2, reg.ExportCount)
	assert.Equal(t, 1, reg.ImportCount)

	first := reg.Batches[0]
	assert.Equal(t, 1, first.SrNo)
	assert.Equal(t, "B001", first.BatchNumber)
	assert.Equal(t, "P1", first.ItemCode)
	assert.Equal(t, "01/2024", first.MfgDate)
	assert.Equal(t, model.BatchTypeExport, first.Type)
	assert.Equal(t, "TAB", first.Department)

	assert.Equal(t, model.BatchTypeExport, reg.Batches[1].Type, "whitespace-only MRP is blank")
	assert.Equal(t, model.NotAvailable, reg.Batches[1].MfgDate)

	third := reg.Batches[2]
	assert.Equal(t, 3, third.SrNo)
	assert.Equal(t, "P2", third.ItemCode)
	assert.Equal(t, model.BatchTypeImport, third.Type)
	assert.Equal(t, "45.00", third.MrpValue)
	assert.Equal(t, model.RecordComplete, reg.Status)
}

func TestParseBatchRegistryGroupedLayout(t *testing.T) {
	content := `<BATCHCRREGI><LIST_G_MATCODE><G_MATCODE><MATCODE>P9</MATCODE><MATNAME>Gel</MATNAME>
		<LIST_G_BATCHNO>
		  <G_BATCHNO><BATCHNO>X1</BATCHNO><MFGLICNO>L1</MFGLICNO></G_BATCHNO>
		  <G_BATCHNO><BATCHNO>X2</BATCHNO><MFGLICNO>L1</MFGLICNO><MRP>10</MRP></G_BATCHNO>
		</LIST_G_BATCHNO></G_MATCODE></LIST_G_MATCODE></BATCHCRREGI>`

	res := ParseBatchRegistry(content)
	require.True(t, res.Success, res.Errors)
	require.Len(t, res.Data.Batches, 2)
	assert.Equal(t, "P9", res.Data.Batches[0].ItemCode)
	assert.Equal(t, "Gel", res.Data.Batches[1].ItemName)
	assert.Equal(t, 1, res.Data.ImportCount)
	assert.Equal(t, model.NotAvailable, res.Data.CompanyName)
	assert.Equal(t, model.RecordPartial, res.Data.Status)
}

func TestParseBatchRegistryWarningsAndErrors(t *testing.T) {
	t.Run("row without item code is skipped", func(t *testing.T) {
		content := `<BATCHCRREGI><COMPANYNAME>A</COMPANYNAME><LIST_G_MATCODE>
			<G_MATCODE><BATCHNO>B1</BATCHNO></G_MATCODE>
			<G_MATCODE><BATCHNO>B2</BATCHNO><MATCODE>P1</MATCODE><MFGLICNO>L</MFGLICNO></G_MATCODE>
			</LIST_G_MATCODE></BATCHCRREGI>`
		res := ParseBatchRegistry(content)
		require.True(t, res.Success)
		require.Len(t, res.Data.Batches, 1)
		assert.Equal(t, 1, res.Data.Batches[0].SrNo)
		assert.Len(t, res.Warnings, 1)
		assert.Equal(t, model.RecordPartial, res.Data.Status)
		assert.Equal(t, res.Warnings, res.Data.ParsingErrors)
	})

	t.Run("missing batch list", func(t *testing.T) {
		res := ParseBatchRegistry(`<BATCHCRREGI><COMPANYNAME>A</COMPANYNAME></BATCHCRREGI>`)
		assert.False(t, res.Success)
		assert.ErrorContains(t, res.Err(), ErrMissingContainer.Error())
	})

	t.Run("empty batch list", func(t *testing.T) {
		res := ParseBatchRegistry(`<BATCHCRREGI><LIST_G_MATCODE></LIST_G_MATCODE></BATCHCRREGI>`)
		assert.False(t, res.Success)
	})

	t.Run("malformed xml", func(t *testing.T) {
		res := ParseBatchRegistry(`<BATCHCRREGI><LIST_G_MATCODE>`)
		assert.False(t, res.Success)
		assert.Contains(t, res.Errors[0], "malformed xml")
	})
}
