package parsers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mfgdocs/model"
)

const requisition = `<MATREQ>
 <LOCCODE>LOC1</LOCCODE><MAKE>Acme</MAKE>
 <LIST_G_BATCH>
  <G_BATCH>
   <BATCHNO>B001</BATCHNO><ITEMCODE>P1</ITEMCODE><MCADNO>MFC-100</MCADNO><MATREQNO>MR-1</MATREQNO>
   <LIST_G_PROCESS>
    <G_PROCESS><PROCESSNAME>Granulation</PROCESSNAME>
     <LIST_G_STAGE><G_STAGE><STAGENAME>Dry mix</STAGENAME>
      <LIST_G_MATERIAL>
       <G_MATERIAL><MATREQDTLID>1001</MATREQDTLID><MATCODE>RM1</MATCODE><MATTYPE>RM</MATTYPE><REQQTY>50.5</REQQTY><QTYTOISSUE>50.5</QTYTOISSUE><UOM>KG</UOM></G_MATERIAL>
       <G_MATERIAL><MATREQDTLID>1002</MATREQDTLID><MATCODE>PM9</MATCODE><MATTYPE>PM</MATTYPE><REQQTY>1</REQQTY><QTYTOISSUE>1</QTYTOISSUE></G_MATERIAL>
      </LIST_G_MATERIAL>
     </G_STAGE></LIST_G_STAGE>
    </G_PROCESS>
    <G_PROCESS><PROCESSNAME>FILLING</PROCESSNAME>
     <G_STAGE><STAGENAME>Strip</STAGENAME>
      <G_MATERIAL><MATREQDTLID>1003</MATREQDTLID><MATCODE>RM7</MATCODE><MATTYPE>RM</MATTYPE><REQQTY>2</REQQTY><QTYTOISSUE>2</QTYTOISSUE></G_MATERIAL>
     </G_STAGE>
    </G_PROCESS>
   </LIST_G_PROCESS>
  </G_BATCH>
 </LIST_G_BATCH>
</MATREQ>`

func TestParseRequisition(t *testing.T) {
	res := ParseRequisition(requisition)
	require.True(t, res.Success, res.Errors)
	assert.Empty(t, res.Warnings)

	rec := res.Data
	assert.Equal(t, "LOC1", rec.LocationCode)
	assert.Equal(t, "Acme", rec.Make)
	assert.False(t, rec.Healed)
	assert.Equal(t, 3, rec.TotalMaterials)
	require.Len(t, rec.Batches, 1)

	b := rec.Batches[0]
	assert.Equal(t, "MFC-100", b.MasterCard)
	assert.Equal(t, "MR-1", b.MatReqNo)
	require.Len(t, b.Materials, 3)
	assert.Equal(t, 1, b.RMCount)
	assert.Equal(t, 1, b.PPMCount)
	assert.Equal(t, 1, b.PMCount)

	first := b.Materials[0]
	assert.Equal(t, "1001", first.MatReqDtlID)
	assert.Equal(t, "Granulation", first.ProcessName)
	assert.Equal(t, "Dry mix", first.StageName)
	assert.Equal(t, model.CategoryRM, first.Category)
	assert.InDelta(t, 50.5, first.QuantityToIssue, 1e-9)

	filled := b.Materials[2]
	assert.Equal(t, model.CategoryPPM, filled.Category, "filling process overrides declared type")
	assert.Equal(t, "Strip", filled.StageName)

	assert.Equal(t, []string{"1001", "1002", "1003"}, rec.MaterialIDs())
}

func TestParseRequisitionHealsTruncatedExport(t *testing.T) {
	cut := strings.Index(requisition, "<MATCODE>PM9")
	require.Positive(t, cut)
	truncated := requisition[:cut+len("<MATCODE>PM")]

	res := ParseRequisition(truncated)
	require.True(t, res.Success, res.Errors)
	assert.True(t, res.Data.Healed)
	assert.Equal(t, model.RecordPartial, res.Data.Status)
	assert.Contains(t, res.Warnings[0], "truncated export healed")

	require.Len(t, res.Data.Batches, 1)
	mats := res.Data.Batches[0].Materials
	require.Len(t, mats, 2)
	assert.Equal(t, "1002", mats[1].MatReqDtlID)
	assert.Equal(t, "PM", mats[1].MaterialCode)
}

func TestParseRequisitionWarnings(t *testing.T) {
	content := `<MATREQ><LOCCODE>L</LOCCODE><G_BATCH><BATCHNO>B1</BATCHNO>
	  <G_MATERIAL><MATCODE>X</MATCODE><MATTYPE>RM</MATTYPE></G_MATERIAL>
	  <G_MATERIAL><MATREQDTLID>9</MATREQDTLID><MATCODE>Y</MATCODE><MATTYPE>CONSUMABLE</MATTYPE><QTYTOISSUE>abc</QTYTOISSUE></G_MATERIAL>
	</G_BATCH></MATREQ>`

	res := ParseRequisition(content)
	require.True(t, res.Success, res.Errors)
	require.Len(t, res.Data.Batches[0].Materials, 1)
	m := res.Data.Batches[0].Materials[0]
	assert.Equal(t, model.CategoryRM, m.Category)
	assert.Equal(t, "", m.ProcessName)
	assert.Len(t, res.Warnings, 3)
}

func TestParseRequisitionWithoutBatches(t *testing.T) {
	res := ParseRequisition(`<MATREQ><LOCCODE>L</LOCCODE></MATREQ>`)
	assert.False(t, res.Success)
	assert.ErrorContains(t, res.Err(), ErrMissingContainer.Error())
}

func TestMaterialCategory(t *testing.T) {
	tests := []struct {
		typ, process, want string
		known              bool
	}{
		{"RM", "Blending", model.CategoryRM, true},
		{"Raw Material", "", model.CategoryRM, true},
		{"PPM", "", model.CategoryPPM, true},
		{"Packing", "", model.CategoryPM, true},
		{"PM", "Bottle filling", model.CategoryPPM, true},
		{"", "", model.CategoryRM, false},
	}
	for _, tt := range tests {
		got, known := materialCategory(tt.typ, tt.process)
		assert.Equal(t, tt.want, got, tt.typ+"/"+tt.process)
		assert.Equal(t, tt.known, known)
	}
}
