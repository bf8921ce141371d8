package detect

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mfgdocs/model"
)

const batchXML = `<?xml version="1.0"?>
<BATCHCRREGI>
  <COMPANYNAME>Acme Pharma</COMPANYNAME>
  <LIST_G_MATCODE>
    <G_MATCODE><BATCHNO>B001</BATCHNO><MATCODE>P1</MATCODE><MFCDT>01-JAN-24</MFCDT><MFGLICNO>MH/123</MFGLICNO><MRP></MRP></G_MATCODE>
  </LIST_G_MATCODE>
</BATCHCRREGI>`

const formulaXML = `<FORMULAMAST>
  <LIST_G_MCADNO><G_MCADNO>
    <MCADNO>MFC-100</MCADNO><ITMCODE>P1</ITMCODE><REVNO>1</REVNO><GENERICNAME>Para</GENERICNAME>
    <LABELCLAIM>Each tablet contains Paracetamol IP 500 mg</LABELCLAIM><MFGLICNO>MH/123</MFGLICNO><BATCHUOM>NOS</BATCHUOM>
    <G_PROCESS><PROCNAME>FILLING</PROCNAME></G_PROCESS>
  </G_MCADNO></LIST_G_MCADNO>
</FORMULAMAST>`

const coaXML = `<FGANLCERT>
  <FGARNO>AR-1</FGARNO><BATCHNO>B001</BATCHNO>
  <G_TEST><TESTNAME>Assay</TESTNAME><SPECLIMIT>95-105</SPECLIMIT><RESULT>99.1</RESULT></G_TEST>
  <ANALYSISDT>02-JAN-24</ANALYSISDT>
</FGANLCERT>`

const requisitionXML = `<MATREQ><LOCCODE>L1</LOCCODE><LIST_G_BATCH><G_BATCH><BATCHNO>B001</BATCHNO><MCADNO>MFC-100</MCADNO>`

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    model.FileType
	}{
		{"batch registry", batchXML, model.FileTypeBatch},
		{"formula card", formulaXML, model.FileTypeFormula},
		{"certificate of analysis", coaXML, model.FileTypeCOA},
		{"requisition root short-circuits", requisitionXML, model.FileTypeRequisition},
		{"requisition without root tag", `<ROOT><MATREQDTLID>1</MATREQDTLID><MATREQNO>R1</MATREQNO><QTYTOISSUE>2</QTYTOISSUE><REQQTY>2</REQQTY></ROOT>`, model.FileTypeRequisition},
		{"marker fallback", `<REPORT name="BATCHCRREGI"/>`, model.FileTypeBatch},
		{"formula marker fallback", `<X>FORMULAMAST</X>`, model.FileTypeFormula},
		{"unrelated xml", `<invoice><total>3</total></invoice>`, model.FileTypeUnknown},
		{"empty", "", model.FileTypeUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Detect(tt.content))
		})
	}
}

func TestDetectIsIdempotentAndCaseInsensitive(t *testing.T) {
	for _, content := range []string{batchXML, formulaXML, coaXML, requisitionXML} {
		first := Detect(content)
		assert.Equal(t, first, Detect(content))
		assert.Equal(t, first, Detect(strings.ToLower(content)))
		assert.Equal(t, first, Detect(strings.ToUpper(content)))
	}
}

func TestDetectSharedTokensNeedMargin(t *testing.T) {
	// Two batch tokens against two formula tokens: neither wins on margin.
	content := `<ROOT><BATCHNO>1</BATCHNO><MFCDT>x</MFCDT><MCADNO>2</MCADNO><REVNO>1</REVNO></ROOT>`
	assert.Equal(t, model.FileTypeUnknown, Detect(content))
}

func TestScores(t *testing.T) {
	s := New(DefaultRules()).Scores(coaXML)
	assert.Equal(t, 1, s[model.FileTypeBatch])
	assert.Equal(t, 0, s[model.FileTypeFormula])
	assert.GreaterOrEqual(t, s[model.FileTypeCOA], 5)
}

func TestLoadRules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	yml := `
coa:
  tokens: ["qcreport", "<testname>"]
  minHits: 2
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o644))

	rules, err := LoadRules(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"QCREPORT", "<TESTNAME>"}, rules.COA.Tokens)
	assert.Equal(t, DefaultRules().Batch.Tokens, rules.Batch.Tokens)
	assert.Equal(t, "<MATREQ>", rules.RequisitionRoot)

	d := New(rules)
	assert.Equal(t, model.FileTypeCOA, d.Detect(`<qcReport><TestName>pH</TestName></qcReport>`))
}

func TestLoadRulesMissingFile(t *testing.T) {
	rules, err := LoadRules(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Equal(t, DefaultRules().Requisition.MinHits, rules.Requisition.MinHits)
}
