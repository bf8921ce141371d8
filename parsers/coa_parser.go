package parsers

import (
	"regexp"
	"strings"

	"mfgdocs/model"
	"mfgdocs/xmltree"
)

var (
	coaTestTags = []string{"G_TEST", "G_TESTS", "G_PARAM", "G_PARAMETER"}
	resultUnit  = regexp.MustCompile(`(?i)(%|mg|mcg|ppm|iu)\s*(?:w/w|w/v)?\s*$`)
)

// ParseCOA extracts one certificate of analysis. The batch number is the
// mandatory key; everything else degrades to N/A with a warning.
func ParseCOA(content string) Result[model.COARecord] {
	res := Result[model.COARecord]{Success: true}

	root, err := parseTree(content)
	if err != nil {
		res.fail("%v", err)
		return res
	}

	batchNo := root.DeepValue("BATCHNO", "BATCH_NO", "BATCHNUMBER")
	if batchNo == "" {
		res.fail("%v: certificate carries no batch number", ErrMissingContainer)
		return res
	}

	c := model.COARecord{
		BatchNumber:  batchNo,
		Stage:        coaStage(root, content),
		ARNumber:     orNA(root.DeepValue("FGARNO", "ARNO", "BULKARNO", "AR_NO")),
		ProductCode:  root.DeepValue("ITEMCODE", "ITMCODE", "PRODCODE", "MATCODE"),
		ProductName:  orNA(root.DeepValue("ITEMNAME", "ITMNAME", "PRODNAME")),
		MfgDate:      orNA(root.DeepValue("MFGDATE", "MFGDT", "MFCDT")),
		ExpiryDate:   orNA(root.DeepValue("EXPDATE", "EXPDT", "EXPIRYDATE")),
		BatchSize:    orNA(root.DeepValue("BATCHSIZE", "BATSIZE")),
		AnalysisDate: orNA(root.DeepValue("ANALYSISDT", "ANALYSISDATE", "ANLDATE")),
		Conclusion:   orNA(root.DeepValue("CONCLUSION", "RESULTSTATUS", "FINALREMARK")),
	}
	if c.ARNumber == model.NotAvailable {
		res.warn("analytical report number missing")
	}
	if c.ProductCode == "" {
		res.warn("product code missing")
	}

	analysis := &model.COAAnalysis{
		Description: root.DeepValue("DESCRIPTION", "APPEARANCE"),
	}
	tests := root.All(coaTestTags...)
	if len(tests) == 0 {
		res.warn("no test rows found")
	}
	for _, t := range tests {
		classifyTest(analysis, t)
	}
	if analysis.Description == "" {
		analysis.Description = model.NotAvailable
	}

	if c.Stage == model.StageBulk {
		c.Bulk = analysis
	} else {
		c.Finish = analysis
		c.FinishDetails = &model.FinishDetails{
			PackSize:     orNA(root.DeepValue("PACKSIZE", "PACK")),
			Market:       orNA(root.DeepValue("MARKET", "COUNTRY", "MARKETNAME")),
			ReleaseDate:  orNA(root.DeepValue("RELEASEDT", "RELEASEDATE")),
			QuantityPack: orNA(root.DeepValue("QTYPACK", "QTYPACKED", "PACKEDQTY")),
		}
	}

	c.Status = model.RecordComplete
	if len(res.Warnings) > 0 {
		c.Status = model.RecordPartial
		c.ParsingErrors = append(c.ParsingErrors, res.Warnings...)
	}
	res.Data = c
	return res
}

// coaStage reads an explicit stage field first, then bulk report markers.
func coaStage(root *xmltree.Node, content string) string {
	if v := root.DeepValue("STAGE", "ANLSTAGE", "CERTSTAGE"); v != "" {
		if containsAny(v, "BULK") {
			return model.StageBulk
		}
		return model.StageFinish
	}
	if containsAny(root.Tag, "BULK") || containsAny(root.DeepValue("REPORTNAME", "REPORT"), "BULK") {
		return model.StageBulk
	}
	if containsAny(content, "BULKANLCERT") {
		return model.StageBulk
	}
	return model.StageFinish
}

func classifyTest(a *model.COAAnalysis, n *xmltree.Node) {
	t := model.COATest{
		TestName:      n.Value("TESTNAME", "TEST", "PARAMETER", "PARAMNAME"),
		Specification: n.Value("SPECLIMIT", "SPEC", "SPECIFICATION", "LIMIT"),
		Result:        n.Value("RESULT", "RESULTS", "OBSERVATION"),
		Method:        n.Value("METHOD", "TESTMETHOD"),
		Remarks:       n.Value("REMARKS", "REMARK"),
	}
	if t.TestName == "" {
		return
	}

	switch name := strings.ToUpper(t.TestName); {
	case strings.Contains(name, "ASSAY") || strings.HasPrefix(name, "CONTENT OF"):
		a.AssayResults = append(a.AssayResults, model.AssayResult{
			Component: assayComponent(t.TestName),
			Limit:     t.Specification,
			Result:    t.Result,
			Unit:      strings.ToLower(strings.TrimSpace(resultUnit.FindString(t.Result))),
		})
	case strings.Contains(name, "IDENTIFICATION") || strings.Contains(name, "IDENTITY"):
		a.IdentificationTests = append(a.IdentificationTests, t)
	case strings.Contains(name, "RELATED SUBSTANCE") || strings.Contains(name, "IMPURIT"):
		a.RelatedSubstances = append(a.RelatedSubstances, t)
	case name == "DESCRIPTION" || name == "APPEARANCE":
		if a.Description == "" {
			a.Description = t.Result
		}
	default:
		a.TestParameters = append(a.TestParameters, t)
	}
}

// assayComponent turns "Assay of Paracetamol" or "Assay (Paracetamol)" into
// the component name; a bare "Assay" stays as is.
func assayComponent(testName string) string {
	s := strings.TrimSpace(testName)
	upper := strings.ToUpper(s)
	for _, prefix := range []string{"ASSAY OF ", "ASSAY FOR ", "CONTENT OF ", "ASSAY"} {
		if strings.HasPrefix(upper, prefix) {
			rest := strings.Trim(strings.TrimSpace(s[len(prefix):]), "():- ")
			if rest != "" {
				return rest
			}
			break
		}
	}
	return s
}
