package model

import "time"

const (
	StageBulk   = "BULK"
	StageFinish = "FINISH"
)

type COATest struct {
	TestName      string `json:"testName"`
	Specification string `json:"specification"`
	Result        string `json:"result"`
	Method        string `json:"method,omitempty"`
	Remarks       string `json:"remarks,omitempty"`
}

type AssayResult struct {
	Component string `json:"component"`
	Limit     string `json:"limit"`
	Result    string `json:"result"`
	Unit      string `json:"unit,omitempty"`
}

type COAAnalysis struct {
	Description         string        `json:"description"`
	TestParameters      []COATest     `json:"testParameters"`
	AssayResults        []AssayResult `json:"assayResults"`
	IdentificationTests []COATest     `json:"identificationTests"`
	RelatedSubstances   []COATest     `json:"relatedSubstances"`
}

// FinishDetails holds the packing fields only finished-goods certificates carry.
type FinishDetails struct {
	PackSize     string `json:"packSize"`
	Market       string `json:"market"`
	ReleaseDate  string `json:"releaseDate"`
	QuantityPack string `json:"quantityPack"`
}

type COARecord struct {
	ID             string         `json:"id"`
	BatchNumber    string         `json:"batchNumber"`
	Stage          string         `json:"stage"`
	ARNumber       string         `json:"arNumber"`
	ProductCode    string         `json:"productCode"`
	ProductName    string         `json:"productName"`
	MfgDate        string         `json:"mfgDate"`
	ExpiryDate     string         `json:"expiryDate"`
	BatchSize      string         `json:"batchSize"`
	AnalysisDate   string         `json:"analysisDate"`
	Conclusion     string         `json:"conclusion"`
	Bulk           *COAAnalysis   `json:"bulk,omitempty"`
	Finish         *COAAnalysis   `json:"finish,omitempty"`
	FinishDetails  *FinishDetails `json:"finishDetails,omitempty"`
	FileName       string         `json:"fileName"`
	ContentHash    string         `json:"contentHash"`
	Status         string         `json:"status"`
	ParsingErrors  []string       `json:"parsingErrors,omitempty"`
	RawXML         string         `json:"-"`
	RawArchivePath string         `json:"rawArchivePath,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// Analysis returns the sub-structure matching the record's stage.
func (c *COARecord) Analysis() *COAAnalysis {
	if c.Stage == StageBulk {
		return c.Bulk
	}
	return c.Finish
}
