package model

import "time"

const (
	ReconFully     = "fully_reconciled"
	ReconPartially = "partially_reconciled"
	ReconNot       = "not_reconciled"
	ReconNoBatches = "no_batches"
)

const (
	SeverityCritical = "CRITICAL"
	RiskHigh         = "HIGH"
	RiskMedium       = "MEDIUM"
	RiskLow          = "LOW"
)

type BatchOutcome struct {
	BatchNumber    string `json:"batchNumber"`
	ItemCode       string `json:"itemCode"`
	ItemName       string `json:"itemName"`
	BatchLicense   string `json:"batchLicense"`
	FormulaLicense string `json:"formulaLicense"`
	Matched        bool   `json:"licenseMatched"`
	RegistryFile   string `json:"registryFile"`
}

type FormulaStatsSummary struct {
	TotalBatches      int `json:"totalBatches"`
	ReconciledBatches int `json:"reconciledBatches"`
	MismatchedBatches int `json:"mismatchedBatches"`
}

type FormulaReconciliation struct {
	FormulaID    string              `json:"formulaId"`
	MasterCardNo string              `json:"masterCardNo"`
	ProductCode  string              `json:"productCode"`
	ProductName  string              `json:"productName"`
	LicenseNo    string              `json:"licenseNo"`
	LinkedCodes  []string            `json:"linkedCodes"`
	Status       string              `json:"status"`
	Stats        FormulaStatsSummary `json:"stats"`
	BatchDetails []BatchOutcome      `json:"batchDetails"`
}

type OrphanBatchGroup struct {
	ItemCode       string   `json:"itemCode"`
	ItemName       string   `json:"itemName"`
	BatchCount     int      `json:"batchCount"`
	BatchNumbers   []string `json:"batchNumbers"`
	ComplianceRisk bool     `json:"complianceRisk"`
	RiskLevel      string   `json:"riskLevel"`
}

type LicenseMismatch struct {
	BatchNumber    string `json:"batchNumber"`
	ItemCode       string `json:"itemCode"`
	MasterCardNo   string `json:"masterCardNo"`
	BatchLicense   string `json:"batchLicense"`
	FormulaLicense string `json:"formulaLicense"`
	Severity       string `json:"severity"`
	Reason         string `json:"reason"`
}

type RequisitionSummary struct {
	TotalRequisitions      int      `json:"totalRequisitions"`
	TotalMaterials         int      `json:"totalMaterials"`
	MatchedMaterials       int      `json:"matchedMaterials"`
	MismatchedMaterials    int      `json:"mismatchedMaterials"`
	PendingMaterials       int      `json:"pendingMaterials"`
	BatchesWithoutRegistry []string `json:"batchesWithoutRegistry"`
}

type Recommendation struct {
	Priority string   `json:"priority"`
	Category string   `json:"category"`
	Message  string   `json:"message"`
	Count    int      `json:"count"`
	Subjects []string `json:"subjects,omitempty"`
}

type ReconciliationSummary struct {
	TotalFormulas                 int     `json:"totalFormulas"`
	FormulasFullyReconciled       int     `json:"formulasFullyReconciled"`
	FormulasPartiallyReconciled   int     `json:"formulasPartiallyReconciled"`
	FormulasNotReconciled         int     `json:"formulasNotReconciled"`
	FormulasWithoutBatches        int     `json:"formulasWithoutBatches"`
	TotalBatchesInSystem          int     `json:"totalBatchesInSystem"`
	BatchesMatchedToFormula       int     `json:"batchesMatchedToFormula"`
	BatchesNotMatchedToFormula    int     `json:"batchesNotMatchedToFormula"`
	ReconciledBatches             int     `json:"reconciledBatches"`
	MismatchedBatches             int     `json:"mismatchedBatches"`
	BatchReconciliationPercentage float64 `json:"batchReconciliationPercentage"`
	CountsConsistent              bool    `json:"countsConsistent"`
	ComplianceScore               float64 `json:"complianceScore"`
}

type ReconciliationReport struct {
	GeneratedAt       time.Time               `json:"generatedAt"`
	Summary           ReconciliationSummary   `json:"summary"`
	Formulas          []FormulaReconciliation `json:"formulas"`
	OrphanBatches     []OrphanBatchGroup      `json:"orphanBatches"`
	LicenseMismatches []LicenseMismatch       `json:"licenseMismatches"`
	Requisitions      RequisitionSummary      `json:"requisitions"`
	Recommendations   []Recommendation        `json:"recommendations"`
}
