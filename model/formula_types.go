package model

import (
	"strings"
	"time"
)

type MasterFormulaDetails struct {
	MasterCardNo           string `json:"masterCardNo"`
	ProductCode            string `json:"productCode"`
	ProductName            string `json:"productName"`
	GenericName            string `json:"genericName"`
	RevisionNo             string `json:"revisionNo"`
	Manufacturer           string `json:"manufacturer"`
	ManufacturingLicenseNo string `json:"manufacturingLicenseNo"`
	ManufacturingLocation  string `json:"manufacturingLocation"`
	Specification          string `json:"specification"`
	ShelfLife              string `json:"shelfLife"`
	LabelClaim             string `json:"labelClaim"`
	DosageForm             string `json:"dosageForm"`
	EffectiveDate          string `json:"effectiveDate"`
}

type FormulaBatchInfo struct {
	BatchSize string `json:"batchSize"`
	BatchUom  string `json:"batchUom"`
	Potency   string `json:"potency,omitempty"`
}

type CompositionEntry struct {
	Ingredient string `json:"ingredient"`
	Standard   string `json:"standard,omitempty"`
	Strength   string `json:"strength"`
	Unit       string `json:"unit"`
}

type FormulaMaterial struct {
	MaterialCode string  `json:"materialCode"`
	MaterialName string  `json:"materialName"`
	MaterialType string  `json:"materialType"`
	SubType      string  `json:"subType,omitempty"`
	Quantity     float64 `json:"quantity"`
	Uom          string  `json:"uom"`
	Overage      string  `json:"overage,omitempty"`
	ProcessName  string  `json:"processName,omitempty"`
}

type FillingDetail struct {
	ProductCode string `json:"productCode"`
	ProductName string `json:"productName"`
	PackSize    string `json:"packSize"`
	FillQty     string `json:"fillQty"`
	Uom         string `json:"uom"`
}

type FormulaProcess struct {
	ProcessName     string            `json:"processName"`
	Sequence        int               `json:"sequence"`
	Materials       []FormulaMaterial `json:"materials,omitempty"`
	FillingProducts []FillingDetail   `json:"fillingProducts,omitempty"`
}

type FormulaMaster struct {
	ID                   string               `json:"id"`
	UniqueIdentifier     string               `json:"uniqueIdentifier"`
	MasterFormulaDetails MasterFormulaDetails `json:"masterFormulaDetails"`
	BatchInfo            FormulaBatchInfo     `json:"batchInfo"`
	Composition          []CompositionEntry   `json:"composition"`
	Materials            []FormulaMaterial    `json:"materials"`
	FillingDetails       []FillingDetail      `json:"fillingDetails"`
	Processes            []FormulaProcess     `json:"processes"`
	PackingMaterials     []FormulaMaterial    `json:"packingMaterials"`
	FileName             string               `json:"fileName"`
	ContentHash          string               `json:"contentHash"`
	SourceHashes         []string             `json:"sourceHashes,omitempty"`
	Status               string               `json:"status"`
	ParsingErrors        []string             `json:"parsingErrors,omitempty"`
	RawXML               string               `json:"-"`
	RawArchivePath       string               `json:"rawArchivePath,omitempty"`
	CreatedAt            time.Time            `json:"createdAt"`
	UpdatedAt            time.Time            `json:"updatedAt"`
}

// HasMasterCard reports whether the MFC number can serve as business key.
func (f FormulaMaster) HasMasterCard() bool {
	mc := strings.TrimSpace(f.MasterFormulaDetails.MasterCardNo)
	return mc != "" && !strings.EqualFold(mc, NotAvailable)
}

// BusinessKey is the MFC number when present, else productCode|revisionNo.
func (f FormulaMaster) BusinessKey() string {
	if f.HasMasterCard() {
		return strings.TrimSpace(f.MasterFormulaDetails.MasterCardNo)
	}
	return strings.TrimSpace(f.MasterFormulaDetails.ProductCode) + "|" + strings.TrimSpace(f.MasterFormulaDetails.RevisionNo)
}

// ItemCodes returns the filling-detail and process filling-product codes.
func (f FormulaMaster) ItemCodes() map[string]struct{} {
	codes := make(map[string]struct{})
	for _, fd := range f.FillingDetails {
		if c := strings.TrimSpace(fd.ProductCode); c != "" {
			codes[c] = struct{}{}
		}
	}
	for _, p := range f.Processes {
		for _, fp := range p.FillingProducts {
			if c := strings.TrimSpace(fp.ProductCode); c != "" {
				codes[c] = struct{}{}
			}
		}
	}
	return codes
}

// LinkedProductCodes is the main product code plus every item code.
func (f FormulaMaster) LinkedProductCodes() map[string]struct{} {
	codes := f.ItemCodes()
	if c := strings.TrimSpace(f.MasterFormulaDetails.ProductCode); c != "" && !strings.EqualFold(c, NotAvailable) {
		codes[c] = struct{}{}
	}
	return codes
}
