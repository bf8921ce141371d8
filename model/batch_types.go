package model

import "time"

const (
	BatchTypeExport = "Export"
	BatchTypeImport = "Import"
)

type BatchItem struct {
	SrNo            int    `json:"srNo"`
	BatchNumber     string `json:"batchNumber"`
	ItemCode        string `json:"itemCode"`
	ItemName        string `json:"itemName"`
	MfgDate         string `json:"mfgDate"`
	ExpiryDate      string `json:"expiryDate"`
	BatchSize       string `json:"batchSize"`
	Unit            string `json:"unit"`
	BatchUom        string `json:"batchUom"`
	Type            string `json:"type"`
	MfgLicNo        string `json:"mfgLicNo"`
	Department      string `json:"department"`
	Pack            string `json:"pack"`
	Year            string `json:"year"`
	Make            string `json:"make"`
	LocationID      string `json:"locationId"`
	MrpValue        string `json:"mrpValue"`
	ConversionRatio string `json:"conversionRatio"`
}

// Key is the cross-document dedup identity of a batch item.
func (b BatchItem) Key() string {
	return b.BatchNumber + "|" + b.ItemCode
}

type BatchRegistry struct {
	ID             string      `json:"id"`
	FileName       string      `json:"fileName"`
	ContentHash    string      `json:"contentHash"`
	CompanyName    string      `json:"companyName"`
	CompanyAddress string      `json:"companyAddress"`
	Batches        []BatchItem `json:"batches"`
	TotalBatches   int         `json:"totalBatches"`
	ExportCount    int         `json:"exportCount"`
	ImportCount    int         `json:"importCount"`
	Status         string      `json:"status"`
	ParsingErrors  []string    `json:"parsingErrors,omitempty"`
	RawXML         string      `json:"-"`
	RawArchivePath string      `json:"rawArchivePath,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// Recount renumbers items by position and recomputes the Export/Import totals.
func (r *BatchRegistry) Recount() {
	r.ExportCount, r.ImportCount = 0, 0
	for i := range r.Batches {
		r.Batches[i].SrNo = i + 1
		if r.Batches[i].Type == BatchTypeImport {
			r.ImportCount++
		} else {
			r.ExportCount++
		}
	}
	r.TotalBatches = len(r.Batches)
}
