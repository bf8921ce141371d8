package model

import "time"

const (
	CategoryRM  = "RM"
	CategoryPPM = "PPM"
	CategoryPM  = "PM"
)

const (
	ValidationMatched  = "matched"
	ValidationMismatch = "mismatch"
	ValidationPending  = "pending"
)

type RequisitionMaterial struct {
	MatReqDtlID      string   `json:"matReqDtlId"`
	MaterialCode     string   `json:"materialCode"`
	MaterialName     string   `json:"materialName"`
	MaterialType     string   `json:"materialType"`
	Category         string   `json:"category"`
	ProcessName      string   `json:"processName"`
	StageName        string   `json:"stageName"`
	RequiredQuantity float64  `json:"requiredQuantity"`
	QuantityToIssue  float64  `json:"quantityToIssue"`
	Uom              string   `json:"uom"`
	ArNumber         string   `json:"arNumber,omitempty"`
	ValidationStatus string   `json:"validationStatus,omitempty"`
	FormulaQuantity  *float64 `json:"formulaQuantity,omitempty"`
	VariancePercent  *float64 `json:"variancePercent,omitempty"`
}

type RequisitionBatch struct {
	BatchNumber string                `json:"batchNumber"`
	ItemCode    string                `json:"itemCode"`
	ItemName    string                `json:"itemName"`
	MasterCard  string                `json:"masterCardNo"`
	MatReqNo    string                `json:"matReqNo"`
	ReqDate     string                `json:"reqDate"`
	BatchSize   string                `json:"batchSize"`
	Materials   []RequisitionMaterial `json:"materials"`
	RMCount     int                   `json:"rmCount"`
	PPMCount    int                   `json:"ppmCount"`
	PMCount     int                   `json:"pmCount"`
}

// Recount refreshes the RM/PPM/PM counters from the material list.
func (b *RequisitionBatch) Recount() {
	b.RMCount, b.PPMCount, b.PMCount = 0, 0, 0
	for _, m := range b.Materials {
		switch m.Category {
		case CategoryPPM:
			b.PPMCount++
		case CategoryPM:
			b.PMCount++
		default:
			b.RMCount++
		}
	}
}

type RequisitionRecord struct {
	ID             string             `json:"id"`
	FileName       string             `json:"fileName"`
	ContentHash    string             `json:"contentHash"`
	LocationCode   string             `json:"locationCode"`
	Make           string             `json:"make"`
	Batches        []RequisitionBatch `json:"batches"`
	TotalMaterials int                `json:"totalMaterials"`
	Healed         bool               `json:"healed"`
	Status         string             `json:"status"`
	ParsingErrors  []string           `json:"parsingErrors,omitempty"`
	RawXML         string             `json:"-"`
	RawArchivePath string             `json:"rawArchivePath,omitempty"`
	CreatedAt      time.Time          `json:"createdAt"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

// MaterialIDs lists every matReqDtlId in document order.
func (r RequisitionRecord) MaterialIDs() []string {
	var ids []string
	for _, b := range r.Batches {
		for _, m := range b.Materials {
			ids = append(ids, m.MatReqDtlID)
		}
	}
	return ids
}
