package model

import "time"

type FileType string

const (
	FileTypeBatch       FileType = "BATCH"
	FileTypeFormula     FileType = "FORMULA"
	FileTypeCOA         FileType = "COA"
	FileTypeRequisition FileType = "REQUISITION"
	FileTypeUnknown     FileType = "UNKNOWN"
)

type ProcessingStatus string

const (
	StatusSuccess   ProcessingStatus = "SUCCESS"
	StatusDuplicate ProcessingStatus = "DUPLICATE"
	StatusError     ProcessingStatus = "ERROR"
)

// Record status of a stored document. Partial means warnings were recorded
// (missing optional fields, unparseable composition, raw payload dropped).
const (
	RecordComplete = "complete"
	RecordPartial  = "partial"
)

// NotAvailable is the sentinel stored for display fields the export left empty.
const NotAvailable = "N/A"

// RawDocument is a file read from the source folder. It is never persisted.
type RawDocument struct {
	FileName      string
	FileSizeBytes int64
	Content       string
	Raw           []byte
}

type ItemStats struct {
	Total     int `json:"total"`
	New       int `json:"new"`
	Duplicate int `json:"duplicate"`
}

type FormulaStats struct {
	TotalFormulas     int `json:"totalFormulas"`
	NewFormulas       int `json:"newFormulas"`
	MergedFormulas    int `json:"mergedFormulas"`
	DuplicateFormulas int `json:"duplicateFormulas"`
}

type ProcessingLogEntry struct {
	ContentHash  string           `db:"content_hash" json:"contentHash"`
	FileName     string           `db:"file_name" json:"fileName"`
	FileType     FileType         `db:"file_type" json:"fileType"`
	Status       ProcessingStatus `db:"status" json:"status"`
	BusinessKey  string           `db:"business_key" json:"businessKey,omitempty"`
	RecordID     string           `db:"record_id" json:"recordId,omitempty"`
	ErrorMessage string           `db:"error_message" json:"errorMessage,omitempty"`
	ItemStats    *ItemStats       `db:"-" json:"itemStats,omitempty"`
	FormulaStats *FormulaStats    `db:"-" json:"formulaStats,omitempty"`
	FileSize     int64            `db:"file_size" json:"fileSize"`
	ProcessedAt  time.Time        `db:"processed_at" json:"processedAt"`
}
