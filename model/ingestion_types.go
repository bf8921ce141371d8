package model

import "time"

type IngestionResult struct {
	FileName     string           `json:"fileName"`
	FileType     FileType         `json:"fileType"`
	Status       ProcessingStatus `json:"status"`
	Message      string           `json:"message"`
	ContentHash  string           `json:"contentHash,omitempty"`
	BusinessKey  string           `json:"businessKey,omitempty"`
	RecordID     string           `json:"recordId,omitempty"`
	ConflictFile string           `json:"conflictFile,omitempty"`
	Warnings     []string         `json:"warnings,omitempty"`
	ItemStats    *ItemStats       `json:"itemStats,omitempty"`
	FormulaStats *FormulaStats    `json:"formulaStats,omitempty"`
}

type IngestionStatus struct {
	RunID      string            `json:"runId"`
	SourceDir  string            `json:"sourceDir"`
	TotalFiles int               `json:"totalFiles"`
	Processed  int               `json:"processed"`
	Successful int               `json:"successful"`
	Duplicates int               `json:"duplicates"`
	Errors     int               `json:"errors"`
	Results    []IngestionResult `json:"results"`
	Message    string            `json:"message,omitempty"`
	StartedAt  time.Time         `json:"startedAt"`
	FinishedAt time.Time         `json:"finishedAt"`
}

// Add folds one file outcome into the run totals.
func (s *IngestionStatus) Add(r IngestionResult) {
	s.Processed++
	switch r.Status {
	case StatusSuccess:
		s.Successful++
	case StatusDuplicate:
		s.Duplicates++
	default:
		s.Errors++
	}
	s.Results = append(s.Results, r)
}
