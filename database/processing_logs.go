package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"mfgdocs/model"
)

type processingLogRow struct {
	ContentHash  string         `db:"content_hash"`
	FileName     string         `db:"file_name"`
	FileType     string         `db:"file_type"`
	Status       string         `db:"status"`
	BusinessKey  string         `db:"business_key"`
	RecordID     string         `db:"record_id"`
	ErrorMessage string         `db:"error_message"`
	ItemStats    sql.NullString `db:"item_stats"`
	FormulaStats sql.NullString `db:"formula_stats"`
	FileSize     int64          `db:"file_size"`
	ProcessedAt  time.Time      `db:"processed_at"`
}

const processingLogColumns = `content_hash, file_name, file_type, status, business_key, record_id,
	error_message, item_stats, formula_stats, file_size, processed_at`

func (r processingLogRow) entry() model.ProcessingLogEntry {
	e := model.ProcessingLogEntry{
		ContentHash:  r.ContentHash,
		FileName:     r.FileName,
		FileType:     model.FileType(r.FileType),
		Status:       model.ProcessingStatus(r.Status),
		BusinessKey:  r.BusinessKey,
		RecordID:     r.RecordID,
		ErrorMessage: r.ErrorMessage,
		FileSize:     r.FileSize,
		ProcessedAt:  r.ProcessedAt,
	}
	if r.ItemStats.Valid {
		var s model.ItemStats
		if json.Unmarshal([]byte(r.ItemStats.String), &s) == nil {
			e.ItemStats = &s
		}
	}
	if r.FormulaStats.Valid {
		var s model.FormulaStats
		if json.Unmarshal([]byte(r.FormulaStats.String), &s) == nil {
			e.FormulaStats = &s
		}
	}
	return e
}

func statsJSON(v any) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}

// UpsertProcessingLog writes the outcome of processing one file, keyed by
// content hash. A later attempt on the same hash replaces the entry.
func UpsertProcessingLog(dbtx DBTX, e model.ProcessingLogEntry) error {
	if e.ProcessedAt.IsZero() {
		e.ProcessedAt = time.Now()
	}
	e.ProcessedAt = e.ProcessedAt.UTC()
	row := processingLogRow{
		ContentHash:  e.ContentHash,
		FileName:     e.FileName,
		FileType:     string(e.FileType),
		Status:       string(e.Status),
		BusinessKey:  e.BusinessKey,
		RecordID:     e.RecordID,
		ErrorMessage: e.ErrorMessage,
		FileSize:     e.FileSize,
		ProcessedAt:  e.ProcessedAt,
	}
	if e.ItemStats != nil {
		row.ItemStats = statsJSON(e.ItemStats)
	}
	if e.FormulaStats != nil {
		row.FormulaStats = statsJSON(e.FormulaStats)
	}

	const q = `
		INSERT INTO processing_logs (` + processingLogColumns + `)
		VALUES (:content_hash, :file_name, :file_type, :status, :business_key, :record_id,
			:error_message, :item_stats, :formula_stats, :file_size, :processed_at)
		ON CONFLICT(content_hash) DO UPDATE SET
			file_name = excluded.file_name,
			file_type = excluded.file_type,
			status = excluded.status,
			business_key = excluded.business_key,
			record_id = excluded.record_id,
			error_message = excluded.error_message,
			item_stats = excluded.item_stats,
			formula_stats = excluded.formula_stats,
			file_size = excluded.file_size,
			processed_at = excluded.processed_at`
	if _, err := dbtx.NamedExec(q, row); err != nil {
		return fmt.Errorf("failed to upsert processing log %s: %w", e.ContentHash, err)
	}
	return nil
}

func GetProcessingLog(dbtx DBTX, contentHash string) (*model.ProcessingLogEntry, error) {
	var row processingLogRow
	err := dbtx.Get(&row, `SELECT `+processingLogColumns+` FROM processing_logs WHERE content_hash = ?`, contentHash)
	if err != nil {
		return nil, notFound(err, "processing log "+contentHash)
	}
	e := row.entry()
	return &e, nil
}

// ListProcessingLogs returns the newest entries first; limit <= 0 means all.
func ListProcessingLogs(dbtx DBTX, limit int) ([]model.ProcessingLogEntry, error) {
	q := `SELECT ` + processingLogColumns + ` FROM processing_logs ORDER BY processed_at DESC, content_hash`
	args := []interface{}{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	var rows []processingLogRow
	if err := dbtx.Select(&rows, q, args...); err != nil {
		return nil, fmt.Errorf("failed to list processing logs: %w", err)
	}
	out := make([]model.ProcessingLogEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.entry())
	}
	return out, nil
}

func DeleteProcessingLog(dbtx DBTX, contentHash string) error {
	if _, err := dbtx.Exec(`DELETE FROM processing_logs WHERE content_hash = ?`, contentHash); err != nil {
		return fmt.Errorf("failed to delete processing log %s: %w", contentHash, err)
	}
	return nil
}

// DeleteProcessingLogs removes every entry matching one of the hashes or one
// of the file names, returning the number removed.
func DeleteProcessingLogs(dbtx DBTX, hashes, fileNames []string) (int64, error) {
	res, err := dbtx.Exec(`
		DELETE FROM processing_logs
		WHERE content_hash IN (SELECT value FROM json_each(?))
		   OR file_name IN (SELECT value FROM json_each(?))`,
		jsonList(hashes), jsonList(fileNames))
	if err != nil {
		return 0, fmt.Errorf("failed to delete processing logs: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// DeleteDuplicateLogsOf removes DUPLICATE entries whose only conflicting
// record is id.
func DeleteDuplicateLogsOf(dbtx DBTX, id string) (int64, error) {
	res, err := dbtx.Exec(`DELETE FROM processing_logs WHERE status = ? AND record_id = ?`,
		string(model.StatusDuplicate), id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete duplicate logs of %s: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// FindOrphanProcessingLogs returns non-error entries whose target record is
// gone: the referenced record ids no longer exist, or a SUCCESS entry never
// pointed at a record at all. Formula entries and item-level duplicates may
// reference several ids (comma separated); they are orphaned only when none
// survives.
func FindOrphanProcessingLogs(db *sqlx.DB) ([]model.ProcessingLogEntry, error) {
	var live []string
	err := db.Select(&live, `
		SELECT id FROM batch_registries
		UNION ALL SELECT id FROM formulas
		UNION ALL SELECT id FROM coa_records
		UNION ALL SELECT id FROM requisitions`)
	if err != nil {
		return nil, fmt.Errorf("failed to collect record ids: %w", err)
	}
	exists := make(map[string]struct{}, len(live))
	for _, id := range live {
		exists[id] = struct{}{}
	}

	var rows []processingLogRow
	if err := db.Select(&rows, `SELECT `+processingLogColumns+` FROM processing_logs WHERE status != ?`, string(model.StatusError)); err != nil {
		return nil, fmt.Errorf("failed to list processing logs: %w", err)
	}

	var orphans []model.ProcessingLogEntry
	for _, r := range rows {
		if r.RecordID == "" {
			if r.Status == string(model.StatusSuccess) {
				orphans = append(orphans, r.entry())
			}
			continue
		}
		alive := false
		for _, id := range strings.Split(r.RecordID, ",") {
			if _, ok := exists[strings.TrimSpace(id)]; ok {
				alive = true
				break
			}
		}
		if !alive {
			orphans = append(orphans, r.entry())
		}
	}
	return orphans, nil
}
