package database

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"mfgdocs/model"
)

// InsertBatchRegistry stores reg, assigning its id and creation time.
func InsertBatchRegistry(dbtx DBTX, reg *model.BatchRegistry) error {
	if reg.ID == "" {
		reg.ID = NewID()
	}
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = time.Now().UTC()
	}
	doc, err := encodeDoc(reg)
	if err != nil {
		return err
	}
	_, err = dbtx.Exec(`
		INSERT INTO batch_registries (id, content_hash, file_name, doc, raw_xml, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		reg.ID, reg.ContentHash, reg.FileName, doc, nullable(reg.RawXML), reg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert batch registry %s: %w", reg.FileName, err)
	}
	return nil
}

func getBatchRegistry(dbtx DBTX, where string, arg interface{}, what string) (*model.BatchRegistry, error) {
	var row docRow
	if err := dbtx.Get(&row, `SELECT id, doc FROM batch_registries WHERE `+where+` LIMIT 1`, arg); err != nil {
		return nil, notFound(err, what)
	}
	var reg model.BatchRegistry
	if err := decodeDoc(row, &reg); err != nil {
		return nil, err
	}
	reg.ID = row.ID
	return &reg, nil
}

func GetBatchRegistry(dbtx DBTX, id string) (*model.BatchRegistry, error) {
	return getBatchRegistry(dbtx, "id = ?", id, "batch registry "+id)
}

func FindBatchRegistryByHash(dbtx DBTX, contentHash string) (*model.BatchRegistry, error) {
	return getBatchRegistry(dbtx, "content_hash = ?", contentHash, "batch registry with hash "+contentHash)
}

// ItemOwner identifies the stored record holding an item.
type ItemOwner struct {
	RecordID string `db:"id"`
	FileName string `db:"file_name"`
}

// FindBatchItemOwner returns the registry already holding the
// (batchNumber, itemCode) item, searching every stored registry.
func FindBatchItemOwner(dbtx DBTX, batchNumber, itemCode string) (ItemOwner, error) {
	var owner ItemOwner
	err := dbtx.Get(&owner, `
		SELECT r.id, r.file_name
		FROM batch_registries r, json_each(r.doc, '$.batches') b
		WHERE json_extract(b.value, '$.batchNumber') = ?
		  AND json_extract(b.value, '$.itemCode') = ?
		ORDER BY r.created_at, r.id
		LIMIT 1`, batchNumber, itemCode)
	if err != nil {
		return ItemOwner{}, notFound(err, fmt.Sprintf("batch item %s/%s", batchNumber, itemCode))
	}
	return owner, nil
}

func ListBatchRegistries(dbtx DBTX) ([]model.BatchRegistry, error) {
	var rows []docRow
	if err := dbtx.Select(&rows, `SELECT id, doc FROM batch_registries ORDER BY created_at, id`); err != nil {
		return nil, fmt.Errorf("failed to list batch registries: %w", err)
	}
	out := make([]model.BatchRegistry, 0, len(rows))
	for _, row := range rows {
		var reg model.BatchRegistry
		if err := decodeDoc(row, &reg); err != nil {
			return nil, err
		}
		reg.ID = row.ID
		out = append(out, reg)
	}
	return out, nil
}

// DeleteBatchRegistry removes the registry and the processing log entries of
// its source file in one transaction so the file can be ingested again.
func DeleteBatchRegistry(db *sqlx.DB, id string) (reg *model.BatchRegistry, logsDeleted int64, err error) {
	err = InTx(db, func(tx *sqlx.Tx) error {
		reg, err = GetBatchRegistry(tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM batch_registries WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete batch registry %s: %w", id, err)
		}
		logsDeleted, err = DeleteProcessingLogs(tx, []string{reg.ContentHash}, []string{reg.FileName})
		if err != nil {
			return err
		}
		n, err := DeleteDuplicateLogsOf(tx, id)
		logsDeleted += n
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return reg, logsDeleted, nil
}
