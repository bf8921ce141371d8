package database

import (
	"fmt"
	"time"

	"mfgdocs/model"
)

func FindRequisitionByHash(dbtx DBTX, contentHash string) (*model.RequisitionRecord, error) {
	var row docRow
	if err := dbtx.Get(&row, `SELECT id, doc FROM requisitions WHERE content_hash = ? LIMIT 1`, contentHash); err != nil {
		return nil, notFound(err, "requisition with hash "+contentHash)
	}
	var r model.RequisitionRecord
	if err := decodeDoc(row, &r); err != nil {
		return nil, err
	}
	r.ID = row.ID
	return &r, nil
}

// ExistingMaterialIDs checks ids against the materials of every stored
// requisition in a single aggregation and returns the matches mapped to the
// record that holds them.
func ExistingMaterialIDs(dbtx DBTX, ids []string) (map[string]ItemOwner, error) {
	found := make(map[string]ItemOwner)
	if len(ids) == 0 {
		return found, nil
	}
	var rows []struct {
		ItemOwner
		MatID string `db:"mat_id"`
	}
	// the bare r.id column comes from the row holding MIN(r.file_name)
	err := dbtx.Select(&rows, `
		SELECT json_extract(m.value, '$.matReqDtlId') AS mat_id, MIN(r.file_name) AS file_name, r.id AS id
		FROM requisitions r,
		     json_each(r.doc, '$.batches') b,
		     json_each(b.value, '$.materials') m
		WHERE json_extract(m.value, '$.matReqDtlId') IN (SELECT value FROM json_each(?))
		GROUP BY mat_id`, jsonList(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate requisition materials: %w", err)
	}
	for _, r := range rows {
		found[r.MatID] = r.ItemOwner
	}
	return found, nil
}

func InsertRequisition(dbtx DBTX, r *model.RequisitionRecord) error {
	if r.ID == "" {
		r.ID = NewID()
	}
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	doc, err := encodeDoc(r)
	if err != nil {
		return err
	}
	_, err = dbtx.Exec(`
		INSERT INTO requisitions (id, content_hash, file_name, doc, raw_xml, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.ContentHash, r.FileName, doc, nullable(r.RawXML), r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert requisition %s: %w", r.FileName, err)
	}
	return nil
}

func UpdateRequisition(dbtx DBTX, r *model.RequisitionRecord) error {
	r.UpdatedAt = time.Now().UTC()
	doc, err := encodeDoc(r)
	if err != nil {
		return err
	}
	res, err := dbtx.Exec(`UPDATE requisitions SET doc = ?, updated_at = ? WHERE id = ?`, doc, r.UpdatedAt, r.ID)
	if err != nil {
		return fmt.Errorf("failed to update requisition %s: %w", r.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("requisition %s: %w", r.ID, ErrNotFound)
	}
	return nil
}

func ListRequisitions(dbtx DBTX) ([]model.RequisitionRecord, error) {
	var rows []docRow
	if err := dbtx.Select(&rows, `SELECT id, doc FROM requisitions ORDER BY created_at, id`); err != nil {
		return nil, fmt.Errorf("failed to list requisitions: %w", err)
	}
	out := make([]model.RequisitionRecord, 0, len(rows))
	for _, row := range rows {
		var r model.RequisitionRecord
		if err := decodeDoc(row, &r); err != nil {
			return nil, err
		}
		r.ID = row.ID
		out = append(out, r)
	}
	return out, nil
}
