package database

import (
	"fmt"
	"time"

	"mfgdocs/model"
)

// FindCOA returns the certificate stored for (batchNumber, stage).
func FindCOA(dbtx DBTX, batchNumber, stage string) (*model.COARecord, error) {
	var row docRow
	err := dbtx.Get(&row, `SELECT id, doc FROM coa_records WHERE batch_number = ? AND stage = ?`, batchNumber, stage)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("certificate %s/%s", batchNumber, stage))
	}
	var c model.COARecord
	if err := decodeDoc(row, &c); err != nil {
		return nil, err
	}
	c.ID = row.ID
	return &c, nil
}

func InsertCOA(dbtx DBTX, c *model.COARecord) error {
	if c.ID == "" {
		c.ID = NewID()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	doc, err := encodeDoc(c)
	if err != nil {
		return err
	}
	_, err = dbtx.Exec(`
		INSERT INTO coa_records (id, batch_number, stage, content_hash, file_name, doc, raw_xml, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.BatchNumber, c.Stage, c.ContentHash, c.FileName, doc, nullable(c.RawXML), c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert certificate %s/%s: %w", c.BatchNumber, c.Stage, err)
	}
	return nil
}

// UpdateCOA replaces the certificate identified by c.ID with newer content.
func UpdateCOA(dbtx DBTX, c *model.COARecord) error {
	c.UpdatedAt = time.Now().UTC()
	doc, err := encodeDoc(c)
	if err != nil {
		return err
	}
	res, err := dbtx.Exec(`
		UPDATE coa_records SET content_hash = ?, file_name = ?, doc = ?, raw_xml = ?, updated_at = ?
		WHERE id = ?`, c.ContentHash, c.FileName, doc, nullable(c.RawXML), c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("failed to update certificate %s: %w", c.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("certificate %s: %w", c.ID, ErrNotFound)
	}
	return nil
}

func ListCOAs(dbtx DBTX) ([]model.COARecord, error) {
	var rows []docRow
	if err := dbtx.Select(&rows, `SELECT id, doc FROM coa_records ORDER BY batch_number, stage`); err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}
	out := make([]model.COARecord, 0, len(rows))
	for _, row := range rows {
		var c model.COARecord
		if err := decodeDoc(row, &c); err != nil {
			return nil, err
		}
		c.ID = row.ID
		out = append(out, c)
	}
	return out, nil
}
