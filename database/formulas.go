package database

import (
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"mfgdocs/model"
)

func formulaKeys(f *model.FormulaMaster) (masterCard, productCode, revision string) {
	if f.HasMasterCard() {
		masterCard = strings.TrimSpace(f.MasterFormulaDetails.MasterCardNo)
	}
	return masterCard, strings.TrimSpace(f.MasterFormulaDetails.ProductCode), strings.TrimSpace(f.MasterFormulaDetails.RevisionNo)
}

// InsertFormula stores f, assigning its id and timestamps.
func InsertFormula(dbtx DBTX, f *model.FormulaMaster) error {
	if f.ID == "" {
		f.ID = NewID()
	}
	now := time.Now().UTC()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = now
	}
	f.UpdatedAt = now
	doc, err := encodeDoc(f)
	if err != nil {
		return err
	}
	mc, pc, rev := formulaKeys(f)
	_, err = dbtx.Exec(`
		INSERT INTO formulas (id, master_card_no, product_code, revision_no, content_hash, file_name, doc, raw_xml, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, mc, pc, rev, f.ContentHash, f.FileName, doc, nullable(f.RawXML), f.CreatedAt, f.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert formula %s: %w", f.UniqueIdentifier, err)
	}
	return nil
}

// UpdateFormula replaces the stored document of f. The raw payload of the
// original file is kept.
func UpdateFormula(dbtx DBTX, f *model.FormulaMaster) error {
	f.UpdatedAt = time.Now().UTC()
	doc, err := encodeDoc(f)
	if err != nil {
		return err
	}
	mc, pc, rev := formulaKeys(f)
	res, err := dbtx.Exec(`
		UPDATE formulas SET master_card_no = ?, product_code = ?, revision_no = ?, doc = ?, updated_at = ?
		WHERE id = ?`, mc, pc, rev, doc, f.UpdatedAt, f.ID)
	if err != nil {
		return fmt.Errorf("failed to update formula %s: %w", f.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("formula %s: %w", f.ID, ErrNotFound)
	}
	return nil
}

func getFormula(dbtx DBTX, where string, what string, args ...interface{}) (*model.FormulaMaster, error) {
	var row docRow
	if err := dbtx.Get(&row, `SELECT id, doc FROM formulas WHERE `+where+` ORDER BY created_at, id LIMIT 1`, args...); err != nil {
		return nil, notFound(err, what)
	}
	var f model.FormulaMaster
	if err := decodeDoc(row, &f); err != nil {
		return nil, err
	}
	f.ID = row.ID
	return &f, nil
}

func GetFormula(dbtx DBTX, id string) (*model.FormulaMaster, error) {
	return getFormula(dbtx, "id = ?", "formula "+id, id)
}

func FindFormulaByMasterCard(dbtx DBTX, masterCardNo string) (*model.FormulaMaster, error) {
	return getFormula(dbtx, "master_card_no = ?", "formula "+masterCardNo, strings.TrimSpace(masterCardNo))
}

// FindFormulaByProductRevision looks up formulas that have no master card number.
func FindFormulaByProductRevision(dbtx DBTX, productCode, revisionNo string) (*model.FormulaMaster, error) {
	return getFormula(dbtx, "master_card_no = '' AND product_code = ? AND revision_no = ?",
		"formula "+productCode+"|"+revisionNo, strings.TrimSpace(productCode), strings.TrimSpace(revisionNo))
}

func ListFormulas(dbtx DBTX) ([]model.FormulaMaster, error) {
	var rows []docRow
	if err := dbtx.Select(&rows, `SELECT id, doc FROM formulas ORDER BY created_at, id`); err != nil {
		return nil, fmt.Errorf("failed to list formulas: %w", err)
	}
	out := make([]model.FormulaMaster, 0, len(rows))
	for _, row := range rows {
		var f model.FormulaMaster
		if err := decodeDoc(row, &f); err != nil {
			return nil, err
		}
		f.ID = row.ID
		out = append(out, f)
	}
	return out, nil
}

// DeleteFormula removes the formula and the log entries of every file that
// contributed to it (original and merged sources).
func DeleteFormula(db *sqlx.DB, id string) (f *model.FormulaMaster, logsDeleted int64, err error) {
	err = InTx(db, func(tx *sqlx.Tx) error {
		f, err = GetFormula(tx, id)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`DELETE FROM formulas WHERE id = ?`, id); err != nil {
			return fmt.Errorf("failed to delete formula %s: %w", id, err)
		}
		hashes := append([]string{f.ContentHash}, f.SourceHashes...)
		logsDeleted, err = DeleteProcessingLogs(tx, hashes, []string{f.FileName})
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return f, logsDeleted, nil
}
