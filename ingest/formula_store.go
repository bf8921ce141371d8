package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"mfgdocs/database"
	"mfgdocs/model"
	"mfgdocs/parsers"
)

// storeFormulas handles every formula block of a file independently: new
// business keys are inserted, known ones are merged when they bring new item
// codes and counted as duplicates otherwise.
func (s *Service) storeFormulas(ctx context.Context, doc model.RawDocument, res *model.IngestionResult) error {
	parsed := parsers.ParseFormulas(doc.Content)
	if !parsed.Success {
		return parsed.Err()
	}
	res.Warnings = append(res.Warnings, parsed.Warnings...)
	stats := &model.FormulaStats{TotalFormulas: len(parsed.Data)}
	res.FormulaStats = stats

	var (
		ids, keys   []string
		archivePath string
		archived    bool
	)
	err := database.InTx(s.db, func(tx *sqlx.Tx) error {
		for _, f := range parsed.Data {
			f.FileName = doc.FileName
			f.ContentHash = res.ContentHash
			keys = appendUnique(keys, f.BusinessKey())

			existing, err := findFormula(tx, f)
			if err != nil && !errors.Is(err, database.ErrNotFound) {
				return err
			}

			if existing == nil {
				raw, warning := s.rawPayload(doc)
				f.RawXML = raw
				markPartial(&f.Status, &f.ParsingErrors, warning)
				if warning != "" {
					res.Warnings = appendUnique(res.Warnings, warning)
				}
				if !archived {
					archivePath = s.archiveRaw(ctx, doc, res.ContentHash, res)
					archived = true
				}
				f.RawArchivePath = archivePath
				if err := database.InsertFormula(tx, &f); err != nil {
					return err
				}
				stats.NewFormulas++
				ids = appendUnique(ids, f.ID)
				continue
			}

			merged, sum := MergeFormula(*existing, f)
			ids = appendUnique(ids, existing.ID)
			if !sum.Changed() {
				stats.DuplicateFormulas++
				if res.ConflictFile == "" {
					res.ConflictFile = existing.FileName
				}
				continue
			}
			if err := database.UpdateFormula(tx, &merged); err != nil {
				return err
			}
			stats.MergedFormulas++
			res.Warnings = append(res.Warnings, fmt.Sprintf("formula %s: merged item codes %s into %s",
				f.BusinessKey(), strings.Join(sum.NewItemCodes, ", "), existing.FileName))
		}
		return nil
	})
	if err != nil {
		return err
	}

	res.RecordID = strings.Join(ids, ",")
	res.BusinessKey = strings.Join(keys, ",")
	if stats.NewFormulas+stats.MergedFormulas == 0 {
		res.Status = model.StatusDuplicate
		res.Message = fmt.Sprintf("all %d formulas already stored with the same item codes", stats.TotalFormulas)
		return nil
	}
	res.Status = model.StatusSuccess
	res.Message = fmt.Sprintf("%d formulas: %d new, %d merged, %d duplicate",
		stats.TotalFormulas, stats.NewFormulas, stats.MergedFormulas, stats.DuplicateFormulas)
	return nil
}

// findFormula resolves the business identity of f: master card number when
// present, product code and revision otherwise.
func findFormula(dbtx database.DBTX, f model.FormulaMaster) (*model.FormulaMaster, error) {
	if f.HasMasterCard() {
		return database.FindFormulaByMasterCard(dbtx, f.MasterFormulaDetails.MasterCardNo)
	}
	return database.FindFormulaByProductRevision(dbtx, f.MasterFormulaDetails.ProductCode, f.MasterFormulaDetails.RevisionNo)
}

func appendUnique(list []string, v string) []string {
	for _, s := range list {
		if s == v {
			return list
		}
	}
	return append(list, v)
}
