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

// storeRequisition deduplicates materials by matReqDtlId across every stored
// requisition, validates the survivors against their formulas and stores the
// batches that still carry at least one material.
func (s *Service) storeRequisition(ctx context.Context, doc model.RawDocument, res *model.IngestionResult) error {
	parsed := parsers.ParseRequisition(doc.Content)
	if !parsed.Success {
		return parsed.Err()
	}
	rec := parsed.Data
	res.Warnings = append(res.Warnings, parsed.Warnings...)
	ids := rec.MaterialIDs()
	if len(ids) == 0 {
		return errors.New("requisition contains no materials")
	}
	stats := &model.ItemStats{Total: len(ids)}
	res.ItemStats = stats
	res.BusinessKey = requisitionKey(rec)

	return database.InTx(s.db, func(tx *sqlx.Tx) error {
		existing, err := database.FindRequisitionByHash(tx, res.ContentHash)
		if err == nil {
			stats.Duplicate = stats.Total
			res.Status = model.StatusDuplicate
			res.RecordID = existing.ID
			res.ConflictFile = existing.FileName
			res.Message = fmt.Sprintf("identical requisition already stored from %s", existing.FileName)
			return nil
		}
		if !errors.Is(err, database.ErrNotFound) {
			return err
		}

		stored, err := database.ExistingMaterialIDs(tx, ids)
		if err != nil {
			return err
		}
		batches, owners := keepNewMaterials(rec.Batches, stored, stats)
		conflict := firstFile(owners)
		if stats.New == 0 {
			res.Status = model.StatusDuplicate
			res.RecordID = ownerIDs(owners)
			res.ConflictFile = conflict
			res.Message = fmt.Sprintf("all %d requisition materials already stored", stats.Total)
			return nil
		}

		var validation ValidationSummary
		formulas := make(map[string]*model.FormulaMaster)
		for i := range batches {
			f, err := LinkedFormula(tx, batches[i].MasterCard, formulas)
			if err != nil {
				return err
			}
			v := ValidateRequisition(&batches[i], f, s.tolerance)
			validation.Matched += v.Matched
			validation.Mismatch += v.Mismatch
			validation.Pending += v.Pending
		}

		rec.Batches = batches
		rec.TotalMaterials = stats.New
		rec.FileName = doc.FileName
		rec.ContentHash = res.ContentHash
		raw, warning := s.rawPayload(doc)
		rec.RawXML = raw
		markPartial(&rec.Status, &rec.ParsingErrors, warning)
		if warning != "" {
			res.Warnings = append(res.Warnings, warning)
		}
		rec.RawArchivePath = s.archiveRaw(ctx, doc, res.ContentHash, res)

		if err := database.InsertRequisition(tx, &rec); err != nil {
			return err
		}
		res.Status = model.StatusSuccess
		res.RecordID = rec.ID
		if stats.Duplicate > 0 {
			res.ConflictFile = conflict
		}
		res.Message = fmt.Sprintf("stored %d new materials in %d batches (%d duplicate); validation: %d matched, %d mismatch, %d pending",
			stats.New, len(batches), stats.Duplicate, validation.Matched, validation.Mismatch, validation.Pending)
		return nil
	})
}

// keepNewMaterials drops materials already stored (or repeated within the
// file) and batches left without materials. It also returns the records
// holding the dropped materials.
func keepNewMaterials(batches []model.RequisitionBatch, stored map[string]database.ItemOwner, stats *model.ItemStats) ([]model.RequisitionBatch, []database.ItemOwner) {
	var (
		out    []model.RequisitionBatch
		owners []database.ItemOwner
	)
	seen := make(map[string]struct{})
	for _, b := range batches {
		kept := make([]model.RequisitionMaterial, 0, len(b.Materials))
		for _, m := range b.Materials {
			if owner, ok := stored[m.MatReqDtlID]; ok {
				stats.Duplicate++
				owners = appendOwner(owners, owner)
				continue
			}
			if _, dup := seen[m.MatReqDtlID]; dup {
				stats.Duplicate++
				continue
			}
			seen[m.MatReqDtlID] = struct{}{}
			kept = append(kept, m)
		}
		if len(kept) == 0 {
			continue
		}
		b.Materials = kept
		b.Recount()
		out = append(out, b)
	}
	stats.New = stats.Total - stats.Duplicate
	return out, owners
}

// LinkedFormula resolves the formula for a requisition master card through
// cache. Blank and N/A cards, and cards without a stored formula, yield nil.
func LinkedFormula(dbtx database.DBTX, masterCard string, cache map[string]*model.FormulaMaster) (*model.FormulaMaster, error) {
	mc := strings.TrimSpace(masterCard)
	if mc == "" || strings.EqualFold(mc, model.NotAvailable) {
		return nil, nil
	}
	if f, ok := cache[mc]; ok {
		return f, nil
	}
	f, err := database.FindFormulaByMasterCard(dbtx, mc)
	if errors.Is(err, database.ErrNotFound) {
		f, err = nil, nil
	}
	if err != nil {
		return nil, err
	}
	cache[mc] = f
	return f, nil
}

func requisitionKey(rec model.RequisitionRecord) string {
	var keys []string
	for _, b := range rec.Batches {
		if b.MatReqNo != "" {
			keys = appendUnique(keys, b.MatReqNo)
		}
	}
	return strings.Join(keys, ",")
}
