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

// storeBatch keeps only the (batchNumber, itemCode) pairs not yet present in
// any stored registry.
func (s *Service) storeBatch(ctx context.Context, doc model.RawDocument, res *model.IngestionResult) error {
	parsed := parsers.ParseBatchRegistry(doc.Content)
	if !parsed.Success {
		return parsed.Err()
	}
	reg := parsed.Data
	res.Warnings = append(res.Warnings, parsed.Warnings...)
	stats := &model.ItemStats{Total: len(reg.Batches)}
	res.ItemStats = stats

	return database.InTx(s.db, func(tx *sqlx.Tx) error {
		existing, err := database.FindBatchRegistryByHash(tx, res.ContentHash)
		if err == nil {
			stats.Duplicate = stats.Total
			res.Status = model.StatusDuplicate
			res.RecordID = existing.ID
			res.ConflictFile = existing.FileName
			res.Message = fmt.Sprintf("identical batch registry already stored from %s", existing.FileName)
			return nil
		}
		if !errors.Is(err, database.ErrNotFound) {
			return err
		}

		fresh, owners, err := partitionBatchItems(tx, reg.Batches, stats)
		if err != nil {
			return err
		}
		conflict := firstFile(owners)
		if len(fresh) == 0 {
			res.Status = model.StatusDuplicate
			res.RecordID = ownerIDs(owners)
			res.ConflictFile = conflict
			res.Message = fmt.Sprintf("all %d batch items already stored", stats.Total)
			return nil
		}

		reg.Batches = fresh
		reg.Recount()
		reg.FileName = doc.FileName
		reg.ContentHash = res.ContentHash
		raw, warning := s.rawPayload(doc)
		reg.RawXML = raw
		markPartial(&reg.Status, &reg.ParsingErrors, warning)
		if warning != "" {
			res.Warnings = append(res.Warnings, warning)
		}
		reg.RawArchivePath = s.archiveRaw(ctx, doc, res.ContentHash, res)

		if err := database.InsertBatchRegistry(tx, &reg); err != nil {
			return err
		}
		res.Status = model.StatusSuccess
		res.RecordID = reg.ID
		res.BusinessKey = reg.CompanyName
		res.Message = fmt.Sprintf("stored %d new batch items (%d duplicate): %d export, %d import",
			stats.New, stats.Duplicate, reg.ExportCount, reg.ImportCount)
		if stats.Duplicate > 0 {
			res.ConflictFile = conflict
		}
		return nil
	})
}

// partitionBatchItems splits items into those not stored anywhere yet and
// duplicates, which include repeats within the same file. owners lists the
// registries holding duplicates, in the order they were first hit.
func partitionBatchItems(dbtx database.DBTX, items []model.BatchItem, stats *model.ItemStats) (fresh []model.BatchItem, owners []database.ItemOwner, err error) {
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, dup := seen[item.Key()]; dup {
			stats.Duplicate++
			continue
		}
		seen[item.Key()] = struct{}{}

		owner, err := database.FindBatchItemOwner(dbtx, item.BatchNumber, item.ItemCode)
		switch {
		case err == nil:
			stats.Duplicate++
			owners = appendOwner(owners, owner)
		case errors.Is(err, database.ErrNotFound):
			fresh = append(fresh, item)
		default:
			return nil, nil, err
		}
	}
	stats.New = len(fresh)
	return fresh, owners, nil
}

func appendOwner(owners []database.ItemOwner, o database.ItemOwner) []database.ItemOwner {
	for _, have := range owners {
		if have.RecordID == o.RecordID {
			return owners
		}
	}
	return append(owners, o)
}

func firstFile(owners []database.ItemOwner) string {
	if len(owners) == 0 {
		return ""
	}
	return owners[0].FileName
}

// ownerIDs joins owner record ids the way formula logs join theirs, so the
// orphan sweep can drop a duplicate entry once every owner is gone.
func ownerIDs(owners []database.ItemOwner) string {
	ids := make([]string, len(owners))
	for i, o := range owners {
		ids[i] = o.RecordID
	}
	return strings.Join(ids, ",")
}
