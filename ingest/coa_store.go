package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"mfgdocs/database"
	"mfgdocs/model"
	"mfgdocs/parsers"
)

// storeCOA keys certificates by (batchNumber, stage). Same key with new content
// supersedes the stored certificate.
func (s *Service) storeCOA(ctx context.Context, doc model.RawDocument, res *model.IngestionResult) error {
	parsed := parsers.ParseCOA(doc.Content)
	if !parsed.Success {
		return parsed.Err()
	}
	c := parsed.Data
	res.Warnings = append(res.Warnings, parsed.Warnings...)
	res.BusinessKey = c.BatchNumber + "|" + c.Stage

	return database.InTx(s.db, func(tx *sqlx.Tx) error {
		existing, err := database.FindCOA(tx, c.BatchNumber, c.Stage)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return err
		}
		if existing != nil && existing.ContentHash == res.ContentHash {
			res.Status = model.StatusDuplicate
			res.RecordID = existing.ID
			res.ConflictFile = existing.FileName
			res.Message = fmt.Sprintf("certificate %s already stored from %s", res.BusinessKey, existing.FileName)
			return nil
		}

		c.FileName = doc.FileName
		c.ContentHash = res.ContentHash
		raw, warning := s.rawPayload(doc)
		c.RawXML = raw
		markPartial(&c.Status, &c.ParsingErrors, warning)
		if warning != "" {
			res.Warnings = append(res.Warnings, warning)
		}
		c.RawArchivePath = s.archiveRaw(ctx, doc, res.ContentHash, res)

		res.Status = model.StatusSuccess
		if existing == nil {
			if err := database.InsertCOA(tx, &c); err != nil {
				return err
			}
			res.Message = fmt.Sprintf("certificate %s stored", res.BusinessKey)
		} else {
			c.ID = existing.ID
			c.CreatedAt = existing.CreatedAt
			if err := database.UpdateCOA(tx, &c); err != nil {
				return err
			}
			res.ConflictFile = existing.FileName
			res.Message = fmt.Sprintf("certificate %s updated, superseding %s", res.BusinessKey, existing.FileName)
		}
		res.RecordID = c.ID
		return nil
	})
}
