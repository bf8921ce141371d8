package reprocess

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"mfgdocs/config"
	"mfgdocs/database"
	"mfgdocs/ingest"
	"mfgdocs/model"
)

const chunkSize = 500

// Result counts what a revalidation pass touched.
type Result struct {
	Requisitions int `json:"requisitions"`
	Updated      int `json:"updated"`
	Matched      int `json:"matched"`
	Mismatch     int `json:"mismatch"`
	Pending      int `json:"pending"`
}

// RevalidateRequisitions re-runs formula validation on every stored
// requisition and writes back the documents whose outcome changed, typically
// materials left pending because their formula was ingested later.
func RevalidateRequisitions(ctx context.Context, db *sqlx.DB, tolerance float64) (Result, error) {
	var res Result
	logger := config.GetLogger().WithField("module", "reprocess")

	all, err := database.ListRequisitions(db)
	if err != nil {
		return res, fmt.Errorf("RevalidateRequisitions: failed to load requisitions: %w", err)
	}
	res.Requisitions = len(all)
	if len(all) == 0 {
		logger.Info("no requisitions to revalidate")
		return res, nil
	}

	formulas := make(map[string]*model.FormulaMaster)
	for i := 0; i < len(all); i += chunkSize {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		end := i + chunkSize
		if end > len(all) {
			end = len(all)
		}
		chunk := all[i:end]

		err := database.InTx(db, func(tx *sqlx.Tx) error {
			for j := range chunk {
				changed, sum, err := revalidate(tx, &chunk[j], formulas, tolerance)
				if err != nil {
					return err
				}
				res.Matched += sum.Matched
				res.Mismatch += sum.Mismatch
				res.Pending += sum.Pending
				if !changed {
					continue
				}
				if err := database.UpdateRequisition(tx, &chunk[j]); err != nil {
					return err
				}
				res.Updated++
			}
			return nil
		})
		if err != nil {
			return res, fmt.Errorf("RevalidateRequisitions: %w", err)
		}
		logger.WithFields(logrus.Fields{"processed": end, "total": len(all)}).Debug("revalidation chunk committed")
	}

	logger.WithFields(logrus.Fields{
		"updated":  res.Updated,
		"matched":  res.Matched,
		"mismatch": res.Mismatch,
		"pending":  res.Pending,
	}).Infof("revalidated %d requisitions", res.Requisitions)
	return res, nil
}

func revalidate(dbtx database.DBTX, rec *model.RequisitionRecord, cache map[string]*model.FormulaMaster, tolerance float64) (bool, ingest.ValidationSummary, error) {
	var sum ingest.ValidationSummary
	before, err := json.Marshal(rec.Batches)
	if err != nil {
		return false, sum, err
	}
	for i := range rec.Batches {
		f, err := ingest.LinkedFormula(dbtx, rec.Batches[i].MasterCard, cache)
		if err != nil {
			return false, sum, err
		}
		v := ingest.ValidateRequisition(&rec.Batches[i], f, tolerance)
		sum.Matched += v.Matched
		sum.Mismatch += v.Mismatch
		sum.Pending += v.Pending
	}
	after, err := json.Marshal(rec.Batches)
	if err != nil {
		return false, sum, err
	}
	return string(before) != string(after), sum, nil
}

func RevalidateHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		tolerance := config.GetConfig().QuantityTolerance
		if tolerance <= 0 {
			tolerance = config.DefaultQuantityTolerance
		}
		res, err := RevalidateRequisitions(c.Request.Context(), db, tolerance)
		if err != nil {
			config.LogError(config.GetLogger(), "reprocess", "RevalidateHandler", "revalidate requisitions", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to revalidate requisitions"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("revalidated %d requisitions, %d updated", res.Requisitions, res.Updated),
			"result":  res,
		})
	}
}
