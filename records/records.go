// Package records implements the deletion contract of the document store:
// removing a record also removes the processing log entries that would
// otherwise block re-ingesting its source file.
package records

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"

	"mfgdocs/config"
	"mfgdocs/database"
)

// DeleteResult reports what a delete removed.
type DeleteResult struct {
	ID          string `json:"id"`
	FileName    string `json:"fileName"`
	LogsDeleted int64  `json:"logsDeleted"`
}

// CleanupResult lists the log entries dropped by CleanupOrphanLogs.
type CleanupResult struct {
	Removed   int      `json:"removed"`
	FileNames []string `json:"fileNames"`
}

func DeleteBatchRegistry(db *sqlx.DB, id string) (DeleteResult, error) {
	reg, n, err := database.DeleteBatchRegistry(db, id)
	if err != nil {
		return DeleteResult{}, err
	}
	config.GetLogger().WithFields(logrus.Fields{
		"module": "records", "id": id, "file": reg.FileName, "logs_deleted": n,
	}).Info("batch registry deleted")
	return DeleteResult{ID: reg.ID, FileName: reg.FileName, LogsDeleted: n}, nil
}

// DeleteFormula removes a formula together with the logs of every file merged
// into it.
func DeleteFormula(db *sqlx.DB, id string) (DeleteResult, error) {
	f, n, err := database.DeleteFormula(db, id)
	if err != nil {
		return DeleteResult{}, err
	}
	config.GetLogger().WithFields(logrus.Fields{
		"module": "records", "id": id, "file": f.FileName, "logs_deleted": n,
	}).Info("formula deleted")
	return DeleteResult{ID: f.ID, FileName: f.FileName, LogsDeleted: n}, nil
}

// CleanupOrphanLogs drops non-error log entries whose record no longer exists,
// for stores edited outside DeleteBatchRegistry and DeleteFormula.
func CleanupOrphanLogs(db *sqlx.DB) (CleanupResult, error) {
	res := CleanupResult{FileNames: []string{}}
	orphans, err := database.FindOrphanProcessingLogs(db)
	if err != nil {
		return res, err
	}
	if len(orphans) == 0 {
		return res, nil
	}

	err = database.InTx(db, func(tx *sqlx.Tx) error {
		for _, o := range orphans {
			if err := database.DeleteProcessingLog(tx, o.ContentHash); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return CleanupResult{FileNames: []string{}}, fmt.Errorf("failed to clean up orphan logs: %w", err)
	}

	for _, o := range orphans {
		res.FileNames = append(res.FileNames, o.FileName)
	}
	res.Removed = len(orphans)
	config.GetLogger().WithField("module", "records").Infof("removed %d orphan processing logs", res.Removed)
	return res, nil
}
