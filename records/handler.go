package records

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"mfgdocs/config"
	"mfgdocs/database"
)

func DeleteBatchHandler(db *sqlx.DB) gin.HandlerFunc {
	return deleteHandler("DeleteBatchHandler", "batch registry", func(id string) (DeleteResult, error) {
		return DeleteBatchRegistry(db, id)
	})
}

func DeleteFormulaHandler(db *sqlx.DB) gin.HandlerFunc {
	return deleteHandler("DeleteFormulaHandler", "formula", func(id string) (DeleteResult, error) {
		return DeleteFormula(db, id)
	})
}

func deleteHandler(funcName, what string, del func(id string) (DeleteResult, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		res, err := del(id)
		switch {
		case errors.Is(err, database.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"message": what + " not found"})
		case err != nil:
			config.LogError(config.GetLogger(), "records", funcName, "delete "+what, id, err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to delete " + what})
		default:
			c.JSON(http.StatusOK, res)
		}
	}
}

func CleanupHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := CleanupOrphanLogs(db)
		if err != nil {
			config.LogError(config.GetLogger(), "records", "CleanupHandler", "cleanup orphan logs", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to clean up processing logs"})
			return
		}
		c.JSON(http.StatusOK, res)
	}
}
