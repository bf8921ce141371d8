package reconcile

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"mfgdocs/config"
	"mfgdocs/database"
	"mfgdocs/model"
)

// Engine rebuilds the report from the document store on every call.
type Engine struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewEngine(db *sqlx.DB) *Engine {
	return &Engine{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (e *Engine) Reconcile(ctx context.Context) (model.ReconciliationReport, error) {
	if err := ctx.Err(); err != nil {
		return model.ReconciliationReport{}, err
	}
	formulas, err := database.ListFormulas(e.db)
	if err != nil {
		return model.ReconciliationReport{}, fmt.Errorf("failed to load formulas: %w", err)
	}
	registries, err := database.ListBatchRegistries(e.db)
	if err != nil {
		return model.ReconciliationReport{}, fmt.Errorf("failed to load batch registries: %w", err)
	}
	requisitions, err := database.ListRequisitions(e.db)
	if err != nil {
		return model.ReconciliationReport{}, fmt.Errorf("failed to load requisitions: %w", err)
	}

	report := Build(formulas, registries, requisitions)
	report.GeneratedAt = e.now()
	return report, nil
}

func Handler(e *Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, err := e.Reconcile(c.Request.Context())
		if err != nil {
			config.LogError(config.GetLogger(), "reconcile", "Handler", "reconcile", nil, err)
			c.JSON(http.StatusInternalServerError, gin.H{"message": "failed to build reconciliation report"})
			return
		}
		c.JSON(http.StatusOK, report)
	}
}
