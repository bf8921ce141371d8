package reconcile

import (
	"fmt"
	"sort"

	"mfgdocs/model"
)

const (
	PriorityCritical = "CRITICAL"
	PriorityHigh     = "HIGH"
	PriorityMedium   = "MEDIUM"
	PriorityLow      = "LOW"
)

var priorityRank = map[string]int{
	PriorityCritical: 0,
	PriorityHigh:     1,
	PriorityMedium:   2,
	PriorityLow:      3,
}

// recommend lists follow-up actions, most urgent first.
func recommend(formulas []model.FormulaReconciliation, orphans []model.OrphanBatchGroup,
	mismatches []model.LicenseMismatch, reqs model.RequisitionSummary) []model.Recommendation {

	out := []model.Recommendation{}

	if len(mismatches) > 0 {
		var batches []string
		for _, m := range mismatches {
			batches = append(batches, m.BatchNumber)
		}
		out = append(out, model.Recommendation{
			Priority: PriorityCritical,
			Category: "license_mismatch",
			Message:  fmt.Sprintf("%d batches carry a manufacturing licence that differs from their formula", len(mismatches)),
			Count:    len(mismatches),
			Subjects: batches,
		})
	}

	var high, medium []string
	highBatches, mediumBatches := 0, 0
	for _, g := range orphans {
		if g.RiskLevel == model.RiskHigh {
			high = append(high, g.ItemCode)
			highBatches += g.BatchCount
		} else {
			medium = append(medium, g.ItemCode)
			mediumBatches += g.BatchCount
		}
	}
	if len(high) > 0 {
		out = append(out, model.Recommendation{
			Priority: PriorityHigh,
			Category: "orphan_batches",
			Message:  fmt.Sprintf("%d item codes with %d or more batches have no master formula on file (%d batches)", len(high), highRiskBatchCount, highBatches),
			Count:    len(high),
			Subjects: high,
		})
	}
	if len(medium) > 0 {
		out = append(out, model.Recommendation{
			Priority: PriorityMedium,
			Category: "orphan_batches",
			Message:  fmt.Sprintf("%d item codes have no master formula on file (%d batches)", len(medium), mediumBatches),
			Count:    len(medium),
			Subjects: medium,
		})
	}

	if reqs.MismatchedMaterials > 0 {
		out = append(out, model.Recommendation{
			Priority: PriorityMedium,
			Category: "requisition_quantity",
			Message:  fmt.Sprintf("%d requisitioned materials differ from the formula quantity", reqs.MismatchedMaterials),
			Count:    reqs.MismatchedMaterials,
		})
	}
	if n := len(reqs.BatchesWithoutRegistry); n > 0 {
		out = append(out, model.Recommendation{
			Priority: PriorityMedium,
			Category: "requisition_without_batch",
			Message:  fmt.Sprintf("%d requisitioned batches are missing from the batch registries", n),
			Count:    n,
			Subjects: reqs.BatchesWithoutRegistry,
		})
	}

	var idle []string
	for _, f := range formulas {
		if f.Status == model.ReconNoBatches {
			idle = append(idle, formulaLabel(f))
		}
	}
	if len(idle) > 0 {
		out = append(out, model.Recommendation{
			Priority: PriorityLow,
			Category: "formulas_without_batches",
			Message:  fmt.Sprintf("%d formulas have no manufactured batches", len(idle)),
			Count:    len(idle),
			Subjects: idle,
		})
	}
	if reqs.PendingMaterials > 0 {
		out = append(out, model.Recommendation{
			Priority: PriorityLow,
			Category: "requisition_pending",
			Message:  fmt.Sprintf("%d requisitioned materials could not be checked against a formula", reqs.PendingMaterials),
			Count:    reqs.PendingMaterials,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return priorityRank[out[i].Priority] < priorityRank[out[j].Priority]
	})
	return out
}

func formulaLabel(f model.FormulaReconciliation) string {
	if f.MasterCardNo != "" && f.MasterCardNo != model.NotAvailable {
		return f.MasterCardNo
	}
	return f.ProductCode
}
