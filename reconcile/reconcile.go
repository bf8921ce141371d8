// Package reconcile cross-checks stored formulas, batch registries and
// requisitions and summarizes the compliance gaps between them.
package reconcile

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"mfgdocs/model"
)

const (
	highRiskBatchCount = 5

	batchWeight    = 0.7
	coverageWeight = 0.3
)

type batchRef struct {
	item model.BatchItem
	file string
}

// Build derives the reconciliation report from the current documents. It is
// deterministic for a given input order and never mutates its arguments.
func Build(formulas []model.FormulaMaster, registries []model.BatchRegistry, requisitions []model.RequisitionRecord) model.ReconciliationReport {
	owner := linkCodes(formulas)

	results := make([]model.FormulaReconciliation, len(formulas))
	for i, f := range formulas {
		d := f.MasterFormulaDetails
		results[i] = model.FormulaReconciliation{
			FormulaID:    f.ID,
			MasterCardNo: d.MasterCardNo,
			ProductCode:  d.ProductCode,
			ProductName:  d.ProductName,
			LicenseNo:    d.ManufacturingLicenseNo,
			LinkedCodes:  sortedCodes(f.LinkedProductCodes()),
			BatchDetails: []model.BatchOutcome{},
		}
	}

	var (
		summary    model.ReconciliationSummary
		mismatches = []model.LicenseMismatch{}
		orphans    = make(map[string]*model.OrphanBatchGroup)
		orphanKeys []string
		known      = make(map[string]struct{})
	)

	for _, ref := range flatten(registries) {
		summary.TotalBatchesInSystem++
		item := ref.item
		known[strings.TrimSpace(item.BatchNumber)] = struct{}{}

		idx, ok := owner[strings.TrimSpace(item.ItemCode)]
		if !ok {
			summary.BatchesNotMatchedToFormula++
			g, seen := orphans[item.ItemCode]
			if !seen {
				g = &model.OrphanBatchGroup{ItemCode: item.ItemCode, ItemName: item.ItemName, BatchNumbers: []string{}}
				orphans[item.ItemCode] = g
				orphanKeys = append(orphanKeys, item.ItemCode)
			}
			g.BatchCount++
			g.BatchNumbers = append(g.BatchNumbers, item.BatchNumber)
			continue
		}

		summary.BatchesMatchedToFormula++
		r := &results[idx]
		outcome := model.BatchOutcome{
			BatchNumber:    item.BatchNumber,
			ItemCode:       item.ItemCode,
			ItemName:       item.ItemName,
			BatchLicense:   item.MfgLicNo,
			FormulaLicense: r.LicenseNo,
			Matched:        licensesMatch(item.MfgLicNo, r.LicenseNo),
			RegistryFile:   ref.file,
		}
		r.BatchDetails = append(r.BatchDetails, outcome)
		r.Stats.TotalBatches++
		if outcome.Matched {
			r.Stats.ReconciledBatches++
			summary.ReconciledBatches++
			continue
		}
		r.Stats.MismatchedBatches++
		summary.MismatchedBatches++
		mismatches = append(mismatches, model.LicenseMismatch{
			BatchNumber:    item.BatchNumber,
			ItemCode:       item.ItemCode,
			MasterCardNo:   r.MasterCardNo,
			BatchLicense:   item.MfgLicNo,
			FormulaLicense: r.LicenseNo,
			Severity:       model.SeverityCritical,
			Reason:         mismatchReason(item.MfgLicNo, r.LicenseNo),
		})
	}

	summary.TotalFormulas = len(results)
	covered := 0
	for i := range results {
		results[i].Status = formulaStatus(results[i].Stats)
		switch results[i].Status {
		case model.ReconFully:
			summary.FormulasFullyReconciled++
		case model.ReconPartially:
			summary.FormulasPartiallyReconciled++
		case model.ReconNot:
			summary.FormulasNotReconciled++
		default:
			summary.FormulasWithoutBatches++
		}
		if results[i].Stats.TotalBatches > 0 {
			covered++
		}
	}

	summary.BatchReconciliationPercentage = percent(summary.ReconciledBatches, summary.TotalBatchesInSystem)
	summary.CountsConsistent = summary.BatchesMatchedToFormula+summary.BatchesNotMatchedToFormula == summary.TotalBatchesInSystem &&
		summary.ReconciledBatches+summary.MismatchedBatches == summary.BatchesMatchedToFormula
	summary.ComplianceScore = round2(batchWeight*summary.BatchReconciliationPercentage +
		coverageWeight*percent(covered, summary.TotalFormulas))

	groups := orphanGroups(orphans, orphanKeys)
	reqSummary := summarizeRequisitions(requisitions, known)

	return model.ReconciliationReport{
		Summary:           summary,
		Formulas:          results,
		OrphanBatches:     groups,
		LicenseMismatches: mismatches,
		Requisitions:      reqSummary,
		Recommendations:   recommend(results, groups, mismatches, reqSummary),
	}
}

// linkCodes maps every linked product code to the index of the formula that
// owns it. When several formulas link the same code, the one carrying it as
// main product code wins, then the lowest master card number.
func linkCodes(formulas []model.FormulaMaster) map[string]int {
	owner := make(map[string]int)
	for i, f := range formulas {
		for code := range f.LinkedProductCodes() {
			cur, taken := owner[code]
			if !taken || preferOwner(formulas[i], formulas[cur], code) {
				owner[code] = i
			}
		}
	}
	return owner
}

func preferOwner(candidate, current model.FormulaMaster, code string) bool {
	cMain := strings.TrimSpace(candidate.MasterFormulaDetails.ProductCode) == code
	kMain := strings.TrimSpace(current.MasterFormulaDetails.ProductCode) == code
	if cMain != kMain {
		return cMain
	}
	return candidate.BusinessKey() < current.BusinessKey()
}

func flatten(registries []model.BatchRegistry) []batchRef {
	var out []batchRef
	for _, reg := range registries {
		for _, item := range reg.Batches {
			out = append(out, batchRef{item: item, file: reg.FileName})
		}
	}
	return out
}

// NormalizeLicense strips all whitespace and uppercases. The N/A sentinel
// counts as no licence.
func NormalizeLicense(license string) string {
	var b strings.Builder
	for _, r := range license {
		if !unicode.IsSpace(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	if b.String() == model.NotAvailable {
		return ""
	}
	return b.String()
}

// licensesMatch requires both sides to carry a licence; a missing one never
// reconciles.
func licensesMatch(batchLicense, formulaLicense string) bool {
	b := NormalizeLicense(batchLicense)
	return b != "" && b == NormalizeLicense(formulaLicense)
}

func mismatchReason(batchLicense, formulaLicense string) string {
	switch {
	case NormalizeLicense(batchLicense) == "":
		return "batch has no manufacturing licence"
	case NormalizeLicense(formulaLicense) == "":
		return "formula has no manufacturing licence"
	default:
		return fmt.Sprintf("batch licence %q differs from formula licence %q", batchLicense, formulaLicense)
	}
}

// formulaStatus: no batches always wins, and any mismatch downgrades.
func formulaStatus(s model.FormulaStatsSummary) string {
	switch {
	case s.TotalBatches == 0:
		return model.ReconNoBatches
	case s.MismatchedBatches == 0:
		return model.ReconFully
	case s.ReconciledBatches == 0:
		return model.ReconNot
	default:
		return model.ReconPartially
	}
}

func orphanGroups(groups map[string]*model.OrphanBatchGroup, keys []string) []model.OrphanBatchGroup {
	out := make([]model.OrphanBatchGroup, 0, len(keys))
	for _, k := range keys {
		g := *groups[k]
		g.ComplianceRisk = true
		g.RiskLevel = model.RiskMedium
		if g.BatchCount >= highRiskBatchCount {
			g.RiskLevel = model.RiskHigh
		}
		out = append(out, g)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].BatchCount != out[j].BatchCount {
			return out[i].BatchCount > out[j].BatchCount
		}
		return out[i].ItemCode < out[j].ItemCode
	})
	return out
}

func summarizeRequisitions(recs []model.RequisitionRecord, knownBatches map[string]struct{}) model.RequisitionSummary {
	s := model.RequisitionSummary{TotalRequisitions: len(recs), BatchesWithoutRegistry: []string{}}
	missing := make(map[string]struct{})
	for _, r := range recs {
		for _, b := range r.Batches {
			bn := strings.TrimSpace(b.BatchNumber)
			if _, ok := knownBatches[bn]; !ok && bn != "" {
				missing[bn] = struct{}{}
			}
			for _, m := range b.Materials {
				s.TotalMaterials++
				switch m.ValidationStatus {
				case model.ValidationMatched:
					s.MatchedMaterials++
				case model.ValidationMismatch:
					s.MismatchedMaterials++
				default:
					s.PendingMaterials++
				}
			}
		}
	}
	for bn := range missing {
		s.BatchesWithoutRegistry = append(s.BatchesWithoutRegistry, bn)
	}
	sort.Strings(s.BatchesWithoutRegistry)
	return s
}

func sortedCodes(codes map[string]struct{}) []string {
	out := make([]string, 0, len(codes))
	for c := range codes {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) / float64(total) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
