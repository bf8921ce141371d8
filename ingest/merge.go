package ingest

import (
	"slices"
	"sort"
	"strings"

	"mfgdocs/model"
)

// MergeSummary describes what MergeFormula added to the existing document.
type MergeSummary struct {
	NewItemCodes        []string `json:"newItemCodes"`
	AddedFillingDetails int      `json:"addedFillingDetails"`
	MergedProcesses     int      `json:"mergedProcesses"`
	AddedProcesses      int      `json:"addedProcesses"`
	SourceHashAdded     bool     `json:"sourceHashAdded"`
}

// Changed reports whether the incoming formula contributed any item code.
func (m MergeSummary) Changed() bool {
	return len(m.NewItemCodes) > 0
}

// MergeFormula folds the item codes of incoming that existing does not have
// yet into a copy of existing. Codes already present are never touched, even
// when the two files describe them differently. When nothing is new, existing
// is returned unchanged.
func MergeFormula(existing, incoming model.FormulaMaster) (model.FormulaMaster, MergeSummary) {
	var sum MergeSummary

	have := existing.ItemCodes()
	fresh := make(map[string]struct{})
	for code := range incoming.ItemCodes() {
		if _, ok := have[code]; !ok {
			fresh[code] = struct{}{}
			sum.NewItemCodes = append(sum.NewItemCodes, code)
		}
	}
	sort.Strings(sum.NewItemCodes)
	if len(fresh) == 0 {
		return existing, sum
	}

	merged := existing
	merged.FillingDetails = slices.Clone(existing.FillingDetails)
	merged.Processes = cloneProcesses(existing.Processes)
	merged.SourceHashes = slices.Clone(existing.SourceHashes)

	added := make(map[string]struct{})
	for _, fd := range incoming.FillingDetails {
		code := strings.TrimSpace(fd.ProductCode)
		if _, ok := fresh[code]; !ok {
			continue
		}
		if _, dup := added[code]; dup {
			continue
		}
		added[code] = struct{}{}
		merged.FillingDetails = append(merged.FillingDetails, fd)
		sum.AddedFillingDetails++
	}

	for _, p := range incoming.Processes {
		products := newFillingProducts(p.FillingProducts, fresh)
		if len(products) == 0 {
			continue
		}
		if i := findProcess(merged.Processes, p.ProcessName); i >= 0 {
			merged.Processes[i].FillingProducts = append(merged.Processes[i].FillingProducts, products...)
			sum.MergedProcesses++
			continue
		}
		p.Materials = slices.Clone(p.Materials)
		p.FillingProducts = products
		if last := lastSequence(merged.Processes); p.Sequence <= last {
			p.Sequence = last + 1
		}
		merged.Processes = append(merged.Processes, p)
		sum.AddedProcesses++
	}

	if h := incoming.ContentHash; h != "" && h != existing.ContentHash && !slices.Contains(merged.SourceHashes, h) {
		merged.SourceHashes = append(merged.SourceHashes, h)
		sum.SourceHashAdded = true
	}
	return merged, sum
}

func cloneProcesses(in []model.FormulaProcess) []model.FormulaProcess {
	out := make([]model.FormulaProcess, len(in))
	for i, p := range in {
		p.Materials = slices.Clone(p.Materials)
		p.FillingProducts = slices.Clone(p.FillingProducts)
		out[i] = p
	}
	return out
}

func newFillingProducts(products []model.FillingDetail, fresh map[string]struct{}) []model.FillingDetail {
	var out []model.FillingDetail
	seen := make(map[string]struct{})
	for _, fp := range products {
		code := strings.TrimSpace(fp.ProductCode)
		if _, ok := fresh[code]; !ok {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, fp)
	}
	return out
}

// findProcess matches process names ignoring case and surrounding spaces.
func findProcess(processes []model.FormulaProcess, name string) int {
	name = strings.TrimSpace(name)
	for i, p := range processes {
		if strings.EqualFold(strings.TrimSpace(p.ProcessName), name) {
			return i
		}
	}
	return -1
}

func lastSequence(processes []model.FormulaProcess) int {
	last := 0
	for _, p := range processes {
		if p.Sequence > last {
			last = p.Sequence
		}
	}
	return last
}
