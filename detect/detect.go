// Package detect classifies legacy exports by content only. File names are
// never trusted because the exporter does not keep a naming convention.
package detect

import (
	"strings"

	"mfgdocs/model"
)

type Detector struct {
	rules Rules
}

func New(rules Rules) *Detector {
	return &Detector{rules: rules.normalized()}
}

var defaultDetector = New(DefaultRules())

// Detect classifies content with the default rules.
func Detect(content string) model.FileType {
	return defaultDetector.Detect(content)
}

// Scores returns the number of distinct characteristic tokens found per type.
func (d *Detector) Scores(content string) map[model.FileType]int {
	upper := strings.ToUpper(content)
	return d.scores(upper)
}

func (d *Detector) scores(upper string) map[model.FileType]int {
	return map[model.FileType]int{
		model.FileTypeBatch:       hits(upper, d.rules.Batch.Tokens),
		model.FileTypeFormula:     hits(upper, d.rules.Formula.Tokens),
		model.FileTypeCOA:         hits(upper, d.rules.COA.Tokens),
		model.FileTypeRequisition: hits(upper, d.rules.Requisition.Tokens),
	}
}

// Detect applies the resolution order. Types share tokens (<MCADNO>, <BATCHNO>),
// so every claim needs both an absolute threshold and a margin over its rivals.
func (d *Detector) Detect(content string) model.FileType {
	upper := strings.ToUpper(content)

	if d.rules.RequisitionRoot != "" && strings.Contains(upper, d.rules.RequisitionRoot) {
		return model.FileTypeRequisition
	}

	s := d.scores(upper)
	batch, formula, coa, req := s[model.FileTypeBatch], s[model.FileTypeFormula], s[model.FileTypeCOA], s[model.FileTypeRequisition]

	switch {
	case req >= d.rules.Requisition.MinHits && req > batch:
		return model.FileTypeRequisition
	case batch >= d.rules.Batch.MinHits && batch > formula:
		return model.FileTypeBatch
	case formula >= d.rules.Formula.MinHits && formula > batch:
		return model.FileTypeFormula
	case coa >= d.rules.COA.MinHits && coa > batch && coa > formula:
		return model.FileTypeCOA
	}

	for _, m := range d.rules.Markers {
		if strings.Contains(upper, m.Token) {
			return m.Type
		}
	}
	return model.FileTypeUnknown
}

func hits(upper string, tokens []string) int {
	n := 0
	for _, t := range tokens {
		if strings.Contains(upper, t) {
			n++
		}
	}
	return n
}
