package detect

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"mfgdocs/model"
)

// TypeRule is the characteristic token list of one export type and the
// minimum number of distinct tokens that must be present to claim it.
type TypeRule struct {
	Tokens  []string `yaml:"tokens"`
	MinHits int      `yaml:"minHits"`
}

// Marker maps an explicit report-name marker to a type (last-resort fallback).
type Marker struct {
	Token string         `yaml:"token"`
	Type  model.FileType `yaml:"type"`
}

type Rules struct {
	Batch           TypeRule `yaml:"batch"`
	Formula         TypeRule `yaml:"formula"`
	COA             TypeRule `yaml:"coa"`
	Requisition     TypeRule `yaml:"requisition"`
	RequisitionRoot string   `yaml:"requisitionRoot"`
	Markers         []Marker `yaml:"markers"`
}

// DefaultRules are the thresholds tuned against the legacy exporter's output.
func DefaultRules() Rules {
	return Rules{
		Batch: TypeRule{
			Tokens: []string{
				"BATCHCRREGI", "<BATCHNO>", "<MFCDT>", "<G_MATCODE>", "<LIST_G_MATCODE>",
				"<MFGLICNO>", "<MRP>", "<BATCHUOM>", "<CONVRATIO>",
			},
			MinHits: 2,
		},
		Formula: TypeRule{
			Tokens: []string{
				"FORMULAMAST", "<MCADNO>", "<ITMCODE>", "<G_MCADNO>", "<REVNO>",
				"<LABELCLAIM>", "<GENERICNAME>", "<SHELFLIFE>", "<G_PROCESS>", "<PROCNAME>",
			},
			MinHits: 2,
		},
		COA: TypeRule{
			Tokens: []string{
				"FGANLCERT", "BULKANLCERT", "<FGARNO>", "<ARNO>", "<G_TEST>",
				"<TESTNAME>", "<SPECLIMIT>", "<RESULT>", "<ANALYSISDT>",
			},
			MinHits: 2,
		},
		Requisition: TypeRule{
			Tokens: []string{
				"<MATREQ>", "<MATREQDTLID>", "<MATREQNO>", "<QTYTOISSUE>", "<REQQTY>",
				"<G_STAGE>", "<STAGENAME>", "<PROCESSNAME>", "<LIST_G_BATCH>",
			},
			MinHits: 4,
		},
		RequisitionRoot: "<MATREQ>",
		Markers: []Marker{
			{Token: "BATCHCRREGI", Type: model.FileTypeBatch},
			{Token: "FORMULAMAST", Type: model.FileTypeFormula},
		},
	}
}

// LoadRules reads a YAML override file on top of DefaultRules. Lists present
// in the file replace the defaults; absent keys keep them.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	data, err := os.ReadFile(path)
	if err != nil {
		return rules, fmt.Errorf("read detection rules %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return DefaultRules(), fmt.Errorf("parse detection rules %s: %w", path, err)
	}
	return rules.normalized(), nil
}

func (r Rules) normalized() Rules {
	upper := func(in []string) []string {
		out := make([]string, 0, len(in))
		for _, t := range in {
			if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
				out = append(out, t)
			}
		}
		return out
	}
	r.Batch.Tokens = upper(r.Batch.Tokens)
	r.Formula.Tokens = upper(r.Formula.Tokens)
	r.COA.Tokens = upper(r.COA.Tokens)
	r.Requisition.Tokens = upper(r.Requisition.Tokens)
	r.RequisitionRoot = strings.ToUpper(strings.TrimSpace(r.RequisitionRoot))
	markers := make([]Marker, 0, len(r.Markers))
	for _, m := range r.Markers {
		if tok := strings.ToUpper(strings.TrimSpace(m.Token)); tok != "" {
			markers = append(markers, Marker{Token: tok, Type: m.Type})
		}
	}
	r.Markers = markers
	return r
}
