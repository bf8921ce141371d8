package parsers

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"mfgdocs/model"
	"mfgdocs/xmltree"
)

var (
	formulaBlockTags   = []string{"G_MCADNO", "G_FORMULA", "G_MFC"}
	processTags        = []string{"G_PROCESS", "G_PROC"}
	formulaMatTags     = []string{"G_MAT", "G_MATERIAL", "G_RM", "G_BOM"}
	fillingProductTags = []string{"G_FPROD", "G_FILLPROD", "G_FILLING"}

	masterCardAliases   = []string{"MCADNO", "MFCNO", "MASTERCARDNO", "MCARDNO"}
	productCodeAliases  = []string{"ITMCODE", "ITEMCODE", "PRODCODE", "PRODUCTCODE"}
	productNameAliases  = []string{"ITMNAME", "ITEMNAME", "PRODNAME", "PRODUCTNAME"}
	processNameAliases  = []string{"PROCNAME", "PROCESSNAME", "PROCESS"}
	materialTypeAliases = []string{"MATTYPE", "TYPE", "ITEMTYPE", "MAT_TYPE"}
)

// ParseFormula returns the first formula of a master formula card export.
func ParseFormula(content string) Result[model.FormulaMaster] {
	all := ParseFormulas(content)
	res := Result[model.FormulaMaster]{Success: all.Success, Errors: all.Errors, Warnings: all.Warnings}
	if all.Success && len(all.Data) > 0 {
		res.Data = all.Data[0]
	}
	return res
}

// ParseFormulas yields one record per master block. Old exports carry several
// product revisions in one file; a file without blocks is read as a single
// master record.
func ParseFormulas(content string) Result[[]model.FormulaMaster] {
	res := Result[[]model.FormulaMaster]{Success: true}

	root, err := parseTree(content)
	if err != nil {
		res.fail("%v", err)
		return res
	}

	blocks := root.All(formulaBlockTags...)
	if len(blocks) == 0 {
		if root.Value(masterCardAliases...) == "" && root.Value(productCodeAliases...) == "" {
			res.fail("%v: no master formula block (G_MCADNO) in document", ErrMissingContainer)
			return res
		}
		blocks = []*xmltree.Node{root}
	}

	for i, block := range blocks {
		f, warnings, err := parseFormulaBlock(block)
		label := fmt.Sprintf("formula %d", i+1)
		if f.HasMasterCard() {
			label = "formula " + f.MasterFormulaDetails.MasterCardNo
		}
		if err != nil {
			res.warn("%s: %v, skipped", label, err)
			continue
		}
		for _, w := range warnings {
			res.warn("%s: %s", label, w)
		}
		res.Data = append(res.Data, f)
	}
	if len(res.Data) == 0 {
		res.fail("no usable formula blocks in document")
	}
	return res
}

func parseFormulaBlock(block *xmltree.Node) (model.FormulaMaster, []string, error) {
	var warnings []string
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	d := model.MasterFormulaDetails{
		MasterCardNo:           orNA(block.Value(masterCardAliases...)),
		ProductCode:            block.Value(productCodeAliases...),
		ProductName:            orNA(block.Value(productNameAliases...)),
		GenericName:            orNA(block.Value("GENERICNAME", "GENNAME", "GENERIC")),
		RevisionNo:             block.Value("REVNO", "REVISIONNO", "REV_NO"),
		Manufacturer:           orNA(block.Value("MANUFACTURER", "MFGBY", "MFRNAME")),
		ManufacturingLicenseNo: orNA(block.Value("MFGLICNO", "LICNO", "MFGLIC")),
		ManufacturingLocation:  orNA(block.Value("MFGLOCATION", "MFGLOC", "LOCATION")),
		Specification:          orNA(block.Value("SPECIFICATION", "SPEC", "PHARMACOPOEIA")),
		ShelfLife:              orNA(block.Value("SHELFLIFE", "SHELF_LIFE")),
		LabelClaim:             orNA(block.Value("LABELCLAIM", "LABEL_CLAIM", "COMPOSITION")),
		DosageForm:             orNA(block.Value("DOSAGEFORM", "DOSFORM", "FORM")),
		EffectiveDate:          orNA(block.Value("EFFDT", "EFFECTIVEDATE", "EFFDATE")),
	}
	if isNA(d.MasterCardNo) && d.ProductCode == "" {
		return model.FormulaMaster{}, nil, errors.New("neither master card number nor product code present")
	}
	if d.ProductCode == "" {
		warn("product code missing")
		d.ProductCode = model.NotAvailable
	}
	if d.RevisionNo == "" {
		d.RevisionNo = "0"
	}
	if isNA(d.ManufacturingLicenseNo) {
		warn("manufacturing licence missing")
	}

	f := model.FormulaMaster{
		MasterFormulaDetails: d,
		BatchInfo: model.FormulaBatchInfo{
			BatchSize: orNA(block.Value("BATCHSIZE", "BATSIZE", "STDBATCHSIZE")),
			BatchUom:  block.Value("BATCHUOM", "BUOM", "UOM"),
			Potency:   block.Value("POTENCY"),
		},
	}

	procNodes := block.All(processTags...)
	for i, p := range procNodes {
		proc := parseFormulaProcess(p, i+1, warn)
		f.Processes = append(f.Processes, proc)
		for _, m := range proc.Materials {
			if isRawMaterial(m) {
				f.Materials = append(f.Materials, m)
			} else {
				f.PackingMaterials = append(f.PackingMaterials, m)
			}
		}
		f.FillingDetails = appendFilling(f.FillingDetails, proc.FillingProducts)
	}
	if len(procNodes) == 0 {
		for _, row := range block.All(formulaMatTags...) {
			m := parseFormulaMaterial(row, "", warn)
			if isRawMaterial(m) {
				f.Materials = append(f.Materials, m)
			} else {
				f.PackingMaterials = append(f.PackingMaterials, m)
			}
		}
	}
	if len(f.Materials) == 0 {
		warn("no raw material rows")
	}

	comp, ok := ParseComposition(d.LabelClaim)
	switch {
	case isNA(d.LabelClaim):
		warn("label claim missing, composition empty")
	case !ok:
		warn("composition could not be parsed from label claim %q", d.LabelClaim)
	}
	f.Composition = comp

	f.UniqueIdentifier = f.BusinessKey()
	f.Status = model.RecordComplete
	if len(warnings) > 0 {
		f.Status = model.RecordPartial
		f.ParsingErrors = append(f.ParsingErrors, warnings...)
	}
	return f, warnings, nil
}

func parseFormulaProcess(p *xmltree.Node, pos int, warn func(string, ...any)) model.FormulaProcess {
	proc := model.FormulaProcess{
		ProcessName: p.Value(processNameAliases...),
		Sequence:    pos,
	}
	if proc.ProcessName == "" {
		proc.ProcessName = fmt.Sprintf("PROCESS-%d", pos)
	}
	if seq, err := strconv.Atoi(p.Value("PROCSEQ", "SEQNO", "SEQ")); err == nil {
		proc.Sequence = seq
	}

	for _, row := range p.All(formulaMatTags...) {
		proc.Materials = append(proc.Materials, parseFormulaMaterial(row, proc.ProcessName, warn))
	}

	products := p.All(fillingProductTags...)
	if len(products) == 0 {
		return proc
	}
	if !isFillingProcess(proc.ProcessName) {
		warn("process %q lists %d filling products outside a filling section, ignored", proc.ProcessName, len(products))
		return proc
	}
	for _, fp := range products {
		code := fp.Value("FPRODCODE", "ITMCODE", "ITEMCODE", "PRODCODE")
		if code == "" {
			warn("process %q: filling product without code, skipped", proc.ProcessName)
			continue
		}
		proc.FillingProducts = append(proc.FillingProducts, model.FillingDetail{
			ProductCode: code,
			ProductName: orNA(fp.Value("FPRODNAME", "ITMNAME", "ITEMNAME", "PRODNAME")),
			PackSize:    fp.Value("PACKSIZE", "PACK"),
			FillQty:     fp.Value("FILLQTY", "FILL_QTY", "QTY"),
			Uom:         fp.Value("UOM", "UNIT"),
		})
	}
	return proc
}

func parseFormulaMaterial(row *xmltree.Node, process string, warn func(string, ...any)) model.FormulaMaterial {
	m := model.FormulaMaterial{
		MaterialCode: row.Value("MATCODE", "ITEMCODE", "RMCODE"),
		MaterialName: orNA(row.Value("MATNAME", "ITEMNAME", "RMNAME")),
		MaterialType: strings.ToUpper(row.Value(materialTypeAliases...)),
		SubType:      strings.ToUpper(row.Value("SUBTYPE", "MATSUBTYPE", "SUB_TYPE")),
		Uom:          row.Value("UOM", "UNIT"),
		Overage:      row.Value("OVERAGE", "OVG"),
		ProcessName:  process,
	}
	raw := row.Value("QTY", "STDQTY", "QUANTITY", "REQQTY")
	if q, ok := parseQuantity(raw); ok {
		m.Quantity = q
	} else if raw != "" {
		warn("material %s: quantity %q is not numeric", m.MaterialCode, raw)
	}
	return m
}

func isFillingProcess(name string) bool {
	return containsAny(name, "FILL")
}

// isRawMaterial keeps RM rows: explicit RM/raw type or an API/excipient sub-type.
func isRawMaterial(m model.FormulaMaterial) bool {
	switch m.MaterialType {
	case "RM", "RAW", "RAW MATERIAL", "API", "EXCIPIENT":
		return true
	}
	return containsAny(m.SubType, "API", "EXCIPIENT", "ACTIVE")
}

func appendFilling(dst, src []model.FillingDetail) []model.FillingDetail {
	seen := make(map[string]struct{}, len(dst))
	for _, fd := range dst {
		seen[fd.ProductCode] = struct{}{}
	}
	for _, fd := range src {
		if _, ok := seen[fd.ProductCode]; ok {
			continue
		}
		seen[fd.ProductCode] = struct{}{}
		dst = append(dst, fd)
	}
	return dst
}

var (
	claimPrefix   = regexp.MustCompile(`(?is)^.*?\bcontains?\b\s*:?\s*`)
	claimSplit    = regexp.MustCompile(`\s*(?:,|;|\+|\band\b|\n)\s*`)
	claimStrength = regexp.MustCompile(`(?i)^(.*?)\s*\b(IP|BP|USP|EP|Ph\.?\s*Eur\.?)?\s*(\d+(?:\.\d+)?)\s*(mg|mcg|µg|g|ml|iu|%\s*w/w|%\s*w/v|%)(?:\s|$|\.)`)
)

// ParseComposition splits a free-text label claim ("Each tablet contains:
// Paracetamol IP 500 mg, Caffeine IP 30 mg") into entries. It is best effort:
// the second return is false when no fragment yielded a strength.
func ParseComposition(claim string) ([]model.CompositionEntry, bool) {
	if isNA(claim) {
		return nil, false
	}
	body := claimPrefix.ReplaceAllString(claim, "")
	var out []model.CompositionEntry
	for _, part := range claimSplit.Split(body, -1) {
		m := claimStrength.FindStringSubmatch(strings.TrimSpace(part) + " ")
		if m == nil {
			continue
		}
		ingredient := strings.Trim(strings.TrimSpace(m[1]), ".:-")
		if ingredient == "" {
			continue
		}
		out = append(out, model.CompositionEntry{
			Ingredient: ingredient,
			Standard:   strings.ToUpper(strings.TrimSpace(m[2])),
			Strength:   m[3],
			Unit:       strings.ToLower(strings.ReplaceAll(m[4], " ", "")),
		})
	}
	return out, len(out) > 0
}
