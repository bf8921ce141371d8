package parsers

import (
	"strings"

	"mfgdocs/model"
	"mfgdocs/xmltree"
)

const requisitionCloseTag = "</MATREQ>"

var (
	reqBatchTags    = []string{"G_BATCH", "G_BATCHNO"}
	reqProcessTags  = []string{"G_PROCESS", "G_PROC"}
	reqStageTags    = []string{"G_STAGE"}
	reqMaterialTags = []string{"G_MATERIAL", "G_MAT", "G_MATREQDTL"}
)

// ParseRequisition reads a material requisition export. Exports are often cut
// off mid-write, so a document that does not end with </MATREQ> is healed
// before parsing and flagged on the record.
func ParseRequisition(content string) Result[model.RequisitionRecord] {
	res := Result[model.RequisitionRecord]{Success: true}

	rec := model.RequisitionRecord{}
	trimmed := strings.TrimSpace(content)
	if !strings.HasSuffix(strings.ToUpper(trimmed), requisitionCloseTag) {
		healed, closed := xmltree.Heal(trimmed)
		if closed > 0 {
			res.warn("truncated export healed: %d closing tags appended", closed)
			rec.Healed = true
		}
		content = healed
	}

	root, err := parseTree(content)
	if err != nil {
		res.fail("%v", err)
		return res
	}

	rec.LocationCode = orNA(root.Value("LOCCODE", "LOCATIONCODE", "LOCID"))
	rec.Make = orNA(root.Value("MAKE", "MAKENAME"))
	if rec.LocationCode == model.NotAvailable {
		rec.LocationCode = orNA(root.DeepValue("LOCCODE", "LOCATIONCODE", "LOCID"))
	}

	batchNodes := root.All(reqBatchTags...)
	if len(batchNodes) == 0 {
		res.fail("%v: no batch list (G_BATCH) in requisition", ErrMissingContainer)
		return res
	}

	for _, bn := range batchNodes {
		b := model.RequisitionBatch{
			BatchNumber: bn.Value("BATCHNO", "BATCH_NO"),
			ItemCode:    bn.Value("ITEMCODE", "ITMCODE", "PRODCODE"),
			ItemName:    orNA(bn.Value("ITEMNAME", "ITMNAME", "PRODNAME")),
			MasterCard:  bn.Value("MCADNO", "MFCNO", "MASTERCARDNO"),
			MatReqNo:    bn.Value("MATREQNO", "REQNO"),
			ReqDate:     orNA(bn.Value("MATREQDT", "REQDATE", "REQDT")),
			BatchSize:   bn.Value("BATCHSIZE", "BATSIZE"),
		}
		if b.BatchNumber == "" {
			res.warn("requisition %s: batch without batch number", b.MatReqNo)
		}
		collectRequisitionMaterials(bn, "", "", &b, &res)
		b.Recount()
		rec.TotalMaterials += len(b.Materials)
		rec.Batches = append(rec.Batches, b)
	}
	if rec.TotalMaterials == 0 {
		res.warn("no material rows found")
	}

	rec.Status = model.RecordComplete
	if len(res.Warnings) > 0 {
		rec.Status = model.RecordPartial
		rec.ParsingErrors = append(rec.ParsingErrors, res.Warnings...)
	}
	res.Data = rec
	return res
}

// collectRequisitionMaterials walks batch → process → stage → material,
// tolerating exports that omit the process or stage level.
func collectRequisitionMaterials(n *xmltree.Node, process, stage string, b *model.RequisitionBatch, res *Result[model.RequisitionRecord]) {
	for _, c := range n.Nodes {
		switch {
		case c.Is(reqProcessTags...):
			collectRequisitionMaterials(c, c.Value("PROCESSNAME", "PROCNAME", "PROCESS"), "", b, res)
		case c.Is(reqStageTags...):
			collectRequisitionMaterials(c, process, c.Value("STAGENAME", "STAGE"), b, res)
		case c.Is(reqMaterialTags...):
			if m, ok := parseRequisitionMaterial(c, process, stage, res); ok {
				b.Materials = append(b.Materials, m)
			}
		default:
			collectRequisitionMaterials(c, process, stage, b, res)
		}
	}
}

func parseRequisitionMaterial(n *xmltree.Node, process, stage string, res *Result[model.RequisitionRecord]) (model.RequisitionMaterial, bool) {
	m := model.RequisitionMaterial{
		MatReqDtlID:  n.Value("MATREQDTLID", "MATREQDTL_ID", "DTLID"),
		MaterialCode: n.Value("MATCODE", "ITEMCODE", "RMCODE"),
		MaterialName: orNA(n.Value("MATNAME", "ITEMNAME", "RMNAME")),
		MaterialType: strings.ToUpper(n.Value("MATTYPE", "TYPE", "ITEMTYPE")),
		ProcessName:  process,
		StageName:    stage,
		Uom:          n.Value("UOM", "UNIT"),
		ArNumber:     n.Value("ARNO", "AR_NO"),
	}
	if m.MatReqDtlID == "" {
		res.warn("material %s: no MATREQDTLID, skipped", m.MaterialCode)
		return m, false
	}
	if raw := n.Value("REQQTY", "REQUIREDQTY", "REQ_QTY"); raw != "" {
		q, ok := parseQuantity(raw)
		if !ok {
			res.warn("material %s: required quantity %q is not numeric", m.MatReqDtlID, raw)
		}
		m.RequiredQuantity = q
	}
	if raw := n.Value("QTYTOISSUE", "ISSUEQTY", "QTY_TO_ISSUE"); raw != "" {
		q, ok := parseQuantity(raw)
		if !ok {
			res.warn("material %s: issue quantity %q is not numeric", m.MatReqDtlID, raw)
		}
		m.QuantityToIssue = q
	}

	var known bool
	m.Category, known = materialCategory(m.MaterialType, process)
	if !known {
		res.warn("material %s: unknown material type %q, treated as RM", m.MatReqDtlID, m.MaterialType)
	}
	return m, true
}

// materialCategory classifies by the declared type; anything issued to a
// filling process is primary packing whatever it claims to be.
func materialCategory(materialType, process string) (string, bool) {
	if isFillingProcess(process) {
		return model.CategoryPPM, true
	}
	t := strings.ToUpper(strings.TrimSpace(materialType))
	switch {
	case t == "RM" || t == "API" || t == "EXCIPIENT" || strings.HasPrefix(t, "RAW"):
		return model.CategoryRM, true
	case t == "PPM" || strings.HasPrefix(t, "PRIMARY"):
		return model.CategoryPPM, true
	case t == "PM" || t == "SPM" || strings.HasPrefix(t, "PACK") || strings.HasPrefix(t, "SECONDARY"):
		return model.CategoryPM, true
	}
	return model.CategoryRM, false
}
