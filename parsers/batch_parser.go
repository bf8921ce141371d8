package parsers

import (
	"strings"

	"mfgdocs/model"
	"mfgdocs/xmltree"
)

// Field aliases seen across exporter versions of the batch creation register.
var (
	batchItemTags         = []string{"G_MATCODE", "G_BATCHNO"}
	batchListTags         = []string{"LIST_G_MATCODE", "LIST_G_BATCHNO"}
	companyNameAliases    = []string{"COMPANYNAME", "CF_COMPANYNAME", "COMPNAME", "COMPANY"}
	companyAddressAliases = []string{"COMPANYADDRESS", "CF_COMPANYADDRESS", "COMPADD", "CF_ADDRESS", "ADDRESS"}

	batchNoAliases   = []string{"BATCHNO", "BATCH_NO", "BATCHNUMBER"}
	itemCodeAliases  = []string{"ITEMCODE", "MATCODE", "ITMCODE", "PRODCODE"}
	itemNameAliases  = []string{"ITEMNAME", "MATNAME", "ITMNAME", "PRODNAME"}
	mfgDateAliases   = []string{"MFCDT", "MFGDT", "MFGDATE", "MFG_DATE"}
	expDateAliases   = []string{"EXPDT", "EXPDATE", "EXPIRYDATE", "EXP_DATE"}
	batchSizeAliases = []string{"BATCHSIZE", "BATSIZE", "BATCH_SIZE"}
	mfgLicAliases    = []string{"MFGLICNO", "MFGLIC", "LICNO", "MFG_LIC_NO"}
)

// ParseBatchRegistry extracts the company header and every batch row of a
// batch creation register. Rows without a batch number or item code cannot
// be deduplicated and are skipped with a warning.
func ParseBatchRegistry(content string) Result[model.BatchRegistry] {
	res := Result[model.BatchRegistry]{Success: true}

	root, err := parseTree(content)
	if err != nil {
		res.fail("%v", err)
		return res
	}

	rows := root.All(batchItemTags...)
	if len(rows) == 0 {
		if root.First(batchListTags...) == nil {
			res.fail("%v: no batch list (LIST_G_MATCODE/G_MATCODE) in document", ErrMissingContainer)
		} else {
			res.fail("batch list is empty")
		}
		return res
	}

	reg := model.BatchRegistry{
		CompanyName:    root.DeepValue(companyNameAliases...),
		CompanyAddress: root.DeepValue(companyAddressAliases...),
	}
	if reg.CompanyName == "" {
		res.warn("company name missing")
	}
	reg.CompanyName = orNA(reg.CompanyName)
	reg.CompanyAddress = orNA(reg.CompanyAddress)

	pos := 0
	for _, row := range rows {
		// Grouped layout: one G_MATCODE per material holding its G_BATCHNO rows.
		nested := row.All(batchItemTags...)
		if len(nested) == 0 {
			pos++
			if item, ok := parseBatchItem(row, nil, pos, &res); ok {
				reg.Batches = append(reg.Batches, item)
			}
			continue
		}
		for _, child := range nested {
			pos++
			if item, ok := parseBatchItem(child, row, pos, &res); ok {
				reg.Batches = append(reg.Batches, item)
			}
		}
	}
	if len(reg.Batches) == 0 {
		res.fail("no usable batch rows: every row lacks a batch number or item code")
		return res
	}

	reg.Recount()
	reg.Status = model.RecordComplete
	if len(res.Warnings) > 0 {
		reg.Status = model.RecordPartial
		reg.ParsingErrors = append(reg.ParsingErrors, res.Warnings...)
	}
	res.Data = reg
	return res
}

// parseBatchItem reads one row; group, when set, supplies fields the row
// itself leaves out.
func parseBatchItem(row, group *xmltree.Node, pos int, res *Result[model.BatchRegistry]) (model.BatchItem, bool) {
	value := func(aliases ...string) string {
		if v := row.Value(aliases...); v != "" {
			return v
		}
		return group.Value(aliases...)
	}

	batchNo := value(batchNoAliases...)
	itemCode := value(itemCodeAliases...)
	if batchNo == "" || itemCode == "" {
		res.warn("row %d: missing batch number or item code, skipped", pos)
		return model.BatchItem{}, false
	}

	mrp := value("MRP", "MRPVALUE", "MRP_VALUE")
	item := model.BatchItem{
		BatchNumber:     batchNo,
		ItemCode:        itemCode,
		ItemName:        orNA(value(itemNameAliases...)),
		MfgDate:         orNA(value(mfgDateAliases...)),
		ExpiryDate:      orNA(value(expDateAliases...)),
		BatchSize:       value(batchSizeAliases...),
		Unit:            value("UOM", "UNIT"),
		BatchUom:        value("BATCHUOM", "BUOM", "BATCH_UOM"),
		MfgLicNo:        value(mfgLicAliases...),
		Department:      value("DEPT", "DEPARTMENT", "DEPTNAME"),
		Pack:            value("PACK", "PACKSIZE"),
		Year:            value("YEAR", "BATCHYEAR"),
		Make:            value("MAKE"),
		LocationID:      value("LOCID", "LOCATIONID", "LOCCODE"),
		MrpValue:        mrp,
		ConversionRatio: value("CONVRATIO", "CONVERSIONRATIO", "CONV_RATIO"),
		Type:            model.BatchTypeExport,
	}
	if strings.TrimSpace(mrp) != "" {
		item.Type = model.BatchTypeImport
	}
	if item.MfgLicNo == "" {
		res.warn("row %d (%s/%s): manufacturing licence missing", pos, batchNo, itemCode)
	}
	return item, true
}
