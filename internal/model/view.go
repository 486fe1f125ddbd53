package model

// ClassifiedTransaction is the consistent joined view of a transaction,
// its classification record, and its processing status. Readers that need
// fields from more than one pass read this view, produced by a single
// query, rather than stitching rows together themselves.
type ClassifiedTransaction struct {
	Transaction Transaction
	Record      *ClassificationRecord
	Status      *ProcessingStatus
}

// FieldView flattens the view into the named fields the rule engine
// operates on. Only completed passes contribute fields, so rules can never
// key on unauthoritative values.
func (ct *ClassifiedTransaction) FieldView() map[string]any {
	view := map[string]any{
		"description": ct.Transaction.Description,
		"amount":      ct.Transaction.Amount,
		"date":        ct.Transaction.Date.Format("2006-01-02"),
		"source":      ct.Transaction.Source,
		"type":        ct.Transaction.Type,
	}
	for k, v := range ct.Transaction.Extra {
		view[k] = v
	}
	if ct.Record == nil {
		return view
	}
	if p, err := ct.Record.CompletedPayee(ct.Status); err == nil {
		view["payee"] = p.Payee
		if p.GeneralCategory != "" {
			view["general_category"] = p.GeneralCategory
		}
	}
	if c, err := ct.Record.CompletedCategory(ct.Status); err == nil {
		view["category"] = c.Category
		view["expense_type"] = c.ExpenseType
		view["business_percentage"] = c.BusinessPercentage
	}
	if b, err := ct.Record.CompletedBusiness(ct.Status); err == nil {
		view["worksheet"] = string(b.Worksheet)
		view["tax_category_id"] = b.TaxCategoryID
		// The business pass refines the category pass's percentage.
		view["business_percentage"] = b.BusinessPercentage
	}
	return view
}
