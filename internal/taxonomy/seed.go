// Package taxonomy holds the fixed tax worksheet/category taxonomy and
// client-specific additions.
package taxonomy

import "github.com/ledgerworks/taxpass/internal/model"

// SeedCategory is one row of the fixed taxonomy seeded at migration time.
type SeedCategory struct {
	Worksheet  model.Worksheet
	Name       string
	IsPersonal bool
}

// Fixed returns the versioned fixed taxonomy, including the reserved
// personal-expense category. The order is stable: tax_category_id values
// in AI responses index into this list (1-based), so entries are only ever
// appended.
func Fixed() []SeedCategory {
	return []SeedCategory{
		{Worksheet: model.Worksheet6A, Name: "Advertising"},
		{Worksheet: model.Worksheet6A, Name: "Commissions and Fees"},
		{Worksheet: model.Worksheet6A, Name: "Contract Labor"},
		{Worksheet: model.Worksheet6A, Name: "Insurance"},
		{Worksheet: model.Worksheet6A, Name: "Legal and Professional Services"},
		{Worksheet: model.Worksheet6A, Name: "Office Expense"},
		{Worksheet: model.Worksheet6A, Name: "Rent or Lease"},
		{Worksheet: model.Worksheet6A, Name: "Repairs and Maintenance"},
		{Worksheet: model.Worksheet6A, Name: "Supplies"},
		{Worksheet: model.Worksheet6A, Name: "Taxes and Licenses"},
		{Worksheet: model.Worksheet6A, Name: "Travel"},
		{Worksheet: model.Worksheet6A, Name: "Meals"},
		{Worksheet: model.Worksheet6A, Name: "Utilities"},
		{Worksheet: model.Worksheet6A, Name: "Other Expenses"},
		{Worksheet: model.WorksheetVehicle, Name: "Gas and Fuel"},
		{Worksheet: model.WorksheetVehicle, Name: "Vehicle Insurance"},
		{Worksheet: model.WorksheetVehicle, Name: "Vehicle Repairs"},
		{Worksheet: model.WorksheetVehicle, Name: "Parking and Tolls"},
		{Worksheet: model.WorksheetVehicle, Name: "Vehicle Registration"},
		{Worksheet: model.WorksheetHomeOffice, Name: "Home Office Rent"},
		{Worksheet: model.WorksheetHomeOffice, Name: "Home Office Utilities"},
		{Worksheet: model.WorksheetHomeOffice, Name: "Home Office Insurance"},
		{Worksheet: model.WorksheetHomeOffice, Name: "Home Office Repairs"},
		{Worksheet: model.WorksheetHomeOffice, Name: "Internet"},
		{Worksheet: model.WorksheetPersonal, Name: model.PersonalExpenseCategory, IsPersonal: true},
	}
}

// Size returns N, the size of the fixed taxonomy. AI business-pass
// responses must return tax_category_id in [1, N].
func Size() int {
	return len(Fixed())
}
