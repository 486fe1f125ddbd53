package model

import "time"

// Worksheet is a named tax-form grouping under which categories are
// organized.
type Worksheet string

// Fixed worksheet names. Personal is reserved for the single non-business
// category.
const (
	Worksheet6A         Worksheet = "6A"
	WorksheetVehicle    Worksheet = "Vehicle"
	WorksheetHomeOffice Worksheet = "HomeOffice"
	WorksheetPersonal   Worksheet = "Personal"
)

// Valid reports whether w is a known worksheet.
func (w Worksheet) Valid() bool {
	switch w {
	case Worksheet6A, WorksheetVehicle, WorksheetHomeOffice, WorksheetPersonal:
		return true
	}
	return false
}

// PersonalExpenseCategory is the reserved non-business category name. It
// is seeded once and can never be hard-deleted.
const PersonalExpenseCategory = "Personal Expense"

// TaxCategory maps a worksheet to a category name. The fixed taxonomy is
// seeded once; client-specific categories carry a client ID and tax-year
// scope and are soft-deactivated, never deleted, so historical worksheet
// totals stay reproducible.
type TaxCategory struct {
	CreatedAt  time.Time
	Worksheet  Worksheet
	Name       string
	ClientID   string // empty for the fixed taxonomy
	ID         int
	TaxYear    int // 0 for the fixed taxonomy
	IsPersonal bool
	IsActive   bool
}

// WorksheetTotal is one row of the (tax year, worksheet, category)
// aggregate consumed by reporting.
type WorksheetTotal struct {
	Worksheet      Worksheet
	Category       string
	TaxYear        int
	Count          int
	Amount         float64
	BusinessAmount float64
}
