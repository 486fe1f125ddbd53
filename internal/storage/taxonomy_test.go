package storage_test

import (
	"context"
	"testing"

	"github.com/ledgerworks/taxpass/internal/model"
	"github.com/ledgerworks/taxpass/internal/service"
	"github.com/ledgerworks/taxpass/internal/taxonomy"
	"github.com/ledgerworks/taxpass/internal/testutil"
)

func TestFixedTaxonomySeeded(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	cats, err := db.Storage.GetTaxCategories(ctx, db.Client.ID, true)
	if err != nil {
		t.Fatalf("GetTaxCategories: %v", err)
	}
	if len(cats) != taxonomy.Size() {
		t.Fatalf("seeded %d categories, want %d", len(cats), taxonomy.Size())
	}

	// IDs are 1-based indexes into the fixed list.
	fixed := taxonomy.Fixed()
	for i, cat := range cats {
		if cat.ID != i+1 {
			t.Errorf("category %q id = %d, want %d", cat.Name, cat.ID, i+1)
		}
		if cat.Name != fixed[i].Name || cat.Worksheet != fixed[i].Worksheet {
			t.Errorf("category %d = %s/%s, want %s/%s", i+1, cat.Worksheet, cat.Name, fixed[i].Worksheet, fixed[i].Name)
		}
	}

	last := cats[len(cats)-1]
	if last.Name != model.PersonalExpenseCategory || !last.IsPersonal {
		t.Errorf("last category = %+v, want the reserved personal-expense category", last)
	}
}

func TestReservedCategoryCannotBeDeactivated(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	personal := taxonomy.Size() // reserved category is seeded last
	if err := db.Storage.DeactivateTaxCategory(ctx, personal); err == nil {
		t.Error("reserved personal-expense category was deactivated")
	}
}

func TestClientCategoriesAndSoftDeactivation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	added, err := db.Storage.AddClientTaxCategory(ctx, &model.TaxCategory{
		Worksheet: model.Worksheet6A,
		Name:      "Podcast Hosting",
		ClientID:  db.Client.ID,
		TaxYear:   2025,
	})
	if err != nil {
		t.Fatalf("AddClientTaxCategory: %v", err)
	}

	if err := db.Storage.DeactivateTaxCategory(ctx, added.ID); err != nil {
		t.Fatalf("DeactivateTaxCategory: %v", err)
	}

	active, err := db.Storage.GetTaxCategories(ctx, db.Client.ID, true)
	if err != nil {
		t.Fatalf("GetTaxCategories active: %v", err)
	}
	for _, cat := range active {
		if cat.ID == added.ID {
			t.Error("deactivated category still listed as active")
		}
	}

	all, err := db.Storage.GetTaxCategories(ctx, db.Client.ID, false)
	if err != nil {
		t.Fatalf("GetTaxCategories all: %v", err)
	}
	found := false
	for _, cat := range all {
		if cat.ID == added.ID {
			found = true
		}
	}
	if !found {
		t.Error("deactivated category missing from the full listing")
	}
}

func TestAddClientCategoryRejectsReservedName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	_, err := db.Storage.AddClientTaxCategory(context.Background(), &model.TaxCategory{
		Worksheet: model.WorksheetPersonal,
		Name:      model.PersonalExpenseCategory,
		ClientID:  db.Client.ID,
		TaxYear:   2025,
	})
	if err == nil {
		t.Error("reserved name accepted as a client category")
	}
}

func TestWorksheetTotalsIncludeDeactivatedCategories(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	seedOne(t, db)

	commitPayee(t, db, "t1", "", &model.PayeeResult{Payee: "AWS", Confidence: model.ConfidenceHigh})
	mustCommit(t, db, &service.PassOutcome{
		ClientID: db.Client.ID, TransactionID: "t1", Pass: model.PassCategory,
		Category: &model.CategoryResult{Category: "Software", BusinessPercentage: 100},
	})
	mustCommit(t, db, &service.PassOutcome{
		ClientID: db.Client.ID, TransactionID: "t1", Pass: model.PassBusiness,
		Business: &model.BusinessResult{
			Worksheet: model.Worksheet6A, Confidence: model.ConfidenceHigh,
			TaxCategoryID: 6, BusinessPercentage: 50,
		},
	})

	totals, err := db.Storage.GetWorksheetTotals(ctx, db.Client.ID, 2025)
	if err != nil {
		t.Fatalf("GetWorksheetTotals: %v", err)
	}
	if len(totals) != 1 {
		t.Fatalf("got %d totals, want 1", len(totals))
	}
	total := totals[0]
	if total.Worksheet != model.Worksheet6A || total.Count != 1 {
		t.Errorf("total = %+v", total)
	}
	if total.Amount != 120 || total.BusinessAmount != 60 {
		t.Errorf("amounts = (%v, %v), want (120, 60)", total.Amount, total.BusinessAmount)
	}

	// Off-year queries see nothing.
	empty, err := db.Storage.GetWorksheetTotals(ctx, db.Client.ID, 2024)
	if err != nil {
		t.Fatalf("GetWorksheetTotals 2024: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("2024 totals = %v, want none", empty)
	}
}
