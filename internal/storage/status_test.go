package storage_test

import (
	"context"
	"testing"

	"github.com/ledgerworks/taxpass/internal/model"
	"github.com/ledgerworks/taxpass/internal/service"
	"github.com/ledgerworks/taxpass/internal/testutil"
)

// commitPayee commits a payee-pass outcome, failing the test on error.
func commitPayee(t *testing.T, db *testutil.TestDB, txnID, fingerprint string, result *model.PayeeResult) {
	t.Helper()
	err := db.Storage.CommitPassOutcome(context.Background(), &service.PassOutcome{
		ClientID:      db.Client.ID,
		TransactionID: txnID,
		Fingerprint:   fingerprint,
		Pass:          model.PassPayee,
		Payee:         result,
	})
	if err != nil {
		t.Fatalf("CommitPassOutcome: %v", err)
	}
}

func seedOne(t *testing.T, db *testutil.TestDB) {
	t.Helper()
	ctx := context.Background()
	db.SeedTransactions(ctx, "chase_checking", []model.Transaction{db.Txn("t1", "AWS usage", 120)})
	if _, err := db.Storage.EnsureStatus(ctx, db.Client.ID, "t1"); err != nil {
		t.Fatalf("EnsureStatus: %v", err)
	}
}

func TestEnsureStatusDefaultsAllPending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seedOne(t, db)

	status, err := db.Storage.GetStatus(context.Background(), db.Client.ID, "t1")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	for p := model.PassPayee; p <= model.PassBusiness; p++ {
		if status.State(p).Status != model.StatusPending {
			t.Errorf("%s pass = %s, want pending", p, status.State(p).Status)
		}
	}
}

func TestClaimPassIsCompareAndSet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seedOne(t, db)
	ctx := context.Background()

	claimed, err := db.Storage.ClaimPass(ctx, db.Client.ID, "t1", model.PassPayee, false)
	if err != nil || !claimed {
		t.Fatalf("first claim = (%v, %v), want (true, nil)", claimed, err)
	}

	// The pass is now processing; a second claim must lose.
	claimed, err = db.Storage.ClaimPass(ctx, db.Client.ID, "t1", model.PassPayee, false)
	if err != nil || claimed {
		t.Fatalf("second claim = (%v, %v), want (false, nil)", claimed, err)
	}
}

func TestClaimPassEligibility(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seedOne(t, db)
	ctx := context.Background()

	// Completed passes are not claimable without force.
	commitPayee(t, db, "t1", "fp", &model.PayeeResult{Payee: "AWS", Confidence: model.ConfidenceHigh})
	claimed, err := db.Storage.ClaimPass(ctx, db.Client.ID, "t1", model.PassPayee, false)
	if err != nil || claimed {
		t.Fatalf("claim of completed pass = (%v, %v), want (false, nil)", claimed, err)
	}

	// Force reclaims a completed pass.
	claimed, err = db.Storage.ClaimPass(ctx, db.Client.ID, "t1", model.PassPayee, true)
	if err != nil || !claimed {
		t.Fatalf("forced claim = (%v, %v), want (true, nil)", claimed, err)
	}

	// An errored pass stays eligible for retry.
	if err := db.Storage.MarkPassError(ctx, db.Client.ID, "t1", model.PassCategory, "timeout"); err != nil {
		t.Fatalf("MarkPassError: %v", err)
	}
	claimed, err = db.Storage.ClaimPass(ctx, db.Client.ID, "t1", model.PassCategory, false)
	if err != nil || !claimed {
		t.Fatalf("claim of errored pass = (%v, %v), want (true, nil)", claimed, err)
	}

	// A skipped pass needs force.
	if err := db.Storage.MarkPassSkipped(ctx, db.Client.ID, "t1", model.PassBusiness); err != nil {
		t.Fatalf("MarkPassSkipped: %v", err)
	}
	claimed, err = db.Storage.ClaimPass(ctx, db.Client.ID, "t1", model.PassBusiness, false)
	if err != nil || claimed {
		t.Fatalf("claim of skipped pass = (%v, %v), want (false, nil)", claimed, err)
	}
}

func TestForcePassMakesEligible(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seedOne(t, db)
	ctx := context.Background()

	commitPayee(t, db, "t1", "fp", &model.PayeeResult{Payee: "AWS", Confidence: model.ConfidenceHigh})

	if err := db.Storage.ForcePass(ctx, db.Client.ID, "t1", model.PassPayee); err != nil {
		t.Fatalf("ForcePass: %v", err)
	}

	status, err := db.Storage.GetStatus(ctx, db.Client.ID, "t1")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if got := status.State(model.PassPayee).Status; got != model.StatusForceRequired {
		t.Fatalf("status = %s, want force_required", got)
	}

	claimed, err := db.Storage.ClaimPass(ctx, db.Client.ID, "t1", model.PassPayee, false)
	if err != nil || !claimed {
		t.Fatalf("claim after ForcePass = (%v, %v), want (true, nil)", claimed, err)
	}
}

func TestMarkPassErrorCapturesMessage(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seedOne(t, db)
	ctx := context.Background()

	if err := db.Storage.MarkPassError(ctx, db.Client.ID, "t1", model.PassPayee, "connection reset"); err != nil {
		t.Fatalf("MarkPassError: %v", err)
	}

	status, err := db.Storage.GetStatus(ctx, db.Client.ID, "t1")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	state := status.State(model.PassPayee)
	if state.Status != model.StatusError {
		t.Errorf("status = %s, want error", state.Status)
	}
	if state.Error != "connection reset" {
		t.Errorf("error message = %q, want %q", state.Error, "connection reset")
	}
	if state.UpdatedAt.IsZero() {
		t.Error("error timestamp not set")
	}
}

func TestResetPassesClearsFromPassOnward(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seedOne(t, db)
	ctx := context.Background()

	// Complete all three passes.
	commitPayee(t, db, "t1", "fp-p", &model.PayeeResult{Payee: "AWS", Confidence: model.ConfidenceHigh})
	mustCommit(t, db, &service.PassOutcome{
		ClientID: db.Client.ID, TransactionID: "t1", Pass: model.PassCategory,
		Category: &model.CategoryResult{Category: "Software", BusinessPercentage: 100},
	})
	mustCommit(t, db, &service.PassOutcome{
		ClientID: db.Client.ID, TransactionID: "t1", Pass: model.PassBusiness,
		Business: &model.BusinessResult{Worksheet: model.Worksheet6A, Confidence: model.ConfidenceHigh, TaxCategoryID: 6, BusinessPercentage: 100},
	})

	if err := db.Storage.ResetPasses(ctx, db.Client.ID, "t1", model.PassCategory); err != nil {
		t.Fatalf("ResetPasses: %v", err)
	}

	ct, err := db.Storage.GetClassified(ctx, db.Client.ID, "t1")
	if err != nil {
		t.Fatalf("GetClassified: %v", err)
	}

	// Payee untouched, later passes pending with fields cleared.
	if !ct.Status.Completed(model.PassPayee) {
		t.Error("payee pass should stay completed")
	}
	if got := ct.Status.State(model.PassCategory).Status; got != model.StatusPending {
		t.Errorf("category status = %s, want pending", got)
	}
	if got := ct.Status.State(model.PassBusiness).Status; got != model.StatusPending {
		t.Errorf("business status = %s, want pending", got)
	}
	if ct.Record.Category != nil || ct.Record.Business != nil {
		t.Error("reset pass fields should be cleared")
	}
	if ct.Record.Payee == nil {
		t.Error("payee fields should survive a later-pass reset")
	}
}

func mustCommit(t *testing.T, db *testutil.TestDB, outcome *service.PassOutcome) {
	t.Helper()
	if err := db.Storage.CommitPassOutcome(context.Background(), outcome); err != nil {
		t.Fatalf("CommitPassOutcome(%s): %v", outcome.Pass, err)
	}
}
