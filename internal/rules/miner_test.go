package rules

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ledgerworks/taxpass/internal/llm"
	"github.com/ledgerworks/taxpass/internal/model"
	"github.com/ledgerworks/taxpass/internal/service"
	"github.com/ledgerworks/taxpass/internal/testutil"
)

func minedHistoryEntry(id, description, payee, category string, amount float64) model.ClassifiedTransaction {
	ct := classifiedView(description, amount, category)
	ct.Transaction.ID = id
	ct.Record.Payee.Payee = payee
	return *ct
}

func TestBuildGroupsBucketsAndFiltersBySize(t *testing.T) {
	history := []model.ClassifiedTransaction{
		minedHistoryEntry("t1", "aws usage jan", "Amazon Web Services", "Software", 120),
		minedHistoryEntry("t2", "aws usage feb", "Amazon Web Services", "Software", 130),
		minedHistoryEntry("t3", "aws usage mar", "Amazon Web Services", "Software", 140),
		minedHistoryEntry("t4", "starbucks", "Starbucks", "Meals", 5),
	}

	groups := buildGroups(history, 3)

	var kinds []string
	for _, g := range groups {
		kinds = append(kinds, g.Kind+"/"+g.Key)
		if len(g.Transactions) != 3 {
			t.Errorf("group %s/%s has %d transactions, want 3", g.Kind, g.Key, len(g.Transactions))
		}
	}
	want := []string{"payee/Amazon Web Services", "category/Software", "amount/100-199"}
	if len(kinds) != len(want) {
		t.Fatalf("groups = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("group[%d] = %s, want %s", i, kinds[i], want[i])
		}
	}

	// The Starbucks singleton never clears the size floor.
	if got := buildGroups(history, 1); len(got) <= len(groups) {
		t.Errorf("minSize 1 groups = %d, want more than %d", len(got), len(groups))
	}
}

func TestBuildGroupsSkipsIncompletePasses(t *testing.T) {
	ct := minedHistoryEntry("t1", "aws usage", "Amazon Web Services", "Software", 120)
	ct.Status.Passes[model.PassCategory].Status = model.StatusPending

	groups := buildGroups([]model.ClassifiedTransaction{ct}, 1)
	for _, g := range groups {
		if g.Kind == "category" {
			t.Error("incomplete category pass contributed to a category group")
		}
	}
}

func seedClassifiedHistory(t *testing.T, db *testutil.TestDB, n int) {
	t.Helper()
	ctx := context.Background()
	txns := make([]model.Transaction, 0, n)
	for i := 0; i < n; i++ {
		txns = append(txns, db.Txn(fmt.Sprintf("t%d", i+1), fmt.Sprintf("GitHub subscription %d", i+1), 10))
	}
	db.SeedTransactions(ctx, "chase_checking", txns)

	mock := llm.NewMockClient()
	for _, txn := range txns {
		if _, err := db.Storage.EnsureStatus(ctx, txn.ClientID, txn.ID); err != nil {
			t.Fatalf("EnsureStatus: %v", err)
		}
		claimed, err := db.Storage.ClaimPass(ctx, txn.ClientID, txn.ID, model.PassPayee, false)
		if err != nil || !claimed {
			t.Fatalf("ClaimPass: (claimed=%v, %v)", claimed, err)
		}
		result, err := mock.IdentifyPayee(ctx, llm.PassRequest{Description: txn.Description, Amount: txn.Amount})
		if err != nil {
			t.Fatalf("IdentifyPayee: %v", err)
		}
		err = db.Storage.CommitPassOutcome(ctx, &service.PassOutcome{
			ClientID:      txn.ClientID,
			TransactionID: txn.ID,
			Pass:          model.PassPayee,
			Fingerprint:   fmt.Sprintf("fp-payee-%s", txn.ID),
			Payee:         result,
		})
		if err != nil {
			t.Fatalf("CommitPassOutcome payee: %v", err)
		}

		claimed, err = db.Storage.ClaimPass(ctx, txn.ClientID, txn.ID, model.PassCategory, false)
		if err != nil || !claimed {
			t.Fatalf("ClaimPass category: (claimed=%v, %v)", claimed, err)
		}
		err = db.Storage.CommitPassOutcome(ctx, &service.PassOutcome{
			ClientID:      txn.ClientID,
			TransactionID: txn.ID,
			Pass:          model.PassCategory,
			Fingerprint:   fmt.Sprintf("fp-category-%s", txn.ID),
			Category:      &model.CategoryResult{Category: "Software", ExpenseType: "business", BusinessPercentage: 100},
		})
		if err != nil {
			t.Fatalf("CommitPassOutcome category: %v", err)
		}
	}
}

func TestMinePersistsAcceptedCandidates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	seedClassifiedHistory(t, db, 3)

	mock := llm.NewMockClient()
	mock.RulesFunc = func(group llm.RuleGroup) ([]model.CandidateRule, error) {
		if group.Kind != "category" {
			return nil, nil
		}
		good := categoryRule(0, "github-software", 60, "Software")
		good.ClientID = db.Client.ID
		good.Conditions = []model.RuleCondition{
			{Field: "description", Operator: model.OpContains, Value: "github"},
		}
		bad := categoryRule(0, "github-meals", 60, "Meals")
		bad.ClientID = db.Client.ID
		bad.Conditions = good.Conditions
		return []model.CandidateRule{
			{Rule: good, Confidence: model.ConfidenceHigh},
			{Rule: bad, Confidence: model.ConfidenceHigh},
		}, nil
	}

	miner, err := NewMiner(db.Storage, mock, nil, MinerConfig{})
	if err != nil {
		t.Fatalf("NewMiner: %v", err)
	}
	report, err := miner.Mine(ctx, db.Client.ID)
	if err != nil {
		t.Fatalf("Mine: %v", err)
	}
	if report.Accepted != 1 || report.Rejected != 1 {
		t.Errorf("accepted/rejected = %d/%d, want 1/1", report.Accepted, report.Rejected)
	}

	persisted, err := db.Storage.ListRules(ctx, db.Client.ID, false)
	if err != nil {
		t.Fatalf("ListRules: %v", err)
	}
	if len(persisted) != 1 || persisted[0].Name != "github-software" {
		t.Errorf("persisted rules = %v, want only the accepted candidate", ruleNameList(persisted))
	}

	// A second run regenerates the same candidate; the duplicate is
	// skipped rather than failing the run.
	report, err = miner.Mine(ctx, db.Client.ID)
	if err != nil {
		t.Fatalf("second Mine: %v", err)
	}
	if report.Accepted != 0 {
		t.Errorf("second run accepted = %d, want 0", report.Accepted)
	}
}

func TestMineContinuesAfterGenerationFailure(t *testing.T) {
	db := testutil.SetupTestDB(t)
	seedClassifiedHistory(t, db, 3)

	mock := llm.NewMockClient()
	mock.RulesErr = errors.New("model overloaded")

	miner, err := NewMiner(db.Storage, mock, nil, MinerConfig{})
	if err != nil {
		t.Fatalf("NewMiner: %v", err)
	}
	report, err := miner.Mine(context.Background(), db.Client.ID)
	if err != nil {
		t.Fatalf("Mine should survive generation failures: %v", err)
	}
	if report.Accepted != 0 || report.Rejected != 0 {
		t.Errorf("report = %+v, want empty", report)
	}
}

func TestSuggestSkipsBacktestGate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	seedClassifiedHistory(t, db, 1)

	miner, err := NewMiner(db.Storage, llm.NewMockClient(), nil, MinerConfig{})
	if err != nil {
		t.Fatalf("NewMiner: %v", err)
	}
	candidates, err := miner.Suggest(ctx, db.Client.ID, "t1")
	if err != nil {
		t.Fatalf("Suggest: %v", err)
	}
	if len(candidates) == 0 {
		t.Fatal("no advisory candidates returned")
	}

	// Advisory only: nothing persisted.
	persisted, err := db.Storage.ListRules(ctx, db.Client.ID, false)
	if err != nil {
		t.Fatalf("ListRules: %v", err)
	}
	if len(persisted) != 0 {
		t.Errorf("Suggest persisted %d rules", len(persisted))
	}
}

func ruleNameList(ruleSet []model.BusinessRule) []string {
	names := make([]string, 0, len(ruleSet))
	for _, r := range ruleSet {
		names = append(names, r.Name)
	}
	return names
}
