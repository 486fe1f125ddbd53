package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ledgerworks/taxpass/internal/common"
	"github.com/ledgerworks/taxpass/internal/model"
	"github.com/ledgerworks/taxpass/internal/testutil"
)

func sampleRule(clientID, name string, priority int) *model.BusinessRule {
	return &model.BusinessRule{
		ClientID:    clientID,
		Name:        name,
		Description: "route AWS to Software",
		Type:        model.RuleTypeCategory,
		Conditions: []model.RuleCondition{
			{Field: "description", Operator: model.OpContains, Value: "aws"},
		},
		Actions: []model.RuleAction{
			{Field: "category", Value: "Software"},
		},
		Priority: priority,
		IsActive: true,
	}
}

func TestCreateRuleAssignsID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	rule := sampleRule(db.Client.ID, "aws-software", 10)
	if err := db.Storage.CreateRule(ctx, rule); err != nil {
		t.Fatalf("CreateRule: %v", err)
	}
	if rule.ID == 0 {
		t.Error("rule id not assigned")
	}
}

func TestCreateRuleRejectsDuplicateName(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	if err := db.Storage.CreateRule(ctx, sampleRule(db.Client.ID, "aws-software", 10)); err != nil {
		t.Fatalf("CreateRule: %v", err)
	}
	err := db.Storage.CreateRule(ctx, sampleRule(db.Client.ID, "aws-software", 20))
	if !errors.Is(err, common.ErrDuplicateEntry) {
		t.Errorf("duplicate rule create = %v, want ErrDuplicateEntry", err)
	}
}

func TestCreateRuleValidates(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	rule := sampleRule(db.Client.ID, "no-conditions", 10)
	rule.Conditions = nil
	if err := db.Storage.CreateRule(ctx, rule); err == nil {
		t.Error("rule without conditions accepted")
	}
}

func TestListRulesOrderAndActiveFilter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	low := sampleRule(db.Client.ID, "low", 5)
	high := sampleRule(db.Client.ID, "high", 50)
	mid := sampleRule(db.Client.ID, "mid", 20)
	for _, r := range []*model.BusinessRule{low, high, mid} {
		if err := db.Storage.CreateRule(ctx, r); err != nil {
			t.Fatalf("CreateRule(%s): %v", r.Name, err)
		}
	}

	if err := db.Storage.SetRuleActive(ctx, mid.ID, false); err != nil {
		t.Fatalf("SetRuleActive: %v", err)
	}

	active, err := db.Storage.ListRules(ctx, db.Client.ID, true)
	if err != nil {
		t.Fatalf("ListRules: %v", err)
	}
	if len(active) != 2 || active[0].Name != "high" || active[1].Name != "low" {
		t.Errorf("active rules = %v, want [high low] by priority desc", ruleNames(active))
	}

	all, err := db.Storage.ListRules(ctx, db.Client.ID, false)
	if err != nil {
		t.Fatalf("ListRules all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all rules = %d, want 3 (deactivation is soft)", len(all))
	}
}

func TestUpdateRulePriority(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	rule := sampleRule(db.Client.ID, "aws-software", 10)
	if err := db.Storage.CreateRule(ctx, rule); err != nil {
		t.Fatalf("CreateRule: %v", err)
	}

	if err := db.Storage.UpdateRulePriority(ctx, rule.ID, 99); err != nil {
		t.Fatalf("UpdateRulePriority: %v", err)
	}

	rulesList, err := db.Storage.ListRules(ctx, db.Client.ID, true)
	if err != nil {
		t.Fatalf("ListRules: %v", err)
	}
	if rulesList[0].Priority != 99 {
		t.Errorf("priority = %d, want 99", rulesList[0].Priority)
	}

	if err := db.Storage.UpdateRulePriority(ctx, 9999, 1); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("update of missing rule = %v, want ErrNotFound", err)
	}
}

func ruleNames(rules []model.BusinessRule) []string {
	out := make([]string, len(rules))
	for i, r := range rules {
		out[i] = r.Name
	}
	return out
}
