package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ledgerworks/taxpass/internal/common"
	"github.com/ledgerworks/taxpass/internal/model"
)

// CreateRule persists a validated business rule. Rule names are unique per
// client; a duplicate name is a conflict, not an overwrite, because rules
// are immutable once validated.
func (s *SQLiteStorage) CreateRule(ctx context.Context, rule *model.BusinessRule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if err := rule.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRule, err)
	}

	conditions, err := json.Marshal(rule.Conditions)
	if err != nil {
		return fmt.Errorf("failed to marshal conditions: %w", err)
	}
	actions, err := json.Marshal(rule.Actions)
	if err != nil {
		return fmt.Errorf("failed to marshal actions: %w", err)
	}

	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO business_rules (
			client_id, name, description, rule_type, conditions, actions,
			priority, is_active, ai_generated, confidence, reasoning, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rule.ClientID, rule.Name, rule.Description, string(rule.Type),
		string(conditions), string(actions), rule.Priority, rule.IsActive,
		rule.AIGenerated, string(rule.Confidence), rule.Reasoning, rule.CreatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return fmt.Errorf("rule %q: %w", rule.Name, common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create rule %q: %w", rule.Name, err)
	}

	if id, idErr := res.LastInsertId(); idErr == nil {
		rule.ID = id
	}
	return nil
}

// ListRules returns a client's rules ordered by priority descending (the
// applier's iteration order). With activeOnly, inactive rules are
// excluded.
func (s *SQLiteStorage) ListRules(ctx context.Context, clientID string, activeOnly bool) ([]model.BusinessRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(clientID, "clientID"); err != nil {
		return nil, err
	}

	query := `
		SELECT id, client_id, name, description, rule_type, conditions,
			actions, priority, is_active, ai_generated, confidence,
			reasoning, created_at
		FROM business_rules
		WHERE client_id = ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY priority DESC, id`

	rows, err := s.db.QueryContext(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var rules []model.BusinessRule
	for rows.Next() {
		var rule model.BusinessRule
		var ruleType, confidence string
		var conditions, actions string

		if err := rows.Scan(
			&rule.ID, &rule.ClientID, &rule.Name, &rule.Description,
			&ruleType, &conditions, &actions, &rule.Priority,
			&rule.IsActive, &rule.AIGenerated, &confidence,
			&rule.Reasoning, &rule.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}

		rule.Type = model.RuleType(ruleType)
		rule.Confidence = model.Confidence(confidence)
		if err := json.Unmarshal([]byte(conditions), &rule.Conditions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal conditions for rule %d: %w", rule.ID, err)
		}
		if err := json.Unmarshal([]byte(actions), &rule.Actions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal actions for rule %d: %w", rule.ID, err)
		}

		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// UpdateRulePriority changes a rule's priority. Priority and the active
// flag are the only mutable rule fields.
func (s *SQLiteStorage) UpdateRulePriority(ctx context.Context, id int64, priority int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE business_rules SET priority = ? WHERE id = ?`, priority, id)
	if err != nil {
		return fmt.Errorf("failed to update rule priority: %w", err)
	}
	return requireAffected(res, "rule", id)
}

// SetRuleActive toggles a rule's active flag. Deactivation is the only
// form of removal; rules are never hard-deleted.
func (s *SQLiteStorage) SetRuleActive(ctx context.Context, id int64, active bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE business_rules SET is_active = ? WHERE id = ?`, active, id)
	if err != nil {
		return fmt.Errorf("failed to update rule active flag: %w", err)
	}
	return requireAffected(res, "rule", id)
}

func requireAffected(res interface{ RowsAffected() (int64, error) }, entity string, id any) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%s %v: %w", entity, id, common.ErrNotFound)
	}
	return nil
}
