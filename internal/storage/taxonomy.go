package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ledgerworks/taxpass/internal/model"
)

// GetTaxCategories returns the fixed taxonomy plus the client's own
// categories. With activeOnly, deactivated categories are excluded, which
// is what new-classification listings want; historical totals query the
// full set.
func (s *SQLiteStorage) GetTaxCategories(ctx context.Context, clientID string, activeOnly bool) ([]model.TaxCategory, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, worksheet, name, client_id, tax_year, is_personal,
			is_active, created_at
		FROM tax_categories
		WHERE (client_id = '' OR client_id = ?)`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tax categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var cats []model.TaxCategory
	for rows.Next() {
		var cat model.TaxCategory
		var worksheet string
		if err := rows.Scan(
			&cat.ID, &worksheet, &cat.Name, &cat.ClientID, &cat.TaxYear,
			&cat.IsPersonal, &cat.IsActive, &cat.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan tax category: %w", err)
		}
		cat.Worksheet = model.Worksheet(worksheet)
		cats = append(cats, cat)
	}
	return cats, rows.Err()
}

// GetTaxCategoryByID retrieves one tax category, active or not.
func (s *SQLiteStorage) GetTaxCategoryByID(ctx context.Context, id int) (*model.TaxCategory, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var cat model.TaxCategory
	var worksheet string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, worksheet, name, client_id, tax_year, is_personal,
			is_active, created_at
		FROM tax_categories WHERE id = ?
	`, id).Scan(
		&cat.ID, &worksheet, &cat.Name, &cat.ClientID, &cat.TaxYear,
		&cat.IsPersonal, &cat.IsActive, &cat.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrCategoryNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tax category: %w", err)
	}
	cat.Worksheet = model.Worksheet(worksheet)
	return &cat, nil
}

// AddClientTaxCategory creates a client-scoped, tax-year-scoped category.
func (s *SQLiteStorage) AddClientTaxCategory(ctx context.Context, cat *model.TaxCategory) (*model.TaxCategory, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if cat == nil {
		return nil, fmt.Errorf("%w: category", ErrNilParameter)
	}
	if err := validateString(cat.ClientID, "clientID"); err != nil {
		return nil, err
	}
	if err := validateString(cat.Name, "name"); err != nil {
		return nil, err
	}
	if !cat.Worksheet.Valid() {
		return nil, fmt.Errorf("invalid worksheet %q", cat.Worksheet)
	}
	if cat.TaxYear == 0 {
		return nil, fmt.Errorf("client tax categories require a tax year")
	}
	if cat.Name == model.PersonalExpenseCategory {
		return nil, fmt.Errorf("category name %q is reserved", cat.Name)
	}

	if cat.CreatedAt.IsZero() {
		cat.CreatedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO tax_categories (worksheet, name, client_id, tax_year, is_personal, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, 1, ?)
	`, string(cat.Worksheet), cat.Name, cat.ClientID, cat.TaxYear, cat.IsPersonal, cat.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add tax category %q: %w", cat.Name, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read new category id: %w", err)
	}
	cat.ID = int(id)
	cat.IsActive = true
	return cat, nil
}

// DeactivateTaxCategory soft-deactivates a category. The reserved
// personal-expense category can never be deactivated: it anchors the
// business/personal split for every tax year.
func (s *SQLiteStorage) DeactivateTaxCategory(ctx context.Context, id int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	cat, err := s.GetTaxCategoryByID(ctx, id)
	if err != nil {
		return err
	}
	if cat.IsPersonal && cat.Name == model.PersonalExpenseCategory {
		return fmt.Errorf("category %q is reserved and cannot be deactivated", cat.Name)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE tax_categories SET is_active = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate tax category: %w", err)
	}
	return requireAffected(res, "tax category", id)
}

// GetWorksheetTotals aggregates completed business-pass results into
// (worksheet, category) totals for a tax year. Deactivated categories
// still contribute: historical worksheet totals must stay reproducible.
func (s *SQLiteStorage) GetWorksheetTotals(ctx context.Context, clientID string, taxYear int) ([]model.WorksheetTotal, error) {
	classified, err := s.ListClassified(ctx, clientID)
	if err != nil {
		return nil, err
	}

	catNames := make(map[int]string)
	cats, err := s.GetTaxCategories(ctx, clientID, false)
	if err != nil {
		return nil, err
	}
	for _, cat := range cats {
		catNames[cat.ID] = cat.Name
	}

	type key struct {
		worksheet model.Worksheet
		category  string
	}
	totals := make(map[key]*model.WorksheetTotal)

	for _, ct := range classified {
		if ct.Record == nil || ct.Transaction.Date.Year() != taxYear {
			continue
		}
		biz, err := ct.Record.CompletedBusiness(ct.Status)
		if err != nil {
			continue
		}

		name, ok := catNames[biz.TaxCategoryID]
		if !ok {
			name = fmt.Sprintf("category %d", biz.TaxCategoryID)
		}

		k := key{worksheet: biz.Worksheet, category: name}
		total, ok := totals[k]
		if !ok {
			total = &model.WorksheetTotal{
				Worksheet: biz.Worksheet,
				Category:  name,
				TaxYear:   taxYear,
			}
			totals[k] = total
		}
		total.Count++
		total.Amount += ct.Transaction.Amount
		total.BusinessAmount += ct.Record.BusinessAmount(ct.Status, ct.Transaction.Amount)
	}

	out := make([]model.WorksheetTotal, 0, len(totals))
	for _, total := range totals {
		out = append(out, *total)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Worksheet != out[j].Worksheet {
			return out[i].Worksheet < out[j].Worksheet
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}
