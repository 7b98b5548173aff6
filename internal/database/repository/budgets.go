package repository

import (
	"context"
	"database/sql"
)

// BudgetRepo handles budgets.
type BudgetRepo struct {
	db *sql.DB
}

func NewBudgetRepo(db *sql.DB) *BudgetRepo {
	return &BudgetRepo{db: db}
}

const budgetCols = `id, user_id, year, month, category_id, budget_amount_cents, spent_amount_cents, alert_threshold, created_at, updated_at`

func (r *BudgetRepo) Insert(ctx context.Context, b Budget) error {
	return insertBudget(ctx, r.db, b)
}

// InsertTx inserts one budget inside a caller-managed transaction.
func (r *BudgetRepo) InsertTx(ctx context.Context, tx *sql.Tx, b Budget) error {
	return insertBudget(ctx, tx, b)
}

func insertBudget(ctx context.Context, e execer, b Budget) error {
	_, err := e.ExecContext(ctx, `
	INSERT INTO budgets(`+budgetCols+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
	 year=excluded.year,
	 month=excluded.month,
	 category_id=excluded.category_id,
	 budget_amount_cents=excluded.budget_amount_cents,
	 spent_amount_cents=excluded.spent_amount_cents,
	 alert_threshold=excluded.alert_threshold,
	 updated_at=excluded.updated_at;
	`, b.ID, b.UserID, b.Year, b.Month, b.CategoryID, b.BudgetAmountCents,
		b.SpentAmountCents, b.AlertThreshold, b.CreatedAt, b.UpdatedAt)
	return err
}

func (r *BudgetRepo) Update(ctx context.Context, b Budget) error {
	_, err := r.db.ExecContext(ctx, `
	UPDATE budgets SET budget_amount_cents=?, spent_amount_cents=?, alert_threshold=?, updated_at=?
	WHERE id=?`,
		b.BudgetAmountCents, b.SpentAmountCents, b.AlertThreshold, b.UpdatedAt, b.ID)
	return err
}

// ListByMonth returns budgets for the given (year, month).
func (r *BudgetRepo) ListByMonth(ctx context.Context, userID string, year, month int) ([]Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+budgetCols+` FROM budgets WHERE user_id=? AND year=? AND month=?`, userID, year, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// ListByUser returns all budgets for a user.
func (r *BudgetRepo) ListByUser(ctx context.Context, userID string) ([]Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+budgetCols+` FROM budgets WHERE user_id=? ORDER BY year, month`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func scanBudget(row scanner) (Budget, error) {
	var b Budget
	var category sql.NullString
	if err := row.Scan(&b.ID, &b.UserID, &b.Year, &b.Month, &category, &b.BudgetAmountCents,
		&b.SpentAmountCents, &b.AlertThreshold, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return Budget{}, err
	}
	if category.Valid {
		b.CategoryID = &category.String
	}
	return b, nil
}
