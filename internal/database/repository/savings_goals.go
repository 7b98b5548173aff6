package repository

import (
	"context"
	"database/sql"
)

// SavingsGoalRepo handles savings goals.
type SavingsGoalRepo struct {
	db *sql.DB
}

func NewSavingsGoalRepo(db *sql.DB) *SavingsGoalRepo {
	return &SavingsGoalRepo{db: db}
}

const savingsGoalCols = `id, user_id, name, target_amount_cents, current_amount_cents, target_date, created_at, updated_at`

func (r *SavingsGoalRepo) Insert(ctx context.Context, g SavingsGoal) error {
	return insertSavingsGoal(ctx, r.db, g)
}

// InsertTx inserts one goal inside a caller-managed transaction.
func (r *SavingsGoalRepo) InsertTx(ctx context.Context, tx *sql.Tx, g SavingsGoal) error {
	return insertSavingsGoal(ctx, tx, g)
}

func insertSavingsGoal(ctx context.Context, e execer, g SavingsGoal) error {
	_, err := e.ExecContext(ctx, `
	INSERT INTO savings_goals(`+savingsGoalCols+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
	 name=excluded.name,
	 target_amount_cents=excluded.target_amount_cents,
	 current_amount_cents=excluded.current_amount_cents,
	 target_date=excluded.target_date,
	 updated_at=excluded.updated_at;
	`, g.ID, g.UserID, g.Name, g.TargetAmountCents, g.CurrentAmountCents,
		g.TargetDate, g.CreatedAt, g.UpdatedAt)
	return err
}

func (r *SavingsGoalRepo) Update(ctx context.Context, g SavingsGoal) error {
	_, err := r.db.ExecContext(ctx, `
	UPDATE savings_goals SET name=?, target_amount_cents=?, current_amount_cents=?, target_date=?, updated_at=?
	WHERE id=?`,
		g.Name, g.TargetAmountCents, g.CurrentAmountCents, g.TargetDate, g.UpdatedAt, g.ID)
	return err
}

// ListByUser returns all savings goals for a user.
func (r *SavingsGoalRepo) ListByUser(ctx context.Context, userID string) ([]SavingsGoal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+savingsGoalCols+` FROM savings_goals WHERE user_id=? ORDER BY name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SavingsGoal
	for rows.Next() {
		var g SavingsGoal
		var target sql.NullTime
		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmountCents, &g.CurrentAmountCents,
			&target, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, err
		}
		if target.Valid {
			g.TargetDate = &target.Time
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
