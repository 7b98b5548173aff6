package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// TransactionFilters defines list filters.
type TransactionFilters struct {
	AccountID  string
	CategoryID string
	From       time.Time // zero = unbounded
	To         time.Time // zero = unbounded
}

// TransactionRepo handles transactions.
type TransactionRepo struct {
	db *sql.DB
}

func NewTransactionRepo(db *sql.DB) *TransactionRepo {
	return &TransactionRepo{db: db}
}

const transactionCols = `id, user_id, account_id, category_id, amount_cents, note, created_at, updated_at`

func (r *TransactionRepo) Insert(ctx context.Context, t Transaction) error {
	return insertTransaction(ctx, r.db, t)
}

// InsertTx inserts one transaction inside a caller-managed transaction.
func (r *TransactionRepo) InsertTx(ctx context.Context, tx *sql.Tx, t Transaction) error {
	return insertTransaction(ctx, tx, t)
}

func insertTransaction(ctx context.Context, e execer, t Transaction) error {
	_, err := e.ExecContext(ctx, `
	INSERT INTO transactions(`+transactionCols+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
	 account_id=excluded.account_id,
	 category_id=excluded.category_id,
	 amount_cents=excluded.amount_cents,
	 note=excluded.note,
	 created_at=excluded.created_at,
	 updated_at=excluded.updated_at;
	`, t.ID, t.UserID, t.AccountID, t.CategoryID, t.AmountCents, t.Note, t.CreatedAt, t.UpdatedAt)
	return err
}

// ExistsNear reports whether a transaction with the same account and amount
// exists with created_at within the given window of at.
func (r *TransactionRepo) ExistsNear(ctx context.Context, accountID string, amountCents int64, at time.Time, window time.Duration) (bool, error) {
	lo := at.Add(-window)
	hi := at.Add(window)
	var n int
	err := r.db.QueryRowContext(ctx, `
	SELECT COUNT(*) FROM transactions
	WHERE account_id=? AND amount_cents=? AND created_at >= ? AND created_at <= ?`,
		accountID, amountCents, lo, hi).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ExistsByNotePattern reports whether any transaction note matches the LIKE pattern.
func (r *TransactionRepo) ExistsByNotePattern(ctx context.Context, userID, pattern string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE user_id=? AND note LIKE ?`, userID, pattern).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *TransactionRepo) List(ctx context.Context, userID string, f TransactionFilters) ([]Transaction, error) {
	where := []string{"user_id = ?"}
	args := []interface{}{userID}

	if f.AccountID != "" {
		where = append(where, "account_id = ?")
		args = append(args, f.AccountID)
	}
	if f.CategoryID != "" {
		where = append(where, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if !f.From.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, f.From)
	}
	if !f.To.IsZero() {
		where = append(where, "created_at <= ?")
		args = append(args, f.To)
	}

	query := `SELECT ` + transactionCols + ` FROM transactions WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *TransactionRepo) CountByUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions WHERE user_id=?`, userID).Scan(&n)
	return n, err
}

// scanner handles both Row and Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTransaction(row scanner) (Transaction, error) {
	var t Transaction
	var note sql.NullString
	if err := row.Scan(&t.ID, &t.UserID, &t.AccountID, &t.CategoryID, &t.AmountCents,
		&note, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return Transaction{}, err
	}
	if note.Valid {
		t.Note = &note.String
	}
	return t, nil
}
