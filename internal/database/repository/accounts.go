package repository

import (
	"context"
	"database/sql"
)

// AccountRepo handles accounts.
type AccountRepo struct {
	db *sql.DB
}

func NewAccountRepo(db *sql.DB) *AccountRepo {
	return &AccountRepo{db: db}
}

const accountCols = `id, user_id, name, type, balance_cents, currency, icon, color, is_default,
 credit_limit_cents, billing_day, payment_due_day, is_deleted, created_at, updated_at`

func (r *AccountRepo) Insert(ctx context.Context, a Account) error {
	return insertAccount(ctx, r.db, a)
}

// InsertTx inserts one account inside a caller-managed transaction.
func (r *AccountRepo) InsertTx(ctx context.Context, tx *sql.Tx, a Account) error {
	return insertAccount(ctx, tx, a)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

func insertAccount(ctx context.Context, e execer, a Account) error {
	_, err := e.ExecContext(ctx, `
	INSERT INTO accounts(`+accountCols+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
	 name=excluded.name,
	 type=excluded.type,
	 balance_cents=excluded.balance_cents,
	 currency=excluded.currency,
	 icon=excluded.icon,
	 color=excluded.color,
	 billing_day=excluded.billing_day,
	 payment_due_day=excluded.payment_due_day,
	 is_deleted=excluded.is_deleted,
	 updated_at=excluded.updated_at;
	`, a.ID, a.UserID, a.Name, a.Type, a.BalanceCents, a.Currency, a.Icon, a.Color, a.IsDefault,
		a.CreditLimitCents, a.BillingDay, a.PaymentDueDay, a.IsDeleted, a.CreatedAt, a.UpdatedAt)
	return err
}

func (r *AccountRepo) Update(ctx context.Context, a Account) error {
	_, err := r.db.ExecContext(ctx, `
	UPDATE accounts SET name=?, type=?, balance_cents=?, currency=?, icon=?, color=?,
	 billing_day=?, payment_due_day=?, is_deleted=?, updated_at=?
	WHERE id=?`,
		a.Name, a.Type, a.BalanceCents, a.Currency, a.Icon, a.Color,
		a.BillingDay, a.PaymentDueDay, a.IsDeleted, a.UpdatedAt, a.ID)
	return err
}

// FindByName returns the non-deleted account with the given name, or nil.
func (r *AccountRepo) FindByName(ctx context.Context, userID, name string) (*Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE user_id=? AND name=? AND is_deleted=0`, userID, name)
	a, err := scanAccount(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (r *AccountRepo) Get(ctx context.Context, id string) (*Account, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+accountCols+` FROM accounts WHERE id=?`, id)
	a, err := scanAccount(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// ListByUser returns all non-deleted accounts for a user ordered by name.
func (r *AccountRepo) ListByUser(ctx context.Context, userID string) ([]Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountCols+` FROM accounts WHERE user_id=? AND is_deleted=0 ORDER BY name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Names returns the non-deleted account names for a user.
func (r *AccountRepo) Names(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name FROM accounts WHERE user_id=? AND is_deleted=0 ORDER BY name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func scanAccount(row scanner) (Account, error) {
	var a Account
	var icon, color sql.NullString
	var creditLimit sql.NullInt64
	var billingDay, paymentDueDay sql.NullInt64
	if err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &a.BalanceCents, &a.Currency,
		&icon, &color, &a.IsDefault, &creditLimit, &billingDay, &paymentDueDay,
		&a.IsDeleted, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return Account{}, err
	}
	if icon.Valid {
		a.Icon = &icon.String
	}
	if color.Valid {
		a.Color = &color.String
	}
	if creditLimit.Valid {
		a.CreditLimitCents = &creditLimit.Int64
	}
	if billingDay.Valid {
		d := int(billingDay.Int64)
		a.BillingDay = &d
	}
	if paymentDueDay.Valid {
		d := int(paymentDueDay.Int64)
		a.PaymentDueDay = &d
	}
	return a, nil
}
