package repository

import (
	"context"
	"database/sql"
)

// CategoryRepo handles categories.
type CategoryRepo struct {
	db *sql.DB
}

func NewCategoryRepo(db *sql.DB) *CategoryRepo {
	return &CategoryRepo{db: db}
}

const categoryCols = `id, user_id, name, type, parent_id, icon, color, display_order, is_deleted, created_at, updated_at`

func (r *CategoryRepo) Insert(ctx context.Context, c Category) error {
	return insertCategory(ctx, r.db, c)
}

// InsertTx inserts one category inside a caller-managed transaction.
func (r *CategoryRepo) InsertTx(ctx context.Context, tx *sql.Tx, c Category) error {
	return insertCategory(ctx, tx, c)
}

func insertCategory(ctx context.Context, e execer, c Category) error {
	_, err := e.ExecContext(ctx, `
	INSERT INTO categories(`+categoryCols+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
	 name=excluded.name,
	 type=excluded.type,
	 parent_id=excluded.parent_id,
	 icon=excluded.icon,
	 color=excluded.color,
	 display_order=excluded.display_order,
	 is_deleted=excluded.is_deleted,
	 updated_at=excluded.updated_at;
	`, c.ID, c.UserID, c.Name, c.Type, c.ParentID, c.Icon, c.Color, c.DisplayOrder,
		c.IsDeleted, c.CreatedAt, c.UpdatedAt)
	return err
}

// FindByNameAndType returns the non-deleted category matching (name, type), or nil.
func (r *CategoryRepo) FindByNameAndType(ctx context.Context, userID, name, typ string) (*Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+categoryCols+` FROM categories WHERE user_id=? AND name=? AND type=? AND is_deleted=0`,
		userID, name, typ)
	c, err := scanCategory(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// FindByNameAndParent returns the non-deleted child category under parentID, or nil.
func (r *CategoryRepo) FindByNameAndParent(ctx context.Context, userID, name, parentID string) (*Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+categoryCols+` FROM categories WHERE user_id=? AND name=? AND parent_id=? AND is_deleted=0`,
		userID, name, parentID)
	c, err := scanCategory(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// ListByUser returns all non-deleted categories for a user.
func (r *CategoryRepo) ListByUser(ctx context.Context, userID string) ([]Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+categoryCols+` FROM categories WHERE user_id=? AND is_deleted=0 ORDER BY display_order, name`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// NamesByType returns non-deleted category names of the given type.
func (r *CategoryRepo) NamesByType(ctx context.Context, userID, typ string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT name FROM categories WHERE user_id=? AND type=? AND is_deleted=0 ORDER BY name`, userID, typ)
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

func scanCategory(row scanner) (Category, error) {
	var c Category
	var parent, icon, color sql.NullString
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Type, &parent, &icon, &color,
		&c.DisplayOrder, &c.IsDeleted, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return Category{}, err
	}
	if parent.Valid {
		c.ParentID = &parent.String
	}
	if icon.Valid {
		c.Icon = &icon.String
	}
	if color.Valid {
		c.Color = &color.String
	}
	return c, nil
}
