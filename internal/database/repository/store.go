package repository

import (
	"context"
	"database/sql"
	"time"
)

// Store bundles the per-entity repos over one sqlite handle. It satisfies the
// narrow persistence interfaces declared by the importer, export and backup
// packages, so tests can substitute an in-memory fake where a real database
// is overkill.
type Store struct {
	DB           *sql.DB
	Accounts     *AccountRepo
	Categories   *CategoryRepo
	Transactions *TransactionRepo
	Budgets      *BudgetRepo
	SavingsGoals *SavingsGoalRepo
	Todos        *TodoRepo
	Habits       *HabitRepo
	Schedules    *ScheduleRepo
	Plans        *PlanRepo
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		DB:           db,
		Accounts:     NewAccountRepo(db),
		Categories:   NewCategoryRepo(db),
		Transactions: NewTransactionRepo(db),
		Budgets:      NewBudgetRepo(db),
		SavingsGoals: NewSavingsGoalRepo(db),
		Todos:        NewTodoRepo(db),
		Habits:       NewHabitRepo(db),
		Schedules:    NewScheduleRepo(db),
		Plans:        NewPlanRepo(db),
	}
}

func (s *Store) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.DB.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// AccountByName implements the importer's conflict lookup.
func (s *Store) AccountByName(ctx context.Context, userID, name string) (*Account, error) {
	return s.Accounts.FindByName(ctx, userID, name)
}

// AccountNames lists non-deleted account names for unique-name generation.
func (s *Store) AccountNames(ctx context.Context, userID string) ([]string, error) {
	return s.Accounts.Names(ctx, userID)
}

// InsertAccounts commits a batch atomically.
func (s *Store) InsertAccounts(ctx context.Context, accounts []Account) error {
	return s.withTx(func(tx *sql.Tx) error {
		for _, a := range accounts {
			if err := s.Accounts.InsertTx(ctx, tx, a); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) UpdateAccount(ctx context.Context, a Account) error {
	return s.Accounts.Update(ctx, a)
}

// CategoryByNameAndType implements the importer's conflict lookup.
func (s *Store) CategoryByNameAndType(ctx context.Context, userID, name, typ string) (*Category, error) {
	return s.Categories.FindByNameAndType(ctx, userID, name, typ)
}

// CategoryNames lists non-deleted category names of a type.
func (s *Store) CategoryNames(ctx context.Context, userID, typ string) ([]string, error) {
	return s.Categories.NamesByType(ctx, userID, typ)
}

// InsertCategories commits a batch atomically.
func (s *Store) InsertCategories(ctx context.Context, categories []Category) error {
	return s.withTx(func(tx *sql.Tx) error {
		for _, c := range categories {
			if err := s.Categories.InsertTx(ctx, tx, c); err != nil {
				return err
			}
		}
		return nil
	})
}

// HasTransactionNear reports whether a same-account same-amount transaction
// exists within the window.
func (s *Store) HasTransactionNear(ctx context.Context, accountID string, amountCents int64, at time.Time, window time.Duration) (bool, error) {
	return s.Transactions.ExistsNear(ctx, accountID, amountCents, at, window)
}

// InsertTransactions commits a batch atomically.
func (s *Store) InsertTransactions(ctx context.Context, transactions []Transaction) error {
	return s.withTx(func(tx *sql.Tx) error {
		for _, t := range transactions {
			if err := s.Transactions.InsertTx(ctx, tx, t); err != nil {
				return err
			}
		}
		return nil
	})
}

// BudgetForPeriod returns the existing budget for (year, month, category), or nil.
func (s *Store) BudgetForPeriod(ctx context.Context, userID string, year, month int, categoryID *string) (*Budget, error) {
	budgets, err := s.Budgets.ListByMonth(ctx, userID, year, month)
	if err != nil {
		return nil, err
	}
	for i := range budgets {
		if equalCategoryScope(budgets[i].CategoryID, categoryID) {
			return &budgets[i], nil
		}
	}
	return nil, nil
}

func equalCategoryScope(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// InsertBudgets commits a batch atomically.
func (s *Store) InsertBudgets(ctx context.Context, budgets []Budget) error {
	return s.withTx(func(tx *sql.Tx) error {
		for _, b := range budgets {
			if err := s.Budgets.InsertTx(ctx, tx, b); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) UpdateBudget(ctx context.Context, b Budget) error {
	return s.Budgets.Update(ctx, b)
}

// SavingsGoalsByUser lists goals for name-conflict checks.
func (s *Store) SavingsGoalsByUser(ctx context.Context, userID string) ([]SavingsGoal, error) {
	return s.SavingsGoals.ListByUser(ctx, userID)
}

// InsertSavingsGoals commits a batch atomically.
func (s *Store) InsertSavingsGoals(ctx context.Context, goals []SavingsGoal) error {
	return s.withTx(func(tx *sql.Tx) error {
		for _, g := range goals {
			if err := s.SavingsGoals.InsertTx(ctx, tx, g); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) UpdateSavingsGoal(ctx context.Context, g SavingsGoal) error {
	return s.SavingsGoals.Update(ctx, g)
}
