package importer

import (
	"context"
	"time"

	"github.com/ccxiaoji/ledgerio/internal/database/repository"
)

// Store is the persistence surface the import pipeline depends on.
// repository.Store implements it over sqlite; tests may substitute an
// in-memory fake. The validator and resolver never write; only the batch
// insert and update methods mutate the store.
type Store interface {
	AccountByName(ctx context.Context, userID, name string) (*repository.Account, error)
	AccountNames(ctx context.Context, userID string) ([]string, error)
	InsertAccounts(ctx context.Context, accounts []repository.Account) error
	UpdateAccount(ctx context.Context, a repository.Account) error

	CategoryByNameAndType(ctx context.Context, userID, name, typ string) (*repository.Category, error)
	CategoryNames(ctx context.Context, userID, typ string) ([]string, error)
	InsertCategories(ctx context.Context, categories []repository.Category) error

	HasTransactionNear(ctx context.Context, accountID string, amountCents int64, at time.Time, window time.Duration) (bool, error)
	InsertTransactions(ctx context.Context, transactions []repository.Transaction) error

	BudgetForPeriod(ctx context.Context, userID string, year, month int, categoryID *string) (*repository.Budget, error)
	InsertBudgets(ctx context.Context, budgets []repository.Budget) error
	UpdateBudget(ctx context.Context, b repository.Budget) error

	SavingsGoalsByUser(ctx context.Context, userID string) ([]repository.SavingsGoal, error)
	InsertSavingsGoals(ctx context.Context, goals []repository.SavingsGoal) error
	UpdateSavingsGoal(ctx context.Context, g repository.SavingsGoal) error
}
