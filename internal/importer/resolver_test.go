package importer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccxiaoji/ledgerio/internal/database/repository"
)

// fakeStore is an in-memory Store for resolver tests.
type fakeStore struct {
	accounts     []repository.Account
	categories   []repository.Category
	transactions []repository.Transaction
	budgets      []repository.Budget
	goals        []repository.SavingsGoal
}

func (f *fakeStore) AccountByName(_ context.Context, userID, name string) (*repository.Account, error) {
	for i := range f.accounts {
		if f.accounts[i].UserID == userID && f.accounts[i].Name == name {
			return &f.accounts[i], nil
		}
	}
	return nil, nil
}

func (f *fakeStore) AccountNames(_ context.Context, userID string) ([]string, error) {
	var names []string
	for _, a := range f.accounts {
		if a.UserID == userID {
			names = append(names, a.Name)
		}
	}
	return names, nil
}

func (f *fakeStore) InsertAccounts(_ context.Context, accounts []repository.Account) error {
	f.accounts = append(f.accounts, accounts...)
	return nil
}

func (f *fakeStore) UpdateAccount(_ context.Context, a repository.Account) error {
	for i := range f.accounts {
		if f.accounts[i].ID == a.ID {
			f.accounts[i] = a
		}
	}
	return nil
}

func (f *fakeStore) CategoryByNameAndType(_ context.Context, userID, name, typ string) (*repository.Category, error) {
	for i := range f.categories {
		c := &f.categories[i]
		if c.UserID == userID && c.Name == name && c.Type == typ {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) CategoryNames(_ context.Context, userID, typ string) ([]string, error) {
	var names []string
	for _, c := range f.categories {
		if c.UserID == userID && c.Type == typ {
			names = append(names, c.Name)
		}
	}
	return names, nil
}

func (f *fakeStore) InsertCategories(_ context.Context, categories []repository.Category) error {
	f.categories = append(f.categories, categories...)
	return nil
}

func (f *fakeStore) HasTransactionNear(_ context.Context, accountID string, amountCents int64, at time.Time, window time.Duration) (bool, error) {
	for _, t := range f.transactions {
		if t.AccountID != accountID || t.AmountCents != amountCents {
			continue
		}
		d := t.CreatedAt.Sub(at)
		if d < 0 {
			d = -d
		}
		if d <= window {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) InsertTransactions(_ context.Context, transactions []repository.Transaction) error {
	f.transactions = append(f.transactions, transactions...)
	return nil
}

func (f *fakeStore) BudgetForPeriod(_ context.Context, userID string, year, month int, categoryID *string) (*repository.Budget, error) {
	for i := range f.budgets {
		b := &f.budgets[i]
		if b.UserID != userID || b.Year != year || b.Month != month {
			continue
		}
		switch {
		case b.CategoryID == nil && categoryID == nil:
			return b, nil
		case b.CategoryID != nil && categoryID != nil && *b.CategoryID == *categoryID:
			return b, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) InsertBudgets(_ context.Context, budgets []repository.Budget) error {
	f.budgets = append(f.budgets, budgets...)
	return nil
}

func (f *fakeStore) UpdateBudget(_ context.Context, b repository.Budget) error {
	for i := range f.budgets {
		if f.budgets[i].ID == b.ID {
			f.budgets[i] = b
		}
	}
	return nil
}

func (f *fakeStore) SavingsGoalsByUser(_ context.Context, userID string) ([]repository.SavingsGoal, error) {
	var out []repository.SavingsGoal
	for _, g := range f.goals {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertSavingsGoals(_ context.Context, goals []repository.SavingsGoal) error {
	f.goals = append(f.goals, goals...)
	return nil
}

func (f *fakeStore) UpdateSavingsGoal(_ context.Context, g repository.SavingsGoal) error {
	for i := range f.goals {
		if f.goals[i].ID == g.ID {
			f.goals[i] = g
		}
	}
	return nil
}

var _ Store = (*fakeStore)(nil)

func TestResolveAccountConflict(t *testing.T) {
	ctx := context.Background()
	existing := repository.Account{
		ID: "acc-1", UserID: "local", Name: "现金账户",
		Type: repository.AccountTypeCash, BalanceCents: 3000,
	}
	candidate := repository.Account{
		ID: "acc-2", UserID: "local", Name: "现金账户",
		Type: repository.AccountTypeCash, BalanceCents: 5000,
	}

	t.Run("no conflict", func(t *testing.T) {
		r := NewConflictResolver(&fakeStore{})
		res, err := r.ResolveAccountConflict(ctx, candidate, StrategySkip)
		require.NoError(t, err)
		assert.Equal(t, ResolveNoConflict, res.Kind)
		assert.Equal(t, candidate, res.Data)
	})

	t.Run("skip", func(t *testing.T) {
		r := NewConflictResolver(&fakeStore{accounts: []repository.Account{existing}})
		res, err := r.ResolveAccountConflict(ctx, candidate, StrategySkip)
		require.NoError(t, err)
		assert.Equal(t, ResolveSkip, res.Kind)
		assert.Equal(t, "acc-1", res.Existing.ID)
		assert.Contains(t, res.Reason, "已存在")
	})

	t.Run("merge sums balances", func(t *testing.T) {
		r := NewConflictResolver(&fakeStore{accounts: []repository.Account{existing}})
		res, err := r.ResolveAccountConflict(ctx, candidate, StrategyMerge)
		require.NoError(t, err)
		assert.Equal(t, ResolveMerge, res.Kind)
		assert.Equal(t, "acc-1", res.Data.ID)
		assert.Equal(t, int64(8000), res.Data.BalanceCents)
	})

	t.Run("rename", func(t *testing.T) {
		r := NewConflictResolver(&fakeStore{accounts: []repository.Account{existing}})
		res, err := r.ResolveAccountConflict(ctx, candidate, StrategyRename)
		require.NoError(t, err)
		assert.Equal(t, ResolveModified, res.Kind)
		assert.Equal(t, "现金账户 (导入)", res.Data.Name)
		// the copy gets a fresh id: reusing the file's id would upsert over
		// an existing row when the file came from this same store
		assert.NotEqual(t, candidate.ID, res.Data.ID)
		assert.NotEqual(t, existing.ID, res.Data.ID)
	})

	t.Run("overwrite keeps existing id", func(t *testing.T) {
		r := NewConflictResolver(&fakeStore{accounts: []repository.Account{existing}})
		res, err := r.ResolveAccountConflict(ctx, candidate, StrategyOverwrite)
		require.NoError(t, err)
		assert.Equal(t, ResolveModified, res.Kind)
		assert.Equal(t, "acc-1", res.Data.ID)
		assert.Equal(t, int64(5000), res.Data.BalanceCents)
	})
}

func TestResolveCategoryConflict(t *testing.T) {
	ctx := context.Background()
	existing := repository.Category{
		ID: "cat-1", UserID: "local", Name: "餐饮", Type: repository.CategoryTypeExpense,
	}
	candidate := repository.Category{
		ID: "cat-2", UserID: "local", Name: "餐饮", Type: repository.CategoryTypeExpense,
	}

	t.Run("same name different type is no conflict", func(t *testing.T) {
		r := NewConflictResolver(&fakeStore{categories: []repository.Category{existing}})
		income := candidate
		income.Type = repository.CategoryTypeIncome
		res, err := r.ResolveCategoryConflict(ctx, income, StrategySkip)
		require.NoError(t, err)
		assert.Equal(t, ResolveNoConflict, res.Kind)
	})

	t.Run("rename", func(t *testing.T) {
		r := NewConflictResolver(&fakeStore{categories: []repository.Category{existing}})
		res, err := r.ResolveCategoryConflict(ctx, candidate, StrategyRename)
		require.NoError(t, err)
		assert.Equal(t, ResolveModified, res.Kind)
		assert.Equal(t, "餐饮 (导入)", res.Data.Name)
	})

	t.Run("merge adopts existing unchanged", func(t *testing.T) {
		r := NewConflictResolver(&fakeStore{categories: []repository.Category{existing}})
		res, err := r.ResolveCategoryConflict(ctx, candidate, StrategyMerge)
		require.NoError(t, err)
		assert.Equal(t, ResolveMerge, res.Kind)
		assert.Equal(t, existing, res.Data)
	})
}

func TestResolveBudgetConflict(t *testing.T) {
	ctx := context.Background()
	existing := repository.Budget{
		ID: "bud-1", UserID: "local", Year: 2025, Month: 6, BudgetAmountCents: 300000,
	}

	t.Run("rename degrades to skip", func(t *testing.T) {
		r := NewConflictResolver(&fakeStore{budgets: []repository.Budget{existing}})
		candidate := repository.Budget{ID: "bud-2", UserID: "local", Year: 2025, Month: 6, BudgetAmountCents: 100000}
		res, err := r.ResolveBudgetConflict(ctx, candidate, StrategyRename)
		require.NoError(t, err)
		assert.Equal(t, ResolveSkip, res.Kind)
	})

	t.Run("merge sums amounts", func(t *testing.T) {
		r := NewConflictResolver(&fakeStore{budgets: []repository.Budget{existing}})
		candidate := repository.Budget{ID: "bud-2", UserID: "local", Year: 2025, Month: 6, BudgetAmountCents: 100000}
		res, err := r.ResolveBudgetConflict(ctx, candidate, StrategyMerge)
		require.NoError(t, err)
		assert.Equal(t, ResolveMerge, res.Kind)
		assert.Equal(t, int64(400000), res.Data.BudgetAmountCents)
	})

	t.Run("category-scoped budget does not collide with overall", func(t *testing.T) {
		r := NewConflictResolver(&fakeStore{budgets: []repository.Budget{existing}})
		catID := "cat-1"
		candidate := repository.Budget{ID: "bud-2", UserID: "local", Year: 2025, Month: 6, CategoryID: &catID, BudgetAmountCents: 100000}
		res, err := r.ResolveBudgetConflict(ctx, candidate, StrategySkip)
		require.NoError(t, err)
		assert.Equal(t, ResolveNoConflict, res.Kind)
	})
}

func TestResolveSavingsGoalConflict(t *testing.T) {
	ctx := context.Background()
	existing := repository.SavingsGoal{
		ID: "goal-1", UserID: "local", Name: "旅行基金",
		TargetAmountCents: 2000000, CurrentAmountCents: 300000,
	}
	candidate := repository.SavingsGoal{
		ID: "goal-2", UserID: "local", Name: "旅行基金",
		TargetAmountCents: 2500000, CurrentAmountCents: 100000,
	}

	t.Run("merge sums current and keeps larger target", func(t *testing.T) {
		r := NewConflictResolver(&fakeStore{goals: []repository.SavingsGoal{existing}})
		res, err := r.ResolveSavingsGoalConflict(ctx, candidate, StrategyMerge)
		require.NoError(t, err)
		assert.Equal(t, ResolveMerge, res.Kind)
		assert.Equal(t, int64(400000), res.Data.CurrentAmountCents)
		assert.Equal(t, int64(2500000), res.Data.TargetAmountCents)
	})

	t.Run("rename", func(t *testing.T) {
		r := NewConflictResolver(&fakeStore{goals: []repository.SavingsGoal{existing}})
		res, err := r.ResolveSavingsGoalConflict(ctx, candidate, StrategyRename)
		require.NoError(t, err)
		assert.Equal(t, ResolveModified, res.Kind)
		assert.Equal(t, "旅行基金 (导入)", res.Data.Name)
	})
}

func TestGenerateUniqueName(t *testing.T) {
	assert.Equal(t, "餐饮 (导入)", GenerateUniqueName("餐饮", []string{"餐饮"}))
	assert.Equal(t, "餐饮 (导入2)", GenerateUniqueName("餐饮", []string{"餐饮", "餐饮 (导入)"}))
	assert.Equal(t, "餐饮 (导入3)", GenerateUniqueName("餐饮", []string{"餐饮", "餐饮 (导入)", "餐饮 (导入2)"}))
	// order of the existing list must not matter
	assert.Equal(t, "餐饮 (导入3)", GenerateUniqueName("餐饮", []string{"餐饮 (导入2)", "餐饮", "餐饮 (导入)"}))
}

func TestIsTransactionDuplicate(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	store := &fakeStore{transactions: []repository.Transaction{
		{ID: "t-1", AccountID: "acc-1", AmountCents: -1500, CreatedAt: at},
	}}
	r := NewConflictResolver(store)

	dup, err := r.IsTransactionDuplicate(ctx, repository.Transaction{
		AccountID: "acc-1", AmountCents: -1500, CreatedAt: at.Add(59 * time.Second),
	})
	require.NoError(t, err)
	assert.True(t, dup, "59s apart is inside the window")

	dup, err = r.IsTransactionDuplicate(ctx, repository.Transaction{
		AccountID: "acc-1", AmountCents: -1500, CreatedAt: at.Add(61 * time.Second),
	})
	require.NoError(t, err)
	assert.False(t, dup, "61s apart is outside the window")

	dup, err = r.IsTransactionDuplicate(ctx, repository.Transaction{
		AccountID: "acc-2", AmountCents: -1500, CreatedAt: at,
	})
	require.NoError(t, err)
	assert.False(t, dup, "different account is never a duplicate")
}
