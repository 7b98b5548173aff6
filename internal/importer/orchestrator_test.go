package importer_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ccxiaoji/ledgerio/internal/database"
	"github.com/ccxiaoji/ledgerio/internal/database/repository"
	"github.com/ccxiaoji/ledgerio/internal/importer"
	"github.com/ccxiaoji/ledgerio/internal/progress"
)

const testUser = "local"

func newTestStore(t *testing.T) *repository.Store {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	return repository.NewStore(db)
}

func testDataset() *importer.Dataset {
	at := time.Date(2025, 5, 20, 12, 30, 0, 0, time.UTC)
	note := "午餐"
	return &importer.Dataset{
		Version: "2.0",
		Accounts: []importer.AccountRow{
			{Line: 2, Account: repository.Account{
				ID: "acc-1", UserID: testUser, Name: "现金账户",
				Type: repository.AccountTypeCash, BalanceCents: 300000, Currency: "CNY",
			}},
		},
		Categories: []importer.CategoryRow{
			{Line: 3, Category: repository.Category{
				ID: "cat-1", UserID: testUser, Name: "餐饮", Type: repository.CategoryTypeExpense,
			}},
		},
		Transactions: []importer.TransactionRow{
			{Line: 4, Transaction: repository.Transaction{
				ID: "txn-1", UserID: testUser, AmountCents: -1500,
				Note: &note, CreatedAt: at, UpdatedAt: at,
			}, AccountName: "现金账户", CategoryName: "餐饮"},
		},
		Budgets: []importer.BudgetRow{
			{Line: 5, Budget: repository.Budget{
				ID: "bud-1", UserID: testUser, Year: 2025, Month: 5,
				BudgetAmountCents: 500000, AlertThreshold: 0.8,
			}},
		},
		SavingsGoals: []importer.SavingsGoalRow{
			{Line: 6, Goal: repository.SavingsGoal{
				ID: "goal-1", UserID: testUser, Name: "旅行基金", TargetAmountCents: 2000000,
			}},
		},
	}
}

func TestRunImportsDatasetInDependencyOrder(t *testing.T) {
	store := newTestStore(t)
	orch := importer.NewOrchestrator(store, testUser, zerolog.Nop())

	res, err := orch.Run(context.Background(), testDataset(), importer.DefaultConfig())
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 5, res.TotalRows)
	assert.Equal(t, 5, res.SuccessCount)
	assert.Zero(t, res.FailedCount)
	assert.Zero(t, res.SkippedCount)
	assert.Equal(t, 1, res.Summary.AccountsImported)
	assert.Equal(t, 1, res.Summary.TransactionsImported)

	txns, err := store.Transactions.List(context.Background(), testUser, repository.TransactionFilters{})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "acc-1", txns[0].AccountID)
	assert.Equal(t, "cat-1", txns[0].CategoryID)
}

func TestRunSecondImportSkipsEverything(t *testing.T) {
	store := newTestStore(t)
	orch := importer.NewOrchestrator(store, testUser, zerolog.Nop())
	ctx := context.Background()

	res, err := orch.Run(ctx, testDataset(), importer.DefaultConfig())
	require.NoError(t, err)
	require.True(t, res.Success)

	res, err = orch.Run(ctx, testDataset(), importer.DefaultConfig())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Zero(t, res.SuccessCount)
	assert.Equal(t, res.TotalRows, res.SkippedCount)

	n, err := store.Transactions.CountByUser(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunMergeSumsAccountBalances(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := database.Now()
	require.NoError(t, store.Accounts.Insert(ctx, repository.Account{
		ID: "existing", UserID: testUser, Name: "现金账户",
		Type: repository.AccountTypeCash, BalanceCents: 3000, Currency: "CNY",
		CreatedAt: now, UpdatedAt: now,
	}))

	ds := &importer.Dataset{Accounts: []importer.AccountRow{
		{Line: 2, Account: repository.Account{
			ID: "incoming", UserID: testUser, Name: "现金账户",
			Type: repository.AccountTypeCash, BalanceCents: 5000, Currency: "CNY",
		}},
	}}
	cfg := importer.DefaultConfig()
	cfg.Strategy = importer.StrategyMerge

	orch := importer.NewOrchestrator(store, testUser, zerolog.Nop())
	res, err := orch.Run(ctx, ds, cfg)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.SuccessCount)

	merged, err := store.Accounts.FindByName(ctx, testUser, "现金账户")
	require.NoError(t, err)
	require.NotNil(t, merged)
	assert.Equal(t, "existing", merged.ID)
	assert.Equal(t, int64(8000), merged.BalanceCents)
}

func TestRunRenameCreatesSuffixedCategory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := database.Now()
	require.NoError(t, store.Categories.Insert(ctx, repository.Category{
		ID: "existing", UserID: testUser, Name: "餐饮",
		Type: repository.CategoryTypeExpense, CreatedAt: now, UpdatedAt: now,
	}))

	// same id as the existing row, as in a backup taken from this store
	ds := &importer.Dataset{Categories: []importer.CategoryRow{
		{Line: 2, Category: repository.Category{
			ID: "existing", UserID: testUser, Name: "餐饮", Type: repository.CategoryTypeExpense,
		}},
	}}
	cfg := importer.DefaultConfig()
	cfg.Strategy = importer.StrategyRename

	orch := importer.NewOrchestrator(store, testUser, zerolog.Nop())
	res, err := orch.Run(ctx, ds, cfg)
	require.NoError(t, err)
	require.True(t, res.Success)

	renamed, err := store.Categories.FindByNameAndType(ctx, testUser, "餐饮 (导入)", repository.CategoryTypeExpense)
	require.NoError(t, err)
	require.NotNil(t, renamed)
	assert.NotEqual(t, "existing", renamed.ID, "the copy must not reuse the colliding id")

	original, err := store.Categories.FindByNameAndType(ctx, testUser, "餐饮", repository.CategoryTypeExpense)
	require.NoError(t, err)
	require.NotNil(t, original, "the existing row keeps its name")
	assert.Equal(t, "existing", original.ID)
}

func TestRunTransactionDuplicateWindow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := testDataset()
	orch := importer.NewOrchestrator(store, testUser, zerolog.Nop())
	_, err := orch.Run(ctx, base, importer.DefaultConfig())
	require.NoError(t, err)

	at := base.Transactions[0].Transaction.CreatedAt
	ds := &importer.Dataset{Transactions: []importer.TransactionRow{
		{Line: 2, Transaction: repository.Transaction{
			ID: "near", UserID: testUser, AmountCents: -1500,
			CreatedAt: at.Add(59 * time.Second), UpdatedAt: at,
		}, AccountName: "现金账户", CategoryName: "餐饮"},
		{Line: 3, Transaction: repository.Transaction{
			ID: "far", UserID: testUser, AmountCents: -1500,
			CreatedAt: at.Add(61 * time.Second), UpdatedAt: at,
		}, AccountName: "现金账户", CategoryName: "餐饮"},
	}}

	// OVERWRITE must not bypass duplicate detection
	cfg := importer.DefaultConfig()
	cfg.Strategy = importer.StrategyOverwrite
	res, err := orch.Run(ctx, ds, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SkippedCount)
	assert.Equal(t, 1, res.SuccessCount)

	n, err := store.Transactions.CountByUser(ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRunDependencyErrors(t *testing.T) {
	store := newTestStore(t)
	ds := &importer.Dataset{Transactions: []importer.TransactionRow{
		{Line: 2, Transaction: repository.Transaction{
			ID: "t-1", UserID: testUser, AmountCents: -100,
			CreatedAt: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
		}, AccountName: "不存在的账户", CategoryName: "餐饮"},
	}}

	orch := importer.NewOrchestrator(store, testUser, zerolog.Nop())
	res, err := orch.Run(context.Background(), ds, importer.DefaultConfig())
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, 1, res.FailedCount)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, importer.KindDependency, res.Errors[0].Kind)
	assert.Contains(t, res.Errors[0].Message, "账户不存在")
	assert.Equal(t, 2, res.Errors[0].Line)
}

func TestRunInvalidRows(t *testing.T) {
	invalid := importer.AccountRow{Line: 2, Account: repository.Account{
		ID: "bad", UserID: testUser, Name: "",
	}}
	valid := importer.AccountRow{Line: 3, Account: repository.Account{
		ID: "good", UserID: testUser, Name: "现金账户",
		Type: repository.AccountTypeCash, Currency: "CNY",
	}}

	t.Run("skip invalid keeps going", func(t *testing.T) {
		store := newTestStore(t)
		orch := importer.NewOrchestrator(store, testUser, zerolog.Nop())
		ds := &importer.Dataset{Accounts: []importer.AccountRow{invalid, valid}}

		res, err := orch.Run(context.Background(), ds, importer.DefaultConfig())
		require.NoError(t, err)
		assert.True(t, res.Success, "partial import with one good row")
		assert.Equal(t, 1, res.SuccessCount)
		assert.Equal(t, 1, res.FailedCount)
		require.Len(t, res.Errors, 1)
		assert.Equal(t, importer.KindValidation, res.Errors[0].Kind)
		assert.Contains(t, res.Errors[0].Message, "账户名称不能为空")
	})

	t.Run("strict mode stops at first invalid row", func(t *testing.T) {
		store := newTestStore(t)
		orch := importer.NewOrchestrator(store, testUser, zerolog.Nop())
		ds := &importer.Dataset{Accounts: []importer.AccountRow{invalid, valid}}
		cfg := importer.DefaultConfig()
		cfg.SkipInvalidRows = false

		res, err := orch.Run(context.Background(), ds, cfg)
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Zero(t, res.SuccessCount)

		a, err := store.Accounts.FindByName(context.Background(), testUser, "现金账户")
		require.NoError(t, err)
		assert.Nil(t, a, "rows after the invalid one must not land")
	})
}

func TestRunCancellationKeepsCommittedBatches(t *testing.T) {
	store := newTestStore(t)
	orch := importer.NewOrchestrator(store, testUser, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := orch.Run(ctx, testDataset(), importer.DefaultConfig())
	require.NoError(t, err)
	assert.True(t, res.Cancelled)
	assert.False(t, res.Success)
	assert.Equal(t, importer.StateCancelled, orch.State())
}

func TestRunReportsProgress(t *testing.T) {
	store := newTestStore(t)
	tracker := progress.NewTracker()
	orch := importer.NewOrchestrator(store, testUser, zerolog.Nop()).WithTracker(tracker)

	var seen []int
	done := make(chan struct{})
	sub := tracker.Subscribe()
	go func() {
		defer close(done)
		for pct := range sub {
			seen = append(seen, pct)
		}
	}()

	_, err := orch.Run(context.Background(), testDataset(), importer.DefaultConfig())
	require.NoError(t, err)
	<-done

	require.NotEmpty(t, seen)
	assert.Equal(t, 100, seen[len(seen)-1])
	for i := 1; i < len(seen); i++ {
		assert.Greater(t, seen[i], seen[i-1], "progress must be strictly increasing")
	}
}

func TestImportFileEndToEnd(t *testing.T) {
	store := newTestStore(t)
	path := filepath.Join(t.TempDir(), "backup.csv")
	csv := "HEADER,2.0,2025-06-01T00:00:00Z\n" +
		"ACCOUNT,acc-1,现金账户,CASH,300000,CNY,,\n" +
		"CATEGORY,cat-1,餐饮,EXPENSE,,,\n" +
		"TRANSACTION,txn-1,现金账户,餐饮,-1500,2025-05-20T12:30:00Z,午餐\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	orch := importer.NewOrchestrator(store, testUser, zerolog.Nop())
	res, err := orch.ImportFile(context.Background(), path, importer.DefaultConfig())
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 3, res.SuccessCount)
	assert.Equal(t, importer.StateResult, orch.State())
}

func TestValidateFile(t *testing.T) {
	orch := importer.NewOrchestrator(newTestStore(t), testUser, zerolog.Nop())

	assert.Error(t, orch.ValidateFile(filepath.Join(t.TempDir(), "missing.csv")))

	dir := t.TempDir()
	assert.Error(t, orch.ValidateFile(dir))

	ok := filepath.Join(dir, "data.csv")
	require.NoError(t, os.WriteFile(ok, []byte("HEADER,2.0\n"), 0o644))
	assert.NoError(t, orch.ValidateFile(ok))
}

func TestPreviewWarnsOnSimilarAccountNames(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := database.Now()
	require.NoError(t, store.Accounts.Insert(ctx, repository.Account{
		ID: "existing", UserID: testUser, Name: "现金账户1",
		Type: repository.AccountTypeCash, Currency: "CNY", CreatedAt: now, UpdatedAt: now,
	}))

	path := filepath.Join(t.TempDir(), "backup.csv")
	csv := "HEADER,2.0,2025-06-01T00:00:00Z\n" +
		"ACCOUNT,acc-1,现金账户,CASH,0,CNY,,\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0o644))

	orch := importer.NewOrchestrator(store, testUser, zerolog.Nop())
	p, err := orch.Preview(ctx, path)
	require.NoError(t, err)
	assert.False(t, p.HasErrors)
	assert.Equal(t, 1, p.TotalRows)
	require.Len(t, p.Warnings, 1)
	assert.Contains(t, p.Warnings[0], "名称相近")
}
