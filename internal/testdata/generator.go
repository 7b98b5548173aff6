// Package testdata seeds a store with sample ledger data for demos and
// manual testing of the export and import flows.
package testdata

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/ccxiaoji/ledgerio/internal/database"
	"github.com/ccxiaoji/ledgerio/internal/database/repository"
)

var sampleAccounts = []struct {
	name string
	typ  string
}{
	{"现金账户", repository.AccountTypeCash},
	{"招商银行储蓄卡", repository.AccountTypeBank},
	{"支付宝", repository.AccountTypeAlipay},
	{"微信零钱", repository.AccountTypeWechat},
}

var sampleExpenseCategories = []string{"餐饮", "交通", "购物", "娱乐", "住房"}
var sampleIncomeCategories = []string{"工资", "投资收益"}

var sampleNotes = []string{"午餐", "地铁", "超市采购", "电影票", "房租", "打车", ""}

// Seed populates the store with a small, realistic dataset: a few accounts
// and categories, three months of transactions, a budget and a savings goal.
func Seed(ctx context.Context, store *repository.Store, userID string) error {
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	now := database.Now()

	var accountIDs []string
	for _, a := range sampleAccounts {
		acct := repository.Account{
			ID:           uuid.NewString(),
			UserID:       userID,
			Name:         a.name,
			Type:         a.typ,
			BalanceCents: int64(rng.Intn(500000)),
			Currency:     "CNY",
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := store.Accounts.Insert(ctx, acct); err != nil {
			return err
		}
		accountIDs = append(accountIDs, acct.ID)
	}

	var expenseIDs, incomeIDs []string
	for _, name := range sampleExpenseCategories {
		c := repository.Category{
			ID: uuid.NewString(), UserID: userID, Name: name,
			Type: repository.CategoryTypeExpense, CreatedAt: now, UpdatedAt: now,
		}
		if err := store.Categories.Insert(ctx, c); err != nil {
			return err
		}
		expenseIDs = append(expenseIDs, c.ID)
	}
	for _, name := range sampleIncomeCategories {
		c := repository.Category{
			ID: uuid.NewString(), UserID: userID, Name: name,
			Type: repository.CategoryTypeIncome, CreatedAt: now, UpdatedAt: now,
		}
		if err := store.Categories.Insert(ctx, c); err != nil {
			return err
		}
		incomeIDs = append(incomeIDs, c.ID)
	}

	for i := 0; i < 60; i++ {
		at := now.AddDate(0, 0, -rng.Intn(90)).Add(-time.Duration(rng.Intn(86400)) * time.Second)
		amount := -int64(rng.Intn(20000) + 100)
		categoryID := expenseIDs[rng.Intn(len(expenseIDs))]
		if rng.Intn(10) < 2 {
			amount = int64(rng.Intn(1000000) + 50000)
			categoryID = incomeIDs[rng.Intn(len(incomeIDs))]
		}
		t := repository.Transaction{
			ID:          uuid.NewString(),
			UserID:      userID,
			AccountID:   accountIDs[rng.Intn(len(accountIDs))],
			CategoryID:  categoryID,
			AmountCents: amount,
			CreatedAt:   at,
			UpdatedAt:   at,
		}
		if note := sampleNotes[rng.Intn(len(sampleNotes))]; note != "" {
			t.Note = &note
		}
		if err := store.Transactions.Insert(ctx, t); err != nil {
			return err
		}
	}

	budget := repository.Budget{
		ID:                uuid.NewString(),
		UserID:            userID,
		Year:              now.Year(),
		Month:             int(now.Month()),
		BudgetAmountCents: 500000,
		AlertThreshold:    0.8,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := store.Budgets.Insert(ctx, budget); err != nil {
		return err
	}

	targetDate := now.AddDate(1, 0, 0)
	goal := repository.SavingsGoal{
		ID:                 uuid.NewString(),
		UserID:             userID,
		Name:               "旅行基金",
		TargetAmountCents:  2000000,
		CurrentAmountCents: 350000,
		TargetDate:         &targetDate,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	return store.SavingsGoals.Insert(ctx, goal)
}
