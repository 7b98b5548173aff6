package importer

import (
	"github.com/ccxiaoji/ledgerio/internal/database/repository"
)

// Rows pair a parsed entity with its source line number so failures can point
// back at the file. References between entities travel as names: the file is
// portable across stores where ids differ.

type AccountRow struct {
	Line    int
	Account repository.Account
}

type CategoryRow struct {
	Line       int
	Category   repository.Category
	ParentName string // empty for top-level categories
}

type TransactionRow struct {
	Line         int
	Transaction  repository.Transaction
	AccountName  string
	CategoryName string
}

type BudgetRow struct {
	Line         int
	Budget       repository.Budget
	CategoryName string // empty for an overall budget
}

type SavingsGoalRow struct {
	Line int
	Goal repository.SavingsGoal
}

// Dataset is the typed form of one import file, whatever its source format
// (sectioned CSV, backup JSON).
type Dataset struct {
	Version      string
	Accounts     []AccountRow
	Categories   []CategoryRow
	Transactions []TransactionRow
	Budgets      []BudgetRow
	SavingsGoals []SavingsGoalRow
}

func (d *Dataset) TotalRows() int {
	return len(d.Accounts) + len(d.Categories) + len(d.Transactions) + len(d.Budgets) + len(d.SavingsGoals)
}

// TypeCounts returns per-entity-type row counts for previews.
func (d *Dataset) TypeCounts() map[EntityType]int {
	counts := map[EntityType]int{}
	if len(d.Accounts) > 0 {
		counts[EntityAccount] = len(d.Accounts)
	}
	if len(d.Categories) > 0 {
		counts[EntityCategory] = len(d.Categories)
	}
	if len(d.Transactions) > 0 {
		counts[EntityTransaction] = len(d.Transactions)
	}
	if len(d.Budgets) > 0 {
		counts[EntityBudget] = len(d.Budgets)
	}
	if len(d.SavingsGoals) > 0 {
		counts[EntitySavings] = len(d.SavingsGoals)
	}
	return counts
}

// DateRange returns the transaction time span, or nil if no transactions.
func (d *Dataset) DateRange() *DateRange {
	if len(d.Transactions) == 0 {
		return nil
	}
	r := DateRange{Start: d.Transactions[0].Transaction.CreatedAt, End: d.Transactions[0].Transaction.CreatedAt}
	for _, row := range d.Transactions[1:] {
		t := row.Transaction.CreatedAt
		if t.Before(r.Start) {
			r.Start = t
		}
		if t.After(r.End) {
			r.End = t
		}
	}
	return &r
}
