package export

import (
	"time"

	"github.com/ccxiaoji/ledgerio/internal/database/repository"
	"github.com/ccxiaoji/ledgerio/internal/importer"
)

// Export file names inside a backup archive.
const (
	FileLedger   = "ledger_master.json"
	FileTodo     = "todo.json"
	FileHabit    = "habit.json"
	FileSchedule = "schedule.json"
	FilePlan     = "plan.json"
	FileOthers   = "others.json"
)

// DocumentVersion is the export document format version.
const DocumentVersion = "2.0"

// Documents reference entities by name, not id, so an export restores cleanly
// into a store whose ids differ from the source.

type AccountDoc struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Type          string  `json:"type"`
	BalanceCents  int64   `json:"balanceCents"`
	Currency      string  `json:"currency"`
	Icon          *string `json:"icon,omitempty"`
	Color         *string `json:"color,omitempty"`
	BillingDay    *int    `json:"billingDay,omitempty"`
	PaymentDueDay *int    `json:"paymentDueDay,omitempty"`
}

type CategoryDoc struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	ParentName string  `json:"parentName,omitempty"`
	Icon       *string `json:"icon,omitempty"`
	Color      *string `json:"color,omitempty"`
}

type TransactionDoc struct {
	ID           string    `json:"id"`
	AccountName  string    `json:"accountName"`
	CategoryName string    `json:"categoryName"`
	AmountCents  int64     `json:"amountCents"`
	CreatedAt    time.Time `json:"createdAt"`
	Note         *string   `json:"note,omitempty"`
}

type BudgetDoc struct {
	ID                string  `json:"id"`
	Year              int     `json:"year"`
	Month             int     `json:"month"`
	CategoryName      string  `json:"categoryName,omitempty"`
	BudgetAmountCents int64   `json:"budgetAmountCents"`
	AlertThreshold    float64 `json:"alertThreshold"`
}

type SavingsGoalDoc struct {
	ID                 string     `json:"id"`
	Name               string     `json:"name"`
	TargetAmountCents  int64      `json:"targetAmountCents"`
	CurrentAmountCents int64      `json:"currentAmountCents"`
	TargetDate         *time.Time `json:"targetDate,omitempty"`
}

// LedgerDocument is the money-module export: everything the import pipeline
// can restore.
type LedgerDocument struct {
	Version      string           `json:"version"`
	ExportedAt   time.Time        `json:"exportedAt"`
	Accounts     []AccountDoc     `json:"accounts"`
	Categories   []CategoryDoc    `json:"categories"`
	Transactions []TransactionDoc `json:"transactions"`
	Budgets      []BudgetDoc      `json:"budgets"`
	SavingsGoals []SavingsGoalDoc `json:"savingsGoals"`
}

type TodoDoc struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Done      bool       `json:"done"`
	Priority  int        `json:"priority"`
	DueAt     *time.Time `json:"dueAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

type TodoDocument struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exportedAt"`
	Tasks      []TodoDoc `json:"tasks"`
}

type HabitRecordDoc struct {
	RecordDate time.Time `json:"recordDate"`
	Count      int       `json:"count"`
}

type HabitDoc struct {
	ID      string           `json:"id"`
	Title   string           `json:"title"`
	Period  string           `json:"period"`
	Target  int              `json:"target"`
	Records []HabitRecordDoc `json:"records"`
}

type HabitDocument struct {
	Version    string     `json:"version"`
	ExportedAt time.Time  `json:"exportedAt"`
	Habits     []HabitDoc `json:"habits"`
}

type ScheduleDoc struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	ShiftDate time.Time `json:"shiftDate"`
	StartTime string    `json:"startTime"`
	EndTime   string    `json:"endTime"`
}

type ScheduleDocument struct {
	Version    string        `json:"version"`
	ExportedAt time.Time     `json:"exportedAt"`
	Shifts     []ScheduleDoc `json:"shifts"`
}

type PlanDoc struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Status    string     `json:"status"`
	Progress  int        `json:"progress"`
	StartDate *time.Time `json:"startDate,omitempty"`
	EndDate   *time.Time `json:"endDate,omitempty"`
}

type PlanDocument struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exportedAt"`
	Plans      []PlanDoc `json:"plans"`
}

// OthersDocument carries the ledger entities that live in their own archive
// file: budgets and savings goals.
type OthersDocument struct {
	Version      string           `json:"version"`
	ExportedAt   time.Time        `json:"exportedAt"`
	Budgets      []BudgetDoc      `json:"budgets"`
	SavingsGoals []SavingsGoalDoc `json:"savingsGoals"`
}

// SplitOthers moves budgets and savings goals out of a ledger document into
// their own module document, the shape archives store them in. MergeOthers is
// the inverse.
func SplitOthers(d *LedgerDocument) (*LedgerDocument, *OthersDocument) {
	core := *d
	core.Budgets = nil
	core.SavingsGoals = nil
	others := &OthersDocument{
		Version:      d.Version,
		ExportedAt:   d.ExportedAt,
		Budgets:      d.Budgets,
		SavingsGoals: d.SavingsGoals,
	}
	return &core, others
}

// MergeOthers folds a split-off others document back into a ledger document
// before it is handed to the import pipeline.
func MergeOthers(d *LedgerDocument, o *OthersDocument) {
	d.Budgets = append(d.Budgets, o.Budgets...)
	d.SavingsGoals = append(d.SavingsGoals, o.SavingsGoals...)
}

// ToDataset converts a ledger document back into the import pipeline's typed
// form. Line numbers are synthetic (position within the document).
func (d *LedgerDocument) ToDataset(userID string) importer.Dataset {
	ds := importer.Dataset{Version: d.Version}
	line := 0
	for _, a := range d.Accounts {
		line++
		acct := repository.Account{
			ID:            a.ID,
			UserID:        userID,
			Name:          a.Name,
			Type:          a.Type,
			BalanceCents:  a.BalanceCents,
			Currency:      a.Currency,
			Icon:          a.Icon,
			Color:         a.Color,
			BillingDay:    a.BillingDay,
			PaymentDueDay: a.PaymentDueDay,
		}
		ds.Accounts = append(ds.Accounts, importer.AccountRow{Line: line, Account: acct})
	}
	for _, c := range d.Categories {
		line++
		cat := repository.Category{
			ID:     c.ID,
			UserID: userID,
			Name:   c.Name,
			Type:   c.Type,
			Icon:   c.Icon,
			Color:  c.Color,
		}
		ds.Categories = append(ds.Categories, importer.CategoryRow{Line: line, Category: cat, ParentName: c.ParentName})
	}
	for _, t := range d.Transactions {
		line++
		txn := repository.Transaction{
			ID:          t.ID,
			UserID:      userID,
			AmountCents: t.AmountCents,
			Note:        t.Note,
			CreatedAt:   t.CreatedAt,
			UpdatedAt:   t.CreatedAt,
		}
		ds.Transactions = append(ds.Transactions, importer.TransactionRow{
			Line: line, Transaction: txn, AccountName: t.AccountName, CategoryName: t.CategoryName,
		})
	}
	for _, b := range d.Budgets {
		line++
		bud := repository.Budget{
			ID:                b.ID,
			UserID:            userID,
			Year:              b.Year,
			Month:             b.Month,
			BudgetAmountCents: b.BudgetAmountCents,
			AlertThreshold:    b.AlertThreshold,
		}
		ds.Budgets = append(ds.Budgets, importer.BudgetRow{Line: line, Budget: bud, CategoryName: b.CategoryName})
	}
	for _, g := range d.SavingsGoals {
		line++
		goal := repository.SavingsGoal{
			ID:                 g.ID,
			UserID:             userID,
			Name:               g.Name,
			TargetAmountCents:  g.TargetAmountCents,
			CurrentAmountCents: g.CurrentAmountCents,
			TargetDate:         g.TargetDate,
		}
		ds.SavingsGoals = append(ds.SavingsGoals, importer.SavingsGoalRow{Line: line, Goal: goal})
	}
	return ds
}
