package repository

import "time"

// Account types.
const (
	AccountTypeCash       = "CASH"
	AccountTypeBank       = "BANK_CARD"
	AccountTypeCreditCard = "CREDIT_CARD"
	AccountTypeAlipay     = "ALIPAY"
	AccountTypeWechat     = "WECHAT"
	AccountTypeOther      = "OTHER"
)

// Category types.
const (
	CategoryTypeIncome  = "INCOME"
	CategoryTypeExpense = "EXPENSE"
)

// Account represents an account row.
type Account struct {
	ID               string
	UserID           string
	Name             string
	Type             string
	BalanceCents     int64
	Currency         string
	Icon             *string
	Color            *string
	IsDefault        bool
	CreditLimitCents *int64
	BillingDay       *int
	PaymentDueDay    *int
	IsDeleted        bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Category represents a category row. Categories form a two-level tree:
// parents have a nil ParentID, children point at their parent.
type Category struct {
	ID           string
	UserID       string
	Name         string
	Type         string
	ParentID     *string
	Icon         *string
	Color        *string
	DisplayOrder int
	IsDeleted    bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Transaction represents a transaction row. CreatedAt is the transaction
// time, not the row insertion time.
type Transaction struct {
	ID          string
	UserID      string
	AccountID   string
	CategoryID  string
	AmountCents int64
	Note        *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Budget represents a monthly budget row, optionally scoped to a category.
type Budget struct {
	ID                string
	UserID            string
	Year              int
	Month             int
	CategoryID        *string
	BudgetAmountCents int64
	SpentAmountCents  int64
	AlertThreshold    float64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// SavingsGoal represents a savings goal row.
type SavingsGoal struct {
	ID                 string
	UserID             string
	Name               string
	TargetAmountCents  int64
	CurrentAmountCents int64
	TargetDate         *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TodoTask represents a to-do row (export only).
type TodoTask struct {
	ID        string
	UserID    string
	Title     string
	Done      bool
	Priority  int
	DueAt     *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Habit represents a habit row (export only).
type Habit struct {
	ID        string
	UserID    string
	Title     string
	Period    string
	Target    int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HabitRecord represents one habit check-in.
type HabitRecord struct {
	ID         string
	HabitID    string
	RecordDate time.Time
	Count      int
}

// ScheduleShift represents a schedule row (export only).
type ScheduleShift struct {
	ID        string
	UserID    string
	Title     string
	ShiftDate time.Time
	StartTime string
	EndTime   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Plan represents a plan row (export only).
type Plan struct {
	ID        string
	UserID    string
	Title     string
	Status    string
	Progress  int
	StartDate *time.Time
	EndDate   *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}
