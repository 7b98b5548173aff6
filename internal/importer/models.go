package importer

import (
	"fmt"
	"strings"
	"time"
)

// ConflictStrategy is the user-chosen policy for handling a name/identity
// collision during import.
type ConflictStrategy string

const (
	StrategySkip      ConflictStrategy = "SKIP"
	StrategyRename    ConflictStrategy = "RENAME"
	StrategyMerge     ConflictStrategy = "MERGE"
	StrategyOverwrite ConflictStrategy = "OVERWRITE"
)

// ParseStrategy parses a strategy name case-insensitively.
func ParseStrategy(s string) (ConflictStrategy, error) {
	switch ConflictStrategy(strings.ToUpper(strings.TrimSpace(s))) {
	case StrategySkip:
		return StrategySkip, nil
	case StrategyRename:
		return StrategyRename, nil
	case StrategyMerge:
		return StrategyMerge, nil
	case StrategyOverwrite:
		return StrategyOverwrite, nil
	}
	return "", fmt.Errorf("unknown conflict strategy %q", s)
}

// EntityType tags one kind of importable row.
type EntityType string

const (
	EntityAccount     EntityType = "ACCOUNT"
	EntityCategory    EntityType = "CATEGORY"
	EntityTransaction EntityType = "TRANSACTION"
	EntityBudget      EntityType = "BUDGET"
	EntitySavings     EntityType = "SAVINGS"
)

// Config is the per-run import policy.
type Config struct {
	Strategy            ConflictStrategy
	IncludeAccounts     bool
	IncludeCategories   bool
	IncludeTransactions bool
	IncludeBudgets      bool
	IncludeSavings      bool
	BatchSize           int
	AllowPartialImport  bool
	SkipInvalidRows     bool
}

// DefaultConfig includes every entity type with SKIP semantics.
func DefaultConfig() Config {
	return Config{
		Strategy:            StrategySkip,
		IncludeAccounts:     true,
		IncludeCategories:   true,
		IncludeTransactions: true,
		IncludeBudgets:      true,
		IncludeSavings:      true,
		BatchSize:           100,
		AllowPartialImport:  true,
		SkipInvalidRows:     true,
	}
}

// ErrorKind classifies an import error.
type ErrorKind string

const (
	KindFormat     ErrorKind = "FORMAT"
	KindValidation ErrorKind = "VALIDATION"
	KindDependency ErrorKind = "DEPENDENCY"
	KindDatabase   ErrorKind = "DATABASE"
)

// ImportError is one collected row-level failure. Errors are accumulated,
// never raised, so one bad row cannot abort an otherwise-good batch.
type ImportError struct {
	Kind    ErrorKind
	Line    int
	Field   string
	Message string
	Cause   error // retained for logging, never shown to the user
}

func (e ImportError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("line %d [%s] %s: %s", e.Line, e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("line %d [%s]: %s", e.Line, e.Kind, e.Message)
}

// Summary holds per-module imported counts.
type Summary struct {
	AccountsImported     int
	CategoriesImported   int
	TransactionsImported int
	BudgetsImported      int
	SavingsImported      int
}

// Result is the outcome of one import run.
type Result struct {
	Success      bool
	Cancelled    bool
	TotalRows    int
	SuccessCount int
	FailedCount  int
	SkippedCount int
	Errors       []ImportError
	Summary      Summary
	Duration     time.Duration
}

// DateRange is a closed interval over transaction times.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Preview is the shallow, store-untouched description of an import file.
type Preview struct {
	FileName   string
	FileSize   int64
	Format     string
	Version    string
	TotalRows  int
	TypeCounts map[EntityType]int
	DateRange  *DateRange
	HasErrors  bool
	Errors     []ImportError
	Warnings   []string
}

// State is the import run state machine. CANCELLED and ERROR are reachable
// from every state except RESULT.
type State string

const (
	StateSelectFile     State = "SELECT_FILE"
	StateValidateFormat State = "VALIDATE_FORMAT"
	StatePreview        State = "PREVIEW"
	StateImporting      State = "IMPORTING"
	StateResult         State = "RESULT"
	StateCancelled      State = "CANCELLED"
	StateError          State = "ERROR"
)
