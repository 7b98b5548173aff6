package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ccxiaoji/ledgerio/internal/database/repository"
)

// DuplicateWindow is the time window within which a same-account,
// same-amount transaction counts as a duplicate.
const DuplicateWindow = 60 * time.Second

// ResolveKind tags the outcome of conflict resolution.
type ResolveKind int

const (
	// ResolveNoConflict: no existing record collides; insert the candidate.
	ResolveNoConflict ResolveKind = iota
	// ResolveModified: insert Data (candidate adjusted, e.g. renamed or
	// carrying the existing record's id for an in-place overwrite).
	ResolveModified
	// ResolveMerge: update the store with Data (existing record merged).
	ResolveMerge
	// ResolveSkip: drop the row; Existing carries the colliding record.
	ResolveSkip
)

// ResolveResult is the tagged outcome of resolving one candidate against the
// store. The orchestrator interprets the kind to insert, update, or drop.
type ResolveResult[T any] struct {
	Kind     ResolveKind
	Data     T
	Existing *T
	Reason   string
}

// ConflictResolver decides how a candidate entity interacts with the existing
// store under a strategy. It reads the store but never writes to it.
type ConflictResolver struct {
	store Store
	now   func() time.Time
}

func NewConflictResolver(store Store) *ConflictResolver {
	return &ConflictResolver{store: store, now: time.Now}
}

// ResolveAccountConflict matches candidates against existing accounts of the
// same user by exact name.
func (r *ConflictResolver) ResolveAccountConflict(ctx context.Context, candidate repository.Account, strategy ConflictStrategy) (ResolveResult[repository.Account], error) {
	existing, err := r.store.AccountByName(ctx, candidate.UserID, candidate.Name)
	if err != nil {
		return ResolveResult[repository.Account]{}, err
	}
	if existing == nil {
		return ResolveResult[repository.Account]{Kind: ResolveNoConflict, Data: candidate}, nil
	}

	switch strategy {
	case StrategyRename:
		names, err := r.store.AccountNames(ctx, candidate.UserID)
		if err != nil {
			return ResolveResult[repository.Account]{}, err
		}
		renamed := candidate
		renamed.Name = GenerateUniqueName(candidate.Name, names)
		// fresh id: inserts upsert by id, and the candidate may carry the
		// existing row's id (e.g. a backup of this same store)
		renamed.ID = uuid.NewString()
		return ResolveResult[repository.Account]{Kind: ResolveModified, Data: renamed, Existing: existing}, nil
	case StrategyMerge:
		merged := *existing
		merged.BalanceCents += candidate.BalanceCents
		merged.UpdatedAt = r.now().UTC()
		return ResolveResult[repository.Account]{Kind: ResolveMerge, Data: merged, Existing: existing}, nil
	case StrategyOverwrite:
		replaced := candidate
		replaced.ID = existing.ID
		return ResolveResult[repository.Account]{Kind: ResolveModified, Data: replaced, Existing: existing}, nil
	default: // SKIP
		return ResolveResult[repository.Account]{
			Kind:     ResolveSkip,
			Data:     candidate,
			Existing: existing,
			Reason:   fmt.Sprintf("账户 %q 已存在，跳过", candidate.Name),
		}, nil
	}
}

// ResolveCategoryConflict matches candidates by the (name, type) pair.
// MERGE adopts the existing record unchanged: categories carry no additive
// state, so merging means mapping dependents onto the existing id.
func (r *ConflictResolver) ResolveCategoryConflict(ctx context.Context, candidate repository.Category, strategy ConflictStrategy) (ResolveResult[repository.Category], error) {
	existing, err := r.store.CategoryByNameAndType(ctx, candidate.UserID, candidate.Name, candidate.Type)
	if err != nil {
		return ResolveResult[repository.Category]{}, err
	}
	if existing == nil {
		return ResolveResult[repository.Category]{Kind: ResolveNoConflict, Data: candidate}, nil
	}

	switch strategy {
	case StrategyRename:
		names, err := r.store.CategoryNames(ctx, candidate.UserID, candidate.Type)
		if err != nil {
			return ResolveResult[repository.Category]{}, err
		}
		renamed := candidate
		renamed.Name = GenerateUniqueName(candidate.Name, names)
		renamed.ID = uuid.NewString()
		return ResolveResult[repository.Category]{Kind: ResolveModified, Data: renamed, Existing: existing}, nil
	case StrategyMerge:
		return ResolveResult[repository.Category]{Kind: ResolveMerge, Data: *existing, Existing: existing}, nil
	case StrategyOverwrite:
		replaced := candidate
		replaced.ID = existing.ID
		return ResolveResult[repository.Category]{Kind: ResolveModified, Data: replaced, Existing: existing}, nil
	default: // SKIP
		return ResolveResult[repository.Category]{
			Kind:     ResolveSkip,
			Data:     candidate,
			Existing: existing,
			Reason:   fmt.Sprintf("分类 %q (%s) 已存在，跳过", candidate.Name, candidate.Type),
		}, nil
	}
}

// ResolveBudgetConflict matches on the (year, month, category) period key.
// RENAME has no meaning for a period-keyed record and degrades to SKIP.
func (r *ConflictResolver) ResolveBudgetConflict(ctx context.Context, candidate repository.Budget, strategy ConflictStrategy) (ResolveResult[repository.Budget], error) {
	existing, err := r.store.BudgetForPeriod(ctx, candidate.UserID, candidate.Year, candidate.Month, candidate.CategoryID)
	if err != nil {
		return ResolveResult[repository.Budget]{}, err
	}
	if existing == nil {
		return ResolveResult[repository.Budget]{Kind: ResolveNoConflict, Data: candidate}, nil
	}

	switch strategy {
	case StrategyMerge:
		merged := *existing
		merged.BudgetAmountCents += candidate.BudgetAmountCents
		merged.UpdatedAt = r.now().UTC()
		return ResolveResult[repository.Budget]{Kind: ResolveMerge, Data: merged, Existing: existing}, nil
	case StrategyOverwrite:
		replaced := candidate
		replaced.ID = existing.ID
		return ResolveResult[repository.Budget]{Kind: ResolveModified, Data: replaced, Existing: existing}, nil
	default: // SKIP and RENAME
		return ResolveResult[repository.Budget]{
			Kind:     ResolveSkip,
			Data:     candidate,
			Existing: existing,
			Reason:   fmt.Sprintf("%d年%d月的预算已存在，跳过", candidate.Year, candidate.Month),
		}, nil
	}
}

// ResolveSavingsGoalConflict matches candidates against existing goals by
// name. MERGE sums saved amounts and keeps the larger target.
func (r *ConflictResolver) ResolveSavingsGoalConflict(ctx context.Context, candidate repository.SavingsGoal, strategy ConflictStrategy) (ResolveResult[repository.SavingsGoal], error) {
	goals, err := r.store.SavingsGoalsByUser(ctx, candidate.UserID)
	if err != nil {
		return ResolveResult[repository.SavingsGoal]{}, err
	}
	var existing *repository.SavingsGoal
	names := make([]string, 0, len(goals))
	for i := range goals {
		names = append(names, goals[i].Name)
		if goals[i].Name == candidate.Name {
			existing = &goals[i]
		}
	}
	if existing == nil {
		return ResolveResult[repository.SavingsGoal]{Kind: ResolveNoConflict, Data: candidate}, nil
	}

	switch strategy {
	case StrategyRename:
		renamed := candidate
		renamed.Name = GenerateUniqueName(candidate.Name, names)
		renamed.ID = uuid.NewString()
		return ResolveResult[repository.SavingsGoal]{Kind: ResolveModified, Data: renamed, Existing: existing}, nil
	case StrategyMerge:
		merged := *existing
		merged.CurrentAmountCents += candidate.CurrentAmountCents
		if candidate.TargetAmountCents > merged.TargetAmountCents {
			merged.TargetAmountCents = candidate.TargetAmountCents
		}
		merged.UpdatedAt = r.now().UTC()
		return ResolveResult[repository.SavingsGoal]{Kind: ResolveMerge, Data: merged, Existing: existing}, nil
	case StrategyOverwrite:
		replaced := candidate
		replaced.ID = existing.ID
		return ResolveResult[repository.SavingsGoal]{Kind: ResolveModified, Data: replaced, Existing: existing}, nil
	default: // SKIP
		return ResolveResult[repository.SavingsGoal]{
			Kind:     ResolveSkip,
			Data:     candidate,
			Existing: existing,
			Reason:   fmt.Sprintf("储蓄目标 %q 已存在，跳过", candidate.Name),
		}, nil
	}
}

// IsTransactionDuplicate reports whether the store already holds a
// transaction with the same account and amount within DuplicateWindow of the
// candidate's time. Duplicates are skipped regardless of strategy.
func (r *ConflictResolver) IsTransactionDuplicate(ctx context.Context, t repository.Transaction) (bool, error) {
	return r.store.HasTransactionNear(ctx, t.AccountID, t.AmountCents, t.CreatedAt, DuplicateWindow)
}

// GenerateUniqueName appends " (导入)" then " (导入N)" with increasing N until
// the name is free. Only membership in existing matters, not its order.
func GenerateUniqueName(base string, existing []string) string {
	taken := make(map[string]struct{}, len(existing))
	for _, n := range existing {
		taken[n] = struct{}{}
	}
	name := base + " (导入)"
	for counter := 2; ; counter++ {
		if _, ok := taken[name]; !ok {
			return name
		}
		name = fmt.Sprintf("%s (导入%d)", base, counter)
	}
}
