package importer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/ccxiaoji/ledgerio/internal/database/repository"
	"github.com/ccxiaoji/ledgerio/internal/progress"
)

// errStop unwinds a run that must not continue (invalid row with
// SkipInvalidRows off, batch failure with AllowPartialImport off, or
// cancellation). The run's Result already records why.
var errStop = errors.New("import stopped")

const commitRetries = 3

// Orchestrator drives an import run end to end: parse, validate, resolve
// conflicts, batch-commit in dependency order. Partial progress survives
// cancellation; committed batches are never rolled back.
type Orchestrator struct {
	store     Store
	validator *DataValidator
	resolver  *ConflictResolver
	tracker   *progress.Tracker
	log       zerolog.Logger
	userID    string
	state     State
}

func NewOrchestrator(store Store, userID string, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		store:     store,
		validator: NewDataValidator(),
		resolver:  NewConflictResolver(store),
		log:       log.With().Str("component", "importer").Logger(),
		userID:    userID,
		state:     StateSelectFile,
	}
}

// WithTracker attaches a progress tracker for the next run.
func (o *Orchestrator) WithTracker(t *progress.Tracker) *Orchestrator {
	o.tracker = t
	return o
}

func (o *Orchestrator) State() State { return o.state }

// ValidateFile performs the cheap pre-flight checks: the file exists, is
// regular, and looks like CSV.
func (o *Orchestrator) ValidateFile(path string) error {
	o.state = StateValidateFormat
	info, err := os.Stat(path)
	if err != nil {
		o.state = StateError
		return fmt.Errorf("无法读取文件: %w", err)
	}
	if info.IsDir() {
		o.state = StateError
		return fmt.Errorf("不是文件: %s", path)
	}
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		o.state = StateError
		return fmt.Errorf("无法读取文件: %w", err)
	}
	defer f.Close()
	buf := make([]byte, 4096)
	n, _ := f.Read(buf)
	if !strings.Contains(string(buf[:n]), ",") {
		o.state = StateError
		return fmt.Errorf("无法识别的文件格式: %s", filepath.Base(path))
	}
	return nil
}

// Preview parses the file and describes what an import would touch, without
// writing anything. Near-matches between incoming and existing account names
// are surfaced as warnings so the user can pick a strategy deliberately.
func (o *Orchestrator) Preview(ctx context.Context, path string) (*Preview, error) {
	if err := o.ValidateFile(path); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pf, err := ParseBackupCSV(f, o.userID)
	if err != nil {
		o.state = StateError
		return nil, err
	}

	p := &Preview{
		FileName:   filepath.Base(path),
		FileSize:   info.Size(),
		Format:     "ledger-csv",
		Version:    pf.Version,
		TotalRows:  pf.Dataset.TotalRows(),
		TypeCounts: pf.Dataset.TypeCounts(),
		DateRange:  pf.Dataset.DateRange(),
		HasErrors:  len(pf.Errors) > 0,
		Errors:     pf.Errors,
	}
	if pf.SkippedUnsupported > 0 {
		p.Warnings = append(p.Warnings, fmt.Sprintf("%d 条记录类型不受支持，将被跳过", pf.SkippedUnsupported))
	}

	existing, err := o.store.AccountNames(ctx, o.userID)
	if err != nil {
		return nil, err
	}
	for _, row := range pf.Dataset.Accounts {
		for _, have := range existing {
			if row.Account.Name == have {
				continue
			}
			if levenshtein.ComputeDistance(row.Account.Name, have) <= 2 {
				p.Warnings = append(p.Warnings,
					fmt.Sprintf("账户 %q 与已有账户 %q 名称相近", row.Account.Name, have))
			}
		}
	}

	o.state = StatePreview
	return p, nil
}

// ImportFile parses and imports one file.
func (o *Orchestrator) ImportFile(ctx context.Context, path string, cfg Config) (*Result, error) {
	if err := o.ValidateFile(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		o.state = StateError
		return nil, err
	}
	defer f.Close()

	pf, err := ParseBackupCSV(f, o.userID)
	if err != nil {
		o.state = StateError
		return nil, err
	}

	res, err := o.Run(ctx, &pf.Dataset, cfg)
	if err != nil {
		return nil, err
	}
	if len(pf.Errors) > 0 {
		res.Errors = append(pf.Errors, res.Errors...)
		res.FailedCount += len(pf.Errors)
		res.TotalRows += len(pf.Errors)
		res.Success = res.FailedCount == 0 || (cfg.AllowPartialImport && res.SuccessCount > 0)
	}
	res.SkippedCount += pf.SkippedUnsupported
	return res, nil
}

// run carries the mutable state of one import.
type run struct {
	ctx       context.Context
	cfg       Config
	res       *Result
	total     int
	processed int

	// name-to-id maps built as rows land, so later rows can reference
	// entities created earlier in the same file.
	accountIDs  map[string]string
	categoryIDs map[string]string // keyed by name|type
}

func catKey(name, typ string) string { return name + "|" + typ }

// Run imports an already-parsed dataset. Entity types are processed in
// dependency order so name references resolve against both the store and the
// rows committed earlier in the run. The returned error is reserved for
// infrastructure failures; per-row problems land in the Result.
func (o *Orchestrator) Run(ctx context.Context, ds *Dataset, cfg Config) (*Result, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	start := time.Now()
	o.state = StateImporting

	rn := &run{
		ctx:         ctx,
		cfg:         cfg,
		res:         &Result{},
		accountIDs:  map[string]string{},
		categoryIDs: map[string]string{},
	}
	if cfg.IncludeAccounts {
		rn.total += len(ds.Accounts)
	}
	if cfg.IncludeCategories {
		rn.total += len(ds.Categories)
	}
	if cfg.IncludeTransactions {
		rn.total += len(ds.Transactions)
	}
	if cfg.IncludeBudgets {
		rn.total += len(ds.Budgets)
	}
	if cfg.IncludeSavings {
		rn.total += len(ds.SavingsGoals)
	}
	rn.res.TotalRows = rn.total

	o.log.Info().
		Int("rows", rn.total).
		Str("strategy", string(cfg.Strategy)).
		Int("batch_size", cfg.BatchSize).
		Msg("import started")

	err := o.runPhases(rn, ds)
	if err != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		rn.res.Cancelled = true
		err = errStop
	}
	rn.res.Duration = time.Since(start)
	rn.res.Success = !rn.res.Cancelled &&
		(rn.res.FailedCount == 0 || (cfg.AllowPartialImport && rn.res.SuccessCount > 0))

	switch {
	case rn.res.Cancelled:
		o.state = StateCancelled
	case err != nil && !errors.Is(err, errStop):
		o.state = StateError
	default:
		o.state = StateResult
	}
	if o.tracker != nil {
		o.tracker.Finish()
	}
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}

	o.log.Info().
		Bool("success", rn.res.Success).
		Bool("cancelled", rn.res.Cancelled).
		Int("imported", rn.res.SuccessCount).
		Int("failed", rn.res.FailedCount).
		Int("skipped", rn.res.SkippedCount).
		Dur("duration", rn.res.Duration).
		Msg("import finished")
	return rn.res, nil
}

func (o *Orchestrator) runPhases(rn *run, ds *Dataset) error {
	if rn.cfg.IncludeAccounts {
		if err := o.importAccounts(rn, ds.Accounts); err != nil {
			return err
		}
	}
	if rn.cfg.IncludeCategories {
		if err := o.importCategories(rn, ds.Categories); err != nil {
			return err
		}
	}
	if rn.cfg.IncludeTransactions {
		if err := o.importTransactions(rn, ds.Transactions); err != nil {
			return err
		}
	}
	if rn.cfg.IncludeBudgets {
		if err := o.importBudgets(rn, ds.Budgets); err != nil {
			return err
		}
	}
	if rn.cfg.IncludeSavings {
		if err := o.importSavingsGoals(rn, ds.SavingsGoals); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) importAccounts(rn *run, rows []AccountRow) error {
	var pending []repository.Account
	var origNames []string
	var lines []int

	flush := func() error {
		err := flushBatch(o, rn, pending, lines, o.store.InsertAccounts, func(batch []repository.Account) {
			rn.res.Summary.AccountsImported += len(batch)
			for i, a := range batch {
				rn.accountIDs[origNames[i]] = a.ID
			}
		})
		pending, origNames, lines = pending[:0], origNames[:0], lines[:0]
		return err
	}

	for _, row := range rows {
		if o.cancelled(rn) {
			return errStop
		}
		if vr := o.validator.ValidateAccount(row.Account); !vr.OK() {
			if err := o.rowInvalid(rn, row.Line, vr); err != nil {
				return err
			}
			continue
		}
		resolved, err := o.resolver.ResolveAccountConflict(rn.ctx, row.Account, rn.cfg.Strategy)
		if err != nil {
			return err
		}
		switch resolved.Kind {
		case ResolveNoConflict, ResolveModified:
			pending = append(pending, resolved.Data)
			origNames = append(origNames, row.Account.Name)
			lines = append(lines, row.Line)
			if len(pending) >= rn.cfg.BatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		case ResolveMerge:
			if err := o.applyMerge(rn, row.Line, func() error {
				return o.store.UpdateAccount(rn.ctx, resolved.Data)
			}); err != nil {
				return err
			}
			rn.res.Summary.AccountsImported++
			rn.accountIDs[row.Account.Name] = resolved.Data.ID
		case ResolveSkip:
			o.rowSkipped(rn, resolved.Reason)
			rn.accountIDs[row.Account.Name] = resolved.Existing.ID
		}
	}
	return flush()
}

func (o *Orchestrator) importCategories(rn *run, rows []CategoryRow) error {
	// Parents first so children can resolve ParentName within the same file.
	ordered := make([]CategoryRow, 0, len(rows))
	for _, r := range rows {
		if r.ParentName == "" {
			ordered = append(ordered, r)
		}
	}
	parents := len(ordered)
	for _, r := range rows {
		if r.ParentName != "" {
			ordered = append(ordered, r)
		}
	}

	var pending []repository.Category
	var origNames []string
	var lines []int

	flush := func() error {
		err := flushBatch(o, rn, pending, lines, o.store.InsertCategories, func(batch []repository.Category) {
			rn.res.Summary.CategoriesImported += len(batch)
			for i, c := range batch {
				rn.categoryIDs[catKey(origNames[i], c.Type)] = c.ID
			}
		})
		pending, origNames, lines = pending[:0], origNames[:0], lines[:0]
		return err
	}

	for i, row := range ordered {
		if o.cancelled(rn) {
			return errStop
		}
		if i == parents {
			// children start here; their parents must already be committed
			if err := flush(); err != nil {
				return err
			}
		}
		if vr := o.validator.ValidateCategory(row.Category); !vr.OK() {
			if err := o.rowInvalid(rn, row.Line, vr); err != nil {
				return err
			}
			continue
		}
		if row.ParentName != "" {
			parentID, err := o.lookupCategory(rn, row.ParentName, row.Category.Type)
			if err != nil {
				return err
			}
			if parentID == "" {
				if err := o.rowDependencyError(rn, row.Line,
					fmt.Sprintf("父分类不存在: %s", row.ParentName)); err != nil {
					return err
				}
				continue
			}
			row.Category.ParentID = &parentID
		}
		resolved, err := o.resolver.ResolveCategoryConflict(rn.ctx, row.Category, rn.cfg.Strategy)
		if err != nil {
			return err
		}
		switch resolved.Kind {
		case ResolveNoConflict, ResolveModified:
			pending = append(pending, resolved.Data)
			origNames = append(origNames, row.Category.Name)
			lines = append(lines, row.Line)
			if len(pending) >= rn.cfg.BatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		case ResolveMerge:
			// merging a category is adopting the existing record: nothing to
			// write, dependents just map onto its id
			o.rowSucceeded(rn)
			rn.res.Summary.CategoriesImported++
			rn.categoryIDs[catKey(row.Category.Name, row.Category.Type)] = resolved.Existing.ID
		case ResolveSkip:
			o.rowSkipped(rn, resolved.Reason)
			rn.categoryIDs[catKey(row.Category.Name, row.Category.Type)] = resolved.Existing.ID
		}
	}
	return flush()
}

func (o *Orchestrator) importTransactions(rn *run, rows []TransactionRow) error {
	var pending []repository.Transaction
	var lines []int

	flush := func() error {
		err := flushBatch(o, rn, pending, lines, o.store.InsertTransactions, func(batch []repository.Transaction) {
			rn.res.Summary.TransactionsImported += len(batch)
		})
		pending, lines = pending[:0], lines[:0]
		return err
	}

	for _, row := range rows {
		if o.cancelled(rn) {
			return errStop
		}
		if vr := o.validator.ValidateTransaction(row.Transaction); !vr.OK() {
			if err := o.rowInvalid(rn, row.Line, vr); err != nil {
				return err
			}
			continue
		}
		accountID, err := o.lookupAccount(rn, row.AccountName)
		if err != nil {
			return err
		}
		if accountID == "" {
			if err := o.rowDependencyError(rn, row.Line,
				fmt.Sprintf("账户不存在: %s", row.AccountName)); err != nil {
				return err
			}
			continue
		}
		categoryID, err := o.lookupCategoryAnyType(rn, row.CategoryName)
		if err != nil {
			return err
		}
		if categoryID == "" {
			if err := o.rowDependencyError(rn, row.Line,
				fmt.Sprintf("分类不存在: %s", row.CategoryName)); err != nil {
				return err
			}
			continue
		}
		t := row.Transaction
		t.AccountID = accountID
		t.CategoryID = categoryID

		// same account, same amount, within the window: always a duplicate,
		// whatever the strategy
		dup, err := o.resolver.IsTransactionDuplicate(rn.ctx, t)
		if err != nil {
			return err
		}
		if dup {
			o.rowSkipped(rn, fmt.Sprintf("第%d行: 疑似重复交易，跳过", row.Line))
			continue
		}

		pending = append(pending, t)
		lines = append(lines, row.Line)
		if len(pending) >= rn.cfg.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

func (o *Orchestrator) importBudgets(rn *run, rows []BudgetRow) error {
	var pending []repository.Budget
	var lines []int

	flush := func() error {
		err := flushBatch(o, rn, pending, lines, o.store.InsertBudgets, func(batch []repository.Budget) {
			rn.res.Summary.BudgetsImported += len(batch)
		})
		pending, lines = pending[:0], lines[:0]
		return err
	}

	for _, row := range rows {
		if o.cancelled(rn) {
			return errStop
		}
		if vr := o.validator.ValidateBudget(row.Budget); !vr.OK() {
			if err := o.rowInvalid(rn, row.Line, vr); err != nil {
				return err
			}
			continue
		}
		if row.CategoryName != "" {
			categoryID, err := o.lookupCategoryAnyType(rn, row.CategoryName)
			if err != nil {
				return err
			}
			if categoryID == "" {
				if err := o.rowDependencyError(rn, row.Line,
					fmt.Sprintf("分类不存在: %s", row.CategoryName)); err != nil {
					return err
				}
				continue
			}
			row.Budget.CategoryID = &categoryID
		}
		resolved, err := o.resolver.ResolveBudgetConflict(rn.ctx, row.Budget, rn.cfg.Strategy)
		if err != nil {
			return err
		}
		switch resolved.Kind {
		case ResolveNoConflict, ResolveModified:
			pending = append(pending, resolved.Data)
			lines = append(lines, row.Line)
			if len(pending) >= rn.cfg.BatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		case ResolveMerge:
			if err := o.applyMerge(rn, row.Line, func() error {
				return o.store.UpdateBudget(rn.ctx, resolved.Data)
			}); err != nil {
				return err
			}
			rn.res.Summary.BudgetsImported++
		case ResolveSkip:
			o.rowSkipped(rn, resolved.Reason)
		}
	}
	return flush()
}

func (o *Orchestrator) importSavingsGoals(rn *run, rows []SavingsGoalRow) error {
	var pending []repository.SavingsGoal
	var lines []int

	flush := func() error {
		err := flushBatch(o, rn, pending, lines, o.store.InsertSavingsGoals, func(batch []repository.SavingsGoal) {
			rn.res.Summary.SavingsImported += len(batch)
		})
		pending, lines = pending[:0], lines[:0]
		return err
	}

	for _, row := range rows {
		if o.cancelled(rn) {
			return errStop
		}
		if vr := o.validator.ValidateSavingsGoal(row.Goal); !vr.OK() {
			if err := o.rowInvalid(rn, row.Line, vr); err != nil {
				return err
			}
			continue
		}
		resolved, err := o.resolver.ResolveSavingsGoalConflict(rn.ctx, row.Goal, rn.cfg.Strategy)
		if err != nil {
			return err
		}
		switch resolved.Kind {
		case ResolveNoConflict, ResolveModified:
			pending = append(pending, resolved.Data)
			lines = append(lines, row.Line)
			if len(pending) >= rn.cfg.BatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		case ResolveMerge:
			if err := o.applyMerge(rn, row.Line, func() error {
				return o.store.UpdateSavingsGoal(rn.ctx, resolved.Data)
			}); err != nil {
				return err
			}
			rn.res.Summary.SavingsImported++
		case ResolveSkip:
			o.rowSkipped(rn, resolved.Reason)
		}
	}
	return flush()
}

// lookupAccount resolves an account name against rows committed in this run,
// falling back to the store.
func (o *Orchestrator) lookupAccount(rn *run, name string) (string, error) {
	if id, ok := rn.accountIDs[name]; ok {
		return id, nil
	}
	a, err := o.store.AccountByName(rn.ctx, o.userID, name)
	if err != nil {
		return "", err
	}
	if a == nil {
		return "", nil
	}
	rn.accountIDs[name] = a.ID
	return a.ID, nil
}

func (o *Orchestrator) lookupCategory(rn *run, name, typ string) (string, error) {
	if id, ok := rn.categoryIDs[catKey(name, typ)]; ok {
		return id, nil
	}
	c, err := o.store.CategoryByNameAndType(rn.ctx, o.userID, name, typ)
	if err != nil {
		return "", err
	}
	if c == nil {
		return "", nil
	}
	rn.categoryIDs[catKey(name, typ)] = c.ID
	return c.ID, nil
}

// lookupCategoryAnyType resolves a bare category name: the file format does
// not carry the type on transaction rows, so both types are tried.
func (o *Orchestrator) lookupCategoryAnyType(rn *run, name string) (string, error) {
	if name == "" {
		return "", nil
	}
	for _, typ := range []string{repository.CategoryTypeExpense, repository.CategoryTypeIncome} {
		id, err := o.lookupCategory(rn, name, typ)
		if err != nil {
			return "", err
		}
		if id != "" {
			return id, nil
		}
	}
	return "", nil
}

// cancelled checks the run context and flips the result when it fired.
func (o *Orchestrator) cancelled(rn *run) bool {
	if rn.ctx.Err() != nil {
		rn.res.Cancelled = true
		return true
	}
	return false
}

func (o *Orchestrator) rowSucceeded(rn *run) {
	rn.res.SuccessCount++
	rn.processed++
	o.reportProgress(rn)
}

func (o *Orchestrator) rowSkipped(rn *run, reason string) {
	rn.res.SkippedCount++
	rn.processed++
	o.reportProgress(rn)
	o.log.Debug().Str("reason", reason).Msg("row skipped")
}

func (o *Orchestrator) rowInvalid(rn *run, line int, vr ValidationResult) error {
	rn.res.FailedCount++
	rn.processed++
	rn.res.Errors = append(rn.res.Errors, ImportError{
		Kind:    KindValidation,
		Line:    line,
		Message: strings.Join(vr.Errors, "; "),
	})
	o.reportProgress(rn)
	if !rn.cfg.SkipInvalidRows {
		return errStop
	}
	return nil
}

func (o *Orchestrator) rowDependencyError(rn *run, line int, msg string) error {
	rn.res.FailedCount++
	rn.processed++
	rn.res.Errors = append(rn.res.Errors, ImportError{Kind: KindDependency, Line: line, Message: msg})
	o.reportProgress(rn)
	if !rn.cfg.SkipInvalidRows {
		return errStop
	}
	return nil
}

// applyMerge writes one merged record outside the batch path.
func (o *Orchestrator) applyMerge(rn *run, line int, update func() error) error {
	if err := o.commitWithRetry(rn.ctx, update); err != nil {
		rn.res.FailedCount++
		rn.processed++
		rn.res.Errors = append(rn.res.Errors, ImportError{
			Kind: KindDatabase, Line: line, Message: "数据库写入失败", Cause: err,
		})
		o.reportProgress(rn)
		if !rn.cfg.AllowPartialImport {
			return errStop
		}
		return nil
	}
	o.rowSucceeded(rn)
	return nil
}

// flushBatch commits pending rows atomically, with retry on lock contention.
// A failed batch fails every row in it; cancellation is checked here so runs
// stop on batch boundaries with committed work intact.
func flushBatch[T any](o *Orchestrator, rn *run, pending []T, lines []int, insert func(context.Context, []T) error, onSuccess func([]T)) error {
	if len(pending) == 0 {
		return nil
	}
	if rn.ctx.Err() != nil {
		rn.res.Cancelled = true
		o.log.Warn().Int("uncommitted", len(pending)).Msg("import cancelled")
		return errStop
	}
	if err := o.commitWithRetry(rn.ctx, func() error {
		return insert(rn.ctx, pending)
	}); err != nil {
		for _, line := range lines {
			rn.res.Errors = append(rn.res.Errors, ImportError{
				Kind: KindDatabase, Line: line, Message: "数据库写入失败", Cause: err,
			})
		}
		rn.res.FailedCount += len(pending)
		rn.processed += len(pending)
		o.reportProgress(rn)
		o.log.Error().Err(err).Int("rows", len(pending)).Msg("batch commit failed")
		if !rn.cfg.AllowPartialImport {
			return errStop
		}
		return nil
	}
	rn.res.SuccessCount += len(pending)
	rn.processed += len(pending)
	if onSuccess != nil {
		onSuccess(pending)
	}
	o.reportProgress(rn)
	return nil
}

// commitWithRetry retries a write on sqlite lock contention with exponential
// backoff. Any other failure is permanent.
func (o *Orchestrator) commitWithRetry(ctx context.Context, fn func() error) error {
	bo := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), commitRetries), ctx)
	return backoff.Retry(func() error {
		err := fn()
		if err == nil {
			return nil
		}
		if isBusy(err) {
			o.log.Debug().Err(err).Msg("database busy, retrying")
			return err
		}
		return backoff.Permanent(err)
	}, bo)
}

func isBusy(err error) bool {
	s := err.Error()
	return strings.Contains(s, "database is locked") || strings.Contains(s, "SQLITE_BUSY")
}

func (o *Orchestrator) reportProgress(rn *run) {
	if o.tracker == nil || rn.total == 0 {
		return
	}
	o.tracker.Set(rn.processed * 100 / rn.total)
}
