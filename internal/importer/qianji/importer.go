package qianji

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ccxiaoji/ledgerio/internal/database/repository"
	"github.com/ccxiaoji/ledgerio/internal/importer"
)

// noteMarker tags imported transactions with their Qianji id so re-importing
// the same export file is idempotent.
const noteMarker = "[钱迹ID: %s]"

// Importer turns Qianji bill records into ledger transactions, creating the
// accounts and categories they reference on demand.
type Importer struct {
	store  *repository.Store
	log    zerolog.Logger
	userID string

	accounts   map[string]repository.Account
	categories map[string]repository.Category
}

func NewImporter(store *repository.Store, userID string, log zerolog.Logger) *Importer {
	return &Importer{
		store:      store,
		log:        log.With().Str("component", "qianji").Logger(),
		userID:     userID,
		accounts:   map[string]repository.Account{},
		categories: map[string]repository.Category{},
	}
}

// ImportFile imports one Qianji CSV export.
func (imp *Importer) ImportFile(ctx context.Context, path string) (*importer.Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("无法读取文件: %w", err)
	}
	defer f.Close()

	records, parseErrs, err := Parse(f)
	if err != nil {
		return nil, err
	}
	return imp.Import(ctx, records, parseErrs)
}

// Import lands parsed records in the store. Transfers and repayments move
// money between the user's own accounts and are skipped; refunds post back to
// the expense category they reverse, with a positive amount. Records already
// imported (matched by Qianji id) are skipped.
func (imp *Importer) Import(ctx context.Context, records []Record, parseErrs []importer.ImportError) (*importer.Result, error) {
	start := time.Now()
	res := &importer.Result{
		TotalRows:   len(records) + len(parseErrs),
		Errors:      parseErrs,
		FailedCount: len(parseErrs),
	}

	imp.log.Info().Int("records", len(records)).Msg("qianji import started")

	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			res.Cancelled = true
			break
		}

		switch rec.Type {
		case "支出", "收入", "退款":
		default:
			res.SkippedCount++
			continue
		}

		if rec.QianjiID != "" {
			pattern := "%" + fmt.Sprintf(noteMarker, rec.QianjiID) + "%"
			dup, err := imp.store.Transactions.ExistsByNotePattern(ctx, imp.userID, pattern)
			if err != nil {
				return nil, err
			}
			if dup {
				res.SkippedCount++
				continue
			}
		}

		t, err := imp.buildTransaction(ctx, rec)
		if err != nil {
			res.FailedCount++
			res.Errors = append(res.Errors, importer.ImportError{
				Kind: importer.KindDatabase, Line: rec.Line,
				Message: "数据库写入失败", Cause: err,
			})
			continue
		}
		if err := imp.store.Transactions.Insert(ctx, t); err != nil {
			res.FailedCount++
			res.Errors = append(res.Errors, importer.ImportError{
				Kind: importer.KindDatabase, Line: rec.Line,
				Message: "数据库写入失败", Cause: err,
			})
			continue
		}
		res.SuccessCount++
		res.Summary.TransactionsImported++
	}

	res.Duration = time.Since(start)
	res.Success = !res.Cancelled && (res.FailedCount == 0 || res.SuccessCount > 0)
	imp.log.Info().
		Int("imported", res.SuccessCount).
		Int("skipped", res.SkippedCount).
		Int("failed", res.FailedCount).
		Msg("qianji import finished")
	return res, nil
}

func (imp *Importer) buildTransaction(ctx context.Context, rec Record) (repository.Transaction, error) {
	income := rec.Type == "收入"
	refund := rec.Type == "退款"

	account, err := imp.ensureAccount(ctx, rec.Account)
	if err != nil {
		return repository.Transaction{}, err
	}
	// refunds resolve through the expense taxonomy: a 退款 offsets the
	// original purchase's category, it is not income
	category, err := imp.ensureCategory(ctx, rec, income)
	if err != nil {
		return repository.Transaction{}, err
	}

	cents := rec.Amount.Shift(2).Round(0).IntPart()
	if !income && !refund {
		cents = -cents
	}

	id := uuid.NewString()
	if rec.QianjiID != "" {
		id = deterministicID("transaction", imp.userID, rec.QianjiID)
	}

	t := repository.Transaction{
		ID:          id,
		UserID:      imp.userID,
		AccountID:   account.ID,
		CategoryID:  category.ID,
		AmountCents: cents,
		CreatedAt:   rec.Time,
		UpdatedAt:   rec.Time,
	}
	if note := imp.buildNote(rec); note != "" {
		t.Note = &note
	}
	return t, nil
}

func (imp *Importer) buildNote(rec Record) string {
	var parts []string
	if rec.Note != "" {
		parts = append(parts, rec.Note)
	}
	if rec.Tags != "" {
		parts = append(parts, "#"+rec.Tags)
	}
	if rec.QianjiID != "" {
		parts = append(parts, fmt.Sprintf(noteMarker, rec.QianjiID))
	}
	return strings.Join(parts, " ")
}

// ensureAccount resolves a Qianji account name to a ledger account, creating
// one when missing. A blank name or a ">"-prefixed pseudo account (Qianji's
// notation for off-book counterparties) falls back to a cash account.
func (imp *Importer) ensureAccount(ctx context.Context, name string) (repository.Account, error) {
	if name == "" || strings.HasPrefix(name, ">") {
		name = "现金"
	}
	if a, ok := imp.accounts[name]; ok {
		return a, nil
	}
	existing, err := imp.store.Accounts.FindByName(ctx, imp.userID, name)
	if err != nil {
		return repository.Account{}, err
	}
	if existing != nil {
		imp.accounts[name] = *existing
		return *existing, nil
	}

	accountType := DetectAccountType(name)
	icon := SuggestAccountIcon(accountType)
	now := time.Now().UTC()
	a := repository.Account{
		ID:        deterministicID("account", imp.userID, name),
		UserID:    imp.userID,
		Name:      name,
		Type:      accountType,
		Currency:  "CNY",
		Icon:      &icon,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := imp.store.Accounts.Insert(ctx, a); err != nil {
		return repository.Account{}, err
	}
	imp.log.Debug().Str("name", name).Str("type", accountType).Msg("account created")
	imp.accounts[name] = a
	return a, nil
}

func (imp *Importer) ensureCategory(ctx context.Context, rec Record, income bool) (repository.Category, error) {
	name := MapCategory(rec.ParentCategory, rec.ChildCategory, income)
	typ := repository.CategoryTypeExpense
	if income {
		typ = repository.CategoryTypeIncome
	}
	key := name + "|" + typ
	if c, ok := imp.categories[key]; ok {
		return c, nil
	}
	existing, err := imp.store.Categories.FindByNameAndType(ctx, imp.userID, name, typ)
	if err != nil {
		return repository.Category{}, err
	}
	if existing != nil {
		imp.categories[key] = *existing
		return *existing, nil
	}

	icon := SuggestCategoryIcon(name)
	color := SuggestCategoryColor(name)
	now := time.Now().UTC()
	c := repository.Category{
		ID:        deterministicID("category", imp.userID, key),
		UserID:    imp.userID,
		Name:      name,
		Type:      typ,
		Icon:      &icon,
		Color:     &color,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := imp.store.Categories.Insert(ctx, c); err != nil {
		return repository.Category{}, err
	}
	imp.log.Debug().Str("name", name).Str("type", typ).Msg("category created")
	imp.categories[key] = c
	return c, nil
}

// deterministicID derives a stable uuid so re-running an import produces the
// same ids and upserts instead of duplicating.
func deterministicID(kind, userID, key string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("ledgerio:"+kind+":"+userID+":"+key)).String()
}
