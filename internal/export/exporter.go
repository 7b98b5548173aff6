// Package export renders store contents into portable documents: per-module
// JSON for backup archives and the sectioned CSV the import pipeline reads
// back.
package export

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ccxiaoji/ledgerio/internal/database/repository"
	"github.com/ccxiaoji/ledgerio/internal/importer"
)

// Exporter reads one user's data out of the store. It never writes.
type Exporter struct {
	store  *repository.Store
	log    zerolog.Logger
	userID string
	now    func() time.Time
}

func NewExporter(store *repository.Store, userID string, log zerolog.Logger) *Exporter {
	return &Exporter{
		store:  store,
		log:    log.With().Str("component", "export").Logger(),
		userID: userID,
		now:    time.Now,
	}
}

// LedgerDocument exports the money module. A non-nil range filters
// transactions by time; accounts, categories, budgets and goals are always
// exported in full so the document stays restorable.
func (e *Exporter) LedgerDocument(ctx context.Context, rng *importer.DateRange) (*LedgerDocument, error) {
	doc := &LedgerDocument{Version: DocumentVersion, ExportedAt: e.now().UTC()}

	accounts, err := e.store.Accounts.ListByUser(ctx, e.userID)
	if err != nil {
		return nil, err
	}
	accountNames := map[string]string{}
	for _, a := range accounts {
		accountNames[a.ID] = a.Name
		doc.Accounts = append(doc.Accounts, AccountDoc{
			ID:            a.ID,
			Name:          a.Name,
			Type:          a.Type,
			BalanceCents:  a.BalanceCents,
			Currency:      a.Currency,
			Icon:          a.Icon,
			Color:         a.Color,
			BillingDay:    a.BillingDay,
			PaymentDueDay: a.PaymentDueDay,
		})
	}

	categories, err := e.store.Categories.ListByUser(ctx, e.userID)
	if err != nil {
		return nil, err
	}
	categoryNames := map[string]string{}
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
	}
	for _, c := range categories {
		d := CategoryDoc{ID: c.ID, Name: c.Name, Type: c.Type, Icon: c.Icon, Color: c.Color}
		if c.ParentID != nil {
			d.ParentName = categoryNames[*c.ParentID]
		}
		doc.Categories = append(doc.Categories, d)
	}

	filters := repository.TransactionFilters{}
	if rng != nil {
		filters.From = rng.Start
		filters.To = rng.End
	}
	transactions, err := e.store.Transactions.List(ctx, e.userID, filters)
	if err != nil {
		return nil, err
	}
	for _, t := range transactions {
		doc.Transactions = append(doc.Transactions, TransactionDoc{
			ID:           t.ID,
			AccountName:  accountNames[t.AccountID],
			CategoryName: categoryNames[t.CategoryID],
			AmountCents:  t.AmountCents,
			CreatedAt:    t.CreatedAt,
			Note:         t.Note,
		})
	}

	budgets, err := e.store.Budgets.ListByUser(ctx, e.userID)
	if err != nil {
		return nil, err
	}
	for _, b := range budgets {
		d := BudgetDoc{
			ID:                b.ID,
			Year:              b.Year,
			Month:             b.Month,
			BudgetAmountCents: b.BudgetAmountCents,
			AlertThreshold:    b.AlertThreshold,
		}
		if b.CategoryID != nil {
			d.CategoryName = categoryNames[*b.CategoryID]
		}
		doc.Budgets = append(doc.Budgets, d)
	}

	goals, err := e.store.SavingsGoals.ListByUser(ctx, e.userID)
	if err != nil {
		return nil, err
	}
	for _, g := range goals {
		doc.SavingsGoals = append(doc.SavingsGoals, SavingsGoalDoc{
			ID:                 g.ID,
			Name:               g.Name,
			TargetAmountCents:  g.TargetAmountCents,
			CurrentAmountCents: g.CurrentAmountCents,
			TargetDate:         g.TargetDate,
		})
	}

	return doc, nil
}

func (e *Exporter) TodoDocument(ctx context.Context) (*TodoDocument, error) {
	tasks, err := e.store.Todos.ListByUser(ctx, e.userID)
	if err != nil {
		return nil, err
	}
	doc := &TodoDocument{Version: DocumentVersion, ExportedAt: e.now().UTC()}
	for _, t := range tasks {
		doc.Tasks = append(doc.Tasks, TodoDoc{
			ID: t.ID, Title: t.Title, Done: t.Done, Priority: t.Priority,
			DueAt: t.DueAt, CreatedAt: t.CreatedAt,
		})
	}
	return doc, nil
}

func (e *Exporter) HabitDocument(ctx context.Context) (*HabitDocument, error) {
	habits, err := e.store.Habits.ListByUser(ctx, e.userID)
	if err != nil {
		return nil, err
	}
	doc := &HabitDocument{Version: DocumentVersion, ExportedAt: e.now().UTC()}
	for _, h := range habits {
		records, err := e.store.Habits.ListRecords(ctx, h.ID)
		if err != nil {
			return nil, err
		}
		d := HabitDoc{ID: h.ID, Title: h.Title, Period: h.Period, Target: h.Target}
		for _, rec := range records {
			d.Records = append(d.Records, HabitRecordDoc{RecordDate: rec.RecordDate, Count: rec.Count})
		}
		doc.Habits = append(doc.Habits, d)
	}
	return doc, nil
}

func (e *Exporter) ScheduleDocument(ctx context.Context) (*ScheduleDocument, error) {
	shifts, err := e.store.Schedules.ListByUser(ctx, e.userID)
	if err != nil {
		return nil, err
	}
	doc := &ScheduleDocument{Version: DocumentVersion, ExportedAt: e.now().UTC()}
	for _, s := range shifts {
		doc.Shifts = append(doc.Shifts, ScheduleDoc{
			ID: s.ID, Title: s.Title, ShiftDate: s.ShiftDate,
			StartTime: s.StartTime, EndTime: s.EndTime,
		})
	}
	return doc, nil
}

func (e *Exporter) PlanDocument(ctx context.Context) (*PlanDocument, error) {
	plans, err := e.store.Plans.ListByUser(ctx, e.userID)
	if err != nil {
		return nil, err
	}
	doc := &PlanDocument{Version: DocumentVersion, ExportedAt: e.now().UTC()}
	for _, p := range plans {
		doc.Plans = append(doc.Plans, PlanDoc{
			ID: p.ID, Title: p.Title, Status: p.Status, Progress: p.Progress,
			StartDate: p.StartDate, EndDate: p.EndDate,
		})
	}
	return doc, nil
}

// ExportAll renders every module document concurrently and returns the
// marshaled files keyed by archive name. database/sql serializes access to
// the single sqlite connection underneath.
func (e *Exporter) ExportAll(ctx context.Context, rng *importer.DateRange) (map[string][]byte, error) {
	var mu sync.Mutex
	files := map[string][]byte{}
	put := func(name string, doc any) error {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return err
		}
		mu.Lock()
		files[name] = data
		mu.Unlock()
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		doc, err := e.LedgerDocument(ctx, rng)
		if err != nil {
			return err
		}
		core, others := SplitOthers(doc)
		if err := put(FileLedger, core); err != nil {
			return err
		}
		return put(FileOthers, others)
	})
	g.Go(func() error {
		doc, err := e.TodoDocument(ctx)
		if err != nil {
			return err
		}
		return put(FileTodo, doc)
	})
	g.Go(func() error {
		doc, err := e.HabitDocument(ctx)
		if err != nil {
			return err
		}
		return put(FileHabit, doc)
	})
	g.Go(func() error {
		doc, err := e.ScheduleDocument(ctx)
		if err != nil {
			return err
		}
		return put(FileSchedule, doc)
	})
	g.Go(func() error {
		doc, err := e.PlanDocument(ctx)
		if err != nil {
			return err
		}
		return put(FilePlan, doc)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	e.log.Info().Int("files", len(files)).Msg("export rendered")
	return files, nil
}
