package repository

import (
	"context"
	"database/sql"
)

// Repos for the non-ledger modules. These only need list/insert: the backup
// archive snapshots them, restore writes them back wholesale.

// TodoRepo handles to-do tasks.
type TodoRepo struct {
	db *sql.DB
}

func NewTodoRepo(db *sql.DB) *TodoRepo { return &TodoRepo{db: db} }

func (r *TodoRepo) Insert(ctx context.Context, t TodoTask) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO todo_tasks(id, user_id, title, done, priority, due_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
	 title=excluded.title, done=excluded.done, priority=excluded.priority,
	 due_at=excluded.due_at, updated_at=excluded.updated_at;
	`, t.ID, t.UserID, t.Title, t.Done, t.Priority, t.DueAt, t.CreatedAt, t.UpdatedAt)
	return err
}

func (r *TodoRepo) ListByUser(ctx context.Context, userID string) ([]TodoTask, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, done, priority, due_at, created_at, updated_at
		 FROM todo_tasks WHERE user_id=? ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TodoTask
	for rows.Next() {
		var t TodoTask
		var due sql.NullTime
		if err := rows.Scan(&t.ID, &t.UserID, &t.Title, &t.Done, &t.Priority, &due, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		if due.Valid {
			t.DueAt = &due.Time
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// HabitRepo handles habits and their records.
type HabitRepo struct {
	db *sql.DB
}

func NewHabitRepo(db *sql.DB) *HabitRepo { return &HabitRepo{db: db} }

func (r *HabitRepo) Insert(ctx context.Context, h Habit) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO habits(id, user_id, title, period, target, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
	 title=excluded.title, period=excluded.period, target=excluded.target, updated_at=excluded.updated_at;
	`, h.ID, h.UserID, h.Title, h.Period, h.Target, h.CreatedAt, h.UpdatedAt)
	return err
}

func (r *HabitRepo) InsertRecord(ctx context.Context, rec HabitRecord) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO habit_records(id, habit_id, record_date, count)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET record_date=excluded.record_date, count=excluded.count;
	`, rec.ID, rec.HabitID, rec.RecordDate, rec.Count)
	return err
}

func (r *HabitRepo) ListByUser(ctx context.Context, userID string) ([]Habit, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, period, target, created_at, updated_at
		 FROM habits WHERE user_id=? ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Habit
	for rows.Next() {
		var h Habit
		if err := rows.Scan(&h.ID, &h.UserID, &h.Title, &h.Period, &h.Target, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (r *HabitRepo) ListRecords(ctx context.Context, habitID string) ([]HabitRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, habit_id, record_date, count FROM habit_records WHERE habit_id=? ORDER BY record_date`, habitID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []HabitRecord
	for rows.Next() {
		var rec HabitRecord
		if err := rows.Scan(&rec.ID, &rec.HabitID, &rec.RecordDate, &rec.Count); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ScheduleRepo handles schedule shifts.
type ScheduleRepo struct {
	db *sql.DB
}

func NewScheduleRepo(db *sql.DB) *ScheduleRepo { return &ScheduleRepo{db: db} }

func (r *ScheduleRepo) Insert(ctx context.Context, s ScheduleShift) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO schedule_shifts(id, user_id, title, shift_date, start_time, end_time, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
	 title=excluded.title, shift_date=excluded.shift_date,
	 start_time=excluded.start_time, end_time=excluded.end_time, updated_at=excluded.updated_at;
	`, s.ID, s.UserID, s.Title, s.ShiftDate, s.StartTime, s.EndTime, s.CreatedAt, s.UpdatedAt)
	return err
}

func (r *ScheduleRepo) ListByUser(ctx context.Context, userID string) ([]ScheduleShift, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, shift_date, start_time, end_time, created_at, updated_at
		 FROM schedule_shifts WHERE user_id=? ORDER BY shift_date`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ScheduleShift
	for rows.Next() {
		var s ScheduleShift
		if err := rows.Scan(&s.ID, &s.UserID, &s.Title, &s.ShiftDate, &s.StartTime, &s.EndTime, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// PlanRepo handles plans.
type PlanRepo struct {
	db *sql.DB
}

func NewPlanRepo(db *sql.DB) *PlanRepo { return &PlanRepo{db: db} }

func (r *PlanRepo) Insert(ctx context.Context, p Plan) error {
	_, err := r.db.ExecContext(ctx, `
	INSERT INTO plans(id, user_id, title, status, progress, start_date, end_date, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
	 title=excluded.title, status=excluded.status, progress=excluded.progress,
	 start_date=excluded.start_date, end_date=excluded.end_date, updated_at=excluded.updated_at;
	`, p.ID, p.UserID, p.Title, p.Status, p.Progress, p.StartDate, p.EndDate, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *PlanRepo) ListByUser(ctx context.Context, userID string) ([]Plan, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, title, status, progress, start_date, end_date, created_at, updated_at
		 FROM plans WHERE user_id=? ORDER BY created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Plan
	for rows.Next() {
		var p Plan
		var start, end sql.NullTime
		if err := rows.Scan(&p.ID, &p.UserID, &p.Title, &p.Status, &p.Progress, &start, &end, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		if start.Valid {
			p.StartDate = &start.Time
		}
		if end.Valid {
			p.EndDate = &end.Time
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
