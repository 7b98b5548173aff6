// Package backup packages exports into verifiable zip archives and restores
// them through the import pipeline.
package backup

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ccxiaoji/ledgerio/internal/database/repository"
	"github.com/ccxiaoji/ledgerio/internal/export"
	"github.com/ccxiaoji/ledgerio/internal/importer"
)

// Manager creates, verifies and restores backup archives. Restore goes
// through the import pipeline, so conflict strategies and duplicate detection
// apply to backups exactly as to plain CSV imports.
type Manager struct {
	store      *repository.Store
	exporter   *export.Exporter
	log        zerolog.Logger
	userID     string
	appVersion string
	now        func() time.Time
}

func NewManager(store *repository.Store, userID, appVersion string, log zerolog.Logger) *Manager {
	return &Manager{
		store:      store,
		exporter:   export.NewExporter(store, userID, log),
		log:        log.With().Str("component", "backup").Logger(),
		userID:     userID,
		appVersion: appVersion,
		now:        time.Now,
	}
}

// CreateBackup writes a backup archive to destPath. A non-nil range limits
// the exported transactions; includeCSV adds a human-readable transaction
// table beside the JSON documents.
func (m *Manager) CreateBackup(ctx context.Context, destPath string, rng *importer.DateRange, includeCSV bool) (*Metadata, error) {
	ledger, err := m.exporter.LedgerDocument(ctx, rng)
	if err != nil {
		return nil, wrapErr(KindDatabase, "读取账本数据失败", err)
	}
	todo, err := m.exporter.TodoDocument(ctx)
	if err != nil {
		return nil, wrapErr(KindDatabase, "读取待办数据失败", err)
	}
	habit, err := m.exporter.HabitDocument(ctx)
	if err != nil {
		return nil, wrapErr(KindDatabase, "读取习惯数据失败", err)
	}
	schedule, err := m.exporter.ScheduleDocument(ctx)
	if err != nil {
		return nil, wrapErr(KindDatabase, "读取排班数据失败", err)
	}
	plan, err := m.exporter.PlanDocument(ctx)
	if err != nil {
		return nil, wrapErr(KindDatabase, "读取计划数据失败", err)
	}

	core, others := export.SplitOthers(ledger)
	files := map[string][]byte{}
	for name, doc := range map[string]any{
		export.FileLedger:   core,
		export.FileOthers:   others,
		export.FileTodo:     todo,
		export.FileHabit:    habit,
		export.FileSchedule: schedule,
		export.FilePlan:     plan,
	} {
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, wrapErr(KindSerialization, "序列化备份数据失败", err)
		}
		files[name] = data
	}
	if includeCSV {
		var buf bytes.Buffer
		if err := export.WriteTransactionsCSV(&buf, ledger); err != nil {
			return nil, wrapErr(KindSerialization, "生成交易表失败", err)
		}
		files["transactions.csv"] = buf.Bytes()
	}

	meta := m.buildMetadata(ledger, todo, habit, schedule, plan, files)
	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, wrapErr(KindSerialization, "序列化备份清单失败", err)
	}

	if err := writeArchive(destPath, files, metaBytes); err != nil {
		return nil, err
	}
	m.log.Info().
		Str("path", destPath).
		Int("transactions", meta.Statistics.TransactionCount).
		Str("checksum", meta.Checksum.Value[:12]).
		Msg("backup created")
	return meta, nil
}

func (m *Manager) buildMetadata(ledger *export.LedgerDocument, todo *export.TodoDocument,
	habit *export.HabitDocument, schedule *export.ScheduleDocument, plan *export.PlanDocument,
	files map[string][]byte) *Metadata {

	habitRecords := 0
	for _, h := range habit.Habits {
		habitRecords += len(h.Records)
	}
	meta := &Metadata{
		FileType:    FileType,
		FileVersion: FileVersion,
		ExportTime:  m.now().UTC(),
		AppVersion:  m.appVersion,
		DeviceInfo:  deviceInfo(),
		Statistics: Statistics{
			TransactionCount: len(ledger.Transactions),
			TodoCount:        len(todo.Tasks),
			HabitRecordCount: habitRecords,
			ScheduleCount:    len(schedule.Shifts),
			PlanCount:        len(plan.Plans),
		},
		Files:    map[string]string{},
		Checksum: computeChecksum(files),
	}
	for name := range files {
		meta.Files[name] = describeFile(name)
	}
	if len(ledger.Transactions) > 0 {
		r := DataRange{Start: ledger.Transactions[0].CreatedAt, End: ledger.Transactions[0].CreatedAt}
		for _, t := range ledger.Transactions[1:] {
			if t.CreatedAt.Before(r.Start) {
				r.Start = t.CreatedAt
			}
			if t.CreatedAt.After(r.End) {
				r.End = t.CreatedAt
			}
		}
		meta.DataRange = &r
	}
	return meta
}

// writeArchive writes the zip atomically: temp file in the destination
// directory, then rename.
func writeArchive(destPath string, files map[string][]byte, metaBytes []byte) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return wrapErr(KindFileSystem, "无法创建备份目录", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(destPath), ".backup-*.zip")
	if err != nil {
		if os.IsPermission(err) {
			return wrapErr(KindPermission, "没有写入权限", err)
		}
		return wrapErr(KindFileSystem, "无法创建备份文件", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	zw := zip.NewWriter(tmp)
	write := func(name string, data []byte) error {
		w, err := zw.Create(name)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}
	for name, data := range files {
		if err := write(name, data); err != nil {
			tmp.Close()
			return wrapErr(KindFileSystem, "写入备份文件失败", err)
		}
	}
	if err := write(MetadataFile, metaBytes); err != nil {
		tmp.Close()
		return wrapErr(KindFileSystem, "写入备份清单失败", err)
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return wrapErr(KindFileSystem, "写入备份文件失败", err)
	}
	if err := tmp.Close(); err != nil {
		return wrapErr(KindFileSystem, "写入备份文件失败", err)
	}
	if err := os.Rename(tmpName, destPath); err != nil {
		return wrapErr(KindFileSystem, "无法保存备份文件", err)
	}
	return nil
}

// archiveContents holds one fully-read backup archive.
type archiveContents struct {
	Metadata *Metadata
	Files    map[string][]byte
}

func readArchive(path string) (*archiveContents, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, wrapErr(KindFileSystem, "备份文件不存在", err)
		}
		return nil, wrapErr(KindValidation, "不是有效的备份文件", err)
	}
	defer zr.Close()

	contents := &archiveContents{Files: map[string][]byte{}}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			return nil, wrapErr(KindFileSystem, "读取备份文件失败", err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, wrapErr(KindFileSystem, "读取备份文件失败", err)
		}
		if f.Name == MetadataFile {
			var meta Metadata
			if err := json.Unmarshal(data, &meta); err != nil {
				return nil, wrapErr(KindValidation, "备份清单损坏", err)
			}
			contents.Metadata = &meta
			continue
		}
		contents.Files[f.Name] = data
	}
	if contents.Metadata == nil {
		return nil, wrapErr(KindValidation, "备份文件缺少清单", nil)
	}
	return contents, nil
}

// Verify reads an archive, checks its manifest and checksum, and returns the
// metadata without touching the store.
func (m *Manager) Verify(path string) (*Metadata, error) {
	contents, err := readArchive(path)
	if err != nil {
		return nil, err
	}
	meta := contents.Metadata
	if meta.FileType != FileType {
		return nil, wrapErr(KindValidation, fmt.Sprintf("文件类型不匹配: %s", meta.FileType), nil)
	}
	if !strings.HasPrefix(meta.FileVersion, "2.") {
		return nil, wrapErr(KindValidation, fmt.Sprintf("不支持的备份版本: %s", meta.FileVersion), nil)
	}
	if got := computeChecksum(contents.Files); got.Value != meta.Checksum.Value {
		return nil, wrapErr(KindValidation, "备份文件校验失败，内容可能已损坏", nil)
	}
	return meta, nil
}

// RestoreBackup verifies an archive and replays its contents into the store.
// Ledger data goes through the import pipeline under the given config; the
// other modules upsert by id.
func (m *Manager) RestoreBackup(ctx context.Context, path string, cfg importer.Config) (*importer.Result, error) {
	meta, err := m.Verify(path)
	if err != nil {
		return nil, err
	}
	contents, err := readArchive(path)
	if err != nil {
		return nil, err
	}
	m.log.Info().
		Str("path", path).
		Str("version", meta.FileVersion).
		Time("exported", meta.ExportTime).
		Msg("restoring backup")

	ledgerBytes, ok := contents.Files[export.FileLedger]
	if !ok {
		return nil, wrapErr(KindValidation, "备份文件缺少账本数据", nil)
	}
	var ledger export.LedgerDocument
	if err := json.Unmarshal(ledgerBytes, &ledger); err != nil {
		return nil, wrapErr(KindSerialization, "账本数据损坏", err)
	}
	if othersBytes, ok := contents.Files[export.FileOthers]; ok {
		var others export.OthersDocument
		if err := json.Unmarshal(othersBytes, &others); err != nil {
			return nil, wrapErr(KindSerialization, "预算数据损坏", err)
		}
		export.MergeOthers(&ledger, &others)
	}

	orch := importer.NewOrchestrator(m.store, m.userID, m.log)
	ds := ledger.ToDataset(m.userID)
	res, err := orch.Run(ctx, &ds, cfg)
	if err != nil {
		return nil, wrapErr(KindDatabase, "恢复账本数据失败", err)
	}

	if err := m.restoreModules(ctx, contents.Files); err != nil {
		return nil, err
	}
	return res, nil
}

// restoreModules replays the non-ledger documents. Inserts upsert by id, so
// restoring twice is harmless.
func (m *Manager) restoreModules(ctx context.Context, files map[string][]byte) error {
	if data, ok := files[export.FileTodo]; ok {
		var doc export.TodoDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return wrapErr(KindSerialization, "待办数据损坏", err)
		}
		for _, t := range doc.Tasks {
			task := repository.TodoTask{
				ID: t.ID, UserID: m.userID, Title: t.Title, Done: t.Done,
				Priority: t.Priority, DueAt: t.DueAt,
				CreatedAt: t.CreatedAt, UpdatedAt: t.CreatedAt,
			}
			if err := m.store.Todos.Insert(ctx, task); err != nil {
				return wrapErr(KindDatabase, "恢复待办数据失败", err)
			}
		}
	}
	if data, ok := files[export.FileHabit]; ok {
		var doc export.HabitDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return wrapErr(KindSerialization, "习惯数据损坏", err)
		}
		for _, h := range doc.Habits {
			now := m.now().UTC()
			habit := repository.Habit{
				ID: h.ID, UserID: m.userID, Title: h.Title,
				Period: h.Period, Target: h.Target,
				CreatedAt: now, UpdatedAt: now,
			}
			if err := m.store.Habits.Insert(ctx, habit); err != nil {
				return wrapErr(KindDatabase, "恢复习惯数据失败", err)
			}
			for _, rec := range h.Records {
				record := repository.HabitRecord{
					ID:         recordID(h.ID, rec.RecordDate),
					HabitID:    h.ID,
					RecordDate: rec.RecordDate,
					Count:      rec.Count,
				}
				if err := m.store.Habits.InsertRecord(ctx, record); err != nil {
					return wrapErr(KindDatabase, "恢复习惯记录失败", err)
				}
			}
		}
	}
	if data, ok := files[export.FileSchedule]; ok {
		var doc export.ScheduleDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return wrapErr(KindSerialization, "排班数据损坏", err)
		}
		for _, s := range doc.Shifts {
			now := m.now().UTC()
			shift := repository.ScheduleShift{
				ID: s.ID, UserID: m.userID, Title: s.Title,
				ShiftDate: s.ShiftDate, StartTime: s.StartTime, EndTime: s.EndTime,
				CreatedAt: now, UpdatedAt: now,
			}
			if err := m.store.Schedules.Insert(ctx, shift); err != nil {
				return wrapErr(KindDatabase, "恢复排班数据失败", err)
			}
		}
	}
	if data, ok := files[export.FilePlan]; ok {
		var doc export.PlanDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return wrapErr(KindSerialization, "计划数据损坏", err)
		}
		for _, p := range doc.Plans {
			now := m.now().UTC()
			plan := repository.Plan{
				ID: p.ID, UserID: m.userID, Title: p.Title,
				Status: p.Status, Progress: p.Progress,
				StartDate: p.StartDate, EndDate: p.EndDate,
				CreatedAt: now, UpdatedAt: now,
			}
			if err := m.store.Plans.Insert(ctx, plan); err != nil {
				return wrapErr(KindDatabase, "恢复计划数据失败", err)
			}
		}
	}
	return nil
}

func recordID(habitID string, date time.Time) string {
	return fmt.Sprintf("%s:%s", habitID, date.UTC().Format("2006-01-02"))
}

func deviceInfo() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s (%s/%s)", host, runtime.GOOS, runtime.GOARCH)
}
