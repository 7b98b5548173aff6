package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"time"

	"github.com/ccxiaoji/ledgerio/internal/export"
)

const (
	// MetadataFile is the manifest entry inside a backup archive.
	MetadataFile = "backup_metadata.json"

	FileType    = "ledgerio-backup"
	FileVersion = "2.0"

	ChecksumAlgorithm = "SHA-256"
)

// Checksum covers the uncompressed data payloads, so archive recompression
// does not invalidate a backup.
type Checksum struct {
	Algorithm string `json:"algorithm"`
	Value     string `json:"value"`
}

// Statistics summarizes archive contents for display before a restore.
type Statistics struct {
	TransactionCount int `json:"transactionCount"`
	TodoCount        int `json:"todoCount"`
	HabitRecordCount int `json:"habitRecordCount"`
	ScheduleCount    int `json:"scheduleCount"`
	PlanCount        int `json:"planCount"`
}

// DataRange is the transaction time span inside the archive.
type DataRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Metadata is the archive manifest, stored as backup_metadata.json.
type Metadata struct {
	FileType    string           `json:"fileType"`
	FileVersion string           `json:"fileVersion"`
	ExportTime  time.Time        `json:"exportTime"`
	AppVersion  string           `json:"appVersion"`
	DeviceInfo  string           `json:"deviceInfo"`
	DataRange   *DataRange       `json:"dataRange,omitempty"`
	Statistics  Statistics       `json:"statistics"`
	Files       map[string]string `json:"files"` // name -> human description
	Checksum    Checksum          `json:"checksum"`
}

var fileDescriptions = map[string]string{
	export.FileLedger:   "记账数据",
	export.FileOthers:   "预算与储蓄目标",
	export.FileTodo:     "待办任务",
	export.FileHabit:    "习惯打卡",
	export.FileSchedule: "排班记录",
	export.FilePlan:     "计划目标",
	"transactions.csv":  "交易明细表",
}

func describeFile(name string) string {
	if d, ok := fileDescriptions[name]; ok {
		return d
	}
	return name
}

// computeChecksum hashes the concatenated payloads in filename order. The
// metadata file itself is never part of the hash.
func computeChecksum(files map[string][]byte) Checksum {
	names := make([]string, 0, len(files))
	for name := range files {
		if name == MetadataFile {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)

	h := sha256.New()
	for _, name := range names {
		h.Write(files[name])
	}
	return Checksum{Algorithm: ChecksumAlgorithm, Value: hex.EncodeToString(h.Sum(nil))}
}
