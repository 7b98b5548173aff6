// Package qianji imports bill exports from the Qianji bookkeeping app. Qianji
// CSV files carry Chinese column headers and row-per-transaction data, unlike
// the sectioned ledger backup format, so they get their own parser and a
// mapping layer that translates Qianji's taxonomy into ledger categories.
package qianji

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ccxiaoji/ledgerio/internal/importer"
)

// Record is one parsed Qianji bill line.
type Record struct {
	Line           int
	QianjiID       string
	Time           time.Time
	ParentCategory string
	ChildCategory  string
	Type           string // 支出 / 收入 / 转账 / 还款 / 退款
	Amount         decimal.Decimal
	Currency       string
	Account        string
	Account2       string
	Note           string
	Tags           string
}

// Column headers as Qianji exports them.
const (
	colID       = "ID"
	colTime     = "时间"
	colCategory = "分类"
	colSubcat   = "二级分类"
	colType     = "类型"
	colAmount   = "金额"
	colCurrency = "币种"
	colAccount  = "账户1"
	colAccount2 = "账户2"
	colNote     = "备注"
	colTags     = "标签"
)

var requiredColumns = []string{colTime, colCategory, colType, colAmount, colAccount}

var timeLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006/1/2 15:04",
}

// IsQianjiHeader reports whether a header line carries the columns a Qianji
// export must have.
func IsQianjiHeader(line string) bool {
	fields := importer.SplitCSVLine(line)
	have := map[string]bool{}
	for _, f := range fields {
		have[strings.TrimSpace(f)] = true
	}
	for _, col := range requiredColumns {
		if !have[col] {
			return false
		}
	}
	return true
}

// Parse reads a Qianji CSV export. Column positions come from the header, so
// files survive Qianji adding or reordering columns. Bad rows are collected as
// format errors and parsing continues.
func Parse(r io.Reader) ([]Record, []importer.ImportError, error) {
	scanner := bufio.NewScanner(bufio.NewReader(r))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("文件为空")
	}
	header := strings.TrimRight(scanner.Text(), "\r")
	if !IsQianjiHeader(header) {
		return nil, nil, fmt.Errorf("不是钱迹导出文件: 缺少必需列")
	}
	idx := map[string]int{}
	for i, f := range importer.SplitCSVLine(header) {
		idx[strings.TrimSpace(f)] = i
	}
	field := func(fields []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}

	var records []Record
	var errs []importer.ImportError
	line := 1
	for scanner.Scan() {
		line++
		raw := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(raw) == "" {
			continue
		}
		fields := importer.SplitCSVLine(raw)

		at, err := parseTime(field(fields, colTime))
		if err != nil {
			errs = append(errs, importer.ImportError{
				Kind: importer.KindFormat, Line: line,
				Message: fmt.Sprintf("时间无效: %s", field(fields, colTime)),
			})
			continue
		}
		amount, err := decimal.NewFromString(field(fields, colAmount))
		if err != nil {
			errs = append(errs, importer.ImportError{
				Kind: importer.KindFormat, Line: line,
				Message: fmt.Sprintf("金额无效: %s", field(fields, colAmount)),
			})
			continue
		}

		records = append(records, Record{
			Line:           line,
			QianjiID:       field(fields, colID),
			Time:           at,
			ParentCategory: field(fields, colCategory),
			ChildCategory:  field(fields, colSubcat),
			Type:           field(fields, colType),
			Amount:         amount,
			Currency:       field(fields, colCurrency),
			Account:        field(fields, colAccount),
			Account2:       field(fields, colAccount2),
			Note:           field(fields, colNote),
			Tags:           field(fields, colTags),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, err
	}
	return records, errs, nil
}

func parseTime(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range timeLayouts {
		t, err := time.ParseInLocation(layout, s, time.Local)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}
