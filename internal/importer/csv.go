package importer

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ccxiaoji/ledgerio/internal/database/repository"
)

// Sectioned backup CSV, format family 2.x. Every line is a typed record:
//
//	HEADER,<version>,<exportTime>
//	ACCOUNT,<id>,<name>,<type>,<balanceCents>,<currency>,<billingDay>,<paymentDueDay>
//	CATEGORY,<id>,<name>,<type>,<parentName>,<color>,<icon>
//	TRANSACTION,<id>,<accountName>,<categoryName>,<amountCents>,<createdAt>,<note>
//	BUDGET,<id>,<year>,<month>,<categoryName>,<budgetAmountCents>,<alertThreshold>
//	SAVINGS,<id>,<name>,<targetAmountCents>,<currentAmountCents>,<targetDate>
//
// Cross-references travel by name so the file survives id churn between
// stores. RECURRING and CREDITBILL rows from newer app versions are
// recognized and counted but not imported.

const (
	csvTimeLayout = time.RFC3339
	csvDateLayout = "2006-01-02"
)

// ParsedFile is the outcome of parsing one sectioned CSV.
type ParsedFile struct {
	Dataset            Dataset
	Version            string
	Errors             []ImportError
	SkippedUnsupported int
}

// ParseBackupCSV reads a sectioned ledger CSV. Structural problems become
// FormatErrors; parsing continues past bad rows so the preview can show them
// all. The store is never touched.
func ParseBackupCSV(r io.Reader, userID string) (*ParsedFile, error) {
	pf := &ParsedFile{}
	scanner := bufio.NewScanner(bufio.NewReader(r))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(raw) == "" {
			continue
		}
		fields := SplitCSVLine(raw)
		tag := strings.ToUpper(strings.TrimSpace(fields[0]))

		switch tag {
		case "HEADER":
			if len(fields) < 2 {
				pf.Errors = append(pf.Errors, ImportError{Kind: KindFormat, Line: line, Message: "文件头缺少版本号"})
				continue
			}
			pf.Version = strings.TrimSpace(fields[1])
			if !strings.HasPrefix(pf.Version, "2.") {
				pf.Errors = append(pf.Errors, ImportError{Kind: KindFormat, Line: line,
					Message: fmt.Sprintf("不支持的文件版本: %s", pf.Version)})
			}
		case "ACCOUNT":
			row, err := parseAccountRow(fields, line, userID)
			if err != nil {
				pf.Errors = append(pf.Errors, *err)
				continue
			}
			pf.Dataset.Accounts = append(pf.Dataset.Accounts, row)
		case "CATEGORY":
			row, err := parseCategoryRow(fields, line, userID)
			if err != nil {
				pf.Errors = append(pf.Errors, *err)
				continue
			}
			pf.Dataset.Categories = append(pf.Dataset.Categories, row)
		case "TRANSACTION":
			row, err := parseTransactionRow(fields, line, userID)
			if err != nil {
				pf.Errors = append(pf.Errors, *err)
				continue
			}
			pf.Dataset.Transactions = append(pf.Dataset.Transactions, row)
		case "BUDGET":
			row, err := parseBudgetRow(fields, line, userID)
			if err != nil {
				pf.Errors = append(pf.Errors, *err)
				continue
			}
			pf.Dataset.Budgets = append(pf.Dataset.Budgets, row)
		case "SAVINGS":
			row, err := parseSavingsRow(fields, line, userID)
			if err != nil {
				pf.Errors = append(pf.Errors, *err)
				continue
			}
			pf.Dataset.SavingsGoals = append(pf.Dataset.SavingsGoals, row)
		case "RECURRING", "CREDITBILL":
			pf.SkippedUnsupported++
		default:
			pf.Errors = append(pf.Errors, ImportError{Kind: KindFormat, Line: line,
				Message: fmt.Sprintf("无法识别的记录类型: %s", tag)})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	pf.Dataset.Version = pf.Version
	return pf, nil
}

func parseAccountRow(fields []string, line int, userID string) (AccountRow, *ImportError) {
	if len(fields) < 8 {
		return AccountRow{}, formatErr(line, "账户记录字段不足")
	}
	balance, err := strconv.ParseInt(strings.TrimSpace(fields[4]), 10, 64)
	if err != nil {
		return AccountRow{}, formatErr(line, fmt.Sprintf("余额无效: %s", fields[4]))
	}
	a := repository.Account{
		ID:           orNewID(fields[1]),
		UserID:       userID,
		Name:         strings.TrimSpace(fields[2]),
		Type:         strings.ToUpper(strings.TrimSpace(fields[3])),
		BalanceCents: balance,
		Currency:     strings.TrimSpace(fields[5]),
	}
	if a.Type == "" {
		a.Type = repository.AccountTypeOther
	}
	if a.Currency == "" {
		a.Currency = "CNY"
	}
	if d, ok := optionalInt(fields[6]); ok {
		a.BillingDay = &d
	}
	if d, ok := optionalInt(fields[7]); ok {
		a.PaymentDueDay = &d
	}
	return AccountRow{Line: line, Account: a}, nil
}

func parseCategoryRow(fields []string, line int, userID string) (CategoryRow, *ImportError) {
	if len(fields) < 7 {
		return CategoryRow{}, formatErr(line, "分类记录字段不足")
	}
	typ := strings.ToUpper(strings.TrimSpace(fields[3]))
	if typ != repository.CategoryTypeIncome && typ != repository.CategoryTypeExpense {
		return CategoryRow{}, formatErr(line, fmt.Sprintf("分类类型无效: %s", fields[3]))
	}
	c := repository.Category{
		ID:     orNewID(fields[1]),
		UserID: userID,
		Name:   strings.TrimSpace(fields[2]),
		Type:   typ,
	}
	if s := strings.TrimSpace(fields[5]); s != "" {
		c.Color = &s
	}
	if s := strings.TrimSpace(fields[6]); s != "" {
		c.Icon = &s
	}
	return CategoryRow{Line: line, Category: c, ParentName: strings.TrimSpace(fields[4])}, nil
}

func parseTransactionRow(fields []string, line int, userID string) (TransactionRow, *ImportError) {
	if len(fields) < 7 {
		return TransactionRow{}, formatErr(line, "交易记录字段不足")
	}
	amount, err := strconv.ParseInt(strings.TrimSpace(fields[4]), 10, 64)
	if err != nil {
		return TransactionRow{}, formatErr(line, fmt.Sprintf("金额无效: %s", fields[4]))
	}
	at, err := time.Parse(csvTimeLayout, strings.TrimSpace(fields[5]))
	if err != nil {
		return TransactionRow{}, formatErr(line, fmt.Sprintf("交易时间无效: %s", fields[5]))
	}
	t := repository.Transaction{
		ID:          orNewID(fields[1]),
		UserID:      userID,
		AmountCents: amount,
		CreatedAt:   at.UTC(),
		UpdatedAt:   at.UTC(),
	}
	if note := fields[6]; note != "" {
		t.Note = &note
	}
	return TransactionRow{
		Line:         line,
		Transaction:  t,
		AccountName:  strings.TrimSpace(fields[2]),
		CategoryName: strings.TrimSpace(fields[3]),
	}, nil
}

func parseBudgetRow(fields []string, line int, userID string) (BudgetRow, *ImportError) {
	if len(fields) < 7 {
		return BudgetRow{}, formatErr(line, "预算记录字段不足")
	}
	year, err := strconv.Atoi(strings.TrimSpace(fields[2]))
	if err != nil {
		return BudgetRow{}, formatErr(line, fmt.Sprintf("年份无效: %s", fields[2]))
	}
	month, err := strconv.Atoi(strings.TrimSpace(fields[3]))
	if err != nil {
		return BudgetRow{}, formatErr(line, fmt.Sprintf("月份无效: %s", fields[3]))
	}
	amount, err := strconv.ParseInt(strings.TrimSpace(fields[5]), 10, 64)
	if err != nil {
		return BudgetRow{}, formatErr(line, fmt.Sprintf("预算金额无效: %s", fields[5]))
	}
	threshold := 0.8
	if s := strings.TrimSpace(fields[6]); s != "" {
		threshold, err = strconv.ParseFloat(s, 64)
		if err != nil {
			return BudgetRow{}, formatErr(line, fmt.Sprintf("预警阈值无效: %s", fields[6]))
		}
	}
	b := repository.Budget{
		ID:                orNewID(fields[1]),
		UserID:            userID,
		Year:              year,
		Month:             month,
		BudgetAmountCents: amount,
		AlertThreshold:    threshold,
	}
	return BudgetRow{Line: line, Budget: b, CategoryName: strings.TrimSpace(fields[4])}, nil
}

func parseSavingsRow(fields []string, line int, userID string) (SavingsGoalRow, *ImportError) {
	if len(fields) < 6 {
		return SavingsGoalRow{}, formatErr(line, "储蓄目标记录字段不足")
	}
	target, err := strconv.ParseInt(strings.TrimSpace(fields[3]), 10, 64)
	if err != nil {
		return SavingsGoalRow{}, formatErr(line, fmt.Sprintf("目标金额无效: %s", fields[3]))
	}
	current, err := strconv.ParseInt(strings.TrimSpace(fields[4]), 10, 64)
	if err != nil {
		return SavingsGoalRow{}, formatErr(line, fmt.Sprintf("当前金额无效: %s", fields[4]))
	}
	g := repository.SavingsGoal{
		ID:                 orNewID(fields[1]),
		UserID:             userID,
		Name:               strings.TrimSpace(fields[2]),
		TargetAmountCents:  target,
		CurrentAmountCents: current,
	}
	if s := strings.TrimSpace(fields[5]); s != "" {
		d, err := time.Parse(csvDateLayout, s)
		if err != nil {
			return SavingsGoalRow{}, formatErr(line, fmt.Sprintf("目标日期无效: %s", s))
		}
		g.TargetDate = &d
	}
	return SavingsGoalRow{Line: line, Goal: g}, nil
}

func formatErr(line int, msg string) *ImportError {
	return &ImportError{Kind: KindFormat, Line: line, Message: msg}
}

func orNewID(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return uuid.NewString()
	}
	return s
}

func optionalInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// SplitCSVLine splits one CSV line honoring quoted fields, doubled-quote
// escapes and a UTF-8 BOM. Shared with the Qianji importer, whose export
// files use the same quoting rules.
func SplitCSVLine(line string) []string {
	line = strings.TrimPrefix(line, "\ufeff")

	var result []string
	var field strings.Builder
	inQuotes := false

	for i := 0; i < len(line); i++ {
		ch := line[i]
		switch {
		case ch == '"':
			if inQuotes {
				if i+1 < len(line) && line[i+1] == '"' {
					field.WriteByte('"')
					i++
				} else {
					inQuotes = false
				}
			} else if field.Len() == 0 || (i > 0 && line[i-1] == ',') {
				inQuotes = true
			} else {
				field.WriteByte(ch)
			}
		case ch == ',' && !inQuotes:
			result = append(result, field.String())
			field.Reset()
		default:
			field.WriteByte(ch)
		}
	}
	result = append(result, field.String())
	return result
}

// QuoteCSVField quotes a field for writing if it contains separators, quotes
// or newlines.
func QuoteCSVField(s string) string {
	if !strings.ContainsAny(s, ",\"\n\r") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
