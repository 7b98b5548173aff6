package importer

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ccxiaoji/ledgerio/internal/database/repository"
)

// ValidationResult reports field-level rule violations for one entity.
// An empty Errors slice means the entity passed.
type ValidationResult struct {
	Errors []string
}

func (v ValidationResult) OK() bool { return len(v.Errors) == 0 }

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// DataValidator performs pure, side-effect-free validation of one entity at a
// time. It never touches the store and never returns an error: callers decide
// whether to skip, abort, or surface the row.
type DataValidator struct {
	// Now is replaceable in tests; defaults to time.Now.
	Now func() time.Time
}

func NewDataValidator() *DataValidator {
	return &DataValidator{Now: time.Now}
}

func (v *DataValidator) now() time.Time {
	if v.Now != nil {
		return v.Now()
	}
	return time.Now()
}

func (v *DataValidator) ValidateAccount(a repository.Account) ValidationResult {
	var errs []string
	if strings.TrimSpace(a.Name) == "" {
		errs = append(errs, "账户名称不能为空")
	} else if utf8.RuneCountInString(a.Name) > 50 {
		errs = append(errs, "账户名称不能超过50个字符")
	}
	if a.Type == repository.AccountTypeCreditCard {
		if a.BillingDay != nil && (*a.BillingDay < 1 || *a.BillingDay > 31) {
			errs = append(errs, "账单日必须在1-31之间")
		}
		if a.PaymentDueDay != nil && (*a.PaymentDueDay < 1 || *a.PaymentDueDay > 31) {
			errs = append(errs, "还款日必须在1-31之间")
		}
	}
	return ValidationResult{Errors: errs}
}

func (v *DataValidator) ValidateCategory(c repository.Category) ValidationResult {
	var errs []string
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, "分类名称不能为空")
	} else if utf8.RuneCountInString(c.Name) > 20 {
		errs = append(errs, "分类名称不能超过20个字符")
	}
	if c.Color != nil && !colorPattern.MatchString(*c.Color) {
		errs = append(errs, "颜色格式无效，应为#RRGGBB格式")
	}
	return ValidationResult{Errors: errs}
}

func (v *DataValidator) ValidateTransaction(t repository.Transaction) ValidationResult {
	var errs []string
	if t.AmountCents == 0 {
		errs = append(errs, "金额不能为零")
	}
	if t.CreatedAt.After(v.now()) {
		errs = append(errs, "交易时间不能晚于当前时间")
	}
	if t.Note != nil && utf8.RuneCountInString(*t.Note) > 200 {
		errs = append(errs, "备注不能超过200个字符")
	}
	return ValidationResult{Errors: errs}
}

func (v *DataValidator) ValidateBudget(b repository.Budget) ValidationResult {
	var errs []string
	if b.Year < 2000 || b.Year > 3000 {
		errs = append(errs, "年份必须在2000-3000之间")
	}
	if b.Month < 1 || b.Month > 12 {
		errs = append(errs, "月份必须在1-12之间")
	}
	if b.BudgetAmountCents <= 0 {
		errs = append(errs, "预算金额必须大于0")
	}
	return ValidationResult{Errors: errs}
}

func (v *DataValidator) ValidateSavingsGoal(g repository.SavingsGoal) ValidationResult {
	var errs []string
	if strings.TrimSpace(g.Name) == "" {
		errs = append(errs, "储蓄目标名称不能为空")
	} else if utf8.RuneCountInString(g.Name) > 50 {
		errs = append(errs, "储蓄目标名称不能超过50个字符")
	}
	if g.TargetAmountCents <= 0 {
		errs = append(errs, "目标金额必须大于0")
	}
	if g.CurrentAmountCents < 0 {
		errs = append(errs, "当前金额不能为负数")
	}
	if g.TargetDate != nil {
		// date-only comparison: a goal due today is still valid
		today := v.now().UTC().Truncate(24 * time.Hour)
		if g.TargetDate.Before(today) {
			errs = append(errs, "目标日期不能是过去的日期")
		}
	}
	return ValidationResult{Errors: errs}
}
