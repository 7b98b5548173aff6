package export

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/ccxiaoji/ledgerio/internal/importer"
)

// WriteLedgerCSV renders a ledger document as the sectioned CSV the import
// pipeline reads: one HEADER line followed by typed record lines. The layout
// is the mirror of ParseBackupCSV.
func WriteLedgerCSV(w io.Writer, doc *LedgerDocument) error {
	write := func(fields ...string) error {
		for i, f := range fields {
			fields[i] = importer.QuoteCSVField(f)
		}
		_, err := io.WriteString(w, strings.Join(fields, ",")+"\n")
		return err
	}

	if err := write("HEADER", doc.Version, doc.ExportedAt.UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	for _, a := range doc.Accounts {
		if err := write("ACCOUNT", a.ID, a.Name, a.Type,
			strconv.FormatInt(a.BalanceCents, 10), a.Currency,
			intOrEmpty(a.BillingDay), intOrEmpty(a.PaymentDueDay)); err != nil {
			return err
		}
	}
	for _, c := range doc.Categories {
		if err := write("CATEGORY", c.ID, c.Name, c.Type, c.ParentName,
			strOrEmpty(c.Color), strOrEmpty(c.Icon)); err != nil {
			return err
		}
	}
	for _, t := range doc.Transactions {
		if err := write("TRANSACTION", t.ID, t.AccountName, t.CategoryName,
			strconv.FormatInt(t.AmountCents, 10),
			t.CreatedAt.UTC().Format(time.RFC3339), strOrEmpty(t.Note)); err != nil {
			return err
		}
	}
	for _, b := range doc.Budgets {
		if err := write("BUDGET", b.ID,
			strconv.Itoa(b.Year), strconv.Itoa(b.Month), b.CategoryName,
			strconv.FormatInt(b.BudgetAmountCents, 10),
			strconv.FormatFloat(b.AlertThreshold, 'f', -1, 64)); err != nil {
			return err
		}
	}
	for _, g := range doc.SavingsGoals {
		date := ""
		if g.TargetDate != nil {
			date = g.TargetDate.UTC().Format("2006-01-02")
		}
		if err := write("SAVINGS", g.ID, g.Name,
			strconv.FormatInt(g.TargetAmountCents, 10),
			strconv.FormatInt(g.CurrentAmountCents, 10), date); err != nil {
			return err
		}
	}
	return nil
}

// WriteTransactionsCSV renders transactions as a flat spreadsheet-friendly
// table. Amounts are formatted in yuan for human readers; this file is not
// meant to be imported back.
func WriteTransactionsCSV(w io.Writer, doc *LedgerDocument) error {
	if _, err := io.WriteString(w, "时间,账户,分类,金额,备注\n"); err != nil {
		return err
	}
	for _, t := range doc.Transactions {
		fields := []string{
			t.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			importer.QuoteCSVField(t.AccountName),
			importer.QuoteCSVField(t.CategoryName),
			fmt.Sprintf("%.2f", float64(t.AmountCents)/100),
			importer.QuoteCSVField(strOrEmpty(t.Note)),
		}
		if _, err := io.WriteString(w, strings.Join(fields, ",")+"\n"); err != nil {
			return err
		}
	}
	return nil
}

func intOrEmpty(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

func strOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
