package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerpos/backend/internal/domain"
)

func TestInventoryReport(t *testing.T) {
	items := []domain.InventoryItem{
		{ID: "b", Name: "Bag", Quantity: 12, PriceCents: 500},
		{ID: "m", Name: "Mug", Quantity: 3, PriceCents: 900},
		{ID: "c", Name: "Cap", Quantity: 0, PriceCents: 1800},
		{ID: "a", Name: "Apron", Quantity: 9, PriceCents: 100},
		{ID: "t", Name: "Tee", Quantity: 10, PriceCents: 1500},
	}

	report := Inventory(items, now)

	assert.Equal(t, 5, report.TotalProducts)
	assert.Equal(t, 34, report.TotalUnits)
	assert.Equal(t, int64(12*500+3*900+9*100+10*1500), report.StockValueCents)
	assert.Equal(t, 2, report.LowStockCount)
	assert.Equal(t, 1, report.OutOfStockCount)
	require.Len(t, report.LowStock, 2)
	assert.Equal(t, "a", report.LowStock[0].ID)
	assert.Equal(t, "m", report.LowStock[1].ID)
	assert.Equal(t, "c", report.OutOfStock[0].ID)
}

func TestInventoryReportEmpty(t *testing.T) {
	report := Inventory(nil, now)
	assert.Zero(t, report.StockValueCents)
	assert.NotNil(t, report.LowStock)
	assert.NotNil(t, report.OutOfStock)
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("")
	require.NoError(t, err)
	assert.Equal(t, PeriodAll, p)

	p, err = ParsePeriod("week")
	require.NoError(t, err)
	assert.Equal(t, PeriodWeek, p)

	_, err = ParsePeriod("decade")
	assert.ErrorIs(t, err, ErrUnknownPeriod)
}

func TestPeriodStart(t *testing.T) {
	assert.Nil(t, PeriodStart(PeriodAll, now))
	assert.Equal(t, time.Date(2026, time.May, 15, 0, 0, 0, 0, time.UTC), *PeriodStart(PeriodToday, now))
	assert.Equal(t, time.Date(2026, time.May, 8, 10, 0, 0, 0, time.UTC), *PeriodStart(PeriodWeek, now))
	assert.Equal(t, time.Date(2026, time.April, 15, 10, 0, 0, 0, time.UTC), *PeriodStart(PeriodMonth, now))
	assert.Equal(t, time.Date(2025, time.May, 15, 10, 0, 0, 0, time.UTC), *PeriodStart(PeriodYear, now))
}

func TestSummarizeInvoicesPerPeriod(t *testing.T) {
	invoices := []domain.Invoice{
		{ID: "s1", Type: domain.InvoiceTypeInvoice, TotalCents: 1000, Date: now.Add(-time.Hour)},
		{ID: "s2", Type: domain.InvoiceTypeInvoice, TotalCents: 501, Date: now.AddDate(0, 0, -3)},
		{ID: "s3", Type: domain.InvoiceTypeInvoice, TotalCents: 4000, Date: now.AddDate(0, -2, 0)},
		{ID: "r1", Type: domain.InvoiceTypeCreditNote, TotalCents: -300, Date: now.AddDate(0, 0, -1)},
		{ID: "r2", Type: domain.InvoiceTypeCreditNote, TotalCents: -100, Date: now.AddDate(0, 0, -2)},
	}

	today := SummarizeInvoices(invoices, domain.InvoiceTypeInvoice, PeriodToday, now)
	assert.Equal(t, 1, today.Count)
	assert.Equal(t, int64(1000), today.TotalCents)

	week := SummarizeInvoices(invoices, domain.InvoiceTypeInvoice, PeriodWeek, now)
	assert.Equal(t, 2, week.Count)
	assert.Equal(t, int64(1501), week.TotalCents)
	assert.Equal(t, int64(750), week.AverageCents)

	all := SummarizeInvoices(invoices, domain.InvoiceTypeInvoice, PeriodAll, now)
	assert.Equal(t, 3, all.Count)
	assert.Nil(t, all.From)

	returns := SummarizeInvoices(invoices, domain.InvoiceTypeCreditNote, PeriodMonth, now)
	assert.Equal(t, 2, returns.Count)
	assert.Equal(t, int64(400), returns.TotalCents)
	assert.Equal(t, int64(200), returns.AverageCents)
	assert.Len(t, returns.Invoices, 2)
}

func TestSummarizeInvoicesEmpty(t *testing.T) {
	report := SummarizeInvoices(nil, domain.InvoiceTypeInvoice, PeriodYear, now)
	assert.Zero(t, report.Count)
	assert.Zero(t, report.AverageCents)
	assert.Empty(t, report.Invoices)
}
