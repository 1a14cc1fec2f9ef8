package analytics

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"

	"ledgerpos/backend/internal/domain"
)

// ReportPeriod selects how far back a sales or returns report looks.
type ReportPeriod string

const (
	PeriodAll   ReportPeriod = "all"
	PeriodToday ReportPeriod = "today"
	PeriodWeek  ReportPeriod = "week"
	PeriodMonth ReportPeriod = "month"
	PeriodYear  ReportPeriod = "year"
)

var ErrUnknownPeriod = errors.New("unknown report period")

func ParsePeriod(raw string) (ReportPeriod, error) {
	switch p := ReportPeriod(raw); p {
	case "":
		return PeriodAll, nil
	case PeriodAll, PeriodToday, PeriodWeek, PeriodMonth, PeriodYear:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, raw)
	}
}

// PeriodStart returns the inclusive lower bound of p, or nil for PeriodAll.
// Today starts at local midnight; the other periods trail now.
func PeriodStart(p ReportPeriod, now time.Time) *time.Time {
	var start time.Time
	switch p {
	case PeriodToday:
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case PeriodWeek:
		start = now.AddDate(0, 0, -7)
	case PeriodMonth:
		start = now.AddDate(0, -1, 0)
	case PeriodYear:
		start = now.AddDate(-1, 0, 0)
	default:
		return nil
	}
	return &start
}

// SummarizeInvoices counts the invoices and averages their absolute totals.
func SummarizeInvoices(invoices []domain.Invoice, invoiceType string, p ReportPeriod, now time.Time) domain.InvoiceReport {
	report := domain.InvoiceReport{
		Type:     invoiceType,
		Period:   string(p),
		From:     PeriodStart(p, now),
		Invoices: make([]domain.Invoice, 0, len(invoices)),
	}
	for _, inv := range invoices {
		if inv.Type != invoiceType {
			continue
		}
		if report.From != nil && inv.Date.Before(*report.From) {
			continue
		}
		report.Count++
		report.TotalCents += abs(inv.TotalCents)
		report.Invoices = append(report.Invoices, inv)
	}
	if report.Count > 0 {
		report.AverageCents = report.TotalCents / int64(report.Count)
	}
	return report
}

// StockValue prices every unit on hand at its selling price.
func StockValue(items []domain.InventoryItem) int64 {
	total := int64(0)
	for _, item := range items {
		total += item.PriceCents * int64(item.Quantity)
	}
	return total
}

// Inventory builds the stock report. Item lists are ordered by name then id.
func Inventory(items []domain.InventoryItem, now time.Time) domain.InventoryReport {
	report := domain.InventoryReport{
		GeneratedAt:     now,
		TotalProducts:   len(items),
		StockValueCents: StockValue(items),
		LowStock:        make([]domain.InventoryItem, 0),
		OutOfStock:      make([]domain.InventoryItem, 0),
	}
	for _, item := range items {
		report.TotalUnits += item.Quantity
		switch {
		case item.Quantity == 0:
			report.OutOfStock = append(report.OutOfStock, item)
		case item.Quantity < domain.LowStockThreshold:
			report.LowStock = append(report.LowStock, item)
		}
	}
	byName := func(a, b domain.InventoryItem) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	}
	slices.SortFunc(report.LowStock, byName)
	slices.SortFunc(report.OutOfStock, byName)
	report.LowStockCount = len(report.LowStock)
	report.OutOfStockCount = len(report.OutOfStock)
	return report
}
