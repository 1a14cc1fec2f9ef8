// Package analytics buckets ledger invoices into calendar periods. Every
// function is pure: callers pass the records and the current time.
package analytics

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"

	"ledgerpos/backend/internal/domain"
)

type Window string

const (
	WindowMonth    Window = "1month"
	Window3Months  Window = "3months"
	Window6Months  Window = "6months"
	Window12Months Window = "12months"
	WindowQuarter  Window = "quarter"
	WindowHalfYear Window = "halfyear"
)

const DefaultWindow = Window12Months

const monthLabelStyle = "Jan 06"

var ErrUnknownWindow = errors.New("unknown window")

// ParseWindow accepts the window names used by the dashboard. Empty selects
// the twelve month view.
func ParseWindow(raw string) (Window, error) {
	switch w := Window(raw); w {
	case "":
		return DefaultWindow, nil
	case WindowMonth, Window3Months, Window6Months, Window12Months, WindowQuarter, WindowHalfYear:
		return w, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownWindow, raw)
	}
}

type period struct {
	label string
	start time.Time
	end   time.Time
}

func (p period) contains(t time.Time) bool {
	return !t.Before(p.start) && t.Before(p.end)
}

// periods returns the window's buckets ordered oldest to newest. Calendar
// boundaries are taken in now's location.
func periods(w Window, now time.Time) []period {
	switch w {
	case WindowMonth:
		return trailingMonths(now, 1)
	case Window3Months:
		return trailingMonths(now, 3)
	case Window6Months:
		return trailingMonths(now, 6)
	case WindowQuarter:
		return trailingSpans(now, 3, 3, func(start time.Time) string {
			return fmt.Sprintf("Q%d %d", (int(start.Month())-1)/3+1, start.Year())
		})
	case WindowHalfYear:
		return trailingSpans(now, 6, 2, func(start time.Time) string {
			return fmt.Sprintf("H%d %d", (int(start.Month())-1)/6+1, start.Year())
		})
	default:
		return trailingMonths(now, 12)
	}
}

func trailingMonths(now time.Time, n int) []period {
	return trailingSpans(now, 1, n, func(start time.Time) string {
		return start.Format(monthLabelStyle)
	})
}

// trailingSpans builds n consecutive spans of months each, the last one
// containing now. Spans are aligned to multiples of months within the year.
func trailingSpans(now time.Time, months int, n int, label func(time.Time) string) []period {
	loc := now.Location()
	first := ((int(now.Month())-1)/months)*months + 1
	current := time.Date(now.Year(), time.Month(first), 1, 0, 0, 0, 0, loc)

	out := make([]period, 0, n)
	for i := n - 1; i >= 0; i-- {
		start := current.AddDate(0, -months*i, 0)
		out = append(out, period{
			label: label(start),
			start: start,
			end:   start.AddDate(0, months, 0),
		})
	}
	return out
}

// Buckets sums sales and returns per period. Invoices outside every period
// are skipped.
func Buckets(invoices []domain.Invoice, w Window, now time.Time) []domain.Bucket {
	return fill(periods(w, now), invoices)
}

func fill(ps []period, invoices []domain.Invoice) []domain.Bucket {
	out := make([]domain.Bucket, len(ps))
	for i, p := range ps {
		out[i].Label = p.label
	}
	for _, inv := range invoices {
		for i, p := range ps {
			if !p.contains(inv.Date) {
				continue
			}
			addInvoice(&out[i].BucketTotals, inv)
			break
		}
	}
	return out
}

func addInvoice(totals *domain.BucketTotals, inv domain.Invoice) {
	switch inv.Type {
	case domain.InvoiceTypeInvoice:
		totals.SalesCents += inv.TotalCents
	case domain.InvoiceTypeCreditNote:
		totals.ReturnsCents += abs(inv.TotalCents)
	}
}

// Summarize produces the dashboard view for one window.
func Summarize(invoices []domain.Invoice, expenses []domain.Expense, w Window, now time.Time) domain.DashboardSummary {
	ps := periods(w, now)
	summary := domain.DashboardSummary{
		Window:      string(w),
		GeneratedAt: now,
		Buckets:     fill(ps, invoices),
	}
	for _, b := range summary.Buckets {
		summary.SalesCents += b.SalesCents
		summary.ReturnsCents += b.ReturnsCents
	}
	summary.NetSalesCents = summary.SalesCents - summary.ReturnsCents

	span := period{start: ps[0].start, end: ps[len(ps)-1].end}
	for _, e := range expenses {
		if span.contains(e.Date) {
			summary.ExpensesCents += e.AmountCents
		}
	}
	summary.Channels = channelTotals(invoices, span)
	return summary
}

// MultiView fans every invoice out to the month, quarter and half-year views
// at once.
func MultiView(invoices []domain.Invoice, now time.Time) domain.MultiViewSummary {
	months := periods(Window12Months, now)
	return domain.MultiViewSummary{
		GeneratedAt: now,
		Monthly:     fill(months, invoices),
		Quarterly:   fill(periods(WindowQuarter, now), invoices),
		HalfYearly:  fill(periods(WindowHalfYear, now), invoices),
		Channels:    channelTotals(invoices, period{start: months[0].start, end: months[len(months)-1].end}),
	}
}

// channelTotals sums the signed invoice total per sales channel.
func channelTotals(invoices []domain.Invoice, span period) []domain.ChannelTotal {
	byChannel := make(map[string]int64)
	for _, inv := range invoices {
		if !span.contains(inv.Date) {
			continue
		}
		channel := inv.Channel
		if channel == "" {
			channel = domain.DefaultChannel
		}
		byChannel[channel] += inv.TotalCents
	}
	out := make([]domain.ChannelTotal, 0, len(byChannel))
	for channel, total := range byChannel {
		out = append(out, domain.ChannelTotal{Channel: channel, TotalCents: total})
	}
	slices.SortFunc(out, func(a, b domain.ChannelTotal) int {
		return cmp.Compare(a.Channel, b.Channel)
	})
	return out
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
