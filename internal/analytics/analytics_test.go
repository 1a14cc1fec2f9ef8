package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerpos/backend/internal/domain"
)

var now = time.Date(2026, time.May, 15, 10, 0, 0, 0, time.UTC)

func labels(buckets []domain.Bucket) []string {
	out := make([]string, 0, len(buckets))
	for _, b := range buckets {
		out = append(out, b.Label)
	}
	return out
}

func sampleInvoices() []domain.Invoice {
	return []domain.Invoice{
		{ID: "s1", Type: domain.InvoiceTypeInvoice, TotalCents: 1000, Date: time.Date(2026, time.February, 10, 12, 0, 0, 0, time.UTC)},
		{ID: "r1", Type: domain.InvoiceTypeCreditNote, TotalCents: -300, Channel: "Instagram", Date: time.Date(2026, time.May, 1, 9, 0, 0, 0, time.UTC)},
		{ID: "old", Type: domain.InvoiceTypeInvoice, TotalCents: 5000, Date: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)},
	}
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("")
	require.NoError(t, err)
	assert.Equal(t, Window12Months, w)

	w, err = ParseWindow("quarter")
	require.NoError(t, err)
	assert.Equal(t, WindowQuarter, w)

	_, err = ParseWindow("weekly")
	assert.ErrorIs(t, err, ErrUnknownWindow)
}

func TestBucketLabels(t *testing.T) {
	assert.Equal(t, []string{"May 26"}, labels(Buckets(nil, WindowMonth, now)))
	assert.Equal(t, []string{"Mar 26", "Apr 26", "May 26"}, labels(Buckets(nil, Window3Months, now)))
	assert.Equal(t, []string{"Q4 2025", "Q1 2026", "Q2 2026"}, labels(Buckets(nil, WindowQuarter, now)))
	assert.Equal(t, []string{"H2 2025", "H1 2026"}, labels(Buckets(nil, WindowHalfYear, now)))

	months := labels(Buckets(nil, Window12Months, now))
	require.Len(t, months, 12)
	assert.Equal(t, "Jun 25", months[0])
	assert.Equal(t, "May 26", months[11])
}

func TestBucketsAcrossYearBoundary(t *testing.T) {
	jan := time.Date(2026, time.January, 3, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, []string{"Nov 25", "Dec 25", "Jan 26"}, labels(Buckets(nil, Window3Months, jan)))
	assert.Equal(t, []string{"Q3 2025", "Q4 2025", "Q1 2026"}, labels(Buckets(nil, WindowQuarter, jan)))
}

func TestBucketsSplitSalesAndReturns(t *testing.T) {
	buckets := Buckets(sampleInvoices(), Window12Months, now)

	byLabel := map[string]domain.BucketTotals{}
	for _, b := range buckets {
		byLabel[b.Label] = b.BucketTotals
	}
	assert.Equal(t, domain.BucketTotals{SalesCents: 1000}, byLabel["Feb 26"])
	assert.Equal(t, domain.BucketTotals{ReturnsCents: 300}, byLabel["May 26"])
	assert.Equal(t, domain.BucketTotals{}, byLabel["Jan 26"])
}

func TestMultiViewFansOut(t *testing.T) {
	view := MultiView(sampleInvoices(), now)

	assert.Len(t, view.Monthly, 12)
	assert.Equal(t, domain.Bucket{Label: "Q1 2026", BucketTotals: domain.BucketTotals{SalesCents: 1000}}, view.Quarterly[1])
	assert.Equal(t, domain.Bucket{Label: "Q2 2026", BucketTotals: domain.BucketTotals{ReturnsCents: 300}}, view.Quarterly[2])
	assert.Equal(t, domain.Bucket{Label: "H1 2026", BucketTotals: domain.BucketTotals{SalesCents: 1000, ReturnsCents: 300}}, view.HalfYearly[1])
	assert.Equal(t, []domain.ChannelTotal{
		{Channel: "Instagram", TotalCents: -300},
		{Channel: "Store", TotalCents: 1000},
	}, view.Channels)
}

func TestSummarizeWindowTotals(t *testing.T) {
	expenses := []domain.Expense{
		{ID: "e1", AmountCents: 200, Date: time.Date(2026, time.April, 2, 0, 0, 0, 0, time.UTC)},
		{ID: "e2", AmountCents: 900, Date: time.Date(2026, time.January, 2, 0, 0, 0, 0, time.UTC)},
	}
	summary := Summarize(sampleInvoices(), expenses, Window3Months, now)

	assert.Equal(t, "3months", summary.Window)
	assert.Equal(t, int64(0), summary.SalesCents)
	assert.Equal(t, int64(300), summary.ReturnsCents)
	assert.Equal(t, int64(-300), summary.NetSalesCents)
	assert.Equal(t, int64(200), summary.ExpensesCents)
	assert.Equal(t, []domain.ChannelTotal{{Channel: "Instagram", TotalCents: -300}}, summary.Channels)
}

func TestBucketsUseCallerLocation(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*60*60)
	localNow := time.Date(2026, time.June, 1, 1, 0, 0, 0, loc)
	// 2026-05-31 20:00 UTC is already June in UTC+7.
	inv := domain.Invoice{Type: domain.InvoiceTypeInvoice, TotalCents: 100, Date: time.Date(2026, time.May, 31, 20, 0, 0, 0, time.UTC)}

	buckets := Buckets([]domain.Invoice{inv}, WindowMonth, localNow)
	require.Len(t, buckets, 1)
	assert.Equal(t, "Jun 26", buckets[0].Label)
	assert.Equal(t, int64(100), buckets[0].SalesCents)
}
