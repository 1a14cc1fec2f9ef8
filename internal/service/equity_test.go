package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerpos/backend/internal/cache"
	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/store"
	"ledgerpos/backend/internal/store/memory"
)

// seedProfit books a sale of 3 x 100 at cost 40 and an expense of 30, leaving
// 150 of available profit.
func seedProfit(t *testing.T, svc *Service) {
	t.Helper()
	ctx := context.Background()
	addItem(t, svc, "A", 10, 100, 40)
	_, err := svc.RecordSale(ctx, domain.SaleRequest{Cart: []domain.CartLine{{ProductID: "A", Qty: 3}}})
	require.NoError(t, err)
	_, err = svc.RecordExpense(ctx, company, domain.ExpenseRequest{Category: "rent", AmountCents: 30})
	require.NoError(t, err)
}

func TestAvailableProfit(t *testing.T) {
	svc, _ := newTestService(t)
	seedProfit(t, svc)

	summary, err := svc.AvailableProfit(context.Background(), company)
	require.NoError(t, err)
	assert.Equal(t, domain.ProfitSummary{
		RevenueCents:     300,
		CostOfGoodsCents: 120,
		ExpensesCents:    30,
		NetProfitCents:   150,
		AvailableCents:   150,
	}, summary)
}

func TestDistributeExactlyAvailableProfit(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedProfit(t, svc)

	dist, err := svc.DistributeProfit(ctx, company, domain.ProfitDistributionRequest{OwnerID: "owner-1", AmountCents: 150})
	require.NoError(t, err)
	assert.Equal(t, int64(150), dist.AmountCents)

	summary, err := svc.AvailableProfit(ctx, company)
	require.NoError(t, err)
	assert.Zero(t, summary.AvailableCents)
	assert.Equal(t, int64(150), summary.DistributedCents)

	_, err = svc.DistributeProfit(ctx, company, domain.ProfitDistributionRequest{OwnerID: "owner-1", AmountCents: 1})
	assert.ErrorIs(t, err, ErrInsufficientProfit)

	_, err = svc.DistributeProfit(ctx, company, domain.ProfitDistributionRequest{OwnerID: "owner-1", AmountCents: 0})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAvailableProfitCountsOnlyNonReturnedInvoices(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedProfit(t, svc)

	invoices, err := svc.ListInvoices(ctx, company, domain.InvoiceFilter{Type: domain.InvoiceTypeInvoice})
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	_, err = svc.RecordReturn(ctx, domain.ReturnRequest{
		BillNumber: invoices[0].ID, Cart: []domain.CartLine{{ProductID: "A", Qty: 2}}, Reason: "damaged",
	})
	require.NoError(t, err)

	summary, err := svc.AvailableProfit(ctx, company)
	require.NoError(t, err)
	assert.Equal(t, domain.ProfitSummary{
		RevenueCents:     300,
		CostOfGoodsCents: 120,
		ExpensesCents:    30,
		NetProfitCents:   150,
		AvailableCents:   150,
	}, summary)
}

func TestConcurrentDistributionsNeverOverspend(t *testing.T) {
	repo := memory.New()
	svc := New(repo, cache.NoopGuard{}, nil, company, WithDistributionRetries(50))
	seedProfit(t, svc)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.DistributeProfit(ctx, company, domain.ProfitDistributionRequest{OwnerID: "owner-1", AmountCents: 20})
			if err != nil && !errors.Is(err, ErrInsufficientProfit) && !errors.Is(err, store.ErrVersionConflict) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	summary, err := svc.AvailableProfit(ctx, company)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, summary.AvailableCents, int64(0))
	assert.LessOrEqual(t, summary.DistributedCents, int64(150))

	dists, err := svc.ListProfitDistributions(ctx, company)
	require.NoError(t, err)
	assert.Equal(t, int64(len(dists))*20, summary.DistributedCents)
}

func TestOwnerEquitySnapshot(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedProfit(t, svc)

	for _, req := range []domain.CapitalTransactionRequest{
		{OwnerID: "owner-2", Type: "invest", AmountCents: 5000},
		{OwnerID: "owner-1", Type: "INVEST", AmountCents: 10000},
		{OwnerID: "owner-1", Type: "withdraw", AmountCents: 2500},
	} {
		_, err := svc.RecordCapitalTransaction(ctx, company, req)
		require.NoError(t, err)
	}
	_, err := svc.RecordCapitalTransaction(ctx, company, domain.CapitalTransactionRequest{OwnerID: "owner-1", Type: "loan", AmountCents: 1})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.DistributeProfit(ctx, company, domain.ProfitDistributionRequest{OwnerID: "owner-1", AmountCents: 100})
	require.NoError(t, err)

	snapshot, err := svc.OwnerEquitySnapshot(ctx, company)
	require.NoError(t, err)
	require.Len(t, snapshot, 2)
	assert.Equal(t, domain.OwnerEquity{
		OwnerID:          "owner-1",
		InvestedCents:    10000,
		WithdrawnCents:   2500,
		ProfitShareCents: 100,
		EquityCents:      7600,
	}, snapshot[0])
	assert.Equal(t, "owner-2", snapshot[1].OwnerID)
	assert.Equal(t, int64(5000), snapshot[1].EquityCents)
}

func TestRecordExpenseValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RecordExpense(ctx, company, domain.ExpenseRequest{Category: " ", AmountCents: 10})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.RecordExpense(ctx, company, domain.ExpenseRequest{Category: "rent", AmountCents: 0})
	assert.ErrorIs(t, err, ErrInvalidInput)

	backdated := fixedNow.AddDate(0, -2, 0)
	created, err := svc.RecordExpense(ctx, company, domain.ExpenseRequest{Category: "rent", AmountCents: 10, Date: &backdated})
	require.NoError(t, err)
	assert.Equal(t, backdated, created.Date)
}

func TestDashboardThroughService(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	seedProfit(t, svc)

	lastMonth := time.Date(2026, time.February, 20, 12, 0, 0, 0, time.UTC)
	_, err := svc.RecordSale(ctx, domain.SaleRequest{
		Cart: []domain.CartLine{{ProductID: "A", Qty: 1}},
		Meta: domain.TransactionMeta{Channel: "Marketplace", Date: &lastMonth},
	})
	require.NoError(t, err)

	summary, err := svc.DashboardSummary(ctx, company, "3months")
	require.NoError(t, err)
	require.Len(t, summary.Buckets, 3)
	assert.Equal(t, []string{"Jan 26", "Feb 26", "Mar 26"},
		[]string{summary.Buckets[0].Label, summary.Buckets[1].Label, summary.Buckets[2].Label})
	assert.Equal(t, int64(100), summary.Buckets[1].SalesCents)
	assert.Equal(t, int64(300), summary.Buckets[2].SalesCents)
	assert.Equal(t, int64(400), summary.NetSalesCents)
	assert.Equal(t, int64(30), summary.ExpensesCents)
	assert.Equal(t, []domain.ChannelTotal{
		{Channel: "Marketplace", TotalCents: 100},
		{Channel: domain.DefaultChannel, TotalCents: 300},
	}, summary.Channels)

	_, err = svc.DashboardSummary(ctx, company, "fortnight")
	assert.ErrorIs(t, err, ErrInvalidInput)

	multi, err := svc.DashboardMultiView(ctx, company)
	require.NoError(t, err)
	assert.Len(t, multi.Monthly, 12)
	assert.Len(t, multi.Quarterly, 3)
	assert.Len(t, multi.HalfYearly, 2)
	assert.Equal(t, "Q1 2026", multi.Quarterly[2].Label)
	assert.Equal(t, int64(400), multi.Quarterly[2].SalesCents)
}
