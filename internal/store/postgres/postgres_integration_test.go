package postgres

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/store"
)

func newIntegrationStore(t *testing.T) (*Store, string) {
	t.Helper()
	databaseURL := os.Getenv("LEDGERPOS_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set LEDGERPOS_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(ctx))

	companyID := fmt.Sprintf("it-%d", time.Now().UnixNano())
	t.Cleanup(func() {
		for _, table := range []string{"inventory", "invoices", "stock_moves", "capital_transactions", "profit_distributions", "distribution_ledgers", "expenses", "retired_idempotency_keys"} {
			_, _ = s.pool.Exec(ctx, `DELETE FROM `+table+` WHERE company_id = $1`, companyID)
		}
		_ = s.Close()
	})
	return s, companyID
}

func TestConcurrentSalesNeverOversell(t *testing.T) {
	s, companyID := newIntegrationStore(t)
	ctx := context.Background()

	_, err := s.CreateInventoryItem(ctx, companyID, domain.InventoryItem{ID: "A", Name: "A", Quantity: 10, PriceCents: 500, CostCents: 200}, nil)
	require.NoError(t, err)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		applied int
	)
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CommitTransaction(ctx, companyID, store.Commit{
				Invoice: domain.Invoice{
					Type: domain.InvoiceTypeInvoice, Status: domain.InvoiceStatusPaid, Date: time.Now().UTC(),
					Items: []domain.InvoiceLine{{ProductID: "A", Qty: 1, PriceCents: 500}}, TotalCents: 500, Channel: domain.DefaultChannel,
				},
				Adjustments: []domain.StockAdjustment{{ItemID: "A", Delta: -1}},
				Move:        domain.StockMove{Type: domain.StockMoveOut, Reason: domain.MoveReasonSale, Items: []domain.StockMoveLine{{ProductID: "A", Qty: 1}}},
			})
			if err == nil {
				mu.Lock()
				applied++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	item, err := s.GetInventoryItem(ctx, companyID, "A")
	require.NoError(t, err)
	assert.Equal(t, 10, applied)
	assert.Equal(t, 0, item.Quantity)

	moves, err := s.ListStockMoves(ctx, companyID, domain.StockMoveFilter{ProductID: "A"})
	require.NoError(t, err)
	assert.Len(t, moves, 10)
}

func TestReturnGuardAndDeleteSale(t *testing.T) {
	s, companyID := newIntegrationStore(t)
	ctx := context.Background()

	_, err := s.CreateInventoryItem(ctx, companyID, domain.InventoryItem{ID: "A", Name: "A", Quantity: 5, PriceCents: 500, CostCents: 200}, nil)
	require.NoError(t, err)

	sale, err := s.CommitTransaction(ctx, companyID, store.Commit{
		Invoice: domain.Invoice{
			Type: domain.InvoiceTypeInvoice, Status: domain.InvoiceStatusPaid, Date: time.Now().UTC(),
			Items: []domain.InvoiceLine{{ProductID: "A", Qty: 3, PriceCents: 500}}, TotalCents: 1500, Channel: domain.DefaultChannel,
			IdempotencyKey: companyID + "-sale",
		},
		Adjustments: []domain.StockAdjustment{{ItemID: "A", Delta: -3}},
		Move:        domain.StockMove{Type: domain.StockMoveOut, Reason: domain.MoveReasonSale},
	})
	require.NoError(t, err)

	found, err := s.FindInvoiceByIdempotency(ctx, companyID, companyID+"-sale")
	require.NoError(t, err)
	assert.Equal(t, sale.ID, found.ID)

	returnCommit := func(qty int) error {
		_, err := s.CommitTransaction(ctx, companyID, store.Commit{
			Invoice: domain.Invoice{
				Type: domain.InvoiceTypeCreditNote, Status: domain.InvoiceStatusReturned, Date: time.Now().UTC(),
				Items: []domain.InvoiceLine{{ProductID: "A", Qty: qty}}, BillNumber: sale.ID, Reason: "damaged",
			},
			Adjustments: []domain.StockAdjustment{{ItemID: "A", Delta: qty}},
			Move:        domain.StockMove{Type: domain.StockMoveIn, Reason: domain.MoveReasonReturn},
			Return:      &store.ReturnGuard{BillID: sale.ID, Limits: map[string]int{"A": 3}},
		})
		return err
	}
	require.NoError(t, returnCommit(2))
	assert.ErrorIs(t, returnCommit(2), store.ErrReturnLimit)

	_, err = s.DeleteSale(ctx, companyID, sale.ID, domain.StockMove{Type: domain.StockMoveIn, Reason: domain.MoveReasonBillDeleted})
	assert.ErrorIs(t, err, store.ErrInvalidRecord)

	item, err := s.GetInventoryItem(ctx, companyID, "A")
	require.NoError(t, err)
	assert.Equal(t, 4, item.Quantity)
}

func TestDeleteSaleRetiresIdempotencyKey(t *testing.T) {
	s, companyID := newIntegrationStore(t)
	ctx := context.Background()

	_, err := s.CreateInventoryItem(ctx, companyID, domain.InventoryItem{ID: "A", Name: "A", Quantity: 5, PriceCents: 500, CostCents: 200}, nil)
	require.NoError(t, err)

	commit := store.Commit{
		Invoice: domain.Invoice{
			Type: domain.InvoiceTypeInvoice, Status: domain.InvoiceStatusPaid, Date: time.Now().UTC(),
			Items: []domain.InvoiceLine{{ProductID: "A", Qty: 1, PriceCents: 500}}, TotalCents: 500, Channel: domain.DefaultChannel,
			IdempotencyKey: "till-7",
		},
		Adjustments: []domain.StockAdjustment{{ItemID: "A", Delta: -1}},
		Move:        domain.StockMove{Type: domain.StockMoveOut, Reason: domain.MoveReasonSale},
	}
	sale, err := s.CommitTransaction(ctx, companyID, commit)
	require.NoError(t, err)

	_, err = s.DeleteSale(ctx, companyID, sale.ID, domain.StockMove{Type: domain.StockMoveIn, Reason: domain.MoveReasonBillDeleted})
	require.NoError(t, err)

	_, err = s.FindInvoiceByIdempotency(ctx, companyID, "till-7")
	assert.ErrorIs(t, err, store.ErrKeyRetired)
	_, err = s.CommitTransaction(ctx, companyID, commit)
	assert.ErrorIs(t, err, store.ErrKeyRetired)

	item, err := s.GetInventoryItem(ctx, companyID, "A")
	require.NoError(t, err)
	assert.Equal(t, 5, item.Quantity)
}

func TestAppendProfitDistributionVersionConflict(t *testing.T) {
	s, companyID := newIntegrationStore(t)
	ctx := context.Background()

	_, err := s.AppendProfitDistribution(ctx, companyID, domain.ProfitDistribution{OwnerID: "o1", AmountCents: 100}, 0)
	require.NoError(t, err)
	_, err = s.AppendProfitDistribution(ctx, companyID, domain.ProfitDistribution{OwnerID: "o1", AmountCents: 100}, 0)
	assert.ErrorIs(t, err, store.ErrVersionConflict)

	ledger, err := s.GetDistributionLedger(ctx, companyID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), ledger.DistributedCents)
	assert.Equal(t, int64(1), ledger.Version)
}
