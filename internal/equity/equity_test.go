package equity

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"ledgerpos/backend/internal/domain"
)

func TestSnapshotGroupsByOwner(t *testing.T) {
	capital := []domain.CapitalTransaction{
		{OwnerID: "bob", Type: domain.CapitalInvest, AmountCents: 5000},
		{OwnerID: "alice", Type: domain.CapitalInvest, AmountCents: 10000},
		{OwnerID: "alice", Type: domain.CapitalWithdraw, AmountCents: 2500},
		{OwnerID: "bob", Type: domain.CapitalWithdraw, AmountCents: 8000},
	}
	distributions := []domain.ProfitDistribution{
		{OwnerID: "alice", AmountCents: 700},
		{OwnerID: "carol", AmountCents: 100},
	}

	got := Snapshot(capital, distributions)

	assert.Equal(t, []domain.OwnerEquity{
		{OwnerID: "alice", InvestedCents: 10000, WithdrawnCents: 2500, ProfitShareCents: 700, EquityCents: 8200},
		{OwnerID: "bob", InvestedCents: 5000, WithdrawnCents: 8000, EquityCents: -3000},
		{OwnerID: "carol", ProfitShareCents: 100, EquityCents: 100},
	}, got)
}

func TestSnapshotEmpty(t *testing.T) {
	assert.Empty(t, Snapshot(nil, nil))
}

func TestProfitSkipsReturnedInvoices(t *testing.T) {
	invoices := []domain.Invoice{
		{Type: domain.InvoiceTypeInvoice, Status: domain.InvoiceStatusPaid, TotalCents: 3000, Items: []domain.InvoiceLine{{Qty: 3, PriceCents: 1000, CostCents: 400}}},
		{Type: domain.InvoiceTypeCreditNote, Status: domain.InvoiceStatusReturned, TotalCents: -1000, Items: []domain.InvoiceLine{{Qty: 1, PriceCents: 1000, CostCents: 400}}},
		{Type: domain.InvoiceTypeInvoice, Status: domain.InvoiceStatusPaid, TotalCents: 500, Items: []domain.InvoiceLine{{Qty: 1, PriceCents: 500, CostCents: 200}}},
	}
	expenses := []domain.Expense{{AmountCents: 150}}

	got := Profit(invoices, expenses, 250)

	assert.Equal(t, domain.ProfitSummary{
		RevenueCents:     3500,
		CostOfGoodsCents: 1400,
		ExpensesCents:    150,
		NetProfitCents:   1950,
		DistributedCents: 250,
		AvailableCents:   1700,
	}, got)
}
