// Package equity derives owner equity and lifetime profit from ledger records.
package equity

import (
	"cmp"
	"slices"

	"ledgerpos/backend/internal/domain"
)

// Snapshot groups capital movements and profit distributions per owner,
// ordered by owner id.
func Snapshot(capital []domain.CapitalTransaction, distributions []domain.ProfitDistribution) []domain.OwnerEquity {
	byOwner := make(map[string]*domain.OwnerEquity)
	owner := func(id string) *domain.OwnerEquity {
		e, ok := byOwner[id]
		if !ok {
			e = &domain.OwnerEquity{OwnerID: id}
			byOwner[id] = e
		}
		return e
	}

	for _, tx := range capital {
		e := owner(tx.OwnerID)
		switch tx.Type {
		case domain.CapitalInvest:
			e.InvestedCents += tx.AmountCents
		case domain.CapitalWithdraw:
			e.WithdrawnCents += tx.AmountCents
		}
	}
	for _, dist := range distributions {
		owner(dist.OwnerID).ProfitShareCents += dist.AmountCents
	}

	out := make([]domain.OwnerEquity, 0, len(byOwner))
	for _, e := range byOwner {
		e.EquityCents = e.InvestedCents - e.WithdrawnCents + e.ProfitShareCents
		out = append(out, *e)
	}
	slices.SortFunc(out, func(a, b domain.OwnerEquity) int {
		return cmp.Compare(a.OwnerID, b.OwnerID)
	})
	return out
}

// Profit computes lifetime net profit over invoices that are not returned.
// Credit notes carry status Returned and are left out of both revenue and
// cost of goods.
func Profit(invoices []domain.Invoice, expenses []domain.Expense, distributedCents int64) domain.ProfitSummary {
	var summary domain.ProfitSummary
	for _, inv := range invoices {
		if inv.Status == domain.InvoiceStatusReturned {
			continue
		}
		summary.RevenueCents += inv.TotalCents
		for _, line := range inv.Items {
			summary.CostOfGoodsCents += line.CostCents * int64(line.Qty)
		}
	}
	for _, e := range expenses {
		summary.ExpensesCents += e.AmountCents
	}
	summary.NetProfitCents = summary.RevenueCents - summary.CostOfGoodsCents - summary.ExpensesCents
	summary.DistributedCents = distributedCents
	summary.AvailableCents = summary.NetProfitCents - distributedCents
	return summary
}
