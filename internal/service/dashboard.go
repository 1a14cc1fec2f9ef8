package service

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"ledgerpos/backend/internal/analytics"
	"ledgerpos/backend/internal/domain"
)

func (s *Service) DashboardSummary(ctx context.Context, companyID string, window string) (domain.DashboardSummary, error) {
	w, err := analytics.ParseWindow(window)
	if err != nil {
		return domain.DashboardSummary{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	companyID, err = s.company(companyID)
	if err != nil {
		return domain.DashboardSummary{}, err
	}

	var (
		invoices []domain.Invoice
		expenses []domain.Expense
		items    []domain.InventoryItem
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		invoices, err = s.repo.ListInvoices(gctx, companyID, domain.InvoiceFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = s.repo.ListExpenses(gctx, companyID)
		return err
	})
	g.Go(func() error {
		var err error
		items, err = s.repo.ListInventory(gctx, companyID)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.DashboardSummary{}, err
	}

	summary := analytics.Summarize(invoices, expenses, w, s.now().In(s.loc))
	summary.InventoryValueCents = analytics.StockValue(items)
	return summary, nil
}

func (s *Service) DashboardMultiView(ctx context.Context, companyID string) (domain.MultiViewSummary, error) {
	companyID, err := s.company(companyID)
	if err != nil {
		return domain.MultiViewSummary{}, err
	}
	invoices, err := s.repo.ListInvoices(ctx, companyID, domain.InvoiceFilter{})
	if err != nil {
		return domain.MultiViewSummary{}, err
	}
	return analytics.MultiView(invoices, s.now().In(s.loc)), nil
}

func (s *Service) InventoryReport(ctx context.Context, companyID string) (domain.InventoryReport, error) {
	companyID, err := s.company(companyID)
	if err != nil {
		return domain.InventoryReport{}, err
	}
	items, err := s.repo.ListInventory(ctx, companyID)
	if err != nil {
		return domain.InventoryReport{}, err
	}
	return analytics.Inventory(items, s.now()), nil
}

// SalesReport aggregates sale invoices over period (all, today, week, month
// or year).
func (s *Service) SalesReport(ctx context.Context, companyID string, period string) (domain.InvoiceReport, error) {
	return s.invoiceReport(ctx, companyID, domain.InvoiceTypeInvoice, period)
}

// ReturnsReport aggregates credit notes over period.
func (s *Service) ReturnsReport(ctx context.Context, companyID string, period string) (domain.InvoiceReport, error) {
	return s.invoiceReport(ctx, companyID, domain.InvoiceTypeCreditNote, period)
}

func (s *Service) invoiceReport(ctx context.Context, companyID string, invoiceType string, period string) (domain.InvoiceReport, error) {
	p, err := analytics.ParsePeriod(period)
	if err != nil {
		return domain.InvoiceReport{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	companyID, err = s.company(companyID)
	if err != nil {
		return domain.InvoiceReport{}, err
	}
	now := s.now().In(s.loc)
	invoices, err := s.repo.ListInvoices(ctx, companyID, domain.InvoiceFilter{
		Type: invoiceType,
		From: analytics.PeriodStart(p, now),
	})
	if err != nil {
		return domain.InvoiceReport{}, err
	}
	return analytics.SummarizeInvoices(invoices, invoiceType, p, now), nil
}
