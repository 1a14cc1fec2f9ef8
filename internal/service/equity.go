package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/equity"
	"ledgerpos/backend/internal/store"
)

func (s *Service) RecordCapitalTransaction(ctx context.Context, companyID string, req domain.CapitalTransactionRequest) (domain.CapitalTransaction, error) {
	companyID, err := s.company(companyID)
	if err != nil {
		return domain.CapitalTransaction{}, err
	}
	req.OwnerID = strings.TrimSpace(req.OwnerID)
	req.Type = strings.ToLower(strings.TrimSpace(req.Type))
	if req.OwnerID == "" || req.AmountCents < 1 {
		return domain.CapitalTransaction{}, ErrInvalidInput
	}
	if req.Type != domain.CapitalInvest && req.Type != domain.CapitalWithdraw {
		return domain.CapitalTransaction{}, fmt.Errorf("%w: capital type %q", ErrInvalidInput, req.Type)
	}

	created, err := s.repo.CreateCapitalTransaction(ctx, companyID, domain.CapitalTransaction{
		OwnerID:     req.OwnerID,
		Type:        req.Type,
		AmountCents: req.AmountCents,
		Date:        s.now(),
		Notes:       strings.TrimSpace(req.Notes),
	})
	if err != nil {
		return domain.CapitalTransaction{}, err
	}
	s.logger.Info("capital transaction recorded",
		zap.String("company_id", companyID),
		zap.String("owner_id", created.OwnerID),
		zap.String("type", created.Type),
		zap.Int64("amount_cents", created.AmountCents),
	)
	return *created, nil
}

func (s *Service) ListCapitalTransactions(ctx context.Context, companyID string) ([]domain.CapitalTransaction, error) {
	companyID, err := s.company(companyID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListCapitalTransactions(ctx, companyID)
}

func (s *Service) ListProfitDistributions(ctx context.Context, companyID string) ([]domain.ProfitDistribution, error) {
	companyID, err := s.company(companyID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListProfitDistributions(ctx, companyID)
}

// OwnerEquitySnapshot reads every capital movement and distribution afresh.
func (s *Service) OwnerEquitySnapshot(ctx context.Context, companyID string) ([]domain.OwnerEquity, error) {
	companyID, err := s.company(companyID)
	if err != nil {
		return nil, err
	}
	capital, err := s.repo.ListCapitalTransactions(ctx, companyID)
	if err != nil {
		return nil, err
	}
	distributions, err := s.repo.ListProfitDistributions(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return equity.Snapshot(capital, distributions), nil
}

func (s *Service) AvailableProfit(ctx context.Context, companyID string) (domain.ProfitSummary, error) {
	companyID, err := s.company(companyID)
	if err != nil {
		return domain.ProfitSummary{}, err
	}
	summary, _, err := s.profitSnapshot(ctx, companyID)
	return summary, err
}

// profitSnapshot reads the distribution ledger, every invoice and every
// expense concurrently and derives the current profit position.
func (s *Service) profitSnapshot(ctx context.Context, companyID string) (domain.ProfitSummary, domain.DistributionLedger, error) {
	var (
		ledger   domain.DistributionLedger
		invoices []domain.Invoice
		expenses []domain.Expense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ledger, err = s.repo.GetDistributionLedger(gctx, companyID)
		return err
	})
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
	if err := g.Wait(); err != nil {
		return domain.ProfitSummary{}, domain.DistributionLedger{}, err
	}
	return equity.Profit(invoices, expenses, ledger.DistributedCents), ledger, nil
}

// DistributeProfit pays amount to owner only while it fits within available
// profit. The ledger version is compared-and-swapped; on a concurrent
// distribution the check is redone against fresh totals.
func (s *Service) DistributeProfit(ctx context.Context, companyID string, req domain.ProfitDistributionRequest) (domain.ProfitDistribution, error) {
	companyID, err := s.company(companyID)
	if err != nil {
		return domain.ProfitDistribution{}, err
	}
	req.OwnerID = strings.TrimSpace(req.OwnerID)
	if req.OwnerID == "" || req.AmountCents < 1 {
		return domain.ProfitDistribution{}, ErrInvalidInput
	}

	for attempt := 1; attempt <= s.distributionRetries; attempt++ {
		summary, ledger, err := s.profitSnapshot(ctx, companyID)
		if err != nil {
			return domain.ProfitDistribution{}, err
		}
		if req.AmountCents > summary.AvailableCents {
			return domain.ProfitDistribution{}, fmt.Errorf("%w: requested %d, available %d",
				ErrInsufficientProfit, req.AmountCents, summary.AvailableCents)
		}

		created, err := s.repo.AppendProfitDistribution(ctx, companyID, domain.ProfitDistribution{
			OwnerID:     req.OwnerID,
			AmountCents: req.AmountCents,
			Date:        s.now(),
			Notes:       strings.TrimSpace(req.Notes),
		}, ledger.Version)
		if errors.Is(err, store.ErrVersionConflict) {
			s.logger.Debug("distribution ledger moved, retrying",
				zap.String("company_id", companyID), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return domain.ProfitDistribution{}, err
		}

		s.logger.Info("profit distributed",
			zap.String("company_id", companyID),
			zap.String("owner_id", created.OwnerID),
			zap.Int64("amount_cents", created.AmountCents),
		)
		return *created, nil
	}
	return domain.ProfitDistribution{}, fmt.Errorf("distribute profit after %d attempts: %w", s.distributionRetries, store.ErrVersionConflict)
}

func (s *Service) RecordExpense(ctx context.Context, companyID string, req domain.ExpenseRequest) (domain.Expense, error) {
	companyID, err := s.company(companyID)
	if err != nil {
		return domain.Expense{}, err
	}
	req.Category = strings.TrimSpace(req.Category)
	if req.Category == "" || req.AmountCents < 1 {
		return domain.Expense{}, ErrInvalidInput
	}
	date := s.now()
	if req.Date != nil && !req.Date.IsZero() {
		date = req.Date.UTC()
	}

	created, err := s.repo.CreateExpense(ctx, companyID, domain.Expense{
		Category:    req.Category,
		Description: strings.TrimSpace(req.Description),
		AmountCents: req.AmountCents,
		Date:        date,
	})
	if err != nil {
		return domain.Expense{}, err
	}
	s.logger.Info("expense recorded",
		zap.String("company_id", companyID),
		zap.String("category", created.Category),
		zap.Int64("amount_cents", created.AmountCents),
	)
	return *created, nil
}

func (s *Service) ListExpenses(ctx context.Context, companyID string) ([]domain.Expense, error) {
	companyID, err := s.company(companyID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListExpenses(ctx, companyID)
}
