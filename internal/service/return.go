package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/store"
)

// RecordReturn books a credit note against an existing sale and restocks the
// returned lines. Prices and costs are taken from the original bill.
func (s *Service) RecordReturn(ctx context.Context, req domain.ReturnRequest) (domain.InvoiceResponse, error) {
	companyID, err := s.company(req.CompanyID)
	if err != nil {
		return domain.InvoiceResponse{}, err
	}
	if len(req.Cart) == 0 {
		return domain.InvoiceResponse{}, ErrEmptyCart
	}
	billID := strings.TrimSpace(req.BillNumber)
	if billID == "" {
		return domain.InvoiceResponse{}, ErrUnknownBill
	}

	bill, err := s.repo.FindInvoiceByID(ctx, companyID, billID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.InvoiceResponse{}, fmt.Errorf("%w: %s", ErrUnknownBill, billID)
	}
	if err != nil {
		return domain.InvoiceResponse{}, err
	}
	if !bill.IsSale() || bill.Status == domain.InvoiceStatusReturned {
		return domain.InvoiceResponse{}, fmt.Errorf("%w: %s", ErrUnknownBill, billID)
	}

	sold := store.RequestedByProduct(bill.Items)
	billLines := make(map[string]domain.InvoiceLine, len(bill.Items))
	for _, line := range bill.Items {
		if _, ok := billLines[line.ProductID]; !ok {
			billLines[line.ProductID] = line
		}
	}

	alreadyReturned, err := s.repo.ReturnedQtyByBill(ctx, companyID, billID)
	if err != nil {
		return domain.InvoiceResponse{}, err
	}

	requested := make(map[string]int, len(req.Cart))
	lines := make([]domain.InvoiceLine, 0, len(req.Cart))
	adjustments := make([]domain.StockAdjustment, 0, len(req.Cart))
	for i, line := range req.Cart {
		productID := strings.TrimSpace(line.ProductID)
		if productID == "" || line.Qty < 1 {
			return domain.InvoiceResponse{}, &LineError{Line: i, ProductID: productID, Requested: line.Qty, Err: ErrInvalidInput}
		}
		original, ok := billLines[productID]
		if !ok {
			return domain.InvoiceResponse{}, &LineError{Line: i, ProductID: productID, Requested: line.Qty, Err: ErrItemNotInBill}
		}
		requested[productID] += line.Qty
		if alreadyReturned[productID]+requested[productID] > sold[productID] {
			return domain.InvoiceResponse{}, &LineError{
				Line:      i,
				ProductID: productID,
				Requested: requested[productID],
				Available: sold[productID] - alreadyReturned[productID],
				Err:       ErrExcessiveReturnQuantity,
			}
		}
		lines = append(lines, domain.InvoiceLine{
			ProductID:  productID,
			Name:       original.Name,
			PriceCents: original.PriceCents,
			CostCents:  original.CostCents,
			Qty:        line.Qty,
		})
		adjustments = append(adjustments, domain.StockAdjustment{ItemID: productID, Delta: line.Qty})
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return domain.InvoiceResponse{}, ErrMissingReason
	}

	channel := strings.TrimSpace(req.Meta.Channel)
	if channel == "" {
		channel = bill.Channel
	}
	customerName := strings.TrimSpace(req.Meta.CustomerName)
	if customerName == "" {
		customerName = bill.CustomerName
	}
	customerPhone := strings.TrimSpace(req.Meta.CustomerPhone)
	if customerPhone == "" {
		customerPhone = bill.CustomerPhone
	}
	date := s.transactionDate(req.Meta)
	creditNote := domain.Invoice{
		CompanyID:      companyID,
		Date:           date,
		Status:         domain.InvoiceStatusReturned,
		Type:           domain.InvoiceTypeCreditNote,
		Items:          lines,
		TotalCents:     -invoiceTotal(lines),
		CustomerName:   customerName,
		CustomerPhone:  customerPhone,
		Channel:        channel,
		BillNumber:     billID,
		Reason:         reason,
		IdempotencyKey: strings.TrimSpace(req.Meta.IdempotencyKey),
	}

	resp, err := s.withIdempotency(ctx, companyID, creditNote.IdempotencyKey, func() (*domain.Invoice, error) {
		created, err := s.repo.CommitTransaction(ctx, companyID, store.Commit{
			Invoice:     creditNote,
			Adjustments: adjustments,
			Move: domain.StockMove{
				Type:   domain.StockMoveIn,
				Items:  stockMoveLines(lines),
				Date:   date,
				Reason: domain.MoveReasonReturn,
			},
			Return: &store.ReturnGuard{BillID: billID, Limits: sold},
		})
		switch {
		case errors.Is(err, store.ErrReturnLimit):
			return nil, fmt.Errorf("%w: %w", ErrExcessiveReturnQuantity, err)
		case errors.Is(err, store.ErrNotFound):
			return nil, fmt.Errorf("%w: %s", ErrUnknownBill, billID)
		}
		return created, mapCommitError(err)
	})
	if err != nil {
		return domain.InvoiceResponse{}, err
	}

	if !resp.Duplicate {
		s.logger.Info("return recorded",
			zap.String("company_id", companyID),
			zap.String("invoice_id", resp.Invoice.ID),
			zap.String("bill_number", billID),
			zap.Int64("total_cents", resp.Invoice.TotalCents),
			zap.String("actor", actorName(ctx)),
		)
	}
	return resp, nil
}
