package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/store"
)

// RecordSale validates the cart against current stock and commits the
// invoice, the stock decrements and the Sale stock move as one group.
func (s *Service) RecordSale(ctx context.Context, req domain.SaleRequest) (domain.InvoiceResponse, error) {
	companyID, err := s.company(req.CompanyID)
	if err != nil {
		return domain.InvoiceResponse{}, err
	}
	if len(req.Cart) == 0 {
		return domain.InvoiceResponse{}, ErrEmptyCart
	}

	cart := make([]domain.CartLine, len(req.Cart))
	ids := make([]string, 0, len(req.Cart))
	for i, line := range req.Cart {
		line.ProductID = strings.TrimSpace(line.ProductID)
		cart[i] = line
		if line.ProductID == "" || line.Qty < 1 || line.PriceCents < 0 || line.CostCents < 0 {
			return domain.InvoiceResponse{}, &LineError{Line: i, ProductID: line.ProductID, Requested: line.Qty, Err: ErrInvalidInput}
		}
		ids = append(ids, line.ProductID)
	}

	items, err := s.repo.GetInventoryItems(ctx, companyID, ids)
	if err != nil {
		return domain.InvoiceResponse{}, err
	}

	requested := make(map[string]int, len(cart))
	firstLine := make(map[string]int, len(cart))
	for i, line := range cart {
		if _, ok := items[line.ProductID]; !ok {
			return domain.InvoiceResponse{}, &LineError{Line: i, ProductID: line.ProductID, Requested: line.Qty, Err: store.ErrNotFound}
		}
		if _, seen := firstLine[line.ProductID]; !seen {
			firstLine[line.ProductID] = i
		}
		requested[line.ProductID] += line.Qty
	}
	for i, line := range cart {
		if firstLine[line.ProductID] != i {
			continue
		}
		if available := items[line.ProductID].Quantity; available < requested[line.ProductID] {
			return domain.InvoiceResponse{}, &LineError{
				Line:      i,
				ProductID: line.ProductID,
				Requested: requested[line.ProductID],
				Available: available,
				Err:       ErrInsufficientStock,
			}
		}
	}

	lines := make([]domain.InvoiceLine, 0, len(cart))
	adjustments := make([]domain.StockAdjustment, 0, len(cart))
	for _, line := range cart {
		item := items[line.ProductID]
		price := item.PriceCents
		if line.PriceCents > 0 {
			price = line.PriceCents
		}
		cost := item.CostCents
		if line.CostCents > 0 {
			cost = line.CostCents
		}
		lines = append(lines, domain.InvoiceLine{
			ProductID:  line.ProductID,
			Name:       item.Name,
			PriceCents: price,
			CostCents:  cost,
			Qty:        line.Qty,
		})
		adjustments = append(adjustments, domain.StockAdjustment{ItemID: line.ProductID, Delta: -line.Qty})
	}

	channel := strings.TrimSpace(req.Meta.Channel)
	if channel == "" {
		channel = domain.DefaultChannel
	}
	date := s.transactionDate(req.Meta)
	invoice := domain.Invoice{
		CompanyID:      companyID,
		Date:           date,
		Status:         domain.InvoiceStatusPaid,
		Type:           domain.InvoiceTypeInvoice,
		Items:          lines,
		TotalCents:     invoiceTotal(lines),
		CustomerName:   strings.TrimSpace(req.Meta.CustomerName),
		CustomerPhone:  strings.TrimSpace(req.Meta.CustomerPhone),
		Channel:        channel,
		IdempotencyKey: strings.TrimSpace(req.Meta.IdempotencyKey),
	}

	resp, err := s.withIdempotency(ctx, companyID, invoice.IdempotencyKey, func() (*domain.Invoice, error) {
		created, err := s.repo.CommitTransaction(ctx, companyID, store.Commit{
			Invoice:     invoice,
			Adjustments: adjustments,
			Move: domain.StockMove{
				Type:   domain.StockMoveOut,
				Items:  stockMoveLines(lines),
				Date:   date,
				Reason: domain.MoveReasonSale,
			},
		})
		return created, mapCommitError(err)
	})
	if err != nil {
		return domain.InvoiceResponse{}, err
	}

	if !resp.Duplicate {
		s.logger.Info("sale recorded",
			zap.String("company_id", companyID),
			zap.String("invoice_id", resp.Invoice.ID),
			zap.Int64("total_cents", resp.Invoice.TotalCents),
			zap.Int("lines", len(resp.Invoice.Items)),
			zap.String("actor", actorName(ctx)),
		)
	}
	return resp, nil
}
