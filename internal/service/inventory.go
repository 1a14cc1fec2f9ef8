package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/store"
	"ledgerpos/backend/internal/xid"
)

func (s *Service) ListInventory(ctx context.Context, companyID string) ([]domain.InventoryItem, error) {
	companyID, err := s.company(companyID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListInventory(ctx, companyID)
}

// AddInventoryItem creates a catalogue item with its opening stock. When the
// request names an id that already exists, its quantity is added to that
// item's stock as a Restock move instead.
func (s *Service) AddInventoryItem(ctx context.Context, companyID string, req domain.InventoryItemCreateRequest) (domain.InventoryItem, error) {
	companyID, err := s.company(companyID)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	req.ID = strings.TrimSpace(req.ID)
	req.Name = strings.TrimSpace(req.Name)
	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	if err := checkID("item", req.ID); err != nil {
		return domain.InventoryItem{}, err
	}
	if req.ID != "" {
		if _, err := s.repo.GetInventoryItem(ctx, companyID, req.ID); err == nil {
			return s.restock(ctx, companyID, req)
		} else if !errors.Is(err, store.ErrNotFound) {
			return domain.InventoryItem{}, err
		}
	}
	if req.Name == "" || req.Quantity < 0 || req.PriceCents < 0 || req.CostCents < 0 {
		return domain.InventoryItem{}, ErrInvalidInput
	}

	item := domain.InventoryItem{
		ID:         req.ID,
		Name:       req.Name,
		SKU:        req.SKU,
		Quantity:   req.Quantity,
		PriceCents: req.PriceCents,
		CostCents:  req.CostCents,
		Location:   strings.TrimSpace(req.Location),
		CreatedAt:  s.now(),
	}
	if item.ID == "" {
		item.ID = xid.New("item")
	}
	var move *domain.StockMove
	if item.Quantity > 0 {
		move = &domain.StockMove{
			Type:   domain.StockMoveIn,
			Items:  []domain.StockMoveLine{{ProductID: item.ID, Qty: item.Quantity}},
			Date:   item.CreatedAt,
			Reason: domain.MoveReasonInitialStock,
		}
	}

	created, err := s.repo.CreateInventoryItem(ctx, companyID, item, move)
	if errors.Is(err, store.ErrDuplicate) && req.ID != "" {
		// Created concurrently under the same id.
		return s.restock(ctx, companyID, req)
	}
	if err != nil {
		return domain.InventoryItem{}, err
	}
	s.logger.Info("inventory item added",
		zap.String("company_id", companyID),
		zap.String("item_id", created.ID),
		zap.Int("quantity", created.Quantity),
	)
	return *created, nil
}

// restock adds req.Quantity to an existing item through the atomic
// adjustment path.
func (s *Service) restock(ctx context.Context, companyID string, req domain.InventoryItemCreateRequest) (domain.InventoryItem, error) {
	if req.Quantity < 1 {
		return domain.InventoryItem{}, fmt.Errorf("%w: restock of %s needs a positive quantity", ErrInvalidInput, req.ID)
	}
	quantity, err := s.repo.AdjustQuantity(ctx, companyID, domain.StockAdjustment{ItemID: req.ID, Delta: req.Quantity}, &domain.StockMove{
		Type:   domain.StockMoveIn,
		Items:  []domain.StockMoveLine{{ProductID: req.ID, Qty: req.Quantity}},
		Date:   s.now(),
		Reason: domain.MoveReasonRestock,
	})
	if err != nil {
		return domain.InventoryItem{}, err
	}
	item, err := s.repo.GetInventoryItem(ctx, companyID, req.ID)
	if err != nil {
		return domain.InventoryItem{}, err
	}
	s.logger.Info("inventory item restocked",
		zap.String("company_id", companyID),
		zap.String("item_id", req.ID),
		zap.Int("added", req.Quantity),
		zap.Int("quantity", quantity),
		zap.String("actor", actorName(ctx)),
	)
	return *item, nil
}

// AdjustQuantity applies a manual signed correction to one item and audits it
// with a stock move.
func (s *Service) AdjustQuantity(ctx context.Context, companyID string, itemID string, delta int, reason string) (domain.StockAdjustResponse, error) {
	companyID, err := s.company(companyID)
	if err != nil {
		return domain.StockAdjustResponse{}, err
	}
	itemID = strings.TrimSpace(itemID)
	if itemID == "" || delta == 0 {
		return domain.StockAdjustResponse{}, ErrInvalidInput
	}
	if err := checkID("item", itemID); err != nil {
		return domain.StockAdjustResponse{}, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = domain.MoveReasonManualAdjustment
	}

	moveType, qty := domain.StockMoveIn, delta
	if delta < 0 {
		moveType, qty = domain.StockMoveOut, -delta
	}
	quantity, err := s.repo.AdjustQuantity(ctx, companyID, domain.StockAdjustment{ItemID: itemID, Delta: delta}, &domain.StockMove{
		Type:   moveType,
		Items:  []domain.StockMoveLine{{ProductID: itemID, Qty: qty}},
		Date:   s.now(),
		Reason: reason,
	})
	if errors.Is(err, store.ErrStockViolation) {
		return domain.StockAdjustResponse{}, fmt.Errorf("%w: %w", ErrInsufficientStock, err)
	}
	if err != nil {
		return domain.StockAdjustResponse{}, err
	}

	s.logger.Info("stock adjusted",
		zap.String("company_id", companyID),
		zap.String("item_id", itemID),
		zap.Int("delta", delta),
		zap.Int("quantity", quantity),
		zap.String("actor", actorName(ctx)),
	)
	return domain.StockAdjustResponse{ItemID: itemID, Quantity: quantity}, nil
}

// DeleteSale reverses a sale: its lines go back to stock, a BillDeleted move
// is appended and the invoice is removed, all in one group.
func (s *Service) DeleteSale(ctx context.Context, companyID string, invoiceID string) (domain.Invoice, error) {
	companyID, err := s.company(companyID)
	if err != nil {
		return domain.Invoice{}, err
	}
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return domain.Invoice{}, ErrInvalidInput
	}
	if err := checkID("invoice", invoiceID); err != nil {
		return domain.Invoice{}, err
	}

	inv, err := s.repo.FindInvoiceByID(ctx, companyID, invoiceID)
	if err != nil {
		return domain.Invoice{}, err
	}
	if !inv.IsSale() {
		return domain.Invoice{}, fmt.Errorf("%w: %s is not a sale", ErrInvalidInput, invoiceID)
	}

	deleted, err := s.repo.DeleteSale(ctx, companyID, invoiceID, domain.StockMove{
		Type:   domain.StockMoveIn,
		Items:  stockMoveLines(inv.Items),
		Date:   s.now(),
		Reason: domain.MoveReasonBillDeleted,
	})
	if errors.Is(err, store.ErrInvalidRecord) {
		return domain.Invoice{}, fmt.Errorf("%w: %s has returns booked against it", ErrInvalidInput, invoiceID)
	}
	if err != nil {
		return domain.Invoice{}, mapCommitError(err)
	}

	s.logger.Info("sale deleted",
		zap.String("company_id", companyID),
		zap.String("invoice_id", invoiceID),
		zap.Int64("total_cents", deleted.TotalCents),
		zap.String("actor", actorName(ctx)),
	)
	return *deleted, nil
}

func (s *Service) GetInvoice(ctx context.Context, companyID string, invoiceID string) (domain.Invoice, error) {
	companyID, err := s.company(companyID)
	if err != nil {
		return domain.Invoice{}, err
	}
	inv, err := s.repo.FindInvoiceByID(ctx, companyID, strings.TrimSpace(invoiceID))
	if err != nil {
		return domain.Invoice{}, err
	}
	return *inv, nil
}

func (s *Service) ListInvoices(ctx context.Context, companyID string, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	if filter.Type != "" && filter.Type != domain.InvoiceTypeInvoice && filter.Type != domain.InvoiceTypeCreditNote {
		return nil, ErrInvalidInput
	}
	if filter.Limit < 0 || filter.Limit > 1000 {
		return nil, ErrInvalidInput
	}
	companyID, err := s.company(companyID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListInvoices(ctx, companyID, filter)
}

func (s *Service) ListStockMoves(ctx context.Context, companyID string, filter domain.StockMoveFilter) ([]domain.StockMove, error) {
	if filter.Limit < 0 || filter.Limit > 1000 {
		return nil, ErrInvalidInput
	}
	companyID, err := s.company(companyID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListStockMoves(ctx, companyID, filter)
}
