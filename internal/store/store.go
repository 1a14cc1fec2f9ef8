package store

import (
	"context"
	"errors"
	"net/url"
	"strings"

	"ledgerpos/backend/internal/domain"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrStockViolation   = errors.New("stock violation")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrVersionConflict  = errors.New("version conflict")
	ErrDuplicate        = errors.New("duplicate")
	ErrReturnLimit      = errors.New("return limit exceeded")
	ErrInvalidRecord    = errors.New("invalid record")
	// ErrKeyRetired reports an idempotency key whose invoice has been deleted.
	ErrKeyRetired       = errors.New("idempotency key retired")
)

const (
	CollectionInventory           = "inventory"
	CollectionInvoices            = "invoices"
	CollectionStockMoves          = "stock_moves"
	CollectionCapitalTransactions = "capital_transactions"
	CollectionProfitDistributions = "profit_distributions"
	CollectionExpenses            = "expenses"
)

// Path renders the persisted address of an entity:
// company/{companyID}/{collection}/{entityID}. Segments are path-escaped, so
// an id containing "/" can never address another company's records.
func Path(companyID string, collection string, entityID string) string {
	parts := []string{"company", url.PathEscape(companyID), collection}
	if entityID != "" {
		parts = append(parts, url.PathEscape(entityID))
	}
	return strings.Join(parts, "/")
}

// ReturnGuard bounds the cumulative quantity returned against a bill. Limits
// maps product id to the quantity originally sold on the bill.
type ReturnGuard struct {
	BillID string
	Limits map[string]int
}

// Commit is one atomic group: the invoice, one stock adjustment per line and
// the stock move that audits them. Either every record lands or none does.
type Commit struct {
	Invoice     domain.Invoice
	Adjustments []domain.StockAdjustment
	Move        domain.StockMove
	Return      *ReturnGuard
}

type InventoryStore interface {
	CreateInventoryItem(ctx context.Context, companyID string, item domain.InventoryItem, move *domain.StockMove) (*domain.InventoryItem, error)
	GetInventoryItem(ctx context.Context, companyID string, itemID string) (*domain.InventoryItem, error)
	GetInventoryItems(ctx context.Context, companyID string, itemIDs []string) (map[string]domain.InventoryItem, error)
	ListInventory(ctx context.Context, companyID string) ([]domain.InventoryItem, error)
	// AdjustQuantity applies delta as one store-side read-modify-write and
	// returns the new quantity. A negative result is refused with
	// ErrStockViolation. When move is non-nil it is appended in the same group.
	AdjustQuantity(ctx context.Context, companyID string, adj domain.StockAdjustment, move *domain.StockMove) (int, error)
}

type LedgerStore interface {
	CommitTransaction(ctx context.Context, companyID string, commit Commit) (*domain.Invoice, error)
	// DeleteSale restocks the sale's lines, appends move and removes the
	// invoice inside one atomic group.
	DeleteSale(ctx context.Context, companyID string, invoiceID string, move domain.StockMove) (*domain.Invoice, error)
	FindInvoiceByID(ctx context.Context, companyID string, invoiceID string) (*domain.Invoice, error)
	FindInvoiceByIdempotency(ctx context.Context, companyID string, key string) (*domain.Invoice, error)
	ListInvoices(ctx context.Context, companyID string, filter domain.InvoiceFilter) ([]domain.Invoice, error)
	ReturnedQtyByBill(ctx context.Context, companyID string, billID string) (map[string]int, error)
	ListStockMoves(ctx context.Context, companyID string, filter domain.StockMoveFilter) ([]domain.StockMove, error)
}

type EquityStore interface {
	CreateCapitalTransaction(ctx context.Context, companyID string, tx domain.CapitalTransaction) (*domain.CapitalTransaction, error)
	ListCapitalTransactions(ctx context.Context, companyID string) ([]domain.CapitalTransaction, error)
	GetDistributionLedger(ctx context.Context, companyID string) (domain.DistributionLedger, error)
	// AppendProfitDistribution records dist only if the ledger is still at
	// expectedVersion, otherwise it returns ErrVersionConflict.
	AppendProfitDistribution(ctx context.Context, companyID string, dist domain.ProfitDistribution, expectedVersion int64) (*domain.ProfitDistribution, error)
	ListProfitDistributions(ctx context.Context, companyID string) ([]domain.ProfitDistribution, error)
	CreateExpense(ctx context.Context, companyID string, expense domain.Expense) (*domain.Expense, error)
	ListExpenses(ctx context.Context, companyID string) ([]domain.Expense, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
}

type Repository interface {
	InventoryStore
	LedgerStore
	EquityStore
	UserStore
}

// RequestedByProduct sums invoice line quantities per product.
func RequestedByProduct(lines []domain.InvoiceLine) map[string]int {
	out := make(map[string]int, len(lines))
	for _, line := range lines {
		out[line.ProductID] += line.Qty
	}
	return out
}
