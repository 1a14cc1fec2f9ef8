package domain

import "time"

type InventoryItem struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SKU        string    `json:"sku"`
	Quantity   int       `json:"quantity"`
	PriceCents int64     `json:"price_cents"`
	CostCents  int64     `json:"cost_cents"`
	Location   string    `json:"location,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type InventoryItemCreateRequest struct {
	ID         string `json:"id,omitempty"`
	Name       string `json:"name"`
	SKU        string `json:"sku"`
	Quantity   int    `json:"quantity"`
	PriceCents int64  `json:"price_cents"`
	CostCents  int64  `json:"cost_cents"`
	Location   string `json:"location,omitempty"`
}

type StockAdjustRequest struct {
	Delta  int    `json:"delta"`
	Reason string `json:"reason"`
}

type StockAdjustResponse struct {
	ItemID   string `json:"item_id"`
	Quantity int    `json:"quantity"`
}

// StockAdjustment is a signed quantity change applied by the store atomically.
type StockAdjustment struct {
	ItemID string `json:"item_id"`
	Delta  int    `json:"delta"`
}

type CartLine struct {
	ProductID  string `json:"product_id"`
	Qty        int    `json:"qty"`
	PriceCents int64  `json:"price_cents,omitempty"`
	CostCents  int64  `json:"cost_cents,omitempty"`
}

type TransactionMeta struct {
	CustomerName   string     `json:"customer_name,omitempty"`
	CustomerPhone  string     `json:"customer_phone,omitempty"`
	Channel        string     `json:"channel,omitempty"`
	IdempotencyKey string     `json:"idempotency_key,omitempty"`
	Date           *time.Time `json:"date,omitempty"`
}

type SaleRequest struct {
	CompanyID string          `json:"company_id,omitempty"`
	Cart      []CartLine      `json:"cart"`
	Meta      TransactionMeta `json:"meta"`
}

type ReturnRequest struct {
	CompanyID  string          `json:"company_id,omitempty"`
	BillNumber string          `json:"bill_number"`
	Cart       []CartLine      `json:"cart"`
	Reason     string          `json:"reason"`
	Meta       TransactionMeta `json:"meta"`
}

type InvoiceLine struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	CostCents  int64  `json:"cost_cents"`
	Qty        int    `json:"qty"`
}

type Invoice struct {
	ID             string        `json:"id"`
	CompanyID      string        `json:"company_id"`
	Date           time.Time     `json:"date"`
	Status         string        `json:"status"`
	Type           string        `json:"type"`
	Items          []InvoiceLine `json:"items"`
	TotalCents     int64         `json:"total_cents"`
	CustomerName   string        `json:"customer_name,omitempty"`
	CustomerPhone  string        `json:"customer_phone,omitempty"`
	Channel        string        `json:"channel"`
	BillNumber     string        `json:"bill_number,omitempty"`
	Reason         string        `json:"reason,omitempty"`
	IdempotencyKey string        `json:"idempotency_key,omitempty"`
}

// IsSale reports whether the invoice records revenue from a sale.
func (i Invoice) IsSale() bool {
	return i.Type == InvoiceTypeInvoice
}

type InvoiceResponse struct {
	Invoice   Invoice `json:"invoice"`
	Duplicate bool    `json:"duplicate"`
}

type InvoiceFilter struct {
	Type       string
	BillNumber string
	From       *time.Time
	To         *time.Time
	Limit      int
}

type StockMoveLine struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type StockMove struct {
	ID        string          `json:"id"`
	CompanyID string          `json:"company_id"`
	Type      string          `json:"type"`
	Items     []StockMoveLine `json:"items"`
	Date      time.Time       `json:"date"`
	Reason    string          `json:"reason"`
	InvoiceID string          `json:"invoice_id,omitempty"`
}

type StockMoveFilter struct {
	InvoiceID string
	ProductID string
	Limit     int
}

type CapitalTransaction struct {
	ID          string    `json:"id"`
	CompanyID   string    `json:"company_id"`
	OwnerID     string    `json:"owner_id"`
	Type        string    `json:"type"`
	AmountCents int64     `json:"amount_cents"`
	Date        time.Time `json:"date"`
	Notes       string    `json:"notes,omitempty"`
}

type CapitalTransactionRequest struct {
	OwnerID     string `json:"owner_id"`
	Type        string `json:"type"`
	AmountCents int64  `json:"amount_cents"`
	Notes       string `json:"notes,omitempty"`
}

type ProfitDistribution struct {
	ID          string    `json:"id"`
	CompanyID   string    `json:"company_id"`
	OwnerID     string    `json:"owner_id"`
	AmountCents int64     `json:"amount_cents"`
	Date        time.Time `json:"date"`
	Notes       string    `json:"notes,omitempty"`
}

type ProfitDistributionRequest struct {
	OwnerID     string `json:"owner_id"`
	AmountCents int64  `json:"amount_cents"`
	Notes       string `json:"notes,omitempty"`
}

// DistributionLedger is the running distributed total with the version stamp
// used to compare-and-swap new distributions.
type DistributionLedger struct {
	DistributedCents int64 `json:"distributed_cents"`
	Version          int64 `json:"version"`
}

type Expense struct {
	ID          string    `json:"id"`
	CompanyID   string    `json:"company_id"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	AmountCents int64     `json:"amount_cents"`
	Date        time.Time `json:"date"`
}

type ExpenseRequest struct {
	Category    string     `json:"category"`
	Description string     `json:"description,omitempty"`
	AmountCents int64      `json:"amount_cents"`
	Date        *time.Time `json:"date,omitempty"`
}

type OwnerEquity struct {
	OwnerID          string `json:"owner_id"`
	InvestedCents    int64  `json:"invested_cents"`
	WithdrawnCents   int64  `json:"withdrawn_cents"`
	ProfitShareCents int64  `json:"profit_share_cents"`
	EquityCents      int64  `json:"equity_cents"`
}

type ProfitSummary struct {
	RevenueCents     int64 `json:"revenue_cents"`
	CostOfGoodsCents int64 `json:"cost_of_goods_cents"`
	ExpensesCents    int64 `json:"expenses_cents"`
	NetProfitCents   int64 `json:"net_profit_cents"`
	DistributedCents int64 `json:"distributed_cents"`
	AvailableCents   int64 `json:"available_cents"`
}

type BucketTotals struct {
	SalesCents   int64 `json:"sales_cents"`
	ReturnsCents int64 `json:"returns_cents"`
}

type Bucket struct {
	Label string `json:"label"`
	BucketTotals
}

type ChannelTotal struct {
	Channel    string `json:"channel"`
	TotalCents int64  `json:"total_cents"`
}

// DashboardSummary is one dashboard window. InventoryValueCents is current
// stock valued at selling price.
type DashboardSummary struct {
	Window              string         `json:"window"`
	GeneratedAt         time.Time      `json:"generated_at"`
	Buckets             []Bucket       `json:"buckets"`
	SalesCents          int64          `json:"sales_cents"`
	ReturnsCents        int64          `json:"returns_cents"`
	NetSalesCents       int64          `json:"net_sales_cents"`
	ExpensesCents       int64          `json:"expenses_cents"`
	Channels            []ChannelTotal `json:"channels"`
	InventoryValueCents int64          `json:"inventory_value_cents"`
}

// InventoryReport summarises stock on hand. Low stock means more than zero
// but fewer than LowStockThreshold units.
type InventoryReport struct {
	GeneratedAt     time.Time       `json:"generated_at"`
	TotalProducts   int             `json:"total_products"`
	TotalUnits      int             `json:"total_units"`
	StockValueCents int64           `json:"stock_value_cents"`
	LowStockCount   int             `json:"low_stock_count"`
	OutOfStockCount int             `json:"out_of_stock_count"`
	LowStock        []InventoryItem `json:"low_stock"`
	OutOfStock      []InventoryItem `json:"out_of_stock"`
}

// InvoiceReport aggregates sales or credit notes over a reporting period.
// Credit note amounts are reported as positive values.
type InvoiceReport struct {
	Type         string     `json:"type"`
	Period       string     `json:"period"`
	From         *time.Time `json:"from,omitempty"`
	Count        int        `json:"count"`
	TotalCents   int64      `json:"total_cents"`
	AverageCents int64      `json:"average_cents"`
	Invoices     []Invoice  `json:"invoices"`
}

type MultiViewSummary struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Monthly     []Bucket       `json:"monthly"`
	Quarterly   []Bucket       `json:"quarterly"`
	HalfYearly  []Bucket       `json:"half_yearly"`
	Channels    []ChannelTotal `json:"channels"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

type Actor struct {
	Username string
	Role     string
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

const (
	InvoiceStatusPaid     = "Paid"
	InvoiceStatusReturned = "Returned"
)

const (
	InvoiceTypeInvoice    = "Invoice"
	InvoiceTypeCreditNote = "CreditNote"
)

const (
	StockMoveIn  = "in"
	StockMoveOut = "out"
)

const (
	MoveReasonSale             = "Sale"
	MoveReasonReturn           = "Return"
	MoveReasonBillDeleted      = "BillDeleted"
	MoveReasonInitialStock     = "InitialStock"
	MoveReasonManualAdjustment = "ManualAdjustment"
	MoveReasonRestock          = "Restock"
)

const LowStockThreshold = 10

const (
	CapitalInvest   = "invest"
	CapitalWithdraw = "withdraw"
)

const DefaultChannel = "Store"

const (
	RoleOwner   = "owner"
	RoleCashier = "cashier"
)
