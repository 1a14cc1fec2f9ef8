package memory

import (
	"cmp"
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/store"
	"ledgerpos/backend/internal/xid"
)

// Store keeps every collection in maps keyed by store.Path. The single mutex
// is the atomic-commit primitive: a commit group validates and applies under
// one write lock.
type Store struct {
	mu              sync.RWMutex
	inventory       map[string]domain.InventoryItem
	invoices        map[string]domain.Invoice
	invoicesByIdem  map[string]string
	retiredIdem     map[string]string
	stockMoves      map[string]domain.StockMove
	capital         map[string]domain.CapitalTransaction
	distributions   map[string]domain.ProfitDistribution
	ledgers         map[string]domain.DistributionLedger
	expenses        map[string]domain.Expense
	usersByUsername map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		inventory:       make(map[string]domain.InventoryItem),
		invoices:        make(map[string]domain.Invoice),
		invoicesByIdem:  make(map[string]string),
		retiredIdem:     make(map[string]string),
		stockMoves:      make(map[string]domain.StockMove),
		capital:         make(map[string]domain.CapitalTransaction),
		distributions:   make(map[string]domain.ProfitDistribution),
		ledgers:         make(map[string]domain.DistributionLedger),
		expenses:        make(map[string]domain.Expense),
		usersByUsername: make(map[string]domain.UserAccount),
	}
}

// NewSeeded returns a store with dev users and a small catalogue for
// companyID. Credentials come from SEED_OWNER_PASSWORD and
// SEED_CASHIER_PASSWORD; dev defaults are used with a warning when unset.
func NewSeeded(companyID string, logger *zap.Logger) *Store {
	s := New()
	s.usersByUsername = seedUsers(logger)

	now := time.Now().UTC()
	for _, item := range []domain.InventoryItem{
		{ID: "item-tshirt", Name: "Cotton T-Shirt", SKU: "TS-001", Quantity: 40, PriceCents: 1500, CostCents: 600},
		{ID: "item-mug", Name: "Ceramic Mug", SKU: "MG-001", Quantity: 25, PriceCents: 900, CostCents: 350},
		{ID: "item-tote", Name: "Canvas Tote", SKU: "TB-001", Quantity: 30, PriceCents: 1200, CostCents: 400},
		{ID: "item-cap", Name: "Baseball Cap", SKU: "CP-001", Quantity: 15, PriceCents: 1800, CostCents: 700},
	} {
		item.CreatedAt = now
		item.UpdatedAt = now
		s.inventory[store.Path(companyID, store.CollectionInventory, item.ID)] = item
	}
	return s
}

func seedUsers(logger *zap.Logger) map[string]domain.UserAccount {
	ownerPwd := envOr("SEED_OWNER_PASSWORD", "owner12345")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier12345")
	if os.Getenv("SEED_OWNER_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		logger.Warn("using default dev credentials; set SEED_OWNER_PASSWORD and SEED_CASHIER_PASSWORD to override",
			zap.String("component", "memory-store"))
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"owner", ownerPwd, domain.RoleOwner},
		{"cashier", cashierPwd, domain.RoleCashier},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			logger.Fatal("failed to hash seed password", zap.String("username", u.username), zap.Error(err))
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (s *Store) CreateInventoryItem(_ context.Context, companyID string, item domain.InventoryItem, move *domain.StockMove) (*domain.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if item.ID == "" {
		item.ID = xid.New("item")
	}
	if item.Quantity < 0 {
		return nil, store.ErrStockViolation
	}
	key := store.Path(companyID, store.CollectionInventory, item.ID)
	if _, exists := s.inventory[key]; exists {
		return nil, store.ErrDuplicate
	}
	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = item.CreatedAt
	s.inventory[key] = item
	if move != nil {
		s.appendMoveLocked(companyID, *move)
	}
	return &item, nil
}

func (s *Store) GetInventoryItem(_ context.Context, companyID string, itemID string) (*domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.inventory[store.Path(companyID, store.CollectionInventory, itemID)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &item, nil
}

func (s *Store) GetInventoryItems(_ context.Context, companyID string, itemIDs []string) (map[string]domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]domain.InventoryItem, len(itemIDs))
	for _, id := range itemIDs {
		if item, ok := s.inventory[store.Path(companyID, store.CollectionInventory, id)]; ok {
			out[id] = item
		}
	}
	return out, nil
}

func (s *Store) ListInventory(_ context.Context, companyID string) ([]domain.InventoryItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := collectionPrefix(companyID, store.CollectionInventory)
	items := make([]domain.InventoryItem, 0)
	for key, item := range s.inventory {
		if strings.HasPrefix(key, prefix) {
			items = append(items, item)
		}
	}
	slices.SortFunc(items, func(a, b domain.InventoryItem) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return items, nil
}

func (s *Store) AdjustQuantity(_ context.Context, companyID string, adj domain.StockAdjustment, move *domain.StockMove) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkAdjustmentsLocked(companyID, []domain.StockAdjustment{adj}); err != nil {
		return 0, err
	}
	s.applyAdjustmentsLocked(companyID, []domain.StockAdjustment{adj})
	if move != nil {
		s.appendMoveLocked(companyID, *move)
	}
	return s.inventory[store.Path(companyID, store.CollectionInventory, adj.ItemID)].Quantity, nil
}

func (s *Store) CommitTransaction(_ context.Context, companyID string, commit store.Commit) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv := commit.Invoice
	if len(inv.Items) == 0 {
		return nil, store.ErrInvalidRecord
	}
	if inv.ID == "" {
		inv.ID = xid.New("inv")
	}
	inv.CompanyID = companyID
	if inv.IdempotencyKey != "" {
		key := idemKey(companyID, inv.IdempotencyKey)
		if _, exists := s.invoicesByIdem[key]; exists {
			return nil, store.ErrDuplicate
		}
		if _, retired := s.retiredIdem[key]; retired {
			return nil, store.ErrKeyRetired
		}
	}
	if _, exists := s.invoices[store.Path(companyID, store.CollectionInvoices, inv.ID)]; exists {
		return nil, store.ErrDuplicate
	}

	if guard := commit.Return; guard != nil {
		bill, ok := s.invoices[store.Path(companyID, store.CollectionInvoices, guard.BillID)]
		if !ok || !bill.IsSale() {
			return nil, store.ErrNotFound
		}
		returned := s.returnedQtyLocked(companyID, guard.BillID)
		for productID, qty := range store.RequestedByProduct(inv.Items) {
			if returned[productID]+qty > guard.Limits[productID] {
				return nil, fmt.Errorf("%w: product %s", store.ErrReturnLimit, productID)
			}
		}
	}

	if err := s.checkAdjustmentsLocked(companyID, commit.Adjustments); err != nil {
		return nil, err
	}
	s.applyAdjustmentsLocked(companyID, commit.Adjustments)

	inv.Items = slices.Clone(inv.Items)
	s.invoices[store.Path(companyID, store.CollectionInvoices, inv.ID)] = inv
	if inv.IdempotencyKey != "" {
		s.invoicesByIdem[idemKey(companyID, inv.IdempotencyKey)] = inv.ID
	}
	move := commit.Move
	move.InvoiceID = inv.ID
	s.appendMoveLocked(companyID, move)

	out := cloneInvoice(inv)
	return &out, nil
}

func (s *Store) DeleteSale(_ context.Context, companyID string, invoiceID string, move domain.StockMove) (*domain.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := store.Path(companyID, store.CollectionInvoices, invoiceID)
	inv, ok := s.invoices[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	if !inv.IsSale() || s.hasCreditNotesLocked(companyID, invoiceID) {
		return nil, store.ErrInvalidRecord
	}

	adjustments := make([]domain.StockAdjustment, 0, len(inv.Items))
	for _, line := range inv.Items {
		adjustments = append(adjustments, domain.StockAdjustment{ItemID: line.ProductID, Delta: line.Qty})
	}
	if err := s.checkAdjustmentsLocked(companyID, adjustments); err != nil {
		return nil, err
	}
	s.applyAdjustmentsLocked(companyID, adjustments)

	move.InvoiceID = inv.ID
	s.appendMoveLocked(companyID, move)

	delete(s.invoices, key)
	if inv.IdempotencyKey != "" {
		k := idemKey(companyID, inv.IdempotencyKey)
		delete(s.invoicesByIdem, k)
		s.retiredIdem[k] = inv.ID
	}
	out := cloneInvoice(inv)
	return &out, nil
}

func (s *Store) FindInvoiceByID(_ context.Context, companyID string, invoiceID string) (*domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, ok := s.invoices[store.Path(companyID, store.CollectionInvoices, invoiceID)]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := cloneInvoice(inv)
	return &out, nil
}

func (s *Store) FindInvoiceByIdempotency(_ context.Context, companyID string, key string) (*domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.invoicesByIdem[idemKey(companyID, key)]
	if !ok {
		if _, retired := s.retiredIdem[idemKey(companyID, key)]; retired {
			return nil, store.ErrKeyRetired
		}
		return nil, store.ErrNotFound
	}
	out := cloneInvoice(s.invoices[store.Path(companyID, store.CollectionInvoices, id)])
	return &out, nil
}

func (s *Store) ListInvoices(_ context.Context, companyID string, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := collectionPrefix(companyID, store.CollectionInvoices)
	out := make([]domain.Invoice, 0)
	for key, inv := range s.invoices {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if filter.Type != "" && inv.Type != filter.Type {
			continue
		}
		if filter.BillNumber != "" && inv.BillNumber != filter.BillNumber {
			continue
		}
		if filter.From != nil && inv.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !inv.Date.Before(*filter.To) {
			continue
		}
		out = append(out, cloneInvoice(inv))
	}
	slices.SortFunc(out, func(a, b domain.Invoice) int {
		return cmp.Or(b.Date.Compare(a.Date), cmp.Compare(b.ID, a.ID))
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) ReturnedQtyByBill(_ context.Context, companyID string, billID string) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.returnedQtyLocked(companyID, billID), nil
}

func (s *Store) ListStockMoves(_ context.Context, companyID string, filter domain.StockMoveFilter) ([]domain.StockMove, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix := collectionPrefix(companyID, store.CollectionStockMoves)
	out := make([]domain.StockMove, 0)
	for key, move := range s.stockMoves {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if filter.InvoiceID != "" && move.InvoiceID != filter.InvoiceID {
			continue
		}
		if filter.ProductID != "" && !slices.ContainsFunc(move.Items, func(l domain.StockMoveLine) bool {
			return l.ProductID == filter.ProductID
		}) {
			continue
		}
		move.Items = slices.Clone(move.Items)
		out = append(out, move)
	}
	slices.SortFunc(out, func(a, b domain.StockMove) int {
		return cmp.Or(b.Date.Compare(a.Date), cmp.Compare(b.ID, a.ID))
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) CreateCapitalTransaction(_ context.Context, companyID string, tx domain.CapitalTransaction) (*domain.CapitalTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ID == "" {
		tx.ID = xid.New("cap")
	}
	tx.CompanyID = companyID
	if tx.Date.IsZero() {
		tx.Date = time.Now().UTC()
	}
	s.capital[store.Path(companyID, store.CollectionCapitalTransactions, tx.ID)] = tx
	return &tx, nil
}

func (s *Store) ListCapitalTransactions(_ context.Context, companyID string) ([]domain.CapitalTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := collect(s.capital, collectionPrefix(companyID, store.CollectionCapitalTransactions))
	slices.SortFunc(out, func(a, b domain.CapitalTransaction) int {
		return cmp.Or(a.Date.Compare(b.Date), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *Store) GetDistributionLedger(_ context.Context, companyID string) (domain.DistributionLedger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.ledgers[companyID], nil
}

func (s *Store) AppendProfitDistribution(_ context.Context, companyID string, dist domain.ProfitDistribution, expectedVersion int64) (*domain.ProfitDistribution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ledger := s.ledgers[companyID]
	if ledger.Version != expectedVersion {
		return nil, store.ErrVersionConflict
	}
	if dist.ID == "" {
		dist.ID = xid.New("dist")
	}
	dist.CompanyID = companyID
	if dist.Date.IsZero() {
		dist.Date = time.Now().UTC()
	}
	s.distributions[store.Path(companyID, store.CollectionProfitDistributions, dist.ID)] = dist
	s.ledgers[companyID] = domain.DistributionLedger{
		DistributedCents: ledger.DistributedCents + dist.AmountCents,
		Version:          ledger.Version + 1,
	}
	return &dist, nil
}

func (s *Store) ListProfitDistributions(_ context.Context, companyID string) ([]domain.ProfitDistribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := collect(s.distributions, collectionPrefix(companyID, store.CollectionProfitDistributions))
	slices.SortFunc(out, func(a, b domain.ProfitDistribution) int {
		return cmp.Or(a.Date.Compare(b.Date), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *Store) CreateExpense(_ context.Context, companyID string, expense domain.Expense) (*domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if expense.ID == "" {
		expense.ID = xid.New("exp")
	}
	expense.CompanyID = companyID
	if expense.Date.IsZero() {
		expense.Date = time.Now().UTC()
	}
	s.expenses[store.Path(companyID, store.CollectionExpenses, expense.ID)] = expense
	return &expense, nil
}

func (s *Store) ListExpenses(_ context.Context, companyID string) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := collect(s.expenses, collectionPrefix(companyID, store.CollectionExpenses))
	slices.SortFunc(out, func(a, b domain.Expense) int {
		return cmp.Or(a.Date.Compare(b.Date), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidRecord
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrDuplicate
	}
	user.Username = username
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmp.Compare(a.Username, b.Username)
	})
	return users, nil
}

// checkAdjustmentsLocked validates the whole group against the current
// quantities before anything is applied. Repeated items accumulate.
func (s *Store) checkAdjustmentsLocked(companyID string, adjustments []domain.StockAdjustment) error {
	pending := make(map[string]int, len(adjustments))
	for _, adj := range adjustments {
		key := store.Path(companyID, store.CollectionInventory, adj.ItemID)
		item, ok := s.inventory[key]
		if !ok {
			return fmt.Errorf("%w: item %s", store.ErrNotFound, adj.ItemID)
		}
		pending[key] += adj.Delta
		if item.Quantity+pending[key] < 0 {
			return fmt.Errorf("%w: item %s", store.ErrStockViolation, adj.ItemID)
		}
	}
	return nil
}

func (s *Store) applyAdjustmentsLocked(companyID string, adjustments []domain.StockAdjustment) {
	now := time.Now().UTC()
	for _, adj := range adjustments {
		key := store.Path(companyID, store.CollectionInventory, adj.ItemID)
		item := s.inventory[key]
		item.Quantity += adj.Delta
		item.UpdatedAt = now
		s.inventory[key] = item
	}
}

func (s *Store) appendMoveLocked(companyID string, move domain.StockMove) {
	if move.ID == "" {
		move.ID = xid.New("mv")
	}
	move.CompanyID = companyID
	if move.Date.IsZero() {
		move.Date = time.Now().UTC()
	}
	move.Items = slices.Clone(move.Items)
	s.stockMoves[store.Path(companyID, store.CollectionStockMoves, move.ID)] = move
}

func (s *Store) returnedQtyLocked(companyID string, billID string) map[string]int {
	prefix := collectionPrefix(companyID, store.CollectionInvoices)
	out := make(map[string]int)
	for key, inv := range s.invoices {
		if !strings.HasPrefix(key, prefix) || inv.Type != domain.InvoiceTypeCreditNote || inv.BillNumber != billID {
			continue
		}
		for _, line := range inv.Items {
			out[line.ProductID] += line.Qty
		}
	}
	return out
}

func (s *Store) hasCreditNotesLocked(companyID string, billID string) bool {
	prefix := collectionPrefix(companyID, store.CollectionInvoices)
	for key, inv := range s.invoices {
		if strings.HasPrefix(key, prefix) && inv.Type == domain.InvoiceTypeCreditNote && inv.BillNumber == billID {
			return true
		}
	}
	return false
}

func collectionPrefix(companyID string, collection string) string {
	return store.Path(companyID, collection, "") + "/"
}

func collect[T any](records map[string]T, prefix string) []T {
	out := make([]T, 0)
	for key, record := range records {
		if strings.HasPrefix(key, prefix) {
			out = append(out, record)
		}
	}
	return out
}

func idemKey(companyID string, key string) string {
	return store.Path(companyID, "idempotency", key)
}

func cloneInvoice(src domain.Invoice) domain.Invoice {
	dst := src
	dst.Items = slices.Clone(src.Items)
	return dst
}
