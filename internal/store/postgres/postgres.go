package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/store"
	"ledgerpos/backend/internal/xid"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolCfg.MaxConns = 30
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: create pool: %v", store.ErrStoreUnavailable, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %v", store.ErrStoreUnavailable, err)
	}

	return &Store{pool: pool}, nil
}

// Migrate applies the embedded schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()

	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return fmt.Errorf("goose new provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return mapError(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return mapError(err)
	}
	return mapError(tx.Commit(ctx))
}

const inventoryColumns = `id, name, sku, quantity, price_cents, cost_cents, location, created_at, updated_at`

func scanInventoryItem(row pgx.Row) (domain.InventoryItem, error) {
	var item domain.InventoryItem
	err := row.Scan(&item.ID, &item.Name, &item.SKU, &item.Quantity, &item.PriceCents, &item.CostCents,
		&item.Location, &item.CreatedAt, &item.UpdatedAt)
	item.CreatedAt = item.CreatedAt.UTC()
	item.UpdatedAt = item.UpdatedAt.UTC()
	return item, err
}

func (s *Store) CreateInventoryItem(ctx context.Context, companyID string, item domain.InventoryItem, move *domain.StockMove) (*domain.InventoryItem, error) {
	if item.ID == "" {
		item.ID = xid.New("item")
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}
	item.UpdatedAt = item.CreatedAt

	err := s.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO inventory (company_id, id, name, sku, quantity, price_cents, cost_cents, location, created_at, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`, companyID, item.ID, item.Name, item.SKU, item.Quantity, item.PriceCents, item.CostCents, item.Location, item.CreatedAt, item.UpdatedAt)
		if err != nil {
			return err
		}
		if move != nil {
			return insertStockMove(ctx, tx, companyID, *move)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetInventoryItem(ctx context.Context, companyID string, itemID string) (*domain.InventoryItem, error) {
	item, err := scanInventoryItem(s.pool.QueryRow(ctx, `
		SELECT `+inventoryColumns+`
		FROM inventory
		WHERE company_id = $1 AND id = $2
	`, companyID, itemID))
	if err != nil {
		return nil, mapError(err)
	}
	return &item, nil
}

func (s *Store) GetInventoryItems(ctx context.Context, companyID string, itemIDs []string) (map[string]domain.InventoryItem, error) {
	out := make(map[string]domain.InventoryItem, len(itemIDs))
	if len(itemIDs) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+inventoryColumns+`
		FROM inventory
		WHERE company_id = $1 AND id = ANY($2)
	`, companyID, itemIDs)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		item, err := scanInventoryItem(rows)
		if err != nil {
			return nil, err
		}
		out[item.ID] = item
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return out, nil
}

func (s *Store) ListInventory(ctx context.Context, companyID string) ([]domain.InventoryItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+inventoryColumns+`
		FROM inventory
		WHERE company_id = $1
		ORDER BY name, id
	`, companyID)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	items := make([]domain.InventoryItem, 0, 64)
	for rows.Next() {
		item, err := scanInventoryItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return items, nil
}

func (s *Store) AdjustQuantity(ctx context.Context, companyID string, adj domain.StockAdjustment, move *domain.StockMove) (int, error) {
	var qty int
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		qty, err = adjustQuantity(ctx, tx, companyID, adj)
		if err != nil {
			return err
		}
		if move != nil {
			return insertStockMove(ctx, tx, companyID, *move)
		}
		return nil
	})
	return qty, err
}

// adjustQuantity is the store-side read-modify-write: the row is only touched
// when the result stays non-negative.
func adjustQuantity(ctx context.Context, q querier, companyID string, adj domain.StockAdjustment) (int, error) {
	var qty int
	err := q.QueryRow(ctx, `
		UPDATE inventory
		SET quantity = quantity + $3, updated_at = now()
		WHERE company_id = $1 AND id = $2 AND quantity + $3 >= 0
		RETURNING quantity
	`, companyID, adj.ItemID, adj.Delta).Scan(&qty)
	if err == nil {
		return qty, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, err
	}

	var exists bool
	if err := q.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM inventory WHERE company_id = $1 AND id = $2)
	`, companyID, adj.ItemID).Scan(&exists); err != nil {
		return 0, err
	}
	if !exists {
		return 0, fmt.Errorf("%w: item %s", store.ErrNotFound, adj.ItemID)
	}
	return 0, fmt.Errorf("%w: item %s", store.ErrStockViolation, adj.ItemID)
}

// mergeAdjustments folds repeated items and orders them by id so concurrent
// groups lock rows in the same order.
func mergeAdjustments(adjustments []domain.StockAdjustment) []domain.StockAdjustment {
	byItem := make(map[string]int, len(adjustments))
	for _, adj := range adjustments {
		byItem[adj.ItemID] += adj.Delta
	}
	out := make([]domain.StockAdjustment, 0, len(byItem))
	for id, delta := range byItem {
		out = append(out, domain.StockAdjustment{ItemID: id, Delta: delta})
	}
	slices.SortFunc(out, func(a, b domain.StockAdjustment) int {
		return strings.Compare(a.ItemID, b.ItemID)
	})
	return out
}

func (s *Store) CommitTransaction(ctx context.Context, companyID string, commit store.Commit) (*domain.Invoice, error) {
	inv := commit.Invoice
	if len(inv.Items) == 0 {
		return nil, store.ErrInvalidRecord
	}
	if inv.ID == "" {
		inv.ID = xid.New("inv")
	}
	inv.CompanyID = companyID

	err := s.inTx(ctx, func(tx pgx.Tx) error {
		if inv.IdempotencyKey != "" {
			retired, err := keyRetired(ctx, tx, companyID, inv.IdempotencyKey)
			if err != nil {
				return err
			}
			if retired {
				return store.ErrKeyRetired
			}
		}
		if guard := commit.Return; guard != nil {
			var billType string
			err := tx.QueryRow(ctx, `
				SELECT type FROM invoices
				WHERE company_id = $1 AND id = $2
				FOR UPDATE
			`, companyID, guard.BillID).Scan(&billType)
			if errors.Is(err, pgx.ErrNoRows) || (err == nil && billType != domain.InvoiceTypeInvoice) {
				return store.ErrNotFound
			}
			if err != nil {
				return err
			}
			returned, err := returnedQty(ctx, tx, companyID, guard.BillID)
			if err != nil {
				return err
			}
			for productID, qty := range store.RequestedByProduct(inv.Items) {
				if returned[productID]+qty > guard.Limits[productID] {
					return fmt.Errorf("%w: product %s", store.ErrReturnLimit, productID)
				}
			}
		}

		for _, adj := range mergeAdjustments(commit.Adjustments) {
			if _, err := adjustQuantity(ctx, tx, companyID, adj); err != nil {
				return err
			}
		}
		if err := insertInvoice(ctx, tx, inv); err != nil {
			return err
		}
		move := commit.Move
		move.InvoiceID = inv.ID
		return insertStockMove(ctx, tx, companyID, move)
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (s *Store) DeleteSale(ctx context.Context, companyID string, invoiceID string, move domain.StockMove) (*domain.Invoice, error) {
	var inv domain.Invoice
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		var err error
		inv, err = scanInvoice(tx.QueryRow(ctx, `
			SELECT `+invoiceColumns+`
			FROM invoices
			WHERE company_id = $1 AND id = $2
			FOR UPDATE
		`, companyID, invoiceID))
		if err != nil {
			return err
		}
		if !inv.IsSale() {
			return store.ErrInvalidRecord
		}
		var hasReturns bool
		if err := tx.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM invoices
				WHERE company_id = $1 AND type = $2 AND bill_number = $3
			)
		`, companyID, domain.InvoiceTypeCreditNote, invoiceID).Scan(&hasReturns); err != nil {
			return err
		}
		if hasReturns {
			return store.ErrInvalidRecord
		}

		adjustments := make([]domain.StockAdjustment, 0, len(inv.Items))
		for _, line := range inv.Items {
			adjustments = append(adjustments, domain.StockAdjustment{ItemID: line.ProductID, Delta: line.Qty})
		}
		for _, adj := range mergeAdjustments(adjustments) {
			if _, err := adjustQuantity(ctx, tx, companyID, adj); err != nil {
				return err
			}
		}
		move.InvoiceID = inv.ID
		if err := insertStockMove(ctx, tx, companyID, move); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM invoices WHERE company_id = $1 AND id = $2`, companyID, invoiceID); err != nil {
			return err
		}
		if inv.IdempotencyKey == "" {
			return nil
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO retired_idempotency_keys (company_id, idempotency_key, invoice_id)
			VALUES ($1, $2, $3)
			ON CONFLICT (company_id, idempotency_key) DO NOTHING
		`, companyID, inv.IdempotencyKey, inv.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

const invoiceColumns = `id, company_id, date, status, type, items, total_cents, customer_name, customer_phone,
	channel, bill_number, reason, idempotency_key`

func scanInvoice(row pgx.Row) (domain.Invoice, error) {
	var inv domain.Invoice
	err := row.Scan(&inv.ID, &inv.CompanyID, &inv.Date, &inv.Status, &inv.Type, &inv.Items, &inv.TotalCents,
		&inv.CustomerName, &inv.CustomerPhone, &inv.Channel, &inv.BillNumber, &inv.Reason, &inv.IdempotencyKey)
	inv.Date = inv.Date.UTC()
	return inv, err
}

func insertInvoice(ctx context.Context, q querier, inv domain.Invoice) error {
	_, err := q.Exec(ctx, `
		INSERT INTO invoices (
			id, company_id, date, status, type, items, total_cents, customer_name, customer_phone,
			channel, bill_number, reason, idempotency_key
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, inv.ID, inv.CompanyID, inv.Date, inv.Status, inv.Type, inv.Items, inv.TotalCents, inv.CustomerName,
		inv.CustomerPhone, inv.Channel, inv.BillNumber, inv.Reason, inv.IdempotencyKey)
	return err
}

func (s *Store) FindInvoiceByID(ctx context.Context, companyID string, invoiceID string) (*domain.Invoice, error) {
	return s.findInvoice(ctx, companyID, "id", invoiceID)
}

func (s *Store) FindInvoiceByIdempotency(ctx context.Context, companyID string, key string) (*domain.Invoice, error) {
	if key == "" {
		return nil, store.ErrNotFound
	}
	inv, err := s.findInvoice(ctx, companyID, "idempotency_key", key)
	if !errors.Is(err, store.ErrNotFound) {
		return inv, err
	}
	retired, rerr := keyRetired(ctx, s.pool, companyID, key)
	if rerr != nil {
		return nil, mapError(rerr)
	}
	if retired {
		return nil, store.ErrKeyRetired
	}
	return nil, err
}

func keyRetired(ctx context.Context, q querier, companyID string, key string) (bool, error) {
	var retired bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM retired_idempotency_keys
			WHERE company_id = $1 AND idempotency_key = $2
		)
	`, companyID, key).Scan(&retired)
	return retired, err
}

func (s *Store) findInvoice(ctx context.Context, companyID string, column string, value string) (*domain.Invoice, error) {
	query, args, err := psql.Select(invoiceColumns).
		From(store.CollectionInvoices).
		Where(sq.Eq{"company_id": companyID, column: value}).
		ToSql()
	if err != nil {
		return nil, err
	}
	inv, err := scanInvoice(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapError(err)
	}
	return &inv, nil
}

func (s *Store) ListInvoices(ctx context.Context, companyID string, filter domain.InvoiceFilter) ([]domain.Invoice, error) {
	q := psql.Select(invoiceColumns).
		From(store.CollectionInvoices).
		Where(sq.Eq{"company_id": companyID}).
		OrderBy("date DESC", "id DESC")
	if filter.Type != "" {
		q = q.Where(sq.Eq{"type": filter.Type})
	}
	if filter.BillNumber != "" {
		q = q.Where(sq.Eq{"bill_number": filter.BillNumber})
	}
	if filter.From != nil {
		q = q.Where(sq.GtOrEq{"date": *filter.From})
	}
	if filter.To != nil {
		q = q.Where(sq.Lt{"date": *filter.To})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	invoices := make([]domain.Invoice, 0, 64)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return invoices, nil
}

func (s *Store) ReturnedQtyByBill(ctx context.Context, companyID string, billID string) (map[string]int, error) {
	out, err := returnedQty(ctx, s.pool, companyID, billID)
	return out, mapError(err)
}

func returnedQty(ctx context.Context, q querier, companyID string, billID string) (map[string]int, error) {
	rows, err := q.Query(ctx, `
		SELECT line->>'product_id', COALESCE(SUM((line->>'qty')::int), 0)
		FROM invoices, jsonb_array_elements(items) AS line
		WHERE company_id = $1 AND type = $2 AND bill_number = $3
		GROUP BY 1
	`, companyID, domain.InvoiceTypeCreditNote, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var productID string
		var qty int
		if err := rows.Scan(&productID, &qty); err != nil {
			return nil, err
		}
		out[productID] = qty
	}
	return out, rows.Err()
}

func insertStockMove(ctx context.Context, q querier, companyID string, move domain.StockMove) error {
	if move.ID == "" {
		move.ID = xid.New("mv")
	}
	if move.Date.IsZero() {
		move.Date = time.Now().UTC()
	}
	_, err := q.Exec(ctx, `
		INSERT INTO stock_moves (company_id, id, type, items, date, reason, invoice_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, companyID, move.ID, move.Type, move.Items, move.Date, move.Reason, move.InvoiceID)
	return err
}

func (s *Store) ListStockMoves(ctx context.Context, companyID string, filter domain.StockMoveFilter) ([]domain.StockMove, error) {
	q := psql.Select("id", "company_id", "type", "items", "date", "reason", "invoice_id").
		From(store.CollectionStockMoves).
		Where(sq.Eq{"company_id": companyID}).
		OrderBy("date DESC", "id DESC")
	if filter.InvoiceID != "" {
		q = q.Where(sq.Eq{"invoice_id": filter.InvoiceID})
	}
	if filter.ProductID != "" {
		containsItem, err := json.Marshal([]map[string]string{{"product_id": filter.ProductID}})
		if err != nil {
			return nil, err
		}
		q = q.Where(sq.Expr("items @> ?::jsonb", string(containsItem)))
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	moves := make([]domain.StockMove, 0, 64)
	for rows.Next() {
		var move domain.StockMove
		if err := rows.Scan(&move.ID, &move.CompanyID, &move.Type, &move.Items, &move.Date, &move.Reason, &move.InvoiceID); err != nil {
			return nil, err
		}
		move.Date = move.Date.UTC()
		moves = append(moves, move)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return moves, nil
}

func (s *Store) CreateCapitalTransaction(ctx context.Context, companyID string, tx domain.CapitalTransaction) (*domain.CapitalTransaction, error) {
	if tx.ID == "" {
		tx.ID = xid.New("cap")
	}
	tx.CompanyID = companyID
	if tx.Date.IsZero() {
		tx.Date = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO capital_transactions (company_id, id, owner_id, type, amount_cents, date, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, companyID, tx.ID, tx.OwnerID, tx.Type, tx.AmountCents, tx.Date, tx.Notes)
	if err != nil {
		return nil, mapError(err)
	}
	return &tx, nil
}

func (s *Store) ListCapitalTransactions(ctx context.Context, companyID string) ([]domain.CapitalTransaction, error) {
	out := make([]domain.CapitalTransaction, 0, 32)
	err := pgxscan.Select(ctx, s.pool, &out, `
		SELECT id, company_id, owner_id, type, amount_cents, date, notes
		FROM capital_transactions
		WHERE company_id = $1
		ORDER BY date, id
	`, companyID)
	if err != nil {
		return nil, mapError(err)
	}
	for i := range out {
		out[i].Date = out[i].Date.UTC()
	}
	return out, nil
}

func (s *Store) GetDistributionLedger(ctx context.Context, companyID string) (domain.DistributionLedger, error) {
	var ledger domain.DistributionLedger
	err := s.pool.QueryRow(ctx, `
		SELECT distributed_cents, version
		FROM distribution_ledgers
		WHERE company_id = $1
	`, companyID).Scan(&ledger.DistributedCents, &ledger.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DistributionLedger{}, nil
	}
	if err != nil {
		return ledger, mapError(err)
	}
	return ledger, nil
}

func (s *Store) AppendProfitDistribution(ctx context.Context, companyID string, dist domain.ProfitDistribution, expectedVersion int64) (*domain.ProfitDistribution, error) {
	if dist.ID == "" {
		dist.ID = xid.New("dist")
	}
	dist.CompanyID = companyID
	if dist.Date.IsZero() {
		dist.Date = time.Now().UTC()
	}

	err := s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO distribution_ledgers (company_id) VALUES ($1)
			ON CONFLICT (company_id) DO NOTHING
		`, companyID); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `
			UPDATE distribution_ledgers
			SET distributed_cents = distributed_cents + $2, version = version + 1
			WHERE company_id = $1 AND version = $3
		`, companyID, dist.AmountCents, expectedVersion)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return store.ErrVersionConflict
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO profit_distributions (company_id, id, owner_id, amount_cents, date, notes)
			VALUES ($1,$2,$3,$4,$5,$6)
		`, companyID, dist.ID, dist.OwnerID, dist.AmountCents, dist.Date, dist.Notes)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &dist, nil
}

func (s *Store) ListProfitDistributions(ctx context.Context, companyID string) ([]domain.ProfitDistribution, error) {
	out := make([]domain.ProfitDistribution, 0, 32)
	err := pgxscan.Select(ctx, s.pool, &out, `
		SELECT id, company_id, owner_id, amount_cents, date, notes
		FROM profit_distributions
		WHERE company_id = $1
		ORDER BY date, id
	`, companyID)
	if err != nil {
		return nil, mapError(err)
	}
	for i := range out {
		out[i].Date = out[i].Date.UTC()
	}
	return out, nil
}

func (s *Store) CreateExpense(ctx context.Context, companyID string, expense domain.Expense) (*domain.Expense, error) {
	if expense.ID == "" {
		expense.ID = xid.New("exp")
	}
	expense.CompanyID = companyID
	if expense.Date.IsZero() {
		expense.Date = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO expenses (company_id, id, category, description, amount_cents, date)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, companyID, expense.ID, expense.Category, expense.Description, expense.AmountCents, expense.Date)
	if err != nil {
		return nil, mapError(err)
	}
	return &expense, nil
}

func (s *Store) ListExpenses(ctx context.Context, companyID string) ([]domain.Expense, error) {
	out := make([]domain.Expense, 0, 32)
	err := pgxscan.Select(ctx, s.pool, &out, `
		SELECT id, company_id, category, description, amount_cents, date
		FROM expenses
		WHERE company_id = $1
		ORDER BY date, id
	`, companyID)
	if err != nil {
		return nil, mapError(err)
	}
	for i := range out {
		out[i].Date = out[i].Date.UTC()
	}
	return out, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))
	if user.Username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidRecord
	}
	if user.Role == "" {
		user.Role = domain.RoleCashier
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO app_users (username, password, role, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	return mapError(err)
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT username, password, role, active, created_at
		FROM app_users
		ORDER BY username ASC
	`)
	if err != nil {
		return nil, mapError(err)
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(err)
	}
	return users, nil
}

// mapError translates driver errors into store sentinels. Errors that already
// carry a sentinel pass through untouched.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", store.ErrDuplicate, pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: %s", store.ErrNotFound, pgErr.ConstraintName)
		case "23514":
			return fmt.Errorf("%w: %s", store.ErrStockViolation, pgErr.ConstraintName)
		case "40001", "40P01":
			return fmt.Errorf("%w: %s", store.ErrVersionConflict, pgErr.Message)
		}
		return err
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) || pgconn.Timeout(err) {
		return fmt.Errorf("%w: %v", store.ErrStoreUnavailable, err)
	}
	return err
}
