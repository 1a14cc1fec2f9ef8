package postgres

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"

	"ledgerpos/backend/internal/domain"
	"ledgerpos/backend/internal/store"
)

func TestMergeAdjustmentsFoldsAndOrders(t *testing.T) {
	got := mergeAdjustments([]domain.StockAdjustment{
		{ItemID: "b", Delta: -1},
		{ItemID: "a", Delta: -2},
		{ItemID: "b", Delta: -3},
	})
	assert.Equal(t, []domain.StockAdjustment{{ItemID: "a", Delta: -2}, {ItemID: "b", Delta: -4}}, got)
}

func TestMapError(t *testing.T) {
	assert.NoError(t, mapError(nil))
	assert.ErrorIs(t, mapError(pgx.ErrNoRows), store.ErrNotFound)
	assert.ErrorIs(t, mapError(&pgconn.PgError{Code: "23505"}), store.ErrDuplicate)
	assert.ErrorIs(t, mapError(&pgconn.PgError{Code: "23514"}), store.ErrStockViolation)
	assert.ErrorIs(t, mapError(&pgconn.PgError{Code: "40001"}), store.ErrVersionConflict)

	wrapped := mapError(store.ErrReturnLimit)
	assert.ErrorIs(t, wrapped, store.ErrReturnLimit)

	other := errors.New("boom")
	assert.Equal(t, other, mapError(other))
}
