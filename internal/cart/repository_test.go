package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cartID = "0b6a3c5e-2f51-4c0e-9a53-3f1f7f6a1c11"

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func expectSharedLock(mock pgxmock.PgxPoolIface) {
	mock.ExpectQuery(`SELECT id FROM carts WHERE id=\$1 FOR SHARE`).
		WithArgs(cartID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(cartID))
}

func TestPostgresRepository_GetOrCreate(t *testing.T) {
	mock := newMock(t)
	now := time.Now().UTC()

	mock.ExpectQuery(`INSERT INTO carts \(user_id\)\s+VALUES \(\$1\)\s+ON CONFLICT \(user_id\)`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(cartID, now, now))

	c, err := NewPostgresRepository(mock).GetOrCreate(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, cartID, c.ID)
	assert.Equal(t, "user-1", c.UserID)
	assert.Equal(t, now, c.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_AddItem(t *testing.T) {
	ctx := context.Background()

	t.Run("upserts and accumulates quantity", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBegin()
		expectSharedLock(mock)
		mock.ExpectExec(`ON CONFLICT \(cart_id, product_id\)\s+DO UPDATE SET quantity = cart_items.quantity \+ EXCLUDED.quantity`).
			WithArgs(cartID, int64(5), 2).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		mock.ExpectExec(`UPDATE carts SET updated_at=now\(\)`).
			WithArgs(cartID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		require.NoError(t, NewPostgresRepository(mock).AddItem(ctx, cartID, 5, 2))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("foreign key violation maps to ErrProductNotFound", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBegin()
		expectSharedLock(mock)
		mock.ExpectExec(`INSERT INTO cart_items`).
			WithArgs(cartID, int64(404), 1).
			WillReturnError(&pgconn.PgError{Code: pgForeignKeyViolation})
		mock.ExpectRollback()

		err := NewPostgresRepository(mock).AddItem(ctx, cartID, 404, 1)
		assert.ErrorIs(t, err, ErrProductNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("accumulated quantity overflow maps to ErrInvalidQuantity", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBegin()
		expectSharedLock(mock)
		mock.ExpectExec(`INSERT INTO cart_items`).
			WithArgs(cartID, int64(5), MaxQuantity).
			WillReturnError(&pgconn.PgError{Code: pgNumericOutOfRange})
		mock.ExpectRollback()

		err := NewPostgresRepository(mock).AddItem(ctx, cartID, 5, MaxQuantity)
		assert.ErrorIs(t, err, ErrInvalidQuantity)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing cart", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`FOR SHARE`).WithArgs(cartID).WillReturnRows(pgxmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		err := NewPostgresRepository(mock).AddItem(ctx, cartID, 1, 1)
		assert.ErrorIs(t, err, ErrCartNotFound)
	})
}

func TestPostgresRepository_RemoveItem(t *testing.T) {
	ctx := context.Background()

	t.Run("decrements when more remain", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBegin()
		expectSharedLock(mock)
		mock.ExpectQuery(`SELECT quantity\s+FROM cart_items\s+WHERE cart_id=\$1 AND product_id=\$2\s+FOR UPDATE`).
			WithArgs(cartID, int64(5)).
			WillReturnRows(pgxmock.NewRows([]string{"quantity"}).AddRow(5))
		mock.ExpectExec(`UPDATE cart_items SET quantity=\$3`).
			WithArgs(cartID, int64(5), 3).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectExec(`UPDATE carts SET updated_at`).WithArgs(cartID).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		mock.ExpectCommit()

		res, err := NewPostgresRepository(mock).RemoveItem(ctx, cartID, 5, 2)
		require.NoError(t, err)
		assert.Equal(t, RemoveResult{Outcome: OutcomeDecremented, Remaining: 3}, res)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("deletes when quantity covers the line", func(t *testing.T) {
		for _, requested := range []int{5, 9} {
			mock := newMock(t)
			mock.ExpectBegin()
			expectSharedLock(mock)
			mock.ExpectQuery(`SELECT quantity`).
				WithArgs(cartID, int64(5)).
				WillReturnRows(pgxmock.NewRows([]string{"quantity"}).AddRow(5))
			mock.ExpectExec(`DELETE FROM cart_items WHERE cart_id=\$1 AND product_id=\$2`).
				WithArgs(cartID, int64(5)).
				WillReturnResult(pgxmock.NewResult("DELETE", 1))
			mock.ExpectExec(`UPDATE carts SET updated_at`).WithArgs(cartID).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			mock.ExpectCommit()

			res, err := NewPostgresRepository(mock).RemoveItem(ctx, cartID, 5, requested)
			require.NoError(t, err)
			assert.Equal(t, OutcomeRemoved, res.Outcome)
			require.NoError(t, mock.ExpectationsWereMet())
		}
	})

	t.Run("missing item", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectBegin()
		expectSharedLock(mock)
		mock.ExpectQuery(`SELECT quantity`).
			WithArgs(cartID, int64(8)).
			WillReturnRows(pgxmock.NewRows([]string{"quantity"}))
		mock.ExpectRollback()

		_, err := NewPostgresRepository(mock).RemoveItem(ctx, cartID, 8, 1)
		assert.ErrorIs(t, err, ErrItemNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresRepository_Clear(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec(`DELETE FROM cart_items WHERE cart_id=\$1`).
		WithArgs(cartID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec(`UPDATE carts SET updated_at`).WithArgs(cartID).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, NewPostgresRepository(mock).Clear(context.Background(), cartID))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepository_Items(t *testing.T) {
	ctx := context.Background()

	t.Run("joins current product prices in insertion order", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`FROM cart_items ci\s+JOIN products p`).
			WithArgs(cartID).
			WillReturnRows(pgxmock.NewRows([]string{"product_id", "name", "quantity", "price", "discount_percent"}).
				AddRow(int64(1), "Mug", 2, "10.00", 0).
				AddRow(int64(2), "Tea", 1, "8.00", 50))

		items, err := NewPostgresRepository(mock).Items(ctx, cartID)
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, "Mug", items[0].Name)
		assert.Equal(t, "4.00", items[1].UnitPrice().StringFixed(2))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty cart returns empty slice", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`FROM cart_items`).
			WithArgs(cartID).
			WillReturnRows(pgxmock.NewRows([]string{"product_id", "name", "quantity", "price", "discount_percent"}))

		items, err := NewPostgresRepository(mock).Items(ctx, cartID)
		require.NoError(t, err)
		assert.NotNil(t, items)
		assert.Empty(t, items)
	})

	t.Run("query error", func(t *testing.T) {
		mock := newMock(t)
		mock.ExpectQuery(`FROM cart_items`).WithArgs(cartID).WillReturnError(errors.New("conn reset"))

		_, err := NewPostgresRepository(mock).Items(ctx, cartID)
		assert.Error(t, err)
	})
}

func TestPostgresRepository_LockForCheckoutWithTx(t *testing.T) {
	ctx := context.Background()
	mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id FROM carts WHERE user_id=\$1 FOR UPDATE`).
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(cartID))
	mock.ExpectQuery(`SELECT id FROM carts WHERE user_id=\$1 FOR UPDATE`).
		WithArgs("nobody").
		WillReturnRows(pgxmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	repo := NewPostgresRepository(mock)
	tx, err := repo.BeginTx(ctx, pgx.TxOptions{})
	require.NoError(t, err)

	id, err := repo.LockForCheckoutWithTx(ctx, tx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, cartID, id)

	_, err = repo.LockForCheckoutWithTx(ctx, tx, "nobody")
	assert.ErrorIs(t, err, ErrCartNotFound)

	require.NoError(t, tx.Rollback(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}
