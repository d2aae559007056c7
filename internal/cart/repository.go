package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrItemNotFound    = errors.New("item not in cart")
	ErrCartNotFound    = errors.New("cart not found")
)

const (
	pgForeignKeyViolation = "23503"
	pgNumericOutOfRange   = "22003"
)

// DBPool matches the methods from *pgxpool.Pool that we use.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// querier is satisfied by both the pool and a pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

type Repository interface {
	GetOrCreate(ctx context.Context, userID string) (Cart, error)
	AddItem(ctx context.Context, cartID string, productID int64, quantity int) error
	RemoveItem(ctx context.Context, cartID string, productID int64, quantity int) (RemoveResult, error)
	Clear(ctx context.Context, cartID string) error
	Items(ctx context.Context, cartID string) ([]Item, error)
}

// TransactionalRepository lets checkout drive the cart inside its own transaction.
type TransactionalRepository interface {
	Repository
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	LockForCheckoutWithTx(ctx context.Context, tx pgx.Tx, userID string) (string, error)
	ItemsWithTx(ctx context.Context, tx pgx.Tx, cartID string) ([]Item, error)
	ClearWithTx(ctx context.Context, tx pgx.Tx, cartID string) error
}

type PostgresRepository struct {
	pool DBPool
}

func NewPostgresRepository(pool DBPool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// GetOrCreate is a single upsert so concurrent first access yields one row.
func (r *PostgresRepository) GetOrCreate(ctx context.Context, userID string) (Cart, error) {
	c := Cart{UserID: userID}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO carts (user_id)
		VALUES ($1)
		ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		RETURNING id, created_at, updated_at
	`, userID).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Cart{}, fmt.Errorf("upsert cart: %w", err)
	}
	return c, nil
}

func (r *PostgresRepository) AddItem(ctx context.Context, cartID string, productID int64, quantity int) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockCartShared(ctx, tx, cartID); err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO cart_items (cart_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
	`, cartID, productID, quantity)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgForeignKeyViolation:
				return ErrProductNotFound
			case pgNumericOutOfRange:
				// The accumulated line quantity no longer fits.
				return ErrInvalidQuantity
			}
		}
		return fmt.Errorf("upsert cart item: %w", err)
	}

	if err := touchCart(ctx, tx, cartID); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *PostgresRepository) RemoveItem(ctx context.Context, cartID string, productID int64, quantity int) (RemoveResult, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return RemoveResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := lockCartShared(ctx, tx, cartID); err != nil {
		return RemoveResult{}, err
	}

	var existing int
	err = tx.QueryRow(ctx, `
		SELECT quantity
		FROM cart_items
		WHERE cart_id=$1 AND product_id=$2
		FOR UPDATE
	`, cartID, productID).Scan(&existing)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RemoveResult{}, ErrItemNotFound
		}
		return RemoveResult{}, fmt.Errorf("lock cart item: %w", err)
	}

	var res RemoveResult
	if existing <= quantity {
		if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1 AND product_id=$2`, cartID, productID); err != nil {
			return RemoveResult{}, fmt.Errorf("delete cart item: %w", err)
		}
		res = RemoveResult{Outcome: OutcomeRemoved}
	} else {
		remaining := existing - quantity
		if _, err := tx.Exec(ctx, `UPDATE cart_items SET quantity=$3 WHERE cart_id=$1 AND product_id=$2`, cartID, productID, remaining); err != nil {
			return RemoveResult{}, fmt.Errorf("decrement cart item: %w", err)
		}
		res = RemoveResult{Outcome: OutcomeDecremented, Remaining: remaining}
	}

	if err := touchCart(ctx, tx, cartID); err != nil {
		return RemoveResult{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return RemoveResult{}, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}

func (r *PostgresRepository) Clear(ctx context.Context, cartID string) error {
	return clearItems(ctx, r.pool, cartID)
}

func (r *PostgresRepository) Items(ctx context.Context, cartID string) ([]Item, error) {
	return listItems(ctx, r.pool, cartID)
}

func (r *PostgresRepository) BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error) {
	return r.pool.BeginTx(ctx, txOptions)
}

// LockForCheckoutWithTx takes an exclusive lock on the user's cart row and
// returns its id. A user without a cart gets ErrCartNotFound.
func (r *PostgresRepository) LockForCheckoutWithTx(ctx context.Context, tx pgx.Tx, userID string) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `SELECT id FROM carts WHERE user_id=$1 FOR UPDATE`, userID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrCartNotFound
		}
		return "", fmt.Errorf("lock cart: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) ItemsWithTx(ctx context.Context, tx pgx.Tx, cartID string) ([]Item, error) {
	return listItems(ctx, tx, cartID)
}

func (r *PostgresRepository) ClearWithTx(ctx context.Context, tx pgx.Tx, cartID string) error {
	return clearItems(ctx, tx, cartID)
}

// lockCartShared blocks while a checkout holds the cart row exclusively.
func lockCartShared(ctx context.Context, tx pgx.Tx, cartID string) error {
	var id string
	err := tx.QueryRow(ctx, `SELECT id FROM carts WHERE id=$1 FOR SHARE`, cartID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCartNotFound
		}
		return fmt.Errorf("lock cart: %w", err)
	}
	return nil
}

func touchCart(ctx context.Context, q querier, cartID string) error {
	if _, err := q.Exec(ctx, `UPDATE carts SET updated_at=now() WHERE id=$1`, cartID); err != nil {
		return fmt.Errorf("touch cart: %w", err)
	}
	return nil
}

func clearItems(ctx context.Context, q querier, cartID string) error {
	if _, err := q.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1`, cartID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return touchCart(ctx, q, cartID)
}

func listItems(ctx context.Context, q querier, cartID string) ([]Item, error) {
	rows, err := q.Query(ctx, `
		SELECT ci.product_id, p.name, ci.quantity, p.price, p.discount_percent
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.cart_id=$1
		ORDER BY ci.created_at, ci.id
	`, cartID)
	if err != nil {
		return nil, fmt.Errorf("query cart items: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ProductID, &it.Name, &it.Quantity, &it.BasePrice, &it.DiscountPercent); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart items: %w", err)
	}
	return items, nil
}
