package sales

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/mercadito/internal/db"
	"github.com/noah-isme/mercadito/internal/inventory"
	"github.com/noah-isme/mercadito/internal/pricing"
)

// ErrStoreUnavailable indicates the sale store dependency is not configured.
var ErrStoreUnavailable = errors.New("sales: store unavailable")

// Tx is the transactional surface used while recording a sale.
type Tx interface {
	inventory.StockWriter
	InsertSale(ctx context.Context, sale NewSale) (Sale, error)
}

// Store provides persistence for sales.
type Store interface {
	ListSales(ctx context.Context, limit int) ([]Sale, error)
	// WithTx runs fn in a transaction committed only when fn returns nil.
	WithTx(ctx context.Context, fn func(Tx) error) error
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool db.Pool) Store {
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool db.Pool
}

type pgTx struct {
	inventory.PGStockWriter
	tx pgx.Tx
}

// WithTx implements Store.
func (s *pgStore) WithTx(ctx context.Context, fn func(Tx) error) error {
	if s == nil || s.pool == nil {
		return ErrStoreUnavailable
	}
	return db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&pgTx{PGStockWriter: inventory.PGStockWriter{Q: tx}, tx: tx})
	})
}

// InsertSale writes the sale row and returns it with its id and timestamp.
func (t *pgTx) InsertSale(ctx context.Context, in NewSale) (Sale, error) {
	sale := Sale{
		Total:         in.Total,
		Tendered:      in.Tendered,
		Change:        in.Change,
		Customer:      in.Customer,
		PaymentMethod: in.PaymentMethod,
		Products:      in.Snapshot,
	}
	err := t.tx.QueryRow(ctx, `
		INSERT INTO ventas (total, pago, vuelto, cliente, metodo_pago, items)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, fecha`,
		int64(in.Total), int64(in.Tendered), int64(in.Change), in.Customer, in.PaymentMethod, []byte(in.Snapshot),
	).Scan(&sale.ID, &sale.Date)
	if err != nil {
		return Sale{}, err
	}
	return sale, nil
}

// ListSales returns sales most recent first. A non-positive limit returns every sale.
func (s *pgStore) ListSales(ctx context.Context, limit int) ([]Sale, error) {
	if s == nil || s.pool == nil {
		return nil, ErrStoreUnavailable
	}
	query := `SELECT id, fecha, total, pago, vuelto, cliente, metodo_pago, items FROM ventas ORDER BY fecha DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	sales := make([]Sale, 0)
	for rows.Next() {
		var sale Sale
		var total, tendered, change int64
		var items []byte
		if err := rows.Scan(&sale.ID, &sale.Date, &total, &tendered, &change, &sale.Customer, &sale.PaymentMethod, &items); err != nil {
			return nil, err
		}
		sale.Total, sale.Tendered, sale.Change = pricing.Money(total), pricing.Money(tendered), pricing.Money(change)
		sale.Products = items
		sales = append(sales, sale)
	}
	return sales, rows.Err()
}
