package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/mercadito/internal/db"
	"github.com/noah-isme/mercadito/internal/pricing"
)

// ErrStoreUnavailable indicates the product store dependency is not configured.
var ErrStoreUnavailable = errors.New("inventory: store unavailable")

// Store provides persistence for products.
type Store interface {
	ListProducts(ctx context.Context) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (Product, error)
	CreateProduct(ctx context.Context, in ProductInput) (Product, error)
	UpdateProduct(ctx context.Context, id int64, in ProductInput) (Product, error)
	PatchProduct(ctx context.Context, id int64, patch ProductPatch) (Product, error)
	DeleteProduct(ctx context.Context, id int64) (bool, error)
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool db.Querier) Store {
	return &pgStore{q: pool}
}

type pgStore struct {
	q db.Querier
}

const productColumns = `id, nombre, categoria, precio, stock,
	to_char(fecha_ingreso, 'YYYY-MM-DD'), to_char(fecha_vencimiento, 'YYYY-MM-DD'), lote, creado_en`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var price int64
	if err := row.Scan(&p.ID, &p.Name, &p.Category, &price, &p.Stock, &p.IntakeDate, &p.ExpiryDate, &p.Lot, &p.CreatedAt); err != nil {
		if db.IsNoRows(err) {
			return Product{}, ErrProductNotFound
		}
		return Product{}, err
	}
	p.Price = pricing.Money(price)
	return p, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// ListProducts returns every product ordered by name.
func (s *pgStore) ListProducts(ctx context.Context) ([]Product, error) {
	if s == nil || s.q == nil {
		return nil, ErrStoreUnavailable
	}
	rows, err := s.q.Query(ctx, `SELECT `+productColumns+` FROM productos ORDER BY nombre, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	products := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// GetProduct fetches a product by id.
func (s *pgStore) GetProduct(ctx context.Context, id int64) (Product, error) {
	if s == nil || s.q == nil {
		return Product{}, ErrStoreUnavailable
	}
	return scanProduct(s.q.QueryRow(ctx, `SELECT `+productColumns+` FROM productos WHERE id = $1`, id))
}

// CreateProduct inserts a product. A blank intake date defaults to today.
func (s *pgStore) CreateProduct(ctx context.Context, in ProductInput) (Product, error) {
	if s == nil || s.q == nil {
		return Product{}, ErrStoreUnavailable
	}
	return scanProduct(s.q.QueryRow(ctx, `INSERT INTO productos
	(nombre, categoria, precio, stock, fecha_ingreso, fecha_vencimiento, lote)
VALUES ($1, $2, $3, $4, COALESCE($5::date, CURRENT_DATE), $6::date, $7)
RETURNING `+productColumns,
		in.Name, in.Category, int64(in.Price), in.Stock, nullable(in.IntakeDate), in.ExpiryDate, nullable(in.Lot)))
}

// UpdateProduct replaces the mutable fields of a product.
func (s *pgStore) UpdateProduct(ctx context.Context, id int64, in ProductInput) (Product, error) {
	if s == nil || s.q == nil {
		return Product{}, ErrStoreUnavailable
	}
	return scanProduct(s.q.QueryRow(ctx, `UPDATE productos
SET nombre = $2, categoria = $3, precio = $4, stock = $5, fecha_vencimiento = $6::date, lote = $7
WHERE id = $1
RETURNING `+productColumns,
		id, in.Name, in.Category, int64(in.Price), in.Stock, in.ExpiryDate, nullable(in.Lot)))
}

// PatchProduct updates only the fields present in patch.
func (s *pgStore) PatchProduct(ctx context.Context, id int64, patch ProductPatch) (Product, error) {
	if s == nil || s.q == nil {
		return Product{}, ErrStoreUnavailable
	}
	sets := make([]string, 0, 6)
	args := []any{id}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Name != nil {
		add("nombre", *patch.Name)
	}
	if patch.Category != nil {
		add("categoria", *patch.Category)
	}
	if patch.Price != nil {
		add("precio", int64(*patch.Price))
	}
	if patch.Stock != nil {
		add("stock", *patch.Stock)
	}
	if patch.ExpiryDate != nil {
		args = append(args, *patch.ExpiryDate)
		sets = append(sets, fmt.Sprintf("fecha_vencimiento = $%d::date", len(args)))
	}
	switch {
	case patch.LotNull:
		add("lote", nil)
	case patch.Lot != nil:
		add("lote", nullable(*patch.Lot))
	}
	if len(sets) == 0 {
		return s.GetProduct(ctx, id)
	}
	return scanProduct(s.q.QueryRow(ctx,
		`UPDATE productos SET `+strings.Join(sets, ", ")+` WHERE id = $1 RETURNING `+productColumns, args...))
}

// DeleteProduct removes a product and reports whether it existed.
func (s *pgStore) DeleteProduct(ctx context.Context, id int64) (bool, error) {
	if s == nil || s.q == nil {
		return false, ErrStoreUnavailable
	}
	tag, err := s.q.Exec(ctx, `DELETE FROM productos WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// PGStockWriter applies guarded decrements with a conditional UPDATE. The row lock taken by the
// UPDATE serialises concurrent writers; the loser re-evaluates the predicate after the winner
// commits.
type PGStockWriter struct {
	Q db.Querier
}

// Decrement subtracts qty from the product stock when enough units are available.
func (w PGStockWriter) Decrement(ctx context.Context, productID int64, qty int) error {
	if w.Q == nil {
		return ErrStoreUnavailable
	}
	tag, err := w.Q.Exec(ctx, `UPDATE productos SET stock = stock - $1 WHERE id = $2 AND stock >= $1`, qty, productID)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var name string
	var available int
	err = w.Q.QueryRow(ctx, `SELECT nombre, stock FROM productos WHERE id = $1`, productID).Scan(&name, &available)
	if db.IsNoRows(err) {
		return &StockError{ProductID: productID, Requested: qty, Missing: true}
	}
	if err != nil {
		return fmt.Errorf("read stock: %w", err)
	}
	return &StockError{ProductID: productID, Name: name, Requested: qty, Available: available}
}
