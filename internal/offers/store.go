package offers

import (
	"context"
	"errors"
	"time"

	"github.com/noah-isme/mercadito/internal/db"
	"github.com/noah-isme/mercadito/internal/pricing"
)

// ErrStoreUnavailable indicates the offer store dependency is not configured.
var ErrStoreUnavailable = errors.New("offers: store unavailable")

// Store provides persistence for offers.
type Store interface {
	ListOffers(ctx context.Context) ([]Offer, error)
	CatalogOffers(ctx context.Context) ([]pricing.Offer, error)
	ProductExists(ctx context.Context, productID int64) (bool, error)
	HasOffer(ctx context.Context, productID int64) (bool, error)
	CreateOffer(ctx context.Context, in CreateInput) (Offer, error)
	DeleteOffer(ctx context.Context, id int64) (bool, error)
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool db.Querier) Store {
	return &pgStore{q: pool}
}

type pgStore struct {
	q db.Querier
}

func (s *pgStore) available() error {
	if s == nil || s.q == nil {
		return ErrStoreUnavailable
	}
	return nil
}

// ListOffers returns every offer with its product, most recent first.
func (s *pgStore) ListOffers(ctx context.Context) ([]Offer, error) {
	if err := s.available(); err != nil {
		return nil, err
	}
	rows, err := s.q.Query(ctx, `
		SELECT o.id, o.producto_id, o.cantidad_minima, o.precio_unitario, o.precio_total, o.created_at,
		       p.nombre, p.stock
		FROM ofertas o
		JOIN productos p ON p.id = o.producto_id
		ORDER BY o.created_at DESC, o.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	offers := make([]Offer, 0)
	for rows.Next() {
		var o Offer
		var unit, total int64
		if err := rows.Scan(&o.ID, &o.ProductID, &o.MinQuantity, &unit, &total, &o.CreatedAt, &o.ProductName, &o.ProductStock); err != nil {
			return nil, err
		}
		o.UnitPrice, o.TotalPrice = pricing.Money(unit), pricing.Money(total)
		offers = append(offers, o)
	}
	return offers, rows.Err()
}

// CatalogOffers returns the offer rows the pricing engine needs.
func (s *pgStore) CatalogOffers(ctx context.Context) ([]pricing.Offer, error) {
	if err := s.available(); err != nil {
		return nil, err
	}
	rows, err := s.q.Query(ctx, `SELECT id, producto_id, cantidad_minima, precio_unitario, created_at FROM ofertas`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	offers := make([]pricing.Offer, 0)
	for rows.Next() {
		var o pricing.Offer
		var unit int64
		if err := rows.Scan(&o.ID, &o.ProductID, &o.MinQuantity, &unit, &o.CreatedAt); err != nil {
			return nil, err
		}
		o.BundleUnitPrice = pricing.Money(unit)
		offers = append(offers, o)
	}
	return offers, rows.Err()
}

func (s *pgStore) exists(ctx context.Context, sql string, id int64) (bool, error) {
	if err := s.available(); err != nil {
		return false, err
	}
	var ok bool
	err := s.q.QueryRow(ctx, sql, id).Scan(&ok)
	return ok, err
}

// ProductExists reports whether the product row exists.
func (s *pgStore) ProductExists(ctx context.Context, productID int64) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM productos WHERE id = $1)`, productID)
}

// HasOffer reports whether the product already carries an offer.
func (s *pgStore) HasOffer(ctx context.Context, productID int64) (bool, error) {
	return s.exists(ctx, `SELECT EXISTS (SELECT 1 FROM ofertas WHERE producto_id = $1)`, productID)
}

// CreateOffer inserts the offer and returns it joined with its product.
func (s *pgStore) CreateOffer(ctx context.Context, in CreateInput) (Offer, error) {
	if err := s.available(); err != nil {
		return Offer{}, err
	}
	var o Offer
	var unit, total int64
	var created time.Time
	err := s.q.QueryRow(ctx, `
		WITH inserted AS (
			INSERT INTO ofertas (producto_id, cantidad_minima, precio_unitario)
			VALUES ($1, $2, $3)
			RETURNING id, producto_id, cantidad_minima, precio_unitario, precio_total, created_at
		)
		SELECT i.id, i.producto_id, i.cantidad_minima, i.precio_unitario, i.precio_total, i.created_at, p.nombre, p.stock
		FROM inserted i JOIN productos p ON p.id = i.producto_id`,
		in.ProductID, in.MinQuantity, int64(in.UnitPrice),
	).Scan(&o.ID, &o.ProductID, &o.MinQuantity, &unit, &total, &created, &o.ProductName, &o.ProductStock)
	if err != nil {
		return Offer{}, err
	}
	o.UnitPrice, o.TotalPrice, o.CreatedAt = pricing.Money(unit), pricing.Money(total), created
	return o, nil
}

// DeleteOffer removes an offer and reports whether it existed.
func (s *pgStore) DeleteOffer(ctx context.Context, id int64) (bool, error) {
	if err := s.available(); err != nil {
		return false, err
	}
	tag, err := s.q.Exec(ctx, `DELETE FROM ofertas WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
