package sales

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/noah-isme/mercadito/internal/common"
	"github.com/noah-isme/mercadito/internal/inventory"
	"github.com/noah-isme/mercadito/internal/obs"
	"github.com/noah-isme/mercadito/internal/pricing"
)

// CatalogSource supplies the offers used to price a cart.
type CatalogSource interface {
	Catalog(ctx context.Context) (pricing.Catalog, error)
}

// Service records and lists sales.
type Service struct {
	store   Store
	offers  CatalogSource
	metrics *obs.StoreMetrics
}

// ServiceConfig groups Service dependencies. Offers and Metrics are optional; without offers every
// cart is priced flat.
type ServiceConfig struct {
	Store   Store
	Offers  CatalogSource
	Metrics *obs.StoreMetrics
}

// NewService constructs a sale Service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{store: cfg.Store, offers: cfg.Offers, metrics: cfg.Metrics}
}

func (s *Service) catalog(ctx context.Context) (pricing.Catalog, error) {
	if s.offers == nil {
		return nil, nil
	}
	return s.offers.Catalog(ctx)
}

// Quote prices lines against the current offers without writing anything.
func (s *Service) Quote(ctx context.Context, lines []pricing.Line) (pricing.Quote, error) {
	catalog, err := s.catalog(ctx)
	if err != nil {
		return pricing.Quote{}, err
	}
	quote, err := pricing.PriceCartChecked(lines, catalog)
	if err != nil {
		return pricing.Quote{}, common.Validation("El total de la venta excede el máximo permitido", map[string]any{"campo": "productos"})
	}
	return quote, nil
}

// Record prices and persists a checkout. The sale row and every stock decrement share one
// transaction; a refused decrement leaves nothing behind.
func (s *Service) Record(ctx context.Context, in Input) (Sale, error) {
	quote, err := s.Quote(ctx, in.Lines)
	if err != nil {
		return Sale{}, err
	}
	row := NewSale{
		Total:         quote.Total,
		Tendered:      in.Tendered,
		Change:        pricing.Change(in.Tendered, quote.Total),
		Customer:      CustomerLabel(in.Customer),
		PaymentMethod: in.PaymentMethod,
		Snapshot:      in.Snapshot,
	}

	var sale Sale
	err = s.store.WithTx(ctx, func(tx Tx) error {
		var err error
		sale, err = tx.InsertSale(ctx, row)
		if err != nil {
			return err
		}
		return inventory.Settle(ctx, tx, in.Moves(), inventory.PolicyEngine)
	})
	if err != nil {
		if errors.Is(err, inventory.ErrInsufficientStock) {
			s.metrics.ObserveStockRejection("venta")
		}
		mapped := inventory.AppError(err)
		if !common.IsAppError(mapped) {
			mapped = common.Internal("Error interno al procesar la venta", err)
		}
		return Sale{}, mapped
	}

	sale.Quote = &quote
	s.metrics.ObserveSale(sale.PaymentMethod, quote.Total.Decimal().InexactFloat64(), quote.Savings.Decimal().InexactFloat64())
	zerolog.Ctx(ctx).Info().
		Int64("sale_id", sale.ID).
		Str("total", quote.Total.String()).
		Str("savings", quote.Savings.String()).
		Str("metodo_pago", sale.PaymentMethod).
		Int("lines", len(in.Lines)).
		Msg("sale recorded")
	return sale, nil
}

// List returns recorded sales most recent first. A non-positive limit returns them all.
func (s *Service) List(ctx context.Context, limit int) ([]Sale, error) {
	sales, err := s.store.ListSales(ctx, limit)
	if err != nil {
		return nil, common.Internal("Error al obtener el historial de ventas", err)
	}
	return sales, nil
}
