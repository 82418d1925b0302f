package offers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/mercadito/internal/common"
	"github.com/noah-isme/mercadito/internal/db"
	"github.com/noah-isme/mercadito/internal/lock"
	"github.com/noah-isme/mercadito/internal/pricing"
	"github.com/noah-isme/mercadito/internal/resilience"
)

const defaultLockTTL = 10 * time.Second

// Service manages offers and builds the pricing catalog.
type Service struct {
	store   Store
	cache   *Cache
	guard   lock.Guard
	lockTTL time.Duration
}

// ServiceConfig groups Service dependencies. Cache and Guard are optional.
type ServiceConfig struct {
	Store   Store
	Cache   *Cache
	Guard   lock.Guard
	LockTTL time.Duration
}

// NewService constructs an offer Service.
func NewService(cfg ServiceConfig) *Service {
	guard := cfg.Guard
	if guard == nil {
		guard = &lock.Local{}
	}
	ttl := cfg.LockTTL
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &Service{store: cfg.Store, cache: cfg.Cache, guard: guard, lockTTL: ttl}
}

// Catalog returns the offer catalog used to price carts. Cache failures fall back to the store.
func (s *Service) Catalog(ctx context.Context) (pricing.Catalog, error) {
	entry, err := s.cache.CatalogOffers(ctx)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("offer cache read failed")
	}
	if entry.Hit {
		return pricing.NewCatalog(entry.Offers), nil
	}
	offers, err := s.store.CatalogOffers(ctx)
	if err != nil {
		return nil, common.Internal("Error al obtener ofertas", err)
	}
	if err := s.cache.FillCatalog(ctx, entry, offers); err != nil && !errors.Is(err, resilience.ErrOpenCircuit) {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("offer cache write failed")
	}
	return pricing.NewCatalog(offers), nil
}

// List returns every offer joined with its product.
func (s *Service) List(ctx context.Context) ([]Offer, error) {
	offers, err := s.store.ListOffers(ctx)
	if err != nil {
		return nil, common.Internal("Error al obtener ofertas", err)
	}
	return offers, nil
}

func productMissing(id int64) error {
	return &common.AppError{
		Code:       common.CodeNotFound,
		Message:    "El producto especificado no existe",
		HTTPStatus: http.StatusNotFound,
		Details:    map[string]any{"producto_id": id},
	}
}

func duplicateOffer(id int64, err error) error {
	appErr := common.Constraint("Ya existe una oferta para este producto", http.StatusConflict, err)
	appErr.Details = map[string]any{"producto_id": id}
	return appErr
}

// Create validates and stores a new offer. A product carries at most one offer; the check runs
// under a per-product lock and the unique index catches anything that slips past it.
func (s *Service) Create(ctx context.Context, req CreateRequest) (Offer, error) {
	in, err := req.Parse()
	if err != nil {
		return Offer{}, err
	}
	var created Offer
	key := "oferta:producto:" + strconv.FormatInt(in.ProductID, 10)
	err = s.guard.WithLock(ctx, key, s.lockTTL, func(ctx context.Context) error {
		exists, err := s.store.ProductExists(ctx, in.ProductID)
		if err != nil {
			return common.Internal("Error al crear la oferta", err)
		}
		if !exists {
			return productMissing(in.ProductID)
		}
		taken, err := s.store.HasOffer(ctx, in.ProductID)
		if err != nil {
			return common.Internal("Error al crear la oferta", err)
		}
		if taken {
			return duplicateOffer(in.ProductID, nil)
		}
		created, err = s.store.CreateOffer(ctx, in)
		if err != nil {
			return mapCreateError(err, in.ProductID)
		}
		return nil
	})
	if err != nil {
		if !common.IsAppError(err) {
			err = common.Internal("Error al crear la oferta", err)
		}
		return Offer{}, err
	}
	s.invalidate(ctx)
	zerolog.Ctx(ctx).Info().Int64("offer_id", created.ID).Int64("product_id", created.ProductID).
		Int("min_quantity", created.MinQuantity).Msg("offer created")
	return created, nil
}

func mapCreateError(err error, productID int64) error {
	if db.IsNoRows(err) {
		return productMissing(productID)
	}
	switch kind, _ := db.Classify(err); kind {
	case db.ViolationForeignKey:
		return productMissing(productID)
	case db.ViolationUnique:
		return duplicateOffer(productID, err)
	case db.ViolationCheck, db.ViolationNotNull:
		return common.Constraint("Datos de oferta inválidos", http.StatusBadRequest, err)
	}
	return common.Internal("Error al crear la oferta", err)
}

// Delete removes an offer.
func (s *Service) Delete(ctx context.Context, id int64) error {
	existed, err := s.store.DeleteOffer(ctx, id)
	if err != nil {
		return common.Internal("Error al eliminar la oferta", err)
	}
	if !existed {
		return common.NotFound("Oferta no encontrada", id)
	}
	s.invalidate(ctx)
	zerolog.Ctx(ctx).Info().Int64("offer_id", id).Msg("offer deleted")
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateCatalog(ctx); err != nil && !errors.Is(err, context.Canceled) {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("offer cache invalidation failed")
	}
}
