package inventory

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/noah-isme/mercadito/internal/common"
	"github.com/noah-isme/mercadito/internal/db"
)

// Service implements product management on top of a Store.
type Service struct {
	store Store
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store Store
}

// NewService constructs a product Service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{store: cfg.Store}
}

func notFound(id int64) error {
	return common.NotFound("Producto no encontrado", id)
}

func mapStoreError(err error, id int64) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrProductNotFound):
		return notFound(id)
	}
	switch kind, _ := db.Classify(err); kind {
	case db.ViolationForeignKey:
		return common.Constraint("El producto tiene ofertas asociadas", http.StatusConflict, err)
	case db.ViolationCheck, db.ViolationNotNull:
		return common.Constraint("Datos de producto inválidos", http.StatusBadRequest, err)
	}
	return common.Internal("Error al procesar el producto", err)
}

// List returns every product.
func (s *Service) List(ctx context.Context) ([]Product, error) {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return nil, common.Internal("Error al obtener productos", err)
	}
	return products, nil
}

// Get returns a product or a not found error.
func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	p, err := s.store.GetProduct(ctx, id)
	return p, mapStoreError(err, id)
}

// Create validates and inserts a product.
func (s *Service) Create(ctx context.Context, in ProductInput) (Product, error) {
	in.normalize()
	if err := common.ValidateStruct(in); err != nil {
		return Product{}, err
	}
	p, err := s.store.CreateProduct(ctx, in)
	if err != nil {
		return Product{}, mapStoreError(err, 0)
	}
	zerolog.Ctx(ctx).Info().Int64("product_id", p.ID).Str("categoria", p.Category).Msg("product created")
	return p, nil
}

// Update validates and replaces a product.
func (s *Service) Update(ctx context.Context, id int64, in ProductInput) (Product, error) {
	in.normalize()
	if err := common.ValidateStruct(in); err != nil {
		return Product{}, err
	}
	p, err := s.store.UpdateProduct(ctx, id, in)
	return p, mapStoreError(err, id)
}

// Patch applies a partial update produced by ParsePatch.
func (s *Service) Patch(ctx context.Context, id int64, patch ProductPatch) (Product, error) {
	if patch.Empty() {
		return Product{}, common.Validation("no hay campos para actualizar", nil)
	}
	p, err := s.store.PatchProduct(ctx, id, patch)
	return p, mapStoreError(err, id)
}

// Delete removes a product. Products referenced by offers cannot be deleted.
func (s *Service) Delete(ctx context.Context, id int64) error {
	existed, err := s.store.DeleteProduct(ctx, id)
	if err != nil {
		return mapStoreError(err, id)
	}
	if !existed {
		return notFound(id)
	}
	zerolog.Ctx(ctx).Info().Int64("product_id", id).Msg("product deleted")
	return nil
}
