// Package offers manages volume offers and serves them to the pricing engine as a catalog.
package offers

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/noah-isme/mercadito/internal/common"
	"github.com/noah-isme/mercadito/internal/pricing"
)

// Offer is an offer row joined with the product it applies to.
type Offer struct {
	ID           int64         `json:"id"`
	ProductID    int64         `json:"producto_id"`
	MinQuantity  int           `json:"cantidad_minima"`
	UnitPrice    pricing.Money `json:"precio_unitario"`
	TotalPrice   pricing.Money `json:"precio_total"`
	CreatedAt    time.Time     `json:"created_at"`
	ProductName  string        `json:"producto_nombre"`
	ProductStock int           `json:"producto_stock"`
}

// CreateRequest is the raw payload of POST /api/ofertas. Fields stay raw so numeric strings and
// numbers are accepted alike and anything else is rejected with a field level error.
type CreateRequest struct {
	ProductID   json.RawMessage `json:"producto_id"`
	MinQuantity json.RawMessage `json:"cantidad_minima"`
	UnitPrice   json.RawMessage `json:"precio_unitario"`
}

// CreateInput is a validated offer definition.
type CreateInput struct {
	ProductID   int64
	MinQuantity int
	UnitPrice   pricing.Money
}

// Parse validates every field and reports all failures at once.
func (req CreateRequest) Parse() (CreateInput, error) {
	var in CreateInput
	problems := map[string]string{}

	if id, err := pricing.ParseID(req.ProductID); err != nil || id <= 0 {
		problems["producto_id"] = describe(err, "debe ser un identificador positivo")
	} else {
		in.ProductID = id
	}
	if qty, err := pricing.ParseQuantity(req.MinQuantity); err != nil || qty <= 0 {
		problems["cantidad_minima"] = describe(err, "debe ser un entero mayor a 0")
	} else {
		in.MinQuantity = qty
	}
	if price, err := pricing.ParseMoney(req.UnitPrice); err != nil || price <= 0 {
		problems["precio_unitario"] = describe(err, "debe ser un número mayor a 0")
	} else {
		in.UnitPrice = price
	}
	if in.MinQuantity > 0 && in.UnitPrice > 0 {
		if _, err := pricing.LineSubtotal(in.UnitPrice, in.MinQuantity); err != nil {
			problems["precio_unitario"] = "el precio total de la oferta excede el máximo permitido"
		}
	}

	if len(problems) > 0 {
		return CreateInput{}, common.Validation("Todos los campos son requeridos y deben ser positivos", map[string]any{"campos": problems})
	}
	return in, nil
}

func describe(err error, fallback string) string {
	if errors.Is(err, pricing.ErrMissingValue) {
		return "es requerido"
	}
	return fallback
}
