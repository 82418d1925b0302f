// Package sales records point-of-sale checkouts: it prices the cart against the active offers,
// stores the sale and settles product stock in one transaction.
package sales

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/mercadito/internal/common"
	"github.com/noah-isme/mercadito/internal/inventory"
	"github.com/noah-isme/mercadito/internal/pricing"
)

// DefaultCustomer labels sales without a named customer.
const DefaultCustomer = "Consumidor Final"

// Sale is a recorded checkout. Products holds the submitted lines exactly as received.
type Sale struct {
	ID            int64           `json:"id"`
	Date          time.Time       `json:"fecha"`
	Total         pricing.Money   `json:"total"`
	Tendered      pricing.Money   `json:"pago"`
	Change        pricing.Money   `json:"vuelto"`
	Customer      string          `json:"cliente"`
	PaymentMethod string          `json:"metodoPago"`
	Products      json.RawMessage `json:"productos"`
	Quote         *pricing.Quote  `json:"detalle,omitempty"`
}

// NewSale is the row written for a checkout.
type NewSale struct {
	Total         pricing.Money
	Tendered      pricing.Money
	Change        pricing.Money
	Customer      string
	PaymentMethod string
	Snapshot      json.RawMessage
}

// Input is a validated checkout request.
type Input struct {
	Lines         []pricing.Line
	Snapshot      json.RawMessage
	Tendered      pricing.Money
	PaymentMethod string
	Customer      string
}

// Moves returns the stock leaving the store for this checkout.
func (in Input) Moves() []inventory.StockMove {
	moves := make([]inventory.StockMove, 0, len(in.Lines))
	for _, l := range in.Lines {
		moves = append(moves, inventory.StockMove{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return moves
}

// CreateRequest is the raw body of POST /api/ventas.
type CreateRequest struct {
	Products      json.RawMessage `json:"productos"`
	Tendered      json.RawMessage `json:"pago"`
	Customer      string          `json:"cliente"`
	PaymentMethod string          `json:"metodoPago"`
}

// QuoteRequest is the raw body of POST /api/ventas/cotizar.
type QuoteRequest struct {
	Products json.RawMessage `json:"productos"`
}

type rawLine struct {
	ID       json.RawMessage `json:"id"`
	Quantity json.RawMessage `json:"cantidad"`
	Price    json.RawMessage `json:"precio"`
}

func lineError(index int, field, reason string) error {
	return common.Validation(
		fmt.Sprintf("Producto en la posición %d: %s", index, reason),
		map[string]any{"indice": index, "campo": field},
	)
}

// ParseLines validates the submitted cart lines. Every line needs a positive product id, an
// integer quantity of at least one and a price of zero or more; the first offending line is
// reported. Quantities stop at pricing.MaxQuantity and no line or running total may pass
// pricing.MaxMoney.
func ParseLines(raw json.RawMessage) ([]pricing.Line, error) {
	trimmed := bytes.TrimSpace(raw)
	var items []rawLine
	if len(trimmed) == 0 || trimmed[0] != '[' || json.Unmarshal(trimmed, &items) != nil || len(items) == 0 {
		return nil, common.Validation("Debe incluir al menos un producto en la venta.", nil)
	}
	lines := make([]pricing.Line, 0, len(items))
	var total pricing.Money
	for i, item := range items {
		id, err := pricing.ParseID(item.ID)
		if err != nil || id <= 0 {
			return nil, lineError(i, "id", "identificador de producto inválido")
		}
		qty, err := pricing.ParseQuantity(item.Quantity)
		if err != nil || qty < 1 {
			return nil, lineError(i, "cantidad", "la cantidad debe ser un entero mayor o igual a 1")
		}
		price, err := pricing.ParseMoney(item.Price)
		if err != nil || price < 0 {
			return nil, lineError(i, "precio", "el precio debe ser un número mayor o igual a 0")
		}
		subtotal, err := pricing.LineSubtotal(price, qty)
		if err == nil {
			total, err = pricing.AddTotal(total, subtotal)
		}
		if err != nil {
			return nil, lineError(i, "precio", "el importe excede el máximo permitido")
		}
		lines = append(lines, pricing.Line{ProductID: id, UnitPrice: price, Quantity: qty})
	}
	return lines, nil
}

// Parse validates the whole request before anything is written.
func (req CreateRequest) Parse() (Input, error) {
	lines, err := ParseLines(req.Products)
	if err != nil {
		return Input{}, err
	}
	var tendered pricing.Money
	if parsed, err := pricing.ParseMoney(req.Tendered); err == nil {
		if parsed < 0 {
			return Input{}, common.Validation("El pago no puede ser negativo", map[string]any{"campo": "pago"})
		}
		tendered = parsed
	} else if !errors.Is(err, pricing.ErrMissingValue) {
		return Input{}, common.Validation("El pago debe ser un número", map[string]any{"campo": "pago"})
	}
	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		return Input{}, common.Validation("El método de pago es requerido", map[string]any{"campo": "metodoPago"})
	}
	var snapshot bytes.Buffer
	if err := json.Compact(&snapshot, req.Products); err != nil {
		return Input{}, common.Validation("JSON inválido", nil)
	}
	return Input{
		Lines:         lines,
		Snapshot:      snapshot.Bytes(),
		Tendered:      tendered,
		PaymentMethod: method,
		Customer:      req.Customer,
	}, nil
}

// CustomerLabel trims name and falls back to DefaultCustomer when nothing is left.
func CustomerLabel(name string) string {
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		return trimmed
	}
	return DefaultCustomer
}
