// Package accounts implements customer tabs: named accounts with an append only purchase history.
package accounts

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/noah-isme/mercadito/internal/common"
	"github.com/noah-isme/mercadito/internal/inventory"
	"github.com/noah-isme/mercadito/internal/pricing"
)

// ErrAccountNotFound is returned by stores when the account row does not exist.
var ErrAccountNotFound = errors.New("account not found")

// Account is a customer tab.
type Account struct {
	ID        int64     `json:"id"`
	Name      string    `json:"nombre"`
	CreatedAt time.Time `json:"creado_en"`
}

// Purchase is one line charged to an account.
type Purchase struct {
	ID        int64         `json:"id"`
	AccountID int64         `json:"cuenta_id"`
	Product   string        `json:"producto"`
	Quantity  int           `json:"cantidad"`
	Price     pricing.Money `json:"precio"`
	Date      time.Time     `json:"fecha"`
}

// Detail is an account together with its purchases.
type Detail struct {
	Account   Account    `json:"cuenta"`
	Purchases []Purchase `json:"compras"`
}

// HistoryItem is the product block of a history entry.
type HistoryItem struct {
	ID       int64         `json:"id"`
	Name     string        `json:"nombre"`
	Price    pricing.Money `json:"precio"`
	Quantity int           `json:"cantidad"`
}

// HistoryEntry is a purchase shaped for the tab history view.
type HistoryEntry struct {
	ID       int64         `json:"id"`
	Date     time.Time     `json:"fecha"`
	Products []HistoryItem `json:"productos"`
}

func historyOf(purchases []Purchase) []HistoryEntry {
	entries := make([]HistoryEntry, 0, len(purchases))
	for _, p := range purchases {
		entries = append(entries, HistoryEntry{
			ID:   p.ID,
			Date: p.Date,
			Products: []HistoryItem{{
				ID:       p.ID,
				Name:     p.Product,
				Price:    p.Price,
				Quantity: p.Quantity,
			}},
		})
	}
	return entries
}

// CreateRequest is the body of POST /api/cuentas.
type CreateRequest struct {
	Name string `json:"nombre"`
}

// PurchaseRequest is the body of POST /api/cuentas/{id}/compras.
type PurchaseRequest struct {
	Products json.RawMessage `json:"productos"`
}

// PurchaseLine is a validated item to charge to an account. ProductID is zero for free text items.
type PurchaseLine struct {
	ProductID int64
	Name      string
	Quantity  int
	Price     pricing.Money
}

type rawItem struct {
	ID        json.RawMessage `json:"id"`
	Name      *string         `json:"nombre"`
	Quantity  json.RawMessage `json:"cantidad"`
	UnitPrice json.RawMessage `json:"precio_unitario"`
	Price     json.RawMessage `json:"precio"`
}

func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

func invalidItem(index int, item json.RawMessage) error {
	return common.Validation("Producto con datos incompletos o inválidos", map[string]any{
		"indice":   index,
		"producto": item,
	})
}

// ParseLines validates every item before anything is written. precio_unitario takes precedence
// over precio; an optional id links the line to a product for stock settlement.
func ParseLines(raw json.RawMessage) ([]PurchaseLine, error) {
	var items []json.RawMessage
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' || json.Unmarshal(trimmed, &items) != nil {
		return nil, common.Validation("Formato de productos inválido", nil)
	}
	if len(items) == 0 {
		return nil, common.Validation("Debe incluir al menos un producto", nil)
	}
	lines := make([]PurchaseLine, 0, len(items))
	for i, item := range items {
		var parsed rawItem
		if err := json.Unmarshal(item, &parsed); err != nil {
			return nil, invalidItem(i, item)
		}
		if parsed.Name == nil || strings.TrimSpace(*parsed.Name) == "" {
			return nil, invalidItem(i, item)
		}
		qty, err := pricing.ParseQuantity(parsed.Quantity)
		if err != nil || qty < 1 {
			return nil, invalidItem(i, item)
		}
		priceRaw := parsed.Price
		if present(parsed.UnitPrice) {
			priceRaw = parsed.UnitPrice
		}
		price, err := pricing.ParseMoney(priceRaw)
		if err != nil || price < 0 {
			return nil, invalidItem(i, item)
		}
		if _, err := pricing.LineSubtotal(price, qty); err != nil {
			return nil, invalidItem(i, item)
		}
		line := PurchaseLine{Name: strings.TrimSpace(*parsed.Name), Quantity: qty, Price: price}
		if present(parsed.ID) {
			id, err := pricing.ParseID(parsed.ID)
			if err != nil || id <= 0 {
				return nil, invalidItem(i, item)
			}
			line.ProductID = id
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func moves(lines []PurchaseLine) []inventory.StockMove {
	out := make([]inventory.StockMove, 0, len(lines))
	for _, l := range lines {
		if l.ProductID > 0 {
			out = append(out, inventory.StockMove{ProductID: l.ProductID, Quantity: l.Quantity})
		}
	}
	return out
}
