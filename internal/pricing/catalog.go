package pricing

import "time"

// Offer grants a fixed bundle price when MinQuantity units of one product are bought together.
type Offer struct {
	ID              int64     `json:"id"`
	ProductID       int64     `json:"producto_id"`
	MinQuantity     int       `json:"cantidad_minima"`
	BundleUnitPrice Money     `json:"precio_unitario"`
	CreatedAt       time.Time `json:"created_at"`
}

// BundleTotal is the price charged for one full bundle.
func (o Offer) BundleTotal() Money {
	return o.BundleUnitPrice.Mul(o.MinQuantity)
}

// Catalog resolves the active offer for a product.
type Catalog interface {
	Lookup(productID int64) (Offer, bool)
}

// MapCatalog is an immutable in-memory Catalog keyed by product.
type MapCatalog struct {
	byProduct map[int64]Offer
}

// NewCatalog indexes offers by product. When a product has more than one offer the most
// recently created one wins, falling back to the highest ID.
func NewCatalog(offers []Offer) MapCatalog {
	byProduct := make(map[int64]Offer, len(offers))
	for _, o := range offers {
		if o.MinQuantity <= 0 {
			continue
		}
		current, ok := byProduct[o.ProductID]
		if !ok || newer(o, current) {
			byProduct[o.ProductID] = o
		}
	}
	return MapCatalog{byProduct: byProduct}
}

// Lookup implements Catalog.
func (c MapCatalog) Lookup(productID int64) (Offer, bool) {
	o, ok := c.byProduct[productID]
	return o, ok
}

// Len reports how many products carry an offer.
func (c MapCatalog) Len() int { return len(c.byProduct) }

func newer(a, b Offer) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}
