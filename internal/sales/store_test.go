package sales

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/mercadito/internal/inventory"
	"github.com/noah-isme/mercadito/internal/pricing"
)

type memoryProduct struct {
	name  string
	stock int
}

// memoryStore applies a transaction to copies of its state and swaps them in on success.
type memoryStore struct {
	mu       sync.Mutex
	nextID   int64
	products map[int64]memoryProduct
	sales    []Sale
	clock    time.Time
	// frozen stamps every sale with clock itself.
	frozen bool
}

func newMemoryStore(products map[int64]memoryProduct) *memoryStore {
	return &memoryStore{products: products, clock: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)}
}

type memoryTx struct {
	store    *memoryStore
	products map[int64]memoryProduct
	sales    []Sale
	nextID   int64
}

func (m *memoryStore) WithTx(ctx context.Context, fn func(Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memoryTx{store: m, products: make(map[int64]memoryProduct, len(m.products)), nextID: m.nextID}
	for id, p := range m.products {
		tx.products[id] = p
	}
	tx.sales = append(tx.sales, m.sales...)
	if err := fn(tx); err != nil {
		return err
	}
	m.products, m.sales, m.nextID = tx.products, tx.sales, tx.nextID
	return nil
}

func (m *memoryStore) stamp(id int64) time.Time {
	if m.frozen {
		return m.clock
	}
	return m.clock.Add(time.Duration(id) * time.Minute)
}

func (t *memoryTx) InsertSale(_ context.Context, in NewSale) (Sale, error) {
	t.nextID++
	sale := Sale{
		ID:            t.nextID,
		Date:          t.store.stamp(t.nextID),
		Total:         in.Total,
		Tendered:      in.Tendered,
		Change:        in.Change,
		Customer:      in.Customer,
		PaymentMethod: in.PaymentMethod,
		Products:      in.Snapshot,
	}
	t.sales = append(t.sales, sale)
	return sale, nil
}

func (t *memoryTx) Decrement(_ context.Context, id int64, qty int) error {
	p, ok := t.products[id]
	if !ok {
		return &inventory.StockError{ProductID: id, Requested: qty, Missing: true}
	}
	if p.stock < qty {
		return &inventory.StockError{ProductID: id, Name: p.name, Requested: qty, Available: p.stock}
	}
	p.stock -= qty
	t.products[id] = p
	return nil
}

func (m *memoryStore) ListSales(_ context.Context, limit int) ([]Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]Sale(nil), m.sales...)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryStore) stock(id int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].stock
}

type staticCatalog struct {
	offers []pricing.Offer
	err    error
}

func (c staticCatalog) Catalog(context.Context) (pricing.Catalog, error) {
	if c.err != nil {
		return nil, c.err
	}
	return pricing.NewCatalog(c.offers), nil
}

var errCatalogDown = errors.New("catalog down")
