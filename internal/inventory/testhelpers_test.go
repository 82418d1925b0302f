package inventory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

type memoryStore struct {
	mu         sync.Mutex
	nextID     int64
	products   map[int64]Product
	referenced map[int64]bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{products: map[int64]Product{}, referenced: map[int64]bool{}}
}

func (m *memoryStore) ListProducts(context.Context) ([]Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryStore) GetProduct(_ context.Context, id int64) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}

func fromInput(p Product, in ProductInput) Product {
	p.Name, p.Category, p.Price, p.Stock, p.ExpiryDate = in.Name, in.Category, in.Price, in.Stock, in.ExpiryDate
	p.Lot = nil
	if in.Lot != "" {
		lot := in.Lot
		p.Lot = &lot
	}
	return p
}

func (m *memoryStore) CreateProduct(_ context.Context, in ProductInput) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	p := fromInput(Product{ID: m.nextID, IntakeDate: in.IntakeDate, CreatedAt: time.Now()}, in)
	if p.IntakeDate == "" {
		p.IntakeDate = time.Now().Format(time.DateOnly)
	}
	m.products[p.ID] = p
	return p, nil
}

func (m *memoryStore) UpdateProduct(_ context.Context, id int64, in ProductInput) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	p = fromInput(p, in)
	m.products[id] = p
	return p, nil
}

func (m *memoryStore) PatchProduct(_ context.Context, id int64, patch ProductPatch) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Category != nil {
		p.Category = *patch.Category
	}
	if patch.Price != nil {
		p.Price = *patch.Price
	}
	if patch.Stock != nil {
		p.Stock = *patch.Stock
	}
	if patch.ExpiryDate != nil {
		p.ExpiryDate = *patch.ExpiryDate
	}
	if patch.Lot != nil {
		p.Lot = patch.Lot
	}
	if patch.LotNull {
		p.Lot = nil
	}
	m.products[id] = p
	return p, nil
}

func (m *memoryStore) DeleteProduct(_ context.Context, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.referenced[id] {
		return false, &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, ConstraintName: "ofertas_producto_id_fkey"}
	}
	if _, ok := m.products[id]; !ok {
		return false, nil
	}
	delete(m.products, id)
	return true, nil
}
