package accounts

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/mercadito/internal/inventory"
)

type memoryState struct {
	accounts  map[int64]Account
	purchases []Purchase
	stock     map[int64]int
	nextID    int64
	nextBuy   int64
}

func (s memoryState) clone() memoryState {
	c := memoryState{
		accounts:  make(map[int64]Account, len(s.accounts)),
		purchases: append([]Purchase(nil), s.purchases...),
		stock:     make(map[int64]int, len(s.stock)),
		nextID:    s.nextID,
		nextBuy:   s.nextBuy,
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.stock {
		c.stock[k] = v
	}
	return c
}

type memoryStore struct {
	mu    sync.Mutex
	state memoryState
}

func newMemoryStore() *memoryStore {
	return &memoryStore{state: memoryState{accounts: map[int64]Account{}, stock: map[int64]int{}}}
}

func (m *memoryStore) CreateAccount(_ context.Context, name string) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.nextID++
	a := Account{ID: m.state.nextID, Name: name, CreatedAt: time.Now()}
	m.state.accounts[a.ID] = a
	return a, nil
}

func (m *memoryStore) ListAccounts(_ context.Context, filter string) ([]Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Account, 0)
	for _, a := range m.state.accounts {
		if filter == "" || strings.Contains(strings.ToLower(a.Name), strings.ToLower(filter)) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memoryStore) GetAccount(_ context.Context, id int64) (Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.state.accounts[id]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return a, nil
}

func (m *memoryStore) ListPurchases(_ context.Context, accountID int64) ([]Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Purchase, 0)
	for _, p := range m.state.purchases {
		if p.AccountID == accountID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *memoryStore) WithTx(_ context.Context, fn func(Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	tx := &memoryTx{state: m.state.clone()}
	if err := fn(tx); err != nil {
		return err
	}
	m.state = tx.state
	return nil
}

func (m *memoryStore) purchaseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.state.purchases)
}

func (m *memoryStore) stockOf(id int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.stock[id]
}

type memoryTx struct {
	state memoryState
}

func (t *memoryTx) LockAccount(_ context.Context, id int64) (bool, error) {
	_, ok := t.state.accounts[id]
	return ok, nil
}

func (t *memoryTx) InsertPurchase(_ context.Context, accountID int64, line PurchaseLine, at time.Time) (Purchase, error) {
	t.state.nextBuy++
	p := Purchase{ID: t.state.nextBuy, AccountID: accountID, Product: line.Name, Quantity: line.Quantity, Price: line.Price, Date: at}
	t.state.purchases = append(t.state.purchases, p)
	return p, nil
}

func (t *memoryTx) DeletePurchases(_ context.Context, accountID int64) error {
	kept := t.state.purchases[:0:0]
	for _, p := range t.state.purchases {
		if p.AccountID != accountID {
			kept = append(kept, p)
		}
	}
	t.state.purchases = kept
	return nil
}

func (t *memoryTx) DeleteAccount(_ context.Context, id int64) (bool, error) {
	if _, ok := t.state.accounts[id]; !ok {
		return false, nil
	}
	for _, p := range t.state.purchases {
		if p.AccountID == id {
			panic("purchases must be deleted before the account")
		}
	}
	delete(t.state.accounts, id)
	return true, nil
}

func (t *memoryTx) Decrement(_ context.Context, id int64, qty int) error {
	available, ok := t.state.stock[id]
	if !ok {
		return &inventory.StockError{ProductID: id, Requested: qty, Missing: true}
	}
	if available < qty {
		return &inventory.StockError{ProductID: id, Requested: qty, Available: available}
	}
	t.state.stock[id] = available - qty
	return nil
}
