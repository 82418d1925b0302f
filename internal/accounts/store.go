package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/mercadito/internal/db"
	"github.com/noah-isme/mercadito/internal/inventory"
	"github.com/noah-isme/mercadito/internal/pricing"
)

// ErrStoreUnavailable indicates the account store dependency is not configured.
var ErrStoreUnavailable = errors.New("accounts: store unavailable")

// Tx is the transactional surface used for batch purchases and deletions.
type Tx interface {
	inventory.StockWriter
	// LockAccount takes a row lock on the account and reports whether it exists.
	LockAccount(ctx context.Context, id int64) (bool, error)
	InsertPurchase(ctx context.Context, accountID int64, line PurchaseLine, at time.Time) (Purchase, error)
	DeletePurchases(ctx context.Context, accountID int64) error
	DeleteAccount(ctx context.Context, id int64) (bool, error)
}

// Store provides persistence for accounts and purchases.
type Store interface {
	CreateAccount(ctx context.Context, name string) (Account, error)
	ListAccounts(ctx context.Context, filter string) ([]Account, error)
	GetAccount(ctx context.Context, id int64) (Account, error)
	ListPurchases(ctx context.Context, accountID int64) ([]Purchase, error)
	WithTx(ctx context.Context, fn func(Tx) error) error
}

// NewStore constructs a Store backed by a pgx connection pool.
func NewStore(pool db.Pool) Store {
	return &pgStore{pool: pool}
}

type pgStore struct {
	pool db.Pool
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (s *pgStore) available() error {
	if s == nil || s.pool == nil {
		return ErrStoreUnavailable
	}
	return nil
}

// CreateAccount inserts an account.
func (s *pgStore) CreateAccount(ctx context.Context, name string) (Account, error) {
	if err := s.available(); err != nil {
		return Account{}, err
	}
	a := Account{Name: name}
	err := s.pool.QueryRow(ctx, `INSERT INTO cuentas (nombre) VALUES ($1) RETURNING id, creado_en`, name).Scan(&a.ID, &a.CreatedAt)
	return a, err
}

// ListAccounts returns accounts newest first, optionally filtered by a case insensitive substring.
func (s *pgStore) ListAccounts(ctx context.Context, filter string) ([]Account, error) {
	if err := s.available(); err != nil {
		return nil, err
	}
	var rows pgx.Rows
	var err error
	if filter == "" {
		rows, err = s.pool.Query(ctx, `SELECT id, nombre, creado_en FROM cuentas ORDER BY id DESC`)
	} else {
		rows, err = s.pool.Query(ctx,
			`SELECT id, nombre, creado_en FROM cuentas WHERE nombre ILIKE $1 ORDER BY id DESC`,
			"%"+likeEscaper.Replace(filter)+"%")
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	accounts := make([]Account, 0)
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Name, &a.CreatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// GetAccount returns the account or ErrAccountNotFound.
func (s *pgStore) GetAccount(ctx context.Context, id int64) (Account, error) {
	if err := s.available(); err != nil {
		return Account{}, err
	}
	var a Account
	err := s.pool.QueryRow(ctx, `SELECT id, nombre, creado_en FROM cuentas WHERE id = $1`, id).Scan(&a.ID, &a.Name, &a.CreatedAt)
	if db.IsNoRows(err) {
		return Account{}, ErrAccountNotFound
	}
	return a, err
}

// ListPurchases returns the purchases of an account most recent first.
func (s *pgStore) ListPurchases(ctx context.Context, accountID int64) ([]Purchase, error) {
	if err := s.available(); err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, cuenta_id, producto, cantidad, precio, fecha
		FROM compras WHERE cuenta_id = $1
		ORDER BY fecha DESC, id DESC`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	purchases := make([]Purchase, 0)
	for rows.Next() {
		var p Purchase
		var price int64
		if err := rows.Scan(&p.ID, &p.AccountID, &p.Product, &p.Quantity, &price, &p.Date); err != nil {
			return nil, err
		}
		p.Price = pricing.Money(price)
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}

type pgTx struct {
	inventory.PGStockWriter
	tx pgx.Tx
}

// WithTx implements Store.
func (s *pgStore) WithTx(ctx context.Context, fn func(Tx) error) error {
	if err := s.available(); err != nil {
		return err
	}
	return db.InTx(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(&pgTx{PGStockWriter: inventory.PGStockWriter{Q: tx}, tx: tx})
	})
}

func (t *pgTx) LockAccount(ctx context.Context, id int64) (bool, error) {
	var found int64
	err := t.tx.QueryRow(ctx, `SELECT id FROM cuentas WHERE id = $1 FOR UPDATE`, id).Scan(&found)
	if db.IsNoRows(err) {
		return false, nil
	}
	return err == nil, err
}

func (t *pgTx) InsertPurchase(ctx context.Context, accountID int64, line PurchaseLine, at time.Time) (Purchase, error) {
	p := Purchase{AccountID: accountID, Product: line.Name, Quantity: line.Quantity, Price: line.Price}
	err := t.tx.QueryRow(ctx, `
		INSERT INTO compras (cuenta_id, producto, cantidad, precio, fecha)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, fecha`,
		accountID, line.Name, line.Quantity, int64(line.Price), at,
	).Scan(&p.ID, &p.Date)
	return p, err
}

func (t *pgTx) DeletePurchases(ctx context.Context, accountID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM compras WHERE cuenta_id = $1`, accountID)
	return err
}

func (t *pgTx) DeleteAccount(ctx context.Context, id int64) (bool, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM cuentas WHERE id = $1`, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
