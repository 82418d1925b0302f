package accounts

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/mercadito/internal/common"
	"github.com/noah-isme/mercadito/internal/inventory"
	"github.com/noah-isme/mercadito/internal/obs"
)

// Service implements the tab ledger.
type Service struct {
	store   Store
	policy  inventory.StockPolicy
	metrics *obs.StoreMetrics
	now     func() time.Time
}

// ServiceConfig groups Service dependencies. StockPolicy defaults to inventory.PolicyCaller, where
// the client adjusts stock for tab purchases itself.
type ServiceConfig struct {
	Store       Store
	StockPolicy inventory.StockPolicy
	Metrics     *obs.StoreMetrics
	Now         func() time.Time
}

// NewService constructs an account Service.
func NewService(cfg ServiceConfig) *Service {
	policy := cfg.StockPolicy
	if policy == "" {
		policy = inventory.PolicyCaller
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{store: cfg.Store, policy: policy, metrics: cfg.Metrics, now: now}
}

func accountNotFound(id int64) error {
	return common.NotFound("Cuenta no encontrada", id)
}

// Create opens a tab for name.
func (s *Service) Create(ctx context.Context, name string) (Account, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Account{}, common.Validation("Nombre es requerido", map[string]any{"campo": "nombre"})
	}
	account, err := s.store.CreateAccount(ctx, name)
	if err != nil {
		return Account{}, common.Internal("Error al crear la cuenta", err)
	}
	zerolog.Ctx(ctx).Info().Int64("account_id", account.ID).Msg("account created")
	return account, nil
}

// List returns accounts newest first, filtered by name substring when filter is not blank.
func (s *Service) List(ctx context.Context, filter string) ([]Account, error) {
	accounts, err := s.store.ListAccounts(ctx, strings.TrimSpace(filter))
	if err != nil {
		return nil, common.Internal("Error al buscar cuentas", err)
	}
	return accounts, nil
}

// Get returns an account or a not found error.
func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	account, err := s.store.GetAccount(ctx, id)
	if errors.Is(err, ErrAccountNotFound) {
		return Account{}, accountNotFound(id)
	}
	if err != nil {
		return Account{}, common.Internal("Error al obtener la cuenta", err)
	}
	return account, nil
}

// Detail returns the account with its purchases, most recent first.
func (s *Service) Detail(ctx context.Context, id int64) (Detail, error) {
	account, err := s.Get(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	purchases, err := s.store.ListPurchases(ctx, id)
	if err != nil {
		return Detail{}, common.Internal("Error al obtener las compras", err)
	}
	return Detail{Account: account, Purchases: purchases}, nil
}

// History returns the purchases of an account shaped for the history view.
func (s *Service) History(ctx context.Context, id int64) ([]HistoryEntry, error) {
	detail, err := s.Detail(ctx, id)
	if err != nil {
		return nil, err
	}
	return historyOf(detail.Purchases), nil
}

// AddPurchase charges lines to the account. Every row shares one timestamp and the batch is
// written in a single transaction; with the engine stock policy, lines linked to a product also
// decrement its stock in that transaction.
func (s *Service) AddPurchase(ctx context.Context, id int64, lines []PurchaseLine) ([]Purchase, error) {
	if len(lines) == 0 {
		return nil, common.Validation("Debe incluir al menos un producto", nil)
	}
	at := s.now().UTC().Truncate(time.Microsecond)
	created := make([]Purchase, 0, len(lines))
	err := s.store.WithTx(ctx, func(tx Tx) error {
		exists, err := tx.LockAccount(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return accountNotFound(id)
		}
		for _, line := range lines {
			p, err := tx.InsertPurchase(ctx, id, line, at)
			if err != nil {
				return err
			}
			created = append(created, p)
		}
		return inventory.Settle(ctx, tx, moves(lines), s.policy)
	})
	if err != nil {
		if errors.Is(err, inventory.ErrInsufficientStock) {
			s.metrics.ObserveStockRejection("cuenta")
		}
		mapped := inventory.AppError(err)
		if !common.IsAppError(mapped) {
			mapped = common.Internal("Error al registrar compras", err)
		}
		return nil, mapped
	}
	s.metrics.ObserveTabLines(len(created))
	zerolog.Ctx(ctx).Info().Int64("account_id", id).Int("lines", len(created)).
		Str("stock_policy", string(s.policy)).Msg("tab purchase recorded")
	return created, nil
}

// Delete removes the purchases of an account and then the account itself.
func (s *Service) Delete(ctx context.Context, id int64) error {
	var existed bool
	err := s.store.WithTx(ctx, func(tx Tx) error {
		if err := tx.DeletePurchases(ctx, id); err != nil {
			return err
		}
		var err error
		existed, err = tx.DeleteAccount(ctx, id)
		return err
	})
	if err != nil {
		return common.Internal("Error al eliminar la cuenta", err)
	}
	if !existed {
		return accountNotFound(id)
	}
	zerolog.Ctx(ctx).Info().Int64("account_id", id).Msg("account deleted")
	return nil
}
