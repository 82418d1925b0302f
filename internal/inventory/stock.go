package inventory

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/noah-isme/mercadito/internal/common"
)

// StockPolicy decides who adjusts product stock when goods leave the store.
type StockPolicy string

const (
	// PolicyEngine decrements stock inside the same transaction that records the movement.
	PolicyEngine StockPolicy = "engine"
	// PolicyCaller leaves stock untouched; the client adjusts it separately.
	PolicyCaller StockPolicy = "caller"
)

// ParsePolicy converts a configuration value into a StockPolicy.
func ParsePolicy(value string) (StockPolicy, error) {
	switch StockPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case PolicyEngine:
		return PolicyEngine, nil
	case PolicyCaller, "":
		return PolicyCaller, nil
	default:
		return "", fmt.Errorf("unknown stock policy %q", value)
	}
}

var (
	// ErrInsufficientStock is matched by stock errors refusing a decrement.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrProductNotFound is matched by errors referencing a missing product.
	ErrProductNotFound = errors.New("product not found")
)

// StockError describes a refused decrement.
type StockError struct {
	ProductID int64
	Name      string
	Requested int
	Available int
	Missing   bool
}

func (e *StockError) Error() string {
	if e.Missing {
		return fmt.Sprintf("product %d not found", e.ProductID)
	}
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

// Unwrap maps the error onto ErrProductNotFound or ErrInsufficientStock.
func (e *StockError) Unwrap() error {
	if e.Missing {
		return ErrProductNotFound
	}
	return ErrInsufficientStock
}

// StockMove is a quantity leaving the store for one product.
type StockMove struct {
	ProductID int64
	Quantity  int
}

// StockWriter applies guarded decrements. Decrement must only subtract when at least qty units are
// available and return a *StockError otherwise.
type StockWriter interface {
	Decrement(ctx context.Context, productID int64, qty int) error
}

// Merge sums moves per product, drops non-positive quantities and orders the result by product id
// so concurrent settlements lock rows in the same order.
func Merge(moves []StockMove) []StockMove {
	totals := make(map[int64]int, len(moves))
	for _, m := range moves {
		if m.Quantity <= 0 || m.ProductID <= 0 {
			continue
		}
		totals[m.ProductID] += m.Quantity
	}
	merged := make([]StockMove, 0, len(totals))
	for id, qty := range totals {
		merged = append(merged, StockMove{ProductID: id, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ProductID < merged[j].ProductID })
	return merged
}

// Settle applies moves through w according to policy. The first refused decrement aborts the
// settlement; callers run it inside the transaction that records the movement so nothing persists.
func Settle(ctx context.Context, w StockWriter, moves []StockMove, policy StockPolicy) error {
	if policy != PolicyEngine {
		return nil
	}
	if w == nil {
		return errors.New("settle: stock writer not configured")
	}
	for _, m := range Merge(moves) {
		if err := w.Decrement(ctx, m.ProductID, m.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// AppError converts stock errors into API errors and returns any other error unchanged.
func AppError(err error) error {
	var se *StockError
	if !errors.As(err, &se) {
		return err
	}
	if se.Missing {
		return common.NotFound("El producto especificado no existe", se.ProductID)
	}
	name := se.Name
	if name == "" {
		name = fmt.Sprintf("#%d", se.ProductID)
	}
	appErr := common.Constraint(fmt.Sprintf("Stock insuficiente para %s", name), http.StatusConflict, err)
	appErr.Details = map[string]any{
		"producto_id": se.ProductID,
		"solicitado":  se.Requested,
		"disponible":  se.Available,
	}
	return appErr
}
