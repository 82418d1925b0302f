package sales

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mercadito/internal/common"
	"github.com/noah-isme/mercadito/internal/obs"
	"github.com/noah-isme/mercadito/internal/pricing"
)

func parse(t *testing.T, body string) Input {
	t.Helper()
	var req CreateRequest
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	in, err := req.Parse()
	require.NoError(t, err)
	return in
}

func TestRecordAppliesOffersAndChange(t *testing.T) {
	store := newMemoryStore(map[int64]memoryProduct{1: {name: "Gaseosa", stock: 20}, 2: {name: "Pan", stock: 5}})
	metrics := obs.NewStoreMetrics("test", prometheus.NewRegistry())
	svc := NewService(ServiceConfig{
		Store:   store,
		Offers:  staticCatalog{offers: []pricing.Offer{{ID: 1, ProductID: 1, MinQuantity: 5, BundleUnitPrice: 500}}},
		Metrics: metrics,
	})

	in := parse(t, `{"productos":[{"id":1,"cantidad":11,"precio":10,"nombre":"Gaseosa"},{"id":"2","cantidad":"2","precio":"1.5"}],"pago":100,"cliente":"  ","metodoPago":"efectivo"}`)
	sale, err := svc.Record(context.Background(), in)
	require.NoError(t, err)

	require.Equal(t, pricing.Money(6000+300), sale.Total)
	require.Equal(t, pricing.Money(10000-6300), sale.Change)
	require.Equal(t, DefaultCustomer, sale.Customer)
	require.Equal(t, "efectivo", sale.PaymentMethod)
	require.JSONEq(t, `[{"id":1,"cantidad":11,"precio":10,"nombre":"Gaseosa"},{"id":"2","cantidad":"2","precio":"1.5"}]`, string(sale.Products))
	require.Equal(t, pricing.Money(5000), sale.Quote.Savings)

	require.Equal(t, 9, store.stock(1))
	require.Equal(t, 3, store.stock(2))
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.SalesRecorded.WithLabelValues("efectivo")))
}

func TestRecordUnderpaymentGivesNoChange(t *testing.T) {
	store := newMemoryStore(map[int64]memoryProduct{1: {name: "Leche", stock: 3}})
	svc := NewService(ServiceConfig{Store: store})
	sale, err := svc.Record(context.Background(), parse(t, `{"productos":[{"id":1,"cantidad":3,"precio":10}],"pago":20,"cliente":" Ana ","metodoPago":"tarjeta"}`))
	require.NoError(t, err)
	require.Equal(t, pricing.Money(3000), sale.Total)
	require.Equal(t, pricing.Money(0), sale.Change)
	require.Equal(t, "Ana", sale.Customer)
	require.Equal(t, 0, store.stock(1))
}

func TestRecordInsufficientStockPersistsNothing(t *testing.T) {
	store := newMemoryStore(map[int64]memoryProduct{1: {name: "Yerba", stock: 10}, 2: {name: "Azúcar", stock: 1}})
	metrics := obs.NewStoreMetrics("test", prometheus.NewRegistry())
	svc := NewService(ServiceConfig{Store: store, Metrics: metrics})

	_, err := svc.Record(context.Background(), parse(t, `{"productos":[{"id":1,"cantidad":2,"precio":5},{"id":2,"cantidad":2,"precio":3}],"metodoPago":"efectivo"}`))
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusConflict, appErr.HTTPStatus)
	require.Equal(t, "Stock insuficiente para Azúcar", appErr.Message)

	require.Equal(t, 10, store.stock(1))
	require.Equal(t, 1, store.stock(2))
	sales, err := svc.List(context.Background(), 0)
	require.NoError(t, err)
	require.Empty(t, sales)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.StockRejections.WithLabelValues("venta")))
}

func TestRecordChecksCombinedQuantityForDuplicateLines(t *testing.T) {
	store := newMemoryStore(map[int64]memoryProduct{1: {name: "Fideos", stock: 5}})
	svc := NewService(ServiceConfig{Store: store})

	_, err := svc.Record(context.Background(), parse(t, `{"productos":[{"id":1,"cantidad":3,"precio":2},{"id":1,"cantidad":3,"precio":2}],"metodoPago":"efectivo"}`))
	require.True(t, common.IsCode(err, common.CodeConflict))
	require.Equal(t, 5, store.stock(1))

	_, err = svc.Record(context.Background(), parse(t, `{"productos":[{"id":1,"cantidad":2,"precio":2},{"id":1,"cantidad":3,"precio":2}],"metodoPago":"efectivo"}`))
	require.NoError(t, err)
	require.Equal(t, 0, store.stock(1))
}

func TestRecordUnknownProduct(t *testing.T) {
	svc := NewService(ServiceConfig{Store: newMemoryStore(map[int64]memoryProduct{})})
	_, err := svc.Record(context.Background(), parse(t, `{"productos":[{"id":8,"cantidad":1,"precio":2}],"metodoPago":"efectivo"}`))
	require.True(t, common.IsCode(err, common.CodeNotFound))
}

func TestRecordCatalogFailure(t *testing.T) {
	store := newMemoryStore(map[int64]memoryProduct{1: {name: "Pan", stock: 5}})
	svc := NewService(ServiceConfig{Store: store, Offers: staticCatalog{err: common.Internal("Error al obtener ofertas", errCatalogDown)}})
	_, err := svc.Record(context.Background(), parse(t, `{"productos":[{"id":1,"cantidad":1,"precio":2}],"metodoPago":"efectivo"}`))
	require.True(t, common.IsCode(err, common.CodeInternal))
	require.Equal(t, 5, store.stock(1))
}

func TestConcurrentSalesNeverOversell(t *testing.T) {
	store := newMemoryStore(map[int64]memoryProduct{1: {name: "Pan", stock: 5}})
	svc := NewService(ServiceConfig{Store: store})
	in := parse(t, `{"productos":[{"id":1,"cantidad":1,"precio":2}],"metodoPago":"efectivo"}`)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, rejected := 0, 0
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Record(context.Background(), in)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if common.IsCode(err, common.CodeConflict) {
				rejected++
			}
		}()
	}
	wg.Wait()
	require.Equal(t, 5, ok)
	require.Equal(t, 7, rejected)
	require.Equal(t, 0, store.stock(1))
}

func TestParseRejectsInvalidInput(t *testing.T) {
	cases := map[string]string{
		"missing products":  `{"metodoPago":"efectivo"}`,
		"empty products":    `{"productos":[],"metodoPago":"efectivo"}`,
		"products object":   `{"productos":{"id":1},"metodoPago":"efectivo"}`,
		"zero quantity":     `{"productos":[{"id":1,"cantidad":0,"precio":1}],"metodoPago":"efectivo"}`,
		"fractional qty":    `{"productos":[{"id":1,"cantidad":1.5,"precio":1}],"metodoPago":"efectivo"}`,
		"text price":        `{"productos":[{"id":1,"cantidad":1,"precio":"diez"}],"metodoPago":"efectivo"}`,
		"negative price":    `{"productos":[{"id":1,"cantidad":1,"precio":-1}],"metodoPago":"efectivo"}`,
		"missing id":        `{"productos":[{"cantidad":1,"precio":1}],"metodoPago":"efectivo"}`,
		"text payment":      `{"productos":[{"id":1,"cantidad":1,"precio":1}],"pago":"mucho","metodoPago":"efectivo"}`,
		"missing method":    `{"productos":[{"id":1,"cantidad":1,"precio":1}],"metodoPago":"  "}`,
		"negative tendered": `{"productos":[{"id":1,"cantidad":1,"precio":1}],"pago":-5,"metodoPago":"efectivo"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			var req CreateRequest
			require.NoError(t, json.Unmarshal([]byte(body), &req))
			_, err := req.Parse()
			require.True(t, common.IsCode(err, common.CodeValidation), err)
		})
	}
}

func TestParseReportsLineIndex(t *testing.T) {
	_, err := ParseLines(json.RawMessage(`[{"id":1,"cantidad":1,"precio":1},{"id":2,"cantidad":"x","precio":1}]`))
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, map[string]any{"indice": 1, "campo": "cantidad"}, appErr.Details)
}

func TestParseLinesRejectsOutOfRangeValues(t *testing.T) {
	cases := map[string]struct {
		body  string
		field string
	}{
		"quantity past uint64":  {`[{"id":1,"cantidad":"18446744073709551617","precio":10}]`, "cantidad"},
		"quantity past int32":   {`[{"id":1,"cantidad":2147483648,"precio":10}]`, "cantidad"},
		"id past uint64":        {`[{"id":"18446744073709551617","cantidad":1,"precio":10}]`, "id"},
		"huge exponent":         {`[{"id":1,"cantidad":1,"precio":1e1000000000}]`, "precio"},
		"price past max":        {`[{"id":1,"cantidad":1,"precio":"92233720368547758.07"}]`, "precio"},
		"subtotal overflows":    {`[{"id":1,"cantidad":2147483647,"precio":"999999999"}]`, "precio"},
		"running total too big": {`[{"id":1,"cantidad":1,"precio":"999999999999"},{"id":2,"cantidad":1,"precio":"999999999999"}]`, "precio"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			lines, err := ParseLines(json.RawMessage(tc.body))
			require.Nil(t, lines)
			var appErr *common.AppError
			require.ErrorAs(t, err, &appErr)
			require.Equal(t, common.CodeValidation, appErr.Code)
			require.Equal(t, tc.field, appErr.Details.(map[string]any)["campo"])
		})
	}
}

func TestParseLinesAcceptsLargestQuantity(t *testing.T) {
	lines, err := ParseLines(json.RawMessage(`[{"id":9223372036854775807,"cantidad":2147483647,"precio":1}]`))
	require.NoError(t, err)
	require.Equal(t, int64(9223372036854775807), lines[0].ProductID)
	require.Equal(t, 2147483647, lines[0].Quantity)
}

func TestQuoteRejectsOfferTotalPastMax(t *testing.T) {
	svc := NewService(ServiceConfig{
		Store:  newMemoryStore(nil),
		Offers: staticCatalog{offers: []pricing.Offer{{ID: 1, ProductID: 1, MinQuantity: 2, BundleUnitPrice: pricing.MaxMoney}}},
	})
	_, err := svc.Quote(context.Background(), []pricing.Line{{ProductID: 1, UnitPrice: 1, Quantity: 4}})
	require.True(t, common.IsCode(err, common.CodeValidation), err)
}

func TestListMostRecentFirst(t *testing.T) {
	store := newMemoryStore(map[int64]memoryProduct{1: {name: "Pan", stock: 10}})
	svc := NewService(ServiceConfig{Store: store})
	for _, customer := range []string{"a", "b", "c"} {
		in := parse(t, `{"productos":[{"id":1,"cantidad":1,"precio":2}],"metodoPago":"efectivo"}`)
		in.Customer = customer
		_, err := svc.Record(context.Background(), in)
		require.NoError(t, err)
	}
	sales, err := svc.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, sales, 3)
	require.Equal(t, "c", sales[0].Customer)
	require.True(t, sales[0].Date.After(sales[1].Date))

	limited, err := svc.List(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
}

func TestQuoteDoesNotWrite(t *testing.T) {
	store := newMemoryStore(map[int64]memoryProduct{1: {name: "Pan", stock: 10}})
	svc := NewService(ServiceConfig{Store: store, Offers: staticCatalog{offers: []pricing.Offer{{ID: 3, ProductID: 1, MinQuantity: 3, BundleUnitPrice: 833}}}})
	quote, err := svc.Quote(context.Background(), []pricing.Line{{ProductID: 1, UnitPrice: 1000, Quantity: 7}})
	require.NoError(t, err)
	require.Equal(t, pricing.Money(2*2499+1000), quote.Total)
	require.Equal(t, quote.Regular-quote.Total, quote.Savings)
	require.Equal(t, 10, store.stock(1))
}
