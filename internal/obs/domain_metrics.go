package obs

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// StoreMetrics holds the Prometheus collectors for sales, tabs and offers. A nil *StoreMetrics is
// valid and records nothing.
type StoreMetrics struct {
	SalesRecorded    *prometheus.CounterVec
	SaleAmount       prometheus.Histogram
	SaleSavings      prometheus.Counter
	TabPurchaseLines prometheus.Counter
	StockRejections  *prometheus.CounterVec
	OfferCache       *prometheus.CounterVec
}

// NewStoreMetrics initialises and registers the store collectors.
func NewStoreMetrics(namespace string, reg prometheus.Registerer) *StoreMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &StoreMetrics{
		SalesRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_recorded_total",
			Help:      "Count of recorded sales by payment method.",
		}, []string{"metodo_pago"}),
		SaleAmount: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sale_total_amount",
			Help:      "Distribution of sale totals in currency units.",
			Buckets:   []float64{100, 500, 1000, 2500, 5000, 10000, 25000, 50000},
		}),
		SaleSavings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sale_offer_savings_total",
			Help:      "Accumulated discount granted by volume offers in currency units.",
		}),
		TabPurchaseLines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tab_purchase_lines_total",
			Help:      "Number of purchase lines appended to customer tabs.",
		}),
		StockRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_rejections_total",
			Help:      "Settlements rejected because of insufficient stock.",
		}, []string{"flow"}),
		OfferCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "offer_cache_lookups_total",
			Help:      "Offer catalog cache lookups by result.",
		}, []string{"result"}),
	}
	mustRegisterCollector(reg, m.SalesRecorded, func(existing prometheus.Collector) {
		if v, ok := existing.(*prometheus.CounterVec); ok {
			m.SalesRecorded = v
		}
	})
	mustRegisterCollector(reg, m.SaleAmount, func(existing prometheus.Collector) {
		if v, ok := existing.(prometheus.Histogram); ok {
			m.SaleAmount = v
		}
	})
	mustRegisterCollector(reg, m.SaleSavings, func(existing prometheus.Collector) {
		if v, ok := existing.(prometheus.Counter); ok {
			m.SaleSavings = v
		}
	})
	mustRegisterCollector(reg, m.TabPurchaseLines, func(existing prometheus.Collector) {
		if v, ok := existing.(prometheus.Counter); ok {
			m.TabPurchaseLines = v
		}
	})
	mustRegisterCollector(reg, m.StockRejections, func(existing prometheus.Collector) {
		if v, ok := existing.(*prometheus.CounterVec); ok {
			m.StockRejections = v
		}
	})
	mustRegisterCollector(reg, m.OfferCache, func(existing prometheus.Collector) {
		if v, ok := existing.(*prometheus.CounterVec); ok {
			m.OfferCache = v
		}
	})
	return m
}

// PaymentMethodOther labels sales whose payment method is not one of the known methods.
const PaymentMethodOther = "otro"

var paymentMethods = map[string]struct{}{"efectivo": {}, "tarjeta": {}, "transferencia": {}}

// PaymentMethodLabel maps a free text payment method onto the bounded label set.
func PaymentMethodLabel(method string) string {
	method = strings.ToLower(strings.TrimSpace(method))
	if _, ok := paymentMethods[method]; ok {
		return method
	}
	return PaymentMethodOther
}

// ObserveSale records a committed sale. Amounts are in currency units.
func (m *StoreMetrics) ObserveSale(method string, total, savings float64) {
	if m == nil {
		return
	}
	m.SalesRecorded.WithLabelValues(PaymentMethodLabel(method)).Inc()
	m.SaleAmount.Observe(total)
	if savings > 0 {
		m.SaleSavings.Add(savings)
	}
}

// ObserveTabLines records purchase lines appended to a tab.
func (m *StoreMetrics) ObserveTabLines(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.TabPurchaseLines.Add(float64(n))
}

// ObserveStockRejection records a settlement rejected for lack of stock.
func (m *StoreMetrics) ObserveStockRejection(flow string) {
	if m == nil {
		return
	}
	m.StockRejections.WithLabelValues(flow).Inc()
}

// ObserveOfferCache records an offer cache lookup result (hit, miss or error).
func (m *StoreMetrics) ObserveOfferCache(result string) {
	if m == nil {
		return
	}
	m.OfferCache.WithLabelValues(result).Inc()
}
