package pricing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPriceCartFlatWithoutOffers(t *testing.T) {
	quote := PriceCart([]Line{{ProductID: 1, UnitPrice: 1000, Quantity: 3}}, nil)
	require.Equal(t, Money(3000), quote.Total)
	require.Equal(t, Money(0), quote.Savings)
	require.Len(t, quote.Lines, 1)
	require.False(t, quote.Lines[0].OfferApplied)
	require.Nil(t, quote.Lines[0].OfferID)
}

func TestPriceCartBundles(t *testing.T) {
	// bundle of 3 priced 24.99 in total, product priced 10 per unit
	catalog := NewCatalog([]Offer{{ID: 1, ProductID: 1, MinQuantity: 3, BundleUnitPrice: 833}})
	bundleTotal := Money(833 * 3)

	cases := []struct {
		name      string
		qty       int
		total     Money
		bundles   int
		remainder int
		missing   int
		applied   bool
	}{
		{name: "below threshold", qty: 2, total: 2000, missing: 1},
		{name: "exact threshold", qty: 3, total: bundleTotal, bundles: 1, applied: true},
		{name: "exact multiple", qty: 6, total: 2 * bundleTotal, bundles: 2, applied: true},
		{name: "with remainder", qty: 7, total: 2*bundleTotal + 1000, bundles: 2, remainder: 1, applied: true},
		{name: "zero quantity", qty: 0, total: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			quote := PriceCart([]Line{{ProductID: 1, UnitPrice: 1000, Quantity: tc.qty}}, catalog)
			require.Equal(t, tc.total, quote.Total)
			line := quote.Lines[0]
			require.Equal(t, tc.applied, line.OfferApplied)
			require.Equal(t, tc.bundles, line.Bundles)
			require.Equal(t, tc.remainder, line.Remainder)
			require.Equal(t, tc.missing, line.MissingForOffer)
			require.Equal(t, line.Regular-line.Subtotal, line.Savings)
		})
	}
}

func TestPriceCartBundleTotalOfTwentyFive(t *testing.T) {
	offer := Offer{ID: 1, ProductID: 5, MinQuantity: 5, BundleUnitPrice: 500}
	catalog := NewCatalog([]Offer{offer})
	require.Equal(t, Money(2500), offer.BundleTotal())

	multiple := PriceCart([]Line{{ProductID: 5, UnitPrice: 1000, Quantity: 10}}, catalog)
	require.Equal(t, Money(5000), multiple.Total)

	remainder := PriceCart([]Line{{ProductID: 5, UnitPrice: 1000, Quantity: 11}}, catalog)
	require.Equal(t, Money(6000), remainder.Total)

	below := PriceCart([]Line{{ProductID: 5, UnitPrice: 1000, Quantity: 2}}, catalog)
	require.Equal(t, Money(2000), below.Total)
}

func TestPriceCartOfferOnOtherProductIgnored(t *testing.T) {
	catalog := NewCatalog([]Offer{{ID: 1, ProductID: 2, MinQuantity: 2, BundleUnitPrice: 100}})
	quote := PriceCart([]Line{
		{ProductID: 1, UnitPrice: 250, Quantity: 4},
		{ProductID: 2, UnitPrice: 300, Quantity: 5},
	}, catalog)
	require.Equal(t, Money(1000), quote.Lines[0].Subtotal)
	require.Equal(t, Money(2*200+300), quote.Lines[1].Subtotal)
	require.Equal(t, Money(1000+700), quote.Total)
	require.Equal(t, Money(1000+1500), quote.Regular)
	require.Equal(t, Money(800), quote.Savings)
}

func TestCatalogPrefersNewestOffer(t *testing.T) {
	now := time.Now()
	catalog := NewCatalog([]Offer{
		{ID: 1, ProductID: 9, MinQuantity: 2, BundleUnitPrice: 100, CreatedAt: now.Add(-time.Hour)},
		{ID: 2, ProductID: 9, MinQuantity: 4, BundleUnitPrice: 90, CreatedAt: now},
		{ID: 3, ProductID: 9, MinQuantity: 0, BundleUnitPrice: 1, CreatedAt: now.Add(time.Hour)},
	})
	offer, ok := catalog.Lookup(9)
	require.True(t, ok)
	require.Equal(t, int64(2), offer.ID)
	require.Equal(t, 1, catalog.Len())

	tied := NewCatalog([]Offer{
		{ID: 5, ProductID: 1, MinQuantity: 2, BundleUnitPrice: 100, CreatedAt: now},
		{ID: 4, ProductID: 1, MinQuantity: 3, BundleUnitPrice: 100, CreatedAt: now},
	})
	offer, _ = tied.Lookup(1)
	require.Equal(t, int64(5), offer.ID)
}

func TestChange(t *testing.T) {
	require.Equal(t, Money(4000), Change(10000, 6000))
	require.Equal(t, Money(0), Change(5000, 6000))
	require.Equal(t, Money(0), Change(6000, 6000))
}

func TestPriceCartPricesNonPositiveQuantityFlat(t *testing.T) {
	catalog := NewCatalog([]Offer{{ID: 1, ProductID: 1, MinQuantity: 2, BundleUnitPrice: 100}})
	quote := PriceCart([]Line{{ProductID: 1, UnitPrice: 1000, Quantity: -2}, {ProductID: 1, UnitPrice: 1000, Quantity: 0}}, catalog)
	require.Equal(t, Money(-2000), quote.Lines[0].Subtotal)
	require.Nil(t, quote.Lines[0].OfferID)
	require.False(t, quote.Lines[0].OfferApplied)
	require.Equal(t, Money(0), quote.Lines[1].Subtotal)
	require.Equal(t, Money(-2000), quote.Total)
	require.Equal(t, Money(0), quote.Savings)
}

func TestPriceCartCheckedMatchesPriceCart(t *testing.T) {
	catalog := NewCatalog([]Offer{{ID: 1, ProductID: 5, MinQuantity: 5, BundleUnitPrice: 500}})
	lines := []Line{{ProductID: 5, UnitPrice: 1000, Quantity: 11}, {ProductID: 6, UnitPrice: 150, Quantity: 3}}
	checked, err := PriceCartChecked(lines, catalog)
	require.NoError(t, err)
	require.Equal(t, PriceCart(lines, catalog), checked)
}

func TestPriceCartCheckedRejectsOverflow(t *testing.T) {
	cases := map[string]struct {
		lines   []Line
		catalog Catalog
	}{
		"line subtotal":  {lines: []Line{{ProductID: 1, UnitPrice: 9223372036854775807 / 2, Quantity: 2}}},
		"cart total":     {lines: []Line{{ProductID: 1, UnitPrice: MaxMoney, Quantity: 1}, {ProductID: 2, UnitPrice: 1, Quantity: 1}}},
		"negative qty":   {lines: []Line{{ProductID: 1, UnitPrice: 100, Quantity: -1}}},
		"negative price": {lines: []Line{{ProductID: 1, UnitPrice: -100, Quantity: 1}}},
		"bundle total": {
			lines:   []Line{{ProductID: 1, UnitPrice: 1, Quantity: 6}},
			catalog: NewCatalog([]Offer{{ID: 1, ProductID: 1, MinQuantity: 3, BundleUnitPrice: MaxMoney / 2}}),
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := PriceCartChecked(tc.lines, tc.catalog)
			require.ErrorIs(t, err, ErrOutOfRange)
		})
	}
}
