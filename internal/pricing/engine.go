package pricing

// Line is a cart line as supplied by the caller.
type Line struct {
	ProductID int64
	UnitPrice Money
	Quantity  int
}

// LineQuote is the priced breakdown of a single cart line.
type LineQuote struct {
	ProductID       int64  `json:"id"`
	UnitPrice       Money  `json:"precio"`
	Quantity        int    `json:"cantidad"`
	OfferID         *int64 `json:"oferta_id,omitempty"`
	OfferApplied    bool   `json:"oferta_aplicada"`
	Bundles         int    `json:"grupos"`
	Remainder       int    `json:"resto"`
	MissingForOffer int    `json:"faltan_para_oferta"`
	Regular         Money  `json:"subtotal_sin_oferta"`
	Savings         Money  `json:"ahorro"`
	Subtotal        Money  `json:"subtotal"`
}

// Quote aggregates the priced lines of a cart.
type Quote struct {
	Lines   []LineQuote `json:"lineas"`
	Regular Money       `json:"subtotal_sin_ofertas"`
	Savings Money       `json:"ahorro"`
	Total   Money       `json:"total"`
}

// PriceCart computes per-line subtotals and the cart total. Only whole bundles get the offer
// price; leftover units are charged at the line's own unit price. A nil catalog prices every
// line flat. Inputs are not validated: a line with a quantity below one is priced unitPrice x
// quantity and never gets an offer. PriceCartChecked is the bounded form.
func PriceCart(lines []Line, catalog Catalog) Quote {
	quote := Quote{Lines: make([]LineQuote, 0, len(lines))}
	for _, line := range lines {
		lq := priceLine(line, catalog)
		quote.Lines = append(quote.Lines, lq)
		quote.Regular += lq.Regular
		quote.Total += lq.Subtotal
	}
	quote.Savings = quote.Regular - quote.Total
	return quote
}

func priceLine(line Line, catalog Catalog) LineQuote {
	lq := LineQuote{
		ProductID: line.ProductID,
		UnitPrice: line.UnitPrice,
		Quantity:  line.Quantity,
		Regular:   line.UnitPrice.Mul(line.Quantity),
	}
	lq.Subtotal = lq.Regular
	offer, ok := activeOffer(line, catalog)
	if !ok {
		return lq
	}
	id := offer.ID
	lq.OfferID = &id
	if line.Quantity < offer.MinQuantity {
		lq.MissingForOffer = offer.MinQuantity - line.Quantity
		return lq
	}
	lq.OfferApplied = true
	lq.Bundles = line.Quantity / offer.MinQuantity
	lq.Remainder = line.Quantity % offer.MinQuantity
	lq.Subtotal = offer.BundleTotal().Mul(lq.Bundles) + line.UnitPrice.Mul(lq.Remainder)
	lq.Savings = lq.Regular - lq.Subtotal
	return lq
}

func activeOffer(line Line, catalog Catalog) (Offer, bool) {
	if line.Quantity <= 0 || catalog == nil {
		return Offer{}, false
	}
	offer, ok := catalog.Lookup(line.ProductID)
	if !ok || offer.MinQuantity <= 0 {
		return Offer{}, false
	}
	return offer, true
}

// PriceCartChecked is PriceCart for untrusted carts: it fails with ErrOutOfRange when a subtotal
// or the total would exceed MaxMoney, or when a price or quantity is negative.
func PriceCartChecked(lines []Line, catalog Catalog) (Quote, error) {
	var regular, total Money
	for _, line := range lines {
		reg, err := LineSubtotal(line.UnitPrice, line.Quantity)
		if err != nil {
			return Quote{}, err
		}
		if regular, err = AddTotal(regular, reg); err != nil {
			return Quote{}, err
		}
		sub := reg
		if offer, ok := activeOffer(line, catalog); ok && line.Quantity >= offer.MinQuantity {
			bundle, err := LineSubtotal(offer.BundleUnitPrice, offer.MinQuantity)
			if err != nil {
				return Quote{}, err
			}
			bundles, err := LineSubtotal(bundle, line.Quantity/offer.MinQuantity)
			if err != nil {
				return Quote{}, err
			}
			if sub, err = AddTotal(bundles, line.UnitPrice.Mul(line.Quantity%offer.MinQuantity)); err != nil {
				return Quote{}, err
			}
		}
		if total, err = AddTotal(total, sub); err != nil {
			return Quote{}, err
		}
	}
	return PriceCart(lines, catalog), nil
}

// Change returns the amount to hand back, never negative.
func Change(tendered, total Money) Money {
	if tendered <= total {
		return 0
	}
	return tendered - total
}
