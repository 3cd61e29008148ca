package pricing

// DeliveryConfig is the active delivery charge configuration. Amounts are in
// the smallest currency unit.
type DeliveryConfig struct {
	FreeDeliveryEnabled   bool  `dynamodbav:"free_delivery_enabled" json:"free_delivery_enabled"`
	FreeDeliveryMinAmount int64 `dynamodbav:"free_delivery_min_amount" json:"free_delivery_min_amount"`
	FlatDeliveryCharge    int64 `dynamodbav:"flat_delivery_charge" json:"flat_delivery_charge"`
}

// Line is one priced cart line. UnitPrice must come from the catalog, never
// from the client.
type Line struct {
	UnitPrice int64
	Quantity  int64
}

// Quote is the server-computed price of a cart.
type Quote struct {
	Subtotal int64 `dynamodbav:"subtotal" json:"subtotal"`
	Shipping int64 `dynamodbav:"shipping" json:"shipping"`
	Total    int64 `dynamodbav:"total" json:"total"`
}

// Engine computes quotes. It has no state and no side effects, so the same
// inputs always produce the same quote; verification relies on that to
// recompute the amount captured at intent time.
type Engine struct{}

// Quote prices lines under cfg.
func (Engine) Quote(lines []Line, cfg DeliveryConfig) Quote {
	var subtotal int64
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		subtotal += l.UnitPrice * l.Quantity
	}

	shipping := cfg.FlatDeliveryCharge
	if cfg.FreeDeliveryEnabled && subtotal >= cfg.FreeDeliveryMinAmount {
		shipping = 0
	}

	return Quote{
		Subtotal: subtotal,
		Shipping: shipping,
		Total:    subtotal + shipping,
	}
}
