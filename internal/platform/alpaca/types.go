package alpaca

// Account is the trading account state returned by GET /v2/account.
// Monetary fields arrive as decimal strings.
type Account struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Currency     string `json:"currency"`
	Cash         string `json:"cash"`
	BuyingPower  string `json:"buying_power"`
	Equity       string `json:"equity"`
	PatternDay   bool   `json:"pattern_day_trader"`
	TradingBlock bool   `json:"trading_blocked"`
}

// OrderRequest is the payload for POST /v2/orders.
type OrderRequest struct {
	Symbol         string `json:"symbol"`
	Qty            string `json:"qty"`
	Side           string `json:"side"`
	Type           string `json:"type"`
	TimeInForce    string `json:"time_in_force"`
	LimitPrice     string `json:"limit_price,omitempty"`
	PositionIntent string `json:"position_intent,omitempty"`
	ClientOrderID  string `json:"client_order_id,omitempty"`
}

// OrderResponse is the acknowledgement returned after order submission.
type OrderResponse struct {
	ID            string `json:"id"`
	ClientOrderID string `json:"client_order_id"`
	Symbol        string `json:"symbol"`
	Qty           string `json:"qty"`
	Side          string `json:"side"`
	Type          string `json:"type"`
	Status        string `json:"status"`
	LimitPrice    string `json:"limit_price"`
}

// Order time-in-force and type values accepted by the API.
const (
	OrderTypeMarket = "market"
	OrderTypeLimit  = "limit"

	TimeInForceDay = "day"
	TimeInForceGTC = "gtc"

	SideBuy  = "buy"
	SideSell = "sell"
)

// OrderPayload is the order object embedded in a trade update.
type OrderPayload struct {
	ID         string `json:"id"`
	Symbol     string `json:"symbol"`
	Qty        string `json:"qty"`
	FilledQty  string `json:"filled_qty"`
	Side       string `json:"side"`
	Type       string `json:"type"`
	LimitPrice string `json:"limit_price"`
	Status     string `json:"status"`
}

// TradeUpdate is one notification from the trade_updates stream. Which
// fields are populated depends on Event: fills carry Price and Qty, others
// only the order snapshot.
type TradeUpdate struct {
	Event       string       `json:"event"`
	Timestamp   string       `json:"timestamp"`
	Price       string       `json:"price"`
	Qty         string       `json:"qty"`
	PositionQty string       `json:"position_qty"`
	Order       OrderPayload `json:"order"`
}

// Trade update event kinds delivered by the stream.
const (
	TradeEventNew         = "new"
	TradeEventFill        = "fill"
	TradeEventPartialFill = "partial_fill"
	TradeEventCanceled    = "canceled"
	TradeEventRejected    = "rejected"
)
