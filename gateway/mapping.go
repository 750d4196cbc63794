package gateway

// 规范化（canonical）词汇：适配器内部使用的、与交易所无关的表示。
// 所有 GMO <-> canonical 的映射表在包加载时构造一次，只读共享。

// Status 规范化订单状态。
type Status string

const (
	StatusAccepted      Status = "ACCEPTED"
	StatusPendingCancel Status = "PENDING_CANCEL"
	StatusCanceled      Status = "CANCELED"
	StatusFilled        Status = "FILLED"
	StatusExpired       Status = "EXPIRED"
)

// IsTerminal 终态订单不再产生任何后续事件。
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCanceled, StatusFilled, StatusExpired:
		return true
	default:
		return false
	}
}

// Side 买卖方向。
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType 规范化订单类型。
type OrderType string

const (
	TypeMarket     OrderType = "MARKET"
	TypeLimit      OrderType = "LIMIT"
	TypeStopMarket OrderType = "STOP_MARKET"
)

// TimeInForce 规范化有效期类型。
type TimeInForce string

const (
	TIFGTC TimeInForce = "GTC"
	TIFIOC TimeInForce = "IOC"
	TIFFOK TimeInForce = "FOK"
)

// LiquiditySide maker/taker 推断结果。该推断是近似值而非交易所确认值：
// 市价单视为 taker，post-only 与普通限价单视为 maker，其余未知。
type LiquiditySide string

const (
	LiquidityMaker   LiquiditySide = "MAKER"
	LiquidityTaker   LiquiditySide = "TAKER"
	LiquidityUnknown LiquiditySide = "NO_LIQUIDITY_SIDE"
)

// GMO 订单状态 -> canonical。7 个状态的全映射。
var orderStatusMap = map[string]Status{
	"WAITING":    StatusAccepted,
	"ORDERED":    StatusAccepted,
	"MODIFYING":  StatusAccepted,
	"CANCELLING": StatusPendingCancel,
	"CANCELED":   StatusCanceled,
	"EXECUTED":   StatusFilled,
	"EXPIRED":    StatusExpired,
}

// GMO executionType -> canonical。
var orderTypeMap = map[string]OrderType{
	"MARKET": TypeMarket,
	"LIMIT":  TypeLimit,
	"STOP":   TypeStopMarket,
}

// canonical -> GMO executionType。
var venueOrderTypeMap = map[OrderType]string{
	TypeMarket:     "MARKET",
	TypeLimit:      "LIMIT",
	TypeStopMarket: "STOP",
}

// GMO timeInForce -> canonical。SOK 是 post-only，映射为 GTC + postOnly。
var timeInForceMap = map[string]struct {
	TIF      TimeInForce
	PostOnly bool
}{
	"FAK": {TIFIOC, false},
	"FAS": {TIFGTC, false},
	"FOK": {TIFFOK, false},
	"SOK": {TIFGTC, true},
}

// CanonicalStatus 把 GMO 订单状态翻译为规范化状态。
func CanonicalStatus(venue string) (Status, bool) {
	s, ok := orderStatusMap[venue]
	return s, ok
}

// CanonicalSide 把 GMO side 翻译为规范化方向。
func CanonicalSide(venue string) (Side, bool) {
	switch venue {
	case "BUY":
		return SideBuy, true
	case "SELL":
		return SideSell, true
	default:
		return "", false
	}
}

// CanonicalOrderType 把 GMO executionType 翻译为规范化订单类型。
func CanonicalOrderType(venue string) (OrderType, bool) {
	t, ok := orderTypeMap[venue]
	return t, ok
}

// CanonicalTimeInForce 把 GMO timeInForce 翻译为规范化 TIF 与 post-only 标记。
func CanonicalTimeInForce(venue string) (tif TimeInForce, postOnly bool, ok bool) {
	m, ok := timeInForceMap[venue]
	return m.TIF, m.PostOnly, ok
}

// VenueOrderType 把规范化订单类型翻译回 GMO executionType。
func VenueOrderType(t OrderType) (string, bool) {
	v, ok := venueOrderTypeMap[t]
	return v, ok
}

// VenueTimeInForce 把规范化 TIF 翻译回 GMO timeInForce。post-only 优先映射 SOK。
func VenueTimeInForce(tif TimeInForce, postOnly bool) (string, bool) {
	if postOnly {
		return "SOK", true
	}
	switch tif {
	case TIFGTC:
		return "FAS", true
	case TIFIOC:
		return "FAK", true
	case TIFFOK:
		return "FOK", true
	default:
		return "", false
	}
}

// InferLiquiditySide 根据订单类型推断 maker/taker。
func InferLiquiditySide(t OrderType, postOnly bool) LiquiditySide {
	if t == TypeMarket {
		return LiquidityTaker
	}
	if postOnly {
		return LiquidityMaker
	}
	if t == TypeLimit {
		return LiquidityMaker
	}
	return LiquidityUnknown
}
