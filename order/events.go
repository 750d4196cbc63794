package order

import (
	"time"

	"github.com/shopspring/decimal"

	"gmocoin-adapter-go/gateway"
	"gmocoin-adapter-go/inventory"
)

// 适配器向消费引擎投递的规范化事件。

// OrderAccepted 订单被交易所接受。
type OrderAccepted struct {
	ClientOrderID string
	VenueOrderID  string
	Symbol        string
	Timestamp     time.Time
}

// OrderCanceled 订单撤销完成。
type OrderCanceled struct {
	ClientOrderID string
	VenueOrderID  string
	Symbol        string
	Timestamp     time.Time
}

// OrderUpdated 订单改价/改量完成。
type OrderUpdated struct {
	ClientOrderID string
	VenueOrderID  string
	Symbol        string
	Price         *decimal.Decimal
	Quantity      *decimal.Decimal
	Timestamp     time.Time
}

// OrderFilled 一笔成交。TradeID 在合并成交（无逐笔明细）时为空。
type OrderFilled struct {
	ClientOrderID string
	VenueOrderID  string
	Symbol        string
	Side          gateway.Side
	TradeID       string
	LastQty       decimal.Decimal
	LastPx        decimal.Decimal
	Commission    decimal.Decimal
	LiquiditySide gateway.LiquiditySide
	Timestamp     time.Time
}

// Sink 消费引擎侧的事件出口。方法返回 error：成交的去重标记在
// 出口成功之后才落账（mark-after），出口失败时该成交可被重试。
type Sink interface {
	OnOrderAccepted(ev OrderAccepted) error
	OnOrderCanceled(ev OrderCanceled) error
	OnOrderUpdated(ev OrderUpdated) error
	OnOrderFilled(ev OrderFilled) error
	OnAccountState(ev inventory.AccountState) error
}
