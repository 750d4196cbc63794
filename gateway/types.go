package gateway

import (
	"bytes"
	"errors"

	"github.com/shopspring/decimal"
)

// ID 把数字或字符串两种编码的交易所标识符统一为字符串。
// GMO 的 orderId/executionId 在 REST 与 WS 两侧编码不一致。
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.Trim(b, `"`)
	if string(b) == "null" {
		*id = ""
		return nil
	}
	*id = ID(b)
	return nil
}

func (id ID) String() string { return string(id) }

// OrderData REST 订单记录（/v1/orders、/v1/activeOrders）。
type OrderData struct {
	OrderID       ID               `json:"orderId"`
	ClientOrderID string           `json:"clientOrderId"`
	Symbol        string           `json:"symbol"`
	Side          string           `json:"side"`
	ExecutionType string           `json:"executionType"`
	TimeInForce   string           `json:"timeInForce"`
	Status        string           `json:"status"`
	Size          decimal.Decimal  `json:"size"`
	ExecutedSize  decimal.Decimal  `json:"executedSize"`
	Price         *decimal.Decimal `json:"price"`
	Timestamp     string           `json:"timestamp"`
}

// ExecutionData REST 约定记录（/v1/executions、/v1/latestExecutions）。
type ExecutionData struct {
	ExecutionID ID              `json:"executionId"`
	OrderID     ID              `json:"orderId"`
	Symbol      string          `json:"symbol"`
	Side        string          `json:"side"`
	Size        decimal.Decimal `json:"size"`
	Price       decimal.Decimal `json:"price"`
	Fee         decimal.Decimal `json:"fee"`
	Timestamp   string          `json:"timestamp"`
}

// AssetData REST 资产记录（/v1/account/assets）。symbol 是币种代码。
type AssetData struct {
	Symbol    string          `json:"symbol"`
	Amount    decimal.Decimal `json:"amount"`
	Available decimal.Decimal `json:"available"`
}

// PositionData REST 建玉记录（/v1/openPositions）。
type PositionData struct {
	PositionID ID              `json:"positionId"`
	Symbol     string          `json:"symbol"`
	Side       string          `json:"side"`
	Size       decimal.Decimal `json:"size"`
	Price      decimal.Decimal `json:"price"`
	Timestamp  string          `json:"timestamp"`
}

// KlineData REST K线记录（/v1/klines）。openTime 为毫秒时间戳字符串，
// 同长度下字典序即时间序，作为水位线令牌使用。
type KlineData struct {
	OpenTime ID              `json:"openTime"`
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	Volume   decimal.Decimal `json:"volume"`
}

// SymbolData 公共 /v1/symbols 记录，带最小下单量与步长。
type SymbolData struct {
	Symbol       string          `json:"symbol"`
	MinOrderSize decimal.Decimal `json:"minOrderSize"`
	MaxOrderSize decimal.Decimal `json:"maxOrderSize"`
	SizeStep     decimal.Decimal `json:"sizeStep"`
	TickSize     decimal.Decimal `json:"tickSize"`
}

// OrderUpdateData 私有 WS orderEvents 推送。WS 与 REST 的字段名不一致
// （orderStatus/status、orderExecutedSize/executedSize、orderPrice/price），
// 通过可选字段 + 访问方法消解，不做运行时能力探测。
type OrderUpdateData struct {
	OrderID           ID               `json:"orderId"`
	ClientOrderID     string           `json:"clientOrderId"`
	Symbol            string           `json:"symbol"`
	Side              string           `json:"side"`
	ExecutionType     string           `json:"executionType"`
	OrderStatus       string           `json:"orderStatus"`
	Status            string           `json:"status"`
	OrderExecutedSize *decimal.Decimal `json:"orderExecutedSize"`
	ExecutedSize      *decimal.Decimal `json:"executedSize"`
	OrderSize         *decimal.Decimal `json:"orderSize"`
	OrderPrice        *decimal.Decimal `json:"orderPrice"`
	Price             *decimal.Decimal `json:"price"`
	Timestamp         string           `json:"timestamp"`
}

// VenueStatus 返回推送中的 GMO 状态字段，orderStatus 优先。缺省为空串。
func (o OrderUpdateData) VenueStatus() string {
	if o.OrderStatus != "" {
		return o.OrderStatus
	}
	return o.Status
}

// ExecutedQty 返回累计成交量字段，orderExecutedSize 优先。缺省为 0。
func (o OrderUpdateData) ExecutedQty() decimal.Decimal {
	if o.OrderExecutedSize != nil {
		return *o.OrderExecutedSize
	}
	if o.ExecutedSize != nil {
		return *o.ExecutedSize
	}
	return decimal.Zero
}

// AvgPrice 返回订单价格字段，orderPrice 优先。缺省为 0。
func (o OrderUpdateData) AvgPrice() decimal.Decimal {
	if o.OrderPrice != nil {
		return *o.OrderPrice
	}
	if o.Price != nil {
		return *o.Price
	}
	return decimal.Zero
}

// ExecutionUpdateData 私有 WS executionEvents 推送，带单笔成交明细。
type ExecutionUpdateData struct {
	OrderID        ID               `json:"orderId"`
	ExecutionID    ID               `json:"executionId"`
	Symbol         string           `json:"symbol"`
	Side           string           `json:"side"`
	ExecutionPrice *decimal.Decimal `json:"executionPrice"`
	Price          *decimal.Decimal `json:"price"`
	ExecutionSize  *decimal.Decimal `json:"executionSize"`
	Size           *decimal.Decimal `json:"size"`
	Fee            decimal.Decimal  `json:"fee"`
	Timestamp      string           `json:"timestamp"`
}

// FillPrice 返回成交价字段，executionPrice 优先。缺省为 0。
func (e ExecutionUpdateData) FillPrice() decimal.Decimal {
	if e.ExecutionPrice != nil {
		return *e.ExecutionPrice
	}
	if e.Price != nil {
		return *e.Price
	}
	return decimal.Zero
}

// FillSize 返回成交量字段，executionSize 优先。缺省为 0。
func (e ExecutionUpdateData) FillSize() decimal.Decimal {
	if e.ExecutionSize != nil {
		return *e.ExecutionSize
	}
	if e.Size != nil {
		return *e.Size
	}
	return decimal.Zero
}

// AssetUpdateData 私有 WS assetEvents 推送。
type AssetUpdateData struct {
	Symbol    string          `json:"symbol"`
	Amount    decimal.Decimal `json:"amount"`
	Available decimal.Decimal `json:"available"`
}

// PositionUpdateData 私有 WS positionEvents 推送。
type PositionUpdateData struct {
	PositionID ID              `json:"positionId"`
	Symbol     string          `json:"symbol"`
	Side       string          `json:"side"`
	Size       decimal.Decimal `json:"size"`
	Price      decimal.Decimal `json:"price"`
}

// SubmitOrderRequest 规范化下单请求。
type SubmitOrderRequest struct {
	Symbol        string
	Side          Side
	Type          OrderType
	TimeInForce   TimeInForce
	PostOnly      bool
	Size          decimal.Decimal
	Price         *decimal.Decimal
	ClientOrderID string
	// 杠杆交易可选参数
	SettleType   string
	LosscutPrice *decimal.Decimal
}

// ErrUnsupportedOrderType 请求了交易所不支持的订单类型，调用方应直接短路。
var ErrUnsupportedOrderType = errors.New("unsupported order type")
