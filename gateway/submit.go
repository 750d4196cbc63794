package gateway

import (
	"encoding/json"
	"fmt"
)

// buildSubmitBody 把规范化下单请求翻译为 /v1/order 请求体。
// 不支持的订单类型直接返回 ErrUnsupportedOrderType，不发起请求。
func buildSubmitBody(req SubmitOrderRequest) ([]byte, error) {
	executionType, ok := VenueOrderType(req.Type)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOrderType, req.Type)
	}
	if req.Size.Sign() <= 0 {
		return nil, fmt.Errorf("order size must be > 0, got %s", req.Size)
	}

	body := map[string]string{
		"symbol":        req.Symbol,
		"side":          string(req.Side),
		"executionType": executionType,
		"size":          req.Size.String(),
	}
	// MARKET 不带价格；LIMIT/STOP 必须带。
	if req.Type != TypeMarket {
		if req.Price == nil {
			return nil, fmt.Errorf("%s order requires price", req.Type)
		}
		body["price"] = req.Price.String()
	}
	// GTC(FAS) 是交易所缺省，只有非缺省才发送。post-only 覆盖为 SOK。
	if req.PostOnly || (req.TimeInForce != "" && req.TimeInForce != TIFGTC) {
		tif, ok := VenueTimeInForce(req.TimeInForce, req.PostOnly)
		if !ok {
			return nil, fmt.Errorf("unsupported time in force: %s", req.TimeInForce)
		}
		body["timeInForce"] = tif
	}
	if req.ClientOrderID != "" {
		body["clientOrderId"] = req.ClientOrderID
	}
	if req.SettleType != "" {
		body["settleType"] = req.SettleType
	}
	if req.LosscutPrice != nil {
		body["losscutPrice"] = req.LosscutPrice.String()
	}
	return json.Marshal(body)
}
