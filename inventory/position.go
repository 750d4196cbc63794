package inventory

import (
	"github.com/shopspring/decimal"

	"gmocoin-adapter-go/gateway"
)

// Position 规范化建玉快照。
type Position struct {
	PositionID string
	Symbol     string
	Side       gateway.Side
	Size       decimal.Decimal
	AvgPrice   decimal.Decimal
}

// PositionFromVenue 转换交易所建玉记录。方向不可识别时返回 false。
func PositionFromVenue(data gateway.PositionData) (Position, bool) {
	side, ok := gateway.CanonicalSide(data.Side)
	if !ok {
		return Position{}, false
	}
	return Position{
		PositionID: data.PositionID.String(),
		Symbol:     data.Symbol,
		Side:       side,
		Size:       data.Size,
		AvgPrice:   data.Price,
	}, true
}
