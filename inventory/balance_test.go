package inventory

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gmocoin-adapter-go/gateway"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestBalanceLockedInvariant(t *testing.T) {
	b := Balance{Currency: "JPY", Total: d("1000000"), Available: d("800000")}
	assert.True(t, b.Locked().Equal(d("200000")))

	// 全部可用时锁定为零
	b = Balance{Currency: "BTC", Total: d("0.5"), Available: d("0.5")}
	assert.True(t, b.Locked().IsZero())
}

func TestNormalizeOneUnknownCurrency(t *testing.T) {
	n := NewNormalizer(NewRegistry("JPY", "BTC"), "JPY", nil)

	_, ok := n.NormalizeOne(gateway.AssetData{Symbol: "DOGE", Amount: d("100"), Available: d("100")})
	assert.False(t, ok, "未知币种应当跳过")

	b, ok := n.NormalizeOne(gateway.AssetData{Symbol: "JPY", Amount: d("1000000"), Available: d("800000")})
	require.True(t, ok)
	assert.Equal(t, "JPY", b.Currency)
	assert.True(t, b.Locked().Equal(d("200000")))
}

func TestNormalizeSkipsUnknownKeepsKnown(t *testing.T) {
	n := NewNormalizer(NewRegistry("JPY", "BTC"), "JPY", nil)

	balances := n.Normalize([]gateway.AssetData{
		{Symbol: "JPY", Amount: d("1000000"), Available: d("800000")},
		{Symbol: "DOGE", Amount: d("42"), Available: d("42")},
		{Symbol: "BTC", Amount: d("0.3"), Available: d("0.1")},
	})
	require.Len(t, balances, 2)
	assert.Equal(t, "JPY", balances[0].Currency)
	assert.Equal(t, "BTC", balances[1].Currency)
	assert.True(t, balances[1].Locked().Equal(d("0.2")))
}

func TestNormalizeEmptyEmitsZeroAnchor(t *testing.T) {
	n := NewNormalizer(NewRegistry("JPY"), "JPY", nil)

	balances := n.Normalize(nil)
	require.Len(t, balances, 1)
	assert.Equal(t, "JPY", balances[0].Currency)
	assert.True(t, balances[0].Total.IsZero())
	assert.True(t, balances[0].Available.IsZero())
	assert.True(t, balances[0].Locked().IsZero())

	// 全部未知同样兜底
	balances = n.Normalize([]gateway.AssetData{{Symbol: "DOGE", Amount: d("1")}})
	require.Len(t, balances, 1)
	assert.Equal(t, "JPY", balances[0].Currency)
}

func TestNormalizerDefaultAnchor(t *testing.T) {
	n := NewNormalizer(NewRegistry(), "", nil)
	assert.Equal(t, "JPY", n.Anchor)
}

func TestPositionFromVenue(t *testing.T) {
	pos, ok := PositionFromVenue(gateway.PositionData{
		PositionID: "55",
		Symbol:     "BTC_JPY",
		Side:       "BUY",
		Size:       d("0.1"),
		Price:      d("5000000"),
	})
	require.True(t, ok)
	assert.Equal(t, "55", pos.PositionID)
	assert.Equal(t, gateway.SideBuy, pos.Side)

	_, ok = PositionFromVenue(gateway.PositionData{Side: "LONG"})
	assert.False(t, ok, "未知方向应当跳过")
}
