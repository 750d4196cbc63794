package order

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gmocoin-adapter-go/gateway"
	"gmocoin-adapter-go/inventory"
)

// MockCache 模拟消费引擎侧订单缓存
type MockCache struct {
	byVenue  map[string]string
	byClient map[string]*CachedOrder
}

func NewMockCache() *MockCache {
	return &MockCache{
		byVenue:  make(map[string]string),
		byClient: make(map[string]*CachedOrder),
	}
}

func (m *MockCache) Put(ord CachedOrder) {
	m.byVenue[ord.VenueOrderID] = ord.ClientOrderID
	m.byClient[ord.ClientOrderID] = &ord
}

func (m *MockCache) ClientOrderID(venueOrderID string) (string, bool) {
	oid, ok := m.byVenue[venueOrderID]
	return oid, ok
}

func (m *MockCache) Order(clientOrderID string) (*CachedOrder, bool) {
	ord, ok := m.byClient[clientOrderID]
	return ord, ok
}

// MockHistory 模拟 REST 成交历史
type MockHistory struct {
	executions map[string][]gateway.ExecutionData
	err        error
	calls      int
}

func NewMockHistory() *MockHistory {
	return &MockHistory{executions: make(map[string][]gateway.ExecutionData)}
}

func (m *MockHistory) GetExecutions(ctx context.Context, venueOrderID string) ([]gateway.ExecutionData, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.executions[venueOrderID], nil
}

// MockSink 记录发出的事件
type MockSink struct {
	fills    []OrderFilled
	cancels  []OrderCanceled
	accounts []inventory.AccountState
	failFill bool
}

func (m *MockSink) OnOrderAccepted(ev OrderAccepted) error { return nil }
func (m *MockSink) OnOrderUpdated(ev OrderUpdated) error   { return nil }

func (m *MockSink) OnOrderCanceled(ev OrderCanceled) error {
	m.cancels = append(m.cancels, ev)
	return nil
}

func (m *MockSink) OnOrderFilled(ev OrderFilled) error {
	if m.failFill {
		return errors.New("sink unavailable")
	}
	m.fills = append(m.fills, ev)
	return nil
}

func (m *MockSink) OnAccountState(ev inventory.AccountState) error {
	m.accounts = append(m.accounts, ev)
	return nil
}

func newTestReconciler(cache *MockCache, history *MockHistory, sink *MockSink) *Reconciler {
	resolver := NewResolver(cache, ResolverConfig{Attempts: 1, Delay: time.Millisecond}, nil)
	registry := inventory.NewRegistry("JPY", "BTC")
	normalizer := inventory.NewNormalizer(registry, "JPY", nil)
	return NewReconciler(resolver, history, sink, normalizer, nil)
}

func d(s string) decimal.Decimal {
	v, _ := decimal.NewFromString(s)
	return v
}

func dp(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func TestHandleExecutionUpdateDeduplicates(t *testing.T) {
	cache := NewMockCache()
	cache.Put(CachedOrder{ClientOrderID: "C-1", VenueOrderID: "123", Symbol: "BTC_JPY", Side: gateway.SideBuy, Type: gateway.TypeLimit})
	sink := &MockSink{}
	rec := newTestReconciler(cache, NewMockHistory(), sink)

	ev := gateway.ExecutionUpdateData{
		OrderID:     "123",
		ExecutionID: "9001",
		Size:        dp("0.01"),
		Price:       dp("5000000"),
		Fee:         d("5"),
	}
	// 同一笔成交投递三次，只发一次事件
	rec.HandleExecutionUpdate(context.Background(), ev)
	rec.HandleExecutionUpdate(context.Background(), ev)
	rec.HandleExecutionUpdate(context.Background(), ev)

	require.Len(t, sink.fills, 1)
	fill := sink.fills[0]
	assert.Equal(t, "C-1", fill.ClientOrderID)
	assert.Equal(t, "9001", fill.TradeID)
	assert.True(t, fill.LastQty.Equal(d("0.01")))
	assert.True(t, fill.LastPx.Equal(d("5000000")))
	assert.True(t, fill.Commission.Equal(d("5")))
	assert.Equal(t, gateway.LiquidityMaker, fill.LiquiditySide)
}

func TestHandleExecutionUpdateMissingID(t *testing.T) {
	cache := NewMockCache()
	cache.Put(CachedOrder{ClientOrderID: "C-1", VenueOrderID: "123"})
	sink := &MockSink{}
	rec := newTestReconciler(cache, NewMockHistory(), sink)

	rec.HandleExecutionUpdate(context.Background(), gateway.ExecutionUpdateData{
		OrderID: "123",
		Size:    dp("0.01"),
	})
	assert.Empty(t, sink.fills)
}

func TestHandleExecutionUpdateUnresolvedDrops(t *testing.T) {
	sink := &MockSink{}
	rec := newTestReconciler(NewMockCache(), NewMockHistory(), sink)

	rec.HandleExecutionUpdate(context.Background(), gateway.ExecutionUpdateData{
		OrderID:     "999",
		ExecutionID: "9001",
		Size:        dp("0.01"),
	})
	assert.Empty(t, sink.fills)
	assert.Equal(t, 0, rec.StateCount(), "解析失败不应残留订单状态")
}

func TestHandleExecutionUpdateSinkFailureRetryable(t *testing.T) {
	cache := NewMockCache()
	cache.Put(CachedOrder{ClientOrderID: "C-1", VenueOrderID: "123"})
	sink := &MockSink{failFill: true}
	rec := newTestReconciler(cache, NewMockHistory(), sink)

	ev := gateway.ExecutionUpdateData{OrderID: "123", ExecutionID: "9001", Size: dp("0.01"), Price: dp("100")}
	rec.HandleExecutionUpdate(context.Background(), ev)
	require.Empty(t, sink.fills)

	// 出口恢复后重复投递可以补发
	sink.failFill = false
	rec.HandleExecutionUpdate(context.Background(), ev)
	require.Len(t, sink.fills, 1)
}

func TestHandleOrderUpdateDeltaSequence(t *testing.T) {
	cache := NewMockCache()
	cache.Put(CachedOrder{ClientOrderID: "C-1", VenueOrderID: "123", Symbol: "BTC_JPY", Side: gateway.SideBuy, Type: gateway.TypeLimit})
	history := NewMockHistory()
	sink := &MockSink{}
	rec := newTestReconciler(cache, history, sink)

	// 累计成交 0 -> 0.02 -> 0.02：只有第二帧产生事件
	for _, executed := range []string{"0", "0.02", "0.02"} {
		rec.HandleOrderUpdate(context.Background(), gateway.OrderUpdateData{
			OrderID:           "123",
			OrderStatus:       "ORDERED",
			OrderExecutedSize: dp(executed),
			OrderPrice:        dp("5000000"),
		})
	}

	require.Len(t, sink.fills, 1)
	assert.True(t, sink.fills[0].LastQty.Equal(d("0.02")))
}

func TestMergeFillsWeightedAverage(t *testing.T) {
	cache := NewMockCache()
	cache.Put(CachedOrder{ClientOrderID: "C-1", VenueOrderID: "123", Symbol: "BTC_JPY", Side: gateway.SideBuy, Type: gateway.TypeLimit})
	history := NewMockHistory()
	history.executions["123"] = []gateway.ExecutionData{
		{ExecutionID: "1", OrderID: "123", Size: d("0.01"), Price: d("100"), Fee: d("1")},
		{ExecutionID: "2", OrderID: "123", Size: d("0.03"), Price: d("200"), Fee: d("2")},
	}
	sink := &MockSink{}
	rec := newTestReconciler(cache, history, sink)

	rec.HandleOrderUpdate(context.Background(), gateway.OrderUpdateData{
		OrderID:           "123",
		OrderStatus:       "ORDERED",
		OrderExecutedSize: dp("0.04"),
	})

	require.Len(t, sink.fills, 1)
	fill := sink.fills[0]
	assert.True(t, fill.LastQty.Equal(d("0.04")))
	// (0.01*100 + 0.03*200) / 0.04 = 175
	assert.True(t, fill.LastPx.Equal(d("175")), "got %s", fill.LastPx)
	assert.True(t, fill.Commission.Equal(d("3")))
}

func TestMergeFillsExcludesReportedExecutions(t *testing.T) {
	cache := NewMockCache()
	cache.Put(CachedOrder{ClientOrderID: "C-1", VenueOrderID: "123", Type: gateway.TypeLimit})
	history := NewMockHistory()
	history.executions["123"] = []gateway.ExecutionData{
		{ExecutionID: "1", OrderID: "123", Size: d("0.01"), Price: d("100"), Fee: d("1")},
		{ExecutionID: "2", OrderID: "123", Size: d("0.03"), Price: d("200"), Fee: d("2")},
	}
	sink := &MockSink{}
	rec := newTestReconciler(cache, history, sink)

	// 第一笔先走逐笔通道
	rec.HandleExecutionUpdate(context.Background(), gateway.ExecutionUpdateData{
		OrderID: "123", ExecutionID: "1", Size: dp("0.01"), Price: dp("100"), Fee: d("1"),
	})
	require.Len(t, sink.fills, 1)

	// 订单级更新只应合并尚未上报的第二笔
	rec.HandleOrderUpdate(context.Background(), gateway.OrderUpdateData{
		OrderID:           "123",
		OrderStatus:       "ORDERED",
		OrderExecutedSize: dp("0.04"),
	})
	require.Len(t, sink.fills, 2)
	merged := sink.fills[1]
	assert.True(t, merged.LastQty.Equal(d("0.03")))
	assert.True(t, merged.LastPx.Equal(d("200")))
	assert.True(t, merged.Commission.Equal(d("2")))
}

func TestMergeFillsSynthesizedFallback(t *testing.T) {
	cache := NewMockCache()
	cache.Put(CachedOrder{ClientOrderID: "C-1", VenueOrderID: "123", Type: gateway.TypeLimit})
	history := NewMockHistory()
	history.err = errors.New("rest down")
	sink := &MockSink{}
	rec := newTestReconciler(cache, history, sink)

	rec.HandleOrderUpdate(context.Background(), gateway.OrderUpdateData{
		OrderID:           "123",
		OrderStatus:       "ORDERED",
		OrderExecutedSize: dp("0.05"),
		OrderPrice:        dp("4900000"),
	})

	// 历史不可用时退化为合成成交：订单价、零费用、空 tradeId
	require.Len(t, sink.fills, 1)
	fill := sink.fills[0]
	assert.True(t, fill.LastQty.Equal(d("0.05")))
	assert.True(t, fill.LastPx.Equal(d("4900000")))
	assert.True(t, fill.Commission.IsZero())
	assert.Empty(t, fill.TradeID)
}

func TestMergeFillsSinkFailureKeepsWatermark(t *testing.T) {
	cache := NewMockCache()
	cache.Put(CachedOrder{ClientOrderID: "C-1", VenueOrderID: "123", Type: gateway.TypeLimit})
	sink := &MockSink{failFill: true}
	rec := newTestReconciler(cache, NewMockHistory(), sink)

	ev := gateway.OrderUpdateData{OrderID: "123", OrderStatus: "ORDERED", OrderExecutedSize: dp("0.02"), OrderPrice: dp("100")}
	rec.HandleOrderUpdate(context.Background(), ev)
	require.Empty(t, sink.fills)

	// 水位未动，下一帧重算同样的增量并补发
	sink.failFill = false
	rec.HandleOrderUpdate(context.Background(), ev)
	require.Len(t, sink.fills, 1)
	assert.True(t, sink.fills[0].LastQty.Equal(d("0.02")))
}

func TestHandleOrderUpdateCancelOnce(t *testing.T) {
	cache := NewMockCache()
	cache.Put(CachedOrder{ClientOrderID: "C-1", VenueOrderID: "123", Symbol: "BTC_JPY"})
	sink := &MockSink{}
	rec := newTestReconciler(cache, NewMockHistory(), sink)

	ev := gateway.OrderUpdateData{OrderID: "123", OrderStatus: "CANCELED"}
	rec.HandleOrderUpdate(context.Background(), ev)
	require.Len(t, sink.cancels, 1)
	assert.Equal(t, "C-1", sink.cancels[0].ClientOrderID)
	assert.Equal(t, 0, rec.StateCount(), "终态订单应当被清理")

	// 缓存侧已落终态后，过期的重复推送不再发事件
	cache.Put(CachedOrder{ClientOrderID: "C-1", VenueOrderID: "123", Symbol: "BTC_JPY", Status: gateway.StatusCanceled})
	rec.HandleOrderUpdate(context.Background(), ev)
	assert.Len(t, sink.cancels, 1)
}

func TestHandleOrderUpdateTerminalEviction(t *testing.T) {
	cache := NewMockCache()
	cache.Put(CachedOrder{ClientOrderID: "C-1", VenueOrderID: "123", Type: gateway.TypeLimit})
	sink := &MockSink{}
	rec := newTestReconciler(cache, NewMockHistory(), sink)

	rec.HandleOrderUpdate(context.Background(), gateway.OrderUpdateData{
		OrderID:           "123",
		OrderStatus:       "EXECUTED",
		OrderExecutedSize: dp("0.01"),
		OrderPrice:        dp("100"),
	})
	require.Len(t, sink.fills, 1)
	assert.Equal(t, 0, rec.StateCount())

	rec.HandleOrderUpdate(context.Background(), gateway.OrderUpdateData{
		OrderID:     "124",
		OrderStatus: "EXPIRED",
	})
	assert.Equal(t, 0, rec.StateCount())
}

func TestHandleOrderUpdateUnknownStatusIgnored(t *testing.T) {
	cache := NewMockCache()
	cache.Put(CachedOrder{ClientOrderID: "C-1", VenueOrderID: "123"})
	sink := &MockSink{}
	rec := newTestReconciler(cache, NewMockHistory(), sink)

	rec.HandleOrderUpdate(context.Background(), gateway.OrderUpdateData{
		OrderID:     "123",
		OrderStatus: "SOMETHING_NEW",
	})
	assert.Empty(t, sink.fills)
	assert.Empty(t, sink.cancels)
}

func TestHandleAssetUpdate(t *testing.T) {
	cache := NewMockCache()
	sink := &MockSink{}
	rec := newTestReconciler(cache, NewMockHistory(), sink)

	rec.HandleAssetUpdate(context.Background(), gateway.AssetUpdateData{
		Symbol:    "JPY",
		Amount:    d("1000000"),
		Available: d("800000"),
	})
	require.Len(t, sink.accounts, 1)
	require.Len(t, sink.accounts[0].Balances, 1)
	b := sink.accounts[0].Balances[0]
	assert.Equal(t, "JPY", b.Currency)
	assert.True(t, b.Locked().Equal(d("200000")))

	// 未知币种静默跳过
	rec.HandleAssetUpdate(context.Background(), gateway.AssetUpdateData{
		Symbol: "DOGE",
		Amount: d("1"),
	})
	assert.Len(t, sink.accounts, 1)
}
