package main

import (
	"sync"

	"go.uber.org/zap"

	"gmocoin-adapter-go/gateway"
	"gmocoin-adapter-go/inventory"
	"gmocoin-adapter-go/market"
	"gmocoin-adapter-go/order"
)

// orderCache 进程内订单身份缓存。下单成功时登记双向映射，
// 推送侧据此把 venueOrderId 解析回 clientOrderId。
type orderCache struct {
	mu       sync.RWMutex
	byVenue  map[string]string
	byClient map[string]*order.CachedOrder
}

func newOrderCache() *orderCache {
	return &orderCache{
		byVenue:  make(map[string]string),
		byClient: make(map[string]*order.CachedOrder),
	}
}

func (c *orderCache) Put(ord order.CachedOrder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byVenue[ord.VenueOrderID] = ord.ClientOrderID
	c.byClient[ord.ClientOrderID] = &ord
}

func (c *orderCache) ClientOrderID(venueOrderID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	oid, ok := c.byVenue[venueOrderID]
	return oid, ok
}

func (c *orderCache) Order(clientOrderID string) (*order.CachedOrder, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ord, ok := c.byClient[clientOrderID]
	if !ok {
		return nil, false
	}
	snapshot := *ord
	return &snapshot, true
}

func (c *orderCache) setStatus(clientOrderID string, status gateway.Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ord, ok := c.byClient[clientOrderID]; ok {
		ord.Status = status
	}
}

// logSink 把规范化事件落结构化日志，并同步缓存里的订单状态。
// 真正的消费引擎替换这里即可接入。
type logSink struct {
	log   *zap.Logger
	cache *orderCache
}

func (s *logSink) OnOrderAccepted(ev order.OrderAccepted) error {
	s.log.Info("event order_accepted",
		zap.String("clientOrderId", ev.ClientOrderID),
		zap.String("venueOrderId", ev.VenueOrderID),
		zap.String("symbol", ev.Symbol))
	return nil
}

func (s *logSink) OnOrderCanceled(ev order.OrderCanceled) error {
	// 终态落缓存，让过期的重复撤单推送被识别
	s.cache.setStatus(ev.ClientOrderID, gateway.StatusCanceled)
	s.log.Info("event order_canceled",
		zap.String("clientOrderId", ev.ClientOrderID),
		zap.String("venueOrderId", ev.VenueOrderID))
	return nil
}

func (s *logSink) OnOrderUpdated(ev order.OrderUpdated) error {
	s.log.Info("event order_updated",
		zap.String("clientOrderId", ev.ClientOrderID),
		zap.String("venueOrderId", ev.VenueOrderID))
	return nil
}

func (s *logSink) OnOrderFilled(ev order.OrderFilled) error {
	s.log.Info("event order_filled",
		zap.String("clientOrderId", ev.ClientOrderID),
		zap.String("venueOrderId", ev.VenueOrderID),
		zap.String("tradeId", ev.TradeID),
		zap.String("lastQty", ev.LastQty.String()),
		zap.String("lastPx", ev.LastPx.String()),
		zap.String("commission", ev.Commission.String()),
		zap.String("liquidity", string(ev.LiquiditySide)))
	return nil
}

func (s *logSink) OnAccountState(ev inventory.AccountState) error {
	for _, b := range ev.Balances {
		s.log.Info("event account_state",
			zap.String("currency", b.Currency),
			zap.String("total", b.Total.String()),
			zap.String("available", b.Available.String()),
			zap.String("locked", b.Locked().String()))
	}
	return nil
}

// barSink 把 K 线落结构化日志。
type barSink struct {
	log *zap.Logger
}

func (s *barSink) OnBar(bar market.Bar) error {
	s.log.Info("event bar",
		zap.String("symbol", bar.Symbol),
		zap.String("spec", bar.Spec.String()),
		zap.String("openTime", bar.OpenTime),
		zap.String("open", bar.Open.String()),
		zap.String("high", bar.High.String()),
		zap.String("low", bar.Low.String()),
		zap.String("close", bar.Close.String()),
		zap.String("volume", bar.Volume.String()))
	return nil
}
