package main

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gmocoin-adapter-go/gateway"
	"gmocoin-adapter-go/order"
)

// TradeService 下单出口。提交成功后先登记身份缓存再返回，
// 保证推送侧最早到达的事件也能解析归属。
type TradeService struct {
	submitter *order.Submitter
	cache     *orderCache
}

func NewTradeService(submitter *order.Submitter, cache *orderCache) *TradeService {
	return &TradeService{submitter: submitter, cache: cache}
}

func (t *TradeService) Submit(ctx context.Context, req gateway.SubmitOrderRequest) (string, error) {
	venueOID, err := t.submitter.Submit(ctx, req)
	if err != nil {
		return "", err
	}
	price := decimalOrZero(req.Price)
	t.cache.Put(order.CachedOrder{
		ClientOrderID: req.ClientOrderID,
		VenueOrderID:  venueOID,
		Symbol:        req.Symbol,
		Side:          req.Side,
		Type:          req.Type,
		TimeInForce:   req.TimeInForce,
		PostOnly:      req.PostOnly,
		Price:         price,
		Status:        gateway.StatusAccepted,
	})
	return venueOID, nil
}

func decimalOrZero(p *decimal.Decimal) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	return *p
}

func (t *TradeService) Cancel(ctx context.Context, venueOrderID string) error {
	return t.submitter.Cancel(ctx, venueOrderID)
}

// symbolList 静态订阅标的列表，报告扇出用。
type symbolList []string

func (s symbolList) SubscribedSymbols() []string { return s }

// runReconcileLoop 周期性拉取订单/成交/资产/建玉报告落日志，
// 作为推送通道的兜底校验。
func runReconcileLoop(ctx context.Context, builder *order.ReportBuilder, interval time.Duration, zl *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if orders, err := builder.OpenOrders(ctx); err == nil {
				zl.Info("reconcile open orders", zap.Int("count", len(orders)))
			}
			if fills, err := builder.Fills(ctx); err == nil {
				zl.Info("reconcile fills", zap.Int("count", len(fills)))
			}
			if state, err := builder.Account(ctx); err == nil {
				zl.Info("reconcile account", zap.Int("balances", len(state.Balances)))
			}
			if positions, err := builder.Positions(ctx); err == nil {
				zl.Info("reconcile positions", zap.Int("count", len(positions)))
			}
		}
	}
}
