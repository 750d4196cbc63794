package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gmocoin-adapter-go/gateway"
	"gmocoin-adapter-go/metrics"
)

// Submitter 下单/撤单/改单出口。负责不支持组合的前置拒绝与
// 成功后的规范化事件发出。
type Submitter struct {
	client gateway.Client
	sink   Sink
	log    *zap.Logger
	now    func() time.Time
}

func NewSubmitter(client gateway.Client, sink Sink, log *zap.Logger) *Submitter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Submitter{client: client, sink: sink, log: log, now: time.Now}
}

// Submit 提交新订单。交易所不支持的类型组合在发请求前拒绝。
// 返回交易所分配的 venueOrderId。
func (s *Submitter) Submit(ctx context.Context, req gateway.SubmitOrderRequest) (string, error) {
	venueOID, err := s.client.SubmitOrder(ctx, req)
	if err != nil {
		if !errors.Is(err, gateway.ErrUnsupportedOrderType) {
			metrics.RESTErrors.Inc()
		}
		s.log.Warn("order submission failed",
			zap.String("symbol", req.Symbol), zap.String("clientOrderId", req.ClientOrderID),
			zap.Error(err))
		return "", fmt.Errorf("submit order: %w", err)
	}

	ev := OrderAccepted{
		ClientOrderID: req.ClientOrderID,
		VenueOrderID:  venueOID,
		Symbol:        req.Symbol,
		Timestamp:     s.now(),
	}
	if err := s.sink.OnOrderAccepted(ev); err != nil {
		s.log.Error("accepted emission failed", zap.String("venueOrderId", venueOID), zap.Error(err))
	}
	s.log.Info("order submitted",
		zap.String("symbol", req.Symbol),
		zap.String("clientOrderId", req.ClientOrderID),
		zap.String("venueOrderId", venueOID))
	return venueOID, nil
}

// Cancel 撤销订单。撤销确认事件由推送侧发出，这里只发起请求。
func (s *Submitter) Cancel(ctx context.Context, venueOrderID string) error {
	if err := s.client.CancelOrder(ctx, venueOrderID); err != nil {
		metrics.RESTErrors.Inc()
		s.log.Warn("order cancel failed", zap.String("venueOrderId", venueOrderID), zap.Error(err))
		return fmt.Errorf("cancel order %s: %w", venueOrderID, err)
	}
	s.log.Info("order cancel requested", zap.String("venueOrderId", venueOrderID))
	return nil
}

// Change 修改订单价格。GMO 只支持改价，不支持改量。
func (s *Submitter) Change(ctx context.Context, clientOrderID, venueOrderID, symbol string, price decimal.Decimal) error {
	if err := s.client.ChangeOrder(ctx, venueOrderID, price); err != nil {
		metrics.RESTErrors.Inc()
		s.log.Warn("order change failed", zap.String("venueOrderId", venueOrderID), zap.Error(err))
		return fmt.Errorf("change order %s: %w", venueOrderID, err)
	}
	ev := OrderUpdated{
		ClientOrderID: clientOrderID,
		VenueOrderID:  venueOrderID,
		Symbol:        symbol,
		Price:         &price,
		Timestamp:     s.now(),
	}
	if err := s.sink.OnOrderUpdated(ev); err != nil {
		s.log.Error("updated emission failed", zap.String("venueOrderId", venueOrderID), zap.Error(err))
	}
	s.log.Info("order change requested",
		zap.String("venueOrderId", venueOrderID), zap.String("price", price.String()))
	return nil
}
