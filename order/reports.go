package order

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gmocoin-adapter-go/gateway"
	"gmocoin-adapter-go/inventory"
	"gmocoin-adapter-go/metrics"
)

// OrderStatusReport 单个订单的规范化状态快照。
type OrderStatusReport struct {
	ClientOrderID string
	VenueOrderID  string
	Symbol        string
	Side          gateway.Side
	Type          gateway.OrderType
	TimeInForce   gateway.TimeInForce
	PostOnly      bool
	Status        gateway.Status
	Qty           decimal.Decimal
	ExecutedQty   decimal.Decimal
	Price         decimal.Decimal
	Timestamp     string
}

// FillReport 单笔成交的规范化快照。
type FillReport struct {
	VenueOrderID string
	TradeID      string
	Symbol       string
	Side         gateway.Side
	LastQty      decimal.Decimal
	LastPx       decimal.Decimal
	Commission   decimal.Decimal
	Timestamp    string
}

// SymbolSource 报告扇出的标的来源。
type SymbolSource interface {
	SubscribedSymbols() []string
}

// ReportBuilder 按需把 REST 历史转成规范化报告。
// 逐标的、逐记录容错：坏记录记日志跳过，单个标的失败不拖垮整体。
type ReportBuilder struct {
	client     gateway.Client
	symbols    SymbolSource
	normalizer *inventory.Normalizer
	log        *zap.Logger
}

func NewReportBuilder(client gateway.Client, symbols SymbolSource, normalizer *inventory.Normalizer, log *zap.Logger) *ReportBuilder {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReportBuilder{client: client, symbols: symbols, normalizer: normalizer, log: log}
}

// OrderStatus 查询单个订单并转为报告。
func (b *ReportBuilder) OrderStatus(ctx context.Context, venueOrderID string) (*OrderStatusReport, error) {
	orders, err := b.client.GetOrder(ctx, venueOrderID)
	if err != nil {
		metrics.RESTErrors.Inc()
		return nil, fmt.Errorf("get order %s: %w", venueOrderID, err)
	}
	if len(orders) == 0 {
		return nil, fmt.Errorf("order %s not found", venueOrderID)
	}
	report, ok := b.orderReport(orders[0])
	if !ok {
		return nil, fmt.Errorf("order %s has unmappable fields", venueOrderID)
	}
	return report, nil
}

// OpenOrders 扇出查询所有订阅标的的活跃订单。
func (b *ReportBuilder) OpenOrders(ctx context.Context) ([]OrderStatusReport, error) {
	var reports []OrderStatusReport
	for _, symbol := range b.symbols.SubscribedSymbols() {
		orders, err := b.client.GetActiveOrders(ctx, symbol)
		if err != nil {
			// 单个标的失败不终止扇出。
			b.log.Warn("active orders query failed",
				zap.String("symbol", symbol), zap.Error(err))
			metrics.RESTErrors.Inc()
			continue
		}
		for _, od := range orders {
			if report, ok := b.orderReport(od); ok {
				reports = append(reports, *report)
			}
		}
	}
	return reports, nil
}

// Fills 扇出查询所有订阅标的的最新成交。
func (b *ReportBuilder) Fills(ctx context.Context) ([]FillReport, error) {
	var reports []FillReport
	for _, symbol := range b.symbols.SubscribedSymbols() {
		execs, err := b.client.GetLatestExecutions(ctx, symbol)
		if err != nil {
			b.log.Warn("latest executions query failed",
				zap.String("symbol", symbol), zap.Error(err))
			metrics.RESTErrors.Inc()
			continue
		}
		for _, ex := range execs {
			if report, ok := b.fillReport(ex); ok {
				reports = append(reports, *report)
			}
		}
	}
	return reports, nil
}

// FillsForOrder 查询单个订单的全部成交。
func (b *ReportBuilder) FillsForOrder(ctx context.Context, venueOrderID string) ([]FillReport, error) {
	execs, err := b.client.GetExecutions(ctx, venueOrderID)
	if err != nil {
		metrics.RESTErrors.Inc()
		return nil, fmt.Errorf("get executions %s: %w", venueOrderID, err)
	}
	reports := make([]FillReport, 0, len(execs))
	for _, ex := range execs {
		if report, ok := b.fillReport(ex); ok {
			reports = append(reports, *report)
		}
	}
	return reports, nil
}

// Account 拉取资产并归一化为账户快照。
func (b *ReportBuilder) Account(ctx context.Context) (*inventory.AccountState, error) {
	assets, err := b.client.GetAssets(ctx)
	if err != nil {
		metrics.RESTErrors.Inc()
		return nil, fmt.Errorf("get assets: %w", err)
	}
	state := inventory.AccountState{
		Balances:  b.normalizer.Normalize(assets),
		Timestamp: time.Now(),
	}
	return &state, nil
}

// Positions 扇出查询所有订阅标的的建玉。
func (b *ReportBuilder) Positions(ctx context.Context) ([]inventory.Position, error) {
	var positions []inventory.Position
	for _, symbol := range b.symbols.SubscribedSymbols() {
		records, err := b.client.GetOpenPositions(ctx, symbol)
		if err != nil {
			b.log.Warn("open positions query failed",
				zap.String("symbol", symbol), zap.Error(err))
			metrics.RESTErrors.Inc()
			continue
		}
		for _, rec := range records {
			if pos, ok := inventory.PositionFromVenue(rec); ok {
				positions = append(positions, pos)
			} else {
				b.log.Warn("skip unmappable position record",
					zap.String("symbol", symbol), zap.String("side", rec.Side))
				metrics.MalformedRecords.Inc()
			}
		}
	}
	return positions, nil
}

func (b *ReportBuilder) orderReport(od gateway.OrderData) (*OrderStatusReport, bool) {
	status, ok := gateway.CanonicalStatus(od.Status)
	if !ok {
		b.log.Warn("skip order with unknown status",
			zap.String("orderId", od.OrderID.String()), zap.String("status", od.Status))
		metrics.MalformedRecords.Inc()
		return nil, false
	}
	side, ok := gateway.CanonicalSide(od.Side)
	if !ok {
		b.log.Warn("skip order with unknown side",
			zap.String("orderId", od.OrderID.String()), zap.String("side", od.Side))
		metrics.MalformedRecords.Inc()
		return nil, false
	}
	orderType, ok := gateway.CanonicalOrderType(od.ExecutionType)
	if !ok {
		b.log.Warn("skip order with unknown executionType",
			zap.String("orderId", od.OrderID.String()), zap.String("executionType", od.ExecutionType))
		metrics.MalformedRecords.Inc()
		return nil, false
	}
	tif, postOnly, ok := gateway.CanonicalTimeInForce(od.TimeInForce)
	if !ok {
		// TIF 缺省按 GTC 处理，GMO 对市价单不回传该字段。
		tif, postOnly = gateway.TIFGTC, false
	}
	price := decimal.Zero
	if od.Price != nil {
		price = *od.Price
	}
	return &OrderStatusReport{
		ClientOrderID: od.ClientOrderID,
		VenueOrderID:  od.OrderID.String(),
		Symbol:        od.Symbol,
		Side:          side,
		Type:          orderType,
		TimeInForce:   tif,
		PostOnly:      postOnly,
		Status:        status,
		Qty:           od.Size,
		ExecutedQty:   od.ExecutedSize,
		Price:         price,
		Timestamp:     od.Timestamp,
	}, true
}

func (b *ReportBuilder) fillReport(ex gateway.ExecutionData) (*FillReport, bool) {
	side, ok := gateway.CanonicalSide(ex.Side)
	if !ok {
		b.log.Warn("skip execution with unknown side",
			zap.String("executionId", ex.ExecutionID.String()), zap.String("side", ex.Side))
		metrics.MalformedRecords.Inc()
		return nil, false
	}
	return &FillReport{
		VenueOrderID: ex.OrderID.String(),
		TradeID:      ex.ExecutionID.String(),
		Symbol:       ex.Symbol,
		Side:         side,
		LastQty:      ex.Size,
		LastPx:       ex.Price,
		Commission:   ex.Fee,
		Timestamp:    ex.Timestamp,
	}, true
}
