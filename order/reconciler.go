package order

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gmocoin-adapter-go/gateway"
	"gmocoin-adapter-go/inventory"
	"gmocoin-adapter-go/metrics"
)

// ExecutionHistory 对账需要的成交历史查询（gateway.Client 满足该接口）。
type ExecutionHistory interface {
	GetExecutions(ctx context.Context, venueOrderID string) ([]gateway.ExecutionData, error)
}

// orderState 单个订单的去重/水位状态。每个订单自带锁：
// 同一订单的并发投递串行化，不同订单完全并行。
// 锁只覆盖同步账务步骤，绝不跨网络 I/O 持有——成交历史在取锁前拉取。
type orderState struct {
	mu sync.Mutex
	// lastExecutedQty 累计成交量水位，单调不减。
	lastExecutedQty decimal.Decimal
	// reportedExecIDs 已作为成交事件发出的 executionId 集合，只增。
	reportedExecIDs map[string]struct{}
}

// Reconciler 订单对账器：把交易所推送与 REST 成交历史合并为
// 恰好一次的规范化成交/撤单事件。状态仅存于内存，重启丢失在途去重
// 状态是接受的限制。
type Reconciler struct {
	resolver   *Resolver
	history    ExecutionHistory
	sink       Sink
	normalizer *inventory.Normalizer
	log        *zap.Logger
	now        func() time.Time

	mu     sync.Mutex
	states map[string]*orderState
}

func NewReconciler(resolver *Resolver, history ExecutionHistory, sink Sink, normalizer *inventory.Normalizer, log *zap.Logger) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{
		resolver:   resolver,
		history:    history,
		sink:       sink,
		normalizer: normalizer,
		log:        log,
		now:        time.Now,
		states:     make(map[string]*orderState),
	}
}

// state 取（或建）订单状态。首次引用某 venueOrderID 时创建。
func (r *Reconciler) state(venueOrderID string) *orderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.states[venueOrderID]
	if !ok {
		st = &orderState{reportedExecIDs: make(map[string]struct{})}
		r.states[venueOrderID] = st
	}
	return st
}

// evict 终态订单移除状态，限制内存。
func (r *Reconciler) evict(venueOrderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, venueOrderID)
}

// StateCount 当前跟踪的订单数（监控/测试用）。
func (r *Reconciler) StateCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.states)
}

// HandleExecutionUpdate 处理逐笔成交推送：按 executionId 去重后
// 原样发出该笔的量/价/费。
func (r *Reconciler) HandleExecutionUpdate(ctx context.Context, ev gateway.ExecutionUpdateData) {
	execID := ev.ExecutionID.String()
	if execID == "" {
		r.log.Warn("execution update missing executionId, skipping")
		metrics.MalformedRecords.Inc()
		return
	}

	venueOID := ev.OrderID.String()
	ord, err := r.resolver.Resolve(ctx, venueOID)
	if err != nil {
		r.log.Warn("drop execution update, identity unresolved",
			zap.String("venueOrderId", venueOID), zap.Error(err))
		metrics.IdentityDrops.Inc()
		return
	}

	st := r.state(venueOID)
	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.reportedExecIDs[execID]; ok {
		r.log.Debug("duplicate executionId, skipping", zap.String("executionId", execID))
		metrics.DuplicateExecutions.Inc()
		return
	}

	size := ev.FillSize()
	if size.Sign() <= 0 {
		r.log.Warn("execution update with non-positive size",
			zap.String("executionId", execID), zap.String("size", size.String()))
		return
	}

	fill := OrderFilled{
		ClientOrderID: ord.ClientOrderID,
		VenueOrderID:  venueOID,
		Symbol:        ord.Symbol,
		Side:          ord.Side,
		TradeID:       execID,
		LastQty:       size,
		LastPx:        ev.FillPrice(),
		Commission:    ev.Fee,
		LiquiditySide: gateway.InferLiquiditySide(ord.Type, ord.PostOnly),
		Timestamp:     r.now(),
	}
	if err := r.sink.OnOrderFilled(fill); err != nil {
		// 不标记 executionId：后续重复投递可重试这笔成交。
		r.log.Error("fill emission failed, execution left unreported",
			zap.String("executionId", execID), zap.Error(err))
		return
	}

	st.reportedExecIDs[execID] = struct{}{}
	st.lastExecutedQty = st.lastExecutedQty.Add(size)
	metrics.FillsEmitted.Inc()

	r.log.Info("execution fill",
		zap.String("executionId", execID),
		zap.String("price", fill.LastPx.String()),
		zap.String("size", size.String()),
		zap.String("fee", fill.Commission.String()))
}

// HandleOrderUpdate 处理订单级推送/轮询：只携带累计成交量时，
// 相对水位算增量并通过成交历史合并出一笔成交；随后处理状态迁移。
func (r *Reconciler) HandleOrderUpdate(ctx context.Context, ev gateway.OrderUpdateData) {
	venueOID := ev.OrderID.String()
	if venueOID == "" {
		r.log.Warn("order update missing orderId, skipping")
		metrics.MalformedRecords.Inc()
		return
	}

	ord, err := r.resolver.Resolve(ctx, venueOID)
	if err != nil {
		r.log.Warn("drop order update, identity unresolved",
			zap.String("venueOrderId", venueOID), zap.Error(err))
		metrics.IdentityDrops.Inc()
		return
	}

	executed := ev.ExecutedQty()

	// 成交历史在取状态锁之前拉取，锁不跨网络 I/O。
	// delta 是否为正要在锁内判定，这里先无条件拉取会浪费请求，
	// 所以先用无锁快照粗判，再到锁内复核。
	var history []gateway.ExecutionData
	if r.peekDelta(venueOID, executed).Sign() > 0 {
		history, err = r.history.GetExecutions(ctx, venueOID)
		if err != nil {
			r.log.Warn("failed to fetch execution details",
				zap.String("venueOrderId", venueOID), zap.Error(err))
			metrics.RESTErrors.Inc()
			history = nil
		}
	}

	st := r.state(venueOID)
	st.mu.Lock()
	delta := executed.Sub(st.lastExecutedQty)
	if delta.Sign() > 0 {
		r.mergeFills(ord, venueOID, st, delta, executed, ev.AvgPrice(), history)
	}
	// delta <= 0：重复或回退，静默容忍，水位不动。
	st.mu.Unlock()

	venueStatus := ev.VenueStatus()
	status, ok := gateway.CanonicalStatus(venueStatus)
	if !ok {
		if venueStatus != "" {
			r.log.Debug("unknown venue order status", zap.String("status", venueStatus))
		}
		return
	}

	switch status {
	case gateway.StatusCanceled:
		// 缓存里已是终态说明这是过期的重复推送，不再发撤单事件。
		if !ord.Status.IsTerminal() {
			cancel := OrderCanceled{
				ClientOrderID: ord.ClientOrderID,
				VenueOrderID:  venueOID,
				Symbol:        ord.Symbol,
				Timestamp:     r.now(),
			}
			if err := r.sink.OnOrderCanceled(cancel); err != nil {
				r.log.Error("cancel emission failed", zap.String("venueOrderId", venueOID), zap.Error(err))
			}
		}
		r.evict(venueOID)
	case gateway.StatusFilled, gateway.StatusExpired:
		r.evict(venueOID)
	}
}

// peekDelta 无锁读取水位做粗判，仅用于决定是否预拉成交历史。
func (r *Reconciler) peekDelta(venueOrderID string, executed decimal.Decimal) decimal.Decimal {
	r.mu.Lock()
	st, ok := r.states[venueOrderID]
	r.mu.Unlock()
	if !ok {
		return executed
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return executed.Sub(st.lastExecutedQty)
}

// mergeFills 把累计增量 delta 物化为一笔成交事件。
// 历史里有未上报明细时用量加权均价与费用合计；没有明细时
// 退化为订单价、零费用的合成成交。调用方持有 st.mu。
func (r *Reconciler) mergeFills(ord *CachedOrder, venueOID string, st *orderState, delta, executed, orderPrice decimal.Decimal, history []gateway.ExecutionData) {
	var newExecs []gateway.ExecutionData
	for _, ex := range history {
		if _, ok := st.reportedExecIDs[ex.ExecutionID.String()]; !ok {
			newExecs = append(newExecs, ex)
		}
	}

	avgPrice := orderPrice
	totalFee := decimal.Zero
	tradeID := ""
	if len(newExecs) > 0 {
		tradeID = newExecs[0].ExecutionID.String()
		weightedSum := decimal.Zero
		totalQty := decimal.Zero
		for _, ex := range newExecs {
			weightedSum = weightedSum.Add(ex.Size.Mul(ex.Price))
			totalQty = totalQty.Add(ex.Size)
			totalFee = totalFee.Add(ex.Fee)
		}
		if totalQty.Sign() > 0 {
			avgPrice = weightedSum.Div(totalQty)
		}
	}

	fill := OrderFilled{
		ClientOrderID: ord.ClientOrderID,
		VenueOrderID:  venueOID,
		Symbol:        ord.Symbol,
		Side:          ord.Side,
		TradeID:       tradeID,
		LastQty:       delta,
		LastPx:        avgPrice,
		Commission:    totalFee,
		LiquiditySide: gateway.InferLiquiditySide(ord.Type, ord.PostOnly),
		Timestamp:     r.now(),
	}
	if err := r.sink.OnOrderFilled(fill); err != nil {
		// 水位与去重集不动：下一次订单更新会重新计算增量并重试。
		r.log.Error("merged fill emission failed",
			zap.String("venueOrderId", venueOID), zap.Error(err))
		return
	}

	for _, ex := range newExecs {
		st.reportedExecIDs[ex.ExecutionID.String()] = struct{}{}
	}
	st.lastExecutedQty = executed
	metrics.FillsEmitted.Inc()

	r.log.Info("merged fill",
		zap.String("venueOrderId", venueOID),
		zap.String("delta", delta.String()),
		zap.String("avgPrice", avgPrice.String()),
		zap.Int("executions", len(newExecs)))
}

// HandleAssetUpdate 单币种余额推送：走同一套归一化规则后发快照。
func (r *Reconciler) HandleAssetUpdate(ctx context.Context, ev gateway.AssetUpdateData) {
	if ev.Symbol == "" {
		return
	}
	balance, ok := r.normalizer.NormalizeOne(gateway.AssetData{
		Symbol:    ev.Symbol,
		Amount:    ev.Amount,
		Available: ev.Available,
	})
	if !ok {
		return
	}
	state := inventory.AccountState{
		Balances:  []inventory.Balance{balance},
		Timestamp: r.now(),
	}
	if err := r.sink.OnAccountState(state); err != nil {
		r.log.Error("account state emission failed", zap.Error(err))
		return
	}
	r.log.Info("account state updated", zap.String("currency", ev.Symbol))
}

// HandlePositionUpdate 建玉推送目前只记日志，建玉快照走报告通道。
func (r *Reconciler) HandlePositionUpdate(ctx context.Context, ev gateway.PositionUpdateData) {
	r.log.Info("position update received",
		zap.String("positionId", ev.PositionID.String()),
		zap.String("symbol", ev.Symbol))
}

// HandlePositionSummaryUpdate 同上，只记日志。
func (r *Reconciler) HandlePositionSummaryUpdate(ctx context.Context, raw json.RawMessage) {
	r.log.Info("position summary update received", zap.Int("bytes", len(raw)))
}
