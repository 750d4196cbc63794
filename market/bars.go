package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"gmocoin-adapter-go/gateway"
	"gmocoin-adapter-go/metrics"
)

// ErrUnsupportedBarSpec 请求的规格不在交易所开放的 12 档之内。
var ErrUnsupportedBarSpec = errors.New("unsupported bar spec")

// KlineSource K 线轮询的数据来源（gateway.Client 满足该接口）。
type KlineSource interface {
	GetKlines(ctx context.Context, symbol, interval, date string) ([]gateway.KlineData, error)
}

// Sink 规范化 K 线的出口。返回 error 时水位不前进，该根 K 线下轮重发。
type Sink interface {
	OnBar(bar Bar) error
}

// GMO 的 K 线日界在 06:00 JST。
var jst = time.FixedZone("JST", 9*3600)

// klineDate 计算 /v1/klines 的 date 参数。分钟/时级用 YYYYMMDD，
// 4hour 及更粗的档用 YYYY。
func klineDate(spec BarSpec, now time.Time) string {
	t := now.In(jst).Add(-6 * time.Hour)
	if spec.Aggregation == AggMinute || spec == (BarSpec{1, AggHour}) {
		return t.Format("20060102")
	}
	return t.Format("2006")
}

type barSub struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// BarPoller 每个订阅一条轮询协程，按开盘时间水位只发新 K 线。
// 水位是协程局部的：退订销毁水位，重订从头开始。
type BarPoller struct {
	source KlineSource
	sink   Sink
	log    *zap.Logger
	now    func() time.Time

	mu   sync.Mutex
	subs map[string]*barSub
}

func NewBarPoller(source KlineSource, sink Sink, log *zap.Logger) *BarPoller {
	if log == nil {
		log = zap.NewNop()
	}
	return &BarPoller{
		source: source,
		sink:   sink,
		log:    log,
		now:    time.Now,
		subs:   make(map[string]*barSub),
	}
}

func subKey(symbol string, spec BarSpec) string {
	return symbol + "/" + spec.String()
}

// Subscribe 启动一条轮询协程。重复订阅同一 (symbol, spec) 是幂等的。
func (p *BarPoller) Subscribe(ctx context.Context, symbol string, spec BarSpec) error {
	interval, ok := VenueInterval(spec)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedBarSpec, spec)
	}

	key := subKey(symbol, spec)
	p.mu.Lock()
	if _, exists := p.subs[key]; exists {
		p.mu.Unlock()
		return nil
	}
	loopCtx, cancel := context.WithCancel(ctx)
	sub := &barSub{cancel: cancel, done: make(chan struct{})}
	p.subs[key] = sub
	p.mu.Unlock()

	go p.pollLoop(loopCtx, sub, symbol, spec, interval)
	p.log.Info("bar subscription started",
		zap.String("symbol", symbol), zap.String("spec", spec.String()))
	return nil
}

// Unsubscribe 取消轮询协程并等它退出。
func (p *BarPoller) Unsubscribe(symbol string, spec BarSpec) {
	key := subKey(symbol, spec)
	p.mu.Lock()
	sub, ok := p.subs[key]
	if ok {
		delete(p.subs, key)
	}
	p.mu.Unlock()
	if !ok {
		return
	}
	sub.cancel()
	<-sub.done
	p.log.Info("bar subscription stopped",
		zap.String("symbol", symbol), zap.String("spec", spec.String()))
}

// Close 停掉所有订阅。
func (p *BarPoller) Close() {
	p.mu.Lock()
	subs := p.subs
	p.subs = make(map[string]*barSub)
	p.mu.Unlock()
	for _, sub := range subs {
		sub.cancel()
		<-sub.done
	}
}

// pollLoop 先拉一次再按周期循环。水位只在出口成功后前进，
// 拉取失败记日志后继续下一轮。
func (p *BarPoller) pollLoop(ctx context.Context, sub *barSub, symbol string, spec BarSpec, interval string) {
	defer close(sub.done)

	period := PollPeriod(spec)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	watermark := ""
	watermark = p.pollOnce(ctx, symbol, spec, interval, watermark)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			watermark = p.pollOnce(ctx, symbol, spec, interval, watermark)
		}
	}
}

func (p *BarPoller) pollOnce(ctx context.Context, symbol string, spec BarSpec, interval, watermark string) string {
	klines, err := p.source.GetKlines(ctx, symbol, interval, klineDate(spec, p.now()))
	if err != nil {
		if ctx.Err() == nil {
			p.log.Warn("kline poll failed",
				zap.String("symbol", symbol), zap.String("spec", spec.String()), zap.Error(err))
			metrics.BarPollErrors.Inc()
		}
		return watermark
	}

	for _, k := range klines {
		openTime := k.OpenTime.String()
		// 开盘时间是定长毫秒数字串，字典序等价于数值序。
		if openTime == "" || openTime <= watermark {
			continue
		}
		bar := Bar{
			Symbol:    symbol,
			Spec:      spec,
			Open:      k.Open,
			High:      k.High,
			Low:       k.Low,
			Close:     k.Close,
			Volume:    k.Volume,
			OpenTime:  openTime,
			EventTime: p.now(),
		}
		if err := p.sink.OnBar(bar); err != nil {
			p.log.Error("bar emission failed",
				zap.String("symbol", symbol), zap.String("openTime", openTime), zap.Error(err))
			return watermark
		}
		watermark = openTime
		metrics.BarsEmitted.Inc()
	}
	return watermark
}
