package order

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gmocoin-adapter-go/gateway"
)

// ErrIdentityNotFound 重试预算耗尽后仍未解析出 clientOrderId。
// 调用方丢弃该更新（仅记日志），绝不向上抛。
var ErrIdentityNotFound = errors.New("client order id not found")

// CachedOrder 外部订单缓存中的订单记录。
type CachedOrder struct {
	ClientOrderID string
	VenueOrderID  string
	Symbol        string
	Side          gateway.Side
	Type          gateway.OrderType
	TimeInForce   gateway.TimeInForce
	PostOnly      bool
	Price         decimal.Decimal
	Status        gateway.Status
}

// Cache 消费引擎持有的订单缓存只读通道。身份归属在缓存侧，
// 解析器只读不写。
type Cache interface {
	// ClientOrderID 查 venueOrderID 对应的 clientOrderId。
	ClientOrderID(venueOrderID string) (string, bool)
	// Order 按 clientOrderId 查完整订单记录。
	Order(clientOrderID string) (*CachedOrder, bool)
}

// Resolver 把交易所订单号解析为客户端订单记录。
// 推送可能先于提交回执落缓存到达，因此做有界重试：
// 默认 10 次、间隔 100ms，共 1 秒。超预算的更新永久丢失（设计取舍）。
type Resolver struct {
	cache    Cache
	attempts int
	delay    time.Duration
	log      *zap.Logger
}

// ResolverConfig 重试预算配置。
type ResolverConfig struct {
	Attempts int
	Delay    time.Duration
}

func NewResolver(cache Cache, cfg ResolverConfig, log *zap.Logger) *Resolver {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 10
	}
	if cfg.Delay <= 0 {
		cfg.Delay = 100 * time.Millisecond
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{
		cache:    cache,
		attempts: cfg.Attempts,
		delay:    cfg.Delay,
		log:      log,
	}
}

// Resolve 解析 venueOrderID。有界等待，支持 ctx 取消。
func (r *Resolver) Resolve(ctx context.Context, venueOrderID string) (*CachedOrder, error) {
	var clientOID string
	for i := 0; i < r.attempts; i++ {
		if oid, ok := r.cache.ClientOrderID(venueOrderID); ok {
			clientOID = oid
			break
		}
		// 每次失败后都等满间隔，10 次共 1 秒预算。
		timer := time.NewTimer(r.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if clientOID == "" {
		r.log.Warn("client order id not found after retries",
			zap.String("venueOrderId", venueOrderID))
		return nil, ErrIdentityNotFound
	}

	ord, ok := r.cache.Order(clientOID)
	if !ok {
		r.log.Warn("order not found in cache",
			zap.String("clientOrderId", clientOID))
		return nil, ErrIdentityNotFound
	}
	return ord, nil
}
