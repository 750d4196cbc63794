package inventory

import (
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"gmocoin-adapter-go/gateway"
)

// Balance 规范化资产余额。locked 恒等于 total - available，
// 作为派生值提供而不单独存储，避免失同步。
type Balance struct {
	Currency  string
	Total     decimal.Decimal
	Available decimal.Decimal
}

// Locked 冻结量 = 总量 - 可用量。
func (b Balance) Locked() decimal.Decimal {
	return b.Total.Sub(b.Available)
}

// AccountState 账户余额快照事件。
type AccountState struct {
	Balances  []Balance
	Timestamp time.Time
}

// CurrencyRegistry 外部持有的币种元数据只读通道。
// 交易所可能列出客户端不跟踪的结算代币，未知代码按跳过处理。
type CurrencyRegistry interface {
	Known(code string) bool
}

// Registry 一个简单的集合实现。
type Registry struct {
	codes map[string]struct{}
}

func NewRegistry(codes ...string) *Registry {
	r := &Registry{codes: make(map[string]struct{}, len(codes))}
	for _, c := range codes {
		r.codes[c] = struct{}{}
	}
	return r
}

func (r *Registry) Known(code string) bool {
	_, ok := r.codes[code]
	return ok
}

// Normalizer 把交易所资产记录转换为规范化余额。
type Normalizer struct {
	Registry CurrencyRegistry
	// Anchor 快照为空时兜底发出的锚定币种（JPY），保证下游至少看到一条余额。
	Anchor string
	Log    *zap.Logger
}

func NewNormalizer(registry CurrencyRegistry, anchor string, log *zap.Logger) *Normalizer {
	if anchor == "" {
		anchor = "JPY"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Normalizer{Registry: registry, Anchor: anchor, Log: log}
}

// NormalizeOne 转换单条资产记录。未知币种返回 false（debug 日志，不报错）。
func (n *Normalizer) NormalizeOne(asset gateway.AssetData) (Balance, bool) {
	if asset.Symbol == "" || !n.Registry.Known(asset.Symbol) {
		n.Log.Debug("skip unknown currency", zap.String("currency", asset.Symbol))
		return Balance{}, false
	}
	return Balance{
		Currency:  asset.Symbol,
		Total:     asset.Amount,
		Available: asset.Available,
	}, true
}

// Normalize 转换一批资产记录。没有任何可识别余额时返回锚定币种的零余额，
// 而不是空快照。
func (n *Normalizer) Normalize(assets []gateway.AssetData) []Balance {
	balances := make([]Balance, 0, len(assets))
	for _, asset := range assets {
		if b, ok := n.NormalizeOne(asset); ok {
			balances = append(balances, b)
		}
	}
	if len(balances) == 0 {
		n.Log.Warn("no balances resolved, emitting zero anchor balance",
			zap.String("currency", n.Anchor))
		balances = append(balances, Balance{Currency: n.Anchor})
	}
	return balances
}
