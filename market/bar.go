package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar 一根规范化 K 线。OpenTime 是 GMO 原样的毫秒时间戳字符串，
// 同一订阅内做字典序水位比较（定长数字串下字典序即数值序）。
type Bar struct {
	Symbol    string
	Spec      BarSpec
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
	OpenTime  string
	EventTime time.Time
}
