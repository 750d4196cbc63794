package market

import (
	"fmt"
	"time"
)

// Aggregation K 线聚合单位。
type Aggregation string

const (
	AggMinute Aggregation = "MINUTE"
	AggHour   Aggregation = "HOUR"
	AggDay    Aggregation = "DAY"
	AggWeek   Aggregation = "WEEK"
	AggMonth  Aggregation = "MONTH"
)

// BarSpec 规范化 K 线规格：步长 + 聚合单位。
type BarSpec struct {
	Step        int
	Aggregation Aggregation
}

func (s BarSpec) String() string {
	return fmt.Sprintf("%d-%s", s.Step, s.Aggregation)
}

// GMO 只开放这 12 档 interval，闭集映射。
var venueIntervalMap = map[BarSpec]string{
	{1, AggMinute}:  "1min",
	{5, AggMinute}:  "5min",
	{10, AggMinute}: "10min",
	{15, AggMinute}: "15min",
	{30, AggMinute}: "30min",
	{1, AggHour}:    "1hour",
	{4, AggHour}:    "4hour",
	{8, AggHour}:    "8hour",
	{12, AggHour}:   "12hour",
	{1, AggDay}:     "1day",
	{1, AggWeek}:    "1week",
	{1, AggMonth}:   "1month",
}

// 轮询周期按规格粒度分档：细粒度频繁拉取，粗粒度放缓。
var pollPeriodMap = map[BarSpec]time.Duration{
	{1, AggMinute}:  10 * time.Second,
	{5, AggMinute}:  30 * time.Second,
	{10, AggMinute}: time.Minute,
	{15, AggMinute}: time.Minute,
	{30, AggMinute}: 2 * time.Minute,
	{1, AggHour}:    5 * time.Minute,
	{4, AggHour}:    10 * time.Minute,
	{8, AggHour}:    10 * time.Minute,
	{12, AggHour}:   10 * time.Minute,
	{1, AggDay}:     15 * time.Minute,
	{1, AggWeek}:    time.Hour,
	{1, AggMonth}:   time.Hour,
}

// VenueInterval 把规格翻译为 GMO interval 字符串。不在 12 档内返回 false。
func VenueInterval(spec BarSpec) (string, bool) {
	v, ok := venueIntervalMap[spec]
	return v, ok
}

// PollPeriod 返回该规格的轮询周期。未知规格兜底 60 秒。
func PollPeriod(spec BarSpec) time.Duration {
	if d, ok := pollPeriodMap[spec]; ok {
		return d
	}
	return time.Minute
}

// ParseBarSpec 解析 "1-MINUTE" 形式的规格串（配置文件用）。
func ParseBarSpec(s string) (BarSpec, error) {
	var step int
	var agg string
	if _, err := fmt.Sscanf(s, "%d-%s", &step, &agg); err != nil {
		return BarSpec{}, fmt.Errorf("invalid bar spec %q: %w", s, err)
	}
	spec := BarSpec{Step: step, Aggregation: Aggregation(agg)}
	if _, ok := venueIntervalMap[spec]; !ok {
		return BarSpec{}, fmt.Errorf("unsupported bar spec %q", s)
	}
	return spec, nil
}
