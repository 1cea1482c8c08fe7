package stats

import (
	"fmt"
	"io"
	"sort"

	"github.com/life2you_mini/tradestats/internal/trading"
)

// FollowTradeBucket 相同间隔分钟数的连亏后续交易汇总
type FollowTradeBucket struct {
	InterTradeMins int     `json:"inter_trade_mins"`
	Count          int     `json:"count"`
	Points         float64 `json:"points"`
	Percent        float64 `json:"percent"`
}

// FollowTradeStats 连亏后续交易统计
type FollowTradeStats struct {
	Name        string              `json:"name"`
	Buckets     []FollowTradeBucket `json:"buckets"`
	TotalCount  int                 `json:"total_count"`
	TotalPoints float64             `json:"total_points"`
}

// SummarizeFollowTrades 按间隔分钟数分组，组按分钟数升序
func SummarizeFollowTrades(name string, trades []trading.FollowTrade) FollowTradeStats {
	result := FollowTradeStats{Name: name, Buckets: make([]FollowTradeBucket, 0)}

	index := make(map[int]int)
	for _, t := range trades {
		i, ok := index[t.InterTradeMins]
		if !ok {
			i = len(result.Buckets)
			index[t.InterTradeMins] = i
			result.Buckets = append(result.Buckets, FollowTradeBucket{InterTradeMins: t.InterTradeMins})
		}
		result.Buckets[i].Count++
		result.Buckets[i].Points += t.Points
		result.TotalCount++
		result.TotalPoints += t.Points
	}

	for i := range result.Buckets {
		result.Buckets[i].Percent = float64(result.Buckets[i].Count) / float64(result.TotalCount) * 100
	}
	sort.Slice(result.Buckets, func(i, j int) bool {
		return result.Buckets[i].InterTradeMins < result.Buckets[j].InterTradeMins
	})
	return result
}

// WriteTo 以文本形式输出
func (s FollowTradeStats) WriteTo(w io.Writer) (int64, error) {
	var written int64
	write := func(format string, args ...any) error {
		n, err := fmt.Fprintf(w, format, args...)
		written += int64(n)
		return err
	}

	if err := write("--- %s ---\n", s.Name); err != nil {
		return written, err
	}
	for _, b := range s.Buckets {
		if err := write("InterTradeTime: %d, Count: %d, Points: %.2f, %%: %.2f%%\n",
			b.InterTradeMins, b.Count, b.Points, b.Percent); err != nil {
			return written, err
		}
	}
	if err := write("Count of InterTradeTime: %d\n", s.TotalCount); err != nil {
		return written, err
	}
	err := write("Sum of Points: %.2f\n", s.TotalPoints)
	return written, err
}
