package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/life2you_mini/tradestats/internal/model"
)

// TimeOfDay 日内时间，按分钟计
type TimeOfDay int

// String 例如 09:35
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// IntervalStats 单个日内时间段的交易统计（按入场时间，忽略日期）
type IntervalStats struct {
	Start           TimeOfDay `json:"start"`
	TotalTrades     int       `json:"total_trades"`
	WinningTrades   int       `json:"winning_trades"`
	LosingTrades    int       `json:"losing_trades"`
	BreakevenTrades int       `json:"breakeven_trades"`
	LongTrades      int       `json:"long_trades"`
	ShortTrades     int       `json:"short_trades"`
	WinRate         float64   `json:"win_rate"` // 0..1
	ProfitFactor    float64   `json:"profit_factor"`
	TotalPoints     float64   `json:"total_points"`
	GrossProfit     float64   `json:"gross_profit"`
	GrossLoss       float64   `json:"gross_loss"`
	AvgPoints       float64   `json:"avg_points"`
}

// AnalyzeIntervals 按入场时间的日内分段汇总交易，结果按时间升序
func AnalyzeIntervals(trades []model.Trade, minutes int) []IntervalStats {
	if minutes <= 0 {
		minutes = 5
	}

	buckets := make(map[TimeOfDay]*IntervalStats)
	for _, t := range trades {
		minute := t.EntryTime.Hour()*60 + t.EntryTime.Minute()
		key := TimeOfDay(minute / minutes * minutes)

		s, ok := buckets[key]
		if !ok {
			s = &IntervalStats{Start: key}
			buckets[key] = s
		}

		s.TotalTrades++
		if t.EntryIsLong {
			s.LongTrades++
		} else {
			s.ShortTrades++
		}
		switch {
		case t.TradePoints > 0:
			s.WinningTrades++
			s.GrossProfit += t.TradePoints
		case t.TradePoints < 0:
			s.LosingTrades++
			s.GrossLoss += math.Abs(t.TradePoints)
		default:
			s.BreakevenTrades++
		}
	}

	result := make([]IntervalStats, 0, len(buckets))
	for _, s := range buckets {
		s.WinRate = float64(s.WinningTrades) / float64(s.TotalTrades)
		switch {
		case s.GrossLoss > 0:
			s.ProfitFactor = s.GrossProfit / s.GrossLoss
		case s.GrossProfit > 0:
			s.ProfitFactor = math.Inf(1)
		default:
			s.ProfitFactor = 0
		}
		s.TotalPoints = s.GrossProfit - s.GrossLoss
		s.AvgPoints = s.TotalPoints / float64(s.TotalTrades)
		result = append(result, *s)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Start < result[j].Start
	})
	return result
}

// WriteIntervalTable 以文本表格输出分段统计
func WriteIntervalTable(w io.Writer, intervals []IntervalStats, minutes int) error {
	if _, err := fmt.Fprintf(w, "\n--- Trade Analysis by %d-Minute Time-of-Day Interval (All Dates Aggregated) ---\n", minutes); err != nil {
		return err
	}
	if len(intervals) == 0 {
		_, err := fmt.Fprintln(w, "\nNo trades to analyze.")
		return err
	}

	header := fmt.Sprintf("%-8s | %7s | %10s | %15s | %11s | %10s",
		"Time", "Count", "Win Rate", "Profit Factor", "Total Pts", "Avg Pts")
	separator := strings.Repeat("-", len(header))

	var b strings.Builder
	b.WriteString(separator + "\n")
	b.WriteString(header + "\n")
	b.WriteString(separator + "\n")
	for _, s := range intervals {
		pf := "inf"
		if !math.IsInf(s.ProfitFactor, 1) {
			pf = fmt.Sprintf("%.2f", s.ProfitFactor)
		}
		fmt.Fprintf(&b, "%-8s | %7d | %10s | %15s | %11.2f | %10.2f\n",
			s.Start, s.TotalTrades, fmt.Sprintf("%.1f%%", s.WinRate*100), pf, s.TotalPoints, s.AvgPoints)
	}
	b.WriteString(separator + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}
