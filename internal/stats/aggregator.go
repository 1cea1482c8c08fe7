package stats

import (
	"fmt"
	"math"
	"time"

	"github.com/life2you_mini/tradestats/internal/model"
	"github.com/life2you_mini/tradestats/internal/trading"
)

// 展示指标名称
const (
	MetricTrades             = "Trades"
	MetricOpenEntry          = "Open Entry"
	MetricOpenDuration       = "Open Duration"
	MetricWinRate            = "Win Rate"
	MetricWinRateLongShort   = "Win Rate (L/S)"
	MetricProfitLoss         = "P/L"
	MetricProfitFactor       = "Profit Factor"
	MetricPeakPL             = "Peak P/L"
	MetricPeakTimePL         = "Peak Time P/L"
	MetricBestWorst          = "Best/Worst"
	MetricMaxTradePL         = "Max Trade P/L"
	MetricMaxPoints          = "Max Points"
	MetricScaledLosses       = "Scaled Losses"
	MetricMaxLossSize        = "Max Loss Size"
	MetricScaledWins         = "Scaled Wins"
	MetricMaxWinSize         = "Max Win Size"
	MetricAvgSize            = "Avg Size"
	MetricFirstEntry         = "First Entry"
	MetricLastExit           = "Last Exit"
	MetricInterTradeAvg      = "InterTrade Avg"
	MetricInterTradeMax      = "InterTrade Max"
	MetricAvgOrdersPerTrade  = "Avg Order per Trade"
	MetricOrdersLongShort    = "Orders L/S"
	MetricContractsLongShort = "Contracts L/S"
	MetricWinLoss            = "Win/Loss"
	MetricGainsLosses        = "Gains/Losses"
	MetricAvgGainLoss        = "Avg Trade P/L"
	MetricAvgPoints          = "Avg Points"
	MetricDurationAvg        = "Duration Avg W/L"
	MetricDurationMax        = "Duration Max W/L"
	MetricLastUpdated        = "Last Updated"
)

// DateTimeFormat "Last Updated" 的时间格式
const DateTimeFormat = "2006-01-02 15:04:05"

// MetricEntry 一条展示指标
type MetricEntry struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Color string `json:"color,omitempty"`
}

// Inputs 统计时的外部输入
type Inputs struct {
	Account        string
	Now            time.Time
	OpenNoticeMins int // 未平仓超过该分钟数时高亮
}

// Snapshot 单个账户的统计结果
type Snapshot struct {
	Account string
	Metrics []MetricEntry
	Context *Context
}

// Lookup 按名称查找展示指标
func (s *Snapshot) Lookup(label string) (MetricEntry, bool) {
	for _, m := range s.Metrics {
		if m.Label == label {
			return m, true
		}
	}
	return MetricEntry{}, false
}

// Aggregate 根据重建结果计算展示指标和告警上下文
func Aggregate(res *trading.Result, in Inputs) *Snapshot {
	ctx := BuildContext(res, in)
	return &Snapshot{
		Account: in.Account,
		Metrics: buildMetrics(res, ctx, in),
		Context: ctx,
	}
}

// MinimalSnapshot 没有成交的账户只有交易数和更新时间
func MinimalSnapshot(account string, now time.Time) *Snapshot {
	return &Snapshot{
		Account: account,
		Metrics: []MetricEntry{
			{Label: MetricTrades, Value: "0"},
			{Label: MetricLastUpdated, Value: now.Format(DateTimeFormat)},
		},
	}
}

// BuildContext 计算告警上下文
func BuildContext(res *trading.Result, in Inputs) *Context {
	streak := res.Streak
	if streak == nil {
		streak = trading.NewStreak()
	}

	totalGains := sum(res.LongGains) + sum(res.ShortGains)
	totalLosses := sum(res.LongLosses) + sum(res.ShortLosses)

	ctx := &Context{
		Account:             in.Account,
		CompletedTrades:     res.CompletedTrades,
		WinningTrades:       res.WinningTrades,
		LosingTrades:        res.CompletedTrades - res.WinningTrades,
		TotalProfitOrLoss:   res.TotalProfitOrLoss,
		WinRate:             winRate(res.WinningTrades, res.CompletedTrades),
		LongWinRate:         directionalWinRate(res.LongWins, res.LongTrades),
		ShortWinRate:        directionalWinRate(res.WinningTrades-res.LongWins, res.ShortTrades),
		ProfitFactor:        profitFactor(totalGains, totalLosses),
		LongProfitFactor:    profitFactor(sum(res.LongGains), sum(res.LongLosses)),
		ShortProfitFactor:   profitFactor(sum(res.ShortGains), sum(res.ShortLosses)),
		Streak:              streak,
		LossMaxSize:         res.LossMaxSize,
		WinMaxSize:          res.WinMaxSize,
		LossScaledCount:     res.LossScaledCount,
		WinScaledCount:      res.WinScaledCount,
		CurrentDrawdown:     -int(res.MaxRealizedProfit - res.TotalProfitOrLoss),
		MaxRealizedDrawdown: res.MaxRealizedDrawdown,
		MaxRealizedProfit:   res.MaxRealizedProfit,
		OpenPositionSize:    res.OpenPositionSize(),
		WinAvgSecs:          averageDuration(res.WinDurations).Seconds(),
		LossAvgSecs:         averageDuration(res.LossDurations).Seconds(),
		TotalPoints:         sum(res.WinPoints) + sum(res.LossPoints),
	}

	if res.Open != nil && !in.Now.IsZero() {
		if mins := int(in.Now.Sub(res.Open.EntryTime).Minutes()); mins > 0 {
			ctx.OpenDurationMins = mins
		}
	}

	ctx.LongBiasPercent, ctx.ShortBiasPercent = biasPercentages(res.LongTrades, res.ShortTrades, res.CompletedTrades)
	ctx.DirectionalBias = directionalBias(ctx.LongBiasPercent, ctx.ShortBiasPercent)
	switch {
	case ctx.LongBiasPercent >= 90:
		ctx.DirectionalBiasExtraMsg = "Join the SHORT."
	case ctx.LongBiasPercent <= 10:
		ctx.DirectionalBiasExtraMsg = "Join the LONG."
	default:
		ctx.DirectionalBiasExtraMsg = ctx.DirectionalBias
	}

	return ctx
}

// winRate 没有交易时为中性值50
func winRate(wins, total int) float64 {
	if total == 0 {
		return 50
	}
	return float64(wins) / float64(total) * 100
}

func directionalWinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total) * 100
}

// profitFactor 没有亏损时为中性值1
func profitFactor(gains, losses float64) float64 {
	if losses == 0 {
		return 1
	}
	return gains / math.Abs(losses)
}

func biasPercentages(long, short, total int) (float64, float64) {
	if total == 0 {
		return 0, 0
	}
	return float64(long) / float64(total) * 100, float64(short) / float64(total) * 100
}

func directionalBias(longPct, shortPct float64) string {
	switch {
	case longPct == 100:
		return "100% long."
	case shortPct == 100:
		return "100% short."
	case longPct > shortPct:
		return fmt.Sprintf("%.0f%% long", longPct)
	default:
		return fmt.Sprintf("%.0f%% short", shortPct)
	}
}

func signColor(v float64) string {
	switch {
	case v > 0:
		return model.LevelOK.Color()
	case v < 0:
		return model.LevelCritical.Color()
	default:
		return model.LevelDefault.Color()
	}
}

func winRateColor(completed int, rate float64) string {
	switch {
	case completed == 0:
		return model.LevelDefault.Color()
	case rate >= 50:
		return model.LevelOK.Color()
	case rate <= 40:
		return model.LevelCaution.Color()
	default:
		return model.LevelDefault.Color()
	}
}

func profitFactorColor(completed int, pf float64) string {
	switch {
	case completed == 0:
		return model.LevelDefault.Color()
	case pf >= 1.5:
		return model.LevelOK.Color()
	case pf < 1:
		return model.LevelWarning.Color()
	default:
		return model.LevelCaution.Color()
	}
}

func buildMetrics(res *trading.Result, ctx *Context, in Inputs) []MetricEntry {
	metrics := make([]MetricEntry, 0, 32)
	add := func(label, value, color string) {
		metrics = append(metrics, MetricEntry{Label: label, Value: value, Color: color})
	}

	add(MetricTrades, fmt.Sprintf("%d", res.CompletedTrades), "")

	if res.Open != nil {
		add(MetricOpenEntry, fmt.Sprintf("%s %s @ %s",
			directionName(res.Open.EntryIsLong),
			trimFloat(res.Open.Size()),
			FormatClock(res.Open.EntryTime),
		), "")
		color := ""
		if in.OpenNoticeMins > 0 && ctx.OpenDurationMins >= in.OpenNoticeMins {
			color = model.LevelCaution.Color()
		}
		add(MetricOpenDuration, fmt.Sprintf("%d mins", ctx.OpenDurationMins), color)
	}

	add(MetricWinRate, fmt.Sprintf("%.0f%%", ctx.WinRate), winRateColor(res.CompletedTrades, ctx.WinRate))
	add(MetricWinRateLongShort, fmt.Sprintf("%.0f%% / %.0f%%", ctx.LongWinRate, ctx.ShortWinRate), "")
	add(MetricProfitLoss, FormatSignedInt(res.TotalProfitOrLoss), signColor(res.TotalProfitOrLoss))
	add(MetricProfitFactor, fmt.Sprintf("%.2f", ctx.ProfitFactor), profitFactorColor(res.CompletedTrades, ctx.ProfitFactor))
	add(MetricPeakPL, fmt.Sprintf("%s / %s",
		FormatSignedInt(res.MaxRealizedProfit), FormatSignedInt(res.MaxRealizedDrawdown)), "")
	add(MetricBestWorst, fmt.Sprintf("%d / %d", ctx.Streak.BestStreak, ctx.Streak.WorstStreak), "")

	allGains := append(append([]float64{}, res.LongGains...), res.ShortGains...)
	allLosses := append(append([]float64{}, res.LongLosses...), res.ShortLosses...)
	add(MetricMaxTradePL, fmt.Sprintf("%s / %s",
		FormatSignedInt(maxOf(allGains)), FormatSignedInt(minOf(allLosses))), "")
	add(MetricMaxPoints, fmt.Sprintf("%.2f / %.2f", maxOf(res.WinPoints), minOf(res.LossPoints)), "")
	add(MetricScaledLosses, fmt.Sprintf("%d", res.LossScaledCount), "")
	add(MetricMaxLossSize, trimFloat(res.LossMaxSize), "")

	sizes := make([]float64, 0, len(res.Trades))
	fillCount := 0
	for _, t := range res.Trades {
		sizes = append(sizes, t.MaxTradeSize)
		fillCount += t.FillCount
	}
	add(MetricAvgSize, fmt.Sprintf("%.1f", average(sizes)), "")
	add(MetricFirstEntry, FormatClock(res.FirstEntryTime), "")
	add(MetricLastExit, FormatClock(res.LastExitTime), "")
	add(MetricInterTradeAvg, FormatDuration(averageDuration(res.TimeBetweenTrades)), "")
	add(MetricInterTradeMax, FormatDuration(maxDuration(res.TimeBetweenTrades)), "")

	avgOrders := 0.0
	if res.CompletedTrades > 0 {
		avgOrders = float64(fillCount) / float64(res.CompletedTrades)
	}
	add(MetricAvgOrdersPerTrade, fmt.Sprintf("%.1f", avgOrders), "")
	add(MetricOrdersLongShort, fmt.Sprintf("%d / %d", res.TotalBuys, res.TotalSells), "")
	add(MetricContractsLongShort, fmt.Sprintf("%d / %d", res.TotalBuyContracts, res.TotalSellContracts), "")
	add(MetricScaledWins, fmt.Sprintf("%d", res.WinScaledCount), "")
	add(MetricMaxWinSize, trimFloat(res.WinMaxSize), "")
	add(MetricWinLoss, fmt.Sprintf("%d / %d", ctx.WinningTrades, ctx.LosingTrades), "")
	add(MetricGainsLosses, fmt.Sprintf("%s / %s",
		FormatSignedInt(sum(allGains)), FormatSignedInt(sum(allLosses))), "")
	add(MetricAvgGainLoss, fmt.Sprintf("%s / %s",
		FormatSignedInt(average(allGains)), FormatSignedInt(average(allLosses))), "")
	add(MetricAvgPoints, fmt.Sprintf("%.2f / %.2f", average(res.WinPoints), average(res.LossPoints)), "")
	add(MetricPeakTimePL, fmt.Sprintf("%s / %s",
		FormatClock(res.MaxRealizedProfitTime), FormatClock(res.MaxRealizedDrawdownTime)), "")
	add(MetricDurationAvg, fmt.Sprintf("%s / %s",
		FormatDuration(averageDuration(res.WinDurations)), FormatDuration(averageDuration(res.LossDurations))), "")
	add(MetricDurationMax, fmt.Sprintf("%s / %s",
		FormatDuration(maxDuration(res.WinDurations)), FormatDuration(maxDuration(res.LossDurations))), "")
	add(MetricLastUpdated, in.Now.Format(DateTimeFormat), "")

	return metrics
}

func directionName(long bool) string {
	if long {
		return "LONG"
	}
	return "SHORT"
}

func trimFloat(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}
