package alerts

import (
	"fmt"

	"github.com/life2you_mini/tradestats/internal/model"
	"github.com/life2you_mini/tradestats/internal/rules"
	"github.com/life2you_mini/tradestats/internal/stats"
)

type legacyCondition struct {
	match    func(v float64) bool
	level    model.ConcernLevel
	message  string
	extraMsg string
}

type legacyGroup struct {
	name       string
	value      float64
	conditions []legacyCondition
}

// LegacyMatches 内置规则，规则文件不可用时使用；每组取第一条命中的规则
func LegacyMatches(ctx *stats.Context) []rules.Match {
	matches := make([]rules.Match, 0)
	for _, g := range legacyGroups(ctx) {
		for _, c := range g.conditions {
			if !c.match(g.value) {
				continue
			}
			if c.message != "" {
				matches = append(matches, rules.Match{
					ID:           fmt.Sprintf("legacy_%s_%s", g.name, c.level),
					Group:        g.name,
					Message:      c.message,
					ExtraMessage: c.extraMsg,
					Level:        c.level,
				})
			}
			break
		}
	}
	return matches
}

// legacyGroups 输出顺序：连亏、回撤、盈亏、交易次数、胜率、盈亏比、最大亏损仓位、亏损加仓
func legacyGroups(ctx *stats.Context) []legacyGroup {
	completed := ctx.CompletedTrades
	pnl := ctx.TotalProfitOrLoss
	pf := ctx.ProfitFactor
	bias := ctx.DirectionalBiasExtraMsg

	streakValue := 0
	streakExtra := ""
	if ctx.Streak != nil {
		streakValue = ctx.Streak.Streak
		streakExtra = ctx.Streak.ExtraMessage()
	}

	tradesExtra := fmt.Sprintf("%d", completed)
	pnlExtra := stats.FormatSignedInt(pnl)
	drawdownExtra := stats.FormatGrouped(float64(ctx.CurrentDrawdown), true, 0)

	return []legacyGroup{
		{
			name:  "losing_streak",
			value: float64(streakValue),
			conditions: []legacyCondition{
				{match: func(x float64) bool { return x <= -7 }, level: model.LevelCritical,
					message: "Stop Now. Protect the version of YOU that will trade well tomorrow."},
				{match: func(x float64) bool { return x <= -4 }, level: model.LevelWarning,
					message: "Stop. Follow Reset plan."},
				{match: func(x float64) bool { return x <= -2 }, level: model.LevelCaution,
					message: "Slow down. Consecutive losses. " + streakExtra},
			},
		},
		{
			name:  "drawdown",
			value: float64(ctx.CurrentDrawdown),
			conditions: []legacyCondition{
				{match: func(x float64) bool { return x < -3000 }, level: model.LevelCritical,
					message: "Stop Now. Maximum drawdown.", extraMsg: drawdownExtra},
				{match: func(x float64) bool { return x < -2000 }, level: model.LevelWarning,
					message: "Reset. Large drawdown.", extraMsg: drawdownExtra},
				{match: func(x float64) bool { return x < -1000 }, level: model.LevelCaution,
					message: "Slow down. Notable drawdown.", extraMsg: drawdownExtra},
			},
		},
		{
			name:  "pnl",
			value: pnl,
			conditions: []legacyCondition{
				{match: func(x float64) bool { return x < -2100 }, level: model.LevelCritical,
					message: "Stop. Protect your capital.", extraMsg: pnlExtra},
				{match: func(x float64) bool { return x < -1400 }, level: model.LevelWarning,
					message: "Pause. Reset first, then recover.", extraMsg: pnlExtra},
				{match: func(x float64) bool { return x < -700 }, level: model.LevelCaution,
					message: "Slow down. Manage loss by managing risk.", extraMsg: pnlExtra},
				{match: func(x float64) bool { return x >= 1000 }, level: model.LevelOK,
					message: "Wind down. Protect gains.", extraMsg: pnlExtra},
			},
		},
		{
			name:  "trades",
			value: float64(completed),
			conditions: []legacyCondition{
				{match: func(x float64) bool { return x >= 30 }, level: model.LevelCritical,
					message: "Stop. Maximum trades for the day reached.", extraMsg: tradesExtra},
				{match: func(x float64) bool { return x >= 20 && pnl > 0 }, level: model.LevelOK,
					message: "Wind down. You've reached your trade count goal.", extraMsg: tradesExtra},
				{match: func(x float64) bool { return x >= 20 }, level: model.LevelWarning,
					message: "Wind down. You've reached your trade count goal.", extraMsg: tradesExtra},
				{match: func(x float64) bool { return x >= 10 }, level: model.LevelCaution,
					message: "Slow down. Take quality trades only.", extraMsg: tradesExtra},
			},
		},
		{
			name:  "win_rate",
			value: ctx.WinRate,
			conditions: []legacyCondition{
				{match: func(x float64) bool { return x <= 25 && pf < 1.0 && completed >= 10 }, level: model.LevelWarning,
					message: "Reset. Win Rate very low.", extraMsg: bias},
				{match: func(x float64) bool { return x <= 40 && pf < 1.5 && completed >= 5 }, level: model.LevelCaution,
					message: "Slow down. Win Rate low.", extraMsg: bias},
			},
		},
		{
			name:  "profit_factor",
			value: pf,
			conditions: []legacyCondition{
				{match: func(x float64) bool { return x < 1.0 && completed >= 10 }, level: model.LevelWarning,
					message: "Reset. Profit Factor very low.", extraMsg: bias},
				{match: func(x float64) bool { return x < 1.5 && completed >= 5 }, level: model.LevelCaution,
					message: "Slow down. Profit Factor low.", extraMsg: bias},
				{match: func(x float64) bool { return x >= 1.5 }, level: model.LevelOK},
			},
		},
		{
			name:  "loss_max_size",
			value: ctx.LossMaxSize,
			conditions: []legacyCondition{
				{match: func(x float64) bool { return x >= 10 }, level: model.LevelWarning,
					message: "Reset. Size down."},
				{match: func(x float64) bool { return x >= 6 }, level: model.LevelCaution,
					message: "Size down."},
				{match: func(x float64) bool { return x >= 4 && pf < 1.0 && completed >= 3 }, level: model.LevelCaution,
					message: "Size down."},
			},
		},
		{
			name:  "loss_scaled_count",
			value: float64(ctx.LossScaledCount),
			conditions: []legacyCondition{
				{match: func(x float64) bool { return x >= 5 }, level: model.LevelWarning,
					message: "Reset. Scale up winners only."},
				{match: func(x float64) bool { return x >= 3 }, level: model.LevelCaution,
					message: "Scale up winners only."},
			},
		},
	}
}
