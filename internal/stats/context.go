package stats

import (
	"github.com/life2you_mini/tradestats/internal/trading"
)

// Context 单个账户的告警上下文，每次刷新全量重算
type Context struct {
	Account string `json:"account"`

	CompletedTrades   int     `json:"completed_trades"`
	WinningTrades     int     `json:"winning_trades"`
	LosingTrades      int     `json:"losing_trades"`
	TotalProfitOrLoss float64 `json:"total_profit_or_loss"`
	TotalPoints       float64 `json:"total_points"`

	WinRate           float64 `json:"win_rate"`
	LongWinRate       float64 `json:"long_win_rate"`
	ShortWinRate      float64 `json:"short_win_rate"`
	ProfitFactor      float64 `json:"profit_factor"`
	LongProfitFactor  float64 `json:"long_profit_factor"`
	ShortProfitFactor float64 `json:"short_profit_factor"`

	LongBiasPercent         float64 `json:"long_bias_percent"`
	ShortBiasPercent        float64 `json:"short_bias_percent"`
	DirectionalBias         string  `json:"directional_bias"`
	DirectionalBiasExtraMsg string  `json:"directional_bias_extramsg"`

	Streak *trading.Streak `json:"streak_tracker"`

	LossMaxSize     float64 `json:"loss_max_size"`
	WinMaxSize      float64 `json:"win_max_size"`
	LossScaledCount int     `json:"loss_scaled_count"`
	WinScaledCount  int     `json:"win_scaled_count"`

	CurrentDrawdown     int     `json:"current_drawdown"` // 距累计盈亏高点的回撤（<=0）
	MaxRealizedDrawdown float64 `json:"max_realized_drawdown"`
	MaxRealizedProfit   float64 `json:"max_realized_profit"`

	OpenPositionSize int `json:"open_position_size"`
	OpenDurationMins int `json:"open_duration_mins"`

	WinAvgSecs  float64 `json:"win_avg_secs"`
	LossAvgSecs float64 `json:"loss_avg_secs"`
}

// Fields 展开为规则表达式可用的名称→值映射
func (c *Context) Fields() map[string]any {
	streak := c.Streak
	if streak == nil {
		streak = trading.NewStreak()
	}
	lossElapsed, _ := streak.LossElapsedMins()

	return map[string]any{
		"account":                       c.Account,
		"completed_trades":              c.CompletedTrades,
		"winning_trades":                c.WinningTrades,
		"losing_trades":                 c.LosingTrades,
		"total_profit_or_loss":          c.TotalProfitOrLoss,
		"total_points":                  c.TotalPoints,
		"win_rate":                      c.WinRate,
		"long_win_rate":                 c.LongWinRate,
		"short_win_rate":                c.ShortWinRate,
		"profit_factor":                 c.ProfitFactor,
		"long_profit_factor":            c.LongProfitFactor,
		"short_profit_factor":           c.ShortProfitFactor,
		"long_bias_percent":             c.LongBiasPercent,
		"short_bias_percent":            c.ShortBiasPercent,
		"directional_bias":              c.DirectionalBias,
		"directional_bias_extramsg":     c.DirectionalBiasExtraMsg,
		"streak_tracker":                streak,
		"streak_tracker.streak":         streak.Streak,
		"best_streak":                   streak.BestStreak,
		"worst_streak":                  streak.WorstStreak,
		"loss_mix":                      streak.LossMix(),
		"loss_elapsed_mins":             lossElapsed,
		"loss_max_size":                 c.LossMaxSize,
		"win_max_size":                  c.WinMaxSize,
		"loss_scaled_count":             c.LossScaledCount,
		"win_scaled_count":              c.WinScaledCount,
		"current_drawdown":              c.CurrentDrawdown,
		"max_realized_drawdown":         c.MaxRealizedDrawdown,
		"max_realized_profit":           c.MaxRealizedProfit,
		"open_position_size":            c.OpenPositionSize,
		"open_duration_mins":            c.OpenDurationMins,
		"win_avg_secs":                  c.WinAvgSecs,
		"loss_avg_secs":                 c.LossAvgSecs,
		"win_avg_secs_vs_loss_avg_secs": c.WinAvgSecs,
	}
}
