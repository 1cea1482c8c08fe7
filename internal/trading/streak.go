package trading

import (
	"fmt"
	"strings"
	"time"
)

// TradeResult 完成一笔交易后交给连胜/连亏追踪器的结果
type TradeResult struct {
	IsWin       bool
	EntryIsLong bool
	EntryTime   time.Time
	ExitTime    time.Time
	Size        float64
	Points      float64
}

// FollowTrade 连亏期间的下一笔交易：与上一笔交易的间隔分钟数和点数
type FollowTrade struct {
	InterTradeMins int     `json:"inter_trade_mins"`
	Points         float64 `json:"points"`
}

// Streak 连胜/连亏状态机，正数为连胜，负数为连亏
type Streak struct {
	Streak              int        `json:"streak"`
	BestStreak          int        `json:"best_streak"`
	WorstStreak         int        `json:"worst_streak"`
	LongLosses          int        `json:"long_losses"`  // 当前连亏中多头亏损次数
	ShortLosses         int        `json:"short_losses"` // 当前连亏中空头亏损次数
	StreakStartTime     *time.Time `json:"streak_start_time,omitempty"`
	StreakLastTradeTime *time.Time `json:"streak_last_trade_time,omitempty"`

	// 连亏(<=-2)之后的下一笔交易，盈利记为止损者，亏损记为延续者
	LosingStreakStoppers   []FollowTrade `json:"losing_streak_stoppers,omitempty"`
	LosingStreakContinuers []FollowTrade `json:"losing_streak_continuers,omitempty"`

	processed    int
	previousExit time.Time
}

// NewStreak 创建追踪器
func NewStreak() *Streak {
	return &Streak{}
}

// Process 按完成顺序处理一笔交易
func (s *Streak) Process(r TradeResult) {
	if s.Streak <= -2 && s.processed > 0 {
		follow := FollowTrade{
			InterTradeMins: int(r.EntryTime.Sub(s.previousExit).Minutes()),
			Points:         r.Points,
		}
		if r.IsWin {
			s.LosingStreakStoppers = append(s.LosingStreakStoppers, follow)
		} else {
			s.LosingStreakContinuers = append(s.LosingStreakContinuers, follow)
		}
	}

	if r.IsWin {
		s.processWin()
	} else {
		s.processLoss(r)
	}

	s.processed++
	s.previousExit = r.ExitTime
}

func (s *Streak) processWin() {
	if s.Streak > 0 {
		s.Streak++
	} else {
		s.Streak = 1
	}
	if s.Streak > s.BestStreak {
		s.BestStreak = s.Streak
	}

	s.LongLosses = 0
	s.ShortLosses = 0
	s.StreakStartTime = nil
	s.StreakLastTradeTime = nil
}

func (s *Streak) processLoss(r TradeResult) {
	if s.Streak < 0 {
		s.Streak--
		entry := r.EntryTime
		s.StreakLastTradeTime = &entry
	} else {
		s.Streak = -1
		// 连亏从上一笔交易平仓时开始计时；首笔交易即亏损时从开仓时间开始
		start := r.EntryTime
		if s.processed > 0 {
			start = s.previousExit
		}
		s.StreakStartTime = &start
		s.StreakLastTradeTime = nil
	}
	if s.Streak < s.WorstStreak {
		s.WorstStreak = s.Streak
	}

	if r.EntryIsLong {
		s.LongLosses++
	} else {
		s.ShortLosses++
	}
}

// LossMix 当前连亏的主要方向构成，例如 "80% long"；连亏不足两笔时为空
func (s *Streak) LossMix() string {
	if s.Streak >= -1 {
		return ""
	}
	total := s.LongLosses + s.ShortLosses
	if total == 0 {
		return ""
	}
	if s.LongLosses >= s.ShortLosses {
		return fmt.Sprintf("%.0f%% long", float64(s.LongLosses)/float64(total)*100)
	}
	return fmt.Sprintf("%.0f%% short", float64(s.ShortLosses)/float64(total)*100)
}

// LossElapsedMins 当前连亏持续的分钟数，没有完整计时窗口时返回 false
func (s *Streak) LossElapsedMins() (int, bool) {
	if s.Streak > -2 || s.StreakStartTime == nil || s.StreakLastTradeTime == nil {
		return 0, false
	}
	return int(s.StreakLastTradeTime.Sub(*s.StreakStartTime).Minutes()), true
}

// LossElapsedMinsStr 例如 "12 mins"
func (s *Streak) LossElapsedMinsStr() string {
	mins, ok := s.LossElapsedMins()
	if !ok {
		return ""
	}
	return fmt.Sprintf("%d mins", mins)
}

// ExtraMessage 供告警文本使用的连亏描述
func (s *Streak) ExtraMessage() string {
	parts := make([]string, 0, 2)
	if mix := s.LossMix(); mix != "" {
		parts = append(parts, mix)
	}
	if elapsed := s.LossElapsedMinsStr(); elapsed != "" {
		parts = append(parts, elapsed)
	}
	return strings.Join(parts, ", ")
}

// String 实现 fmt.Stringer
func (s *Streak) String() string {
	return fmt.Sprintf("%d", s.Streak)
}

// Field 按名称读取字段，供规则表达式使用点号访问
func (s *Streak) Field(name string) (any, bool) {
	switch name {
	case "streak":
		return s.Streak, true
	case "best_streak":
		return s.BestStreak, true
	case "worst_streak":
		return s.WorstStreak, true
	case "long_losses":
		return s.LongLosses, true
	case "short_losses":
		return s.ShortLosses, true
	case "loss_mix":
		return s.LossMix(), true
	case "loss_elapsed_mins":
		mins, _ := s.LossElapsedMins()
		return mins, true
	case "extra_msg":
		return s.ExtraMessage(), true
	}
	return nil, false
}
