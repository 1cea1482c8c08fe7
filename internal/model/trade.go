package model

import "time"

// Trade 一次完整的往返交易（从空仓到再次空仓）
type Trade struct {
	Symbol       string    `json:"symbol"`
	EntryIsLong  bool      `json:"entry_is_long"`  // 首笔成交为买入
	EntryTime    time.Time `json:"entry_time"`     // 首笔成交时间
	ExitTime     time.Time `json:"exit_time"`      // 成交中的最大时间
	MaxTradeSize float64   `json:"max_trade_size"` // 持仓过程中的最大绝对净头寸
	TradePoints  float64   `json:"trade_points"`   // 每手点数
	TradeAmount  float64   `json:"trade_amount"`   // (卖出金额 - 买入金额) * 合约乘数
	EntryFills   int       `json:"entry_fills"`    // 开仓方向的成交笔数
	FillCount    int       `json:"fill_count"`
}

// IsWin 盈利交易；持平按亏损处理
func (t Trade) IsWin() bool {
	return t.TradeAmount > 0
}

// IsScaled 开仓方向有多笔成交
func (t Trade) IsScaled() bool {
	return t.EntryFills > 1
}

// Duration 持仓时长
func (t Trade) Duration() time.Duration {
	return t.ExitTime.Sub(t.EntryTime)
}

// Direction 返回 LONG 或 SHORT
func (t Trade) Direction() string {
	if t.EntryIsLong {
		return "LONG"
	}
	return "SHORT"
}
