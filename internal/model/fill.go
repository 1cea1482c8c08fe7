package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side 成交方向
type Side string

// 成交方向常量
const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// ParseSide 从日志中的 "Filled BUY" / "Filled SELL" 解析方向
func ParseSide(token string) (Side, bool) {
	switch token {
	case "Filled BUY", "BUY":
		return SideBuy, true
	case "Filled SELL", "SELL":
		return SideSell, true
	}
	return "", false
}

// Fill 单笔成交记录，由 (Account, OrderID) 唯一确定
type Fill struct {
	Account  string          `json:"account"`
	OrderID  int64           `json:"order_id"` // 去除非数字字符后的订单号，作为排序键
	Side     Side            `json:"side"`
	Symbol   string          `json:"symbol"`   // 合约代码，例如 ESM5
	Quantity decimal.Decimal `json:"quantity"` // 成交数量 (>0)
	Price    decimal.Decimal `json:"price"`    // 成交价格 (>0)
	FillTime time.Time       `json:"fill_time"` // 分钟精度的本地时间
}

// IsBuy 是否为买入成交
func (f Fill) IsBuy() bool {
	return f.Side == SideBuy
}

// FillKey 成交去重键
type FillKey struct {
	Account string
	OrderID int64
}

// Key 返回成交的去重键
func (f Fill) Key() FillKey {
	return FillKey{Account: f.Account, OrderID: f.OrderID}
}
