package trading

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/life2you_mini/tradestats/internal/model"
)

// ContractValuer 按合约代码提供每点价值（合约乘数）
type ContractValuer interface {
	ContractValue(symbol string) float64
}

// FixedContractValue 所有合约使用同一乘数
type FixedContractValue float64

// ContractValue 实现 ContractValuer
func (v FixedContractValue) ContractValue(string) float64 {
	return float64(v)
}

// OpenPosition 未平仓头寸
type OpenPosition struct {
	Symbol      string    `json:"symbol"`
	EntryIsLong bool      `json:"entry_is_long"`
	EntryTime   time.Time `json:"entry_time"`
	NetQuantity float64   `json:"net_quantity"` // 买入数量 - 卖出数量
	Fills       int       `json:"fills"`
}

// Size 未平仓绝对数量
func (o *OpenPosition) Size() float64 {
	if o.NetQuantity < 0 {
		return -o.NetQuantity
	}
	return o.NetQuantity
}

// Result 单个账户的交易重建结果和累计统计
type Result struct {
	Trades []model.Trade
	Streak *Streak

	CompletedTrades int
	LongTrades      int
	ShortTrades     int
	WinningTrades   int
	LongWins        int

	LongGains   []float64
	ShortGains  []float64
	LongLosses  []float64
	ShortLosses []float64

	TotalProfitOrLoss       float64
	MaxRealizedDrawdown     float64 // 累计盈亏的最低点（<=0）
	MaxRealizedDrawdownTime time.Time
	MaxRealizedProfit       float64 // 累计盈亏的最高点（>=0）
	MaxRealizedProfitTime   time.Time

	LossMaxSize     float64
	WinMaxSize      float64
	LossPoints      []float64
	WinPoints       []float64
	LossScaledCount int
	WinScaledCount  int

	WinDurations      []time.Duration
	LossDurations     []time.Duration
	TimeBetweenTrades []time.Duration

	TotalBuys          int
	TotalSells         int
	TotalBuyContracts  int
	TotalSellContracts int
	TotalBuyQuantity   float64
	TotalSellQuantity  float64

	FirstEntryTime time.Time
	LastExitTime   time.Time

	Open *OpenPosition
}

// OpenPositionSize 买入合约数与卖出合约数之差的绝对值
func (r *Result) OpenPositionSize() int {
	diff := r.TotalBuyContracts - r.TotalSellContracts
	if diff < 0 {
		return -diff
	}
	return diff
}

// accumulator 当前未完成交易的累计
type accumulator struct {
	fills       []model.Fill
	buyQty      decimal.Decimal
	buyValue    decimal.Decimal
	sellQty     decimal.Decimal
	sellValue   decimal.Decimal
	buyFills    int
	sellFills   int
	entryIsLong bool
	entryTime   time.Time
	maxTime     time.Time
}

func (a *accumulator) empty() bool {
	return len(a.fills) == 0
}

func (a *accumulator) add(f model.Fill) {
	if a.empty() {
		a.entryIsLong = f.IsBuy()
		a.entryTime = f.FillTime
	}
	a.fills = append(a.fills, f)

	value := f.Quantity.Mul(f.Price)
	if f.IsBuy() {
		a.buyQty = a.buyQty.Add(f.Quantity)
		a.buyValue = a.buyValue.Add(value)
		a.buyFills++
	} else {
		a.sellQty = a.sellQty.Add(f.Quantity)
		a.sellValue = a.sellValue.Add(value)
		a.sellFills++
	}
	if f.FillTime.After(a.maxTime) {
		a.maxTime = f.FillTime
	}
}

func (a *accumulator) complete() bool {
	return a.buyFills > 0 && a.sellFills > 0 && a.buyQty.Equal(a.sellQty)
}

func (a *accumulator) entryFills() int {
	if a.entryIsLong {
		return a.buyFills
	}
	return a.sellFills
}

// maxQuantity 按订单号顺序回放成交，返回过程中的最大绝对净头寸
func (a *accumulator) maxQuantity() decimal.Decimal {
	current := decimal.Zero
	maxAbs := decimal.Zero
	for _, f := range a.fills {
		if f.IsBuy() {
			current = current.Add(f.Quantity)
		} else {
			current = current.Sub(f.Quantity)
		}
		if current.Abs().GreaterThan(maxAbs) {
			maxAbs = current.Abs()
		}
	}
	return maxAbs
}

func (a *accumulator) reset() {
	*a = accumulator{}
}

// Reconstructor 把单个账户的成交重建为往返交易
type Reconstructor struct {
	logger    *zap.Logger
	contracts ContractValuer
}

// NewReconstructor 创建交易重建器
func NewReconstructor(contracts ContractValuer, logger *zap.Logger) *Reconstructor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconstructor{
		logger:    logger.With(zap.String("component", "reconstructor")),
		contracts: contracts,
	}
}

// Reconstruct 按订单号升序处理成交；输入切片不会被修改
func (rc *Reconstructor) Reconstruct(fills []model.Fill) *Result {
	sorted := make([]model.Fill, len(fills))
	copy(sorted, fills)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OrderID < sorted[j].OrderID
	})

	res := &Result{
		Trades: make([]model.Trade, 0),
		Streak: NewStreak(),
	}

	var acc accumulator
	for _, f := range sorted {
		if acc.empty() {
			if res.FirstEntryTime.IsZero() || f.FillTime.Before(res.FirstEntryTime) {
				res.FirstEntryTime = f.FillTime
			}
			if res.CompletedTrades > 0 {
				res.TimeBetweenTrades = append(res.TimeBetweenTrades, f.FillTime.Sub(res.LastExitTime))
			}
		}
		acc.add(f)

		qty, _ := f.Quantity.Float64()
		if f.IsBuy() {
			res.TotalBuys++
			res.TotalBuyContracts += int(f.Quantity.IntPart())
			res.TotalBuyQuantity += qty
		} else {
			res.TotalSells++
			res.TotalSellContracts += int(f.Quantity.IntPart())
			res.TotalSellQuantity += qty
		}

		if acc.complete() {
			rc.completeTrade(res, &acc, f.Symbol)
			acc.reset()
		}
	}

	if !acc.empty() {
		net, _ := acc.buyQty.Sub(acc.sellQty).Float64()
		res.Open = &OpenPosition{
			Symbol:      acc.fills[0].Symbol,
			EntryIsLong: acc.entryIsLong,
			EntryTime:   acc.entryTime,
			NetQuantity: net,
			Fills:       len(acc.fills),
		}
	}

	rc.logger.Debug("交易重建完成",
		zap.Int("fills", len(fills)),
		zap.Int("trades", res.CompletedTrades),
		zap.Bool("open", res.Open != nil),
	)
	return res
}

func (rc *Reconstructor) completeTrade(res *Result, acc *accumulator, symbol string) {
	contractValue := decimal.NewFromFloat(rc.contracts.ContractValue(symbol))
	amount, _ := acc.sellValue.Sub(acc.buyValue).Mul(contractValue).Float64()
	size, _ := acc.maxQuantity().Float64()

	points := 0.0
	if divisor := size * contractValue.InexactFloat64(); divisor != 0 {
		points = amount / divisor
	}

	trade := model.Trade{
		Symbol:       symbol,
		EntryIsLong:  acc.entryIsLong,
		EntryTime:    acc.entryTime,
		ExitTime:     acc.maxTime,
		MaxTradeSize: size,
		TradePoints:  points,
		TradeAmount:  amount,
		EntryFills:   acc.entryFills(),
		FillCount:    len(acc.fills),
	}

	res.CompletedTrades++
	res.TotalProfitOrLoss += amount
	res.LastExitTime = trade.ExitTime

	if res.TotalProfitOrLoss < res.MaxRealizedDrawdown {
		res.MaxRealizedDrawdown = res.TotalProfitOrLoss
		res.MaxRealizedDrawdownTime = trade.ExitTime
	}
	if res.TotalProfitOrLoss > res.MaxRealizedProfit {
		res.MaxRealizedProfit = res.TotalProfitOrLoss
		res.MaxRealizedProfitTime = trade.ExitTime
	}

	win := trade.IsWin()
	if win {
		res.WinningTrades++
		if trade.EntryIsLong {
			res.LongWins++
			res.LongGains = append(res.LongGains, amount)
		} else {
			res.ShortGains = append(res.ShortGains, amount)
		}
		if size > res.WinMaxSize {
			res.WinMaxSize = size
		}
		res.WinPoints = append(res.WinPoints, points)
		res.WinDurations = append(res.WinDurations, trade.Duration())
		if trade.IsScaled() {
			res.WinScaledCount++
		}
	} else {
		if trade.EntryIsLong {
			res.LongLosses = append(res.LongLosses, amount)
		} else {
			res.ShortLosses = append(res.ShortLosses, amount)
		}
		if size > res.LossMaxSize {
			res.LossMaxSize = size
		}
		res.LossPoints = append(res.LossPoints, points)
		res.LossDurations = append(res.LossDurations, trade.Duration())
		if trade.IsScaled() {
			res.LossScaledCount++
		}
	}

	if trade.EntryIsLong {
		res.LongTrades++
	} else {
		res.ShortTrades++
	}

	res.Streak.Process(TradeResult{
		IsWin:       win,
		EntryIsLong: trade.EntryIsLong,
		EntryTime:   trade.EntryTime,
		ExitTime:    trade.ExitTime,
		Size:        size,
		Points:      points,
	})
	res.Trades = append(res.Trades, trade)
}
