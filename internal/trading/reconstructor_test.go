package trading

import (
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/life2you_mini/tradestats/internal/model"
)

const testMultiplier = 50.0

var baseTime = time.Date(2024, 2, 3, 9, 30, 0, 0, time.UTC)

func mkFill(id int64, side model.Side, qty, price float64, minute int) model.Fill {
	return model.Fill{
		Account:  "ACC1",
		OrderID:  id,
		Side:     side,
		Symbol:   "ESM5",
		Quantity: decimal.NewFromFloat(qty),
		Price:    decimal.NewFromFloat(price),
		FillTime: baseTime.Add(time.Duration(minute) * time.Minute),
	}
}

func newTestReconstructor(t *testing.T) *Reconstructor {
	return NewReconstructor(FixedContractValue(testMultiplier), zaptest.NewLogger(t))
}

func TestReconstruct_SingleWinningTrade(t *testing.T) {
	rc := newTestReconstructor(t)

	res := rc.Reconstruct([]model.Fill{
		mkFill(1, model.SideBuy, 1, 100, 0),
		mkFill(2, model.SideSell, 1, 105, 5),
	})

	require.Len(t, res.Trades, 1)
	trade := res.Trades[0]
	assert.True(t, trade.EntryIsLong)
	assert.InDelta(t, (105-100)*testMultiplier, trade.TradeAmount, 1e-9)
	assert.InDelta(t, 1.0, trade.MaxTradeSize, 1e-9)
	assert.InDelta(t, 5.0, trade.TradePoints, 1e-9)
	assert.Equal(t, baseTime, trade.EntryTime)
	assert.Equal(t, baseTime.Add(5*time.Minute), trade.ExitTime)

	assert.Equal(t, 1, res.Streak.Streak)
	assert.Equal(t, 1, res.Streak.BestStreak)
	assert.Nil(t, res.Open)
	assert.Equal(t, 1, res.WinningTrades)
	assert.Equal(t, 1, res.LongWins)
}

func TestReconstruct_SingleLosingTrade(t *testing.T) {
	rc := newTestReconstructor(t)

	res := rc.Reconstruct([]model.Fill{
		mkFill(1, model.SideBuy, 1, 100, 0),
		mkFill(2, model.SideSell, 1, 95, 5),
	})

	require.Len(t, res.Trades, 1)
	assert.InDelta(t, -5*testMultiplier, res.Trades[0].TradeAmount, 1e-9)
	assert.Equal(t, -1, res.Streak.Streak)
	assert.Equal(t, -1, res.Streak.WorstStreak)
	assert.Equal(t, 1, res.Streak.LongLosses)
	assert.Equal(t, 0, res.WinningTrades)
	assert.InDelta(t, -250.0, res.MaxRealizedDrawdown, 1e-9)
}

func TestReconstruct_ConsecutiveLosses(t *testing.T) {
	tests := []struct {
		name          string
		fills         []model.Fill
		expectedStart time.Time
	}{
		{
			name: "先盈利后两笔亏损-从盈利平仓开始计时",
			fills: []model.Fill{
				mkFill(1, model.SideBuy, 1, 100, 0),
				mkFill(2, model.SideSell, 1, 102, 3),
				mkFill(3, model.SideSell, 1, 102, 10),
				mkFill(4, model.SideBuy, 1, 104, 12),
				mkFill(5, model.SideBuy, 1, 104, 20),
				mkFill(6, model.SideSell, 1, 101, 25),
			},
			expectedStart: baseTime.Add(3 * time.Minute),
		},
		{
			name: "没有盈利-从账户首笔开仓开始计时",
			fills: []model.Fill{
				mkFill(1, model.SideSell, 1, 100, 1),
				mkFill(2, model.SideBuy, 1, 101, 4),
				mkFill(3, model.SideBuy, 1, 101, 8),
				mkFill(4, model.SideSell, 1, 99, 15),
			},
			expectedStart: baseTime.Add(1 * time.Minute),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newTestReconstructor(t).Reconstruct(tt.fills)
			s := res.Streak
			assert.Equal(t, -2, s.Streak)
			assert.Equal(t, -2, s.WorstStreak)
			require.NotNil(t, s.StreakStartTime)
			assert.Equal(t, tt.expectedStart, *s.StreakStartTime)
			require.NotNil(t, s.StreakLastTradeTime)
			assert.Equal(t, tt.fills[len(tt.fills)-2].FillTime, *s.StreakLastTradeTime)
		})
	}
}

func TestReconstruct_ScaleInMaxSize(t *testing.T) {
	rc := newTestReconstructor(t)

	// 买1, 买2, 卖1, 买1, 卖3：最大净头寸为3，平仓时买入数量为4
	res := rc.Reconstruct([]model.Fill{
		mkFill(10, model.SideBuy, 1, 100, 0),
		mkFill(11, model.SideBuy, 2, 99, 1),
		mkFill(12, model.SideSell, 1, 101, 2),
		mkFill(13, model.SideBuy, 1, 100, 3),
		mkFill(14, model.SideSell, 3, 102, 4),
	})

	require.Len(t, res.Trades, 1)
	trade := res.Trades[0]
	assert.InDelta(t, 3.0, trade.MaxTradeSize, 1e-9)
	// 卖出 101 + 306 = 407，买入 100 + 198 + 100 = 398
	assert.InDelta(t, 9*testMultiplier, trade.TradeAmount, 1e-9)
	assert.InDelta(t, 3.0, trade.TradePoints, 1e-9)
	assert.Equal(t, 3, trade.EntryFills)
	assert.Equal(t, 1, res.WinScaledCount)
	assert.Equal(t, 5, trade.FillCount)
}

func TestReconstruct_OrderingInvariance(t *testing.T) {
	fills := []model.Fill{
		mkFill(1, model.SideBuy, 2, 100, 0),
		mkFill(2, model.SideSell, 1, 101, 0),
		mkFill(3, model.SideSell, 1, 99, 0),
		mkFill(4, model.SideSell, 1, 99.5, 1),
		mkFill(5, model.SideBuy, 1, 98.25, 1),
		mkFill(6, model.SideBuy, 3, 97, 0), // 分钟时间倒序
		mkFill(7, model.SideSell, 3, 98, 2),
		mkFill(8, model.SideBuy, 1, 98, 3),
	}

	rc := newTestReconstructor(t)
	expected := rc.Reconstruct(fills)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 20; i++ {
		shuffled := make([]model.Fill, len(fills))
		copy(shuffled, fills)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := rc.Reconstruct(shuffled)
		assert.Equal(t, expected.Trades, got.Trades)
		assert.Equal(t, expected.Streak.Streak, got.Streak.Streak)
		assert.Equal(t, expected.Open, got.Open)
		assert.InDelta(t, expected.TotalProfitOrLoss, got.TotalProfitOrLoss, 1e-9)
	}
}

func TestReconstruct_FlatPositionCompleteness(t *testing.T) {
	tests := []struct {
		name  string
		fills []model.Fill
	}{
		{
			name: "全部平仓",
			fills: []model.Fill{
				mkFill(1, model.SideBuy, 1, 100, 0),
				mkFill(2, model.SideSell, 1, 101, 1),
			},
		},
		{
			name: "最后留有多头",
			fills: []model.Fill{
				mkFill(1, model.SideBuy, 1, 100, 0),
				mkFill(2, model.SideSell, 1, 101, 1),
				mkFill(3, model.SideBuy, 2, 100, 2),
				mkFill(4, model.SideSell, 1, 100, 3),
			},
		},
		{
			name: "最后留有空头",
			fills: []model.Fill{
				mkFill(1, model.SideSell, 3, 100, 0),
				mkFill(2, model.SideBuy, 1, 99, 1),
			},
		},
		{
			name: "只有单边成交",
			fills: []model.Fill{
				mkFill(1, model.SideBuy, 1, 100, 0),
				mkFill(2, model.SideBuy, 1, 100, 1),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := newTestReconstructor(t).Reconstruct(tt.fills)

			expectedNet := 0.0
			for _, f := range tt.fills {
				q, _ := f.Quantity.Float64()
				if f.IsBuy() {
					expectedNet += q
				} else {
					expectedNet -= q
				}
			}

			// 已完成交易的净流量为0，剩余净头寸必须等于所有成交的净额
			openNet := 0.0
			if res.Open != nil {
				openNet = res.Open.NetQuantity
			}
			assert.InDelta(t, expectedNet, openNet, 1e-9)
			assert.InDelta(t, expectedNet, res.TotalBuyQuantity-res.TotalSellQuantity, 1e-9)
		})
	}
}

func TestReconstruct_OpenPositionAndIdleTime(t *testing.T) {
	rc := newTestReconstructor(t)

	res := rc.Reconstruct([]model.Fill{
		mkFill(1, model.SideBuy, 1, 100, 0),
		mkFill(2, model.SideSell, 1, 101, 2),
		mkFill(3, model.SideSell, 2, 101, 10),
	})

	require.NotNil(t, res.Open)
	assert.False(t, res.Open.EntryIsLong)
	assert.Equal(t, baseTime.Add(10*time.Minute), res.Open.EntryTime)
	assert.InDelta(t, 2.0, res.Open.Size(), 1e-9)
	assert.Equal(t, 2, res.OpenPositionSize())
	require.Len(t, res.TimeBetweenTrades, 1)
	assert.Equal(t, 8*time.Minute, res.TimeBetweenTrades[0])
}

func TestReconstruct_Breakeven(t *testing.T) {
	res := newTestReconstructor(t).Reconstruct([]model.Fill{
		mkFill(1, model.SideBuy, 1, 100, 0),
		mkFill(2, model.SideSell, 1, 100, 2),
	})

	require.Len(t, res.Trades, 1)
	assert.False(t, res.Trades[0].IsWin())
	assert.Equal(t, -1, res.Streak.Streak)
}

func TestReconstruct_PeakAndDrawdown(t *testing.T) {
	res := newTestReconstructor(t).Reconstruct([]model.Fill{
		mkFill(1, model.SideBuy, 1, 100, 0),
		mkFill(2, model.SideSell, 1, 110, 1), // +500
		mkFill(3, model.SideBuy, 1, 100, 2),
		mkFill(4, model.SideSell, 1, 80, 3), // -1000, 累计 -500
		mkFill(5, model.SideSell, 1, 100, 4),
		mkFill(6, model.SideBuy, 1, 96, 5), // +200, 累计 -300
	})

	assert.InDelta(t, -300.0, res.TotalProfitOrLoss, 1e-9)
	assert.InDelta(t, 500.0, res.MaxRealizedProfit, 1e-9)
	assert.Equal(t, baseTime.Add(1*time.Minute), res.MaxRealizedProfitTime)
	assert.InDelta(t, -500.0, res.MaxRealizedDrawdown, 1e-9)
	assert.Equal(t, baseTime.Add(3*time.Minute), res.MaxRealizedDrawdownTime)
	assert.Equal(t, 1, res.ShortTrades)
	assert.Equal(t, 2, res.LongTrades)
}

func TestReconstruct_Empty(t *testing.T) {
	res := newTestReconstructor(t).Reconstruct(nil)
	assert.Empty(t, res.Trades)
	assert.Nil(t, res.Open)
	assert.Equal(t, 0, res.CompletedTrades)
}
