package alerts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/life2you_mini/tradestats/internal/config"
	"github.com/life2you_mini/tradestats/internal/model"
	"github.com/life2you_mini/tradestats/internal/rules"
	"github.com/life2you_mini/tradestats/internal/stats"
	"github.com/life2you_mini/tradestats/internal/trading"
)

const shippedRules = "../../config/alert_rules.yaml"

func TestShippedRulesLoad(t *testing.T) {
	rs, err := rules.LoadRuleSet(shippedRules)
	require.NoError(t, err)
	assert.Equal(t, "alert_rules", rs.Name)
	assert.Len(t, rs.Conditions, 24)

	// 所有表达式都能编译，级别都能识别
	core, logs := observer.New(zap.WarnLevel)
	ev := rules.NewEvaluator(rs, zap.New(core), rules.Options{})
	assert.Equal(t, 24, ev.Len())
	assert.Zero(t, logs.Len())
}

func TestShippedRulesMatchBuiltin(t *testing.T) {
	logger := zaptest.NewLogger(t)
	cfg := config.GetDefaultConfig().Alerts
	manager := rules.NewManager(shippedRules, rules.Options{}, logger)

	fromFile := NewAssembler(cfg, manager, nil, logger)
	builtin := NewAssembler(cfg, nil, nil, logger)

	tests := []struct {
		name   string
		modify func(c *stats.Context)
	}{
		{"无命中", func(c *stats.Context) {}},
		{"交易次数和亏损", func(c *stats.Context) {
			c.CompletedTrades = 30
			c.TotalProfitOrLoss = -800
			c.ProfitFactor = 2
		}},
		{"盈利达标", func(c *stats.Context) {
			c.CompletedTrades = 20
			c.TotalProfitOrLoss = 1250
			c.WinRate = 60
			c.ProfitFactor = 2
		}},
		{"回撤", func(c *stats.Context) {
			c.CurrentDrawdown = -3500
			c.TotalProfitOrLoss = -1500
		}},
		{"胜率和盈亏比", func(c *stats.Context) {
			c.CompletedTrades = 12
			c.WinRate = 20
			c.ProfitFactor = 0.5
			c.DirectionalBiasExtraMsg = "Join the LONG."
		}},
		{"仓位", func(c *stats.Context) {
			c.CompletedTrades = 3
			c.LossMaxSize = 4
			c.ProfitFactor = 0.5
			c.LossScaledCount = 3
		}},
		{"连亏七笔", func(c *stats.Context) {
			c.Streak = &trading.Streak{Streak: -7, ShortLosses: 7}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := neutralContext()
			tt.modify(ctx)
			assert.Equal(t, builtin.Assemble("ACC1", ctx), fromFile.Assemble("ACC1", ctx))
		})
	}
}

func TestShippedRulesLosingStreakCaution(t *testing.T) {
	logger := zaptest.NewLogger(t)
	manager := rules.NewManager(shippedRules, rules.Options{}, logger)
	a := NewAssembler(config.GetDefaultConfig().Alerts, manager, nil, logger)

	ctx := neutralContext()
	ctx.Streak = &trading.Streak{Streak: -2, LongLosses: 1, ShortLosses: 1}

	alerts := a.Assemble("ACC1", ctx)
	require.Len(t, alerts, 1)
	assert.Equal(t, "Slow down. Consecutive losses.", alerts[0].Message)
	assert.Equal(t, "50% long", alerts[0].ExtraMsg)
	assert.Equal(t, model.LevelCaution, alerts[0].Level)
}
