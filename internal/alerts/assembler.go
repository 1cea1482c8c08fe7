package alerts

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/life2you_mini/tradestats/internal/config"
	"github.com/life2you_mini/tradestats/internal/metrics"
	"github.com/life2you_mini/tradestats/internal/model"
	"github.com/life2you_mini/tradestats/internal/rules"
	"github.com/life2you_mini/tradestats/internal/stats"
)

// MatchSource 规则求值来源，一般是 *rules.Manager
type MatchSource interface {
	Evaluate(ctx rules.Context) ([]rules.Match, error)
}

// Assembler 把规则命中转换为可节流的告警消息
type Assembler struct {
	logger  *zap.Logger
	cfg     config.AlertsConfig
	source  MatchSource
	metrics *metrics.Collector
}

// NewAssembler 创建告警组装器；source 为 nil 时只使用内置规则
func NewAssembler(cfg config.AlertsConfig, source MatchSource, collector *metrics.Collector, logger *zap.Logger) *Assembler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{
		logger:  logger.With(zap.String("component", "alerts")),
		cfg:     cfg,
		source:  source,
		metrics: collector,
	}
}

// Assemble 生成单个账户的告警，按严重程度降序（同级保持规则顺序）
func (a *Assembler) Assemble(account string, ctx *stats.Context) []model.AlertMessage {
	if ctx == nil {
		return nil
	}
	fields := ctx.Fields()

	matches := a.matches(account, ctx, fields)
	alerts := make([]model.AlertMessage, 0, len(matches)+1)
	for _, m := range matches {
		if m.Message == "" {
			continue
		}
		alerts = append(alerts, a.newMessage(account, m.Message, m.Level, Render(m.ExtraMessage, fields), m.ThrottleSecs))
	}

	if notice := a.cfg.OpenTradeNoticeMins; notice > 0 && ctx.OpenDurationMins >= notice {
		alerts = append(alerts, a.newMessage(account,
			fmt.Sprintf("Trade open for > %d mins", notice),
			model.LevelCaution,
			fmt.Sprintf("%d mins", ctx.OpenDurationMins),
			0,
		))
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		return alerts[i].Level > alerts[j].Level
	})

	for _, alert := range alerts {
		a.metrics.IncAlert(alert.Level)
	}
	return alerts
}

func (a *Assembler) newMessage(account, message string, level model.ConcernLevel, extra string, throttleSecs int) model.AlertMessage {
	minInterval := a.cfg.MinInterval(level)
	if throttleSecs > 0 {
		minInterval = throttleSecs
	}
	return model.AlertMessage{
		Message:         message,
		Account:         account,
		DurationSecs:    a.cfg.Duration(level),
		MinIntervalSecs: minInterval,
		Level:           level,
		ExtraMsg:        extra,
	}
}

// matches 规则来源不可用或失败时回退到内置规则
func (a *Assembler) matches(account string, ctx *stats.Context, fields map[string]any) []rules.Match {
	if a.source == nil {
		return LegacyMatches(ctx)
	}

	matches, err := a.evaluate(fields)
	if err != nil {
		reason := "error"
		var pe *panicError
		if errors.As(err, &pe) {
			reason = "panic"
		}
		a.logger.Warn("规则求值失败，使用内置规则",
			zap.String("account", account),
			zap.String("reason", reason),
			zap.Error(err),
		)
		a.metrics.IncFallback(reason)
		return LegacyMatches(ctx)
	}
	return matches
}

type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("规则求值panic: %v", e.value)
}

func (a *Assembler) evaluate(fields map[string]any) (matches []rules.Match, err error) {
	defer func() {
		if r := recover(); r != nil {
			matches = nil
			err = &panicError{value: r}
		}
	}()
	return a.source.Evaluate(rules.Context(fields))
}
