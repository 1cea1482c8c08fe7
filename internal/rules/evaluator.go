package rules

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/life2you_mini/tradestats/internal/model"
)

// Match 命中的规则
type Match struct {
	ID           string             `json:"id"`
	Group        string             `json:"group"`
	Message      string             `json:"message"`
	ExtraMessage string             `json:"extra_message"`
	Level        model.ConcernLevel `json:"level"`
	ThrottleSecs int                `json:"throttle_secs"`
}

// Options 求值选项
type Options struct {
	StrictEnabled bool
}

type compiledCondition struct {
	Condition
	expr  *Expr
	level model.ConcernLevel
}

// Evaluator 预编译规则集，按组求值
type Evaluator struct {
	logger     *zap.Logger
	opts       Options
	conditions []compiledCondition
}

// NewEvaluator 编译规则集中的表达式；编译失败的规则记录警告，求值时视为不命中
func NewEvaluator(rs *RuleSet, logger *zap.Logger, opts Options) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := &Evaluator{
		logger: logger.With(zap.String("component", "rules")),
		opts:   opts,
	}
	if rs == nil {
		return e
	}

	for _, c := range rs.Conditions {
		cc := compiledCondition{Condition: c}

		level, ok := model.ParseConcernLevel(c.Level)
		if !ok {
			e.logger.Warn("未知的告警级别，使用DEFAULT",
				zap.String("id", c.ID),
				zap.String("level", c.Level),
			)
		}
		cc.level = level

		if c.When != "" {
			expr, err := Compile(c.When)
			if err != nil {
				e.logger.Warn("规则表达式编译失败",
					zap.String("id", c.ID),
					zap.String("when", c.When),
					zap.Error(err),
				)
			}
			cc.expr = expr
		}
		e.conditions = append(e.conditions, cc)
	}
	return e
}

// Len 规则数量
func (e *Evaluator) Len() int {
	return len(e.conditions)
}

// Evaluate 按声明顺序求值，每组只取第一条命中的规则
func (e *Evaluator) Evaluate(ctx Context) []Match {
	matches := make([]Match, 0)
	seenGroups := make(map[string]bool)

	for _, c := range e.conditions {
		if !c.IsEnabled(EnabledOptions{Strict: e.opts.StrictEnabled}) {
			continue
		}
		if seenGroups[c.Group] {
			continue
		}
		if c.When == "" || c.expr == nil {
			continue
		}

		ok, err := evalCondition(c.expr, ctx)
		if err != nil {
			e.logger.Warn("规则表达式求值失败",
				zap.String("id", c.ID),
				zap.String("when", c.When),
				zap.Error(err),
			)
			continue
		}
		if !ok {
			continue
		}

		seenGroups[c.Group] = true
		matches = append(matches, Match{
			ID:           c.ID,
			Group:        c.Group,
			Message:      c.Message,
			ExtraMessage: c.ExtraMessage,
			Level:        c.level,
			ThrottleSecs: c.ThrottleSecs,
		})
	}
	return matches
}

// evalCondition 单条规则的 panic 视为求值失败，不影响其他规则
func evalCondition(expr *Expr, ctx Context) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("规则求值panic: %v", r)
		}
	}()
	return expr.EvalBool(ctx)
}
