package rules

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Condition 一条告警规则
type Condition struct {
	ID           string `json:"id" yaml:"id"`
	Group        string `json:"group" yaml:"group"`
	When         string `json:"when" yaml:"when"`
	Level        string `json:"level" yaml:"level"`
	Message      string `json:"message" yaml:"message"`
	ExtraMessage string `json:"extra_message" yaml:"extra_message"`
	ThrottleSecs int    `json:"throttle_secs" yaml:"throttle_secs"`

	// Enabled 保留原始值，解释规则见 IsEnabled
	Enabled any `json:"enabled,omitempty" yaml:"enabled,omitempty"`
}

// EnabledOptions 启用字段的解释方式
type EnabledOptions struct {
	// Strict 为 true 时 "false"/"0"/"no"/"off" 字符串视为禁用
	Strict bool
}

// IsEnabled 缺省视为启用；false、null、数值0、空字符串和空集合视为禁用；
// 非空字符串默认视为启用（包括 "false"）
func (c Condition) IsEnabled(opts EnabledOptions) bool {
	if c.Enabled == nil {
		return true
	}
	return enabledValue(c.Enabled, opts)
}

var strictFalseStrings = map[string]bool{
	"false": true,
	"0":     true,
	"no":    true,
	"off":   true,
}

func enabledValue(v any, opts EnabledOptions) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		if x == "" {
			return false
		}
		if opts.Strict && strictFalseStrings[strings.ToLower(strings.TrimSpace(x))] {
			return false
		}
		return true
	case []any:
		return len(x) > 0
	case map[string]any:
		return len(x) > 0
	}
	if f, err := cast.ToFloat64E(v); err == nil {
		return f != 0
	}
	return true
}

// DecodeCondition 从配置映射转换为规则；缺少 when 时由结构化字段生成表达式
func DecodeCondition(raw map[string]any) (Condition, error) {
	c := Condition{
		ID:           cast.ToString(raw["id"]),
		Group:        cast.ToString(raw["group"]),
		When:         strings.TrimSpace(cast.ToString(raw["when"])),
		Level:        cast.ToString(raw["level"]),
		Message:      cast.ToString(raw["message"]),
		ExtraMessage: cast.ToString(raw["extra_message"]),
	}
	if c.Level == "" {
		c.Level = "DEFAULT"
	}

	if v, ok := raw["throttle_secs"]; ok && v != nil {
		secs, err := cast.ToIntE(v)
		if err != nil {
			return Condition{}, fmt.Errorf("规则 %s 的 throttle_secs 无效: %w", c.ID, err)
		}
		c.ThrottleSecs = secs
	}

	if v, ok := raw["enabled"]; ok {
		if v == nil {
			// 显式 null 表示禁用，用 false 区分缺省
			c.Enabled = false
		} else {
			c.Enabled = v
		}
	}

	if c.When == "" {
		when, err := structuredExpression(c.ID, raw)
		if err != nil {
			return Condition{}, err
		}
		c.When = when
	}
	return c, nil
}

// structuredExpression 把 primary_field/operator/threshold 等结构化字段拼成表达式
func structuredExpression(id string, raw map[string]any) (string, error) {
	primary := cast.ToString(raw["primary_field"])
	operator := cast.ToString(raw["operator"])
	if primary == "" || operator == "" {
		return "", fmt.Errorf("规则 %s 需要 when 或结构化字段", id)
	}

	left := primary
	if cast.ToBool(raw["abs_value"]) {
		left = fmt.Sprintf("abs(%s)", primary)
	}

	right := cast.ToString(raw["comparison_field"])
	if right == "" {
		right = formatValue(raw["threshold"])
	}

	expressions := []string{fmt.Sprintf("%s %s %s", left, operator, right)}

	extras, _ := raw["additional_conditions"].([]any)
	for _, item := range extras {
		extra, err := cast.ToStringMapE(item)
		if err != nil {
			continue
		}
		field := cast.ToString(extra["field"])
		op := cast.ToString(extra["operator"])
		value, hasValue := extra["value"]
		if field == "" || op == "" || !hasValue || value == nil {
			continue
		}
		expressions = append(expressions, fmt.Sprintf("%s %s %s", field, op, formatValue(value)))
	}

	return strings.Join(expressions, " and "), nil
}

// formatValue 字符串加引号，布尔值写成 True/False
func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case string:
		return strconv.Quote(x)
	case bool:
		if x {
			return "True"
		}
		return "False"
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	}
	return cast.ToString(v)
}
