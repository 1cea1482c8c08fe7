package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// RuleSet 一组按声明顺序排列的规则
type RuleSet struct {
	Name       string
	Conditions []Condition
}

// ParseRuleSet 从已解码的配置构建规则集，payload 形如 {"conditions": [...]}
func ParseRuleSet(name string, payload map[string]any) (*RuleSet, error) {
	rs := &RuleSet{Name: name, Conditions: make([]Condition, 0)}

	rawConditions, ok := payload["conditions"]
	if !ok || rawConditions == nil {
		return rs, nil
	}
	items, ok := rawConditions.([]any)
	if !ok {
		return nil, fmt.Errorf("规则集 %s 的 conditions 必须是列表", name)
	}

	for i, item := range items {
		raw, err := cast.ToStringMapE(item)
		if err != nil {
			return nil, fmt.Errorf("规则集 %s 第%d条规则格式错误: %w", name, i+1, err)
		}
		cond, err := DecodeCondition(raw)
		if err != nil {
			return nil, fmt.Errorf("规则集 %s: %w", name, err)
		}
		rs.Conditions = append(rs.Conditions, cond)
	}
	return rs, nil
}

// LoadRuleSet 读取 .json / .yaml / .yml 规则文件
func LoadRuleSet(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取规则文件失败: %w", err)
	}

	payload := make(map[string]any)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("解析JSON规则文件失败: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &payload); err != nil {
			return nil, fmt.Errorf("解析YAML规则文件失败: %w", err)
		}
	default:
		return nil, fmt.Errorf("不支持的规则文件格式: %s", ext)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return ParseRuleSet(name, payload)
}
