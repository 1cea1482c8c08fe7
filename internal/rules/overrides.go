package rules

import (
	"sync"
)

// ConditionPatch 会话内对单条规则的临时修改，nil 字段保持原值
type ConditionPatch struct {
	When         *string
	Level        *string
	Message      *string
	ExtraMessage *string
	ThrottleSecs *int
	Enabled      any
}

// Overrides 会话级规则覆盖，不写回文件
type Overrides struct {
	mu      sync.RWMutex
	patches map[string]ConditionPatch
	version uint64 // 每次修改递增
}

// NewOverrides 创建覆盖表
func NewOverrides() *Overrides {
	return &Overrides{patches: make(map[string]ConditionPatch)}
}

// Set 合并到已有覆盖
func (o *Overrides) Set(id string, patch ConditionPatch) {
	o.mu.Lock()
	defer o.mu.Unlock()

	existing := o.patches[id]
	if patch.When != nil {
		existing.When = patch.When
	}
	if patch.Level != nil {
		existing.Level = patch.Level
	}
	if patch.Message != nil {
		existing.Message = patch.Message
	}
	if patch.ExtraMessage != nil {
		existing.ExtraMessage = patch.ExtraMessage
	}
	if patch.ThrottleSecs != nil {
		existing.ThrottleSecs = patch.ThrottleSecs
	}
	if patch.Enabled != nil {
		existing.Enabled = patch.Enabled
	}
	o.patches[id] = existing
	o.version++
}

// Remove 删除单条规则的覆盖
func (o *Overrides) Remove(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.patches[id]; ok {
		delete(o.patches, id)
		o.version++
	}
}

// Clear 清空所有覆盖
func (o *Overrides) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.patches = make(map[string]ConditionPatch)
	o.version++
}

// Version 修改版本号，用于判断缓存是否失效
func (o *Overrides) Version() uint64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.version
}

// Len 覆盖条数
func (o *Overrides) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.patches)
}

// Apply 返回打过补丁的新规则集，原规则集不变
func (o *Overrides) Apply(rs *RuleSet) *RuleSet {
	if rs == nil {
		return nil
	}

	o.mu.RLock()
	defer o.mu.RUnlock()

	patched := &RuleSet{Name: rs.Name, Conditions: make([]Condition, 0, len(rs.Conditions))}
	for _, c := range rs.Conditions {
		if p, ok := o.patches[c.ID]; ok {
			if p.When != nil {
				c.When = *p.When
			}
			if p.Level != nil {
				c.Level = *p.Level
			}
			if p.Message != nil {
				c.Message = *p.Message
			}
			if p.ExtraMessage != nil {
				c.ExtraMessage = *p.ExtraMessage
			}
			if p.ThrottleSecs != nil {
				c.ThrottleSecs = *p.ThrottleSecs
			}
			if p.Enabled != nil {
				c.Enabled = p.Enabled
			}
		}
		patched.Conditions = append(patched.Conditions, c)
	}
	return patched
}
