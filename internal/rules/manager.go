package rules

import (
	"fmt"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Manager 管理规则文件、会话覆盖和已编译的求值器
type Manager struct {
	logger    *zap.Logger
	path      string
	opts      Options
	overrides *Overrides

	mu        sync.Mutex
	ruleSet   *RuleSet
	modTime   time.Time
	evaluator *Evaluator
	version   uint64 // 生成 evaluator 时的覆盖版本
}

// NewManager 创建规则管理器，首次求值时加载文件
func NewManager(path string, opts Options, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		logger:    logger.With(zap.String("component", "rules_manager")),
		path:      path,
		opts:      opts,
		overrides: NewOverrides(),
	}
}

// Overrides 会话覆盖
func (m *Manager) Overrides() *Overrides {
	return m.overrides
}

// Reload 强制重新读取规则文件
func (m *Manager) Reload() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load()
}

func (m *Manager) load() error {
	info, err := os.Stat(m.path)
	if err != nil {
		return fmt.Errorf("规则文件不可用: %w", err)
	}
	rs, err := LoadRuleSet(m.path)
	if err != nil {
		return err
	}
	m.ruleSet = rs
	m.modTime = info.ModTime()
	m.evaluator = nil

	m.logger.Info("规则文件已加载",
		zap.String("path", m.path),
		zap.String("name", rs.Name),
		zap.Int("conditions", len(rs.Conditions)),
	)
	return nil
}

// current 文件变化或覆盖变化时重建求值器
func (m *Manager) current() (*Evaluator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ruleSet == nil {
		if err := m.load(); err != nil {
			return nil, err
		}
	} else if info, err := os.Stat(m.path); err == nil && !info.ModTime().Equal(m.modTime) {
		if err := m.load(); err != nil {
			// 保留上一次成功加载的规则
			m.logger.Warn("重新加载规则文件失败", zap.Error(err))
		}
	}

	if version := m.overrides.Version(); m.evaluator == nil || version != m.version {
		m.evaluator = NewEvaluator(m.overrides.Apply(m.ruleSet), m.logger, m.opts)
		m.version = version
	}
	return m.evaluator, nil
}

// Evaluate 实现告警组装器的规则来源
func (m *Manager) Evaluate(ctx Context) ([]Match, error) {
	evaluator, err := m.current()
	if err != nil {
		return nil, err
	}
	return evaluator.Evaluate(ctx), nil
}
