package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/life2you_mini/tradestats/internal/rules"
)

// MockMatchSource 规则求值来源的模拟实现
type MockMatchSource struct {
	mock.Mock
}

// Evaluate 规则求值的模拟实现
func (m *MockMatchSource) Evaluate(ctx rules.Context) ([]rules.Match, error) {
	args := m.Called(ctx)
	if fn, ok := args.Get(0).(func(rules.Context) []rules.Match); ok {
		return fn(ctx), args.Error(1)
	}
	var matches []rules.Match
	if v := args.Get(0); v != nil {
		matches = v.([]rules.Match)
	}
	return matches, args.Error(1)
}
