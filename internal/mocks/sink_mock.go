package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/life2you_mini/tradestats/internal/model"
)

// MockSink 告警投递方的模拟实现
type MockSink struct {
	mock.Mock
}

// Name 投递方名称的模拟实现
func (m *MockSink) Name() string {
	args := m.Called()
	return args.String(0)
}

// Deliver 投递告警的模拟实现
func (m *MockSink) Deliver(ctx context.Context, msg model.AlertMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
