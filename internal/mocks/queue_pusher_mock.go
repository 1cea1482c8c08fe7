package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockQueuePusher 告警队列的模拟实现
type MockQueuePusher struct {
	mock.Mock
}

// PushTask 推送任务的模拟实现
func (m *MockQueuePusher) PushTask(ctx context.Context, queue string, task interface{}) error {
	args := m.Called(ctx, queue, task)
	return args.Error(0)
}

// PushTaskWithPriority 推送优先级任务的模拟实现
func (m *MockQueuePusher) PushTaskWithPriority(ctx context.Context, queue string, task interface{}, priority float64) error {
	args := m.Called(ctx, queue, task, priority)
	return args.Error(0)
}

// AllowOnce 共享节流的模拟实现
func (m *MockQueuePusher) AllowOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, ttl)
	return args.Bool(0), args.Error(1)
}
