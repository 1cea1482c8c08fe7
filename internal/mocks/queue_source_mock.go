package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockQueueSource 告警队列消费端的模拟实现
type MockQueueSource struct {
	mock.Mock
}

// PopTaskWithPriority 弹出优先级任务的模拟实现
func (m *MockQueueSource) PopTaskWithPriority(ctx context.Context, queue string) ([]byte, error) {
	args := m.Called(ctx, queue)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// PopTask 弹出任务的模拟实现
func (m *MockQueueSource) PopTask(ctx context.Context, queue string, timeout time.Duration) ([]byte, error) {
	args := m.Called(ctx, queue, timeout)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
