package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/life2you_mini/tradestats/internal/model"
)

// QueueSource 告警队列的消费端，一般是 *redis.QueueService
type QueueSource interface {
	PopTaskWithPriority(ctx context.Context, queue string) ([]byte, error)
	PopTask(ctx context.Context, queue string, timeout time.Duration) ([]byte, error)
}

// Drain 先取优先级队列，再取普通队列，直到两者都为空；返回处理的告警条数
func Drain(ctx context.Context, src QueueSource, queue string, wait time.Duration, handle func(model.AlertMessage) error) (int, error) {
	n := 0
	for {
		if err := ctx.Err(); err != nil {
			return n, err
		}

		data, err := src.PopTaskWithPriority(ctx, queue)
		if err != nil {
			return n, fmt.Errorf("读取优先级队列失败: %w", err)
		}
		if data == nil {
			data, err = src.PopTask(ctx, queue, wait)
			if err != nil {
				return n, fmt.Errorf("读取告警队列失败: %w", err)
			}
		}
		if data == nil {
			return n, nil
		}

		var msg model.AlertMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return n, fmt.Errorf("解析告警消息失败: %w", err)
		}
		if err := handle(msg); err != nil {
			return n, err
		}
		n++
	}
}
