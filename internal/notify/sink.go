package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/life2you_mini/tradestats/internal/model"
)

// Sink 告警投递方
type Sink interface {
	Name() string
	Deliver(ctx context.Context, msg model.AlertMessage) error
}

// LogSink 把告警写入日志
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink 创建日志投递方
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger.With(zap.String("component", "alert_log"))}
}

// Name 投递方名称
func (s *LogSink) Name() string { return "log" }

// Deliver 按严重程度选择日志级别
func (s *LogSink) Deliver(_ context.Context, msg model.AlertMessage) error {
	fields := []zap.Field{
		zap.String("account", msg.Account),
		zap.String("level", msg.Level.String()),
		zap.String("extra", msg.ExtraMsg),
		zap.Int("duration_secs", msg.DurationSecs),
	}
	switch {
	case msg.Level >= model.LevelWarning:
		s.logger.Warn(msg.Message, fields...)
	default:
		s.logger.Info(msg.Message, fields...)
	}
	return nil
}

// QueuePusher 告警队列，一般是 *redis.QueueService
type QueuePusher interface {
	PushTask(ctx context.Context, queue string, task interface{}) error
	PushTaskWithPriority(ctx context.Context, queue string, task interface{}, priority float64) error
}

// RedisQueueSink 把告警推送到Redis队列，由外部展示程序消费
type RedisQueueSink struct {
	queue    QueuePusher
	name     string
	priority bool
}

// NewRedisQueueSink 创建队列投递方；priority 为 true 时按严重程度写入优先级队列
func NewRedisQueueSink(queue QueuePusher, name string, priority bool) *RedisQueueSink {
	return &RedisQueueSink{
		queue:    queue,
		name:     name,
		priority: priority,
	}
}

// Name 投递方名称
func (s *RedisQueueSink) Name() string { return "redis" }

// Deliver 推送告警
func (s *RedisQueueSink) Deliver(ctx context.Context, msg model.AlertMessage) error {
	var err error
	if s.priority {
		err = s.queue.PushTaskWithPriority(ctx, s.name, msg, float64(msg.Level))
	} else {
		err = s.queue.PushTask(ctx, s.name, msg)
	}
	if err != nil {
		return fmt.Errorf("推送告警到队列 %s 失败: %w", s.name, err)
	}
	return nil
}
