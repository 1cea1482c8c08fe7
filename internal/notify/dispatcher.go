package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/life2you_mini/tradestats/internal/metrics"
	"github.com/life2you_mini/tradestats/internal/model"
)

// SharedThrottle 跨进程共享的节流，一般是 *redis.QueueService
type SharedThrottle interface {
	AllowOnce(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// Dispatcher 异步投递告警，投递前按最小重复间隔节流
type Dispatcher struct {
	logger    *zap.Logger
	sinks     []Sink
	throttler *Throttler
	shared    SharedThrottle
	metrics   *metrics.Collector
	timeout   time.Duration
	wg        sync.WaitGroup
}

// Option Dispatcher 选项
type Option func(*Dispatcher)

// WithSharedThrottle 在本地节流之后再使用共享节流
func WithSharedThrottle(shared SharedThrottle) Option {
	return func(d *Dispatcher) { d.shared = shared }
}

// WithMetrics 记录投递指标
func WithMetrics(collector *metrics.Collector) Option {
	return func(d *Dispatcher) { d.metrics = collector }
}

// WithTimeout 单批投递的超时时间
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = timeout }
}

// NewDispatcher 创建投递器
func NewDispatcher(logger *zap.Logger, sinks []Sink, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		logger:    logger.With(zap.String("component", "dispatcher")),
		sinks:     sinks,
		throttler: NewThrottler(),
		timeout:   10 * time.Second,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Throttler 返回本地节流器
func (d *Dispatcher) Throttler() *Throttler {
	return d.throttler
}

// Dispatch 在后台 goroutine 中投递一批告警，不等待结果
func (d *Dispatcher) Dispatch(alerts []model.AlertMessage) {
	if len(alerts) == 0 || len(d.sinks) == 0 {
		return
	}
	batch := make([]model.AlertMessage, len(alerts))
	copy(batch, alerts)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		d.deliver(ctx, batch)
	}()
}

// Wait 等待所有已提交的批次完成
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, batch []model.AlertMessage) {
	for _, msg := range batch {
		if !d.allow(ctx, msg) {
			d.metrics.IncThrottled()
			continue
		}
		for _, sink := range d.sinks {
			err := sink.Deliver(ctx, msg)
			d.metrics.IncDelivered(sink.Name(), err)
			if err != nil {
				d.logger.Warn("告警投递失败",
					zap.String("sink", sink.Name()),
					zap.String("account", msg.Account),
					zap.String("message", msg.Message),
					zap.Error(err),
				)
			}
		}
	}
}

func (d *Dispatcher) allow(ctx context.Context, msg model.AlertMessage) bool {
	if !d.throttler.Allow(msg) {
		return false
	}
	if d.shared == nil || msg.MinIntervalSecs <= 0 {
		return true
	}
	ok, err := d.shared.AllowOnce(ctx, msg.ThrottleKey(), time.Duration(msg.MinIntervalSecs)*time.Second)
	if err != nil {
		// 共享节流不可用时按本地节流结果投递
		d.logger.Warn("共享节流检查失败", zap.String("account", msg.Account), zap.Error(err))
		return true
	}
	return ok
}
