package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// PathFunc 每次刷新前重新获取日志文件列表
type PathFunc func() ([]string, error)

// StaticPaths 固定的文件列表
func StaticPaths(paths ...string) PathFunc {
	return func() ([]string, error) {
		return paths, nil
	}
}

// Runner 定时或按需触发刷新
type Runner struct {
	ctx       context.Context
	cancel    context.CancelFunc
	logger    *zap.Logger
	processor *Processor
	paths     PathFunc
	interval  time.Duration
	trigger   chan struct{}
	onRefresh func(*Results)

	wg        sync.WaitGroup
	mutex     sync.Mutex
	isRunning bool
}

// NewRunner 创建刷新调度器
func NewRunner(processor *Processor, paths PathFunc, interval time.Duration, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Runner{
		logger:    logger.With(zap.String("component", "runner")),
		processor: processor,
		paths:     paths,
		interval:  interval,
		trigger:   make(chan struct{}, 1),
	}
}

// OnRefresh 每次刷新成功后回调，需在 Start 之前设置
func (r *Runner) OnRefresh(fn func(*Results)) {
	r.onRefresh = fn
}

// Start 启动调度，启动后立即刷新一次
func (r *Runner) Start(parent context.Context) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if r.isRunning {
		return fmt.Errorf("刷新调度器已在运行")
	}

	r.logger.Info("启动刷新调度器", zap.Duration("interval", r.interval))
	r.ctx, r.cancel = context.WithCancel(parent)
	r.isRunning = true

	r.wg.Add(1)
	go r.loop()

	return nil
}

// Stop 停止调度，最多等待5秒
func (r *Runner) Stop() error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if !r.isRunning {
		return nil
	}

	r.logger.Info("停止刷新调度器")
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("刷新调度器已停止")
	case <-time.After(5 * time.Second):
		r.logger.Warn("刷新调度器停止超时")
	}

	r.isRunning = false
	return nil
}

// Trigger 请求立即刷新；已有待处理的请求时合并
func (r *Runner) Trigger() {
	select {
	case r.trigger <- struct{}{}:
	default:
	}
}

func (r *Runner) loop() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.runOnce()
	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.runOnce()
		case <-r.trigger:
			r.runOnce()
		}
	}
}

func (r *Runner) runOnce() {
	paths, err := r.paths()
	if err != nil {
		r.logger.Warn("获取日志文件失败", zap.Error(err))
		return
	}
	if len(paths) == 0 {
		r.logger.Debug("没有可用的日志文件")
		return
	}

	res, err := r.processor.Refresh(r.ctx, paths)
	if err != nil {
		// Processor 已记录错误
		return
	}
	if r.onRefresh != nil {
		r.onRefresh(res)
	}
}
