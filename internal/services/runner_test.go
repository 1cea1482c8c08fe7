package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/life2you_mini/tradestats/internal/config"
)

func waitRefresh(t *testing.T, ch <-chan *Results) *Results {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("等待刷新超时")
		return nil
	}
}

func TestRunnerRefreshesOnStartAndTrigger(t *testing.T) {
	dir := t.TempDir()
	path := writeLog(t, dir, "log.txt", sampleLog())

	p := newTestProcessor(t, config.GetDefaultConfig())
	r := NewRunner(p, StaticPaths(path), time.Hour, zaptest.NewLogger(t))

	refreshed := make(chan *Results, 4)
	r.OnRefresh(func(res *Results) { refreshed <- res })

	require.NoError(t, r.Start(context.Background()))
	assert.Error(t, r.Start(context.Background()), "重复启动应报错")

	first := waitRefresh(t, refreshed)
	assert.Equal(t, 7, first.Fills)

	r.Trigger()
	second := waitRefresh(t, refreshed)
	assert.NotSame(t, first, second)
	assert.Same(t, second, p.Results())

	require.NoError(t, r.Stop())
	require.NoError(t, r.Stop())
}

func TestRunnerTicker(t *testing.T) {
	dir := t.TempDir()
	path := writeLog(t, dir, "log.txt", sampleLog())

	p := newTestProcessor(t, config.GetDefaultConfig())
	r := NewRunner(p, StaticPaths(path), 20*time.Millisecond, zaptest.NewLogger(t))

	refreshed := make(chan *Results, 16)
	r.OnRefresh(func(res *Results) {
		select {
		case refreshed <- res:
		default:
		}
	})

	require.NoError(t, r.Start(context.Background()))
	defer r.Stop()

	waitRefresh(t, refreshed)
	waitRefresh(t, refreshed)
}

func TestRunnerSkipsWithoutFiles(t *testing.T) {
	p := newTestProcessor(t, config.GetDefaultConfig())

	var calls atomic.Int32
	paths := func() ([]string, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("目录不存在")
		}
		return nil, nil
	}

	r := NewRunner(p, paths, time.Hour, zaptest.NewLogger(t))
	refreshed := make(chan *Results, 1)
	r.OnRefresh(func(res *Results) { refreshed <- res })

	require.NoError(t, r.Start(context.Background()))
	r.Trigger()

	assert.Eventually(t, func() bool { return calls.Load() >= 2 }, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, r.Stop())

	assert.Empty(t, refreshed)
	assert.Nil(t, p.Results())
}

func TestRunnerTriggerCoalesces(t *testing.T) {
	r := NewRunner(nil, StaticPaths(), time.Hour, nil)
	r.Trigger()
	r.Trigger()
	assert.Len(t, r.trigger, 1)
}
