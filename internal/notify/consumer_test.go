package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/life2you_mini/tradestats/internal/mocks"
	"github.com/life2you_mini/tradestats/internal/model"
)

func encode(t *testing.T, msg model.AlertMessage) []byte {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	return data
}

func TestDrain(t *testing.T) {
	critical := sampleAlert("Stop.", model.LevelCritical)
	caution := sampleAlert("Slow down.", model.LevelCaution)

	src := new(mocks.MockQueueSource)
	src.On("PopTaskWithPriority", mock.Anything, "alerts").Return(encode(t, critical), nil).Once()
	src.On("PopTaskWithPriority", mock.Anything, "alerts").Return(nil, nil)
	src.On("PopTask", mock.Anything, "alerts", time.Second).Return(encode(t, caution), nil).Once()
	src.On("PopTask", mock.Anything, "alerts", time.Second).Return(nil, nil)

	var got []model.AlertMessage
	n, err := Drain(context.Background(), src, "alerts", time.Second, func(msg model.AlertMessage) error {
		got = append(got, msg)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []model.AlertMessage{critical, caution}, got)
	src.AssertExpectations(t)
}

func TestDrainErrors(t *testing.T) {
	noop := func(model.AlertMessage) error { return nil }

	t.Run("优先级队列失败", func(t *testing.T) {
		src := new(mocks.MockQueueSource)
		src.On("PopTaskWithPriority", mock.Anything, "alerts").Return(nil, errors.New("redis down"))

		n, err := Drain(context.Background(), src, "alerts", time.Second, noop)
		assert.ErrorContains(t, err, "redis down")
		assert.Equal(t, 0, n)
	})

	t.Run("消息格式错误", func(t *testing.T) {
		src := new(mocks.MockQueueSource)
		src.On("PopTaskWithPriority", mock.Anything, "alerts").Return([]byte("{"), nil)

		_, err := Drain(context.Background(), src, "alerts", time.Second, noop)
		assert.ErrorContains(t, err, "解析告警消息失败")
	})

	t.Run("处理失败", func(t *testing.T) {
		src := new(mocks.MockQueueSource)
		src.On("PopTaskWithPriority", mock.Anything, "alerts").Return(nil, nil)
		src.On("PopTask", mock.Anything, "alerts", time.Second).Return(encode(t, sampleAlert("Stop.", model.LevelCritical)), nil)

		n, err := Drain(context.Background(), src, "alerts", time.Second, func(model.AlertMessage) error {
			return errors.New("write failed")
		})
		assert.ErrorContains(t, err, "write failed")
		assert.Equal(t, 0, n)
	})

	t.Run("上下文取消", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		n, err := Drain(ctx, new(mocks.MockQueueSource), "alerts", time.Second, noop)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, n)
	})
}
