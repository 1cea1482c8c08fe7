package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestQueue(t *testing.T) (*QueueService, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	client, err := NewRedisClient(context.Background(), ClientOptions{Host: mr.Host(), Port: port})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return NewQueueService(client, "tradestats:"), mr, client
}

type task struct {
	Message string `json:"message"`
	Level   int    `json:"level"`
}

func decodeTask(t *testing.T, data []byte) task {
	t.Helper()
	var v task
	require.NoError(t, json.Unmarshal(data, &v))
	return v
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)
	mr.Close()

	_, err = NewRedisClient(context.Background(), ClientOptions{Host: mr.Host(), Port: port})
	assert.ErrorContains(t, err, "连接Redis失败")
}

func TestQueueService_PushPop(t *testing.T) {
	q, mr, _ := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.PushTask(ctx, QueueAlerts, task{Message: "first"}))
	require.NoError(t, q.PushTask(ctx, QueueAlerts, task{Message: "second"}))
	assert.True(t, mr.Exists("tradestats:alerts"))

	length, err := q.GetQueueLength(ctx, QueueAlerts)
	require.NoError(t, err)
	assert.Equal(t, int64(2), length)

	// LPUSH + BRPOP 先进先出
	data, err := q.PopTask(ctx, QueueAlerts, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "first", decodeTask(t, data).Message)
	data, err = q.PopTask(ctx, QueueAlerts, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "second", decodeTask(t, data).Message)

	data, err = q.PopTask(ctx, QueueAlerts, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, data)
}

func TestQueueService_Priority(t *testing.T) {
	q, mr, _ := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.PushTaskWithPriority(ctx, QueueAlerts, task{Message: "caution", Level: 2}, 2))
	require.NoError(t, q.PushTaskWithPriority(ctx, QueueAlerts, task{Message: "critical", Level: 4}, 4))
	require.NoError(t, q.PushTaskWithPriority(ctx, QueueAlerts, task{Message: "warning", Level: 3}, 3))
	assert.True(t, mr.Exists("tradestats:priority_alerts"))

	var got []string
	for {
		data, err := q.PopTaskWithPriority(ctx, QueueAlerts)
		require.NoError(t, err)
		if data == nil {
			break
		}
		got = append(got, decodeTask(t, data).Message)
	}
	assert.Equal(t, []string{"critical", "warning", "caution"}, got)
}

func TestQueueService_ClearQueue(t *testing.T) {
	q, mr, _ := newTestQueue(t)
	ctx := context.Background()

	require.NoError(t, q.PushTask(ctx, QueueAlerts, task{Message: "plain"}))
	require.NoError(t, q.PushTaskWithPriority(ctx, QueueAlerts, task{Message: "priority"}, 1))

	require.NoError(t, q.ClearQueue(ctx, QueueAlerts))
	assert.False(t, mr.Exists("tradestats:alerts"))
	assert.False(t, mr.Exists("tradestats:priority_alerts"))

	length, err := q.GetQueueLength(ctx, QueueAlerts)
	require.NoError(t, err)
	assert.Zero(t, length)
}

func TestQueueService_AllowOnce(t *testing.T) {
	q, mr, _ := newTestQueue(t)
	ctx := context.Background()

	ok, err := q.AllowOnce(ctx, "ACC1:Stop.", 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = q.AllowOnce(ctx, "ACC1:Stop.", 10*time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "间隔内不应重复放行")

	ok, err = q.AllowOnce(ctx, "ACC2:Stop.", 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "不同的键互不影响")

	assert.Equal(t, 10*time.Minute, mr.TTL("tradestats:throttle_ACC1:Stop."))
	mr.FastForward(10*time.Minute + time.Second)

	ok, err = q.AllowOnce(ctx, "ACC1:Stop.", 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "过期后应重新放行")

	// ttl 为0时不访问Redis
	mr.SetError("server down")
	ok, err = q.AllowOnce(ctx, "ACC1:Stop.", 0)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = q.AllowOnce(ctx, "ACC3:Stop.", time.Minute)
	assert.Error(t, err)
}

func TestAcquireOnce(t *testing.T) {
	_, mr, client := newTestQueue(t)
	ctx := context.Background()

	ok, err := AcquireOnce(ctx, client, "lock", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = AcquireOnce(ctx, client, "lock", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, mr.Exists("lock"))
}
