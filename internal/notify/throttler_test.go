package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/life2you_mini/tradestats/internal/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestThrottler() (*Throttler, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 7, 19, 9, 30, 0, 0, time.Local)}
	th := NewThrottler()
	th.now = clock.Now
	return th, clock
}

func TestThrottlerMinInterval(t *testing.T) {
	th, clock := newTestThrottler()
	msg := model.AlertMessage{Account: "ACC1", Message: "Slow down.", MinIntervalSecs: 600}

	assert.True(t, th.Allow(msg))
	assert.False(t, th.Allow(msg))

	clock.Advance(599 * time.Second)
	assert.False(t, th.Allow(msg))

	clock.Advance(time.Second)
	assert.True(t, th.Allow(msg))
	assert.False(t, th.Allow(msg))
}

func TestThrottlerKeys(t *testing.T) {
	th, _ := newTestThrottler()
	msg := model.AlertMessage{Account: "ACC1", Message: "Slow down.", MinIntervalSecs: 600}

	assert.True(t, th.Allow(msg))

	other := msg
	other.Account = "ACC2"
	assert.True(t, th.Allow(other), "不同账户互不影响")

	other = msg
	other.Message = "Size down."
	assert.True(t, th.Allow(other), "不同消息互不影响")

	assert.Equal(t, 3, th.Len())
	th.Forget("ACC1")
	assert.Equal(t, 1, th.Len())
	assert.True(t, th.Allow(msg))
}

func TestThrottlerZeroInterval(t *testing.T) {
	th, _ := newTestThrottler()
	msg := model.AlertMessage{Account: "ACC1", Message: "Always"}

	for i := 0; i < 3; i++ {
		assert.True(t, th.Allow(msg))
	}
}

func TestThrottlerConcurrent(t *testing.T) {
	th, _ := newTestThrottler()
	msg := model.AlertMessage{Account: "ACC1", Message: "Once", MinIntervalSecs: 60}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if th.Allow(msg) {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, allowed)
}
