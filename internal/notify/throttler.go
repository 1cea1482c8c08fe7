package notify

import (
	"strings"
	"sync"
	"time"

	"github.com/life2you_mini/tradestats/internal/model"
)

// Throttler 按 (账户, 消息) 限制同一告警的重复频率
type Throttler struct {
	mu   sync.Mutex
	last map[string]time.Time
	now  func() time.Time
}

// NewThrottler 创建节流器
func NewThrottler() *Throttler {
	return &Throttler{
		last: make(map[string]time.Time),
		now:  time.Now,
	}
}

// Allow 判断告警是否可以投递，可以投递时记录本次时间
func (t *Throttler) Allow(msg model.AlertMessage) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	key := msg.ThrottleKey()
	if last, ok := t.last[key]; ok && msg.MinIntervalSecs > 0 {
		if now.Sub(last) < time.Duration(msg.MinIntervalSecs)*time.Second {
			return false
		}
	}
	t.last[key] = now
	return true
}

// Forget 清除某个账户的节流记录
func (t *Throttler) Forget(account string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prefix := account + "\x00"
	for key := range t.last {
		if strings.HasPrefix(key, prefix) {
			delete(t.last, key)
		}
	}
}

// Len 当前记录的告警数
func (t *Throttler) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.last)
}
