package model

// AlertMessage 交给投递方的告警消息
type AlertMessage struct {
	Message         string       `json:"message"`
	Account         string       `json:"account"`
	DurationSecs    int          `json:"duration_secs"`     // 展示时长
	MinIntervalSecs int          `json:"min_interval_secs"` // 同一 (账户, 消息) 的最小重复间隔
	Level           ConcernLevel `json:"level"`
	ExtraMsg        string       `json:"extra_msg"`
}

// ThrottleKey 返回节流键
func (m AlertMessage) ThrottleKey() string {
	return m.Account + "\x00" + m.Message
}
