package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ConcernLevel 告警严重程度，数值越大越严重
type ConcernLevel int

// 严重程度，OK < DEFAULT < CAUTION < WARNING < CRITICAL
const (
	LevelOK ConcernLevel = iota + 1
	LevelDefault
	LevelCaution
	LevelWarning
	LevelCritical
)

var levelNames = map[ConcernLevel]string{
	LevelOK:       "OK",
	LevelDefault:  "DEFAULT",
	LevelCaution:  "CAUTION",
	LevelWarning:  "WARNING",
	LevelCritical: "CRITICAL",
}

// ParseConcernLevel 解析严重程度名称（忽略大小写），未知名称返回 DEFAULT 和 false
func ParseConcernLevel(name string) (ConcernLevel, bool) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for level, n := range levelNames {
		if n == upper {
			return level, true
		}
	}
	return LevelDefault, false
}

// String 返回严重程度名称
func (l ConcernLevel) String() string {
	if name, ok := levelNames[l]; ok {
		return name
	}
	return fmt.Sprintf("ConcernLevel(%d)", int(l))
}

// Color 返回展示用的颜色
func (l ConcernLevel) Color() string {
	switch l {
	case LevelCritical:
		return "red"
	case LevelWarning:
		return "orange"
	case LevelCaution:
		return "yellow"
	case LevelOK:
		return "#90EE90"
	default:
		return "white"
	}
}

// MarshalJSON 以名称形式序列化
func (l ConcernLevel) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON 接受名称或数值
func (l *ConcernLevel) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*l, _ = ParseConcernLevel(name)
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("无效的严重程度: %s", string(data))
	}
	*l = ConcernLevel(n)
	return nil
}
