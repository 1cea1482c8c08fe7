package alerts

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/life2you_mini/tradestats/internal/stats"
)

// Render 渲染告警附加文本模板：{field}、{field:+,}、{field:.2f}、{field:+,.0f}；
// {{ 和 }} 输出花括号，未知字段或格式原样保留
func Render(tpl string, fields map[string]any) string {
	if !strings.ContainsAny(tpl, "{}") {
		return tpl
	}

	var b strings.Builder
	for i := 0; i < len(tpl); {
		c := tpl[i]
		switch {
		case c == '{' && i+1 < len(tpl) && tpl[i+1] == '{':
			b.WriteByte('{')
			i += 2
		case c == '}' && i+1 < len(tpl) && tpl[i+1] == '}':
			b.WriteByte('}')
			i += 2
		case c == '{':
			end := strings.IndexByte(tpl[i:], '}')
			if end < 0 {
				b.WriteString(tpl[i:])
				return b.String()
			}
			placeholder := tpl[i : i+end+1]
			if out, ok := renderPlaceholder(placeholder[1:len(placeholder)-1], fields); ok {
				b.WriteString(out)
			} else {
				b.WriteString(placeholder)
			}
			i += end + 1
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String()
}

func renderPlaceholder(body string, fields map[string]any) (string, bool) {
	name, spec, _ := strings.Cut(body, ":")
	name = strings.TrimSpace(name)

	v, ok := fields[name]
	if !ok {
		return "", false
	}
	return formatValue(v, spec)
}

type formatSpec struct {
	signed    bool
	grouped   bool
	precision int // -1 表示未指定
}

func parseSpec(spec string) (formatSpec, bool) {
	fs := formatSpec{precision: -1}
	rest := spec
	if strings.HasPrefix(rest, "+") {
		fs.signed = true
		rest = rest[1:]
	}
	if strings.HasPrefix(rest, ",") {
		fs.grouped = true
		rest = rest[1:]
	}
	if strings.HasPrefix(rest, ".") {
		digits, ok := strings.CutSuffix(rest[1:], "f")
		if !ok {
			return fs, false
		}
		n, err := strconv.Atoi(digits)
		if err != nil || n < 0 {
			return fs, false
		}
		fs.precision = n
		rest = ""
	}
	if rest == "d" {
		fs.precision = 0
		rest = ""
	}
	return fs, rest == ""
}

func formatValue(v any, spec string) (string, bool) {
	fs, ok := parseSpec(spec)
	if !ok {
		return "", false
	}

	var n float64
	switch x := v.(type) {
	case float64:
		n = x
	case float32:
		n = float64(x)
	case int:
		n = float64(x)
	case int64:
		n = float64(x)
	case bool:
		if spec == "" {
			if x {
				return "True", true
			}
			return "False", true
		}
		if x {
			n = 1
		}
	case string:
		return x, spec == ""
	case fmt.Stringer:
		return x.String(), spec == ""
	default:
		return fmt.Sprint(v), spec == ""
	}

	prec := fs.precision
	if prec < 0 {
		// 整数值按整数显示，其余保留两位小数
		if n == math.Trunc(n) {
			prec = 0
		} else {
			prec = 2
		}
	}

	if fs.grouped {
		return stats.FormatGrouped(n, fs.signed, prec), true
	}
	out := strconv.FormatFloat(n, 'f', prec, 64)
	if fs.signed && !strings.HasPrefix(out, "-") {
		out = "+" + out
	}
	return out, true
}
