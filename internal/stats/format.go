package stats

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var groupingPrinter = message.NewPrinter(language.English)

// FormatGrouped 千分位格式化；signed 为 true 时正数带 "+"，prec<0 时按最短表示
func FormatGrouped(v float64, signed bool, prec int) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}

	abs := math.Abs(v)
	digits := strconv.FormatFloat(abs, 'f', prec, 64)
	intPart, fracPart, hasFrac := strings.Cut(digits, ".")

	n, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return digits
	}

	var b strings.Builder
	switch {
	case v < 0 && (n != 0 || strings.Trim(fracPart, "0") != ""):
		b.WriteByte('-')
	case signed:
		b.WriteByte('+')
	}
	b.WriteString(groupingPrinter.Sprintf("%d", n))
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(fracPart)
	}
	return b.String()
}

// FormatSignedInt 例如 +1,250 / -700
func FormatSignedInt(v float64) string {
	return FormatGrouped(math.Trunc(v), true, 0)
}

// FormatDuration 例如 45s、3m 05s、1h 02m
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	secs := int(d.Round(time.Second).Seconds())
	switch {
	case secs < 60:
		return fmt.Sprintf("%ds", secs)
	case secs < 3600:
		return fmt.Sprintf("%dm %02ds", secs/60, secs%60)
	default:
		return fmt.Sprintf("%dh %02dm", secs/3600, (secs%3600)/60)
	}
}

// FormatClock 时分，零值返回 "-"
func FormatClock(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("15:04")
}

func averageDuration(values []time.Duration) time.Duration {
	if len(values) == 0 {
		return 0
	}
	var total time.Duration
	for _, v := range values {
		total += v
	}
	return total / time.Duration(len(values))
}

func maxDuration(values []time.Duration) time.Duration {
	var result time.Duration
	for _, v := range values {
		if v > result {
			result = v
		}
	}
	return result
}

func sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return sum(values) / float64(len(values))
}

func maxOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	result := values[0]
	for _, v := range values[1:] {
		if v > result {
			result = v
		}
	}
	return result
}

func minOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	result := values[0]
	for _, v := range values[1:] {
		if v < result {
			result = v
		}
	}
	return result
}
