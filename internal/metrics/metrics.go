package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/life2you_mini/tradestats/internal/model"
)

const namespace = "tradestats"

// Collector 刷新流水线的运行指标，方法对 nil 接收者安全
type Collector struct {
	registry *prometheus.Registry

	refreshes       *prometheus.CounterVec
	refreshDuration prometheus.Histogram
	fills           prometheus.Gauge
	trades          *prometheus.GaugeVec
	profitOrLoss    *prometheus.GaugeVec
	alerts          *prometheus.CounterVec
	delivered       *prometheus.CounterVec
	throttled       prometheus.Counter
	fallbacks       *prometheus.CounterVec
}

// NewCollector 在独立的 registry 上注册所有指标
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_total",
			Help:      "Number of refresh passes by result.",
		}, []string{"status"}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "refresh_duration_seconds",
			Help:      "Duration of a full parse/reconstruct/evaluate pass.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
		fills: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fills",
			Help:      "Deduplicated fills seen in the last refresh.",
		}),
		trades: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "completed_trades",
			Help:      "Completed round-trip trades per account.",
		}, []string{"account"}),
		profitOrLoss: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "profit_or_loss",
			Help:      "Realized profit or loss per account.",
		}, []string{"account"}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_total",
			Help:      "Alert messages assembled by level.",
		}, []string{"level"}),
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_delivered_total",
			Help:      "Alert messages handed to a sink.",
		}, []string{"sink", "status"}),
		throttled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_throttled_total",
			Help:      "Alert messages suppressed by the minimum interval.",
		}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rules_fallback_total",
			Help:      "Evaluations that fell back to the built-in rules.",
		}, []string{"reason"}),
	}

	c.registry.MustRegister(
		c.refreshes,
		c.refreshDuration,
		c.fills,
		c.trades,
		c.profitOrLoss,
		c.alerts,
		c.delivered,
		c.throttled,
		c.fallbacks,
	)
	return c
}

// Registry 返回底层 registry
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// ObserveRefresh 记录一次刷新的结果和耗时
func (c *Collector) ObserveRefresh(err error, elapsed time.Duration) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.refreshes.WithLabelValues(status).Inc()
	c.refreshDuration.Observe(elapsed.Seconds())
}

// SetFills 记录成交数量
func (c *Collector) SetFills(n int) {
	if c == nil {
		return
	}
	c.fills.Set(float64(n))
}

// SetAccount 记录账户的交易数和盈亏
func (c *Collector) SetAccount(account string, completedTrades int, profitOrLoss float64) {
	if c == nil {
		return
	}
	c.trades.WithLabelValues(account).Set(float64(completedTrades))
	c.profitOrLoss.WithLabelValues(account).Set(profitOrLoss)
}

// IncAlert 按级别计数
func (c *Collector) IncAlert(level model.ConcernLevel) {
	if c == nil {
		return
	}
	c.alerts.WithLabelValues(level.String()).Inc()
}

// IncDelivered 记录投递结果
func (c *Collector) IncDelivered(sink string, err error) {
	if c == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.delivered.WithLabelValues(sink, status).Inc()
}

// IncThrottled 记录被节流的告警
func (c *Collector) IncThrottled() {
	if c == nil {
		return
	}
	c.throttled.Inc()
}

// IncFallback 记录回退到内置规则的原因
func (c *Collector) IncFallback(reason string) {
	if c == nil {
		return
	}
	c.fallbacks.WithLabelValues(reason).Inc()
}

// WriteTextfile 以 Prometheus 文本格式写出，供 node_exporter textfile collector 读取
func (c *Collector) WriteTextfile(path string) error {
	if c == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("写入指标文件失败: %w", err)
	}
	return nil
}
