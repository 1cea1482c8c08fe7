package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/life2you_mini/tradestats/internal/alerts"
	"github.com/life2you_mini/tradestats/internal/config"
	"github.com/life2you_mini/tradestats/internal/metrics"
	"github.com/life2you_mini/tradestats/internal/model"
	"github.com/life2you_mini/tradestats/internal/parser"
	"github.com/life2you_mini/tradestats/internal/stats"
	"github.com/life2you_mini/tradestats/internal/trace"
	"github.com/life2you_mini/tradestats/internal/trading"
)

// AllAccounts 所有账户成交合并后的统计，只用于分析，不产生告警
const AllAccounts = "ALL"

// Dispatcher 告警投递，一般是 *notify.Dispatcher
type Dispatcher interface {
	Dispatch(alerts []model.AlertMessage)
}

// AccountResult 单个账户的刷新结果
type AccountResult struct {
	Snapshot *stats.Snapshot
	Alerts   []model.AlertMessage
	Trades   []model.Trade
}

// Results 一次刷新的完整结果，发布后不再修改
type Results struct {
	UpdatedAt  time.Time
	Fills      int
	Accounts   map[string]*AccountResult
	Stoppers   stats.FollowTradeStats
	Continuers stats.FollowTradeStats
	Intervals  []stats.IntervalStats
}

// AccountNames 已排序的账户名
func (r *Results) AccountNames() []string {
	names := make([]string, 0, len(r.Accounts))
	for name := range r.Accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Account 查找账户结果
func (r *Results) Account(name string) (*AccountResult, bool) {
	a, ok := r.Accounts[name]
	return a, ok
}

// AllAlerts 按账户名顺序拼接所有告警
func (r *Results) AllAlerts() []model.AlertMessage {
	out := make([]model.AlertMessage, 0)
	for _, name := range r.AccountNames() {
		out = append(out, r.Accounts[name].Alerts...)
	}
	return out
}

// Processor 解析、重建、统计、告警的刷新流水线
type Processor struct {
	logger        *zap.Logger
	cfg           *config.Config
	parser        *parser.Parser
	reconstructor *trading.Reconstructor
	assembler     *alerts.Assembler
	dispatcher    Dispatcher
	metrics       *metrics.Collector
	out           io.Writer
	now           func() time.Time

	mu      sync.Mutex
	results atomic.Pointer[Results]
}

// ProcessorOption Processor 选项
type ProcessorOption func(*Processor)

// WithDispatcher 刷新成功后投递告警
func WithDispatcher(d Dispatcher) ProcessorOption {
	return func(p *Processor) { p.dispatcher = d }
}

// WithOutput 分析表格的输出位置，默认 stdout
func WithOutput(w io.Writer) ProcessorOption {
	return func(p *Processor) { p.out = w }
}

// WithClock 替换当前时间
func WithClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) { p.now = now }
}

// WithParser 替换成交解析器
func WithParser(ps *parser.Parser) ProcessorOption {
	return func(p *Processor) { p.parser = ps }
}

// NewProcessor 创建刷新流水线
func NewProcessor(cfg *config.Config, assembler *alerts.Assembler, collector *metrics.Collector, logger *zap.Logger, opts ...ProcessorOption) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Processor{
		logger:        logger.With(zap.String("component", "processor")),
		cfg:           cfg,
		parser:        parser.NewParser(logger),
		reconstructor: trading.NewReconstructor(cfg.Contracts, logger),
		assembler:     assembler,
		metrics:       collector,
		out:           os.Stdout,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Results 最近一次成功刷新的结果，尚未刷新时为 nil
func (p *Processor) Results() *Results {
	return p.results.Load()
}

// Refresh 同步执行一次完整刷新；失败时保留上一次的结果并返回它
func (p *Processor) Refresh(ctx context.Context, paths []string) (*Results, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	ctx, span := trace.StartSpan(ctx, "refresh")
	defer span.End()
	span.SetAttributes(attribute.Int("files", len(paths)))

	res, err := p.refresh(ctx, paths)
	p.metrics.ObserveRefresh(err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.logger.Error("刷新失败，保留上一次结果", zap.Strings("files", paths), zap.Error(err))
		return p.results.Load(), err
	}
	p.results.Store(res)

	if path := p.cfg.Metrics.TextfilePath; path != "" {
		if err := p.metrics.WriteTextfile(path); err != nil {
			p.logger.Warn("写出指标文件失败", zap.String("path", path), zap.Error(err))
		}
	}

	alertsOut := res.AllAlerts()
	if p.cfg.Alerts.Enabled && p.dispatcher != nil {
		p.dispatcher.Dispatch(alertsOut)
	}

	p.logger.Info("刷新完成",
		zap.Int("files", len(paths)),
		zap.Int("fills", res.Fills),
		zap.Int("accounts", len(res.Accounts)),
		zap.Int("alerts", len(alertsOut)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return res, nil
}

func (p *Processor) refresh(ctx context.Context, paths []string) (*Results, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	_, parseSpan := trace.StartSpan(ctx, "parse")
	fills, err := p.parser.ParseFiles(paths...)
	if err != nil {
		parseSpan.End()
		return nil, fmt.Errorf("解析成交日志失败: %w", err)
	}
	names, err := parser.ScanAccounts(paths...)
	parseSpan.SetAttributes(attribute.Int("fills", len(fills)))
	parseSpan.End()
	if err != nil {
		return nil, fmt.Errorf("读取账户名称失败: %w", err)
	}
	p.metrics.SetFills(len(fills))

	now := p.now()
	results := &Results{
		UpdatedAt: now,
		Fills:     len(fills),
		Accounts:  make(map[string]*AccountResult),
	}

	_, statsSpan := trace.StartSpan(ctx, "reconstruct")
	var (
		consolidated []model.Trade
		stoppers     []trading.FollowTrade
		continuers   []trading.FollowTrade
	)
	groups := parser.GroupByAccount(fills)
	for _, account := range parser.Accounts(fills) {
		res := p.reconstructor.Reconstruct(groups[account])
		snap := stats.Aggregate(res, p.inputs(account, now))

		results.Accounts[account] = &AccountResult{
			Snapshot: snap,
			Alerts:   p.assembler.Assemble(account, snap.Context),
			Trades:   res.Trades,
		}
		p.metrics.SetAccount(account, res.CompletedTrades, res.TotalProfitOrLoss)

		consolidated = append(consolidated, res.Trades...)
		stoppers = append(stoppers, res.Streak.LosingStreakStoppers...)
		continuers = append(continuers, res.Streak.LosingStreakContinuers...)
	}

	if len(fills) > 0 {
		all := p.reconstructor.Reconstruct(fills)
		results.Accounts[AllAccounts] = &AccountResult{
			Snapshot: stats.Aggregate(all, p.inputs(AllAccounts, now)),
			Trades:   all.Trades,
		}
	}
	statsSpan.SetAttributes(attribute.Int("trades", len(consolidated)))
	statsSpan.End()

	for _, name := range append(names, AllAccounts) {
		if _, ok := results.Accounts[name]; !ok {
			results.Accounts[name] = &AccountResult{Snapshot: stats.MinimalSnapshot(name, now)}
		}
	}

	results.Stoppers = stats.SummarizeFollowTrades("streak_stopper_list", stoppers)
	results.Continuers = stats.SummarizeFollowTrades("streak_continuer_list", continuers)

	mins := p.cfg.Analysis.IntervalStatsMins
	results.Intervals = stats.AnalyzeIntervals(consolidated, mins)

	p.printAnalysis(results, mins)
	return results, nil
}

func (p *Processor) inputs(account string, now time.Time) stats.Inputs {
	return stats.Inputs{
		Account:        account,
		Now:            now,
		OpenNoticeMins: p.cfg.Alerts.OpenTradeNoticeMins,
	}
}

func (p *Processor) printAnalysis(res *Results, mins int) {
	if res.Fills == 0 {
		return
	}
	if p.cfg.Analysis.StreakFollowTradePrint {
		for _, s := range []stats.FollowTradeStats{res.Stoppers, res.Continuers} {
			if _, err := s.WriteTo(p.out); err != nil {
				p.logger.Warn("输出连亏后续交易统计失败", zap.Error(err))
			}
		}
	}
	if p.cfg.Analysis.IntervalStatsPrint {
		if err := stats.WriteIntervalTable(p.out, res.Intervals, mins); err != nil {
			p.logger.Warn("输出时段统计失败", zap.Error(err))
		}
	}
}
