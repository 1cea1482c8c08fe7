package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/life2you_mini/tradestats/internal/alerts"
	"github.com/life2you_mini/tradestats/internal/config"
	"github.com/life2you_mini/tradestats/internal/logger"
	"github.com/life2you_mini/tradestats/internal/metrics"
	"github.com/life2you_mini/tradestats/internal/model"
	"github.com/life2you_mini/tradestats/internal/notify"
	"github.com/life2you_mini/tradestats/internal/parser"
	_redisClient "github.com/life2you_mini/tradestats/internal/redis"
	"github.com/life2you_mini/tradestats/internal/rules"
	"github.com/life2you_mini/tradestats/internal/services"
	"github.com/life2you_mini/tradestats/internal/trace"
)

var (
	configFile = flag.String("config", "config/config.yaml", "配置文件路径，为空时使用默认配置")
	rulesFile  = flag.String("rules", "", "告警规则文件路径，覆盖配置中的 alerts.rules_path")
	once       = flag.Bool("once", false, "只刷新一次并输出结果")
	account    = flag.String("account", "", "只输出指定账户")
	intervals  = flag.Bool("intervals", false, "输出按时段的交易统计")
	drain      = flag.Bool("drain", false, "取出并打印Redis队列中的告警后退出")
	clearQueue = flag.Bool("clear-queue", false, "清空Redis告警队列后退出")
)

func main() {
	os.Exit(run())
}

func run() int {
	// .env 不存在时忽略
	_ = godotenv.Load()

	// 解析命令行参数
	flag.Parse()

	// 加载配置
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		return 1
	}
	if *rulesFile != "" {
		cfg.Alerts.RulesPath = *rulesFile
	}
	if *intervals {
		cfg.Analysis.IntervalStatsPrint = true
	}

	// 初始化日志
	appLogger, err := logger.NewLogger(cfg.Logs.Dir, cfg.Logs.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		return 1
	}
	defer appLogger.Sync()
	zl := appLogger.Logger
	zl.Info("加载配置成功", zap.String("配置文件", *configFile))

	if err := trace.Init(cfg.Tracing.Enabled, cfg.Tracing.ServiceName, os.Stderr); err != nil {
		zl.Warn("初始化链路追踪失败", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = trace.Shutdown(ctx)
	}()

	// 创建上下文，用于处理信号
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *drain || *clearQueue {
		return runQueue(ctx, cfg, zl)
	}

	collector := metrics.NewCollector()

	var source alerts.MatchSource
	if cfg.Alerts.RulesPath != "" {
		source = rules.NewManager(cfg.Alerts.RulesPath, rules.Options{StrictEnabled: cfg.Alerts.StrictEnabled}, zl)
	} else {
		zl.Info("未配置告警规则文件，使用内置规则")
	}
	assembler := alerts.NewAssembler(cfg.Alerts, source, collector, zl)

	dispatcher, closeSinks := newDispatcher(ctx, cfg, collector, zl)
	defer closeSinks()

	// 配置已校验过时区
	loc, _ := cfg.Logs.Location()
	processor := services.NewProcessor(cfg, assembler, collector, zl,
		services.WithDispatcher(dispatcher),
		services.WithParser(parser.NewParser(zl).WithLocation(loc)),
	)

	paths := services.PathFunc(func() ([]string, error) {
		return parser.MatchingFiles(cfg.Logs.InputDir, cfg.Logs.FilePattern)
	})
	if flag.NArg() > 0 {
		paths = services.StaticPaths(flag.Args()...)
	}

	if *once {
		return runOnce(ctx, processor, dispatcher, paths, zl)
	}

	runner := services.NewRunner(processor, paths, cfg.RefreshInterval(), zl)
	if *account != "" {
		runner.OnRefresh(func(res *services.Results) {
			if err := services.WriteResults(os.Stdout, res, *account); err != nil {
				zl.Warn("输出结果失败", zap.Error(err))
			}
		})
	}
	if err := runner.Start(ctx); err != nil {
		zl.Error("启动刷新调度器失败", zap.Error(err))
		return 1
	}
	zl.Info("服务已启动")

	// 设置信号处理，SIGHUP 立即刷新
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	for sig := range signalChan {
		if sig == syscall.SIGHUP {
			zl.Info("接收到SIGHUP，立即刷新")
			runner.Trigger()
			continue
		}
		zl.Info("接收到信号，准备关闭服务", zap.String("signal", sig.String()))
		break
	}

	if err := runner.Stop(); err != nil {
		zl.Error("服务关闭失败", zap.Error(err))
		return 1
	}
	dispatcher.Wait()
	zl.Info("服务已优雅关闭")
	return 0
}

func runOnce(ctx context.Context, processor *services.Processor, dispatcher *notify.Dispatcher, paths services.PathFunc, zl *zap.Logger) int {
	files, err := paths()
	if err != nil {
		zl.Error("获取日志文件失败", zap.Error(err))
		return 1
	}
	if len(files) == 0 {
		zl.Error("没有可用的日志文件")
		return 1
	}

	res, err := processor.Refresh(ctx, files)
	if err != nil {
		return 1
	}
	dispatcher.Wait()

	if err := services.WriteResults(os.Stdout, res, *account); err != nil {
		zl.Error("输出结果失败", zap.Error(err))
		return 1
	}
	return 0
}

// runQueue 直接操作告警队列，用于没有展示程序时查看或清理积压
func runQueue(ctx context.Context, cfg *config.Config, zl *zap.Logger) int {
	client, err := _redisClient.NewRedisClient(ctx, redisOptions(cfg))
	if err != nil {
		zl.Error("连接Redis失败", zap.Error(err))
		return 1
	}
	defer client.Close()

	queue := _redisClient.NewQueueService(client, cfg.Redis.KeyPrefix)
	if *clearQueue {
		if err := queue.ClearQueue(ctx, cfg.Redis.Queue); err != nil {
			zl.Error("清空告警队列失败", zap.Error(err))
			return 1
		}
		zl.Info("告警队列已清空", zap.String("queue", cfg.Redis.Queue))
		return 0
	}

	if length, err := queue.GetQueueLength(ctx, cfg.Redis.Queue); err == nil {
		zl.Info("开始读取告警队列", zap.String("queue", cfg.Redis.Queue), zap.Int64("length", length))
	}
	n, err := notify.Drain(ctx, queue, cfg.Redis.Queue, time.Second, func(msg model.AlertMessage) error {
		line := fmt.Sprintf("[%s] %s: %s", msg.Level, msg.Account, msg.Message)
		if msg.ExtraMsg != "" {
			line += " (" + msg.ExtraMsg + ")"
		}
		_, err := fmt.Fprintln(os.Stdout, line)
		return err
	})
	if err != nil {
		zl.Error("读取告警队列失败", zap.Int("count", n), zap.Error(err))
		return 1
	}
	zl.Info("告警队列已读完", zap.Int("count", n))
	return 0
}

func redisOptions(cfg *config.Config) _redisClient.ClientOptions {
	return _redisClient.ClientOptions{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
}

// newDispatcher 日志投递始终启用，Redis 可用时额外推送到队列
func newDispatcher(ctx context.Context, cfg *config.Config, collector *metrics.Collector, zl *zap.Logger) (*notify.Dispatcher, func()) {
	sinks := []notify.Sink{notify.NewLogSink(zl)}
	opts := []notify.Option{notify.WithMetrics(collector)}
	closeFn := func() {}

	if cfg.Redis.Enabled {
		client, err := _redisClient.NewRedisClient(ctx, redisOptions(cfg))
		if err != nil {
			zl.Warn("Redis不可用，告警只写入日志", zap.Error(err))
		} else {
			queue := _redisClient.NewQueueService(client, cfg.Redis.KeyPrefix)
			sinks = append(sinks, notify.NewRedisQueueSink(queue, cfg.Redis.Queue, cfg.Redis.Priority))
			opts = append(opts, notify.WithSharedThrottle(queue))
			closeFn = func() {
				if err := client.Close(); err != nil {
					zl.Error("关闭Redis连接失败", zap.Error(err))
				}
			}
		}
	}

	return notify.NewDispatcher(zl, sinks, opts...), closeFn
}
