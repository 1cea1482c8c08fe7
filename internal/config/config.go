package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/life2you_mini/tradestats/internal/model"
)

// Config 应用配置结构
type Config struct {
	Logs      LogsConfig      `mapstructure:"logs" yaml:"logs"`
	Contracts ContractsConfig `mapstructure:"contracts" yaml:"contracts"`
	Alerts    AlertsConfig    `mapstructure:"alerts" yaml:"alerts"`
	Refresh   RefreshConfig   `mapstructure:"refresh" yaml:"refresh"`
	Analysis  AnalysisConfig  `mapstructure:"analysis" yaml:"analysis"`
	Redis     RedisConfig     `mapstructure:"redis" yaml:"redis"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Tracing   TracingConfig   `mapstructure:"tracing" yaml:"tracing"`
}

// LogsConfig 日志配置：本程序自身的日志以及需要解析的成交日志
type LogsConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Dir         string `mapstructure:"dir" yaml:"dir"`                   // 为空时只输出到控制台
	InputDir    string `mapstructure:"input_dir" yaml:"input_dir"`       // 成交日志目录
	FilePattern string `mapstructure:"file_pattern" yaml:"file_pattern"` // 成交日志文件匹配模式
	Timezone    string `mapstructure:"timezone" yaml:"timezone"`         // 成交时间所在时区，为空时使用本地时区
}

// Location 成交时间所在时区
func (l LogsConfig) Location() (*time.Location, error) {
	if l.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(l.Timezone)
	if err != nil {
		return nil, fmt.Errorf("无效的时区 %s: %w", l.Timezone, err)
	}
	return loc, nil
}

// ContractsConfig 合约乘数配置
type ContractsConfig struct {
	DefaultValue float64            `mapstructure:"default_value" yaml:"default_value"`
	Values       map[string]float64 `mapstructure:"values" yaml:"values"` // 合约代码或品种 -> 每点价值
}

// AlertsConfig 告警配置
type AlertsConfig struct {
	Enabled             bool           `mapstructure:"enabled" yaml:"enabled"`
	DurationDefault     int            `mapstructure:"duration_default" yaml:"duration_default"`
	DurationWarning     int            `mapstructure:"duration_warning" yaml:"duration_warning"`
	DurationCritical    int            `mapstructure:"duration_critical" yaml:"duration_critical"`
	MinIntervalSecs     int            `mapstructure:"min_interval_secs" yaml:"min_interval_secs"`
	MinIntervalByLevel  map[string]int `mapstructure:"min_interval_by_level" yaml:"min_interval_by_level"`
	OpenTradeNoticeMins int            `mapstructure:"open_trade_notice_mins" yaml:"open_trade_notice_mins"`
	RulesPath           string         `mapstructure:"rules_path" yaml:"rules_path"`         // 为空时使用内置规则
	StrictEnabled       bool           `mapstructure:"strict_enabled" yaml:"strict_enabled"` // 字符串 "false" 视为禁用
}

// RefreshConfig 刷新配置
type RefreshConfig struct {
	IntervalSecs int `mapstructure:"interval_secs" yaml:"interval_secs"`
}

// AnalysisConfig 附加分析输出
type AnalysisConfig struct {
	IntervalStatsPrint     bool `mapstructure:"interval_stats_print" yaml:"interval_stats_print"`
	IntervalStatsMins      int  `mapstructure:"interval_stats_mins" yaml:"interval_stats_mins"`
	StreakFollowTradePrint bool `mapstructure:"streak_follow_trade_print" yaml:"streak_follow_trade_print"`
}

// RedisConfig Redis配置，用于投递告警队列
type RedisConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Host      string `mapstructure:"host" yaml:"host"`
	Port      int    `mapstructure:"port" yaml:"port"`
	Password  string `mapstructure:"password" yaml:"password"` // 从配置文件或环境变量中读取
	DB        int    `mapstructure:"db" yaml:"db"`
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix"`
	Queue     string `mapstructure:"queue" yaml:"queue"`
	Priority  bool   `mapstructure:"priority" yaml:"priority"` // 使用按严重程度排序的优先级队列
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	TextfilePath string `mapstructure:"textfile_path" yaml:"textfile_path"` // 每次刷新后写出 Prometheus 文本格式
}

// TracingConfig 链路追踪配置
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
}

// RefreshInterval 自动刷新间隔
func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Refresh.IntervalSecs) * time.Second
}

// contractRoot 去掉期货月份和年份代码，例如 ESM5 -> ES，MNQZ24 -> MNQ
var contractRoot = regexp.MustCompile(`^([A-Z0-9]+?)[FGHJKMNQUVXZ]\d{1,2}$`)

// ContractValue 查找合约乘数：先按完整代码，再按品种，最后使用默认值
func (c ContractsConfig) ContractValue(symbol string) float64 {
	upper := strings.ToUpper(strings.TrimSpace(symbol))
	if v, ok := c.Values[upper]; ok {
		return v
	}
	if m := contractRoot.FindStringSubmatch(upper); m != nil {
		if v, ok := c.Values[m[1]]; ok {
			return v
		}
	}
	return c.DefaultValue
}

// Duration 按严重程度返回展示时长（秒）
func (a AlertsConfig) Duration(level model.ConcernLevel) int {
	switch level {
	case model.LevelCritical:
		return a.DurationCritical
	case model.LevelWarning:
		return a.DurationWarning
	default:
		return a.DurationDefault
	}
}

// MinInterval 按严重程度返回最小重复间隔（秒）
func (a AlertsConfig) MinInterval(level model.ConcernLevel) int {
	if v, ok := a.MinIntervalByLevel[strings.ToLower(level.String())]; ok {
		return v
	}
	return a.MinIntervalSecs
}

// LoadConfig 从文件加载配置，filePath 为空时只使用默认值和环境变量
func LoadConfig(filePath string) (*Config, error) {
	// 使用Viper读取配置
	v := viper.New()
	setDefaults(v)

	if filePath != "" {
		v.SetConfigFile(filePath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	// 绑定环境变量，如 TRADESTATS_ALERTS_RULES_PATH
	v.SetEnvPrefix("TRADESTATS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 特定环境变量映射，如果存在则优先使用
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		v.Set("redis.password", redisPassword)
	}
	if rulesPath := os.Getenv("ALERT_CONFIG_PATH"); rulesPath != "" {
		v.Set("alerts.rules_path", rulesPath)
	}

	// 解析配置到结构体
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	normalizeConfig(&config)

	// 验证配置有效性
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return &config, nil
}

// LoadConfigFromYAML 直接用yaml解析，未出现的字段保留默认值
func LoadConfigFromYAML(filePath string) (*Config, error) {
	yamlFile, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	config := GetDefaultConfig()
	if err := yaml.Unmarshal(yamlFile, config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	normalizeConfig(config)

	// 验证配置有效性
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("配置验证失败: %w", err)
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	def := GetDefaultConfig()

	v.SetDefault("logs.level", def.Logs.Level)
	v.SetDefault("logs.dir", def.Logs.Dir)
	v.SetDefault("logs.input_dir", def.Logs.InputDir)
	v.SetDefault("logs.file_pattern", def.Logs.FilePattern)
	v.SetDefault("logs.timezone", def.Logs.Timezone)

	v.SetDefault("contracts.default_value", def.Contracts.DefaultValue)
	v.SetDefault("contracts.values", def.Contracts.Values)

	v.SetDefault("alerts.enabled", def.Alerts.Enabled)
	v.SetDefault("alerts.duration_default", def.Alerts.DurationDefault)
	v.SetDefault("alerts.duration_warning", def.Alerts.DurationWarning)
	v.SetDefault("alerts.duration_critical", def.Alerts.DurationCritical)
	v.SetDefault("alerts.min_interval_secs", def.Alerts.MinIntervalSecs)
	v.SetDefault("alerts.open_trade_notice_mins", def.Alerts.OpenTradeNoticeMins)
	v.SetDefault("alerts.rules_path", def.Alerts.RulesPath)
	v.SetDefault("alerts.strict_enabled", def.Alerts.StrictEnabled)

	v.SetDefault("refresh.interval_secs", def.Refresh.IntervalSecs)

	v.SetDefault("analysis.interval_stats_print", def.Analysis.IntervalStatsPrint)
	v.SetDefault("analysis.interval_stats_mins", def.Analysis.IntervalStatsMins)
	v.SetDefault("analysis.streak_follow_trade_print", def.Analysis.StreakFollowTradePrint)

	v.SetDefault("redis.enabled", def.Redis.Enabled)
	v.SetDefault("redis.host", def.Redis.Host)
	v.SetDefault("redis.port", def.Redis.Port)
	v.SetDefault("redis.password", def.Redis.Password)
	v.SetDefault("redis.db", def.Redis.DB)
	v.SetDefault("redis.key_prefix", def.Redis.KeyPrefix)
	v.SetDefault("redis.queue", def.Redis.Queue)
	v.SetDefault("redis.priority", def.Redis.Priority)

	v.SetDefault("metrics.textfile_path", def.Metrics.TextfilePath)

	v.SetDefault("tracing.enabled", def.Tracing.Enabled)
	v.SetDefault("tracing.service_name", def.Tracing.ServiceName)
}

// normalizeConfig viper 会把 map 的键转成小写，这里统一为大写合约代码
func normalizeConfig(config *Config) {
	values := make(map[string]float64, len(config.Contracts.Values))
	for k, v := range config.Contracts.Values {
		values[strings.ToUpper(k)] = v
	}
	config.Contracts.Values = values

	levels := make(map[string]int, len(config.Alerts.MinIntervalByLevel))
	for k, v := range config.Alerts.MinIntervalByLevel {
		levels[strings.ToLower(k)] = v
	}
	config.Alerts.MinIntervalByLevel = levels
}

// validateConfig 验证配置有效性
func validateConfig(config *Config) error {
	if _, err := config.Logs.Location(); err != nil {
		return err
	}

	if config.Contracts.DefaultValue <= 0 {
		return fmt.Errorf("默认合约乘数必须大于0")
	}
	for symbol, value := range config.Contracts.Values {
		if value <= 0 {
			return fmt.Errorf("合约 %s 的乘数必须大于0", symbol)
		}
	}

	if config.Alerts.DurationDefault < 0 || config.Alerts.DurationWarning < 0 || config.Alerts.DurationCritical < 0 {
		return fmt.Errorf("告警展示时长不能为负数")
	}
	if config.Alerts.MinIntervalSecs < 0 {
		return fmt.Errorf("告警最小间隔不能为负数")
	}
	for level := range config.Alerts.MinIntervalByLevel {
		if _, ok := model.ParseConcernLevel(level); !ok {
			return fmt.Errorf("未知的告警级别: %s", level)
		}
	}

	if config.Refresh.IntervalSecs <= 0 {
		return fmt.Errorf("刷新间隔必须大于0")
	}

	if config.Analysis.IntervalStatsMins <= 0 || config.Analysis.IntervalStatsMins > 60 {
		return fmt.Errorf("时间段统计的分钟数必须在1到60之间")
	}

	// 验证Redis配置
	if config.Redis.Enabled {
		if config.Redis.Host == "" {
			return fmt.Errorf("Redis主机不能为空")
		}
		if config.Redis.Port <= 0 || config.Redis.Port > 65535 {
			return fmt.Errorf("无效的Redis端口")
		}
		if config.Redis.Queue == "" {
			return fmt.Errorf("Redis告警队列名称不能为空")
		}
	}

	return nil
}

// GetDefaultConfig 获取默认配置（用于生成示例配置）
func GetDefaultConfig() *Config {
	return &Config{
		Logs: LogsConfig{
			Level:       "info",
			Dir:         "./logs",
			InputDir:    "",
			FilePattern: "*.txt",
		},
		Contracts: ContractsConfig{
			DefaultValue: 50,
			Values: map[string]float64{
				"ES":  50,
				"MES": 5,
				"NQ":  20,
				"MNQ": 2,
				"YM":  5,
				"MYM": 0.5,
				"RTY": 50,
				"M2K": 5,
				"CL":  1000,
				"MCL": 100,
				"GC":  100,
				"MGC": 10,
			},
		},
		Alerts: AlertsConfig{
			Enabled:             true,
			DurationDefault:     60,
			DurationWarning:     180,
			DurationCritical:    360,
			MinIntervalSecs:     600,
			MinIntervalByLevel:  map[string]int{},
			OpenTradeNoticeMins: 10,
		},
		Refresh: RefreshConfig{
			IntervalSecs: 10,
		},
		Analysis: AnalysisConfig{
			IntervalStatsMins: 5,
		},
		Redis: RedisConfig{
			Enabled:   false,
			Host:      "localhost",
			Port:      6379,
			DB:        0,
			KeyPrefix: "tradestats:",
			Queue:     "alerts",
		},
		Tracing: TracingConfig{
			ServiceName: "tradestats",
		},
	}
}

// SaveConfigToFile 将配置保存到文件（不包含Redis密码）
func SaveConfigToFile(config *Config, filePath string) error {
	v := viper.New()
	v.SetConfigFile(filePath)

	configMap := map[string]interface{}{
		"logs": map[string]interface{}{
			"level":        config.Logs.Level,
			"dir":          config.Logs.Dir,
			"input_dir":    config.Logs.InputDir,
			"file_pattern": config.Logs.FilePattern,
		},
		"contracts": map[string]interface{}{
			"default_value": config.Contracts.DefaultValue,
			"values":        config.Contracts.Values,
		},
		"alerts": map[string]interface{}{
			"enabled":                config.Alerts.Enabled,
			"duration_default":       config.Alerts.DurationDefault,
			"duration_warning":       config.Alerts.DurationWarning,
			"duration_critical":      config.Alerts.DurationCritical,
			"min_interval_secs":      config.Alerts.MinIntervalSecs,
			"min_interval_by_level":  config.Alerts.MinIntervalByLevel,
			"open_trade_notice_mins": config.Alerts.OpenTradeNoticeMins,
			"rules_path":             config.Alerts.RulesPath,
			"strict_enabled":         config.Alerts.StrictEnabled,
		},
		"refresh": map[string]interface{}{
			"interval_secs": config.Refresh.IntervalSecs,
		},
		"analysis": map[string]interface{}{
			"interval_stats_print":      config.Analysis.IntervalStatsPrint,
			"interval_stats_mins":       config.Analysis.IntervalStatsMins,
			"streak_follow_trade_print": config.Analysis.StreakFollowTradePrint,
		},
		"redis": map[string]interface{}{
			"enabled":    config.Redis.Enabled,
			"host":       config.Redis.Host,
			"port":       config.Redis.Port,
			"db":         config.Redis.DB,
			"key_prefix": config.Redis.KeyPrefix,
			"queue":      config.Redis.Queue,
			"priority":   config.Redis.Priority,
		},
		"metrics": map[string]interface{}{
			"textfile_path": config.Metrics.TextfilePath,
		},
		"tracing": map[string]interface{}{
			"enabled":      config.Tracing.Enabled,
			"service_name": config.Tracing.ServiceName,
		},
	}

	for k, val := range configMap {
		v.Set(k, val)
	}

	// 写入文件
	return v.WriteConfigAs(filePath)
}
