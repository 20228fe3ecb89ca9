package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"
)

// Config 聚合了系统运行所需的全部配置项。
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Scan     ScanConfig     `mapstructure:"scan"`
	Risk     RiskConfig     `mapstructure:"risk"`
	OSINT    OSINTConfig    `mapstructure:"osint"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Composio ComposioConfig `mapstructure:"composio"`
	Stripe   StripeConfig   `mapstructure:"stripe"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// AppConfig 控制应用级参数。
type AppConfig struct {
	Environment string `mapstructure:"environment"`
}

// HTTPConfig 描述对外 API 服务。
type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// ScanConfig 控制风险上下文的刷新节奏。
type ScanConfig struct {
	Interval       time.Duration `mapstructure:"interval"`
	RefreshTimeout time.Duration `mapstructure:"refresh_timeout"`
	InitialScan    bool          `mapstructure:"initial_scan"`
}

// RiskConfig 管理贷款分类阈值。
type RiskConfig struct {
	HighBalance     float64  `mapstructure:"high_balance"`
	ModerateBalance float64  `mapstructure:"moderate_balance"`
	ScoreThreshold  int      `mapstructure:"score_threshold"`
	RiskySectors    []string `mapstructure:"risky_sectors"`
}

// OSINTConfig 描述搜索服务与扫描主题。
type OSINTConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond int           `mapstructure:"requests_per_second"`
	MaxRetryElapsed   time.Duration `mapstructure:"max_retry_elapsed"`
	ResultsPerTopic   int           `mapstructure:"results_per_topic"`
	Topics            []TopicConfig `mapstructure:"topics"`
}

// TopicConfig 是一个扫描主题，Sector 为空表示只参与全局评分。
type TopicConfig struct {
	Query  string `mapstructure:"query"`
	Sector string `mapstructure:"sector"`
}

// OpenAIConfig 描述大模型调用参数。
type OpenAIConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ComposioConfig 描述 Xero / QuickBooks 数据抽取所用的 Composio 服务。
type ComposioConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// StripeConfig 描述 Stripe 数据抽取。
type StripeConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// NotifyConfig 控制风险上下文变更通知。
type NotifyConfig struct {
	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	Channel       string `mapstructure:"channel"`
}

// DatabaseConfig 管理事件日志所用的 SQLite 连接。
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	InMemory        bool          `mapstructure:"in_memory"`
}

// LoggingConfig 控制日志输出。
type LoggingConfig struct {
	Level            string   `mapstructure:"level"`
	Encoding         string   `mapstructure:"encoding"`
	Development      bool     `mapstructure:"development"`
	OutputPaths      []string `mapstructure:"output_paths"`
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
}

// Validate 对配置进行基本校验。
func (c *Config) Validate() error {
	var err error

	if c.App.Environment == "" {
		err = multierr.Append(err, errors.New("app.environment 不能为空"))
	}
	if c.HTTP.Addr == "" {
		err = multierr.Append(err, errors.New("http.addr 不能为空"))
	}
	if c.HTTP.ReadTimeout <= 0 || c.HTTP.WriteTimeout <= 0 {
		err = multierr.Append(err, errors.New("http 读写超时必须大于0"))
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		err = multierr.Append(err, errors.New("http.shutdown_timeout 必须大于0"))
	}
	if c.Scan.Interval <= 0 {
		err = multierr.Append(err, errors.New("scan.interval 必须大于0"))
	}
	if c.Scan.RefreshTimeout <= 0 {
		err = multierr.Append(err, errors.New("scan.refresh_timeout 必须大于0"))
	}
	if c.Scan.RefreshTimeout > c.Scan.Interval {
		err = multierr.Append(err, errors.New("scan.refresh_timeout 不应大于 scan.interval"))
	}
	if c.Risk.HighBalance <= 0 || c.Risk.ModerateBalance <= 0 {
		err = multierr.Append(err, errors.New("risk 余额阈值必须大于0"))
	}
	if c.Risk.ModerateBalance >= c.Risk.HighBalance {
		err = multierr.Append(err, errors.New("risk.moderate_balance 必须小于 high_balance"))
	}
	if c.Risk.ScoreThreshold < 0 || c.Risk.ScoreThreshold > 100 {
		err = multierr.Append(err, errors.New("risk.score_threshold 必须位于[0,100]"))
	}
	if c.OSINT.BaseURL == "" {
		err = multierr.Append(err, errors.New("osint.base_url 不能为空"))
	}
	if c.OSINT.Timeout <= 0 {
		err = multierr.Append(err, errors.New("osint.timeout 必须大于0"))
	}
	if c.OSINT.RequestsPerSecond <= 0 {
		err = multierr.Append(err, errors.New("osint.requests_per_second 必须大于0"))
	}
	if c.OSINT.ResultsPerTopic <= 0 {
		err = multierr.Append(err, errors.New("osint.results_per_topic 必须大于0"))
	}
	if len(c.OSINT.Topics) == 0 {
		err = multierr.Append(err, errors.New("osint.topics 至少包含一个主题"))
	}
	for i, topic := range c.OSINT.Topics {
		if strings.TrimSpace(topic.Query) == "" {
			err = multierr.Append(err, fmt.Errorf("osint.topics[%d].query 不能为空", i))
		}
	}
	if c.OpenAI.APIKey != "" && c.OpenAI.Model == "" {
		err = multierr.Append(err, errors.New("openai.model 不能为空"))
	}
	if c.OpenAI.Timeout <= 0 {
		err = multierr.Append(err, errors.New("openai.timeout 必须大于0"))
	}
	if c.Composio.APIKey != "" && c.Composio.BaseURL == "" {
		err = multierr.Append(err, errors.New("composio.base_url 不能为空"))
	}
	if c.Notify.RedisAddr != "" && c.Notify.Channel == "" {
		err = multierr.Append(err, errors.New("notify.channel 不能为空"))
	}
	if c.Database.Path == "" && !c.Database.InMemory {
		err = multierr.Append(err, errors.New("database.path 不能为空"))
	}
	if c.Database.MaxOpenConns <= 0 {
		err = multierr.Append(err, errors.New("database.max_open_conns 必须大于0"))
	}
	if c.Database.MaxIdleConns < 0 {
		err = multierr.Append(err, errors.New("database.max_idle_conns 不能为负"))
	}
	if c.Logging.Level == "" {
		err = multierr.Append(err, errors.New("logging.level 不能为空"))
	}
	if c.Logging.Encoding == "" {
		err = multierr.Append(err, errors.New("logging.encoding 不能为空"))
	}
	if len(c.Logging.OutputPaths) == 0 {
		err = multierr.Append(err, errors.New("logging.output_paths 至少包含一个输出目标"))
	}

	if err != nil {
		return fmt.Errorf("配置校验失败: %w", err)
	}

	return nil
}
