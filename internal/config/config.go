package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	defaultConfigPath = "configs/config.yaml"
	envPrefix         = "sentinel"
)

// Load 读取 .env、配置文件并结合环境变量返回 Config。
// 未显式指定路径且默认配置文件不存在时，仅使用默认值与环境变量。
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(envPrefix)
	replacer := strings.NewReplacer(".", "_")
	v.SetEnvKeyReplacer(replacer)
	v.AutomaticEnv()

	setDefaults(v)
	if err := bindLegacyEnv(v); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case !explicit && (errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)):
		case errors.As(err, &notFound), errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("未找到配置文件 %q: %w", path, err)
		default:
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.environment", "development")

	v.SetDefault("http.addr", ":8000")
	v.SetDefault("http.read_timeout", "15s")
	v.SetDefault("http.write_timeout", "90s")
	v.SetDefault("http.shutdown_timeout", "10s")

	v.SetDefault("scan.interval", "15m")
	v.SetDefault("scan.refresh_timeout", "60s")
	v.SetDefault("scan.initial_scan", true)

	v.SetDefault("risk.high_balance", 10_000_000)
	v.SetDefault("risk.moderate_balance", 5_000_000)
	v.SetDefault("risk.score_threshold", 70)
	v.SetDefault("risk.risky_sectors", []string{"energy", "currency", "sovereign debt"})

	v.SetDefault("osint.api_key", "")
	v.SetDefault("osint.base_url", "https://api.ydc-index.io")
	v.SetDefault("osint.timeout", "20s")
	v.SetDefault("osint.requests_per_second", 5)
	v.SetDefault("osint.max_retry_elapsed", "30s")
	v.SetDefault("osint.results_per_topic", 5)
	v.SetDefault("osint.topics", []map[string]interface{}{
		{"query": "sovereign debt default crisis", "sector": "sovereign debt"},
		{"query": "energy sanctions oil gas supply disruption", "sector": "energy"},
		{"query": "currency devaluation capital controls", "sector": "currency"},
		{"query": "geopolitical conflict escalation financial markets", "sector": ""},
	})

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4.1")
	v.SetDefault("openai.timeout", "30s")

	v.SetDefault("composio.api_key", "")
	v.SetDefault("composio.base_url", "https://backend.composio.dev")
	v.SetDefault("composio.timeout", "30s")

	v.SetDefault("stripe.api_key", "")

	v.SetDefault("notify.redis_addr", "")
	v.SetDefault("notify.redis_password", "")
	v.SetDefault("notify.redis_db", 0)
	v.SetDefault("notify.channel", "sentinel:risk_context")

	v.SetDefault("database.path", "data/sentinel.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "0s")
	v.SetDefault("database.in_memory", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.encoding", "console")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.output_paths", []string{"stdout"})
	v.SetDefault("logging.error_output_paths", []string{"stderr"})
}

// bindLegacyEnv 兼容部署环境中已有的无前缀密钥变量。
func bindLegacyEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"osint.api_key":    {"SENTINEL_OSINT_API_KEY", "YOU_API_KEY"},
		"openai.api_key":   {"SENTINEL_OPENAI_API_KEY", "OPENAI_API_KEY"},
		"composio.api_key": {"SENTINEL_COMPOSIO_API_KEY", "COMPOSIO_API_KEY"},
		"stripe.api_key":   {"SENTINEL_STRIPE_API_KEY", "STRIPE_API_KEY"},
		"app.environment":  {"SENTINEL_APP_ENVIRONMENT", "ENVIRONMENT"},
		"logging.level":    {"SENTINEL_LOGGING_LEVEL", "LOG_LEVEL"},
	}
	for key, envs := range bindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return fmt.Errorf("绑定环境变量 %s 失败: %w", key, err)
		}
	}
	return nil
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
