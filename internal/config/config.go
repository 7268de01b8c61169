package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env             string        `mapstructure:"ENV"`
	Port            string        `mapstructure:"PORT"`
	DatabaseURL     string        `mapstructure:"DATABASE_URL"`
	AdminKey        string        `mapstructure:"ADMIN_KEY"`
	CronSecret      string        `mapstructure:"CRON_SECRET"`
	AnthropicAPIKey string        `mapstructure:"ANTHROPIC_API_KEY"`
	AIModel         string        `mapstructure:"AI_MODEL"`
	ExportURL       string        `mapstructure:"EXPORT_URL"`
	ExportDir       string        `mapstructure:"EXPORT_DIR"`
	SlackToken      string        `mapstructure:"SLACK_BOT_TOKEN"`
	SlackChannel    string        `mapstructure:"SLACK_CHANNEL_ID"`
	TaxonomyPath    string        `mapstructure:"TAXONOMY_PATH"`
	CORSAllowed     string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	JobTimeout      time.Duration `mapstructure:"JOB_TIMEOUT"`
	ItemDelay       time.Duration `mapstructure:"ITEM_DELAY"`
	TaggingBatch    int           `mapstructure:"TAGGING_BATCH_SIZE"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	TaggingCron     string        `mapstructure:"TAGGING_CRON"`
	InsightsCron    string        `mapstructure:"INSIGHTS_CRON"`
	ExportCron      string        `mapstructure:"EXPORT_CRON"`
}

func Load() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("JOB_TIMEOUT", "25s")
	v.SetDefault("ITEM_DELAY", "500ms")
	v.SetDefault("TAGGING_BATCH_SIZE", 50)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("AI_MODEL", "claude-sonnet-4-5-20250929")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
