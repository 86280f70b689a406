package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Ingest      IngestConfig      `yaml:"ingest" mapstructure:"ingest"`
	ObjectStore ObjectStoreConfig `yaml:"objectstore" mapstructure:"objectstore"`
	ETL         ETLConfig         `yaml:"etl" mapstructure:"etl"`
	Monitoring  MonitoringConfig  `yaml:"monitoring" mapstructure:"monitoring"`
	Server      ServerConfig      `yaml:"server" mapstructure:"server"`
	Log         LogConfig         `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the structured store backend.
type StoreConfig struct {
	Driver      string     `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string     `yaml:"database_url" mapstructure:"database_url"`
	Pool        PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// IngestConfig configures the file ingestion core.
type IngestConfig struct {
	Bucket             string `yaml:"bucket" mapstructure:"bucket"`
	Prefix             string `yaml:"prefix" mapstructure:"prefix"`
	Suffix             string `yaml:"suffix" mapstructure:"suffix"`
	BaseTable          string `yaml:"base_table" mapstructure:"base_table"`
	ArchiveTable       string `yaml:"archive_table" mapstructure:"archive_table"`
	LedgerTable        string `yaml:"ledger_table" mapstructure:"ledger_table"`
	MaxConcurrentFiles int    `yaml:"max_concurrent_files" mapstructure:"max_concurrent_files"`
	ProfilesPath       string `yaml:"profiles_path" mapstructure:"profiles_path"`
}

// ObjectStoreConfig configures where raw log files are fetched from.
type ObjectStoreConfig struct {
	Driver      string  `yaml:"driver" mapstructure:"driver"`
	Root        string  `yaml:"root" mapstructure:"root"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries" mapstructure:"max_retries"`
	RateLimit   float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// ETLConfig configures the scheduled bulk SQL transform.
type ETLConfig struct {
	ScriptPath string `yaml:"script_path" mapstructure:"script_path"`
}

// MonitoringConfig configures the pipeline health check.
type MonitoringConfig struct {
	WebhookURL        string `yaml:"webhook_url" mapstructure:"webhook_url"`
	CheckIntervalSecs int    `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
	LookbackHours     int    `yaml:"lookback_hours" mapstructure:"lookback_hours"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("FTPLOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.pool.max_conns", 10)
	v.SetDefault("store.pool.min_conns", 2)
	v.SetDefault("ingest.prefix", "logs")
	v.SetDefault("ingest.suffix", ".json")
	v.SetDefault("ingest.base_table", "base_ftplog")
	v.SetDefault("ingest.archive_table", "archive_ftplog")
	v.SetDefault("ingest.ledger_table", "processed_files")
	v.SetDefault("ingest.max_concurrent_files", 4)
	v.SetDefault("objectstore.driver", "fs")
	v.SetDefault("objectstore.timeout_secs", 30)
	v.SetDefault("objectstore.max_retries", 3)
	v.SetDefault("objectstore.rate_limit", 10)
	v.SetDefault("etl.script_path", "etl_sql.sql")
	v.SetDefault("monitoring.check_interval_secs", 300)
	v.SetDefault("monitoring.lookback_hours", 24)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
