package config

import (
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/exoplanet-cli/internal/normalize"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	API       APIConfig       `yaml:"api" mapstructure:"api"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch"`
	Normalize NormalizeConfig `yaml:"normalize" mapstructure:"normalize"`
	Ranking   RankingConfig   `yaml:"ranking" mapstructure:"ranking"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// APIConfig is the fallback prediction endpoint used until settings are
// saved in the store.
type APIConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	DataPath    string `yaml:"data_path" mapstructure:"data_path"`
	PredictPath string `yaml:"predict_path" mapstructure:"predict_path"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxAttempts int    `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// FetchConfig configures remote dataset downloads.
type FetchConfig struct {
	UserAgent   string `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	MaxRetries  int    `yaml:"max_retries" mapstructure:"max_retries"`
	FTPUser     string `yaml:"ftp_user" mapstructure:"ftp_user"`
	FTPPassword string `yaml:"ftp_password" mapstructure:"ftp_password"`
}

// NormalizeConfig selects the column schema and batch sizing.
type NormalizeConfig struct {
	Dialect    string `yaml:"dialect" mapstructure:"dialect"`
	SchemaFile string `yaml:"schema_file" mapstructure:"schema_file"`
	Workers    int    `yaml:"workers" mapstructure:"workers"`
	ChunkSize  int    `yaml:"chunk_size" mapstructure:"chunk_size"`
}

// RankingConfig configures feature ranking.
type RankingConfig struct {
	Target     string   `yaml:"target" mapstructure:"target"`
	Features   []string `yaml:"features" mapstructure:"features"`
	MinSamples int      `yaml:"min_samples" mapstructure:"min_samples"`
	Mode       string   `yaml:"mode" mapstructure:"mode"` // raw or canonical
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Ranking modes.
const (
	RankModeRaw       = "raw"
	RankModeCanonical = "canonical"
)

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("EXOPLANET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "exoplanet.db")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("api.base_url", "")
	v.SetDefault("api.data_path", "/predictions")
	v.SetDefault("api.predict_path", "/predict")
	v.SetDefault("api.timeout_secs", 30)
	v.SetDefault("api.max_attempts", 3)
	v.SetDefault("fetch.user_agent", "exoplanet-cli/1.0")
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("fetch.ftp_user", "")
	v.SetDefault("fetch.ftp_password", "")
	v.SetDefault("normalize.dialect", "default")
	v.SetDefault("normalize.schema_file", "")
	v.SetDefault("normalize.workers", 4)
	v.SetDefault("normalize.chunk_size", 2048)
	v.SetDefault("ranking.target", "predicted_label")
	v.SetDefault("ranking.features", []string{})
	v.SetDefault("ranking.min_samples", 10)
	v.SetDefault("ranking.mode", RankModeRaw)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{
		"http://localhost", "http://localhost:*", "http://127.0.0.1", "http://127.0.0.1:*",
	})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks the settings a command mode depends on. Modes: normalize,
// rank, store, serve.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "normalize":
		errs = c.validateNormalize(errs)
	case "rank":
		errs = c.validateNormalize(errs)
		errs = c.validateRanking(errs)
	case "store":
		errs = c.validateStore(errs)
	case "serve":
		errs = c.validateNormalize(errs)
		errs = c.validateRanking(errs)
		errs = c.validateStore(errs)
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, "server.port must be between 1 and 65535")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateNormalize(errs []string) []string {
	if c.Normalize.SchemaFile == "" && !slices.Contains(normalize.Dialects(), c.Normalize.Dialect) {
		errs = append(errs, "normalize.dialect must be one of "+strings.Join(normalize.Dialects(), ", "))
	}
	if c.Normalize.Workers < 0 {
		errs = append(errs, "normalize.workers must be >= 0")
	}
	if c.Normalize.ChunkSize < 0 {
		errs = append(errs, "normalize.chunk_size must be >= 0")
	}
	return errs
}

func (c *Config) validateRanking(errs []string) []string {
	if strings.TrimSpace(c.Ranking.Target) == "" {
		errs = append(errs, "ranking.target is required")
	}
	if c.Ranking.MinSamples < 1 {
		errs = append(errs, "ranking.min_samples must be >= 1")
	}
	if c.Ranking.Mode != RankModeRaw && c.Ranking.Mode != RankModeCanonical {
		errs = append(errs, "ranking.mode must be raw or canonical")
	}
	return errs
}

func (c *Config) validateStore(errs []string) []string {
	switch c.Store.Driver {
	case "sqlite", "postgres":
	default:
		return append(errs, "store.driver must be sqlite or postgres")
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	return errs
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
