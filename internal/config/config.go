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
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
	Fixtures FixturesConfig `yaml:"fixtures" mapstructure:"fixtures"`
	Snapshot SnapshotConfig `yaml:"snapshot" mapstructure:"snapshot"`
	Export   ExportConfig   `yaml:"export" mapstructure:"export"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// FixturesConfig names the default fixture sources. Each entry may be a
// local path or an http(s) URL; the built-up layers may also be .shp paths.
type FixturesConfig struct {
	Crosswalk   string `yaml:"crosswalk" mapstructure:"crosswalk"`
	BuiltUpT    string `yaml:"built_up_t" mapstructure:"built_up_t"`
	BuiltUpTN   string `yaml:"built_up_tn" mapstructure:"built_up_tn"`
	AdminUnit   string `yaml:"admin_unit" mapstructure:"admin_unit"`
	Populations string `yaml:"populations" mapstructure:"populations"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// SnapshotConfig configures the local snapshot database.
type SnapshotConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// ExportConfig configures record export.
type ExportConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CROSSWALK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("fixtures.crosswalk", "fixtures/crosswalk.v1.json")
	v.SetDefault("fixtures.built_up_t", "fixtures/built_up_t.geojson")
	v.SetDefault("fixtures.built_up_tn", "fixtures/built_up_tn.geojson")
	v.SetDefault("fixtures.admin_unit", "fixtures/admin_unit.geojson")
	v.SetDefault("fixtures.populations", "fixtures/populations.json")
	v.SetDefault("fixtures.timeout_secs", 30)
	v.SetDefault("snapshot.path", "crosswalk.db")
	v.SetDefault("export.dir", ".")

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

// Validate checks the configuration for a command mode.
func (c *Config) Validate(mode string) error {
	switch mode {
	case "serve":
		if c.Server.Port <= 0 {
			return eris.New("config: server.port must be > 0")
		}
	case "snapshot":
		if c.Snapshot.Path == "" {
			return eris.New("config: snapshot.path is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}
	if c.Fixtures.TimeoutSecs <= 0 {
		return eris.New("config: fixtures.timeout_secs must be > 0")
	}
	return nil
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
