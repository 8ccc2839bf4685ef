// Package config loads application configuration from file and
// environment and installs the global logger.
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
	Boundary BoundaryConfig `yaml:"boundary" mapstructure:"boundary"`
	Fields   FieldsConfig   `yaml:"fields" mapstructure:"fields"`
	Geocode  GeocodeConfig  `yaml:"geocode" mapstructure:"geocode"`
	IO       IOConfig       `yaml:"io" mapstructure:"io"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// BoundaryConfig locates the TIGER boundary source and local cache.
type BoundaryConfig struct {
	CacheDir        string `yaml:"cache_dir" mapstructure:"cache_dir"`
	BaseURL         string `yaml:"base_url" mapstructure:"base_url"`
	StatesFilename  string `yaml:"states_filename" mapstructure:"states_filename"`
	ZipcodeFilename string `yaml:"zipcode_filename" mapstructure:"zipcode_filename"`
	TimeoutSecs     int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// FieldsConfig holds the requested-field spec per attribute group:
// "*" for all columns, "" to disable the group, or a comma-separated
// column list.
type FieldsConfig struct {
	State     string `yaml:"state" mapstructure:"state"`
	Zipcode   string `yaml:"zipcode" mapstructure:"zipcode"`
	Tract     string `yaml:"tract" mapstructure:"tract"`
	OnNoMatch string `yaml:"on_no_match" mapstructure:"on_no_match"`
}

// GeocodeConfig configures address resolution providers.
type GeocodeConfig struct {
	Provider     string  `yaml:"provider" mapstructure:"provider"`
	UserAgent    string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs  int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Retries      int     `yaml:"retries" mapstructure:"retries"`
	RatePerSec   float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	CachePath    string  `yaml:"cache_path" mapstructure:"cache_path"`
	CacheTTLDays int     `yaml:"cache_ttl_days" mapstructure:"cache_ttl_days"`
	NominatimURL string  `yaml:"nominatim_url" mapstructure:"nominatim_url"`
}

// IOConfig names the default input/output locations for batch runs.
type IOConfig struct {
	InputDir  string `yaml:"input_dir" mapstructure:"input_dir"`
	OutputDir string `yaml:"output_dir" mapstructure:"output_dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from config.yaml (optional) and the CENSUS_*
// environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CENSUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("boundary.cache_dir", "geodata/census")
	v.SetDefault("boundary.base_url", "https://www2.census.gov/geo/tiger/TIGER2020")
	v.SetDefault("boundary.states_filename", "tl_2020_us_state.zip")
	v.SetDefault("boundary.zipcode_filename", "tl_2020_us_zcta510.zip")
	v.SetDefault("boundary.timeout_secs", 600)
	v.SetDefault("fields.state", "STUSPS")
	v.SetDefault("fields.zipcode", "ZCTA5CE10")
	v.SetDefault("fields.tract", "")
	v.SetDefault("fields.on_no_match", "skip")
	v.SetDefault("geocode.provider", "nominatim")
	v.SetDefault("geocode.user_agent", "census-cli/1.0")
	v.SetDefault("geocode.timeout_secs", 5)
	v.SetDefault("geocode.retries", 5)
	v.SetDefault("geocode.rate_per_sec", 1)
	v.SetDefault("geocode.cache_path", "geodata/geocode.db")
	v.SetDefault("geocode.cache_ttl_days", 0)
	v.SetDefault("geocode.nominatim_url", "https://nominatim.openstreetmap.org")
	v.SetDefault("io.input_dir", ".")
	v.SetDefault("io.output_dir", ".")
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
