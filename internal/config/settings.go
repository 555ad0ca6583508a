package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override (REQPROC_WORKERS, ...)
const EnvPrefix = "reqproc"

// Setting keys. Flags use the same names with dashes.
const (
	KeyResponseSize   = "response_size"
	KeyRequests       = "requests"
	KeyWorkers        = "workers"
	KeyDrainTimeout   = "drain_timeout"
	KeyOutput         = "output"
	KeyHistory        = "history"
	KeyDatabase       = "database"
	KeyMetricsFile    = "metrics_file"
	KeyLogLevel       = "log_level"
	KeyLogDevelopment = "log_development"
	KeyNoTUI          = "no_tui"
)

const (
	DefaultOutput       = "response_times.txt"
	DefaultDrainTimeout = 5 * time.Second
	DefaultLogLevel     = "info"
)

var allKeys = []string{
	KeyResponseSize, KeyRequests, KeyWorkers, KeyDrainTimeout, KeyOutput, KeyHistory,
	KeyDatabase, KeyMetricsFile, KeyLogLevel, KeyLogDevelopment, KeyNoTUI,
}

// ErrInvalidSettings is returned when loaded settings fail validation
var ErrInvalidSettings = errors.New("invalid settings")

// Settings holds everything a pipeline run is configured with
type Settings struct {
	ResponseSize   int           `mapstructure:"response_size" validate:"gt=0"`
	Requests       int           `mapstructure:"requests" validate:"gt=0"`
	Workers        int           `mapstructure:"workers" validate:"gt=0,lte=10000"`
	DrainTimeout   time.Duration `mapstructure:"drain_timeout" validate:"gt=0"`
	Output         string        `mapstructure:"output" validate:"required"`
	History        bool          `mapstructure:"history"`
	Database       string        `mapstructure:"database" validate:"required_if=History true"`
	MetricsFile    string        `mapstructure:"metrics_file"`
	LogLevel       string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogDevelopment bool          `mapstructure:"log_development"`
	NoTUI          bool          `mapstructure:"no_tui"`
}

// FlagName returns the command line flag bound to a setting key
func FlagName(key string) string {
	return strings.ReplaceAll(key, "_", "-")
}

// SetDefaults registers the default value of every optional setting.
// Response size, request count and worker count have no default.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyResponseSize, 0)
	v.SetDefault(KeyRequests, 0)
	v.SetDefault(KeyWorkers, 0)
	v.SetDefault(KeyDrainTimeout, DefaultDrainTimeout)
	v.SetDefault(KeyOutput, DefaultOutput)
	v.SetDefault(KeyHistory, true)
	v.SetDefault(KeyDatabase, DatabasePath)
	v.SetDefault(KeyMetricsFile, "")
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyLogDevelopment, false)
	v.SetDefault(KeyNoTUI, false)
}

// Load resolves settings with precedence flags > environment > config file > defaults.
// configFile may be empty; a missing file is an error only when it was named explicitly.
func Load(v *viper.Viper, flags *pflag.FlagSet, configFile string) (*Settings, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.AllowEmptyEnv(false)
	v.AutomaticEnv()

	if flags != nil {
		for _, key := range allKeys {
			if flag := flags.Lookup(FlagName(key)); flag != nil {
				if err := v.BindPFlag(key, flag); err != nil {
					return nil, fmt.Errorf("failed to bind flag %s: %w", flag.Name, err)
				}
			}
		}
	}

	if err := readConfigFile(v, configFile); err != nil {
		return nil, err
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	s.LogLevel = strings.ToLower(s.LogLevel)

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func readConfigFile(v *viper.Viper, configFile string) error {
	explicit := configFile != ""
	if !explicit {
		configFile = LocalConfigFile()
		if configFile == "" {
			return nil
		}
		if _, err := os.Stat(configFile); err != nil {
			return nil
		}
	}

	v.SetConfigFile(configFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}
	return nil
}

// Validate checks field constraints and reports every violation by setting name
func (s *Settings) Validate() error {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		return FlagName(field.Tag.Get("mapstructure"))
	})

	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}

	messages := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		messages = append(messages, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalidSettings, strings.Join(messages, "; "))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "gt":
		return fmt.Sprintf("--%s must be greater than %s (got %v)", fe.Field(), fe.Param(), fe.Value())
	case "lte":
		return fmt.Sprintf("--%s must be at most %s (got %v)", fe.Field(), fe.Param(), fe.Value())
	case "oneof":
		return fmt.Sprintf("--%s must be one of [%s] (got %q)", fe.Field(), fe.Param(), fe.Value())
	case "required", "required_if":
		return fmt.Sprintf("--%s is required", fe.Field())
	default:
		return fmt.Sprintf("--%s failed %s validation", fe.Field(), fe.Tag())
	}
}
