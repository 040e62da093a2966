package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

// Settings is the runtime configuration assembled from defaults, the optional
// config file and BRIDGEDAYS_* environment variables.
type Settings struct {
	Server   ServerSettings   `mapstructure:"server"`
	Defaults DefaultSettings  `mapstructure:"defaults"`
	Analyzer AnalyzerSettings `mapstructure:"analyzer"`
	Years    YearSettings     `mapstructure:"years"`
	Log      LogSettings      `mapstructure:"log"`
	Table    TableSettings    `mapstructure:"table"`
	Publish  PublishSettings  `mapstructure:"publish"`
}

// ServerSettings configures the HTTP web tool.
type ServerSettings struct {
	Bind string `mapstructure:"bind"`
	Port int    `mapstructure:"port"`
}

// DefaultSettings holds the selection used when a request names none.
type DefaultSettings struct {
	Canton   string `mapstructure:"canton"`
	Year     int    `mapstructure:"year"` // 0 means the current year
	Language string `mapstructure:"language"`
}

// AnalyzerSettings tunes the bridge-day analyzer.
type AnalyzerSettings struct {
	MaxVacationDays int `mapstructure:"max_vacation_days"`
}

// YearSettings bounds the years accepted by the holiday table.
type YearSettings struct {
	Min int `mapstructure:"min"`
	Max int `mapstructure:"max"`
}

// LogSettings configures zap.
type LogSettings struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"` // empty means <cache dir>/app.log
}

// TableSettings selects where the holiday table comes from.
type TableSettings struct {
	Source string `mapstructure:"source"` // embedded, local or web
	Path   string `mapstructure:"path"`
	URL    string `mapstructure:"url"`
}

// PublishSettings configures the S3 sink used by the publish command.
type PublishSettings struct {
	Bucket  string `mapstructure:"bucket"`
	Region  string `mapstructure:"region"`
	Prefix  string `mapstructure:"prefix"`
	Profile string `mapstructure:"profile"`
}

// NewViper returns a viper instance with every default registered and
// environment lookup enabled.
func NewViper() *viper.Viper {
	v := viper.New()

	v.SetDefault(KeyServerBind, DefaultBind)
	v.SetDefault(KeyServerPort, DefaultPort)
	v.SetDefault(KeyDefaultCanton, DefaultCanton)
	v.SetDefault(KeyDefaultYear, 0)
	v.SetDefault(KeyDefaultLanguage, DefaultLanguage)
	v.SetDefault(KeyMaxVacationDays, DefaultMaxVacationDays)
	v.SetDefault(KeyYearsMin, DefaultMinYear)
	v.SetDefault(KeyYearsMax, DefaultMaxYear)
	v.SetDefault(KeyLogLevel, DefaultLogLevel)
	v.SetDefault(KeyLogFile, "")
	v.SetDefault(KeyTableSource, TableSourceEmbedded)
	v.SetDefault(KeyTablePath, "")
	v.SetDefault(KeyTableURL, "")
	v.SetDefault(KeyPublishBucket, "")
	v.SetDefault(KeyPublishRegion, "")
	v.SetDefault(KeyPublishPrefix, "")
	v.SetDefault(KeyPublishProfile, "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// Load reads the configuration. An explicit path must exist; without one the
// standard locations are searched and a missing file falls back to defaults.
// The second return value reports whether a file was read.
func Load(v *viper.Viper, path string) (*Settings, bool, error) {
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(ConfigFileName)
		v.SetConfigType(ConfigFileType)
		v.AddConfigPath(".")
		v.AddConfigPath(ConfigDirHome)
		v.AddConfigPath(ConfigDirEtc)
	}

	fromFile := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, false, fmt.Errorf("%s: %w", ErrConfigRead, err)
		}
		fromFile = false
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, false, fmt.Errorf("%s: %w", ErrConfigDecode, err)
	}
	s.Defaults.Canton = strings.ToUpper(strings.TrimSpace(s.Defaults.Canton))
	s.Defaults.Language = strings.ToLower(strings.TrimSpace(s.Defaults.Language))

	if err := s.Validate(); err != nil {
		return nil, false, fmt.Errorf("%s: %w", ErrConfigInvalid, err)
	}
	return &s, fromFile, nil
}

// Validate checks the cross-field constraints viper cannot express.
func (s *Settings) Validate() error {
	if s.Server.Port < MinPort || s.Server.Port > MaxPort {
		return errors.New(ErrPortRange)
	}
	if s.Analyzer.MaxVacationDays <= 0 || s.Analyzer.MaxVacationDays > MaxVacationDaysLimit {
		return fmt.Errorf("%s: %d (supported 1-%d)", ErrMaxDaysRange, s.Analyzer.MaxVacationDays, MaxVacationDaysLimit)
	}
	if s.Years.Min < DefaultMinYear || s.Years.Max > DefaultMaxYear || s.Years.Min > s.Years.Max {
		return fmt.Errorf("%s: %d-%d (supported %d-%d)", ErrYearRange, s.Years.Min, s.Years.Max, DefaultMinYear, DefaultMaxYear)
	}
	if !slices.Contains(SupportedLanguages, s.Defaults.Language) {
		return fmt.Errorf("%s: %q", ErrLanguage, s.Defaults.Language)
	}
	switch s.Table.Source {
	case TableSourceEmbedded, TableSourceLocal, TableSourceWeb:
	default:
		return fmt.Errorf("%s: %q", ErrSourceUnsupport, s.Table.Source)
	}
	return nil
}
