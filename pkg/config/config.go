// Package config loads run configuration from file, environment and defaults.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"rfm-segments/pkg/calculator"
	"rfm-segments/pkg/logging"
	"rfm-segments/pkg/models"
)

// EnvPrefix prefixes every environment override, e.g. RFM_SOURCE_DSN.
const EnvPrefix = "RFM"

// DefaultReferenceDate is the day after the last invoice of Online Retail II.
const DefaultReferenceDate = "2011-12-11"

// Source kinds
const (
	KindCSV      = "csv"
	KindXLSX     = "xlsx"
	KindMySQL    = "mysql"
	KindPostgres = "postgres"
)

// Config holds all run configuration
type Config struct {
	ReferenceDate time.Time `validate:"required"`
	Source        SourceConfig
	Export        ExportConfig
	Log           logging.Config
	Server        ServerConfig
}

// SourceConfig describes where order lines are read from
type SourceConfig struct {
	Kind      string `validate:"omitempty,oneof=csv xlsx mysql postgres"`
	Path      string
	Sheet     string
	Encoding  string `validate:"omitempty,oneof=utf-8 utf8 latin1 latin-1 iso-8859-1 windows-1252 cp1252"`
	Delimiter string `validate:"omitempty,len=1"`
	DSN       string
	Table     string
	Progress  bool
}

// ExportConfig holds export settings
type ExportConfig struct {
	Segments []string `validate:"dive,required"`
	Output   string   `validate:"required"` // directory or s3://bucket/prefix
	S3       S3Config
}

// S3Config holds S3-compatible storage settings for s3:// outputs
type S3Config struct {
	Region       string
	Endpoint     string // empty = AWS
	AccessKey    string // empty = default credential chain
	SecretKey    string
	UsePathStyle bool
}

// ServerConfig holds HTTP service settings
type ServerConfig struct {
	Addr        string `validate:"required"`
	MaxBodySize int64  `validate:"gt=0"`
}

// ResolvedKind returns Kind, or infers it from the DSN scheme or file extension.
func (s SourceConfig) ResolvedKind() string {
	if s.Kind != "" {
		return s.Kind
	}
	if s.DSN != "" {
		if strings.HasPrefix(s.DSN, "postgres://") || strings.HasPrefix(s.DSN, "postgresql://") {
			return KindPostgres
		}
		return KindMySQL
	}
	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".xlsx", ".xlsm":
		return KindXLSX
	}
	return KindCSV
}

// Load loads configuration from an optional file and environment variables.
// Priority (highest to lowest):
// 1. Environment variables with RFM_ prefix (e.g., RFM_REFERENCE_DATE)
// 2. the config file (path, or ./rfm.{toml,yaml,json} when path is empty)
// 3. Built-in defaults
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		v.SetConfigName("rfm")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	refRaw := v.GetString("reference_date")
	if refRaw == "" {
		refRaw = DefaultReferenceDate
	}
	ref, err := calculator.ParseReferenceDate(refRaw)
	if err != nil {
		return nil, fmt.Errorf("reference_date: %w", err)
	}

	cfg := &Config{
		ReferenceDate: ref,
		Source: SourceConfig{
			Kind:      v.GetString("source.kind"),
			Path:      v.GetString("source.path"),
			Sheet:     v.GetString("source.sheet"),
			Encoding:  v.GetString("source.encoding"),
			Delimiter: v.GetString("source.delimiter"),
			DSN:       v.GetString("source.dsn"),
			Table:     v.GetString("source.table"),
			Progress:  v.GetBool("source.progress"),
		},
		Export: ExportConfig{
			Segments: SplitList(v.GetStringSlice("export.segments")),
			Output:   v.GetString("export.output"),
			S3: S3Config{
				Region:       v.GetString("export.s3.region"),
				Endpoint:     v.GetString("export.s3.endpoint"),
				AccessKey:    v.GetString("export.s3.access_key"),
				SecretKey:    v.GetString("export.s3.secret_key"),
				UsePathStyle: v.GetBool("export.s3.use_path_style"),
			},
		},
		Log: logging.Config{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Server: ServerConfig{
			Addr:        v.GetString("server.addr"),
			MaxBodySize: v.GetInt64("server.max_body_size"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.Source.Sheet == "" {
		cfg.Source.Sheet = "Year 2010-2011"
	}
	if cfg.Source.Table == "" {
		cfg.Source.Table = "online_retail"
	}
	if len(cfg.Export.Segments) == 0 {
		cfg.Export.Segments = []string{string(models.SegmentLoyalCustomers)}
	}
	if cfg.Export.Output == "" {
		cfg.Export.Output = "."
	}
	if cfg.Export.S3.Region == "" {
		cfg.Export.S3.Region = "us-east-1"
	}
	def := logging.DefaultConfig()
	if cfg.Log.Level == "" {
		cfg.Log.Level = def.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = def.Format
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = def.Output
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = 64 << 20
	}
}

var validate = validator.New()

// Validate checks struct constraints and segment names.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	for _, name := range c.Export.Segments {
		if _, ok := models.ParseSegment(name); !ok {
			return fmt.Errorf("invalid configuration: unknown segment %q", name)
		}
	}
	return nil
}

// SplitList flattens comma-separated entries: ["a,b", "c"] → ["a", "b", "c"].
func SplitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
