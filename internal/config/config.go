package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var configLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	configLogger = l
}

// Config represents the complete configuration structure
type Config struct {
	Site     SiteConfig     `yaml:"site"`
	Server   ServerConfig   `yaml:"server"`
	Theme    ThemeConfig    `yaml:"theme"`
	Editor   EditorConfig   `yaml:"editor"`
	Store    StoreConfig    `yaml:"store"`
	Features FeaturesConfig `yaml:"features"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type LoggingConfig struct {
	Level string `yaml:"level" default:"info"`
}

type SiteConfig struct {
	Name        string `yaml:"name" default:"Resumark"`
	Description string `yaml:"description" default:"Write, preview and share your resume in markdown"`
	Tagline     string `yaml:"tagline" default:"Your resume, in plain text"`
	BaseURL     string `yaml:"base_url" default:"http://localhost:12600"`
}

type ServerConfig struct {
	Host string `yaml:"host" default:"0.0.0.0"`
	Port string `yaml:"port" default:"12600"`
}

type ThemeConfig struct {
	Default            string       `yaml:"default" default:"light"`
	SyntaxHighlighting SyntaxConfig `yaml:"syntax_highlighting"`
}

type SyntaxConfig struct {
	DefaultDark  string `yaml:"default_dark" default:"gruvbox"`
	DefaultLight string `yaml:"default_light" default:"catppuccin-latte"`
}

// EditorConfig drives the editor session timers. Durations are in milliseconds.
type EditorConfig struct {
	AutosaveDelayMs        int `yaml:"autosave_delay_ms" default:"2000"`
	NotificationDurationMs int `yaml:"notification_duration_ms" default:"3000"`
	StoreTimeoutMs         int `yaml:"store_timeout_ms" default:"10000"`
	SessionIdleTimeoutMs   int `yaml:"session_idle_timeout_ms" default:"3600000"`
	PreviewCacheSize       int `yaml:"preview_cache_size" default:"1000"`
}

func (e EditorConfig) AutosaveDelay() time.Duration {
	return time.Duration(e.AutosaveDelayMs) * time.Millisecond
}

func (e EditorConfig) NotificationDuration() time.Duration {
	return time.Duration(e.NotificationDurationMs) * time.Millisecond
}

func (e EditorConfig) StoreTimeout() time.Duration {
	return time.Duration(e.StoreTimeoutMs) * time.Millisecond
}

func (e EditorConfig) SessionIdleTimeout() time.Duration {
	return time.Duration(e.SessionIdleTimeoutMs) * time.Millisecond
}

const (
	StoreSQLite = "sqlite"
	StoreS3     = "s3"
	StoreMemory = "memory"
)

type StoreConfig struct {
	Type   string       `yaml:"type" default:"sqlite"`
	SQLite SQLiteConfig `yaml:"sqlite"`
	S3     S3Config     `yaml:"s3"`
}

type SQLiteConfig struct {
	Path string `yaml:"path" default:"./resumes.db"`
}

// S3Config holds the non-secret bucket settings. Credentials come from the
// environment (S3_ACCESS_KEY_ID, S3_SECRET_ACCESS_KEY).
type S3Config struct {
	Bucket   string `yaml:"bucket" default:"resumes"`
	Endpoint string `yaml:"endpoint" default:""`
	Region   string `yaml:"region" default:"auto"`
	Prefix   string `yaml:"prefix" default:"resumes/"`
}

type FeaturesConfig struct {
	Authentication AuthConfig     `yaml:"authentication"`
	Comments       CommentsConfig `yaml:"comments"`
	SocialLogin    FeatureFlag    `yaml:"social_login"`
}

type AuthConfig struct {
	Enabled bool   `yaml:"enabled" default:"true"`
	Type    string `yaml:"type" default:"ed25519"`
}

type CommentsConfig struct {
	Enabled      bool `yaml:"enabled" default:"true"`
	MaxPerResume int  `yaml:"max_per_resume" default:"200"`
}

type FeatureFlag struct {
	Enabled bool `yaml:"enabled" default:"true"`
}

var AppConfig *Config

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func LoadConfig(path string) error {
	config := &Config{}

	// Apply default values first
	applyDefaults(config)

	data, err := os.ReadFile(path)
	if err != nil {
		configLogger.Info().Str("path", path).Msg("Config file not found, using defaults")
		AppConfig = config
		return nil
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid config file: %w", err)
	}

	AppConfig = config
	return nil
}

// Validate rejects values the editor and store layers cannot run with.
func (c *Config) Validate() error {
	switch c.Store.Type {
	case StoreSQLite, StoreS3, StoreMemory:
	default:
		return fmt.Errorf("unsupported store type %q", c.Store.Type)
	}

	if c.Editor.AutosaveDelayMs <= 0 {
		return fmt.Errorf("editor.autosave_delay_ms must be positive, got %d", c.Editor.AutosaveDelayMs)
	}
	if c.Editor.NotificationDurationMs <= 0 {
		return fmt.Errorf("editor.notification_duration_ms must be positive, got %d", c.Editor.NotificationDurationMs)
	}
	if c.Editor.StoreTimeoutMs <= 0 {
		return fmt.Errorf("editor.store_timeout_ms must be positive, got %d", c.Editor.StoreTimeoutMs)
	}

	return nil
}

func ApplyDefaults(config interface{}) {
	applyDefaults(config)
}

func applyDefaults(config interface{}) {
	v := reflect.ValueOf(config)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}

	if v.Kind() != reflect.Struct {
		return
	}

	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.IsValid() || !field.CanSet() {
			continue
		}

		// Recursively apply defaults to nested structs
		if field.Kind() == reflect.Struct {
			applyDefaults(field.Addr().Interface())
			continue
		}

		defaultValue := fieldType.Tag.Get("default")
		if defaultValue == "" {
			continue
		}

		switch field.Kind() {
		case reflect.String:
			field.SetString(defaultValue)
		case reflect.Bool:
			if val, err := strconv.ParseBool(defaultValue); err == nil {
				field.SetBool(val)
			}
		case reflect.Int:
			if val, err := strconv.ParseInt(defaultValue, 10, 64); err == nil {
				field.SetInt(val)
			}
		case reflect.Float64:
			if val, err := strconv.ParseFloat(defaultValue, 64); err == nil {
				field.SetFloat(val)
			}
		case reflect.Slice:
			if field.Len() == 0 && field.Type().Elem().Kind() == reflect.String {
				parts := strings.Split(defaultValue, ",")
				slice := reflect.MakeSlice(field.Type(), len(parts), len(parts))
				for j, part := range parts {
					slice.Index(j).SetString(strings.TrimSpace(part))
				}
				field.Set(slice)
			}
		default:
			configLogger.Warn().
				Str("field_name", fieldType.Name).
				Str("field_type", field.Kind().String()).
				Msg("Unsupported field type for default value")
		}
	}
}
