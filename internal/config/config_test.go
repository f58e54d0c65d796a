package config

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	tempFile, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	if _, err := tempFile.WriteString(content); err != nil {
		t.Fatalf("Failed to write config content: %v", err)
	}
	tempFile.Close()

	return tempFile.Name()
}

func TestApplyDefaults(t *testing.T) {
	t.Run("Config struct defaults", func(t *testing.T) {
		config := &Config{}
		applyDefaults(config)

		if config.Site.Name != "Resumark" {
			t.Errorf("Expected site name 'Resumark', got %q", config.Site.Name)
		}
		if config.Server.Port != "12600" {
			t.Errorf("Expected port '12600', got %q", config.Server.Port)
		}
		if config.Theme.Default != LightTheme {
			t.Errorf("Expected theme %q, got %q", LightTheme, config.Theme.Default)
		}
		if config.Theme.SyntaxHighlighting.DefaultDark != DefaultDarkSyntaxTheme {
			t.Errorf("Expected dark syntax theme %q, got %q", DefaultDarkSyntaxTheme, config.Theme.SyntaxHighlighting.DefaultDark)
		}

		if config.Editor.AutosaveDelay() != 2*time.Second {
			t.Errorf("Expected autosave delay 2s, got %v", config.Editor.AutosaveDelay())
		}
		if config.Editor.NotificationDuration() != 3*time.Second {
			t.Errorf("Expected notification duration 3s, got %v", config.Editor.NotificationDuration())
		}
		if config.Editor.StoreTimeout() != 10*time.Second {
			t.Errorf("Expected store timeout 10s, got %v", config.Editor.StoreTimeout())
		}
		if config.Editor.SessionIdleTimeout() != time.Hour {
			t.Errorf("Expected session idle timeout 1h, got %v", config.Editor.SessionIdleTimeout())
		}
		if config.Editor.PreviewCacheSize != 1000 {
			t.Errorf("Expected preview cache size 1000, got %d", config.Editor.PreviewCacheSize)
		}

		if config.Store.Type != StoreSQLite {
			t.Errorf("Expected store type %q, got %q", StoreSQLite, config.Store.Type)
		}
		if config.Store.SQLite.Path != "./resumes.db" {
			t.Errorf("Expected sqlite path './resumes.db', got %q", config.Store.SQLite.Path)
		}
		if config.Store.S3.Region != "auto" {
			t.Errorf("Expected s3 region 'auto', got %q", config.Store.S3.Region)
		}

		if !config.Features.Authentication.Enabled {
			t.Error("Expected authentication to be enabled by default")
		}
		if config.Features.Authentication.Type != "ed25519" {
			t.Errorf("Expected auth type 'ed25519', got %q", config.Features.Authentication.Type)
		}
		if !config.Features.Comments.Enabled {
			t.Error("Expected comments to be enabled by default")
		}
		if config.Features.Comments.MaxPerResume != 200 {
			t.Errorf("Expected 200 comments per resume, got %d", config.Features.Comments.MaxPerResume)
		}

		if config.Logging.Level != "info" {
			t.Errorf("Expected logging level 'info', got %q", config.Logging.Level)
		}
	})

	t.Run("Custom struct with various field types", func(t *testing.T) {
		type TestStruct struct {
			StringField  string   `default:"test-string"`
			BoolField    bool     `default:"true"`
			IntField     int      `default:"42"`
			Float64Field float64  `default:"3.14"`
			SliceField   []string `default:"a, b ,c"`
			NoDefault    string
		}

		test := &TestStruct{}
		applyDefaults(test)

		if test.StringField != "test-string" {
			t.Errorf("Expected string field 'test-string', got %q", test.StringField)
		}
		if !test.BoolField {
			t.Error("Expected bool field to be true")
		}
		if test.IntField != 42 {
			t.Errorf("Expected int field 42, got %d", test.IntField)
		}
		if test.Float64Field != 3.14 {
			t.Errorf("Expected float64 field 3.14, got %f", test.Float64Field)
		}
		if !reflect.DeepEqual(test.SliceField, []string{"a", "b", "c"}) {
			t.Errorf("Expected trimmed slice, got %v", test.SliceField)
		}
		if test.NoDefault != "" {
			t.Errorf("Expected no default field to be empty, got %q", test.NoDefault)
		}
	})

	t.Run("Invalid default values", func(t *testing.T) {
		type InvalidStruct struct {
			BadBool bool `default:"not-a-bool"`
			BadInt  int  `default:"not-an-int"`
		}

		test := &InvalidStruct{}
		applyDefaults(test)

		if test.BadBool || test.BadInt != 0 {
			t.Errorf("Expected invalid defaults to leave zero values, got %+v", test)
		}
	})

	t.Run("Non-struct input", func(t *testing.T) {
		stringVar := "test"
		applyDefaults(&stringVar)
		applyDefaults(stringVar)
		applyDefaults(42)
		applyDefaults(nil)
	})
}

func TestLoadConfig(t *testing.T) {
	SetLogger(zerolog.New(os.Stdout).Level(zerolog.ErrorLevel))

	t.Run("Load non-existent config file", func(t *testing.T) {
		originalAppConfig := AppConfig
		defer func() { AppConfig = originalAppConfig }()

		if err := LoadConfig("non-existent-config.yaml"); err != nil {
			t.Errorf("Expected no error for non-existent config file, got %v", err)
		}
		if AppConfig == nil {
			t.Fatal("Expected AppConfig to be set with defaults")
		}
		if AppConfig.Site.Name != "Resumark" {
			t.Errorf("Expected default site name, got %q", AppConfig.Site.Name)
		}
	})

	t.Run("Load valid config file", func(t *testing.T) {
		originalAppConfig := AppConfig
		defer func() { AppConfig = originalAppConfig }()

		path := writeTempConfig(t, `
site:
  name: "Test Resumes"
server:
  port: "8080"
editor:
  autosave_delay_ms: 500
store:
  type: memory
`)

		if err := LoadConfig(path); err != nil {
			t.Fatalf("Expected no error loading valid config, got %v", err)
		}

		if AppConfig.Site.Name != "Test Resumes" {
			t.Errorf("Expected site name 'Test Resumes', got %q", AppConfig.Site.Name)
		}
		if AppConfig.Server.Port != "8080" {
			t.Errorf("Expected port '8080', got %q", AppConfig.Server.Port)
		}
		if AppConfig.Editor.AutosaveDelay() != 500*time.Millisecond {
			t.Errorf("Expected autosave delay 500ms, got %v", AppConfig.Editor.AutosaveDelay())
		}
		if AppConfig.Store.Type != StoreMemory {
			t.Errorf("Expected store type %q, got %q", StoreMemory, AppConfig.Store.Type)
		}

		// Unspecified fields keep their defaults
		if AppConfig.Editor.NotificationDurationMs != 3000 {
			t.Errorf("Expected default notification duration, got %d", AppConfig.Editor.NotificationDurationMs)
		}
	})

	t.Run("Load invalid YAML file", func(t *testing.T) {
		path := writeTempConfig(t, `
site:
  name: "Test"
  invalid yaml syntax [
`)

		err := LoadConfig(path)
		if err == nil {
			t.Fatal("Expected error loading invalid config file")
		}
		if !strings.Contains(err.Error(), "failed to parse config file") {
			t.Errorf("Expected parse error, got %v", err)
		}
	})

	t.Run("Reject invalid values", func(t *testing.T) {
		tests := []struct {
			name    string
			content string
			errText string
		}{
			{"unknown store", "store:\n  type: postgres\n", "unsupported store type"},
			{"zero autosave delay", "editor:\n  autosave_delay_ms: 0\n", "autosave_delay_ms"},
			{"negative notification duration", "editor:\n  notification_duration_ms: -1\n", "notification_duration_ms"},
			{"zero store timeout", "editor:\n  store_timeout_ms: 0\n", "store_timeout_ms"},
		}

		for _, tc := range tests {
			t.Run(tc.name, func(t *testing.T) {
				err := LoadConfig(writeTempConfig(t, tc.content))
				if err == nil {
					t.Fatal("Expected validation error")
				}
				if !strings.Contains(err.Error(), tc.errText) {
					t.Errorf("Expected error to contain %q, got %q", tc.errText, err.Error())
				}
			})
		}
	})
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}
