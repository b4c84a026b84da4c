package config

import (
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetLogger(t *testing.T) {
	logger := zerolog.New(os.Stdout).Level(zerolog.InfoLevel)
	SetLogger(logger)

	// Verify logger is set (we can't easily compare loggers directly)
	// This test mainly ensures the function doesn't panic
}

func TestApplyDefaults(t *testing.T) {
	t.Run("Config struct defaults", func(t *testing.T) {
		config := &Config{}
		applyDefaults(config)

		if config.API.BaseURL != "http://localhost:8000/api" {
			t.Errorf("Expected default API base URL, got %q", config.API.BaseURL)
		}
		if config.API.TimeoutSeconds != 30 {
			t.Errorf("Expected timeout 30, got %d", config.API.TimeoutSeconds)
		}

		if config.Media.Backend != MediaBackendHTTP {
			t.Errorf("Expected media backend %q, got %q", MediaBackendHTTP, config.Media.Backend)
		}
		if config.Media.Folder != "post-images" {
			t.Errorf("Expected folder 'post-images', got %q", config.Media.Folder)
		}
		if config.Media.S3.Region != "us-east-1" {
			t.Errorf("Expected region 'us-east-1', got %q", config.Media.S3.Region)
		}

		if config.Drafts.Compression != "zstd" {
			t.Errorf("Expected compression 'zstd', got %q", config.Drafts.Compression)
		}
		if config.Preview.SyntaxTheme != "gruvbox" {
			t.Errorf("Expected syntax theme 'gruvbox', got %q", config.Preview.SyntaxTheme)
		}
		if config.Logging.Level != "warn" {
			t.Errorf("Expected logging level 'warn', got %q", config.Logging.Level)
		}
	})

	t.Run("Custom struct with various field types", func(t *testing.T) {
		type TestStruct struct {
			StringField  string   `default:"test-string"`
			BoolField    bool     `default:"true"`
			IntField     int      `default:"42"`
			Float64Field float64  `default:"3.14"`
			SliceField   []string `default:"a,b,c"`
			NoDefault    string   // No default tag
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
		expectedSlice := []string{"a", "b", "c"}
		if !reflect.DeepEqual(test.SliceField, expectedSlice) {
			t.Errorf("Expected slice %v, got %v", expectedSlice, test.SliceField)
		}
		if test.NoDefault != "" {
			t.Errorf("Expected no default field to be empty, got %q", test.NoDefault)
		}
	})

	t.Run("Invalid default values", func(t *testing.T) {
		type InvalidStruct struct {
			BadBool  bool    `default:"not-a-bool"`
			BadInt   int     `default:"not-an-int"`
			BadFloat float64 `default:"not-a-float"`
		}

		test := &InvalidStruct{}
		applyDefaults(test) // Should not panic

		// Invalid defaults should leave fields with zero values
		if test.BadBool {
			t.Error("Expected invalid bool default to remain false")
		}
		if test.BadInt != 0 {
			t.Errorf("Expected invalid int default to remain 0, got %d", test.BadInt)
		}
		if test.BadFloat != 0.0 {
			t.Errorf("Expected invalid float default to remain 0.0, got %f", test.BadFloat)
		}
	})

	t.Run("Non-struct input", func(t *testing.T) {
		// Should not panic with non-struct inputs
		stringVar := "test"
		applyDefaults(&stringVar)
		applyDefaults(stringVar)
		applyDefaults(42)
		applyDefaults(nil)
	})
}

func TestLoadConfig(t *testing.T) {
	logger := zerolog.New(os.Stdout).Level(zerolog.ErrorLevel)
	SetLogger(logger)

	t.Run("Load non-existent config file", func(t *testing.T) {
		originalAppConfig := AppConfig
		defer func() { AppConfig = originalAppConfig }()

		err := LoadConfig("non-existent-config.yaml")
		if err != nil {
			t.Errorf("Expected no error for non-existent config file, got %v", err)
		}

		if AppConfig == nil {
			t.Fatal("Expected AppConfig to be set with defaults")
		}

		if AppConfig.Media.Backend != MediaBackendHTTP {
			t.Errorf("Expected default media backend, got %q", AppConfig.Media.Backend)
		}
	})

	t.Run("Load valid config file", func(t *testing.T) {
		originalAppConfig := AppConfig
		defer func() { AppConfig = originalAppConfig }()

		configContent := `
api:
  base_url: "https://blog.example.com/api"
media:
  backend: "s3"
  folder: "uploads"
  s3:
    bucket: "blog-images"
    region: "eu-west-1"
preview:
  syntax_theme: "catppuccin-latte"
`
		tempFile, err := os.CreateTemp("", "test-config-*.yaml")
		if err != nil {
			t.Fatalf("Failed to create temp file: %v", err)
		}
		defer os.Remove(tempFile.Name())

		if _, err := tempFile.WriteString(configContent); err != nil {
			t.Fatalf("Failed to write config content: %v", err)
		}
		tempFile.Close()

		err = LoadConfig(tempFile.Name())
		if err != nil {
			t.Fatalf("Expected no error loading valid config, got %v", err)
		}

		if AppConfig.API.BaseURL != "https://blog.example.com/api" {
			t.Errorf("Expected configured base URL, got %q", AppConfig.API.BaseURL)
		}
		if AppConfig.Media.Backend != MediaBackendS3 {
			t.Errorf("Expected media backend 's3', got %q", AppConfig.Media.Backend)
		}
		if AppConfig.Media.S3.Bucket != "blog-images" {
			t.Errorf("Expected bucket 'blog-images', got %q", AppConfig.Media.S3.Bucket)
		}
		if AppConfig.Preview.SyntaxTheme != "catppuccin-latte" {
			t.Errorf("Expected syntax theme 'catppuccin-latte', got %q", AppConfig.Preview.SyntaxTheme)
		}

		// Verify defaults were still applied for unspecified fields
		if AppConfig.API.TimeoutSeconds != 30 {
			t.Errorf("Expected default timeout, got %d", AppConfig.API.TimeoutSeconds)
		}
		if AppConfig.Drafts.Compression != "zstd" {
			t.Errorf("Expected default compression, got %q", AppConfig.Drafts.Compression)
		}
	})

	t.Run("Load invalid YAML file", func(t *testing.T) {
		originalAppConfig := AppConfig
		defer func() { AppConfig = originalAppConfig }()

		invalidContent := `
api:
  base_url: "https://blog.example.com"
  invalid yaml syntax [
`
		tempFile, err := os.CreateTemp("", "test-config-invalid-*.yaml")
		if err != nil {
			t.Fatalf("Failed to create temp file: %v", err)
		}
		defer os.Remove(tempFile.Name())

		if _, err := tempFile.WriteString(invalidContent); err != nil {
			t.Fatalf("Failed to write config content: %v", err)
		}
		tempFile.Close()

		err = LoadConfig(tempFile.Name())
		if err == nil {
			t.Error("Expected error loading invalid config file")
		}
		if !strings.Contains(err.Error(), "failed to parse config file") {
			t.Errorf("Expected parse error, got %v", err)
		}
	})

	t.Run("Unknown media backend", func(t *testing.T) {
		originalAppConfig := AppConfig
		defer func() { AppConfig = originalAppConfig }()

		tempFile, err := os.CreateTemp("", "test-config-backend-*.yaml")
		if err != nil {
			t.Fatalf("Failed to create temp file: %v", err)
		}
		defer os.Remove(tempFile.Name())

		if _, err := tempFile.WriteString("media:\n  backend: \"ftp\"\n"); err != nil {
			t.Fatalf("Failed to write config content: %v", err)
		}
		tempFile.Close()

		err = LoadConfig(tempFile.Name())
		if err == nil {
			t.Error("Expected error for unknown media backend")
		}
	})

	t.Run("S3 backend requires bucket", func(t *testing.T) {
		originalAppConfig := AppConfig
		defer func() { AppConfig = originalAppConfig }()

		tempFile, err := os.CreateTemp("", "test-config-s3-*.yaml")
		if err != nil {
			t.Fatalf("Failed to create temp file: %v", err)
		}
		defer os.Remove(tempFile.Name())

		if _, err := tempFile.WriteString("media:\n  backend: \"s3\"\n"); err != nil {
			t.Fatalf("Failed to write config content: %v", err)
		}
		tempFile.Close()

		err = LoadConfig(tempFile.Name())
		if err == nil {
			t.Error("Expected error for s3 backend without bucket")
		}
	})
}

func TestPublicApplyDefaults(t *testing.T) {
	type TestStruct struct {
		Field string `default:"test-value"`
	}

	test := &TestStruct{}
	ApplyDefaults(test)

	if test.Field != "test-value" {
		t.Errorf("Expected field 'test-value', got %q", test.Field)
	}
}

func TestPathResolution(t *testing.T) {
	t.Run("Explicit token path wins", func(t *testing.T) {
		cfg := &Config{}
		ApplyDefaults(cfg)
		cfg.Session.TokenPath = "/tmp/custom-token"

		path, err := cfg.TokenPath()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if path != "/tmp/custom-token" {
			t.Errorf("Expected explicit token path, got %q", path)
		}
	})

	t.Run("Explicit drafts path wins", func(t *testing.T) {
		cfg := &Config{}
		ApplyDefaults(cfg)
		cfg.Drafts.Path = "/tmp/custom-drafts.db"

		path, err := cfg.DraftsPath()
		if err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if path != "/tmp/custom-drafts.db" {
			t.Errorf("Expected explicit drafts path, got %q", path)
		}
	})
}
