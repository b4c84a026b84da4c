package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

var configLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	configLogger = l
}

// Config represents the complete configuration structure
type Config struct {
	API     APIConfig     `yaml:"api"`
	Media   MediaConfig   `yaml:"media"`
	Drafts  DraftsConfig  `yaml:"drafts"`
	Preview PreviewConfig `yaml:"preview"`
	Session SessionConfig `yaml:"session"`
	Logging LoggingConfig `yaml:"logging"`
}

type APIConfig struct {
	BaseURL        string `yaml:"base_url" default:"http://localhost:8000/api"`
	TimeoutSeconds int    `yaml:"timeout_seconds" default:"30"`
}

type MediaConfig struct {
	Backend string   `yaml:"backend" default:"http"`
	BaseURL string   `yaml:"base_url" default:"http://localhost:8000/api"`
	Folder  string   `yaml:"folder" default:"post-images"`
	S3      S3Config `yaml:"s3"`
}

type S3Config struct {
	Bucket          string `yaml:"bucket" default:""`
	Region          string `yaml:"region" default:"us-east-1"`
	Endpoint        string `yaml:"endpoint" default:""`
	AccessKeyID     string `yaml:"access_key_id" default:""`
	SecretAccessKey string `yaml:"secret_access_key" default:""`
	PublicBaseURL   string `yaml:"public_base_url" default:""`
}

type DraftsConfig struct {
	Path        string `yaml:"path" default:""`
	Compression string `yaml:"compression" default:"zstd"`
}

type PreviewConfig struct {
	SyntaxTheme string `yaml:"syntax_theme" default:"gruvbox"`
}

type SessionConfig struct {
	TokenPath string `yaml:"token_path" default:""`
}

type LoggingConfig struct {
	Level string `yaml:"level" default:"warn"`
}

var AppConfig *Config

func LoadConfig(path string) error {
	config := &Config{}

	// Apply default values first
	applyDefaults(config)

	// Try to read and parse the config file
	data, err := os.ReadFile(path)
	if err != nil {
		// If file doesn't exist, just use defaults
		configLogger.Info().Str("path", path).Msg("Config file not found, using defaults")
		AppConfig = config
		return nil
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return err
	}

	AppConfig = config
	return nil
}

func validateConfig(config *Config) error {
	switch config.Media.Backend {
	case MediaBackendHTTP, MediaBackendS3:
	default:
		return fmt.Errorf("unsupported media backend %q", config.Media.Backend)
	}
	if config.Media.Backend == MediaBackendS3 && config.Media.S3.Bucket == "" {
		return fmt.Errorf("media backend %q requires s3.bucket", MediaBackendS3)
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
