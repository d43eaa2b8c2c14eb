// Package config loads the service configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"adsales/logging"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Log       logging.Config  `yaml:"log"`
	History   HistoryConfig   `yaml:"history"`
	Downloads DownloadsConfig `yaml:"downloads"`
}

type ServerConfig struct {
	Port           int           `yaml:"port"`
	ReadTimeout    time.Duration `yaml:"read_timeout"`
	WriteTimeout   time.Duration `yaml:"write_timeout"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

type ArtifactsConfig struct {
	ModelPath  string `yaml:"model_path"`
	SchemaPath string `yaml:"schema_path"`
	// Watch logs a warning when an artifact changes after it was loaded.
	Watch bool `yaml:"watch"`
}

// HistoryConfig enables the sqlite run log when Path is set.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

type DownloadsConfig struct {
	// CacheSize is how many recent batch results stay downloadable.
	CacheSize int `yaml:"cache_size"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8501,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			MaxUploadBytes: 32 << 20,
			AllowedOrigins: []string{"*"},
		},
		Artifacts: ArtifactsConfig{
			ModelPath:  "trained_model.json",
			SchemaPath: "feature_columns.json",
		},
		Log: logging.DefaultConfig(),
		Downloads: DownloadsConfig{
			CacheSize: 64,
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
// Relative file paths resolve against the directory holding the config
// file, or the executable's directory when there is no config file.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		cfg.resolvePaths(executableDir())
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal([]byte(substituteEnvVars(string(data))), cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
		dir, err := filepath.Abs(filepath.Dir(path))
		if err != nil {
			return nil, err
		}
		cfg.resolvePaths(dir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return errors.New("max_upload_bytes must be positive")
	}
	if c.Artifacts.ModelPath == "" || c.Artifacts.SchemaPath == "" {
		return errors.New("artifact paths are required")
	}
	if c.Downloads.CacheSize <= 0 {
		return errors.New("downloads.cache_size must be positive")
	}
	return nil
}

func (c *Config) resolvePaths(base string) {
	c.Artifacts.ModelPath = resolve(base, c.Artifacts.ModelPath)
	c.Artifacts.SchemaPath = resolve(base, c.Artifacts.SchemaPath)
	c.History.Path = resolve(base, c.History.Path)
	c.Log.File = resolve(base, c.Log.File)
}

func resolve(base, path string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}

func executableDir() string {
	exe, err := os.Executable()
	if err != nil {
		if wd, err := os.Getwd(); err == nil {
			return wd
		}
		return "."
	}
	return filepath.Dir(exe)
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
func substituteEnvVars(content string) string {
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		varName := content[start+2 : end]
		content = content[:start] + os.Getenv(varName) + content[end+1:]
	}
	return content
}
