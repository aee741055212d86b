package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// ScanConfig controls how game folders are inspected.
type ScanConfig struct {
	ImageExts    []string `yaml:"imageExts"`
	ExecExts     []string `yaml:"execExts"`
	MaxDepth     int      `yaml:"maxDepth"`
	TargetAspect float64  `yaml:"targetAspect"`
	IgnoreFile   string   `yaml:"ignoreFile"`
	MetaFile     string   `yaml:"metaFile"`
}

// SandboxConfig names the Sandboxie box launches are wrapped in.
type SandboxConfig struct {
	Box string `yaml:"box"`
}

// Config defines runtime settings for gameshelf.
type Config struct {
	GamesRoot string        `yaml:"gamesRoot"`
	Bind      string        `yaml:"bind"`
	LogLevel  string        `yaml:"logLevel"`
	LogFormat string        `yaml:"logFormat"`
	Scan      ScanConfig    `yaml:"scan"`
	Sandbox   SandboxConfig `yaml:"sandbox"`
}

// LoadConfig loads configuration from a YAML file and environment overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		GamesRoot: defaultGamesRoot(),
		Bind:      "127.0.0.1:5000",
		LogLevel:  "info",
		LogFormat: "json",
		Scan: ScanConfig{
			ImageExts:    []string{".png", ".jpg", ".jpeg", ".webp"},
			ExecExts:     []string{".exe", ".bat", ".cmd", ".com", ".sh", ".py"},
			MaxDepth:     3,
			TargetAspect: 0.75,
			IgnoreFile:   ".gameshelfignore",
			MetaFile:     "game.json",
		},
		Sandbox: SandboxConfig{
			Box: "DefaultBox",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if root := os.Getenv("GAMESHELF_ROOT"); root != "" {
		cfg.GamesRoot = root
	}
	if bind := os.Getenv("GAMESHELF_BIND"); bind != "" {
		cfg.Bind = bind
	}
	if logLevel := os.Getenv("GAMESHELF_LOG_LEVEL"); logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat := os.Getenv("GAMESHELF_LOG_FORMAT"); logFormat != "" {
		cfg.LogFormat = logFormat
	}
	if box := os.Getenv("GAMESHELF_BOX"); box != "" {
		cfg.Sandbox.Box = box
	}

	return cfg, nil
}

// DefaultConfigPath returns the default location for the CLI config file.
func DefaultConfigPath() string {
	if path := os.Getenv("GAMESHELF_CONFIG"); path != "" {
		return path
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".gameshelf", "config.yaml")
}

func defaultGamesRoot() string {
	if runtime.GOOS == "windows" {
		return `D:\Games`
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "Games")
}
