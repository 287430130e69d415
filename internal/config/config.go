package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/tatianab/buckshot/internal/driver"
	"github.com/tatianab/buckshot/internal/models"
)

// DefaultPath is where the play command looks for its config file.
const DefaultPath = "config/buckshot.yaml"

var ErrMissingAPIKey = errors.New("GEMINI_API_KEY environment variable is not set")

// Config holds the application configuration.
type Config struct {
	Game    GameConfig     `yaml:"game"`
	Timings driver.Timings `yaml:"timings"`
	Model   ModelConfig    `yaml:"model"`
	Logging LoggingConfig  `yaml:"logging"`
	SaveDir string         `yaml:"save_dir"`

	// GeminiAPIKey only comes from the environment.
	GeminiAPIKey string `yaml:"-"`
}

// GameConfig describes how to launch the game.
type GameConfig struct {
	Command    string   `yaml:"command"`
	Args       []string `yaml:"args"`
	Dir        string   `yaml:"dir"`
	LogFile    string   `yaml:"log_file"`
	MenuInputs []string `yaml:"menu_inputs"`
	Cols       uint16   `yaml:"cols"`
	Rows       uint16   `yaml:"rows"`
}

type ModelConfig struct {
	Name        string  `yaml:"name"`
	Temperature float32 `yaml:"temperature"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
	// File receives the structured log. Empty means stderr.
	File string `yaml:"file"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Game: GameConfig{
			Command:    "python3",
			Args:       []string{"main.py"},
			LogFile:    "/tmp/game_output.log",
			MenuInputs: []string{"2", "SAM"},
			Cols:       120,
			Rows:       40,
		},
		Timings: driver.DefaultTimings(),
		Model: ModelConfig{
			Name:        "gemini-2.5-flash",
			Temperature: 0.7,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		SaveDir: models.DefaultSaveDir,
	}
}

// Load reads the configuration from a yaml file on top of the defaults.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as yaml, creating the directory.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.GeminiAPIKey = key
	}
	if cmd := os.Getenv("BUCKSHOT_GAME"); cmd != "" {
		c.Game.Command = cmd
		c.Game.Args = nil
	}
	if dir := os.Getenv("BUCKSHOT_GAME_DIR"); dir != "" {
		c.Game.Dir = dir
	}
	if level := os.Getenv("BUCKSHOT_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// RequireAPIKey fails when no Gemini key was provided.
func (c *Config) RequireAPIKey() error {
	if c.GeminiAPIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}
