// Package config loads idec settings from a YAML file, IDEC_* environment
// variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g. IDEC_SERIAL_BAUD_RATE.
const EnvPrefix = "IDEC"

// Config is the full application configuration.
type Config struct {
	Serial    SerialConfig    `mapstructure:"serial" yaml:"serial"`
	Toolchain ToolchainConfig `mapstructure:"toolchain" yaml:"toolchain"`
	Flash     FlashConfig     `mapstructure:"flash" yaml:"flash"`
	Terminal  LauncherConfig  `mapstructure:"terminal" yaml:"terminal"`
	Explorer  LauncherConfig  `mapstructure:"explorer" yaml:"explorer"`
	Workspace WorkspaceConfig `mapstructure:"workspace" yaml:"workspace"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	About     AboutConfig     `mapstructure:"about" yaml:"about"`
}

// SerialConfig controls how the serial session opens ports.
type SerialConfig struct {
	BaudRate    int           `mapstructure:"baud_rate" yaml:"baud_rate"`
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	ReadBuffer  int           `mapstructure:"read_buffer" yaml:"read_buffer"`
}

// ToolchainConfig names the build tool and the manifest that marks a project root.
type ToolchainConfig struct {
	Binary   string `mapstructure:"binary" yaml:"binary"`
	Manifest string `mapstructure:"manifest" yaml:"manifest"`
}

// FlashConfig describes the flashing tool invocation.
type FlashConfig struct {
	Binary   string `mapstructure:"binary" yaml:"binary"`
	Board    string `mapstructure:"board" yaml:"board"`
	BaudRate int    `mapstructure:"baud_rate" yaml:"baud_rate"`
}

// LauncherConfig overrides the program used for a detached launch.
// An empty Binary selects the platform default.
type LauncherConfig struct {
	Binary string `mapstructure:"binary" yaml:"binary"`
}

// WorkspaceConfig holds editor file defaults.
type WorkspaceConfig struct {
	NewFile string `mapstructure:"new_file" yaml:"new_file"`
}

// LogConfig selects logrus level and format.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// AboutConfig is the content of the about dialog.
type AboutConfig struct {
	Text      string `mapstructure:"text" yaml:"text"`
	GitHubURL string `mapstructure:"github_url" yaml:"github_url"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Serial: SerialConfig{
			BaudRate:    9600,
			ReadTimeout: time.Second,
			ReadBuffer:  1024,
		},
		Toolchain: ToolchainConfig{
			Binary:   "cargo",
			Manifest: "Cargo.toml",
		},
		Flash: FlashConfig{
			Binary:   "ravedude",
			Board:    "uno",
			BaudRate: 57600,
		},
		Workspace: WorkspaceConfig{NewFile: "new_file.rs"},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		About: AboutConfig{
			Text:      "idec is a small IDE for writing, building and flashing Rust firmware to microcontrollers.",
			GitHubURL: "https://github.com/allbin/go-serial-ide",
		},
	}
}

// DefaultPath returns $XDG_CONFIG_HOME/idec/idec.yaml, falling back to the
// user config directory reported by the OS.
func DefaultPath() (string, error) {
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "idec", "idec.yaml"), nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "idec", "idec.yaml"), nil
}

// flagKeys maps persistent flag names onto config keys.
var flagKeys = map[string]string{
	"log-level":  "log.level",
	"log-format": "log.format",
	"baud":       "serial.baud_rate",
}

// Load reads configuration from path, or DefaultPath when path is empty.
// A missing file is not an error. Flags that were set override both the
// file and the environment.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	explicit := path != ""
	if path == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return Config{}, err
		}
		path = defaultPath
	}

	cfg := Default()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("serial.baud_rate", cfg.Serial.BaudRate)
	v.SetDefault("serial.read_timeout", cfg.Serial.ReadTimeout)
	v.SetDefault("serial.read_buffer", cfg.Serial.ReadBuffer)
	v.SetDefault("toolchain.binary", cfg.Toolchain.Binary)
	v.SetDefault("toolchain.manifest", cfg.Toolchain.Manifest)
	v.SetDefault("flash.binary", cfg.Flash.Binary)
	v.SetDefault("flash.board", cfg.Flash.Board)
	v.SetDefault("flash.baud_rate", cfg.Flash.BaudRate)
	v.SetDefault("terminal.binary", cfg.Terminal.Binary)
	v.SetDefault("explorer.binary", cfg.Explorer.Binary)
	v.SetDefault("workspace.new_file", cfg.Workspace.NewFile)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.format", cfg.Log.Format)
	v.SetDefault("about.text", cfg.About.Text)
	v.SetDefault("about.github_url", cfg.About.GitHubURL)

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil && f.Changed {
				if err := v.BindPFlag(key, f); err != nil {
					return Config{}, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case errors.As(err, &notFound):
		case !explicit && errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the rest of the application cannot work with.
func (c Config) Validate() error {
	if c.Serial.BaudRate <= 0 {
		return fmt.Errorf("serial.baud_rate must be positive, got %d", c.Serial.BaudRate)
	}
	if c.Serial.ReadBuffer <= 0 {
		return fmt.Errorf("serial.read_buffer must be positive, got %d", c.Serial.ReadBuffer)
	}
	if c.Serial.ReadTimeout < 0 {
		return fmt.Errorf("serial.read_timeout must not be negative")
	}
	if strings.TrimSpace(c.Toolchain.Binary) == "" {
		return errors.New("toolchain.binary is required")
	}
	if strings.TrimSpace(c.Toolchain.Manifest) == "" {
		return errors.New("toolchain.manifest is required")
	}
	if strings.TrimSpace(c.Flash.Binary) == "" {
		return errors.New("flash.binary is required")
	}
	if strings.TrimSpace(c.Workspace.NewFile) == "" {
		return errors.New("workspace.new_file is required")
	}
	return nil
}

// WriteDefault writes the built-in configuration to path. It refuses to
// overwrite an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file %s already exists", path)
		}
	}
	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
