package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agentx-labs/fleetsync/internal/branding"
	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "yaml"

	// RegistryFileName is the registry file kept under the home directory.
	RegistryFileName = "projects"
)

// Config keys, also usable as FLEETSYNC_<KEY> environment variables.
const (
	KeyFramework = "framework"
	KeyRegistry  = "registry"
	KeyLinkDir   = "link_dir"
	KeyTimeout   = "timeout"
	KeyLogLevel  = "log_level"
	KeyLogFormat = "log_format"
)

// Defaults applied when neither the config file nor the environment set a key.
const (
	DefaultLinkDir   = ".framework"
	DefaultTimeout   = 2 * time.Minute
	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

var (
	// ErrNoFramework is returned when no source-of-truth path is configured.
	ErrNoFramework = errors.New("no framework path configured")
	// ErrNoRegistryLocation is returned when the home directory cannot be
	// resolved and no registry override is set.
	ErrNoRegistryLocation = errors.New("cannot determine registry location")
)

// Settings is the resolved, typed view of the configuration.
type Settings struct {
	Framework string
	Registry  string
	LinkDir   string
	Timeout   time.Duration
	LogLevel  string
	LogFormat string
}

// Dir returns the path to the config directory (~/.fleetsync/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.fleetsync/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
// An empty path selects the default config file.
func Load(path string) {
	if path == "" {
		path = FilePath()
	}
	viper.SetConfigFile(path)
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.AutomaticEnv()

	viper.SetDefault(KeyLinkDir, DefaultLinkDir)
	viper.SetDefault(KeyTimeout, DefaultTimeout.String())
	viper.SetDefault(KeyLogLevel, DefaultLogLevel)
	viper.SetDefault(KeyLogFormat, DefaultLogFormat)

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := viper.ConfigFileUsed()
	if configFile == "" {
		configFile = FilePath()
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Resolve reads the loaded configuration into Settings. Paths are expanded
// and made absolute. A missing framework path is not an error here; callers
// that need it use RequireFramework.
func Resolve() (*Settings, error) {
	s := &Settings{
		LinkDir:   viper.GetString(KeyLinkDir),
		Timeout:   viper.GetDuration(KeyTimeout),
		LogLevel:  viper.GetString(KeyLogLevel),
		LogFormat: viper.GetString(KeyLogFormat),
	}
	if s.Timeout <= 0 {
		s.Timeout = DefaultTimeout
	}
	if s.LinkDir == "" {
		s.LinkDir = DefaultLinkDir
	}

	if fw := viper.GetString(KeyFramework); fw != "" {
		abs, err := expandPath(fw)
		if err != nil {
			return nil, fmt.Errorf("resolving framework path %q: %w", fw, err)
		}
		s.Framework = abs
	}

	reg := viper.GetString(KeyRegistry)
	if reg == "" {
		home, err := os.UserHomeDir()
		if err != nil || home == "" {
			return nil, fmt.Errorf("%w: set %s or --registry", ErrNoRegistryLocation, branding.EnvVar(KeyRegistry))
		}
		reg = filepath.Join(home, branding.HomeDir(), RegistryFileName)
	}
	abs, err := expandPath(reg)
	if err != nil {
		return nil, fmt.Errorf("resolving registry path %q: %w", reg, err)
	}
	s.Registry = abs

	return s, nil
}

// RequireFramework returns the framework path or ErrNoFramework.
func (s *Settings) RequireFramework() (string, error) {
	if s.Framework == "" {
		return "", fmt.Errorf("%w: run '%s config set %s <path>' or set %s",
			ErrNoFramework, branding.CLIName(), KeyFramework, branding.EnvVar(KeyFramework))
	}
	return s.Framework, nil
}

// expandPath expands a leading ~ and returns an absolute, cleaned path.
func expandPath(p string) (string, error) {
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return filepath.Abs(p)
}
