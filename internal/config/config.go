package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/innerself-app/innerself-app/internal/branding"
	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Known configuration keys.
const (
	KeyInstallerCommand = "installer.command"
	KeyInstallerArgs    = "installer.args"
	KeyWorkDir          = "work_dir"
	KeyConcurrency      = "concurrency"
	KeyLogLevel         = "log.level"
	KeyLogFormat        = "log.format"
)

var defaults = map[string]any{
	KeyInstallerCommand: "npm",
	KeyInstallerArgs:    []string{"install"},
	KeyWorkDir:          "",
	KeyConcurrency:      8,
	KeyLogLevel:         "info",
	KeyLogFormat:        "text",
}

// Keys returns the known keys in lexical order.
func Keys() []string {
	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Dir returns the path to the config directory (~/.innerself-app/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.innerself-app/config.yaml).
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
func Load() {
	for k, v := range defaults {
		viper.SetDefault(k, v)
	}
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	v := viper.Get(key)
	if list, ok := v.([]string); ok {
		return strings.Join(list, " ")
	}
	if list, ok := v.([]any); ok {
		parts := make([]string, len(list))
		for i, p := range list {
			parts[i] = fmt.Sprint(p)
		}
		return strings.Join(parts, " ")
	}
	return viper.GetString(key)
}

// List returns the effective value of every known key.
func List() map[string]string {
	out := make(map[string]string, len(defaults))
	for _, k := range Keys() {
		out[k] = Get(k)
	}
	return out
}

// Set writes a config key-value pair and saves the config file. Unknown
// keys are rejected.
func Set(key, value string) error {
	if _, ok := defaults[key]; !ok {
		return fmt.Errorf("unknown config key %q (known: %s)", key, strings.Join(Keys(), ", "))
	}
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
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

// InstallerCommand returns the package manager binary.
func InstallerCommand() string { return viper.GetString(KeyInstallerCommand) }

// InstallerArgs returns the arguments passed to the package manager.
func InstallerArgs() []string { return viper.GetStringSlice(KeyInstallerArgs) }

// WorkDir returns the parent directory for working trees. Empty means the
// OS temp directory.
func WorkDir() string { return viper.GetString(KeyWorkDir) }

// Concurrency returns the per-file batch limit, at least 1.
func Concurrency() int { return max(viper.GetInt(KeyConcurrency), 1) }

// LogLevel returns the configured log level name.
func LogLevel() string { return viper.GetString(KeyLogLevel) }

// LogFormat returns the configured log format, "text" or "json".
func LogFormat() string { return viper.GetString(KeyLogFormat) }
