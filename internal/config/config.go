// Package config holds the viper-backed configuration singleton for the
// notefold storage core and CLI.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var v *viper.Viper

// Initialize sets up the viper configuration singleton. Should be called
// once at application startup.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	// Explicitly locate config.yaml and use SetConfigFile so nothing else
	// in the directory is picked up.
	// Precedence: project .notefold/config.yaml > ~/.config/notefold/config.yaml > ~/.notefold/config.yaml
	configFileSet := false

	// 1. Walk up from CWD to find a project .notefold/config.yaml, so
	//    commands work from subdirectories.
	cwd, err := os.Getwd()
	if err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			configPath := filepath.Join(dir, ".notefold", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
				break
			}
		}
	}

	// 2. User config directory.
	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			configPath := filepath.Join(configDir, "notefold", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	// 3. Home directory.
	if !configFileSet {
		if homeDir, err := os.UserHomeDir(); err == nil {
			configPath := filepath.Join(homeDir, ".notefold", "config.yaml")
			if _, err := os.Stat(configPath); err == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	// Environment variables take precedence over the config file, e.g.
	// NF_DATA_ROOT, NF_LOG_LEVEL, NF_USER.
	v.SetEnvPrefix("NF")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("data-root", defaultDataRoot())
	v.SetDefault("user", "")
	v.SetDefault("user-id", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max-size-mb", 20)
	v.SetDefault("log.max-backups", 3)
	v.SetDefault("log.max-age-days", 28)

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

func defaultDataRoot() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "notefold")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".notefold"
	}
	return filepath.Join(home, ".notefold")
}

func ensureInitialized() {
	if v == nil {
		_ = Initialize()
	}
}

// DataRoot returns the application data root; account directories live
// beneath it.
func DataRoot() string {
	ensureInitialized()
	return v.GetString("data-root")
}

// Username returns the configured account username.
func Username() string {
	ensureInitialized()
	return v.GetString("user")
}

// UserID returns the configured account user id.
func UserID() int32 {
	ensureInitialized()
	return int32(v.GetInt("user-id"))
}

// LogLevel returns the configured log level name.
func LogLevel() string {
	ensureInitialized()
	return v.GetString("log.level")
}

// LogFile returns the log file path; empty selects stderr.
func LogFile() string {
	ensureInitialized()
	return v.GetString("log.file")
}

// LogMaxSizeMB returns the rotation size threshold.
func LogMaxSizeMB() int {
	ensureInitialized()
	return v.GetInt("log.max-size-mb")
}

// LogMaxBackups returns how many rotated files are kept.
func LogMaxBackups() int {
	ensureInitialized()
	return v.GetInt("log.max-backups")
}

// LogMaxAgeDays returns how long rotated files are kept.
func LogMaxAgeDays() int {
	ensureInitialized()
	return v.GetInt("log.max-age-days")
}

// Set overrides a configuration value for the current process; flags use it
// to take precedence over file and environment values.
func Set(key string, value any) {
	ensureInitialized()
	v.Set(key, value)
}
