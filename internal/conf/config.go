// config.go: loads and holds the runtime settings for the SIGI server.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

// WebServerSettings holds the HTTP listener configuration.
type WebServerSettings struct {
	Host  string `yaml:"host"`  // interface to bind, empty for all
	Port  string `yaml:"port"`  // port to listen on
	Debug bool   `yaml:"debug"` // enable debug logging for the web server
}

// SQLiteSettings holds the SQLite backing store configuration.
type SQLiteSettings struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // path to database file
}

// MySQLSettings holds the MySQL backing store configuration.
type MySQLSettings struct {
	Enabled  bool   `yaml:"enabled"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
}

// OutputSettings selects the backing store; exactly one must be enabled.
type OutputSettings struct {
	SQLite SQLiteSettings `yaml:"sqlite"`
	MySQL  MySQLSettings  `yaml:"mysql"`
}

// LogSettings holds the structured log file configuration.
type LogSettings struct {
	Path      string `yaml:"path"`      // directory for rotated log files
	MaxSizeMB int    `yaml:"maxsizemb"` // rotate after this size
}

// Settings is the root configuration for the service.
type Settings struct {
	Debug     bool              `yaml:"debug"` // global debug flag
	WebServer WebServerSettings `yaml:"webserver"`
	Output    OutputSettings    `yaml:"output"`
	Log       LogSettings       `yaml:"log"`
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// Setting returns the current settings instance, loading it on first use.
func Setting() *Settings {
	settingsMutex.RLock()
	if settingsInstance != nil {
		defer settingsMutex.RUnlock()
		return settingsInstance
	}
	settingsMutex.RUnlock()

	settings, err := Load()
	if err != nil {
		return &Settings{}
	}
	return settings
}

// ValidateSettings checks that the loaded configuration is usable.
func ValidateSettings(settings *Settings) error {
	if settings.Output.SQLite.Enabled && settings.Output.MySQL.Enabled {
		return errors.New("only one backing store may be enabled at a time")
	}
	if !settings.Output.SQLite.Enabled && !settings.Output.MySQL.Enabled {
		return errors.New("no backing store enabled, enable sqlite or mysql output")
	}
	if settings.Output.SQLite.Enabled && settings.Output.SQLite.Path == "" {
		return errors.New("sqlite output enabled but path is empty")
	}
	if settings.Output.MySQL.Enabled {
		if settings.Output.MySQL.Database == "" || settings.Output.MySQL.Host == "" {
			return errors.New("mysql output enabled but database or host is empty")
		}
	}
	return nil
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	viper.SetEnvPrefix("sigi")
	viper.AutomaticEnv()

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			// Missing config file is fine, defaults and flags apply.
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// GetDefaultConfigPaths returns the ordered list of directories searched for config.yaml.
func GetDefaultConfigPaths() ([]string, error) {
	paths := []string{"."}

	home, err := os.UserHomeDir()
	if err != nil {
		// Home directory unavailable, search the working directory only.
		return paths, nil
	}
	paths = append(paths, filepath.Join(home, ".config", "sigi"))

	return paths, nil
}
