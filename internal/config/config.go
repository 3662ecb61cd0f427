package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"go2tv.app/adcast/castprotocol"
)

type Config struct {
	// ReceiverAppID is the cast application launched on the device.
	ReceiverAppID string `json:"receiver_app_id"`
	// Device is the default device address (host:port).
	Device string `json:"device"`
	// LogLevel is a zerolog level name.
	LogLevel string `json:"log_level"`
	// StatusInterval is how often media status is requested, e.g. "2s".
	StatusInterval string `json:"status_interval"`
	// DiscoveryTimeout bounds mDNS discovery, e.g. "3s".
	DiscoveryTimeout string `json:"discovery_timeout"`
}

func defaultConfig() *Config {
	return &Config{
		ReceiverAppID:    castprotocol.DefaultMediaReceiverAppID,
		LogLevel:         "info",
		StatusInterval:   "2s",
		DiscoveryTimeout: "3s",
	}
}

// GetAppConfig loads the settings file from the user config directory,
// creating it with defaults on first run.
func GetAppConfig() (*Config, error) {
	path, err := appPath()
	if err != nil {
		return nil, fmt.Errorf("GetAppConfig: failed to access config path due to error %w", err)
	}
	return Load(path)
}

// Load reads the settings file at path, creating it with defaults if it
// does not exist. Empty fields fall back to defaults.
func Load(path string) (*Config, error) {
	cfgfile, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
				return nil, fmt.Errorf("Load: failed to create default path due to error %w", err)
			}

			conf := defaultConfig()
			if err := conf.SaveTo(path); err != nil {
				return nil, fmt.Errorf("Load: failed to create default config due to error %w", err)
			}

			return conf, nil
		}

		return nil, fmt.Errorf("Load: failed to open config due to error %w", err)
	}
	defer cfgfile.Close()

	conf := &Config{}
	if err := json.NewDecoder(cfgfile).Decode(conf); err != nil {
		return nil, fmt.Errorf("Load: failed to decode config due to error %w", err)
	}
	conf.fillDefaults()

	return conf, nil
}

func appPath() (string, error) {
	oscfg, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("appPath: failed to get config file due to error %w", err)
	}

	return filepath.Join(oscfg, "adcast", "settings.json"), nil
}

func (s *Config) fillDefaults() {
	def := defaultConfig()
	if s.ReceiverAppID == "" {
		s.ReceiverAppID = def.ReceiverAppID
	}
	if s.LogLevel == "" {
		s.LogLevel = def.LogLevel
	}
	if s.StatusInterval == "" {
		s.StatusInterval = def.StatusInterval
	}
	if s.DiscoveryTimeout == "" {
		s.DiscoveryTimeout = def.DiscoveryTimeout
	}
}

// Level returns the configured zerolog level, info when unparsable.
func (s *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(s.LogLevel)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// PollInterval returns StatusInterval as a duration, 2s when invalid.
func (s *Config) PollInterval() time.Duration {
	return parseDuration(s.StatusInterval, 2*time.Second)
}

// DiscoveryWait returns DiscoveryTimeout as a duration, 3s when invalid.
func (s *Config) DiscoveryWait() time.Duration {
	return parseDuration(s.DiscoveryTimeout, 3*time.Second)
}

func parseDuration(v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// SaveAppConfig writes the config to the user config directory.
func (s *Config) SaveAppConfig() error {
	path, err := appPath()
	if err != nil {
		return fmt.Errorf("SaveAppConfig: failed to access config path due to error %w", err)
	}
	return s.SaveTo(path)
}

func (s *Config) SaveTo(path string) error {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("SaveTo: failed to marshal json due to error %w", err)
	}

	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("SaveTo: failed save config due to error %w", err)
	}

	return nil
}
