package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/glowlab/studioport/internal/domain/model"
	"github.com/glowlab/studioport/internal/domain/port"
)

// ConfigRepository is an implementation of port.ConfigRepository backed
// by a YAML file.
type ConfigRepository struct{}

// NewConfigRepository creates a new ConfigRepository instance
func NewConfigRepository() *ConfigRepository {
	return &ConfigRepository{}
}

// Load loads configuration from file. Missing file yields the defaults;
// missing keys keep their default values.
func (r *ConfigRepository) Load(configPath string) (*model.Config, error) {
	config := model.NewConfig()

	// If configPath is empty, look in the default location
	if configPath == "" {
		var err error
		configPath, err = r.GetDefaultPath()
		if err != nil {
			return nil, err
		}
	}

	// Check if the file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return config, nil
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	setDefaults(v, config)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	config.ServerAddress = v.GetString("server_address")
	config.ControlPort = v.GetInt("control_port")
	config.TLSEnabled = v.GetBool("tls_enabled")
	config.Domain = v.GetString("domain")
	config.LocalHost = v.GetString("local_host")
	config.LocalPort = v.GetInt("local_port")
	config.ServiceCommand = v.GetString("service_command")
	config.ServiceWorkDir = v.GetString("service_workdir")
	config.ReadyTimeout = v.GetDuration("ready_timeout")
	config.GraceDelay = v.GetDuration("grace_delay")
	config.StopTimeout = v.GetDuration("stop_timeout")
	config.APIBaseURL = v.GetString("api_base_url")
	config.PublishAuth = model.PublishAuthMode(v.GetString("publish_auth"))
	config.AppID = v.GetInt64("app_id")
	config.InstallationID = v.GetInt64("installation_id")
	config.PrivateKeyPath = v.GetString("private_key_path")
	config.ContentDir = v.GetString("content_dir")
	config.AssetDir = v.GetString("asset_dir")
	config.StagingDir = v.GetString("staging_dir")
	config.LogLevel = model.LogLevel(v.GetString("log_level"))
	config.LogFile = v.GetString("log_file")

	return config, nil
}

// Save saves configuration to file
func (r *ConfigRepository) Save(config *model.Config, configPath string) error {
	// If configPath is empty, use default location
	if configPath == "" {
		var err error
		configPath, err = r.GetDefaultPath()
		if err != nil {
			return err
		}
	}

	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %v", err)
	}

	v := viper.New()
	v.SetConfigFile(configPath)

	v.Set("server_address", config.ServerAddress)
	v.Set("control_port", config.ControlPort)
	v.Set("tls_enabled", config.TLSEnabled)
	v.Set("domain", config.Domain)
	v.Set("local_host", config.LocalHost)
	v.Set("local_port", config.LocalPort)
	v.Set("service_command", config.ServiceCommand)
	v.Set("service_workdir", config.ServiceWorkDir)
	v.Set("ready_timeout", config.ReadyTimeout.String())
	v.Set("grace_delay", config.GraceDelay.String())
	v.Set("stop_timeout", config.StopTimeout.String())
	v.Set("api_base_url", config.APIBaseURL)
	v.Set("publish_auth", string(config.PublishAuth))
	v.Set("app_id", config.AppID)
	v.Set("installation_id", config.InstallationID)
	v.Set("private_key_path", config.PrivateKeyPath)
	v.Set("content_dir", config.ContentDir)
	v.Set("asset_dir", config.AssetDir)
	v.Set("staging_dir", config.StagingDir)
	v.Set("log_level", string(config.LogLevel))
	v.Set("log_file", config.LogFile)

	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("error saving configuration: %v", err)
	}

	return nil
}

// GetDefaultPath returns the default path for configuration file
func (r *ConfigRepository) GetDefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("error getting home directory: %v", err)
	}

	return filepath.Join(homeDir, ".studioport", "config.yaml"), nil
}

// setDefaults seeds viper so keys absent from the file keep defaults
func setDefaults(v *viper.Viper, defaults *model.Config) {
	v.SetDefault("server_address", defaults.ServerAddress)
	v.SetDefault("control_port", defaults.ControlPort)
	v.SetDefault("tls_enabled", defaults.TLSEnabled)
	v.SetDefault("domain", defaults.Domain)
	v.SetDefault("local_host", defaults.LocalHost)
	v.SetDefault("local_port", defaults.LocalPort)
	v.SetDefault("service_command", defaults.ServiceCommand)
	v.SetDefault("service_workdir", defaults.ServiceWorkDir)
	v.SetDefault("ready_timeout", defaults.ReadyTimeout.String())
	v.SetDefault("grace_delay", defaults.GraceDelay.String())
	v.SetDefault("stop_timeout", defaults.StopTimeout.String())
	v.SetDefault("api_base_url", defaults.APIBaseURL)
	v.SetDefault("publish_auth", string(defaults.PublishAuth))
	v.SetDefault("app_id", defaults.AppID)
	v.SetDefault("installation_id", defaults.InstallationID)
	v.SetDefault("private_key_path", defaults.PrivateKeyPath)
	v.SetDefault("content_dir", defaults.ContentDir)
	v.SetDefault("asset_dir", defaults.AssetDir)
	v.SetDefault("staging_dir", defaults.StagingDir)
	v.SetDefault("log_level", string(defaults.LogLevel))
	v.SetDefault("log_file", defaults.LogFile)
}

// Ensure ConfigRepository implements port.ConfigRepository
var _ port.ConfigRepository = (*ConfigRepository)(nil)
