package service

import (
	"fmt"
	"strconv"
	"time"

	"github.com/glowlab/studioport/internal/domain/model"
	"github.com/glowlab/studioport/internal/domain/port"
)

// ConfigService is a service for managing configuration
type ConfigService struct {
	configRepo port.ConfigRepository
	logger     port.Logger
}

// NewConfigService creates a new ConfigService instance
func NewConfigService(configRepo port.ConfigRepository, logger port.Logger) *ConfigService {
	return &ConfigService{
		configRepo: configRepo,
		logger:     logger,
	}
}

// LoadConfig loads configuration from a file
func (s *ConfigService) LoadConfig(configPath string) (*model.Config, error) {
	if configPath == "" {
		var err error
		configPath, err = s.configRepo.GetDefaultPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get default path: %v", err)
		}
	}

	config, err := s.configRepo.Load(configPath)
	if err != nil {
		s.logger.Warn("Failed to load configuration from %s: %v", configPath, err)
		// Fall back to defaults when there is no usable file
		return model.NewConfig(), nil
	}

	s.logger.Debug("Configuration loaded from %s", configPath)

	return config, nil
}

// SaveConfig saves configuration to a file
func (s *ConfigService) SaveConfig(config *model.Config, configPath string) error {
	if configPath == "" {
		var err error
		configPath, err = s.configRepo.GetDefaultPath()
		if err != nil {
			return fmt.Errorf("failed to get default path: %v", err)
		}
	}

	if err := s.configRepo.Save(config, configPath); err != nil {
		return fmt.Errorf("failed to save configuration: %v", err)
	}

	s.logger.Info("Configuration saved to %s", configPath)

	return nil
}

// Set applies one key=value pair to config. Credentials are not
// configuration and have no key here; they come from the environment
// or the prompt at run time.
func (s *ConfigService) Set(config *model.Config, key, value string) error {
	switch key {
	case "server_address":
		config.ServerAddress = value
	case "control_port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid control_port: %v", err)
		}
		config.ControlPort = port
	case "tls_enabled":
		enabled, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid tls_enabled: %v", err)
		}
		config.TLSEnabled = enabled
	case "domain":
		config.Domain = value
	case "local_host":
		config.LocalHost = value
	case "local_port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid local_port: %v", err)
		}
		config.LocalPort = port
	case "service_command":
		config.ServiceCommand = value
	case "service_workdir":
		config.ServiceWorkDir = value
	case "ready_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid ready_timeout: %v", err)
		}
		config.ReadyTimeout = d
	case "grace_delay":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid grace_delay: %v", err)
		}
		config.GraceDelay = d
	case "stop_timeout":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid stop_timeout: %v", err)
		}
		config.StopTimeout = d
	case "api_base_url":
		config.APIBaseURL = value
	case "publish_auth":
		switch model.PublishAuthMode(value) {
		case model.PublishAuthToken, model.PublishAuthApp:
			config.PublishAuth = model.PublishAuthMode(value)
		default:
			return fmt.Errorf("invalid publish_auth: %s (want token or app)", value)
		}
	case "app_id":
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid app_id: %v", err)
		}
		config.AppID = id
	case "installation_id":
		id, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid installation_id: %v", err)
		}
		config.InstallationID = id
	case "private_key_path":
		config.PrivateKeyPath = value
	case "content_dir":
		config.ContentDir = value
	case "asset_dir":
		config.AssetDir = value
	case "staging_dir":
		config.StagingDir = value
	case "log_level":
		level, err := model.ParseLogLevel(value)
		if err != nil {
			return fmt.Errorf("invalid log_level: %v", err)
		}
		config.LogLevel = level
	case "log_file":
		config.LogFile = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}
