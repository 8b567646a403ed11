package model

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// LogLevel defines logging levels
type LogLevel string

const (
	// LogLevelDebug is the level for debug messages
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo is the level for informational messages
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn is the level for warning messages
	LogLevelWarn LogLevel = "warn"
	// LogLevelError is the level for error messages
	LogLevelError LogLevel = "error"
)

// ParseLogLevel validates a log level string
func ParseLogLevel(s string) (LogLevel, error) {
	switch LogLevel(s) {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return LogLevel(s), nil
	}
	return "", fmt.Errorf("unknown log level: %s", s)
}

// PublishAuthMode selects how the publish client authenticates to the
// repository host.
type PublishAuthMode string

const (
	// PublishAuthToken uses a personal access token from the credential
	// resolver.
	PublishAuthToken PublishAuthMode = "token"
	// PublishAuthApp uses GitHub App installation tokens minted from a
	// private key.
	PublishAuthApp PublishAuthMode = "app"
)

// Config is the configuration structure for the studioport client
type Config struct {
	// ServerAddress is the relay server address
	ServerAddress string
	// ControlPort is the port for the relay control channel
	ControlPort int
	// TLSEnabled is a flag to enable TLS on the control channel
	TLSEnabled bool

	// Domain is the reserved domain the tunnel binds to
	Domain string
	// LocalHost is the address the studio service listens on
	LocalHost string
	// LocalPort is the port the studio service listens on
	LocalPort int

	// ServiceCommand is the command that launches the studio service
	// (combined mode only)
	ServiceCommand string
	// ServiceWorkDir is the working directory for ServiceCommand
	ServiceWorkDir string
	// ReadyTimeout bounds the local readiness probe before the tunnel
	// is started
	ReadyTimeout time.Duration
	// GraceDelay is waited instead of probing when no local port is set
	GraceDelay time.Duration
	// StopTimeout bounds graceful service shutdown before a hard kill
	StopTimeout time.Duration

	// APIBaseURL is the repository host API base URL
	APIBaseURL string
	// PublishAuth selects token or app authentication for publishing
	PublishAuth PublishAuthMode
	// AppID is the GitHub App id (app mode)
	AppID int64
	// InstallationID is the GitHub App installation id (app mode)
	InstallationID int64
	// PrivateKeyPath is the path to the App private key PEM (app mode)
	PrivateKeyPath string
	// ContentDir is where markdown artifacts land in the site repository
	ContentDir string
	// AssetDir is where image artifacts land in the site repository
	AssetDir string
	// StagingDir is the local workspace for artifacts awaiting publish
	StagingDir string

	// LogLevel is the logging level (debug, info, warn, error)
	LogLevel LogLevel
	// LogFile is the path to log file (empty for stderr)
	LogFile string
}

// NewConfig creates a new Config instance with default values
func NewConfig() *Config {
	return &Config{
		ServerAddress:  "relay.glowlab.dev",
		ControlPort:    443,
		TLSEnabled:     true,
		Domain:         "",
		LocalHost:      "127.0.0.1",
		LocalPort:      8501,
		ServiceWorkDir: ".",
		ReadyTimeout:   30 * time.Second,
		GraceDelay:     3 * time.Second,
		StopTimeout:    10 * time.Second,
		APIBaseURL:     "https://api.github.com",
		PublishAuth:    PublishAuthToken,
		ContentDir:     "content/posts",
		AssetDir:       "assets/images",
		StagingDir:     filepath.Join(configDir(), "staging"),
		LogLevel:       LogLevelInfo,
		LogFile:        "",
	}
}

// TunnelConfig assembles the immutable binding configuration from the
// loaded settings.
func (c *Config) TunnelConfig() TunnelConfig {
	return TunnelConfig{
		Domain:    c.Domain,
		Protocol:  ProtocolHTTP,
		LocalHost: c.LocalHost,
		LocalPort: c.LocalPort,
	}
}

// ServiceSpec assembles the web-service launch description from the
// loaded settings. The readiness probe targets the same address the
// tunnel forwards to.
func (c *Config) ServiceSpec() ServiceSpec {
	spec := ServiceSpec{
		Command:      c.ServiceCommand,
		Dir:          c.ServiceWorkDir,
		ReadyTimeout: c.ReadyTimeout,
		GraceDelay:   c.GraceDelay,
		StopTimeout:  c.StopTimeout,
	}
	if c.LocalPort > 0 {
		spec.ProbeAddr = c.TunnelConfig().LocalAddr()
	}
	return spec
}

// GetConfigFilePath returns the path to configuration file
func (c *Config) GetConfigFilePath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// configDir determines the configuration directory based on user
func configDir() string {
	dir := "/etc/studioport"

	// If not root, use home directory
	if os.Getuid() != 0 {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			dir = filepath.Join(homeDir, ".studioport")
		}
	}

	return dir
}
