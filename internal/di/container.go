package di

import (
	"context"
	"fmt"
	"os"

	"github.com/glowlab/studioport/internal/application/service"
	"github.com/glowlab/studioport/internal/domain/model"
	"github.com/glowlab/studioport/internal/domain/port"
	"github.com/glowlab/studioport/internal/infrastructure/config"
	"github.com/glowlab/studioport/internal/infrastructure/credential"
	"github.com/glowlab/studioport/internal/infrastructure/github"
	"github.com/glowlab/studioport/internal/infrastructure/logger"
	"github.com/glowlab/studioport/internal/infrastructure/process"
	"github.com/glowlab/studioport/internal/infrastructure/staging"
	"github.com/glowlab/studioport/internal/infrastructure/transport"
)

// Container is a container for dependency injection
type Container struct {
	// Logger
	Logger *logger.Logger

	// Repositories
	ConfigRepository *config.ConfigRepository

	// Services
	ConfigService *service.ConfigService
	Credentials   *service.Resolver
	Sessions      *service.SessionService
	Orchestrator  *service.OrchestratorService

	// Config
	Config *model.Config
}

// NewContainer creates a new Container instance
func NewContainer() *Container {
	return &Container{}
}

// Initialize wires every dependency from the loaded configuration.
// Logs go to stderr so command output on stdout stays scriptable.
func (c *Container) Initialize(configPath string) error {
	c.Logger = logger.NewLogger(os.Stderr, "info")

	c.ConfigRepository = config.NewConfigRepository()
	c.ConfigService = service.NewConfigService(c.ConfigRepository, c.Logger)

	var err error
	c.Config, err = c.ConfigService.LoadConfig(configPath)
	if err != nil {
		return err
	}

	c.Logger.SetLevel(string(c.Config.LogLevel))

	if c.Config.LogFile != "" {
		fileLogger, err := logger.NewFileLogger(c.Config.LogFile, string(c.Config.LogLevel))
		if err != nil {
			c.Logger.Error("Failed to create file logger: %v", err)
		} else {
			c.Logger.Close()
			c.Logger = fileLogger
		}
	}

	c.Credentials = service.NewResolver(c.Logger, credential.NewEnvSource(), credential.NewPromptSource())

	c.Sessions = service.NewSessionService(func() port.Transport {
		return transport.NewClient(c.Config, c.Logger)
	}, c.Logger)

	c.Orchestrator = service.NewOrchestratorService(process.NewRunner(c.Logger), c.Sessions, c.Logger)

	return nil
}

// Publisher builds the publish service over the staging workspace.
// The remote side stays unbuilt until the first publish, so staging
// and discarding never resolve repository credentials.
func (c *Container) Publisher() (*service.PublishService, error) {
	workspace, err := staging.NewWorkspace(c.Config.StagingDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open staging workspace: %v", err)
	}

	newRemote := func(ctx context.Context) (port.RemoteRepository, error) {
		auth, err := c.remoteAuth()
		if err != nil {
			return nil, err
		}
		return github.NewClient(c.Config.APIBaseURL, auth, c.Logger), nil
	}

	return service.NewPublishService(newRemote, workspace, c.Logger, c.Config.ContentDir, c.Config.AssetDir), nil
}

// remoteAuth picks the authenticator for the configured publish mode
func (c *Container) remoteAuth() (github.Authenticator, error) {
	switch c.Config.PublishAuth {
	case model.PublishAuthApp:
		pem, err := os.ReadFile(c.Config.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read App private key: %v", err)
		}
		return github.NewAppAuth(c.Config.APIBaseURL, c.Config.AppID, c.Config.InstallationID, pem)
	default:
		return github.NewTokenAuth(func(ctx context.Context) (string, error) {
			secret, err := c.Credentials.Resolve(ctx, model.CredentialRepoToken)
			if err != nil {
				return "", err
			}
			return secret.Value, nil
		}), nil
	}
}

// Close closes all resources
func (c *Container) Close() {
	if c.Logger != nil {
		c.Logger.Close()
	}
}
