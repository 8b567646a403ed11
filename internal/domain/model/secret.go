package model

// SecretSource identifies where a credential value was resolved from.
type SecretSource string

const (
	// SourceEnvironment means the value came from an environment variable
	SourceEnvironment SecretSource = "environment"
	// SourceInteractive means the value was typed at a prompt
	SourceInteractive SecretSource = "interactive"
)

// Secret is a resolved credential. The value lives in process memory
// only and is never persisted. Formatting redacts the value so a Secret
// can pass through %v and %+v without leaking.
type Secret struct {
	Name   string       `json:"name"`
	Value  string       `json:"-"`
	Source SecretSource `json:"source"`
}

func (s Secret) String() string {
	return s.Name + " [redacted, " + string(s.Source) + "]"
}

func (s Secret) GoString() string {
	return s.String()
}

// IsZero reports whether the secret carries no value.
func (s Secret) IsZero() bool {
	return s.Value == ""
}

// CredentialSpec names a credential and where it may be resolved from.
type CredentialSpec struct {
	// Name is the logical credential name used in messages
	Name string
	// EnvVar is the environment variable checked first
	EnvVar string
	// Prompt is the label shown by interactive sources
	Prompt string
	// Sensitive values are read without echo and never logged
	Sensitive bool
	// Default is offered by interactive sources. Sensitive specs must
	// never carry a default.
	Default string
}

// Well-known credentials. Repository identity travels the same
// resolution path as the tokens so headless deployments configure
// everything through the environment.
var (
	CredentialTunnelToken = CredentialSpec{
		Name:      "tunnel-authtoken",
		EnvVar:    "STUDIOPORT_AUTHTOKEN",
		Prompt:    "Tunnel authtoken",
		Sensitive: true,
	}
	CredentialRepoToken = CredentialSpec{
		Name:      "repo-token",
		EnvVar:    "STUDIOPORT_REPO_TOKEN",
		Prompt:    "Repository access token",
		Sensitive: true,
	}
	CredentialRepoOwner = CredentialSpec{
		Name:   "repo-owner",
		EnvVar: "STUDIOPORT_REPO_OWNER",
		Prompt: "Repository owner",
	}
	CredentialRepoName = CredentialSpec{
		Name:   "repo-name",
		EnvVar: "STUDIOPORT_REPO_NAME",
		Prompt: "Repository name",
	}
	CredentialRepoBranch = CredentialSpec{
		Name:    "repo-branch",
		EnvVar:  "STUDIOPORT_REPO_BRANCH",
		Prompt:  "Target branch",
		Default: "main",
	}
)
