package model

import (
	"fmt"
	"time"
)

// ServiceSpec describes the supervised web-service process launched in
// combined mode.
type ServiceSpec struct {
	// Command is the shell command line that starts the service
	Command string
	// Dir is the working directory for the command
	Dir string
	// ProbeAddr is the host:port probed for readiness; empty means no
	// probe, only the grace delay is waited
	ProbeAddr string
	// ReadyTimeout bounds the readiness probe
	ReadyTimeout time.Duration
	// GraceDelay is waited when there is no probe address
	GraceDelay time.Duration
	// StopTimeout bounds graceful termination before a hard kill
	StopTimeout time.Duration
}

// Validate checks the fields a launch requires.
func (s ServiceSpec) Validate() error {
	if s.Command == "" {
		return fmt.Errorf("service spec: command is required")
	}
	return nil
}
