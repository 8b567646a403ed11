package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType defines message types for client-relay communication
type MessageType string

const (
	// MessageTypeAuth presents the authtoken
	MessageTypeAuth MessageType = "auth"
	// MessageTypeAuthAck acknowledges auth and carries the grant
	MessageTypeAuthAck MessageType = "auth_ack"
	// MessageTypeBind requests the reserved domain binding
	MessageTypeBind MessageType = "bind"
	// MessageTypeBindAck acknowledges a binding
	MessageTypeBindAck MessageType = "bind_ack"
	// MessageTypeUnbind releases a binding
	MessageTypeUnbind MessageType = "unbind"
	// MessageTypeUnbindAck acknowledges a release
	MessageTypeUnbindAck MessageType = "unbind_ack"
	// MessageTypeData carries tunneled bytes
	MessageTypeData MessageType = "data"
	// MessageTypePing keeps the connection alive
	MessageTypePing MessageType = "ping"
	// MessageTypePong is a response to ping
	MessageTypePong MessageType = "pong"
	// MessageTypeError indicates an error message
	MessageTypeError MessageType = "error"
)

// Message represents the base structure for all client-relay messages
type Message struct {
	// Type is the message type
	Type MessageType `json:"type"`
	// Version is the protocol version
	Version string `json:"version"`
	// Timestamp is when the message was created (in milliseconds since epoch)
	Timestamp int64 `json:"timestamp"`
	// Payload contains the actual message data
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewMessage creates a new message with specified type and payload
func NewMessage(msgType MessageType, payload interface{}) (*Message, error) {
	var payloadJSON json.RawMessage
	var err error

	if payload != nil {
		payloadJSON, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to convert payload to JSON: %v", err)
		}
	}

	return &Message{
		Type:      msgType,
		Version:   "1.0.0", // Current protocol version
		Timestamp: time.Now().UnixNano() / int64(time.Millisecond),
		Payload:   payloadJSON,
	}, nil
}

// ParsePayload parses message payload into the provided struct
func (m *Message) ParsePayload(v interface{}) error {
	if m.Payload == nil {
		return nil
	}
	return json.Unmarshal(m.Payload, v)
}

// AuthPayload is for authentication messages
type AuthPayload struct {
	// Token is the authentication token
	Token string `json:"token"`
	// ClientVersion is the studioport client version
	ClientVersion string `json:"client_version,omitempty"`
}

// AuthAckPayload carries the grant for an accepted token
type AuthAckPayload struct {
	Account             string `json:"account"`
	Plan                string `json:"plan"`
	SessionLimitMinutes int    `json:"session_limit_minutes,omitempty"`
	MaxConnsPerMinute   int    `json:"max_conns_per_minute,omitempty"`
}

// Grant converts the wire payload into an AuthGrant.
func (p AuthAckPayload) Grant() AuthGrant {
	return AuthGrant{
		Account:           p.Account,
		Plan:              p.Plan,
		SessionLimit:      time.Duration(p.SessionLimitMinutes) * time.Minute,
		MaxConnsPerMinute: p.MaxConnsPerMinute,
	}
}

// BindPayload requests the reserved domain
type BindPayload struct {
	// Domain is the reserved domain to bind
	Domain string `json:"domain"`
	// Protocol is the exposed protocol
	Protocol string `json:"protocol"`
	// LocalPort is the local port being exposed (informational)
	LocalPort int `json:"local_port,omitempty"`
}

// BindAckPayload is the response to a bind request
type BindAckPayload struct {
	// BindingID identifies the binding for unbind and data messages
	BindingID string `json:"binding_id"`
	// Domain echoes the bound domain
	Domain string `json:"domain"`
	// PublicURL is the public address of the binding
	PublicURL string `json:"public_url"`
}

// UnbindPayload releases a binding
type UnbindPayload struct {
	// BindingID is the binding to release
	BindingID string `json:"binding_id"`
}

// UnbindAckPayload acknowledges a release
type UnbindAckPayload struct {
	BindingID string `json:"binding_id"`
}

// DataPayload is for data messages
type DataPayload struct {
	// BindingID is the binding the data belongs to
	BindingID string `json:"binding_id"`
	// ConnectionID is the public connection the data belongs to
	ConnectionID string `json:"connection_id"`
	// Data is the actual data being relayed
	Data []byte `json:"data,omitempty"`
	// Closed signals the end of the connection
	Closed bool `json:"closed,omitempty"`
}

// ErrorPayload is for error messages
type ErrorPayload struct {
	// Code is the error code
	Code string `json:"code"`
	// Message contains the error details
	Message string `json:"message"`
}

// Relay error codes surfaced in ErrorPayload.Code.
const (
	ErrorCodeInvalidToken     = "invalid_token"
	ErrorCodeDomainConflict   = "domain_conflict"
	ErrorCodeDomainUnreserved = "domain_unreserved"
	ErrorCodeSessionLimit     = "session_limit"
)

// Err maps a relay error payload onto the client error taxonomy.
// Unknown codes come back as plain errors with the code preserved.
func (p ErrorPayload) Err() error {
	var base error
	switch p.Code {
	case ErrorCodeInvalidToken:
		base = ErrAuthenticationFailed
	case ErrorCodeDomainConflict:
		base = ErrDomainConflict
	case ErrorCodeDomainUnreserved:
		base = ErrDomainUnavailable
	case ErrorCodeSessionLimit:
		base = ErrSessionLimitExceeded
	default:
		return fmt.Errorf("relay error %q: %s", p.Code, p.Message)
	}
	if p.Message == "" {
		return base
	}
	return fmt.Errorf("%s: %w", p.Message, base)
}
