package transport

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/glowlab/studioport/internal/domain/model"
	"github.com/glowlab/studioport/internal/domain/port"
)

const (
	// handshakeTimeout bounds the websocket dial
	handshakeTimeout = 10 * time.Second
	// ackTimeout bounds the wait for a request acknowledgement
	ackTimeout = 10 * time.Second
	// pingInterval keeps the control channel alive
	pingInterval = 30 * time.Second
	// writeTimeout bounds a single control-channel write
	writeTimeout = 10 * time.Second
)

// Client is one control-channel connection to the relay, implementing
// port.Transport. It lives for a single session: opened during start,
// closed at teardown, never reconnected. When the channel dies the
// Done channel closes and Err carries the cause.
type Client struct {
	serverAddr  string
	controlPort int
	tlsEnabled  bool
	logger      port.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	localAddr string
	pending   map[model.MessageType]chan *model.Message
	rpcErr    chan error
	err       error

	forwarder *Forwarder

	done     chan struct{}
	doneOnce sync.Once
}

// NewClient creates a transport for the relay named in config
func NewClient(config *model.Config, logger port.Logger) *Client {
	return &Client{
		serverAddr:  config.ServerAddress,
		controlPort: config.ControlPort,
		tlsEnabled:  config.TLSEnabled,
		logger:      logger,
		pending:     make(map[model.MessageType]chan *model.Message),
		done:        make(chan struct{}),
	}
}

// Open dials the relay control channel
func (c *Client) Open(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	scheme := "ws"
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	if c.tlsEnabled {
		scheme = "wss"
		dialer.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	serverURL := fmt.Sprintf("%s://%s:%d/control", scheme, c.serverAddr, c.controlPort)
	u, err := url.Parse(serverURL)
	if err != nil {
		return fmt.Errorf("invalid relay URL: %v", err)
	}
	c.logger.Info("Connecting to relay: %s", serverURL)

	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect to relay: %v", err)
	}

	c.conn = conn
	c.connected = true
	c.forwarder = NewForwarder(c, c.logger)

	go c.readPump(conn)
	go c.pingLoop()

	return nil
}

// Authenticate presents the authtoken and waits for the grant
func (c *Client) Authenticate(ctx context.Context, token string) (*model.AuthGrant, error) {
	payload := model.AuthPayload{
		Token:         token,
		ClientVersion: model.ClientVersion,
	}
	reply, err := c.roundTrip(ctx, model.MessageTypeAuth, payload, model.MessageTypeAuthAck)
	if err != nil {
		return nil, err
	}

	var ack model.AuthAckPayload
	if err := reply.ParsePayload(&ack); err != nil {
		return nil, fmt.Errorf("failed to parse auth response: %v", err)
	}

	grant := ack.Grant()
	c.logger.Info("Authenticated: account=%s plan=%s", grant.Account, grant.Plan)
	return &grant, nil
}

// Bind requests the reserved domain
func (c *Client) Bind(ctx context.Context, config model.TunnelConfig) (*model.Binding, error) {
	c.mu.Lock()
	c.localAddr = config.LocalAddr()
	c.mu.Unlock()

	payload := model.BindPayload{
		Domain:    config.Domain,
		Protocol:  string(config.Protocol),
		LocalPort: config.LocalPort,
	}
	reply, err := c.roundTrip(ctx, model.MessageTypeBind, payload, model.MessageTypeBindAck)
	if err != nil {
		return nil, err
	}

	var ack model.BindAckPayload
	if err := reply.ParsePayload(&ack); err != nil {
		return nil, fmt.Errorf("failed to parse bind response: %v", err)
	}
	if ack.BindingID == "" {
		return nil, fmt.Errorf("relay returned an empty binding")
	}

	c.logger.Info("Domain bound: %s -> %s", ack.Domain, config.LocalAddr())
	return &model.Binding{
		ID:        ack.BindingID,
		Domain:    ack.Domain,
		PublicURL: ack.PublicURL,
	}, nil
}

// Unbind releases the binding. Teardown tolerates failures here; the
// relay reaps bindings of dead connections anyway.
func (c *Client) Unbind(ctx context.Context, bindingID string) error {
	payload := model.UnbindPayload{BindingID: bindingID}
	_, err := c.roundTrip(ctx, model.MessageTypeUnbind, payload, model.MessageTypeUnbindAck)
	return err
}

// Done is closed when the underlying channel dies
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns the cause once Done is closed. Nil after an orderly
// Close.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close tears the connection down. Safe to call more than once.
func (c *Client) Close() error {
	c.shutdown(nil)
	return nil
}

// LocalAddr returns the local service address of the current binding
func (c *Client) LocalAddr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.localAddr
}

// roundTrip sends a request and waits for its acknowledgement or a
// relay error. The protocol runs one request at a time, so a single
// waiter per ack type is enough.
func (c *Client) roundTrip(ctx context.Context, reqType model.MessageType, payload interface{}, ackType model.MessageType) (*model.Message, error) {
	replyCh := make(chan *model.Message, 1)
	errCh := make(chan error, 1)

	c.mu.Lock()
	if !c.connected {
		c.mu.Unlock()
		return nil, fmt.Errorf("not connected to relay")
	}
	if _, exists := c.pending[ackType]; exists {
		c.mu.Unlock()
		return nil, fmt.Errorf("another %s request is in flight", reqType)
	}
	c.pending[ackType] = replyCh
	c.rpcErr = errCh
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, ackType)
		c.rpcErr = nil
		c.mu.Unlock()
	}()

	msg, err := model.NewMessage(reqType, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s message: %v", reqType, err)
	}
	if err := c.send(msg); err != nil {
		return nil, err
	}

	select {
	case reply := <-replyCh:
		return reply, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.done:
		if cause := c.Err(); cause != nil {
			return nil, cause
		}
		return nil, fmt.Errorf("connection closed while waiting for %s response", reqType)
	case <-time.After(ackTimeout):
		return nil, fmt.Errorf("timeout waiting for %s response", reqType)
	}
}

// send writes one message to the relay
func (c *Client) send(msg *model.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected || c.conn == nil {
		return fmt.Errorf("not connected to relay")
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to convert message to JSON: %v", err)
	}

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("failed to send %s: %v", msg.Type, err)
	}
	return nil
}

// readPump reads messages from the relay until the connection dies
func (c *Client) readPump(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.shutdown(fmt.Errorf("control channel closed: %v", err))
			return
		}

		var msg model.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logger.Error("Failed to parse relay message: %v", err)
			continue
		}

		switch msg.Type {
		case model.MessageTypePong:
			continue

		case model.MessageTypePing:
			if reply, err := model.NewMessage(model.MessageTypePong, nil); err == nil {
				c.send(reply)
			}

		case model.MessageTypeData:
			c.forwarder.Handle(&msg)

		case model.MessageTypeError:
			var payload model.ErrorPayload
			if err := msg.ParsePayload(&payload); err != nil {
				c.logger.Error("Failed to parse relay error: %v", err)
				continue
			}
			relayErr := payload.Err()

			c.mu.Lock()
			waiter := c.rpcErr
			c.mu.Unlock()
			if waiter != nil {
				select {
				case waiter <- relayErr:
				default:
				}
				continue
			}

			// Unsolicited relay error ends the transport, e.g. the
			// session being revoked server-side.
			c.shutdown(relayErr)
			return

		default:
			c.mu.Lock()
			replyCh := c.pending[msg.Type]
			c.mu.Unlock()
			if replyCh == nil {
				c.logger.Warn("No handler for message type: %s", msg.Type)
				continue
			}
			select {
			case replyCh <- &msg:
			default:
			}
		}
	}
}

// pingLoop keeps the control channel alive while connected
func (c *Client) pingLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			msg, err := model.NewMessage(model.MessageTypePing, nil)
			if err != nil {
				continue
			}
			if err := c.send(msg); err != nil {
				c.shutdown(fmt.Errorf("keepalive failed: %v", err))
				return
			}
		}
	}
}

// shutdown settles the transport once, recording cause if any
func (c *Client) shutdown(cause error) {
	c.mu.Lock()
	if c.err == nil && cause != nil {
		c.err = cause
	}
	conn := c.conn
	forwarder := c.forwarder
	c.conn = nil
	c.connected = false
	c.mu.Unlock()

	if conn != nil {
		conn.Close()
	}
	if forwarder != nil {
		forwarder.CloseAll()
	}

	c.doneOnce.Do(func() {
		close(c.done)
	})
}

// Ensure Client implements port.Transport
var _ port.Transport = (*Client)(nil)
