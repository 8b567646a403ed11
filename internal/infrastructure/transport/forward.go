package transport

import (
	"fmt"
	"math/rand"
	"net"
	"sync"
	"time"

	"github.com/glowlab/studioport/internal/domain/model"
	"github.com/glowlab/studioport/internal/domain/port"
)

const (
	dialTimeout     = 5 * time.Second
	keepAlivePeriod = 30 * time.Second
	bufferSize      = 32 * 1024 // 32KB
	localWriteWait  = 5 * time.Second
	maxSendRetries  = 3
	initialBackoff  = 100 * time.Millisecond
	maxBackoff      = 2 * time.Second
)

// Forwarder relays visitor traffic between the relay and the local
// service. Every relay connection id maps to one local TCP connection,
// dialed on the first frame and pumped both ways as opaque bytes.
type Forwarder struct {
	client *Client
	logger port.Logger

	mutex  sync.Mutex
	conns  map[string]net.Conn
	closed bool
}

// NewForwarder returns a forwarder bound to the given control channel
func NewForwarder(client *Client, logger port.Logger) *Forwarder {
	return &Forwarder{
		client: client,
		logger: logger,
		conns:  make(map[string]net.Conn),
	}
}

// Handle processes one inbound data frame from the relay. It runs on
// the read pump goroutine, so frames for a connection arrive in order.
func (f *Forwarder) Handle(msg *model.Message) {
	var payload model.DataPayload
	if err := msg.ParsePayload(&payload); err != nil {
		f.logger.Error("Failed to parse data payload: %v", err)
		return
	}
	if payload.ConnectionID == "" {
		f.logger.Warn("Dropping data frame without connection id")
		return
	}

	if payload.Closed {
		f.closeConn(payload.ConnectionID)
		return
	}

	conn, err := f.conn(payload.BindingID, payload.ConnectionID)
	if err != nil {
		f.logger.Error("Failed to reach local service for connection %s: %v", payload.ConnectionID, err)
		f.notifyClosed(payload.BindingID, payload.ConnectionID)
		return
	}

	if len(payload.Data) == 0 {
		return
	}

	conn.SetWriteDeadline(time.Now().Add(localWriteWait))
	_, writeErr := conn.Write(payload.Data)
	conn.SetWriteDeadline(time.Time{})
	if writeErr != nil {
		f.logger.Warn("Failed to write to local connection %s: %v", payload.ConnectionID, writeErr)
		f.closeConn(payload.ConnectionID)
		f.notifyClosed(payload.BindingID, payload.ConnectionID)
	}
}

// conn returns the local connection for the given id, dialing the
// local service on first use.
func (f *Forwarder) conn(bindingID, connectionID string) (net.Conn, error) {
	f.mutex.Lock()
	if f.closed {
		f.mutex.Unlock()
		return nil, fmt.Errorf("forwarder is closed")
	}
	if conn, exists := f.conns[connectionID]; exists {
		f.mutex.Unlock()
		return conn, nil
	}
	f.mutex.Unlock()

	localAddr := f.client.LocalAddr()
	dialer := &net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: keepAlivePeriod,
	}
	conn, err := dialer.Dial("tcp", localAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %v", localAddr, err)
	}

	if tcpConn, ok := conn.(*net.TCPConn); ok {
		tcpConn.SetNoDelay(true)
		tcpConn.SetKeepAlive(true)
		tcpConn.SetKeepAlivePeriod(keepAlivePeriod)
	}

	f.mutex.Lock()
	if f.closed {
		f.mutex.Unlock()
		conn.Close()
		return nil, fmt.Errorf("forwarder is closed")
	}
	f.conns[connectionID] = conn
	f.mutex.Unlock()

	f.logger.Debug("Connected to local service at %s for connection %s", localAddr, connectionID)

	go f.pumpLocal(bindingID, connectionID, conn)
	return conn, nil
}

// pumpLocal reads from the local service and relays every chunk back
// upstream until either side closes.
func (f *Forwarder) pumpLocal(bindingID, connectionID string, conn net.Conn) {
	defer func() {
		f.closeConn(connectionID)
		f.notifyClosed(bindingID, connectionID)
	}()

	buffer := make([]byte, bufferSize)
	for {
		n, err := conn.Read(buffer)
		if n > 0 {
			data := append([]byte(nil), buffer[:n]...)
			if sendErr := f.sendFrame(model.DataPayload{
				BindingID:    bindingID,
				ConnectionID: connectionID,
				Data:         data,
			}); sendErr != nil {
				f.logger.Warn("Failed to relay %d bytes for connection %s: %v", n, connectionID, sendErr)
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// sendFrame sends one data frame with bounded retry. Backoff grows
// 1.5x per attempt, jittered between half and all of the current delay.
func (f *Forwarder) sendFrame(payload model.DataPayload) error {
	msg, err := model.NewMessage(model.MessageTypeData, payload)
	if err != nil {
		return fmt.Errorf("failed to create data frame: %v", err)
	}

	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt < maxSendRetries; attempt++ {
		if lastErr = f.client.send(msg); lastErr == nil {
			if attempt > 0 {
				f.logger.Debug("Relayed frame after %d retries", attempt)
			}
			return nil
		}

		delay := time.Duration(rand.Int63n(int64(backoff/2)) + int64(backoff/2))
		time.Sleep(delay)

		backoff = time.Duration(float64(backoff) * 1.5)
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}

	return fmt.Errorf("failed to relay frame after %d attempts: %v", maxSendRetries, lastErr)
}

// notifyClosed tells the relay the visitor connection is gone
func (f *Forwarder) notifyClosed(bindingID, connectionID string) {
	msg, err := model.NewMessage(model.MessageTypeData, model.DataPayload{
		BindingID:    bindingID,
		ConnectionID: connectionID,
		Closed:       true,
	})
	if err != nil {
		return
	}
	f.client.send(msg)
}

// closeConn closes and forgets one local connection
func (f *Forwarder) closeConn(connectionID string) {
	f.mutex.Lock()
	conn := f.conns[connectionID]
	delete(f.conns, connectionID)
	f.mutex.Unlock()

	if conn != nil {
		conn.Close()
	}
}

// CloseAll tears down every local connection
func (f *Forwarder) CloseAll() {
	f.mutex.Lock()
	f.closed = true
	conns := f.conns
	f.conns = make(map[string]net.Conn)
	f.mutex.Unlock()

	for _, conn := range conns {
		conn.Close()
	}
}
