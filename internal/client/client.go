package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/scienceol/recovery/internal/events"
	"github.com/scienceol/recovery/internal/recovery"
)

const (
	pingInterval  = 20 * time.Second
	writeTimeout  = 10 * time.Second
	writeChanSize = 256
)

// Client keeps a WebSocket connection alive, handing every reconnect to a
// recovery.Controller.
type Client struct {
	url    string
	header http.Header
	dialer *websocket.Dialer
	log    *zap.Logger

	ctrl *recovery.Controller
	bus  *events.Bus

	// OnMessage is called for each message read from the server.
	OnMessage func(msgType int, data []byte)

	mu      sync.Mutex
	conn    *websocket.Conn
	writeCh chan []byte

	errCh  chan error
	stopCh chan struct{}
	once   sync.Once
}

// New creates a Client for url. ctrl must emit on bus.
func New(url string, ctrl *recovery.Controller, bus *events.Bus, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		url:    url,
		dialer: websocket.DefaultDialer,
		log:    log,
		ctrl:   ctrl,
		bus:    bus,
		errCh:  make(chan error, 1),
		stopCh: make(chan struct{}),
	}
}

// Stop signals the client to shut down gracefully.
func (c *Client) Stop() {
	c.once.Do(func() {
		close(c.stopCh)
	})
}

// Send enqueues a text message for the write goroutine. Non-blocking: the
// message is dropped if the buffer is full or no connection is active.
func (c *Client) Send(data []byte) bool {
	c.mu.Lock()
	ch := c.writeCh
	c.mu.Unlock()
	if ch == nil {
		return false
	}
	select {
	case ch <- data:
		return true
	default:
		return false
	}
}

// Connected reports whether a connection is currently established.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// Run connects and keeps reconnecting until Stop is called or recovery gives
// up, in which case the recovery error is returned.
func (c *Client) Run() error {
	onAttempt := func(a recovery.Attempt) { go c.dial(a) }
	onFailure := func(err error, a recovery.Attempt) {
		select {
		case c.errCh <- err:
		default:
		}
	}
	if err := c.bus.Subscribe(recovery.EventAttempt, onAttempt); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	if err := c.bus.Subscribe(recovery.EventPermanentFailure, onFailure); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	c.ctrl.Reconnect()

	var err error
	select {
	case <-c.stopCh:
	case err = <-c.errCh:
	}

	c.ctrl.Destroy()
	c.closeConn()
	_ = c.bus.Unsubscribe(recovery.EventAttempt, onAttempt)
	_ = c.bus.Unsubscribe(recovery.EventPermanentFailure, onFailure)
	return err
}

// dial performs one connection attempt and reports it to the controller.
func (c *Client) dial(a recovery.Attempt) {
	ctx, cancel := context.WithTimeout(context.Background(), a.AttemptTimeout)
	defer cancel()

	conn, resp, err := c.dialer.DialContext(ctx, c.url, c.header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		c.log.Debug("dial failed", zap.Int("attempt", a.Number), zap.Error(err))
		c.ctrl.Failed(fmt.Errorf("dial failed: %w", err))
		return
	}

	select {
	case <-c.stopCh:
		conn.Close()
		return
	default:
	}

	// The attempt may have timed out while dialing.
	if !c.ctrl.Succeeded() {
		conn.Close()
		return
	}

	go c.serve(conn)
}

// serve owns conn until it breaks, then asks for a new recovery cycle.
func (c *Client) serve(conn *websocket.Conn) {
	writeCh := make(chan []byte, writeChanSize)
	done := make(chan struct{})

	c.mu.Lock()
	c.conn = conn
	c.writeCh = writeCh
	c.mu.Unlock()

	go c.writeLoop(conn, writeCh, done)
	go c.heartbeatLoop(conn, done)

	err := c.readLoop(conn)

	close(done)
	conn.Close()
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
		c.writeCh = nil
	}
	c.mu.Unlock()

	select {
	case <-c.stopCh:
		return
	default:
	}

	c.log.Warn("connection lost", zap.Error(err))
	c.ctrl.Reconnect()
}

func (c *Client) readLoop(conn *websocket.Conn) error {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return errors.New("server closed the connection")
			}
			return fmt.Errorf("read error: %w", err)
		}
		if c.OnMessage != nil {
			c.OnMessage(msgType, data)
		}
	}
}

// writeLoop is the single goroutine that writes to the WebSocket.
func (c *Client) writeLoop(conn *websocket.Conn, ch <-chan []byte, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case msg := <-ch:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.log.Debug("write error", zap.Error(err))
				conn.Close()
				return
			}
		}
	}
}

func (c *Client) heartbeatLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				c.log.Debug("ping failed", zap.Error(err))
			}
		}
	}
}

func (c *Client) closeConn() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(writeTimeout))
	conn.Close()
}
