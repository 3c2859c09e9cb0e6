package ws

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Close reasons reported in the close frame.
const (
	CloseReasonSlowConsumer     = "slow_consumer"
	CloseReasonHeartbeatTimeout = "heartbeat_timeout"
	CloseReasonAuthRequired     = "auth_required"
	CloseReasonSessionEnded     = "session_ended"
	CloseReasonSuperseded       = "superseded"
	CloseReasonInternal         = "internal"
)

const (
	defaultQueueSize    = 256
	defaultPingInterval = 20 * time.Second
	defaultPongTimeout  = 45 * time.Second
	writeDeadline       = 10 * time.Second
)

var (
	ErrConnClosed   = errors.New("connection closed")
	ErrSlowConsumer = errors.New("send queue full")
)

// ConnOptions tunes per-connection heartbeat and queue behavior.
type ConnOptions struct {
	PingInterval time.Duration
	PongTimeout  time.Duration
	QueueSize    int
}

// Conn owns one WebSocket. A reader pump delivers raw inbound frames to a
// handler; a writer pump drains a bounded outbound queue and drives the
// application-level heartbeat. Queue overflow closes the connection with the
// slow_consumer reason; the owner's state is untouched.
type Conn struct {
	ws     *websocket.Conn
	sendCh chan []byte
	logger zerolog.Logger

	pingInterval time.Duration
	pongTimeout  time.Duration

	lastPong atomic.Int64 // unix nanos

	mu     sync.Mutex
	closed bool
	reason string
}

// NewConn wraps an upgraded WebSocket connection.
func NewConn(wsc *websocket.Conn, logger zerolog.Logger, opts ConnOptions) *Conn {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = defaultPingInterval
	}
	if opts.PongTimeout <= 0 {
		opts.PongTimeout = defaultPongTimeout
	}

	c := &Conn{
		ws:           wsc,
		sendCh:       make(chan []byte, opts.QueueSize),
		logger:       logger,
		pingInterval: opts.PingInterval,
		pongTimeout:  opts.PongTimeout,
	}
	c.lastPong.Store(time.Now().UnixNano())
	wsc.SetReadLimit(MaxMessageSize + 1024)
	return c
}

// Send queues an outbound frame. A full queue means the peer has stopped
// reading: the connection is closed with slow_consumer and ErrSlowConsumer is
// returned.
func (c *Conn) Send(data []byte) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConnClosed
	}
	select {
	case c.sendCh <- data:
		c.mu.Unlock()
		return nil
	default:
		c.mu.Unlock()
		c.CloseWithReason(CloseReasonSlowConsumer)
		return ErrSlowConsumer
	}
}

// CloseWithReason shuts the connection down. Idempotent: the first reason wins.
// Queued messages are flushed before the close frame is written.
func (c *Conn) CloseWithReason(reason string) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.reason = reason
	close(c.sendCh)
	c.mu.Unlock()
}

// Close shuts down with a normal close frame.
func (c *Conn) Close() {
	c.CloseWithReason("")
}

// CloseReason returns the reason recorded at close time, or "" while open.
func (c *Conn) CloseReason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

// MarkPong records heartbeat liveness; called by the owner on inbound pong.
func (c *Conn) MarkPong() {
	c.lastPong.Store(time.Now().UnixNano())
}

// ReadWithDeadline reads a single text frame, used for the init handshake
// before the pumps start.
func (c *Conn) ReadWithDeadline(timeout time.Duration) ([]byte, error) {
	if err := c.ws.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, err
	}
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	return data, nil
}

// WritePump drains the outbound queue and emits ping frames. It exits once the
// queue is closed and flushed, or on a write error.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case data, ok := <-c.sendCh:
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, c.CloseReason())
				c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeDeadline))
				return
			}
			c.ws.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Warn().Err(err).Msg("write error")
				c.CloseWithReason(CloseReasonInternal)
				c.drain()
				return
			}
		case <-ticker.C:
			if time.Since(time.Unix(0, c.lastPong.Load())) > c.pongTimeout {
				c.CloseWithReason(CloseReasonHeartbeatTimeout)
				continue
			}
			ping, err := Encode(NewPing(time.Now().UnixMilli()))
			if err != nil {
				continue
			}
			c.ws.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.ws.WriteMessage(websocket.TextMessage, ping); err != nil {
				c.CloseWithReason(CloseReasonInternal)
				c.drain()
				return
			}
		}
	}
}

func (c *Conn) drain() {
	for range c.sendCh {
	}
}

// ReadPump delivers raw inbound frames to the handler until the socket drops.
// The handler runs on the reader goroutine, so frames from one connection are
// processed in arrival order.
func (c *Conn) ReadPump(handler func(data []byte)) {
	defer c.Close()

	c.ws.SetReadDeadline(time.Time{})
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn().Err(err).Msg("read error")
			}
			return
		}
		handler(data)
	}
}
