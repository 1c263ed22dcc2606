package stream

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/nao1215/wsspider/internal/model"
	"github.com/nao1215/wsspider/internal/protocol"
)

const (
	// DefaultReconnectDelay is the pause before redialling.
	DefaultReconnectDelay = 5 * time.Second

	// DefaultHandshakeTimeout bounds the WebSocket opening handshake.
	DefaultHandshakeTimeout = 10 * time.Second

	writeTimeout = 10 * time.Second
)

// Handler receives the inbound side of the channel.
type Handler interface {
	// Hello returns the values announced in client_ready.
	Hello() (jobs int, autoStart bool)

	// OnConnect is called after every successful handshake.
	OnConnect(ctx context.Context)

	// HandleCommand applies one inbound command. It is called from the
	// read loop and must not block for long.
	HandleCommand(ctx context.Context, cmd protocol.Command)
}

// Channel is a self-reconnecting WebSocket client. It implements
// crawler.Sink and crawler.Reporter.
type Channel struct {
	url            string
	clientID       string
	reconnectDelay time.Duration
	dialer         *websocket.Dialer
	logger         *slog.Logger

	// writeMu serialises writes; gorilla connections allow one writer.
	writeMu sync.Mutex

	mu    sync.Mutex
	conn  *websocket.Conn
	ready chan struct{}

	statsMu sync.Mutex
	stats   model.CollectorStats
}

// Option configures a Channel.
type Option func(*Channel)

// WithReconnectDelay sets the pause between connection attempts.
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Channel) {
		if d > 0 {
			c.reconnectDelay = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Channel) {
		c.logger = l
	}
}

// WithClientID overrides the generated client id.
func WithClientID(id string) Option {
	return func(c *Channel) {
		c.clientID = id
	}
}

// New creates a Channel for the collector at rawURL. It does not connect;
// call Run.
func New(rawURL string, opts ...Option) (*Channel, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	c := &Channel{
		url:            u.String(),
		clientID:       uuid.NewString(),
		reconnectDelay: DefaultReconnectDelay,
		dialer:         &websocket.Dialer{HandshakeTimeout: DefaultHandshakeTimeout},
		logger:         slog.New(slog.DiscardHandler),
		ready:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ClientID returns the id announced in client_ready.
func (c *Channel) ClientID() string {
	return c.clientID
}

// Connected reports whether a connection is currently open.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// WaitConnected blocks until a connection is open or ctx is done.
func (c *Channel) WaitConnected(ctx context.Context) error {
	for {
		c.mu.Lock()
		if c.conn != nil {
			c.mu.Unlock()
			return nil
		}
		ready := c.ready
		c.mu.Unlock()

		select {
		case <-ready:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Stats returns a copy of the collector counters.
func (c *Channel) Stats() model.CollectorStats {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.stats
}

// ResetStats zeroes the collector counters.
func (c *Channel) ResetStats() {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	c.stats = model.CollectorStats{}
}

// SendRecord sends one record. It is dropped while disconnected.
func (c *Channel) SendRecord(r model.Record) {
	if err := c.Send(r); err != nil {
		c.logger.Debug("record dropped", "addr", r.Addr(), "error", err)
	}
}

// SendControl sends one control message. It is dropped while
// disconnected. Error reports are counted in the stats either way.
func (c *Channel) SendControl(msg protocol.Control) {
	if msg.Command() == protocol.CmdError {
		c.statsMu.Lock()
		c.stats.Errors++
		c.statsMu.Unlock()
	}
	if err := c.Send(msg); err != nil {
		c.logger.Debug("control message dropped", "cmd", msg.Command(), "error", err)
	}
}

// Send writes v as one JSON text message.
func (c *Channel) Send(v any) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	if err := conn.WriteJSON(v); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// Run connects and serves the channel until ctx is cancelled, redialling
// after the reconnect delay whenever the connection fails or drops.
// It returns nil on cancellation.
func (c *Channel) Run(ctx context.Context, h Handler) error {
	for {
		err := c.session(ctx, h)
		if ctx.Err() != nil {
			return nil
		}
		c.logger.Warn("disconnected, reconnecting", "url", c.url, "error", err, "delay", c.reconnectDelay)

		timer := time.NewTimer(c.reconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// session runs one connection from dial to close.
func (c *Channel) session(ctx context.Context, h Handler) error {
	conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	c.setConn(conn)
	defer func() {
		c.clearConn()
		_ = conn.Close()
	}()

	c.logger.Info("connected to collector", "url", c.url)

	jobs, autoStart := h.Hello()
	if err := c.Send(protocol.NewClientReady(c.clientID, jobs, autoStart)); err != nil {
		return err
	}
	h.OnConnect(ctx)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("failed to read message: %w", err)
		}
		c.dispatch(ctx, h, data)
	}
}

func (c *Channel) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = conn
	close(c.ready)
}

func (c *Channel) clearConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn = nil
	c.ready = make(chan struct{})
}

// dispatch routes one inbound frame.
func (c *Channel) dispatch(ctx context.Context, h Handler, data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		c.logger.Debug("discarding message", "error", err)
		return
	}

	switch m := msg.(type) {
	case protocol.Command:
		h.HandleCommand(ctx, m)
	case protocol.CollectorReply:
		c.applyReply(m)
	case protocol.LegacyLine:
		c.applyLegacy(m)
		if m.New {
			c.logger.Info(m.Text)
		} else {
			c.logger.Debug(m.Text)
		}
	}
}

// applyReply counts an acknowledgement. Replies that do not say whether
// the record was new leave the counters alone.
func (c *Channel) applyReply(r protocol.CollectorReply) {
	if r.New == nil {
		return
	}

	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	if *r.New {
		c.stats.New++
	} else {
		c.stats.Dup++
	}
	if r.Total != 0 {
		c.stats.Total = r.Total
	}
	if r.Today != 0 {
		c.stats.Today = r.Today
	}
}

func (c *Channel) applyLegacy(l protocol.LegacyLine) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	if l.New {
		c.stats.New++
	}
	if l.Dup {
		c.stats.Dup++
	}
	if l.HasCounters {
		c.stats.Total = l.Total
		c.stats.Today = l.Today
	}
}
