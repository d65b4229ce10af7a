package replica

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"

	"github.com/gorilla/websocket"
	"github.com/sasha-s/go-deadlock"

	"github.com/Nishit5799/multiplayerShooting/internal/proto"
	"github.com/Nishit5799/multiplayerShooting/internal/telemetry"
)

// ClientConfig describes a connection to a host.
type ClientConfig struct {
	// URL is the host's websocket endpoint, e.g. ws://localhost:8080/ws.
	URL string
	// PlayerID resumes an identity; empty lets the host assign one.
	PlayerID string
	Codec    proto.Codec
	Logger   telemetry.Logger
	Dialer   *websocket.Dialer
}

// Client is a replica participant connected to a host.
type Client struct {
	cfg  ClientConfig
	view *View
	conn *websocket.Conn

	writeMu deadlock.Mutex

	mu      deadlock.RWMutex
	welcome proto.Welcome
}

// Dial connects to the host and waits for the welcome message.
func Dial(ctx context.Context, view *View, cfg ClientConfig) (*Client, error) {
	if view == nil {
		return nil, errors.New("replica: view is required")
	}
	if cfg.Codec == nil {
		cfg.Codec = proto.JSON
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.Logger == nil {
		cfg.Logger = telemetry.LoggerFunc(func(string, ...any) {})
	}

	target, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("replica: parse url: %w", err)
	}
	query := target.Query()
	query.Set("codec", cfg.Codec.Name())
	if cfg.PlayerID != "" {
		query.Set("id", cfg.PlayerID)
	}
	target.RawQuery = query.Encode()

	conn, _, err := cfg.Dialer.DialContext(ctx, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("replica: dial %s: %w", cfg.URL, err)
	}
	c := &Client{cfg: cfg, view: view, conn: conn}

	_, data, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("replica: read welcome: %w", err)
	}
	var welcome proto.Welcome
	if err := cfg.Codec.Unmarshal(data, &welcome); err != nil || welcome.Type != proto.TypeWelcome {
		conn.Close()
		return nil, fmt.Errorf("replica: expected welcome, got %q: %v", welcome.Type, err)
	}
	c.welcome = welcome
	return c, nil
}

// Welcome returns the host's welcome message.
func (c *Client) Welcome() proto.Welcome {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.welcome
}

// View returns the replica view fed by this client.
func (c *Client) View() *View {
	return c.view
}

// Send writes a client message to the host.
func (c *Client) Send(msg proto.ClientMessage) error {
	if msg.Ver == 0 {
		msg.Ver = proto.Version
	}
	data, err := c.cfg.Codec.Marshal(msg)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(c.cfg.Codec.MessageType(), data)
}

// Join asks the host to admit this participant.
func (c *Client) Join(name, color string) error {
	return c.Send(proto.ClientMessage{Type: proto.TypeJoin, Name: name, Color: color})
}

// Leave asks the host to remove this participant.
func (c *Client) Leave(reason string) error {
	return c.Send(proto.ClientMessage{Type: proto.TypeLeave, Reason: reason})
}

// Run reads host messages into the view until ctx is cancelled or the
// connection fails.
func (c *Client) Run(ctx context.Context) error {
	done := make(chan struct{})
	defer close(done)
	go closeOnCancel(ctx, done, c.conn)

	for {
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("replica: read: %w", err)
		}
		codec := proto.CodecForFrame(messageType)

		var envelope proto.Envelope
		if err := codec.Unmarshal(data, &envelope); err != nil {
			c.cfg.Logger.Printf("[replica] discarding malformed frame: %v", err)
			continue
		}
		switch envelope.Type {
		case proto.TypeSnapshot:
			var snapshot proto.Snapshot
			if err := codec.Unmarshal(data, &snapshot); err != nil {
				c.cfg.Logger.Printf("[replica] discarding snapshot: %v", err)
				continue
			}
			if !c.view.Apply(snapshot) {
				c.cfg.Logger.Printf("[replica] ignoring stale snapshot seq=%d", snapshot.Seq)
			}
		case proto.TypeWelcome:
			var welcome proto.Welcome
			if err := codec.Unmarshal(data, &welcome); err == nil {
				c.mu.Lock()
				c.welcome = welcome
				c.mu.Unlock()
			}
		case proto.TypeCommandReject:
			var reject proto.CommandReject
			if err := codec.Unmarshal(data, &reject); err == nil {
				c.cfg.Logger.Printf("[replica] command rejected: %s", reject.Reason)
			}
		default:
			c.cfg.Logger.Printf("[replica] unknown message type %q", envelope.Type)
		}
	}
}

// closeOnCancel closes conn when ctx ends, or returns once done closes.
func closeOnCancel(ctx context.Context, done <-chan struct{}, conn io.Closer) {
	select {
	case <-ctx.Done():
		conn.Close()
	case <-done:
	}
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}
