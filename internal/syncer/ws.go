package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// Socket is one text-message connection to a peer.
type Socket interface {
	ReadText(ctx context.Context) (string, error)
	WriteText(ctx context.Context, text string) error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, url string) (Socket, error)
}

type RealDialer struct{}

func (RealDialer) Dial(ctx context.Context, url string) (Socket, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &realSocket{conn: conn}, nil
}

type realSocket struct {
	conn *websocket.Conn
}

func (s *realSocket) ReadText(ctx context.Context) (string, error) {
	_, data, err := s.conn.Read(ctx)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (s *realSocket) WriteText(ctx context.Context, text string) error {
	return s.conn.Write(ctx, websocket.MessageText, []byte(text))
}

func (s *realSocket) Close() error {
	return s.conn.Close(websocket.StatusNormalClosure, "")
}

// wireMessage is the peer framing. Every message carries a fresh id
// so acks can be matched to what they answer.
type wireMessage struct {
	ID   string          `json:"id"`
	Body json.RawMessage `json:"body"`
}

type wireAck struct {
	ID    string          `json:"id"`
	Ack   json.RawMessage `json:"ack,omitempty"`
	Error string          `json:"error,omitempty"`
}

// Handler applies one message body and returns the ack payload.
type Handler func(ctx context.Context, body []byte) (string, error)

// Client owns one peer connection: a read loop that acks every frame,
// plus outbound snapshot sends. Reconnecting is the caller's loop;
// Run returns when the socket or context ends.
type Client struct {
	sock    Socket
	handler Handler
	logger  *slog.Logger
}

func NewClient(sock Socket, handler Handler, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{sock: sock, handler: handler, logger: logger}
}

func (c *Client) Run(ctx context.Context) error {
	for {
		text, err := c.sock.ReadText(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		c.handleFrame(ctx, text)
	}
}

func (c *Client) handleFrame(ctx context.Context, text string) {
	var msg wireMessage
	if err := json.Unmarshal([]byte(text), &msg); err != nil {
		c.logger.Warn("dropping unparseable frame", slog.String("error", err.Error()))
		return
	}

	ack := wireAck{ID: msg.ID}
	payload, err := c.handler(ctx, msg.Body)
	if err != nil {
		ack.Error = err.Error()
		c.logger.Warn("message rejected",
			slog.String("id", msg.ID),
			slog.String("error", err.Error()))
	} else {
		ack.Ack = json.RawMessage(payload)
	}

	raw, err := json.Marshal(ack)
	if err != nil {
		c.logger.Error("encode ack", slog.String("error", err.Error()))
		return
	}
	if err := c.sock.WriteText(ctx, string(raw)); err != nil {
		c.logger.Warn("write ack", slog.String("error", err.Error()))
	}
}

// Send frames and ships one message body to the peer.
func (c *Client) Send(ctx context.Context, body []byte) error {
	raw, err := json.Marshal(wireMessage{ID: uuid.NewString(), Body: body})
	if err != nil {
		return fmt.Errorf("syncer: encode message: %w", err)
	}
	return c.sock.WriteText(ctx, string(raw))
}

func (c *Client) Close() error {
	return c.sock.Close()
}
