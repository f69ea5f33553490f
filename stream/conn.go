package stream

import (
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Close codes used by EventStream, as defined by RFC 6455.
const (
	CloseNormal          = websocket.CloseNormalClosure
	CloseGoingAway       = websocket.CloseGoingAway
	CloseAbnormal        = websocket.CloseAbnormalClosure
	CloseMessageTooBig   = websocket.CloseMessageTooBig
	CloseInternalError   = websocket.CloseInternalServerErr
	maxCloseReasonLength = 123
)

// Close reasons reported to listeners.
const (
	ReasonGoingAway  = "The listener has closed the event stream"
	ReasonTooBig     = "Message too big"
	reasonPeerClosed = "connection closed"
)

// Conn is the transport an EventStream reads from.
//
// ReadFragment blocks until the next text fragment arrives and reports
// whether it completes a message. It returns a *CloseError when the peer
// closes the connection. Close writes a close frame with code and reason,
// except for CloseAbnormal, and releases the connection. Close may be
// called concurrently with ReadFragment and must unblock it.
type Conn interface {
	ReadFragment() (fragment string, final bool, err error)
	WriteText(text string) error
	Close(code int, reason string) error
}

// CloseError reports a close frame received from the peer.
type CloseError struct {
	Code int
	Text string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("websocket closed: %d %s", e.Code, e.Text)
}

// wsConn adapts a gorilla websocket connection to Conn.
//
// gorilla reassembles continuation frames itself, so the adapter re-splits
// each message into chunkSize fragments and marks the last one final.
type wsConn struct {
	conn      *websocket.Conn
	chunkSize int
	logger    *slog.Logger
	reader    io.Reader
	buf       []byte

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewWebsocketConn wraps an open gorilla connection. chunkSize <= 0 uses
// the default read chunk size. Skipped non-text messages are logged at debug
// level on logger; a nil logger means slog.Default().
func NewWebsocketConn(conn *websocket.Conn, chunkSize int, logger *slog.Logger) Conn {
	if chunkSize <= 0 {
		chunkSize = DefaultConfig().ReadChunkSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &wsConn{
		conn:      conn,
		chunkSize: chunkSize,
		logger:    logger,
		buf:       make([]byte, chunkSize),
	}
}

func (c *wsConn) ReadFragment() (string, bool, error) {
	for {
		if c.reader == nil {
			messageType, r, err := c.conn.NextReader()
			if err != nil {
				return "", false, convertCloseError(err)
			}
			if messageType != websocket.TextMessage {
				c.logger.Debug("Skipping non-text websocket message", "message_type", messageType)
				continue
			}
			c.reader = r
		}

		n, err := io.ReadFull(c.reader, c.buf)
		switch {
		case err == nil:
			return string(c.buf[:n]), false, nil
		case stderrors.Is(err, io.EOF), stderrors.Is(err, io.ErrUnexpectedEOF):
			c.reader = nil
			return string(c.buf[:n]), true, nil
		default:
			c.reader = nil
			return "", false, convertCloseError(err)
		}
	}
}

func (c *wsConn) WriteText(text string) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, []byte(text))
}

func (c *wsConn) Close(code int, reason string) error {
	c.closeOnce.Do(func() {
		if code != CloseAbnormal {
			if len(reason) > maxCloseReasonLength {
				reason = reason[:maxCloseReasonLength]
			}
			c.writeMu.Lock()
			// Best effort; the peer may already be gone.
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(code, reason),
				time.Now().Add(time.Second))
			c.writeMu.Unlock()
		}
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

func convertCloseError(err error) error {
	var closeErr *websocket.CloseError
	if stderrors.As(err, &closeErr) {
		return &CloseError{Code: closeErr.Code, Text: closeErr.Text}
	}
	return err
}
