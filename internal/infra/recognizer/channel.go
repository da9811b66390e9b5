package recognizer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"kiosk-voice/internal/domain"
)

const (
	handshakeTimeout = 10 * time.Second
	writeWait        = 5 * time.Second
	closeWait        = time.Second
	maxMessageSize   = 64 * 1024
	sendBuffer       = 64
)

// session is one websocket connection and its outbound queue.
type session struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func newSession(conn *websocket.Conn) *session {
	return &session{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

func (s *session) close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.conn.Close()
	})
	return err
}

// Channel streams PCM frames to a recognition server over a websocket and
// receives transcript fragments back.
type Channel struct {
	addr   string
	dialer *websocket.Dialer
	logger *slog.Logger

	mu    sync.Mutex
	state domain.ChannelState
	sess  *session
	// gen changes on every connect and close so stale readers and dials
	// cannot touch a newer connection.
	gen uint64

	fragments chan domain.TranscriptFragment
}

func NewChannel(addr string, logger *slog.Logger) *Channel {
	return &Channel{
		addr: addr,
		dialer: &websocket.Dialer{
			HandshakeTimeout: handshakeTimeout,
		},
		logger:    logger.With("addr", addr),
		fragments: make(chan domain.TranscriptFragment, 64),
	}
}

func (c *Channel) State() domain.ChannelState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Channel) Fragments() <-chan domain.TranscriptFragment {
	return c.fragments
}

func (c *Channel) Connect(ctx context.Context, force bool) error {
	c.mu.Lock()
	if !force {
		switch c.state {
		case domain.ChannelOpen:
			c.mu.Unlock()
			return nil
		case domain.ChannelConnecting:
			c.mu.Unlock()
			return domain.ErrConnectInFlight
		}
	}
	old := c.sess
	c.sess = nil
	c.gen++
	gen := c.gen
	c.state = domain.ChannelConnecting
	c.mu.Unlock()

	if old != nil {
		old.close()
	}

	c.logger.Info("connecting to recognition server", "force", force)

	dialCtx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()
	conn, _, err := c.dialer.DialContext(dialCtx, c.addr, nil)

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		if conn != nil {
			conn.Close()
		}
		c.logger.Debug("connect superseded")
		return nil
	}

	if err != nil {
		c.state = domain.ChannelDisconnected
		return fmt.Errorf("%w: dialing recognition server: %w", domain.ErrTransport, err)
	}

	conn.SetReadLimit(maxMessageSize)
	sess := newSession(conn)
	c.sess = sess
	c.state = domain.ChannelOpen
	go c.readLoop(sess, gen)
	go c.writePump(sess, gen)

	c.logger.Info("recognition channel open")
	return nil
}

// Send queues a frame for the write pump and never waits on the network.
// When the queue is full the frame is dropped with ErrSendBufferFull.
func (c *Channel) Send(frame domain.AudioFrame) error {
	msg, err := EncodeFrame(frame)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != domain.ChannelOpen || c.sess == nil {
		return domain.ErrChannelNotOpen
	}

	select {
	case c.sess.send <- msg:
		return nil
	default:
		return domain.ErrSendBufferFull
	}
}

func (c *Channel) Close() error {
	c.mu.Lock()
	sess := c.sess
	c.sess = nil
	c.gen++
	c.state = domain.ChannelDisconnected
	c.mu.Unlock()

	if sess == nil {
		return nil
	}

	_ = sess.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeWait))
	return sess.close()
}

// writePump owns all data writes on sess. A write failure drops the channel
// only if gen is still current.
func (c *Channel) writePump(sess *session, gen uint64) {
	for {
		select {
		case <-sess.done:
			return
		case msg := <-sess.send:
			_ = sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sess.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				c.logger.Warn("websocket write error", "error", err)
				c.drop(gen)
				return
			}
		}
	}
}

func (c *Channel) readLoop(sess *session, gen uint64) {
	for {
		msgType, data, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Warn("websocket read error", "error", err)
			}
			c.drop(gen)
			sess.close()
			return
		}

		if msgType != websocket.TextMessage {
			continue
		}

		fragment, ok, err := DecodeMessage(data)
		if err != nil {
			c.logger.Warn("failed to decode server message", "error", err)
			continue
		}
		if !ok {
			continue
		}

		select {
		case c.fragments <- fragment:
		default:
			c.logger.Warn("fragment buffer full, dropping", "final", fragment.IsFinal)
		}
	}
}

// drop marks the channel disconnected if gen is still the current connection.
func (c *Channel) drop(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen || c.sess == nil {
		return
	}
	c.sess.close()
	c.sess = nil
	c.state = domain.ChannelDisconnected
}
