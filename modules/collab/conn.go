package collab

import (
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
)

// Timeouts and limits for a single connection.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	sendBufferSize = 64
)

// Rate limiting constants for chat messages.
const (
	messagesPerSecond = 10
	burstSize         = 20
)

// Conn represents one live bidirectional channel to a client process. All
// writes to the transport go through the send channel and a single writer
// goroutine, which preserves per-recipient ordering.
type Conn struct {
	ID          string
	UserID      string
	DisplayName string

	sock    *websocket.Conn
	send    chan []byte
	done    chan struct{}
	closeFn sync.Once

	mu        sync.Mutex
	projectID string

	limiter *rateLimiter
}

func newConn(id, userID, displayName string, sock *websocket.Conn) *Conn {
	return &Conn{
		ID:          id,
		UserID:      userID,
		DisplayName: displayName,
		sock:        sock,
		send:        make(chan []byte, sendBufferSize),
		done:        make(chan struct{}),
		limiter:     newRateLimiter(burstSize, messagesPerSecond),
	}
}

// Project returns the room this connection currently belongs to, or "".
func (c *Conn) Project() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectID
}

// SetProject records the room this connection belongs to.
func (c *Conn) SetProject(projectID string) {
	c.mu.Lock()
	c.projectID = projectID
	c.mu.Unlock()
}

// enqueue hands data to the writer goroutine. A closed connection or a full
// buffer is reported as false; the caller treats that as a slow or closing
// consumer and moves on.
func (c *Conn) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// close signals the writer goroutine to stop. Safe to call more than once.
func (c *Conn) close() {
	c.closeFn.Do(func() {
		close(c.done)
	})
}

// writePump drains the send channel onto the transport and keeps the
// connection alive with periodic pings.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.sock.Close()
	}()

	for {
		select {
		case <-c.done:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			c.sock.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case data := <-c.send:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.sock.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.sock.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// rateLimiter implements a simple token bucket rate limiter.
type rateLimiter struct {
	tokens     int
	maxTokens  int
	refillRate int // tokens per second
	lastRefill time.Time
	mu         sync.Mutex
}

func newRateLimiter(maxTokens, refillRate int) *rateLimiter {
	return &rateLimiter{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

func (r *rateLimiter) allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(r.lastRefill)
	tokensToAdd := int(elapsed.Seconds()) * r.refillRate
	if tokensToAdd > 0 {
		r.tokens += tokensToAdd
		if r.tokens > r.maxTokens {
			r.tokens = r.maxTokens
		}
		r.lastRefill = now
	}

	if r.tokens > 0 {
		r.tokens--
		return true
	}
	return false
}
