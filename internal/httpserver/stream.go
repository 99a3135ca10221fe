package httpserver

import (
	"io"
	"sync"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"storefront-core/internal/hub"
)

// sseConn adapts one open event-stream response into a hub connection.
// Writes are serialized because hub publishes and the keepalive ticker run on
// different goroutines.
type sseConn struct {
	mu sync.Mutex
	w  gin.ResponseWriter
}

func (s *sseConn) Write(ev hub.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := sse.Encode(s.w, sse.Event{Event: ev.Kind, Data: ev.Payload}); err != nil {
		return err
	}
	s.w.Flush()
	return nil
}

func (s *sseConn) comment(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := io.WriteString(s.w, ": "+text+"\n\n"); err != nil {
		return err
	}
	s.w.Flush()
	return nil
}

// streamHandler holds the connection open until the client disconnects.
// Events carry what changed, not full state; clients refetch the cart
// snapshot on every notification. The periodic keepalive comment stops
// intermediaries from reclaiming the idle connection.
func streamHandler(h *hub.Hub, keepalive time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		cartID := c.Param("id")

		c.Header("Content-Type", "text/event-stream")
		c.Header("Cache-Control", "no-cache, no-transform")
		c.Header("Connection", "keep-alive")
		c.Writer.WriteHeaderNow()

		conn := &sseConn{w: c.Writer}
		if err := conn.comment("connected"); err != nil {
			return
		}

		h.Subscribe(cartID, conn)
		defer h.Unsubscribe(cartID, conn)

		ticker := time.NewTicker(keepalive)
		defer ticker.Stop()

		ctx := c.Request.Context()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := conn.comment("keepalive"); err != nil {
					return
				}
			}
		}
	}
}
