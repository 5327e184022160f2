package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/codeready-toolchain/repoai/pkg/events"
	"github.com/codeready-toolchain/repoai/pkg/models"
)

// streamSSE drains the session's progress bus as server-sent events.
// A late subscriber replays the full history first. The stream always
// ends with a `complete` event once the bus closes; after that the bus
// may be evicted and reconnecting is not supported, only the session
// snapshot remains.
func (s *Server) streamSSE(c *gin.Context) {
	sess, err := s.sessions.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	bus := s.buses.Get(sess.ID)
	if bus == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no event stream for session"})
		return
	}

	ch, err := bus.Subscribe(c.Request.Context())
	if err != nil {
		if errors.Is(err, events.ErrAlreadySubscribed) {
			c.JSON(http.StatusConflict, gin.H{"error": "stream already has a subscriber"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		event, ok := <-ch
		if !ok {
			snap := sess.Snapshot()
			c.SSEvent("complete", gin.H{
				"session_id": sess.ID,
				"success":    snap.Stage == models.StageComplete,
			})
			return false
		}
		name := "progress"
		if event.Status == models.StatusFailed {
			name = "error"
		}
		c.SSEvent(name, event)
		return true
	})
}
