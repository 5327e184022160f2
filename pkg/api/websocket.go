package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/codeready-toolchain/repoai/pkg/models"
	"github.com/codeready-toolchain/repoai/pkg/session"
)

// wsMessage is the envelope for both directions of the WebSocket
// protocol. Client sends start and response messages; the server sends
// progress, confirmation, error and complete messages.
type wsMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type wsResponseData struct {
	Response          string `json:"response"`
	AdditionalContext string `json:"additional_context,omitempty"`
}

// wsConn serializes writes; coder/websocket allows only one concurrent
// writer.
type wsConn struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (w *wsConn) send(ctx context.Context, msgType string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return wsjson.Write(ctx, w.conn, wsMessage{Type: msgType, Data: raw})
}

// websocketRefactor is the interactive alternative to SSE plus the
// confirmation endpoints: progress events flow out, confirmation
// responses flow in as free-form text. It runs outside the gin engine
// so websocket.Accept gets the raw ResponseWriter to hijack.
func (s *Server) websocketRefactor(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/ws/refactor/")
	if id == "" || strings.Contains(id, "/") {
		writeJSONError(w, http.StatusNotFound, "unknown websocket path")
		return
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	bus := s.buses.Get(sess.ID)
	if bus == nil {
		writeJSONError(w, http.StatusNotFound, "no event stream for session")
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Cross-origin browsers are filtered by the CORS middleware on the
		// session-creating endpoints; the socket itself accepts any origin.
		InsecureSkipVerify: true,
	})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx := r.Context()
	wc := &wsConn{conn: conn}

	// The client opens with a start message before anything streams.
	var start wsMessage
	if err := wsjson.Read(ctx, conn, &start); err != nil || start.Type != "start" {
		wc.send(ctx, "error", map[string]any{"message": "expected start message"})
		return
	}

	ch, err := bus.Subscribe(ctx)
	if err != nil {
		wc.send(ctx, "error", map[string]any{"message": err.Error()})
		return
	}

	// Reader loop: confirmation responses from the client, delivered to
	// whatever gate the pipeline is paused at.
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			var msg wsMessage
			if err := wsjson.Read(ctx, conn, &msg); err != nil {
				return
			}
			if msg.Type != "response" {
				continue
			}
			var data wsResponseData
			if err := json.Unmarshal(msg.Data, &data); err != nil {
				wc.send(ctx, "error", map[string]any{"message": "malformed response data"})
				continue
			}
			text := data.Response
			if data.AdditionalContext != "" {
				text += "\n" + data.AdditionalContext
			}
			gate := sess.Awaiting()
			if gate == models.ConfirmationNone {
				wc.send(ctx, "error", map[string]any{"message": "session is not awaiting confirmation"})
				continue
			}
			err := sess.Confirmations().Deliver(session.ConfirmPayload{
				Type:         gate,
				UserResponse: text,
			})
			if err != nil {
				wc.send(ctx, "error", map[string]any{"message": err.Error()})
			}
		}
	}()

	for event := range ch {
		msgType := "progress"
		switch {
		case event.RequiresConfirmation:
			msgType = "confirmation"
		case event.Status == models.StatusFailed:
			msgType = "error"
		}
		if err := wc.send(ctx, msgType, event); err != nil {
			return
		}
	}

	snap := sess.Snapshot()
	wc.send(ctx, "complete", map[string]any{
		"session_id": sess.ID,
		"success":    snap.Stage == models.StageComplete,
	})
	conn.Close(websocket.StatusNormalClosure, "stream complete")
	<-readerDone
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
