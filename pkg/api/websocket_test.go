package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/repoai/pkg/models"
)

func dialWS(t *testing.T, ts *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := strings.Replace(ts.URL, "http://", "ws://", 1) + "/ws/refactor/" + sessionID
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	return conn
}

func TestWebsocketStreamsToComplete(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.router)
	defer ts.Close()

	w := env.do(http.MethodPost, "/api/refactor", map[string]any{
		"user_prompt": "hi", "mode": "interactive-detailed",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var resp CreateRefactorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	sess, err := env.sessions.Get(resp.SessionID)
	require.NoError(t, err)
	waitForStage(t, sess, models.StageComplete)

	conn := dialWS(t, ts, resp.SessionID)
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, conn, wsMessage{Type: "start"}))

	var types []string
	for {
		var msg wsMessage
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			break
		}
		types = append(types, msg.Type)
		if msg.Type == "complete" {
			var data map[string]any
			require.NoError(t, json.Unmarshal(msg.Data, &data))
			assert.Equal(t, true, data["success"])
			break
		}
	}
	require.NotEmpty(t, types)
	assert.Contains(t, types, "progress")
	assert.Equal(t, "complete", types[len(types)-1])
}

func TestWebsocketRejectsWithoutStart(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.router)
	defer ts.Close()

	w := env.do(http.MethodPost, "/api/refactor", map[string]any{
		"user_prompt": "hello", "mode": "interactive-detailed",
	})
	require.Equal(t, http.StatusOK, w.Code)
	var resp CreateRefactorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	conn := dialWS(t, ts, resp.SessionID)
	defer conn.Close(websocket.StatusNormalClosure, "")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, conn, wsMessage{Type: "response"}))

	var msg wsMessage
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	assert.Equal(t, "error", msg.Type)
}

func TestWebsocketUnknownSession(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.router)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	url := strings.Replace(ts.URL, "http://", "ws://", 1) + "/ws/refactor/session_0_missing"
	_, httpResp, err := websocket.Dial(ctx, url, nil)
	require.Error(t, err)
	if httpResp != nil {
		assert.Equal(t, http.StatusNotFound, httpResp.StatusCode)
	}
}
