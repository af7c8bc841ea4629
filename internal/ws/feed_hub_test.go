package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaqqye/exit_slip_backend/internal/lifecycle"
	"github.com/zaqqye/exit_slip_backend/internal/middleware"
	"github.com/zaqqye/exit_slip_backend/internal/models"
)

const testSecret = "feed-secret"

func startFeed(t *testing.T) (*FeedHub, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ctx, cancel := context.WithCancel(context.Background())
	hub := NewFeedHub(nil)
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/feed", middleware.AuthMiddleware(middleware.AuthConfig{JWTSecret: testSecret}), FeedHandler(hub))
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/feed"
}

func dial(t *testing.T, url string, actor models.Actor) *websocket.Conn {
	t.Helper()
	tok, err := middleware.IssueToken(testSecret, actor, time.Hour)
	require.NoError(t, err)
	header := http.Header{}
	header.Set("Authorization", "Bearer "+tok)
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) lifecycle.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var evt lifecycle.Event
	require.NoError(t, json.Unmarshal(data, &evt))
	return evt
}

func TestFeedDeliversEvents(t *testing.T) {
	hub, url := startFeed(t)
	conn := dial(t, url, models.Actor{ID: "p-1", Role: models.RoleProctor})
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(lifecycle.Event{Type: lifecycle.EventSubmitted, StudentID: "ETS0001/15", Status: models.StatusNotAuthorized})

	evt := readEvent(t, conn)
	assert.Equal(t, lifecycle.EventSubmitted, evt.Type)
	assert.Equal(t, "ETS0001/15", evt.StudentID)
}

func TestFeedFiltersGateClients(t *testing.T) {
	hub, url := startFeed(t)
	conn := dial(t, url, models.Actor{ID: "g-1", Role: models.RoleGate, Gate: "Main"})
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Publish(lifecycle.Event{Type: lifecycle.EventSubmitted, StudentID: "ETS0001/15"})
	hub.Publish(lifecycle.Event{Type: lifecycle.EventExited, StudentID: "ETS0001/15", Status: models.StatusExited})

	evt := readEvent(t, conn)
	assert.Equal(t, lifecycle.EventExited, evt.Type)
}

func TestFeedUnregistersOnClose(t *testing.T) {
	hub, url := startFeed(t)
	conn := dial(t, url, models.Actor{ID: "p-1", Role: models.RoleProctor})
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestFeedRequiresAuth(t *testing.T) {
	_, url := startFeed(t)
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPublishNeverBlocks(t *testing.T) {
	var nilHub *FeedHub
	nilHub.Publish(lifecycle.Event{Type: lifecycle.EventCleared})

	hub := NewFeedHub(nil)
	for i := 0; i < sendBufferSize+10; i++ {
		hub.Publish(lifecycle.Event{Type: lifecycle.EventUpdated})
	}
	assert.Equal(t, int64(10), hub.dropped.Load())
}
