package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"impostor/internal/config"
	"impostor/internal/game"
	"impostor/internal/words"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func firstPick(int) int { return 0 }

// newTestApp wires an engine to a server the same way cmd/server does.
func newTestApp(t *testing.T, cfg config.Config, opts ...game.Option) (*Server, http.Handler) {
	t.Helper()
	log, _ := test.NewNullLogger()
	var srv *Server
	notifier := game.NotifierFunc(func(ctx context.Context, event game.Event) error {
		return srv.Notifier().RoomChanged(ctx, event)
	})
	opts = append([]game.Option{game.WithNotifier(notifier), game.WithLogger(log)}, opts...)
	engine := game.NewEngine(game.NewMemoryStore(), words.Default(), opts...)
	srv = New(engine, cfg, log)
	return srv, srv.Handler()
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.RateLimitPerMinute = 0
	return cfg
}

func newTestServer(t *testing.T, handler http.Handler) *httptest.Server {
	t.Helper()
	listener, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Skipf("skipping test; listen unavailable: %v", err)
	}
	ts := &httptest.Server{
		Listener: listener,
		Config:   &http.Server{Handler: handler},
	}
	ts.Start()
	return ts
}

type requestOption func(*http.Request)

func withLanguage(lang string) requestOption {
	return func(r *http.Request) { r.Header.Set("Accept-Language", lang) }
}

func withHeader(key, value string) requestOption {
	return func(r *http.Request) { r.Header.Set(key, value) }
}

func doRequest(t *testing.T, handler http.Handler, method, path, userID string, body any, opts ...requestOption) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set(userIDHeader, userID)
	}
	for _, opt := range opts {
		opt(req)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

type roomResponse struct {
	Room           game.RoomView `json:"room"`
	PollIntervalMS int           `json:"poll_interval_ms"`
}

type errorResponse struct {
	Error string    `json:"error"`
	Kind  game.Kind `json:"kind"`
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func createRoom(t *testing.T, handler http.Handler, userID, name string) game.RoomView {
	t.Helper()
	rec := doRequest(t, handler, http.MethodPost, "/api/rooms", userID, map[string]string{"player_name": name})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeJSON[roomResponse](t, rec).Room
}

func joinRoom(t *testing.T, handler http.Handler, code, userID, name string) {
	t.Helper()
	rec := doRequest(t, handler, http.MethodPost, "/api/rooms/"+code+"/join", userID, map[string]string{"player_name": name})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func getRoom(t *testing.T, handler http.Handler, code, userID string) roomResponse {
	t.Helper()
	rec := doRequest(t, handler, http.MethodGet, "/api/rooms/"+code, userID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decodeJSON[roomResponse](t, rec)
}
