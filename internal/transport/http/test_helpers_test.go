package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/socketchat-server/internal/auth"
	"github.com/vovakirdan/socketchat-server/internal/config"
	"github.com/vovakirdan/socketchat-server/internal/core"
	"github.com/vovakirdan/socketchat-server/internal/proto"
	"github.com/vovakirdan/socketchat-server/internal/store/sqlite"
)

const frameTimeout = 3 * time.Second

type testEnv struct {
	cfg     *config.Config
	hub     *core.Hub
	store   *sqlite.SQLiteStore
	handler http.Handler
	server  *httptest.Server
}

// newTestEnv starts a hub backed by in-memory SQLite and serves the full handler.
func newTestEnv(t *testing.T, mutate ...func(*config.Config)) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.RateLimit = 0
	cfg.Auth = config.AuthConfig{
		AdminPassword: "admin123",
		ModPassword:   "mod123",
		SessionSecret: "test-secret",
		SessionTTL:    time.Hour,
	}
	for _, fn := range mutate {
		fn(&cfg)
	}

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	logger := zerolog.Nop()
	hub := core.NewHub(st, core.HubOptions{DefaultRoom: cfg.DefaultRoom, Logger: &logger})
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	authService := createTestAuthService(t, &cfg)
	handler := NewHandler(hub, authService, st, &cfg, &logger)
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	return &testEnv{cfg: &cfg, hub: hub, store: st, handler: handler, server: ts}
}

// createTestAuthService creates an auth service for testing.
func createTestAuthService(t *testing.T, cfg *config.Config) *auth.Service {
	t.Helper()

	jwtConfig := &auth.JWTConfig{
		Secret:   []byte(cfg.Auth.SessionSecret),
		Issuer:   "test",
		Audience: "test",
		TTL:      cfg.Auth.SessionTTL,
	}
	svc, err := auth.NewService(auth.Credentials{
		OperatorPassword:      cfg.Auth.ModPassword,
		SuperOperatorPassword: cfg.Auth.AdminPassword,
	}, jwtConfig)
	if err != nil {
		t.Fatalf("failed to create auth service: %v", err)
	}
	return svc
}

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
	defer cancel()

	wsURL := strings.Replace(e.server.URL, "http", "ws", 1) + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) postForm(path string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return e.do(req)
}

func (e *testEnv) get(path string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return e.do(req)
}

// login starts a session for tier and returns its cookie.
func (e *testEnv) login(t *testing.T, tier Tier, password string) *http.Cookie {
	t.Helper()

	rec := e.postForm(tier.Base, url.Values{"password": {password}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("login %s: expected 303, got %d: %s", tier.Base, rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == tier.Cookie {
			return c
		}
	}
	t.Fatalf("login %s: no %s cookie set", tier.Base, tier.Cookie)
	return nil
}

func (e *testEnv) act(t *testing.T, tier Tier, cookie *http.Cookie, action, room, user string) PanelResponse {
	t.Helper()

	rec := e.postForm(tier.Base+"/panel", url.Values{"action": {action}, "room": {room}, "user": {user}}, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("%s %s/%s: expected 200, got %d: %s", action, room, user, rec.Code, rec.Body.String())
	}
	var panel PanelResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &panel); err != nil {
		t.Fatalf("decode panel: %v", err)
	}
	return panel
}

func send(t *testing.T, conn *websocket.Conn, typ string, data any) {
	t.Helper()

	payload, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s: %v", typ, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// expectFrame reads frames until one matches, failing after frameTimeout.
func expectFrame(t *testing.T, conn *websocket.Conn, match func(frame) bool) frame {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), frameTimeout)
	defer cancel()
	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if match(f) {
			return f
		}
	}
}

func expectType(t *testing.T, conn *websocket.Conn, typ string, v any) {
	t.Helper()

	f := expectFrame(t, conn, func(f frame) bool { return f.Type == typ })
	if v == nil {
		return
	}
	if err := json.Unmarshal(f.Data, v); err != nil {
		t.Fatalf("decode %s: %v", typ, err)
	}
}

func expectSystem(t *testing.T, conn *websocket.Conn, text string) proto.SystemData {
	t.Helper()

	var sys proto.SystemData
	expectFrame(t, conn, func(f frame) bool {
		if f.Type != proto.OutboundTypeSystem {
			return false
		}
		if err := json.Unmarshal(f.Data, &sys); err != nil {
			t.Fatalf("decode system: %v", err)
		}
		return sys.Text == text
	})
	return sys
}

// joinRoom joins and waits for the joiner's own notice so the hub has bound it.
func joinRoom(t *testing.T, conn *websocket.Conn, user, room string) {
	t.Helper()

	send(t, conn, proto.InboundTypeJoin, proto.JoinData{User: user, Room: room})
	expectSystem(t, conn, user+" joined")
}
