package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"peerhive/internal/adapter/events"
	"peerhive/internal/adapter/storage"
	"peerhive/internal/config"
	"peerhive/internal/domain/dashboard"
	domain "peerhive/internal/domain/identity"
	"peerhive/internal/domain/post"
	identitysvc "peerhive/internal/service/identity"
	"peerhive/internal/service/feed"
	"peerhive/internal/service/mood"
)

const adminEmail = "admin@peerhive.io"

type testEnv struct {
	srv    *httptest.Server
	tokens *identitysvc.TokenManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := storage.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.MigrateSQLite(context.Background(), db, logger))

	cfg := config.Config{
		Server:   config.ServerConfig{CorsOrigins: []string{"*"}},
		Feed:     config.FeedConfig{MaxPostLength: 100, PostRate: 10, PostBurst: 50, EventsTopic: "feed", DefaultListLimit: 50, MaxListLimit: 100},
		Identity: config.IdentityConfig{TokenSecret: "test-secret", TokenIssuer: "peerhive", TokenExpiry: time.Hour, AdminEmail: adminEmail},
		Metrics:  config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}

	bus := events.NewLocalBus()
	lex := mood.DefaultLexicon()
	feedSvc := feed.NewService(
		storage.NewSQLiteStore(db),
		mood.NewClassifier(lex),
		mood.NewAggregator(lex),
		bus,
		feed.Config{
			MaxPostLength:    cfg.Feed.MaxPostLength,
			PostRate:         cfg.Feed.PostRate,
			PostBurst:        cfg.Feed.PostBurst,
			EventsTopic:      cfg.Feed.EventsTopic,
			DefaultListLimit: cfg.Feed.DefaultListLimit,
			MaxListLimit:     cfg.Feed.MaxListLimit,
		},
		logger,
	)
	tokens := identitysvc.NewTokenManager(cfg.Identity.TokenSecret, cfg.Identity.TokenIssuer)

	s := NewServer(cfg, feedSvc, tokens, bus, logger)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)

	return &testEnv{srv: srv, tokens: tokens}
}

func (e *testEnv) token(t *testing.T, id domain.Identity) string {
	t.Helper()
	tok, err := e.tokens.GenerateToken(id, time.Hour)
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) (*http.Response, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, e.srv.URL+path, rdr)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, out
}

var (
	member = domain.Identity{UID: "member-uid-0001", DisplayName: "Riley", Email: "riley@campus.edu"}
	admin  = domain.Identity{UID: "admin-uid-0001", DisplayName: "Admin", Email: adminEmail}
)

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", string(body))
}

func TestAnonymousSessionCanPost(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/v1/session/anonymous", "", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var session struct {
		Token    string          `json:"token"`
		Identity domain.Identity `json:"identity"`
	}
	require.NoError(t, json.Unmarshal(body, &session))
	require.NotEmpty(t, session.Token)
	assert.True(t, session.Identity.IsAnonymous)

	resp, body = env.do(t, http.MethodGet, "/api/v1/session", session.Token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), session.Identity.UID)

	resp, body = env.do(t, http.MethodPost, "/api/v1/posts", session.Token, map[string]string{"text": "this deadline is frustrating"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	var p post.Post
	require.NoError(t, json.Unmarshal(body, &p))
	assert.Equal(t, "User-"+session.Identity.UID[:6], p.Author)
	assert.Equal(t, post.ZoneStressed, p.Zone)
	assert.Equal(t, 1, p.Votes)

	resp, body = env.do(t, http.MethodGet, "/api/v1/posts/"+p.ID, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got post.Post
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, p.ID, got.ID)
}

func TestCreatePost_Errors(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, member)

	resp, _ := env.do(t, http.MethodPost, "/api/v1/posts", "", map[string]string{"text": "hello"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/posts", tok, map[string]string{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/posts", tok, map[string]string{"text": strings.Repeat("x", 101)})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/posts", "garbage", map[string]string{"text": "hello"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/posts", tok, map[string]int{"bogus": 1})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListPosts(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, member)

	for _, text := range []string{"nice day", "I feel hopeless", "portal is down"} {
		resp, _ := env.do(t, http.MethodPost, "/api/v1/posts", tok, map[string]string{"text": text})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, body := env.do(t, http.MethodGet, "/api/v1/posts", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var all []post.Post
	require.NoError(t, json.Unmarshal(body, &all))
	assert.Len(t, all, 3)

	resp, body = env.do(t, http.MethodGet, "/api/v1/posts?zone=Stressed,Overwhelmed", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var risky []post.Post
	require.NoError(t, json.Unmarshal(body, &risky))
	assert.Len(t, risky, 2)

	resp, _ = env.do(t, http.MethodGet, "/api/v1/posts?zone=Panicked", "", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/v1/posts/00000000-0000-0000-0000-000000000000", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestVote(t *testing.T) {
	env := newTestEnv(t)
	memberTok := env.token(t, member)
	anonTok := env.token(t, domain.Identity{UID: "anon-uid-0001", IsAnonymous: true})

	resp, body := env.do(t, http.MethodPost, "/api/v1/posts", anonTok, map[string]string{"text": "hello"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var p post.Post
	require.NoError(t, json.Unmarshal(body, &p))
	path := "/api/v1/posts/" + p.ID + "/votes"

	resp, _ = env.do(t, http.MethodPost, path, "", map[string]int{"direction": 1})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, path, anonTok, map[string]int{"direction": 1})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = env.do(t, http.MethodPost, path, memberTok, map[string]int{"direction": 2})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = env.do(t, http.MethodPost, path, memberTok, map[string]int{"direction": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var voted post.Post
	require.NoError(t, json.Unmarshal(body, &voted))
	assert.Equal(t, 2, voted.Votes)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/posts/00000000-0000-0000-0000-000000000000/votes", memberTok, map[string]int{"direction": -1})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDashboardAccess(t *testing.T) {
	env := newTestEnv(t)
	memberTok := env.token(t, member)
	adminTok := env.token(t, admin)

	resp, _ := env.do(t, http.MethodPost, "/api/v1/posts", memberTok, map[string]string{"text": "so lonely and sad"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/v1/dashboard", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.do(t, http.MethodGet, "/api/v1/dashboard", memberTok, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := env.do(t, http.MethodGet, "/api/v1/dashboard", adminTok, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var vm dashboard.ViewModel
	require.NoError(t, json.Unmarshal(body, &vm))
	assert.Equal(t, 1, vm.KPIs.TotalPosts)
	assert.Equal(t, 1, vm.KPIs.AtRiskNow)
	assert.Equal(t, "+1", vm.KPIs.AtRiskChange.String())
	assert.Len(t, vm.ActivitySeries, mood.ActivityDays)
	require.NotEmpty(t, vm.TopNegativeKeywords)
	assert.Equal(t, "sad", vm.TopNegativeKeywords[0].Keyword)
}

func TestClassify(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodPost, "/api/v1/classify", "", map[string]string{"text": "I failed and I'm exhausted"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var a mood.Analysis
	require.NoError(t, json.Unmarshal(body, &a))
	assert.Equal(t, post.ZoneOverwhelmed, a.Zone)
	assert.Equal(t, []string{"failed", "exhausted"}, a.MatchedCues)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/classify", "", map[string]string{"text": ""})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "peerhive_posts_rate_limited_total")
}

func dial(t *testing.T, env *testEnv, path string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + path
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if conn != nil {
		t.Cleanup(func() { conn.Close() })
	}
	return conn, resp, err
}

func readJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func TestFeedStream(t *testing.T) {
	env := newTestEnv(t)
	tok := env.token(t, member)

	resp, _ := env.do(t, http.MethodPost, "/api/v1/posts", tok, map[string]string{"text": "first"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	conn, _, err := dial(t, env, "/ws/feed")
	require.NoError(t, err)

	var snapshot post.Event
	readJSON(t, conn, &snapshot)
	assert.Equal(t, post.EventSnapshot, snapshot.Type)
	require.Len(t, snapshot.Posts, 1)
	assert.Equal(t, "first", snapshot.Posts[0].Text)

	resp, body := env.do(t, http.MethodPost, "/api/v1/posts", tok, map[string]string{"text": "second"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created post.Post
	require.NoError(t, json.Unmarshal(body, &created))

	var ev post.Event
	readJSON(t, conn, &ev)
	assert.Equal(t, post.EventCreated, ev.Type)
	require.NotNil(t, ev.Post)
	assert.Equal(t, created.ID, ev.Post.ID)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/posts/"+created.ID+"/votes", tok, map[string]int{"direction": 1})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	readJSON(t, conn, &ev)
	assert.Equal(t, post.EventVoted, ev.Type)
	assert.Equal(t, 2, ev.Post.Votes)
}

func TestDashboardStream(t *testing.T) {
	env := newTestEnv(t)

	_, resp, err := dial(t, env, "/ws/dashboard?token="+env.token(t, member))
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	conn, _, err := dial(t, env, "/ws/dashboard?token="+env.token(t, admin))
	require.NoError(t, err)

	var msg struct {
		Type      string              `json:"type"`
		Dashboard dashboard.ViewModel `json:"dashboard"`
	}
	readJSON(t, conn, &msg)
	assert.Equal(t, "dashboard", msg.Type)
	assert.Equal(t, 0, msg.Dashboard.KPIs.TotalPosts)

	resp, _ = env.do(t, http.MethodPost, "/api/v1/posts", env.token(t, member), map[string]string{"text": "crying again"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// a recomputation may already be in flight; wait for the one that sees the post
	for i := 0; i < 3 && msg.Dashboard.KPIs.TotalPosts == 0; i++ {
		readJSON(t, conn, &msg)
	}
	assert.Equal(t, 1, msg.Dashboard.KPIs.TotalPosts)
	assert.Equal(t, 1, msg.Dashboard.KPIs.AtRiskNow)
}
