package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doj0985/databricks-aibi-external-embedding/internal/config"
	"github.com/doj0985/databricks-aibi-external-embedding/internal/databricks"
	"github.com/doj0985/databricks-aibi-external-embedding/internal/directory"
	"github.com/doj0985/databricks-aibi-external-embedding/internal/handler"
	"github.com/doj0985/databricks-aibi-external-embedding/internal/middleware"
	"github.com/doj0985/databricks-aibi-external-embedding/internal/session"
)

// fakeUpstream answers the three Databricks calls with fixed bodies.
func fakeUpstream(t *testing.T, broadStatus int) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/oidc/v1/token":
			if err := r.ParseForm(); err != nil {
				t.Errorf("parse token form: %v", err)
			}
			if r.PostForm.Get("scope") == "all-apis" {
				w.WriteHeader(broadStatus)
				_, _ = w.Write([]byte(`{"access_token":"T1","token_type":"Bearer"}`))
				return
			}
			_, _ = w.Write([]byte(`{"access_token":"T3","expires_in":600}`))

		case r.Method == http.MethodGet:
			_, _ = w.Write([]byte(`{"authorization_details":[{"type":"workspace_permission"}],"extra":"x"}`))

		default:
			t.Errorf("unexpected upstream request: %s %s", r.Method, r.URL.Path)
		}
	}))
	t.Cleanup(server.Close)

	return server
}

func newTestRouter(t *testing.T, workspaceURL string) http.Handler {
	t.Helper()

	cfg := &config.Config{
		ServerPort:       "0",
		RequestTimeout:   10 * time.Second,
		FrontendOrigin:   "http://localhost:3000",
		SessionSecret:    "test-secret",
		SessionTTL:       time.Hour,
		RateLimitRPM:     10000,
		AuthRateLimitRPM: 10000,
		Databricks: config.DatabricksConfig{
			WorkspaceURL: workspaceURL,
			ClientID:     "client-id",
			ClientSecret: "client-secret",
			DashboardID:  "dash-1",
			WorkspaceID:  "ws-1",
			WarehouseID:  "wh-1",
		},
	}

	dir, err := directory.Load(filepath.Join(t.TempDir(), "users.json"))
	require.NoError(t, err)

	sessions := session.NewService(dir, session.NewMemoryStore(), cfg.SessionSecret, cfg.SessionTTL)
	sessionMiddleware := middleware.NewSessionMiddleware(sessions)
	authHandler := handler.NewAuthHandler(sessions, cfg.SessionTTL)
	dashboardHandler := handler.NewDashboardHandler(databricks.NewClient(cfg.Databricks), cfg.Databricks)

	return New(cfg, sessionMiddleware, authHandler, dashboardHandler)
}

func login(t *testing.T, r http.Handler, username string) (*httptest.ResponseRecorder, *http.Cookie) {
	t.Helper()

	body, err := json.Marshal(map[string]string{"username": username})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	for _, cookie := range rec.Result().Cookies() {
		if cookie.Name == middleware.SessionCookieName && cookie.Value != "" {
			return rec, cookie
		}
	}
	return rec, nil
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t, "")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestLoginUnknownUsername(t *testing.T) {
	r := newTestRouter(t, "")

	rec, cookie := login(t, r, "mallory")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, cookie)
}

func TestEmbedConfigRequiresSession(t *testing.T) {
	r := newTestRouter(t, "")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard/embed-config", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginEmbedConfigScenario(t *testing.T) {
	upstream := fakeUpstream(t, http.StatusOK)
	r := newTestRouter(t, upstream.URL)

	rec, cookie := login(t, r, "alice")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	var loginBody struct {
		Success bool `json:"success"`
		User    struct {
			ID         string `json:"id"`
			Department string `json:"department"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &loginBody))
	assert.True(t, loginBody.Success)
	assert.Equal(t, "user_alice", loginBody.User.ID)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/embed-config", nil)
	req.AddCookie(cookie)
	embedRec := httptest.NewRecorder()
	r.ServeHTTP(embedRec, req)

	require.Equal(t, http.StatusOK, embedRec.Code, embedRec.Body.String())

	var embed struct {
		WorkspaceURL   string `json:"workspace_url"`
		WorkspaceID    string `json:"workspace_id"`
		DashboardID    string `json:"dashboard_id"`
		WarehouseID    string `json:"warehouse_id"`
		EmbedToken     string `json:"embed_token"`
		TokenExpiresIn int64  `json:"token_expires_in"`
		UserContext    struct {
			Department string `json:"department"`
		} `json:"user_context"`
	}
	require.NoError(t, json.Unmarshal(embedRec.Body.Bytes(), &embed))
	assert.Equal(t, upstream.URL, embed.WorkspaceURL)
	assert.Equal(t, "ws-1", embed.WorkspaceID)
	assert.Equal(t, "dash-1", embed.DashboardID)
	assert.Equal(t, "wh-1", embed.WarehouseID)
	assert.Equal(t, "T3", embed.EmbedToken)
	assert.Equal(t, int64(600), embed.TokenExpiresIn)
	assert.Equal(t, "Sales", embed.UserContext.Department)
}

func TestCurrentUserAndLogout(t *testing.T) {
	r := newTestRouter(t, "")

	_, cookie := login(t, r, "bob")
	require.NotNil(t, cookie)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/current-user", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var user struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		Email      string `json:"email"`
		Department string `json:"department"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &user))
	assert.Equal(t, "user_bob", user.ID)
	assert.Equal(t, "Bob Smith", user.Name)
	assert.Equal(t, "Engineering", user.Department)

	logoutReq := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	logoutReq.AddCookie(cookie)
	logoutRec := httptest.NewRecorder()
	r.ServeHTTP(logoutRec, logoutReq)
	require.Equal(t, http.StatusOK, logoutRec.Code)

	// The session is gone even though the cookie still validates
	// cryptographically.
	afterReq := httptest.NewRequest(http.MethodGet, "/api/auth/current-user", nil)
	afterReq.AddCookie(cookie)
	afterRec := httptest.NewRecorder()
	r.ServeHTTP(afterRec, afterReq)
	assert.Equal(t, http.StatusUnauthorized, afterRec.Code)
}

func TestEmbedConfigUpstreamFailure(t *testing.T) {
	upstream := fakeUpstream(t, http.StatusServiceUnavailable)
	r := newTestRouter(t, upstream.URL)

	_, cookie := login(t, r, "alice")
	require.NotNil(t, cookie)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/embed-config", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "UPSTREAM_ERROR")
}

func TestEmbedConfigWithoutWorkspaceConfig(t *testing.T) {
	r := newTestRouter(t, "")

	_, cookie := login(t, r, "alice")
	require.NotNil(t, cookie)

	req := httptest.NewRequest(http.MethodGet, "/api/dashboard/embed-config", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "CONFIG_ERROR")
}

func TestCORSPreflightAllowsFrontendOrigin(t *testing.T) {
	r := newTestRouter(t, "")

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
