package gateway

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskgate/go-task-gateway/internal/config"
	"github.com/taskgate/go-task-gateway/internal/http/middleware"
)

// echoUpstream records the last request it served and replies with a fixed
// JSON body.
type echoUpstream struct {
	lastPath   string
	lastQuery  string
	lastHeader http.Header
	lastBody   string
	status     int
	body       string
}

func (e *echoUpstream) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e.lastPath = r.URL.Path
		e.lastQuery = r.URL.RawQuery
		e.lastHeader = r.Header.Clone()
		b, _ := io.ReadAll(r.Body)
		e.lastBody = string(b)

		w.Header().Set("Content-Type", "application/json")
		status := e.status
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(e.body))
	}
}

func gatewayConfig(authBase, tasksBase string, rateLimit int) config.Config {
	var cfg config.Config
	cfg.OTEL.ServiceName = "gateway-test"
	cfg.JWT.Secret = testSecret
	cfg.JWT.Audience = "task-api"
	cfg.JWT.Issuer = "http://auth-service"
	cfg.Gateway.AuthBaseURL = authBase
	cfg.Gateway.TasksBaseURL = tasksBase
	cfg.Gateway.RateLimit = rateLimit
	cfg.Gateway.RateWindow = time.Minute
	cfg.Gateway.UpstreamTimeout = 5 * time.Second
	return cfg
}

func newGateway(cfg config.Config) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, cfg)
	return r
}

func validToken(t *testing.T) string {
	t.Helper()
	return signToken(t, signOpts{sub: "u1", aud: "task-api", iss: "http://auth-service", role: "admin"})
}

func TestGateway_TasksRequireToken(t *testing.T) {
	up := &echoUpstream{body: `[]`}
	srv := httptest.NewServer(up.handler())
	defer srv.Close()

	r := newGateway(gatewayConfig("", srv.URL, 100))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tasks", nil))

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("body not JSON: %v", err)
	}
	if body["code"] != "unauthorized" || body["message"] != "Missing or invalid token" {
		t.Fatalf("unexpected body: %v", body)
	}
	if up.lastPath != "" {
		t.Fatalf("upstream must not be called on auth failure")
	}
}

func TestGateway_MissingSecretIsServerError(t *testing.T) {
	up := &echoUpstream{body: `[]`}
	srv := httptest.NewServer(up.handler())
	defer srv.Close()

	cfg := gatewayConfig("", srv.URL, 100)
	cfg.JWT.Secret = ""
	r := newGateway(cfg)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, signOpts{
		sub: "attacker", role: "admin", aud: "task-api", iss: "http://auth-service"}))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("body not JSON: %v", err)
	}
	if body["code"] != "server_error" || body["message"] != "JWT configuration missing" {
		t.Fatalf("unexpected body: %v", body)
	}
	if up.lastPath != "" {
		t.Fatalf("upstream must not be called when the secret is unset")
	}
}

func TestGateway_TasksForwardWithIdentity(t *testing.T) {
	up := &echoUpstream{body: `{"data":[],"page":1,"limit":10,"total":0}`}
	srv := httptest.NewServer(up.handler())
	defer srv.Close()

	r := newGateway(gatewayConfig("", srv.URL, 100))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/tasks?page=2&limit=5", nil)
	req.Header.Set("Authorization", "Bearer "+validToken(t))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	if w.Body.String() != `{"data":[],"page":1,"limit":10,"total":0}` {
		t.Fatalf("body not passed through: %s", w.Body.String())
	}
	if up.lastPath != "/tasks" || up.lastQuery != "page=2&limit=5" {
		t.Fatalf("upstream saw %s?%s", up.lastPath, up.lastQuery)
	}
	if got := up.lastHeader.Get(middleware.HeaderUserSub); got != "u1" {
		t.Fatalf("X-User-Sub = %q", got)
	}
	if got := up.lastHeader.Get(middleware.HeaderUserRole); got != "admin" {
		t.Fatalf("X-User-Role = %q", got)
	}
	if up.lastHeader.Get(middleware.HeaderRequestID) == "" {
		t.Fatalf("correlation id not propagated upstream")
	}
}

func TestGateway_CreateForwardsBodyAndHeaders(t *testing.T) {
	up := &echoUpstream{body: `{"id":"t1"}`}
	srv := httptest.NewServer(up.handler())
	defer srv.Close()

	r := newGateway(gatewayConfig("", srv.URL, 100))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/tasks", strings.NewReader(`{"title":"x"}`))
	req.Header.Set("Authorization", "Bearer "+validToken(t))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderIdempotencyKey, "k1")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	if up.lastBody != `{"title":"x"}` {
		t.Fatalf("upstream body = %q", up.lastBody)
	}
	if got := up.lastHeader.Get(middleware.HeaderIdempotencyKey); got != "k1" {
		t.Fatalf("Idempotency-Key = %q", got)
	}
	if !strings.HasPrefix(up.lastHeader.Get("Authorization"), "Bearer ") {
		t.Fatalf("Authorization not forwarded")
	}
}

func TestGateway_AuthRoutesSkipToken(t *testing.T) {
	up := &echoUpstream{body: `{"token":"jwt","token_type":"Bearer","expires_in":900}`}
	srv := httptest.NewServer(up.handler())
	defer srv.Close()

	r := newGateway(gatewayConfig(srv.URL, "", 100))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login",
		strings.NewReader(`{"email":"a@b.c","password":"x"}`))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", w.Code, w.Body.String())
	}
	if up.lastPath != "/auth/login" {
		t.Fatalf("upstream path = %q", up.lastPath)
	}
}

func TestGateway_UpstreamStatusPassthrough(t *testing.T) {
	up := &echoUpstream{status: http.StatusConflict, body: `{"code":"idempotency_conflict","message":"x"}`}
	srv := httptest.NewServer(up.handler())
	defer srv.Close()

	r := newGateway(gatewayConfig("", srv.URL, 100))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/tasks", strings.NewReader(`{}`))
	req.Header.Set("Authorization", "Bearer "+validToken(t))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
	if !strings.Contains(w.Body.String(), "idempotency_conflict") {
		t.Fatalf("body not passed through: %s", w.Body.String())
	}
}

func TestGateway_UnconfiguredUpstream(t *testing.T) {
	r := newGateway(gatewayConfig("", "", 100))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+validToken(t))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if !strings.Contains(w.Body.String(), "server_error") {
		t.Fatalf("body: %s", w.Body.String())
	}
}

func TestGateway_RateLimitBeforeAuth(t *testing.T) {
	up := &echoUpstream{body: `[]`}
	srv := httptest.NewServer(up.handler())
	defer srv.Close()

	r := newGateway(gatewayConfig("", srv.URL, 2))
	tok := validToken(t)

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, w.Code)
		}
	}

	// Third request is denied even without any token: the rate gate runs
	// before authentication.
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tasks", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatalf("Retry-After hint missing")
	}
	if !strings.Contains(w.Body.String(), "too_many_requests") {
		t.Fatalf("body: %s", w.Body.String())
	}
}

func TestGateway_ResponseCarriesCorrelationHeaders(t *testing.T) {
	up := &echoUpstream{body: `[]`}
	srv := httptest.NewServer(up.handler())
	defer srv.Close()

	r := newGateway(gatewayConfig("", srv.URL, 100))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set("Authorization", "Bearer "+validToken(t))
	req.Header.Set(middleware.HeaderRequestID, "rid-42")
	r.ServeHTTP(w, req)

	if got := w.Header().Get(middleware.HeaderRequestID); got != "rid-42" {
		t.Fatalf("%s = %q", middleware.HeaderRequestID, got)
	}
	if ok, _ := regexp.MatchString(`^\d+ms$`, w.Header().Get(middleware.HeaderResponseTime)); !ok {
		t.Fatalf("%s = %q", middleware.HeaderResponseTime, w.Header().Get(middleware.HeaderResponseTime))
	}
}
