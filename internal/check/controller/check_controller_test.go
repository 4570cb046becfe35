package controller

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"codearena/internal/check/embed"
	"codearena/internal/check/normalize"
	"codearena/internal/check/service"
	"codearena/internal/gateway/middleware"

	"github.com/gin-gonic/gin"
)

const testAPIKey = "internal"

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := service.NewEngine(normalize.NoopNormalizer{}, embed.NewEmbedder("", ""), nil, 0)

	r := gin.New()
	ctl := NewCheckController(engine)
	ctl.RegisterRoutes(r, middleware.AuthMiddleware(middleware.AuthConfig{
		InternalAPIKey: testAPIKey,
		JWTSecret:      "secret",
	}))
	return r
}

func do(r *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthIsPublic(t *testing.T) {
	r := newTestRouter(t)
	w := do(r, http.MethodGet, "/", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestSemanticCodeRequiresAuth(t *testing.T) {
	r := newTestRouter(t)
	w := do(r, http.MethodPost, "/semantic-code", "[]", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestSemanticCodeEmptyBatch(t *testing.T) {
	r := newTestRouter(t)
	w := do(r, http.MethodPost, "/semantic-code", "[]",
		map[string]string{"x-internal-api-key": testAPIKey})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestSemanticCodeFlagsCopies(t *testing.T) {
	r := newTestRouter(t)
	body := `[
		{"user": {"_id": "u1", "username": "alice"}, "problems": [
			{"problem": {"_id": "p1", "name": "Sum"}, "submissions": [{"_id": "s1", "code": "print(a+b)"}]}
		]},
		{"user": {"_id": "u2", "username": "bob"}, "problems": [
			{"problem": {"_id": "p1", "name": "Sum"}, "submissions": [{"_id": "s2", "code": "print(a+b)"}]}
		]}
	]`

	w := do(r, http.MethodPost, "/semantic-code", body,
		map[string]string{"x-internal-api-key": testAPIKey})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := w.Body.String()
	if !strings.Contains(resp, `"checkResult"`) {
		t.Errorf("body = %s", resp)
	}
	if !strings.Contains(resp, `"s1"`) || !strings.Contains(resp, `"s2"`) {
		t.Errorf("copies not flagged: %s", resp)
	}
}

func TestSemanticCodeMalformedBody(t *testing.T) {
	r := newTestRouter(t)
	w := do(r, http.MethodPost, "/semantic-code", "{not a list",
		map[string]string{"x-internal-api-key": testAPIKey})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}
