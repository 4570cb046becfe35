package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"codearena/internal/common/cache"
	"codearena/internal/common/mq"
	"codearena/internal/gateway/middleware"
	"codearena/internal/gateway/repository"
	"codearena/internal/gateway/service"
	"codearena/internal/judge/model"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	testSecret = "secret"
	testAPIKey = "internal"
)

// echoQueue answers every published task through the dispatcher's response
// handler, playing an instant worker.
type echoQueue struct {
	deliver func(ctx context.Context, msg *mq.Message) error
	respond func(task model.Task) model.TaskResponse
}

func (q *echoQueue) Publish(ctx context.Context, queue string, msg *mq.Message) error {
	var task model.Task
	if err := json.Unmarshal(msg.Body, &task); err != nil {
		return err
	}
	resp := q.respond(task)
	resp.CorrelationID = task.CorrelationID
	body, _ := json.Marshal(resp)
	return q.deliver(ctx, mq.NewMessage(body))
}

// memCache backs the contest repository in tests.
type memCache struct{ data map[string]string }

func (m *memCache) Get(ctx context.Context, key string) (string, error) {
	v, ok := m.data[key]
	if !ok {
		return "", cache.ErrKeyNotFound
	}
	return v, nil
}

func (m *memCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (m *memCache) Del(ctx context.Context, keys ...string) error { return nil }

func (m *memCache) Exists(ctx context.Context, keys ...string) (int64, error) { return 0, nil }

func (m *memCache) Ping(ctx context.Context) error { return nil }

func (m *memCache) Close() error { return nil }

func newTestRouter(t *testing.T, contests map[string]string, respond func(task model.Task) model.TaskResponse) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	queue := &echoQueue{respond: respond}
	// The capture queue hands the dispatcher's subscription handler to the
	// echo queue, so published tasks answer themselves.
	captured := &captureMQ{}
	dispatcher := service.NewDispatcher(captured)
	if err := dispatcher.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	queue.deliver = captured.handler

	repo := repository.NewContestRepository(&memCache{data: contests})
	svc := service.NewJudgeService(queue, dispatcher, repo, nil)

	r := gin.New()
	ctl := NewJudgeController(svc)
	ctl.RegisterRoutes(r, middleware.AuthMiddleware(middleware.AuthConfig{
		InternalAPIKey: testAPIKey,
		JWTSecret:      testSecret,
	}))
	return r
}

// captureMQ records the dispatcher's subscription handler.
type captureMQ struct {
	handler mq.HandlerFunc
}

func (n *captureMQ) Publish(ctx context.Context, queue string, msg *mq.Message) error { return nil }

func (n *captureMQ) Subscribe(ctx context.Context, queue string, handler mq.HandlerFunc, opts *mq.SubscribeOptions) error {
	n.handler = handler
	return nil
}

func (n *captureMQ) DeclareQueue(ctx context.Context, queue string, opts mq.QueueOptions) error {
	return nil
}

func (n *captureMQ) Start() error { return nil }

func (n *captureMQ) Stop() error { return nil }

func (n *captureMQ) Ping(ctx context.Context) error { return nil }

func (n *captureMQ) Close() error { return nil }

func userToken(t *testing.T, userID string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"_id": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func doJSON(r *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
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
	r := newTestRouter(t, nil, nil)

	w := doJSON(r, http.MethodGet, "/", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "running") {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestExecuteRequiresAuth(t *testing.T) {
	r := newTestRouter(t, nil, nil)

	w := doJSON(r, http.MethodPost, "/execute", `{"processor":"python3","code":"x"}`, nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestExecuteRelaysResult(t *testing.T) {
	r := newTestRouter(t, nil, func(task model.Task) model.TaskResponse {
		return model.TaskResponse{Result: json.RawMessage(`{"status":"success","output":"7\n"}`)}
	})

	w := doJSON(r, http.MethodPost, "/execute",
		`{"processor":"python3","code":"print(3+4)","input_data":""}`,
		map[string]string{"x-internal-api-key": testAPIKey})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var result model.ExecuteResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Output != "7\n" {
		t.Errorf("output = %q", result.Output)
	}
}

func TestExecuteRejectsMalformedBody(t *testing.T) {
	r := newTestRouter(t, nil, nil)

	w := doJSON(r, http.MethodPost, "/execute", "{nope",
		map[string]string{"x-internal-api-key": testAPIKey})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestEvaluateInternalCallerNeedsUserID(t *testing.T) {
	r := newTestRouter(t, nil, nil)

	w := doJSON(r, http.MethodPost, "/evaluate",
		`{"processor":"python3","code":"x","contest_id":"c1","problem_id":"p1"}`,
		map[string]string{"x-internal-api-key": testAPIKey})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestEvaluateTokenCaller(t *testing.T) {
	contest := `{
		"registrations": [{"user": {"_id": "user-1"}, "status": "approved"}],
		"problems": [{"_id": "p1", "testcases": [{"id": "tc", "input": "", "output": "ok", "score": 100}]}]
	}`
	r := newTestRouter(t, map[string]string{"contest_c1": contest}, func(task model.Task) model.TaskResponse {
		return model.TaskResponse{Result: json.RawMessage(`{"summary":{"passed":1,"failed":0,"total":1,"total_score":100}}`)}
	})

	w := doJSON(r, http.MethodPost, "/evaluate",
		`{"processor":"python3","code":"print('ok')","contest_id":"c1","problem_id":"p1"}`,
		map[string]string{"x-access-token": userToken(t, "user-1")})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"total_score":100`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestEvaluateContestGone(t *testing.T) {
	r := newTestRouter(t, nil, nil)

	w := doJSON(r, http.MethodPost, "/evaluate",
		`{"processor":"python3","code":"x","contest_id":"c1","problem_id":"p1"}`,
		map[string]string{"x-access-token": userToken(t, "user-1")})
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403", w.Code)
	}
}
