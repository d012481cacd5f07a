package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sparklab/internal/app"
	"sparklab/internal/auth"
	"sparklab/internal/domain"
	"sparklab/internal/infra/memory"
)

type testEnv struct {
	server *httptest.Server
	tokens *auth.Tokens
	svc    Services
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	tokens := auth.NewTokens("test-secret", time.Hour)
	quizRepo := memory.NewQuizRepository(memory.NewStaticQuizLoader(domain.BuiltinQuizzes()), time.Minute)
	svc := Services{
		Users:   app.NewUserService(memory.NewUserStore(), tokens, nil),
		Quizzes: app.NewQuizService(quizRepo, memory.NewResultStore(), nil),
		Activities: app.NewActivityService(
			memory.NewActivityStore(domain.BuiltinActivities()...),
			memory.NewProgressStore(),
			memory.NewActionStore(100),
			nil,
		),
	}
	server := httptest.NewServer(NewRouter(svc, RouterConfig{}))
	t.Cleanup(server.Close)
	return &testEnv{server: server, tokens: tokens, svc: svc}
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	role, _ := domain.RoleForID(userID)
	tok, err := e.tokens.Issue(domain.User{ID: "id-" + userID, UserID: userID, Role: role})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

type testResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) (int, testResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var out testResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response of %s %s: %v", method, path, err)
	}
	return resp.StatusCode, out
}

func decodeData(t *testing.T, res testResponse, dst any) {
	t.Helper()
	if err := json.Unmarshal(res.Data, dst); err != nil {
		t.Fatalf("decode data: %v (%s)", err, res.Data)
	}
}
