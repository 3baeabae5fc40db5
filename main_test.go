package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/s1natex/taskboard-GO/internal/config"
	"github.com/s1natex/taskboard-GO/internal/tasks"
)

func testConfig() config.Server {
	return config.Server{
		AuthMode:       "none",
		AllowedOrigins: []string{"*"},
		RequestTimeout: 5 * time.Second,
	}
}

func newTestRouter(t *testing.T, cfg config.Server) (http.Handler, *tasks.InMemoryRepo) {
	t.Helper()
	repo := tasks.NewInMemoryRepo()
	r, err := newRouter(cfg, repo, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("newRouter: %v", err)
	}
	return r, repo
}

func TestHealthEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	expected := `{"status":"ok"}`
	if got := strings.TrimSpace(w.Body.String()); got != expected {
		t.Errorf("expected body %s, got %s", expected, got)
	}
}

func TestTaskLifecycleThroughStack(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := do(http.MethodPost, "/boards/b1/tasks", `{"title":"Untitled"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d, body=%s", w.Code, w.Body.String())
	}
	var created tasks.Task
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("parse: %v", err)
	}

	path := "/boards/b1/tasks/" + strconv.FormatInt(created.ID, 10)
	w = do(http.MethodPatch, path, `{"content":"<p>notes</p>"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("patch: expected 200, got %d, body=%s", w.Code, w.Body.String())
	}

	w = do(http.MethodGet, path, "")
	var got tasks.Task
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Content != "<p>notes</p>" || got.Title != "Untitled" {
		t.Errorf("unexpected task after patch: %+v", got)
	}

	if w = do(http.MethodDelete, path, ""); w.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", w.Code)
	}
}

func TestAuthSkipsHealthAndMetrics(t *testing.T) {
	cfg := testConfig()
	cfg.AuthMode = "apikey"
	cfg.APIKey = "s3cret"
	r, _ := newTestRouter(t, cfg)

	for _, path := range []string{"/health", "/metrics"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected 200 without credentials, got %d", path, w.Code)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boards/b1/tasks", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/boards/b1/tasks", nil)
	req.Header.Set("X-API-Key", "s3cret")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with key, got %d", w.Code)
	}
}

func TestNewRouter_RejectsUnknownAuthMode(t *testing.T) {
	cfg := testConfig()
	cfg.AuthMode = "oauth"
	if _, err := newRouter(cfg, tasks.NewInMemoryRepo(), slog.Default()); err == nil {
		t.Fatal("expected error for unknown auth mode")
	}
}

func TestOpenRepo(t *testing.T) {
	ctx := context.Background()

	repo, closeRepo, err := openRepo(ctx, "")
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	closeRepo()
	if _, ok := repo.(*tasks.InMemoryRepo); !ok {
		t.Errorf("expected in-memory repo, got %T", repo)
	}

	repo, closeRepo, err = openRepo(ctx, t.TempDir()+"/data/tasks.db")
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	defer closeRepo()
	if _, err := repo.Create(ctx, "b1", "persisted", ""); err != nil {
		t.Fatalf("create: %v", err)
	}
}
