package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"stepone/internal/domain"
)

// stubRelay answers every request with a fixed response.
type stubRelay struct {
	resp domain.PlanResponse
}

func (s *stubRelay) Handle(ctx context.Context, req domain.PlanRequest) domain.PlanResponse {
	return s.resp
}

// stubStore serves a fixed history listing.
type stubStore struct {
	recs []domain.PlanRecord
}

func (s *stubStore) Record(ctx context.Context, rec domain.PlanRecord) error { return nil }
func (s *stubStore) Recent(ctx context.Context, limit int) ([]domain.PlanRecord, error) {
	return s.recs, nil
}
func (s *stubStore) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	return 0, nil
}
func (s *stubStore) Close() error { return nil }

func testWebLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestWeb(t *testing.T, relay PlanHandler, store domain.PlanStore) (*Web, string) {
	t.Helper()
	publicDir := t.TempDir()
	w := NewWeb(WebConfig{
		PublicDir: publicDir,
		Relay:     relay,
		Store:     store,
		Logger:    testWebLogger(),
	})
	return w, publicDir
}

func TestWeb_PlanEndpoint_AlwaysOK(t *testing.T) {
	want := domain.PlanResponse{Message: "🌿 one small step", Emotion: "healing", Tags: []string{"rest"}}
	w, _ := newTestWeb(t, &stubRelay{resp: want}, nil)

	body, _ := json.Marshal(domain.PlanRequest{Text: "tired", Emotion: "tired", Intent: "rest"})
	req := httptest.NewRequest("POST", "/api/plan", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	w.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got domain.PlanResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("cannot decode response: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestWeb_PlanEndpoint_InvalidBody(t *testing.T) {
	w, _ := newTestWeb(t, &stubRelay{}, nil)

	req := httptest.NewRequest("POST", "/api/plan", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	w.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestWeb_RootRedirectsToIndex(t *testing.T) {
	w, _ := newTestWeb(t, &stubRelay{}, nil)

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	w.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("expected 307, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/public/index.html" {
		t.Fatalf("expected redirect to /public/index.html, got %q", loc)
	}
}

func TestWeb_StaticFilesServedByteIdentical(t *testing.T) {
	w, publicDir := newTestWeb(t, &stubRelay{}, nil)

	content := []byte("<html>🌿 hello</html>")
	if err := os.WriteFile(filepath.Join(publicDir, "index.html"), content, 0o644); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("GET", "/public/index.html", nil)
	rec := httptest.NewRecorder()
	w.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	got, _ := io.ReadAll(rec.Body)
	if !bytes.Equal(got, content) {
		t.Fatalf("served file differs from disk: got %q", got)
	}
}

func TestWeb_Status(t *testing.T) {
	w, _ := newTestWeb(t, &stubRelay{}, nil)

	req := httptest.NewRequest("GET", "/status", nil)
	rec := httptest.NewRecorder()
	w.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "ok" {
		t.Fatalf("expected status ok, got %v", body["status"])
	}
}

func TestWeb_HistoryEndpoint(t *testing.T) {
	store := &stubStore{recs: []domain.PlanRecord{{ID: 1, Text: "hi", Outcome: domain.OutcomeOK}}}
	w, _ := newTestWeb(t, &stubRelay{}, store)

	req := httptest.NewRequest("GET", "/api/history?limit=5", nil)
	rec := httptest.NewRecorder()
	w.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var recs []domain.PlanRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &recs); err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Text != "hi" {
		t.Fatalf("unexpected history payload: %+v", recs)
	}
}

func TestWeb_HistoryEndpoint_AbsentWithoutStore(t *testing.T) {
	w, _ := newTestWeb(t, &stubRelay{}, nil)

	req := httptest.NewRequest("GET", "/api/history", nil)
	rec := httptest.NewRecorder()
	w.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without store, got %d", rec.Code)
	}
}
