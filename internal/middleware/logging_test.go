package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// recordingCollector はRecordHTTPStatusの呼び出しを記録する。
type recordingCollector struct {
	mu       sync.Mutex
	statuses []int
}

func (c *recordingCollector) RecordSignIn(success bool)               {}
func (c *recordingCollector) RecordOTPIssued()                        {}
func (c *recordingCollector) RecordOTPVerified(success bool)          {}
func (c *recordingCollector) RecordResetRequested()                   {}
func (c *recordingCollector) RecordResetCompleted(success bool)       {}
func (c *recordingCollector) RecordMailOutcome(kind string, ok bool)  {}
func (c *recordingCollector) RecordTokensSwept(table string, n int64) {}
func (c *recordingCollector) RecordHTTPStatus(statusCode int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses = append(c.statuses, statusCode)
}

// TestLoggingMiddleware_LogsRequest はリクエストログの内容を検証する。
func TestLoggingMiddleware_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	collector := &recordingCollector{}

	handler := NewLoggingMiddleware(logger, collector)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/users", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log entry: %v", err)
	}
	if entry["method"] != "POST" {
		t.Errorf("method = %v, want POST", entry["method"])
	}
	if entry["path"] != "/api/users" {
		t.Errorf("path = %v, want /api/users", entry["path"])
	}
	if entry["status"] != float64(http.StatusCreated) {
		t.Errorf("status = %v, want %d", entry["status"], http.StatusCreated)
	}
	if _, ok := entry["duration_ms"]; !ok {
		t.Error("expected duration_ms in log entry")
	}

	if len(collector.statuses) != 1 || collector.statuses[0] != http.StatusCreated {
		t.Errorf("recorded statuses = %v, want [201]", collector.statuses)
	}
}

// TestLoggingMiddleware_IncludesUserID は認証済みリクエストでuser_idが記録されることを検証する。
func TestLoggingMiddleware_IncludesUserID(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := NewLoggingMiddleware(logger, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/movies", nil)
	req = req.WithContext(ContextWithUserID(req.Context(), "user-42"))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(buf.String(), `"user_id":"user-42"`) {
		t.Errorf("log entry does not contain user_id: %s", buf.String())
	}
}

// TestLoggingMiddleware_ErrorLevel は5xxがERRORレベルで記録されることを検証する。
func TestLoggingMiddleware_ErrorLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	handler := NewLoggingMiddleware(logger, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/movies", nil))

	if !strings.Contains(buf.String(), `"level":"ERROR"`) {
		t.Errorf("expected ERROR level: %s", buf.String())
	}
}
