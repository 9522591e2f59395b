package httptransport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"retrocast-server-go/internal/app/session"
	platformtesting "retrocast-server-go/internal/platform/testing"
)

type fakeLister struct {
	statuses []session.Status
}

func (f *fakeLister) Sessions() []session.Status {
	return f.statuses
}

func newTestServer(t *testing.T, lister SessionLister) *Server {
	t.Helper()
	return NewServer(platformtesting.SetupTestConfig(t), lister, platformtesting.SetupTestLogger(t))
}

func performJSON(t *testing.T, handler gin.HandlerFunc, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(rec)
	ctx.Request = httptest.NewRequest(http.MethodGet, path, nil)
	handler(ctx)

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	return rec, body
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t, &fakeLister{})

	rec, body := performJSON(t, srv.handleHealth, "/healthz")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}

func TestSessionsEndpointListsLiveSessions(t *testing.T) {
	lister := &fakeLister{statuses: []session.Status{
		{ID: "abc", State: "active", Sent: 7},
	}}
	srv := newTestServer(t, lister)

	rec, body := performJSON(t, srv.handleSessions, "/api/sessions")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if body["count"] != float64(1) {
		t.Errorf("count = %v, want 1", body["count"])
	}
}

func TestSessionsEndpointReturnsEmptyListNotNull(t *testing.T) {
	srv := newTestServer(t, &fakeLister{})

	_, body := performJSON(t, srv.handleSessions, "/api/sessions")
	sessions, ok := body["sessions"].([]any)
	if !ok {
		t.Fatalf("sessions field = %v, want an array", body["sessions"])
	}
	if len(sessions) != 0 {
		t.Errorf("sessions has %d entries, want 0", len(sessions))
	}
}
