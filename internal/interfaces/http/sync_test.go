package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type stubScheduler struct {
	triggers int
	next     time.Time
}

func (s *stubScheduler) TriggerNow()                  { s.triggers++ }
func (s *stubScheduler) NextScheduledTime() time.Time { return s.next }

func TestHandleSyncAll(t *testing.T) {
	sched := &stubScheduler{next: time.Date(2026, 9, 1, 6, 0, 0, 0, time.UTC)}
	h := NewSyncHandler(sched)

	rec := httptest.NewRecorder()
	h.HandleSyncAll(rec, httptest.NewRequest(http.MethodPost, "/api/bank/sync", nil))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusAccepted)
	}
	if sched.triggers != 1 {
		t.Errorf("triggers = %d, want 1", sched.triggers)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if body["status"] != "queued" {
		t.Errorf("status field = %q, want queued", body["status"])
	}
	if body["next_scheduled_sync"] != "2026-09-01T06:00:00Z" {
		t.Errorf("next_scheduled_sync = %q", body["next_scheduled_sync"])
	}
}

func TestHandleSyncAll_MethodNotAllowed(t *testing.T) {
	sched := &stubScheduler{}
	h := NewSyncHandler(sched)

	rec := httptest.NewRecorder()
	h.HandleSyncAll(rec, httptest.NewRequest(http.MethodGet, "/api/bank/sync", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
	if sched.triggers != 0 {
		t.Error("GET must not trigger a sync run")
	}
}
