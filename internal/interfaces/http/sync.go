package http

import (
	"encoding/json"
	"net/http"
	"time"
)

// SyncScheduler is the slice of the scheduler the manual-trigger endpoint
// needs.
type SyncScheduler interface {
	TriggerNow()
	NextScheduledTime() time.Time
}

type SyncHandler struct {
	scheduler SyncScheduler
}

func NewSyncHandler(scheduler SyncScheduler) *SyncHandler {
	return &SyncHandler{scheduler: scheduler}
}

// HandleSyncAll queues a sync run for every connected connection, outside
// the regular schedule. The run happens in the background; 202 only means
// the batch was queued.
func (h *SyncHandler) HandleSyncAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.scheduler.TriggerNow()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"status":              "queued",
		"next_scheduled_sync": h.scheduler.NextScheduledTime().Format(time.RFC3339),
	})
}
