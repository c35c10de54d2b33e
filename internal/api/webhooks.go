package api

import (
	"net/http"

	"github.com/nerrad567/family-rules-core/internal/webhook"
)

// WebhookQueueResponse describes the outbound webhook pipeline.
type WebhookQueueResponse struct {
	Pending int                    `json:"pending"`
	Stats   *webhook.DispatchStats `json:"stats,omitempty"`
}

// handleWebhookQueue returns the number of accounts awaiting delivery and,
// when the dispatcher is running, its counters.
func (s *Server) handleWebhookQueue(w http.ResponseWriter, _ *http.Request) {
	var resp WebhookQueueResponse
	if s.queue != nil {
		resp.Pending = s.queue.Len()
	}
	if s.dispatcher != nil {
		stats := s.dispatcher.Stats()
		resp.Stats = &stats
	}
	writeJSON(w, http.StatusOK, resp)
}
