package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/jumpseat/jumpseat-api/internal/domain/model"
	apperrors "github.com/jumpseat/jumpseat-api/internal/errors"
)

// QueueSyncer is the queue top-up surface the operator API drives.
type QueueSyncer interface {
	SyncClient(ctx context.Context, clientID string) (*model.SyncResult, error)
	SyncAllClients(ctx context.Context) ([]model.SyncResult, error)
	MarkJobApplied(ctx context.Context, clientID, feedJobID string) error
}

// QueueSyncHandlers provides the operator endpoints for queue sync.
type QueueSyncHandlers struct {
	Svc QueueSyncer
}

type syncAllResponse struct {
	Results []model.SyncResult `json:"results"`
}

type markAppliedRequest struct {
	FeedJobID string `json:"feed_job_id"`
}

// SyncAll handles POST /api/queue-sync.
func (h *QueueSyncHandlers) SyncAll(w http.ResponseWriter, r *http.Request) {
	results, err := h.Svc.SyncAllClients(r.Context())
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	if results == nil {
		results = []model.SyncResult{}
	}
	WriteJSON(w, http.StatusOK, syncAllResponse{Results: results})
}

// SyncClient handles POST /api/clients/{id}/queue-sync.
func (h *QueueSyncHandlers) SyncClient(w http.ResponseWriter, r *http.Request) {
	clientID, ok := clientIDFromPath(w, r)
	if !ok {
		return
	}

	res, err := h.Svc.SyncClient(r.Context(), clientID)
	if err != nil {
		WriteServiceError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, res)
}

// MarkApplied handles POST /api/clients/{id}/feed-applications.
func (h *QueueSyncHandlers) MarkApplied(w http.ResponseWriter, r *http.Request) {
	clientID, ok := clientIDFromPath(w, r)
	if !ok {
		return
	}

	var req markAppliedRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	if err := h.Svc.MarkJobApplied(r.Context(), clientID, strings.TrimSpace(req.FeedJobID)); err != nil {
		WriteServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func clientIDFromPath(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		WriteServiceError(w, apperrors.ValidationField("client_id", "client_id is required"))
		return "", false
	}
	return id, true
}
