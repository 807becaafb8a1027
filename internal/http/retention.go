package http

import (
	"net/http"
	"strconv"

	"github.com/vypdev/vaultstadio-sub005/internal/retention"

	"github.com/go-chi/chi/v5"
)

type retentionService = retention.Service

type retentionHandler struct {
	encoder     encoder
	service     retentionService
	horizonDays int
}

func newRetentionHandler(encoder encoder, service retentionService, horizonDays int) *retentionHandler {
	return &retentionHandler{
		encoder:     encoder,
		service:     service,
		horizonDays: horizonDays,
	}
}

func (h retentionHandler) Routes(r chi.Router) {
	r.Post("/prune", h.prune)
}

// prune triggers a sweep outside the cron schedule. Operators use it after
// lowering the horizon or before migrations.
func (h retentionHandler) prune(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	olderThanDays := h.horizonDays
	if raw := r.URL.Query().Get("older_than_days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.encoder.StatusResponse(ctx, w, errorResponse{Message: "Invalid older_than_days"}, http.StatusBadRequest)
			return
		}
		olderThanDays = parsed
	}

	pruned, err := h.service.PruneOldData(ctx, olderThanDays)
	if err != nil {
		h.encoder.StatusResponse(ctx, w, errorResponse{Message: err.Error()}, errorStatus(err))
		return
	}

	h.encoder.StatusResponse(ctx, w, map[string]int64{"pruned": pruned}, http.StatusOK)
}
