package http

import (
	"encoding/json"
	"net/http"

	"github.com/vypdev/vaultstadio-sub005/internal/domain"
	"github.com/vypdev/vaultstadio-sub005/internal/sync"

	"github.com/go-chi/chi/v5"
)

type syncService = sync.Service

type syncHandler struct {
	encoder encoder
	service syncService
}

func newSyncHandler(encoder encoder, service syncService) *syncHandler {
	return &syncHandler{
		encoder: encoder,
		service: service,
	}
}

func (h syncHandler) Routes(r chi.Router) {
	r.Post("/pull", h.pull)
	r.Post("/push", h.push)
	r.Post("/changes", h.recordChange)
}

func (h syncHandler) pull(w http.ResponseWriter, r *http.Request) {
	var (
		ctx = r.Context()
		req domain.SyncRequest
	)

	accountID, ok := accountFromContext(ctx)
	if !ok {
		http.Error(w, "Unauthorized: Account not found in context", http.StatusUnauthorized)
		return
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.encoder.StatusResponse(ctx, w, errorResponse{Message: "Invalid request body"}, http.StatusBadRequest)
		return
	}

	res, err := h.service.Sync(ctx, accountID, req)
	if err != nil {
		h.encoder.StatusResponse(ctx, w, errorResponse{Message: err.Error()}, errorStatus(err))
		return
	}

	h.encoder.StatusResponse(ctx, w, res, http.StatusOK)
}

func (h syncHandler) push(w http.ResponseWriter, r *http.Request) {
	var (
		ctx = r.Context()
		req domain.PushRequest
	)

	accountID, ok := accountFromContext(ctx)
	if !ok {
		http.Error(w, "Unauthorized: Account not found in context", http.StatusUnauthorized)
		return
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.encoder.StatusResponse(ctx, w, errorResponse{Message: "Invalid request body"}, http.StatusBadRequest)
		return
	}

	conflicts, err := h.service.PushChanges(ctx, accountID, req.DeviceID, req.Changes)
	if err != nil {
		h.encoder.StatusResponse(ctx, w, errorResponse{Message: err.Error()}, errorStatus(err))
		return
	}

	h.encoder.StatusResponse(ctx, w, domain.PushResponse{Conflicts: conflicts}, http.StatusOK)
}

func (h syncHandler) recordChange(w http.ResponseWriter, r *http.Request) {
	var (
		ctx = r.Context()
		req domain.RecordChangeRequest
	)

	accountID, ok := accountFromContext(ctx)
	if !ok {
		http.Error(w, "Unauthorized: Account not found in context", http.StatusUnauthorized)
		return
	}

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.encoder.StatusResponse(ctx, w, errorResponse{Message: "Invalid request body"}, http.StatusBadRequest)
		return
	}

	change, err := h.service.RecordChange(ctx, accountID, req)
	if err != nil {
		h.encoder.StatusResponse(ctx, w, errorResponse{Message: err.Error()}, errorStatus(err))
		return
	}

	h.encoder.StatusResponse(ctx, w, change, http.StatusCreated)
}
