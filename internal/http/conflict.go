package http

import (
	"encoding/json"
	"net/http"

	"github.com/vypdev/vaultstadio-sub005/internal/conflict"
	"github.com/vypdev/vaultstadio-sub005/internal/domain"

	"github.com/go-chi/chi/v5"
)

type conflictService = conflict.Service

type conflictHandler struct {
	encoder encoder
	service conflictService
}

func newConflictHandler(encoder encoder, service conflictService) *conflictHandler {
	return &conflictHandler{
		encoder: encoder,
		service: service,
	}
}

func (h conflictHandler) Routes(r chi.Router) {
	r.Get("/", h.listPending)
	r.Post("/{conflictID}/resolve", h.resolve)
}

func (h conflictHandler) listPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, ok := accountFromContext(ctx)
	if !ok {
		http.Error(w, "Unauthorized: Account not found in context", http.StatusUnauthorized)
		return
	}

	conflicts, err := h.service.GetPending(ctx, accountID)
	if err != nil {
		h.encoder.StatusResponse(ctx, w, errorResponse{Message: err.Error()}, errorStatus(err))
		return
	}

	h.encoder.StatusResponse(ctx, w, conflicts, http.StatusOK)
}

func (h conflictHandler) resolve(w http.ResponseWriter, r *http.Request) {
	var (
		ctx        = r.Context()
		conflictID = chi.URLParam(r, "conflictID")
		req        domain.ResolveConflictRequest
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

	resolved, err := h.service.Resolve(ctx, accountID, conflictID, req.Resolution)
	if err != nil {
		h.encoder.StatusResponse(ctx, w, errorResponse{Message: err.Error()}, errorStatus(err))
		return
	}

	h.encoder.StatusResponse(ctx, w, resolved, http.StatusOK)
}
