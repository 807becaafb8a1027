package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/vypdev/vaultstadio-sub005/internal/domain"
	"github.com/vypdev/vaultstadio-sub005/internal/notification"

	"github.com/go-chi/chi/v5"
)

type notificationService = notification.Service

type notificationHandler struct {
	encoder encoder
	service notificationService
}

func newNotificationHandler(encoder encoder, service notificationService) *notificationHandler {
	return &notificationHandler{
		encoder: encoder,
		service: service,
	}
}

func (h notificationHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.store)
	r.Post("/test", h.test)
	r.Put("/{notificationID}", h.update)
	r.Delete("/{notificationID}", h.delete)
}

func (h notificationHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, ok := accountFromContext(ctx)
	if !ok {
		http.Error(w, "Unauthorized: Account not found in context", http.StatusUnauthorized)
		return
	}

	list, err := h.service.List(ctx, accountID)
	if err != nil {
		h.encoder.StatusResponse(ctx, w, errorResponse{Message: err.Error()}, errorStatus(err))
		return
	}

	h.encoder.StatusResponse(ctx, w, list, http.StatusOK)
}

func (h notificationHandler) store(w http.ResponseWriter, r *http.Request) {
	var (
		ctx  = r.Context()
		data domain.Notification
	)

	accountID, ok := accountFromContext(ctx)
	if !ok {
		http.Error(w, "Unauthorized: Account not found in context", http.StatusUnauthorized)
		return
	}

	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		h.encoder.StatusResponse(ctx, w, errorResponse{Message: "Invalid request body"}, http.StatusBadRequest)
		return
	}
	data.AccountID = accountID

	stored, err := h.service.Store(ctx, data)
	if err != nil {
		h.encoder.StatusResponse(ctx, w, errorResponse{Message: err.Error()}, errorStatus(err))
		return
	}

	h.encoder.StatusResponse(ctx, w, stored, http.StatusCreated)
}

func (h notificationHandler) update(w http.ResponseWriter, r *http.Request) {
	var (
		ctx  = r.Context()
		data domain.Notification
	)

	accountID, ok := accountFromContext(ctx)
	if !ok {
		http.Error(w, "Unauthorized: Account not found in context", http.StatusUnauthorized)
		return
	}

	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		h.encoder.StatusResponse(ctx, w, errorResponse{Message: "Invalid request body"}, http.StatusBadRequest)
		return
	}
	data.AccountID = accountID

	updated, err := h.service.Update(ctx, data)
	if err != nil {
		h.encoder.StatusResponse(ctx, w, errorResponse{Message: err.Error()}, errorStatus(err))
		return
	}

	h.encoder.StatusResponse(ctx, w, updated, http.StatusOK)
}

func (h notificationHandler) delete(w http.ResponseWriter, r *http.Request) {
	var (
		ctx            = r.Context()
		notificationID = chi.URLParam(r, "notificationID")
	)

	id, err := strconv.Atoi(notificationID)
	if err != nil {
		h.encoder.StatusResponse(ctx, w, errorResponse{Message: "Invalid notification id"}, http.StatusBadRequest)
		return
	}

	if err := h.service.Delete(ctx, id); err != nil {
		h.encoder.StatusResponse(ctx, w, errorResponse{Message: err.Error()}, errorStatus(err))
		return
	}

	h.encoder.StatusResponse(ctx, w, nil, http.StatusNoContent)
}

func (h notificationHandler) test(w http.ResponseWriter, r *http.Request) {
	var (
		ctx  = r.Context()
		data domain.Notification
	)

	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		h.encoder.StatusResponse(ctx, w, errorResponse{Message: "Invalid request body"}, http.StatusBadRequest)
		return
	}

	if accountID, ok := accountFromContext(ctx); ok {
		data.AccountID = accountID
	}

	if err := h.service.Test(ctx, data); err != nil {
		h.encoder.StatusResponse(ctx, w, errorResponse{Message: "Failed to test notification: " + err.Error()}, http.StatusInternalServerError)
		return
	}

	h.encoder.NoContent(w)
}
