package http

import (
	"encoding/json"
	"net/http"

	"github.com/vypdev/vaultstadio-sub005/internal/device"
	"github.com/vypdev/vaultstadio-sub005/internal/domain"

	"github.com/go-chi/chi/v5"
)

type deviceService = device.Service

type deviceHandler struct {
	encoder encoder
	service deviceService
}

func newDeviceHandler(encoder encoder, service deviceService) *deviceHandler {
	return &deviceHandler{
		encoder: encoder,
		service: service,
	}
}

func (h deviceHandler) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.register)
	r.Post("/{deviceID}/deactivate", h.deactivate)
	r.Delete("/{deviceID}", h.remove)
}

func (h deviceHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	accountID, ok := accountFromContext(ctx)
	if !ok {
		http.Error(w, "Unauthorized: Account not found in context", http.StatusUnauthorized)
		return
	}

	activeOnly := r.URL.Query().Get("active") == "true"

	devices, err := h.service.List(ctx, accountID, activeOnly)
	if err != nil {
		h.encoder.StatusResponse(ctx, w, errorResponse{Message: err.Error()}, errorStatus(err))
		return
	}

	h.encoder.StatusResponse(ctx, w, devices, http.StatusOK)
}

func (h deviceHandler) register(w http.ResponseWriter, r *http.Request) {
	var (
		ctx  = r.Context()
		data domain.RegisterDeviceRequest
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

	registered, err := h.service.Register(ctx, accountID, data)
	if err != nil {
		h.encoder.StatusResponse(ctx, w, errorResponse{Message: err.Error()}, errorStatus(err))
		return
	}

	h.encoder.StatusResponse(ctx, w, registered, http.StatusCreated)
}

func (h deviceHandler) deactivate(w http.ResponseWriter, r *http.Request) {
	var (
		ctx      = r.Context()
		deviceID = chi.URLParam(r, "deviceID")
	)

	accountID, ok := accountFromContext(ctx)
	if !ok {
		http.Error(w, "Unauthorized: Account not found in context", http.StatusUnauthorized)
		return
	}

	if err := h.service.Deactivate(ctx, accountID, deviceID); err != nil {
		h.encoder.StatusResponse(ctx, w, errorResponse{Message: err.Error()}, errorStatus(err))
		return
	}

	h.encoder.NoContent(w)
}

func (h deviceHandler) remove(w http.ResponseWriter, r *http.Request) {
	var (
		ctx      = r.Context()
		deviceID = chi.URLParam(r, "deviceID")
	)

	accountID, ok := accountFromContext(ctx)
	if !ok {
		http.Error(w, "Unauthorized: Account not found in context", http.StatusUnauthorized)
		return
	}

	if err := h.service.Remove(ctx, accountID, deviceID); err != nil {
		h.encoder.StatusResponse(ctx, w, errorResponse{Message: err.Error()}, errorStatus(err))
		return
	}

	h.encoder.NoContent(w)
}
