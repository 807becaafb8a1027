package http

import (
	"net/http"
	"strconv"

	"github.com/vypdev/vaultstadio-sub005/internal/delta"

	"github.com/go-chi/chi/v5"
)

type deltaService = delta.Service

type signatureHandler struct {
	encoder encoder
	service deltaService
}

func newSignatureHandler(encoder encoder, service deltaService) *signatureHandler {
	return &signatureHandler{
		encoder: encoder,
		service: service,
	}
}

func (h signatureHandler) Routes(r chi.Router) {
	r.Get("/{itemID}/versions/{version}/signature", h.signature)
}

func (h signatureHandler) signature(w http.ResponseWriter, r *http.Request) {
	var (
		ctx    = r.Context()
		itemID = chi.URLParam(r, "itemID")
	)

	accountID, ok := accountFromContext(ctx)
	if !ok {
		http.Error(w, "Unauthorized: Account not found in context", http.StatusUnauthorized)
		return
	}

	version, err := strconv.ParseInt(chi.URLParam(r, "version"), 10, 64)
	if err != nil {
		h.encoder.StatusResponse(ctx, w, errorResponse{Message: "Invalid version number"}, http.StatusBadRequest)
		return
	}

	blockSize := 0
	if raw := r.URL.Query().Get("block_size"); raw != "" {
		blockSize, err = strconv.Atoi(raw)
		if err != nil {
			h.encoder.StatusResponse(ctx, w, errorResponse{Message: "Invalid block size"}, http.StatusBadRequest)
			return
		}
	}

	signature, err := h.service.GenerateFileSignature(ctx, accountID, itemID, version, blockSize)
	if err != nil {
		h.encoder.StatusResponse(ctx, w, errorResponse{Message: err.Error()}, errorStatus(err))
		return
	}

	h.encoder.StatusResponse(ctx, w, signature, http.StatusOK)
}
