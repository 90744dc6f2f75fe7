package handlers

import (
	"net/http"

	callbackdto "github.com/LavaJover/shvark-aggregator-service/internal/usecase/dto/callback"
)

// Callback handles POST /aggregators/callback, a batch of one
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	var payload callbackdto.Payload
	if !h.decode(w, r, &payload) {
		return
	}

	result, err := h.Callbacks.Ingest(r.Context(), bearerToken(r), []callbackdto.Payload{payload})
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	item := result.Results[0]
	status := http.StatusOK
	if item.Status == callbackdto.ResultError {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, item)
}

// CallbackBatch handles POST /aggregators/callback/batch
func (h *Handler) CallbackBatch(w http.ResponseWriter, r *http.Request) {
	var payloads []callbackdto.Payload
	if !h.decode(w, r, &payloads) {
		return
	}

	result, err := h.Callbacks.Ingest(r.Context(), bearerToken(r), payloads)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
