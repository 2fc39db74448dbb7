package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"phishguard/predict"
)

// Handler holds the HTTP endpoints over the prediction service.
type Handler struct {
	service *predict.Service
	logger  *zap.Logger
}

func NewHandler(service *predict.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// Register wires the API routes into mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleHealth)
	mux.HandleFunc("POST /predict", h.handlePredict)
	mux.HandleFunc("POST /predict_batch", h.handlePredictBatch)
	mux.HandleFunc("POST /features", h.handleFeatures)
}

type predictRequest struct {
	URL string `json:"url"`
}

// batchRequest keeps the elements untyped so a wrong-typed entry becomes a
// per-element error instead of failing the whole decode.
type batchRequest struct {
	URLs []interface{} `json:"urls"`
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "ok",
		"message":      "URL phishing detection API",
		"model_loaded": h.service.ModelLoaded(),
	})
}

func (h *Handler) handlePredict(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: 'url' must be a string")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "missing or empty 'url' field")
		return
	}

	result, err := h.service.Predict(req.URL)
	if err != nil {
		h.writePredictError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handlePredictBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: 'urls' must be a list")
		return
	}
	if req.URLs == nil {
		writeError(w, http.StatusBadRequest, "missing 'urls' field")
		return
	}

	items, err := h.service.PredictBatch(req.URLs)
	if err != nil {
		h.writePredictError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"results":         items,
		"total_processed": len(items),
		"status":          predict.StatusSuccess,
	})
}

func (h *Handler) handleFeatures(w http.ResponseWriter, r *http.Request) {
	var req predictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: 'url' must be a string")
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "missing or empty 'url' field")
		return
	}

	featureMap, err := h.service.Features(req.URL)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"url":      req.URL,
		"features": featureMap,
		"status":   predict.StatusSuccess,
	})
}

// writePredictError maps service errors onto HTTP status codes.
func (h *Handler) writePredictError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, predict.ErrModelUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, predict.ErrEmptyURL), errors.Is(err, predict.ErrBatchTooLarge):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("prediction failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to process URL")
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error":  message,
		"status": predict.StatusError,
	})
}
