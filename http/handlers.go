package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"firedetect/db"
	"firedetect/errs"
	"firedetect/logging"
	"firedetect/sensor"
	"firedetect/service"

	"go.uber.org/zap"
)

const (
	defaultPredictionsLimit = 50
	maxPredictionsLimit     = 500
)

type Predictor interface {
	Predict(ctx context.Context, reading sensor.Reading) (service.Result, error)
	ModelType() string
}

type JournalReader interface {
	RecentPredictions(ctx context.Context, limit int) ([]db.Prediction, error)
}

// PredictResponse is the /predict wire format. A failed request has an
// empty "res" list and no "res_proba".
type PredictResponse struct {
	Res      string
	ResProba []float64
	ErrorMsg string
}

func (p PredictResponse) MarshalJSON() ([]byte, error) {
	if p.ErrorMsg != "" {
		return json.Marshal(struct {
			Res      []string `json:"res"`
			ErrorMsg string   `json:"error_msg"`
		}{Res: []string{}, ErrorMsg: p.ErrorMsg})
	}
	return json.Marshal(struct {
		Res      string    `json:"res"`
		ResProba []float64 `json:"res_proba"`
		ErrorMsg string    `json:"error_msg"`
	}{Res: p.Res, ResProba: p.ResProba, ErrorMsg: ""})
}

func failure(msg string) PredictResponse {
	return PredictResponse{ErrorMsg: msg}
}

type Handlers struct {
	predictor Predictor
	journal   JournalReader
	metrics   http.Handler
	logger    *zap.Logger
}

// NewHandlers wires the endpoints. journal and metrics may be nil.
func NewHandlers(predictor Predictor, journal JournalReader, metrics http.Handler, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{predictor: predictor, journal: journal, metrics: metrics, logger: logger}
}

func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleHome)
	mux.HandleFunc("POST /predict", h.handlePredict)
	mux.HandleFunc("GET /api/health", h.handleHealth)
	mux.HandleFunc("GET /api/predictions", h.handlePredictions)
	if h.metrics != nil {
		mux.Handle("GET /metrics", h.metrics)
	}
}

func (h *Handlers) handleHome(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, "Hello, fire detection API up!")
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "model": h.predictor.ModelType()})
}

func (h *Handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	reading, err := sensor.DecodeReading(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, failure("request body too large"))
			return
		}
		writeJSON(w, http.StatusUnprocessableEntity, failure(err.Error()))
		return
	}

	result, err := h.predictor.Predict(r.Context(), reading)
	switch {
	case errors.Is(err, errs.ErrSchemaMismatch):
		writeJSON(w, http.StatusUnprocessableEntity, failure(err.Error()))
		return
	case err != nil:
		h.logger.Error("prediction failed",
			zap.String("request_id", logging.RequestID(r.Context())),
			zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, failure("internal server error"))
		return
	}

	if result.Rejected() {
		writeJSON(w, http.StatusOK, failure(result.ErrorMessage))
		return
	}
	writeJSON(w, http.StatusOK, PredictResponse{
		Res:      result.Label,
		ResProba: []float64{result.Probabilities[0], result.Probabilities[1]},
	})
}

func (h *Handlers) handlePredictions(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeError(w, http.StatusNotFound, errs.ErrJournalDisabled.Error())
		return
	}

	limit := defaultPredictionsLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(l, maxPredictionsLimit)
	}

	predictions, err := h.journal.RecentPredictions(r.Context(), limit)
	if err != nil {
		h.logger.Error("query predictions", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"limit": limit,
		"data":  predictions,
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
