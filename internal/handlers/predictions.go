package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hoopsdata/prediction-service/internal/logic"
	"github.com/hoopsdata/prediction-service/internal/models"
)

// Predict returns a next-game forecast for one player
// @Summary Predict player performance
// @Tags Predictions
// @Accept json
// @Produce json
// @Param request body models.PredictionRequest true "Player and optional season stats"
// @Success 200 {object} models.PredictionRecord
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string "No stats for player"
// @Router /predict [post]
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	var req models.PredictionRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeDecodeError(w, err)
		return
	}

	var (
		rec *models.PredictionRecord
		err error
	)
	if req.CurrentStats != nil {
		rec, err = h.predictions.PredictFromStats(r.Context(), req.PlayerName, req.CurrentStats.ToPlayerStats(), req.IsHomeGame())
	} else {
		rec, err = h.predictions.GeneratePrediction(r.Context(), req.PlayerName, logic.GenerateOptions{CollectTrainingData: true})
	}
	if err != nil {
		h.writeServiceError(w, err, "Failed to generate prediction", "player", req.PlayerName)
		return
	}

	h.jsonResponse(w, http.StatusOK, rec)
}

// PredictBatch forecasts several players; failed entries are left out
// @Summary Batch predictions
// @Tags Predictions
// @Accept json
// @Produce json
// @Param request body models.BatchPredictionRequest true "Up to 100 prediction requests"
// @Success 200 {array} models.PredictionRecord
// @Failure 400 {object} map[string]string
// @Router /predict/batch [post]
func (h *Handler) PredictBatch(w http.ResponseWriter, r *http.Request) {
	var req models.BatchPredictionRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.writeDecodeError(w, err)
		return
	}

	recs := h.predictions.PredictBatch(r.Context(), req.Predictions)
	if recs == nil {
		recs = []models.PredictionRecord{}
	}
	h.jsonResponse(w, http.StatusOK, recs)
}

// GetPrediction returns the latest prediction for a player
// @Summary Get player prediction
// @Tags Predictions
// @Produce json
// @Param player_name path string true "Player name"
// @Success 200 {object} models.PredictionRecord
// @Failure 404 {object} map[string]string "Not Found"
// @Router /predictions/{player_name} [get]
func (h *Handler) GetPrediction(w http.ResponseWriter, r *http.Request) {
	name := playerParam(r)
	if name == "" {
		h.errorResponse(w, http.StatusBadRequest, "player_name is required")
		return
	}

	rec, err := h.predictions.GetPrediction(r.Context(), name)
	if err != nil {
		h.writeServiceError(w, err, "Failed to get prediction", "player", name)
		return
	}
	h.jsonResponse(w, http.StatusOK, rec)
}

// RefreshPrediction recomputes a player's prediction from fresh stats
// @Summary Refresh player prediction
// @Tags Predictions
// @Produce json
// @Param player_name path string true "Player name"
// @Success 200 {object} models.PredictionRecord
// @Failure 404 {object} map[string]string "No stats for player"
// @Router /predictions/{player_name}/refresh [post]
func (h *Handler) RefreshPrediction(w http.ResponseWriter, r *http.Request) {
	name := playerParam(r)
	if name == "" {
		h.errorResponse(w, http.StatusBadRequest, "player_name is required")
		return
	}

	rec, err := h.predictions.RefreshPrediction(r.Context(), name)
	if err != nil {
		h.writeServiceError(w, err, "Failed to refresh prediction", "player", name)
		return
	}
	h.jsonResponse(w, http.StatusOK, rec)
}

// ListPredictions returns stored predictions, newest first
// @Summary List predictions
// @Tags Predictions
// @Produce json
// @Param limit query int false "Max records (default 50, max 500)"
// @Success 200 {object} models.PredictionList
// @Router /predictions [get]
func (h *Handler) ListPredictions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", logic.DefaultListLimit)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	recs, err := h.predictions.ListPredictions(r.Context(), limit)
	if err != nil {
		h.writeServiceError(w, err, "Failed to list predictions")
		return
	}
	if recs == nil {
		recs = []models.PredictionRecord{}
	}
	h.jsonResponse(w, http.StatusOK, models.PredictionList{Count: len(recs), Predictions: recs})
}

// InvalidateCache drops every cached prediction
// @Summary Clear prediction cache
// @Tags Cache
// @Produce json
// @Success 200 {object} models.CacheInvalidateResponse
// @Router /cache/invalidate [delete]
func (h *Handler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	cleared := h.predictions.InvalidateCache(r.Context())
	h.logger.Infow("Prediction cache invalidated", "cleared", cleared)
	h.jsonResponse(w, http.StatusOK, models.CacheInvalidateResponse{
		Message: "Prediction cache cleared",
		Cleared: cleared,
	})
}

func playerParam(r *http.Request) string {
	raw := chi.URLParam(r, "player_name")
	// chi routes on RawPath when the request carries one
	if decoded, err := url.PathUnescape(raw); err == nil {
		raw = decoded
	}
	return strings.TrimSpace(raw)
}
