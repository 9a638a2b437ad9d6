package handlers

import (
	"net/http"

	"github.com/hoopsdata/prediction-service/internal/logic"
	"github.com/hoopsdata/prediction-service/internal/models"
)

// CollectTrainingData stores the recent games of a player
// @Summary Collect game logs
// @Tags Training
// @Produce json
// @Param player_name path string true "Player name"
// @Param limit query int false "Number of games (default 10, max 100)"
// @Success 200 {object} models.CollectResponse
// @Failure 500 {object} map[string]string
// @Router /training/collect/{player_name} [post]
func (h *Handler) CollectTrainingData(w http.ResponseWriter, r *http.Request) {
	name := playerParam(r)
	if name == "" {
		h.errorResponse(w, http.StatusBadRequest, "player_name is required")
		return
	}
	limit, err := queryInt(r, "limit", 10)
	if err != nil {
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	stored, err := h.collector.CollectGameLogs(r.Context(), name, limit)
	if err != nil {
		h.writeServiceError(w, err, "Failed to collect game logs", "player", name)
		return
	}
	h.jsonResponse(w, http.StatusOK, models.CollectResponse{PlayerName: name, GamesStored: stored})
}

// TrainModel runs a training pass synchronously
// @Summary Train model
// @Tags Training
// @Produce json
// @Param epochs query int false "Epochs (default 50)"
// @Param batch_size query int false "Mini-batch size (default 32)"
// @Param learning_rate query number false "Learning rate (default 0.001)"
// @Success 200 {object} models.TrainingResult
// @Failure 400 {object} map[string]string "Not enough training data"
// @Failure 409 {object} map[string]string "Training already running"
// @Router /training/train [post]
func (h *Handler) TrainModel(w http.ResponseWriter, r *http.Request) {
	var (
		opts logic.TrainOptions
		err  error
	)
	if opts.Epochs, err = queryInt(r, "epochs", 50); err != nil {
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if opts.BatchSize, err = queryInt(r, "batch_size", 32); err != nil {
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if opts.LearningRate, err = queryFloat(r, "learning_rate", 0.001); err != nil {
		h.errorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	if opts.Epochs < 1 || opts.Epochs > 1000 || opts.BatchSize < 1 || opts.LearningRate <= 0 || opts.LearningRate >= 1 {
		h.errorResponse(w, http.StatusBadRequest, "epochs must be 1-1000, batch_size positive and learning_rate in (0, 1)")
		return
	}

	res, err := h.training.Train(r.Context(), opts)
	if err != nil {
		h.writeServiceError(w, err, "Training failed")
		return
	}
	h.jsonResponse(w, http.StatusOK, res)
}

// TrainingStatus reports collected data and recent runs
// @Summary Training status
// @Tags Training
// @Produce json
// @Success 200 {object} models.TrainingStatusResponse
// @Router /training/status [get]
func (h *Handler) TrainingStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.training.Status(r.Context())
	if err != nil {
		h.writeServiceError(w, err, "Failed to get training status")
		return
	}
	h.jsonResponse(w, http.StatusOK, status)
}
