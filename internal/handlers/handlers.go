package handlers

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/hoopsdata/prediction-service/internal/logic"
	"github.com/hoopsdata/prediction-service/internal/models"
)

// MaxBodySize limits the size of request bodies to 1MB
const MaxBodySize = 1048576

const (
	serviceName    = "prediction-service"
	serviceVersion = "1.0.0"
)

// Pinger is a dependency checked by the readiness endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CollectionQueue exposes the background collection backlog.
type CollectionQueue interface {
	QueueDepth() int
}

// ModelInfo reports the version of the model currently serving.
type ModelInfo interface {
	Version() string
}

type Config struct {
	Postgres Pinger
	Redis    Pinger
	Queue    CollectionQueue
	Model    ModelInfo
	Logger   *zap.Logger
	// AllowedOrigins configures CORS.
	AllowedOrigins []string
	// Services
	Predictions logic.PredictionService
	Collector   logic.CollectorService
	Training    logic.TrainingService
}

type Handler struct {
	pg             Pinger
	redis          Pinger
	queue          CollectionQueue
	model          ModelInfo
	logger         *zap.SugaredLogger
	validator      *validator.Validate
	allowedOrigins []string
	predictions    logic.PredictionService
	collector      logic.CollectorService
	training       logic.TrainingService
}

func New(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Handler{
		pg:             cfg.Postgres,
		redis:          cfg.Redis,
		queue:          cfg.Queue,
		model:          cfg.Model,
		logger:         cfg.Logger.Sugar(),
		validator:      models.NewValidator(),
		allowedOrigins: cfg.AllowedOrigins,
		predictions:    cfg.Predictions,
		collector:      cfg.Collector,
		training:       cfg.Training,
	}
}
