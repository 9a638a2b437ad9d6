// Package worker runs background game-log collection jobs on a bounded
// queue. Producers never block: when the queue is full the job is shed.
// Stop drains the queue before returning.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Prometheus metrics
var (
	jobsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prediction_collection_jobs_enqueued_total",
		Help: "Total number of collection jobs enqueued",
	})

	jobsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prediction_collection_jobs_processed_total",
		Help: "Total number of collection jobs completed by workers",
	})

	jobsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prediction_collection_jobs_failed_total",
		Help: "Total number of collection jobs that failed or panicked",
	})

	jobsShed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prediction_collection_jobs_load_shed_total",
		Help: "Total number of collection jobs dropped because the queue was full or stopped",
	})

	gamesCollected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "prediction_collection_games_stored_total",
		Help: "Total number of new game log entries stored by background collection",
	})

	queueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "prediction_collection_queue_depth",
		Help: "Current depth of the collection queue",
	})

	jobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "prediction_collection_job_duration_seconds",
		Help:    "Duration of collection jobs",
		Buckets: prometheus.DefBuckets,
	})
)

// Job asks for the recent game log of one player.
type Job struct {
	ID         uuid.UUID
	PlayerName string
	Limit      int
	EnqueuedAt time.Time
}

// Collector fetches and stores game logs, returning how many were new.
type Collector interface {
	CollectGameLogs(ctx context.Context, playerName string, limit int) (int, error)
}

// PoolConfig configures the worker pool
type PoolConfig struct {
	WorkerCount  int
	QueueSize    int
	JobTimeout   time.Duration
	DefaultLimit int
	Collector    Collector
	Logger       *zap.Logger
}

// Pool manages a pool of workers for background collection
type Pool struct {
	config   PoolConfig
	jobQueue chan Job
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	stopOnce sync.Once
	logger   *zap.SugaredLogger
}

// NewPool creates a new worker pool
func NewPool(cfg PoolConfig) *Pool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Second
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 10
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Pool{
		config:   cfg,
		jobQueue: make(chan Job, cfg.QueueSize),
		logger:   cfg.Logger.Sugar(),
	}
}

// Start launches the worker goroutines. Cancelling ctx stops the depth
// reporter; jobs already queued still run to completion on Stop.
func (p *Pool) Start(ctx context.Context) {
	p.ctx, p.cancel = context.WithCancel(ctx)

	for i := 0; i < p.config.WorkerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	go p.reportQueueDepth()

	p.logger.Infow("Worker pool started",
		"workers", p.config.WorkerCount,
		"queueSize", p.config.QueueSize,
		"jobTimeout", p.config.JobTimeout,
	)
}

// Stop closes the queue, waits for queued jobs to finish and releases the
// workers. It is safe to call more than once.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		p.logger.Info("Stopping worker pool...")
		close(p.jobQueue)
		p.wg.Wait()
		if p.cancel != nil {
			p.cancel()
		}
		queueDepth.Set(0)
		p.logger.Info("Worker pool stopped")
	})
}

// EnqueueCollection schedules a collection for playerName. It never blocks
// and reports false when the job was shed.
func (p *Pool) EnqueueCollection(playerName string, limit int) bool {
	if limit <= 0 {
		limit = p.config.DefaultLimit
	}
	return p.Enqueue(Job{
		ID:         uuid.New(),
		PlayerName: playerName,
		Limit:      limit,
		EnqueuedAt: time.Now(),
	})
}

// Enqueue adds a job to the queue without blocking.
func (p *Pool) Enqueue(job Job) (ok bool) {
	// Protect against sending on closed channel
	defer func() {
		if r := recover(); r != nil {
			p.logger.Warnw("Failed to enqueue job (pool stopped)", "player", job.PlayerName)
			jobsShed.Inc()
			ok = false
		}
	}()

	select {
	case p.jobQueue <- job:
		jobsEnqueued.Inc()
		return true
	default:
		p.logger.Warnw("Collection queue full, dropping job", "player", job.PlayerName, "jobID", job.ID)
		jobsShed.Inc()
		return false
	}
}

// QueueDepth returns current queue size
func (p *Pool) QueueDepth() int {
	return len(p.jobQueue)
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobQueue {
		p.process(id, job)
	}
}

// process runs one job with its own timeout. Jobs outlive cancellation of
// the Start context so that Stop can drain.
func (p *Pool) process(workerID int, job Job) {
	start := time.Now()
	defer func() {
		jobDuration.Observe(time.Since(start).Seconds())
		if r := recover(); r != nil {
			jobsFailed.Inc()
			p.logger.Errorw("Collection job panic", "worker", workerID, "jobID", job.ID, "player", job.PlayerName, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(p.ctx), p.config.JobTimeout)
	defer cancel()

	stored, err := p.config.Collector.CollectGameLogs(ctx, job.PlayerName, job.Limit)
	if err != nil {
		jobsFailed.Inc()
		p.logger.Errorw("Collection job failed",
			"worker", workerID,
			"jobID", job.ID,
			"player", job.PlayerName,
			"error", err,
		)
		return
	}

	jobsProcessed.Inc()
	gamesCollected.Add(float64(stored))
	p.logger.Infow("Collection job finished",
		"worker", workerID,
		"jobID", job.ID,
		"player", job.PlayerName,
		"stored", stored,
		"queuedFor", start.Sub(job.EnqueuedAt),
		"duration", time.Since(start),
	)
}

func (p *Pool) reportQueueDepth() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			queueDepth.Set(float64(len(p.jobQueue)))
		case <-p.ctx.Done():
			return
		}
	}
}
