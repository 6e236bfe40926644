package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/anasnay11/mobility-pipeline/internal/models"
	"github.com/anasnay11/mobility-pipeline/pkg/logger"
	"github.com/anasnay11/mobility-pipeline/pkg/queue"
)

// Runner is the pipeline entrypoint the worker drives.
type Runner interface {
	Run(ctx context.Context, runTime time.Time) (*models.RunReport, error)
}

// PipelineWorker executes scheduled pipeline runs. Concurrency is pinned
// to 1: the pipeline is single-writer and runs must never overlap.
type PipelineWorker struct {
	BaseWorker
	runner Runner
	queue  queue.Queue
}

func NewPipelineWorker(cfg *Config, runner Runner, q queue.Queue, log logger.Logger) (*PipelineWorker, error) {
	redisOpt := asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 1,
		Queues: map[string]int{
			"default": 1,
		},
	})

	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{})

	w := &PipelineWorker{
		BaseWorker: BaseWorker{
			server:    server,
			scheduler: scheduler,
			mux:       asynq.NewServeMux(),
			logger:    log,
			stopChan:  make(chan struct{}),
		},
		runner: runner,
		queue:  q,
	}

	w.mux.HandleFunc(queue.TaskTypePipelineRun, w.handlePipelineRun)

	if cfg.CronSpec != "" {
		payload, err := json.Marshal(queue.RunPayload{RequestedAt: time.Time{}})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal payload: %w", err)
		}
		task := asynq.NewTask(queue.TaskTypePipelineRun, payload, asynq.MaxRetry(0))
		if _, err := scheduler.Register(cfg.CronSpec, task); err != nil {
			return nil, fmt.Errorf("failed to register schedule %q: %w", cfg.CronSpec, err)
		}
	}

	return w, nil
}

func (w *PipelineWorker) handlePipelineRun(ctx context.Context, t *asynq.Task) error {
	var payload queue.RunPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		w.logger.Error("Failed to unmarshal task",
			logger.Error(err),
			logger.String("payload", string(t.Payload())),
		)
		return fmt.Errorf("failed to unmarshal task: %w", err)
	}

	runTime := time.Now().UTC()
	w.logger.Info("Starting scheduled pipeline run",
		logger.Time("runTime", runTime),
	)

	report, runErr := w.runner.Run(ctx, runTime)

	// The report is persisted whether the run succeeded or not.
	if report != nil && w.queue != nil {
		if err := w.queue.SaveRunReport(ctx, report); err != nil {
			w.logger.Error("Failed to save run report",
				logger.String("runId", report.RunID),
				logger.Error(err),
			)
		}
	}

	return runErr
}

func (w *PipelineWorker) Start(ctx context.Context) error {
	go func() {
		if err := w.server.Run(w.mux); err != nil {
			w.logger.Error("Worker server stopped", logger.Error(err))
		}
	}()

	go func() {
		if err := w.scheduler.Run(); err != nil {
			w.logger.Error("Scheduler stopped", logger.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		w.Stop()
	}()

	return nil
}
