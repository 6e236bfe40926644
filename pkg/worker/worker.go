package worker

import (
    "context"
    "sync"

    "github.com/hibiken/asynq"

    "github.com/anasnay11/mobility-pipeline/pkg/logger"
)

type Worker interface {
    Start(ctx context.Context) error
    Stop() error
}

type Config struct {
    RedisAddr string
    RedisDB   int
    CronSpec  string
}

type BaseWorker struct {
    server    *asynq.Server
    scheduler *asynq.Scheduler
    mux       *asynq.ServeMux
    logger    logger.Logger
    stopChan  chan struct{}
    stopOnce  sync.Once
}

func (w *BaseWorker) Stop() error {
    w.stopOnce.Do(func() {
        close(w.stopChan)
        if w.scheduler != nil {
            w.scheduler.Shutdown()
        }
        w.server.Stop()
        w.server.Shutdown()
    })
    return nil
}
