package main

import (
    "context"
    "os"
    "os/signal"
    "syscall"

    cfg "github.com/anasnay11/mobility-pipeline/config"
    "github.com/anasnay11/mobility-pipeline/internal/pipeline"
    "github.com/anasnay11/mobility-pipeline/pkg/logger"
    "github.com/anasnay11/mobility-pipeline/pkg/queue"
    "github.com/anasnay11/mobility-pipeline/pkg/worker"
)

func main() {
    pipelineCfg, err := cfg.GetPipelineConfig()
    if err != nil {
        panic(err)
    }

    // 初始化日志
    log, err := logger.NewLogger(
        logger.WithLevel(pipelineCfg.LogLevel),
        logger.WithEncoding("json"),
        logger.WithOutputPaths([]string{"stdout", "logs/worker.log"}),
    )
    if err != nil {
        panic(err)
    }
    defer log.Sync()

    // 创建流水线运行器
    runner, err := pipeline.GetRunner(log)
    if err != nil {
        log.Error("Failed to build pipeline runner", logger.Error(err))
        os.Exit(1)
    }
    defer runner.Close()

    // 创建队列（运行报告存储）
    q, err := queue.NewAsynqQueue(&queue.QueueConfig{
        RedisAddr: pipelineCfg.RedisAddr,
        RedisDB:   pipelineCfg.RedisDB,
    })
    if err != nil {
        log.Error("Failed to create queue", logger.Error(err))
        os.Exit(1)
    }
    defer q.Close()

    // 创建 worker
    pipelineWorker, err := worker.NewPipelineWorker(&worker.Config{
        RedisAddr: pipelineCfg.RedisAddr,
        RedisDB:   pipelineCfg.RedisDB,
        CronSpec:  pipelineCfg.CronSpec,
    }, runner, q, log)
    if err != nil {
        log.Error("Failed to create pipeline worker", logger.Error(err))
        os.Exit(1)
    }

    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()

    // 启动 worker
    if err := pipelineWorker.Start(ctx); err != nil {
        log.Error("Failed to start worker", logger.Error(err))
        os.Exit(1)
    }

    log.Info("Pipeline worker started",
        logger.String("cron", pipelineCfg.CronSpec),
    )

    // 等待中断信号
    sigChan := make(chan os.Signal, 1)
    signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
    <-sigChan

    // 优雅关闭
    log.Info("Shutting down worker...")
    pipelineWorker.Stop()
    log.Info("Worker stopped")
}
