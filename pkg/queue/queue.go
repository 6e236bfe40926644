// pkg/queue/queue.go
package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    "github.com/hibiken/asynq"
    "github.com/redis/go-redis/v9"

    "github.com/anasnay11/mobility-pipeline/internal/models"
)

// TaskTypePipelineRun triggers one full ETL invocation.
const TaskTypePipelineRun = "pipeline:run"

// Run reports outlive the run so operators can inspect past invocations.
const reportTTL = 7 * 24 * time.Hour

// Queue 接口定义
type Queue interface {
    EnqueueRun(ctx context.Context) (string, error)
    SaveRunReport(ctx context.Context, report *models.RunReport) error
    GetRunReport(ctx context.Context, runID string) (*models.RunReport, error)
}

// RunPayload is the task body for a pipeline run.
type RunPayload struct {
    RequestedAt time.Time `json:"requestedAt"`
}

// AsynqQueue 实现
type AsynqQueue struct {
    client *asynq.Client
    redis  *redis.Client
}

// QueueConfig 定义队列配置
type QueueConfig struct {
    RedisAddr      string
    RedisDB        int
    ProcessTimeout time.Duration
}

// NewAsynqQueue 创建新的队列实例
func NewAsynqQueue(cfg *QueueConfig) (*AsynqQueue, error) {
    redisOpt := asynq.RedisClientOpt{
        Addr: cfg.RedisAddr,
        DB:   cfg.RedisDB,
    }

    redisClient := redis.NewClient(&redis.Options{
        Addr: cfg.RedisAddr,
        DB:   cfg.RedisDB,
    })

    client := asynq.NewClient(redisOpt)

    return &AsynqQueue{
        client: client,
        redis:  redisClient,
    }, nil
}

// EnqueueRun 将流水线运行任务加入队列. A run that fails is not retried:
// the next scheduled invocation simply starts fresh.
func (q *AsynqQueue) EnqueueRun(ctx context.Context) (string, error) {
    payload, err := json.Marshal(RunPayload{RequestedAt: time.Now().UTC()})
    if err != nil {
        return "", fmt.Errorf("failed to marshal payload: %w", err)
    }

    t := asynq.NewTask(TaskTypePipelineRun, payload,
        asynq.MaxRetry(0),
        asynq.Timeout(30*time.Minute),
    )

    info, err := q.client.EnqueueContext(ctx, t)
    if err != nil {
        return "", fmt.Errorf("failed to enqueue task: %w", err)
    }

    return info.ID, nil
}

// SaveRunReport 保存运行报告
func (q *AsynqQueue) SaveRunReport(ctx context.Context, report *models.RunReport) error {
    key := fmt.Sprintf("run_report:%s", report.RunID)
    data, err := json.Marshal(report)
    if err != nil {
        return fmt.Errorf("failed to marshal report: %w", err)
    }

    if err := q.redis.Set(ctx, key, data, reportTTL).Err(); err != nil {
        return fmt.Errorf("failed to save report: %w", err)
    }

    return nil
}

// GetRunReport 获取运行报告
func (q *AsynqQueue) GetRunReport(ctx context.Context, runID string) (*models.RunReport, error) {
    key := fmt.Sprintf("run_report:%s", runID)
    data, err := q.redis.Get(ctx, key).Bytes()
    if err == redis.Nil {
        return nil, fmt.Errorf("run report %s not found", runID)
    }
    if err != nil {
        return nil, fmt.Errorf("failed to get report from redis: %w", err)
    }

    var report models.RunReport
    if err := json.Unmarshal(data, &report); err != nil {
        return nil, fmt.Errorf("failed to unmarshal report: %w", err)
    }

    return &report, nil
}

// Close 释放连接
func (q *AsynqQueue) Close() error {
    if err := q.client.Close(); err != nil {
        return err
    }
    return q.redis.Close()
}
