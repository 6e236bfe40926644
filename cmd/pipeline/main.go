package main

import (
	"context"
	"os"
	"time"

	cfg "github.com/anasnay11/mobility-pipeline/config"
	"github.com/anasnay11/mobility-pipeline/internal/pipeline"
	"github.com/anasnay11/mobility-pipeline/pkg/logger"
)

func main() {
	pipelineCfg, err := cfg.GetPipelineConfig()
	if err != nil {
		panic(err)
	}

	// init logger
	log, err := logger.NewLogger(
		logger.WithLevel(pipelineCfg.LogLevel),
		logger.WithEncoding("json"),
		logger.WithOutputPaths([]string{"stdout", "logs/pipeline.log"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	runner, err := pipeline.GetRunner(log)
	if err != nil {
		log.Fatal("Failed to build pipeline runner", logger.Error(err))
	}
	defer runner.Close()

	report, err := runner.Run(context.Background(), time.Now().UTC())
	if err != nil {
		// The failing stage is already logged; the non-zero exit is the
		// contract with the surrounding scheduler.
		runner.Close()
		log.Sync()
		os.Exit(1)
	}

	log.Info("Run report",
		logger.String("runId", report.RunID),
		logger.String("runDate", report.RunDate),
		logger.String("status", string(report.Status)),
		logger.Int("cities", report.Cities),
		logger.Any("sources", report.Sources),
		logger.Int("factRows", report.FactRows),
		logger.Int("droppedFactRows", report.DroppedFactRows),
	)
}
