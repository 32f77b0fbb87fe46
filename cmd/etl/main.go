package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/dputra/student-records-api/internal/etl"
	"github.com/dputra/student-records-api/internal/repository"
	"github.com/dputra/student-records-api/pkg/config"
	"github.com/dputra/student-records-api/pkg/database"
	"github.com/dputra/student-records-api/pkg/logger"
)

func main() {
	dataDir := flag.String("data-dir", "", "directory containing the five source CSV files (defaults to PIPELINE_DATA_DIR)")
	refDate := flag.String("reference-date", "", "validation reference date YYYY-MM-DD (defaults to today)")
	timeout := flag.Duration("timeout", 10*time.Minute, "maximum run duration")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	dir := *dataDir
	if dir == "" {
		dir = cfg.Pipeline.DataDir
	}

	var ref time.Time
	if *refDate != "" {
		ref, err = time.Parse("2006-01-02", *refDate)
		if err != nil {
			logr.Sugar().Fatalw("invalid reference date", "value", *refDate, "error", err)
		}
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	delimiter := ','
	if cfg.Pipeline.Delimiter != "" {
		delimiter = rune(cfg.Pipeline.Delimiter[0])
	}

	pipeline := etl.NewPipeline(repository.NewLoadRepository(db), logr, etl.NewMetrics(), delimiter, ref)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	report, err := pipeline.Run(ctx, dir)
	if report != nil {
		for _, stage := range report.Stages {
			logr.Info("stage summary",
				zap.String("entity", string(stage.Entity)),
				zap.Int("read", stage.Read),
				zap.Int("accepted", stage.Accepted),
				zap.Int("rejected", stage.Rejected),
				zap.Int("inserted", stage.Inserted),
				zap.Int("skipped", stage.Skipped),
			)
		}
		logr.Info("run summary",
			zap.Time("reference_date", report.ReferenceDate),
			zap.Int("rejections", len(report.Rejections)),
			zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
		)
	}
	if err != nil {
		logr.Sugar().Errorw("pipeline run failed", "error", err)
		os.Exit(1)
	}
}
