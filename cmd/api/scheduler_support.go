package main

import (
	"log"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/yourusername/dubforge/internal/config"
	"github.com/yourusername/dubforge/internal/jobs"
	"github.com/yourusername/dubforge/internal/pipeline"
)

// setupScheduler はストア・ランナー・スケジューラを組み立てます。
func setupScheduler(cfg *config.Config) (*jobs.Scheduler, *jobs.EventBus, error) {
	opt, err := redis.ParseURL(cfg.StoreRedisURL)
	if err != nil {
		return nil, nil, err
	}
	redisClient := redis.NewClient(opt)

	retentionMinutes := cfg.RetentionMinutes
	if retentionMinutes <= 0 {
		retentionMinutes = 60
	}
	retention := time.Duration(retentionMinutes) * time.Minute
	store := jobs.NewRedisStore(redisClient, retention)

	runner := pipeline.NewRunner(pipeline.Config{
		FFmpegPath:    cfg.FFmpegPath,
		WhisperPath:   cfg.WhisperPath,
		TranslateCmd:  cfg.TranslateCmd,
		TTSBridgePath: cfg.TTSBridgePath,
		WorkDir:       cfg.WorkDir,
	}, log.Default())

	bus := jobs.NewEventBus(500)

	scheduler, err := jobs.NewScheduler(jobs.SchedulerConfig{
		MaxConcurrentJobs: cfg.MaxConcurrentJobs,
		MaxRetries:        cfg.MaxRetries,
		RetryDelay:        cfg.RetryDelay,
		JobTimeout:        cfg.JobTimeout,
		CleanupInterval:   cfg.CleanupInterval,
		Retention:         retention,
		MaxQueueSize:      cfg.MaxQueueSize,
	}, store, runner, bus, log.Default())
	if err != nil {
		return nil, nil, err
	}
	return scheduler, bus, nil
}
