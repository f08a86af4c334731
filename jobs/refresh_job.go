package jobs

import (
	"context"
	"time"

	"github.com/NanoLinuxDevops/WinSphere/services"
	"github.com/sirupsen/logrus"
)

// ScheduledRefreshJob keeps the draw cache warm by refreshing on a ticker
type ScheduledRefreshJob struct {
	RefreshService *services.DataRefreshService
	Interval       time.Duration
}

func NewScheduledRefreshJob(refreshService *services.DataRefreshService, interval time.Duration) *ScheduledRefreshJob {
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return &ScheduledRefreshJob{
		RefreshService: refreshService,
		Interval:       interval,
	}
}

// Start launches the ticker loop in a goroutine, running once immediately
func (j *ScheduledRefreshJob) Start() {
	logrus.Infof("Starting Scheduled Refresh Job (runs every %v)...", j.Interval)
	ticker := time.NewTicker(j.Interval)

	go func() {
		j.Run()

		for range ticker.C {
			j.Run()
		}
	}()
}

// Run executes one refresh cycle
func (j *ScheduledRefreshJob) Run() {
	startTime := time.Now()
	logrus.Info("Running Scheduled Refresh Job...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result := j.RefreshService.Refresh(ctx, false)
	duration := time.Since(startTime)

	if !result.Success {
		logrus.Errorf("Scheduled Refresh Job failed: %s (took %v)", result.Error, duration)
		return
	}

	logrus.WithFields(logrus.Fields{
		"record_count":  result.RecordCount,
		"from_cache":    result.FromCache,
		"fallback_used": result.FallbackUsed,
		"duration":      duration,
	}).Info("Scheduled Refresh Job completed")
}
