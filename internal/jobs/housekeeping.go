package jobs

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"interview/internal/metrics"
)

// Janitor is the part of the session engine that housekeeping touches.
type Janitor interface {
	PruneClosed(age time.Duration) int
}

// RoomRegistry is the part of the hub that housekeeping touches.
type RoomRegistry interface {
	PruneEmpty() int
	RoomCount() int
}

type HousekeepingConfig struct {
	Schedule        string        // cron schedule, e.g. "@every 5m"
	ClosedRetention time.Duration // how long close markers are kept
}

// HousekeepingJob periodically forgets old close markers, drops empty rooms
// and refreshes the live room gauge.
type HousekeepingJob struct {
	engine Janitor
	rooms  RoomRegistry
	config *HousekeepingConfig
	cron   *cron.Cron
	log    *zap.Logger
}

func NewHousekeepingJob(engine Janitor, rooms RoomRegistry, config *HousekeepingConfig, log *zap.Logger) *HousekeepingJob {
	if log == nil {
		log = zap.NewNop()
	}
	return &HousekeepingJob{
		engine: engine,
		rooms:  rooms,
		config: config,
		cron:   cron.New(),
		log:    log,
	}
}

// Start schedules the job. It does nothing when no schedule is configured.
func (j *HousekeepingJob) Start() error {
	if j.config.Schedule == "" {
		j.log.Info("housekeeping disabled, no schedule configured")
		return nil
	}
	if _, err := j.cron.AddFunc(j.config.Schedule, func() { j.RunOnce() }); err != nil {
		return fmt.Errorf("failed to schedule housekeeping: %w", err)
	}
	j.cron.Start()
	j.log.Info("housekeeping started", zap.String("schedule", j.config.Schedule))
	return nil
}

// Stop halts scheduling and waits for a running pass to finish.
func (j *HousekeepingJob) Stop() {
	if j.cron != nil {
		<-j.cron.Stop().Done()
	}
}

type Report struct {
	ClosedPruned int
	RoomsPruned  int
	LiveRooms    int
}

// RunOnce performs a single housekeeping pass.
func (j *HousekeepingJob) RunOnce() Report {
	var r Report
	if j.engine != nil && j.config.ClosedRetention > 0 {
		r.ClosedPruned = j.engine.PruneClosed(j.config.ClosedRetention)
	}
	if j.rooms != nil {
		r.RoomsPruned = j.rooms.PruneEmpty()
		r.LiveRooms = j.rooms.RoomCount()
	}
	metrics.SetLiveRooms(r.LiveRooms)

	if r.ClosedPruned > 0 || r.RoomsPruned > 0 {
		j.log.Info("housekeeping pass",
			zap.Int("closed_pruned", r.ClosedPruned),
			zap.Int("rooms_pruned", r.RoomsPruned),
			zap.Int("live_rooms", r.LiveRooms))
	}
	return r
}
