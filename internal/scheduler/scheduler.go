// Package scheduler provides the thin Scheduler.Enqueue(job) surface spec.md
// §1 describes as an external collaborator: "only a Scheduler.enqueue(job)
// surface" is consumed, never implemented, by the sync engine itself. This
// package is that one concrete implementation, generalized from the
// teacher's always-on internal/sync/engine.go watcher goroutines
// (periodicSync/watchFileChanges) into a job-queue the engine's caller (for
// example cmd/syncctl's daemon mode) can enqueue discrete sync runs onto.
package scheduler

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/scottgl9/android-google-drive-sync-sub001/pkg/types"
)

// Job is a unit of work the scheduler runs no more often than the
// configured Schedule allows.
type Job struct {
	Name string
	Run  func(ctx context.Context) error
}

// PowerState reports the conditions the Schedule's Charging/BatteryNotLow
// gates check before running a queued job.
type PowerState struct {
	Charging   bool
	BatteryLow bool
}

// PowerSource is queried once per tick. DefaultPowerSource reports an
// always-on AC-powered machine, which is the right default for a desktop/
// server CLI; callers targeting battery-powered devices supply their own.
type PowerSource interface {
	State() PowerState
}

// DefaultPowerSource always reports mains power, never battery-limited.
type DefaultPowerSource struct{}

// State implements PowerSource.
func (DefaultPowerSource) State() PowerState {
	return PowerState{Charging: true, BatteryLow: false}
}

// Scheduler runs enqueued Jobs on a flex-jittered interval timer, woken
// early by filesystem activity under its watched roots. It never decides
// *what* to sync, only *when* it is worth asking the caller's Job to run,
// matching spec.md's "only a Scheduler.enqueue(job) surface" boundary.
type Scheduler struct {
	schedule types.Schedule
	power    PowerSource
	logger   *logrus.Logger

	mu      sync.Mutex
	pending []Job

	watcher *fsnotify.Watcher
	wake    chan struct{}
}

// New builds a Scheduler for the given Schedule. power may be nil, in which
// case DefaultPowerSource is used.
func New(schedule types.Schedule, power PowerSource, logger *logrus.Logger) *Scheduler {
	if power == nil {
		power = DefaultPowerSource{}
	}
	return &Scheduler{
		schedule: schedule,
		power:    power,
		logger:   logger,
		wake:     make(chan struct{}, 1),
	}
}

// Enqueue queues job to run at the scheduler's next eligible tick and
// nudges the run loop so it does not wait out the rest of the current
// interval first.
func (s *Scheduler) Enqueue(job Job) {
	s.mu.Lock()
	s.pending = append(s.pending, job)
	s.mu.Unlock()
	s.nudge()
}

// Watch registers roots (and their subdirectories) for fsnotify events,
// mirroring the teacher's addWatchRecursive. Events under a watched root
// nudge the run loop early; they never enqueue a job by themselves.
func (s *Scheduler) Watch(roots []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	for _, root := range roots {
		err := filepath.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if info.IsDir() {
				return watcher.Add(path)
			}
			return nil
		})
		if err != nil && s.logger != nil {
			s.logger.WithError(err).WithField("root", root).Warn("scheduler: failed to watch root")
		}
	}
	s.watcher = watcher
	go s.drainWatcherEvents()
	return nil
}

func (s *Scheduler) drainWatcherEvents() {
	for {
		select {
		case _, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			s.nudge()
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			if s.logger != nil {
				s.logger.WithError(err).Warn("scheduler: watcher error")
			}
		}
	}
}

func (s *Scheduler) nudge() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run blocks until ctx is cancelled, firing queued Jobs on the Schedule's
// interval (jittered by Flex) or as soon as a nudge arrives, whichever is
// sooner, skipping a tick whenever the PowerSource reports a condition the
// Schedule requires is not met.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.watcher != nil {
		defer s.watcher.Close()
	}

	timer := time.NewTimer(s.nextDelay())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.wake:
			if !timer.Stop() {
				<-timer.C
			}
			s.tick(ctx)
			timer.Reset(s.nextDelay())
		case <-timer.C:
			s.tick(ctx)
			timer.Reset(s.nextDelay())
		}
	}
}

func (s *Scheduler) nextDelay() time.Duration {
	interval := s.schedule.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	flex := s.schedule.Flex
	if flex <= 0 {
		return interval
	}
	return interval - flex + time.Duration(rand.Int63n(int64(2*flex+1)))
}

func (s *Scheduler) tick(ctx context.Context) {
	if !s.gateOpen() {
		if s.logger != nil {
			s.logger.Debug("scheduler: tick skipped, power gate closed")
		}
		return
	}

	s.mu.Lock()
	jobs := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, job := range jobs {
		if s.logger != nil {
			s.logger.WithField("job", job.Name).Info("scheduler: running job")
		}
		if err := job.Run(ctx); err != nil && s.logger != nil {
			s.logger.WithError(err).WithField("job", job.Name).Error("scheduler: job failed")
		}
	}
}

func (s *Scheduler) gateOpen() bool {
	state := s.power.State()
	if s.schedule.Charging && !state.Charging {
		return false
	}
	if s.schedule.BatteryNotLow && state.BatteryLow {
		return false
	}
	return true
}
