// Package cron runs the bridge's periodic maintenance tasks.
package cron

import (
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"toribot/pkg/logger"
)

// Task is one scheduled maintenance function.
type Task struct {
	Name     string
	Schedule string
	Run      func() error

	entryID  cron.EntryID
	lastRun  time.Time
	runCount int
	lastErr  string
}

// Status is a point-in-time view of one task's bookkeeping.
type Status struct {
	Name      string    `json:"name"`
	Schedule  string    `json:"schedule"`
	LastRun   time.Time `json:"last_run"`
	NextRun   time.Time `json:"next_run"`
	RunCount  int       `json:"run_count"`
	LastError string    `json:"last_error,omitempty"`
}

// Scheduler runs registered maintenance tasks on cron schedules with
// a seconds field.
type Scheduler struct {
	log       *logger.Logger
	scheduler *cron.Cron
	tasks     []*Task
	mu        sync.RWMutex
}

// New creates an empty scheduler.
func New(log *logger.Logger) *Scheduler {
	return &Scheduler{
		log:       log,
		scheduler: cron.New(cron.WithSeconds()),
	}
}

// Add registers a task under the given schedule.
func (s *Scheduler) Add(name, schedule string, run func() error) error {
	task := &Task{Name: name, Schedule: schedule, Run: run}

	entryID, err := s.scheduler.AddFunc(schedule, func() {
		s.execute(task)
	})
	if err != nil {
		return fmt.Errorf("scheduling %s: %w", name, err)
	}
	task.entryID = entryID

	s.mu.Lock()
	s.tasks = append(s.tasks, task)
	s.mu.Unlock()

	s.log.Info("Registered maintenance task",
		zap.String("task", name),
		zap.String("schedule", schedule))
	return nil
}

// Start begins running scheduled tasks.
func (s *Scheduler) Start() {
	s.log.Info("Starting maintenance scheduler")
	s.scheduler.Start()
}

// Stop waits for any running task to finish.
func (s *Scheduler) Stop() {
	s.log.Info("Stopping maintenance scheduler")
	ctx := s.scheduler.Stop()
	<-ctx.Done()
}

// Statuses reports every registered task.
func (s *Scheduler) Statuses() []Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]Status, 0, len(s.tasks))
	for _, task := range s.tasks {
		statuses = append(statuses, Status{
			Name:      task.Name,
			Schedule:  task.Schedule,
			LastRun:   task.lastRun,
			NextRun:   s.scheduler.Entry(task.entryID).Next,
			RunCount:  task.runCount,
			LastError: task.lastErr,
		})
	}
	return statuses
}

// execute runs one task and records the outcome.
func (s *Scheduler) execute(task *Task) {
	s.log.Debug("Running maintenance task", zap.String("task", task.Name))

	err := task.Run()

	s.mu.Lock()
	task.lastRun = time.Now()
	task.runCount++
	if err != nil {
		task.lastErr = err.Error()
	} else {
		task.lastErr = ""
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Error("Maintenance task failed",
			zap.String("task", task.Name),
			zap.Error(err))
	}
}
