// Package scheduler runs periodic bank syncs at configured times of day
// through a bounded worker pool.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ScheduleTime is a time of day when the scheduler fires.
type ScheduleTime struct {
	Hour   int
	Minute int
}

func (st ScheduleTime) String() string {
	return fmt.Sprintf("%02d:%02d", st.Hour, st.Minute)
}

// ParseScheduleTime parses "HH:MM".
func ParseScheduleTime(s string) (ScheduleTime, error) {
	h, m, ok := strings.Cut(s, ":")
	if !ok {
		return ScheduleTime{}, fmt.Errorf("invalid time %q (expected HH:MM)", s)
	}
	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return ScheduleTime{}, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return ScheduleTime{}, fmt.Errorf("invalid minute in %q", s)
	}
	return ScheduleTime{Hour: hour, Minute: minute}, nil
}

// Config holds scheduler configuration. JobProvider is called at each
// scheduled time to enumerate the jobs to run.
type Config struct {
	ScheduleTimes []string
	WorkerCount   int
	JobDelay      time.Duration
	QueueSize     int
	RunOnStartup  bool
	JobProvider   func(context.Context) ([]Job, error)
}

// Scheduler fires the job provider at each configured time of day and feeds
// the resulting jobs to the worker pool.
type Scheduler struct {
	pool         *WorkerPool
	times        []ScheduleTime
	runOnStartup bool
	jobProvider  func(context.Context) ([]Job, error)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	lastRun string
}

func New(config Config) (*Scheduler, error) {
	if len(config.ScheduleTimes) == 0 {
		return nil, fmt.Errorf("at least one schedule time is required")
	}

	times := make([]ScheduleTime, 0, len(config.ScheduleTimes))
	for _, raw := range config.ScheduleTimes {
		st, err := ParseScheduleTime(raw)
		if err != nil {
			return nil, err
		}
		times = append(times, st)
	}

	ctx, cancel := context.WithCancel(context.Background())
	log.Printf("Sync schedule %v, %d workers, %v between jobs",
		times, config.WorkerCount, config.JobDelay)

	return &Scheduler{
		pool:         NewWorkerPool(config.WorkerCount, config.JobDelay, config.QueueSize),
		times:        times,
		runOnStartup: config.RunOnStartup,
		jobProvider:  config.JobProvider,
		ctx:          ctx,
		cancel:       cancel,
	}, nil
}

// Start launches the worker pool and the scheduling loop.
func (s *Scheduler) Start() {
	s.pool.Start()

	if s.runOnStartup {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.dispatch()
		}()
	}

	s.wg.Add(1)
	go s.loop()
}

func (s *Scheduler) loop() {
	defer s.wg.Done()

	// A one-minute tick is enough resolution for HH:MM schedules; shouldRun
	// dedups in case a tick lands twice in the same minute.
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case now := <-ticker.C:
			if s.shouldRun(now) {
				log.Printf("Scheduled sync run at %s", now.Format("15:04"))
				s.dispatch()
			}
		}
	}
}

func (s *Scheduler) shouldRun(now time.Time) bool {
	key := now.Format("2006-01-02-15:04")

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastRun == key {
		return false
	}
	for _, st := range s.times {
		if now.Hour() == st.Hour && now.Minute() == st.Minute {
			s.lastRun = key
			return true
		}
	}
	return false
}

// dispatch asks the provider for the current job set and queues it.
func (s *Scheduler) dispatch() {
	if s.jobProvider == nil || s.ctx.Err() != nil {
		return
	}

	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	jobs, err := s.jobProvider(ctx)
	if err != nil {
		log.Printf("Scheduler: failed to list sync jobs: %v", err)
		return
	}
	if len(jobs) == 0 {
		return
	}
	s.pool.SubmitBatch(jobs)
}

// TriggerNow runs the job provider immediately, outside the schedule. The
// dispatch goroutine is tracked so Shutdown waits for it before closing
// the job queue.
func (s *Scheduler) TriggerNow() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.dispatch()
	}()
}

// NextScheduledTime returns when the scheduler fires next.
func (s *Scheduler) NextScheduledTime() time.Time {
	now := time.Now()
	var next time.Time

	for _, st := range s.times {
		at := time.Date(now.Year(), now.Month(), now.Day(), st.Hour, st.Minute, 0, 0, now.Location())
		if !at.After(now) {
			at = at.AddDate(0, 0, 1)
		}
		if next.IsZero() || at.Before(next) {
			next = at
		}
	}
	return next
}

// Shutdown stops the scheduling loop and drains the worker pool.
func (s *Scheduler) Shutdown(timeout time.Duration) {
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		log.Println("Scheduler: timeout waiting for scheduling loop to stop")
	}

	s.pool.ShutdownWithTimeout(timeout)
}
