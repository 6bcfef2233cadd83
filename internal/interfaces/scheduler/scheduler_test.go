package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestParseScheduleTime(t *testing.T) {
	tests := []struct {
		input   string
		want    ScheduleTime
		wantErr bool
	}{
		{"06:00", ScheduleTime{6, 0}, false},
		{"23:59", ScheduleTime{23, 59}, false},
		{"0:5", ScheduleTime{0, 5}, false},
		{"24:00", ScheduleTime{}, true},
		{"12:60", ScheduleTime{}, true},
		{"noon", ScheduleTime{}, true},
		{"", ScheduleTime{}, true},
	}

	for _, tt := range tests {
		got, err := ParseScheduleTime(tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseScheduleTime(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseScheduleTime(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestShouldRun(t *testing.T) {
	s, err := New(Config{
		ScheduleTimes: []string{"06:00", "18:30"},
		WorkerCount:   1,
		QueueSize:     1,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	at := func(hour, minute int) time.Time {
		return time.Date(2025, 6, 1, hour, minute, 30, 0, time.UTC)
	}

	if !s.shouldRun(at(6, 0)) {
		t.Error("06:00 should trigger")
	}
	if s.shouldRun(at(6, 0)) {
		t.Error("same minute must not trigger twice")
	}
	if s.shouldRun(at(6, 1)) {
		t.Error("06:01 is not a scheduled time")
	}
	if !s.shouldRun(at(18, 30)) {
		t.Error("18:30 should trigger")
	}

	next := time.Date(2025, 6, 2, 6, 0, 30, 0, time.UTC)
	if !s.shouldRun(next) {
		t.Error("06:00 the next day should trigger again")
	}
}

func TestNew_NoScheduleTimes(t *testing.T) {
	if _, err := New(Config{WorkerCount: 1}); err == nil {
		t.Fatal("New() expected error with no schedule times")
	}
}

type countingJob struct {
	mu   sync.Mutex
	id   string
	runs int
	err  error
	done chan struct{}
}

func (j *countingJob) Execute(ctx context.Context) error {
	j.mu.Lock()
	j.runs++
	j.mu.Unlock()
	if j.done != nil {
		close(j.done)
	}
	return j.err
}

func (j *countingJob) ConnectionID() string { return j.id }
func (j *countingJob) Description() string  { return "test job " + j.id }

func TestWorkerPoolRunsJobs(t *testing.T) {
	pool := NewWorkerPool(2, 0, 4)
	pool.Start()

	jobs := []*countingJob{
		{id: "conn-1", done: make(chan struct{})},
		{id: "conn-2", done: make(chan struct{}), err: errors.New("boom")},
	}
	for _, j := range jobs {
		if err := pool.Submit(j); err != nil {
			t.Fatalf("Submit() error = %v", err)
		}
	}

	for _, j := range jobs {
		select {
		case <-j.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("job %s did not run", j.id)
		}
	}

	pool.ShutdownWithTimeout(time.Second)

	for _, j := range jobs {
		if j.runs != 1 {
			t.Errorf("job %s runs = %d, want 1", j.id, j.runs)
		}
	}
}

func TestTriggerNowDuringShutdown(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})

	s, err := New(Config{
		ScheduleTimes: []string{"03:00"},
		WorkerCount:   1,
		QueueSize:     4,
		JobProvider: func(ctx context.Context) ([]Job, error) {
			close(entered)
			<-release
			return []Job{&countingJob{id: "conn-1"}}, nil
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	s.Start()

	// Shutdown must wait for the in-flight manual dispatch instead of
	// closing the job queue underneath it.
	s.TriggerNow()
	<-entered

	done := make(chan struct{})
	go func() {
		s.Shutdown(2 * time.Second)
		close(done)
	}()
	close(release)

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Shutdown() did not return")
	}
}

func TestWorkerPoolQueueFull(t *testing.T) {
	// No workers started, queue of one: the second submission must be
	// dropped with an error rather than blocking.
	pool := NewWorkerPool(1, 0, 1)

	if err := pool.Submit(&countingJob{id: "conn-1"}); err != nil {
		t.Fatalf("first Submit() error = %v", err)
	}
	if err := pool.Submit(&countingJob{id: "conn-2"}); err == nil {
		t.Fatal("second Submit() expected queue-full error")
	}
}
