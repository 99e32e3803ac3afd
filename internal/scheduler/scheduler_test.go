package scheduler

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

// blockingJob holds its Run until released and counts executions.
type blockingJob struct {
	name    string
	started chan struct{}
	release chan struct{}
	runs    int32
}

func (j *blockingJob) Name() string { return j.name }

func (j *blockingJob) Run() error {
	atomic.AddInt32(&j.runs, 1)
	j.started <- struct{}{}
	<-j.release
	return nil
}

func TestOverlappingRunsAreDropped(t *testing.T) {
	s := New(zerolog.Nop())
	job := &blockingJob{
		name:    "slow",
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.runJob(job)
	}()
	<-job.started

	// Firings while the first run is in flight are dropped.
	s.runJob(job)
	s.runJob(job)
	assert.Equal(t, int32(1), atomic.LoadInt32(&job.runs))

	close(job.release)
	wg.Wait()

	// After the run finishes the job can fire again.
	job.release = make(chan struct{})
	close(job.release)
	go func() { <-job.started }()
	s.runJob(job)

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&job.runs) == 2
	}, time.Second, 10*time.Millisecond)
}

func TestDifferentJobsDoNotBlockEachOther(t *testing.T) {
	s := New(zerolog.Nop())
	slow := &blockingJob{
		name:    "slow",
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.runJob(slow)
	}()
	<-slow.started

	fast := &blockingJob{
		name:    "fast",
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	close(fast.release)

	done := make(chan struct{})
	go func() {
		s.runJob(fast)
		close(done)
	}()
	<-fast.started

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("independent job was blocked by an unrelated in-flight run")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&fast.runs))

	close(slow.release)
	wg.Wait()
}

func TestJobNamesAreStable(t *testing.T) {
	// Job names key overlap coalescing and appear in operator logs;
	// renames are breaking.
	assert.Equal(t, "daily_collection", NewDailyCollectionJob(nil).Name())
	assert.Equal(t, "daily_validation", NewPipelineJob(nil).Name())
	assert.Equal(t, "daily_analytics", NewAnalyticsJob(nil, nil, nil, 0).Name())
	assert.Equal(t, "daily_alert_check", NewAlertCheckJob(nil).Name())
	assert.Equal(t, "weekly_cleanup", NewCleanupJob(nil, 0, zerolog.Nop()).Name())
	assert.Equal(t, "weekly_maintenance", NewWeeklyMaintenanceJob(nil).Name())
	assert.Equal(t, "intraday_estimate", NewIntradayEstimateJob(nil, nil, 0, zerolog.Nop()).Name())
}

func TestRunNowRespectsInFlightRun(t *testing.T) {
	s := New(zerolog.Nop())
	job := &blockingJob{
		name:    "slow",
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.runJob(job)
	}()
	<-job.started

	err := s.RunNow(job)
	assert.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&job.runs))

	close(job.release)
	wg.Wait()
}
