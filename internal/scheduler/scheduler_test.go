package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhango/pricesync/pkg/logger"
)

type stubJob struct {
	name     string
	schedule string
	ran      chan struct{}
	err      error
}

func (j *stubJob) Name() string     { return j.name }
func (j *stubJob) Schedule() string { return j.schedule }
func (j *stubJob) Run(context.Context) error {
	select {
	case j.ran <- struct{}{}:
	default:
	}
	return j.err
}

func newStubJob(name string, err error) *stubJob {
	return &stubJob{name: name, schedule: "@daily", ran: make(chan struct{}, 8), err: err}
}

func TestAddJobRejectsDuplicates(t *testing.T) {
	s := New(logger.NewNop())

	require.NoError(t, s.AddJob(newStubJob("daily", nil)))
	assert.Error(t, s.AddJob(newStubJob("daily", nil)))
}

func TestAddJobRejectsBadSchedule(t *testing.T) {
	s := New(logger.NewNop())
	job := newStubJob("broken", nil)
	job.schedule = "not a cron expression"

	assert.Error(t, s.AddJob(job))
}

func TestTriggerRunsJob(t *testing.T) {
	s := New(logger.NewNop())
	job := newStubJob("daily", nil)
	require.NoError(t, s.AddJob(job))

	require.NoError(t, s.Trigger("daily"))

	select {
	case <-job.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run")
	}
}

func TestTriggerUnknownJob(t *testing.T) {
	s := New(logger.NewNop())
	assert.Error(t, s.Trigger("missing"))
}

func TestRunJobRecordsFailure(t *testing.T) {
	s := New(logger.NewNop())
	s.maxRetries = 1
	s.retryDelay = time.Millisecond

	job := newStubJob("flaky", errors.New("boom"))
	require.NoError(t, s.AddJob(job))

	s.runJob(job)

	stats := s.JobStats()["flaky"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 0.0, stats.SuccessRate)
	assert.Equal(t, "boom", stats.LastError)
}

func TestRunJobRecordsSuccess(t *testing.T) {
	s := New(logger.NewNop())
	job := newStubJob("steady", nil)
	require.NoError(t, s.AddJob(job))

	s.runJob(job)

	stats := s.JobStats()["steady"]
	assert.Equal(t, 1, stats.TotalRuns)
	assert.Equal(t, 1.0, stats.SuccessRate)
	assert.Empty(t, stats.LastError)
	require.NotNil(t, stats.LastRun)
}

func TestJobHistoryBounded(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < maxHistoryResults+20; i++ {
		h.add(JobResult{Success: true})
	}
	assert.Len(t, h.Results, maxHistoryResults)
	assert.Equal(t, 1.0, h.SuccessRate())
}
