package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/perfa/pkg/logger"
)

type stubJob struct {
	name     string
	schedule string
	err      error
	runs     int
}

func (j *stubJob) Name() string     { return j.name }
func (j *stubJob) Schedule() string { return j.schedule }
func (j *stubJob) Run(ctx context.Context) error {
	j.runs++
	return j.err
}

func TestAddJobRejectsDuplicates(t *testing.T) {
	s := New(logger.NewNop())

	job := &stubJob{name: "report", schedule: "0 30 18 * * *"}
	require.NoError(t, s.AddJob(job))
	assert.Error(t, s.AddJob(job))
	assert.Equal(t, []string{"report"}, s.GetAllJobs())
}

func TestAddJobRejectsBadSchedule(t *testing.T) {
	s := New(logger.NewNop())

	err := s.AddJob(&stubJob{name: "broken", schedule: "not a cron spec"})
	assert.Error(t, err)
}

func TestRunJobRecordsHistory(t *testing.T) {
	s := New(logger.NewNop())
	s.retryDelay = time.Millisecond

	job := &stubJob{name: "report", schedule: "0 30 18 * * *"}
	require.NoError(t, s.AddJob(job))

	s.runJob(job)

	history, err := s.GetJobHistory("report")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	assert.True(t, history.Results[0].Success)
	assert.Equal(t, 1, job.runs)
	assert.InDelta(t, 1.0, history.GetSuccessRate(), 1e-12)
}

func TestRunJobRetriesOnFailure(t *testing.T) {
	s := New(logger.NewNop())
	s.retryDelay = time.Millisecond

	job := &stubJob{name: "flaky", schedule: "@daily", err: assert.AnError}
	require.NoError(t, s.AddJob(job))

	s.runJob(job)

	history, err := s.GetJobHistory("flaky")
	require.NoError(t, err)
	require.Len(t, history.Results, 1)
	assert.False(t, history.Results[0].Success)
	assert.Equal(t, s.maxRetries+1, job.runs)
	require.Len(t, history.GetFailedResults(), 1)
}

func TestJobHistoryCapped(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < 150; i++ {
		h.AddResult(JobResult{JobName: "x", Success: true})
	}
	assert.Len(t, h.Results, 100)
	assert.Len(t, h.GetLatestResults(10), 10)
}
