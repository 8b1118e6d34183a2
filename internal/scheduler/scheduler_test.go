package scheduler

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/netenum/internal/errors"
	"github.com/anstrom/netenum/internal/logging"
	"github.com/anstrom/netenum/internal/scanning"
)

type fakeRunner struct {
	mu       sync.Mutex
	networks []string
	err      error
	lines    []string
	block    chan struct{}
}

func (r *fakeRunner) Run(ctx context.Context, network string, sink func(string)) (*scanning.Scan, error) {
	r.mu.Lock()
	r.networks = append(r.networks, network)
	r.mu.Unlock()

	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	for _, l := range r.lines {
		if sink != nil {
			sink(l)
		}
	}
	scan := scanning.NewScan(uuid.NewString(), network, time.Now())
	scan.Complete(time.Now())
	return scan, nil
}

func (r *fakeRunner) calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.networks...)
}

func testLogger() *logging.Logger {
	return logging.NewWithWriter(logging.DefaultConfig(), io.Discard)
}

func TestAddScanJob(t *testing.T) {
	tests := []struct {
		name     string
		cronExpr string
		network  string
		wantCode errors.ErrorCode
	}{
		{name: "valid", cronExpr: "0 3 * * *", network: "192.168.1.0/24"},
		{name: "descriptor", cronExpr: "@hourly", network: "10.0.0.0/30"},
		{name: "bad cron", cronExpr: "every day", network: "10.0.0.0/30", wantCode: errors.CodeConfiguration},
		{name: "six fields", cronExpr: "0 0 3 * * *", network: "10.0.0.0/30", wantCode: errors.CodeConfiguration},
		{name: "bad network", cronExpr: "0 3 * * *", network: "10.0.0.1", wantCode: errors.CodeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScheduler(&fakeRunner{}, nil, testLogger())

			job, err := s.AddScanJob("nightly", tt.cronExpr, tt.network)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, tt.wantCode))
				assert.Empty(t, s.GetJobs())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.network, job.Network)
			assert.True(t, job.Enabled)
			assert.True(t, job.NextRun.After(time.Now()))
			assert.Len(t, s.GetJobs(), 1)
		})
	}
}

func TestRemoveJob(t *testing.T) {
	s := NewScheduler(&fakeRunner{}, nil, testLogger())
	job, err := s.AddScanJob("nightly", "0 3 * * *", "10.0.0.0/24")
	require.NoError(t, err)

	require.NoError(t, s.RemoveJob(job.ID))
	assert.Empty(t, s.GetJobs())

	err = s.RemoveJob(job.ID)
	assert.True(t, errors.IsCode(err, errors.CodeNotFound))
}

func TestGetJobsSortedCopies(t *testing.T) {
	s := NewScheduler(&fakeRunner{}, nil, testLogger())
	_, err := s.AddScanJob("b", "0 3 * * *", "10.0.1.0/24")
	require.NoError(t, err)
	_, err = s.AddScanJob("a", "0 4 * * *", "10.0.0.0/24")
	require.NoError(t, err)

	jobs := s.GetJobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "a", jobs[0].Name)
	assert.Equal(t, "b", jobs[1].Name)

	jobs[0].Enabled = false
	assert.True(t, s.GetJobs()[0].Enabled, "returned jobs are copies")
}

func TestExecuteScanJob(t *testing.T) {
	runner := &fakeRunner{lines: []string{"Initiating scan of 10.0.0.0/30...", scanning.CompletionSentinel}}
	var mu sync.Mutex
	var seen []string
	s := NewScheduler(runner, func(l string) {
		mu.Lock()
		seen = append(seen, l)
		mu.Unlock()
	}, testLogger())

	job, err := s.AddScanJob("nightly", "0 3 * * *", "10.0.0.0/30")
	require.NoError(t, err)

	s.executeScanJob(job.ID)

	assert.Equal(t, []string{"10.0.0.0/30"}, runner.calls())
	assert.Equal(t, runner.lines, seen)

	got := s.GetJobs()[0]
	assert.Equal(t, StatusCompleted, got.LastStatus)
	assert.False(t, got.LastRun.IsZero())
	assert.False(t, got.Running)
}

func TestExecuteScanJobStatuses(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "scan in progress is skipped", err: errors.ErrScanInProgress(), want: StatusSkipped},
		{name: "other failure", err: errors.ErrPersistence("persist", io.ErrClosedPipe), want: StatusFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScheduler(&fakeRunner{err: tt.err}, nil, testLogger())
			job, err := s.AddScanJob("nightly", "0 3 * * *", "10.0.0.0/30")
			require.NoError(t, err)

			s.executeScanJob(job.ID)
			assert.Equal(t, tt.want, s.GetJobs()[0].LastStatus)
		})
	}
}

func TestDisabledJobDoesNotRun(t *testing.T) {
	runner := &fakeRunner{}
	s := NewScheduler(runner, nil, testLogger())
	job, err := s.AddScanJob("nightly", "0 3 * * *", "10.0.0.0/30")
	require.NoError(t, err)

	require.NoError(t, s.DisableJob(job.ID))
	s.executeScanJob(job.ID)
	assert.Empty(t, runner.calls())

	require.NoError(t, s.EnableJob(job.ID))
	s.executeScanJob(job.ID)
	assert.Len(t, runner.calls(), 1)

	assert.True(t, errors.IsCode(s.EnableJob(uuid.New()), errors.CodeNotFound))
}

func TestOverlappingTickIsDropped(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{})}
	s := NewScheduler(runner, nil, testLogger())
	job, err := s.AddScanJob("nightly", "0 3 * * *", "10.0.0.0/30")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		s.executeScanJob(job.ID)
		close(done)
	}()
	require.Eventually(t, func() bool { return s.GetJobs()[0].Running }, time.Second, 5*time.Millisecond)

	s.executeScanJob(job.ID)
	assert.Len(t, runner.calls(), 1)

	close(runner.block)
	<-done
}

func TestStartStop(t *testing.T) {
	runner := &fakeRunner{block: make(chan struct{})}
	s := NewScheduler(runner, nil, testLogger())
	job, err := s.AddScanJob("nightly", "0 3 * * *", "10.0.0.0/30")
	require.NoError(t, err)

	require.NoError(t, s.Start())
	require.Error(t, s.Start())

	done := make(chan struct{})
	go func() {
		s.executeScanJob(job.ID)
		close(done)
	}()
	require.Eventually(t, func() bool { return s.GetJobs()[0].Running }, time.Second, 5*time.Millisecond)

	s.Stop()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("stop did not cancel the running scan")
	}
	assert.Equal(t, StatusFailed, s.GetJobs()[0].LastStatus)
	s.Stop()
}
