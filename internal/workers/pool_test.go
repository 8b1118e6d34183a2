package workers

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockJob implements the Job interface for testing
type MockJob struct {
	id       string
	jobType  string
	duration time.Duration
	err      error
	executed int32
}

func NewMockJob(id, jobType string, duration time.Duration, err error) *MockJob {
	return &MockJob{
		id:       id,
		jobType:  jobType,
		duration: duration,
		err:      err,
	}
}

func (m *MockJob) Execute(ctx context.Context) error {
	atomic.AddInt32(&m.executed, 1)
	if m.duration > 0 {
		select {
		case <-time.After(m.duration):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return m.err
}

func (m *MockJob) ID() string {
	return m.id
}

func (m *MockJob) Type() string {
	return m.jobType
}

func (m *MockJob) ExecutedCount() int32 {
	return atomic.LoadInt32(&m.executed)
}

func collect(p *Pool) map[string]Result {
	out := make(map[string]Result)
	for r := range p.Results() {
		out[r.JobID] = r
	}
	return out
}

func TestNewPool(t *testing.T) {
	t.Run("creates pool with valid configuration", func(t *testing.T) {
		config := Config{Size: 2, QueueSize: 100}

		pool := New(config)

		assert.NotNil(t, pool)
		assert.Equal(t, config.Size, len(pool.workers))
		assert.Equal(t, config.QueueSize, cap(pool.jobs))
		assert.Equal(t, config.QueueSize, cap(pool.results))
	})

	t.Run("zero values are clamped", func(t *testing.T) {
		pool := New(Config{})

		assert.Len(t, pool.workers, 1)
		assert.Equal(t, 1, cap(pool.jobs))
	})
}

func TestPoolLifecycle(t *testing.T) {
	t.Run("runs every job and closes results", func(t *testing.T) {
		pool := New(Config{Size: 2, QueueSize: 5})
		pool.Start(context.Background())

		jobs := make([]*MockJob, 5)
		for i := range jobs {
			jobs[i] = NewMockJob(fmt.Sprintf("job-%d", i), "test", 5*time.Millisecond, nil)
			require.NoError(t, pool.Submit(jobs[i]))
		}

		pool.Shutdown()
		results := collect(pool)

		assert.Len(t, results, 5)
		for _, j := range jobs {
			assert.Equal(t, int32(1), j.ExecutedCount())
			assert.NoError(t, results[j.ID()].Error)
		}
	})

	t.Run("multiple shutdown calls are safe", func(t *testing.T) {
		pool := New(Config{Size: 1, QueueSize: 1})
		pool.Start(context.Background())

		assert.NotPanics(t, pool.Shutdown)
		assert.NotPanics(t, pool.Shutdown)
	})

	t.Run("submit after shutdown fails", func(t *testing.T) {
		pool := New(Config{Size: 1, QueueSize: 1})
		pool.Start(context.Background())
		pool.Shutdown()

		err := pool.Submit(NewMockJob("late", "test", 0, nil))
		assert.Error(t, err)
	})
}

func TestPoolQueueFull(t *testing.T) {
	pool := New(Config{Size: 1, QueueSize: 1})

	// not started, so the single slot stays occupied
	require.NoError(t, pool.Submit(NewMockJob("a", "test", 0, nil)))
	err := pool.Submit(NewMockJob("b", "test", 0, nil))
	assert.EqualError(t, err, "job queue is full")

	pool.Start(context.Background())
	pool.Shutdown()
}

func TestPoolBoundsConcurrency(t *testing.T) {
	pool := New(Config{Size: 2, QueueSize: 8})
	pool.Start(context.Background())

	for i := range 8 {
		require.NoError(t, pool.Submit(NewMockJob(fmt.Sprintf("h%d", i), "port_scan", 20*time.Millisecond, nil)))
	}
	pool.Shutdown()

	assert.Len(t, collect(pool), 8)
	assert.LessOrEqual(t, pool.Peak(), 2)
	assert.GreaterOrEqual(t, pool.Peak(), 1)
}

func TestPoolFailureIsolation(t *testing.T) {
	pool := New(Config{Size: 2, QueueSize: 3})
	pool.Start(context.Background())

	boom := errors.New("boom")
	require.NoError(t, pool.Submit(NewMockJob("ok-1", "test", 0, nil)))
	require.NoError(t, pool.Submit(NewMockJob("bad", "test", 0, boom)))
	require.NoError(t, pool.Submit(NewMockJob("ok-2", "test", 0, nil)))
	pool.Shutdown()

	results := collect(pool)
	assert.NoError(t, results["ok-1"].Error)
	assert.NoError(t, results["ok-2"].Error)
	assert.ErrorIs(t, results["bad"].Error, boom)
}

func TestPoolDoesNotRetry(t *testing.T) {
	pool := New(Config{Size: 1, QueueSize: 1})
	pool.Start(context.Background())

	job := NewMockJob("flaky", "test", 0, errors.New("still failing"))
	require.NoError(t, pool.Submit(job))
	pool.Shutdown()

	assert.Error(t, collect(pool)["flaky"].Error)
	assert.Equal(t, int32(1), job.ExecutedCount())
}

func TestPoolContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := New(Config{Size: 1, QueueSize: 2})
	pool.Start(ctx)

	require.NoError(t, pool.Submit(NewMockJob("slow", "test", 5*time.Second, nil)))
	require.NoError(t, pool.Submit(NewMockJob("queued", "test", 0, nil)))

	time.Sleep(20 * time.Millisecond)
	cancel()

	done := make(chan struct{})
	go func() {
		pool.Shutdown()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shutdown did not return after cancellation")
	}

	results := collect(pool)
	assert.ErrorIs(t, results["slow"].Error, context.Canceled)
	assert.ErrorIs(t, results["queued"].Error, context.Canceled)
}

func TestHostJob(t *testing.T) {
	var seen string
	job := NewHostJob("10.0.0.5", "port_scan", func(_ context.Context, ip string) error {
		seen = ip
		return nil
	})

	assert.Equal(t, "10.0.0.5", job.ID())
	assert.Equal(t, "port_scan", job.Type())
	require.NoError(t, job.Execute(context.Background()))
	assert.Equal(t, "10.0.0.5", seen)
}
