package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gocrud/bitlog/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu    sync.Mutex
	lines []string
}

func (s *recordingSink) Write(p []byte, _ *logging.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lines = append(s.lines, string(p))
	return nil
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

func newManager(t *testing.T, sink logging.Sink) *logging.Manager {
	t.Helper()
	b := logging.NewLoggingBuilder()
	plain, err := logging.NewPlainFormatter("", true)
	require.NoError(t, err)
	b.AddFormatter("plain", plain)
	b.AddHandler("mem", logging.HandlerConfig{Level: logging.LogLevelDebug, Formatter: "plain", Sink: sink})
	b.SetRoot(logging.LoggerConfig{Level: logging.LogLevelInfo, Handlers: []string{"mem"}})
	m, err := b.Build()
	require.NoError(t, err)
	return m
}

type fakeService struct {
	started chan struct{}
	stopped bool
	fail    error
}

func (s *fakeService) Start(ctx context.Context) error {
	close(s.started)
	if s.fail != nil {
		return s.fail
	}
	<-ctx.Done()
	return nil
}

func (s *fakeService) Stop(ctx context.Context) error {
	s.stopped = true
	return nil
}

func TestLifecycleStopReverseOrder(t *testing.T) {
	l := NewLifecycle()
	var order []int
	for i := 1; i <= 3; i++ {
		l.OnStop(func(ctx context.Context) error {
			order = append(order, i)
			if i == 2 {
				return errors.New("boom")
			}
			return nil
		})
	}

	err := l.Stop(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Equal(t, []int{3, 2, 1}, order)
}

func TestLifecycleStartStopsOnError(t *testing.T) {
	l := NewLifecycle()
	calls := 0
	l.OnStart(func(ctx context.Context) error { calls++; return errors.New("nope") })
	l.OnStart(func(ctx context.Context) error { calls++; return nil })

	assert.Error(t, l.Start(context.Background()))
	assert.Equal(t, 1, calls)
}

func TestShutdownIsIdempotent(t *testing.T) {
	rt := NewRuntime()
	rt.Shutdown()
	rt.Shutdown()

	select {
	case <-rt.Done():
	default:
		t.Fatal("Done should be closed")
	}
}

func TestWithLogging(t *testing.T) {
	sink := &recordingSink{}
	m := newManager(t, sink)

	rt := NewRuntime()
	require.NoError(t, rt.Apply(WithLogging(m)))
	assert.Same(t, m, rt.Logging)

	rt.Logger("svc").Info("hello")
	rt.ErrorHandler(errors.New("service crashed"))

	lines := sink.Lines()
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "INFO     hello")
	assert.Contains(t, lines[1], "ERROR    runtime error")
	assert.Contains(t, lines[1], "service crashed")

	assert.Error(t, rt.Apply(WithLogging(nil)))
	assert.Error(t, rt.Apply(WithLogging(newManager(t, &recordingSink{}))))
}

func TestLoggerWithoutLogging(t *testing.T) {
	rt := NewRuntime()
	assert.NotPanics(t, func() { rt.Logger("x").Critical("dropped") })
}

func TestHostedServiceLifecycle(t *testing.T) {
	svc := &fakeService{started: make(chan struct{})}
	rt := NewRuntime()
	require.NoError(t, rt.Apply(WithHostedService(svc)))

	require.NoError(t, rt.Lifecycle.Start(context.Background()))
	<-svc.started
	require.NoError(t, rt.Lifecycle.Stop(context.Background()))
	assert.True(t, svc.stopped)

	assert.Error(t, rt.Apply(WithHostedService(nil)))
}

func TestHostedServiceFailureTriggersShutdown(t *testing.T) {
	svc := &fakeService{started: make(chan struct{}), fail: errors.New("bind failed")}
	rt := NewRuntime()

	var mu sync.Mutex
	var reported error
	rt.ErrorHandler = func(err error) {
		mu.Lock()
		reported = err
		mu.Unlock()
	}
	require.NoError(t, rt.Apply(WithHostedService(svc)))
	require.NoError(t, rt.Lifecycle.Start(context.Background()))

	select {
	case <-rt.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("runtime did not shut down")
	}
	mu.Lock()
	defer mu.Unlock()
	require.Error(t, reported)
	assert.Contains(t, reported.Error(), "bind failed")
}

func TestWorkerCancelledOnStop(t *testing.T) {
	done := make(chan struct{})
	rt := NewRuntime()
	require.NoError(t, rt.Apply(WithWorker(func(ctx context.Context) error {
		<-ctx.Done()
		close(done)
		return nil
	})))

	require.NoError(t, rt.Lifecycle.Start(context.Background()))
	require.NoError(t, rt.Lifecycle.Stop(context.Background()))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker was not cancelled")
	}
}

type marker struct{ name string }

func TestFeatures(t *testing.T) {
	rt := NewRuntime()
	rt.Features.Set(&marker{name: "admin"})

	got := GetFeature[*marker](rt)
	require.NotNil(t, got)
	assert.Equal(t, "admin", got.name)
	assert.Nil(t, GetFeature[*fakeService](rt))
}
