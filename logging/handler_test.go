package logging

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"sync"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T, level LogLevel, sink Sink, filters ...Filter) (*Handler, *reports) {
	t.Helper()
	h, err := NewHandler(HandlerOptions{
		Name:    "test",
		Level:   level,
		Filters: filters,
		Sink:    sink,
	})
	require.NoError(t, err)
	r := &reports{}
	h.setReporter(r.report)
	return h, r
}

func TestHandlerLevelAndFilters(t *testing.T) {
	sink := &memorySink{}
	f, err := NewEventNameFilter("order", "")
	require.NoError(t, err)
	h, _ := newTestHandler(t, LogLevelInfo, sink, f)

	h.Handle(&Record{Time: testTime, Level: LogLevelDebug, Message: "too low", EventName: "order.new"})
	h.Handle(&Record{Time: testTime, Level: LogLevelInfo, Message: "no event"})
	h.Handle(&Record{Time: testTime, Level: LogLevelInfo, Message: "accepted", EventName: "order.new"})
	h.Handle(&Record{Time: testTime, Level: LogLevelError, Message: "wrong event", EventName: "trade.quote"})

	assert.Equal(t, []string{"accepted"}, sink.Messages())
}

func TestHandlerRequiresSink(t *testing.T) {
	_, err := NewHandler(HandlerOptions{Name: "x"})
	assert.Error(t, err)

	_, err = NewHandler(HandlerOptions{Sink: &memorySink{}})
	assert.Error(t, err)
}

func TestHandlerReportsOncePerStreak(t *testing.T) {
	sink := &memorySink{}
	h, r := newTestHandler(t, LogLevelNotSet, sink)

	sink.setErr(errSinkDown)
	for i := 0; i < 3; i++ {
		h.Handle(&Record{Time: testTime, Level: LogLevelInfo, Message: "lost"})
	}
	assert.Len(t, r.all(), 1)

	sink.setErr(nil)
	h.Handle(&Record{Time: testTime, Level: LogLevelInfo, Message: "back"})

	sink.setErr(errSinkDown)
	h.Handle(&Record{Time: testTime, Level: LogLevelInfo, Message: "lost again"})

	assert.Len(t, r.all(), 2)
	assert.Equal(t, []string{"back"}, sink.Messages())
}

type panicFormatter struct{}

func (panicFormatter) Format(*Record) ([]byte, error) {
	panic("bad formatter")
}

type panicSink struct{}

func (panicSink) Write([]byte, *Record) error { panic("bad sink") }
func (panicSink) Close() error                { return nil }

func TestHandlerIsolatesPanics(t *testing.T) {
	r := &reports{}

	hf, err := NewHandler(HandlerOptions{Name: "fmt", Formatter: panicFormatter{}, Sink: &memorySink{}})
	require.NoError(t, err)
	hf.setReporter(r.report)

	hs, err := NewHandler(HandlerOptions{Name: "sink", Sink: panicSink{}})
	require.NoError(t, err)
	hs.setReporter(r.report)

	hp, err := NewHandler(HandlerOptions{
		Name:    "filter",
		Filters: []Filter{FilterFunc(func(*Record) bool { panic("bad filter") })},
		Sink:    &memorySink{},
	})
	require.NoError(t, err)
	hp.setReporter(r.report)

	rec := &Record{Time: testTime, Level: LogLevelInfo, Message: "x"}
	assert.NotPanics(t, func() {
		hf.Handle(rec)
		hs.Handle(rec)
		hp.Handle(rec)
	})

	errs := r.all()
	require.Len(t, errs, 3)
	assert.Contains(t, errs[0], "formatter panicked")
	assert.Contains(t, errs[1], "sink panicked")
	assert.Contains(t, errs[2], "filter panicked")
}

func TestHandlerSerializesWrites(t *testing.T) {
	sink := &orderedSink{}
	h, _ := newTestHandler(t, LogLevelNotSet, sink)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Handle(&Record{Time: testTime, Level: LogLevelInfo, Message: "concurrent"})
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, sink.count)
	assert.False(t, sink.overlap)
}

// orderedSink 检测是否有并发写入
type orderedSink struct {
	inside  bool
	overlap bool
	count   int
}

func (s *orderedSink) Write([]byte, *Record) error {
	if s.inside {
		s.overlap = true
	}
	s.inside = true
	s.count++
	s.inside = false
	return nil
}

func (s *orderedSink) Close() error { return nil }

func TestAsyncSinkDrainsOnClose(t *testing.T) {
	sink := &memorySink{}
	async := NewAsyncSink(sink, 2)
	h, _ := newTestHandler(t, LogLevelNotSet, async)

	for i := 0; i < 20; i++ {
		h.Handle(&Record{Time: testTime, Level: LogLevelInfo, Message: "async"})
	}
	require.NoError(t, h.Close())

	assert.Len(t, sink.Lines(), 20)
	assert.True(t, sink.closed)
	assert.ErrorIs(t, async.Write([]byte("late"), &Record{}), ErrClosed)
	assert.Same(t, Sink(sink), async.Unwrap())
}

func TestAsyncSinkReportsThroughHandler(t *testing.T) {
	sink := &memorySink{}
	sink.setErr(errors.New("disk full"))
	h, r := newTestHandler(t, LogLevelNotSet, NewAsyncSink(sink, 4))

	h.Handle(&Record{Time: testTime, Level: LogLevelInfo, Message: "x"})
	h.Handle(&Record{Time: testTime, Level: LogLevelInfo, Message: "y"})
	require.NoError(t, h.Close())

	errs := r.all()
	require.NotEmpty(t, errs)
	assert.Contains(t, errs[0], "disk full")
}

func TestLoggerIsolatesFailingHandler(t *testing.T) {
	var console bytes.Buffer
	healthy := &memorySink{}
	broken := &memorySink{}
	broken.setErr(errSinkDown)

	m, err := NewLoggingBuilder().
		AddConsole("console", LogLevelNotSet, ConsoleOptions{Output: &console}).
		AddHandler("healthy", HandlerConfig{Sink: healthy}).
		AddHandler("broken", HandlerConfig{Sink: broken}).
		AddHandler("panicky", HandlerConfig{Sink: panicSink{}}).
		AddLogger("coinbitrage", LoggerConfig{Level: LogLevelDebug, Handlers: []string{"broken", "panicky", "healthy"}}).
		Build()
	require.NoError(t, err)
	defer m.Close()

	logger := m.GetLogger("coinbitrage.engine")
	assert.NotPanics(t, func() {
		logger.Info("first")
		logger.Info("second")
	})

	assert.Equal(t, []string{"first", "second"}, healthy.Messages())

	// 未设置报告器时，错误写到控制台 Handler 的输出，每个失败序列一条
	lines := strings.Split(strings.TrimSuffix(console.String(), "\n"), "\n")
	assert.Equal(t, []string{
		`bitlog: handler "broken": sink down`,
		`bitlog: handler "panicky": sink panicked: bad sink`,
	}, lines)
}

// syncWriter 记录 Flush/Sync 调用
type syncWriter struct {
	bytes.Buffer
	flushes, syncs int
	syncErr        error
}

func (w *syncWriter) Flush() error {
	w.flushes++
	return nil
}

func (w *syncWriter) Sync() error {
	w.syncs++
	return w.syncErr
}

func TestConsoleSinkFlushesAndSyncs(t *testing.T) {
	w := &syncWriter{}
	s := NewConsoleSink(ConsoleOptions{Output: w})

	require.NoError(t, s.Write([]byte("one\n"), &Record{Level: LogLevelInfo}))
	require.NoError(t, s.Write([]byte("two\n"), &Record{Level: LogLevelInfo}))
	assert.Equal(t, "one\ntwo\n", w.String())
	assert.Equal(t, 2, w.flushes)
	assert.Equal(t, 2, w.syncs)

	// 管道与终端上的 fsync 不支持错误不算写入失败
	w.syncErr = &os.PathError{Op: "sync", Path: "/dev/stdout", Err: syscall.EINVAL}
	assert.NoError(t, s.Write([]byte("three\n"), &Record{Level: LogLevelInfo}))

	w.syncErr = errors.New("disk full")
	assert.EqualError(t, s.Write([]byte("four\n"), &Record{Level: LogLevelInfo}), "disk full")
}
