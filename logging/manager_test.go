package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type coinbitrageTree struct {
	manager *Manager
	console *memorySink
	file    *memorySink
	order   *memorySink
}

func newCoinbitrageTree(t *testing.T) *coinbitrageTree {
	t.Helper()
	tree := &coinbitrageTree{console: &memorySink{}, file: &memorySink{}, order: &memorySink{}}

	orderFilter, err := NewEventNameFilter("order", "")
	require.NoError(t, err)
	clock := &fakeClock{now: testTime}

	m, err := NewLoggingBuilder().
		AddFilter("order_events", orderFilter).
		AddHandler("console", HandlerConfig{Sink: tree.console}).
		AddHandler("file", HandlerConfig{Sink: tree.file}).
		AddHandler("order", HandlerConfig{Filters: []string{"order_events"}, Sink: tree.order}).
		SetRoot(LoggerConfig{Level: LogLevelWarning, Handlers: []string{"console", "file"}}).
		AddLogger("coinbitrage", LoggerConfig{Level: LogLevelDebug, Handlers: []string{"console", "file", "order"}}).
		AddLogger("pusherclient.connection", LoggerConfig{Disabled: true, Propagate: true}).
		UseClock(clock.Now).
		UseErrorReporter(func(string, error) {}).
		Build()
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })

	tree.manager = m
	return tree
}

func TestRootFanOut(t *testing.T) {
	tree := newCoinbitrageTree(t)
	root := tree.manager.Root()

	root.Info("dropped by root level")
	root.Warning("first")
	root.Error("second")
	root.Critical("third")

	want := []string{"first", "second", "third"}
	assert.Equal(t, want, tree.console.Messages())
	assert.Equal(t, want, tree.file.Messages())
	assert.Empty(t, tree.order.Messages())
}

func TestCoinbitrageDoesNotPropagate(t *testing.T) {
	tree := newCoinbitrageTree(t)

	for _, name := range []string{"coinbitrage", "coinbitrage.exchange", "coinbitrage.exchange.kraken"} {
		log := tree.manager.GetLogger(name)
		log.Debug("debug from %s", name, Event("order.placed"))
	}

	assert.Len(t, tree.console.Messages(), 3)
	assert.Len(t, tree.file.Messages(), 3)
	assert.Len(t, tree.order.Messages(), 3)
	assert.Equal(t, "debug from coinbitrage.exchange.kraken", tree.file.Messages()[2])

	tree.console.mu.Lock()
	assert.Equal(t, "coinbitrage.exchange.kraken", tree.console.records[2].Logger)
	tree.console.mu.Unlock()
}

func TestOrderHandlerFilter(t *testing.T) {
	tree := newCoinbitrageTree(t)
	log := tree.manager.GetLogger("coinbitrage.trader")

	log.Info("filled", Event("order.filled"))
	log.Info("quote", Event("trade.quote"))
	log.Info("no event")

	assert.Equal(t, []string{"filled"}, tree.order.Messages())
	assert.Len(t, tree.file.Messages(), 3)
}

func TestUnconfiguredLoggerBindsToRoot(t *testing.T) {
	tree := newCoinbitrageTree(t)
	log := tree.manager.GetLogger("requests.adapters")

	assert.Equal(t, LogLevelWarning, log.EffectiveLevel())
	assert.False(t, log.IsEnabledFor(LogLevelInfo))

	log.Info("hidden")
	log.Warning("shown")
	assert.Equal(t, []string{"shown"}, tree.console.Messages())
}

func TestDisabledLogger(t *testing.T) {
	tree := newCoinbitrageTree(t)

	tree.manager.GetLogger("pusherclient.connection").Critical("noise")
	tree.manager.GetLogger("pusherclient.connection.ws").Critical("noise")
	tree.manager.GetLogger("pusherclient").Critical("kept")

	assert.Equal(t, []string{"kept"}, tree.console.Messages())
}

func TestLoggerOptions(t *testing.T) {
	tree := newCoinbitrageTree(t)
	log := tree.manager.GetLogger("coinbitrage").WithFields(F("exchange", "kraken"))

	log.Info("order {order_id} at %v", 64000.5,
		Event("order.placed"),
		Data(map[string]any{"order_id": "A1"}),
		F("attempt", 2))
	log.Exception(errors.New("rejected"), "cancel failed")

	tree.file.mu.Lock()
	defer tree.file.mu.Unlock()
	require.Len(t, tree.file.records, 2)

	rec := tree.file.records[0]
	assert.Equal(t, "order A1 at 64000.5", rec.Message)
	assert.Equal(t, "order.placed", rec.EventName)
	assert.Equal(t, []Field{F("exchange", "kraken"), F("attempt", 2)}, rec.Fields)
	assert.Equal(t, testTime, rec.Time)

	assert.Equal(t, LogLevelError, tree.file.records[1].Level)
	assert.EqualError(t, tree.file.records[1].Err, "rejected")
}

func TestManagerClose(t *testing.T) {
	tree := newCoinbitrageTree(t)
	require.NoError(t, tree.manager.Close())
	require.NoError(t, tree.manager.Close())

	tree.manager.Root().Critical("after close")
	assert.Empty(t, tree.console.Messages())
	assert.True(t, tree.console.closed)
}

func TestDescribe(t *testing.T) {
	tree := newCoinbitrageTree(t)
	info := tree.manager.Describe()

	require.Len(t, info.Loggers, 3)
	assert.Equal(t, RootLoggerName, info.Loggers[0].Name)
	assert.Equal(t, "WARNING", info.Loggers[0].Level)
	assert.Equal(t, "coinbitrage", info.Loggers[1].Name)
	assert.Equal(t, []string{"console", "file", "order"}, info.Loggers[1].Handlers)
	assert.False(t, info.Loggers[1].Propagate)
	assert.Equal(t, "pusherclient.connection", info.Loggers[2].Name)
	assert.True(t, info.Loggers[2].Disabled)
	assert.Equal(t, "WARNING", info.Loggers[2].EffectiveLevel)

	require.Len(t, info.Handlers, 3)
	assert.Equal(t, "console", info.Handlers[0].Name)
	assert.Equal(t, "logging.memorySink", info.Handlers[0].Sink)
	assert.Equal(t, 1, info.Handlers[2].Filters)

	h, ok := tree.manager.Handler("order")
	require.True(t, ok)
	assert.Equal(t, "order", h.Name())
}

func TestBuildAggregatesErrors(t *testing.T) {
	sink := &memorySink{}
	_, err := NewLoggingBuilder().
		AddHandler("console", HandlerConfig{Formatter: "missing", Sink: sink}).
		AddHandler("file", HandlerConfig{Filters: []string{"nope"}, Sink: &memorySink{}}).
		SetRoot(LoggerConfig{Handlers: []string{"console", "ghost"}}).
		AddLogger(".bad", LoggerConfig{}).
		Build()
	require.Error(t, err)

	var buildErr *BuildError
	require.True(t, errors.As(err, &buildErr))
	assert.Len(t, buildErr.Problems, 4)
	assert.ErrorContains(t, err, `unknown formatter "missing"`)
	assert.ErrorContains(t, err, `unknown filter "nope"`)
	assert.ErrorContains(t, err, `unknown handler "ghost"`)
	assert.ErrorContains(t, err, `logger ".bad"`)
	assert.True(t, sink.closed)
}

func TestNearestConfiguredAncestor(t *testing.T) {
	parent, child := &memorySink{}, &memorySink{}
	m, err := NewLoggingBuilder().
		AddHandler("parent", HandlerConfig{Sink: parent}).
		AddHandler("child", HandlerConfig{Sink: child}).
		SetRoot(LoggerConfig{Level: LogLevelError}).
		AddLogger("a", LoggerConfig{Level: LogLevelInfo, Handlers: []string{"parent"}}).
		AddLogger("a.b.c", LoggerConfig{Handlers: []string{"child"}, Propagate: true}).
		UseErrorReporter(func(string, error) {}).
		Build()
	require.NoError(t, err)
	defer m.Close()

	log := m.GetLogger("a.b.c.d")
	assert.Equal(t, LogLevelInfo, log.EffectiveLevel())
	log.Info("hello")

	assert.Equal(t, []string{"hello"}, parent.Messages())
	assert.Equal(t, []string{"hello"}, child.Messages())
	assert.Equal(t, "a", m.Describe().Loggers[2].Parent)
}

func TestDiscard(t *testing.T) {
	log := Discard()
	assert.False(t, log.IsEnabledFor(LogLevelCritical))
	assert.NotPanics(t, func() { log.Critical("nothing") })
}

func TestNewConsoleManager(t *testing.T) {
	m := NewConsoleManager(LogLevelInfo, false)
	defer m.Close()

	assert.Equal(t, LogLevelInfo, m.Root().EffectiveLevel())
	assert.False(t, m.GetLogger("coinbitrage").IsEnabledFor(LogLevelDebug))

	h, ok := m.Handler("console")
	require.True(t, ok)
	assert.IsType(t, &ConsoleSink{}, h.Sink())
}

func TestExceptionLeavesCallerArgsIntact(t *testing.T) {
	tree := newCoinbitrageTree(t)
	log := tree.manager.GetLogger("coinbitrage.engine")

	args := make([]any, 1, 4)
	args[0] = "BTC"
	spare := args[:2]
	spare[1] = "untouched"

	log.Exception(errors.New("rejected"), "cancel %s failed", args...)

	assert.Equal(t, "untouched", spare[1])
	require.Len(t, tree.file.records, 1)
	rec := tree.file.records[0]
	assert.Equal(t, "cancel BTC failed", rec.Message)
	assert.EqualError(t, rec.Err, "rejected")
}
