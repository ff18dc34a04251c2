package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := strings.TrimSuffix(string(data), "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}

func newMidnightSink(t *testing.T, clock *fakeClock, backups int) (*RotatingFileSink, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "logs", "coinbitrage.log")
	s, err := NewRotatingFileSink(RotationOptions{
		Path:        path,
		When:        WhenMidnight,
		BackupCount: backups,
		UTC:         true,
		Clock:       clock.Now,
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestRotationAtMidnight(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 15, 23, 59, 59, 900_000_000, time.UTC)}
	s, path := newMidnightSink(t, clock, 3)

	assert.Equal(t, time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC), s.RolloverAt())

	require.NoError(t, s.Write([]byte("before\n"), &Record{}))
	clock.Set(time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC))
	require.NoError(t, s.Write([]byte("after\n"), &Record{}))

	assert.Equal(t, []string{"before"}, readLines(t, path+".2024-03-15"))
	assert.Equal(t, []string{"after"}, readLines(t, path))
	assert.Equal(t, time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC), s.RolloverAt())
}

func TestRotationRetention(t *testing.T) {
	start := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: start}
	s, path := newMidnightSink(t, clock, 3)

	for day := 0; day < 6; day++ {
		clock.Set(start.AddDate(0, 0, day))
		require.NoError(t, s.Write([]byte(fmt.Sprintf("day %d\n", day)), &Record{}))
	}

	matches, err := filepath.Glob(path + ".*")
	require.NoError(t, err)
	assert.Equal(t, []string{
		path + ".2024-03-12",
		path + ".2024-03-13",
		path + ".2024-03-14",
	}, matches)
	assert.Equal(t, []string{"day 4"}, readLines(t, path+".2024-03-14"))
	assert.Equal(t, []string{"day 5"}, readLines(t, path))
}

func TestRotationUnboundedRetention(t *testing.T) {
	start := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{now: start}
	s, path := newMidnightSink(t, clock, 0)

	for day := 0; day < 6; day++ {
		clock.Set(start.AddDate(0, 0, day))
		require.NoError(t, s.Write([]byte("x\n"), &Record{}))
	}

	matches, err := filepath.Glob(path + ".*")
	require.NoError(t, err)
	assert.Len(t, matches, 5)
}

func TestRotationNoLossAcrossBoundary(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 15, 23, 59, 59, 0, time.UTC)}
	s, path := newMidnightSink(t, clock, 3)

	const writers, perWriter = 8, 200
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if w == 0 && i == perWriter/2 {
					clock.Set(time.Date(2024, 3, 16, 0, 0, 0, 1, time.UTC))
				}
				assert.NoError(t, s.Write([]byte(fmt.Sprintf("%d-%d\n", w, i)), &Record{}))
			}
		}(w)
	}
	wg.Wait()
	require.NoError(t, s.Close())

	seen := make(map[string]int)
	for _, name := range []string{path, path + ".2024-03-15"} {
		for _, line := range readLines(t, name) {
			seen[line]++
		}
	}
	assert.Len(t, seen, writers*perWriter)
	for line, n := range seen {
		assert.Equal(t, 1, n, "line %s written %d times", line, n)
	}
}

func TestRolloverIfDue(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}
	s, path := newMidnightSink(t, clock, 3)

	require.NoError(t, s.Write([]byte("idle day\n"), &Record{}))
	require.NoError(t, s.RolloverIfDue())
	assert.NoFileExists(t, path+".2024-03-15")

	clock.Set(time.Date(2024, 3, 16, 0, 0, 1, 0, time.UTC))
	require.NoError(t, s.RolloverIfDue())
	assert.Equal(t, []string{"idle day"}, readLines(t, path+".2024-03-15"))
	assert.Empty(t, readLines(t, path))
}

func TestRotationStaleFileOnOpen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))
	old := time.Date(2024, 3, 14, 9, 0, 0, 0, time.UTC)
	require.NoError(t, os.Chtimes(path, old, old))

	clock := &fakeClock{now: time.Date(2024, 3, 16, 8, 0, 0, 0, time.UTC)}
	s, err := NewRotatingFileSink(RotationOptions{Path: path, UTC: true, BackupCount: 3, Clock: clock.Now})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Write([]byte("new\n"), &Record{}))
	assert.Equal(t, []string{"old"}, readLines(t, path+".2024-03-14"))
	assert.Equal(t, []string{"new"}, readLines(t, path))
}

func TestRotationHourlyCollision(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(path+".2024-03-15_10", []byte("existing\n"), 0o644))

	clock := &fakeClock{now: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}
	s, err := NewRotatingFileSink(RotationOptions{Path: path, When: WhenHour, UTC: true, Clock: clock.Now})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Write([]byte("a\n"), &Record{}))
	clock.Set(time.Date(2024, 3, 15, 11, 0, 0, 0, time.UTC))
	require.NoError(t, s.Write([]byte("b\n"), &Record{}))

	assert.Equal(t, []string{"existing"}, readLines(t, path+".2024-03-15_10"))
	assert.Equal(t, []string{"a"}, readLines(t, path+".2024-03-15_10.1"))
	assert.Equal(t, "@every 1m", s.CronSpec())
}

func TestRetentionOrdersCollisionCounters(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)}
	s, path := newMidnightSink(t, clock, 2)

	for _, suffix := range []string{".2024-03-13", ".2024-03-14", ".2024-03-14.1", ".2024-03-14.2", ".2024-03-14.9", ".2024-03-14.10.gz"} {
		require.NoError(t, os.WriteFile(path+suffix, []byte("old\n"), 0o644))
	}

	backups, err := s.backups()
	require.NoError(t, err)
	names := make([]string, len(backups))
	for i, b := range backups {
		names[i] = strings.TrimPrefix(b, path)
	}
	assert.Equal(t, []string{".2024-03-13", ".2024-03-14", ".2024-03-14.1", ".2024-03-14.2", ".2024-03-14.9", ".2024-03-14.10.gz"}, names)

	require.NoError(t, s.purge())
	assert.FileExists(t, path+".2024-03-14.9")
	assert.FileExists(t, path+".2024-03-14.10.gz")
	assert.NoFileExists(t, path+".2024-03-14.2")
	assert.NoFileExists(t, path+".2024-03-13")
}

func TestRotationCompress(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.log")
	clock := &fakeClock{now: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}
	s, err := NewRotatingFileSink(RotationOptions{Path: path, UTC: true, Compress: true, BackupCount: 2, Clock: clock.Now})
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Write([]byte("compressed\n"), &Record{}))
	clock.Set(time.Date(2024, 3, 16, 10, 0, 0, 0, time.UTC))
	require.NoError(t, s.Write([]byte("fresh\n"), &Record{}))

	assert.NoFileExists(t, path+".2024-03-15")
	f, err := os.Open(path + ".2024-03-15.gz")
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, "compressed\n", string(data))
}

func TestRotationOptionsValidation(t *testing.T) {
	_, err := NewRotatingFileSink(RotationOptions{})
	assert.Error(t, err)

	_, err = NewRotatingFileSink(RotationOptions{Path: filepath.Join(t.TempDir(), "a.log"), When: "W9"})
	assert.ErrorContains(t, err, "W9")

	_, err = NewRotatingFileSink(RotationOptions{Path: filepath.Join(t.TempDir(), "a.log"), BackupCount: -1})
	assert.Error(t, err)
}

func TestRotationCronSpec(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}
	s, _ := newMidnightSink(t, clock, 3)
	assert.Equal(t, "CRON_TZ=UTC 0 0 * * *", s.CronSpec())
}

func TestWriteAfterClose(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}
	s, _ := newMidnightSink(t, clock, 3)
	require.NoError(t, s.Close())
	assert.ErrorIs(t, s.Write([]byte("x\n"), &Record{}), ErrClosed)
	assert.NoError(t, s.RolloverIfDue())
}

func TestBuilderSchedulesRotation(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)}
	sink, err := NewRotatingFileSink(RotationOptions{
		Path:  filepath.Join(t.TempDir(), "app.log"),
		UTC:   true,
		Clock: clock.Now,
	})
	require.NoError(t, err)

	m, err := NewLoggingBuilder().
		AddHandler("file", HandlerConfig{Sink: NewAsyncSink(sink, 16)}).
		SetRoot(LoggerConfig{Level: LogLevelInfo, Handlers: []string{"file"}}).
		UseClock(clock.Now).
		Build()
	require.NoError(t, err)

	require.Len(t, m.scheduler.jobs, 1)
	m.Root().Info("scheduled")
	require.NoError(t, m.Close())

	lines := readLines(t, sink.Path())
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], "INFO     scheduled")
}
