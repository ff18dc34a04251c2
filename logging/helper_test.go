package logging

import (
	"errors"
	"strings"
	"sync"
	"time"
)

// memorySink 在内存中记录写入内容
type memorySink struct {
	mu      sync.Mutex
	lines   []string
	records []*Record
	err     error
	closed  bool
}

func (s *memorySink) Write(p []byte, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.lines = append(s.lines, string(p))
	s.records = append(s.records, rec)
	return nil
}

func (s *memorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *memorySink) Lines() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.lines...)
}

func (s *memorySink) Messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := make([]string, len(s.records))
	for i, r := range s.records {
		msgs[i] = r.Message
	}
	return msgs
}

func (s *memorySink) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// fakeClock 可手动推进的时钟
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type reports struct {
	mu   sync.Mutex
	errs []string
}

func (r *reports) report(handler string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, handler+": "+err.Error())
}

func (r *reports) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errs...)
}

var errSinkDown = errors.New("sink down")

func trimNL(s string) string {
	return strings.TrimSuffix(s, "\n")
}
