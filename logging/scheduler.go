package logging

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// rotationScheduler 在空闲时段按周期边界触发轮转
// 写入路径本身也会检查边界，调度器只负责没有新日志时的文件切换
type rotationScheduler struct {
	cron *cron.Cron
	jobs map[string]cron.EntryID
}

func newRotationScheduler(report ErrorReporter) *rotationScheduler {
	logger := &cronLogger{report: report}
	return &rotationScheduler{
		cron: cron.New(
			cron.WithLocation(time.Local),
			cron.WithChain(cron.Recover(logger)),
		),
		jobs: make(map[string]cron.EntryID),
	}
}

// add 注册一个轮转文件
func (s *rotationScheduler) add(handler string, sink *RotatingFileSink, report ErrorReporter) error {
	id, err := s.cron.AddFunc(sink.CronSpec(), func() {
		if err := sink.RolloverIfDue(); err != nil {
			report(handler, err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule rotation for %q: %w", handler, err)
	}
	s.jobs[handler] = id
	return nil
}

func (s *rotationScheduler) start() {
	if len(s.jobs) > 0 {
		s.cron.Start()
	}
}

// stop 停止调度并等待正在执行的任务
func (s *rotationScheduler) stop() {
	<-s.cron.Stop().Done()
}

// cronLogger 适配器：把 cron 库的日志接口接到错误报告上
type cronLogger struct {
	report ErrorReporter
}

func (l *cronLogger) Info(msg string, keysAndValues ...interface{}) {}

func (l *cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.report("scheduler", fmt.Errorf("%s %v: %w", msg, keysAndValues, err))
}
