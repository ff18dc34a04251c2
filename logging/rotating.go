package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
)

// 轮转周期
const (
	WhenMidnight = "midnight"
	WhenDay      = "D"
	WhenHour     = "H"
	WhenMinute   = "M"
	WhenSecond   = "S"
)

// RotationOptions 按时间轮转的文件输出选项
type RotationOptions struct {
	Path string
	// When 轮转周期，默认 midnight
	When string
	// Interval 周期倍数，midnight 忽略该值
	Interval int
	// BackupCount 保留的历史文件数，0 表示不自动删除
	BackupCount int
	// UTC 按 UTC 计算边界，否则使用本地时区
	UTC bool
	// Compress 轮转后 gzip 压缩历史文件
	Compress bool
	// Clock 时间源，测试时可替换
	Clock func() time.Time
}

type rotationRule struct {
	unit   time.Duration
	layout string
	suffix *regexp.Regexp
	// spec cron 表达式，空闲时按它检查是否到期
	spec string
}

var rotationRules = map[string]rotationRule{
	WhenMidnight: {24 * time.Hour, "2006-01-02", regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})(\.\d+)?(\.gz)?$`), "0 0 * * *"},
	WhenDay:      {24 * time.Hour, "2006-01-02", regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})(\.\d+)?(\.gz)?$`), "@every 1m"},
	WhenHour:     {time.Hour, "2006-01-02_15", regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}_\d{2})(\.\d+)?(\.gz)?$`), "@every 1m"},
	WhenMinute:   {time.Minute, "2006-01-02_15-04", regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}_\d{2}-\d{2})(\.\d+)?(\.gz)?$`), "@every 1s"},
	WhenSecond:   {time.Second, "2006-01-02_15-04-05", regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2})(\.\d+)?(\.gz)?$`), "@every 1s"},
}

// RotatingFileSink 按时间轮转的文件输出
// 到达边界时关闭当前文件，重命名为 <path>.<周期起点>，再打开新文件；
// 整个过程持有与写入相同的锁，边界前后的记录不会丢失也不会重复。
type RotatingFileSink struct {
	opts       RotationOptions
	rule       rotationRule
	loc        *time.Location
	file       *os.File
	rolloverAt time.Time
	closed     bool
	mu         sync.Mutex
}

// NewRotatingFileSink 创建轮转文件输出，已有文件以追加方式打开
func NewRotatingFileSink(opts RotationOptions) (*RotatingFileSink, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("rotating file: path is required")
	}
	if opts.When == "" {
		opts.When = WhenMidnight
	}
	rule, ok := rotationRules[opts.When]
	if !ok {
		return nil, fmt.Errorf("rotating file: unknown when %q", opts.When)
	}
	if opts.Interval <= 0 {
		opts.Interval = 1
	}
	if opts.BackupCount < 0 {
		return nil, fmt.Errorf("rotating file: backup count must be non-negative")
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	s := &RotatingFileSink{
		opts: opts,
		rule: rule,
		loc:  time.Local,
	}
	if opts.UTC {
		s.loc = time.UTC
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return nil, fmt.Errorf("rotating file: %w", err)
	}
	if err := s.open(); err != nil {
		return nil, err
	}

	// 以文件修改时间为起点，重启后过期的文件会在第一次写入时轮转
	start := s.now()
	if info, err := s.file.Stat(); err == nil && info.Size() > 0 {
		start = info.ModTime().In(s.loc)
	}
	s.rolloverAt = s.nextRollover(start)
	return s, nil
}

// Path 返回当前文件路径
func (s *RotatingFileSink) Path() string {
	return s.opts.Path
}

// CronSpec 返回空闲时检查轮转的调度表达式
func (s *RotatingFileSink) CronSpec() string {
	if s.opts.UTC && !strings.HasPrefix(s.rule.spec, "@") {
		return "CRON_TZ=UTC " + s.rule.spec
	}
	return s.rule.spec
}

// RolloverAt 返回下一次轮转时间
func (s *RotatingFileSink) RolloverAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rolloverAt
}

// Write 实现 Sink
func (s *RotatingFileSink) Write(p []byte, rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}

	var rollErr error
	if now := s.now(); !now.Before(s.rolloverAt) {
		rollErr = s.rollover(now)
	}

	if s.file == nil {
		if err := s.open(); err != nil {
			return err
		}
	}
	if _, err := s.file.Write(p); err != nil {
		return err
	}
	return rollErr
}

// RolloverIfDue 到期则轮转，供调度器在空闲时调用
func (s *RotatingFileSink) RolloverIfDue() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	if now := s.now(); !now.Before(s.rolloverAt) {
		return s.rollover(now)
	}
	return nil
}

// Close 关闭文件
func (s *RotatingFileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func (s *RotatingFileSink) now() time.Time {
	return s.opts.Clock().In(s.loc)
}

func (s *RotatingFileSink) open() error {
	f, err := os.OpenFile(s.opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("rotating file: %w", err)
	}
	s.file = f
	return nil
}

// nextRollover 计算 t 之后的下一个边界
func (s *RotatingFileSink) nextRollover(t time.Time) time.Time {
	t = t.In(s.loc)
	if s.opts.When == WhenMidnight {
		y, m, d := t.Date()
		return time.Date(y, m, d+1, 0, 0, 0, 0, s.loc)
	}
	return t.Add(time.Duration(s.opts.Interval) * s.rule.unit)
}

// periodStart 返回即将关闭的周期的起点，用作历史文件后缀
func (s *RotatingFileSink) periodStart() time.Time {
	if s.opts.When == WhenMidnight {
		return s.rolloverAt.AddDate(0, 0, -1)
	}
	return s.rolloverAt.Add(-time.Duration(s.opts.Interval) * s.rule.unit)
}

// rollover 调用方持有锁
func (s *RotatingFileSink) rollover(now time.Time) error {
	var errs []error

	if s.file != nil {
		if err := s.file.Close(); err != nil {
			errs = append(errs, err)
		}
		s.file = nil
	}

	target := s.uniqueName(s.opts.Path + "." + s.periodStart().Format(s.rule.layout))
	if err := os.Rename(s.opts.Path, target); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("rotating file: rename: %w", err))
	} else if err == nil && s.opts.Compress {
		if err := compressFile(target); err != nil {
			errs = append(errs, err)
		}
	}

	if err := s.open(); err != nil {
		errs = append(errs, err)
	}

	next := s.nextRollover(s.rolloverAt)
	for !next.After(now) {
		next = s.nextRollover(next)
	}
	s.rolloverAt = next

	if err := s.purge(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("rotating file %s: %v", s.opts.Path, errs)
	}
	return nil
}

// uniqueName 同一周期重复轮转时追加序号
func (s *RotatingFileSink) uniqueName(name string) string {
	candidate := name
	for i := 1; exists(candidate) || exists(candidate+".gz"); i++ {
		candidate = name + "." + strconv.Itoa(i)
	}
	return candidate
}

// purge 删除超出 BackupCount 的最旧历史文件
func (s *RotatingFileSink) purge() error {
	if s.opts.BackupCount == 0 {
		return nil
	}

	backups, err := s.backups()
	if err != nil {
		return err
	}
	if len(backups) <= s.opts.BackupCount {
		return nil
	}

	var errs []error
	for _, name := range backups[:len(backups)-s.opts.BackupCount] {
		if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("rotating file: purge: %v", errs)
	}
	return nil
}

// backups 列出历史文件，按时间从旧到新排序
func (s *RotatingFileSink) backups() ([]string, error) {
	dir, base := filepath.Split(s.opts.Path)
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("rotating file: %w", err)
	}

	prefix := base + "."
	var found []backupFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) {
			continue
		}
		if m := s.rule.suffix.FindStringSubmatch(name[len(prefix):]); m != nil {
			b := backupFile{path: filepath.Join(dir, name), period: m[1]}
			if m[2] != "" {
				b.counter, _ = strconv.Atoi(m[2][1:])
			}
			found = append(found, b)
		}
	}

	// 周期后缀定长可按字典序比较，同一周期内按序号数值排序
	sort.Slice(found, func(i, j int) bool {
		if found[i].period != found[j].period {
			return found[i].period < found[j].period
		}
		return found[i].counter < found[j].counter
	})

	result := make([]string, len(found))
	for i, b := range found {
		result[i] = b.path
	}
	return result, nil
}

type backupFile struct {
	path    string
	period  string
	counter int
}

func exists(name string) bool {
	_, err := os.Stat(name)
	return err == nil
}

// compressFile 压缩为 name.gz 并删除原文件
func compressFile(name string) error {
	in, err := os.Open(name)
	if err != nil {
		return fmt.Errorf("rotating file: compress: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(name+".gz", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("rotating file: compress: %w", err)
	}

	zw := gzip.NewWriter(out)
	_, copyErr := io.Copy(zw, in)
	closeErr := zw.Close()
	fileErr := out.Close()
	for _, err := range []error{copyErr, closeErr, fileErr} {
		if err != nil {
			os.Remove(name + ".gz")
			return fmt.Errorf("rotating file: compress: %w", err)
		}
	}

	in.Close()
	return os.Remove(name)
}
