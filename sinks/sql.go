package sinks

import (
	"context"
	"fmt"
	"time"

	"github.com/gocrud/bitlog/logging"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// LogRecord SQL 表结构
type LogRecord struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Time      time.Time `gorm:"index"`
	Level     string    `gorm:"size:16;index"`
	LevelNo   int
	Logger    string `gorm:"size:255;index"`
	Message   string
	EventName string `gorm:"size:255;index"`
	EventData string
	Fields    string
	Error     string
	Line      string
}

// SQLOptions SQL 输出配置
type SQLOptions struct {
	Driver       string        // 目前支持 sqlite
	DSN          string        // 连接字符串，sqlite 为文件路径
	Table        string        // 表名
	AutoMigrate  bool          // 启动时自动建表
	MaxOpenConns int           // 最大打开连接数
	Timeout      time.Duration // 单条写入超时时间
}

// NewDefaultSQLOptions 创建默认配置
func NewDefaultSQLOptions() *SQLOptions {
	return &SQLOptions{
		Driver:       "sqlite",
		Table:        "log_records",
		AutoMigrate:  true,
		MaxOpenConns: 1,
		Timeout:      5 * time.Second,
	}
}

// Validate 验证配置
func (o *SQLOptions) Validate() error {
	if o.Driver != "sqlite" {
		return fmt.Errorf("unsupported sql driver %q", o.Driver)
	}
	if o.DSN == "" {
		return fmt.Errorf("sql dsn is required")
	}
	if o.Table == "" {
		return fmt.Errorf("sql table is required")
	}
	if o.MaxOpenConns < 0 {
		return fmt.Errorf("max open conns must be non-negative")
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("sql timeout must be positive")
	}
	return nil
}

// SQLSink 每条记录插入一行
type SQLSink struct {
	db    *gorm.DB
	opts  SQLOptions
	owned bool
}

// NewSQLSink 打开数据库并按需建表
func NewSQLSink(opts SQLOptions) (*SQLSink, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	db, err := gorm.Open(sqlite.Open(opts.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}

	s, err := NewSQLSinkWithDB(db, opts)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewSQLSinkWithDB 使用已有连接，不负责关闭
func NewSQLSinkWithDB(db *gorm.DB, opts SQLOptions) (*SQLSink, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if opts.Table == "" {
		return nil, fmt.Errorf("sql table is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.AutoMigrate {
		if err := db.Table(opts.Table).AutoMigrate(&LogRecord{}); err != nil {
			return nil, fmt.Errorf("auto migrate failed: %w", err)
		}
	}
	return &SQLSink{db: db, opts: opts}, nil
}

// Write 实现 logging.Sink
func (s *SQLSink) Write(p []byte, rec *logging.Record) error {
	e := newEntry(p, rec)
	row := LogRecord{
		ID:        e.ID,
		Time:      e.Time,
		Level:     e.Level.String(),
		LevelNo:   int(e.Level),
		Logger:    e.Logger,
		Message:   e.Message,
		EventName: e.EventName,
		EventData: encodeJSON(e.EventData),
		Fields:    encodeJSON(e.Fields),
		Error:     e.Error,
		Line:      e.Line,
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.Timeout)
	defer cancel()

	if err := s.db.WithContext(ctx).Table(s.opts.Table).Create(&row).Error; err != nil {
		return fmt.Errorf("insert into %s: %w", s.opts.Table, err)
	}
	return nil
}

// DB 返回底层连接
func (s *SQLSink) DB() *gorm.DB {
	return s.db
}

// Close 关闭自己打开的连接
func (s *SQLSink) Close() error {
	if !s.owned {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
