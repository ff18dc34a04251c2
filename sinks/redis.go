package sinks

import (
	"context"
	"fmt"
	"time"

	"github.com/gocrud/bitlog/logging"
	"github.com/redis/go-redis/v9"
)

// Redis 写入方式
const (
	RedisModeList   = "list"
	RedisModeStream = "stream"
)

// RedisOptions Redis 输出配置
type RedisOptions struct {
	Addr         string        // Redis 服务器地址 (host:port)
	Password     string        // 密码（可选）
	DB           int           // 数据库编号
	Key          string        // 列表或 stream 的键
	Mode         string        // list 使用 RPUSH，stream 使用 XADD
	MaxLen       int64         // stream 近似最大长度，0 表示不裁剪
	DialTimeout  time.Duration // 连接超时时间
	WriteTimeout time.Duration // 单条写入超时时间
	PoolSize     int           // 连接池大小
}

// NewDefaultRedisOptions 创建默认配置
func NewDefaultRedisOptions() *RedisOptions {
	return &RedisOptions{
		Addr:         "localhost:6379",
		Key:          "bitlog",
		Mode:         RedisModeList,
		DialTimeout:  5 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	}
}

// Validate 验证配置
func (o *RedisOptions) Validate() error {
	if o.Addr == "" {
		return fmt.Errorf("redis address is required")
	}
	if o.Key == "" {
		return fmt.Errorf("redis key is required")
	}
	if o.Mode != RedisModeList && o.Mode != RedisModeStream {
		return fmt.Errorf("redis mode must be %q or %q, got %q", RedisModeList, RedisModeStream, o.Mode)
	}
	if o.DB < 0 {
		return fmt.Errorf("redis database number must be non-negative")
	}
	if o.MaxLen < 0 {
		return fmt.Errorf("redis max length must be non-negative")
	}
	if o.WriteTimeout <= 0 {
		return fmt.Errorf("redis write timeout must be positive")
	}
	return nil
}

// RedisClient RedisSink 用到的客户端方法，*redis.Client 满足该接口
type RedisClient interface {
	RPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// RedisSink 把日志推送到 Redis 列表或 stream
type RedisSink struct {
	client RedisClient
	opts   RedisOptions
}

// NewRedisSink 按配置创建客户端，连接在第一次写入时建立
func NewRedisSink(opts RedisOptions) (*RedisSink, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		WriteTimeout: opts.WriteTimeout,
		PoolSize:     opts.PoolSize,
	})
	return &RedisSink{client: client, opts: opts}, nil
}

// NewRedisSinkWithClient 使用已有客户端
func NewRedisSinkWithClient(client RedisClient, opts RedisOptions) (*RedisSink, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &RedisSink{client: client, opts: opts}, nil
}

// Write 实现 logging.Sink
func (s *RedisSink) Write(p []byte, rec *logging.Record) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.WriteTimeout)
	defer cancel()

	if s.opts.Mode == RedisModeList {
		if err := s.client.RPush(ctx, s.opts.Key, string(p)).Err(); err != nil {
			return fmt.Errorf("redis rpush %s: %w", s.opts.Key, err)
		}
		return nil
	}

	args := &redis.XAddArgs{
		Stream: s.opts.Key,
		Values: map[string]any{
			"time":       rec.Time.UTC().Format(time.RFC3339Nano),
			"level":      rec.Level.String(),
			"logger":     rec.Logger,
			"message":    rec.Message,
			"event_name": rec.EventName,
			"line":       string(p),
		},
	}
	if s.opts.MaxLen > 0 {
		args.MaxLen = s.opts.MaxLen
		args.Approx = true
	}
	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("redis xadd %s: %w", s.opts.Key, err)
	}
	return nil
}

// Close 关闭客户端
func (s *RedisSink) Close() error {
	return s.client.Close()
}
