package logconf

import (
	"github.com/gocrud/bitlog/logging"
	"github.com/gocrud/bitlog/sinks"
)

// registerStorageHandlers 注册外部存储输出
func registerStorageHandlers(r *Registry) {
	r.RegisterHandler("redis", newRedisHandler)
	r.RegisterHandler("mongodb", newMongoHandler, "mongo")
	r.RegisterHandler("sql", newSQLHandler, "sqlite")
}

func newRedisHandler(p *Params, env Env) (Opener, error) {
	opts := sinks.NewDefaultRedisOptions()
	opts.Addr = p.String("addr", opts.Addr)
	opts.Password = p.String("password", opts.Password)
	opts.DB = p.Int("db", opts.DB)
	opts.Key = p.String("key", opts.Key)
	opts.Mode = p.String("mode", opts.Mode)
	opts.MaxLen = int64(p.Int("max_len", int(opts.MaxLen)))
	opts.DialTimeout = p.Duration("dial_timeout", opts.DialTimeout)
	opts.WriteTimeout = p.Duration("write_timeout", opts.WriteTimeout)
	opts.PoolSize = p.Int("pool_size", opts.PoolSize)
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	return func() (logging.Sink, error) {
		return sinks.NewRedisSink(*opts)
	}, nil
}

func newMongoHandler(p *Params, env Env) (Opener, error) {
	opts := sinks.NewDefaultMongoOptions()
	opts.URI = p.String("uri", opts.URI)
	opts.Username = p.String("username", opts.Username)
	opts.Password = p.String("password", opts.Password)
	opts.Database = p.String("database", opts.Database)
	opts.Collection = p.String("collection", opts.Collection)
	opts.Timeout = p.Duration("timeout", opts.Timeout)
	opts.Ping = p.Bool("ping", opts.Ping)
	if n := p.Int("max_pool_size", int(opts.MaxPoolSize)); n >= 0 {
		opts.MaxPoolSize = uint64(n)
	} else {
		p.Errorf("max_pool_size must not be negative")
	}
	if n := p.Int("min_pool_size", int(opts.MinPoolSize)); n >= 0 {
		opts.MinPoolSize = uint64(n)
	} else {
		p.Errorf("min_pool_size must not be negative")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	return func() (logging.Sink, error) {
		return sinks.NewMongoSink(*opts)
	}, nil
}

func newSQLHandler(p *Params, env Env) (Opener, error) {
	opts := sinks.NewDefaultSQLOptions()
	opts.Driver = p.String("driver", opts.Driver)
	opts.DSN = p.String("dsn", "")
	if opts.Driver == "sqlite" && opts.DSN != "" && opts.DSN != ":memory:" {
		opts.DSN = env.ResolvePath(opts.DSN)
	}
	opts.Table = p.String("table", opts.Table)
	opts.AutoMigrate = p.Bool("auto_migrate", opts.AutoMigrate)
	opts.MaxOpenConns = p.Int("max_open_conns", opts.MaxOpenConns)
	opts.Timeout = p.Duration("timeout", opts.Timeout)
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	return func() (logging.Sink, error) {
		return sinks.NewSQLSink(*opts)
	}, nil
}
