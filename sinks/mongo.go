package sinks

import (
	"context"
	"fmt"
	"time"

	"github.com/gocrud/bitlog/logging"
	"github.com/gocrud/mgo"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoOptions MongoDB 输出配置
type MongoOptions struct {
	URI         string        // 连接字符串
	Username    string        // 用户名
	Password    string        // 密码
	Database    string        // 数据库名
	Collection  string        // 集合名
	MaxPoolSize uint64        // 最大连接数
	MinPoolSize uint64        // 最小连接数
	Timeout     time.Duration // 连接与单条写入的超时时间
	// Ping 创建时 Ping 一次，服务不可用则立即失败；否则在第一次写入时才建立连接
	Ping bool
}

// NewDefaultMongoOptions 创建默认配置
func NewDefaultMongoOptions() *MongoOptions {
	return &MongoOptions{
		URI:         "mongodb://localhost:27017",
		Database:    "bitlog",
		Collection:  "records",
		MaxPoolSize: 10,
		Timeout:     5 * time.Second,
	}
}

// Validate 验证配置
func (o *MongoOptions) Validate() error {
	if o.URI == "" {
		return fmt.Errorf("mongodb uri is required")
	}
	if o.Database == "" {
		return fmt.Errorf("mongodb database is required")
	}
	if o.Collection == "" {
		return fmt.Errorf("mongodb collection is required")
	}
	if o.Timeout <= 0 {
		return fmt.Errorf("mongodb timeout must be positive")
	}
	if o.MaxPoolSize > 0 && o.MinPoolSize > o.MaxPoolSize {
		return fmt.Errorf("mongodb min pool size exceeds max pool size")
	}
	return nil
}

// clientOptions 构建驱动配置
func (o *MongoOptions) clientOptions() *options.ClientOptions {
	clientOpts := options.Client().ApplyURI(o.URI)
	if o.Username != "" || o.Password != "" {
		clientOpts.SetAuth(options.Credential{
			Username: o.Username,
			Password: o.Password,
		})
	}
	if o.MaxPoolSize > 0 {
		clientOpts.SetMaxPoolSize(o.MaxPoolSize)
	}
	if o.MinPoolSize > 0 {
		clientOpts.SetMinPoolSize(o.MinPoolSize)
	}
	clientOpts.SetConnectTimeout(o.Timeout)
	return clientOpts
}

// MongoRecord 写入 MongoDB 的文档
type MongoRecord struct {
	RecordID  string    `bson:"record_id"`
	Time      time.Time `bson:"time"`
	Level     string    `bson:"level"`
	LevelNo   int       `bson:"levelno"`
	Logger    string    `bson:"logger"`
	Message   string    `bson:"message"`
	EventName string    `bson:"event_name,omitempty"`
	EventData bson.M    `bson:"event_data,omitempty"`
	Fields    bson.M    `bson:"fields,omitempty"`
	Error     string    `bson:"error,omitempty"`
	Line      string    `bson:"line"`
}

// MongoInserter 插入单个文档
type MongoInserter interface {
	InsertOne(ctx context.Context, document any) error
}

type collectionInserter struct {
	coll *mgo.Collection
}

func (c collectionInserter) InsertOne(ctx context.Context, document any) error {
	_, err := c.coll.InsertOne(ctx, document)
	return err
}

// MongoSink 每条记录插入一个文档
type MongoSink struct {
	inserter MongoInserter
	client   *mgo.Client
	owned    bool
	opts     MongoOptions
}

// NewMongoSink 按配置创建客户端，Sink 关闭时断开连接
func NewMongoSink(opts MongoOptions) (*MongoSink, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	var client *mgo.Client
	if opts.Ping {
		ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
		defer cancel()

		c, err := mgo.NewClient(ctx, opts.URI, opts.clientOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to create mongodb client: %w", err)
		}
		client = c
	} else {
		native, err := mongo.Connect(opts.clientOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to create mongodb client: %w", err)
		}
		client = mgo.WrapClient(native)
	}

	s, err := NewMongoSinkWithClient(client, opts)
	if err != nil {
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewMongoSinkWithClient 使用已有客户端，不负责断开连接
func NewMongoSinkWithClient(client *mgo.Client, opts MongoOptions) (*MongoSink, error) {
	if client == nil {
		return nil, fmt.Errorf("mongodb client is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	coll := client.DB(opts.Database).Coll(opts.Collection)
	return &MongoSink{
		inserter: collectionInserter{coll: coll},
		client:   client,
		opts:     opts,
	}, nil
}

// NewMongoSinkWithInserter 使用已有的插入实现，不负责关闭连接
func NewMongoSinkWithInserter(inserter MongoInserter, opts MongoOptions) (*MongoSink, error) {
	if inserter == nil {
		return nil, fmt.Errorf("mongodb inserter is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &MongoSink{inserter: inserter, opts: opts}, nil
}

// Write 实现 logging.Sink
func (s *MongoSink) Write(p []byte, rec *logging.Record) error {
	e := newEntry(p, rec)
	doc := MongoRecord{
		RecordID:  e.ID,
		Time:      e.Time,
		Level:     e.Level.String(),
		LevelNo:   int(e.Level),
		Logger:    e.Logger,
		Message:   e.Message,
		EventName: e.EventName,
		EventData: bson.M(e.EventData),
		Fields:    bson.M(e.Fields),
		Error:     e.Error,
		Line:      e.Line,
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.Timeout)
	defer cancel()

	if err := s.inserter.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("mongodb insert into %s.%s: %w", s.opts.Database, s.opts.Collection, err)
	}
	return nil
}

// Close 断开自己创建的连接
func (s *MongoSink) Close() error {
	if !s.owned {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.Timeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}
