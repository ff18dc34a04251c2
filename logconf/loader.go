package logconf

import (
	_ "embed"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gocrud/bitlog/config"
	"github.com/gocrud/bitlog/logging"
)

// EnvPrefix 环境变量覆盖的默认前缀
// 例如 BITLOG_HANDLERS__CONSOLE__LEVEL=DEBUG
const EnvPrefix = "BITLOG_"

//go:embed default.yaml
var defaultDocument []byte

// DefaultDocument 返回内置的 coinbitrage 配置文档
func DefaultDocument() []byte {
	return append([]byte(nil), defaultDocument...)
}

type options struct {
	debug     bool
	envPrefix string
	etcd      *config.EtcdOptions
	registry  *Registry
	env       Env
	reporter  logging.ErrorReporter
}

// Option 加载选项
type Option func(*options)

func newOptions(opts []Option) *options {
	o := &options{envPrefix: EnvPrefix}
	for _, opt := range opts {
		opt(o)
	}
	if o.registry == nil {
		o.registry = DefaultRegistry()
	}
	return o
}

// WithDebug 调试模式：console 处理器降为 DEBUG，并保留已有 Logger
func WithDebug(debug bool) Option {
	return func(o *options) {
		o.debug = debug
	}
}

// WithLogDir 相对文件名按该目录解析，目录不存在时创建
func WithLogDir(dir string) Option {
	return func(o *options) {
		o.env.LogDir = dir
	}
}

// WithEnvPrefix 修改环境变量前缀，空字符串表示不读取环境变量
func WithEnvPrefix(prefix string) Option {
	return func(o *options) {
		o.envPrefix = prefix
	}
}

// WithEtcd 在文件和环境变量之后叠加 etcd 中的配置
func WithEtcd(opts config.EtcdOptions) Option {
	return func(o *options) {
		o.etcd = &opts
	}
}

// WithRegistry 使用自定义注册表
func WithRegistry(r *Registry) Option {
	return func(o *options) {
		o.registry = r
	}
}

// WithOutput 替换 console 处理器的标准输出和标准错误
func WithOutput(stdout, stderr io.Writer) Option {
	return func(o *options) {
		o.env.Stdout = stdout
		o.env.Stderr = stderr
	}
}

// WithClock 替换记录和轮转使用的时间源
func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		o.env.Clock = clock
	}
}

// WithErrorReporter 替换运行期错误的报告方式
func WithErrorReporter(r logging.ErrorReporter) Option {
	return func(o *options) {
		o.reporter = r
	}
}

// Load 读取配置文件并链接成日志上下文
// .json 按 JSON 解析，其他扩展名按 YAML 解析
func Load(path string, opts ...Option) (*logging.Manager, error) {
	doc, err := ReadFile(path, opts...)
	if err != nil {
		return nil, err
	}
	return Link(doc, opts...)
}

// Parse 解析内存中的文档并链接成日志上下文
func Parse(data []byte, opts ...Option) (*logging.Manager, error) {
	doc, err := Read(data, opts...)
	if err != nil {
		return nil, err
	}
	return Link(doc, opts...)
}

// Default 使用内置的 coinbitrage 文档
func Default(opts ...Option) (*logging.Manager, error) {
	return Parse(defaultDocument, opts...)
}

// ReadFile 读取配置文件，叠加环境变量和 etcd 覆盖，不做链接
func ReadFile(path string, opts ...Option) (*Document, error) {
	builder := config.NewConfigurationBuilder()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		builder.AddJsonFile(path)
	} else {
		builder.AddYamlFile(path)
	}
	return read(builder, newOptions(opts))
}

// Read 解析内存中的文档，叠加环境变量和 etcd 覆盖，不做链接
func Read(data []byte, opts ...Option) (*Document, error) {
	builder := config.NewConfigurationBuilder().AddYaml("document", data)
	return read(builder, newOptions(opts))
}

func read(builder *config.ConfigurationBuilder, o *options) (*Document, error) {
	if o.envPrefix != "" {
		builder.AddEnvironmentVariables(o.envPrefix, "__")
	}
	if o.etcd != nil {
		builder.AddEtcd(*o.etcd)
	}

	cfg, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("logconf: %w", err)
	}
	doc, err := config.Load[Document](cfg, "")
	if err != nil {
		return nil, fmt.Errorf("logconf: %w", err)
	}
	return &doc, nil
}
