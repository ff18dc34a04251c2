package cmd

import (
	"fmt"
	"os"

	"github.com/gocrud/bitlog/logconf"
	"github.com/spf13/cobra"
)

// DefaultLogDir 相对日志文件默认写入的目录
const DefaultLogDir = "logs"

// globalOptions 所有子命令共享的参数
type globalOptions struct {
	configFile string
	logDir     string
	envPrefix  string
	debug      bool
}

// logconfOptions 将命令行参数转换为 logconf 选项，控制台输出跟随命令的输出流
func (g *globalOptions) logconfOptions(cmd *cobra.Command) []logconf.Option {
	opts := []logconf.Option{
		logconf.WithDebug(g.debug),
		logconf.WithEnvPrefix(g.envPrefix),
		logconf.WithOutput(cmd.OutOrStdout(), cmd.ErrOrStderr()),
	}
	if g.logDir != "" {
		opts = append(opts, logconf.WithLogDir(g.logDir))
	}
	return opts
}

// NewRootCommand 创建 bitlog 根命令
func NewRootCommand() *cobra.Command {
	g := &globalOptions{}

	root := &cobra.Command{
		Use:   "bitlog",
		Short: "bitlog: hierarchical logging for coinbitrage services",
		Long: `bitlog loads a logging configuration document, builds the logger tree
and routes records to console, rotating files, Redis, MongoDB or SQL sinks.

Without -c the embedded default configuration is used.`,
		SilenceUsage: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&g.configFile, "config", "c", "", "logging config file (yaml or json)")
	flags.StringVar(&g.logDir, "log-dir", DefaultLogDir, "directory for relative log file names, created if missing")
	flags.StringVar(&g.envPrefix, "env-prefix", logconf.EnvPrefix, "environment override prefix, empty to disable")
	flags.BoolVar(&g.debug, "debug", false, "lower console handlers to DEBUG")

	root.AddCommand(
		newCheckCommand(g),
		newEmitCommand(g),
		newServeCommand(g),
	)
	return root
}

// Execute 执行根命令，出错时以状态码 1 退出
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
