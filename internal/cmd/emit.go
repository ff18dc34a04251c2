package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gocrud/bitlog"
	"github.com/gocrud/bitlog/logging"
	"github.com/spf13/cobra"
)

func newEmitCommand(g *globalOptions) *cobra.Command {
	var (
		loggerName string
		levelName  string
		event      string
		data       []string
	)

	cmd := &cobra.Command{
		Use:   "emit MESSAGE",
		Short: "Emit one record through the configured logger tree",
		Long: `Emit a single record from the named logger. {key} placeholders in the
message are replaced by --data values.

Examples:
  bitlog emit -c log_config.yaml --logger coinbitrage.orders --event order.placed \
    --data id=42 --data price=101.5 "placed order {id} at {price}"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := logging.ParseLevel(levelName)
			if err != nil {
				return err
			}
			values, err := parseData(data)
			if err != nil {
				return err
			}

			m, err := bitlog.LoadLogging(g.configFile, g.logconfOptions(cmd)...)
			if err != nil {
				printProblems(cmd.ErrOrStderr(), err)
				return fmt.Errorf("configuration is invalid")
			}

			var opts []any
			if event != "" {
				opts = append(opts, logging.Event(event))
			}
			if len(values) > 0 {
				opts = append(opts, logging.Data(values))
			}
			m.GetLogger(loggerName).Log(level, args[0], opts...)

			// 关闭时等待异步 Handler 写完
			return m.Close()
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&loggerName, "logger", logging.RootLoggerName, "logger name, dotted")
	flags.StringVar(&levelName, "level", "INFO", "record level")
	flags.StringVar(&event, "event", "", "event name, e.g. order.placed.success")
	flags.StringArrayVar(&data, "data", nil, "event data as key=value, repeatable")
	return cmd
}

// parseData 解析 key=value，数字与布尔值按类型保存
func parseData(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	values := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --data %q, expected key=value", pair)
		}
		values[key] = typedValue(value)
	}
	return values, nil
}

func typedValue(s string) any {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return s
}
