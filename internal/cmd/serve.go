package cmd

import (
	"github.com/gocrud/bitlog"
	"github.com/gocrud/bitlog/web"
	"github.com/spf13/cobra"
)

func newServeCommand(g *globalOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the logging admin HTTP host",
		Long: `Run an HTTP host exposing the logger tree (GET /loggers), per-logger
effective levels (GET /loggers/:name) and record emission (POST /emit).
Stops on SIGINT or SIGTERM and closes every sink.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return bitlog.Run(
				bitlog.WithLogConfig(g.configFile, g.logconfOptions(cmd)...),
				web.New(web.WithPort(port)),
			)
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8080, "listen port")
	return cmd
}
