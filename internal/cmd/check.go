package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/gocrud/bitlog"
	"github.com/gocrud/bitlog/logconf"
	"github.com/gocrud/bitlog/logging"
	"github.com/spf13/cobra"
)

func newCheckCommand(g *globalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate a logging configuration and print the logger tree",
		Long: `Load and link the configuration document, then print every configured
logger and handler. Every configuration problem is listed and the command
exits with status 1.

Examples:
  bitlog check -c log_config.yaml
  bitlog check -c log_config.json --output json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if g.configFile != "" {
				if _, err := os.Stat(g.configFile); err != nil {
					return err
				}
			}
			m, err := bitlog.LoadLogging(g.configFile, g.logconfOptions(cmd)...)
			if err != nil {
				printProblems(cmd.ErrOrStderr(), err)
				return errors.New("configuration is invalid")
			}
			defer m.Close()

			tree := m.Describe()
			switch strings.ToLower(output) {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(tree)
			case "text":
				return printTree(cmd.OutOrStdout(), tree)
			default:
				return fmt.Errorf("unknown output format %q", output)
			}
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text, json")
	return cmd
}

func printProblems(w io.Writer, err error) {
	var cfgErr *logconf.ConfigError
	if !errors.As(err, &cfgErr) {
		fmt.Fprintf(w, "error: %v\n", err)
		return
	}
	fmt.Fprintf(w, "%d configuration problem(s):\n", len(cfgErr.Problems))
	for _, p := range cfgErr.Problems {
		fmt.Fprintf(w, "  - %v\n", p)
	}
}

func printTree(w io.Writer, tree logging.TreeInfo) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "LOGGER\tLEVEL\tEFFECTIVE\tPROPAGATE\tHANDLERS")
	for _, l := range tree.Loggers {
		name := l.Name
		if l.Disabled {
			name += " (disabled)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", name, l.Level, l.EffectiveLevel, l.Propagate, strings.Join(l.Handlers, ","))
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "HANDLER\tLEVEL\tFORMATTER\tFILTERS\tSINK")
	for _, h := range tree.Handlers {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", h.Name, h.Level, h.Formatter, h.Filters, h.Sink)
	}
	return tw.Flush()
}
