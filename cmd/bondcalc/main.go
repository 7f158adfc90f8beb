// Package main provides a command line front end to the bond math engine.
//
// Usage:
//
//	bondcalc ops
//	bondcalc eval getLockedBalance collateralizedSupply=100 airdropSupply=100 airdropBalance=100
//	bondcalc eval currentPrice startingTime=0 duration=604800 maxAmount=100 minAmount=50 --now 302400 --json
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"debond-math/internal/engine"
	"debond-math/internal/logging"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		now      int64
		asJSON   bool
		logLevel string
	)

	root := &cobra.Command{
		Use:          "bondcalc",
		Short:        "Evaluate bond math operations",
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVar(&asJSON, "json", false, "print JSON")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	root.AddCommand(opsCmd(&asJSON))

	eval := &cobra.Command{
		Use:   "eval <operation> [name=value ...]",
		Short: "Evaluate one operation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.NewWithWriter(cmd.ErrOrStderr(), logLevel, logging.FormatText)
			if err != nil {
				return err
			}
			opts := engine.Options{Logger: logger}
			if cmd.Flags().Changed("now") {
				pinned := time.Unix(now, 0)
				opts.Clock = func() time.Time { return pinned }
			}

			opArgs, err := parseArgs(args[1:])
			if err != nil {
				return err
			}
			res, err := engine.New(opts).Evaluate(cmd.Context(), args[0], opArgs)
			if err != nil {
				return fmt.Errorf("%w (kind %s)", err, engine.ErrorKind(err))
			}
			return printResult(cmd.OutOrStdout(), res, asJSON)
		},
	}
	eval.Flags().Int64Var(&now, "now", 0, "pin the clock to this unix time (seconds)")
	root.AddCommand(eval)

	return root
}

func opsCmd(asJSON *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "List operations and their arguments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ops := engine.Operations()
			if *asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(ops)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, op := range ops {
				params := make([]string, len(op.Params))
				for i, p := range op.Params {
					params[i] = p.Name
					if p.Optional || p.Default != "" {
						params[i] = "[" + p.Name + "]"
					}
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", op.Name, strings.Join(params, " "), op.Summary)
			}
			return tw.Flush()
		},
	}
}

func parseArgs(pairs []string) (engine.Args, error) {
	args := make(engine.Args, len(pairs))
	for _, kv := range pairs {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("argument %q: want name=value", kv)
		}
		if _, dup := args[name]; dup {
			return nil, fmt.Errorf("argument %q given twice", name)
		}
		args[name] = value
	}
	return args, nil
}

func printResult(w io.Writer, res *engine.Result, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	if res.Progress != nil {
		_, err := fmt.Fprintf(w, "%d %d\n", res.Progress.Achieved, res.Progress.Remaining)
		return err
	}
	_, err := fmt.Fprintln(w, res.Value)
	return err
}
