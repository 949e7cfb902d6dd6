package main

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/copyleftdev/boxmin/internal/logging"
)

type rootOptions struct {
	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "boxmin",
		Short: "Bounded local minimization of benchmark objectives",
		Long: `boxmin runs the box-constrained BFGS minimizer with boundary restarts,
and the one-dimensional Brent and safeguarded Newton searches, against the
built-in benchmark objectives. Results are printed as JSON on stdout; logs go
to stderr.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "Log format (json, text)")

	cmd.AddCommand(newMinimizeCmd(opts))
	cmd.AddCommand(newUnivariateCmd(opts))
	return cmd
}

// zapLogger builds the logger handed to the numerical packages. Entries go
// to w so they never mix with the JSON result.
func (o *rootOptions) zapLogger(w io.Writer) *zap.Logger {
	logger := logging.New(logging.ParseLevel(o.logLevel), w)
	if strings.EqualFold(o.logFormat, string(logging.TextFormat)) {
		logger = logger.WithFormat(logging.TextFormat)
	}
	return logging.NewZapLogger(logger)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
