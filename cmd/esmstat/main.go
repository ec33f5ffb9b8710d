package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matzehuels/esmstat/internal/cli"
	errs "github.com/matzehuels/esmstat/pkg/errors"
)

// Exit statuses.
const (
	exitFailure     = 1   // crawl, store or registry failure
	exitUsage       = 2   // the run could not start: bad input, config or token
	exitInterrupted = 130 // SIGINT or SIGTERM
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err := run(ctx)
	code := exitCode(err)
	if code != 0 && code != exitInterrupted {
		fmt.Fprintf(os.Stderr, "esmstat: %v\n", err)
	}
	os.Exit(code)
}

// exitCode maps the error a command returned to the process exit status.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	}
	switch errs.GetCode(err) {
	case errs.ErrCodeInvalidInput, errs.ErrCodeInvalidPackage, errs.ErrCodeInvalidPolicy,
		errs.ErrCodeInvalidConfig, errs.ErrCodeInvalidSnapshot, errs.ErrCodeMissingToken:
		return exitUsage
	}
	return exitFailure
}

func run(ctx context.Context) error {
	var verbose, quiet bool

	c := cli.New(os.Stderr, cli.LogInfo)
	root := c.RootCommand()

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level, including per-package outcomes")
	root.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "log warnings and errors only")
	root.MarkFlagsMutuallyExclusive("verbose", "quiet")

	preRun := root.PersistentPreRunE
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		c.SetLogLevel(logLevel(verbose, quiet))
		if preRun != nil {
			return preRun(cmd, args)
		}
		return nil
	}

	return root.ExecuteContext(ctx)
}

func logLevel(verbose, quiet bool) cli.LogLevel {
	switch {
	case verbose:
		return cli.LogDebug
	case quiet:
		return cli.LogWarn
	}
	return cli.LogInfo
}
