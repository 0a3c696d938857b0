// Package cli implements the hwreport and guestexec command lines.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	nkerrors "github.com/computerscienceiscool/nodekit/internal/errors"
)

var loggingKeys = map[string]string{
	"log-level":  "logging.level",
	"log-format": "logging.format",
	"log-file":   "logging.file",
}

func addLoggingFlags(flags *pflag.FlagSet) {
	flags.String("log-level", "", "Log level: debug, info, warn or error (default info)")
	flags.String("log-format", "", "Log format: console or json (default console)")
	flags.String("log-file", "", "Write logs to this file instead of stderr")
}

// ExecuteHWReport runs hwreport with os.Args and returns the process exit code
func ExecuteHWReport() int {
	return execute(NewHWReportCommand(), os.Args[1:], os.Stderr)
}

// ExecuteGuestExec runs guestexec with os.Args and returns the process exit code
func ExecuteGuestExec() int {
	return execute(NewGuestExecCommand(), os.Args[1:], os.Stderr)
}

// execute runs cmd under a SIGINT/SIGTERM context and maps its error to an exit code
func execute(cmd *cobra.Command, args []string, errOut io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		return nkerrors.ExitCode(err)
	}
	return nkerrors.ExitOK
}
