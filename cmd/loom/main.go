package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loom-ui/loom/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

const banner = `
  ╦  ┌─┐┌─┐┌┬┐
  ║  │ ││ ││││
  ╩═╝└─┘└─┘┴ ┴
`

func main() {
	rootCmd := &cobra.Command{
		Use:   "loom",
		Short: "Server-driven reactive UI runtime for Go",
		Long: `Loom runs reactive user interfaces on the server.

Components render inside a priority-scheduled loop; connected
clients receive tree patches over WebSocket and send schedule and
invalidate requests back. Features include:

  • Fine-grained reactive state with signals, memos, and effects
  • Render loop with frame budgets and interruptible passes
  • Keyed tree diffing into minimal patch batches
  • Resumable sessions backed by a patch journal
  • Prometheus metrics and OpenTelemetry tracing`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add commands
	rootCmd.AddCommand(
		serveCmd(),
		benchCmd(),
		versionCmd(),
	)

	// Execute
	if err := rootCmd.Execute(); err != nil {
		errors.PrintError(err)
		os.Exit(1)
	}
}

// printBanner prints the Loom ASCII art banner.
func printBanner() {
	fmt.Print(banner)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}

// info prints an info message.
func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

// warn prints a warning message.
func warn(format string, args ...any) {
	fmt.Printf("\033[33m⚠\033[0m %s\n", fmt.Sprintf(format, args...))
}

// errorMsg prints an error message.
func errorMsg(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "\033[31m✗\033[0m %s\n", fmt.Sprintf(format, args...))
}
