// sdd-engine: Spec-Driven Development workflow server.
//
// Serves the workflow engine, the constitution checker, Phase -1 review
// gates and the artifact validator over MCP (stdio transport).
//
// Usage:
//
//	sdd-engine serve             # Start MCP server (stdio transport)
//	sdd-engine init              # Write the default sdd/sdd.yaml
//	sdd-engine history <feature> # Show compliance run history
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	sddserver "github.com/HendryAvila/sdd-engine/internal/server"
)

var rootFlags struct {
	root     string
	logLevel string
}

var rootCmd = &cobra.Command{
	Use:   "sdd-engine",
	Short: "Spec-Driven Development workflow server",
	Long: "sdd-engine tracks features through a staged workflow, checks source files\n" +
		"against the development constitution, and manages Phase -1 review gates.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&rootFlags.root, "root", "", "Project root (default: nearest directory with sdd/)")
	f.StringVar(&rootFlags.logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.Version = sddserver.Version
}

// newLogger writes to stderr so logs never interfere with the MCP
// stdio transport on stdout.
func newLogger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(rootFlags.logLevel)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q", rootFlags.logLevel)
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
