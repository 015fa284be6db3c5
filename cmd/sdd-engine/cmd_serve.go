package main

import (
	"fmt"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	sddserver "github.com/HendryAvila/sdd-engine/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server on stdio",
	Long: "Start the MCP server on stdio. Add it to your AI tool's MCP config:\n\n" +
		"  {\n" +
		"    \"mcpServers\": {\n" +
		"      \"sdd-engine\": {\n" +
		"        \"command\": \"sdd-engine\",\n" +
		"        \"args\": [\"serve\"]\n" +
		"      }\n" +
		"    }\n" +
		"  }",
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	s, cleanup, err := sddserver.New(sddserver.Options{Root: rootFlags.root, Logger: logger})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	return server.ServeStdio(s)
}
