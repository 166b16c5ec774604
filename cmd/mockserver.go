package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"mcpask/internal/mockserver"
)

var mockServerName string

// mockServerCmd serves the built-in demonstration tools over stdio, so a
// configuration can point at "mcpask mock-server" to try the pipeline.
var mockServerCmd = &cobra.Command{
	Use:    "mock-server",
	Short:  "Run the built-in MCP mock tool server on stdio",
	Args:   cobra.NoArgs,
	Hidden: true,
	Annotations: map[string]string{
		skipSettingsAnnotation: "true",
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := interruptibleContext(cmd.Context())
		defer cancel()

		return mockserver.New(mockServerName, rootCmd.Version).ServeStdio(ctx, os.Stdin, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(mockServerCmd)

	mockServerCmd.Flags().StringVar(&mockServerName, "name", mockserver.DefaultName, "Server name reported in the initialize response")
}
