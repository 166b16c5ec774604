package cmd

import (
	"github.com/spf13/cobra"

	"mcpask/internal/agent"
	"mcpask/internal/mcpserver"
)

var chatHistoryFile string

// chatCmd runs an interactive multi-turn conversation.
var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the model with the configured MCP tools",
	Long: `Starts every enabled MCP server from the configuration and opens an
interactive conversation. The servers stay connected for the whole
conversation and are stopped when it ends.

Type 'quit', 'exit' or 'q', or press Ctrl-C or Ctrl-D, to leave.
Inside the chat:
  /tools   list the tools offered to the model
  /copy    copy the last answer to the clipboard`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	registry, err := mcpserver.LoadFile(settings.MCPConfig)
	if err != nil {
		return err
	}
	model, err := newModel()
	if err != nil {
		return err
	}

	ctx, cancel := interruptibleContext(cmd.Context())
	defer cancel()

	out := cmd.OutOrStdout()
	runner := agent.NewRunner(newOrchestrator(out), model, out, newStyles(out))
	return runner.Chat(ctx, registry, func() (agent.LineReader, error) {
		return agent.NewLineReader(chatHistoryFile)
	})
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().StringVar(&chatHistoryFile, "history-file", "", "File to keep the prompt history in (default: in the temp directory)")
}
