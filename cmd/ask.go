package cmd

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"mcpask/internal/agent"
	"mcpask/internal/mcpserver"
)

var askPrompt string

// askCmd sends a single prompt and prints the answer.
var askCmd = &cobra.Command{
	Use:   "ask [prompt]",
	Short: "Send one prompt to the model with the configured MCP tools",
	Long: `Starts every enabled MCP server from the configuration, sends the prompt to
the model with the tools of the servers that connected, prints the answer and
stops the servers again.

The prompt is taken from --prompt or, if that is empty, from the arguments.`,
	Example: `  mcpask ask -p "What is the weather in Oslo?"
  mcpask ask --mcp-config ./tools.json --provider anthropic "Summarize README.md"`,
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	prompt := strings.TrimSpace(askPrompt)
	if prompt == "" {
		prompt = strings.TrimSpace(strings.Join(args, " "))
	}
	if prompt == "" {
		return errors.New("a prompt is required (use --prompt or pass it as an argument)")
	}

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
	return runner.Ask(ctx, registry, prompt)
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVarP(&askPrompt, "prompt", "p", "", "Prompt to send to the model")
}
