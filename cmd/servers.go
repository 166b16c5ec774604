package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mcpask/internal/mcpserver"
	"mcpask/internal/orchestrator"
	"mcpask/internal/reporting"
)

// serversCmd connects to every configured server and shows what it offers.
var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "Check the configured MCP servers and list their tools",
	Long: `Starts every enabled MCP server from the configuration, runs the initialize
handshake, lists the tools of the servers that connected and stops them again.
No model is called. Use it to debug an mcp.json file.`,
	Args: cobra.NoArgs,
	RunE: runServers,
}

func runServers(cmd *cobra.Command, args []string) error {
	registry, err := mcpserver.LoadFile(settings.MCPConfig)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if registry.Len() == 0 && len(registry.Disabled()) == 0 {
		fmt.Fprintf(out, "No MCP servers configured in %s\n", settings.MCPConfig)
		return nil
	}

	ctx, cancel := interruptibleContext(cmd.Context())
	defer cancel()

	return newOrchestrator(out).WithSessions(ctx, registry, func(ctx context.Context, result *orchestrator.Result) error {
		rows := serverRows(ctx, registry, result)
		fmt.Fprintln(out)
		reporting.WriteServerTable(out, rows, newStyles(out))
		return nil
	})
}

// serverRows describes every configured server, enabled ones in
// configuration order followed by the disabled ones.
func serverRows(ctx context.Context, registry *mcpserver.Registry, result *orchestrator.Result) []reporting.ServerRow {
	rows := make([]reporting.ServerRow, 0, registry.Len()+len(registry.Disabled()))
	for _, name := range registry.Names() {
		session, ok := result.Session(name)
		if !ok {
			detail := "not attempted"
			if err := result.Failures[name]; err != nil {
				detail = err.Error()
			}
			rows = append(rows, reporting.ServerRow{Name: name, Status: reporting.StatusFailed, Detail: detail})
			continue
		}

		info := session.ServerInfo()
		row := reporting.ServerRow{
			Name:   name,
			Status: reporting.StatusConnected,
			Detail: strings.TrimSpace(fmt.Sprintf("%s %s (protocol %s)", info.Name, info.Version, session.ProtocolVersion())),
		}
		tools, err := session.ListTools(ctx)
		if err != nil {
			row.Detail += "; tools/list failed: " + err.Error()
		}
		for _, tool := range tools {
			row.Tools = append(row.Tools, tool.Name)
		}
		rows = append(rows, row)
	}

	for _, name := range registry.Disabled() {
		rows = append(rows, reporting.ServerRow{Name: name, Status: reporting.StatusDisabled})
	}
	return rows
}

func init() {
	rootCmd.AddCommand(serversCmd)
}
