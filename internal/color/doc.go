// Package color provides the terminal styles used for mcpask's console output.
//
// Styles are built from a lipgloss renderer bound to the destination writer,
// so the color profile follows that writer: a terminal gets colors, while a
// pipe, a file or a bytes.Buffer in tests gets plain text.
//
// # Semantic Styles
//
//   - Success: a server connected
//   - Failure: a server failed to launch or to complete the handshake
//   - Warning: degraded runs (some servers failed, or none connected)
//   - Muted: de-emphasized details such as tool lists
//   - Header: table headers and section titles
//
// # Usage Example
//
//	styles := color.NewStyles(os.Stdout, true)
//	fmt.Fprintln(os.Stdout, styles.Success.Render("✅ Connected to MCP server: git"))
//
// # Environment Variables
//
//   - NO_COLOR: disables all styling, same as passing enabled=false
package color
