package reporting

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"mcpask/internal/color"
)

// ConsoleReporter writes one status line per connection attempt.
// Lines always carry the server name and a ✅/❌ marker so the outcome stays
// readable when colors are disabled.
type ConsoleReporter struct {
	mu     sync.Mutex
	out    io.Writer
	styles color.Styles
}

// NewConsoleReporter creates a ConsoleReporter writing to out.
func NewConsoleReporter(out io.Writer, useColor bool) *ConsoleReporter {
	return &ConsoleReporter{
		out:    out,
		styles: color.NewStyles(out, useColor),
	}
}

func (c *ConsoleReporter) Starting(names []string) {
	c.println(fmt.Sprintf("Starting %d MCP %s: %s", len(names), plural(len(names), "server", "servers"), formatNames(names)))
}

func (c *ConsoleReporter) Connected(name string) {
	c.println(c.styles.Success.Render("✅ Connected to MCP server: " + name))
}

func (c *ConsoleReporter) Failed(name string, err error) {
	c.println(c.styles.Failure.Render(fmt.Sprintf("❌ Failed to connect to MCP server %s: %v", name, err)))
}

func (c *ConsoleReporter) PartialFailure(failed []string) {
	if len(failed) == 0 {
		return
	}
	c.println(c.styles.Warning.Render("The following servers failed to connect; continuing with the others: " + formatNames(failed)))
}

func (c *ConsoleReporter) NoSessions(attempted int) {
	c.println(c.styles.Warning.Render(fmt.Sprintf("None of the %d configured MCP %s connected; continuing without tools",
		attempted, plural(attempted, "server", "servers"))))
}

func (c *ConsoleReporter) println(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, line)
}

func formatNames(names []string) string {
	return "[" + strings.Join(names, ", ") + "]"
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
