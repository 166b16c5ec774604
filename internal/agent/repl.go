package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/chzyer/readline"

	"mcpask/internal/color"
	"mcpask/internal/llm"
	"mcpask/pkg/logging"
)

// clipboardWriteAll can be replaced in tests.
var clipboardWriteAll = clipboard.WriteAll

// LineReader yields one line of user input per call. It returns
// readline.ErrInterrupt on Ctrl-C and io.EOF on Ctrl-D.
type LineReader interface {
	Readline() (string, error)
	Close() error
}

// NewLineReader returns a readline prompt with history and completion of the
// REPL commands.
func NewLineReader(historyFile string) (LineReader, error) {
	if historyFile == "" {
		historyFile = filepath.Join(os.TempDir(), ".mcpask_chat_history")
	}

	config := &readline.Config{
		Prompt:          "> ",
		HistoryFile:     historyFile,
		AutoComplete:    newCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	}

	rl, err := readline.NewEx(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create readline instance: %w", err)
	}
	return rl, nil
}

func newCompleter() readline.AutoCompleter {
	return readline.NewPrefixCompleter(
		readline.PcItem("/tools"),
		readline.PcItem("/copy"),
		readline.PcItem("/help"),
		readline.PcItem("quit"),
		readline.PcItem("exit"),
	)
}

// filterInput drops Ctrl-Z so it does not suspend the process mid-chat.
func filterInput(r rune) (rune, bool) {
	switch r {
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

// REPL is the read-eval-print loop of a multi-turn chat.
type REPL struct {
	chat   llm.Chat
	lines  LineReader
	out    io.Writer
	styles color.Styles

	lastAnswer string
}

// NewREPL creates a REPL reading prompts from lines and printing answers to out.
func NewREPL(chat llm.Chat, lines LineReader, out io.Writer, styles color.Styles) *REPL {
	return &REPL{
		chat:   chat,
		lines:  lines,
		out:    out,
		styles: styles,
	}
}

// Run reads prompts until quit, exit or q, Ctrl-C, Ctrl-D or cancellation of
// ctx. A failed model call is printed and the conversation continues.
func (r *REPL) Run(ctx context.Context) error {
	defer r.lines.Close()

	fmt.Fprintf(r.out, "Starting multi-turn chat with %s (type 'quit' or 'exit' to leave)\n",
		plural(len(r.chat.Tools()), "tool", "tools"))

	for {
		select {
		case <-ctx.Done():
			r.ended()
			return nil
		default:
		}

		line, err := r.lines.Readline()
		if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
			r.ended()
			return nil
		} else if err != nil {
			return fmt.Errorf("readline error: %w", err)
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		switch strings.ToLower(input) {
		case "quit", "exit", "q":
			r.ended()
			return nil
		case "/tools":
			r.printTools()
			continue
		case "/copy":
			r.copyLastAnswer()
			continue
		case "/help":
			r.printHelp()
			continue
		}

		answer, err := r.chat.Send(ctx, input)
		if err != nil {
			if ctx.Err() != nil {
				r.ended()
				return nil
			}
			var remoteErr *llm.RemoteCallError
			if !errors.As(err, &remoteErr) {
				return err
			}
			logging.Debug("REPL", "Model call failed: %v", err)
			fmt.Fprintln(r.out, r.styles.Failure.Render("Error: "+err.Error()))
			continue
		}

		r.lastAnswer = answer
		fmt.Fprintln(r.out, answer)
		fmt.Fprintln(r.out)
	}
}

func (r *REPL) ended() {
	fmt.Fprintln(r.out, "Conversation ended")
}

func (r *REPL) printTools() {
	tools := r.chat.Tools()
	if len(tools) == 0 {
		fmt.Fprintln(r.out, r.styles.Muted.Render("No tools available"))
		return
	}
	for _, tool := range tools {
		fmt.Fprintf(r.out, "  %s  %s\n", r.styles.Header.Render(tool.Name), r.styles.Muted.Render(firstLine(tool.Description)))
	}
}

func (r *REPL) copyLastAnswer() {
	if r.lastAnswer == "" {
		fmt.Fprintln(r.out, r.styles.Warning.Render("Nothing to copy yet"))
		return
	}
	if err := clipboardWriteAll(r.lastAnswer); err != nil {
		fmt.Fprintln(r.out, r.styles.Failure.Render("Failed to copy to clipboard: "+err.Error()))
		return
	}
	fmt.Fprintln(r.out, r.styles.Success.Render("Answer copied to clipboard"))
}

func (r *REPL) printHelp() {
	fmt.Fprintln(r.out, "  /tools   list the tools offered to the model")
	fmt.Fprintln(r.out, "  /copy    copy the last answer to the clipboard")
	fmt.Fprintln(r.out, "  quit     end the conversation (also exit, q, Ctrl-C, Ctrl-D)")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
