package agent

import (
	"context"
	"fmt"
	"io"

	"mcpask/internal/color"
	"mcpask/internal/llm"
	"mcpask/internal/mcpserver"
	"mcpask/internal/orchestrator"
	"mcpask/pkg/logging"
)

// Model opens conversations with a set of tool sessions attached.
// *llm.Agent satisfies it.
type Model interface {
	StartChat(ctx context.Context, sessions []llm.ToolSession) (llm.Chat, error)
}

// Runner ties the orchestrator to the model: it connects the configured
// servers, hands the live sessions to the model and tears everything down
// when the run ends.
type Runner struct {
	orchestrator *orchestrator.Orchestrator
	model        Model
	out          io.Writer
	styles       color.Styles
}

// NewRunner creates a runner printing answers to out.
func NewRunner(orch *orchestrator.Orchestrator, model Model, out io.Writer, styles color.Styles) *Runner {
	return &Runner{
		orchestrator: orch,
		model:        model,
		out:          out,
		styles:       styles,
	}
}

// Ask sends one prompt and prints the answer. Servers that fail to connect
// are skipped; with no live session the model is called without tools.
func (r *Runner) Ask(ctx context.Context, reg *mcpserver.Registry, prompt string) error {
	return r.withChat(ctx, reg, func(ctx context.Context, chat llm.Chat) error {
		answer, err := chat.Send(ctx, prompt)
		if err != nil {
			return err
		}
		fmt.Fprintln(r.out, answer)
		return nil
	})
}

// Chat runs an interactive conversation until the user leaves. The line
// reader is opened once the servers are connected, so status lines are not
// mixed into the prompt.
func (r *Runner) Chat(ctx context.Context, reg *mcpserver.Registry, openLines func() (LineReader, error)) error {
	return r.withChat(ctx, reg, func(ctx context.Context, chat llm.Chat) error {
		lines, err := openLines()
		if err != nil {
			return err
		}
		return NewREPL(chat, lines, r.out, r.styles).Run(ctx)
	})
}

func (r *Runner) withChat(ctx context.Context, reg *mcpserver.Registry, fn func(context.Context, llm.Chat) error) error {
	return r.orchestrator.WithSessions(ctx, reg, func(ctx context.Context, result *orchestrator.Result) error {
		sessions := toolSessions(result.Sessions)
		if len(sessions) == 0 {
			logging.Info("Runner", "No live MCP sessions; calling the model without tools")
		}

		chat, err := r.model.StartChat(ctx, sessions)
		if err != nil {
			return fmt.Errorf("failed to start conversation: %w", err)
		}
		return fn(ctx, chat)
	})
}

func toolSessions(sessions []*orchestrator.ToolSession) []llm.ToolSession {
	if len(sessions) == 0 {
		return nil
	}
	out := make([]llm.ToolSession, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s)
	}
	return out
}
