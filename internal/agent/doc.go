// Package agent runs the user-facing flows of mcpask.
//
// A Runner wraps one orchestration scope around a model conversation:
// servers from the registry are connected, the live sessions are handed to
// the model, and every subprocess is torn down when the flow returns. Ask
// sends a single prompt; Chat reads prompts from a readline prompt until the
// user leaves.
//
// Example usage:
//
//	orch := orchestrator.New(orchestrator.WithHandshakeTimeout(10 * time.Second))
//	runner := agent.NewRunner(orch, llm.NewAgent(provider), os.Stdout, color.Plain())
//	if err := runner.Ask(ctx, registry, "What time is it in Tokyo?"); err != nil {
//		log.Fatal(err)
//	}
//
// Inside the chat, /tools lists the tools offered to the model and /copy puts
// the last answer on the clipboard.
package agent
