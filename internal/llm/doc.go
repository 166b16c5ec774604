// Package llm calls a language model with the tools of live MCP sessions
// attached.
//
// A Provider turns a provider-neutral Request into one API call. OpenAI and
// Gemini share OpenAIProvider, Gemini through its OpenAI-compatible endpoint;
// Anthropic has its own. NewProvider picks one from settings.
//
// An Agent owns the model parameters. StartChat lists the tools of every
// session into a Toolbox and returns a Chat; each Send runs the tool loop:
//
//	model call -> tool calls? -> tools/call on the owning session -> results -> model call ...
//
// until the model answers in plain text or the round limit is hit, in which
// case the last text is returned and a warning is logged. Tool failures are
// passed back to the model as error results. Model call failures end the turn
// with a *RemoteCallError and are not retried.
package llm
