package llm

import (
	"context"
	"sync"

	"mcpask/pkg/logging"
)

// Chat is a multi-turn conversation with tools.
type Chat interface {
	// Send adds prompt to the conversation and returns the model's answer.
	Send(ctx context.Context, prompt string) (string, error)
	// Tools returns the tools offered to the model.
	Tools() []ToolSpec
}

// Agent runs model calls with MCP tools attached.
type Agent struct {
	provider      Provider
	model         string
	system        string
	temperature   float64
	maxTokens     int
	maxToolRounds int
}

// Option configures an Agent.
type Option func(*Agent)

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(a *Agent) { a.model = model }
}

// WithSystemPrompt sets the system instruction.
func WithSystemPrompt(system string) Option {
	return func(a *Agent) { a.system = system }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(a *Agent) { a.temperature = t }
}

// WithMaxTokens sets the output token limit per call.
func WithMaxTokens(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxTokens = n
		}
	}
}

// WithMaxToolRounds bounds the number of model calls that may request tools
// within one Send.
func WithMaxToolRounds(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.maxToolRounds = n
		}
	}
}

// NewAgent creates an agent for provider.
func NewAgent(provider Provider, opts ...Option) *Agent {
	a := &Agent{
		provider:      provider,
		maxTokens:     4096,
		maxToolRounds: 10,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// StartChat collects the tools of sessions and opens a conversation. With no
// sessions the conversation has no tools.
func (a *Agent) StartChat(ctx context.Context, sessions []ToolSession) (Chat, error) {
	toolbox, err := NewToolbox(ctx, sessions)
	if err != nil {
		return nil, err
	}
	logging.Info("Agent", "Starting %s conversation with %d tool(s) from %d session(s)",
		a.provider.Name(), len(toolbox.Specs()), len(sessions))
	return &Conversation{agent: a, toolbox: toolbox}, nil
}

// Ask sends a single prompt in a fresh conversation.
func (a *Agent) Ask(ctx context.Context, prompt string, sessions []ToolSession) (string, error) {
	chat, err := a.StartChat(ctx, sessions)
	if err != nil {
		return "", err
	}
	return chat.Send(ctx, prompt)
}

// Conversation keeps the history of a chat. It is safe for concurrent use,
// though turns are serialized.
type Conversation struct {
	agent   *Agent
	toolbox *Toolbox

	mu      sync.Mutex
	history []Message
	usage   Usage
}

// Tools returns the tools offered to the model.
func (c *Conversation) Tools() []ToolSpec {
	return c.toolbox.Specs()
}

// History returns a copy of the conversation so far.
func (c *Conversation) History() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.history))
	copy(out, c.history)
	return out
}

// Usage returns the tokens consumed so far.
func (c *Conversation) Usage() Usage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.usage
}

// Send runs one turn: the model is called, any tool calls are dispatched to
// their sessions and fed back, until the model answers without tool calls or
// the round limit is reached. A failed model call returns a RemoteCallError
// and leaves the history as it was before the turn.
func (c *Conversation) Send(ctx context.Context, prompt string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	a := c.agent
	checkpoint := len(c.history)
	c.history = append(c.history, Message{Role: RoleUser, Content: prompt})

	for round := 1; ; round++ {
		resp, err := a.provider.Generate(ctx, Request{
			Model:       a.model,
			System:      a.system,
			Messages:    c.history,
			Tools:       c.toolbox.Specs(),
			Temperature: a.temperature,
			MaxTokens:   a.maxTokens,
		})
		if err != nil {
			c.history = c.history[:checkpoint]
			return "", &RemoteCallError{Provider: a.provider.Name(), Err: err}
		}
		c.usage.InputTokens += resp.Usage.InputTokens
		c.usage.OutputTokens += resp.Usage.OutputTokens

		c.history = append(c.history, Message{
			Role:      RoleAssistant,
			Content:   resp.Text,
			ToolCalls: resp.ToolCalls,
		})
		if len(resp.ToolCalls) == 0 {
			return resp.Text, nil
		}

		// Every tool call gets a result so the history stays valid for the
		// next turn, even when this is the last round.
		for _, call := range resp.ToolCalls {
			content, isError := c.toolbox.Call(ctx, call)
			c.history = append(c.history, Message{
				Role:       RoleTool,
				Content:    content,
				ToolCallID: call.ID,
				IsError:    isError,
			})
		}

		if round >= a.maxToolRounds {
			logging.Warn("Agent", "Stopping after %d tool round(s); returning the last answer", round)
			return resp.Text, nil
		}
	}
}
