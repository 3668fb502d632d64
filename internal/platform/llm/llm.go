// Package llm defines the single-turn generation backend consumed by the
// note pipeline, plus helpers for structured output.
package llm

import (
	"context"
	"strings"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role    Role
	Content string
}

func System(content string) Message { return Message{Role: RoleSystem, Content: content} }
func User(content string) Message   { return Message{Role: RoleUser, Content: content} }

// Backend completes a stateless conversation and returns the raw text.
// Implementations must be safe for concurrent use.
type Backend interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// SchemaCompleter is implemented by backends that can constrain output to a
// JSON schema.
type SchemaCompleter interface {
	CompleteJSON(ctx context.Context, messages []Message, schemaName string, schema map[string]any) (string, error)
}

// CompleteStructured uses the schema when the backend supports it and falls
// back to a plain completion otherwise.
func CompleteStructured(ctx context.Context, b Backend, messages []Message, schemaName string, schema map[string]any) (string, error) {
	if sc, ok := b.(SchemaCompleter); ok && schema != nil {
		return sc.CompleteJSON(ctx, messages, schemaName, schema)
	}
	return b.Complete(ctx, messages)
}

// Instructions joins all system messages; Inputs returns the rest.
func Instructions(messages []Message) string {
	parts := make([]string, 0, 1)
	for _, m := range messages {
		if m.Role == RoleSystem && strings.TrimSpace(m.Content) != "" {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

func Inputs(messages []Message) []Message {
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role != RoleSystem {
			out = append(out, m)
		}
	}
	return out
}
