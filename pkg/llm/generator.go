// Package llm defines the text-generation contract used by the research
// pipeline and its langchaingo and genai backends.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Role identifies the author of a Message.
type Role string

const (
	RoleSystem Role = "system"
	RoleHuman  Role = "human"
)

// Message is a single prompt message.
type Message struct {
	Role    Role
	Content string
}

func System(content string) Message { return Message{Role: RoleSystem, Content: content} }
func Human(content string) Message  { return Message{Role: RoleHuman, Content: content} }

var (
	// ErrSchema is returned when structured output does not match the requested schema.
	ErrSchema = errors.New("structured output does not match schema")
	// ErrUnavailable is returned by a generator that has no backend configured.
	ErrUnavailable = errors.New("generation service unavailable")
)

// Generator produces free text or schema-constrained JSON from a list of messages.
type Generator interface {
	Generate(ctx context.Context, messages []Message) (string, error)
	// GenerateStructured decodes the model's JSON answer into out, which must be a pointer.
	GenerateStructured(ctx context.Context, messages []Message, schema *Schema, out any) error
}

// Unavailable is a Generator that always fails. It stands in when no API key is configured
// so that the pipeline still degrades to its fallback values.
type Unavailable struct {
	Reason error
}

func (u Unavailable) err() error {
	if u.Reason == nil {
		return ErrUnavailable
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, u.Reason)
}

func (u Unavailable) Generate(context.Context, []Message) (string, error) {
	return "", u.err()
}

func (u Unavailable) GenerateStructured(context.Context, []Message, *Schema, any) error {
	return u.err()
}

// decodeStructured parses a model response into out. Models sometimes wrap JSON in a
// markdown fence even in JSON mode, so the fence is stripped first.
func decodeStructured(content string, out any) error {
	raw := extractJSON(content)
	if raw == "" {
		return fmt.Errorf("%w: empty response", ErrSchema)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return nil
}

func extractJSON(content string) string {
	s := strings.TrimSpace(content)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
