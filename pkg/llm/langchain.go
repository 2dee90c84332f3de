package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

// LangchainGenerator adapts a langchaingo model. Structured output uses JSON mode with the
// schema embedded in the system prompt.
type LangchainGenerator struct {
	LLM llms.Model
}

func NewLangchainGenerator(model llms.Model) *LangchainGenerator {
	return &LangchainGenerator{LLM: model}
}

func toMessageContent(messages []Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		role := llms.ChatMessageTypeHuman
		if m.Role == RoleSystem {
			role = llms.ChatMessageTypeSystem
		}
		out = append(out, llms.TextParts(role, m.Content))
	}
	return out
}

func (g *LangchainGenerator) generate(ctx context.Context, messages []Message, options ...llms.CallOption) (string, error) {
	resp, err := g.LLM.GenerateContent(ctx, toMessageContent(messages), options...)
	if err != nil {
		return "", fmt.Errorf("llm generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("llm returned no choices")
	}
	return resp.Choices[0].Content, nil
}

func (g *LangchainGenerator) Generate(ctx context.Context, messages []Message) (string, error) {
	return g.generate(ctx, messages)
}

func (g *LangchainGenerator) GenerateStructured(ctx context.Context, messages []Message, schema *Schema, out any) error {
	content, err := g.generate(ctx, withResponseFormat(messages, schema), llms.WithJSONMode())
	if err != nil {
		return err
	}
	return decodeStructured(content, out)
}

// withResponseFormat appends the schema to the first system message, or prepends one.
// Some providers accept a single system message only.
func withResponseFormat(messages []Message, schema *Schema) []Message {
	format := "# Response Format:\n\n" + schema.PromptInstruction()
	prompts := make([]Message, 0, len(messages)+1)
	merged := false
	for _, m := range messages {
		if !merged && m.Role == RoleSystem {
			m.Content += "\n\n" + format
			merged = true
		}
		prompts = append(prompts, m)
	}
	if !merged {
		prompts = append([]Message{System(format)}, prompts...)
	}
	return prompts
}
