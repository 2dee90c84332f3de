package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GenaiGenerator calls the Gemini API directly and uses its native response schema
// for structured output.
type GenaiGenerator struct {
	Client *genai.Client
	Model  string
}

func NewGenaiGenerator(client *genai.Client, model string) *GenaiGenerator {
	return &GenaiGenerator{Client: client, Model: model}
}

func splitMessages(messages []Message) (*genai.Content, []*genai.Content) {
	var system []string
	var contents []*genai.Content
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
	}
	if len(system) == 0 {
		return nil, contents
	}
	return genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser), contents
}

func (g *GenaiGenerator) generate(ctx context.Context, messages []Message, cfg *genai.GenerateContentConfig) (string, error) {
	system, contents := splitMessages(messages)
	if len(contents) == 0 {
		return "", errors.New("no user content to send")
	}
	cfg.SystemInstruction = system

	resp, err := g.Client.Models.GenerateContent(ctx, g.Model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("genai generation failed: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("genai returned no candidates")
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String(), nil
}

func (g *GenaiGenerator) Generate(ctx context.Context, messages []Message) (string, error) {
	return g.generate(ctx, messages, &genai.GenerateContentConfig{})
}

func (g *GenaiGenerator) GenerateStructured(ctx context.Context, messages []Message, schema *Schema, out any) error {
	content, err := g.generate(ctx, messages, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   schema.genai(),
	})
	if err != nil {
		return err
	}
	return decodeStructured(content, out)
}
