package genai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/codecraft-io/codecraft/internal/config"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"
)

var ErrMalformedOutput = errors.New("generator returned malformed output")

// GeneratedFile is one file produced by the model. Paths are repo-relative
// without a leading slash.
type GeneratedFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Result is the structured payload the model is instructed to return.
type Result struct {
	ProjectTitle string          `json:"project_title"`
	Explanation  string          `json:"explanation"`
	Files        []GeneratedFile `json:"files"`
}

// HistoryTurn is one prior exchange included in follow-up requests.
type HistoryTurn struct {
	Role    string
	Content string
}

// ContextFile carries the current workspace content into a follow-up request.
type ContextFile struct {
	Path    string
	Content string
}

// Generator turns natural-language descriptions into website file sets.
type Generator interface {
	GenerateProject(ctx context.Context, prompt string) (*Result, error)
	ContinueProject(ctx context.Context, prompt string, files []ContextFile, history []HistoryTurn) (*Result, error)
}

const generateSystemPrompt = `You are a web development assistant. Given a description of a website,
produce a complete, self-contained project. Respond with a single JSON object:
{"project_title": string, "explanation": string, "files": [{"path": string, "content": string}]}.
Paths are relative (no leading slash). Do not wrap the JSON in markdown fences.`

const continueSystemPrompt = `You are a web development assistant working on an existing project.
Apply the requested change and respond with a single JSON object:
{"project_title": string, "explanation": string, "files": [{"path": string, "content": string}]}.
Include ONLY files you created or changed. Do not wrap the JSON in markdown fences.`

type openaiGenerator struct {
	client openai.Client
	model  string
	log    *zap.Logger
}

func New(cfg *config.Config, log *zap.Logger) Generator {
	opts := []option.RequestOption{option.WithAPIKey(cfg.Generator.APIKey)}
	if cfg.Generator.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.Generator.BaseURL))
	}
	return &openaiGenerator{
		client: openai.NewClient(opts...),
		model:  cfg.Generator.Model,
		log:    log,
	}
}

func (g *openaiGenerator) GenerateProject(ctx context.Context, prompt string) (*Result, error) {
	messages := []openai.ChatCompletionMessageParamUnion{
		openai.SystemMessage(generateSystemPrompt),
		openai.UserMessage(prompt),
	}
	return g.complete(ctx, messages)
}

func (g *openaiGenerator) ContinueProject(ctx context.Context, prompt string, files []ContextFile, history []HistoryTurn) (*Result, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+3)
	messages = append(messages, openai.SystemMessage(continueSystemPrompt))

	if len(files) > 0 {
		var b strings.Builder
		b.WriteString("Current project files:\n")
		for _, f := range files {
			fmt.Fprintf(&b, "--- %s ---\n%s\n", f.Path, f.Content)
		}
		messages = append(messages, openai.SystemMessage(b.String()))
	}

	for _, turn := range history {
		switch turn.Role {
		case "assistant":
			messages = append(messages, openai.AssistantMessage(turn.Content))
		default:
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}
	messages = append(messages, openai.UserMessage(prompt))

	return g.complete(ctx, messages)
}

func (g *openaiGenerator) complete(ctx context.Context, messages []openai.ChatCompletionMessageParamUnion) (*Result, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(g.model),
		Messages: messages,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrMalformedOutput)
	}

	return ParseResult(resp.Choices[0].Message.Content)
}

// ParseResult decodes a model response into a Result. Models occasionally wrap
// JSON in markdown fences despite instructions, so fences are stripped first.
func ParseResult(raw string) (*Result, error) {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)

	var res Result
	if err := sonic.Unmarshal([]byte(trimmed), &res); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	if res.ProjectTitle == "" && len(res.Files) == 0 {
		return nil, fmt.Errorf("%w: empty result", ErrMalformedOutput)
	}

	for i := range res.Files {
		res.Files[i].Path = strings.TrimPrefix(res.Files[i].Path, "/")
	}
	return &res, nil
}
