// ABOUTME: OpenAI Chat Completions client implementing the pipeline's generation and scoring contracts.
// ABOUTME: Custom base URL support enables OpenAI-compatible providers behind the same client.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/2389-research/inkwell/loom"
)

const defaultModel = "gpt-5.2"

// Client calls an OpenAI-compatible Chat Completions endpoint for both
// content generation and artifact scoring.
type Client struct {
	client openai.Client
	model  string
}

// Option configures a Client.
type Option func(*clientConfig)

type clientConfig struct {
	model   string
	baseURL string
}

// WithModel sets the model for all requests.
func WithModel(model string) Option {
	return func(c *clientConfig) { c.model = model }
}

// WithBaseURL points the client at an OpenAI-compatible provider. This uses
// /v1/chat/completions, the endpoint those providers actually support.
func WithBaseURL(url string) Option {
	return func(c *clientConfig) { c.baseURL = url }
}

// NewClient creates a client with the given API key.
func NewClient(apiKey string, opts ...Option) *Client {
	cfg := clientConfig{model: defaultModel}
	for _, opt := range opts {
		opt(&cfg)
	}

	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	return &Client{
		client: openai.NewClient(reqOpts...),
		model:  cfg.model,
	}
}

// Generate implements loom.Generator against the Chat Completions API.
func (c *Client) Generate(ctx context.Context, req loom.GenerateRequest) (*loom.GenerateResult, error) {
	var user strings.Builder
	user.WriteString(req.Input)
	if req.Revision != nil {
		user.WriteString("\n\n")
		user.WriteString(req.Revision.ContextBlock)
		if req.Revision.PriorOutputBlock != "" {
			user.WriteString("\nPrior output:\n")
			user.WriteString(req.Revision.PriorOutputBlock)
		}
	}

	text, err := c.complete(ctx, req.Instructions, user.String())
	if err != nil {
		return nil, fmt.Errorf("generate %s: %w", req.Task, err)
	}
	return &loom.GenerateResult{Text: text}, nil
}

// Score implements loom.Scorer. The scorer is asked for a strict JSON
// verdict; parsing failures surface as errors so the engine's retry policy
// can take a second pass.
func (c *Client) Score(ctx context.Context, req loom.ScoreRequest) (*loom.ScoreResult, error) {
	var user strings.Builder
	fmt.Fprintf(&user, "Artifact kind: %s\n\nArtifact:\n%s\n\nCriteria:\n", req.Kind, req.Artifact)
	for _, criterion := range req.Criteria {
		fmt.Fprintf(&user, "- %s: %s\n", criterion.Name, criterion.Description)
	}

	text, err := c.complete(ctx, scoreInstructions, user.String())
	if err != nil {
		return nil, fmt.Errorf("score %s: %w", req.Kind, err)
	}

	verdict, err := parseVerdict(text)
	if err != nil {
		// A garbled verdict scores nothing: the rubric treats missing
		// criterion scores as structural failures, so the revision loop
		// handles it instead of the run erroring out.
		return &loom.ScoreResult{
			Issues: []string{fmt.Sprintf("scorer returned unusable output: %v", err)},
		}, nil
	}
	return verdict, nil
}

// complete runs one chat completion and returns the first choice's text.
func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return resp.Choices[0].Message.Content, nil
}
