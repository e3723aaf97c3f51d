package exercisegen

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// TokenUsage reports per-call token consumption for external accounting
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// OracleRequest is one prompt for the generative text service
type OracleRequest struct {
	System    string
	Prompt    string
	MaxTokens int
}

// OracleResponse is the free-form text the oracle returned, possibly
// containing one structured-text block, plus usage metadata when available
type OracleResponse struct {
	Content string
	Usage   TokenUsage
}

// Oracle is the single abstraction over the external generative service.
// Implementations must honor context cancellation and bound each call with
// a timeout; callers treat the oracle as slow, rate-limited and
// occasionally malformed.
type Oracle interface {
	Complete(ctx context.Context, req OracleRequest) (*OracleResponse, error)
}

const defaultOracleTimeout = 120 * time.Second

// OpenAIOracle calls the OpenAI chat completions API
type OpenAIOracle struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

// NewOpenAIOracle creates an oracle backed by GPT-4o. An empty API key is
// allowed here; calls will fail and degrade at the judge boundary instead.
func NewOpenAIOracle(apiKey string) *OpenAIOracle {
	return &OpenAIOracle{
		client:  openai.NewClient(apiKey),
		model:   openai.GPT4o,
		timeout: defaultOracleTimeout,
	}
}

// WithModel overrides the default model
func (o *OpenAIOracle) WithModel(model string) *OpenAIOracle {
	o.model = model
	return o
}

// WithTimeout overrides the default per-call timeout
func (o *OpenAIOracle) WithTimeout(d time.Duration) *OpenAIOracle {
	o.timeout = d
	return o
}

// Complete issues one chat completion with a bounded timeout
func (o *OpenAIOracle) Complete(ctx context.Context, req OracleRequest) (*OracleResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	chatReq := openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: req.System,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.Prompt,
			},
		},
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}

	resp, err := o.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("oracle call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in oracle response")
	}

	return &OracleResponse{
		Content: resp.Choices[0].Message.Content,
		Usage: TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}
