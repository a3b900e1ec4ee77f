package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/yukikurage/taskgenie-api/internal/constants"
	"go.uber.org/zap"
)

const classifyPrompt = `You classify personal to-do items.

Task:
%s

Reply with a JSON object of this exact shape:
{
  "category": one of "work", "personal", "urgent", "other",
  "priority": one of "low", "medium", "high",
  "suggestions": an array of at most 3 short tips for completing the task
}
Return JSON only.`

const breakdownPrompt = `You break a task down into concrete steps.

Task:
%s

Reply with a JSON object of this exact shape:
{
  "subtasks": an array of short step titles in execution order,
  "suggestions": an array of at most 3 short tips
}
Return JSON only.`

// OpenAIGateway implements NLPGateway with chat completions.
type OpenAIGateway struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	log     *zap.Logger
}

func NewOpenAIGateway(apiKey, model string, timeout time.Duration, log *zap.Logger) *OpenAIGateway {
	return NewOpenAIGatewayWithConfig(openai.DefaultConfig(apiKey), model, timeout, log)
}

// NewOpenAIGatewayWithConfig allows pointing the client at another base URL.
func NewOpenAIGatewayWithConfig(cfg openai.ClientConfig, model string, timeout time.Duration, log *zap.Logger) *OpenAIGateway {
	if model == "" {
		model = openai.GPT4o
	}
	if timeout <= 0 {
		timeout = constants.DefaultNLPTimeout
	}
	return &OpenAIGateway{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: timeout,
		log:     log.Named("openai"),
	}
}

func (g *OpenAIGateway) Classify(ctx context.Context, text string) ClassifyResult {
	var result ClassifyResult
	if err := g.complete(ctx, fmt.Sprintf(classifyPrompt, text), &result); err != nil {
		g.log.Warn("openai classify failed, using fallback", zap.Error(err))
		return FallbackClassification()
	}
	return result
}

func (g *OpenAIGateway) Breakdown(ctx context.Context, text string) BreakdownResult {
	var result BreakdownResult
	if err := g.complete(ctx, fmt.Sprintf(breakdownPrompt, text), &result); err != nil {
		g.log.Warn("openai breakdown failed, using fallback", zap.Error(err))
		return FallbackBreakdown()
	}
	return result.normalize()
}

func (g *OpenAIGateway) complete(ctx context.Context, prompt string, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: g.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
			Temperature: 0.3,
		},
	)
	if err != nil {
		return fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return fmt.Errorf("no response from OpenAI")
	}

	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("failed to parse AI response: %w (response: %s)", err, content)
	}
	return nil
}
