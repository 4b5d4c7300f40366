package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/suwonbread/bready/internal/domain"
	"github.com/suwonbread/bready/internal/metrics"
)

const systemPrompt = `당신은 수원 빵집 투어의 전문 가이드 AI입니다.
사용자의 질문에 대해 다음 가이드라인을 따르세요:

1. 사용자의 요구사항을 정확히 파악하세요 (분위기, 맛, 방문 목적 등)
2. 추천하는 빵집이 왜 좋은지 설명하세요
3. 친절하고 자연스러운 톤으로 답변하세요
4. 구체적인 정보 (주소, 특징)를 포함하세요

추천 빵집 정보가 주어질 때, 이를 활용하여 최적의 답변을 만드세요.
검색된 빵집 정보가 없으면 추천할 수 없다고 솔직하게 답하고, 빵집을 지어내지 마세요.`

// Generator produces natural-language answers grounded in retrieved bakeries
// via OpenAI chat completions.
type Generator struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// GeneratorConfig holds the answer model settings.
type GeneratorConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	MaxTokens   int
}

// NewGenerator creates an OpenAI-backed answer generator.
func NewGenerator(cfg GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &Generator{
		client:      openai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
	}
}

// Generate answers the user query grounded in the supplied candidates, in
// ranked order. An empty candidate list yields an honest "nothing found"
// context rather than an error; upstream model failures wrap
// domain.ErrGeneration and are not retried here.
func (g *Generator) Generate(ctx context.Context, query string, candidates []domain.Candidate) (string, error) {
	userMessage := fmt.Sprintf(`다음은 사용자의 질문과 검색된 빵집 정보입니다.

【사용자 질문】
%s

【검색된 빵집 정보】
%s

이 정보를 바탕으로 사용자의 질문에 답변해주세요.`, query, formatContext(candidates))

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMessage},
		},
		Temperature: g.temperature,
		MaxTokens:   g.maxTokens,
	})
	duration := time.Since(start)

	if err != nil {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "error").Inc()
		return "", wrapGenerationError(err)
	}
	if len(resp.Choices) == 0 {
		metrics.GenerationRequestsTotal.WithLabelValues(g.model, "error").Inc()
		return "", fmt.Errorf("empty completion response: %w", domain.ErrGeneration)
	}

	metrics.GenerationRequestsTotal.WithLabelValues(g.model, "success").Inc()
	metrics.GenerationRequestDuration.WithLabelValues(g.model).Observe(duration.Seconds())

	return resp.Choices[0].Message.Content, nil
}

// formatContext renders candidates in ranked order as a numbered block. Only
// supplied candidates appear; the model is told when there are none.
func formatContext(candidates []domain.Candidate) string {
	if len(candidates) == 0 {
		return "(검색된 빵집이 없습니다)"
	}

	var b strings.Builder
	for i, c := range candidates {
		summary := c.Bakery.AISummary
		if summary == "" {
			summary = "정보 없음"
		}
		fmt.Fprintf(&b, "\n빵집 %d. %s\n- 주소: %s\n- 위치: %s\n- 특징: %s\n",
			i+1, c.Bakery.Name, c.Bakery.Address, c.Bakery.District, summary)
	}
	return b.String()
}

func wrapGenerationError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("chat completion error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, domain.ErrGeneration)
	}
	return fmt.Errorf("chat completion failed: %w", domain.ErrGeneration)
}
