package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"FinFolio/internal/domain/models"
	domsvc "FinFolio/internal/domain/service"
	"FinFolio/pkg/config"
	"FinFolio/pkg/logger"
)

// OpenAIAdvisor implements the advisor capability over any OpenAI-compatible
// chat completions endpoint.
type OpenAIAdvisor struct {
	base        *HTTPServiceBase
	model       string
	temperature float64
	attempts    int
	log         *logger.Logger
	now         func() time.Time
}

func NewOpenAIAdvisor(cfg *config.Config, log *logger.Logger) *OpenAIAdvisor {
	headers := map[string]string{"Content-Type": "application/json"}
	if cfg.LLM.APIKey != "" {
		headers["Authorization"] = "Bearer " + cfg.LLM.APIKey
	}
	if log == nil {
		log = logger.Nop()
	}
	return &OpenAIAdvisor{
		base: NewHTTPServiceBase(BaseConfig{
			Name:        "llm",
			BaseURL:     strings.TrimRight(cfg.LLM.BaseURL, "/"),
			Timeout:     cfg.LLM.Timeout,
			Headers:     headers,
			MaxFailures: cfg.LLM.Breaker.MaxFailures,
			OpenTimeout: cfg.LLM.Breaker.OpenTimeout,
		}),
		model:       cfg.LLM.Model,
		temperature: cfg.LLM.Temperature,
		attempts:    cfg.LLM.MaxRetries + 1,
		log:         log.With(logger.String("component", "advisor"), logger.String("model", cfg.LLM.Model)),
		now:         time.Now,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Temperature    float64         `json:"temperature"`
	Messages       []chatMessage   `json:"messages"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (a *OpenAIAdvisor) complete(ctx context.Context, system, human string, jsonMode bool) (string, error) {
	req := chatRequest{
		Model:       a.model,
		Temperature: a.temperature,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: human},
		},
	}
	if jsonMode {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	start := time.Now()
	var resp chatResponse
	if err := a.base.PostJSONWithRetry(ctx, "/chat/completions", req, &resp, a.attempts); err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	a.log.Debug("chat completion", logger.Duration("duration_ms", time.Since(start)), logger.Bool("json", jsonMode))
	return resp.Choices[0].Message.Content, nil
}

func (a *OpenAIAdvisor) ParseProfile(ctx context.Context, request string) (models.Profile, error) {
	var p models.Profile
	system := fmt.Sprintf(profileSystemPrompt, a.now().Format("2006-01-02"))
	content, err := a.complete(ctx, system, fmt.Sprintf(profileHumanPrompt, request), true)
	if err != nil {
		return p, err
	}
	if err := json.Unmarshal([]byte(stripFences(content)), &p); err != nil {
		return p, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}

func (a *OpenAIAdvisor) ProposeAllocation(ctx context.Context, in models.ProposalInput) (models.Proposal, error) {
	content, err := a.complete(ctx, proposalPrompt(in), proposalHumanPrompt, true)
	if err != nil {
		return models.Proposal{}, err
	}
	return decodeProposal(content)
}

func (a *OpenAIAdvisor) Commentary(ctx context.Context, in models.CommentaryInput) (string, error) {
	content, err := a.complete(ctx, commentaryPrompt(in), commentaryHumanPrompt, false)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

// decodeProposal accepts either {"portfolio_allocation": {...}, "reasoning": "..."}
// or a bare {"TICKER": weight} object.
func decodeProposal(content string) (models.Proposal, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(stripFences(content)), &raw); err != nil {
		return models.Proposal{}, fmt.Errorf("LLM output was not a JSON object: %w", err)
	}

	if alloc, ok := raw["portfolio_allocation"]; ok {
		var p models.Proposal
		if err := json.Unmarshal(alloc, &p.Allocation); err != nil || p.Allocation == nil {
			return models.Proposal{}, errors.New("LLM output contained 'portfolio_allocation' key, but its value was not a dictionary.")
		}
		if r, ok := raw["reasoning"]; ok {
			_ = json.Unmarshal(r, &p.Reasoning)
		}
		return p, nil
	}

	alloc := make(models.Allocation, len(raw))
	for sym, v := range raw {
		var w float64
		if err := json.Unmarshal(v, &w); err != nil {
			return models.Proposal{}, errors.New("LLM output is a dictionary but not in the expected portfolio structure (missing 'portfolio_allocation' key or invalid format).")
		}
		alloc[sym] = w
	}
	return models.Proposal{Allocation: alloc}, nil
}

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

var _ domsvc.Advisor = (*OpenAIAdvisor)(nil)
