package advisor

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinFolio/internal/domain/models"
	"FinFolio/pkg/config"
	"FinFolio/pkg/logger"
)

type fakeLLM struct {
	calls    atomic.Int32
	failures int32 // first n calls answer 503
	status   int
	reply    func(req chatRequest) string
	lastReq  atomic.Value
	lastAuth atomic.Value
}

func (f *fakeLLM) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := f.calls.Add(1)
	if r.URL.Path != "/chat/completions" {
		http.NotFound(w, r)
		return
	}
	f.lastAuth.Store(r.Header.Get("Authorization"))
	if n <= f.failures {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
		return
	}
	if f.status != 0 {
		http.Error(w, "bad request", f.status)
		return
	}
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.lastReq.Store(req)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"choices": []map[string]interface{}{
			{"message": map[string]string{"role": "assistant", "content": f.reply(req)}},
		},
	})
}

func newTestAdvisor(t *testing.T, f *fakeLLM) *OpenAIAdvisor {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.LLM.BaseURL = srv.URL + "/"
	cfg.LLM.APIKey = "sk-test"
	cfg.LLM.Breaker.MaxFailures = 5

	a := NewOpenAIAdvisor(cfg, logger.Nop())
	a.base.backoff = time.Millisecond
	a.now = func() time.Time { return time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC) }
	return a
}

func TestParseProfile(t *testing.T) {
	f := &fakeLLM{reply: func(chatRequest) string {
		return "```json\n" + `{"goal":"retirement","risk_tolerance":"medium","time_horizon":"10-20 years",
			"initial_capital":50000,"preferences":{"sector_focus":"tech"},"suggested_assets":["aapl","MSFT"]}` + "\n```"
	}}
	a := newTestAdvisor(t, f)

	p, err := a.ParseProfile(context.Background(), "I want to retire in 20 years with $50k")
	require.NoError(t, err)
	assert.Equal(t, "retirement", p.Goal)
	assert.Equal(t, models.Horizon("10-20 years"), p.TimeHorizon)
	require.NotNil(t, p.InitialCapital)
	assert.Equal(t, 50000.0, *p.InitialCapital)
	assert.Equal(t, []string{"aapl", "MSFT"}, p.SuggestedAssets)
	assert.JSONEq(t, `{"sector_focus":"tech"}`, p.PreferencesText())

	req := f.lastReq.Load().(chatRequest)
	require.NotNil(t, req.ResponseFormat)
	assert.Equal(t, "json_object", req.ResponseFormat.Type)
	assert.Equal(t, "gpt-4o", req.Model)
	assert.Contains(t, req.Messages[0].Content, "Today's Date: 2025-03-14.")
	assert.Contains(t, req.Messages[1].Content, "retire in 20 years")
	assert.Equal(t, "Bearer sk-test", f.lastAuth.Load())
}

func TestProposeAllocationShapes(t *testing.T) {
	cases := []struct {
		name      string
		reply     string
		alloc     models.Allocation
		reasoning string
		err       string
	}{
		{
			name:      "wrapped",
			reply:     `{"portfolio_allocation":{"AAPL":0.6,"MSFT":0.4},"reasoning":"growth tilt"}`,
			alloc:     models.Allocation{"AAPL": 0.6, "MSFT": 0.4},
			reasoning: "growth tilt",
		},
		{
			name:  "bare map",
			reply: `{"AAPL":0.5,"TLT":0.5}`,
			alloc: models.Allocation{"AAPL": 0.5, "TLT": 0.5},
		},
		{
			name:  "allocation not an object",
			reply: `{"portfolio_allocation":["AAPL"]}`,
			err:   "its value was not a dictionary",
		},
		{
			name:  "unexpected structure",
			reply: `{"answer":"buy everything"}`,
			err:   "not in the expected portfolio structure",
		},
		{
			name:  "not json",
			reply: `I suggest AAPL`,
			err:   "not a JSON object",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reply := tc.reply
			a := newTestAdvisor(t, &fakeLLM{reply: func(chatRequest) string { return reply }})
			p, err := a.ProposeAllocation(context.Background(), models.ProposalInput{
				Universe: []string{"AAPL", "MSFT", "TLT"},
				Metrics:  &models.Bundle{Assets: map[string]models.AssetMetrics{"AAPL": {PeriodDays: 10}}},
			})
			if tc.err != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.alloc, p.Allocation)
			assert.Equal(t, tc.reasoning, p.Reasoning)
		})
	}
}

func TestProposalPromptTruncatesMetrics(t *testing.T) {
	assets := make(map[string]models.AssetMetrics)
	for i := 0; i < 200; i++ {
		assets[strings.Repeat("X", 3)+string(rune('A'+i%26))+string(rune('A'+i/26))] = models.AssetMetrics{PeriodDays: i}
	}
	prompt := proposalPrompt(models.ProposalInput{
		Universe: []string{"AAPL", "MSFT"},
		Metrics:  &models.Bundle{Assets: assets},
	})
	assert.Contains(t, prompt, "Available Assets with Data: AAPL, MSFT")
	assert.Contains(t, prompt, "\n... (truncated)")
	assert.Contains(t, prompt, "Recent Market News Context:\nN/A")
	assert.Contains(t, prompt, "like 7.3%, 12.8%")
}

func TestCommentaryPrompt(t *testing.T) {
	var seen string
	a := newTestAdvisor(t, &fakeLLM{reply: func(req chatRequest) string {
		seen = req.Messages[0].Content
		assert.Nil(t, req.ResponseFormat)
		return "  Balanced portfolio. This is not financial advice.  "
	}})
	text, err := a.Commentary(context.Background(), models.CommentaryInput{
		Allocation: models.Allocation{"AAPL": 1},
		Validation: &models.ValidationResult{Status: models.ValidationFail, Errors: []string{"a", "b"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Balanced portfolio. This is not financial advice.", text)
	assert.Contains(t, seen, `- Proposed Portfolio: {"AAPL":1}`)
	assert.Contains(t, seen, "- Validation Result: Status: FAIL, Issues: a; b")
	assert.Contains(t, seen, "Metrics calculation encountered an error or did not run.")
	assert.Contains(t, seen, "(No specific reasoning provided by the allocation model)")
}

func TestRetriesTransientFailures(t *testing.T) {
	f := &fakeLLM{failures: 2, reply: func(chatRequest) string { return "ok" }}
	a := newTestAdvisor(t, f)

	text, err := a.Commentary(context.Background(), models.CommentaryInput{})
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.EqualValues(t, 3, f.calls.Load())
}

func TestDoesNotRetryClientErrors(t *testing.T) {
	f := &fakeLLM{status: http.StatusBadRequest}
	a := newTestAdvisor(t, f)

	_, err := a.Commentary(context.Background(), models.CommentaryInput{})
	require.Error(t, err)
	assert.EqualValues(t, 1, f.calls.Load())
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	f := &fakeLLM{failures: 100}
	a := newTestAdvisor(t, f)
	a.attempts = 1
	a.base = NewHTTPServiceBase(BaseConfig{
		Name:        "llm-test",
		BaseURL:     a.base.baseURL,
		Headers:     a.base.headers,
		MaxFailures: 2,
		OpenTimeout: time.Minute,
		Backoff:     time.Millisecond,
	})

	for i := 0; i < 2; i++ {
		_, err := a.Commentary(context.Background(), models.CommentaryInput{})
		require.Error(t, err)
	}
	_, err := a.Commentary(context.Background(), models.CommentaryInput{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState), err.Error())
	assert.EqualValues(t, 2, f.calls.Load())
}
