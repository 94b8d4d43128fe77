package advisor

import (
	"encoding/json"
	"fmt"
	"strings"

	"FinFolio/internal/domain/models"
)

const (
	proposalMetricsLimit   = 5000
	commentaryMetricsLimit = 4000
)

const profileSystemPrompt = `You are an expert financial analyst assistant. Parse the user's request to understand their investment profile.
Extract the goal, risk tolerance, time horizon, initial capital, and any specific preferences mentioned (store simple preferences as a string in 'specific_preferences').
Identify any specific assets the user suggested.
Also, extract ` + "`start_date` and `end_date`" + ` (in YYYY-MM-DD format) if the user specifies a precise date range for analysis. If a date range is given, it should take precedence over a general time horizon.

**Asset Generation Rules (Strict Adherence Required):**
1. **CRITICAL & ABSOLUTE REQUIREMENT: If the user explicitly requests a specific number of tickers (e.g., "select 20 tickers", "give me 10 stocks"), you MUST generate EXACTLY that number of diverse assets matching the profile.** This instruction overrides any other general guidelines on asset count. The 'suggested_assets' field in your JSON output must reflect this exact count.
2. If the user suggests 5 or more specific assets AND does not specify an exact number, use those primarily, potentially adding more diverse assets to reach a count of around 15.
3. If the user suggests fewer than 5 assets AND does NOT specify an exact number, generate a diverse list of approximately 20 suitable assets (considering stocks, bonds, ETFs relevant to the profile).

Populate the 'suggested_assets' field with the final list of tickers. Ensure the list contains ONLY valid tickers.
Respond with a single JSON object with the keys: goal (string), risk_tolerance (string), time_horizon (string), initial_capital (number or null), preferences (object, list or null), specific_preferences (string or null), suggested_assets (list of strings), start_date (string or null), end_date (string or null).
**IMPORTANT: Do NOT include any comments (like //) inside the JSON output.** Today's Date: %s.`

const profileHumanPrompt = "Here is the user request: %s\n\nOutput ONLY the JSON object matching the required schema. Ensure NO comments are included in the JSON."

const proposalSystemPrompt = `You are an expert portfolio manager. Your task is to propose a portfolio allocation based on the user's profile, available asset data metrics (including historical performance, CAPM expected return, and SMA indicators), and recent market news.
User Profile: %s
Available Assets with Data: %s
Asset Metrics Summary (Historical Return/Vol/Sharpe/Drawdown, Beta, CAPM Expected Return, SMA 50/200, Portfolio Momentum Outlook):
%s
Recent Market News Context:
%s

Constraints:
- Allocate ONLY among the 'Available Assets with Data'.
- Proposed weights MUST sum to 1.0 (or very close to it).
- Strive for a diverse range of allocation percentages, reflecting a detailed analysis. For instance, feel free to use precise values like 7.3%%, 12.8%%, 18.2%%, etc., rather than rounding to simpler percentages, if the underlying data and user profile suggest such a nuanced distribution.
- Consider the user's goal and risk tolerance foremost.
- Also consider the CAPM expected return and the portfolio momentum outlook (SMA trend) when making allocations.
- Provide brief reasoning.

Respond with a single JSON object: {"portfolio_allocation": {"TICKER": weight, ...}, "reasoning": "..."}. Ensure ticker symbols in the output JSON match the available assets exactly.`

const proposalHumanPrompt = "Based on the provided information, propose a suitable portfolio allocation and provide reasoning, considering historical metrics, expected returns, and momentum."

const commentarySystemPrompt = `You are a financial advisor AI. Generate a clear and concise commentary explaining the proposed portfolio allocation, its key metrics (including historical performance, CAPM expected return, and momentum outlook), and validation results to the user. If the allocation model provided reasoning, incorporate it. If validation failed, explain the issues.
Context:
- User Profile: %s
- Proposed Portfolio: %s
- Portfolio & Asset Metrics (Includes Historical, CAPM Exp. Return, SMAs, Momentum): %s
- Validation Result: %s
- Market News Context: %s
- Initial Allocation Reasoning (if provided): %s

Instructions:
- Explain the reasoning behind the allocation in relation to the user's profile, historical performance, expected returns (CAPM), and the overall portfolio momentum outlook (SMA trend).
- Briefly interpret the key portfolio metrics (Return, Volatility, Sharpe, Drawdown, CAPM Expected Return, Momentum Outlook).
- Mention the validation outcome. If issues were found, briefly explain them clearly.
- Keep the tone informative and objective.
- **Include a disclaimer that this is not financial advice.**
- Output only the commentary text.
`

const commentaryHumanPrompt = "Please provide the commentary for the generated portfolio report based on the context, including interpretation of the new CAPM and momentum metrics."

func proposalPrompt(in models.ProposalInput) string {
	return fmt.Sprintf(proposalSystemPrompt,
		mustJSON(in.Profile),
		strings.Join(in.Universe, ", "),
		metricsSummary(in.Metrics, proposalMetricsLimit),
		orNA(in.News),
	)
}

func commentaryPrompt(in models.CommentaryInput) string {
	metrics := "Metrics calculation encountered an error or did not run."
	if in.Metrics != nil {
		metrics = metricsSummary(in.Metrics, commentaryMetricsLimit)
	}

	validation := "Validation did not run or failed."
	if in.Validation != nil {
		validation = "Status: " + strings.ToUpper(string(in.Validation.Status))
		if len(in.Validation.Errors) > 0 {
			validation += ", Issues: " + strings.Join(in.Validation.Errors, "; ")
		}
	}

	portfolio := "No portfolio proposed or portfolio was invalid."
	if len(in.Allocation) > 0 {
		portfolio = mustJSON(in.Allocation)
	}

	reasoning := in.Reasoning
	if strings.TrimSpace(reasoning) == "" {
		reasoning = "(No specific reasoning provided by the allocation model)"
	}

	return fmt.Sprintf(commentarySystemPrompt,
		mustJSON(in.Profile), portfolio, metrics, validation, orNA(in.News), reasoning)
}

// metricsSummary renders the bundle as indented JSON cut to limit characters.
func metricsSummary(b *models.Bundle, limit int) string {
	if b == nil {
		return "{}"
	}
	raw, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return "{}"
	}
	s := string(raw)
	if len(s) > limit {
		s = s[:limit] + "\n... (truncated)"
	}
	return s
}

func mustJSON(v interface{}) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return "N/A"
	}
	return s
}
