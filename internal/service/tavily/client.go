package tavily

import (
	"context"
	"fmt"
	"strings"
	"time"

	drepo "FinFolio/internal/domain/repository"
	xhttp "FinFolio/pkg/http"
	"FinFolio/pkg/logger"
)

// NoNews is the digest returned when the search comes back empty.
const NoNews = "No specific news found."

// Client queries the Tavily search API and renders results as a bullet digest.
type Client struct {
	apiKey     string
	baseURL    string
	maxResults int
	http       *xhttp.Client
	log        *logger.Logger
}

func New(apiKey, baseURL string, maxResults int, timeout time.Duration, log *logger.Logger) *Client {
	if maxResults <= 0 {
		maxResults = 3
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		maxResults: maxResults,
		http:       xhttp.NewClient(xhttp.WithTimeout(timeout)),
		log:        log.With(logger.String("component", "tavily")),
	}
}

type searchRequest struct {
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results"`
	SearchDepth string `json:"search_depth"`
}

type searchResponse struct {
	Results []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Content string `json:"content"`
	} `json:"results"`
}

// News runs query and returns one "- content" line per result.
func (c *Client) News(ctx context.Context, query string) (string, error) {
	var resp searchResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method:  xhttp.MethodPost,
		URL:     c.baseURL + "/search",
		Headers: map[string]string{"Authorization": "Bearer " + c.apiKey},
		Body: searchRequest{
			Query:       query,
			MaxResults:  c.maxResults,
			SearchDepth: "basic",
		},
	}, &resp)
	if err != nil {
		return "", fmt.Errorf("tavily search: %w", err)
	}

	lines := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		if s := strings.TrimSpace(r.Content); s != "" {
			lines = append(lines, "- "+s)
		}
	}
	c.log.Debug("news fetched", logger.Int("results", len(lines)))
	if len(lines) == 0 {
		return NoNews, nil
	}
	return strings.Join(lines, "\n"), nil
}

var _ drepo.NewsSource = (*Client)(nil)
