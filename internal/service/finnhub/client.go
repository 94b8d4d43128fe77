package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	drepo "FinFolio/internal/domain/repository"
	"FinFolio/internal/service/cache"
	xhttp "FinFolio/pkg/http"
	"FinFolio/pkg/logger"
)

const betaCacheTTL = 24 * time.Hour

// Client looks up reference betas from Finnhub's basic financials endpoint.
type Client struct {
	apiKey  string
	baseURL string
	http    *xhttp.Client
	cache   cache.BytesCache
	log     *logger.Logger
}

// New builds a beta source. cache may be nil.
func New(apiKey, baseURL string, timeout time.Duration, c cache.BytesCache, log *logger.Logger) *Client {
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    xhttp.NewClient(xhttp.WithTimeout(timeout)),
		cache:   c,
		log:     log.With(logger.String("component", "finnhub")),
	}
}

type metricResponse struct {
	Metric struct {
		Beta *float64 `json:"beta"`
	} `json:"metric"`
}

// Beta returns the provider's beta for symbol, or nil when none is published.
// Index symbols are never looked up.
func (c *Client) Beta(ctx context.Context, symbol string) (*float64, error) {
	if strings.HasPrefix(symbol, "^") {
		return nil, nil
	}
	key := "beta:" + symbol
	if c.cache != nil {
		if raw, ok, err := c.cache.GetBytes(ctx, key); err == nil && ok {
			var v *float64
			if err := json.Unmarshal(raw, &v); err == nil {
				return v, nil
			}
		} else if err != nil {
			c.log.Warn("beta cache read failed", logger.String("symbol", symbol), logger.Error(err))
		}
	}

	var resp metricResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/stock/metric",
		QueryParams: map[string][]string{
			"symbol": {symbol},
			"metric": {"all"},
			"token":  {c.apiKey},
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("finnhub metric %s: %w", symbol, err)
	}

	if c.cache != nil {
		raw, _ := json.Marshal(resp.Metric.Beta)
		if err := c.cache.SetBytes(ctx, key, raw, betaCacheTTL); err != nil {
			c.log.Warn("beta cache write failed", logger.String("symbol", symbol), logger.Error(err))
		}
	}
	return resp.Metric.Beta, nil
}

var _ drepo.BetaSource = (*Client)(nil)
