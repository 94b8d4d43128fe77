package yahoo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"FinFolio/internal/domain/models"
	drepo "FinFolio/internal/domain/repository"
	"FinFolio/internal/service/ratelimit"
	xhttp "FinFolio/pkg/http"
	"FinFolio/pkg/logger"
)

// ErrNoHistory is returned when the symbol is unknown or has no closes in range.
var ErrNoHistory = errors.New("no price history")

const browserUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Client reads daily closes from the Yahoo Finance chart endpoint.
// Requests to the host are spaced by the configured delay.
type Client struct {
	baseURL string
	host    string
	http    *xhttp.Client
	limiter *ratelimit.Limiter
	log     *logger.Logger
}

func New(baseURL string, timeout, delay time.Duration, log *logger.Logger) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	host := baseURL
	if u, err := url.Parse(baseURL); err == nil && u.Host != "" {
		host = u.Host
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		baseURL: baseURL,
		host:    host,
		http:    xhttp.NewClient(xhttp.WithTimeout(timeout), xhttp.WithUserAgent(browserUA)),
		limiter: ratelimit.New(delay, 1),
		log:     log.With(logger.String("component", "yahoo")),
	}
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta struct {
		Symbol    string `json:"symbol"`
		GMTOffset int64  `json:"gmtoffset"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Close []*float64 `json:"close"`
		} `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// History returns split and dividend adjusted daily closes in [r.Start, r.End).
func (c *Client) History(ctx context.Context, symbol string, r models.DateRange) (models.PriceSeries, error) {
	if err := c.limiter.Wait(ctx, c.host); err != nil {
		return nil, err
	}
	start := time.Now()

	var resp chartResponse
	err := c.http.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.baseURL + "/v8/finance/chart/" + url.PathEscape(symbol),
		QueryParams: map[string][]string{
			"period1":              {strconv.FormatInt(r.Start.Unix(), 10)},
			"period2":              {strconv.FormatInt(r.End.Unix(), 10)},
			"interval":             {"1d"},
			"events":               {"div,split"},
			"includeAdjustedClose": {"true"},
		},
	}, &resp)
	if err != nil {
		var se *xhttp.StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return nil, fmt.Errorf("%s: %w", symbol, ErrNoHistory)
		}
		return nil, fmt.Errorf("yahoo chart %s: %w", symbol, err)
	}
	if e := resp.Chart.Error; e != nil {
		return nil, fmt.Errorf("yahoo chart %s: %s: %s", symbol, e.Code, e.Description)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("%s: %w", symbol, ErrNoHistory)
	}

	series := parseChart(resp.Chart.Result[0], r)
	if len(series) == 0 {
		return nil, fmt.Errorf("%s in %s: %w", symbol, r, ErrNoHistory)
	}
	c.log.Debug("history fetched",
		logger.String("symbol", symbol),
		logger.Int("rows", len(series)),
		logger.Duration("duration_ms", time.Since(start)))
	return series, nil
}

// parseChart converts exchange-local timestamps to calendar dates and drops
// missing closes. Adjusted closes are preferred when present.
func parseChart(res chartResult, r models.DateRange) models.PriceSeries {
	var closes []*float64
	if len(res.Indicators.AdjClose) > 0 && len(res.Indicators.AdjClose[0].AdjClose) == len(res.Timestamp) {
		closes = res.Indicators.AdjClose[0].AdjClose
	} else if len(res.Indicators.Quote) > 0 {
		closes = res.Indicators.Quote[0].Close
	}

	out := make(models.PriceSeries, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		v := *closes[i]
		if math.IsNaN(v) || v <= 0 {
			continue
		}
		d := models.DateOnly(time.Unix(ts+res.Meta.GMTOffset, 0).UTC())
		if d.Before(models.DateOnly(r.Start)) || !d.Before(r.End) {
			continue
		}
		out = append(out, models.PricePoint{Date: d, Close: v})
	}
	return out.Normalize()
}

var _ drepo.PriceSource = (*Client)(nil)
