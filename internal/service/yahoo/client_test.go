package yahoo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"FinFolio/internal/domain/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chartBody = `{"chart":{"result":[{
  "meta":{"symbol":"AAPL","gmtoffset":-14400},
  "timestamp":[1704205800,1704292200,1704378600,1704465000],
  "indicators":{
    "quote":[{"close":[185.64,184.25,null,181.18]}],
    "adjclose":[{"adjclose":[184.9,183.5,null,180.4]}]
  }}],"error":null}}`

func testRange() models.DateRange {
	return models.DateRange{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestHistoryParsesAdjustedCloses(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chartBody))
	}))
	defer srv.Close()

	c := New(srv.URL, 5*time.Second, 0, nil)
	s, err := c.History(context.Background(), "AAPL", testRange())
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/AAPL", gotPath)
	assert.Equal(t, "1d", gotQuery["interval"][0])
	assert.Equal(t, "true", gotQuery["includeAdjustedClose"][0])
	assert.Equal(t, "1704067200", gotQuery["period1"][0])

	require.Len(t, s, 3)
	assert.Equal(t, []float64{184.9, 183.5, 180.4}, s.Closes())
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), s[0].Date)
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), s[2].Date)
}

func TestHistoryEscapesIndexSymbols(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		_, _ = w.Write([]byte(chartBody))
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second, 0, nil).History(context.Background(), "^GSPC", testRange())
	require.NoError(t, err)
	assert.Equal(t, "/v8/finance/chart/%5EGSPC", gotPath)
}

func TestHistoryNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second, 0, nil).History(context.Background(), "NOPE", testRange())
	assert.True(t, errors.Is(err, ErrNoHistory))
}

func TestHistoryEmptyWindow(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chart":{"result":[{"meta":{"gmtoffset":0},"timestamp":[],"indicators":{"quote":[{"close":[]}]}}],"error":null}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second, 0, nil).History(context.Background(), "AAPL", testRange())
	assert.True(t, errors.Is(err, ErrNoHistory))
}

func TestHistoryFallsBackToRawCloses(t *testing.T) {
	res := chartResult{Timestamp: []int64{1704205800, 1704292200}}
	c1, c2 := 10.0, 11.0
	res.Indicators.Quote = append(res.Indicators.Quote, struct {
		Close []*float64 `json:"close"`
	}{Close: []*float64{&c1, &c2}})

	s := parseChart(res, testRange())
	assert.Equal(t, []float64{10, 11}, s.Closes())
}

func TestHistoryHonoursCancelledContext(t *testing.T) {
	c := New("http://127.0.0.1:1", time.Second, time.Hour, nil)
	require.True(t, c.limiter.Allow(c.host))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.History(ctx, "AAPL", testRange())
	assert.Error(t, err)
}
