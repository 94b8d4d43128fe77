package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"FinFolio/internal/domain/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time { return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC) }

var march = models.DateRange{Start: day(1), End: day(31)}

func TestClickHouseHistory(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT date, close\s+FROM daily_closes FINAL`).
		WithArgs("AAPL", march.Start, march.End).
		WillReturnRows(sqlmock.NewRows([]string{"date", "close"}).
			AddRow(day(4), 170.1).
			AddRow(day(5), 169.2).
			AddRow(day(5), 169.5))

	s, err := NewClickHousePriceStore(db, "daily_closes", nil).History(context.Background(), "AAPL", march)
	require.NoError(t, err)
	assert.Equal(t, []float64{170.1, 169.5}, s.Closes())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClickHouseHistoryQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT date, close").WillReturnError(errors.New("connection reset"))

	_, err = NewClickHousePriceStore(db, "daily_closes", nil).History(context.Background(), "AAPL", march)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestClickHouseStore(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO daily_closes \(symbol, date, close\) VALUES \(\?, \?, \?\),\(\?, \?, \?\)`).
		WithArgs("MSFT", day(4), 410.0, "MSFT", day(5), 412.5).
		WillReturnResult(sqlmock.NewResult(0, 2))

	series := models.PriceSeries{{Date: day(4), Close: 410}, {Date: day(5), Close: 412.5}}
	require.NoError(t, NewClickHousePriceStore(db, "daily_closes", nil).Store(context.Background(), "MSFT", series))
	assert.NoError(t, mock.ExpectationsWereMet())
}

type stubPrices struct {
	series models.PriceSeries
	err    error
	calls  int
}

func (s *stubPrices) History(context.Context, string, models.DateRange) (models.PriceSeries, error) {
	s.calls++
	return s.series, s.err
}

func TestArchivingSourceKeepsFetchOnStoreFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectExec("INSERT INTO daily_closes").WillReturnError(errors.New("read only"))

	next := &stubPrices{series: models.PriceSeries{{Date: day(4), Close: 1}}}
	src := NewArchivingPriceSource(next, NewClickHousePriceStore(db, "daily_closes", nil), nil)

	s, err := src.History(context.Background(), "AAPL", march)
	require.NoError(t, err)
	assert.Len(t, s, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestArchivingSourceSkipsEmptyAndErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	store := NewClickHousePriceStore(db, "daily_closes", nil)
	_, err = NewArchivingPriceSource(&stubPrices{err: errors.New("boom")}, store, nil).History(context.Background(), "X", march)
	assert.EqualError(t, err, "boom")

	s, err := NewArchivingPriceSource(&stubPrices{}, store, nil).History(context.Background(), "X", march)
	assert.NoError(t, err)
	assert.Empty(t, s)
	assert.NoError(t, mock.ExpectationsWereMet())
}
