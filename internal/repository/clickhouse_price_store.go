package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"FinFolio/internal/domain/models"
	domrepo "FinFolio/internal/domain/repository"
	applogger "FinFolio/pkg/logger"
)

// ClickHousePriceStore serves and archives daily closes kept in ClickHouse.
type ClickHousePriceStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewClickHousePriceStore(db *sql.DB, table string, l *applogger.Logger) *ClickHousePriceStore {
	if l == nil {
		l = applogger.Nop()
	}
	return &ClickHousePriceStore{db: db, table: table, l: l}
}

// Schema returns the idempotent DDL for the closes table.
func (s *ClickHousePriceStore) Schema() []string {
	return []string{fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            symbol     LowCardinality(String),
            date       Date,
            close      Float64,
            updated_at DateTime DEFAULT now()
        ) ENGINE = ReplacingMergeTree(updated_at)
        ORDER BY (symbol, date)
    `, s.table)}
}

// History returns the closes for symbol in [r.Start, r.End).
func (s *ClickHousePriceStore) History(ctx context.Context, symbol string, r models.DateRange) (models.PriceSeries, error) {
	start := time.Now()
	const qtpl = `
        SELECT date, close
        FROM %s FINAL
        WHERE symbol = ? AND date >= ? AND date < ?
        ORDER BY date ASC
    `
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.table), symbol, r.Start, r.End)
	if err != nil {
		s.l.Error("clickhouse history query error",
			applogger.String("table", s.table),
			applogger.String("symbol", symbol),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("query history %s: %w", symbol, err)
	}
	defer rows.Close()

	out := make(models.PriceSeries, 0, 1300)
	for rows.Next() {
		var p models.PricePoint
		if err := rows.Scan(&p.Date, &p.Close); err != nil {
			s.l.Error("clickhouse history scan error",
				applogger.String("table", s.table),
				applogger.String("symbol", symbol),
				applogger.Error(err),
			)
			return nil, fmt.Errorf("scan close: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}

	s.l.Debug("clickhouse history ok",
		applogger.String("symbol", symbol),
		applogger.Int("rows", len(out)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return out.Normalize(), nil
}

// Store writes series in multi-row inserts. Re-inserted dates replace older rows on merge.
func (s *ClickHousePriceStore) Store(ctx context.Context, symbol string, series models.PriceSeries) error {
	const chunkSize = 2000
	for start := 0; start < len(series); start += chunkSize {
		end := start + chunkSize
		if end > len(series) {
			end = len(series)
		}

		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*3)
		for _, p := range series[start:end] {
			values = append(values, "(?, ?, ?)")
			args = append(args, symbol, p.Date, p.Close)
		}
		q := fmt.Sprintf("INSERT INTO %s (symbol, date, close) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			return fmt.Errorf("store closes %s: %w", symbol, err)
		}
	}
	return nil
}

// ArchivingPriceSource forwards to next and copies every fetched series into the store.
// Archive failures are logged and never fail the fetch.
type ArchivingPriceSource struct {
	next  domrepo.PriceSource
	store *ClickHousePriceStore
	l     *applogger.Logger
}

func NewArchivingPriceSource(next domrepo.PriceSource, store *ClickHousePriceStore, l *applogger.Logger) *ArchivingPriceSource {
	if l == nil {
		l = applogger.Nop()
	}
	return &ArchivingPriceSource{next: next, store: store, l: l}
}

func (a *ArchivingPriceSource) History(ctx context.Context, symbol string, r models.DateRange) (models.PriceSeries, error) {
	series, err := a.next.History(ctx, symbol, r)
	if err != nil || len(series) == 0 {
		return series, err
	}
	if err := a.store.Store(ctx, symbol, series); err != nil {
		a.l.Warn("archive closes failed", applogger.String("symbol", symbol), applogger.Error(err))
	}
	return series, nil
}

var (
	_ domrepo.PriceSource = (*ClickHousePriceStore)(nil)
	_ domrepo.PriceSource = (*ArchivingPriceSource)(nil)
)
