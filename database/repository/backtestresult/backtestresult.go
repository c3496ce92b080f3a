package backtestresult

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/xnoquant/xno/backtest"
	"github.com/xnoquant/xno/database/repository"
	"github.com/xnoquant/xno/encoding/json"
	"github.com/xnoquant/xno/log"
)

const columns = `id, bot_id, symbol, timeframe, mode, from_time, to_time, total_candles, init_cash, end_value,
	total_return, benchmark_return, total_fee, total_trades, sharpe, max_drawdown, avg_win_trade_duration,
	avg_loss_trade_duration, summary, inserted_at`

// FromSummary converts a summary into a storable result. A nil id is
// replaced with a new random one
func FromSummary(id uuid.UUID, s *backtest.Summary) (*Result, error) {
	if s == nil {
		return nil, errNilSummary
	}
	if id.IsNil() {
		var err error
		if id, err = uuid.NewV4(); err != nil {
			return nil, err
		}
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return &Result{
		ID:                   id,
		BotID:                s.BotID,
		Symbol:               s.Symbol,
		Timeframe:            s.Timeframe,
		Mode:                 string(s.Mode),
		FromTime:             s.FromTime.UTC(),
		ToTime:               s.ToTime.UTC(),
		TotalCandles:         int64(s.TotalCandles),
		InitCash:             toDecimal(s.InitCash),
		EndValue:             toDecimal(s.Analysis.EndValue),
		TotalReturn:          toDecimal(s.Analysis.TotalReturn),
		BenchmarkReturn:      toDecimal(s.Analysis.BenchmarkReturn),
		TotalFee:             toDecimal(s.Analysis.TotalFee),
		TotalTrades:          int64(s.Analysis.TotalTrades),
		Sharpe:               toDecimal(s.Performance.Sharpe),
		MaxDrawdown:          toDecimal(s.Performance.MaxDrawdown),
		AvgWinTradeDuration:  s.Analysis.AvgWinTradeDuration,
		AvgLossTradeDuration: s.Analysis.AvgLossTradeDuration,
		Summary:              payload,
	}, nil
}

// Decode unmarshals the stored summary
func (r *Result) Decode() (*backtest.Summary, error) {
	var s backtest.Summary
	if err := json.Unmarshal(r.Summary, &s); err != nil {
		return nil, fmt.Errorf("result %s: %w", r.ID, err)
	}
	return &s, nil
}

// Insert stores r, setting InsertedAt
func Insert(ctx context.Context, db *sql.DB, dialect string, r *Result) error {
	if db == nil {
		return errNilDB
	}
	if r == nil {
		return errNilSummary
	}
	r.InsertedAt = time.Now().UTC()
	query := repository.Rebind(dialect, `INSERT INTO backtest_result (`+columns+`)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err := db.ExecContext(ctx, query,
		r.ID.String(), r.BotID, r.Symbol, r.Timeframe, r.Mode, r.FromTime, r.ToTime, r.TotalCandles,
		r.InitCash, r.EndValue, r.TotalReturn, r.BenchmarkReturn, r.TotalFee, r.TotalTrades,
		r.Sharpe, r.MaxDrawdown, r.AvgWinTradeDuration, r.AvgLossTradeDuration, string(r.Summary), r.InsertedAt)
	if err != nil {
		return fmt.Errorf("insert backtest result %s: %w", r.ID, err)
	}
	log.Debugf(log.DatabaseMgr, "stored backtest result %s for bot %s", r.ID, r.BotID)
	return nil
}

// GetByID returns the result stored under id
func GetByID(ctx context.Context, db *sql.DB, dialect string, id uuid.UUID) (*Result, error) {
	if db == nil {
		return nil, errNilDB
	}
	row := db.QueryRowContext(ctx, repository.Rebind(dialect, `SELECT `+columns+` FROM backtest_result WHERE id = ?`), id.String())
	r, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, err
}

// ListByBot returns the results of a bot, newest first. A limit of zero or
// less returns every result
func ListByBot(ctx context.Context, db *sql.DB, dialect, botID string, limit int) ([]Result, error) {
	if db == nil {
		return nil, errNilDB
	}
	query := `SELECT ` + columns + ` FROM backtest_result WHERE bot_id = ? ORDER BY inserted_at DESC`
	args := []any{botID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := db.QueryContext(ctx, repository.Rebind(dialect, query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Result
	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// Delete removes the result stored under id
func Delete(ctx context.Context, db *sql.DB, dialect string, id uuid.UUID) error {
	if db == nil {
		return errNilDB
	}
	res, err := db.ExecContext(ctx, repository.Rebind(dialect, `DELETE FROM backtest_result WHERE id = ?`), id.String())
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*Result, error) {
	var r Result
	var id, summary string
	err := s.Scan(&id, &r.BotID, &r.Symbol, &r.Timeframe, &r.Mode, &r.FromTime, &r.ToTime, &r.TotalCandles,
		&r.InitCash, &r.EndValue, &r.TotalReturn, &r.BenchmarkReturn, &r.TotalFee, &r.TotalTrades,
		&r.Sharpe, &r.MaxDrawdown, &r.AvgWinTradeDuration, &r.AvgLossTradeDuration, &summary, &r.InsertedAt)
	if err != nil {
		return nil, err
	}
	if r.ID, err = uuid.FromString(id); err != nil {
		return nil, err
	}
	r.Summary = []byte(summary)
	return &r, nil
}

func toDecimal(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(f)
}
