package backtestresult

import (
	"errors"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null"
)

var (
	// ErrNotFound is returned when no result matches the id
	ErrNotFound = errors.New("backtest result not found")

	errNilSummary = errors.New("nil summary")
	errNilDB      = errors.New("nil database connection")
)

// Result is a stored backtest run. Money and ratio columns are held as
// decimals so they survive storage without float drift
type Result struct {
	ID                   uuid.UUID       `json:"id"`
	BotID                string          `json:"bot_id"`
	Symbol               string          `json:"symbol"`
	Timeframe            string          `json:"timeframe"`
	Mode                 string          `json:"bt_mode"`
	FromTime             time.Time       `json:"from_time"`
	ToTime               time.Time       `json:"to_time"`
	TotalCandles         int64           `json:"total_candles"`
	InitCash             decimal.Decimal `json:"init_cash"`
	EndValue             decimal.Decimal `json:"end_value"`
	TotalReturn          decimal.Decimal `json:"total_return"`
	BenchmarkReturn      decimal.Decimal `json:"benchmark_return"`
	TotalFee             decimal.Decimal `json:"total_fee"`
	TotalTrades          int64           `json:"total_trades"`
	Sharpe               decimal.Decimal `json:"sharpe"`
	MaxDrawdown          decimal.Decimal `json:"max_drawdown"`
	AvgWinTradeDuration  null.Float64    `json:"avg_win_trade_duration"`
	AvgLossTradeDuration null.Float64    `json:"avg_loss_trade_duration"`
	Summary              []byte          `json:"-"`
	InsertedAt           time.Time       `json:"inserted_at"`
}
