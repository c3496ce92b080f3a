package runner

import (
	"errors"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/xnoquant/xno/backtest"
	"github.com/xnoquant/xno/common/cache"
	"github.com/xnoquant/xno/config"
	"github.com/xnoquant/xno/execution"
	"github.com/xnoquant/xno/marketdata"
	"github.com/xnoquant/xno/signal"
)

// DefaultStoreCapacity is the number of bots a StateStore remembers
const DefaultStoreCapacity = 1024

// Run statuses reported in RunSummary
const (
	StatusPending  = "pending"
	StatusRunning  = "running"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

var (
	// ErrRunNotFound is returned when no managed run has the requested id
	ErrRunNotFound = errors.New("run not found")

	errNilRunner           = errors.New("nil runner")
	errNoSignalSource      = errors.New("no signal source provided")
	errRunAlreadyMonitored = errors.New("run already monitored")
	errAlreadyRan          = errors.New("run already ran")
	errRunHasNotRan        = errors.New("run hasn't ran yet")
	errRunIsRunning        = errors.New("run is already running")
	errCannotClear         = errors.New("cannot clear run")
)

// Runner drives one strategy through the settlement simulator and keeps the
// bar by bar history needed for its backtest
type Runner struct {
	cfg        config.Config
	execCfg    execution.Config
	mode       backtest.TradeMode
	symbolType backtest.SymbolType
	engine     backtest.Engine
	data       marketdata.Series
	source     signal.Source
	store      *StateStore

	m       sync.Mutex
	running bool
	ran     bool
	err     error

	state           execution.State
	signals         []float64
	times           []time.Time
	prices          []float64
	positions       []float64
	tradeSizes      []float64
	actions         []execution.Action
	checkpointIndex int

	summaryOnce sync.Once
	summary     *backtest.Summary
	summaryErr  error
}

// Stats is the outcome of a completed run
type Stats struct {
	BotID         string    `json:"bot_id"`
	Bars          int       `json:"bars"`
	TotalTrades   int       `json:"total_trades"`
	FinalPosition float64   `json:"final_position"`
	FinalWeight   float64   `json:"final_weight"`
	FinalPrice    float64   `json:"final_price"`
	FromTime      time.Time `json:"from_time"`
	ToTime        time.Time `json:"to_time"`
	FinalTime     time.Time `json:"final_time"`
}

// BotState is the latest execution state of a bot
type BotState struct {
	execution.State
	BotID      string              `json:"bot_id"`
	SymbolType backtest.SymbolType `json:"symbol_type"`
	Mode       backtest.TradeMode  `json:"bt_mode"`
	Engine     backtest.Engine     `json:"engine"`
}

// BotSignal is the latest trading decision of a bot
type BotSignal struct {
	BotID         string              `json:"bot_id"`
	Symbol        string              `json:"symbol"`
	SymbolType    backtest.SymbolType `json:"symbol_type"`
	Candle        time.Time           `json:"candle"`
	CurrentPrice  float64             `json:"current_price"`
	CurrentWeight float64             `json:"current_weight"`
	CurrentAction execution.Action    `json:"current_action"`
	Mode          backtest.TradeMode  `json:"bt_mode"`
	Engine        backtest.Engine     `json:"engine"`
}

// StateStore holds the latest state and signal of every bot. It is shared by
// reference between runners
type StateStore struct {
	m       sync.Mutex
	states  *cache.LRU[string, BotState]
	signals *cache.LRU[string, BotSignal]
}

// RunManager keeps track of runs by id
type RunManager struct {
	m    sync.Mutex
	runs []*run
}

type run struct {
	id     uuid.UUID
	added  time.Time
	runner *Runner
}

// RunSummary describes a managed run
type RunSummary struct {
	ID      uuid.UUID         `json:"id"`
	BotID   string            `json:"bot_id"`
	Symbol  string            `json:"symbol"`
	Added   time.Time         `json:"added"`
	Status  string            `json:"status"`
	Error   string            `json:"error,omitempty"`
	Stats   *Stats            `json:"stats,omitempty"`
	Summary *backtest.Summary `json:"summary,omitempty"`
}
