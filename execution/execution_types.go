package execution

import (
	"errors"
	"fmt"
	"time"
)

// DefaultLotSize is the HOSE board lot
const DefaultLotSize = 100

var (
	// ErrNonPositivePrice is returned when a bar carries a zero, negative or NaN price
	ErrNonPositivePrice = errors.New("price must be positive")
	// ErrNonMonotonicTime is returned when a bar is earlier than the previous bar
	ErrNonMonotonicTime = errors.New("time must not decrease")
	// ErrInvalidSignal is returned when a signal is NaN or infinite
	ErrInvalidSignal = errors.New("signal must be a finite number")
	// ErrLengthMismatch is returned when bar arrays differ in length
	ErrLengthMismatch = errors.New("length mismatch")
	// ErrInvalidConfig is returned when the initial cash or lot size is not positive
	ErrInvalidConfig = errors.New("invalid execution config")
)

// ICT is the Vietnamese market time zone used to decide settlement rollovers
var ICT = time.FixedZone("ICT", 7*60*60)

// Action is the trade direction taken on a bar
type Action int8

// Action values
const (
	Sell Action = -1
	Hold Action = 0
	Buy  Action = 1
)

// String implements fmt.Stringer
func (a Action) String() string {
	switch a {
	case Buy:
		return "B"
	case Sell:
		return "S"
	case Hold:
		return "H"
	default:
		return fmt.Sprintf("Action(%d)", int8(a))
	}
}

// State is the execution state of a single strategy. Shares move from T0 to
// T1 to T2 to SellSize on each settlement day rollover and only SellSize can be
// sold
type State struct {
	Symbol   string    `json:"symbol"`
	BookSize float64   `json:"book_size"`
	RunFrom  time.Time `json:"run_from"`
	RunTo    time.Time `json:"run_to"`

	Candle        time.Time `json:"candle"`
	CurrentPrice  float64   `json:"current_price"`
	CurrentAction Action    `json:"current_action"`

	CurrentPosition float64 `json:"current_position"`
	CurrentWeight   float64 `json:"current_weight"`

	T0Size   float64 `json:"t0_size"`
	T1Size   float64 `json:"t1_size"`
	T2Size   float64 `json:"t2_size"`
	SellSize float64 `json:"sell_size"`

	PendingSellWeight float64 `json:"pending_sell_weight"`
	TradeSize         float64 `json:"trade_size"`
}

// NewState returns a flat state for a strategy with the given capital and run bounds
func NewState(symbol string, bookSize float64, runFrom, runTo time.Time) State {
	return State{
		Symbol:        symbol,
		BookSize:      bookSize,
		RunFrom:       runFrom,
		RunTo:         runTo,
		CurrentAction: Hold,
	}
}

// Settled returns the total of all settlement buckets
func (s *State) Settled() float64 {
	return s.T0Size + s.T1Size + s.T2Size + s.SellSize
}

// Input is a single bar fed to Step
type Input struct {
	Index  int
	Signal float64
	Price  float64
	Time   time.Time
}

// Config holds the per strategy constants used by Step
type Config struct {
	BotID       string
	InitialCash float64
	LotSize     float64
	// Location decides when the calendar date changes. Nil means ICT
	Location *time.Location
}

// Output describes what happened on a bar
type Output struct {
	Action    Action
	TradeSize float64
	MaxShares float64
	Rollover  bool
	Deferred  bool
}

// StepError is a fatal input violation for a bar
type StepError struct {
	BotID string
	Index int
	Time  time.Time
	Field string
	Err   error
}

// Error implements the error interface
func (e *StepError) Error() string {
	return fmt.Sprintf("bot %q bar %d (%s) field %q: %v", e.BotID, e.Index, e.Time.Format(time.RFC3339), e.Field, e.Err)
}

// Unwrap returns the underlying sentinel
func (e *StepError) Unwrap() error {
	return e.Err
}
