package config

import (
	"errors"
	"time"

	"github.com/xnoquant/xno/database"
	"github.com/xnoquant/xno/log"
)

// Constants declared here are filename strings, environment settings and
// defaults applied when a value is missing
const (
	DefaultConfigFile  = "config.json"
	EnvPrefix          = "XNO"
	defaultLotSize     = 100
	defaultUTCOffset   = 7
	defaultStockFee    = 0.0015
	defaultFixedFee    = 20000
	defaultPriceFactor = 1000
	defaultListenAddr  = "localhost:9050"
	defaultRPS         = 10
	defaultMode        = "test"
	defaultSymbolType  = "VnStock"
	defaultEngine      = "Default"
	defaultSignalType  = SignalCSV
	defaultSignalCol   = "signal"
)

// Signal source types
const (
	SignalStatic   = "static"
	SignalCSV      = "csv"
	SignalScript   = "script"
	SignalRSI      = "rsi"
	SignalSMACross = "sma-cross"
)

var (
	errEmptyBotID        = errors.New("bot id must be set")
	errEmptySymbol       = errors.New("bot symbol must be set")
	errInvalidInitCash   = errors.New("initial cash must be positive")
	errInvalidLotSize    = errors.New("lot size must be positive")
	errInvalidFee        = errors.New("stock fee percent must be within [0, 1)")
	errInvalidFactor     = errors.New("price factor must be positive")
	errInvalidRateLimit  = errors.New("requests per second must be positive")
	errInvalidUTCOffset  = errors.New("settlement timezone offset must be within [-12, 14] hours")
	errUnknownSignalType = errors.New("unknown signal source")
	errNoConfigPath      = errors.New("no config path provided")
)

// Config is the overarching object that holds all the information for a
// strategy run and the services around it
type Config struct {
	Version   int             `json:"version"`
	Bot       BotConfig       `json:"bot"`
	Execution ExecutionConfig `json:"execution"`
	Fees      FeeConfig       `json:"fees"`
	Signal    SignalConfig    `json:"signal"`
	Data      DataConfig      `json:"data"`
	Database  database.Config `json:"database"`
	API       APIConfig       `json:"api"`
	Logging   log.Config      `json:"logging"`
}

// BotConfig identifies the strategy and its run window
type BotConfig struct {
	ID         string    `json:"id"`
	Symbol     string    `json:"symbol"`
	SymbolType string    `json:"symbolType"`
	Timeframe  string    `json:"timeframe"`
	InitCash   float64   `json:"initCash"`
	RunFrom    time.Time `json:"runFrom"`
	RunTo      time.Time `json:"runTo"`
	Mode       string    `json:"mode"`
	Engine     string    `json:"engine"`
}

// ExecutionConfig holds the settlement simulator settings
type ExecutionConfig struct {
	LotSize                       float64 `json:"lotSize"`
	SettlementTimezoneOffsetHours int     `json:"settlementTimezoneOffsetHours"`
}

// FeeConfig holds trading costs. FixedDerivative is charged per derivative
// contract in VND and is not used by the stock backtest
type FeeConfig struct {
	StockPercent    float64 `json:"stockPercent"`
	FixedDerivative float64 `json:"fixedDerivative"`
}

// SignalConfig selects how the per bar signals are produced
type SignalConfig struct {
	Source   string             `json:"source"`
	Path     string             `json:"path,omitempty"`
	Column   string             `json:"column,omitempty"`
	Script   string             `json:"script,omitempty"`
	Values   []float64          `json:"values,omitempty"`
	Settings map[string]float64 `json:"settings,omitempty"`
}

// DataConfig locates the market data file
type DataConfig struct {
	Path        string  `json:"path"`
	Format      string  `json:"format,omitempty"`
	PriceFactor float64 `json:"priceFactor"`
}

// APIConfig holds the REST server settings
type APIConfig struct {
	ListenAddress     string  `json:"listenAddress"`
	RequestsPerSecond float64 `json:"requestsPerSecond"`
	Burst             int     `json:"burst"`
}
