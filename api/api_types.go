package api

import (
	"database/sql"
	"errors"
	"net/http"
	"sync"

	"github.com/xnoquant/xno/config"
	"github.com/xnoquant/xno/encoding/json"
	"github.com/xnoquant/xno/runner"
	"golang.org/x/time/rate"
)

const maxRequestBody = 32 << 20

var (
	errServerAlreadyRunning = errors.New("api server already running")
	errServerNotRunning     = errors.New("api server not running")
	errInvalidRunID         = errors.New("invalid run id")
	errEmptyRequest         = errors.New("request has no config or market data")
	errBotNotFound          = errors.New("bot not found")
	errSignalPathNotAllowed = errors.New("signal path not allowed over the api")
)

// Route is a named REST endpoint
type Route struct {
	Name        string
	Method      string
	Pattern     string
	HandlerFunc http.HandlerFunc
}

// Server serves run management over REST
type Server struct {
	cfg     config.APIConfig
	manager *runner.RunManager
	store   *runner.StateStore
	limiter *rate.Limiter
	handler http.Handler

	db      *sql.DB
	dialect string

	m      sync.Mutex
	server *http.Server
}

// RunRequest is the body of POST /v1/runs. Config is a bot config document in
// the same layout as the config file and Data a market data document of the
// form {"bars":[{"time":..,"close":..}]}. Signals, when present, replace the
// configured signal source
type RunRequest struct {
	Config  json.RawMessage `json:"config"`
	Data    json.RawMessage `json:"data"`
	Signals []float64       `json:"signals,omitempty"`
}

// TimeframeResponse describes how a timeframe is annualised
type TimeframeResponse struct {
	Timeframe      string  `json:"timeframe"`
	Minutes        float64 `json:"minutes"`
	PeriodsPerYear int     `json:"periods_per_year"`
	AutoWindow     int     `json:"auto_window"`
}

// BotResponse is the latest state and signal of a bot
type BotResponse struct {
	State  *runner.BotState  `json:"state,omitempty"`
	Signal *runner.BotSignal `json:"signal,omitempty"`
}

// ErrorResponse is returned with every non 2xx status
type ErrorResponse struct {
	Error string `json:"error"`
}
