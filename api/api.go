package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gofrs/uuid"
	"github.com/gorilla/mux"
	"github.com/xnoquant/xno/backtest"
	"github.com/xnoquant/xno/common"
	"github.com/xnoquant/xno/config"
	"github.com/xnoquant/xno/database/repository/backtestresult"
	"github.com/xnoquant/xno/encoding/json"
	"github.com/xnoquant/xno/log"
	"github.com/xnoquant/xno/marketdata"
	"github.com/xnoquant/xno/runner"
	"github.com/xnoquant/xno/signal"
	"golang.org/x/time/rate"
)

// New returns a server over the run manager and state store
func New(cfg *config.APIConfig, manager *runner.RunManager, store *runner.StateStore) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w api config", common.ErrNilPointer)
	}
	if manager == nil {
		return nil, fmt.Errorf("%w run manager", common.ErrNilPointer)
	}
	if store == nil {
		return nil, fmt.Errorf("%w state store", common.ErrNilPointer)
	}
	s := &Server{
		cfg:     *cfg,
		manager: manager,
		store:   store,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
	}
	s.handler = s.newRouter()
	return s, nil
}

// SetDatabase enables persistence of completed runs
func (s *Server) SetDatabase(db *sql.DB, dialect string) {
	s.db = db
	s.dialect = dialect
}

// Handler returns the routed and rate limited handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start listens on the configured address until Stop is called
func (s *Server) Start() error {
	s.m.Lock()
	if s.server != nil {
		s.m.Unlock()
		return errServerAlreadyRunning
	}
	srv := &http.Server{
		Addr:              s.cfg.ListenAddress,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.server = srv
	s.m.Unlock()

	log.Infof(log.APIServer, "REST server listening on http://%s", s.cfg.ListenAddress)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.m.Lock()
		s.server = nil
		s.m.Unlock()
		return err
	}
	return nil
}

// Stop gracefully shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	s.m.Lock()
	srv := s.server
	s.server = nil
	s.m.Unlock()
	if srv == nil {
		return errServerNotRunning
	}
	log.Infoln(log.APIServer, "REST server shutting down")
	return srv.Shutdown(ctx)
}

func (s *Server) routes() []Route {
	return []Route{
		{"Health", http.MethodGet, "/healthz", s.getHealth},
		{"ListRuns", http.MethodGet, "/v1/runs", s.listRuns},
		{"CreateRun", http.MethodPost, "/v1/runs", s.createRun},
		{"GetRun", http.MethodGet, "/v1/runs/{id}", s.getRun},
		{"DeleteRun", http.MethodDelete, "/v1/runs/{id}", s.deleteRun},
		{"ListBotResults", http.MethodGet, "/v1/bots/{bot}/results", s.listBotResults},
		{"GetBot", http.MethodGet, "/v1/bots/{bot}", s.getBot},
		{"ListBots", http.MethodGet, "/v1/bots", s.listBots},
		{"GetTimeframe", http.MethodGet, "/v1/timeframes/{tf}", s.getTimeframe},
	}
}

func (s *Server) newRouter() http.Handler {
	router := mux.NewRouter().StrictSlash(true)
	for _, route := range s.routes() {
		router.
			Methods(route.Method).
			Path(route.Pattern).
			Name(route.Name).
			Handler(restLogger(route.HandlerFunc, route.Name))
	}
	return s.rateLimit(router)
}

// restLogger logs the requests internally
func restLogger(inner http.Handler, name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		inner.ServeHTTP(w, r)
		log.Debugf(log.APIServer, "%s\t%s\t%s\t%s", r.Method, r.RequestURI, name, time.Since(start))
	})
}

func (s *Server) rateLimit(inner http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, r, http.StatusTooManyRequests, errors.New(http.StatusText(http.StatusTooManyRequests)))
			return
		}
		inner.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, response any) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	if response == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Errorf(log.APIServer, "RESTful %s %s: server failed to send JSON response. Error %s", r.Method, r.URL.Path, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		log.Errorf(log.APIServer, "RESTful %s %s: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, r, status, ErrorResponse{Error: err.Error()})
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.manager.List()
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, r, http.StatusOK, runs)
}

func (s *Server) createRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	rn, err := s.buildRunner(r.Context(), &req)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	id, err := s.manager.AddRun(rn)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	runErr := s.manager.StartRun(r.Context(), id)
	sum, err := s.manager.GetSummary(id)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	if runErr != nil {
		writeJSON(w, r, http.StatusUnprocessableEntity, sum)
		return
	}
	if err := s.persist(r.Context(), id, sum.Summary); err != nil {
		log.Errorf(log.APIServer, "Could not store run %s: %v", id, err)
	}
	writeJSON(w, r, http.StatusCreated, sum)
}

func (s *Server) buildRunner(ctx context.Context, req *RunRequest) (*runner.Runner, error) {
	if len(req.Config) == 0 || len(req.Data) == 0 {
		return nil, errEmptyRequest
	}
	cfg, err := config.ReadConfig(ctx, req.Config)
	if err != nil {
		return nil, err
	}
	if req.Signals != nil {
		cfg.Signal = config.SignalConfig{Source: config.SignalStatic, Values: req.Signals}
	}
	if cfg.Signal.Path != "" {
		return nil, fmt.Errorf("%w: %q", errSignalPathNotAllowed, cfg.Signal.Path)
	}
	series, err := marketdata.LoadJSON(req.Data, cfg.Bot.Symbol, cfg.Location())
	if err != nil {
		return nil, err
	}
	src, err := signal.New(&cfg.Signal)
	if err != nil {
		return nil, err
	}
	return runner.New(cfg, series, src, s.store)
}

func (s *Server) persist(ctx context.Context, id uuid.UUID, sum *backtest.Summary) error {
	if s.db == nil || sum == nil {
		return nil
	}
	res, err := backtestresult.FromSummary(id, sum)
	if err != nil {
		return err
	}
	return backtestresult.Insert(ctx, s.db, s.dialect, res)
}

func runID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.FromString(mux.Vars(r)["id"])
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", errInvalidRunID, err)
	}
	return id, nil
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	id, err := runID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	sum, err := s.manager.GetSummary(id)
	if err == nil {
		writeJSON(w, r, http.StatusOK, sum)
		return
	}
	if !errors.Is(err, runner.ErrRunNotFound) || s.db == nil {
		writeError(w, r, statusFor(err), err)
		return
	}
	stored, err := s.storedRun(r.Context(), id)
	if err != nil {
		writeError(w, r, statusFor(err), err)
		return
	}
	writeJSON(w, r, http.StatusOK, stored)
}

// storedRun rebuilds a run summary from the database for runs no longer held
// in memory
func (s *Server) storedRun(ctx context.Context, id uuid.UUID) (*runner.RunSummary, error) {
	res, err := backtestresult.GetByID(ctx, s.db, s.dialect, id)
	if err != nil {
		return nil, err
	}
	sum, err := res.Decode()
	if err != nil {
		return nil, err
	}
	return &runner.RunSummary{
		ID:      res.ID,
		BotID:   res.BotID,
		Symbol:  res.Symbol,
		Added:   res.InsertedAt,
		Status:  runner.StatusComplete,
		Summary: sum,
	}, nil
}

func (s *Server) deleteRun(w http.ResponseWriter, r *http.Request) {
	id, err := runID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	memErr := s.manager.ClearRun(id)
	if memErr != nil && !errors.Is(memErr, runner.ErrRunNotFound) {
		writeError(w, r, http.StatusConflict, memErr)
		return
	}
	if s.db != nil {
		dbErr := backtestresult.Delete(r.Context(), s.db, s.dialect, id)
		switch {
		case dbErr == nil:
			memErr = nil
		case !errors.Is(dbErr, backtestresult.ErrNotFound):
			writeError(w, r, http.StatusInternalServerError, dbErr)
			return
		}
	}
	if memErr != nil {
		writeError(w, r, http.StatusNotFound, memErr)
		return
	}
	writeJSON(w, r, http.StatusNoContent, nil)
}

func (s *Server) listBots(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, s.store.Bots())
}

func (s *Server) getBot(w http.ResponseWriter, r *http.Request) {
	bot := mux.Vars(r)["bot"]
	var resp BotResponse
	if state, ok := s.store.State(bot); ok {
		resp.State = &state
	}
	if sig, ok := s.store.Signal(bot); ok {
		resp.Signal = &sig
	}
	if resp.State == nil && resp.Signal == nil {
		writeError(w, r, http.StatusNotFound, fmt.Errorf("%w: %s", errBotNotFound, bot))
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) listBotResults(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeJSON(w, r, http.StatusOK, []backtestresult.Result{})
		return
	}
	results, err := backtestresult.ListByBot(r.Context(), s.db, s.dialect, mux.Vars(r)["bot"], 100)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, r, http.StatusOK, results)
}

func (s *Server) getTimeframe(w http.ResponseWriter, r *http.Request) {
	tf := mux.Vars(r)["tf"]
	minutes, err := backtest.TimeframeMinutes(tf)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	periods, err := backtest.PeriodsPerYear(tf)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, r, http.StatusOK, TimeframeResponse{
		Timeframe:      tf,
		Minutes:        minutes,
		PeriodsPerYear: periods,
		AutoWindow:     backtest.AutoWindow(tf),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, runner.ErrRunNotFound), errors.Is(err, backtestresult.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
