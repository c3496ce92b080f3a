package api

import (
	"bytes"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/thrasher-corp/goose"
	"github.com/xnoquant/xno/common"
	"github.com/xnoquant/xno/config"
	"github.com/xnoquant/xno/database"
	dbsqlite3 "github.com/xnoquant/xno/database/drivers/sqlite3"
	"github.com/xnoquant/xno/encoding/json"
	"github.com/xnoquant/xno/runner"
)

// goose keeps its dialect in package state
var migrateMu sync.Mutex

const testConfig = `{
 "bot": {"id": "api-bot", "symbol": "SSI", "timeframe": "1D", "initCash": 1000000000},
 "signal": {"source": "static"}
}`

func testData() json.RawMessage {
	var sb strings.Builder
	sb.WriteString(`{"bars":[`)
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range 6 {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, `{"time":%q,"close":10}`, start.AddDate(0, 0, i).Format(time.DateOnly))
	}
	sb.WriteString(`]}`)
	return json.RawMessage(sb.String())
}

func newTestServer(t *testing.T, rps float64, burst int) *Server {
	t.Helper()
	s, err := New(&config.APIConfig{RequestsPerSecond: rps, Burst: burst}, runner.NewRunManager(), runner.NewStateStore(0))
	require.NoError(t, err)
	return s
}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := dbsqlite3.Connect(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { assert.NoError(t, db.Close()) })
	migrateMu.Lock()
	defer migrateMu.Unlock()
	require.NoError(t, goose.Run("up", db, database.DBSQLite3, filepath.Join("..", "database", "migrations"), ""))
	return db
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, path, &payload)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func createRun(t *testing.T, s *Server, signals []float64) *runner.RunSummary {
	t.Helper()
	rec := do(t, s, http.MethodPost, "/v1/runs", RunRequest{
		Config:  json.RawMessage(testConfig),
		Data:    testData(),
		Signals: signals,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sum runner.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	return &sum
}

func TestNew(t *testing.T) {
	t.Parallel()
	_, err := New(nil, nil, nil)
	assert.ErrorIs(t, err, common.ErrNilPointer)
	_, err = New(&config.APIConfig{}, nil, nil)
	assert.ErrorIs(t, err, common.ErrNilPointer)
	_, err = New(&config.APIConfig{}, runner.NewRunManager(), nil)
	assert.ErrorIs(t, err, common.ErrNilPointer)

	s := newTestServer(t, 1, 1)
	assert.ErrorIs(t, s.Stop(t.Context()), errServerNotRunning)
}

func TestHealth(t *testing.T) {
	t.Parallel()
	rec := do(t, newTestServer(t, 100, 100), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "application/json; charset=UTF-8", rec.Header().Get("Content-Type"))
}

func TestRateLimit(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, 0.001, 1)
	assert.Equal(t, http.StatusOK, do(t, s, http.MethodGet, "/healthz", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, s, http.MethodGet, "/healthz", nil).Code)
}

func TestRuns(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, 1000, 1000)
	sum := createRun(t, s, []float64{1, -1, 0, 0, 0, 0})
	assert.Equal(t, runner.StatusComplete, sum.Status)
	assert.Equal(t, "api-bot", sum.BotID)
	require.NotNil(t, sum.Stats)
	assert.Equal(t, 2, sum.Stats.TotalTrades)
	require.NotNil(t, sum.Summary)
	assert.Equal(t, 6, sum.Summary.TotalCandles)

	rec := do(t, s, http.MethodGet, "/v1/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []runner.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, sum.ID, list[0].ID)
	assert.Nil(t, list[0].Summary, "listing does not carry the full backtest")

	rec = do(t, s, http.MethodGet, "/v1/runs/"+sum.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var got runner.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.NotNil(t, got.Summary)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/v1/runs/nope", nil).Code)
	unknown := uuid.Must(uuid.NewV4()).String()
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/v1/runs/"+unknown, nil).Code)

	rec = do(t, s, http.MethodGet, "/v1/bots/api-bot", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var bot BotResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bot))
	require.NotNil(t, bot.State)
	assert.Zero(t, bot.State.CurrentPosition)
	require.NotNil(t, bot.Signal)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/v1/bots/ghost", nil).Code)
	rec = do(t, s, http.MethodGet, "/v1/bots", nil)
	assert.JSONEq(t, `["api-bot"]`, rec.Body.String())

	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodDelete, "/v1/runs/"+sum.ID.String(), nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodDelete, "/v1/runs/"+sum.ID.String(), nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodDelete, "/v1/runs/nope", nil).Code)

	rec = do(t, s, http.MethodGet, "/v1/bots/api-bot/results", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCreateRunErrors(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, 1000, 1000)
	req := httptest.NewRequest(http.MethodPost, "/v1/runs", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/v1/runs", RunRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), errEmptyRequest.Error())

	rec = do(t, s, http.MethodPost, "/v1/runs", RunRequest{
		Config: json.RawMessage(`{"bot":{"id":"x","symbol":"SSI","timeframe":"fortnight","initCash":1}}`),
		Data:   testData(),
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/v1/runs", RunRequest{
		Config:  json.RawMessage(testConfig),
		Data:    testData(),
		Signals: []float64{1},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var sum runner.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sum))
	assert.Equal(t, runner.StatusFailed, sum.Status)
	assert.NotEmpty(t, sum.Error)
}

func TestCreateRunRejectsSignalPath(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, 1000, 1000)
	for _, sig := range []string{
		`{"source":"csv","path":"/etc/passwd","column":"x"}`,
		`{"source":"script","path":"/etc/passwd"}`,
	} {
		rec := do(t, s, http.MethodPost, "/v1/runs", RunRequest{
			Config: json.RawMessage(`{"bot":{"id":"api-bot","symbol":"SSI","timeframe":"1D","initCash":1000000000},"signal":` + sig + `}`),
			Data:   testData(),
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code, sig)
		assert.Contains(t, rec.Body.String(), errSignalPathNotAllowed.Error(), sig)
	}
	runs, err := s.manager.List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestRunsPersisted(t *testing.T) {
	t.Parallel()
	db := newTestDB(t)
	s := newTestServer(t, 1000, 1000)
	s.SetDatabase(db, database.DBSQLite3)
	sum := createRun(t, s, []float64{1, 0, 0, 0, 0, -1})

	rec := do(t, s, http.MethodGet, "/v1/bots/api-bot/results", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var results []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, sum.ID.String(), results[0]["id"])

	_, _, err := s.manager.ClearAllRuns()
	require.NoError(t, err)
	rec = do(t, s, http.MethodGet, "/v1/runs/"+sum.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code, "runs cleared from memory are read back from the database")
	var stored runner.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stored))
	require.NotNil(t, stored.Summary)
	assert.Equal(t, 6, stored.Summary.TotalCandles)

	assert.Equal(t, http.StatusNoContent, do(t, s, http.MethodDelete, "/v1/runs/"+sum.ID.String(), nil).Code)
	assert.Equal(t, http.StatusNotFound, do(t, s, http.MethodGet, "/v1/runs/"+sum.ID.String(), nil).Code)
}

func TestTimeframe(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, 1000, 1000)
	rec := do(t, s, http.MethodGet, "/v1/timeframes/1D", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var tf TimeframeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tf))
	assert.Equal(t, 250, tf.PeriodsPerYear)
	assert.Equal(t, 126, tf.AutoWindow)
	assert.Equal(t, 330.0, tf.Minutes)

	assert.Equal(t, http.StatusBadRequest, do(t, s, http.MethodGet, "/v1/timeframes/fortnight", nil).Code)
}

func TestStartStop(t *testing.T) {
	t.Parallel()
	s, err := New(&config.APIConfig{ListenAddress: "127.0.0.1:0", RequestsPerSecond: 1, Burst: 1}, runner.NewRunManager(), runner.NewStateStore(0))
	require.NoError(t, err)
	errs := make(chan error, 1)
	go func() { errs <- s.Start() }()
	assert.Eventually(t, func() bool {
		s.m.Lock()
		defer s.m.Unlock()
		return s.server != nil
	}, time.Second, 10*time.Millisecond)
	assert.ErrorIs(t, s.Start(), errServerAlreadyRunning)
	require.NoError(t, s.Stop(t.Context()))
	assert.NoError(t, <-errs)
}
