package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/xnoquant/xno/common"
)

// NewRunManager returns an empty run manager
func NewRunManager() *RunManager {
	return &RunManager{}
}

// AddRun registers a runner and returns its run id
func (m *RunManager) AddRun(r *Runner) (uuid.UUID, error) {
	if m == nil {
		return uuid.Nil, fmt.Errorf("%w RunManager", common.ErrNilPointer)
	}
	if r == nil {
		return uuid.Nil, fmt.Errorf("%w Runner", common.ErrNilPointer)
	}
	m.m.Lock()
	defer m.m.Unlock()
	for i := range m.runs {
		if m.runs[i].runner == r {
			return uuid.Nil, fmt.Errorf("%w %s %s", errRunAlreadyMonitored, m.runs[i].id, r.BotID())
		}
	}
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, err
	}
	m.runs = append(m.runs, &run{id: id, added: time.Now(), runner: r})
	return id, nil
}

// List details every managed run
func (m *RunManager) List() ([]*RunSummary, error) {
	if m == nil {
		return nil, fmt.Errorf("%w RunManager", common.ErrNilPointer)
	}
	m.m.Lock()
	defer m.m.Unlock()
	resp := make([]*RunSummary, len(m.runs))
	for i := range m.runs {
		resp[i] = m.runs[i].summarise(false)
	}
	return resp, nil
}

// GetSummary returns details of a run including its backtest once complete
func (m *RunManager) GetSummary(id uuid.UUID) (*RunSummary, error) {
	r, err := m.find(id)
	if err != nil {
		return nil, err
	}
	return r.summarise(true), nil
}

// Runner returns the runner behind a run id
func (m *RunManager) Runner(id uuid.UUID) (*Runner, error) {
	r, err := m.find(id)
	if err != nil {
		return nil, err
	}
	return r.runner, nil
}

// StartRun executes a run and waits for it to finish
func (m *RunManager) StartRun(ctx context.Context, id uuid.UUID) error {
	r, err := m.find(id)
	if err != nil {
		return err
	}
	return r.runner.Run(ctx)
}

// StartAllRuns executes every run that has not ran yet in parallel
func (m *RunManager) StartAllRuns(ctx context.Context) ([]uuid.UUID, error) {
	if m == nil {
		return nil, fmt.Errorf("%w RunManager", common.ErrNilPointer)
	}
	m.m.Lock()
	ids := make([]uuid.UUID, 0, len(m.runs))
	runners := make([]*Runner, 0, len(m.runs))
	for i := range m.runs {
		if m.runs[i].runner.HasRan() || m.runs[i].runner.IsRunning() {
			continue
		}
		ids = append(ids, m.runs[i].id)
		runners = append(runners, m.runs[i].runner)
	}
	m.m.Unlock()
	if err := RunAll(ctx, runners...); err != nil {
		return nil, err
	}
	return ids, nil
}

// ClearRun removes a run from memory
func (m *RunManager) ClearRun(id uuid.UUID) error {
	if m == nil {
		return fmt.Errorf("%w RunManager", common.ErrNilPointer)
	}
	m.m.Lock()
	defer m.m.Unlock()
	for i := range m.runs {
		if m.runs[i].id != id {
			continue
		}
		if m.runs[i].runner.IsRunning() {
			return fmt.Errorf("%w %v, currently running", errCannotClear, id)
		}
		m.runs = append(m.runs[:i], m.runs[i+1:]...)
		return nil
	}
	return fmt.Errorf("%s %w", id, ErrRunNotFound)
}

// ClearAllRuns removes every run that is not running
func (m *RunManager) ClearAllRuns() (clearedRuns, remainingRuns []*RunSummary, err error) {
	if m == nil {
		return nil, nil, fmt.Errorf("%w RunManager", common.ErrNilPointer)
	}
	m.m.Lock()
	defer m.m.Unlock()
	kept := m.runs[:0]
	for _, r := range m.runs {
		sum := r.summarise(false)
		if r.runner.IsRunning() {
			remainingRuns = append(remainingRuns, sum)
			kept = append(kept, r)
			continue
		}
		clearedRuns = append(clearedRuns, sum)
	}
	clear(m.runs[len(kept):])
	m.runs = kept
	return clearedRuns, remainingRuns, nil
}

func (m *RunManager) find(id uuid.UUID) (*run, error) {
	if m == nil {
		return nil, fmt.Errorf("%w RunManager", common.ErrNilPointer)
	}
	m.m.Lock()
	defer m.m.Unlock()
	for i := range m.runs {
		if m.runs[i].id == id {
			return m.runs[i], nil
		}
	}
	return nil, fmt.Errorf("%s %w", id, ErrRunNotFound)
}

func (r *run) summarise(withBacktest bool) *RunSummary {
	sum := &RunSummary{
		ID:     r.id,
		BotID:  r.runner.BotID(),
		Symbol: r.runner.cfg.Bot.Symbol,
		Added:  r.added,
		Status: StatusPending,
	}
	r.runner.m.Lock()
	running, ran, runErr := r.runner.running, r.runner.ran, r.runner.err
	r.runner.m.Unlock()
	switch {
	case running:
		sum.Status = StatusRunning
		return sum
	case !ran:
		return sum
	case runErr != nil:
		sum.Status = StatusFailed
		sum.Error = runErr.Error()
		return sum
	}
	sum.Status = StatusComplete
	if stats, err := r.runner.Stats(); err == nil {
		sum.Stats = stats
	}
	if withBacktest {
		s, err := r.runner.Backtest()
		if err != nil {
			sum.Error = err.Error()
		}
		sum.Summary = s
	}
	return sum
}
