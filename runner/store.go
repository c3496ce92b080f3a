package runner

import (
	"github.com/xnoquant/xno/common/cache"
)

// NewStateStore returns a store remembering up to capacity bots
func NewStateStore(capacity uint64) *StateStore {
	if capacity == 0 {
		capacity = DefaultStoreCapacity
	}
	return &StateStore{
		states:  cache.New[string, BotState](capacity),
		signals: cache.New[string, BotSignal](capacity),
	}
}

// PublishState records the latest state of a bot
func (s *StateStore) PublishState(state BotState) {
	s.states.Add(state.BotID, state)
}

// PublishSignal records the latest signal of a bot and reports whether it
// differs from the one already stored
func (s *StateStore) PublishSignal(sig BotSignal) bool {
	s.m.Lock()
	defer s.m.Unlock()
	if prev, ok := s.signals.Peek(sig.BotID); ok && prev.Equal(&sig) {
		return false
	}
	s.signals.Add(sig.BotID, sig)
	return true
}

// State returns the latest state of a bot
func (s *StateStore) State(botID string) (BotState, bool) {
	return s.states.Get(botID)
}

// Signal returns the latest signal of a bot
func (s *StateStore) Signal(botID string) (BotSignal, bool) {
	return s.signals.Get(botID)
}

// Bots returns the ids of every bot with a recorded state
func (s *StateStore) Bots() []string {
	return s.states.Keys()
}

// Equal reports whether two signals describe the same decision
func (b *BotSignal) Equal(o *BotSignal) bool {
	return b.BotID == o.BotID &&
		b.Symbol == o.Symbol &&
		b.SymbolType == o.SymbolType &&
		b.Candle.Equal(o.Candle) &&
		b.CurrentPrice == o.CurrentPrice &&
		b.CurrentWeight == o.CurrentWeight &&
		b.CurrentAction == o.CurrentAction &&
		b.Mode == o.Mode &&
		b.Engine == o.Engine
}
