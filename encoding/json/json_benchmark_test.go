package json

import "testing"

func BenchmarkUnmarshal(b *testing.B) {
	for b.Loop() {
		_ = Unmarshal([]byte(`{"bot_id":"vn30-rsi","total_candles":250,"analysis":{"total_trades":12,"win_rate":0.58}}`), &map[string]any{})
	}
}
