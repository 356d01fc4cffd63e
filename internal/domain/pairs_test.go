package domain

import "testing"

func TestSplitPair(t *testing.T) {
	tests := []struct {
		pair  string
		base  string
		quote string
	}{
		{"BTCUSDT", "BTC", "USDT"},
		{"ETHBTC", "ETH", "BTC"},
		{"SOLUSDC", "SOL", "USDC"},
		{"UNKNOWN", "UNKNOWN", ""},
		// Пара не может состоять из одной котировки
		{"USDT", "USDT", ""},
	}

	for _, tt := range tests {
		base, quote := SplitPair(tt.pair)
		if base != tt.base || quote != tt.quote {
			t.Errorf("SplitPair(%q) = (%q, %q), want (%q, %q)", tt.pair, base, quote, tt.base, tt.quote)
		}
	}
}

func TestDisplayPair(t *testing.T) {
	if got := DisplayPair("BTCUSDT"); got != "BTC/USDT" {
		t.Errorf("DisplayPair(BTCUSDT) = %q", got)
	}
	if got := DisplayPair("UNKNOWN"); got != "UNKNOWN" {
		t.Errorf("unknown quote should fall back to the raw symbol, got %q", got)
	}
}

func TestNewPairSet(t *testing.T) {
	set := NewPairSet([]string{" btcusdt ", "ETHUSDT", "BTCUSDT", ""})

	if set.Len() != 2 {
		t.Fatalf("dedup/normalize failed, len = %d", set.Len())
	}
	if !set.Tracks("BTCUSDT") || !set.Tracks("ETHUSDT") {
		t.Errorf("normalized pairs must be tracked")
	}
	if set.Tracks("btcusdt") {
		t.Errorf("lookups are by canonical upper-case symbol")
	}

	pairs := set.Pairs()
	if len(pairs) != 2 || pairs[0] != "BTCUSDT" || pairs[1] != "ETHUSDT" {
		t.Errorf("declaration order must be preserved: %v", pairs)
	}
}
