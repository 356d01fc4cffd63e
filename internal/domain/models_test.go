package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestSubscription_CrossedBy(t *testing.T) {
	base := Subscription{
		Pair:             "BTCUSDT",
		ThresholdPercent: d("2"),
		BaselineRate:     d("50000"),
		Active:           true,
	}

	tests := []struct {
		name      string
		direction Direction
		baseline  string
		rate      string
		want      bool
	}{
		{"up below threshold", DirectionUp, "50000", "50999", false},
		{"up above threshold", DirectionUp, "50000", "51001", true},
		{"up exact threshold", DirectionUp, "50000", "51000", true},
		{"up on a drop", DirectionUp, "50000", "48000", false},
		{"down below threshold", DirectionDown, "50000", "49050", false},
		{"down exact threshold", DirectionDown, "50000", "49000", true},
		{"down deeper", DirectionDown, "50000", "45000", true},
		{"down on a rise", DirectionDown, "50000", "52000", false},
		{"zero change up", DirectionUp, "50000", "50000", false},
		{"zero change down", DirectionDown, "50000", "50000", false},
		{"unarmed never fires", DirectionUp, "0", "99999", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := base
			sub.Direction = tt.direction
			sub.BaselineRate = d(tt.baseline)
			if got := sub.CrossedBy(d(tt.rate)); got != tt.want {
				t.Fatalf("CrossedBy(%s) = %v, want %v", tt.rate, got, tt.want)
			}
		})
	}
}

func TestSubscription_ChangePercent(t *testing.T) {
	sub := Subscription{BaselineRate: d("50000")}

	if got := sub.ChangePercent(d("51000")); !got.Equal(d("2")) {
		t.Errorf("51000 from 50000 = %s%%, want 2", got)
	}
	if got := sub.ChangePercent(d("49000")); !got.Equal(d("-2")) {
		t.Errorf("49000 from 50000 = %s%%, want -2", got)
	}
}

func TestParseDirection(t *testing.T) {
	if dir, ok := ParseDirection("up"); !ok || dir != DirectionUp {
		t.Errorf("up should parse")
	}
	if dir, ok := ParseDirection("down"); !ok || dir != DirectionDown {
		t.Errorf("down should parse")
	}
	if _, ok := ParseDirection("UP"); ok {
		t.Errorf("directions are case sensitive on the wire")
	}
	if _, ok := ParseDirection(""); ok {
		t.Errorf("empty direction must not parse")
	}
}
