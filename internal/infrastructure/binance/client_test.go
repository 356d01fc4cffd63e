package binance

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rateradar/currency-rate-bot/internal/domain"
)

func TestClient_FetchAll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v3/ticker/price" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`[
			{"symbol":"BTCUSDT","price":"50000.10"},
			{"symbol":"ETHUSDT","price":"3000"},
			{"symbol":"BROKEN","price":"not-a-number"}
		]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	var logs bytes.Buffer
	client.logger = slog.New(slog.NewTextHandler(&logs, nil))

	rates, err := client.FetchAll(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	// Битая котировка пропускается, но с записью в лог
	if len(rates) != 2 {
		t.Fatalf("expected 2 parsable rates, got %d", len(rates))
	}
	if rates[0].Symbol != "BTCUSDT" || !rates[0].Rate.Equal(decimal.RequireFromString("50000.10")) {
		t.Errorf("unexpected first rate: %+v", rates[0])
	}
	if !strings.Contains(logs.String(), "BROKEN") {
		t.Errorf("skipped quote must be logged with its symbol, got: %s", logs.String())
	}
}

func TestClient_FetchAllErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}},
		{"malformed body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"not":"an array"`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			client := NewClient(server.URL, time.Second)
			if _, err := client.FetchAll(context.Background()); !errors.Is(err, domain.ErrFeedUnavailable) {
				t.Fatalf("want ErrFeedUnavailable, got %v", err)
			}
		})
	}
}

func TestClient_FetchAllTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := client.FetchAll(ctx); !errors.Is(err, domain.ErrFeedUnavailable) {
		t.Fatalf("timed out fetch must map to ErrFeedUnavailable, got %v", err)
	}
}
