package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rateradar/currency-rate-bot/internal/domain"
)

const (
	DefaultBaseURL = "https://api.binance.com"

	// Полный прайс-лист спота, без пагинации
	tickerPricePath = "/api/v3/ticker/price"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient принимает timeout явно: зависший фид должен уронить цикл,
// а не процесс
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     slog.Default().With(slog.String("component", "binance_client")),
	}
}

// --- Implementation of RateFeed ---

// FetchAll запрашивает полный список курсов.
// Любая сетевая ошибка или кривой JSON заворачивается в ErrFeedUnavailable.
func (c *Client) FetchAll(ctx context.Context) ([]domain.PairRate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+tickerPricePath, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrFeedUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", domain.ErrFeedUnavailable, resp.StatusCode)
	}

	// Binance отдает голый массив, без обертки
	var raw []tickerPrice
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrFeedUnavailable, err)
	}

	rates := make([]domain.PairRate, 0, len(raw))
	for _, t := range raw {
		rate, err := decimal.NewFromString(t.Price)
		if err != nil {
			// Одна битая котировка не должна ронять весь батч
			c.logger.Warn("Skipping malformed quote",
				slog.String("symbol", t.Symbol),
				slog.String("price", t.Price),
				slog.String("err", err.Error()))
			continue
		}
		rates = append(rates, domain.PairRate{Symbol: t.Symbol, Rate: rate})
	}

	return rates, nil
}

type tickerPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}
