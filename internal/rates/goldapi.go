package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jhango/pricesync/internal/pricing"
	"github.com/jhango/pricesync/pkg/config"
	"github.com/jhango/pricesync/pkg/httputil"
	"github.com/jhango/pricesync/pkg/logger"
)

// GoldAPIClient fetches spot rates from goldapi.io. Gold uses the 24k gram
// price so purity scaling stays in the calculator; silver has a single
// gram price.
type GoldAPIClient struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	apiKey     string
	baseURL    string
}

// NewGoldAPIClient creates a rate source backed by goldapi.io.
func NewGoldAPIClient(cfg *config.Config, httpClient *httputil.Client, log *logger.Logger) *GoldAPIClient {
	return &GoldAPIClient{
		httpClient: httpClient,
		logger:     log.WithField("component", "rates"),
		apiKey:     cfg.GoldAPI.APIKey,
		baseURL:    cfg.GoldAPI.BaseURL,
	}
}

// goldAPIResponse is the subset of the goldapi.io payload we read.
type goldAPIResponse struct {
	Timestamp    int64   `json:"timestamp"`
	PriceGram24K float64 `json:"price_gram_24k"`
	PriceGram    float64 `json:"price_gram"`
}

// Fetch returns the current rupee-per-gram rate for a metal.
func (c *GoldAPIClient) Fetch(ctx context.Context, kind pricing.MaterialKind) (float64, time.Time, error) {
	symbol, err := symbolFor(kind)
	if err != nil {
		return 0, time.Time{}, err
	}

	url := fmt.Sprintf("%s/api/%s/INR", c.baseURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("create rate request: %w", err)
	}
	req.Header.Set("x-access-token", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("%w: %v", ErrRateUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, time.Time{}, fmt.Errorf("%w: goldapi returned %d", ErrRateUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("read rate response: %w", err)
	}

	var payload goldAPIResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, time.Time{}, fmt.Errorf("parse rate response: %w", err)
	}

	rate := payload.PriceGram
	if kind == pricing.MaterialGold {
		rate = payload.PriceGram24K
	}
	if rate <= 0 {
		return 0, time.Time{}, fmt.Errorf("%w: goldapi returned no %s gram price", ErrRateUnavailable, kind)
	}

	fetchedAt := time.Now()
	if payload.Timestamp > 0 {
		fetchedAt = time.Unix(payload.Timestamp, 0)
	}

	c.logger.WithFields(map[string]interface{}{
		"metal": string(kind),
		"rate":  rate,
	}).Info("Fetched metal rate")
	return rate, fetchedAt, nil
}

func symbolFor(kind pricing.MaterialKind) (string, error) {
	switch kind {
	case pricing.MaterialGold:
		return "XAU", nil
	case pricing.MaterialSilver:
		return "XAG", nil
	default:
		return "", fmt.Errorf("%w: %q", pricing.ErrUnknownMaterialKind, kind)
	}
}
