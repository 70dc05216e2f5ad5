package rates

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhango/pricesync/internal/pricing"
	"github.com/jhango/pricesync/pkg/config"
	"github.com/jhango/pricesync/pkg/httputil"
	"github.com/jhango/pricesync/pkg/logger"
)

func newGoldAPITestClient(t *testing.T, handler http.Handler) *GoldAPIClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{}
	cfg.GoldAPI.APIKey = "test-key"
	cfg.GoldAPI.BaseURL = server.URL

	log := logger.NewNop()
	return NewGoldAPIClient(cfg, httputil.New(log).DisableRetry(), log)
}

func TestGoldAPIFetchGold(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/XAU/INR", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-access-token"))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"timestamp":      1700000000,
			"price_gram_24k": 7123.5,
			"price_gram":     6520.0,
		})
	})

	client := newGoldAPITestClient(t, handler)

	rate, fetchedAt, err := client.Fetch(context.Background(), pricing.MaterialGold)
	require.NoError(t, err)
	assert.Equal(t, 7123.5, rate)
	assert.Equal(t, time.Unix(1700000000, 0), fetchedAt)
}

func TestGoldAPIFetchSilver(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/XAG/INR", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{"price_gram": 92.4})
	})

	client := newGoldAPITestClient(t, handler)

	rate, _, err := client.Fetch(context.Background(), pricing.MaterialSilver)
	require.NoError(t, err)
	assert.Equal(t, 92.4, rate)
}

func TestGoldAPIFetchMissingRate(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"price_gram_24k": 0})
	})

	client := newGoldAPITestClient(t, handler)

	_, _, err := client.Fetch(context.Background(), pricing.MaterialGold)
	assert.ErrorIs(t, err, ErrRateUnavailable)
}

func TestGoldAPIFetchServerError(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	client := newGoldAPITestClient(t, handler)

	_, _, err := client.Fetch(context.Background(), pricing.MaterialGold)
	assert.ErrorIs(t, err, ErrRateUnavailable)
}

func TestGoldAPIFetchUnknownMetal(t *testing.T) {
	client := newGoldAPITestClient(t, http.NotFoundHandler())

	_, _, err := client.Fetch(context.Background(), pricing.MaterialKind("platinum"))
	assert.ErrorIs(t, err, pricing.ErrUnknownMaterialKind)
}

const ratesPageHTML = `
<html><body>
<table>
  <tr><th>Metal</th><th>Price / gram</th></tr>
  <tr><td>Gold 22K</td><td>₹6,530.00</td></tr>
  <tr><td>Gold 24K</td><td>₹7,123.50</td></tr>
  <tr><td>Silver</td><td>₹92.40</td></tr>
</table>
</body></html>`

func TestParseRate(t *testing.T) {
	gold, err := parseRate(strings.NewReader(ratesPageHTML), pricing.MaterialGold)
	require.NoError(t, err)
	assert.Equal(t, 7123.5, gold)

	silver, err := parseRate(strings.NewReader(ratesPageHTML), pricing.MaterialSilver)
	require.NoError(t, err)
	assert.Equal(t, 92.4, silver)
}

func TestParseRateNotFound(t *testing.T) {
	_, err := parseRate(strings.NewReader("<html><body><p>maintenance</p></body></html>"), pricing.MaterialGold)
	assert.ErrorIs(t, err, ErrRateUnavailable)
}

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"₹7,123.50", 7123.5},
		{" 92.40 ", 92.4},
		{"Rs. 6,530", 6530},
		{"n/a", 0},
	}
	for _, tt := range tests {
		if got := parsePrice(tt.in); got != tt.want {
			t.Errorf("parsePrice(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

type stubSource struct {
	rate float64
	err  error
}

func (s stubSource) Fetch(context.Context, pricing.MaterialKind) (float64, time.Time, error) {
	if s.err != nil {
		return 0, time.Time{}, s.err
	}
	return s.rate, time.Now(), nil
}

func TestChainFallsThrough(t *testing.T) {
	chain := NewChain(logger.NewNop(),
		stubSource{err: ErrRateUnavailable},
		stubSource{rate: 7000},
	)

	rate, _, err := chain.Fetch(context.Background(), pricing.MaterialGold)
	require.NoError(t, err)
	assert.Equal(t, 7000.0, rate)
}

func TestChainPrimaryWins(t *testing.T) {
	chain := NewChain(logger.NewNop(),
		stubSource{rate: 7100},
		stubSource{rate: 7000},
	)

	rate, _, err := chain.Fetch(context.Background(), pricing.MaterialGold)
	require.NoError(t, err)
	assert.Equal(t, 7100.0, rate)
}

func TestChainAllFail(t *testing.T) {
	boom := errors.New("boom")
	chain := NewChain(logger.NewNop(), stubSource{err: ErrRateUnavailable}, stubSource{err: boom})

	_, _, err := chain.Fetch(context.Background(), pricing.MaterialGold)
	assert.ErrorIs(t, err, boom)
}
