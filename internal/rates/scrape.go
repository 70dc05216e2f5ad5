package rates

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/jhango/pricesync/internal/pricing"
	"github.com/jhango/pricesync/pkg/config"
	"github.com/jhango/pricesync/pkg/httputil"
	"github.com/jhango/pricesync/pkg/logger"
)

// Scraper is the fallback rate source, scraping per-gram rates from a
// public bullion rates page when the API source is down.
type Scraper struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	url        string
}

// NewScraper creates the HTML fallback rate source.
func NewScraper(cfg *config.Config, httpClient *httputil.Client, log *logger.Logger) *Scraper {
	return &Scraper{
		httpClient: httpClient,
		logger:     log.WithField("component", "rates-scraper"),
		url:        cfg.GoldAPI.FallbackURL,
	}
}

// Fetch scrapes the current rupee-per-gram rate for a metal.
func (s *Scraper) Fetch(ctx context.Context, kind pricing.MaterialKind) (float64, time.Time, error) {
	if s.url == "" {
		return 0, time.Time{}, fmt.Errorf("%w: no fallback rate URL configured", ErrRateUnavailable)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("create scrape request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("%w: %v", ErrRateUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, time.Time{}, fmt.Errorf("%w: rates page returned %d", ErrRateUnavailable, resp.StatusCode)
	}

	rate, err := parseRate(resp.Body, kind)
	if err != nil {
		return 0, time.Time{}, err
	}

	s.logger.WithFields(map[string]interface{}{
		"metal": string(kind),
		"rate":  rate,
	}).Info("Scraped metal rate")
	return rate, time.Now(), nil
}

// parseRate pulls a per-gram rate out of the rates-page HTML. Rows carry
// the metal label in one cell and the rupee price in the next.
func parseRate(r io.Reader, kind pricing.MaterialKind) (float64, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return 0, fmt.Errorf("parse rates page: %w", err)
	}

	label := "silver"
	if kind == pricing.MaterialGold {
		label = "24k"
	}

	var rate float64
	doc.Find("tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() < 2 {
			return true
		}
		name := strings.ToLower(strings.TrimSpace(cells.First().Text()))
		if !strings.Contains(name, label) {
			return true
		}
		if v := parsePrice(cells.Eq(1).Text()); v > 0 {
			rate = v
			return false
		}
		return true
	})

	if rate <= 0 {
		return 0, fmt.Errorf("%w: no %s rate found on rates page", ErrRateUnavailable, kind)
	}
	return rate, nil
}

// parsePrice strips currency symbols and separators from a display price.
func parsePrice(text string) float64 {
	var b strings.Builder
	started := false
	for _, r := range strings.TrimSpace(text) {
		switch {
		case r >= '0' && r <= '9':
			started = true
			b.WriteRune(r)
		case r == '.' && started:
			b.WriteRune(r)
		}
	}
	v, err := strconv.ParseFloat(b.String(), 64)
	if err != nil {
		return 0
	}
	return v
}
