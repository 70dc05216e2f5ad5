package report

import (
	"context"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhango/pricesync/internal/updater"
	"github.com/jhango/pricesync/pkg/config"
	"github.com/jhango/pricesync/pkg/logger"
)

func sampleReport() *updater.RunReport {
	return &updater.RunReport{
		ID:         "run-1",
		Mode:       updater.ModeAuto,
		StartedAt:  time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2024, 6, 1, 9, 4, 0, 0, time.UTC),
		Outcomes: []updater.Outcome{
			{Handle: "ring-a", Title: "18KT", OldPrice: "70000.00", NewPrice: 79310, CompareAt: 99137.5, Status: updater.StatusUpdated},
			{Handle: "ring-b", Title: "22KT", Status: updater.StatusSkipped, Reason: "price unchanged"},
			{Handle: "ring-c", Title: "14KT", Status: updater.StatusFailed, Reason: "no stone price"},
		},
		Updated: 1,
		Skipped: 1,
		Failed:  1,
	}
}

func TestRenderHTML(t *testing.T) {
	html := RenderHTML(sampleReport())

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)

	assert.Contains(t, doc.Find("h2").Text(), "run-1")
	assert.Contains(t, doc.Find("body").Text(), "1 updated")

	// Failures table lists only the failed variant with its reason.
	failures := doc.Find("table").First()
	assert.Contains(t, failures.Text(), "ring-c")
	assert.Contains(t, failures.Text(), "no stone price")
	assert.NotContains(t, failures.Text(), "ring-a")

	// Updated table carries old and new prices.
	updated := doc.Find("table").Last()
	assert.Contains(t, updated.Text(), "ring-a")
	assert.Contains(t, updated.Text(), "70000.00")
	assert.Contains(t, updated.Text(), "79310.00")
}

func TestRenderText(t *testing.T) {
	text := RenderText(sampleReport())

	assert.Contains(t, text, "run-1")
	assert.Contains(t, text, "1 updated, 1 skipped, 1 failed")
	assert.Contains(t, text, "ring-c / 14KT: no stone price")
	assert.Contains(t, text, "ring-a / 18KT: 70000.00 -> 79310.00")
}

func TestNotifySendsMail(t *testing.T) {
	cfg := &config.Config{}
	cfg.SMTP.Host = "smtp.example.com"
	cfg.SMTP.Port = 587
	cfg.SMTP.From = "pricing@example.com"
	cfg.SMTP.To = []string{"ops@example.com"}

	emailer := NewEmailer(cfg, logger.NewNop())

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	emailer.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	emailer.Notify(context.Background(), sampleReport())

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "pricing@example.com", gotFrom)
	assert.Equal(t, []string{"ops@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "Subject: Price update auto: 1 updated, 1 skipped, 1 failed")
	assert.Contains(t, string(gotMsg), "Content-Type: multipart/alternative")
	assert.Contains(t, string(gotMsg), "Content-Type: text/plain")
	assert.Contains(t, string(gotMsg), "Content-Type: text/html")
}

func TestNotifyUnconfiguredIsNoop(t *testing.T) {
	emailer := NewEmailer(&config.Config{}, logger.NewNop())

	called := false
	emailer.send = func(string, smtp.Auth, string, []string, []byte) error {
		called = true
		return nil
	}

	emailer.Notify(context.Background(), sampleReport())
	assert.False(t, called)
}
