package report

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/jhango/pricesync/internal/updater"
	"github.com/jhango/pricesync/pkg/config"
	"github.com/jhango/pricesync/pkg/logger"
)

// Emailer mails a run summary to the configured recipients. Reporting is
// best-effort: a delivery failure is logged and never fails the run.
type Emailer struct {
	logger *logger.Logger
	send   func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error

	host     string
	port     int
	user     string
	password string
	from     string
	to       []string
}

// NewEmailer creates a run-report mailer from the SMTP configuration.
func NewEmailer(cfg *config.Config, log *logger.Logger) *Emailer {
	return &Emailer{
		logger:   log.WithField("component", "report"),
		send:     smtp.SendMail,
		host:     cfg.SMTP.Host,
		port:     cfg.SMTP.Port,
		user:     cfg.SMTP.User,
		password: cfg.SMTP.Password,
		from:     cfg.SMTP.From,
		to:       cfg.SMTP.To,
	}
}

// Notify mails the report. Missing SMTP configuration disables reporting
// silently; a send failure is logged.
func (e *Emailer) Notify(_ context.Context, report *updater.RunReport) {
	if e.host == "" || e.from == "" || len(e.to) == 0 {
		e.logger.Debug("Email reporting not configured, skipping")
		return
	}

	msg := e.compose(report)
	addr := fmt.Sprintf("%s:%d", e.host, e.port)

	var auth smtp.Auth
	if e.user != "" {
		auth = smtp.PlainAuth("", e.user, e.password, e.host)
	}

	if err := e.send(addr, auth, e.from, e.to, msg); err != nil {
		e.logger.WithError(err).WithField("run_id", report.ID).Error("Run report email failed")
		return
	}
	e.logger.WithField("run_id", report.ID).Info("Run report emailed")
}

const mimeBoundary = "pricesync-report"

func (e *Emailer) compose(report *updater.RunReport) []byte {
	subject := fmt.Sprintf("Price update %s: %d updated, %d skipped, %d failed",
		report.Mode, report.Updated, report.Skipped, report.Failed)

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", e.from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(e.to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	fmt.Fprintf(&b, "Content-Type: multipart/alternative; boundary=%q\r\n", mimeBoundary)
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", mimeBoundary)
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(RenderText(report))
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s\r\n", mimeBoundary)
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n\r\n")
	b.WriteString(RenderHTML(report))
	b.WriteString("\r\n")

	fmt.Fprintf(&b, "--%s--\r\n", mimeBoundary)
	return []byte(b.String())
}

// RenderText renders a run report as the plain-text alternative.
func RenderText(report *updater.RunReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Price update run %s (%s)\n", report.ID, report.Mode)
	fmt.Fprintf(&b, "Started %s, took %s\n",
		report.StartedAt.Format(time.RFC1123),
		report.FinishedAt.Sub(report.StartedAt).Round(time.Second))
	fmt.Fprintf(&b, "Gold %.2f/g, silver %.2f/g, GST %.1f%%\n",
		report.Snapshot.GoldRate, report.Snapshot.SilverRate, report.Snapshot.GSTPct)
	fmt.Fprintf(&b, "%d updated, %d skipped, %d failed\n",
		report.Updated, report.Skipped, report.Failed)

	if report.Failed > 0 {
		b.WriteString("\nFailures:\n")
		for _, out := range report.Outcomes {
			if out.Status != updater.StatusFailed {
				continue
			}
			fmt.Fprintf(&b, "  %s / %s: %s\n", out.Handle, out.Title, out.Reason)
		}
	}

	if report.Updated > 0 {
		b.WriteString("\nUpdated:\n")
		for _, out := range report.Outcomes {
			if out.Status != updater.StatusUpdated {
				continue
			}
			fmt.Fprintf(&b, "  %s / %s: %s -> %.2f\n",
				out.Handle, out.Title, out.OldPrice, out.NewPrice)
		}
	}
	return b.String()
}

// RenderHTML renders a run report as a standalone HTML document.
func RenderHTML(report *updater.RunReport) string {
	var b strings.Builder

	b.WriteString("<html><body>")
	fmt.Fprintf(&b, "<h2>Price update run %s</h2>", report.ID)
	fmt.Fprintf(&b, "<p>Mode: <b>%s</b><br>Started: %s<br>Duration: %s</p>",
		report.Mode,
		report.StartedAt.Format(time.RFC1123),
		report.FinishedAt.Sub(report.StartedAt).Round(time.Second))

	fmt.Fprintf(&b, "<p>Gold rate: %.2f/g &middot; Silver rate: %.2f/g &middot; GST: %.1f%%</p>",
		report.Snapshot.GoldRate, report.Snapshot.SilverRate, report.Snapshot.GSTPct)

	fmt.Fprintf(&b, "<p><b>%d updated</b>, %d skipped, %d failed</p>",
		report.Updated, report.Skipped, report.Failed)

	if report.Failed > 0 {
		b.WriteString("<h3>Failures</h3><table border=\"1\" cellpadding=\"4\">")
		b.WriteString("<tr><th>Product</th><th>Variant</th><th>Reason</th></tr>")
		for _, out := range report.Outcomes {
			if out.Status != updater.StatusFailed {
				continue
			}
			fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td></tr>",
				out.Handle, out.Title, out.Reason)
		}
		b.WriteString("</table>")
	}

	if report.Updated > 0 {
		b.WriteString("<h3>Updated prices</h3><table border=\"1\" cellpadding=\"4\">")
		b.WriteString("<tr><th>Product</th><th>Variant</th><th>Old</th><th>New</th><th>Compare at</th></tr>")
		for _, out := range report.Outcomes {
			if out.Status != updater.StatusUpdated {
				continue
			}
			fmt.Fprintf(&b, "<tr><td>%s</td><td>%s</td><td>%s</td><td>%.2f</td><td>%.2f</td></tr>",
				out.Handle, out.Title, out.OldPrice, out.NewPrice, out.CompareAt)
		}
		b.WriteString("</table>")
	}

	b.WriteString("</body></html>")
	return b.String()
}
