package updater

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhango/pricesync/internal/pricing"
	"github.com/jhango/pricesync/internal/rates"
)

// Mode names how a run was started and what it covers.
type Mode string

const (
	// ModeAuto prices the full catalog against freshly fetched market rates.
	ModeAuto Mode = "auto"
	// ModeManual prices against operator-supplied rates.
	ModeManual Mode = "manual"
	// ModeDiamond reprices diamond slots and the products carrying them.
	ModeDiamond Mode = "diamond"
)

// Status is the per-variant outcome of a run.
type Status string

const (
	StatusUpdated Status = "updated"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Outcome records what happened to one variant during a run.
type Outcome struct {
	ProductID string  `json:"product_id"`
	Handle    string  `json:"handle"`
	VariantID string  `json:"variant_id"`
	Title     string  `json:"title"`
	OldPrice  string  `json:"old_price"`
	NewPrice  float64 `json:"new_price,omitempty"`
	CompareAt float64 `json:"compare_at,omitempty"`
	Status    Status  `json:"status"`
	Reason    string  `json:"reason,omitempty"`
}

// RunReport is the full account of one recalculation run.
type RunReport struct {
	ID         string         `json:"id"`
	Mode       Mode           `json:"mode"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Snapshot   rates.Snapshot `json:"snapshot"`
	Outcomes   []Outcome      `json:"outcomes"`
	Updated    int            `json:"updated"`
	Skipped    int            `json:"skipped"`
	Failed     int            `json:"failed"`
}

func newRunReport(mode Mode) *RunReport {
	return &RunReport{
		ID:        uuid.NewString(),
		Mode:      mode,
		StartedAt: time.Now(),
	}
}

func (r *RunReport) add(o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	switch o.Status {
	case StatusUpdated:
		r.Updated++
	case StatusSkipped:
		r.Skipped++
	case StatusFailed:
		r.Failed++
	}
}

// Selection narrows a run to part of the catalog by product handle.
// An exclusion always wins over an inclusion of the same handle.
type Selection struct {
	Include []string
	Exclude []string
}

// IsFullCatalog reports whether the selection covers every product.
// Exclusions alone still count as a partial run.
func (s Selection) IsFullCatalog() bool {
	return len(s.Include) == 0 && len(s.Exclude) == 0
}

// Match reports whether a handle is in scope for this selection.
func (s Selection) Match(handle string) bool {
	for _, h := range s.Exclude {
		if strings.EqualFold(h, handle) {
			return false
		}
	}
	if len(s.Include) == 0 {
		return true
	}
	for _, h := range s.Include {
		if strings.EqualFold(h, handle) {
			return true
		}
	}
	return false
}

// ParseHandles splits an operator-supplied handle list on commas and
// newlines, dropping empties.
func ParseHandles(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})

	var handles []string
	for _, f := range fields {
		if h := strings.TrimSpace(f); h != "" {
			handles = append(handles, h)
		}
	}
	return handles
}

// DiamondConfig is one operator-supplied stone price for diamond mode.
type DiamondConfig struct {
	Name          string  `json:"name"`
	PricePerCarat float64 `json:"price_per_carat"`
}

// Params carries everything a run needs beyond the catalog itself.
type Params struct {
	Mode      Mode
	Selection Selection

	// Operator-supplied rates. Auto runs fetch whichever is zero from
	// the rate source and abort when a fetch fails; manual runs price
	// only the metals given here.
	GoldRate   float64
	SilverRate float64

	// Stone price overrides applied before the theme slots.
	Overrides pricing.Overrides

	// Diamond mode: slots to rewrite in the theme.
	DiamondConfigs []DiamondConfig
}
