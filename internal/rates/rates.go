package rates

import (
	"context"
	"errors"
	"time"

	"github.com/jhango/pricesync/internal/pricing"
)

// ErrRateUnavailable marks a metal rate that could not be obtained from any
// configured source. Callers must not fall back to a stale or zero rate.
var ErrRateUnavailable = errors.New("metal rate unavailable")

// Source provides the current market rate for a metal, in rupees per gram.
type Source interface {
	Fetch(ctx context.Context, kind pricing.MaterialKind) (float64, time.Time, error)
}

// Snapshot captures every pricing input at the start of a run so all
// products in the run are priced against the same numbers.
type Snapshot struct {
	GoldRate     float64               `json:"gold_rate"`
	SilverRate   float64               `json:"silver_rate"`
	GSTPct       float64               `json:"gst_pct"`
	DiamondSlots []pricing.DiamondSlot `json:"diamond_slots"`
	FetchedAt    time.Time             `json:"fetched_at"`
}
