package domain

import "time"

// Tab identifies one dashboard view over the combined position sources.
type Tab string

const (
	TabActive Tab = "active"
	TabNew    Tab = "new"
	TabClosed Tab = "closed"
	TabHidden Tab = "hidden"
	TabAll    Tab = "all"
)

// DisplayFilters are the user-facing filters applied after deduplication.
// Coin matches the coin symbol exactly or as a substring; Trader matches the
// address or alias the same way. Both combine with AND semantics.
type DisplayFilters struct {
	Coin   string
	Trader string
}

// IsZero reports whether no filter is set.
func (f DisplayFilters) IsZero() bool {
	return f.Coin == "" && f.Trader == ""
}

// DisplayPosition is the merged, ephemeral view model served to the
// dashboard. It is never persisted.
type DisplayPosition struct {
	Key              string
	Address          string
	Alias            string
	Color            string
	Coin             string
	Side             Side
	Size             float64
	EntryPrice       float64
	CurrentPrice     float64
	LiquidationPrice float64
	Leverage         int
	PnL              float64
	PnLPercent       float64
	SizeUSD          float64
	Status           PositionStatus
	Hidden           bool
	CreatedAt        time.Time
}
