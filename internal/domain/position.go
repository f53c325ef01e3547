package domain

import (
	"math"
	"time"
)

// PositionStatus tracks where a position is in its lifecycle.
type PositionStatus string

const (
	PositionStatusNew    PositionStatus = "new"
	PositionStatusActive PositionStatus = "active"
	PositionStatusClosed PositionStatus = "closed"
)

// NewPositionWindow is how long a freshly observed position keeps the "new"
// status. The new→active transition is recomputed on every poll rather than
// stored eagerly.
const NewPositionWindow = 24 * time.Hour

// Side is the direction of a position, derived from the sign of its size.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// SideFromSize derives the position side from a signed size.
func SideFromSize(size float64) Side {
	if size < 0 {
		return SideShort
	}
	return SideLong
}

// PositionKey builds the canonical identity for an (address, coin) pair.
// At most one active tracked position exists per key at any time.
func PositionKey(address, coin string) string {
	return address + "-" + coin
}

// RawPosition is a single open position as reported by one exchange snapshot.
// It is ephemeral and exists only for the duration of a poll cycle. Size is
// signed: positive means long, negative means short. Zero-size entries are
// discarded at parse time.
type RawPosition struct {
	Address          string
	Coin             string
	Size             float64
	EntryPrice       float64
	UnrealizedPnL    float64
	LiquidationPrice float64
	Leverage         int
}

// Key returns the canonical position key for this raw position.
func (p RawPosition) Key() string {
	return PositionKey(p.Address, p.Coin)
}

// Side derives the direction from the signed size.
func (p RawPosition) Side() Side {
	return SideFromSize(p.Size)
}

// PnLPercent computes the unrealized PnL as a percentage of entry notional.
// Returns 0 when the notional is 0.
func (p RawPosition) PnLPercent() float64 {
	notional := math.Abs(p.Size * p.EntryPrice)
	if notional == 0 {
		return 0
	}
	return p.UnrealizedPnL / notional * 100
}

// SizeUSD computes the margin-adjusted dollar exposure at the given mark
// price. Leverage is clamped to a minimum of 1.
func (p RawPosition) SizeUSD(currentPrice float64) float64 {
	lev := p.Leverage
	if lev < 1 {
		lev = 1
	}
	return math.Abs(p.Size*currentPrice) / float64(lev)
}

// AccountSnapshot is one address's slice of a poll cycle: every open position
// the exchange currently reports for that account.
type AccountSnapshot struct {
	Address   string
	Positions []RawPosition
}

// TrackedPosition is the persisted lifecycle record for a position key. It is
// never deleted, only status-flipped (soft lifecycle).
type TrackedPosition struct {
	Key            string
	Address        string
	Coin           string
	Side           Side
	Size           float64
	EntryPrice     float64
	Leverage       int
	Status         PositionStatus
	IsActive       bool
	CreatedAt      time.Time
	LastUpdated    time.Time
	ClosedAt       *time.Time
	FinalPnL       *float64
	HoldingMinutes *int64
}

// EffectiveStatus recomputes the lifecycle status as of now. A stored "new"
// older than the window reads as "active"; a closed record is closed
// regardless of the stored column. A stored "active" stays "active": the
// lifecycle only ever moves forward, never back to "new".
func (p TrackedPosition) EffectiveStatus(now time.Time) PositionStatus {
	if p.Status == PositionStatusClosed || !p.IsActive {
		return PositionStatusClosed
	}
	if p.Status == PositionStatusNew && now.Sub(p.CreatedAt) < NewPositionWindow {
		return PositionStatusNew
	}
	return PositionStatusActive
}
