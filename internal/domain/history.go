package domain

import "time"

// PositionHistory is one append-only record written when a position closes.
// Never mutated after insert.
type PositionHistory struct {
	ID             string
	Key            string
	Address        string
	Coin           string
	Side           Side
	Size           float64
	EntryPrice     float64
	ExitPrice      float64
	PnL            float64
	PnLPercent     float64
	HoldingMinutes int64
	ClosedAt       time.Time
}

// PositionAnalytics aggregates lifetime stats over tracked positions,
// optionally scoped to one address.
type PositionAnalytics struct {
	TotalPositions    int64
	OpenPositions     int64
	ClosedPositions   int64
	TotalPnL          float64
	WinRate           float64 // fraction of closed positions with positive PnL
	AvgHoldingMinutes float64
}
