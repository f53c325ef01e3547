package domain

import "time"

// Recipient is one email address on the alert distribution list.
type Recipient struct {
	Email     string
	CreatedAt time.Time
}

// NotificationLogEntry records one alert attempt, successful or not.
// Append-only audit trail.
type NotificationLogEntry struct {
	ID         string
	Address    string
	Coin       string
	Side       Side
	Size       float64
	EntryPrice float64
	Sent       bool
	Attempts   int
	SentAt     time.Time
}
