package domain

import "time"

// TrackedAddress is an exchange account the tracker watches. Unique by
// address; alias and color are display-only metadata.
type TrackedAddress struct {
	Address              string
	Alias                string
	Color                string
	NotificationsEnabled bool
	CreatedAt            time.Time
}

// Label returns the alias when set, otherwise the raw address.
func (a TrackedAddress) Label() string {
	if a.Alias != "" {
		return a.Alias
	}
	return a.Address
}
