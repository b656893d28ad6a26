package model

import (
	"regexp"
	"time"
)

var linkCodePattern = regexp.MustCompile(`^[0-9]{4}$`)

const (
	LinkCodeMin = 1000
	LinkCodeMax = 9999
)

type Link struct {
	ID        string    `db:"id" json:"id"`
	Code      string    `db:"code" json:"code"`
	UserID    string    `db:"user_id" json:"user_id"`
	GroupID   string    `db:"group_id" json:"group_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
}

// IsExpired reports whether the link is past its expiry at now.
// A link expiring exactly at now counts as expired.
func (l *Link) IsExpired(now time.Time) bool {
	return !l.ExpiresAt.After(now)
}

func ValidLinkCode(code string) bool {
	return linkCodePattern.MatchString(code)
}
