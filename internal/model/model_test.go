package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLinkIsExpired(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	link := &Link{ExpiresAt: now.Add(time.Second)}
	assert.False(t, link.IsExpired(now))

	link.ExpiresAt = now
	assert.True(t, link.IsExpired(now), "boundary counts as expired")

	link.ExpiresAt = now.Add(-time.Hour)
	assert.True(t, link.IsExpired(now))
}

func TestValidLinkCode(t *testing.T) {
	for _, code := range []string{"1000", "9999", "4821"} {
		assert.True(t, ValidLinkCode(code), code)
	}
	for _, code := range []string{"", "999", "10000", "12a4", " 123", "١٢٣٤"} {
		assert.False(t, ValidLinkCode(code), code)
	}
}

func TestSubscriptionIsActive(t *testing.T) {
	now := time.Now()
	sub := &Subscription{Active: true, EndsAt: now.Add(time.Hour)}
	assert.True(t, sub.IsActive(now))

	sub.EndsAt = now.Add(-time.Minute)
	assert.False(t, sub.IsActive(now))

	sub.EndsAt = now.Add(time.Hour)
	sub.Active = false
	assert.False(t, sub.IsActive(now))
}

func TestPackageFormatPrice(t *testing.T) {
	p := &Package{Price: 49905, DurationDays: 30}
	assert.Equal(t, "INR 499.05", p.FormatPrice("INR"))
	assert.Equal(t, 30*24*time.Hour, p.Duration())
}
