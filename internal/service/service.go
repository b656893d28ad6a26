// Package service holds the business operations behind the HTTP API.
// Services return *apperr.Error values so handlers can map them to
// status codes without inspecting repository errors.
package service

import (
	"fmt"
	"time"

	"github.com/adpanel/adpanel/internal/apperr"
)

// utcNow is the default clock. Timestamps are always stored in UTC so
// comparisons behave the same on every driver.
func utcNow() time.Time {
	return time.Now().UTC()
}

func storeErr(action string, err error) error {
	return apperr.Store(fmt.Errorf("failed to %s: %w", action, err))
}
