// Package schedule interprets the optional check-in cron expression from
// config: when clients should be nudged to hold their next session.
package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/adhocore/gronx"
)

// Validate reports whether expr is a usable cron expression. An empty
// expression is valid and means no check-in schedule.
func Validate(expr string) error {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil
	}
	if !gronx.New().IsValid(expr) {
		return fmt.Errorf("invalid check-in schedule %q", expr)
	}
	return nil
}

// NextCheckin returns the next check-in time strictly after from. The second
// return is false when no schedule is configured.
func NextCheckin(expr string, from time.Time) (time.Time, bool, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return time.Time{}, false, nil
	}
	next, err := gronx.NextTickAfter(expr, from, false)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("compute next check-in: %w", err)
	}
	return next, true, nil
}
