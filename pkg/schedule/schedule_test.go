package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(""))
	assert.NoError(t, Validate("   "))
	assert.NoError(t, Validate("0 9 * * 1"))
	assert.Error(t, Validate("not a cron"))
}

func TestNextCheckin_EmptySchedule(t *testing.T) {
	_, ok, err := NextCheckin("", time.Now())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNextCheckin_ReturnsFutureTick(t *testing.T) {
	from := time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC)

	next, ok, err := NextCheckin("0 9 * * *", from)

	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, next.After(from))
	assert.Equal(t, 9, next.Hour())
}

func TestNextCheckin_BadExpression(t *testing.T) {
	_, _, err := NextCheckin("61 * * * *", time.Now())
	assert.Error(t, err)
}
