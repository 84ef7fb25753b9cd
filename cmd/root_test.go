package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUntil(t *testing.T) {
	day, err := parseUntil("2025-06-02")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 2, 0, 0, 0, 0, time.Local), day)

	day, err = parseUntil("")
	require.NoError(t, err)
	assert.True(t, day.IsZero())

	_, err = parseUntil("06/02/2025")
	assert.Error(t, err)
}

func TestCurrentFilter_UntilKeepsWholeDay(t *testing.T) {
	oldUntil, oldDays := untilDay, flagDays
	t.Cleanup(func() { untilDay, flagDays = oldUntil, oldDays })

	untilDay = time.Date(2025, 6, 2, 0, 0, 0, 0, time.Local)
	flagDays = 0

	f := currentFilter(time.Date(2025, 7, 1, 0, 0, 0, 0, time.Local))
	assert.True(t, f.Since.IsZero())
	assert.Equal(t, time.Date(2025, 6, 3, 0, 0, 0, 0, time.Local), f.Until)
	assert.Equal(t, "All time to 2025-06-02", windowLabel())
}
