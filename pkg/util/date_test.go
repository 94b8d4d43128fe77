package util

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateOnly(t *testing.T) {
	got, ok := ParseDate(" 2024-10-10 ")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC), got)
}

func TestParseDateRFC3339TruncatesToDay(t *testing.T) {
	got, ok := ParseDate("2024-10-10T23:10:10+02:00")
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC), got)
}

func TestParseDateUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseDate(strconv.FormatInt(ts, 10))
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 10, 10, 0, 0, 0, 0, time.UTC), got)
}

func TestParseDateInvalid(t *testing.T) {
	for _, s := range []string{"", "next year", "2024-13-01", "-5"} {
		_, ok := ParseDate(s)
		assert.False(t, ok, s)
	}
	def := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, def, ParseDateDefault("soon", def))
}

func TestDirStamp(t *testing.T) {
	assert.Equal(t, "2025-06-30_14-05-09", DirStamp(time.Date(2025, 6, 30, 14, 5, 9, 0, time.UTC)))
}
