package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_AddMonthsClampsToMonthEnd(t *testing.T) {
	tests := []struct {
		name     string
		start    Date
		months   int
		expected string
	}{
		{"mid month", NewDate(2024, time.January, 15), 1, "2024-02-15"},
		{"jan 31 leap year", NewDate(2024, time.January, 31), 1, "2024-02-29"},
		{"jan 31 common year", NewDate(2023, time.January, 31), 1, "2023-02-28"},
		{"jan 31 plus two", NewDate(2023, time.January, 31), 2, "2023-03-31"},
		{"year rollover", NewDate(2023, time.November, 30), 3, "2024-02-29"},
		{"aug 31 to sep", NewDate(2024, time.August, 31), 1, "2024-09-30"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.start.AddMonths(tt.months).String())
		})
	}
}

func TestDate_DaysSince(t *testing.T) {
	due := NewDate(2024, time.March, 1)
	assert.Equal(t, 0, due.DaysSince(due))
	assert.Equal(t, 1, NewDate(2024, time.March, 2).DaysSince(due))
	assert.Equal(t, 31, NewDate(2024, time.April, 1).DaysSince(due))
	assert.Equal(t, -1, NewDate(2024, time.February, 29).DaysSince(due))
}

func TestDateIn_UsesLedgerTimezone(t *testing.T) {
	jakarta, err := time.LoadLocation("Asia/Jakarta")
	require.NoError(t, err)

	// 20:00 UTC on Mar 1 is already Mar 2 in Jakarta (UTC+7).
	instant := time.Date(2024, time.March, 1, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-03-01", DateIn(instant, time.UTC).String())
	assert.Equal(t, "2024-03-02", DateIn(instant, jakarta).String())
}

func TestDate_ScanAndValue(t *testing.T) {
	var d Date
	require.NoError(t, d.Scan("2024-05-06"))
	assert.Equal(t, "2024-05-06", d.String())

	require.NoError(t, d.Scan([]byte("2024-05-07T00:00:00Z")))
	assert.Equal(t, "2024-05-07", d.String())

	require.NoError(t, d.Scan(time.Date(2024, 5, 8, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "2024-05-08", d.String())

	v, err := d.Value()
	require.NoError(t, err)
	assert.Equal(t, "2024-05-08", v)

	require.NoError(t, d.Scan(nil))
	assert.True(t, d.IsZero())
	v, err = d.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	assert.Error(t, d.Scan(42))
}

func TestDate_JSON(t *testing.T) {
	b, err := json.Marshal(NewDate(2024, time.June, 1))
	require.NoError(t, err)
	assert.JSONEq(t, `"2024-06-01"`, string(b))

	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2024-06-02"`), &d))
	assert.Equal(t, "2024-06-02", d.String())

	require.NoError(t, json.Unmarshal([]byte(`null`), &d))
	assert.True(t, d.IsZero())
}
