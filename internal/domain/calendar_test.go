package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2024, Month: time.February, Day: 29}, d)
	assert.Equal(t, "2024-02-29", d.String())

	for _, bad := range []string{"", "2023-02-29", "2024/01/01", "01-01-2024", "2024-1-1", "2024-01-01T09:00"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestDate_Weekday(t *testing.T) {
	tests := map[string]Weekday{
		"2024-01-15": Monday,
		"2024-01-16": Tuesday,
		"2024-01-20": Saturday,
		"2024-01-21": Sunday,
		// proleptic Gregorian, far from the epoch
		"1600-03-01": Wednesday,
	}
	for raw, want := range tests {
		d, err := ParseDate(raw)
		require.NoError(t, err)
		assert.Equal(t, want, d.Weekday(), raw)
	}
}

func TestDate_Ordering(t *testing.T) {
	a, _ := ParseDate("2024-12-31")
	b := a.AddDays(1)
	assert.Equal(t, "2025-01-01", b.String())
	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))
	assert.Equal(t, 0, a.Compare(a))
}

func TestParseClock(t *testing.T) {
	c, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9, c.Hour())
	assert.Equal(t, 30, c.Minute())
	assert.Equal(t, "09:30", c.String())
	assert.Equal(t, "10:10", c.Add(40*time.Minute).String())

	for _, bad := range []string{"", "9:30", "24:00", "09:60", "0930", "09:30:00", "9.30"} {
		_, err := ParseClock(bad)
		assert.Error(t, err, bad)
	}
}

func TestCalendarJSON(t *testing.T) {
	type payload struct {
		Date Date  `json:"date"`
		Time Clock `json:"time"`
	}

	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"date":"2024-01-15","time":"14:05"}`), &p))
	assert.Equal(t, "2024-01-15", p.Date.String())
	assert.Equal(t, NewClock(14, 5), p.Time)

	out, err := json.Marshal(p)
	require.NoError(t, err)
	assert.JSONEq(t, `{"date":"2024-01-15","time":"14:05"}`, string(out))

	assert.Error(t, json.Unmarshal([]byte(`{"date":"15/01/2024","time":"14:05"}`), &p))
	assert.Error(t, json.Unmarshal([]byte(`{"date":"2024-01-15","time":"2pm"}`), &p))
}
