package timeline

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTime(t *testing.T) {
	loc := time.FixedZone("BRT", -3*60*60)

	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "rfc3339 with offset", input: "2024-06-10T09:00:00-03:00", want: time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)},
		{name: "rfc3339 utc", input: "2024-06-10T09:00:00Z", want: time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)},
		{name: "fractional seconds", input: "2024-06-10T09:00:00.000+00:00", want: time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)},
		{name: "no offset uses location", input: "2024-06-10T09:00:00", want: time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)},
		{name: "minutes only", input: "2024-06-10T09:00", want: time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)},
		{name: "garbage", input: "tomorrow", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTime(tt.input, loc)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "ParseTime(%q) = %s, want %s", tt.input, got, tt.want)
		})
	}
}

func TestParseInterval(t *testing.T) {
	got, err := ParseInterval("2024-06-10T10:00:00Z", "2024-06-10T09:00:00Z", time.UTC)
	require.NoError(t, err)
	assert.True(t, got.Start.After(got.End))

	_, err = ParseInterval("2024-06-10T10:00:00Z", "soon", time.UTC)
	assert.ErrorContains(t, err, "interval end")
}

func TestFormatEntriesJSON(t *testing.T) {
	day, err := ParseDay("2024-06-10", time.UTC)
	require.NoError(t, err)

	entries := Format(Build(day, []Interval{iv("09:00", "10:00")}), time.UTC)
	b, err := json.Marshal(entries)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"kind":"free","start":"00:00","end":"09:00"},
		{"kind":"busy","start":"09:00","end":"10:00"},
		{"kind":"free","start":"10:00","end":"23:59"}
	]`, string(b))
}
