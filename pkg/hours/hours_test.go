package hours

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func ist(hour, min int) time.Time {
	return time.Date(2026, 10, 14, hour, min, 0, 0, IST)
}

func TestAt(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
		want Window
	}{
		{"morning", ist(9, 30), Open},
		{"just before break", ist(12, 59), Open},
		{"break start", ist(13, 0), Break},
		{"mid break", ist(13, 30), Break},
		{"break end", ist(13, 59), Break},
		{"after break", ist(14, 0), Open},
		{"just before closing", ist(17, 59), Open},
		{"closing", ist(18, 0), Closed},
		{"evening", ist(18, 5), Closed},
		{"late night", ist(23, 59), Closed},
		{"after midnight", ist(0, 15), Open},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, At(tt.at))
		})
	}
}

func TestAtConvertsFromOtherZones(t *testing.T) {
	// 08:00 UTC is 13:30 IST
	assert.Equal(t, Break, At(time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)))
	// 12:35 UTC is 18:05 IST
	assert.Equal(t, Closed, At(time.Date(2026, 10, 14, 12, 35, 0, 0, time.UTC)))
	// 07:29 UTC is 12:59 IST
	assert.Equal(t, Open, At(time.Date(2026, 10, 14, 7, 29, 0, 0, time.UTC)))
}

func TestWindowPermissions(t *testing.T) {
	assert.True(t, Open.ClockAllowed())
	assert.True(t, Open.TaskAllowed())

	assert.False(t, Break.ClockAllowed())
	assert.False(t, Break.TaskAllowed())

	assert.False(t, Closed.ClockAllowed())
	assert.True(t, Closed.TaskAllowed())
}

func TestWindowString(t *testing.T) {
	assert.Equal(t, "open", Open.String())
	assert.Equal(t, "break", Break.String())
	assert.Equal(t, "closed", Closed.String())
}
