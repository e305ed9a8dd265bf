package deadline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReminderTime(t *testing.T) {
	deadline := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t,
		time.Date(2026, 9, 1, 11, 0, 0, 0, time.UTC),
		ReminderTime(deadline, DefaultReminderOffset))

	assert.Equal(t,
		time.Date(2026, 9, 1, 11, 30, 0, 0, time.UTC),
		ReminderTime(deadline, 30*time.Minute))
}

func TestIsPast(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"one second before", now.Add(-time.Second), true},
		{"equal to now", now, false},
		{"one second after", now.Add(time.Second), false},
		{"one hour before", now.Add(-time.Hour), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPast(tt.t, now))
		})
	}
}
