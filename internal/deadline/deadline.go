// Package deadline provides the pure time arithmetic shared by every
// lifecycle component: computing reminder instants from deadlines and
// deciding whether a candidate schedule instant is already moot.
package deadline

import "time"

// DefaultReminderOffset is how long before a task's deadline the advance
// reminder fires unless configuration overrides it.
const DefaultReminderOffset = 60 * time.Minute

// ReminderTime returns the instant at which a reminder for the given
// deadline should fire.
func ReminderTime(deadline time.Time, offset time.Duration) time.Time {
	return deadline.Add(-offset)
}

// IsPast reports whether t is strictly before now. Instants equal to now are
// not past: schedule creation requires a fire-at strictly in the future, so
// the boundary case falls on the "do not create" side via its negation.
func IsPast(t, now time.Time) bool {
	return t.Before(now)
}
