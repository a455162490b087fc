// Package hours evaluates the organisation's business-hour rules. They depend
// only on wall-clock time in IST, never on server data.
package hours

import "time"

const (
	breakHour   = 13
	closingHour = 18
)

// IST is the organisation's fixed timezone, UTC+05:30 with no DST.
var IST = time.FixedZone("IST", 5*3600+30*60)

// Window names the business-hour rule in effect at an instant
type Window int

const (
	// Open means no rule restricts the actions
	Open Window = iota
	// Break is 13:00–13:59 IST. Clock and task actions are disabled.
	Break
	// Closed is 18:00 IST onwards. The clock action is disabled.
	Closed
)

func (w Window) String() string {
	switch w {
	case Break:
		return "break"
	case Closed:
		return "closed"
	default:
		return "open"
	}
}

// At returns the window in effect at t
func At(t time.Time) Window {
	hour := t.In(IST).Hour()
	switch {
	case hour == breakHour:
		return Break
	case hour >= closingHour:
		return Closed
	default:
		return Open
	}
}

// ClockAllowed reports whether clocking in or out is permitted in w
func (w Window) ClockAllowed() bool {
	return w == Open
}

// TaskAllowed reports whether starting or stopping a task is permitted in w
func (w Window) TaskAllowed() bool {
	return w != Break
}
