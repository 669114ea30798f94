// Package eventtime converts the common-log-format timestamps carried by
// the event envelope into the local date and time strings used as store keys.
package eventtime

import (
	"time"

	"focusmon/internal/faults"
)

// EnvelopeLayout is the timestamp format of the trigger envelope,
// e.g. "21/Apr/2026:09:15:30 +0000".
const EnvelopeLayout = "02/Jan/2006:15:04:05 -0700"

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04:05"
)

// Normalize parses an envelope timestamp, converts it to the target
// location, and returns the date and clock strings. Pure: identical inputs
// always yield identical outputs. Malformed input fails with a FormatError.
func Normalize(raw string, target *time.Location) (date, clock string, err error) {
	t, err := time.Parse(EnvelopeLayout, raw)
	if err != nil {
		return "", "", faults.Format("parse envelope timestamp "+raw, err)
	}
	local := t.In(target)
	return local.Format(dateLayout), local.Format(clockLayout), nil
}

// Format renders t in the envelope layout. Used by the ingress handler to
// stamp events that arrive without an explicit request time.
func Format(t time.Time) string {
	return t.Format(EnvelopeLayout)
}

// Stamp joins a normalized date and clock into the timestamp string the
// frontend expects.
func Stamp(date, clock string) string {
	return date + " " + clock
}
