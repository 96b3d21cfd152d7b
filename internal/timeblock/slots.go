// Package timeblock implements the deterministic mapping from completion
// instants to the fixed daily time slots, plus the slot catalog itself.
package timeblock

import "fmt"

const (
	// SlotCount is the number of fixed one-hour slots in a day.
	SlotCount = 18
	// FirstHour is the local clock hour of slot 0.
	FirstHour = 4
	// LastHour is the local clock hour of the final slot. The final slot
	// also absorbs every later hour.
	LastHour = 21
)

// Slot is one of the fixed daily one-hour buckets. Slots are generated on
// demand and never persisted; completion records reference them by index
// or block id only.
type Slot struct {
	Index     int    `json:"index"`
	StartHour int    `json:"startHour"`
	Label     string `json:"label"`
}

// Slots returns the full catalog of daily slots, ordered by index.
func Slots() []Slot {
	out := make([]Slot, SlotCount)
	for i := 0; i < SlotCount; i++ {
		hour := FirstHour + i
		out[i] = Slot{Index: i, StartHour: hour, Label: Label(hour)}
	}
	return out
}

// Label renders a local clock hour as a display string, e.g. "4:00 a.m.",
// "12:00 p.m.", "9:00 p.m.".
func Label(hour int) string {
	meridiem := "a.m."
	if hour >= 12 {
		meridiem = "p.m."
	}
	display := hour % 12
	if display == 0 {
		display = 12
	}
	return fmt.Sprintf("%d:00 %s", display, meridiem)
}
