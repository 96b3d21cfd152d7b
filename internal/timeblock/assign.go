package timeblock

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// WakeSettings carries a user's wake time for one local calendar date.
// It is consulted only when Date matches the local calendar date of the
// completion being classified.
type WakeSettings struct {
	// WakeTime is a local "HH:MM" clock time.
	WakeTime string
	// Date is the "YYYY-MM-DD" local calendar date the wake time applies to.
	Date string
}

// Assignment is the engine's output. TimezoneOffsetMinutes and
// LocalTimeUsed are audit fields written alongside completions for
// traceability and retroactive backfill; they never influence BlockIndex.
type Assignment struct {
	BlockIndex            int    `json:"blockIndex"`
	TimezoneOffsetMinutes int    `json:"timezoneOffsetMinutes"`
	LocalTimeUsed         string `json:"localTimeUsed"`
}

// Assign maps a completion instant to one of the fixed daily slot indices.
//
// The instant is converted to local wall-clock time in userTimezone. When
// wake settings apply (same local date, wake time present) and the local
// hour is before 5, anything at or after the wake time collapses into
// slot 0. Otherwise the general rule buckets by local hour: hours before 4
// clamp to slot 0, hours 4..20 map to hour-4, and hour 21 onward clamps to
// the final slot.
//
// Assign is pure and total over instants: the same instant, timezone and
// wake context always produce the same assignment, so it is safe to call
// both at write time and during backfill of legacy completions. A malformed
// timezone or wake time is a configuration bug and fails fast.
func Assign(instant time.Time, userTimezone string, wake *WakeSettings) (Assignment, error) {
	if userTimezone == "" {
		return Assignment{}, fmt.Errorf("timeblock: user timezone is required")
	}
	loc, err := time.LoadLocation(userTimezone)
	if err != nil {
		return Assignment{}, fmt.Errorf("timeblock: invalid timezone %q: %w", userTimezone, err)
	}

	local := instant.In(loc)
	hour, minute := local.Hour(), local.Minute()
	localDate := local.Format("2006-01-02")
	_, offsetSeconds := local.Zone()

	out := Assignment{
		TimezoneOffsetMinutes: offsetSeconds / 60,
		LocalTimeUsed:         local.Format("15:04"),
	}

	if wake != nil && wake.WakeTime != "" && wake.Date == localDate {
		wakeMinutes, err := parseClock(wake.WakeTime)
		if err != nil {
			return Assignment{}, err
		}
		completionMinutes := hour*60 + minute
		// Early-morning collapse: wake-up through 4:59 AM lands in slot 0
		// regardless of the exact wake time.
		if completionMinutes >= wakeMinutes && hour < 5 {
			out.BlockIndex = 0
			return out, nil
		}
	}

	switch {
	case hour < FirstHour:
		out.BlockIndex = 0
	case hour >= LastHour:
		out.BlockIndex = SlotCount - 1
	default:
		out.BlockIndex = hour - FirstHour
	}
	return out, nil
}

// parseClock converts "HH:MM" to minutes past midnight.
func parseClock(v string) (int, error) {
	parts := strings.SplitN(v, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("timeblock: invalid clock time %q", v)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("timeblock: invalid clock hour in %q", v)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("timeblock: invalid clock minute in %q", v)
	}
	return h*60 + m, nil
}
