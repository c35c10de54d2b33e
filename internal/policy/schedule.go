package policy

import (
	"fmt"
	"time"
)

// Resolve returns the automatic state for a schedule at the given local day
// and time of day.
//
// The day's intervals are scanned in configured order and the first interval
// with FromSeconds <= secondsOfDay < ToSeconds wins. When nothing matches,
// including an empty or missing day, the baseline state is returned.
func Resolve(schedule WeeklySchedule, day Day, secondsOfDay int) DeviceState {
	for _, iv := range schedule[day] {
		if iv.Contains(secondsOfDay) {
			return iv.State
		}
	}
	return BaselineState
}

// LocalClock converts a UTC instant into the device's local day and seconds
// since local midnight, using a fixed offset from UTC in seconds.
func LocalClock(now time.Time, utcOffsetSeconds int) (Day, int) {
	local := localTime(now, utcOffsetSeconds)
	seconds := local.Hour()*3600 + local.Minute()*60 + local.Second()
	return dayFromWeekday(local.Weekday()), seconds
}

// LocalDate returns the device-local calendar date (YYYY-MM-DD) for a UTC
// instant. Screen-time aggregates are bucketed by this date.
func LocalDate(now time.Time, utcOffsetSeconds int) string {
	return localTime(now, utcOffsetSeconds).Format(time.DateOnly)
}

// ResolveAt resolves the schedule at a UTC instant shifted by a fixed offset.
func ResolveAt(schedule WeeklySchedule, now time.Time, utcOffsetSeconds int) DeviceState {
	day, seconds := LocalClock(now, utcOffsetSeconds)
	return Resolve(schedule, day, seconds)
}

func localTime(now time.Time, utcOffsetSeconds int) time.Time {
	return now.In(time.FixedZone("", utcOffsetSeconds))
}

// MaxUTCOffsetSeconds bounds a device's fixed offset (UTC-18:00..UTC+18:00).
const MaxUTCOffsetSeconds = 18 * 3600

// ValidateOffset rejects offsets outside +/- MaxUTCOffsetSeconds.
func ValidateOffset(utcOffsetSeconds int) error {
	if utcOffsetSeconds < -MaxUTCOffsetSeconds || utcOffsetSeconds > MaxUTCOffsetSeconds {
		return fmt.Errorf("%w: %d seconds", ErrInvalidOffset, utcOffsetSeconds)
	}
	return nil
}
