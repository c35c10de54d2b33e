package policy

import (
	"fmt"
	"strings"
	"time"
)

// DeviceState is the operating state a device is instructed to be in.
//
// The policy layer never interprets a state; it only selects one. Clients
// decide what LOCKED or a custom state means on their side.
type DeviceState string

// Built-in device states.
const (
	StateActive    DeviceState = "ACTIVE"
	StateLocked    DeviceState = "LOCKED"
	StateLoggedOut DeviceState = "LOGGED_OUT"
)

// BaselineState is returned when no schedule interval matches.
const BaselineState = StateActive

// BuiltinStates returns the states every deployment understands.
func BuiltinStates() []DeviceState {
	return []DeviceState{StateActive, StateLocked, StateLoggedOut}
}

// StateSet is the closed set of states known to a deployment: the built-ins
// plus any custom states from configuration.
type StateSet map[DeviceState]struct{}

// NewStateSet builds a StateSet from the built-ins and the given custom names.
// Custom names are upper-cased and trimmed; empty names are ignored.
func NewStateSet(custom []string) StateSet {
	set := make(StateSet, len(custom)+3) //nolint:mnd // three built-in states
	for _, s := range BuiltinStates() {
		set[s] = struct{}{}
	}
	for _, name := range custom {
		name = strings.ToUpper(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		set[DeviceState(name)] = struct{}{}
	}
	return set
}

// Contains reports whether the state is known.
func (s StateSet) Contains(state DeviceState) bool {
	_, ok := s[state]
	return ok
}

// Day is a day of the week. Monday is the first day.
type Day int

// Days of the week.
const (
	Monday Day = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var dayNames = map[Day]string{
	Monday:    "MONDAY",
	Tuesday:   "TUESDAY",
	Wednesday: "WEDNESDAY",
	Thursday:  "THURSDAY",
	Friday:    "FRIDAY",
	Saturday:  "SATURDAY",
	Sunday:    "SUNDAY",
}

// AllDays returns the seven days in order, Monday first.
func AllDays() []Day {
	return []Day{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}
}

// String returns the upper-case day name.
func (d Day) String() string {
	if name, ok := dayNames[d]; ok {
		return name
	}
	return fmt.Sprintf("Day(%d)", int(d))
}

// Valid reports whether d is one of the seven days.
func (d Day) Valid() bool {
	return d >= Monday && d <= Sunday
}

// ParseDay parses a day name such as "monday" or "MON".
func ParseDay(s string) (Day, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, d := range AllDays() {
		name := d.String()
		if s == name || (len(s) == 3 && strings.HasPrefix(name, s)) { //nolint:mnd // three-letter abbreviation
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidDay, s)
}

// MarshalText encodes the day by name so schedules serialise as
// {"MONDAY": [...]} rather than by ordinal.
func (d Day) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDay, int(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText decodes a day name.
func (d *Day) UnmarshalText(text []byte) error {
	parsed, err := ParseDay(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// dayFromWeekday converts Go's Sunday-first weekday to a Monday-first Day.
func dayFromWeekday(w time.Weekday) Day {
	if w == time.Sunday {
		return Sunday
	}
	return Day(w)
}

// SecondsPerDay is the exclusive upper bound of a time-of-day in seconds.
const SecondsPerDay = 24 * 60 * 60

// TimeInterval is a half-open span [FromSeconds, ToSeconds) of a day during
// which the device should be in State.
type TimeInterval struct {
	FromSeconds int         `json:"from_seconds"`
	ToSeconds   int         `json:"to_seconds"`
	State       DeviceState `json:"state"`
}

// Contains reports whether secondsOfDay falls inside the interval.
func (i TimeInterval) Contains(secondsOfDay int) bool {
	return i.FromSeconds <= secondsOfDay && secondsOfDay < i.ToSeconds
}

// WeeklySchedule maps each day to its ordered intervals. A day that is
// missing or has no intervals is entirely baseline.
type WeeklySchedule map[Day][]TimeInterval

// Validate checks interval bounds and states. Overlaps are not checked; the
// first matching interval wins at resolution time.
func (w WeeklySchedule) Validate() error {
	for day, intervals := range w {
		if !day.Valid() {
			return fmt.Errorf("%w: %d", ErrInvalidDay, int(day))
		}
		for i, iv := range intervals {
			if iv.FromSeconds < 0 || iv.ToSeconds > SecondsPerDay || iv.FromSeconds >= iv.ToSeconds {
				return fmt.Errorf("%w: %s[%d] %d-%d", ErrInvalidInterval, day, i, iv.FromSeconds, iv.ToSeconds)
			}
			if iv.State == "" {
				return fmt.Errorf("%w: %s[%d] has no state", ErrInvalidInterval, day, i)
			}
		}
	}
	return nil
}

// Clone returns an independent copy of the schedule.
func (w WeeklySchedule) Clone() WeeklySchedule {
	if w == nil {
		return nil
	}
	cpy := make(WeeklySchedule, len(w))
	for day, intervals := range w {
		cpy[day] = append([]TimeInterval(nil), intervals...)
	}
	return cpy
}

// ForcedOverride is an administrator-set state that supersedes the schedule
// until ExpiresAt.
type ForcedOverride struct {
	State     DeviceState `json:"state"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// OverrideStatus is the lifecycle position of a forced override.
type OverrideStatus string

// Override lifecycle states.
const (
	OverrideAbsent  OverrideStatus = "absent"
	OverrideActive  OverrideStatus = "active"
	OverrideExpired OverrideStatus = "expired"
)

// StatusAt returns the override's lifecycle status at now. A nil override is absent.
func (o *ForcedOverride) StatusAt(now time.Time) OverrideStatus {
	if o == nil {
		return OverrideAbsent
	}
	if now.Before(o.ExpiresAt) {
		return OverrideActive
	}
	return OverrideExpired
}

// Decision is the authoritative state of a device at one instant.
type Decision struct {
	// State is the state the device must be in now.
	State DeviceState `json:"state"`

	// Automatic is the schedule-derived state, reported for diagnostics.
	Automatic DeviceState `json:"automatic_state"`

	// RemainingSeconds counts down to the end of an active override; 0 otherwise.
	RemainingSeconds int64 `json:"countdown_seconds"`

	// ClearOverride is set when a stored override has expired and should be
	// removed from the Directory.
	ClearOverride bool `json:"-"`
}

// Overridden reports whether the decision came from an active override.
func (d Decision) Overridden() bool {
	return d.RemainingSeconds > 0
}
