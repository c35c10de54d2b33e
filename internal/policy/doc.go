// Package policy decides which operating state a monitored device must be in.
//
// Two inputs feed the decision:
//
//	┌──────────────────┐   Resolve    ┌────────────────┐
//	│  WeeklySchedule  │─────────────▶│ automatic state│──┐
//	└──────────────────┘              └────────────────┘  │  Merge   ┌──────────┐
//	┌──────────────────┐                                  ├─────────▶│ Decision │
//	│  ForcedOverride  │──────────────────────────────────┘          └──────────┘
//	└──────────────────┘
//
// The schedule is evaluated against the device's local wall clock, derived
// from a UTC instant and a fixed offset in seconds supplied by the device.
// No timezone database is consulted and daylight saving is not applied.
//
// A forced override carries an absolute expiry instant. While it is in the
// future the override wins unconditionally; once it has passed, the override
// is void and the Decision asks the caller to clear it from storage. The
// countdown is recomputed on every evaluation rather than ticked in the
// background, so there is no shared timer state to race on.
//
// # Key Types
//
//   - DeviceState: opaque state token (ACTIVE, LOCKED, LOGGED_OUT, custom)
//   - WeeklySchedule: per-day ordered intervals
//   - ForcedOverride: administrator state with absolute expiry
//   - Decision: final state, countdown, and clear signal
//   - Engine: evaluates a device against the Directory on every call
//
// # Thread Safety
//
// Resolve and Merge are pure. Engine holds no mutable state and is safe for
// concurrent use.
package policy
