package policy

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func hms(h, m, s int) int {
	return h*3600 + m*60 + s
}

func TestResolve_DaytimeWindow(t *testing.T) {
	schedule := WeeklySchedule{
		Monday: {{FromSeconds: hms(8, 0, 0), ToSeconds: hms(20, 0, 0), State: StateActive}},
	}

	tests := []struct {
		name    string
		day     Day
		seconds int
		want    DeviceState
	}{
		{"just before start", Monday, hms(7, 59, 59), BaselineState},
		{"at start", Monday, hms(8, 0, 0), StateActive},
		{"just before end", Monday, hms(19, 59, 59), StateActive},
		{"at end is exclusive", Monday, hms(20, 0, 0), BaselineState},
		{"other day is baseline", Tuesday, hms(12, 0, 0), BaselineState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(schedule, tt.day, tt.seconds); got != tt.want {
				t.Errorf("Resolve(%s, %d) = %s, want %s", tt.day, tt.seconds, got, tt.want)
			}
		})
	}
}

func TestResolve_FirstMatchWins(t *testing.T) {
	schedule := WeeklySchedule{
		Friday: {
			{FromSeconds: hms(21, 0, 0), ToSeconds: hms(23, 0, 0), State: StateLocked},
			{FromSeconds: hms(20, 0, 0), ToSeconds: SecondsPerDay, State: StateLoggedOut},
		},
	}

	if got := Resolve(schedule, Friday, hms(22, 0, 0)); got != StateLocked {
		t.Errorf("Resolve() = %s, want %s", got, StateLocked)
	}
	if got := Resolve(schedule, Friday, hms(20, 30, 0)); got != StateLoggedOut {
		t.Errorf("Resolve() = %s, want %s", got, StateLoggedOut)
	}
	if got := Resolve(schedule, Friday, hms(23, 59, 59)); got != StateLoggedOut {
		t.Errorf("Resolve() = %s, want %s", got, StateLoggedOut)
	}
}

func TestResolve_EmptySchedule(t *testing.T) {
	if got := Resolve(nil, Sunday, 0); got != BaselineState {
		t.Errorf("Resolve(nil) = %s, want %s", got, BaselineState)
	}
	if got := Resolve(WeeklySchedule{Sunday: {}}, Sunday, 100); got != BaselineState {
		t.Errorf("Resolve(empty day) = %s, want %s", got, BaselineState)
	}
}

func TestResolve_CustomStatePassesThrough(t *testing.T) {
	schedule := WeeklySchedule{
		Wednesday: {{FromSeconds: 0, ToSeconds: SecondsPerDay, State: DeviceState("HOMEWORK")}},
	}
	if got := Resolve(schedule, Wednesday, hms(15, 0, 0)); got != "HOMEWORK" {
		t.Errorf("Resolve() = %s, want HOMEWORK", got)
	}
}

func TestLocalClock(t *testing.T) {
	// 2026-03-01 is a Sunday.
	utc := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)

	tests := []struct {
		name        string
		offset      int
		wantDay     Day
		wantSeconds int
		wantDate    string
	}{
		{"utc", 0, Sunday, hms(23, 30, 0), "2026-03-01"},
		{"plus one hour crosses midnight", 3600, Monday, hms(0, 30, 0), "2026-03-02"},
		{"minus five hours", -5 * 3600, Sunday, hms(18, 30, 0), "2026-03-01"},
		{"half-hour offset", 5*3600 + 1800, Monday, hms(5, 0, 0), "2026-03-02"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			day, seconds := LocalClock(utc, tt.offset)
			if day != tt.wantDay || seconds != tt.wantSeconds {
				t.Errorf("LocalClock() = (%s, %d), want (%s, %d)", day, seconds, tt.wantDay, tt.wantSeconds)
			}
			if got := LocalDate(utc, tt.offset); got != tt.wantDate {
				t.Errorf("LocalDate() = %s, want %s", got, tt.wantDate)
			}
		})
	}
}

func TestResolveAt_UsesOffset(t *testing.T) {
	schedule := WeeklySchedule{
		Monday: {{FromSeconds: hms(0, 0, 0), ToSeconds: hms(1, 0, 0), State: StateLocked}},
	}
	// Sunday 23:30 UTC is Monday 00:30 at UTC+1.
	utc := time.Date(2026, 3, 1, 23, 30, 0, 0, time.UTC)

	if got := ResolveAt(schedule, utc, 0); got != BaselineState {
		t.Errorf("ResolveAt(offset 0) = %s, want %s", got, BaselineState)
	}
	if got := ResolveAt(schedule, utc, 3600); got != StateLocked {
		t.Errorf("ResolveAt(offset 3600) = %s, want %s", got, StateLocked)
	}
}

func TestWeeklySchedule_Validate(t *testing.T) {
	tests := []struct {
		name     string
		schedule WeeklySchedule
		wantErr  error
	}{
		{"empty", WeeklySchedule{}, nil},
		{"valid", WeeklySchedule{Monday: {{FromSeconds: 0, ToSeconds: SecondsPerDay, State: StateLocked}}}, nil},
		{"inverted", WeeklySchedule{Monday: {{FromSeconds: 10, ToSeconds: 5, State: StateLocked}}}, ErrInvalidInterval},
		{"past midnight", WeeklySchedule{Monday: {{FromSeconds: 0, ToSeconds: SecondsPerDay + 1, State: StateLocked}}}, ErrInvalidInterval},
		{"negative", WeeklySchedule{Monday: {{FromSeconds: -1, ToSeconds: 5, State: StateLocked}}}, ErrInvalidInterval},
		{"no state", WeeklySchedule{Monday: {{FromSeconds: 0, ToSeconds: 5}}}, ErrInvalidInterval},
		{"bad day", WeeklySchedule{Day(9): {{FromSeconds: 0, ToSeconds: 5, State: StateLocked}}}, ErrInvalidDay},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schedule.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestWeeklySchedule_JSONUsesDayNames(t *testing.T) {
	schedule := WeeklySchedule{
		Tuesday: {{FromSeconds: 60, ToSeconds: 120, State: StateLocked}},
	}

	data, err := json.Marshal(schedule)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"TUESDAY":[{"from_seconds":60,"to_seconds":120,"state":"LOCKED"}]}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}

	var decoded WeeklySchedule
	if err := json.Unmarshal([]byte(`{"tue":[{"from_seconds":1,"to_seconds":2,"state":"ACTIVE"}]}`), &decoded); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(decoded[Tuesday]) != 1 {
		t.Errorf("decoded[Tuesday] = %v, want one interval", decoded[Tuesday])
	}
}

func TestParseDay(t *testing.T) {
	for _, in := range []string{"monday", "MON", " Mon "} {
		if d, err := ParseDay(in); err != nil || d != Monday {
			t.Errorf("ParseDay(%q) = %v, %v; want MONDAY", in, d, err)
		}
	}
	if _, err := ParseDay("funday"); !errors.Is(err, ErrInvalidDay) {
		t.Errorf("ParseDay(funday) error = %v, want ErrInvalidDay", err)
	}
}

func TestStateSet(t *testing.T) {
	set := NewStateSet([]string{" homework ", ""})

	for _, s := range []DeviceState{StateActive, StateLocked, StateLoggedOut, "HOMEWORK"} {
		if !set.Contains(s) {
			t.Errorf("Contains(%s) = false, want true", s)
		}
	}
	if set.Contains("") {
		t.Error("Contains(\"\") = true, want false")
	}
}

func TestValidateOffset(t *testing.T) {
	tests := []struct {
		offset  int
		wantErr bool
	}{
		{0, false},
		{3600, false},
		{-MaxUTCOffsetSeconds, false},
		{MaxUTCOffsetSeconds, false},
		{MaxUTCOffsetSeconds + 1, true},
		{-MaxUTCOffsetSeconds - 1, true},
	}

	for _, tt := range tests {
		err := ValidateOffset(tt.offset)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateOffset(%d) error = %v, wantErr %v", tt.offset, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidOffset) {
			t.Errorf("ValidateOffset(%d) error = %v, want ErrInvalidOffset", tt.offset, err)
		}
	}
}
