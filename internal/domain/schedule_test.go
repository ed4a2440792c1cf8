package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func todPtr(s string) *TimeOfDay {
	t := MustParseTimeOfDay(s)
	return &t
}

func TestParseTimeOfDay(t *testing.T) {
	tests := []struct {
		in      string
		want    TimeOfDay
		wantErr bool
	}{
		{in: "08:00", want: 480},
		{in: " 9:30", want: 570},
		{in: "24:00", want: 1440},
		{in: "24:30", wantErr: true},
		{in: "12:5", wantErr: true},
		{in: "noon", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseTimeOfDay(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseTimeOfDay(%q) = %v, want error", tt.in, got)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("ParseTimeOfDay(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
}

func TestTimeOfDay_OnKeepsLocation(t *testing.T) {
	cot := time.FixedZone("COT", -5*3600)
	day := time.Date(2024, 7, 9, 23, 0, 0, 0, cot)
	got := MustParseTimeOfDay("10:30").On(day)
	want := time.Date(2024, 7, 9, 10, 30, 0, 0, cot)
	if !got.Equal(want) || got.Location() != cot {
		t.Fatalf("On = %s, want %s", got, want)
	}
}

func TestDayWindow_Validate(t *testing.T) {
	tests := []struct {
		name    string
		w       DayWindow
		wantErr bool
	}{
		{"not working", DayWindow{}, false},
		{"regular", DayWindow{IsWorking: true, Start: MustParseTimeOfDay("10:00"), End: MustParseTimeOfDay("19:00")}, false},
		{"until midnight", DayWindow{IsWorking: true, Start: MustParseTimeOfDay("18:00"), End: MustParseTimeOfDay("24:00")}, false},
		{"empty", DayWindow{IsWorking: true, Start: MustParseTimeOfDay("10:00"), End: MustParseTimeOfDay("10:00")}, true},
		{"inverted", DayWindow{IsWorking: true, Start: MustParseTimeOfDay("19:00"), End: MustParseTimeOfDay("10:00")}, true},
		{"off grid", DayWindow{IsWorking: true, Start: MustParseTimeOfDay("10:15"), End: MustParseTimeOfDay("19:00")}, true},
		{"out of range", DayWindow{IsWorking: true, Start: -30, End: MustParseTimeOfDay("19:00")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.w.Validate(DefaultScheduleGrid)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			var ie *InvalidScheduleError
			if err != nil && !errors.As(err, &ie) {
				t.Fatalf("error %T is not *InvalidScheduleError", err)
			}
		})
	}
}

func TestWeeklySchedule_ValidateNamesWeekday(t *testing.T) {
	s := WeeklySchedule{
		time.Monday:  {IsWorking: true, Start: MustParseTimeOfDay("10:00"), End: MustParseTimeOfDay("19:00")},
		time.Tuesday: {IsWorking: true, Start: MustParseTimeOfDay("11:00"), End: MustParseTimeOfDay("10:00")},
	}
	err := s.Validate(DefaultScheduleGrid)
	var ie *InvalidScheduleError
	if !errors.As(err, &ie) {
		t.Fatalf("Validate() error = %v, want *InvalidScheduleError", err)
	}
	if got := ie.Reason; len(got) < 8 || got[:8] != "Tuesday:" {
		t.Fatalf("reason = %q, want Tuesday prefix", got)
	}
}

func TestScheduleOverride_Validate(t *testing.T) {
	pid := uuid.New()
	target := uuid.New()
	day := date(2024, 7, 9)
	tests := []struct {
		name    string
		o       ScheduleOverride
		wantErr bool
	}{
		{"rest", ScheduleOverride{ProfessionalID: pid, Date: day, Kind: OverrideKindRest}, false},
		{"special shift", ScheduleOverride{ProfessionalID: pid, Date: day, Kind: OverrideKindSpecialShift, StartTime: todPtr("08:00"), EndTime: todPtr("12:00")}, false},
		{"transfer", ScheduleOverride{ProfessionalID: pid, Date: day, Kind: OverrideKindTransfer, StartTime: todPtr("10:00"), EndTime: todPtr("19:00"), TargetLocationID: &target}, false},
		{"shift without window", ScheduleOverride{ProfessionalID: pid, Date: day, Kind: OverrideKindSpecialShift}, true},
		{"transfer without target", ScheduleOverride{ProfessionalID: pid, Date: day, Kind: OverrideKindTransfer, StartTime: todPtr("10:00"), EndTime: todPtr("19:00")}, true},
		{"inverted shift", ScheduleOverride{ProfessionalID: pid, Date: day, Kind: OverrideKindSpecialShift, StartTime: todPtr("12:00"), EndTime: todPtr("08:00")}, true},
		{"unknown kind", ScheduleOverride{ProfessionalID: pid, Date: day, Kind: "vacation"}, true},
		{"no professional", ScheduleOverride{Date: day, Kind: OverrideKindRest}, true},
		{"no date", ScheduleOverride{ProfessionalID: pid, Kind: OverrideKindRest}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.o.Validate(DefaultScheduleGrid)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCheckUniqueOverrides(t *testing.T) {
	ana, beto := uuid.New(), uuid.New()
	ok := []ScheduleOverride{
		{ProfessionalID: ana, Date: date(2024, 7, 9), Kind: OverrideKindRest},
		{ProfessionalID: beto, Date: date(2024, 7, 9), Kind: OverrideKindRest},
		{ProfessionalID: ana, Date: date(2024, 7, 10), Kind: OverrideKindRest},
	}
	if err := CheckUniqueOverrides(ok); err != nil {
		t.Fatalf("CheckUniqueOverrides() error = %v", err)
	}
	dup := append(ok, ScheduleOverride{ProfessionalID: ana, Date: date(2024, 7, 9), Kind: OverrideKindSpecialShift})
	var ie *InvalidScheduleError
	if err := CheckUniqueOverrides(dup); !errors.As(err, &ie) || ie.ProfessionalID != ana {
		t.Fatalf("CheckUniqueOverrides() error = %v, want duplicate for %s", err, ana)
	}
}

func TestExpandOverrideRange(t *testing.T) {
	pid := uuid.New()
	got := ExpandOverrideRange(pid, date(2024, 12, 30), date(2025, 1, 2), OverrideTemplate{Kind: OverrideKindRest, Note: "vacaciones"})
	if len(got) != 4 {
		t.Fatalf("len = %d, want 4", len(got))
	}
	for i, o := range got {
		want := date(2024, 12, 30).AddDate(0, 0, i)
		if !o.Date.Equal(want) || o.Kind != OverrideKindRest || o.Note != "vacaciones" {
			t.Fatalf("got[%d] = %s %s %q, want %s rest", i, DateKey(o.Date), o.Kind, o.Note, DateKey(want))
		}
		if o.ID != OverrideID(pid, want) {
			t.Fatalf("got[%d].ID = %s, want deterministic id", i, o.ID)
		}
	}
	if got := ExpandOverrideRange(pid, date(2024, 7, 10), date(2024, 7, 9), OverrideTemplate{Kind: OverrideKindRest}); got != nil {
		t.Fatalf("inverted range = %v, want nil", got)
	}
}

func TestContiguousRun(t *testing.T) {
	pid := uuid.New()
	vacation := ExpandOverrideRange(pid, date(2024, 7, 8), date(2024, 7, 12), OverrideTemplate{Kind: OverrideKindRest, Note: "vacaciones"})
	overrides := append([]ScheduleOverride{
		{ProfessionalID: pid, Date: date(2024, 7, 6), Kind: OverrideKindRest, Note: "vacaciones"},
		{ProfessionalID: pid, Date: date(2024, 7, 7), Kind: OverrideKindRest, Note: "domingo"},
		{ProfessionalID: pid, Date: date(2024, 7, 13), Kind: OverrideKindSpecialShift, StartTime: todPtr("08:00"), EndTime: todPtr("12:00"), Note: "vacaciones"},
	}, vacation...)

	run := ContiguousRun(overrides, date(2024, 7, 10))
	if len(run) != 5 {
		t.Fatalf("run length = %d, want 5", len(run))
	}
	if !run[0].Date.Equal(date(2024, 7, 8)) || !run[4].Date.Equal(date(2024, 7, 12)) {
		t.Fatalf("run = %s..%s, want 2024-07-08..2024-07-12", DateKey(run[0].Date), DateKey(run[4].Date))
	}
	if got := ContiguousRun(overrides, date(2024, 7, 20)); got != nil {
		t.Fatalf("run on empty date = %v, want nil", got)
	}
}

func TestContiguousRun_SplitsOnWindowAndTarget(t *testing.T) {
	pid := uuid.New()
	norte, sur := uuid.New(), uuid.New()
	transfer := func(d int, target *uuid.UUID) ScheduleOverride {
		return ScheduleOverride{ProfessionalID: pid, Date: date(2024, 7, d), Kind: OverrideKindTransfer, StartTime: todPtr("10:00"), EndTime: todPtr("19:00"), TargetLocationID: target, Note: "apoyo"}
	}
	shift := func(d int, start, end string) ScheduleOverride {
		return ScheduleOverride{ProfessionalID: pid, Date: date(2024, 7, d), Kind: OverrideKindSpecialShift, StartTime: todPtr(start), EndTime: todPtr(end)}
	}
	same := norte

	tests := []struct {
		name      string
		overrides []ScheduleOverride
		on        time.Time
		want      int
	}{
		{"same target", []ScheduleOverride{transfer(8, &norte), transfer(9, &same), transfer(10, &norte)}, date(2024, 7, 9), 3},
		{"other target", []ScheduleOverride{transfer(8, &norte), transfer(9, &sur), transfer(10, &norte)}, date(2024, 7, 9), 1},
		{"same window", []ScheduleOverride{shift(8, "08:00", "12:00"), shift(9, "08:00", "12:00")}, date(2024, 7, 8), 2},
		{"other start", []ScheduleOverride{shift(8, "08:00", "12:00"), shift(9, "09:00", "12:00")}, date(2024, 7, 8), 1},
		{"other end", []ScheduleOverride{shift(8, "08:00", "12:00"), shift(9, "08:00", "13:00")}, date(2024, 7, 9), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContiguousRun(tt.overrides, tt.on); len(got) != tt.want {
				t.Fatalf("run length = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestDaysBetween_IgnoresDST(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	a := time.Date(2024, 3, 9, 12, 0, 0, 0, ny)
	b := time.Date(2024, 3, 11, 1, 0, 0, 0, ny)
	if got := DaysBetween(a, b); got != 2 {
		t.Fatalf("DaysBetween = %d, want 2", got)
	}
}
