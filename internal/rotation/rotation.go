package rotation

import (
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"podoagenda/backend/internal/domain"
)

// Rule describes a recurring-but-irregular pattern, such as a biweekly
// Sunday rest shared by alternating groups. Weeks are counted from the Monday
// of Anchor's week; week k is active when k is a multiple of IntervalWeeks,
// and the n-th active week applies to Groups[n % len(Groups)].
type Rule struct {
	Name          string
	Anchor        time.Time
	IntervalWeeks int
	Weekdays      []int16 // ISO: 1 = Monday ... 7 = Sunday
	Groups        [][]uuid.UUID
	Until         *time.Time
	Count         *int
	Template      domain.OverrideTemplate
}

// GenerateOverrides materializes the rule into one override per professional
// and matching date in [from, to].
func GenerateOverrides(rule Rule, from, to time.Time) ([]domain.ScheduleOverride, error) {
	if !rule.Template.Kind.Valid() {
		return nil, errors.New("invalid override kind")
	}
	if rule.Anchor.IsZero() {
		return nil, errors.New("anchor date is required")
	}
	if len(rule.Groups) == 0 {
		return nil, errors.New("at least one group is required")
	}

	weekdays := make([]int16, 0, len(rule.Weekdays))
	seen := make(map[int16]struct{}, len(rule.Weekdays))
	for _, wd := range rule.Weekdays {
		if wd < 1 || wd > 7 {
			return nil, errors.New("invalid weekday")
		}
		if _, ok := seen[wd]; ok {
			continue
		}
		seen[wd] = struct{}{}
		weekdays = append(weekdays, wd)
	}
	if len(weekdays) == 0 {
		return nil, errors.New("at least one weekday is required")
	}
	sort.Slice(weekdays, func(i, j int) bool { return weekdays[i] < weekdays[j] })

	interval := rule.IntervalWeeks
	if interval < 1 {
		interval = 1
	}

	anchor := civil(rule.Anchor)
	from = civil(from)
	to = civil(to)
	if to.Before(from) {
		return nil, nil
	}
	var until time.Time
	if rule.Until != nil {
		until = civil(*rule.Until)
	}

	anchorMonday := mondayOf(anchor)
	maxCount := -1
	if rule.Count != nil {
		maxCount = *rule.Count
	}

	out := make([]domain.ScheduleOverride, 0, 16)
	emitted := 0
	for activeWeek := 0; ; activeWeek++ {
		weekMonday := anchorMonday.AddDate(0, 0, activeWeek*interval*7)
		if weekMonday.After(to) {
			break
		}
		group := rule.Groups[activeWeek%len(rule.Groups)]

		for _, wd := range weekdays {
			date := weekMonday.AddDate(0, 0, weekdayOffsetFromMonday(wd))
			if date.Before(anchor) {
				continue
			}
			if !until.IsZero() && date.After(until) {
				return out, nil
			}
			if maxCount >= 0 && emitted >= maxCount {
				return out, nil
			}
			emitted++

			if date.Before(from) || date.After(to) {
				continue
			}
			for _, professionalID := range group {
				out = append(out, fromTemplate(professionalID, date, rule.Template))
			}
		}
	}

	return out, nil
}

// HolidayGroup applies one template to explicit dates for a set of professionals.
type HolidayGroup struct {
	Name          string
	Dates         []time.Time
	Professionals []uuid.UUID
	Template      domain.OverrideTemplate
}

func ExpandHolidays(group HolidayGroup, from, to time.Time) []domain.ScheduleOverride {
	from = civil(from)
	to = civil(to)
	dates := make([]time.Time, 0, len(group.Dates))
	for _, d := range group.Dates {
		d = civil(d)
		if d.Before(from) || d.After(to) {
			continue
		}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	out := make([]domain.ScheduleOverride, 0, len(dates)*len(group.Professionals))
	for _, d := range dates {
		for _, professionalID := range group.Professionals {
			out = append(out, fromTemplate(professionalID, d, group.Template))
		}
	}
	return out
}

func fromTemplate(professionalID uuid.UUID, date time.Time, tpl domain.OverrideTemplate) domain.ScheduleOverride {
	return domain.ScheduleOverride{
		ID:               domain.OverrideID(professionalID, date),
		ProfessionalID:   professionalID,
		Date:             date,
		Kind:             tpl.Kind,
		StartTime:        tpl.StartTime,
		EndTime:          tpl.EndTime,
		TargetLocationID: tpl.TargetLocationID,
		Note:             tpl.Note,
	}
}

// civil keeps only the calendar date, as UTC midnight.
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func mondayOf(d time.Time) time.Time {
	wd := d.Weekday()
	offset := 0
	if wd == time.Sunday {
		offset = 6
	} else {
		offset = int(wd) - 1
	}
	return d.AddDate(0, 0, -offset)
}

func weekdayOffsetFromMonday(weekday int16) int {
	if weekday == 7 {
		return 6
	}
	return int(weekday) - 1
}
