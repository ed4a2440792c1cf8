// Package contract classifies professional contracts relative to a reference
// date and gates scheduling and payroll eligibility on the result.
package contract

import (
	"time"

	"podoagenda/backend/internal/domain"
)

type Status string

const (
	StatusActive       Status = "activo"
	StatusExpiringSoon Status = "proximo_a_vencer"
	StatusExpired      Status = "vencido"
	StatusNoContract   Status = "sin_contrato"
)

// DefaultLookahead is used when a Classifier has no lookahead configured.
const DefaultLookahead = 15 * 24 * time.Hour

type Classifier struct {
	// Lookahead is the window after the reference date in which an ending
	// contract counts as expiring soon. It is rounded down to whole days.
	Lookahead time.Duration
}

func NewClassifier(lookahead time.Duration) Classifier {
	if lookahead <= 0 {
		lookahead = DefaultLookahead
	}
	return Classifier{Lookahead: lookahead}
}

func (c Classifier) lookaheadDays() int {
	d := c.Lookahead
	if d <= 0 {
		d = DefaultLookahead
	}
	return int(d / (24 * time.Hour))
}

// Classify compares calendar dates only; the clock part of ref is ignored.
func (c Classifier) Classify(ct *domain.Contract, ref time.Time) Status {
	if ct == nil || ct.StartDate == nil {
		return StatusNoContract
	}
	if ct.EndDate == nil {
		return StatusActive
	}
	days := domain.DaysBetween(ref, *ct.EndDate)
	switch {
	case days < 0:
		return StatusExpired
	case days <= c.lookaheadDays():
		return StatusExpiringSoon
	default:
		return StatusActive
	}
}

// Schedulable reports whether a professional with status s may be put on the
// roster.
func Schedulable(s Status) bool {
	return s == StatusActive || s == StatusExpiringSoon
}

// ActiveOn reports whether the contract covers date, for historical queries
// such as "was this professional hired on the appointment date".
func ActiveOn(ct *domain.Contract, date time.Time) bool {
	if ct == nil || ct.StartDate == nil {
		return false
	}
	if domain.DaysBetween(*ct.StartDate, date) < 0 {
		return false
	}
	if ct.EndDate != nil && domain.DaysBetween(date, *ct.EndDate) < 0 {
		return false
	}
	return true
}

// PayPeriod is a half-month (quincena): the 1st to the 15th, or the 16th to
// the last day of the month. Both ends are inclusive.
type PayPeriod struct {
	Start time.Time
	End   time.Time
}

func PayPeriodOf(date time.Time) PayPeriod {
	y, m, d := date.Date()
	loc := date.Location()
	if d <= 15 {
		return PayPeriod{
			Start: time.Date(y, m, 1, 0, 0, 0, 0, loc),
			End:   time.Date(y, m, 15, 0, 0, 0, 0, loc),
		}
	}
	return PayPeriod{
		Start: time.Date(y, m, 16, 0, 0, 0, 0, loc),
		End:   time.Date(y, m+1, 0, 0, 0, 0, 0, loc),
	}
}

func (p PayPeriod) Next() PayPeriod {
	return PayPeriodOf(p.End.AddDate(0, 0, 1))
}

// EligibleForPeriod reports whether the contract overlaps any day of p.
func EligibleForPeriod(ct *domain.Contract, p PayPeriod) bool {
	if ct == nil || ct.StartDate == nil {
		return false
	}
	if domain.DaysBetween(*ct.StartDate, p.End) < 0 {
		return false
	}
	if ct.EndDate != nil && domain.DaysBetween(p.Start, *ct.EndDate) < 0 {
		return false
	}
	return true
}

// FilterSchedulable drops managers and professionals whose contract is not
// schedulable on ref. Managers can still be booked, they just do not appear on
// the rotation roster.
func (c Classifier) FilterSchedulable(roster []domain.Professional, ref time.Time) []domain.Professional {
	out := make([]domain.Professional, 0, len(roster))
	for _, p := range roster {
		if p.IsManager {
			continue
		}
		if !Schedulable(c.Classify(p.Contract, ref)) {
			continue
		}
		out = append(out, p)
	}
	return out
}
