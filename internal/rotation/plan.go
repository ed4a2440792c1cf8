package rotation

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"podoagenda/backend/internal/domain"
)

// Plan is the file form of a set of rotations and holiday groups.
type Plan struct {
	Rotations []RotationSpec `yaml:"rotations" validate:"dive"`
	Holidays  []HolidaySpec  `yaml:"holidays" validate:"dive"`
}

type OverrideSpec struct {
	Kind             string `yaml:"kind" validate:"required,oneof=rest special_shift transfer"`
	Start            string `yaml:"start"`
	End              string `yaml:"end"`
	TargetLocationID string `yaml:"target_location_id" validate:"omitempty,uuid"`
	Note             string `yaml:"note"`
}

type RotationSpec struct {
	Name          string     `yaml:"name" validate:"required"`
	Anchor        string     `yaml:"anchor" validate:"required,datetime=2006-01-02"`
	IntervalWeeks int        `yaml:"interval_weeks" validate:"gte=0"`
	Weekdays      []int16    `yaml:"weekdays" validate:"required,min=1,dive,min=1,max=7"`
	Groups        [][]string `yaml:"groups" validate:"required,min=1,dive,min=1,dive,uuid"`
	Until         string     `yaml:"until" validate:"omitempty,datetime=2006-01-02"`
	Count         *int       `yaml:"count" validate:"omitempty,min=1"`
	OverrideSpec  `yaml:",inline"`
}

type HolidaySpec struct {
	Name          string   `yaml:"name" validate:"required"`
	Dates         []string `yaml:"dates" validate:"required,min=1,dive,datetime=2006-01-02"`
	Professionals []string `yaml:"professionals" validate:"required,min=1,dive,uuid"`
	OverrideSpec  `yaml:",inline"`
}

// LoadPlan reads and validates a YAML plan file.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rotation plan: %w", err)
	}
	return ParsePlan(data)
}

func ParsePlan(data []byte) (*Plan, error) {
	var plan Plan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("decode rotation plan: %w", err)
	}
	if err := validator.New().Struct(plan); err != nil {
		return nil, fmt.Errorf("rotation plan validation failed: %w", err)
	}
	return &plan, nil
}

// Expand materializes every rotation and holiday group of the plan over
// [from, to]. Later entries win when two produce an override for the same
// professional and date.
func (p *Plan) Expand(from, to time.Time) ([]domain.ScheduleOverride, error) {
	var all []domain.ScheduleOverride

	for _, r := range p.Rotations {
		rule, err := r.rule()
		if err != nil {
			return nil, fmt.Errorf("rotation %q: %w", r.Name, err)
		}
		occs, err := GenerateOverrides(rule, from, to)
		if err != nil {
			return nil, fmt.Errorf("rotation %q: %w", r.Name, err)
		}
		all = append(all, occs...)
	}

	for _, h := range p.Holidays {
		group, err := h.group()
		if err != nil {
			return nil, fmt.Errorf("holiday group %q: %w", h.Name, err)
		}
		all = append(all, ExpandHolidays(group, from, to)...)
	}

	return dedupe(all), nil
}

func dedupe(in []domain.ScheduleOverride) []domain.ScheduleOverride {
	index := make(map[uuid.UUID]int, len(in))
	out := make([]domain.ScheduleOverride, 0, len(in))
	for _, o := range in {
		if i, ok := index[o.ID]; ok {
			out[i] = o
			continue
		}
		index[o.ID] = len(out)
		out = append(out, o)
	}
	return out
}

func (s OverrideSpec) template() (domain.OverrideTemplate, error) {
	tpl := domain.OverrideTemplate{Kind: domain.OverrideKind(s.Kind), Note: s.Note}
	if s.Start != "" {
		v, err := domain.ParseTimeOfDay(s.Start)
		if err != nil {
			return tpl, err
		}
		tpl.StartTime = &v
	}
	if s.End != "" {
		v, err := domain.ParseTimeOfDay(s.End)
		if err != nil {
			return tpl, err
		}
		tpl.EndTime = &v
	}
	if s.TargetLocationID != "" {
		id, err := uuid.Parse(s.TargetLocationID)
		if err != nil {
			return tpl, err
		}
		tpl.TargetLocationID = &id
	}
	return tpl, nil
}

func (r RotationSpec) rule() (Rule, error) {
	tpl, err := r.template()
	if err != nil {
		return Rule{}, err
	}
	anchor, err := time.Parse(time.DateOnly, r.Anchor)
	if err != nil {
		return Rule{}, err
	}
	rule := Rule{
		Name:          r.Name,
		Anchor:        anchor,
		IntervalWeeks: r.IntervalWeeks,
		Weekdays:      r.Weekdays,
		Count:         r.Count,
		Template:      tpl,
	}
	if r.Until != "" {
		until, err := time.Parse(time.DateOnly, r.Until)
		if err != nil {
			return Rule{}, err
		}
		rule.Until = &until
	}
	for _, g := range r.Groups {
		ids, err := parseIDs(g)
		if err != nil {
			return Rule{}, err
		}
		rule.Groups = append(rule.Groups, ids)
	}
	return rule, nil
}

func (h HolidaySpec) group() (HolidayGroup, error) {
	tpl, err := h.template()
	if err != nil {
		return HolidayGroup{}, err
	}
	ids, err := parseIDs(h.Professionals)
	if err != nil {
		return HolidayGroup{}, err
	}
	group := HolidayGroup{Name: h.Name, Professionals: ids, Template: tpl}
	for _, s := range h.Dates {
		d, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return HolidayGroup{}, err
		}
		group.Dates = append(group.Dates, d)
	}
	return group, nil
}

func parseIDs(in []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(in))
	for _, s := range in {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}
