package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"podoagenda/backend/internal/domain"
	"podoagenda/backend/internal/store"
)

type AppointmentRepo struct {
	db *bun.DB
}

func NewAppointmentRepo(db *bun.DB) *AppointmentRepo {
	return &AppointmentRepo{db: db}
}

type scheduleTx struct {
	tx bun.Tx
}

func (r *AppointmentRepo) ListAppointments(ctx context.Context, filter store.AppointmentFilter) ([]domain.Appointment, error) {
	return listAppointments(ctx, r.db, filter)
}

func listAppointments(ctx context.Context, db bun.IDB, filter store.AppointmentFilter) ([]domain.Appointment, error) {
	var rows []domain.Appointment
	q := db.NewSelect().Model(&rows)

	start, end := filter.Window()
	if !start.IsZero() {
		q = q.Where("start_time >= ?", start)
	}
	if !end.IsZero() {
		q = q.Where("start_time < ?", end)
	}
	if filter.LocationID != nil {
		q = q.Where("location_id = ?", *filter.LocationID)
	}
	if filter.ProfessionalID != nil {
		q = q.Where("professional_id = ?", *filter.ProfessionalID)
	}
	if len(filter.Statuses) > 0 {
		q = q.Where("status IN (?)", bun.In(filter.Statuses))
	}

	if err := q.OrderExpr("start_time ASC, id ASC").Scan(ctx); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AppointmentRepo) GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var out domain.Appointment
	err := r.db.NewSelect().Model(&out).Where("id = ?", id).Limit(1).Scan(ctx)
	if err != nil {
		return domain.Appointment{}, mapError(err)
	}
	return out, nil
}

func (r *AppointmentRepo) CommitAppointmentProfessional(ctx context.Context, id, newProfessionalID uuid.UUID, targetServiceID *uuid.UUID, expectedVersion int) (domain.Appointment, error) {
	current, err := r.GetAppointment(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}

	var out domain.Appointment
	err = r.InProfessionalTransaction(ctx, []uuid.UUID{current.ProfessionalID, newProfessionalID}, func(ctx context.Context, tx store.ScheduleTx) error {
		a, err := commitReschedule(ctx, tx, id, expectedVersion, func(a domain.Appointment) (domain.Appointment, error) {
			return reassign(a, newProfessionalID, targetServiceID)
		})
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (r *AppointmentRepo) CommitAppointmentTime(ctx context.Context, id uuid.UUID, newStart time.Time, expectedVersion int) (domain.Appointment, error) {
	current, err := r.GetAppointment(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}

	var out domain.Appointment
	err = r.InProfessionalTransaction(ctx, []uuid.UUID{current.ProfessionalID}, func(ctx context.Context, tx store.ScheduleTx) error {
		a, err := commitReschedule(ctx, tx, id, expectedVersion, func(a domain.Appointment) (domain.Appointment, error) {
			return shiftTo(a, newStart), nil
		})
		if err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return domain.Appointment{}, err
	}
	return out, nil
}

func (r *AppointmentRepo) InProfessionalTransaction(ctx context.Context, professionalIDs []uuid.UUID, fn func(ctx context.Context, tx store.ScheduleTx) error) error {
	return inProfessionalTransaction(ctx, r.db, professionalIDs, fn)
}

func inProfessionalTransaction(ctx context.Context, db *bun.DB, professionalIDs []uuid.UUID, fn func(ctx context.Context, tx store.ScheduleTx) error) error {
	ids := make([]string, 0, len(professionalIDs))
	for _, id := range professionalIDs {
		ids = append(ids, id.String())
	}
	return db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockProfessionals(ctx, tx, ids...); err != nil {
			return err
		}
		return fn(ctx, scheduleTx{tx: tx})
	})
}

// commitReschedule applies mutate to the locked appointment when its version
// still equals expectedVersion.
func commitReschedule(ctx context.Context, tx store.ScheduleTx, id uuid.UUID, expectedVersion int, mutate func(domain.Appointment) (domain.Appointment, error)) (domain.Appointment, error) {
	current, err := tx.GetAppointmentForUpdate(ctx, id)
	if err != nil {
		return domain.Appointment{}, err
	}
	if current.Version != expectedVersion {
		return domain.Appointment{}, store.ErrStale
	}
	if !current.Status.Committed() {
		return domain.Appointment{}, store.ErrConflict
	}
	next, err := mutate(current)
	if err != nil {
		return domain.Appointment{}, err
	}
	return tx.UpdateAppointment(ctx, next, expectedVersion)
}

// reassign moves the appointment, or the add-on for targetServiceID alone, to
// professionalID. Add-ons without their own professional follow the primary.
func reassign(a domain.Appointment, professionalID uuid.UUID, targetServiceID *uuid.UUID) (domain.Appointment, error) {
	addOns := make([]domain.AppointmentAddOn, len(a.AddOns))
	copy(addOns, a.AddOns)
	a.AddOns = addOns

	if targetServiceID == nil || *targetServiceID == a.ServiceID {
		prev := a.ProfessionalID
		a.ProfessionalID = professionalID
		for i, ad := range a.AddOns {
			if ad.ProfessionalID != nil && (*ad.ProfessionalID == prev || *ad.ProfessionalID == professionalID) {
				a.AddOns[i].ProfessionalID = nil
			}
		}
		return a, nil
	}

	idx := a.AddOnIndex(*targetServiceID)
	if idx < 0 {
		return domain.Appointment{}, &domain.InvalidServiceError{ServiceID: *targetServiceID, Reason: "not part of appointment " + a.ID.String()}
	}
	if professionalID == a.ProfessionalID {
		a.AddOns[idx].ProfessionalID = nil
	} else {
		pid := professionalID
		a.AddOns[idx].ProfessionalID = &pid
	}
	return a, nil
}

// shiftTo moves the appointment start and carries explicit add-on starts and
// travel legs by the same delta.
func shiftTo(a domain.Appointment, newStart time.Time) domain.Appointment {
	delta := newStart.Sub(a.StartTime)
	a.StartTime = newStart

	addOns := make([]domain.AppointmentAddOn, len(a.AddOns))
	copy(addOns, a.AddOns)
	for i, ad := range addOns {
		if ad.StartTime != nil {
			s := ad.StartTime.Add(delta)
			addOns[i].StartTime = &s
		}
	}
	a.AddOns = addOns

	travel := make([]domain.TravelLeg, len(a.Travel))
	copy(travel, a.Travel)
	for i := range travel {
		travel[i].StartTime = travel[i].StartTime.Add(delta)
	}
	a.Travel = travel
	return a
}

func (r scheduleTx) GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (domain.Appointment, error) {
	var out domain.Appointment
	err := r.tx.NewSelect().
		Model(&out).
		Where("id = ?", id).
		For("UPDATE").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return domain.Appointment{}, mapError(err)
	}
	return out, nil
}

func (r scheduleTx) UpdateAppointment(ctx context.Context, appt domain.Appointment, expectedVersion int) (domain.Appointment, error) {
	appt.Version = expectedVersion + 1
	res, err := r.tx.NewUpdate().
		Model(&appt).
		Column("professional_id", "start_time", "add_ons", "travel", "version", "updated_at").
		WherePK().
		Where("version = ?", expectedVersion).
		Exec(ctx)
	if err != nil {
		return domain.Appointment{}, mapError(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Appointment{}, err
	}
	if affected == 0 {
		return domain.Appointment{}, store.ErrStale
	}
	return appt, nil
}

func (r scheduleTx) UpsertOverride(ctx context.Context, o domain.ScheduleOverride) (domain.ScheduleOverride, error) {
	m := o
	if m.ID == uuid.Nil {
		m.ID = domain.OverrideID(m.ProfessionalID, m.Date)
	}
	_, err := r.tx.NewInsert().
		Model(&m).
		On("CONFLICT (professional_id, date) DO UPDATE").
		Set("kind = EXCLUDED.kind").
		Set("start_time = EXCLUDED.start_time").
		Set("end_time = EXCLUDED.end_time").
		Set("target_location_id = EXCLUDED.target_location_id").
		Set("note = EXCLUDED.note").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("*").
		Exec(ctx)
	if err != nil {
		return domain.ScheduleOverride{}, mapError(err)
	}
	return m, nil
}

func (r scheduleTx) DeleteOverrides(ctx context.Context, professionalID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	res, err := r.tx.NewDelete().
		Model((*domain.ScheduleOverride)(nil)).
		Where("professional_id = ?", professionalID).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
