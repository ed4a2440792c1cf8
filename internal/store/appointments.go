package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"podoagenda/backend/internal/domain"
)

// AppointmentFilter scopes an appointment listing. When Date is set it wins
// over From/To and selects that calendar day in Date's location. A nil
// LocationID spans every location.
type AppointmentFilter struct {
	LocationID     *uuid.UUID
	ProfessionalID *uuid.UUID
	Date           *time.Time
	From           time.Time
	To             time.Time
	Statuses       []domain.AppointmentStatus
}

// Window returns the [start, end) range the filter selects.
func (f AppointmentFilter) Window() (time.Time, time.Time) {
	if f.Date != nil {
		start := domain.DateOf(*f.Date)
		return start, start.AddDate(0, 0, 1)
	}
	return f.From, f.To
}

type AppointmentRepository interface {
	ListAppointments(ctx context.Context, filter AppointmentFilter) ([]domain.Appointment, error)
	GetAppointment(ctx context.Context, id uuid.UUID) (domain.Appointment, error)

	// CommitAppointmentProfessional moves the appointment, or only the add-on
	// for targetServiceID, to newProfessionalID. ErrStale is returned when the
	// stored version differs from expectedVersion.
	CommitAppointmentProfessional(ctx context.Context, id, newProfessionalID uuid.UUID, targetServiceID *uuid.UUID, expectedVersion int) (domain.Appointment, error)
	// CommitAppointmentTime moves the appointment start, shifting explicit
	// add-on starts and travel legs by the same amount.
	CommitAppointmentTime(ctx context.Context, id uuid.UUID, newStart time.Time, expectedVersion int) (domain.Appointment, error)
}

type RosterRepository interface {
	// ListProfessionals returns professionals with their overrides and
	// contract loaded. A nil homeLocationID returns everyone.
	ListProfessionals(ctx context.Context, homeLocationID *uuid.UUID) ([]domain.Professional, error)
	GetProfessional(ctx context.Context, id uuid.UUID) (domain.Professional, error)
	ListServices(ctx context.Context) ([]domain.Service, error)
}

type OverrideRepository interface {
	ListOverrides(ctx context.Context, professionalID uuid.UUID, from, to time.Time) ([]domain.ScheduleOverride, error)
	// PutOverrides upserts on (professional_id, date).
	PutOverrides(ctx context.Context, overrides []domain.ScheduleOverride) ([]domain.ScheduleOverride, error)
	DeleteOverrides(ctx context.Context, professionalID uuid.UUID, ids []uuid.UUID) error
}

type ContractRepository interface {
	// ReplaceContract archives the current contract, if any, and stores c in
	// the same transaction.
	ReplaceContract(ctx context.Context, c domain.Contract) (domain.Contract, error)
	ListContractHistory(ctx context.Context, professionalID uuid.UUID) ([]domain.ContractHistory, error)
}

// ScheduleTx is the set of writes performed while holding a professional's
// schedule lock.
type ScheduleTx interface {
	GetAppointmentForUpdate(ctx context.Context, id uuid.UUID) (domain.Appointment, error)
	UpdateAppointment(ctx context.Context, appt domain.Appointment, expectedVersion int) (domain.Appointment, error)
	UpsertOverride(ctx context.Context, o domain.ScheduleOverride) (domain.ScheduleOverride, error)
	DeleteOverrides(ctx context.Context, professionalID uuid.UUID, ids []uuid.UUID) error
}
