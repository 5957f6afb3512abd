package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"vaccine-reservation-api/internal/model"
)

// Ledger is one consistent view over the three shared resources: vaccine
// inventory, caregiver availability, and the appointment book. Inside InTx
// every call sees and mutates the same transaction.
type Ledger interface {
	// inventory
	VaccineDoses(ctx context.Context, name string) (canonical string, doses int, err error)
	AddDoses(ctx context.Context, name string, n int) error
	TakeDoses(ctx context.Context, name string, n int) error
	Vaccines(ctx context.Context) ([]model.Vaccine, error)

	// availability
	PublishAvailability(ctx context.Context, caregiver string, date time.Time) error
	ClaimAny(ctx context.Context, date time.Time) (caregiver string, err error)
	Release(ctx context.Context, caregiver string, date time.Time) error
	CaregiversOn(ctx context.Context, date time.Time) ([]string, error)

	// appointments
	NextAppointmentID(ctx context.Context) (int64, error)
	CreateAppointment(ctx context.Context, a *model.Appointment) error
	FindOwned(ctx context.Context, id int64, s model.Session) (*model.Appointment, error)
	DeleteAppointment(ctx context.Context, id int64) error
	AppointmentsFor(ctx context.Context, s model.Session) ([]model.Appointment, error)
}

// Storage runs ledger operations either auto-committed or grouped into a
// single all-or-nothing transaction via InTx.
type Storage interface {
	Ledger
	InTx(ctx context.Context, fn func(Ledger) error) error
}

// ScheduleCache holds recently computed Schedule snapshots. Implementations
// may lose or expire entries at any time; correctness never depends on it.
type ScheduleCache interface {
	Schedule(ctx context.Context, date time.Time) (*Schedule, bool)
	StoreSchedule(ctx context.Context, date time.Time, s *Schedule)
	// Invalidate drops every cached snapshot. Any write can change the
	// vaccine counts embedded in all of them, so there is no per-date form.
	Invalidate(ctx context.Context)
}

// Confirmation is returned by a successful booking.
type Confirmation struct {
	AppointmentID int64
	Caregiver     string
}

// AppointmentSummary is one row of a user's appointment listing.
type AppointmentSummary struct {
	ID           int64
	Vaccine      string
	Date         time.Time
	Counterparty string
}

// Schedule is the read-only answer to "who is free on this date, and what
// is in stock": caregiver usernames ascending plus a snapshot of every
// vaccine and its dose count.
type Schedule struct {
	Caregivers []string
	Vaccines   []model.Vaccine
}

// Engine coordinates bookings and cancellations across the inventory,
// availability, and appointment ledgers. Each mutating operation is a single
// transaction: either all of its effects land or none do.
type Engine struct {
	store Storage
	cache ScheduleCache
	log   zerolog.Logger
}

// New builds an Engine. cache may be nil to disable schedule caching.
func New(store Storage, cache ScheduleCache, log zerolog.Logger) *Engine {
	return &Engine{store: store, cache: cache, log: log}
}

// Book reserves one dose of the named vaccine on the given date for the
// session's patient, claiming the available caregiver with the lowest
// username. The claim, dose decrement, and appointment insert commit
// together; a failure at any step leaves no trace.
func (e *Engine) Book(ctx context.Context, s model.Session, dateStr, vaccine string) (Confirmation, error) {
	if s.Role != model.RolePatient {
		return Confirmation{}, ErrWrongRole
	}
	date, err := ParseDate(dateStr)
	if err != nil {
		return Confirmation{}, err
	}

	var conf Confirmation
	err = e.store.InTx(ctx, func(l Ledger) error {
		name, doses, err := l.VaccineDoses(ctx, vaccine)
		if err != nil {
			return err
		}
		if doses == 0 {
			return fmt.Errorf("%w: %s", ErrOutOfStock, name)
		}

		caregiver, err := l.ClaimAny(ctx, date)
		if err != nil {
			return err
		}

		id, err := l.NextAppointmentID(ctx)
		if err != nil {
			return err
		}
		if err := l.TakeDoses(ctx, name, 1); err != nil {
			return err
		}

		a := &model.Appointment{
			ID:        id,
			Date:      date,
			Caregiver: caregiver,
			Patient:   s.Username,
			Vaccine:   name,
		}
		if err := l.CreateAppointment(ctx, a); err != nil {
			// id collision under race; the transaction unwinds the
			// claimed slot and the taken dose
			if errors.Is(err, ErrDuplicateID) {
				return fmt.Errorf("%w: appointment id %d", ErrConflict, id)
			}
			return err
		}

		conf = Confirmation{AppointmentID: id, Caregiver: caregiver}
		return nil
	})
	if err != nil {
		return Confirmation{}, err
	}

	e.invalidate(ctx)
	e.log.Info().
		Int64("appointment_id", conf.AppointmentID).
		Str("caregiver", conf.Caregiver).
		Str("patient", s.Username).
		Str("date", dateStr).
		Msg("appointment booked")
	return conf, nil
}

// Cancel removes an appointment the session's user is a party to, restoring
// the caregiver's slot and the vaccine dose in the same transaction. A
// missing appointment and someone else's appointment both report ErrNotFound.
func (e *Engine) Cancel(ctx context.Context, s model.Session, id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}

	var cancelled *model.Appointment
	err := e.store.InTx(ctx, func(l Ledger) error {
		a, err := l.FindOwned(ctx, id, s)
		if err != nil {
			return err
		}
		if err := l.DeleteAppointment(ctx, a.ID); err != nil {
			return err
		}
		if err := l.Release(ctx, a.Caregiver, a.Date); err != nil {
			return err
		}
		if err := l.AddDoses(ctx, a.Vaccine, 1); err != nil {
			return err
		}
		cancelled = a
		return nil
	})
	if err != nil {
		return err
	}

	e.invalidate(ctx)
	e.log.Info().
		Int64("appointment_id", cancelled.ID).
		Str("caregiver", cancelled.Caregiver).
		Str("by", s.Username).
		Msg("appointment cancelled")
	return nil
}

// Appointments lists the session user's active appointments, ascending by id.
func (e *Engine) Appointments(ctx context.Context, s model.Session) ([]AppointmentSummary, error) {
	apts, err := e.store.AppointmentsFor(ctx, s)
	if err != nil {
		return nil, err
	}
	out := make([]AppointmentSummary, len(apts))
	for i := range apts {
		out[i] = AppointmentSummary{
			ID:           apts[i].ID,
			Vaccine:      apts[i].Vaccine,
			Date:         apts[i].Date,
			Counterparty: apts[i].Counterparty(s.Role),
		}
	}
	return out, nil
}

// PublishAvailability opens one slot for the session's caregiver on the
// given date. Publishing the same date twice is rejected.
func (e *Engine) PublishAvailability(ctx context.Context, s model.Session, dateStr string) error {
	if s.Role != model.RoleCaregiver {
		return ErrWrongRole
	}
	date, err := ParseDate(dateStr)
	if err != nil {
		return err
	}
	if err := e.store.PublishAvailability(ctx, s.Username, date); err != nil {
		return err
	}
	e.invalidate(ctx)
	e.log.Info().Str("caregiver", s.Username).Str("date", dateStr).Msg("availability published")
	return nil
}

// AddDoses adds n doses of the named vaccine, creating it on first use.
func (e *Engine) AddDoses(ctx context.Context, s model.Session, vaccine string, n int) error {
	if s.Role != model.RoleCaregiver {
		return ErrWrongRole
	}
	if vaccine == "" || n <= 0 {
		return fmt.Errorf("%w: need a vaccine name and a positive dose count", ErrInvalidArgument)
	}
	if err := e.store.AddDoses(ctx, vaccine, n); err != nil {
		return err
	}
	e.invalidate(ctx)
	e.log.Info().Str("vaccine", vaccine).Int("doses", n).Msg("doses added")
	return nil
}

// Schedule reports the caregivers free on the date along with the current
// vaccine stock, both read in one consistent snapshot.
func (e *Engine) Schedule(ctx context.Context, s model.Session, dateStr string) (*Schedule, error) {
	date, err := ParseDate(dateStr)
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		if sched, ok := e.cache.Schedule(ctx, date); ok {
			return sched, nil
		}
	}

	sched := &Schedule{}
	err = e.store.InTx(ctx, func(l Ledger) error {
		caregivers, err := l.CaregiversOn(ctx, date)
		if err != nil {
			return err
		}
		vaccines, err := l.Vaccines(ctx)
		if err != nil {
			return err
		}
		sched.Caregivers, sched.Vaccines = caregivers, vaccines
		return nil
	})
	if err != nil {
		return nil, err
	}

	if e.cache != nil {
		e.cache.StoreSchedule(ctx, date, sched)
	}
	return sched, nil
}

func (e *Engine) invalidate(ctx context.Context) {
	if e.cache != nil {
		e.cache.Invalidate(ctx)
	}
}
