package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"vaccine-reservation-api/internal/model"
	"vaccine-reservation-api/internal/scheduling"
)

// NextAppointmentID draws from a sequence: ids are monotonic, race-free,
// and never reused — a rolled-back booking burns its id.
func (l ledger) NextAppointmentID(ctx context.Context) (int64, error) {
	var id int64
	err := l.db.QueryRow(ctx, `SELECT nextval('appointment_ids')`).Scan(&id)
	if err != nil {
		return 0, storageErr(err)
	}
	return id, nil
}

func (l ledger) CreateAppointment(ctx context.Context, a *model.Appointment) error {
	_, err := l.db.Exec(ctx,
		`INSERT INTO appointments (id, day, caregiver, patient, vaccine)
		 VALUES ($1, $2, $3, $4, $5)`,
		a.ID, a.Date, a.Caregiver, a.Patient, a.Vaccine,
	)
	if uniqueViolation(err, "appointments_pkey") {
		return fmt.Errorf("%w: %d", scheduling.ErrDuplicateID, a.ID)
	}
	if uniqueViolation(err, "appointments_caregiver_day_key") {
		// double-booked caregiver; the constraint is the last line of defense
		return fmt.Errorf("%w: %s already booked on %s", scheduling.ErrConflict,
			a.Caregiver, scheduling.FormatDate(a.Date))
	}
	if err != nil {
		return storageErr(err)
	}
	return nil
}

// FindOwned looks an appointment up by id, filtered to the session's own
// side of it. Missing and not-owned are indistinguishable on purpose.
func (l ledger) FindOwned(ctx context.Context, id int64, s model.Session) (*model.Appointment, error) {
	q := `SELECT id, day, caregiver, patient, vaccine, created_at
	      FROM appointments WHERE id = $1 AND patient = $2`
	if s.Role == model.RoleCaregiver {
		q = `SELECT id, day, caregiver, patient, vaccine, created_at
		     FROM appointments WHERE id = $1 AND caregiver = $2`
	}

	a := &model.Appointment{}
	err := l.db.QueryRow(ctx, q, id, s.Username).Scan(
		&a.ID, &a.Date, &a.Caregiver, &a.Patient, &a.Vaccine, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", scheduling.ErrNotFound, id)
	}
	if err != nil {
		return nil, storageErr(err)
	}
	return a, nil
}

func (l ledger) DeleteAppointment(ctx context.Context, id int64) error {
	tag, err := l.db.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return storageErr(err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: id %d", scheduling.ErrNotFound, id)
	}
	return nil
}

func (l ledger) AppointmentsFor(ctx context.Context, s model.Session) ([]model.Appointment, error) {
	q := `SELECT id, day, caregiver, patient, vaccine, created_at
	      FROM appointments WHERE patient = $1 ORDER BY id`
	if s.Role == model.RoleCaregiver {
		q = `SELECT id, day, caregiver, patient, vaccine, created_at
		     FROM appointments WHERE caregiver = $1 ORDER BY id`
	}

	rows, err := l.db.Query(ctx, q, s.Username)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	var out []model.Appointment
	for rows.Next() {
		var a model.Appointment
		if err := rows.Scan(&a.ID, &a.Date, &a.Caregiver, &a.Patient,
			&a.Vaccine, &a.CreatedAt); err != nil {
			return nil, storageErr(err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
