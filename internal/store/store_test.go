package store_test

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"

	"vaccine-reservation-api/internal/auth"
	"vaccine-reservation-api/internal/model"
	"vaccine-reservation-api/internal/scheduling"
	"vaccine-reservation-api/internal/store"
)

// These tests run against a real database and skip when none is configured.
// All rows use uuid-suffixed names so runs don't step on each other.

func setup(t *testing.T) *store.Store {
	t.Helper()
	_ = godotenv.Load("../../.env")
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	migration, err := os.ReadFile("../../db/migrations/001_init.sql")
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(migration))
	require.NoError(t, err)

	return store.New(pool)
}

func addUser(t *testing.T, st *store.Store, role model.Role, prefix string) string {
	t.Helper()
	username := fmt.Sprintf("%s-%s", prefix, uuid.New().String()[:8])
	err := st.CreateUser(context.Background(), &model.User{
		ID:           uuid.New().String(),
		Username:     username,
		Role:         role,
		PasswordHash: "x",
	})
	require.NoError(t, err)
	return username
}

func uniqueVaccine() string {
	return "Vax-" + uuid.New().String()[:8]
}

func testDate(t *testing.T) time.Time {
	t.Helper()
	d, err := scheduling.ParseDate("06-15-2027")
	require.NoError(t, err)
	return d
}

func TestDoses(t *testing.T) {
	st := setup(t)
	ctx := context.Background()
	name := uniqueVaccine()

	// upsert creates on first add, case-insensitive after
	require.NoError(t, st.AddDoses(ctx, name, 5))
	require.NoError(t, st.AddDoses(ctx, strings.ToUpper(name), 3))

	canonical, n, err := st.VaccineDoses(ctx, strings.ToLower(name))
	require.NoError(t, err)
	require.Equal(t, name, canonical)
	require.Equal(t, 8, n)

	require.ErrorIs(t, st.TakeDoses(ctx, name, 9), scheduling.ErrOutOfStock)
	require.NoError(t, st.TakeDoses(ctx, name, 8))

	_, _, err = st.VaccineDoses(ctx, uniqueVaccine())
	require.ErrorIs(t, err, scheduling.ErrUnknownItem)
	require.ErrorIs(t, st.TakeDoses(ctx, uniqueVaccine(), 1), scheduling.ErrUnknownItem)
}

func TestAvailability(t *testing.T) {
	st := setup(t)
	ctx := context.Background()
	date := testDate(t)
	first := addUser(t, st, model.RoleCaregiver, "a-cg")
	second := addUser(t, st, model.RoleCaregiver, "b-cg")

	require.NoError(t, st.PublishAvailability(ctx, second, date))
	require.NoError(t, st.PublishAvailability(ctx, first, date))
	require.ErrorIs(t, st.PublishAvailability(ctx, first, date), scheduling.ErrDuplicateSlot)

	// claim takes the lowest username
	var claimed string
	err := st.InTx(ctx, func(l scheduling.Ledger) error {
		var err error
		claimed, err = l.ClaimAny(ctx, date)
		return err
	})
	require.NoError(t, err)
	require.Equal(t, first, claimed)

	free, err := st.CaregiversOn(ctx, date)
	require.NoError(t, err)
	require.Contains(t, free, second)
	require.NotContains(t, free, first)

	require.NoError(t, st.Release(ctx, first, date))
	require.ErrorIs(t, st.Release(ctx, first, date), scheduling.ErrConflict)
}

func TestAppointments(t *testing.T) {
	st := setup(t)
	ctx := context.Background()
	date := testDate(t)
	caregiver := addUser(t, st, model.RoleCaregiver, "cg")
	patient := addUser(t, st, model.RolePatient, "pt")
	vaccine := uniqueVaccine()

	id1, err := st.NextAppointmentID(ctx)
	require.NoError(t, err)
	id2, err := st.NextAppointmentID(ctx)
	require.NoError(t, err)
	require.Greater(t, id2, id1)

	a := &model.Appointment{ID: id1, Date: date, Caregiver: caregiver, Patient: patient, Vaccine: vaccine}
	require.NoError(t, st.CreateAppointment(ctx, a))
	require.ErrorIs(t, st.CreateAppointment(ctx, a), scheduling.ErrDuplicateID)

	// same caregiver, same day, fresh id: the unique constraint fires
	b := &model.Appointment{ID: id2, Date: date, Caregiver: caregiver, Patient: patient, Vaccine: vaccine}
	require.ErrorIs(t, st.CreateAppointment(ctx, b), scheduling.ErrConflict)

	asPatient := model.Session{Role: model.RolePatient, Username: patient}
	asCaregiver := model.Session{Role: model.RoleCaregiver, Username: caregiver}
	stranger := model.Session{Role: model.RolePatient, Username: "nobody"}

	got, err := st.FindOwned(ctx, id1, asPatient)
	require.NoError(t, err)
	require.Equal(t, vaccine, got.Vaccine)
	_, err = st.FindOwned(ctx, id1, asCaregiver)
	require.NoError(t, err)
	_, err = st.FindOwned(ctx, id1, stranger)
	require.ErrorIs(t, err, scheduling.ErrNotFound)

	listed, err := st.AppointmentsFor(ctx, asPatient)
	require.NoError(t, err)
	require.Len(t, listed, 1)

	require.NoError(t, st.DeleteAppointment(ctx, id1))
	require.ErrorIs(t, st.DeleteAppointment(ctx, id1), scheduling.ErrNotFound)
}

func TestTxRollback(t *testing.T) {
	st := setup(t)
	ctx := context.Background()
	date := testDate(t)
	caregiver := addUser(t, st, model.RoleCaregiver, "cg")
	vaccine := uniqueVaccine()

	require.NoError(t, st.AddDoses(ctx, vaccine, 5))
	require.NoError(t, st.PublishAvailability(ctx, caregiver, date))

	// claim a slot and take a dose, then fail: both must be undone
	boom := fmt.Errorf("boom")
	err := st.InTx(ctx, func(l scheduling.Ledger) error {
		if _, err := l.ClaimAny(ctx, date); err != nil {
			return err
		}
		if err := l.TakeDoses(ctx, vaccine, 1); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, n, err := st.VaccineDoses(ctx, vaccine)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	free, err := st.CaregiversOn(ctx, date)
	require.NoError(t, err)
	require.Contains(t, free, caregiver)
}

func TestUsers(t *testing.T) {
	st := setup(t)
	ctx := context.Background()

	username := addUser(t, st, model.RolePatient, "pt")
	u, err := st.UserByUsername(ctx, username)
	require.NoError(t, err)
	require.Equal(t, model.RolePatient, u.Role)

	err = st.CreateUser(ctx, &model.User{ID: uuid.New().String(), Username: username, Role: model.RolePatient, PasswordHash: "x"})
	require.ErrorIs(t, err, auth.ErrUsernameTaken)

	_, err = st.UserByUsername(ctx, "missing-"+uuid.New().String()[:8])
	require.ErrorIs(t, err, auth.ErrUnknownUser)
}
