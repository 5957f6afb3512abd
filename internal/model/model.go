package model

import "time"

type Role string

const (
	RolePatient   Role = "patient"
	RoleCaregiver Role = "caregiver"
)

// Session identifies an authenticated caller. It is passed explicitly into
// every engine call; there is no process-wide current user.
type Session struct {
	Role     Role
	Username string
}

type User struct {
	ID           string
	Username     string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
}

// Vaccine is a named dose pool shared by all caregivers.
type Vaccine struct {
	Name  string
	Doses int
}

// Slot is one unit of a caregiver's availability on a calendar day.
type Slot struct {
	Caregiver string
	Date      time.Time
}

type Appointment struct {
	ID        int64
	Date      time.Time
	Caregiver string
	Patient   string
	Vaccine   string
	CreatedAt time.Time
}

// Counterparty returns the other party's username from the given role's
// point of view.
func (a *Appointment) Counterparty(role Role) string {
	if role == RoleCaregiver {
		return a.Patient
	}
	return a.Caregiver
}
