package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"vaccine-reservation-api/internal/auth"
	"vaccine-reservation-api/internal/model"
	"vaccine-reservation-api/internal/scheduling"
)

// Memory is an in-memory Storage with the same semantics as the Postgres
// store: InTx applies fn to a copy of the state under one lock, so a failed
// transaction leaves nothing behind, and the id counter behaves like a
// sequence (never rolled back, never reused). It backs the test suites and
// database-less runs.
type Memory struct {
	mu     sync.RWMutex
	state  *memState
	nextID int64
	users  map[string]*model.User
}

type memState struct {
	vaccines     map[string]model.Vaccine // key: lower(name)
	slots        map[string]map[string]bool
	appointments map[int64]model.Appointment
}

func NewMemory() *Memory {
	return &Memory{
		state: &memState{
			vaccines:     make(map[string]model.Vaccine),
			slots:        make(map[string]map[string]bool),
			appointments: make(map[int64]model.Appointment),
		},
		users: make(map[string]*model.User),
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		vaccines:     make(map[string]model.Vaccine, len(s.vaccines)),
		slots:        make(map[string]map[string]bool, len(s.slots)),
		appointments: make(map[int64]model.Appointment, len(s.appointments)),
	}
	for k, v := range s.vaccines {
		c.vaccines[k] = v
	}
	for day, set := range s.slots {
		cs := make(map[string]bool, len(set))
		for cg := range set {
			cs[cg] = true
		}
		c.slots[day] = cs
	}
	for id, a := range s.appointments {
		c.appointments[id] = a
	}
	return c
}

func (m *Memory) InTx(ctx context.Context, fn func(scheduling.Ledger) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	work := m.state.clone()
	if err := fn(memLedger{st: work, ids: &m.nextID}); err != nil {
		return err
	}
	m.state = work
	return nil
}

// memLedger mutates a memState directly; locking is the caller's concern.
type memLedger struct {
	st  *memState
	ids *int64
}

func dayKey(date time.Time) string { return scheduling.FormatDate(date) }

func (l memLedger) VaccineDoses(_ context.Context, name string) (string, int, error) {
	v, ok := l.st.vaccines[strings.ToLower(name)]
	if !ok {
		return "", 0, fmt.Errorf("%w: %s", scheduling.ErrUnknownItem, name)
	}
	return v.Name, v.Doses, nil
}

func (l memLedger) AddDoses(_ context.Context, name string, n int) error {
	key := strings.ToLower(name)
	v, ok := l.st.vaccines[key]
	if !ok {
		v = model.Vaccine{Name: name}
	}
	v.Doses += n
	l.st.vaccines[key] = v
	return nil
}

func (l memLedger) TakeDoses(ctx context.Context, name string, n int) error {
	key := strings.ToLower(name)
	v, ok := l.st.vaccines[key]
	if !ok {
		return fmt.Errorf("%w: %s", scheduling.ErrUnknownItem, name)
	}
	if v.Doses < n {
		return fmt.Errorf("%w: %s", scheduling.ErrOutOfStock, v.Name)
	}
	v.Doses -= n
	l.st.vaccines[key] = v
	return nil
}

func (l memLedger) Vaccines(_ context.Context) ([]model.Vaccine, error) {
	keys := make([]string, 0, len(l.st.vaccines))
	for k := range l.st.vaccines {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]model.Vaccine, 0, len(keys))
	for _, k := range keys {
		out = append(out, l.st.vaccines[k])
	}
	return out, nil
}

func (l memLedger) PublishAvailability(_ context.Context, caregiver string, date time.Time) error {
	day := dayKey(date)
	if l.st.slots[day][caregiver] {
		return fmt.Errorf("%w: %s on %s", scheduling.ErrDuplicateSlot, caregiver, day)
	}
	if l.st.slots[day] == nil {
		l.st.slots[day] = make(map[string]bool)
	}
	l.st.slots[day][caregiver] = true
	return nil
}

func (l memLedger) ClaimAny(_ context.Context, date time.Time) (string, error) {
	day := dayKey(date)
	set := l.st.slots[day]
	if len(set) == 0 {
		return "", fmt.Errorf("%w: %s", scheduling.ErrNoProviderAvailable, day)
	}
	// lowest username wins, matching the SQL tie-break
	var caregiver string
	for cg := range set {
		if caregiver == "" || cg < caregiver {
			caregiver = cg
		}
	}
	delete(set, caregiver)
	return caregiver, nil
}

func (l memLedger) Release(_ context.Context, caregiver string, date time.Time) error {
	day := dayKey(date)
	if l.st.slots[day][caregiver] {
		return fmt.Errorf("%w: slot %s/%s already open", scheduling.ErrConflict, caregiver, day)
	}
	if l.st.slots[day] == nil {
		l.st.slots[day] = make(map[string]bool)
	}
	l.st.slots[day][caregiver] = true
	return nil
}

func (l memLedger) CaregiversOn(_ context.Context, date time.Time) ([]string, error) {
	var out []string
	for cg := range l.st.slots[dayKey(date)] {
		out = append(out, cg)
	}
	sort.Strings(out)
	return out, nil
}

func (l memLedger) NextAppointmentID(_ context.Context) (int64, error) {
	return atomic.AddInt64(l.ids, 1), nil
}

func (l memLedger) CreateAppointment(_ context.Context, a *model.Appointment) error {
	if _, ok := l.st.appointments[a.ID]; ok {
		return fmt.Errorf("%w: %d", scheduling.ErrDuplicateID, a.ID)
	}
	for _, existing := range l.st.appointments {
		if existing.Caregiver == a.Caregiver && existing.Date.Equal(a.Date) {
			return fmt.Errorf("%w: %s already booked on %s", scheduling.ErrConflict,
				a.Caregiver, dayKey(a.Date))
		}
	}
	stored := *a
	stored.CreatedAt = time.Now()
	l.st.appointments[a.ID] = stored
	return nil
}

func (l memLedger) FindOwned(_ context.Context, id int64, s model.Session) (*model.Appointment, error) {
	a, ok := l.st.appointments[id]
	if ok {
		owner := a.Patient
		if s.Role == model.RoleCaregiver {
			owner = a.Caregiver
		}
		if owner == s.Username {
			found := a
			return &found, nil
		}
	}
	return nil, fmt.Errorf("%w: id %d", scheduling.ErrNotFound, id)
}

func (l memLedger) DeleteAppointment(_ context.Context, id int64) error {
	if _, ok := l.st.appointments[id]; !ok {
		return fmt.Errorf("%w: id %d", scheduling.ErrNotFound, id)
	}
	delete(l.st.appointments, id)
	return nil
}

func (l memLedger) AppointmentsFor(_ context.Context, s model.Session) ([]model.Appointment, error) {
	var out []model.Appointment
	for _, a := range l.st.appointments {
		if (s.Role == model.RoleCaregiver && a.Caregiver == s.Username) ||
			(s.Role == model.RolePatient && a.Patient == s.Username) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ---- auto-commit passthroughs (single operations lock on their own) ----

func (m *Memory) read() memLedger {
	return memLedger{st: m.state, ids: &m.nextID}
}

func (m *Memory) VaccineDoses(ctx context.Context, name string) (string, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().VaccineDoses(ctx, name)
}

func (m *Memory) AddDoses(ctx context.Context, name string, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().AddDoses(ctx, name, n)
}

func (m *Memory) TakeDoses(ctx context.Context, name string, n int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().TakeDoses(ctx, name, n)
}

func (m *Memory) Vaccines(ctx context.Context) ([]model.Vaccine, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().Vaccines(ctx)
}

func (m *Memory) PublishAvailability(ctx context.Context, caregiver string, date time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().PublishAvailability(ctx, caregiver, date)
}

func (m *Memory) ClaimAny(ctx context.Context, date time.Time) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().ClaimAny(ctx, date)
}

func (m *Memory) Release(ctx context.Context, caregiver string, date time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().Release(ctx, caregiver, date)
}

func (m *Memory) CaregiversOn(ctx context.Context, date time.Time) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().CaregiversOn(ctx, date)
}

func (m *Memory) NextAppointmentID(ctx context.Context) (int64, error) {
	return atomic.AddInt64(&m.nextID, 1), nil
}

func (m *Memory) CreateAppointment(ctx context.Context, a *model.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().CreateAppointment(ctx, a)
}

func (m *Memory) FindOwned(ctx context.Context, id int64, s model.Session) (*model.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().FindOwned(ctx, id, s)
}

func (m *Memory) DeleteAppointment(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.read().DeleteAppointment(ctx, id)
}

func (m *Memory) AppointmentsFor(ctx context.Context, s model.Session) ([]model.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.read().AppointmentsFor(ctx, s)
}

// ---- user accounts ----

func (m *Memory) CreateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.Username]; ok {
		return auth.ErrUsernameTaken
	}
	stored := *u
	stored.CreatedAt = time.Now()
	m.users[u.Username] = &stored
	return nil
}

func (m *Memory) UserByUsername(_ context.Context, username string) (*model.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[username]
	if !ok {
		return nil, auth.ErrUnknownUser
	}
	found := *u
	return &found, nil
}

var _ scheduling.Storage = (*Memory)(nil)
