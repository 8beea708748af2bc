package appointment

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/frontdesk-scheduling/internal/clinic"
	"github.com/hackgods/frontdesk-scheduling/internal/logger"
	redisclient "github.com/hackgods/frontdesk-scheduling/internal/redis"
)

type statusKey struct {
	doctor clinic.Doctor
	period clinic.Period
	name   string
}

type memRepo struct {
	mu     sync.Mutex
	appts  map[uuid.UUID]Appointment
	status map[statusKey]PatientStatus
	events []EventLog
}

func newMemRepo() *memRepo {
	return &memRepo{
		appts:  make(map[uuid.UUID]Appointment),
		status: make(map[statusKey]PatientStatus),
	}
}

func (m *memRepo) ListAppointments(_ context.Context, d clinic.Doctor, p clinic.Period) ([]Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Appointment{}
	for _, a := range m.appts {
		if a.Doctor == d && a.Period == p {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppointmentNo < out[j].AppointmentNo })
	return out, nil
}

func (m *memRepo) GetAppointmentByID(_ context.Context, p clinic.Period, id uuid.UUID) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok || a.Period != p {
		return nil, ErrAppointmentNotFound
	}
	return &a, nil
}

func (m *memRepo) NumberInUse(_ context.Context, d clinic.Doctor, p clinic.Period, no int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appts {
		if a.Doctor == d && a.Period == p && a.AppointmentNo == no {
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) InsertAppointment(_ context.Context, a Appointment) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.New()
	m.appts[a.ID] = a
	return &a, nil
}

func (m *memRepo) RenameAppointment(_ context.Context, p clinic.Period, id uuid.UUID, name string) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok || a.Period != p || a.Frozen {
		return nil, ErrAppointmentNotFound
	}
	a.PatientName = name
	m.appts[id] = a
	return &a, nil
}

func (m *memRepo) DeleteAppointment(_ context.Context, p clinic.Period, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok || a.Period != p || a.Frozen {
		return ErrAppointmentNotFound
	}
	delete(m.appts, id)
	return nil
}

func (m *memRepo) ListStatus(_ context.Context, d clinic.Doctor, p clinic.Period) ([]PatientStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []PatientStatus{}
	for k, s := range m.status {
		if k.doctor == d && k.period == p {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PatientName < out[j].PatientName })
	return out, nil
}

func (m *memRepo) UpsertStatus(_ context.Context, s PatientStatus) (*PatientStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.status[statusKey{s.Doctor, s.Period, s.PatientName}] = s
	return &s, nil
}

func (m *memRepo) MoveStatus(ctx context.Context, d clinic.Doctor, p clinic.Period, oldName, newName string) error {
	m.mu.Lock()
	if s, ok := m.status[statusKey{d, p, oldName}]; ok {
		s.PatientName = newName
		m.status[statusKey{d, p, newName}] = s
	}
	m.mu.Unlock()
	return m.PruneStatus(ctx, d, p, oldName)
}

func (m *memRepo) PruneStatus(_ context.Context, d clinic.Doctor, p clinic.Period, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appts {
		if a.Doctor == d && a.Period == p && a.PatientName == name && !a.Frozen {
			return nil
		}
	}
	delete(m.status, statusKey{d, p, name})
	return nil
}

func (m *memRepo) InsertEvent(_ context.Context, ev EventLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *memRepo) eventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.events))
	for _, ev := range m.events {
		out = append(out, ev.EventType)
	}
	return out
}

type mockLocker struct {
	mock.Mock
}

func (m *mockLocker) WithLock(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	args := m.Called(name)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx)
}

func newTestService(t *testing.T) (*Service, *memRepo, *mockLocker) {
	t.Helper()
	repo := newMemRepo()
	locker := &mockLocker{}
	return NewService(repo, locker, logger.Discard()), repo, locker
}

func TestCreateAppointment(t *testing.T) {
	svc, repo, locker := newTestService(t)
	locker.On("WithLock", "queue:umar:today").Return(nil).Once()

	appt, err := svc.CreateAppointment(context.Background(), CreateInput{
		Doctor: clinic.DoctorUmar, Period: clinic.PeriodToday, PatientName: "  Alice ", AppointmentNo: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, "Alice", appt.PatientName)
	assert.Equal(t, 4, appt.AppointmentNo)
	assert.NotEqual(t, uuid.Nil, appt.ID)
	assert.Equal(t, []string{EventAppointmentCreated}, repo.eventTypes())
	locker.AssertExpectations(t)
}

func TestCreateAppointment_Validation(t *testing.T) {
	svc, _, locker := newTestService(t)

	cases := map[string]CreateInput{
		"blank name":          {Doctor: clinic.DoctorUmar, Period: clinic.PeriodToday, PatientName: " ", AppointmentNo: 4},
		"zero number":         {Doctor: clinic.DoctorUmar, Period: clinic.PeriodToday, PatientName: "A", AppointmentNo: 0},
		"reserved number":     {Doctor: clinic.DoctorSamreen, Period: clinic.PeriodToday, PatientName: "A", AppointmentNo: 8},
		"frozen not reserved": {Doctor: clinic.DoctorUmar, Period: clinic.PeriodToday, AppointmentNo: 4, Frozen: true},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateAppointment(context.Background(), in)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
	locker.AssertNotCalled(t, "WithLock", mock.Anything)
}

func TestCreateAppointment_FrozenPlaceholder(t *testing.T) {
	svc, _, locker := newTestService(t)
	locker.On("WithLock", "queue:umar:yesterday").Return(nil)

	appt, err := svc.CreateAppointment(context.Background(), CreateInput{
		Doctor: clinic.DoctorUmar, Period: clinic.PeriodYesterday, AppointmentNo: 10, Frozen: true,
	})
	require.NoError(t, err)
	assert.True(t, appt.Frozen)
	assert.Equal(t, clinic.FrozenName(10), appt.PatientName)
}

func TestCreateAppointment_NumberInUse(t *testing.T) {
	svc, _, locker := newTestService(t)
	locker.On("WithLock", "queue:umar:today").Return(nil)
	ctx := context.Background()
	in := CreateInput{Doctor: clinic.DoctorUmar, Period: clinic.PeriodToday, PatientName: "Alice", AppointmentNo: 4}

	_, err := svc.CreateAppointment(ctx, in)
	require.NoError(t, err)

	in.PatientName = "Bob"
	_, err = svc.CreateAppointment(ctx, in)
	assert.ErrorIs(t, err, ErrNumberInUse)

	// the same number is free in the other period
	locker.On("WithLock", "queue:umar:yesterday").Return(nil)
	in.Period = clinic.PeriodYesterday
	_, err = svc.CreateAppointment(ctx, in)
	assert.NoError(t, err)
}

func TestCreateAppointment_LockBusy(t *testing.T) {
	svc, repo, locker := newTestService(t)
	locker.On("WithLock", "queue:samreen:today").Return(redisclient.ErrLockNotAcquired)

	_, err := svc.CreateAppointment(context.Background(), CreateInput{
		Doctor: clinic.DoctorSamreen, Period: clinic.PeriodToday, PatientName: "Alice", AppointmentNo: 6,
	})
	assert.ErrorIs(t, err, ErrQueueBusy)
	assert.Empty(t, repo.appts)
}

func TestRenameAppointment_MovesStatus(t *testing.T) {
	svc, repo, locker := newTestService(t)
	locker.On("WithLock", mock.Anything).Return(nil)
	ctx := context.Background()

	appt, err := svc.CreateAppointment(ctx, CreateInput{
		Doctor: clinic.DoctorUmar, Period: clinic.PeriodToday, PatientName: "Alice", AppointmentNo: 4,
	})
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, StatusInput{Doctor: clinic.DoctorUmar, Period: clinic.PeriodToday, PatientName: "Alice", IsAvailable: true})
	require.NoError(t, err)

	updated, err := svc.RenameAppointment(ctx, clinic.PeriodToday, appt.ID, "Bob")
	require.NoError(t, err)
	assert.Equal(t, "Bob", updated.PatientName)

	rows, err := svc.ListStatus(ctx, clinic.DoctorUmar, clinic.PeriodToday)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Bob", rows[0].PatientName)
	assert.True(t, rows[0].IsAvailable)
	assert.Equal(t, []string{EventAppointmentCreated, EventStatusUpdated, EventAppointmentRenamed}, repo.eventTypes())
}

func TestRenameAndDelete_FrozenRejected(t *testing.T) {
	svc, _, locker := newTestService(t)
	locker.On("WithLock", mock.Anything).Return(nil)
	ctx := context.Background()

	frozen, err := svc.CreateAppointment(ctx, CreateInput{
		Doctor: clinic.DoctorUmar, Period: clinic.PeriodToday, AppointmentNo: 1, Frozen: true,
	})
	require.NoError(t, err)

	_, err = svc.RenameAppointment(ctx, clinic.PeriodToday, frozen.ID, "Mallory")
	assert.ErrorIs(t, err, ErrFrozenAppointment)
	assert.ErrorIs(t, svc.DeleteAppointment(ctx, clinic.PeriodToday, frozen.ID), ErrFrozenAppointment)
}

func TestDeleteAppointment(t *testing.T) {
	svc, repo, locker := newTestService(t)
	locker.On("WithLock", mock.Anything).Return(nil)
	ctx := context.Background()

	appt, err := svc.CreateAppointment(ctx, CreateInput{
		Doctor: clinic.DoctorUmar, Period: clinic.PeriodToday, PatientName: "Alice", AppointmentNo: 4,
	})
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, StatusInput{Doctor: clinic.DoctorUmar, Period: clinic.PeriodToday, PatientName: "Alice"})
	require.NoError(t, err)

	// wrong period
	err = svc.DeleteAppointment(ctx, clinic.PeriodYesterday, appt.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)

	require.NoError(t, svc.DeleteAppointment(ctx, clinic.PeriodToday, appt.ID))
	assert.Empty(t, repo.appts)
	assert.Empty(t, repo.status)

	err = svc.DeleteAppointment(ctx, clinic.PeriodToday, appt.ID)
	assert.ErrorIs(t, err, ErrAppointmentNotFound)
}

func TestSetStatus_RequiresName(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.SetStatus(context.Background(), StatusInput{Doctor: clinic.DoctorUmar, Period: clinic.PeriodToday})
	assert.ErrorIs(t, err, ErrInvalidInput)
}
