package board

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackgods/frontdesk-scheduling/internal/clinic"
	"github.com/hackgods/frontdesk-scheduling/internal/logger"
	"github.com/hackgods/frontdesk-scheduling/internal/queue"
)

func loadedBoard(t *testing.T, f *fakeRemote) *Board {
	t.Helper()
	b := New(f, logger.Discard())
	b.Load(context.Background())
	return b
}

func TestAdd_OfflineIsLocal(t *testing.T) {
	f := newFakeRemote()
	f.reachable = false
	b := loadedBoard(t, f)

	res, err := b.Today().Add(context.Background(), clinic.DoctorUmar, "Alice")
	require.NoError(t, err)

	assert.Equal(t, OutcomeLocal, res.Outcome)
	assert.Equal(t, 4, res.Appointment.AppointmentNo)
	assert.True(t, strings.HasPrefix(res.Appointment.ID, "local-"))
	assert.Len(t, b.Today().Visible(clinic.DoctorUmar), 1)
	assert.Equal(t, []string{"probe"}, f.Calls())
}

func TestAdd_Synced(t *testing.T) {
	f := newFakeRemote()
	b := loadedBoard(t, f)

	res, err := b.Today().Add(context.Background(), clinic.DoctorSamreen, "Alice")
	require.NoError(t, err)

	assert.Equal(t, OutcomeSynced, res.Outcome)
	assert.Equal(t, 6, res.Appointment.AppointmentNo)
	assert.False(t, clinic.IsLocalID(res.Appointment.ID))
	assert.Equal(t, []clinic.Appointment{res.Appointment}, b.Today().Visible(clinic.DoctorSamreen))
	assert.Len(t, f.appts[queueKey{clinic.DoctorSamreen, clinic.PeriodToday}], 1)

	avail := b.Today().Availability(clinic.DoctorSamreen)
	assert.Equal(t, map[string]bool{"Alice": false}, avail)
}

func TestAdd_FallbackOnRemoteFailure(t *testing.T) {
	f := newFakeRemote()
	b := loadedBoard(t, f)
	f.failWrites = true

	res, err := b.Today().Add(context.Background(), clinic.DoctorUmar, "Alice")
	require.NoError(t, err)

	assert.Equal(t, OutcomeFallback, res.Outcome)
	assert.True(t, res.Outcome.LocalOnly())
	assert.Equal(t, 4, res.Appointment.AppointmentNo)
	assert.True(t, strings.HasPrefix(res.Appointment.ID, "local-"))
	assert.Len(t, b.Today().Visible(clinic.DoctorUmar), 1)
	assert.False(t, b.Online())

	// the flag stays down, so the next add never reaches the remote store
	before := len(f.Calls())
	res, err = b.Today().Add(context.Background(), clinic.DoctorUmar, "Bob")
	require.NoError(t, err)
	assert.Equal(t, OutcomeLocal, res.Outcome)
	assert.Equal(t, 5, res.Appointment.AppointmentNo)
	assert.Len(t, f.Calls(), before)
}

func TestAdd_KeepsRequestedNumber(t *testing.T) {
	f := newFakeRemote()
	f.echoNo = 99
	b := loadedBoard(t, f)

	res, err := b.Today().Add(context.Background(), clinic.DoctorUmar, "Alice")
	require.NoError(t, err)
	assert.Equal(t, 4, res.Appointment.AppointmentNo)
}

func TestAdd_BlankNameNeverReachesRemote(t *testing.T) {
	f := newFakeRemote()
	b := loadedBoard(t, f)
	before := len(f.Calls())

	_, err := b.Today().Add(context.Background(), clinic.DoctorUmar, "   ")
	require.Error(t, err)
	assert.True(t, queue.IsValidation(err))
	assert.Len(t, f.Calls(), before)
	assert.Empty(t, b.Today().Visible(clinic.DoctorUmar))
}

func TestRename_FrozenIsIgnored(t *testing.T) {
	f := newFakeRemote()
	b := loadedBoard(t, f)
	before := len(f.Calls())

	res, err := b.Today().Rename(context.Background(), clinic.DoctorUmar, clinic.FrozenID(10), "Mallory")
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.Len(t, f.Calls(), before)

	idx := b.Today().store.IndexOf(clinic.DoctorUmar, clinic.FrozenID(10))
	a, err := b.Today().store.At(clinic.DoctorUmar, idx)
	require.NoError(t, err)
	assert.Equal(t, clinic.FrozenPlaceholder(10), a)
}

func TestRename_SyncedMovesAvailability(t *testing.T) {
	f := newFakeRemote()
	b := loadedBoard(t, f)
	ctx := context.Background()
	c := b.Today()

	added, err := c.Add(ctx, clinic.DoctorUmar, "Alice")
	require.NoError(t, err)
	_, err = c.ToggleAvailability(ctx, clinic.DoctorUmar, "Alice")
	require.NoError(t, err)

	res, err := c.Rename(ctx, clinic.DoctorUmar, added.Appointment.ID, "Bob")
	require.NoError(t, err)
	assert.Equal(t, OutcomeSynced, res.Outcome)
	assert.Equal(t, "Bob", res.Appointment.PatientName)
	assert.Equal(t, 4, res.Appointment.AppointmentNo)
	assert.True(t, res.Available)
	assert.Equal(t, map[string]bool{"Bob": true}, c.Availability(clinic.DoctorUmar))
	assert.Equal(t, "Bob", f.appts[queueKey{clinic.DoctorUmar, clinic.PeriodToday}][0].PatientName)
}

func TestRename_LocalRecordSkipsRemote(t *testing.T) {
	f := newFakeRemote()
	b := loadedBoard(t, f)
	ctx := context.Background()
	c := b.Today()

	f.failWrites = true
	added, err := c.Add(ctx, clinic.DoctorUmar, "Alice")
	require.NoError(t, err)
	require.Equal(t, OutcomeFallback, added.Outcome)

	// remote comes back but the record was never stored there
	f.failWrites = false
	require.True(t, f.Probe(ctx))
	before := len(f.Calls())

	res, err := c.Rename(ctx, clinic.DoctorUmar, added.Appointment.ID, "Bob")
	require.NoError(t, err)
	assert.Equal(t, OutcomeLocal, res.Outcome)
	assert.Len(t, f.Calls(), before)
}

func TestRename_FallbackAppliesOnce(t *testing.T) {
	f := newFakeRemote()
	b := loadedBoard(t, f)
	ctx := context.Background()
	c := b.Today()

	added, err := c.Add(ctx, clinic.DoctorUmar, "Alice")
	require.NoError(t, err)
	f.failWrites = true

	res, err := c.Rename(ctx, clinic.DoctorUmar, added.Appointment.ID, "Bob")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFallback, res.Outcome)

	visible := c.Visible(clinic.DoctorUmar)
	require.Len(t, visible, 1)
	assert.Equal(t, "Bob", visible[0].PatientName)
	assert.Equal(t, added.Appointment.ID, visible[0].ID)
}

func TestRename_UnknownID(t *testing.T) {
	b := loadedBoard(t, newFakeRemote())

	_, err := b.Today().Rename(context.Background(), clinic.DoctorUmar, "missing", "Bob")
	assert.ErrorIs(t, err, queue.ErrNotFound)
}

func TestDelete_FreesNumber(t *testing.T) {
	f := newFakeRemote()
	b := loadedBoard(t, f)
	ctx := context.Background()
	c := b.Today()

	first, err := c.Add(ctx, clinic.DoctorUmar, "Alice")
	require.NoError(t, err)
	_, err = c.Add(ctx, clinic.DoctorUmar, "Bob")
	require.NoError(t, err)

	res, err := c.Delete(ctx, clinic.DoctorUmar, first.Appointment.ID)
	require.NoError(t, err)
	assert.Equal(t, OutcomeSynced, res.Outcome)
	assert.Equal(t, "Alice", res.Appointment.PatientName)
	assert.NotContains(t, c.Availability(clinic.DoctorUmar), "Alice")
	assert.Len(t, f.appts[queueKey{clinic.DoctorUmar, clinic.PeriodToday}], 1)

	again, err := c.Add(ctx, clinic.DoctorUmar, "Carol")
	require.NoError(t, err)
	assert.Equal(t, 4, again.Appointment.AppointmentNo)
}

func TestDelete_FrozenIsIgnored(t *testing.T) {
	f := newFakeRemote()
	b := loadedBoard(t, f)
	before := len(f.Calls())

	res, err := b.Today().Delete(context.Background(), clinic.DoctorSamreen, clinic.FrozenID(1))
	require.NoError(t, err)
	assert.Equal(t, OutcomeIgnored, res.Outcome)
	assert.Len(t, f.Calls(), before)
	assert.Len(t, b.Today().Records(clinic.DoctorSamreen), len(clinic.Reserved(clinic.DoctorSamreen)))
}

func TestToggleAvailability(t *testing.T) {
	f := newFakeRemote()
	b := loadedBoard(t, f)
	ctx := context.Background()
	c := b.Today()

	_, err := c.ToggleAvailability(ctx, clinic.DoctorUmar, "Nobody")
	assert.ErrorIs(t, err, queue.ErrNotFound)

	_, err = c.Add(ctx, clinic.DoctorUmar, "Alice")
	require.NoError(t, err)

	res, err := c.ToggleAvailability(ctx, clinic.DoctorUmar, "Alice")
	require.NoError(t, err)
	assert.True(t, res.Available)
	assert.Equal(t, OutcomeSynced, res.Outcome)
	assert.True(t, f.status[queueKey{clinic.DoctorUmar, clinic.PeriodToday}]["Alice"])

	f.failWrites = true
	res, err = c.ToggleAvailability(ctx, clinic.DoctorUmar, "Alice")
	require.NoError(t, err)
	assert.False(t, res.Available)
	assert.Equal(t, OutcomeFallback, res.Outcome)
	assert.False(t, c.Availability(clinic.DoctorUmar)["Alice"])
}

func TestClear(t *testing.T) {
	f := newFakeRemote()
	b := loadedBoard(t, f)
	ctx := context.Background()
	c := b.Yesterday()

	for _, name := range []string{"Alice", "Bob"} {
		_, err := c.Add(ctx, clinic.DoctorUmar, name)
		require.NoError(t, err)
	}
	_, err := c.Add(ctx, clinic.DoctorSamreen, "Carol")
	require.NoError(t, err)

	removed, outcome := c.Clear(ctx)
	assert.Equal(t, 3, removed)
	assert.Equal(t, OutcomeSynced, outcome)
	assert.Zero(t, c.Count(clinic.DoctorUmar))
	assert.Zero(t, c.Count(clinic.DoctorSamreen))
	assert.Empty(t, f.appts[queueKey{clinic.DoctorUmar, clinic.PeriodYesterday}])
	assert.Len(t, c.Records(clinic.DoctorUmar), len(clinic.Reserved(clinic.DoctorUmar)))
}

func TestSearchPatients(t *testing.T) {
	f := newFakeRemote()
	f.reachable = false
	b := loadedBoard(t, f)
	ctx := context.Background()
	c := b.Today()

	for _, name := range []string{"Alice", "Bob", "Alina"} {
		_, err := c.Add(ctx, clinic.DoctorUmar, name)
		require.NoError(t, err)
	}
	_, err := c.ToggleAvailability(ctx, clinic.DoctorUmar, "Alina")
	require.NoError(t, err)

	rows := c.SearchPatients(clinic.DoctorUmar, "ali")
	require.Len(t, rows, 2)
	assert.Equal(t, "Alice", rows[0].PatientName)
	assert.False(t, rows[0].Available)
	assert.Equal(t, "Alina", rows[1].PatientName)
	assert.True(t, rows[1].Available)

	assert.Len(t, c.PatientList(clinic.DoctorUmar), 3)
	assert.Len(t, c.Search(clinic.DoctorUmar, "5"), 1)
}

func TestEditCursor(t *testing.T) {
	f := newFakeRemote()
	f.reachable = false
	b := loadedBoard(t, f)
	ctx := context.Background()
	c := b.Today()

	require.NoError(t, c.BeginEdit(clinic.DoctorUmar, clinic.FrozenID(1)))
	_, editing := c.Editing(clinic.DoctorUmar)
	assert.False(t, editing)

	added, err := c.Add(ctx, clinic.DoctorUmar, "Alice")
	require.NoError(t, err)

	require.NoError(t, c.BeginEdit(clinic.DoctorUmar, added.Appointment.ID))
	cur, editing := c.Editing(clinic.DoctorUmar)
	require.True(t, editing)
	assert.Equal(t, added.Appointment, cur)

	c.CancelEdit(clinic.DoctorUmar)
	_, editing = c.Editing(clinic.DoctorUmar)
	assert.False(t, editing)

	require.NoError(t, c.BeginEdit(clinic.DoctorUmar, added.Appointment.ID))
	_, err = c.Rename(ctx, clinic.DoctorUmar, added.Appointment.ID, "Bob")
	require.NoError(t, err)
	_, editing = c.Editing(clinic.DoctorUmar)
	assert.False(t, editing)

	assert.ErrorIs(t, c.BeginEdit(clinic.DoctorUmar, "missing"), queue.ErrNotFound)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "synced", OutcomeSynced.String())
	assert.Equal(t, "fallback", OutcomeFallback.String())
	assert.Equal(t, "outcome(9)", Outcome(9).String())
}
