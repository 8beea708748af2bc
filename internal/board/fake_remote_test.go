package board

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/hackgods/frontdesk-scheduling/internal/clinic"
	"github.com/hackgods/frontdesk-scheduling/internal/remote"
)

type queueKey struct {
	doctor clinic.Doctor
	period clinic.Period
}

// fakeRemote is an in-memory remote store. failWrites makes every write
// fail the way the real adapter does, flag included.
type fakeRemote struct {
	mu         sync.Mutex
	reachable  bool
	available  bool
	failWrites bool
	echoNo     int

	appts  map[queueKey][]clinic.Appointment
	status map[queueKey]map[string]bool
	calls  []string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		reachable: true,
		appts:     make(map[queueKey][]clinic.Appointment),
		status:    make(map[queueKey]map[string]bool),
	}
}

func (f *fakeRemote) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeRemote) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeRemote) Available() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.available
}

func (f *fakeRemote) Probe(context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("probe")
	f.available = f.reachable
	return f.available
}

func (f *fakeRemote) ListAppointments(_ context.Context, d clinic.Doctor, p clinic.Period) ([]clinic.Appointment, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("list " + string(d) + " " + string(p))
	if !f.available {
		return nil, false
	}
	return append([]clinic.Appointment(nil), f.appts[queueKey{d, p}]...), true
}

func (f *fakeRemote) ListAvailability(_ context.Context, d clinic.Doctor, p clinic.Period) (map[string]bool, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("status " + string(d) + " " + string(p))
	if !f.available {
		return nil, false
	}
	out := make(map[string]bool)
	for k, v := range f.status[queueKey{d, p}] {
		out[k] = v
	}
	return out, true
}

func (f *fakeRemote) write(op string) error {
	f.record(op)
	if !f.available {
		return fmt.Errorf("%s: %w", op, remote.ErrUnavailable)
	}
	if f.failWrites {
		f.available = false
		return fmt.Errorf("%s: %w", op, remote.ErrTimeout)
	}
	return nil
}

func (f *fakeRemote) CreateAppointment(_ context.Context, d clinic.Doctor, p clinic.Period, name string, no int) (clinic.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.write("create"); err != nil {
		return clinic.Appointment{}, err
	}
	if f.echoNo != 0 {
		no = f.echoNo
	}
	a := clinic.Appointment{ID: uuid.NewString(), PatientName: name, AppointmentNo: no}
	k := queueKey{d, p}
	f.appts[k] = append(f.appts[k], a)
	return a, nil
}

func (f *fakeRemote) RenameAppointment(_ context.Context, p clinic.Period, id, name string) (clinic.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.write("rename"); err != nil {
		return clinic.Appointment{}, err
	}
	for k, list := range f.appts {
		if k.period != p {
			continue
		}
		for i := range list {
			if list[i].ID == id {
				list[i].PatientName = name
				return list[i], nil
			}
		}
	}
	return clinic.Appointment{}, &remote.ProtocolError{Op: "rename", Status: 404}
}

func (f *fakeRemote) DeleteAppointment(_ context.Context, p clinic.Period, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.write("delete"); err != nil {
		return err
	}
	for k, list := range f.appts {
		if k.period != p {
			continue
		}
		for i := range list {
			if list[i].ID == id {
				f.appts[k] = append(list[:i], list[i+1:]...)
				return nil
			}
		}
	}
	return nil
}

func (f *fakeRemote) SetAvailability(_ context.Context, d clinic.Doctor, p clinic.Period, name string, available bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.write("status"); err != nil {
		return err
	}
	k := queueKey{d, p}
	if f.status[k] == nil {
		f.status[k] = make(map[string]bool)
	}
	f.status[k][name] = available
	return nil
}
