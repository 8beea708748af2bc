package remote

import (
	"context"

	"github.com/hackgods/frontdesk-scheduling/internal/clinic"
)

// Disconnected is a remote store that is never available. It backs boards
// started in offline mode.
type Disconnected struct{}

func (Disconnected) Available() bool { return false }

func (Disconnected) Probe(context.Context) bool { return false }

func (Disconnected) ListAppointments(context.Context, clinic.Doctor, clinic.Period) ([]clinic.Appointment, bool) {
	return nil, false
}

func (Disconnected) ListAvailability(context.Context, clinic.Doctor, clinic.Period) (map[string]bool, bool) {
	return nil, false
}

func (Disconnected) CreateAppointment(context.Context, clinic.Doctor, clinic.Period, string, int) (clinic.Appointment, error) {
	return clinic.Appointment{}, ErrUnavailable
}

func (Disconnected) RenameAppointment(context.Context, clinic.Period, string, string) (clinic.Appointment, error) {
	return clinic.Appointment{}, ErrUnavailable
}

func (Disconnected) DeleteAppointment(context.Context, clinic.Period, string) error {
	return ErrUnavailable
}

func (Disconnected) SetAvailability(context.Context, clinic.Doctor, clinic.Period, string, bool) error {
	return ErrUnavailable
}
