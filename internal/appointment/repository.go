package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/hackgods/frontdesk-scheduling/internal/clinic"
)

var (
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrStatusNotFound      = errors.New("patient status not found")
	ErrNumberInUse         = errors.New("appointment number already in use")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	ListAppointments(ctx context.Context, doctor clinic.Doctor, period clinic.Period) ([]Appointment, error)
	GetAppointmentByID(ctx context.Context, period clinic.Period, id uuid.UUID) (*Appointment, error)

	// For conflict checks
	NumberInUse(ctx context.Context, doctor clinic.Doctor, period clinic.Period, no int) (bool, error)

	InsertAppointment(ctx context.Context, a Appointment) (*Appointment, error)
	RenameAppointment(ctx context.Context, period clinic.Period, id uuid.UUID, name string) (*Appointment, error)
	DeleteAppointment(ctx context.Context, period clinic.Period, id uuid.UUID) error

	// Patient checklist
	ListStatus(ctx context.Context, doctor clinic.Doctor, period clinic.Period) ([]PatientStatus, error)
	UpsertStatus(ctx context.Context, s PatientStatus) (*PatientStatus, error)
	// MoveStatus copies the row of oldName onto newName, then prunes oldName.
	MoveStatus(ctx context.Context, doctor clinic.Doctor, period clinic.Period, oldName, newName string) error
	// PruneStatus drops the row of name unless a visible appointment still carries it.
	PruneStatus(ctx context.Context, doctor clinic.Doctor, period clinic.Period, name string) error

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
