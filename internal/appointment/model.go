package appointment

import (
	"time"

	"github.com/google/uuid"

	"github.com/hackgods/frontdesk-scheduling/internal/clinic"
)

// Appointment is one numbered row of a doctor's queue for a period.
type Appointment struct {
	ID            uuid.UUID
	Doctor        clinic.Doctor
	Period        clinic.Period
	PatientName   string
	AppointmentNo int
	Frozen        bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Board converts a stored row into the shape the front desk works with.
func (a Appointment) Board() clinic.Appointment {
	return clinic.Appointment{
		ID:            a.ID.String(),
		PatientName:   a.PatientName,
		AppointmentNo: a.AppointmentNo,
		Frozen:        a.Frozen,
	}
}

// PatientStatus is one checklist row keyed by doctor, period and patient name.
type PatientStatus struct {
	Doctor      clinic.Doctor
	Period      clinic.Period
	PatientName string
	IsAvailable bool
	UpdatedAt   time.Time
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}

type CreateInput struct {
	Doctor        clinic.Doctor
	Period        clinic.Period
	PatientName   string
	AppointmentNo int
	Frozen        bool
}

type StatusInput struct {
	Doctor      clinic.Doctor
	Period      clinic.Period
	PatientName string
	IsAvailable bool
}
