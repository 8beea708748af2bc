package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hackgods/frontdesk-scheduling/internal/clinic"
	redisclient "github.com/hackgods/frontdesk-scheduling/internal/redis"
)

const (
	EventAppointmentCreated = "APPOINTMENT_CREATED"
	EventAppointmentRenamed = "APPOINTMENT_RENAMED"
	EventAppointmentDeleted = "APPOINTMENT_DELETED"
	EventStatusUpdated      = "PATIENT_STATUS_UPDATED"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrFrozenAppointment = errors.New("frozen appointments cannot be changed")
	ErrQueueBusy         = errors.New("queue is currently being updated, please retry")
)

type Service struct {
	repo   Repository
	locker redisclient.Locker
	log    logrus.FieldLogger
}

func NewService(repo Repository, locker redisclient.Locker, log logrus.FieldLogger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		log:    log,
	}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

func queueLockName(d clinic.Doctor, p clinic.Period) string {
	return fmt.Sprintf("queue:%s:%s", d, p)
}

func (s *Service) ListAppointments(ctx context.Context, doctor clinic.Doctor, period clinic.Period) ([]Appointment, error) {
	appts, err := s.repo.ListAppointments(ctx, doctor, period)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

// CreateAppointment stores the number the front desk allocated. The number is
// re-checked under a per-queue lock so two desks cannot both claim it.
func (s *Service) CreateAppointment(ctx context.Context, in CreateInput) (*Appointment, error) {
	in.PatientName = strings.TrimSpace(in.PatientName)
	switch {
	case in.AppointmentNo <= 0:
		return nil, invalid("appointment number must be positive")
	case in.Frozen && !clinic.IsReserved(in.Doctor, in.AppointmentNo):
		return nil, invalid("number %d is not reserved for %s", in.AppointmentNo, in.Doctor)
	case !in.Frozen && in.PatientName == "":
		return nil, invalid("patient name is required")
	case !in.Frozen && clinic.IsReserved(in.Doctor, in.AppointmentNo):
		return nil, invalid("number %d is reserved for %s", in.AppointmentNo, in.Doctor)
	}
	if in.Frozen && in.PatientName == "" {
		in.PatientName = clinic.FrozenName(in.AppointmentNo)
	}

	var created *Appointment

	err := s.locker.WithLock(ctx, queueLockName(in.Doctor, in.Period), func(lockCtx context.Context) error {
		// Inside the critical section re-check the number
		taken, err := s.repo.NumberInUse(lockCtx, in.Doctor, in.Period, in.AppointmentNo)
		if err != nil {
			return err
		}
		if taken {
			return ErrNumberInUse
		}

		appt, err := s.repo.InsertAppointment(lockCtx, Appointment{
			Doctor:        in.Doctor,
			Period:        in.Period,
			PatientName:   in.PatientName,
			AppointmentNo: in.AppointmentNo,
			Frozen:        in.Frozen,
		})
		if err != nil {
			if errors.Is(err, ErrNumberInUse) {
				return err
			}
			return fmt.Errorf("insert appointment: %w", err)
		}

		created = appt

		s.logEvent(lockCtx, &appt.ID, EventAppointmentCreated, map[string]any{
			"doctor":         in.Doctor,
			"period":         in.Period,
			"appointment_no": in.AppointmentNo,
			"frozen":         in.Frozen,
		})

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrQueueBusy
		}
		return nil, err
	}

	return created, nil
}

// RenameAppointment changes the patient name and carries the checklist row over.
func (s *Service) RenameAppointment(ctx context.Context, period clinic.Period, id uuid.UUID, name string) (*Appointment, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("patient name is required")
	}

	current, err := s.repo.GetAppointmentByID(ctx, period, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}
	if current.Frozen {
		return nil, ErrFrozenAppointment
	}

	updated, err := s.repo.RenameAppointment(ctx, period, id, name)
	if err != nil {
		return nil, fmt.Errorf("rename appointment: %w", err)
	}

	if current.PatientName != name {
		if err := s.repo.MoveStatus(ctx, current.Doctor, period, current.PatientName, name); err != nil {
			s.log.WithError(err).WithField("appointment_id", id).Warn("failed to move patient status")
		}
	}

	s.logEvent(ctx, &updated.ID, EventAppointmentRenamed, map[string]any{
		"from": current.PatientName,
		"to":   name,
	})

	return updated, nil
}

func (s *Service) DeleteAppointment(ctx context.Context, period clinic.Period, id uuid.UUID) error {
	current, err := s.repo.GetAppointmentByID(ctx, period, id)
	if err != nil {
		return fmt.Errorf("load appointment: %w", err)
	}
	if current.Frozen {
		return ErrFrozenAppointment
	}

	if err := s.repo.DeleteAppointment(ctx, period, id); err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}

	if err := s.repo.PruneStatus(ctx, current.Doctor, period, current.PatientName); err != nil {
		s.log.WithError(err).WithField("appointment_id", id).Warn("failed to prune patient status")
	}

	s.logEvent(ctx, &current.ID, EventAppointmentDeleted, map[string]any{
		"doctor":         current.Doctor,
		"period":         period,
		"appointment_no": current.AppointmentNo,
	})

	return nil
}

func (s *Service) ListStatus(ctx context.Context, doctor clinic.Doctor, period clinic.Period) ([]PatientStatus, error) {
	rows, err := s.repo.ListStatus(ctx, doctor, period)
	if err != nil {
		return nil, fmt.Errorf("list patient status: %w", err)
	}
	return rows, nil
}

func (s *Service) SetStatus(ctx context.Context, in StatusInput) (*PatientStatus, error) {
	in.PatientName = strings.TrimSpace(in.PatientName)
	if in.PatientName == "" {
		return nil, invalid("patient name is required")
	}

	row, err := s.repo.UpsertStatus(ctx, PatientStatus{
		Doctor:      in.Doctor,
		Period:      in.Period,
		PatientName: in.PatientName,
		IsAvailable: in.IsAvailable,
	})
	if err != nil {
		return nil, fmt.Errorf("update patient status: %w", err)
	}

	s.logEvent(ctx, nil, EventStatusUpdated, map[string]any{
		"doctor":       in.Doctor,
		"period":       in.Period,
		"is_available": in.IsAvailable,
	})

	return row, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID *uuid.UUID, eventType string, payload map[string]any) {
	log := s.log.WithField("event", eventType)

	data, err := json.Marshal(payload)
	if err != nil {
		log.WithError(err).Warn("failed to marshal event payload")
		data = nil
	}

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: appointmentID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		log.WithError(err).Warn("failed to insert event log")
	}
}
