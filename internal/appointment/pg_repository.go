package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hackgods/frontdesk-scheduling/internal/clinic"
)

const uniqueViolation = "23505"

// DBTX is the subset of *pgxpool.Pool the repository needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type PgRepository struct {
	db DBTX
}

func NewPgRepository(db DBTX) *PgRepository {
	return &PgRepository{db: db}
}

const appointmentColumns = `id, doctor, period, patient_name, appointment_no, frozen, created_at, updated_at`

// Helpers

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var doctor, period string

	err := row.Scan(
		&a.ID,
		&doctor,
		&period,
		&a.PatientName,
		&a.AppointmentNo,
		&a.Frozen,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrNumberInUse
		}
		return nil, err
	}

	a.Doctor = clinic.Doctor(doctor)
	a.Period = clinic.Period(period)
	return &a, nil
}

func scanStatus(row pgx.Row) (*PatientStatus, error) {
	var s PatientStatus
	var doctor, period string

	err := row.Scan(
		&doctor,
		&period,
		&s.PatientName,
		&s.IsAvailable,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStatusNotFound
		}
		return nil, err
	}

	s.Doctor = clinic.Doctor(doctor)
	s.Period = clinic.Period(period)
	return &s, nil
}

// Interface methods

func (r *PgRepository) ListAppointments(ctx context.Context, doctor clinic.Doctor, period clinic.Period) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor = $1 AND period = $2
		ORDER BY appointment_no
	`, string(doctor), string(period))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []Appointment{}
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, period clinic.Period, id uuid.UUID) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id = $1 AND period = $2
	`, id, string(period))
	return scanAppointment(row)
}

func (r *PgRepository) NumberInUse(ctx context.Context, doctor clinic.Doctor, period clinic.Period, no int) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor = $1 AND period = $2 AND appointment_no = $3
		)
	`, string(doctor), string(period), no).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check appointment number: %w", err)
	}
	return exists, nil
}

func (r *PgRepository) InsertAppointment(ctx context.Context, a Appointment) (*Appointment, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	row := r.db.QueryRow(ctx, `
		INSERT INTO appointments (id, doctor, period, patient_name, appointment_no, frozen, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), now())
		RETURNING `+appointmentColumns,
		a.ID, string(a.Doctor), string(a.Period), a.PatientName, a.AppointmentNo, a.Frozen)

	return scanAppointment(row)
}

func (r *PgRepository) RenameAppointment(ctx context.Context, period clinic.Period, id uuid.UUID, name string) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE appointments
		SET patient_name = $3,
		    updated_at = now()
		WHERE id = $1
		  AND period = $2
		  AND NOT frozen
		RETURNING `+appointmentColumns,
		id, string(period), name)

	return scanAppointment(row)
}

func (r *PgRepository) DeleteAppointment(ctx context.Context, period clinic.Period, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM appointments
		WHERE id = $1 AND period = $2 AND NOT frozen
	`, id, string(period))
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return nil
}

func (r *PgRepository) ListStatus(ctx context.Context, doctor clinic.Doctor, period clinic.Period) ([]PatientStatus, error) {
	rows, err := r.db.Query(ctx, `
		SELECT doctor, period, patient_name, is_available, updated_at
		FROM patient_status
		WHERE doctor = $1 AND period = $2
		ORDER BY patient_name
	`, string(doctor), string(period))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []PatientStatus{}
	for rows.Next() {
		s, err := scanStatus(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) UpsertStatus(ctx context.Context, s PatientStatus) (*PatientStatus, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO patient_status (doctor, period, patient_name, is_available, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (doctor, period, patient_name)
		DO UPDATE SET is_available = EXCLUDED.is_available,
		              updated_at = now()
		RETURNING doctor, period, patient_name, is_available, updated_at
	`, string(s.Doctor), string(s.Period), s.PatientName, s.IsAvailable)

	return scanStatus(row)
}

func (r *PgRepository) MoveStatus(ctx context.Context, doctor clinic.Doctor, period clinic.Period, oldName, newName string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO patient_status (doctor, period, patient_name, is_available, updated_at)
		SELECT doctor, period, $4, is_available, now()
		FROM patient_status
		WHERE doctor = $1 AND period = $2 AND patient_name = $3
		ON CONFLICT (doctor, period, patient_name)
		DO UPDATE SET is_available = EXCLUDED.is_available,
		              updated_at = now()
	`, string(doctor), string(period), oldName, newName)
	if err != nil {
		return fmt.Errorf("move patient status: %w", err)
	}

	return r.PruneStatus(ctx, doctor, period, oldName)
}

func (r *PgRepository) PruneStatus(ctx context.Context, doctor clinic.Doctor, period clinic.Period, name string) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM patient_status s
		WHERE s.doctor = $1 AND s.period = $2 AND s.patient_name = $3
		  AND NOT EXISTS (
			SELECT 1 FROM appointments a
			WHERE a.doctor = s.doctor AND a.period = s.period
			  AND a.patient_name = s.patient_name AND NOT a.frozen
		  )
	`, string(doctor), string(period), name)
	if err != nil {
		return fmt.Errorf("prune patient status: %w", err)
	}
	return nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
