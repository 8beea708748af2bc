package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/hackgods/frontdesk-scheduling/internal/appointment"
	"github.com/hackgods/frontdesk-scheduling/internal/clinic"
)

type AppointmentService interface {
	ListAppointments(ctx context.Context, doctor clinic.Doctor, period clinic.Period) ([]appointment.Appointment, error)
	CreateAppointment(ctx context.Context, in appointment.CreateInput) (*appointment.Appointment, error)
	RenameAppointment(ctx context.Context, period clinic.Period, id uuid.UUID, name string) (*appointment.Appointment, error)
	DeleteAppointment(ctx context.Context, period clinic.Period, id uuid.UUID) error
	ListStatus(ctx context.Context, doctor clinic.Doctor, period clinic.Period) ([]appointment.PatientStatus, error)
	SetStatus(ctx context.Context, in appointment.StatusInput) (*appointment.PatientStatus, error)
}

// queueParams reads the doctor and period of a request. An empty period means today.
func queueParams(w http.ResponseWriter, doctor, period string) (clinic.Doctor, clinic.Period, bool) {
	d, err := clinic.ParseDoctor(doctor)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid doctor", err.Error())
		return "", "", false
	}
	p, err := clinic.ParsePeriod(period)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid type", err.Error())
		return "", "", false
	}
	return d, p, true
}

func listAppointmentsHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		d, p, ok := queueParams(w, q.Get("doctor"), q.Get("type"))
		if !ok {
			return
		}

		appts, err := svc.ListAppointments(r.Context(), d, p)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := make([]AppointmentResponse, 0, len(appts))
		for _, a := range appts {
			resp = append(resp, toAppointmentResponse(a))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func createAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body", "could not parse JSON")
			return
		}

		d, p, ok := queueParams(w, req.Doctor, req.Type)
		if !ok {
			return
		}

		appt, err := svc.CreateAppointment(r.Context(), appointment.CreateInput{
			Doctor:        d,
			Period:        p,
			PatientName:   req.PatientName,
			AppointmentNo: req.AppointmentNo,
			Frozen:        req.Frozen,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(*appt))
	}
}

func updateAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body", "could not parse JSON")
			return
		}

		id, err := uuid.Parse(req.ID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid appointment id", "id must be a valid UUID")
			return
		}
		p, err := clinic.ParsePeriod(req.Type)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid type", err.Error())
			return
		}

		appt, err := svc.RenameAppointment(r.Context(), p, id, req.PatientName)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(*appt))
	}
}

func deleteAppointmentHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		id, err := uuid.Parse(q.Get("id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid appointment id", "id must be a valid UUID")
			return
		}
		p, err := clinic.ParsePeriod(q.Get("type"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid type", err.Error())
			return
		}

		if err := svc.DeleteAppointment(r.Context(), p, id); err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"id": id.String()})
	}
}

func listStatusHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		d, p, ok := queueParams(w, q.Get("doctor"), q.Get("type"))
		if !ok {
			return
		}

		rows, err := svc.ListStatus(r.Context(), d, p)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		resp := make([]PatientStatusResponse, 0, len(rows))
		for _, s := range rows {
			resp = append(resp, toStatusResponse(s))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func setStatusHandler(svc AppointmentService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req PatientStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body", "could not parse JSON")
			return
		}

		d, p, ok := queueParams(w, req.Doctor, req.Type)
		if !ok {
			return
		}

		row, err := svc.SetStatus(r.Context(), appointment.StatusInput{
			Doctor:      d,
			Period:      p,
			PatientName: req.PatientName,
			IsAvailable: req.IsAvailable,
		})
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toStatusResponse(*row))
	}
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, "invalid input", err.Error())
	case errors.Is(err, appointment.ErrAppointmentNotFound):
		writeError(w, http.StatusNotFound, "appointment not found", err.Error())
	case errors.Is(err, appointment.ErrNumberInUse):
		writeError(w, http.StatusConflict, "appointment number already in use", err.Error())
	case errors.Is(err, appointment.ErrFrozenAppointment):
		writeError(w, http.StatusConflict, "frozen appointment", err.Error())
	case errors.Is(err, appointment.ErrQueueBusy):
		writeError(w, http.StatusConflict, "queue busy", "queue is currently being updated, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal error", err.Error())
	}
}
