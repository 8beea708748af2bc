package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/hackgods/frontdesk-scheduling/internal/appointment"
)

// envelope wraps every response body.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Details string `json:"details,omitempty"`
}

type CreateAppointmentRequest struct {
	Doctor        string `json:"doctor"`
	PatientName   string `json:"patientName"`
	AppointmentNo int    `json:"appointmentNo"`
	Frozen        bool   `json:"frozen"`
	Type          string `json:"type"`
}

type UpdateAppointmentRequest struct {
	ID          string `json:"id"`
	PatientName string `json:"patientName"`
	Type        string `json:"type"`
}

type PatientStatusRequest struct {
	Doctor      string `json:"doctor"`
	PatientName string `json:"patientName"`
	IsAvailable bool   `json:"isAvailable"`
	Type        string `json:"type"`
}

type AppointmentResponse struct {
	ID            string    `json:"id"`
	Doctor        string    `json:"doctor"`
	PatientName   string    `json:"patientName"`
	AppointmentNo int       `json:"appointmentNo"`
	Frozen        bool      `json:"frozen"`
	CreatedAt     time.Time `json:"createdAt"`
}

type PatientStatusResponse struct {
	Doctor      string    `json:"doctor"`
	PatientName string    `json:"patientName"`
	IsAvailable bool      `json:"isAvailable"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toAppointmentResponse(a appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:            a.ID.String(),
		Doctor:        string(a.Doctor),
		PatientName:   a.PatientName,
		AppointmentNo: a.AppointmentNo,
		Frozen:        a.Frozen,
		CreatedAt:     a.CreatedAt,
	}
}

func toStatusResponse(s appointment.PatientStatus) PatientStatusResponse {
	return PatientStatusResponse{
		Doctor:      string(s.Doctor),
		PatientName: s.PatientName,
		IsAvailable: s.IsAvailable,
		UpdatedAt:   s.UpdatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, msg, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: msg, Details: details})
}

// writeRaw is used by the health endpoints, which answer without the envelope.
func writeRaw(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
