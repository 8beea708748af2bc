package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hackgods/frontdesk-scheduling/internal/clinic"
)

const (
	DefaultProbeTimeout   = 3 * time.Second
	DefaultRequestTimeout = 5 * time.Second
)

type Options struct {
	BaseURL        string // e.g. http://localhost:8080/api
	ProbeTimeout   time.Duration
	RequestTimeout time.Duration
	HTTPClient     *http.Client
	Logger         logrus.FieldLogger
}

// Adapter talks to the appointments API. It keeps a single availability flag
// that Probe sets and any failed call clears; once cleared, every call short
// circuits until the next Probe.
type Adapter struct {
	baseURL        string
	client         *http.Client
	probeTimeout   time.Duration
	requestTimeout time.Duration
	log            logrus.FieldLogger
	available      atomic.Bool
}

func New(opts Options) *Adapter {
	a := &Adapter{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		client:         opts.HTTPClient,
		probeTimeout:   opts.ProbeTimeout,
		requestTimeout: opts.RequestTimeout,
		log:            opts.Logger,
	}
	if a.client == nil {
		a.client = &http.Client{}
	}
	if a.probeTimeout <= 0 {
		a.probeTimeout = DefaultProbeTimeout
	}
	if a.requestTimeout <= 0 {
		a.requestTimeout = DefaultRequestTimeout
	}
	if a.log == nil {
		a.log = logrus.StandardLogger()
	}
	return a
}

func (a *Adapter) Available() bool {
	return a.available.Load()
}

// Probe checks the appointments resource once and records the result.
func (a *Adapter) Probe(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, a.probeTimeout)
	defer cancel()

	q := url.Values{"type": {string(clinic.PeriodToday)}, "doctor": {string(clinic.DoctorUmar)}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/appointments?"+q.Encode(), nil)
	if err != nil {
		a.available.Store(false)
		return false
	}

	resp, err := a.client.Do(req)
	if err != nil {
		a.log.WithError(err).Info("remote store not reachable, working locally")
		a.available.Store(false)
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	ok := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !ok {
		a.log.WithField("status", resp.StatusCode).Info("remote store probe failed, working locally")
	}
	a.available.Store(ok)
	return ok
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Details string          `json:"details"`
}

// wireAppointment accepts both the camelCase and snake_case spellings.
type wireAppointment struct {
	ID                 string `json:"id"`
	PatientName        string `json:"patientName"`
	PatientNameSnake   string `json:"patient_name"`
	AppointmentNo      int    `json:"appointmentNo"`
	AppointmentNoSnake int    `json:"appointment_no"`
	Frozen             bool   `json:"frozen"`
}

func (w wireAppointment) toAppointment() clinic.Appointment {
	a := clinic.Appointment{
		ID:            w.ID,
		PatientName:   w.PatientName,
		AppointmentNo: w.AppointmentNo,
		Frozen:        w.Frozen,
	}
	if a.PatientName == "" {
		a.PatientName = w.PatientNameSnake
	}
	if a.AppointmentNo == 0 {
		a.AppointmentNo = w.AppointmentNoSnake
	}
	return a
}

type wireStatus struct {
	PatientName      string `json:"patientName"`
	PatientNameSnake string `json:"patient_name"`
	IsAvailable      *bool  `json:"isAvailable"`
	IsAvailableSnake *bool  `json:"is_available"`
}

// do performs one round trip under the adapter's request deadline and
// decodes the envelope's data into out. Every failure clears the flag.
func (a *Adapter) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	if !a.available.Load() {
		return fmt.Errorf("%s: %w", op, ErrUnavailable)
	}

	err := a.roundTrip(ctx, op, method, path, query, body, out)
	if err != nil {
		a.available.Store(false)
		a.log.WithError(err).WithField("op", op).Warn("remote call failed, remote store marked unavailable")
	}
	return err
}

func (a *Adapter) roundTrip(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, a.requestTimeout)
	defer cancel()

	target := a.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", op, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return classify(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return classify(op, err)
	}

	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			return &ProtocolError{Op: op, Status: resp.StatusCode, Message: "malformed response body"}
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		return &ProtocolError{Op: op, Status: resp.StatusCode, Message: env.Error}
	}

	if out != nil && len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &ProtocolError{Op: op, Status: resp.StatusCode, Message: "malformed response data"}
		}
	}
	return nil
}

func classify(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, ErrTimeout)
	}
	return fmt.Errorf("%s: %w: %v", op, ErrUnavailable, err)
}

// ListAppointments returns the stored queue of one doctor and period. The
// boolean is false when the remote store could not answer.
func (a *Adapter) ListAppointments(ctx context.Context, d clinic.Doctor, p clinic.Period) ([]clinic.Appointment, bool) {
	var rows []wireAppointment
	q := url.Values{"type": {string(p)}, "doctor": {string(d)}}
	if err := a.do(ctx, "list appointments", http.MethodGet, "/appointments", q, nil, &rows); err != nil {
		return nil, false
	}

	out := make([]clinic.Appointment, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toAppointment())
	}
	return out, true
}

// ListAvailability returns the checklist of one doctor and period.
func (a *Adapter) ListAvailability(ctx context.Context, d clinic.Doctor, p clinic.Period) (map[string]bool, bool) {
	var rows []wireStatus
	q := url.Values{"type": {string(p)}, "doctor": {string(d)}}
	if err := a.do(ctx, "list patient status", http.MethodGet, "/patient-status", q, nil, &rows); err != nil {
		return nil, false
	}

	out := make(map[string]bool, len(rows))
	for _, r := range rows {
		name := r.PatientName
		if name == "" {
			name = r.PatientNameSnake
		}
		switch {
		case r.IsAvailable != nil:
			out[name] = *r.IsAvailable
		case r.IsAvailableSnake != nil:
			out[name] = *r.IsAvailableSnake
		default:
			out[name] = false
		}
	}
	return out, true
}

type createRequest struct {
	Doctor        clinic.Doctor `json:"doctor"`
	PatientName   string        `json:"patientName"`
	AppointmentNo int           `json:"appointmentNo"`
	Frozen        bool          `json:"frozen"`
	Type          clinic.Period `json:"type"`
}

func (a *Adapter) CreateAppointment(ctx context.Context, d clinic.Doctor, p clinic.Period, name string, no int) (clinic.Appointment, error) {
	var row wireAppointment
	body := createRequest{Doctor: d, PatientName: name, AppointmentNo: no, Type: p}
	if err := a.do(ctx, "create appointment", http.MethodPost, "/appointments", nil, body, &row); err != nil {
		return clinic.Appointment{}, err
	}
	if row.ID == "" {
		err := &ProtocolError{Op: "create appointment", Status: http.StatusOK, Message: "response carried no id"}
		a.available.Store(false)
		return clinic.Appointment{}, err
	}
	return row.toAppointment(), nil
}

type renameRequest struct {
	ID          string        `json:"id"`
	PatientName string        `json:"patientName"`
	Type        clinic.Period `json:"type"`
}

func (a *Adapter) RenameAppointment(ctx context.Context, p clinic.Period, id, name string) (clinic.Appointment, error) {
	var row wireAppointment
	body := renameRequest{ID: id, PatientName: name, Type: p}
	if err := a.do(ctx, "rename appointment", http.MethodPut, "/appointments", nil, body, &row); err != nil {
		return clinic.Appointment{}, err
	}
	return row.toAppointment(), nil
}

func (a *Adapter) DeleteAppointment(ctx context.Context, p clinic.Period, id string) error {
	q := url.Values{"id": {id}, "type": {string(p)}}
	return a.do(ctx, "delete appointment", http.MethodDelete, "/appointments", q, nil, nil)
}

type statusRequest struct {
	Doctor      clinic.Doctor `json:"doctor"`
	PatientName string        `json:"patientName"`
	IsAvailable bool          `json:"isAvailable"`
	Type        clinic.Period `json:"type"`
}

func (a *Adapter) SetAvailability(ctx context.Context, d clinic.Doctor, p clinic.Period, name string, available bool) error {
	body := statusRequest{Doctor: d, PatientName: name, IsAvailable: available, Type: p}
	return a.do(ctx, "update patient status", http.MethodPost, "/patient-status", nil, body, nil)
}
