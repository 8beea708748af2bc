package board

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/hackgods/frontdesk-scheduling/internal/clinic"
	"github.com/hackgods/frontdesk-scheduling/internal/queue"
)

// Remote is the slice of the remote store the board depends on.
// *remote.Adapter satisfies it.
type Remote interface {
	Available() bool
	Probe(ctx context.Context) bool
	ListAppointments(ctx context.Context, d clinic.Doctor, p clinic.Period) ([]clinic.Appointment, bool)
	ListAvailability(ctx context.Context, d clinic.Doctor, p clinic.Period) (map[string]bool, bool)
	CreateAppointment(ctx context.Context, d clinic.Doctor, p clinic.Period, name string, no int) (clinic.Appointment, error)
	RenameAppointment(ctx context.Context, p clinic.Period, id, name string) (clinic.Appointment, error)
	DeleteAppointment(ctx context.Context, p clinic.Period, id string) error
	SetAvailability(ctx context.Context, d clinic.Doctor, p clinic.Period, name string, available bool) error
}

type Outcome int

const (
	// OutcomeSynced means the remote store accepted the change.
	OutcomeSynced Outcome = iota
	// OutcomeLocal means the remote store was skipped.
	OutcomeLocal
	// OutcomeFallback means the remote attempt failed and the change was kept locally.
	OutcomeFallback
	// OutcomeIgnored means the target was frozen and nothing changed.
	OutcomeIgnored
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSynced:
		return "synced"
	case OutcomeLocal:
		return "local"
	case OutcomeFallback:
		return "fallback"
	case OutcomeIgnored:
		return "ignored"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// LocalOnly reports whether the change only exists in local state.
func (o Outcome) LocalOnly() bool {
	return o == OutcomeLocal || o == OutcomeFallback
}

type Result struct {
	Appointment clinic.Appointment
	Available   bool
	Outcome     Outcome
}

// PatientRow is one line of the patient checklist.
type PatientRow struct {
	clinic.Appointment
	Available bool
}

// Controller applies every mutation of one period: remote first when the
// remote store is available, local otherwise, so each action lands in the
// period's store exactly once. Mutations are serialised; reads are not.
type Controller struct {
	mu     sync.Mutex
	period clinic.Period
	store  *queue.Store
	remote Remote
	log    logrus.FieldLogger
}

func NewController(period clinic.Period, remote Remote, log logrus.FieldLogger) *Controller {
	return &Controller{
		period: period,
		store:  queue.New(period),
		remote: remote,
		log:    log.WithField("period", period),
	}
}

func (c *Controller) Period() clinic.Period {
	return c.period
}

// Add books name with the lowest free number of d.
func (c *Controller) Add(ctx context.Context, d clinic.Doctor, name string) (Result, error) {
	name, err := queue.ValidateName(name)
	if err != nil {
		return Result{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	no, err := c.store.NextNumber(d)
	if err != nil {
		return Result{}, err
	}

	outcome := OutcomeLocal
	if c.remote.Available() {
		rec, err := c.remote.CreateAppointment(ctx, d, c.period, name, no)
		if err == nil {
			if rec.AppointmentNo != no {
				c.log.WithFields(logrus.Fields{"requested": no, "echoed": rec.AppointmentNo}).
					Warn("server echoed a different appointment number, keeping the requested one")
			}
			rec.PatientName = name
			rec.AppointmentNo = no
			rec.Frozen = false

			a, err := c.store.Insert(d, rec)
			if err != nil {
				return Result{}, fmt.Errorf("apply created appointment: %w", err)
			}
			return Result{Appointment: a, Outcome: OutcomeSynced}, nil
		}
		c.log.WithError(err).WithField("doctor", d).Warn("create failed remotely, keeping appointment locally")
		outcome = OutcomeFallback
	}

	a, err := c.store.Add(d, name)
	if err != nil {
		return Result{}, err
	}
	return Result{Appointment: a, Outcome: outcome}, nil
}

// Rename changes the patient name of the appointment with id.
func (c *Controller) Rename(ctx context.Context, d clinic.Doctor, id, newName string) (Result, error) {
	newName, err := queue.ValidateName(newName)
	if err != nil {
		return Result{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	idx, cur, err := c.lookup(d, id)
	if err != nil {
		return Result{}, err
	}
	if cur.Frozen {
		return Result{Appointment: cur, Outcome: OutcomeIgnored}, nil
	}

	outcome := c.attempt(func() error {
		_, err := c.remote.RenameAppointment(ctx, c.period, cur.ID, newName)
		return err
	}, cur, "rename")

	if err := c.store.Rename(d, idx, newName); err != nil {
		return Result{}, err
	}
	if editing, ok := c.store.Editing(d); ok && editing == idx {
		c.store.EndEdit(d)
	}

	updated, err := c.store.At(d, idx)
	if err != nil {
		return Result{}, err
	}
	return Result{Appointment: updated, Available: c.store.Available(d, newName), Outcome: outcome}, nil
}

// Delete removes the appointment with id, freeing its number.
func (c *Controller) Delete(ctx context.Context, d clinic.Doctor, id string) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx, cur, err := c.lookup(d, id)
	if err != nil {
		return Result{}, err
	}
	if cur.Frozen {
		return Result{Appointment: cur, Outcome: OutcomeIgnored}, nil
	}

	outcome := c.attempt(func() error {
		return c.remote.DeleteAppointment(ctx, c.period, cur.ID)
	}, cur, "delete")

	removed, err := c.store.Remove(d, idx)
	if err != nil {
		return Result{}, err
	}
	return Result{Appointment: removed, Outcome: outcome}, nil
}

// ToggleAvailability flips the checklist flag of a listed patient.
func (c *Controller) ToggleAvailability(ctx context.Context, d clinic.Doctor, name string) (Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.store.HasPatient(d, name) {
		return Result{}, fmt.Errorf("%w: patient %q", queue.ErrNotFound, name)
	}
	next := !c.store.Available(d, name)

	outcome := OutcomeLocal
	if c.remote.Available() {
		if err := c.remote.SetAvailability(ctx, d, c.period, name, next); err != nil {
			c.log.WithError(err).WithField("doctor", d).Warn("availability update failed remotely, keeping it locally")
			outcome = OutcomeFallback
		} else {
			outcome = OutcomeSynced
		}
	}

	val, err := c.store.ToggleAvailability(d, name)
	if err != nil {
		return Result{}, err
	}
	return Result{Available: val, Outcome: outcome}, nil
}

// Clear removes every non-frozen appointment of every doctor in the period.
// Remote deletes are best effort; the local queues are always emptied.
func (c *Controller) Clear(ctx context.Context) (int, Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	outcome := OutcomeLocal
	if c.remote.Available() {
		outcome = OutcomeSynced
	}

	removed := 0
	for _, d := range clinic.Doctors {
		for _, a := range c.store.ListVisible(d) {
			if clinic.IsLocalID(a.ID) || !c.remote.Available() {
				continue
			}
			if err := c.remote.DeleteAppointment(ctx, c.period, a.ID); err != nil {
				c.log.WithError(err).WithField("doctor", d).Warn("bulk clear continuing locally")
				outcome = OutcomeFallback
			}
		}
		removed += len(c.store.ClearVisible(d))
	}
	return removed, outcome
}

// attempt runs a remote write for cur unless the remote store is down or the
// record was never stored remotely.
func (c *Controller) attempt(call func() error, cur clinic.Appointment, op string) Outcome {
	if !c.remote.Available() || clinic.IsLocalID(cur.ID) {
		return OutcomeLocal
	}
	if err := call(); err != nil {
		c.log.WithError(err).WithFields(logrus.Fields{
			"appointment_no": cur.AppointmentNo,
			"op":             op,
		}).Warn("remote write failed, applying locally")
		return OutcomeFallback
	}
	return OutcomeSynced
}

func (c *Controller) lookup(d clinic.Doctor, id string) (int, clinic.Appointment, error) {
	idx := c.store.IndexOf(d, id)
	if idx < 0 {
		return -1, clinic.Appointment{}, fmt.Errorf("%w: id %q", queue.ErrNotFound, id)
	}
	cur, err := c.store.At(d, idx)
	if err != nil {
		return -1, clinic.Appointment{}, err
	}
	return idx, cur, nil
}

// BeginEdit puts the appointment with id into edit mode for d.
func (c *Controller) BeginEdit(d clinic.Doctor, id string) error {
	idx := c.store.IndexOf(d, id)
	if idx < 0 {
		return fmt.Errorf("%w: id %q", queue.ErrNotFound, id)
	}
	err := c.store.BeginEdit(d, idx)
	if errors.Is(err, queue.ErrFrozen) {
		return nil
	}
	return err
}

// Editing returns the appointment currently being edited for d.
func (c *Controller) Editing(d clinic.Doctor) (clinic.Appointment, bool) {
	idx, ok := c.store.Editing(d)
	if !ok {
		return clinic.Appointment{}, false
	}
	a, err := c.store.At(d, idx)
	if err != nil {
		return clinic.Appointment{}, false
	}
	return a, true
}

func (c *Controller) CancelEdit(d clinic.Doctor) {
	c.store.EndEdit(d)
}

func (c *Controller) Visible(d clinic.Doctor) []clinic.Appointment {
	return c.store.ListVisible(d)
}

func (c *Controller) Search(d clinic.Doctor, term string) []clinic.Appointment {
	return c.store.Search(d, term)
}

func (c *Controller) PatientList(d clinic.Doctor) []PatientRow {
	return c.SearchPatients(d, "")
}

// SearchPatients joins the matching appointments with their checklist flags.
func (c *Controller) SearchPatients(d clinic.Doctor, term string) []PatientRow {
	appts := c.store.Search(d, term)
	avail := c.store.Availability(d)

	rows := make([]PatientRow, 0, len(appts))
	for _, a := range appts {
		rows = append(rows, PatientRow{Appointment: a, Available: avail[a.PatientName]})
	}
	return rows
}

func (c *Controller) Availability(d clinic.Doctor) map[string]bool {
	return c.store.Availability(d)
}

func (c *Controller) Count(d clinic.Doctor) int {
	return c.store.Count(d)
}

// Records exposes raw storage, frozen placeholders included.
func (c *Controller) Records(d clinic.Doctor) []clinic.Appointment {
	return c.store.Records(d)
}

// load replaces every doctor's queue with the remote copy. A doctor whose
// queue cannot be read keeps its current records.
func (c *Controller) load(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, d := range clinic.Doctors {
		log := c.log.WithField("doctor", d)

		appts, ok := c.remote.ListAppointments(ctx, d, c.period)
		if !ok {
			log.Warn("could not load appointments, keeping local queue")
			c.store.SeedFrozen(d)
			continue
		}
		avail, ok := c.remote.ListAvailability(ctx, d, c.period)
		if !ok {
			log.Warn("could not load patient status, starting with an empty checklist")
		}

		if dropped := c.store.Replace(d, appts, avail); dropped > 0 {
			log.WithField("dropped", dropped).Warn("ignored appointments with duplicate numbers")
		}
		c.store.SeedFrozen(d)
	}
}

// seedOffline makes sure every reserved number is held by a placeholder.
func (c *Controller) seedOffline() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, d := range clinic.Doctors {
		c.store.SeedFrozen(d)
	}
}
