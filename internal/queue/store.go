package queue

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/hackgods/frontdesk-scheduling/internal/clinic"
	"github.com/hackgods/frontdesk-scheduling/internal/slot"
)

var ErrUnknownDoctor = errors.New("unknown doctor")

const none = -1

// line is one doctor's queue inside a period.
type line struct {
	reserved map[int]struct{}
	appts    []clinic.Appointment // insertion order, never number order
	avail    map[string]bool
	editing  int
}

// Store owns the appointments and availability checklist of a single period
// for every doctor. Positions handed to Rename and Remove index the unsorted
// backing slice and must come from IndexOf or Find.
type Store struct {
	mu     sync.RWMutex
	period clinic.Period
	lines  map[clinic.Doctor]*line
}

func New(period clinic.Period, doctors ...clinic.Doctor) *Store {
	if len(doctors) == 0 {
		doctors = clinic.Doctors
	}
	s := &Store{
		period: period,
		lines:  make(map[clinic.Doctor]*line, len(doctors)),
	}
	for _, d := range doctors {
		s.lines[d] = &line{
			reserved: clinic.ReservedSet(d),
			avail:    make(map[string]bool),
			editing:  none,
		}
	}
	return s
}

func (s *Store) Period() clinic.Period {
	return s.period
}

func (s *Store) line(d clinic.Doctor) (*line, error) {
	l, ok := s.lines[d]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDoctor, d)
	}
	return l, nil
}

func normalizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", &ValidationError{Field: "patientName", Message: "patient name cannot be empty"}
	}
	return name, nil
}

// ValidateName trims name and rejects it when nothing is left.
func ValidateName(name string) (string, error) {
	return normalizeName(name)
}

func (l *line) inUse() map[int]struct{} {
	set := make(map[int]struct{}, len(l.appts))
	for _, a := range l.appts {
		set[a.AppointmentNo] = struct{}{}
	}
	return set
}

func (l *line) hasVisibleName(name string, skip int) bool {
	for i, a := range l.appts {
		if i != skip && !a.Frozen && a.PatientName == name {
			return true
		}
	}
	return false
}

func (l *line) target(index int) (*clinic.Appointment, error) {
	if index < 0 || index >= len(l.appts) {
		return nil, fmt.Errorf("%w: index %d", ErrNotFound, index)
	}
	a := &l.appts[index]
	if a.Frozen {
		return nil, fmt.Errorf("%w: #%d", ErrFrozen, a.AppointmentNo)
	}
	return a, nil
}

// NextNumber returns the number the next Add would receive for d.
func (s *Store) NextNumber(d clinic.Doctor) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, err := s.line(d)
	if err != nil {
		return 0, err
	}
	return slot.Next(l.reserved, l.inUse()), nil
}

// Add allocates the lowest free number and appends a local record for name.
func (s *Store) Add(d clinic.Doctor, name string) (clinic.Appointment, error) {
	name, err := normalizeName(name)
	if err != nil {
		return clinic.Appointment{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.line(d)
	if err != nil {
		return clinic.Appointment{}, err
	}

	a := clinic.Appointment{
		ID:            clinic.NewLocalID(),
		PatientName:   name,
		AppointmentNo: slot.Next(l.reserved, l.inUse()),
	}
	l.appts = append(l.appts, a)
	l.avail[name] = false
	return a, nil
}

// Insert appends a record that already carries its number, such as the
// server's echo of a create. A missing id is filled with a local one.
func (s *Store) Insert(d clinic.Doctor, a clinic.Appointment) (clinic.Appointment, error) {
	if a.AppointmentNo <= 0 {
		return clinic.Appointment{}, &ValidationError{Field: "appointmentNo", Message: "must be positive"}
	}
	if !a.Frozen {
		name, err := normalizeName(a.PatientName)
		if err != nil {
			return clinic.Appointment{}, err
		}
		a.PatientName = name
	}
	if a.ID == "" {
		a.ID = clinic.NewLocalID()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.line(d)
	if err != nil {
		return clinic.Appointment{}, err
	}
	if _, taken := l.inUse()[a.AppointmentNo]; taken {
		return clinic.Appointment{}, fmt.Errorf("%w: #%d", ErrNumberTaken, a.AppointmentNo)
	}

	l.appts = append(l.appts, a)
	if !a.Frozen {
		l.avail[a.PatientName] = false
	}
	return a, nil
}

// Rename changes the patient name at index and carries its availability entry
// over to the new name, replacing whatever was stored there.
func (s *Store) Rename(d clinic.Doctor, index int, newName string) error {
	newName, err := normalizeName(newName)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.line(d)
	if err != nil {
		return err
	}
	a, err := l.target(index)
	if err != nil {
		return err
	}

	oldName := a.PatientName
	if oldName == newName {
		return nil
	}
	a.PatientName = newName

	l.avail[newName] = l.avail[oldName]
	if !l.hasVisibleName(oldName, index) {
		delete(l.avail, oldName)
	}
	return nil
}

// Remove deletes the record at index together with its availability entry.
func (s *Store) Remove(d clinic.Doctor, index int) (clinic.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.line(d)
	if err != nil {
		return clinic.Appointment{}, err
	}
	a, err := l.target(index)
	if err != nil {
		return clinic.Appointment{}, err
	}

	removed := *a
	l.appts = append(l.appts[:index], l.appts[index+1:]...)
	if !l.hasVisibleName(removed.PatientName, none) {
		delete(l.avail, removed.PatientName)
	}

	switch {
	case l.editing == index:
		l.editing = none
	case l.editing > index:
		l.editing--
	}
	return removed, nil
}

// ToggleAvailability flips the flag of a listed patient and returns the new value.
func (s *Store) ToggleAvailability(d clinic.Doctor, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.line(d)
	if err != nil {
		return false, err
	}
	if !l.hasVisibleName(name, none) {
		return false, fmt.Errorf("%w: patient %q", ErrNotFound, name)
	}

	l.avail[name] = !l.avail[name]
	return l.avail[name], nil
}

// HasPatient reports whether a visible appointment of d carries name.
func (s *Store) HasPatient(d clinic.Doctor, name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, err := s.line(d)
	if err != nil {
		return false
	}
	return l.hasVisibleName(name, none)
}

// SetAvailability stores an explicit flag for a listed patient.
func (s *Store) SetAvailability(d clinic.Doctor, name string, available bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.line(d)
	if err != nil {
		return err
	}
	if !l.hasVisibleName(name, none) {
		return fmt.Errorf("%w: patient %q", ErrNotFound, name)
	}
	l.avail[name] = available
	return nil
}

// Available reports the flag of a patient; absent entries read as false.
func (s *Store) Available(d clinic.Doctor, name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, err := s.line(d)
	if err != nil {
		return false
	}
	return l.avail[name]
}

// Availability returns a copy of the checklist of d.
func (s *Store) Availability(d clinic.Doctor) map[string]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]bool)
	l, err := s.line(d)
	if err != nil {
		return out
	}
	for k, v := range l.avail {
		out[k] = v
	}
	return out
}

// ListVisible returns the non-frozen appointments of d ordered by number.
func (s *Store) ListVisible(d clinic.Doctor) []clinic.Appointment {
	return s.Search(d, "")
}

// Search filters visible appointments by a case-insensitive name substring or
// a substring of the appointment number.
func (s *Store) Search(d clinic.Doctor, term string) []clinic.Appointment {
	term = strings.ToLower(strings.TrimSpace(term))

	s.mu.RLock()
	defer s.mu.RUnlock()

	l, err := s.line(d)
	if err != nil {
		return nil
	}

	out := make([]clinic.Appointment, 0, len(l.appts))
	for _, a := range l.appts {
		if a.Frozen {
			continue
		}
		if term != "" &&
			!strings.Contains(strings.ToLower(a.PatientName), term) &&
			!strings.Contains(strconv.Itoa(a.AppointmentNo), term) {
			continue
		}
		out = append(out, a)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AppointmentNo < out[j].AppointmentNo
	})
	return out
}

// Records returns the raw backing slice of d, frozen placeholders included.
func (s *Store) Records(d clinic.Doctor) []clinic.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, err := s.line(d)
	if err != nil {
		return nil
	}
	return append([]clinic.Appointment(nil), l.appts...)
}

// Count returns the number of non-frozen appointments of d.
func (s *Store) Count(d clinic.Doctor) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, err := s.line(d)
	if err != nil {
		return 0
	}
	n := 0
	for _, a := range l.appts {
		if !a.Frozen {
			n++
		}
	}
	return n
}

// At returns the record stored at index.
func (s *Store) At(d clinic.Doctor, index int) (clinic.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, err := s.line(d)
	if err != nil {
		return clinic.Appointment{}, err
	}
	if index < 0 || index >= len(l.appts) {
		return clinic.Appointment{}, fmt.Errorf("%w: index %d", ErrNotFound, index)
	}
	return l.appts[index], nil
}

// IndexOf returns the backing position of the record with id, or -1.
func (s *Store) IndexOf(d clinic.Doctor, id string) int {
	if id == "" {
		return -1
	}
	return s.Find(d, clinic.Appointment{ID: id})
}

// Find locates key by id, or by its name, number and frozen flag when the key
// carries no id. It returns -1 when nothing matches.
func (s *Store) Find(d clinic.Doctor, key clinic.Appointment) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, err := s.line(d)
	if err != nil {
		return -1
	}
	for i, a := range l.appts {
		if key.ID != "" {
			if a.ID == key.ID {
				return i
			}
			continue
		}
		if a.PatientName == key.PatientName && a.AppointmentNo == key.AppointmentNo && a.Frozen == key.Frozen {
			return i
		}
	}
	return -1
}

// Replace swaps in a freshly loaded queue for d. Records whose number is
// already taken are dropped and counted; availability entries are kept only
// for names present among the visible records.
func (s *Store) Replace(d clinic.Doctor, appts []clinic.Appointment, avail map[string]bool) (dropped int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.line(d)
	if err != nil {
		return len(appts)
	}

	seen := make(map[int]struct{}, len(appts))
	kept := make([]clinic.Appointment, 0, len(appts))
	for _, a := range appts {
		if _, dup := seen[a.AppointmentNo]; dup || a.AppointmentNo <= 0 {
			dropped++
			continue
		}
		seen[a.AppointmentNo] = struct{}{}
		if a.ID == "" {
			a.ID = clinic.NewLocalID()
		}
		kept = append(kept, a)
	}

	l.appts = kept
	l.avail = make(map[string]bool)
	for _, a := range kept {
		if !a.Frozen {
			l.avail[a.PatientName] = avail[a.PatientName]
		}
	}
	l.editing = none
	return dropped
}

// SeedFrozen adds a placeholder for every reserved number of d that no record
// occupies yet and returns how many were added.
func (s *Store) SeedFrozen(d clinic.Doctor) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.line(d)
	if err != nil {
		return 0
	}
	used := l.inUse()
	added := 0
	for _, n := range clinic.Reserved(d) {
		if _, ok := used[n]; ok {
			continue
		}
		l.appts = append(l.appts, clinic.FrozenPlaceholder(n))
		added++
	}
	return added
}

// ClearVisible drops every non-frozen record of d and its checklist.
func (s *Store) ClearVisible(d clinic.Doctor) []clinic.Appointment {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.line(d)
	if err != nil {
		return nil
	}

	var removed []clinic.Appointment
	kept := l.appts[:0]
	for _, a := range l.appts {
		if a.Frozen {
			kept = append(kept, a)
			continue
		}
		removed = append(removed, a)
	}
	l.appts = kept
	l.avail = make(map[string]bool)
	l.editing = none
	return removed
}

// BeginEdit marks the record at index as being edited, replacing any previous cursor.
func (s *Store) BeginEdit(d clinic.Doctor, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, err := s.line(d)
	if err != nil {
		return err
	}
	if _, err := l.target(index); err != nil {
		return err
	}
	l.editing = index
	return nil
}

// Editing returns the position being edited for d, if any.
func (s *Store) Editing(d clinic.Doctor) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, err := s.line(d)
	if err != nil || l.editing == none {
		return none, false
	}
	return l.editing, true
}

func (s *Store) EndEdit(d clinic.Doctor) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, err := s.line(d); err == nil {
		l.editing = none
	}
}
