package board

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/hackgods/frontdesk-scheduling/internal/clinic"
)

// Board pairs the today and yesterday controllers over one remote store.
// The two periods never share state.
type Board struct {
	remote    Remote
	log       logrus.FieldLogger
	today     *Controller
	yesterday *Controller
}

type Stats struct {
	PerDoctor map[clinic.Doctor]int
	Total     int
}

func New(remote Remote, log logrus.FieldLogger) *Board {
	return &Board{
		remote:    remote,
		log:       log,
		today:     NewController(clinic.PeriodToday, remote, log),
		yesterday: NewController(clinic.PeriodYesterday, remote, log),
	}
}

// Load probes the remote store and initialises both periods from it. When
// the store cannot be reached both periods start from local state with every
// reserved number held by a placeholder. It reports whether the board is online.
func (b *Board) Load(ctx context.Context) bool {
	if !b.remote.Probe(ctx) {
		b.log.Info("remote store unavailable, starting with local state")
		b.today.seedOffline()
		b.yesterday.seedOffline()
		return false
	}

	b.today.load(ctx)
	b.yesterday.load(ctx)

	online := b.remote.Available()
	b.log.WithField("online", online).Info("board loaded")
	return online
}

func (b *Board) Today() *Controller {
	return b.today
}

func (b *Board) Yesterday() *Controller {
	return b.yesterday
}

// Period returns the controller of p.
func (b *Board) Period(p clinic.Period) (*Controller, error) {
	switch p {
	case clinic.PeriodToday:
		return b.today, nil
	case clinic.PeriodYesterday:
		return b.yesterday, nil
	default:
		return nil, fmt.Errorf("unknown period %q", p)
	}
}

func (b *Board) Online() bool {
	return b.remote.Available()
}

// Stats counts today's visible appointments per doctor.
func (b *Board) Stats() Stats {
	s := Stats{PerDoctor: make(map[clinic.Doctor]int, len(clinic.Doctors))}
	for _, d := range clinic.Doctors {
		n := b.today.Count(d)
		s.PerDoctor[d] = n
		s.Total += n
	}
	return s
}
