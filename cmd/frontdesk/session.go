package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/hackgods/frontdesk-scheduling/internal/board"
	"github.com/hackgods/frontdesk-scheduling/internal/clinic"
	"github.com/hackgods/frontdesk-scheduling/internal/queue"
)

const helpText = `commands:
  use <umar|samreen|today|yesterday>   switch doctor or period
  add <patient name>                   book the next free number
  list                                 show the current queue
  search <term>                        filter by name or number
  edit <no>                            start editing an appointment
  save <new name>                      save the appointment being edited
  cancel                               stop editing
  rename <no> <new name>               rename without entering edit mode
  rm <no>                              delete an appointment
  avail <no|patient name>              toggle patient availability
  patients [term]                      patient checklist
  stats                                today's totals
  clear yes                            delete every appointment of the period
  reload                               reload both periods from the server
  quit`

var errQuit = errors.New("quit")

// session is one interactive front-desk terminal.
type session struct {
	board  *board.Board
	period clinic.Period
	doctor clinic.Doctor
	out    io.Writer
}

func newSession(b *board.Board, out io.Writer) *session {
	return &session{
		board:  b,
		period: clinic.PeriodToday,
		doctor: clinic.DoctorUmar,
		out:    out,
	}
}

func (s *session) prompt() string {
	mode := "online"
	if !s.board.Online() {
		mode = "offline"
	}
	return fmt.Sprintf("[%s %s %s]> ", s.period, s.doctor, mode)
}

func (s *session) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprint(s.out, s.prompt())
	for scanner.Scan() {
		err := s.exec(ctx, scanner.Text())
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
		if ctx.Err() != nil {
			return nil
		}
		fmt.Fprint(s.out, s.prompt())
	}
	return scanner.Err()
}

func (s *session) controller() *board.Controller {
	c, err := s.board.Period(s.period)
	if err != nil {
		return s.board.Today()
	}
	return c
}

func splitCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	cmd, rest, _ := strings.Cut(line, " ")
	return strings.ToLower(cmd), strings.TrimSpace(rest)
}

func (s *session) exec(ctx context.Context, line string) error {
	cmd, arg := splitCommand(line)
	c := s.controller()

	switch cmd {
	case "":
		return nil
	case "help", "?":
		fmt.Fprintln(s.out, helpText)
	case "quit", "exit":
		return errQuit
	case "use":
		return s.use(arg)
	case "add":
		res, err := c.Add(ctx, s.doctor, arg)
		if err != nil {
			return err
		}
		s.report(res.Outcome, "booked #%d %s", res.Appointment.AppointmentNo, res.Appointment.PatientName)
	case "list":
		s.printAppointments(c.Visible(s.doctor), c.Availability(s.doctor))
	case "search":
		s.printAppointments(c.Search(s.doctor, arg), c.Availability(s.doctor))
	case "edit":
		a, err := s.byNumber(c, arg)
		if err != nil {
			return err
		}
		if err := c.BeginEdit(s.doctor, a.ID); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "editing #%d %s, use save <name> or cancel\n", a.AppointmentNo, a.PatientName)
	case "save":
		a, ok := c.Editing(s.doctor)
		if !ok {
			return errors.New("nothing is being edited")
		}
		return s.rename(ctx, c, a, arg)
	case "cancel":
		c.CancelEdit(s.doctor)
		fmt.Fprintln(s.out, "edit cancelled")
	case "rename":
		noArg, name, _ := strings.Cut(arg, " ")
		a, err := s.byNumber(c, noArg)
		if err != nil {
			return err
		}
		return s.rename(ctx, c, a, name)
	case "rm", "delete":
		a, err := s.byNumber(c, arg)
		if err != nil {
			return err
		}
		res, err := c.Delete(ctx, s.doctor, a.ID)
		if err != nil {
			return err
		}
		s.report(res.Outcome, "deleted #%d %s", res.Appointment.AppointmentNo, res.Appointment.PatientName)
	case "avail":
		name := arg
		if a, err := s.byNumber(c, arg); err == nil {
			name = a.PatientName
		}
		res, err := c.ToggleAvailability(ctx, s.doctor, name)
		if err != nil {
			return err
		}
		state := "not available"
		if res.Available {
			state = "available"
		}
		s.report(res.Outcome, "%s is %s", name, state)
	case "patients":
		s.printPatients(c.SearchPatients(s.doctor, arg))
	case "stats":
		st := s.board.Stats()
		for _, d := range clinic.Doctors {
			fmt.Fprintf(s.out, "%-8s %d\n", d, st.PerDoctor[d])
		}
		fmt.Fprintf(s.out, "%-8s %d\n", "total", st.Total)
	case "clear":
		if arg != "yes" {
			return fmt.Errorf("this deletes every %s appointment, type: clear yes", s.period)
		}
		n, outcome := c.Clear(ctx)
		s.report(outcome, "cleared %d %s appointments", n, s.period)
	case "reload":
		if s.board.Load(ctx) {
			fmt.Fprintln(s.out, "reloaded from server")
		} else {
			fmt.Fprintln(s.out, "server unavailable, working locally")
		}
	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
	return nil
}

func (s *session) use(arg string) error {
	if p, err := clinic.ParsePeriod(arg); err == nil && arg != "" {
		s.period = p
		return nil
	}
	d, err := clinic.ParseDoctor(arg)
	if err != nil {
		return fmt.Errorf("use expects a doctor or a period: %w", err)
	}
	s.doctor = d
	return nil
}

func (s *session) rename(ctx context.Context, c *board.Controller, a clinic.Appointment, name string) error {
	res, err := c.Rename(ctx, s.doctor, a.ID, name)
	if err != nil {
		return err
	}
	if res.Outcome == board.OutcomeIgnored {
		fmt.Fprintf(s.out, "#%d is frozen and cannot be changed\n", a.AppointmentNo)
		return nil
	}
	s.report(res.Outcome, "#%d is now %s", res.Appointment.AppointmentNo, res.Appointment.PatientName)
	return nil
}

// byNumber resolves a visible appointment from the number the desk sees.
func (s *session) byNumber(c *board.Controller, arg string) (clinic.Appointment, error) {
	no, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(arg), "#"))
	if err != nil {
		return clinic.Appointment{}, fmt.Errorf("expected an appointment number, got %q", arg)
	}
	for _, a := range c.Visible(s.doctor) {
		if a.AppointmentNo == no {
			return a, nil
		}
	}
	if clinic.IsReserved(s.doctor, no) {
		return clinic.Appointment{}, fmt.Errorf("#%d is frozen: %w", no, queue.ErrFrozen)
	}
	return clinic.Appointment{}, fmt.Errorf("#%d: %w", no, queue.ErrNotFound)
}

func (s *session) report(o board.Outcome, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	switch o {
	case board.OutcomeSynced:
		fmt.Fprintln(s.out, msg)
	case board.OutcomeLocal:
		fmt.Fprintf(s.out, "%s (saved locally)\n", msg)
	case board.OutcomeFallback:
		fmt.Fprintf(s.out, "%s (server error, saved locally)\n", msg)
	case board.OutcomeIgnored:
		fmt.Fprintln(s.out, "frozen appointment left unchanged")
	}
}

func (s *session) printAppointments(appts []clinic.Appointment, avail map[string]bool) {
	if len(appts) == 0 {
		fmt.Fprintln(s.out, "no appointments")
		return
	}
	tw := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NO\tPATIENT\tAVAILABLE\t")
	for _, a := range appts {
		fmt.Fprintf(tw, "%d\t%s\t%s\t\n", a.AppointmentNo, a.PatientName, yesNo(avail[a.PatientName]))
	}
	_ = tw.Flush()
}

func (s *session) printPatients(rows []board.PatientRow) {
	if len(rows) == 0 {
		fmt.Fprintln(s.out, "no patients")
		return
	}
	tw := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PATIENT\tNO\tAVAILABLE\t")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%s\t\n", r.PatientName, r.AppointmentNo, yesNo(r.Available))
	}
	_ = tw.Flush()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
