// Package cli is the terminal front end: it parses commands, keeps the
// logged-in user's session token, and prints engine results. All business
// rules live behind the engine; this layer is glue.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"vaccine-reservation-api/internal/auth"
	"vaccine-reservation-api/internal/model"
	"vaccine-reservation-api/internal/scheduling"
)

type CLI struct {
	engine *scheduling.Engine
	auth   *auth.Service
	out    io.Writer
	log    zerolog.Logger

	// token of the logged-in user; the session is re-derived from it on
	// every command, the way a remote transport would
	token string
}

func New(engine *scheduling.Engine, authsvc *auth.Service, out io.Writer, log zerolog.Logger) *CLI {
	return &CLI{engine: engine, auth: authsvc, out: out, log: log}
}

const menu = `Commands:
  create_patient <username> <password>
  create_caregiver <username> <password>
  login_patient <username> <password>
  login_caregiver <username> <password>
  search_caregiver_schedule <date>
  reserve <date> <vaccine>
  upload_availability <date>
  cancel <appointment_id>
  add_doses <vaccine> <number>
  show_appointments
  logout
  quit`

// Run reads commands until EOF, a quit command, or context cancellation.
func (c *CLI) Run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(c.out, "Welcome to the vaccine reservation scheduler.")
	fmt.Fprintln(c.out, menu)

	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(c.out, "> ")
		if !sc.Scan() {
			break
		}
		if ctx.Err() != nil {
			break
		}
		if c.Exec(ctx, sc.Text()) {
			break
		}
	}
	return sc.Err()
}

// Exec runs one command line and reports whether the loop should stop.
func (c *CLI) Exec(ctx context.Context, line string) (quit bool) {
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return false
	}
	op := strings.ToLower(tokens[0])
	args := tokens[1:]

	switch op {
	case "create_patient":
		c.register(ctx, model.RolePatient, args)
	case "create_caregiver":
		c.register(ctx, model.RoleCaregiver, args)
	case "login_patient":
		c.login(ctx, model.RolePatient, args)
	case "login_caregiver":
		c.login(ctx, model.RoleCaregiver, args)
	case "search_caregiver_schedule":
		c.search(ctx, args)
	case "reserve":
		c.reserve(ctx, args)
	case "upload_availability":
		c.upload(ctx, args)
	case "cancel":
		c.cancel(ctx, args)
	case "add_doses":
		c.addDoses(ctx, args)
	case "show_appointments":
		c.showAppointments(ctx)
	case "logout":
		c.logout()
	case "quit":
		fmt.Fprintln(c.out, "Goodbye!")
		return true
	case "help":
		fmt.Fprintln(c.out, menu)
	default:
		fmt.Fprintln(c.out, "Unknown command.")
		fmt.Fprintln(c.out, menu)
	}
	return false
}

// session re-authenticates the stored token; nil means logged out or expired.
func (c *CLI) session() *model.Session {
	if c.token == "" {
		fmt.Fprintln(c.out, "Please login first.")
		return nil
	}
	s, err := c.auth.Authenticate(c.token)
	if err != nil {
		c.token = ""
		fmt.Fprintln(c.out, "Session expired, please login again.")
		return nil
	}
	return &s
}

func (c *CLI) register(ctx context.Context, role model.Role, args []string) {
	if len(args) != 2 {
		fmt.Fprintf(c.out, "Usage: create_%s <username> <password>\n", role)
		return
	}
	if err := c.auth.Register(ctx, role, args[0], args[1]); err != nil {
		c.fail(err)
		return
	}
	fmt.Fprintln(c.out, "Account created successfully.")
}

func (c *CLI) login(ctx context.Context, role model.Role, args []string) {
	if c.token != "" {
		fmt.Fprintln(c.out, "Already logged in, please logout first.")
		return
	}
	if len(args) != 2 {
		fmt.Fprintf(c.out, "Usage: login_%s <username> <password>\n", role)
		return
	}
	tok, err := c.auth.Login(ctx, role, args[0], args[1])
	if err != nil {
		c.fail(err)
		return
	}
	c.token = tok
	fmt.Fprintf(c.out, "Logged in as %s %s.\n", role, args[0])
}

func (c *CLI) logout() {
	if c.token == "" {
		fmt.Fprintln(c.out, "Not logged in.")
		return
	}
	c.token = ""
	fmt.Fprintln(c.out, "Logged out.")
}

func (c *CLI) search(ctx context.Context, args []string) {
	s := c.session()
	if s == nil {
		return
	}
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: search_caregiver_schedule <date>")
		return
	}
	sched, err := c.engine.Schedule(ctx, *s, args[0])
	if err != nil {
		c.fail(err)
		return
	}
	if len(sched.Caregivers) == 0 {
		fmt.Fprintln(c.out, "No caregiver is available on that date.")
	}
	for _, cg := range sched.Caregivers {
		fmt.Fprintf(c.out, "Available caregiver: %s\n", cg)
	}
	for _, v := range sched.Vaccines {
		fmt.Fprintf(c.out, "Vaccine: %s, doses: %d\n", v.Name, v.Doses)
	}
}

func (c *CLI) reserve(ctx context.Context, args []string) {
	s := c.session()
	if s == nil {
		return
	}
	if len(args) != 2 {
		fmt.Fprintln(c.out, "Usage: reserve <date> <vaccine>")
		return
	}
	conf, err := c.engine.Book(ctx, *s, args[0], args[1])
	if err != nil {
		c.fail(err)
		return
	}
	fmt.Fprintf(c.out, "Appointment confirmed. Caregiver: %s, appointment id: %d.\n",
		conf.Caregiver, conf.AppointmentID)
}

func (c *CLI) upload(ctx context.Context, args []string) {
	s := c.session()
	if s == nil {
		return
	}
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: upload_availability <date>")
		return
	}
	if err := c.engine.PublishAvailability(ctx, *s, args[0]); err != nil {
		c.fail(err)
		return
	}
	fmt.Fprintln(c.out, "Availability uploaded.")
}

func (c *CLI) cancel(ctx context.Context, args []string) {
	s := c.session()
	if s == nil {
		return
	}
	if len(args) != 1 {
		fmt.Fprintln(c.out, "Usage: cancel <appointment_id>")
		return
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Fprintln(c.out, "Appointment id must be an integer.")
		return
	}
	if err := c.engine.Cancel(ctx, *s, id); err != nil {
		c.fail(err)
		return
	}
	fmt.Fprintln(c.out, "Appointment cancelled.")
}

func (c *CLI) addDoses(ctx context.Context, args []string) {
	s := c.session()
	if s == nil {
		return
	}
	if len(args) != 2 {
		fmt.Fprintln(c.out, "Usage: add_doses <vaccine> <number>")
		return
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		fmt.Fprintln(c.out, "Dose count must be an integer.")
		return
	}
	if err := c.engine.AddDoses(ctx, *s, args[0], n); err != nil {
		c.fail(err)
		return
	}
	fmt.Fprintln(c.out, "Doses updated.")
}

func (c *CLI) showAppointments(ctx context.Context) {
	s := c.session()
	if s == nil {
		return
	}
	apts, err := c.engine.Appointments(ctx, *s)
	if err != nil {
		c.fail(err)
		return
	}
	if len(apts) == 0 {
		fmt.Fprintln(c.out, "No appointments scheduled.")
		return
	}
	for _, a := range apts {
		fmt.Fprintf(c.out, "Appointment %d: %s on %s with %s\n",
			a.ID, a.Vaccine, scheduling.FormatDate(a.Date), a.Counterparty)
	}
}

// fail prints a human-readable failure line. Business errors carry usable
// messages; storage failures get a retry hint and a log entry.
func (c *CLI) fail(err error) {
	if errors.Is(err, scheduling.ErrStorageUnavailable) {
		c.log.Error().Err(err).Msg("storage failure")
		fmt.Fprintln(c.out, "Service temporarily unavailable, please try again.")
		return
	}
	fmt.Fprintf(c.out, "Error: %v\n", err)
}
