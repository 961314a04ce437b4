package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"laundrmate/internal/domain"
	"laundrmate/internal/lifecycle"
	"laundrmate/internal/logging"
	"laundrmate/internal/models"
	"laundrmate/internal/search"
	"laundrmate/internal/view"
	"laundrmate/internal/worker"
)

var errUsage = errors.New("usage")

type command struct {
	usage string
	run   func(a *app, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"login":       {"login -email E [-password P]   (or LAUNDRMATE_PASSWORD)", (*app).cmdLogin},
	"register":    {"register -name N -email E -password P [-role user|owner]", (*app).cmdRegister},
	"logout":      {"logout", (*app).cmdLogout},
	"whoami":      {"whoami", (*app).cmdWhoami},
	"laundries":   {"laundries [-mine] [-q TEXT]", (*app).cmdLaundries},
	"laundry-add": {"laundry-add -name N [-description D] [-address A] [-lat X -lng Y]", (*app).cmdLaundryAdd},
	"laundry-rm":  {"laundry-rm ID", (*app).cmdLaundryRemove},
	"dashboard":   {"dashboard", (*app).cmdDashboard},
	"bookings":    {"bookings [-owned] [-q TEXT] [-status S] [-laundry ID]", (*app).cmdBookings},
	"show":        {"show ID", (*app).cmdShow},
	"book":        {"book -laundry ID [-at TIME] [-service S] [-notes N] [-price P]", (*app).cmdBook},
	"edit":        {"edit ID [-at TIME] [-service S] [-notes N] [-price P]   (\"-\" clears)", (*app).cmdEdit},
	"confirm":     {"confirm ID", transitionCmd(models.StatusConfirmed)},
	"cancel":      {"cancel ID", transitionCmd(models.StatusCancelled)},
	"reopen":      {"reopen ID", transitionCmd(models.StatusPending)},
	"delete":      {"delete ID", (*app).cmdDelete},
	"export":      {"export [-owned] [-q TEXT] [-status S] [-laundry ID]", (*app).cmdExport},
	"watch":       {"watch [-owned] [-q TEXT] [-status S] [-laundry ID]", (*app).cmdWatch},
}

func printUsage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "usage: laundrmate COMMAND [flags]")
	fmt.Fprintln(w)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", commands[name].usage)
	}
}

func (a *app) dispatch(ctx context.Context, name string, args []string) error {
	cmd, ok := commands[name]
	if !ok {
		printUsage(a.out)
		return fmt.Errorf("%w: unknown command %q", errUsage, name)
	}
	return cmd.run(a, ctx, args)
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %v", errUsage, fs.Name(), err)
	}
	return nil
}

func parseID(args []string) (int64, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%w: missing booking id", errUsage)
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(args[0], "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.Validationf("invalid id %q", args[0])
	}
	return id, nil
}

type queryFlags struct {
	owned   bool
	text    string
	status  string
	laundry int64
}

func (q *queryFlags) register(fs *flag.FlagSet) {
	fs.BoolVar(&q.owned, "owned", false, "bookings on my laundries (owners)")
	fs.StringVar(&q.text, "q", "", "search text")
	fs.StringVar(&q.status, "status", models.StatusAll, "pending, confirmed, cancelled or all")
	fs.Int64Var(&q.laundry, "laundry", 0, "laundry id")
}

func (q *queryFlags) scope() lifecycle.Scope {
	if q.owned {
		return lifecycle.ScopeOwned
	}
	return lifecycle.ScopeMine
}

func (q *queryFlags) query() search.Query {
	return search.Query{Text: q.text, Status: q.status, LaundryID: q.laundry}
}

func (a *app) cmdLogin(ctx context.Context, args []string) error {
	fs := newFlagSet("login")
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("LAUNDRMATE_PASSWORD"), "account password")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	s, err := a.client.Login(ctx, models.Credentials{Email: *email, Password: *password})
	if err != nil {
		return err
	}
	if err := a.session.Set(ctx, s); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed in as %s (%s)\n", displayEmail(s), s.Role)
	return nil
}

func (a *app) cmdRegister(ctx context.Context, args []string) error {
	fs := newFlagSet("register")
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "account email")
	password := fs.String("password", os.Getenv("LAUNDRMATE_PASSWORD"), "account password")
	role := fs.String("role", string(models.RoleUser), "user or owner")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	if err := a.client.Register(ctx, models.Registration{
		Name: *name, Email: *email, Password: *password, Role: models.Role(*role),
	}); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Account created. Sign in with: laundrmate login -email", *email)
	return nil
}

func (a *app) cmdLogout(ctx context.Context, _ []string) error {
	if err := a.session.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

func (a *app) cmdWhoami(context.Context, []string) error {
	s := a.session.Current()
	if s == nil {
		fmt.Fprintln(a.out, "Not signed in")
		return nil
	}
	fmt.Fprintf(a.out, "%s (%s", displayEmail(s), s.Role)
	if s.UserID > 0 {
		fmt.Fprintf(a.out, ", id %d", s.UserID)
	}
	if !s.ExpiresAt.IsZero() {
		fmt.Fprintf(a.out, ", expires %s", s.ExpiresAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Fprintln(a.out, ")")
	return nil
}

func (a *app) cmdLaundries(ctx context.Context, args []string) error {
	fs := newFlagSet("laundries")
	mine := fs.Bool("mine", false, "only my laundries (owners)")
	text := fs.String("q", "", "search text")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	var (
		list []models.Laundry
		err  error
	)
	if *mine {
		list, err = a.client.ListMyLaundries(ctx)
	} else {
		list, err = a.client.ListLaundries(ctx)
	}
	if err != nil {
		return err
	}
	printLaundries(a.out, search.Laundries(list, *text))
	return nil
}

func (a *app) cmdLaundryAdd(ctx context.Context, args []string) error {
	fs := newFlagSet("laundry-add")
	name := fs.String("name", "", "laundry name")
	description := fs.String("description", "", "description")
	address := fs.String("address", "", "street address")
	lat := fs.String("lat", "", "latitude")
	lng := fs.String("lng", "", "longitude")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	in := models.LaundryInput{Name: *name, Description: *description}
	if *address != "" {
		in.Address = models.Set(*address)
	}
	for _, c := range []struct {
		raw string
		dst *models.Field[models.Decimal]
	}{{*lat, &in.Lat}, {*lng, &in.Lng}} {
		if c.raw == "" {
			continue
		}
		d, err := models.ParseDecimal(c.raw)
		if err != nil {
			return domain.Validationf("invalid coordinate %q", c.raw)
		}
		*c.dst = models.Set(d)
	}

	dash := view.NewOwnerDashboard(a.controller, a.client, a.logger)
	defer dash.Close()
	l, err := dash.CreateLaundry(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created laundry #%d %s\n", l.ID, l.Name)
	return nil
}

func (a *app) cmdLaundryRemove(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	dash := view.NewOwnerDashboard(a.controller, a.client, a.logger)
	defer dash.Close()
	if err := dash.DeleteLaundry(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted laundry #%d\n", id)
	return nil
}

func (a *app) cmdDashboard(ctx context.Context, _ []string) error {
	s := a.session.Current()
	if s == nil {
		return domain.Authf("sign in first")
	}

	if s.IsOwner() {
		dash := view.NewOwnerDashboard(a.controller, a.client, a.logger)
		defer dash.Close()
		if err := dash.Open(ctx); err != nil {
			return err
		}
		printCounts(a.out, dash.Counts(), dash.Total())
		return nil
	}

	dash := view.NewUserDashboard(a.controller, a.client, a.logger)
	defer dash.Close()
	if err := dash.Open(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Upcoming bookings:")
	printBookings(a.out, dash.Upcoming())
	return nil
}

func (a *app) cmdBookings(ctx context.Context, args []string) error {
	fs := newFlagSet("bookings")
	var q queryFlags
	q.register(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	list := view.NewBookingsList(a.controller, q.scope(), a.logger)
	defer list.Close()
	if err := list.Open(ctx); err != nil {
		return err
	}
	list.SetQuery(q.query())
	printBookings(a.out, list.Visible())
	return nil
}

func (a *app) cmdShow(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	detail := view.NewBookingDetail(a.controller, id, a.logger)
	defer detail.Close()
	if err := detail.Open(ctx); err != nil {
		return err
	}
	b, _ := detail.Booking()
	printBooking(a.out, b, detail.Allowed())
	return nil
}

func (a *app) cmdBook(ctx context.Context, args []string) error {
	fs := newFlagSet("book")
	var in view.FormInput
	fs.StringVar(&in.LaundryID, "laundry", "", "laundry id")
	registerFormFlags(fs, &in)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	form := view.NewBookingForm(a.controller, a.logger)
	defer form.Close()
	b, err := form.Submit(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Booked #%d (%s)\n", b.ID, b.Status)
	return nil
}

func (a *app) cmdEdit(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	fs := newFlagSet("edit")
	var in view.FormInput
	registerFormFlags(fs, &in)
	if err := parseFlags(fs, args[1:]); err != nil {
		return err
	}

	form := view.NewEditForm(a.controller, id, a.logger)
	defer form.Close()
	b, err := form.Submit(ctx, in)
	if err != nil {
		return err
	}
	printBooking(a.out, *b, nil)
	return nil
}

func registerFormFlags(fs *flag.FlagSet, in *view.FormInput) {
	fs.StringVar(&in.ScheduledAt, "at", "", "pickup time, e.g. 2026-05-01 09:30")
	fs.StringVar(&in.ServiceType, "service", "", strings.Join(models.ServiceOptions, ", "))
	fs.StringVar(&in.Notes, "notes", "", "notes for the laundry")
	fs.StringVar(&in.Price, "price", "", "price")
}

func transitionCmd(to models.Status) func(a *app, ctx context.Context, args []string) error {
	return func(a *app, ctx context.Context, args []string) error {
		id, err := parseID(args)
		if err != nil {
			return err
		}
		detail := view.NewBookingDetail(a.controller, id, a.logger)
		defer detail.Close()
		if err := detail.Open(ctx); err != nil {
			return err
		}
		b, err := detail.Transition(ctx, to)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Booking #%d is now %s\n", b.ID, b.Status)
		return nil
	}
}

func (a *app) cmdDelete(ctx context.Context, args []string) error {
	id, err := parseID(args)
	if err != nil {
		return err
	}
	detail := view.NewBookingDetail(a.controller, id, a.logger)
	defer detail.Close()
	if err := detail.Open(ctx); err != nil {
		return err
	}
	if err := detail.Delete(ctx); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted booking #%d\n", id)
	return nil
}

func (a *app) cmdExport(ctx context.Context, args []string) error {
	fs := newFlagSet("export")
	var q queryFlags
	q.register(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	list := view.NewBookingsList(a.controller, q.scope(), a.logger)
	defer list.Close()
	if err := list.Open(ctx); err != nil {
		return err
	}
	list.SetQuery(q.query())

	path, err := a.exporter.Bookings(string(q.scope()), list.Visible())
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Exported to", path)
	return nil
}

// cmdWatch keeps a bookings list current until interrupted, printing it on
// every change.
func (a *app) cmdWatch(ctx context.Context, args []string) error {
	fs := newFlagSet("watch")
	var q queryFlags
	q.register(fs)
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	startMetrics(ctx, a.cfg, a.logger)

	list := view.NewBookingsList(a.controller, q.scope(), a.logger)
	defer list.Close()
	list.SetQuery(q.query())
	list.Store().Subscribe(func() {
		fmt.Fprintln(a.out, "---")
		printBookings(a.out, list.Visible())
	})

	refresher := worker.NewRefresher(string(q.scope()), list.Open, a.cfg.Sync.PollInterval,
		worker.PolicyFromConfig(a.cfg.Sync.Retry), logging.Component(a.logger, "watch"))
	return refresher.Start(ctx)
}

// describe renders err for the terminal.
func describe(err error) string {
	for _, kind := range []error{
		domain.ErrValidation, domain.ErrAuth, domain.ErrNotFound,
		domain.ErrInvalidTransition, domain.ErrNetwork, domain.ErrInFlight,
	} {
		if errors.Is(err, kind) {
			return fmt.Sprintf("%s (%v)", domain.Notice(err), err)
		}
	}
	return err.Error()
}
