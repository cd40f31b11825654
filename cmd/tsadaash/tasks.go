package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"tsadaash/internal/agenda"
	"tsadaash/internal/auth"
	"tsadaash/internal/cli"
	"tsadaash/internal/periodicity"
	"tsadaash/internal/task"
)

func cmdTask(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("task needs a subcommand: add, list, rm, schedule or ics")
	}
	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()
	u, err := currentUser(ctx, e)
	if err != nil {
		return err
	}

	switch args[0] {
	case "add":
		return taskAdd(ctx, e, u, args[1:])
	case "list", "ls":
		return taskList(ctx, e, u, os.Stdout, time.Now())
	case "rm":
		return taskRemove(ctx, e, u, args[1:])
	case "schedule":
		return taskSchedule(ctx, e, u, args[1:])
	case "ics":
		return taskICS(ctx, e, u, args[1:])
	default:
		return fmt.Errorf("unknown task subcommand %q", args[0])
	}
}

// taskArg reads the task id from -id or the first positional argument.
func taskArg(fs *flag.FlagSet, args []string) (string, error) {
	id := fs.String("id", "", "task id")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if *id == "" {
		*id = fs.Arg(0)
	}
	if strings.TrimSpace(*id) == "" {
		return "", errors.New("task id is required")
	}
	return strings.TrimSpace(*id), nil
}

// ownedTask loads id and hides tasks of other accounts.
func ownedTask(ctx context.Context, e *env, u auth.User, id string) (task.Task, error) {
	t, err := e.app.Tasks.Get(ctx, id)
	if err != nil {
		return task.Task{}, err
	}
	if t.UserID != u.ID {
		return task.Task{}, task.ErrNotFound
	}
	return t, nil
}

func taskAdd(ctx context.Context, e *env, u auth.User, args []string) error {
	fs := flag.NewFlagSet("task add", flag.ContinueOnError)
	title := fs.String("title", "", "task title")
	desc := fs.String("desc", "", "task description")
	unscheduled := fs.Bool("unscheduled", false, "create the task without a periodicity")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p := cli.NewPrompter(os.Stdin, os.Stdout)
	if strings.TrimSpace(*title) == "" {
		v, err := p.AskRequired("Title")
		if err != nil {
			return err
		}
		*title = v
	}

	t := task.Task{UserID: u.ID, Title: *title, Description: *desc}
	if !*unscheduled {
		per, err := cli.PeriodicityForm(p, u.Location(), time.Now())
		if err != nil {
			return err
		}
		t.Periodicity = &per
	}

	created, err := e.app.Tasks.Create(ctx, t)
	if err != nil {
		return err
	}
	fmt.Printf("Created %s (%s)\n", created.ID, created.Title)
	return nil
}

func taskSchedule(ctx context.Context, e *env, u auth.User, args []string) error {
	fs := flag.NewFlagSet("task schedule", flag.ContinueOnError)
	unset := fs.Bool("clear", false, "remove the periodicity instead of replacing it")
	id, err := taskArg(fs, args)
	if err != nil {
		return err
	}
	t, err := ownedTask(ctx, e, u, id)
	if err != nil {
		return err
	}

	patch := task.Patch{ClearPeriodicity: *unset}
	if !*unset {
		per, err := cli.PeriodicityForm(cli.NewPrompter(os.Stdin, os.Stdout), u.Location(), time.Now())
		if err != nil {
			return err
		}
		patch.Periodicity = &per
	}
	if _, err := e.app.Tasks.Update(ctx, t.ID, patch); err != nil {
		return err
	}
	fmt.Printf("Updated %s\n", t.ID)
	return nil
}

func taskList(ctx context.Context, e *env, u auth.User, w io.Writer, now time.Time) error {
	tasks, err := e.app.Tasks.ListByUser(ctx, u.ID)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks.")
		return nil
	}
	return writeTaskTable(w, tasks, periodicity.NewResolver(e.cfg.MaxWindow()), u.Location(), now)
}

func writeTaskTable(w io.Writer, tasks []task.Task, r periodicity.Resolver, loc *time.Location, now time.Time) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tKIND\tNEXT")
	for _, t := range tasks {
		kind, next := "-", "-"
		if t.HasSchedule() {
			kind = string(t.Periodicity.Kind())
			at, ok, err := r.Next(*t.Periodicity, now)
			switch {
			case err != nil:
				next = "error: " + err.Error()
			case ok:
				next = at.In(loc).Format("Mon 2006-01-02 15:04")
			default:
				next = "done"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, t.Title, kind, next)
	}
	return tw.Flush()
}

func taskRemove(ctx context.Context, e *env, u auth.User, args []string) error {
	id, err := taskArg(flag.NewFlagSet("task rm", flag.ContinueOnError), args)
	if err != nil {
		return err
	}
	if _, err := ownedTask(ctx, e, u, id); err != nil {
		return err
	}
	if err := e.app.Tasks.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Printf("Removed %s\n", id)
	return nil
}

func taskICS(ctx context.Context, e *env, u auth.User, args []string) error {
	fs := flag.NewFlagSet("task ics", flag.ContinueOnError)
	out := fs.String("out", "", "write to this file instead of stdout")
	id, err := taskArg(fs, args)
	if err != nil {
		return err
	}
	t, err := ownedTask(ctx, e, u, id)
	if err != nil {
		return err
	}
	body, err := task.BuildTaskCalendarICS(t, time.Now())
	if err != nil {
		return err
	}
	if *out == "" {
		_, err = io.WriteString(os.Stdout, body)
		return err
	}
	return os.WriteFile(*out, []byte(body), 0o644)
}

func cmdAgenda(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("agenda", flag.ContinueOnError)
	from := fs.String("from", "", "start date (YYYY-MM-DD, default today)")
	to := fs.String("to", "", "end date, exclusive (YYYY-MM-DD)")
	span := fs.String("span", "", "ISO 8601 period when --to is absent (default from config)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()
	u, err := currentUser(ctx, e)
	if err != nil {
		return err
	}
	loc := u.Location()

	if *span == "" {
		*span = e.cfg.Agenda.DefaultSpan
	}
	win, err := agendaWindow(*from, *to, *span, loc, time.Now())
	if err != nil {
		return err
	}
	entries, err := e.app.Agenda.Due(ctx, u.ID, win)
	if err != nil {
		return err
	}
	return writeAgenda(os.Stdout, entries, loc)
}

func agendaWindow(from, to, span string, loc *time.Location, now time.Time) (periodicity.Window, error) {
	start := agenda.StartOfDay(now, loc)
	if from != "" {
		t, err := time.ParseInLocation("2006-01-02", from, loc)
		if err != nil {
			return periodicity.Window{}, fmt.Errorf("bad --from: %w", err)
		}
		start = t
	}
	if to != "" {
		end, err := time.ParseInLocation("2006-01-02", to, loc)
		if err != nil {
			return periodicity.Window{}, fmt.Errorf("bad --to: %w", err)
		}
		return periodicity.Window{From: start, To: end}, nil
	}
	p, err := agenda.ParseSpan(span)
	if err != nil {
		return periodicity.Window{}, err
	}
	return agenda.SpanWindow(start, p)
}

func writeAgenda(w io.Writer, entries []agenda.Entry, loc *time.Location) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, "Nothing due.")
		return err
	}
	day := ""
	for _, en := range entries {
		at := en.At.In(loc)
		if d := at.Format("Monday 2 January 2006"); d != day {
			if day != "" {
				fmt.Fprintln(w)
			}
			day = d
			fmt.Fprintln(w, d)
		}
		if _, err := fmt.Fprintf(w, "  %s  %s\n", at.Format("15:04"), en.Title); err != nil {
			return err
		}
	}
	return nil
}
