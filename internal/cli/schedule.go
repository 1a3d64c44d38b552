package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/julianstephens/agenda/internal/conflict"
	"github.com/julianstephens/agenda/internal/constants"
	"github.com/julianstephens/agenda/internal/manager"
	"github.com/julianstephens/agenda/internal/models"
	"github.com/julianstephens/agenda/internal/recurrence"
	"github.com/julianstephens/agenda/internal/utils"
)

// ScheduleFlags are shared by every command that files a new schedule
type ScheduleFlags struct {
	Title       string            `arg:"" help:"Schedule title."`
	Type        string            `short:"t" help:"Schedule type (recurring|appointment|impromptu)." enum:"recurring,appointment,impromptu" default:"appointment"`
	Date        string            `short:"d" help:"Date, or first date of a recurring schedule (YYYY-MM-DD, today, tomorrow)." default:"today"`
	Start       string            `short:"s" help:"Start time (HH:MM)." required:""`
	End         string            `short:"e" help:"End time (HH:MM)." required:""`
	Recurrence  string            `short:"r" help:"Recurrence pattern (none|daily|weekly|weekdays|weekends|monthly|custom)." enum:"none,daily,weekly,weekdays,weekends,monthly,custom" default:"none"`
	Weekdays    string            `short:"w" help:"Comma-separated weekdays for the custom pattern."`
	Until       string            `help:"Last date of a recurring schedule (YYYY-MM-DD)."`
	Priority    string            `short:"p" help:"Priority override (low|medium|high|critical or 1-4)."`
	Location    string            `short:"l" help:"Where it happens."`
	Description string            `help:"Longer description."`
	Meta        map[string]string `help:"Extra metadata as key=value pairs."`
}

func (f ScheduleFlags) input(ctx *Context, source string) (models.ScheduleInput, error) {
	date, err := ctx.parseDate(f.Date)
	if err != nil {
		return models.ScheduleInput{}, fmt.Errorf("invalid date: %w", err)
	}

	in := models.ScheduleInput{
		Title:       f.Title,
		Description: f.Description,
		Type:        models.ScheduleType(f.Type),
		Date:        utils.FormatDate(date),
		StartTime:   f.Start,
		EndTime:     f.End,
		Location:    f.Location,
		Recurrence:  models.Recurrence{Pattern: models.RecurrencePattern(f.Recurrence)},
		Metadata:    map[string]string{constants.MetadataSource: source},
	}
	for k, v := range f.Meta {
		in.Metadata[k] = v
	}

	if f.Weekdays != "" {
		days, err := parseWeekdays(f.Weekdays)
		if err != nil {
			return models.ScheduleInput{}, err
		}
		in.Recurrence.Weekdays = days
	}
	if f.Until != "" {
		until, err := ctx.parseDate(f.Until)
		if err != nil {
			return models.ScheduleInput{}, fmt.Errorf("invalid --until: %w", err)
		}
		in.Recurrence.EndDate = utils.FormatDate(until)
	}
	if f.Priority != "" {
		p, err := models.ParsePriority(f.Priority)
		if err != nil {
			return models.ScheduleInput{}, err
		}
		in.Priority = &p
	}
	return in, nil
}

// withOverride runs op and, when it fails on an equal-priority conflict,
// offers to retry it with ForceOverride.
func (ctx *Context) withOverride(force bool, op func(opts ...manager.AddOption) (models.Schedule, error)) (models.Schedule, error) {
	if force {
		return op(manager.ForceOverride())
	}

	s, err := op()
	ce, ok := conflict.AsConflict(err)
	if !ok || !ce.Ambiguous() {
		return s, err
	}

	ok, promptErr := ctx.confirm("Override?", err.Error())
	if promptErr != nil {
		return models.Schedule{}, promptErr
	}
	if !ok {
		return models.Schedule{}, err
	}
	return op(manager.ForceOverride())
}

type AddCmd struct {
	ScheduleFlags `embed:""`
	Force         bool `short:"f" help:"Supersede schedules of equal priority without asking."`
}

func (c *AddCmd) Run(ctx *Context) error {
	in, err := c.input(ctx, "cli")
	if err != nil {
		return err
	}

	if in.Type == models.ScheduleTypeImpromptu && ctx.Config != nil && ctx.Config.ImpromptuRequiresConfirmation {
		var s models.Schedule
		err = ctx.mutate(func() error {
			s, err = ctx.Manager.RequestConfirmation(in)
			return err
		})
		if err != nil {
			return err
		}
		ctx.printf("Awaiting confirmation: %s (ID: %s)\n", manager.FormatEntry(s), s.ID)
		ctx.printf("Run 'agenda confirm %s' to add it.\n", s.ID)
		return nil
	}

	var s models.Schedule
	err = ctx.mutate(func() error {
		s, err = ctx.withOverride(c.Force, func(opts ...manager.AddOption) (models.Schedule, error) {
			return ctx.Manager.Add(in, opts...)
		})
		return err
	})
	if err != nil {
		return err
	}

	ctx.printf("Added %s: %s on %s (ID: %s)\n", s.Type, manager.FormatEntry(s), s.Date, s.ID)
	return nil
}

type EditCmd struct {
	ID          string            `arg:"" help:"Schedule ID."`
	Title       string            `help:"New title."`
	Type        string            `short:"t" help:"New type."`
	Date        string            `short:"d" help:"New date (YYYY-MM-DD, today, tomorrow)."`
	Start       string            `short:"s" help:"New start time (HH:MM)."`
	End         string            `short:"e" help:"New end time (HH:MM)."`
	Recurrence  string            `short:"r" help:"New recurrence pattern."`
	Weekdays    string            `short:"w" help:"New weekdays for the custom pattern."`
	Until       string            `help:"New last date of a recurring schedule (YYYY-MM-DD, or 'none' to clear)."`
	Priority    string            `short:"p" help:"New priority (low|medium|high|critical or 1-4)."`
	Location    string            `short:"l" help:"New location."`
	Description string            `help:"New description."`
	Meta        map[string]string `help:"Metadata to set; an empty value removes the key."`
	Force       bool              `short:"f" help:"Supersede schedules of equal priority without asking."`
}

func (c *EditCmd) patch(ctx *Context, current models.Schedule) (models.SchedulePatch, error) {
	var p models.SchedulePatch

	if c.Title != "" {
		p.Title = &c.Title
	}
	if c.Type != "" {
		t := models.ScheduleType(c.Type)
		p.Type = &t
	}
	if c.Date != "" {
		d, err := ctx.parseDate(c.Date)
		if err != nil {
			return p, fmt.Errorf("invalid date: %w", err)
		}
		ds := utils.FormatDate(d)
		p.Date = &ds
	}
	if c.Start != "" {
		p.StartTime = &c.Start
	}
	if c.End != "" {
		p.EndTime = &c.End
	}
	if c.Location != "" {
		p.Location = &c.Location
	}
	if c.Description != "" {
		p.Description = &c.Description
	}
	if c.Priority != "" {
		pr, err := models.ParsePriority(c.Priority)
		if err != nil {
			return p, err
		}
		p.Priority = &pr
	}
	p.Metadata = c.Meta

	if c.Recurrence != "" || c.Weekdays != "" || c.Until != "" {
		rec := current.Recurrence
		rec.Weekdays = append([]time.Weekday(nil), rec.Weekdays...)
		if c.Recurrence != "" {
			rec.Pattern = models.RecurrencePattern(c.Recurrence)
			if rec.Pattern != models.RecurrenceCustom {
				rec.Weekdays = nil
			}
			if rec.Pattern == models.RecurrenceNone {
				rec.EndDate = ""
			}
		}
		if c.Weekdays != "" {
			days, err := parseWeekdays(c.Weekdays)
			if err != nil {
				return p, err
			}
			rec.Weekdays = days
		}
		switch strings.ToLower(c.Until) {
		case "":
		case "none":
			rec.EndDate = ""
		default:
			until, err := ctx.parseDate(c.Until)
			if err != nil {
				return p, fmt.Errorf("invalid --until: %w", err)
			}
			rec.EndDate = utils.FormatDate(until)
		}
		p.Recurrence = &rec
	}

	return p, nil
}

func (c *EditCmd) Run(ctx *Context) error {
	var s models.Schedule
	err := ctx.mutate(func() error {
		current, err := ctx.Manager.Get(c.ID)
		if err != nil {
			return err
		}
		patch, err := c.patch(ctx, current)
		if err != nil {
			return err
		}
		s, err = ctx.withOverride(c.Force, func(opts ...manager.AddOption) (models.Schedule, error) {
			return ctx.Manager.Update(c.ID, patch, opts...)
		})
		return err
	})
	if err != nil {
		return err
	}

	ctx.printf("Updated %s: %s on %s\n", s.ID, manager.FormatEntry(s), s.Date)
	return nil
}

type DeleteCmd struct {
	ID string `arg:"" help:"Schedule ID."`
}

func (c *DeleteCmd) Run(ctx *Context) error {
	s, err := ctx.Manager.Get(c.ID)
	if err != nil {
		return err
	}

	what := "this schedule"
	if s.IsRecurring() {
		what = "every occurrence of this schedule"
	}
	ok, err := ctx.confirm(fmt.Sprintf("Delete %q?", s.Title), "This removes "+what+".")
	if err != nil {
		return err
	}
	if !ok {
		ctx.printf("Delete cancelled.\n")
		return nil
	}

	if err := ctx.mutate(func() error { return ctx.Manager.Delete(c.ID) }); err != nil {
		return err
	}
	ctx.printf("Deleted %s (%s)\n", s.Title, s.ID)
	return nil
}

type ShowCmd struct {
	ID string `arg:"" help:"Schedule ID."`
}

func (c *ShowCmd) Run(ctx *Context) error {
	s, err := ctx.Manager.Get(c.ID)
	if err != nil {
		return err
	}

	ctx.printf("ID:          %s\n", s.ID)
	ctx.printf("Title:       %s\n", s.Title)
	ctx.printf("Type:        %s\n", s.Type)
	ctx.printf("Priority:    %s\n", s.Priority)
	ctx.printf("State:       %s\n", s.State)
	ctx.printf("Date:        %s\n", s.Date)
	ctx.printf("Time:        %s-%s\n", s.StartTime, s.EndTime)
	if s.Location != "" {
		ctx.printf("Location:    %s\n", s.Location)
	}
	if s.Description != "" {
		ctx.printf("Description: %s\n", s.Description)
	}
	if s.IsRecurring() {
		pattern := string(s.Recurrence.Pattern)
		if len(s.Recurrence.Weekdays) > 0 {
			pattern += " (" + formatWeekdays(s.Recurrence.Weekdays) + ")"
		}
		ctx.printf("Recurrence:  %s\n", pattern)
		if s.Recurrence.EndDate != "" {
			ctx.printf("Until:       %s\n", s.Recurrence.EndDate)
		}
		if rule, err := recurrence.RRuleString(s); err == nil {
			ctx.printf("RRULE:       %s\n", rule)
		}
	}
	if len(s.Exceptions) > 0 {
		ctx.printf("Exceptions:  %s\n", strings.Join(s.Exceptions, ", "))
	}
	if len(s.Metadata) > 0 {
		keys := make([]string, 0, len(s.Metadata))
		for k := range s.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		ctx.printf("Metadata:\n")
		for _, k := range keys {
			ctx.printf("  %s=%s\n", k, s.Metadata[k])
		}
	}
	return nil
}

type ListCmd struct {
	Type string `short:"t" help:"Only list this type."`
}

func (c *ListCmd) Run(ctx *Context) error {
	all, err := ctx.Store.List()
	if err != nil {
		return err
	}

	var shown []models.Schedule
	for _, s := range all {
		if c.Type == "" || string(s.Type) == c.Type {
			shown = append(shown, s)
		}
	}
	if len(shown) == 0 {
		ctx.printf("No schedules found.\n")
		return nil
	}

	sort.SliceStable(shown, func(i, j int) bool {
		if shown[i].Date != shown[j].Date {
			return shown[i].Date < shown[j].Date
		}
		return shown[i].StartMinutes() < shown[j].StartMinutes()
	})

	for _, s := range shown {
		when := s.Date
		if s.IsRecurring() {
			when = fmt.Sprintf("%s from %s", s.Recurrence.Pattern, s.Date)
		}
		state := ""
		if !s.IsConfirmed() {
			state = " [pending]"
		}
		ctx.printf("%s  %s  %s  (%s, %s)%s\n", s.ID, when, manager.FormatEntry(s), s.Type, s.Priority, state)
	}
	return nil
}
