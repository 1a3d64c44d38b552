package cli

import (
	"fmt"

	"github.com/julianstephens/agenda/internal/manager"
	"github.com/julianstephens/agenda/internal/models"
)

type PendingCmd struct{}

func (c *PendingCmd) Run(ctx *Context) error {
	pending, err := ctx.Manager.Pending()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		ctx.printf("Nothing awaiting confirmation.\n")
		return nil
	}

	ctx.printf("Awaiting confirmation (%d):\n", len(pending))
	for _, s := range pending {
		ctx.printf("  %s  %s  %s  (%s, %s)\n", s.ID, s.Date, manager.FormatEntry(s), s.Type, s.Priority)
	}
	return nil
}

// RequestCmd files a schedule as pending without checking conflicts
type RequestCmd struct {
	ScheduleFlags `embed:""`
}

func (c *RequestCmd) Run(ctx *Context) error {
	in, err := c.input(ctx, "request")
	if err != nil {
		return err
	}

	var s models.Schedule
	err = ctx.mutate(func() error {
		s, err = ctx.Manager.RequestConfirmation(in)
		return err
	})
	if err != nil {
		return err
	}
	ctx.printf("Awaiting confirmation: %s on %s (ID: %s)\n", manager.FormatEntry(s), s.Date, s.ID)
	return nil
}

// SuggestCmd files an impromptu idea unless an equivalent schedule exists
type SuggestCmd struct {
	ScheduleFlags `embed:""`
	Context       string `help:"Free-form context passed to the similarity check."`
}

func (c *SuggestCmd) Run(ctx *Context) error {
	in, err := c.input(ctx, "suggestion")
	if err != nil {
		return err
	}

	var res manager.Suggestion
	err = ctx.mutate(func() error {
		res, err = ctx.Manager.SuggestImpromptu(in, c.Context)
		return err
	})
	if err != nil {
		return err
	}

	if res.Duplicate {
		state := "already scheduled"
		if !res.Similar.IsConfirmed() {
			state = "already awaiting confirmation"
		}
		ctx.printf("Skipped: %s is %s (ID: %s)\n", manager.FormatEntry(res.Similar), state, res.Similar.ID)
		return nil
	}
	ctx.printf("Suggested: %s on %s (ID: %s)\n", manager.FormatEntry(res.Schedule), res.Schedule.Date, res.Schedule.ID)
	return nil
}

type ConfirmCmd struct {
	ID    string `arg:"" help:"ID of the pending schedule."`
	Force bool   `short:"f" help:"Supersede schedules of equal priority without asking."`
}

func (c *ConfirmCmd) Run(ctx *Context) error {
	var s models.Schedule
	err := ctx.mutate(func() error {
		var err error
		s, err = ctx.withOverride(c.Force, func(opts ...manager.AddOption) (models.Schedule, error) {
			return ctx.Manager.Confirm(c.ID, opts...)
		})
		return err
	})
	if err != nil {
		return err
	}
	ctx.printf("Confirmed: %s on %s\n", manager.FormatEntry(s), s.Date)
	return nil
}

type RejectCmd struct {
	ID string `arg:"" help:"ID of the pending schedule."`
}

func (c *RejectCmd) Run(ctx *Context) error {
	if err := ctx.mutate(func() error { return ctx.Manager.Reject(c.ID) }); err != nil {
		return err
	}
	ctx.printf("Rejected %s\n", c.ID)
	return nil
}

func formatCount(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
