package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/agenda/internal/manager"
	"github.com/julianstephens/agenda/internal/scheduler"
	"github.com/julianstephens/agenda/internal/utils"
)

var (
	dayHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	bucketStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("111"))
	entryStyle     = lipgloss.NewStyle().PaddingLeft(2)
	metaStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

type DayCmd struct {
	Date string `arg:"" help:"Date to show (YYYY-MM-DD, today or tomorrow)." default:"today"`
}

func (c *DayCmd) Run(ctx *Context) error {
	date, err := ctx.parseDate(c.Date)
	if err != nil {
		return fmt.Errorf("invalid date format, use YYYY-MM-DD or 'today': %w", err)
	}

	schedules, err := ctx.Manager.SchedulesForDate(date)
	if err != nil {
		return err
	}

	ctx.printf("%s\n", dayHeaderStyle.Render(fmt.Sprintf("%s (%s)", utils.FormatDate(date), date.Weekday())))
	if len(schedules) == 0 {
		ctx.printf("  No schedules.\n")
		return nil
	}

	groups := manager.GroupByBucket(schedules)
	for _, bucket := range manager.Buckets {
		entries := groups[bucket]
		if len(entries) == 0 {
			continue
		}
		ctx.printf("%s\n", bucketStyle.Render(string(bucket)))
		for _, s := range entries {
			line := entryStyle.Render(manager.FormatEntry(s))
			meta := metaStyle.Render(fmt.Sprintf("[%s, %s] %s", s.Type, s.Priority, s.ID))
			ctx.printf("%s %s\n", line, meta)
		}
	}
	return nil
}

// SummaryCmd prints the plain-text day summary used as dialogue context
type SummaryCmd struct {
	Date string `arg:"" help:"Date to summarize (YYYY-MM-DD, today or tomorrow)." default:"today"`
}

func (c *SummaryCmd) Run(ctx *Context) error {
	date, err := ctx.parseDate(c.Date)
	if err != nil {
		return fmt.Errorf("invalid date format, use YYYY-MM-DD or 'today': %w", err)
	}

	summary, err := ctx.Manager.SummaryForDate(date)
	if err != nil {
		return err
	}
	ctx.printf("%s", summary)
	return nil
}

// FreeCmd lists the gaps between a day's confirmed schedules
type FreeCmd struct {
	Date     string `arg:"" help:"Date to inspect (YYYY-MM-DD, today or tomorrow)." default:"today"`
	From     string `help:"Start of the window (HH:MM)." default:"08:00"`
	To       string `help:"End of the window (HH:MM)." default:"22:00"`
	Min      int    `help:"Shortest gap worth listing, in minutes." default:"15"`
	Duration int    `short:"n" help:"Only print the first gap that fits this many minutes."`
}

func (c *FreeCmd) Run(ctx *Context) error {
	date, err := ctx.parseDate(c.Date)
	if err != nil {
		return fmt.Errorf("invalid date format, use YYYY-MM-DD or 'today': %w", err)
	}
	schedules, err := ctx.Manager.SchedulesForDate(date)
	if err != nil {
		return err
	}

	if c.Duration > 0 {
		slot, ok, err := scheduler.FirstFit(schedules, c.From, c.To, c.Duration)
		if err != nil {
			return err
		}
		if !ok {
			ctx.printf("No free %d-minute slot on %s between %s and %s.\n", c.Duration, utils.FormatDate(date), c.From, c.To)
			return nil
		}
		ctx.printf("%s-%s\n", slot.Start, slot.End)
		return nil
	}

	slots, err := scheduler.FreeSlots(schedules, c.From, c.To, c.Min)
	if err != nil {
		return err
	}
	ctx.printf("Free time on %s (%s-%s):\n", utils.FormatDate(date), c.From, c.To)
	if len(slots) == 0 {
		ctx.printf("  None.\n")
		return nil
	}
	for _, s := range slots {
		ctx.printf("  %s-%s  (%d min)\n", s.Start, s.End, s.Minutes)
	}
	return nil
}
