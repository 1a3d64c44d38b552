package cli

import (
	"encoding/json"
	"fmt"

	"github.com/julianstephens/agenda/internal/manager"
	"github.com/julianstephens/agenda/internal/models"
)

type StatsCmd struct {
	JSON bool `help:"Print the statistics as JSON."`
}

func (c *StatsCmd) Run(ctx *Context) error {
	stats, err := ctx.Manager.Statistics()
	if err != nil {
		return err
	}

	if c.JSON {
		enc := json.NewEncoder(ctx.out())
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	ctx.printf("Schedules: %d\n", stats.Total)
	ctx.printf("\nBy type:\n")
	for _, t := range []models.ScheduleType{models.ScheduleTypeRecurring, models.ScheduleTypeAppointment, models.ScheduleTypeImpromptu} {
		ctx.printf("  %-12s %d\n", t, stats.ByType[t])
	}
	ctx.printf("\nBy priority:\n")
	for p := models.PriorityCritical; p >= models.PriorityLow; p-- {
		ctx.printf("  %-12s %d\n", p, stats.ByPriority[p])
	}
	ctx.printf("\nBy state:\n")
	for _, st := range []models.ConfirmationState{models.StateConfirmed, models.StatePending} {
		ctx.printf("  %-12s %d\n", st, stats.ByState[st])
	}
	ctx.printf("\nSuppressed occurrences: %d\n", stats.Exceptions)
	return nil
}

type UpcomingCmd struct {
	From string `help:"First date (YYYY-MM-DD, today or tomorrow)." default:"today"`
	Days int    `short:"n" help:"Number of days to show." default:"7"`
}

func (c *UpcomingCmd) Validate() error {
	if c.Days < 1 || c.Days > 366 {
		return fmt.Errorf("days must be between 1 and 366")
	}
	return nil
}

func (c *UpcomingCmd) Run(ctx *Context) error {
	from, err := ctx.parseDate(c.From)
	if err != nil {
		return fmt.Errorf("invalid --from: %w", err)
	}
	to := from.AddDate(0, 0, c.Days-1)

	occ, err := ctx.Manager.Occurrences(from, to)
	if err != nil {
		return err
	}
	if len(occ) == 0 {
		ctx.printf("Nothing scheduled in the next %s.\n", formatCount(c.Days, "day"))
		return nil
	}

	current := ""
	for _, o := range occ {
		if o.Date != current {
			if current != "" {
				ctx.printf("\n")
			}
			current = o.Date
			ctx.printf("%s\n", o.Date)
		}
		ctx.printf("  %s\n", manager.FormatEntry(o.Schedule))
	}
	return nil
}
