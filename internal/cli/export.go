package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/julianstephens/agenda/internal/ics"
	"github.com/julianstephens/agenda/internal/models"
)

// ExportCmd writes every schedule as an iCalendar feed
type ExportCmd struct {
	Output    string `short:"o" help:"Write to this file instead of stdout." type:"path"`
	Confirmed bool   `help:"Leave pending schedules out."`
}

func (c *ExportCmd) Run(ctx *Context) error {
	all, err := ctx.Store.List()
	if err != nil {
		return err
	}

	schedules := make([]models.Schedule, 0, len(all))
	for _, s := range all {
		if c.Confirmed && !s.IsConfirmed() {
			continue
		}
		schedules = append(schedules, s)
	}

	var w io.Writer = ctx.out()
	if c.Output != "" {
		f, err := os.OpenFile(c.Output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", c.Output, err)
		}
		defer f.Close()
		w = f
	}

	if err := ics.Export(w, schedules, ctx.location(), ctx.now()); err != nil {
		return err
	}
	if c.Output != "" {
		ctx.printf("Exported %s to %s\n", formatCount(len(schedules), "schedule"), c.Output)
	}
	return nil
}
