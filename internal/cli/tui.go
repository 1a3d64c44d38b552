package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/agenda/internal/tui"
)

type TuiCmd struct {
	Date string `arg:"" optional:"" help:"Date to open on (YYYY-MM-DD, today or tomorrow)." default:"today"`
}

func (c *TuiCmd) Run(ctx *Context) error {
	date, err := ctx.parseDate(c.Date)
	if err != nil {
		return err
	}

	ctx.PerformAutomaticBackup()

	p := tea.NewProgram(tui.NewModel(ctx.Manager, date, ctx.now), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("tui exited with error: %w", err)
	}
	return nil
}
