// Package scheduler finds the free time left around a day's confirmed
// schedules.
package scheduler

import (
	"fmt"
	"sort"

	"github.com/julianstephens/agenda/internal/models"
	"github.com/julianstephens/agenda/internal/utils"
)

// Slot is a free stretch of time within a day
type Slot struct {
	Start   string // HH:MM format
	End     string // HH:MM format
	Minutes int
}

type timeBlock struct {
	start int // minutes from midnight
	end   int // minutes from midnight
}

// FreeSlots returns the gaps of at least minMinutes between schedules
// inside the [windowStart, windowEnd) window. Schedules may overlap or
// spill over the window edges.
func FreeSlots(schedules []models.Schedule, windowStart, windowEnd string, minMinutes int) ([]Slot, error) {
	start, err := utils.ParseTimeToMinutes(windowStart)
	if err != nil {
		return nil, fmt.Errorf("invalid window start: %w", err)
	}
	end, err := utils.ParseTimeToMinutes(windowEnd)
	if err != nil {
		return nil, fmt.Errorf("invalid window end: %w", err)
	}
	if end <= start {
		return nil, fmt.Errorf("window end (%s) must be after window start (%s)", windowEnd, windowStart)
	}
	if minMinutes < 1 {
		minMinutes = 1
	}

	var slots []Slot
	for _, b := range findFreeBlocks(start, end, busyBlocks(schedules)) {
		if b.end-b.start < minMinutes {
			continue
		}
		slots = append(slots, Slot{
			Start:   formatTime(b.start),
			End:     formatTime(b.end),
			Minutes: b.end - b.start,
		})
	}
	return slots, nil
}

// FirstFit returns the earliest free slot of exactly durationMin minutes
// inside the window, or false when nothing fits.
func FirstFit(schedules []models.Schedule, windowStart, windowEnd string, durationMin int) (Slot, bool, error) {
	if durationMin < 1 {
		return Slot{}, false, fmt.Errorf("duration must be positive, got %d", durationMin)
	}

	free, err := FreeSlots(schedules, windowStart, windowEnd, durationMin)
	if err != nil {
		return Slot{}, false, err
	}
	if len(free) == 0 {
		return Slot{}, false, nil
	}

	start, _ := utils.ParseTimeToMinutes(free[0].Start)
	return Slot{
		Start:   free[0].Start,
		End:     formatTime(start + durationMin),
		Minutes: durationMin,
	}, true, nil
}

func busyBlocks(schedules []models.Schedule) []timeBlock {
	blocks := make([]timeBlock, 0, len(schedules))
	for _, s := range schedules {
		start, end := s.StartMinutes(), s.EndMinutes()
		if start < 0 || end <= start {
			continue
		}
		blocks = append(blocks, timeBlock{start: start, end: end})
	}
	sort.Slice(blocks, func(i, j int) bool {
		return blocks[i].start < blocks[j].start
	})
	return blocks
}

// findFreeBlocks walks busy blocks sorted by start and returns the gaps
func findFreeBlocks(dayStart, dayEnd int, busy []timeBlock) []timeBlock {
	var blocks []timeBlock
	currentStart := dayStart

	for _, b := range busy {
		if b.start >= dayEnd {
			break
		}
		if currentStart < b.start {
			blocks = append(blocks, timeBlock{start: currentStart, end: b.start})
		}
		if b.end > currentStart {
			currentStart = b.end
		}
	}

	if currentStart < dayEnd {
		blocks = append(blocks, timeBlock{start: currentStart, end: dayEnd})
	}
	return blocks
}

func formatTime(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
