package manager

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	apperrors "github.com/julianstephens/agenda/internal/errors"
	"github.com/julianstephens/agenda/internal/logger"
	"github.com/julianstephens/agenda/internal/models"
	"github.com/julianstephens/agenda/internal/utils"
)

// SimilarityJudge decides whether two schedules describe the same
// real-world event. Its answer is advisory and never affects priorities.
type SimilarityJudge interface {
	IsSimilar(a, b models.Schedule, context string) (bool, error)
}

// JudgeFunc adapts a function to SimilarityJudge
type JudgeFunc func(a, b models.Schedule, context string) (bool, error)

func (f JudgeFunc) IsSimilar(a, b models.Schedule, context string) (bool, error) {
	return f(a, b, context)
}

// TitleJudge treats two schedules as the same event when their titles match
// after folding case, accents and whitespace, and their times overlap.
type TitleJudge struct{}

func (TitleJudge) IsSimilar(a, b models.Schedule, _ string) (bool, error) {
	return FoldTitle(a.Title) == FoldTitle(b.Title) && a.Overlaps(b), nil
}

// FoldTitle normalizes a title for comparison: "  Café  Run" -> "cafe run"
func FoldTitle(title string) string {
	stripMarks := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(stripMarks, title)
	if err != nil {
		folded = title
	}
	folded = cases.Fold().String(folded)
	return strings.Join(strings.Fields(folded), " ")
}

// Suggestion is the outcome of SuggestImpromptu. Either Duplicate is set
// and Similar names the matching schedule, or Schedule holds the new
// pending record.
type Suggestion struct {
	Duplicate bool
	Similar   models.Schedule
	Schedule  models.Schedule
}

// SuggestImpromptu files an impromptu idea for confirmation unless the
// similarity judge finds an equivalent confirmed or pending schedule on
// the same date.
func (m *Manager) SuggestImpromptu(in models.ScheduleInput, context string) (Suggestion, error) {
	in.Type = models.ScheduleTypeImpromptu
	in.Recurrence = models.Recurrence{Pattern: models.RecurrenceNone}

	candidate, err := models.NewSchedule("", in, m.now())
	if err != nil {
		return Suggestion{}, err
	}

	if m.judge != nil {
		day, err := utils.ParseDate(candidate.Date)
		if err != nil {
			return Suggestion{}, apperrors.Invalid("date", "expected YYYY-MM-DD, got %q", candidate.Date)
		}
		existing, err := m.store.ListByDateRange(day, day)
		if err != nil {
			return Suggestion{}, err
		}

		for _, e := range existing {
			if !e.AppliesOn(day) {
				continue
			}
			similar, err := m.judge.IsSimilar(candidate, e, context)
			if err != nil {
				return Suggestion{}, err
			}
			if similar {
				logger.Debug("Suggestion dropped as duplicate", "title", candidate.Title, "similar_to", e.ID)
				return Suggestion{Duplicate: true, Similar: e}, nil
			}
		}
	}

	pending, err := m.RequestConfirmation(in)
	if err != nil {
		return Suggestion{}, err
	}
	return Suggestion{Schedule: pending}, nil
}
