package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/agenda/internal/models"
	"github.com/julianstephens/agenda/internal/storage"
)

const scheduleColumns = `id, title, description, type, priority, priority_explicit, date,
		       start_time, end_time, recurrence_pattern, recurrence_weekdays,
		       recurrence_end_date, location, state, metadata, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedule(row rowScanner) (models.Schedule, error) {
	var (
		s                    models.Schedule
		typ, pattern, state  string
		weekdays, metadata   string
		createdAt, updatedAt string
		explicit             bool
	)

	err := row.Scan(
		&s.ID, &s.Title, &s.Description, &typ, &s.Priority, &explicit, &s.Date,
		&s.StartTime, &s.EndTime, &pattern, &weekdays,
		&s.Recurrence.EndDate, &s.Location, &state, &metadata, &createdAt, &updatedAt,
	)
	if err != nil {
		return models.Schedule{}, err
	}

	s.Type = models.ScheduleType(typ)
	s.State = models.ConfirmationState(state)
	s.Recurrence.Pattern = models.RecurrencePattern(pattern)
	s.PriorityExplicit = explicit

	if s.Recurrence.Weekdays, err = storage.DecodeWeekdays(weekdays); err != nil {
		return models.Schedule{}, err
	}
	if s.Metadata, err = storage.DecodeMetadata(metadata); err != nil {
		return models.Schedule{}, err
	}
	if s.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return models.Schedule{}, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	if s.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return models.Schedule{}, fmt.Errorf("invalid updated_at %q: %w", updatedAt, err)
	}

	return s, nil
}

func (s *Store) Save(schedule models.Schedule) error {
	weekdays, err := storage.EncodeWeekdays(schedule.Recurrence.Weekdays)
	if err != nil {
		return err
	}
	metadata, err := storage.EncodeMetadata(schedule.Metadata)
	if err != nil {
		return err
	}

	_, err = s.q().Exec(`
		INSERT INTO schedules (
			id, title, description, type, priority, priority_explicit, date,
			start_time, end_time, recurrence_pattern, recurrence_weekdays,
			recurrence_end_date, location, state, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			type = excluded.type,
			priority = excluded.priority,
			priority_explicit = excluded.priority_explicit,
			date = excluded.date,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			recurrence_pattern = excluded.recurrence_pattern,
			recurrence_weekdays = excluded.recurrence_weekdays,
			recurrence_end_date = excluded.recurrence_end_date,
			location = excluded.location,
			state = excluded.state,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at`,
		schedule.ID, schedule.Title, schedule.Description, string(schedule.Type), int(schedule.Priority),
		schedule.PriorityExplicit, schedule.Date, schedule.StartTime, schedule.EndTime,
		string(schedule.Recurrence.Pattern), weekdays, schedule.Recurrence.EndDate,
		schedule.Location, string(schedule.State), metadata,
		schedule.CreatedAt.UTC().Format(time.RFC3339Nano), schedule.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to save schedule %s: %w", schedule.ID, err)
	}
	return nil
}

func (s *Store) Delete(id string) error {
	// Exceptions go first in case foreign keys are off for this connection
	if _, err := s.q().Exec("DELETE FROM schedule_exceptions WHERE schedule_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete exceptions of %s: %w", id, err)
	}

	result, err := s.q().Exec("DELETE FROM schedules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete schedule %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: schedule %s", storage.ErrNotFound, id)
	}
	return nil
}

func (s *Store) Get(id string) (models.Schedule, error) {
	row := s.q().QueryRow("SELECT "+scheduleColumns+" FROM schedules WHERE id = ?", id)
	schedule, err := scanSchedule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Schedule{}, fmt.Errorf("%w: schedule %s", storage.ErrNotFound, id)
		}
		return models.Schedule{}, fmt.Errorf("failed to get schedule %s: %w", id, err)
	}

	exceptions, err := s.exceptionsFor([]string{id})
	if err != nil {
		return models.Schedule{}, err
	}
	schedule.Exceptions = exceptions[id]
	return schedule, nil
}

func (s *Store) ListByDateRange(start, end time.Time) ([]models.Schedule, error) {
	from, to := storage.RangeBounds(start, end)
	return s.list(`
		WHERE (recurrence_pattern = 'none' AND date >= ? AND date <= ?)
		   OR (recurrence_pattern != 'none' AND date <= ?
		       AND (recurrence_end_date = '' OR recurrence_end_date >= ?))`,
		from, to, to, from)
}

func (s *Store) List() ([]models.Schedule, error) {
	return s.list("")
}

func (s *Store) list(where string, args ...any) ([]models.Schedule, error) {
	rows, err := s.q().Query("SELECT "+scheduleColumns+" FROM schedules "+where+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}
	defer rows.Close()

	schedules := make([]models.Schedule, 0)
	ids := make([]string, 0)
	for rows.Next() {
		schedule, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, schedule)
		ids = append(ids, schedule.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Release the connection before the follow-up query
	rows.Close()

	exceptions, err := s.exceptionsFor(ids)
	if err != nil {
		return nil, err
	}
	for i := range schedules {
		schedules[i].Exceptions = exceptions[schedules[i].ID]
	}
	return schedules, nil
}

// exceptionBatch stays well under SQLite's bound-parameter limit
const exceptionBatch = 500

// exceptionsFor loads the exception dates of ids, sorted per schedule
func (s *Store) exceptionsFor(ids []string) (map[string][]string, error) {
	out := make(map[string][]string)
	for start := 0; start < len(ids); start += exceptionBatch {
		end := start + exceptionBatch
		if end > len(ids) {
			end = len(ids)
		}
		if err := s.loadExceptions(ids[start:end], out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) loadExceptions(ids []string, out map[string][]string) error {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")

	rows, err := s.q().Query(
		"SELECT schedule_id, date FROM schedule_exceptions WHERE schedule_id IN ("+placeholders+") ORDER BY schedule_id, date",
		args...)
	if err != nil {
		return fmt.Errorf("failed to load exceptions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, date string
		if err := rows.Scan(&id, &date); err != nil {
			return err
		}
		out[id] = append(out[id], date)
	}
	return rows.Err()
}

func (s *Store) AddException(ex models.Exception) error {
	var exists int
	err := s.q().QueryRow("SELECT COUNT(*) FROM schedules WHERE id = ?", ex.ScheduleID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to look up schedule %s: %w", ex.ScheduleID, err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: schedule %s", storage.ErrNotFound, ex.ScheduleID)
	}

	createdAt := ex.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.q().Exec(`
		INSERT INTO schedule_exceptions (schedule_id, date, reason, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(schedule_id, date) DO NOTHING`,
		ex.ScheduleID, ex.Date, ex.Reason, createdAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to add exception for %s on %s: %w", ex.ScheduleID, ex.Date, err)
	}
	return nil
}
