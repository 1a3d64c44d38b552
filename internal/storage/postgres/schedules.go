package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	pq "github.com/lib/pq"

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
		s                   models.Schedule
		typ, pattern, state string
		weekdays, metadata  string
	)

	err := row.Scan(
		&s.ID, &s.Title, &s.Description, &typ, &s.Priority, &s.PriorityExplicit, &s.Date,
		&s.StartTime, &s.EndTime, &pattern, &weekdays,
		&s.Recurrence.EndDate, &s.Location, &state, &metadata, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return models.Schedule{}, err
	}

	s.Type = models.ScheduleType(typ)
	s.State = models.ConfirmationState(state)
	s.Recurrence.Pattern = models.RecurrencePattern(pattern)

	if s.Recurrence.Weekdays, err = storage.DecodeWeekdays(weekdays); err != nil {
		return models.Schedule{}, err
	}
	if s.Metadata, err = storage.DecodeMetadata(metadata); err != nil {
		return models.Schedule{}, err
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
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
ON CONFLICT (id) DO UPDATE SET
    title = EXCLUDED.title,
    description = EXCLUDED.description,
    type = EXCLUDED.type,
    priority = EXCLUDED.priority,
    priority_explicit = EXCLUDED.priority_explicit,
    date = EXCLUDED.date,
    start_time = EXCLUDED.start_time,
    end_time = EXCLUDED.end_time,
    recurrence_pattern = EXCLUDED.recurrence_pattern,
    recurrence_weekdays = EXCLUDED.recurrence_weekdays,
    recurrence_end_date = EXCLUDED.recurrence_end_date,
    location = EXCLUDED.location,
    state = EXCLUDED.state,
    metadata = EXCLUDED.metadata,
    updated_at = EXCLUDED.updated_at`,
		schedule.ID, schedule.Title, schedule.Description, string(schedule.Type), int(schedule.Priority),
		schedule.PriorityExplicit, schedule.Date, schedule.StartTime, schedule.EndTime,
		string(schedule.Recurrence.Pattern), weekdays, schedule.Recurrence.EndDate,
		schedule.Location, string(schedule.State), metadata,
		schedule.CreatedAt.UTC(), schedule.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save schedule %s: %w", schedule.ID, err)
	}
	return nil
}

func (s *Store) Delete(id string) error {
	if _, err := s.q().Exec("DELETE FROM schedule_exceptions WHERE schedule_id = $1", id); err != nil {
		return fmt.Errorf("failed to delete exceptions of %s: %w", id, err)
	}

	result, err := s.q().Exec("DELETE FROM schedules WHERE id = $1", id)
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
	schedule, err := scanSchedule(s.q().QueryRow("SELECT "+scheduleColumns+" FROM schedules WHERE id = $1", id))
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
WHERE (recurrence_pattern = 'none' AND date >= $1 AND date <= $2)
   OR (recurrence_pattern <> 'none' AND date <= $2
       AND (recurrence_end_date = '' OR recurrence_end_date >= $1))`,
		from, to)
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

func (s *Store) exceptionsFor(ids []string) (map[string][]string, error) {
	out := make(map[string][]string)
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.q().Query(`
SELECT schedule_id, date FROM schedule_exceptions
WHERE schedule_id = ANY($1)
ORDER BY schedule_id, date`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to load exceptions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, date string
		if err := rows.Scan(&id, &date); err != nil {
			return nil, err
		}
		out[id] = append(out[id], date)
	}
	return out, rows.Err()
}

func (s *Store) AddException(ex models.Exception) error {
	var exists bool
	err := s.q().QueryRow("SELECT EXISTS (SELECT 1 FROM schedules WHERE id = $1)", ex.ScheduleID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to look up schedule %s: %w", ex.ScheduleID, err)
	}
	if !exists {
		return fmt.Errorf("%w: schedule %s", storage.ErrNotFound, ex.ScheduleID)
	}

	createdAt := ex.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.q().Exec(`
INSERT INTO schedule_exceptions (schedule_id, date, reason, created_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (schedule_id, date) DO NOTHING`,
		ex.ScheduleID, ex.Date, ex.Reason, createdAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to add exception for %s on %s: %w", ex.ScheduleID, ex.Date, err)
	}
	return nil
}
