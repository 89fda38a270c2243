package database

import (
	"database/sql"
	"encoding/json"
	"time"

	"misbah-schools/app/models"
)

// UpsertTrackingSession saves a session record, replacing any existing row
// for the same (student, date).
func UpsertTrackingSession(db *sql.DB, s *models.TrackingSession) error {
	lectures, err := json.Marshal(s.Lectures)
	if err != nil {
		return err
	}

	query := `INSERT INTO tracking_sessions
			  (id, student_id, date, term, group_name, lectures,
			   total_seconds_attended, total_seconds_scheduled, percentage,
			   is_present_for_day, required_percentage, last_updated)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			  ON CONFLICT (student_id, date)
			  DO UPDATE SET lectures = EXCLUDED.lectures,
			                term = EXCLUDED.term,
			                group_name = EXCLUDED.group_name,
			                total_seconds_attended = EXCLUDED.total_seconds_attended,
			                total_seconds_scheduled = EXCLUDED.total_seconds_scheduled,
			                percentage = EXCLUDED.percentage,
			                is_present_for_day = EXCLUDED.is_present_for_day,
			                required_percentage = EXCLUDED.required_percentage,
			                last_updated = EXCLUDED.last_updated`

	_, err = db.Exec(query, s.ID, s.StudentID, s.Date, s.Cohort.Term, s.Cohort.Group,
		lectures, s.Summary.TotalSecondsAttended, s.Summary.TotalSecondsScheduled,
		s.Summary.Percentage, s.Summary.IsPresentForDay, s.Summary.RequiredPercentage,
		s.LastUpdated)
	return err
}

func scanTrackingSession(scan func(dest ...interface{}) error) (*models.TrackingSession, error) {
	s := &models.TrackingSession{}
	var lectures []byte
	err := scan(
		&s.ID, &s.StudentID, &s.Date, &s.Cohort.Term, &s.Cohort.Group, &lectures,
		&s.Summary.TotalSecondsAttended, &s.Summary.TotalSecondsScheduled,
		&s.Summary.Percentage, &s.Summary.IsPresentForDay,
		&s.Summary.RequiredPercentage, &s.LastUpdated,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(lectures, &s.Lectures); err != nil {
		return nil, err
	}
	return s, nil
}

// GetTrackingSession retrieves the session record for a student on a specific
// date. Returns (nil, nil) when no record exists.
func GetTrackingSession(db *sql.DB, studentID string, date time.Time) (*models.TrackingSession, error) {
	query := `SELECT id, student_id, date, term, group_name, lectures,
			  total_seconds_attended, total_seconds_scheduled, percentage,
			  is_present_for_day, required_percentage, last_updated
			  FROM tracking_sessions
			  WHERE student_id = $1 AND date = $2`

	s, err := scanTrackingSession(db.QueryRow(query, studentID, date).Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetTrackingSessionsInRange retrieves all of a student's session records
// with dates in [from, to], ordered by date.
func GetTrackingSessionsInRange(db *sql.DB, studentID string, from, to time.Time) ([]*models.TrackingSession, error) {
	query := `SELECT id, student_id, date, term, group_name, lectures,
			  total_seconds_attended, total_seconds_scheduled, percentage,
			  is_present_for_day, required_percentage, last_updated
			  FROM tracking_sessions
			  WHERE student_id = $1 AND date >= $2 AND date <= $3
			  ORDER BY date`

	rows, err := db.Query(query, studentID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.TrackingSession
	for rows.Next() {
		s, err := scanTrackingSession(rows.Scan)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}
