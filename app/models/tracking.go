package models

import (
	"fmt"
	"time"
)

// CohortContext identifies the term and student group a session belongs to.
type CohortContext struct {
	Term  string `json:"term"`
	Group string `json:"group"`
}

// Segment is a closed interval of continuous presence within a lecture.
type Segment struct {
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationSeconds int64     `json:"duration_seconds"`
}

// LectureRecord accumulates a student's presence for one scheduled period.
// A nil OpenedAt means the record is closed; a non-nil OpenedAt marks the
// start of the single in-progress segment.
type LectureRecord struct {
	Subject              string     `json:"subject"`
	Room                 string     `json:"room"`
	ScheduledStart       time.Time  `json:"scheduled_start"`
	ScheduledEnd         time.Time  `json:"scheduled_end"`
	ScheduledSeconds     int64      `json:"scheduled_seconds"`
	Segments             []Segment  `json:"segments"`
	TotalSecondsAttended int64      `json:"total_seconds_attended"`
	AttendancePercentage float64    `json:"attendance_percentage"`
	RequiredPercentage   float64    `json:"required_percentage"`
	IsPresent            bool       `json:"is_present"`
	OpenedAt             *time.Time `json:"opened_at,omitempty"`
}

// LectureKey builds the identity key for a lecture record: subject, room and
// the minute-truncated scheduled start. Seconds are ignored so that clock
// jitter between the period detector and the engine never splits a lecture
// into two records.
func LectureKey(subject, room string, scheduledStart time.Time) string {
	return fmt.Sprintf("%s|%s|%s", subject, room, scheduledStart.Format("15:04"))
}

func (l *LectureRecord) Key() string {
	return LectureKey(l.Subject, l.Room, l.ScheduledStart)
}

func (l *LectureRecord) IsOpen() bool {
	return l.OpenedAt != nil
}

// Open starts a presence segment at now. Opening an already-open record is a
// no-op so that duplicate start calls never lose accumulated time.
func (l *LectureRecord) Open(now time.Time) {
	if l.OpenedAt != nil {
		return
	}
	t := now
	l.OpenedAt = &t
}

// ClosedSeconds is the sum of all closed segment durations.
func (l *LectureRecord) ClosedSeconds() int64 {
	var total int64
	for _, s := range l.Segments {
		total += s.DurationSeconds
	}
	return total
}

// LiveSeconds is the closed segment total plus, if a segment is open, the
// whole seconds elapsed since it opened. Clock skew is clamped to zero.
func (l *LectureRecord) LiveSeconds(now time.Time) int64 {
	total := l.ClosedSeconds()
	if l.OpenedAt != nil {
		elapsed := int64(now.Sub(*l.OpenedAt).Seconds())
		if elapsed > 0 {
			total += elapsed
		}
	}
	return total
}

// Close ends the open segment at now and folds it into the totals. The
// attended total is recomputed from the segment list, never incremented, so
// an auto-flush that transiently wrote a live total can never double count.
// Returns the closed segment's duration; no-op returning 0 when not open.
func (l *LectureRecord) Close(now time.Time) int64 {
	if l.OpenedAt == nil {
		return 0
	}
	duration := int64(now.Sub(*l.OpenedAt).Seconds())
	if duration < 0 {
		duration = 0
	}
	l.Segments = append(l.Segments, Segment{
		StartTime:       *l.OpenedAt,
		EndTime:         now,
		DurationSeconds: duration,
	})
	l.OpenedAt = nil
	l.TotalSecondsAttended = l.ClosedSeconds()
	l.Recompute()
	return duration
}

// Recompute refreshes the percentage and presence verdict from the current
// attended total. Presence uses >=, so exactly meeting the threshold counts.
func (l *LectureRecord) Recompute() {
	if l.ScheduledSeconds > 0 {
		l.AttendancePercentage = float64(l.TotalSecondsAttended) / float64(l.ScheduledSeconds) * 100
	} else {
		l.AttendancePercentage = 0
	}
	l.IsPresent = l.AttendancePercentage >= l.RequiredPercentage
}

// DailySummary caches the day-level aggregation of a session's lectures. It
// is always re-derivable from the lecture records.
type DailySummary struct {
	TotalSecondsAttended  int64   `json:"total_seconds_attended"`
	TotalSecondsScheduled int64   `json:"total_seconds_scheduled"`
	Percentage            float64 `json:"percentage"`
	IsPresentForDay       bool    `json:"is_present_for_day"`
	RequiredPercentage    float64 `json:"required_percentage"`
}

// TrackingSession holds all of one student's lecture records for one
// calendar day.
type TrackingSession struct {
	ID          string           `json:"id"`
	StudentID   string           `json:"student_id"`
	Date        time.Time        `json:"date"`
	Cohort      CohortContext    `json:"cohort"`
	Lectures    []*LectureRecord `json:"lectures"`
	Summary     DailySummary     `json:"summary"`
	LastUpdated time.Time        `json:"last_updated"`
}

// FindLecture returns the lecture record with the given identity key, or nil.
func (s *TrackingSession) FindLecture(key string) *LectureRecord {
	for _, l := range s.Lectures {
		if l.Key() == key {
			return l
		}
	}
	return nil
}

// RecomputeSummary re-aggregates the daily summary from the lecture records.
// Open lectures contribute their live elapsed time as of now, the same rule
// the auto-flush uses, so the summary never depends on stale cached values.
func (s *TrackingSession) RecomputeSummary(now time.Time) {
	var attended, scheduled int64
	for _, l := range s.Lectures {
		attended += l.LiveSeconds(now)
		scheduled += l.ScheduledSeconds
	}
	s.Summary.TotalSecondsAttended = attended
	s.Summary.TotalSecondsScheduled = scheduled
	if scheduled > 0 {
		s.Summary.Percentage = float64(attended) / float64(scheduled) * 100
	} else {
		s.Summary.Percentage = 0
	}
	s.Summary.IsPresentForDay = s.Summary.Percentage >= s.Summary.RequiredPercentage
}
