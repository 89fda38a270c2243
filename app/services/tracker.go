package services

import (
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"misbah-schools/app/database"
	"misbah-schools/app/models"

	"github.com/google/uuid"
)

// SessionStore is the durable home of per-day tracking sessions.
type SessionStore interface {
	GetSession(studentID string, date time.Time) (*models.TrackingSession, error)
	SaveSession(s *models.TrackingSession) error
	SessionsInRange(studentID string, from, to time.Time) ([]*models.TrackingSession, error)
}

// ConfigStore resolves cohort threshold configuration, materializing
// defaults for cohorts that have none.
type ConfigStore interface {
	GetOrCreate(term, group string) (*models.ThresholdConfig, error)
}

// ValidationError reports missing or malformed required fields. Handlers map
// it to a 400 response naming the fields.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

// PeriodInfo describes the scheduled period a start call refers to.
type PeriodInfo struct {
	Subject   string
	Room      string
	StartTime time.Time
	EndTime   time.Time
	Cohort    models.CohortContext
}

// StopResult is the verdict returned by a successful stop.
type StopResult struct {
	Subject           string        `json:"subject"`
	Reason            string        `json:"reason"`
	LectureSeconds    int64         `json:"lecture_seconds"`
	LectureTime       TimeBreakdown `json:"lecture_time"`
	LectureFormatted  string        `json:"lecture_formatted"`
	LecturePercentage float64       `json:"lecture_percentage"`
	LecturePresent    bool          `json:"lecture_present"`
	DailySeconds      int64         `json:"daily_seconds"`
	DailyTime         TimeBreakdown `json:"daily_time"`
	DailyFormatted    string        `json:"daily_formatted"`
	DailyPercentage   float64       `json:"daily_percentage"`
	DailyPresent      bool          `json:"daily_present"`
}

// DayStat is one day's line in a stats response.
type DayStat struct {
	Date             string  `json:"date"`
	SecondsAttended  int64   `json:"seconds_attended"`
	SecondsScheduled int64   `json:"seconds_scheduled"`
	Percentage       float64 `json:"percentage"`
	Present          bool    `json:"present"`
}

// StatsResult aggregates a student's sessions over a date range.
type StatsResult struct {
	StudentID             string    `json:"student_id"`
	TotalSecondsAttended  int64     `json:"total_seconds_attended"`
	TotalSecondsScheduled int64     `json:"total_seconds_scheduled"`
	Percentage            float64   `json:"percentage"`
	DaysPresent           int       `json:"days_present"`
	DaysAbsent            int       `json:"days_absent"`
	Days                  []DayStat `json:"days"`
}

// Tracker orchestrates start/stop/heartbeat against the session store and
// owns the active session registry. All mutation for one student runs under
// that student's stripe lock.
type Tracker struct {
	store    SessionStore
	configs  ConfigStore
	registry *ActiveSessionRegistry
	now      func() time.Time
}

func NewTracker(store SessionStore, configs ConfigStore) *Tracker {
	return &Tracker{
		store:    store,
		configs:  configs,
		registry: NewActiveSessionRegistry(),
		now:      time.Now,
	}
}

// Registry exposes the active session registry for liveness inspection.
func (t *Tracker) Registry() *ActiveSessionRegistry {
	return t.registry
}

func startOfDay(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())
}

// Start opens (or resumes) tracking for a student against a scheduled
// period. A stale handle for a different lecture is finalized first so the
// old record never keeps an orphaned open segment.
func (t *Tracker) Start(studentID string, period PeriodInfo) (sessionID, lectureKey string, err error) {
	var missing []string
	if studentID == "" {
		missing = append(missing, "student_id")
	}
	if period.Subject == "" {
		missing = append(missing, "subject")
	}
	if period.Room == "" {
		missing = append(missing, "room")
	}
	if period.StartTime.IsZero() {
		missing = append(missing, "start_time")
	}
	if period.EndTime.IsZero() {
		missing = append(missing, "end_time")
	}
	if len(missing) > 0 {
		return "", "", &ValidationError{Fields: missing}
	}
	scheduledSeconds := int64(period.EndTime.Sub(period.StartTime).Seconds())
	if scheduledSeconds <= 0 {
		// A zero-duration scheduled period is a configuration error.
		return "", "", &ValidationError{Fields: []string{"end_time"}}
	}

	mu := t.registry.StudentLock(studentID)
	mu.Lock()
	defer mu.Unlock()

	now := t.now()
	key := models.LectureKey(period.Subject, period.Room, period.StartTime)

	// A handle for a different lecture means the previous lecture was
	// abandoned without a stop. Close it before opening the new one.
	if stale, ok := t.registry.Get(studentID); ok && stale.LectureKey != key {
		if err := t.finalizeLocked(stale, now, "superseded"); err != nil {
			return "", "", fmt.Errorf("finalize stale session: %w", err)
		}
	}

	sess, err := t.store.GetSession(studentID, startOfDay(now))
	if err != nil {
		return "", "", err
	}
	if sess == nil {
		cfg, err := t.configs.GetOrCreate(period.Cohort.Term, period.Cohort.Group)
		if err != nil {
			return "", "", err
		}
		sess = &models.TrackingSession{
			ID:        uuid.NewString(),
			StudentID: studentID,
			Date:      startOfDay(now),
			Cohort:    period.Cohort,
			Summary:   models.DailySummary{RequiredPercentage: cfg.DailyThreshold},
		}
	}

	lec := sess.FindLecture(key)
	wasOpen := lec != nil && lec.IsOpen()
	if lec == nil {
		cfg, err := t.configs.GetOrCreate(period.Cohort.Term, period.Cohort.Group)
		if err != nil {
			return "", "", err
		}
		lec = &models.LectureRecord{
			Subject:            period.Subject,
			Room:               period.Room,
			ScheduledStart:     period.StartTime,
			ScheduledEnd:       period.EndTime,
			ScheduledSeconds:   scheduledSeconds,
			RequiredPercentage: ResolveThreshold(cfg, period.Subject),
		}
		lec.Recompute()
		sess.Lectures = append(sess.Lectures, lec)
	}

	lec.Open(now)
	sess.RecomputeSummary(now)
	sess.LastUpdated = now

	if err := t.store.SaveSession(sess); err != nil {
		// Never leave a freshly-opened segment dangling behind a failed
		// persist; the in-memory open and the write succeed or fail together.
		if !wasOpen {
			lec.OpenedAt = nil
		}
		return "", "", err
	}

	t.registry.Put(ActiveSessionHandle{
		StudentID:       studentID,
		SessionID:       sess.ID,
		LectureKey:      key,
		OpenedAt:        *lec.OpenedAt,
		LastHeartbeatAt: now,
	})
	return sess.ID, key, nil
}

// Stop closes the student's open segment and returns the lecture and daily
// verdicts. Without an active handle it is a benign no-op returning nil.
func (t *Tracker) Stop(studentID, reason string) (*StopResult, error) {
	if studentID == "" {
		return nil, &ValidationError{Fields: []string{"student_id"}}
	}

	mu := t.registry.StudentLock(studentID)
	mu.Lock()
	defer mu.Unlock()

	h, ok := t.registry.Get(studentID)
	if !ok {
		return nil, nil
	}

	now := t.now()
	sess, err := t.store.GetSession(studentID, startOfDay(h.OpenedAt))
	if err != nil {
		return nil, err
	}
	if sess == nil {
		// Durable record vanished underneath the handle; nothing to close.
		log.Printf("stop: no session record for student %s, dropping handle", studentID)
		t.registry.Remove(studentID)
		return nil, nil
	}

	lec := sess.FindLecture(h.LectureKey)
	if lec == nil || !lec.IsOpen() {
		t.registry.Remove(studentID)
		return nil, nil
	}

	lec.Close(now)
	sess.RecomputeSummary(now)
	sess.LastUpdated = now

	// The handle survives a failed persist so a retried stop can recover.
	if err := t.store.SaveSession(sess); err != nil {
		return nil, err
	}
	t.registry.Remove(studentID)

	return &StopResult{
		Subject:           lec.Subject,
		Reason:            reason,
		LectureSeconds:    lec.TotalSecondsAttended,
		LectureTime:       BreakdownSeconds(lec.TotalSecondsAttended),
		LectureFormatted:  FormatSeconds(lec.TotalSecondsAttended),
		LecturePercentage: lec.AttendancePercentage,
		LecturePresent:    lec.IsPresent,
		DailySeconds:      sess.Summary.TotalSecondsAttended,
		DailyTime:         BreakdownSeconds(sess.Summary.TotalSecondsAttended),
		DailyFormatted:    FormatSeconds(sess.Summary.TotalSecondsAttended),
		DailyPercentage:   sess.Summary.Percentage,
		DailyPresent:      sess.Summary.IsPresentForDay,
	}, nil
}

// finalizeLocked closes the lecture a stale handle points at. Caller holds
// the student's stripe lock.
func (t *Tracker) finalizeLocked(h ActiveSessionHandle, now time.Time, reason string) error {
	sess, err := t.store.GetSession(h.StudentID, startOfDay(h.OpenedAt))
	if err != nil {
		return err
	}
	if sess != nil {
		if lec := sess.FindLecture(h.LectureKey); lec != nil && lec.IsOpen() {
			lec.Close(now)
			sess.RecomputeSummary(now)
			sess.LastUpdated = now
			if err := t.store.SaveSession(sess); err != nil {
				return err
			}
			log.Printf("finalized abandoned lecture %s for student %s (%s)", h.LectureKey, h.StudentID, reason)
		}
	}
	t.registry.Remove(h.StudentID)
	return nil
}

// Heartbeat refreshes the liveness timestamp on the student's handle. It
// never touches durable state; a student with no open session gets false.
func (t *Tracker) Heartbeat(studentID string) (ActiveSessionHandle, bool, error) {
	if studentID == "" {
		return ActiveSessionHandle{}, false, &ValidationError{Fields: []string{"student_id"}}
	}
	h, ok := t.registry.Touch(studentID, t.now())
	return h, ok, nil
}

// Report returns the full session record for a student on a date, or
// (nil, nil) when none exists.
func (t *Tracker) Report(studentID string, date time.Time) (*models.TrackingSession, error) {
	if studentID == "" {
		return nil, &ValidationError{Fields: []string{"student_id"}}
	}
	return t.store.GetSession(studentID, startOfDay(date))
}

// Stats aggregates a student's sessions across a date range: totals,
// percentage, present/absent day counts and a per-day breakdown. Pure read,
// no registry interaction.
func (t *Tracker) Stats(studentID string, from, to time.Time) (*StatsResult, error) {
	if studentID == "" {
		return nil, &ValidationError{Fields: []string{"student_id"}}
	}
	sessions, err := t.store.SessionsInRange(studentID, startOfDay(from), startOfDay(to))
	if err != nil {
		return nil, err
	}

	result := &StatsResult{StudentID: studentID, Days: []DayStat{}}
	for _, s := range sessions {
		result.TotalSecondsAttended += s.Summary.TotalSecondsAttended
		result.TotalSecondsScheduled += s.Summary.TotalSecondsScheduled
		if s.Summary.IsPresentForDay {
			result.DaysPresent++
		} else {
			result.DaysAbsent++
		}
		result.Days = append(result.Days, DayStat{
			Date:             s.Date.Format("2006-01-02"),
			SecondsAttended:  s.Summary.TotalSecondsAttended,
			SecondsScheduled: s.Summary.TotalSecondsScheduled,
			Percentage:       s.Summary.Percentage,
			Present:          s.Summary.IsPresentForDay,
		})
	}
	if result.TotalSecondsScheduled > 0 {
		result.Percentage = float64(result.TotalSecondsAttended) / float64(result.TotalSecondsScheduled) * 100
	}
	return result, nil
}

// dbSessionStore adapts the database package to the SessionStore interface.
type dbSessionStore struct {
	db *sql.DB
}

func NewDBSessionStore(db *sql.DB) SessionStore {
	return &dbSessionStore{db: db}
}

func (s *dbSessionStore) GetSession(studentID string, date time.Time) (*models.TrackingSession, error) {
	return database.GetTrackingSession(s.db, studentID, date)
}

func (s *dbSessionStore) SaveSession(sess *models.TrackingSession) error {
	return database.UpsertTrackingSession(s.db, sess)
}

func (s *dbSessionStore) SessionsInRange(studentID string, from, to time.Time) ([]*models.TrackingSession, error) {
	return database.GetTrackingSessionsInRange(s.db, studentID, from, to)
}

// dbConfigStore adapts the database package to the ConfigStore interface.
type dbConfigStore struct {
	db *sql.DB
}

func NewDBConfigStore(db *sql.DB) ConfigStore {
	return &dbConfigStore{db: db}
}

func (s *dbConfigStore) GetOrCreate(term, group string) (*models.ThresholdConfig, error) {
	return database.GetOrCreateThresholdConfig(s.db, term, group)
}
