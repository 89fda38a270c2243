package services

import (
	"log"
	"time"
)

// DefaultFlushInterval is how often open sessions are checkpointed.
const DefaultFlushInterval = 30 * time.Second

// StartAutoFlush starts the background flush task
func StartAutoFlush(t *Tracker, interval time.Duration) {
	go func() {
		log.Println("Auto-flush task started...")
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for range ticker.C {
			t.FlushOpenSessions()
		}
	}()
}

// FlushOpenSessions checkpoints live elapsed time for every open handle
// without closing any segment, bounding data loss on a process restart to
// one flush interval. One student's failure never aborts the rest of the
// cycle. Lectures left open past their scheduled end plus the cohort's
// grace period are force-closed here, so a student that disconnects without
// a stop cannot accumulate time forever.
func (t *Tracker) FlushOpenSessions() {
	for _, h := range t.registry.Snapshot() {
		if err := t.flushOne(h); err != nil {
			log.Printf("auto-flush: student %s: %v", h.StudentID, err)
		}
	}
}

func (t *Tracker) flushOne(h ActiveSessionHandle) error {
	mu := t.registry.StudentLock(h.StudentID)
	mu.Lock()
	defer mu.Unlock()

	// The handle may have been removed or replaced since the snapshot.
	current, ok := t.registry.Get(h.StudentID)
	if !ok || current.LectureKey != h.LectureKey {
		return nil
	}

	now := t.now()
	sess, err := t.store.GetSession(h.StudentID, startOfDay(current.OpenedAt))
	if err != nil {
		return err
	}
	if sess == nil {
		return nil
	}

	lec := sess.FindLecture(current.LectureKey)
	if lec == nil || !lec.IsOpen() {
		// Closed by a concurrent stop; tolerate the race.
		return nil
	}

	cfg, err := t.configs.GetOrCreate(sess.Cohort.Term, sess.Cohort.Group)
	if err != nil {
		return err
	}
	cutoff := lec.ScheduledEnd.Add(time.Duration(cfg.GracePeriodSeconds) * time.Second)
	if now.After(cutoff) {
		// Abandoned session: the period ended and no stop arrived.
		lec.Close(cutoff)
		sess.RecomputeSummary(now)
		sess.LastUpdated = now
		if err := t.store.SaveSession(sess); err != nil {
			return err
		}
		t.registry.Remove(h.StudentID)
		log.Printf("auto-flush: force-closed stale lecture %s for student %s", current.LectureKey, h.StudentID)
		return nil
	}

	// Durability checkpoint: record live elapsed time but keep the segment
	// open. Close recomputes totals from the segment list, so this value is
	// transient and can never double count.
	lec.TotalSecondsAttended = lec.LiveSeconds(now)
	lec.Recompute()
	sess.RecomputeSummary(now)
	sess.LastUpdated = now
	return t.store.SaveSession(sess)
}
