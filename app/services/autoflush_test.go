package services

import (
	"testing"
	"time"

	"misbah-schools/app/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoFlushPersistsLiveElapsedWithoutClosing(t *testing.T) {
	tracker, store, _, clock := newTestTracker()
	start := clock.Now()

	_, _, err := tracker.Start("s1", mathPeriod(start))
	require.NoError(t, err)

	clock.Advance(100 * time.Second)
	tracker.FlushOpenSessions()

	sess, err := store.GetSession("s1", startOfDay(start))
	require.NoError(t, err)
	require.Len(t, sess.Lectures, 1)
	lec := sess.Lectures[0]

	assert.Equal(t, int64(100), lec.TotalSecondsAttended)
	assert.Equal(t, 5.0, lec.AttendancePercentage)
	assert.True(t, lec.IsOpen(), "flush is a checkpoint, not a close")
	assert.Empty(t, lec.Segments, "flush must not fragment the segment history")
	assert.Equal(t, int64(100), sess.Summary.TotalSecondsAttended)
	assert.Equal(t, 1, tracker.Registry().Len())
}

func TestAutoFlushIdempotentWithRespectToFinalTotals(t *testing.T) {
	tracker, store, _, clock := newTestTracker()
	start := clock.Now()

	_, _, err := tracker.Start("s1", mathPeriod(start))
	require.NoError(t, err)

	// N flushes during the open segment must not change what stop reports.
	for i := 0; i < 3; i++ {
		clock.Advance(30 * time.Second)
		tracker.FlushOpenSessions()
	}
	clock.Advance(30 * time.Second)
	result, err := tracker.Stop("s1", "lecture_ended")
	require.NoError(t, err)

	assert.Equal(t, int64(120), result.LectureSeconds)

	sess, err := store.GetSession("s1", startOfDay(start))
	require.NoError(t, err)
	require.Len(t, sess.Lectures[0].Segments, 1)
	assert.Equal(t, int64(120), sess.Lectures[0].Segments[0].DurationSeconds)
}

func TestAutoFlushSkipsLectureClosedByConcurrentStop(t *testing.T) {
	tracker, store, _, clock := newTestTracker()
	start := clock.Now()

	_, key, err := tracker.Start("s1", mathPeriod(start))
	require.NoError(t, err)

	// Simulate a stop that won the race: the durable record is closed but
	// the flush cycle still holds a snapshot of the handle.
	sess, err := store.GetSession("s1", startOfDay(start))
	require.NoError(t, err)
	sess.FindLecture(key).Close(clock.Now().Add(50 * time.Second))
	require.NoError(t, store.SaveSession(sess))
	savesBefore := store.saves

	tracker.FlushOpenSessions()

	assert.Equal(t, savesBefore, store.saves, "closed lecture must be skipped, not rewritten")
}

func TestAutoFlushForceClosesStaleLecture(t *testing.T) {
	tracker, store, _, clock := newTestTracker()
	start := clock.Now()

	_, _, err := tracker.Start("s1", mathPeriod(start))
	require.NoError(t, err)

	// Scheduled end is start+2000s and the default grace is 300s. Jump well
	// past the cutoff: the student disconnected without a stop and no
	// period-ended detection fired.
	clock.Advance(4000 * time.Second)
	tracker.FlushOpenSessions()

	sess, err := store.GetSession("s1", startOfDay(start))
	require.NoError(t, err)
	lec := sess.Lectures[0]

	require.False(t, lec.IsOpen(), "stale lecture must be force-closed")
	require.Len(t, lec.Segments, 1)
	// Closed at scheduled end + grace, not at flush time.
	assert.Equal(t, int64(2300), lec.Segments[0].DurationSeconds)
	assert.Equal(t, 0, tracker.Registry().Len())
}

func TestAutoFlushOneFailureDoesNotAbortCycle(t *testing.T) {
	tracker, store, _, clock := newTestTracker()
	start := clock.Now()

	_, _, err := tracker.Start("s1", mathPeriod(start))
	require.NoError(t, err)
	_, _, err = tracker.Start("s2", mathPeriod(start))
	require.NoError(t, err)

	store.failSave["s1"] = true
	clock.Advance(60 * time.Second)
	tracker.FlushOpenSessions()

	sess2, err := store.GetSession("s2", startOfDay(start))
	require.NoError(t, err)
	assert.Equal(t, int64(60), sess2.Lectures[0].TotalSecondsAttended,
		"healthy students must still be flushed when another one fails")
}

func TestAutoFlushReportsOpenTimeInDailySummary(t *testing.T) {
	tracker, store, _, clock := newTestTracker()
	start := clock.Now()

	// One closed lecture and one open lecture on the same day: the summary
	// aggregates closed segment time plus live open time under one rule.
	_, _, err := tracker.Start("s1", mathPeriod(start))
	require.NoError(t, err)
	clock.Advance(500 * time.Second)
	_, err = tracker.Stop("s1", "lecture_ended")
	require.NoError(t, err)

	physics := mathPeriod(start.Add(2100 * time.Second))
	physics.Subject = "Physics"
	_, _, err = tracker.Start("s1", physics)
	require.NoError(t, err)
	clock.Advance(250 * time.Second)
	tracker.FlushOpenSessions()

	sess, err := store.GetSession("s1", startOfDay(start))
	require.NoError(t, err)
	assert.Equal(t, int64(750), sess.Summary.TotalSecondsAttended)
	assert.Equal(t, int64(4000), sess.Summary.TotalSecondsScheduled)
	assert.InDelta(t, 18.75, sess.Summary.Percentage, 0.0001)
}

func TestDefaultGracePeriod(t *testing.T) {
	cfg := models.DefaultThresholdConfig("Term 1", "P6 East")
	assert.Equal(t, int64(300), cfg.GracePeriodSeconds)
}
