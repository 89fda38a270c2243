package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLectureKeyTruncatesToMinute(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 12, 500, time.UTC)
	jittered := time.Date(2026, 3, 2, 9, 0, 47, 0, time.UTC)

	// Clock jitter in the seconds must never split one lecture in two.
	assert.Equal(t, LectureKey("Math", "B12", base), LectureKey("Math", "B12", jittered))
	assert.NotEqual(t, LectureKey("Math", "B12", base), LectureKey("Math", "B12", base.Add(time.Minute)))
	assert.NotEqual(t, LectureKey("Math", "B12", base), LectureKey("Math", "C3", base))
}

func TestOpenIsIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	lec := &LectureRecord{ScheduledSeconds: 2000}

	lec.Open(now)
	require.True(t, lec.IsOpen())
	first := *lec.OpenedAt

	lec.Open(now.Add(5 * time.Minute))
	assert.Equal(t, first, *lec.OpenedAt, "re-opening must not move the segment start")
}

func TestCloseClampsNegativeDuration(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	lec := &LectureRecord{ScheduledSeconds: 2000}
	lec.Open(now)

	// Clock skew: close before open. Must clamp to zero, never go negative.
	d := lec.Close(now.Add(-10 * time.Second))
	assert.Equal(t, int64(0), d)
	require.Len(t, lec.Segments, 1)
	assert.Equal(t, int64(0), lec.Segments[0].DurationSeconds)
	assert.Equal(t, int64(0), lec.TotalSecondsAttended)
	assert.False(t, lec.IsOpen())
}

func TestCloseOnClosedRecordIsNoOp(t *testing.T) {
	lec := &LectureRecord{ScheduledSeconds: 2000}
	assert.Equal(t, int64(0), lec.Close(time.Now()))
	assert.Empty(t, lec.Segments)
}

func TestCloseRecomputesTotalFromSegments(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	lec := &LectureRecord{ScheduledSeconds: 2000, RequiredPercentage: 75}
	lec.Open(now)

	// An auto-flush checkpoint may have written a live total; close must
	// rebuild the total from the segment list, not add on top of it.
	lec.TotalSecondsAttended = 900
	lec.Close(now.Add(1000 * time.Second))

	assert.Equal(t, int64(1000), lec.TotalSecondsAttended)
	assert.Equal(t, 50.0, lec.AttendancePercentage)
	assert.False(t, lec.IsPresent)
}

func TestPresenceBoundaryUsesGreaterOrEqual(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	lec := &LectureRecord{ScheduledSeconds: 2000, RequiredPercentage: 75}
	lec.Open(now)
	lec.Close(now.Add(1500 * time.Second))

	assert.Equal(t, 75.0, lec.AttendancePercentage)
	assert.True(t, lec.IsPresent, "exactly meeting the threshold counts as present")
}

func TestLiveSeconds(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	lec := &LectureRecord{ScheduledSeconds: 2000}
	lec.Open(now)
	lec.Close(now.Add(300 * time.Second))

	lec.Open(now.Add(400 * time.Second))
	assert.Equal(t, int64(550), lec.LiveSeconds(now.Add(650*time.Second)))

	// Skewed now before the open instant contributes nothing.
	assert.Equal(t, int64(300), lec.LiveSeconds(now.Add(390*time.Second)))
}

func TestRecomputeSummaryZeroScheduled(t *testing.T) {
	s := &TrackingSession{Summary: DailySummary{RequiredPercentage: 75}}
	s.RecomputeSummary(time.Now())
	assert.Equal(t, 0.0, s.Summary.Percentage)
	assert.False(t, s.Summary.IsPresentForDay)
}

func TestRecomputeSummaryIncludesOpenLectures(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	closed := &LectureRecord{ScheduledSeconds: 2000, RequiredPercentage: 75}
	closed.Open(now)
	closed.Close(now.Add(1000 * time.Second))

	open := &LectureRecord{ScheduledSeconds: 2000, RequiredPercentage: 75}
	open.Open(now.Add(1100 * time.Second))

	s := &TrackingSession{
		Lectures: []*LectureRecord{closed, open},
		Summary:  DailySummary{RequiredPercentage: 50},
	}
	s.RecomputeSummary(now.Add(2100 * time.Second))

	assert.Equal(t, int64(2000), s.Summary.TotalSecondsAttended)
	assert.Equal(t, int64(4000), s.Summary.TotalSecondsScheduled)
	assert.Equal(t, 50.0, s.Summary.Percentage)
	assert.True(t, s.Summary.IsPresentForDay)
}

func TestSessionJSONRoundTripPreservesSummary(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	lec := &LectureRecord{
		Subject: "Math", Room: "B12",
		ScheduledStart: now, ScheduledEnd: now.Add(2000 * time.Second),
		ScheduledSeconds: 2000, RequiredPercentage: 75,
	}
	lec.Open(now)
	lec.Close(now.Add(1500 * time.Second))

	s := &TrackingSession{
		ID: "sess-1", StudentID: "s1", Date: now,
		Lectures: []*LectureRecord{lec},
		Summary:  DailySummary{RequiredPercentage: 75},
	}
	s.RecomputeSummary(now.Add(1500 * time.Second))

	data, err := json.Marshal(s)
	require.NoError(t, err)
	restored := &TrackingSession{}
	require.NoError(t, json.Unmarshal(data, restored))

	cached := restored.Summary
	restored.RecomputeSummary(now.Add(1500 * time.Second))
	assert.Equal(t, cached, restored.Summary, "summary is a cache, always re-derivable from the records")
	assert.Equal(t, s.Summary, restored.Summary)
}

func TestFindLecture(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	lec := &LectureRecord{Subject: "Math", Room: "B12", ScheduledStart: now}
	s := &TrackingSession{Lectures: []*LectureRecord{lec}}

	assert.Equal(t, lec, s.FindLecture(LectureKey("Math", "B12", now)))
	assert.Nil(t, s.FindLecture(LectureKey("Physics", "B12", now)))
}
