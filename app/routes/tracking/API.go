package tracking

import (
	"errors"
	"time"

	"misbah-schools/app/config"
	"misbah-schools/app/database"
	"misbah-schools/app/models"
	"misbah-schools/app/services"

	"github.com/gofiber/fiber/v2"
)

type periodRequest struct {
	Subject   string `json:"subject"`
	Room      string `json:"room"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Term      string `json:"term"`
	Group     string `json:"group"`
}

// respondError maps engine errors to the wire: invalid input becomes a 400
// naming the offending fields, anything else a 500 with a generic message so
// internal detail never leaks.
func respondError(c *fiber.Ctx, err error, generic string) error {
	var verr *services.ValidationError
	if errors.As(err, &verr) {
		return c.Status(400).JSON(fiber.Map{
			"error":  verr.Error(),
			"fields": verr.Fields,
		})
	}
	return c.Status(500).JSON(fiber.Map{"error": generic})
}

func StartTrackingAPI(t *services.Tracker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		type StartRequest struct {
			StudentID string        `json:"student_id"`
			Period    periodRequest `json:"period"`
		}

		var req StartRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
		}

		var missing []string
		if req.StudentID == "" {
			missing = append(missing, "student_id")
		}
		if req.Period.Subject == "" {
			missing = append(missing, "subject")
		}
		if req.Period.Room == "" {
			missing = append(missing, "room")
		}
		if req.Period.StartTime == "" {
			missing = append(missing, "start_time")
		}
		if req.Period.EndTime == "" {
			missing = append(missing, "end_time")
		}
		if len(missing) > 0 {
			return c.Status(400).JSON(fiber.Map{
				"error":  "Missing required fields",
				"fields": missing,
			})
		}

		start, err := time.Parse(time.RFC3339, req.Period.StartTime)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid start_time. Use RFC3339"})
		}
		end, err := time.Parse(time.RFC3339, req.Period.EndTime)
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid end_time. Use RFC3339"})
		}

		sessionID, lectureID, err := t.Start(req.StudentID, services.PeriodInfo{
			Subject:   req.Period.Subject,
			Room:      req.Period.Room,
			StartTime: start,
			EndTime:   end,
			Cohort:    models.CohortContext{Term: req.Period.Term, Group: req.Period.Group},
		})
		if err != nil {
			return respondError(c, err, "Failed to start tracking")
		}

		return c.JSON(fiber.Map{
			"success":    true,
			"session_id": sessionID,
			"lecture_id": lectureID,
		})
	}
}

func StopTrackingAPI(t *services.Tracker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		type StopRequest struct {
			StudentID string `json:"student_id"`
			Reason    string `json:"reason"`
		}

		var req StopRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if req.StudentID == "" {
			return c.Status(400).JSON(fiber.Map{"error": "Missing required fields", "fields": []string{"student_id"}})
		}
		if req.Reason == "" {
			req.Reason = "manual"
		}

		result, err := t.Stop(req.StudentID, req.Reason)
		if err != nil {
			return respondError(c, err, "Failed to stop tracking")
		}
		if result == nil {
			return c.JSON(fiber.Map{
				"success":  true,
				"tracking": false,
				"message":  "No active tracking session",
			})
		}

		return c.JSON(fiber.Map{
			"success":  true,
			"tracking": true,
			"result":   result,
		})
	}
}

func HeartbeatAPI(t *services.Tracker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		type HeartbeatRequest struct {
			StudentID string `json:"student_id"`
		}

		var req HeartbeatRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
		}
		if req.StudentID == "" {
			return c.Status(400).JSON(fiber.Map{"error": "Missing required fields", "fields": []string{"student_id"}})
		}

		handle, tracking, err := t.Heartbeat(req.StudentID)
		if err != nil {
			return respondError(c, err, "Failed to process heartbeat")
		}
		if !tracking {
			return c.JSON(fiber.Map{"success": true, "tracking": false})
		}

		return c.JSON(fiber.Map{
			"success":           true,
			"tracking":          true,
			"lecture_id":        handle.LectureKey,
			"last_heartbeat_at": handle.LastHeartbeatAt,
		})
	}
}

func lectureView(l *models.LectureRecord) fiber.Map {
	return fiber.Map{
		"subject":               l.Subject,
		"room":                  l.Room,
		"scheduled_start":       l.ScheduledStart,
		"scheduled_end":         l.ScheduledEnd,
		"scheduled_seconds":     l.ScheduledSeconds,
		"segments":              l.Segments,
		"seconds_attended":      l.TotalSecondsAttended,
		"time_attended":         services.FormatSeconds(l.TotalSecondsAttended),
		"attendance_percentage": l.AttendancePercentage,
		"required_percentage":   l.RequiredPercentage,
		"is_present":            l.IsPresent,
		"is_open":               l.IsOpen(),
	}
}

func GetTrackingReportAPI(t *services.Tracker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		studentID := c.Params("studentId")
		if studentID == "" {
			return c.Status(400).JSON(fiber.Map{"error": "Student ID is required"})
		}

		date := time.Now()
		if dateStr := c.Query("date"); dateStr != "" {
			parsed, err := time.Parse("2006-01-02", dateStr)
			if err != nil {
				return c.Status(400).JSON(fiber.Map{"error": "Invalid date format. Use YYYY-MM-DD"})
			}
			date = parsed
		}

		sess, err := t.Report(studentID, date)
		if err != nil {
			return respondError(c, err, "Failed to fetch tracking report")
		}
		if sess == nil {
			return c.JSON(fiber.Map{
				"success": true,
				"found":   false,
				"date":    date.Format("2006-01-02"),
			})
		}

		lectures := make([]fiber.Map, 0, len(sess.Lectures))
		for _, l := range sess.Lectures {
			lectures = append(lectures, lectureView(l))
		}

		return c.JSON(fiber.Map{
			"success":    true,
			"found":      true,
			"session_id": sess.ID,
			"student_id": sess.StudentID,
			"date":       sess.Date.Format("2006-01-02"),
			"cohort":     sess.Cohort,
			"lectures":   lectures,
			"summary": fiber.Map{
				"seconds_attended":   sess.Summary.TotalSecondsAttended,
				"seconds_scheduled":  sess.Summary.TotalSecondsScheduled,
				"time_attended":      services.FormatSeconds(sess.Summary.TotalSecondsAttended),
				"percentage":         sess.Summary.Percentage,
				"is_present_for_day": sess.Summary.IsPresentForDay,
				"daily_threshold":    sess.Summary.RequiredPercentage,
			},
			"last_updated": sess.LastUpdated,
		})
	}
}

func GetTrackingStatsAPI(t *services.Tracker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		studentID := c.Params("studentId")
		if studentID == "" {
			return c.Status(400).JSON(fiber.Map{"error": "Student ID is required"})
		}

		now := time.Now()
		from, to := now, now
		if s := c.Query("from"); s != "" {
			parsed, err := time.Parse("2006-01-02", s)
			if err != nil {
				return c.Status(400).JSON(fiber.Map{"error": "Invalid from date. Use YYYY-MM-DD"})
			}
			from = parsed
		}
		if s := c.Query("to"); s != "" {
			parsed, err := time.Parse("2006-01-02", s)
			if err != nil {
				return c.Status(400).JSON(fiber.Map{"error": "Invalid to date. Use YYYY-MM-DD"})
			}
			to = parsed
		}

		stats, err := t.Stats(studentID, from, to)
		if err != nil {
			return respondError(c, err, "Failed to fetch tracking stats")
		}

		return c.JSON(fiber.Map{
			"success":        true,
			"stats":          stats,
			"time_attended":  services.FormatSeconds(stats.TotalSecondsAttended),
			"time_scheduled": services.FormatSeconds(stats.TotalSecondsScheduled),
		})
	}
}

func GetThresholdConfigAPI(c *fiber.Ctx) error {
	term := c.Query("term")
	group := c.Query("group")
	if term == "" || group == "" {
		return c.Status(400).JSON(fiber.Map{"error": "Missing required fields", "fields": []string{"term", "group"}})
	}

	cfg, err := database.GetOrCreateThresholdConfig(config.GetDB(), term, group)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to fetch threshold config"})
	}

	return c.JSON(fiber.Map{"success": true, "config": cfg})
}

func UpdateThresholdConfigAPI(c *fiber.Ctx) error {
	type ConfigRequest struct {
		Term               string             `json:"term"`
		Group              string             `json:"group"`
		DefaultThreshold   *float64           `json:"default_threshold"`
		DailyThreshold     *float64           `json:"daily_threshold"`
		SubjectOverrides   map[string]float64 `json:"subject_overrides"`
		GracePeriodSeconds *int64             `json:"grace_period_seconds"`
	}

	var req ConfigRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid request body"})
	}

	var missing []string
	if req.Term == "" {
		missing = append(missing, "term")
	}
	if req.Group == "" {
		missing = append(missing, "group")
	}
	if len(missing) > 0 {
		return c.Status(400).JSON(fiber.Map{"error": "Missing required fields", "fields": missing})
	}

	db := config.GetDB()
	cfg, err := database.GetOrCreateThresholdConfig(db, req.Term, req.Group)
	if err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to load threshold config"})
	}

	if req.DefaultThreshold != nil {
		cfg.DefaultThreshold = *req.DefaultThreshold
	}
	if req.DailyThreshold != nil {
		cfg.DailyThreshold = *req.DailyThreshold
	}
	if req.SubjectOverrides != nil {
		cfg.SubjectOverrides = req.SubjectOverrides
	}
	if req.GracePeriodSeconds != nil {
		cfg.GracePeriodSeconds = *req.GracePeriodSeconds
	}

	if err := database.SaveThresholdConfig(db, cfg); err != nil {
		return c.Status(500).JSON(fiber.Map{"error": "Failed to save threshold config"})
	}

	return c.JSON(fiber.Map{"success": true, "config": cfg})
}
