// Package client is the student-side companion to the tracking service: it
// drives start/stop calls, sends periodic heartbeats while a lecture is
// being tracked, and persists a local marker so tracking resumes after an
// app relaunch. Server-side state stays authoritative throughout.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"
)

const (
	DefaultHeartbeatInterval = 30 * time.Second
	DefaultResumeWindow      = 2 * time.Hour
)

// Period describes the scheduled lecture being tracked.
type Period struct {
	Subject   string    `json:"subject"`
	Room      string    `json:"room"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Term      string    `json:"term"`
	Group     string    `json:"group"`
}

// trackingMarker is the on-disk record of an in-progress tracking session.
type trackingMarker struct {
	StudentID string    `json:"student_id"`
	Period    Period    `json:"period"`
	StartedAt time.Time `json:"started_at"`
}

// Agent talks to the tracking API for one student.
type Agent struct {
	BaseURL           string
	StudentID         string
	MarkerPath        string
	HTTPClient        *http.Client
	HeartbeatInterval time.Duration
	ResumeWindow      time.Duration
}

func New(baseURL, studentID, markerPath string) *Agent {
	return &Agent{
		BaseURL:           baseURL,
		StudentID:         studentID,
		MarkerPath:        markerPath,
		HTTPClient:        &http.Client{Timeout: 10 * time.Second},
		HeartbeatInterval: DefaultHeartbeatInterval,
		ResumeWindow:      DefaultResumeWindow,
	}
}

func (a *Agent) post(path string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := a.HTTPClient.Post(a.BaseURL+path, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}
	return nil
}

// Start begins tracking and persists the local marker so a relaunch inside
// the resume window can pick the session back up.
func (a *Agent) Start(p Period) error {
	err := a.post("/api/tracking/start", map[string]interface{}{
		"student_id": a.StudentID,
		"period": map[string]interface{}{
			"subject":    p.Subject,
			"room":       p.Room,
			"start_time": p.StartTime.Format(time.RFC3339),
			"end_time":   p.EndTime.Format(time.RFC3339),
			"term":       p.Term,
			"group":      p.Group,
		},
	})
	if err != nil {
		return err
	}
	return a.writeMarker(trackingMarker{
		StudentID: a.StudentID,
		Period:    p,
		StartedAt: time.Now(),
	})
}

// Stop ends tracking and clears the local marker.
func (a *Agent) Stop(reason string) error {
	err := a.post("/api/tracking/stop", map[string]interface{}{
		"student_id": a.StudentID,
		"reason":     reason,
	})
	if err != nil {
		return err
	}
	a.clearMarker()
	return nil
}

// Heartbeat sends a liveness signal. Failures are returned but callers are
// expected to tolerate them without stopping locally.
func (a *Agent) Heartbeat() error {
	return a.post("/api/tracking/heartbeat", map[string]interface{}{
		"student_id": a.StudentID,
	})
}

// Resume re-issues start if a marker from a previous run exists and is
// younger than the resume window. An expired or unreadable marker is
// discarded. Returns whether tracking was resumed.
func (a *Agent) Resume() (bool, error) {
	marker, err := a.readMarker()
	if err != nil || marker == nil {
		return false, err
	}
	if time.Since(marker.StartedAt) > a.ResumeWindow {
		a.clearMarker()
		return false, nil
	}
	if err := a.Start(marker.Period); err != nil {
		return false, err
	}
	return true, nil
}

// RunHeartbeats sends heartbeats on the configured interval until the stop
// channel closes. Heartbeat failures are logged and tolerated.
func (a *Agent) RunHeartbeats(stop <-chan struct{}) {
	ticker := time.NewTicker(a.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := a.Heartbeat(); err != nil {
				log.Printf("heartbeat failed: %v", err)
			}
		case <-stop:
			return
		}
	}
}

func (a *Agent) writeMarker(m trackingMarker) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	return os.WriteFile(a.MarkerPath, data, 0o600)
}

func (a *Agent) readMarker() (*trackingMarker, error) {
	data, err := os.ReadFile(a.MarkerPath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var m trackingMarker
	if err := json.Unmarshal(data, &m); err != nil {
		// Corrupt marker: discard rather than fail forever.
		a.clearMarker()
		return nil, nil
	}
	return &m, nil
}

func (a *Agent) clearMarker() {
	if err := os.Remove(a.MarkerPath); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to remove tracking marker: %v", err)
	}
}
