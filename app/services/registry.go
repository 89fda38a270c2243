package services

import (
	"hash/fnv"
	"sync"
	"time"
)

// ActiveSessionHandle describes one student's currently-open tracking
// session. Handles live only in memory; the durable record is the session
// row itself.
type ActiveSessionHandle struct {
	StudentID       string    `json:"student_id"`
	SessionID       string    `json:"session_id"`
	LectureKey      string    `json:"lecture_key"`
	OpenedAt        time.Time `json:"opened_at"`
	LastHeartbeatAt time.Time `json:"last_heartbeat_at"`
}

const lockStripes = 64

// ActiveSessionRegistry is the process-wide map from student ID to open
// tracking handle. The map itself is guarded by mu; per-student operation
// ordering (start/stop/flush must not interleave for one student) is
// enforced by striped locks handed out by StudentLock. Different students
// hash to different stripes and do not block each other.
type ActiveSessionRegistry struct {
	mu      sync.RWMutex
	handles map[string]*ActiveSessionHandle
	stripes [lockStripes]sync.Mutex
}

func NewActiveSessionRegistry() *ActiveSessionRegistry {
	return &ActiveSessionRegistry{
		handles: make(map[string]*ActiveSessionHandle),
	}
}

// StudentLock returns the stripe mutex serializing all engine operations for
// one student. Callers must hold it across their whole read-modify-write.
func (r *ActiveSessionRegistry) StudentLock(studentID string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(studentID))
	return &r.stripes[h.Sum32()%lockStripes]
}

// Get returns a copy of the student's handle, if any.
func (r *ActiveSessionRegistry) Get(studentID string) (ActiveSessionHandle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[studentID]
	if !ok {
		return ActiveSessionHandle{}, false
	}
	return *h, true
}

// Put registers or replaces the student's handle.
func (r *ActiveSessionRegistry) Put(h ActiveSessionHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := h
	r.handles[h.StudentID] = &copied
}

// Remove drops the student's handle, if present.
func (r *ActiveSessionRegistry) Remove(studentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, studentID)
}

// Touch refreshes the handle's last-heartbeat timestamp. Returns the updated
// handle copy and false when the student has no open session.
func (r *ActiveSessionRegistry) Touch(studentID string, now time.Time) (ActiveSessionHandle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.handles[studentID]
	if !ok {
		return ActiveSessionHandle{}, false
	}
	h.LastHeartbeatAt = now
	return *h, true
}

// Snapshot returns copies of every registered handle, for the auto-flush
// cycle to walk without holding the registry lock.
func (r *ActiveSessionRegistry) Snapshot() []ActiveSessionHandle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ActiveSessionHandle, 0, len(r.handles))
	for _, h := range r.handles {
		out = append(out, *h)
	}
	return out
}

// Len reports the number of open handles.
func (r *ActiveSessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handles)
}
