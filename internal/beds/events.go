package beds

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	EventPatientAssigned   = "BED_PATIENT_ASSIGNED"
	EventPatientDischarged = "BED_PATIENT_DISCHARGED"
	EventStatusChanged     = "BED_STATUS_CHANGED"
)

const (
	ModeRemote = "remote"
	ModeMock   = "mock"
)

type Event struct {
	ID        uuid.UUID      `json:"id"`
	Type      string         `json:"type"`
	BedID     string         `json:"bedId"`
	PatientID string         `json:"patientId,omitempty"`
	Mode      string         `json:"mode"`
	Payload   map[string]any `json:"payload,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// EventLog records every successful bed workflow action.
type EventLog interface {
	Record(ctx context.Context, ev Event) error
	Recent(ctx context.Context, limit int) ([]Event, error)
}

// MemoryEventLog keeps the last capacity events in process memory.
type MemoryEventLog struct {
	capacity int

	mu     sync.Mutex
	events []Event
}

func NewMemoryEventLog(capacity int) *MemoryEventLog {
	if capacity <= 0 {
		capacity = 200
	}
	return &MemoryEventLog{capacity: capacity}
}

func (l *MemoryEventLog) Record(ctx context.Context, ev Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, ev)
	if over := len(l.events) - l.capacity; over > 0 {
		l.events = append([]Event(nil), l.events[over:]...)
	}
	return nil
}

// Recent returns up to limit events, newest first.
func (l *MemoryEventLog) Recent(ctx context.Context, limit int) ([]Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if limit <= 0 || limit > len(l.events) {
		limit = len(l.events)
	}
	out := make([]Event, 0, limit)
	for i := len(l.events) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, l.events[i])
	}
	return out, nil
}
