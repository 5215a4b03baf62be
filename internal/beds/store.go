package beds

import (
	"fmt"
	"sync"

	"github.com/hackgods/ward-dashboard/internal/hospital"
)

// Store is the bed list the dashboard owns while it runs on sample data.
// It lives for the process lifetime and is never persisted.
type Store interface {
	Beds() []hospital.Bed
	Assign(bedID string, patient hospital.PatientSummary) (hospital.Bed, error)
	Discharge(bedID string) (hospital.Bed, error)
	SetStatus(bedID string, status hospital.BedStatus) (hospital.Bed, error)
	Reset()
}

// MemoryStore is the in-memory Store, seeded lazily from seed.
type MemoryStore struct {
	seed func() []hospital.Bed

	mu     sync.Mutex
	beds   []hospital.Bed
	seeded bool
}

func NewMemoryStore(seed func() []hospital.Bed) *MemoryStore {
	return &MemoryStore{seed: seed}
}

// Beds returns a copy of the current list, every bed tagged mock.
func (s *MemoryStore) Beds() []hospital.Bed {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureSeeded()
	out := make([]hospital.Bed, len(s.beds))
	for i, b := range s.beds {
		out[i] = cloneBed(b)
	}
	return out
}

func (s *MemoryStore) Assign(bedID string, patient hospital.PatientSummary) (hospital.Bed, error) {
	return s.update(bedID, func(b *hospital.Bed) error {
		if err := CanAssign(*b); err != nil {
			return err
		}
		p := patient
		b.Patient = &p
		b.Status = hospital.BedOccupied
		return nil
	})
}

func (s *MemoryStore) Discharge(bedID string) (hospital.Bed, error) {
	return s.update(bedID, func(b *hospital.Bed) error {
		if err := CanDischarge(*b); err != nil {
			return err
		}
		b.Patient = nil
		b.Status = hospital.BedAvailable
		return nil
	})
}

func (s *MemoryStore) SetStatus(bedID string, status hospital.BedStatus) (hospital.Bed, error) {
	return s.update(bedID, func(b *hospital.Bed) error {
		if err := ValidateTransition(*b, status); err != nil {
			return err
		}
		b.Status = status
		return nil
	})
}

// Reset drops every local change; the next read reseeds.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beds = nil
	s.seeded = false
}

func (s *MemoryStore) update(bedID string, fn func(b *hospital.Bed) error) (hospital.Bed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ensureSeeded()
	for i := range s.beds {
		if s.beds[i].ID != bedID {
			continue
		}
		if err := fn(&s.beds[i]); err != nil {
			return hospital.Bed{}, err
		}
		s.beds[i].Mock = true
		return cloneBed(s.beds[i]), nil
	}
	return hospital.Bed{}, fmt.Errorf("bed %s: %w", bedID, ErrBedNotFound)
}

func (s *MemoryStore) ensureSeeded() {
	if s.seeded {
		return
	}
	s.seeded = true
	if s.seed == nil {
		s.beds = []hospital.Bed{}
		return
	}
	s.beds = s.seed()
	for i := range s.beds {
		s.beds[i].Mock = true
	}
}

func cloneBed(b hospital.Bed) hospital.Bed {
	if b.Patient != nil {
		p := *b.Patient
		b.Patient = &p
	}
	return b
}
