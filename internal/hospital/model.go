// Package hospital holds the canonical entities the dashboard works with.
// Upstream payloads are normalised into these shapes at the fetch boundary.
package hospital

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

type BedStatus string

const (
	BedAvailable   BedStatus = "Available"
	BedOccupied    BedStatus = "Occupied"
	BedMaintenance BedStatus = "Maintenance"
	BedReserved    BedStatus = "Reserved"
)

// Valid reports whether s is one of the four known bed states.
func (s BedStatus) Valid() bool {
	switch s {
	case BedAvailable, BedOccupied, BedMaintenance, BedReserved:
		return true
	}
	return false
}

const (
	UnknownAgeLabel  = "N/A"
	DefaultGender    = "Unknown"
	DefaultDiagnosis = "Pending assessment"
	DefaultDoctor    = "Unassigned"
	AdmissionLayout  = "2006-01-02"
)

// PatientSummary is the patient as shown on an occupied bed.
type PatientSummary struct {
	ID            string `json:"id"`
	RecordID      string `json:"recordId,omitempty"`
	Name          string `json:"name"`
	Age           *int   `json:"age,omitempty"`
	Gender        string `json:"gender"`
	AdmissionDate string `json:"admissionDate"`
	Diagnosis     string `json:"diagnosis"`
	Doctor        string `json:"doctor"`
}

func (p PatientSummary) AgeLabel() string {
	if p.Age == nil {
		return UnknownAgeLabel
	}
	return strconv.Itoa(*p.Age)
}

type Bed struct {
	ID        string          `json:"id"`
	Ward      string          `json:"ward"`
	Room      string          `json:"room"`
	BedNumber string          `json:"bedNumber"`
	Status    BedStatus       `json:"status"`
	Patient   *PatientSummary `json:"patient,omitempty"`
	Mock      bool            `json:"mock,omitempty"`
}

func (b Bed) IsMock() bool { return b.Mock }

// Patient is a candidate for bed assignment.
// RecordID keeps the secondary upstream identifier when a record carried both
// "id" and "patientId", so occupancy checks can match either.
type Patient struct {
	ID          string `json:"id"`
	RecordID    string `json:"recordId,omitempty"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	DisplayName string `json:"displayName"`
	Age         *int   `json:"age,omitempty"`
	Gender      string `json:"gender,omitempty"`
	Diagnosis   string `json:"diagnosis,omitempty"`
	Doctor      string `json:"doctor,omitempty"`
	Mock        bool   `json:"mock,omitempty"`
}

func (p Patient) IsMock() bool { return p.Mock }

// IDs returns every non-empty identifier the patient is known by.
func (p Patient) IDs() []string {
	ids := make([]string, 0, 2)
	if p.ID != "" {
		ids = append(ids, p.ID)
	}
	if p.RecordID != "" && p.RecordID != p.ID {
		ids = append(ids, p.RecordID)
	}
	return ids
}

type Medicine struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Manufacturer string  `json:"manufacturer"`
	Stock        int     `json:"stock"`
	UnitPrice    float64 `json:"unitPrice"`
	Mock         bool    `json:"mock,omitempty"`
}

func (m Medicine) IsMock() bool { return m.Mock }

// SummaryFor builds the summary stored on a bed when the assignment is
// performed locally. Missing fields get placeholder values so the bed still renders.
func SummaryFor(p Patient, now time.Time) PatientSummary {
	s := PatientSummary{
		ID:            p.ID,
		RecordID:      p.RecordID,
		Name:          p.DisplayName,
		Age:           p.Age,
		Gender:        p.Gender,
		AdmissionDate: now.Format(AdmissionLayout),
		Diagnosis:     p.Diagnosis,
		Doctor:        p.Doctor,
	}
	if s.Name == "" {
		s.Name = "Patient " + p.ID
	}
	if s.Gender == "" {
		s.Gender = DefaultGender
	}
	if s.Diagnosis == "" {
		s.Diagnosis = DefaultDiagnosis
	}
	if s.Doctor == "" {
		s.Doctor = DefaultDoctor
	}
	return s
}

var ErrBedInvariant = errors.New("bed status disagrees with patient assignment")

// CheckBed enforces Occupied <=> patient present, Available => no patient.
func CheckBed(b Bed) error {
	if !b.Status.Valid() {
		return fmt.Errorf("bed %s: unknown status %q: %w", b.ID, b.Status, ErrBedInvariant)
	}
	if b.Status == BedOccupied && b.Patient == nil {
		return fmt.Errorf("bed %s: occupied without patient: %w", b.ID, ErrBedInvariant)
	}
	if b.Status != BedOccupied && b.Patient != nil {
		return fmt.Errorf("bed %s: %s with patient %s: %w", b.ID, b.Status, b.Patient.ID, ErrBedInvariant)
	}
	return nil
}

// CheckBeds returns one error per bed that violates the occupancy invariant.
func CheckBeds(beds []Bed) []error {
	var errs []error
	for _, b := range beds {
		if err := CheckBed(b); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// OccupiedPatientIDs collects every id, primary or record, of the patients
// currently holding a bed.
func OccupiedPatientIDs(beds []Bed) map[string]struct{} {
	ids := make(map[string]struct{})
	for _, b := range beds {
		if b.Patient == nil {
			continue
		}
		for _, id := range []string{b.Patient.ID, b.Patient.RecordID} {
			if id != "" {
				ids[id] = struct{}{}
			}
		}
	}
	return ids
}
