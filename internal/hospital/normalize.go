package hospital

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Flex decodes a JSON string, number or null into its textual form.
// Upstream services disagree on whether identifiers and room numbers are numeric.
type Flex string

func (f *Flex) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = Flex(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = Flex(n.String())
	return nil
}

func (f Flex) String() string { return string(f) }

func (f Flex) Int() (*int, bool) {
	if f == "" {
		return nil, false
	}
	if n, err := strconv.Atoi(string(f)); err == nil {
		return &n, true
	}
	if fl, err := strconv.ParseFloat(string(f), 64); err == nil {
		n := int(fl)
		return &n, true
	}
	return nil, false
}

// PatientRecord is a patient as any upstream endpoint may return it.
type PatientRecord struct {
	ID             Flex   `json:"id"`
	PatientID      Flex   `json:"patientId"`
	PatientIDSnake Flex   `json:"patient_id"`
	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	Name           string `json:"name"`
	Age            Flex   `json:"age"`
	Gender         string `json:"gender"`
	AdmissionDate  string `json:"admissionDate"`
	Diagnosis      string `json:"diagnosis"`
	Doctor         string `json:"doctor"`
	DoctorName     string `json:"doctorName"`
	Mock           bool   `json:"mock"`
}

type BedRecord struct {
	ID         Flex           `json:"id"`
	BedID      Flex           `json:"bedId"`
	Ward       string         `json:"ward"`
	WardName   string         `json:"wardName"`
	Room       Flex           `json:"room"`
	RoomNumber Flex           `json:"roomNumber"`
	BedNumber  Flex           `json:"bedNumber"`
	Status     string         `json:"status"`
	Patient    *PatientRecord `json:"patient"`
	Mock       bool           `json:"mock"`
}

type MedicineRecord struct {
	ID           Flex    `json:"id"`
	MedicineID   Flex    `json:"medicineId"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Manufacturer string  `json:"manufacturer"`
	Stock        Flex    `json:"stock"`
	Quantity     Flex    `json:"quantity"`
	UnitPrice    float64 `json:"unitPrice"`
	Price        float64 `json:"price"`
	Mock         bool    `json:"mock"`
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// DisplayName trims the first/last concatenation, falling back to a full name.
func DisplayName(first, last, full string) string {
	if name := strings.TrimSpace(strings.TrimSpace(first) + " " + strings.TrimSpace(last)); name != "" {
		return name
	}
	return strings.TrimSpace(full)
}

// NormalizePatient maps any upstream patient shape onto Patient.
// "patientId" wins over "id" when both are present; the loser is kept as RecordID.
func NormalizePatient(r PatientRecord) Patient {
	primary := firstNonEmpty(r.PatientID.String(), r.PatientIDSnake.String(), r.ID.String())
	secondary := ""
	if id := r.ID.String(); id != "" && id != primary {
		secondary = id
	}

	first, last := strings.TrimSpace(r.FirstName), strings.TrimSpace(r.LastName)
	if parts := strings.Fields(r.Name); first == "" && last == "" && len(parts) > 0 {
		first = parts[0]
		last = strings.Join(parts[1:], " ")
	}

	p := Patient{
		ID:          primary,
		RecordID:    secondary,
		FirstName:   first,
		LastName:    last,
		DisplayName: DisplayName(first, last, r.Name),
		Gender:      strings.TrimSpace(r.Gender),
		Diagnosis:   strings.TrimSpace(r.Diagnosis),
		Doctor:      firstNonEmpty(r.Doctor, r.DoctorName),
		Mock:        r.Mock,
	}
	if p.DisplayName == "" {
		p.DisplayName = p.ID
	}
	if age, ok := r.Age.Int(); ok {
		p.Age = age
	}
	return p
}

func NormalizePatients(records []PatientRecord) []Patient {
	out := make([]Patient, 0, len(records))
	for _, r := range records {
		out = append(out, NormalizePatient(r))
	}
	return out
}

// NormalizeSummary maps a bed's nested patient onto PatientSummary.
func NormalizeSummary(r PatientRecord) PatientSummary {
	p := NormalizePatient(r)
	return PatientSummary{
		ID:            p.ID,
		RecordID:      p.RecordID,
		Name:          p.DisplayName,
		Age:           p.Age,
		Gender:        p.Gender,
		AdmissionDate: strings.TrimSpace(r.AdmissionDate),
		Diagnosis:     p.Diagnosis,
		Doctor:        p.Doctor,
	}
}

// ParseBedStatus matches case-insensitively; unknown values are kept verbatim
// so CheckBed can report them.
func ParseBedStatus(raw string) BedStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "available":
		return BedAvailable
	case "occupied":
		return BedOccupied
	case "maintenance":
		return BedMaintenance
	case "reserved":
		return BedReserved
	}
	return BedStatus(strings.TrimSpace(raw))
}

func NormalizeBed(r BedRecord) Bed {
	b := Bed{
		ID:        firstNonEmpty(r.BedID.String(), r.ID.String()),
		Ward:      firstNonEmpty(r.WardName, r.Ward),
		Room:      firstNonEmpty(r.RoomNumber.String(), r.Room.String()),
		BedNumber: r.BedNumber.String(),
		Status:    ParseBedStatus(r.Status),
		Mock:      r.Mock,
	}
	if r.Patient != nil {
		s := NormalizeSummary(*r.Patient)
		if s.ID != "" || s.Name != "" {
			b.Patient = &s
		}
	}
	return b
}

func NormalizeBeds(records []BedRecord) []Bed {
	out := make([]Bed, 0, len(records))
	for _, r := range records {
		out = append(out, NormalizeBed(r))
	}
	return out
}

func NormalizeMedicine(r MedicineRecord) Medicine {
	m := Medicine{
		ID:           firstNonEmpty(r.MedicineID.String(), r.ID.String()),
		Name:         strings.TrimSpace(r.Name),
		Category:     strings.TrimSpace(r.Category),
		Manufacturer: strings.TrimSpace(r.Manufacturer),
		UnitPrice:    r.UnitPrice,
		Mock:         r.Mock,
	}
	if m.UnitPrice == 0 {
		m.UnitPrice = r.Price
	}
	if n, ok := r.Stock.Int(); ok {
		m.Stock = *n
	} else if n, ok := r.Quantity.Int(); ok {
		m.Stock = *n
	}
	return m
}

func NormalizeMedicines(records []MedicineRecord) []Medicine {
	out := make([]Medicine, 0, len(records))
	for _, r := range records {
		out = append(out, NormalizeMedicine(r))
	}
	return out
}
