// Package mockdata holds the sample datasets shown when the hospital API
// cannot be trusted. Every call returns a fresh copy of the same data and
// every item is tagged as mock.
package mockdata

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v7"

	"github.com/hackgods/ward-dashboard/internal/hospital"
)

// medicineSeed fixes the generated medicine catalogue.
const medicineSeed = 20240115

func intPtr(n int) *int { return &n }

func Beds() []hospital.Bed {
	return []hospital.Bed{
		{
			ID: "BED-001", Ward: "General Ward", Room: "101", BedNumber: "A",
			Status: hospital.BedOccupied,
			Patient: &hospital.PatientSummary{
				ID: "P-10001", Name: "Marko Jovanovic", Age: intPtr(54), Gender: "Male",
				AdmissionDate: "2024-01-15", Diagnosis: "Pneumonia", Doctor: "Dr. Sarah Wilson",
			},
			Mock: true,
		},
		{
			ID: "BED-002", Ward: "General Ward", Room: "101", BedNumber: "B",
			Status: hospital.BedOccupied,
			Patient: &hospital.PatientSummary{
				ID: "P-10002", Name: "Jelena Markovic", Age: intPtr(37), Gender: "Female",
				AdmissionDate: "2024-01-17", Diagnosis: "Appendectomy recovery", Doctor: "Dr. Michael Chen",
			},
			Mock: true,
		},
		{
			ID: "BED-003", Ward: "General Ward", Room: "102", BedNumber: "A",
			Status: hospital.BedAvailable, Mock: true,
		},
		{
			ID: "BED-004", Ward: "ICU", Room: "201", BedNumber: "A",
			Status: hospital.BedMaintenance, Mock: true,
		},
		{
			ID: "BED-005", Ward: "ICU", Room: "201", BedNumber: "B",
			Status: hospital.BedAvailable, Mock: true,
		},
		{
			ID: "BED-006", Ward: "Pediatrics", Room: "301", BedNumber: "A",
			Status: hospital.BedReserved, Mock: true,
		},
	}
}

func Patients() []hospital.Patient {
	return []hospital.Patient{
		patient("P-10001", "Marko", "Jovanovic", intPtr(54), "Male", "Pneumonia", "Dr. Sarah Wilson"),
		patient("P-10002", "Jelena", "Markovic", intPtr(37), "Female", "Appendectomy recovery", "Dr. Michael Chen"),
		patient("P-10003", "Nikola", "Petrovic", intPtr(68), "Male", "Heart failure", "Dr. Sarah Wilson"),
		patient("P-10004", "Ana", "Nikolic", nil, "Female", "", ""),
		patient("P-10099", "Milica", "Stojanovic", intPtr(29), "Female", "Fractured tibia", "Dr. Emily Davis"),
	}
}

func patient(id, first, last string, age *int, gender, diagnosis, doctor string) hospital.Patient {
	return hospital.Patient{
		ID:          id,
		FirstName:   first,
		LastName:    last,
		DisplayName: hospital.DisplayName(first, last, ""),
		Age:         age,
		Gender:      gender,
		Diagnosis:   diagnosis,
		Doctor:      doctor,
		Mock:        true,
	}
}

var (
	medicineNames = []string{
		"Amoxicillin", "Paracetamol", "Ibuprofen", "Metformin", "Atorvastatin",
		"Omeprazole", "Amlodipine", "Salbutamol", "Ceftriaxone", "Heparin",
	}
	medicineCategories = []string{"Antibiotic", "Analgesic", "Cardiovascular", "Endocrine", "Respiratory"}
)

// Medicines generates a pharmacy catalogue from a fixed seed, so repeated
// calls yield identical items.
func Medicines() []hospital.Medicine {
	faker := gofakeit.New(medicineSeed)

	out := make([]hospital.Medicine, 0, len(medicineNames))
	for i, name := range medicineNames {
		out = append(out, hospital.Medicine{
			ID:           fmt.Sprintf("MED-%03d", i+1),
			Name:         name,
			Category:     faker.RandomString(medicineCategories),
			Manufacturer: faker.Company(),
			Stock:        faker.Number(0, 500),
			UnitPrice:    faker.Price(1, 120),
			Mock:         true,
		})
	}
	return out
}
