package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"regexp"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hackgods/ward-dashboard/internal/listing"
	"github.com/hackgods/ward-dashboard/internal/logger"
	"github.com/hackgods/ward-dashboard/internal/mockdata"
)

var (
	wards      = []string{"General Ward", "ICU", "Pediatrics", "Surgery", "Maternity"}
	diagnoses  = []string{"Pneumonia", "Fractured femur", "Appendicitis", "Heart failure", "Sepsis", "Post-op observation", "Asthma exacerbation"}
	patientIDs = regexp.MustCompile(`^P-\d+$`)
)

// The wire shapes deliberately differ from the dashboard's canonical model:
// numeric ids, snake/camel aliases and lower-case statuses.
type wirePatient struct {
	ID         int    `json:"id"`
	PatientID  string `json:"patientId"`
	FirstName  string `json:"firstName"`
	LastName   string `json:"lastName"`
	Age        int    `json:"age"`
	Gender     string `json:"gender"`
	Diagnosis  string `json:"diagnosis"`
	DoctorName string `json:"doctorName"`
}

type wireBed struct {
	BedID      string          `json:"bedId"`
	WardName   string          `json:"wardName"`
	RoomNumber int             `json:"roomNumber"`
	BedNumber  string          `json:"bedNumber"`
	Status     string          `json:"status"`
	Patient    *wireBedPatient `json:"patient"`
}

type wireBedPatient struct {
	PatientID     string `json:"patientId"`
	Name          string `json:"name"`
	Age           int    `json:"age"`
	Gender        string `json:"gender"`
	AdmissionDate string `json:"admissionDate"`
	Diagnosis     string `json:"diagnosis"`
	DoctorName    string `json:"doctorName"`
}

type wireMedicine struct {
	MedicineID   string  `json:"medicineId"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	Manufacturer string  `json:"manufacturer"`
	Quantity     int     `json:"quantity"`
	Price        float64 `json:"price"`
}

type backend struct {
	mu        sync.Mutex
	beds      []wireBed
	patients  []wirePatient
	medicines []wireMedicine
	faker     *gofakeit.Faker
	failRate  float64
	logger    *zap.Logger
}

func main() {
	port := flag.String("port", "9090", "listen port")
	bedCount := flag.Int("beds", 40, "number of beds to generate")
	patientCount := flag.Int("patients", 60, "number of patients to generate")
	seed := flag.Uint64("seed", 0, "faker seed, 0 for random")
	failRate := flag.Float64("fail-rate", 0, "fraction of resource calls answered with 503")
	flag.Parse()

	lg, err := logger.New("info", "console", "mock-backend")
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	b := newBackend(*seed, *bedCount, *patientCount, *failRate, lg)
	lg.Info("mock hospital seeded",
		zap.Int("beds", len(b.beds)),
		zap.Int("patients", len(b.patients)),
		zap.Int("medicines", len(b.medicines)),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              ":" + *port,
		Handler:           b.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		lg.Info("mock hospital listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-rootCtx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	lg.Info("mock hospital stopped")
}

func newBackend(seed uint64, bedCount, patientCount int, failRate float64, lg *zap.Logger) *backend {
	faker := gofakeit.New(seed)
	b := &backend{faker: faker, failRate: failRate, logger: lg}

	for i := 0; i < patientCount; i++ {
		b.patients = append(b.patients, wirePatient{
			ID:         i + 1,
			PatientID:  fmt.Sprintf("P-%05d", 20001+i),
			FirstName:  faker.FirstName(),
			LastName:   faker.LastName(),
			Age:        faker.Number(1, 95),
			Gender:     faker.Gender(),
			Diagnosis:  faker.RandomString(diagnoses),
			DoctorName: "Dr. " + faker.LastName(),
		})
	}

	nextPatient := 0
	for i := 0; i < bedCount; i++ {
		wardIdx := faker.Number(0, len(wards)-1)
		bed := wireBed{
			BedID:      fmt.Sprintf("BED-%03d", i+1),
			WardName:   wards[wardIdx],
			RoomNumber: (wardIdx+1)*100 + i/2 + 1,
			BedNumber:  string(rune('A' + i%2)),
			Status:     "available",
		}

		// roughly half the beds are occupied, leaving patients to assign
		switch roll := faker.Number(1, 10); {
		case roll <= 5 && nextPatient < len(b.patients)/2:
			p := b.patients[nextPatient]
			nextPatient++
			bed.Status = "occupied"
			bed.Patient = &wireBedPatient{
				PatientID:     p.PatientID,
				Name:          p.FirstName + " " + p.LastName,
				Age:           p.Age,
				Gender:        p.Gender,
				AdmissionDate: faker.DateRange(time.Now().AddDate(0, 0, -30), time.Now()).Format("2006-01-02"),
				Diagnosis:     p.Diagnosis,
				DoctorName:    p.DoctorName,
			}
		case roll == 6:
			bed.Status = "maintenance"
		case roll == 7:
			bed.Status = "reserved"
		}
		b.beds = append(b.beds, bed)
	}

	for _, m := range mockdata.Medicines() {
		b.medicines = append(b.medicines, wireMedicine{
			MedicineID:   m.ID,
			Name:         m.Name,
			Category:     m.Category,
			Manufacturer: m.Manufacturer,
			Quantity:     m.Stock,
			Price:        m.UnitPrice,
		})
	}

	return b
}

func (b *backend) routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(b.flaky)

		r.Get("/doctor/beds", b.listBeds)
		r.Put("/doctor/beds/{bedId}/status", b.updateStatus)
		r.Put("/doctor/beds/{bedId}/assign", b.assign)
		r.Put("/doctor/beds/{bedId}/discharge", b.discharge)
		r.Get("/doctor/patients/with-appointments", b.listPatients)
		r.Get("/pharmacist/medicines", b.listMedicines)
	})

	return r
}

// flaky fails a share of requests so the dashboard's fallback can be exercised.
func (b *backend) flaky(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		fail := b.failRate > 0 && b.faker.Float64() < b.failRate
		b.mu.Unlock()

		if fail {
			b.logger.Info("injected failure", zap.String("method", r.Method), zap.String("path", r.URL.Path))
			writeError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "hospital system temporarily unavailable")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *backend) listBeds(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	b.mu.Lock()
	items := listing.Filter(b.beds,
		listing.Equals(q.Get("ward"), func(bed wireBed) string { return bed.WardName }),
		listing.Equals(strings.ToLower(q.Get("status")), func(bed wireBed) string { return bed.Status }),
		listing.Contains(q.Get("search"), func(bed wireBed) []string {
			fields := []string{bed.BedID, fmt.Sprint(bed.RoomNumber)}
			if bed.Patient != nil {
				fields = append(fields, bed.Patient.Name, bed.Patient.PatientID)
			}
			return fields
		}),
	)
	out := make([]wireBed, len(items))
	for i, bed := range items {
		if bed.Patient != nil {
			p := *bed.Patient
			bed.Patient = &p
		}
		out[i] = bed
	}
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

func (b *backend) listPatients(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	out := append([]wirePatient(nil), b.patients...)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, out)
}

func (b *backend) listMedicines(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	out := append([]wireMedicine(nil), b.medicines...)
	b.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"data": out})
}

func (b *backend) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "could not parse JSON")
		return
	}
	status := strings.ToLower(req.Status)
	switch status {
	case "available", "maintenance", "reserved":
	default:
		writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "unsupported status "+req.Status)
		return
	}

	b.withBed(w, chi.URLParam(r, "bedId"), func(bed *wireBed) (int, string, string) {
		if bed.Patient != nil {
			return http.StatusConflict, "CONFLICT", "bed is occupied"
		}
		bed.Status = status
		return http.StatusOK, "", ""
	})
}

func (b *backend) assign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PatientID string `json:"patientId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "could not parse JSON")
		return
	}
	if !patientIDs.MatchString(req.PatientID) {
		writeError(w, http.StatusBadRequest, "22P02", fmt.Sprintf("invalid input syntax for patient id: %q", req.PatientID))
		return
	}

	b.withBed(w, chi.URLParam(r, "bedId"), func(bed *wireBed) (int, string, string) {
		if bed.Patient != nil || bed.Status == "occupied" {
			return http.StatusConflict, "CONFLICT", "bed already has a patient"
		}
		if bed.Status == "maintenance" {
			return http.StatusConflict, "CONFLICT", "bed is under maintenance"
		}

		var patient *wirePatient
		for i := range b.patients {
			if b.patients[i].PatientID == req.PatientID {
				patient = &b.patients[i]
				break
			}
		}
		if patient == nil {
			return http.StatusNotFound, "NOT_FOUND", "patient not found"
		}
		for _, other := range b.beds {
			if other.Patient != nil && other.Patient.PatientID == req.PatientID {
				return http.StatusConflict, "CONFLICT", "patient already has a bed"
			}
		}

		bed.Status = "occupied"
		bed.Patient = &wireBedPatient{
			PatientID:     patient.PatientID,
			Name:          patient.FirstName + " " + patient.LastName,
			Age:           patient.Age,
			Gender:        patient.Gender,
			AdmissionDate: time.Now().Format("2006-01-02"),
			Diagnosis:     patient.Diagnosis,
			DoctorName:    patient.DoctorName,
		}
		return http.StatusOK, "", ""
	})
}

func (b *backend) discharge(w http.ResponseWriter, r *http.Request) {
	b.withBed(w, chi.URLParam(r, "bedId"), func(bed *wireBed) (int, string, string) {
		if bed.Patient == nil {
			return http.StatusConflict, "CONFLICT", "bed has no patient"
		}
		bed.Patient = nil
		bed.Status = "available"
		return http.StatusOK, "", ""
	})
}

// withBed runs fn on the bed under the backend lock and writes its outcome.
func (b *backend) withBed(w http.ResponseWriter, bedID string, fn func(bed *wireBed) (int, string, string)) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.beds {
		if b.beds[i].BedID != bedID {
			continue
		}
		status, code, msg := fn(&b.beds[i])
		if code != "" {
			writeError(w, status, code, msg)
			return
		}
		writeJSON(w, status, map[string]any{"data": b.beds[i]})
		return
	}
	writeError(w, http.StatusNotFound, "NOT_FOUND", "bed "+bedID+" not found")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "message": message})
}
