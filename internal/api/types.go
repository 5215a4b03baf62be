package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/hackgods/ward-dashboard/internal/beds"
	"github.com/hackgods/ward-dashboard/internal/health"
	"github.com/hackgods/ward-dashboard/internal/hospital"
	"github.com/hackgods/ward-dashboard/internal/listing"
)

type ConfirmAssignmentRequest struct {
	PatientID string `json:"patientId"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// BedView is a bed plus what the view may offer for it.
type BedView struct {
	hospital.Bed
	AgeLabel       string        `json:"ageLabel,omitempty"`
	AllowedActions []beds.Action `json:"allowedActions"`
}

type BedsResponse struct {
	listing.Page[BedView]
	Wards     []string     `json:"wards"`
	UsedMock  bool         `json:"usedMock"`
	LocalMode bool         `json:"localMode"`
	Advisory  string       `json:"advisory,omitempty"`
	Notice    *beds.Notice `json:"notice,omitempty"`
	FetchedAt time.Time    `json:"fetchedAt"`
}

// ListResponse is a paginated resource list that may be sample data.
type ListResponse[T any] struct {
	listing.Page[T]
	UsedMock bool   `json:"usedMock"`
	Advisory string `json:"advisory,omitempty"`
}

type DialogResponse struct {
	Dialog beds.Dialog  `json:"dialog"`
	Notice *beds.Notice `json:"notice,omitempty"`
}

type ConnectionResponse struct {
	health.Health
	Probed bool `json:"probed"`
}

type EventsResponse struct {
	Events []beds.Event `json:"events"`
}

type ErrorResponse struct {
	Error   string       `json:"error"`
	Details string       `json:"details,omitempty"`
	Dialog  *beds.Dialog `json:"dialog,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}
