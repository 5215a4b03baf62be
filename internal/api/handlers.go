package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/ward-dashboard/internal/beds"
	"github.com/hackgods/ward-dashboard/internal/fetch"
	"github.com/hackgods/ward-dashboard/internal/health"
	"github.com/hackgods/ward-dashboard/internal/hospital"
	"github.com/hackgods/ward-dashboard/internal/hospitalapi"
	"github.com/hackgods/ward-dashboard/internal/listing"
	"github.com/hackgods/ward-dashboard/internal/mockdata"
)

func connectionHandler(prober *health.Prober) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h, probed := prober.Last()
		writeJSON(w, http.StatusOK, ConnectionResponse{Health: h, Probed: probed})
	}
}

func testConnectionHandler(prober *health.Prober) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := prober.TestConnection(r.Context())
		writeJSON(w, http.StatusOK, ConnectionResponse{Health: h, Probed: true})
	}
}

func listBedsHandler(dir *beds.Directory, wf *beds.Workflow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeBeds(w, r, dir, wf, dir.Current(r.Context()))
	}
}

func refreshBedsHandler(dir *beds.Directory, wf *beds.Workflow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeBeds(w, r, dir, wf, dir.Refresh(r.Context()))
	}
}

func writeBeds(w http.ResponseWriter, r *http.Request, dir *beds.Directory, wf *beds.Workflow, snap beds.Snapshot) {
	q := r.URL.Query()
	filtered := beds.Filter(snap.Beds, beds.BedFilter{
		Ward:   q.Get("ward"),
		Status: q.Get("status"),
		Search: q.Get("search"),
	})

	views := make([]BedView, 0, len(filtered))
	for _, b := range filtered {
		v := BedView{Bed: b, AllowedActions: beds.AllowedActions(b)}
		if b.Patient != nil {
			v.AgeLabel = b.Patient.AgeLabel()
		}
		views = append(views, v)
	}

	page, size := pageParams(r)
	wards := beds.Wards(snap.Beds)
	if wards == nil {
		wards = []string{}
	}

	writeJSON(w, http.StatusOK, BedsResponse{
		Page:      listing.Paginate(views, page, size),
		Wards:     wards,
		UsedMock:  snap.UsedMock,
		LocalMode: dir.LocalMode(),
		Advisory:  snap.Advisory,
		Notice:    wf.Notices().Current(),
		FetchedAt: snap.FetchedAt,
	})
}

func openAssignmentHandler(wf *beds.Workflow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d, err := wf.OpenAssignment(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleBedError(w, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, DialogResponse{Dialog: d})
	}
}

func confirmAssignmentHandler(wf *beds.Workflow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ConfirmAssignmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		d, err := wf.ConfirmAssignment(r.Context(), chi.URLParam(r, "id"), req.PatientID)
		if err != nil {
			var dialog *beds.Dialog
			if d.Open {
				dialog = &d
			}
			handleBedError(w, err, dialog)
			return
		}
		writeJSON(w, http.StatusOK, DialogResponse{Dialog: d, Notice: wf.Notices().Current()})
	}
}

func closeAssignmentHandler(wf *beds.Workflow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wf.CloseAssignment(chi.URLParam(r, "id"))
		w.WriteHeader(http.StatusNoContent)
	}
}

func dischargeHandler(dir *beds.Directory, wf *beds.Workflow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := wf.Discharge(r.Context(), chi.URLParam(r, "id")); err != nil {
			handleBedError(w, err, nil)
			return
		}
		writeBeds(w, r, dir, wf, dir.Current(r.Context()))
	}
}

func updateStatusHandler(dir *beds.Directory, wf *beds.Workflow) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		status := hospital.ParseBedStatus(req.Status)
		if !status.Valid() {
			writeError(w, http.StatusBadRequest, "invalid_status", "status must be Available, Maintenance or Reserved")
			return
		}

		if err := wf.SetStatus(r.Context(), chi.URLParam(r, "id"), status); err != nil {
			handleBedError(w, err, nil)
			return
		}
		writeBeds(w, r, dir, wf, dir.Current(r.Context()))
	}
}

func listPatientsHandler(src ResourceSource, fetcher *fetch.Fetcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := fetch.List(r.Context(), fetcher, "patients", src.ListPatientsWithAppointments, mockdata.Patients)

		items := listing.Filter(res.Items,
			listing.Contains(r.URL.Query().Get("search"), func(p hospital.Patient) []string {
				return []string{p.DisplayName, p.ID, p.RecordID, p.Diagnosis, p.Doctor}
			}),
		)

		page, size := pageParams(r)
		writeJSON(w, http.StatusOK, ListResponse[hospital.Patient]{
			Page:     listing.Paginate(items, page, size),
			UsedMock: res.UsedMock,
			Advisory: res.Advisory,
		})
	}
}

func listMedicinesHandler(src ResourceSource, fetcher *fetch.Fetcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res := fetch.List(r.Context(), fetcher, "medicines", src.ListMedicines, mockdata.Medicines)

		q := r.URL.Query()
		items := listing.Filter(res.Items,
			listing.Equals(q.Get("category"), func(m hospital.Medicine) string { return m.Category }),
			listing.Contains(q.Get("search"), func(m hospital.Medicine) []string {
				return []string{m.Name, m.ID, m.Manufacturer}
			}),
		)

		page, size := pageParams(r)
		writeJSON(w, http.StatusOK, ListResponse[hospital.Medicine]{
			Page:     listing.Paginate(items, page, size),
			UsedMock: res.UsedMock,
			Advisory: res.Advisory,
		})
	}
}

func listEventsHandler(events beds.EventLog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		evs, err := events.Recent(r.Context(), limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
			return
		}
		if evs == nil {
			evs = []beds.Event{}
		}
		writeJSON(w, http.StatusOK, EventsResponse{Events: evs})
	}
}

func pageParams(r *http.Request) (page, size int) {
	q := r.URL.Query()
	page, _ = strconv.Atoi(q.Get("page"))
	size, _ = strconv.Atoi(q.Get("pageSize"))
	return page, size
}

func handleBedError(w http.ResponseWriter, err error, dialog *beds.Dialog) {
	status, code := http.StatusInternalServerError, "internal_error"

	var apiErr *hospitalapi.Error
	switch {
	case errors.Is(err, beds.ErrBedNotFound):
		status, code = http.StatusNotFound, "bed_not_found"
	case errors.Is(err, beds.ErrNoOpenDialog):
		status, code = http.StatusNotFound, "no_open_dialog"
	case errors.Is(err, beds.ErrBedOccupied):
		status, code = http.StatusConflict, "bed_occupied"
	case errors.Is(err, beds.ErrBedNotOccupied):
		status, code = http.StatusConflict, "bed_not_occupied"
	case errors.Is(err, beds.ErrInvalidTransition):
		status, code = http.StatusConflict, "invalid_transition"
	case errors.Is(err, beds.ErrPatientUnavailable):
		status, code = http.StatusConflict, "patient_unavailable"
	case errors.Is(err, beds.ErrSubmissionInFlight):
		status, code = http.StatusConflict, "submission_in_flight"
	case errors.As(err, &apiErr):
		status, code = http.StatusBadGateway, "upstream_"+strings.ToLower(string(apiErr.Code))
		writeJSON(w, status, ErrorResponse{Error: code, Details: hospitalapi.UserMessage(err), Dialog: dialog})
		return
	}

	writeJSON(w, status, ErrorResponse{Error: code, Details: err.Error(), Dialog: dialog})
}
