package beds

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackgods/ward-dashboard/internal/fetch"
	"github.com/hackgods/ward-dashboard/internal/hospital"
	"github.com/hackgods/ward-dashboard/internal/hospitalapi"
	"github.com/hackgods/ward-dashboard/internal/listing"
	"github.com/hackgods/ward-dashboard/internal/metrics"
)

// Dialog is the state of an open assignment dialog for one bed.
type Dialog struct {
	BedID             string             `json:"bedId"`
	Bed               hospital.Bed       `json:"bed"`
	Candidates        []hospital.Patient `json:"candidates"`
	CandidatesMock    bool               `json:"candidatesMock"`
	Advisory          string             `json:"advisory,omitempty"`
	NoCandidates      bool               `json:"noCandidates"`
	SelectedPatientID string             `json:"selectedPatientId,omitempty"`
	Submitting        bool               `json:"submitting"`
	Error             string             `json:"error,omitempty"`
	Open              bool               `json:"open"`
}

func (d *Dialog) snapshot() Dialog {
	c := *d
	c.Candidates = slices.Clone(d.Candidates)
	return c
}

func (d *Dialog) candidate(patientID string) (hospital.Patient, bool) {
	for _, p := range d.Candidates {
		if slices.Contains(p.IDs(), patientID) {
			return p, true
		}
	}
	return hospital.Patient{}, false
}

// Workflow runs bed assignment, discharge and status changes.
type Workflow struct {
	api       HospitalAPI
	directory *Directory
	fetcher   *fetch.Fetcher
	store     Store
	locker    Locker
	events    EventLog
	notices   *Notices
	fallback  func() []hospital.Patient
	logger    *zap.Logger
	now       func() time.Time

	mu      sync.Mutex
	dialogs map[string]*Dialog
}

type WorkflowDeps struct {
	API       HospitalAPI
	Directory *Directory
	Fetcher   *fetch.Fetcher
	Store     Store
	Locker    Locker
	Events    EventLog
	Notices   *Notices
	// Fallback supplies sample candidates when the patient list cannot be fetched.
	Fallback func() []hospital.Patient
	Logger   *zap.Logger
}

func NewWorkflow(deps WorkflowDeps) *Workflow {
	w := &Workflow{
		api:       deps.API,
		directory: deps.Directory,
		fetcher:   deps.Fetcher,
		store:     deps.Store,
		locker:    deps.Locker,
		events:    deps.Events,
		notices:   deps.Notices,
		fallback:  deps.Fallback,
		logger:    deps.Logger,
		now:       time.Now,
		dialogs:   make(map[string]*Dialog),
	}
	if w.locker == nil {
		w.locker = NewLocalLocker()
	}
	if w.events == nil {
		w.events = NewMemoryEventLog(0)
	}
	if w.notices == nil {
		w.notices = NewNotices(3 * time.Second)
	}
	if w.fallback == nil {
		w.fallback = func() []hospital.Patient { return []hospital.Patient{} }
	}
	return w
}

func (w *Workflow) Notices() *Notices {
	return w.notices
}

// OpenAssignment opens the dialog for an empty bed. Patients already holding
// any bed are left out of the candidates; an empty candidate list keeps the
// dialog open with NoCandidates set.
func (w *Workflow) OpenAssignment(ctx context.Context, bedID string) (Dialog, error) {
	snap := w.directory.Settled(ctx)

	var bed hospital.Bed
	found := false
	for _, b := range snap.Beds {
		if b.ID == bedID {
			bed, found = b, true
			break
		}
	}
	if !found {
		return Dialog{}, fmt.Errorf("bed %s: %w", bedID, ErrBedNotFound)
	}
	if err := CanAssign(bed); err != nil {
		return Dialog{}, err
	}

	res := fetch.List(ctx, w.fetcher, "patients", w.api.ListPatientsWithAppointments, w.fallback)

	occupied := hospital.OccupiedPatientIDs(snap.Beds)
	candidates := listing.Filter(res.Items, listing.Predicate[hospital.Patient](func(p hospital.Patient) bool {
		for _, id := range p.IDs() {
			if _, taken := occupied[id]; taken {
				return false
			}
		}
		return true
	}))

	d := &Dialog{
		BedID:          bedID,
		Bed:            bed,
		Candidates:     candidates,
		CandidatesMock: res.UsedMock,
		Advisory:       res.Advisory,
		NoCandidates:   len(candidates) == 0,
		Open:           true,
	}

	w.mu.Lock()
	if existing, ok := w.dialogs[bedID]; ok && existing.Submitting {
		w.mu.Unlock()
		return existing.snapshot(), ErrSubmissionInFlight
	}
	w.dialogs[bedID] = d
	out := d.snapshot()
	w.mu.Unlock()

	w.logger.Debug("assignment dialog opened",
		zap.String("bed_id", bedID),
		zap.Int("candidates", len(candidates)),
		zap.Bool("candidates_mock", res.UsedMock),
	)
	return out, nil
}

// Dialog returns the open dialog for bedID.
func (w *Workflow) Dialog(bedID string) (Dialog, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	d, ok := w.dialogs[bedID]
	if !ok {
		return Dialog{}, false
	}
	return d.snapshot(), true
}

// CloseAssignment discards the dialog for bedID.
func (w *Workflow) CloseAssignment(bedID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.dialogs, bedID)
}

// ConfirmAssignment assigns patientID to the dialog's bed. An empty patientID
// is a no-op. On failure the dialog stays open with its selection and error
// so the user can retry.
func (w *Workflow) ConfirmAssignment(ctx context.Context, bedID, patientID string) (Dialog, error) {
	w.mu.Lock()
	d, ok := w.dialogs[bedID]
	if !ok || !d.Open {
		w.mu.Unlock()
		return Dialog{}, fmt.Errorf("bed %s: %w", bedID, ErrNoOpenDialog)
	}
	if patientID == "" {
		out := d.snapshot()
		w.mu.Unlock()
		return out, nil
	}
	if d.Submitting {
		out := d.snapshot()
		w.mu.Unlock()
		return out, ErrSubmissionInFlight
	}

	d.SelectedPatientID = patientID
	patient, ok := d.candidate(patientID)
	if !ok {
		d.Error = "The selected patient is no longer available for assignment."
		out := d.snapshot()
		w.mu.Unlock()
		return out, fmt.Errorf("patient %s: %w", patientID, ErrPatientUnavailable)
	}
	d.Submitting = true
	d.Error = ""
	bed := d.Bed
	w.mu.Unlock()

	mode := w.mode()
	err := w.locker.WithBedLock(ctx, bedID, func(lockCtx context.Context) error {
		return w.assign(lockCtx, mode, bed, patient)
	})
	if errors.Is(err, ErrLockNotAcquired) {
		err = ErrSubmissionInFlight
	}
	metrics.RecordBedTransition(string(ActionAssign), mode, err)

	w.mu.Lock()
	defer w.mu.Unlock()
	d.Submitting = false

	if err != nil {
		d.Error = failureMessage(err)
		w.notices.Error(d.Error)
		w.logger.Warn("bed assignment failed",
			zap.String("bed_id", bedID),
			zap.String("patient_id", patient.ID),
			zap.String("mode", mode),
			zap.Error(err),
		)
		return d.snapshot(), err
	}

	d.Open = false
	d.SelectedPatientID = ""
	if w.dialogs[bedID] == d {
		delete(w.dialogs, bedID)
	}
	w.notices.Success(fmt.Sprintf("%s assigned to bed %s.", patient.DisplayName, bed.ID))
	return d.snapshot(), nil
}

func (w *Workflow) assign(ctx context.Context, mode string, bed hospital.Bed, patient hospital.Patient) error {
	if mode == ModeMock {
		if _, err := w.store.Assign(bed.ID, hospital.SummaryFor(patient, w.now())); err != nil {
			return err
		}
	} else if err := w.api.AssignPatient(ctx, bed.ID, patient.ID); err != nil {
		return err
	}

	w.directory.Refresh(ctx)
	w.logEvent(ctx, EventPatientAssigned, mode, bed.ID, patient.ID, map[string]any{
		"patient_name": patient.DisplayName,
		"ward":         bed.Ward,
		"room":         bed.Room,
	})
	return nil
}

// Discharge frees an occupied bed.
func (w *Workflow) Discharge(ctx context.Context, bedID string) error {
	bed, err := w.directory.Find(ctx, bedID)
	if err != nil {
		return err
	}
	if err := CanDischarge(bed); err != nil {
		return err
	}

	mode := w.mode()
	err = w.locker.WithBedLock(ctx, bedID, func(lockCtx context.Context) error {
		if mode == ModeMock {
			if _, err := w.store.Discharge(bedID); err != nil {
				return err
			}
		} else if err := w.api.DischargePatient(lockCtx, bedID); err != nil {
			return err
		}

		w.directory.Refresh(lockCtx)
		w.logEvent(lockCtx, EventPatientDischarged, mode, bedID, bed.Patient.ID, map[string]any{
			"patient_name": bed.Patient.Name,
		})
		return nil
	})
	return w.finish(ActionDischarge, mode, bedID, err, fmt.Sprintf("%s discharged from bed %s.", bed.Patient.Name, bedID))
}

// SetStatus toggles a bed between Available, Maintenance and Reserved.
func (w *Workflow) SetStatus(ctx context.Context, bedID string, status hospital.BedStatus) error {
	bed, err := w.directory.Find(ctx, bedID)
	if err != nil {
		return err
	}
	if err := ValidateTransition(bed, status); err != nil {
		return err
	}

	mode := w.mode()
	err = w.locker.WithBedLock(ctx, bedID, func(lockCtx context.Context) error {
		if mode == ModeMock {
			if _, err := w.store.SetStatus(bedID, status); err != nil {
				return err
			}
		} else if err := w.api.UpdateBedStatus(lockCtx, bedID, status); err != nil {
			return err
		}

		w.directory.Refresh(lockCtx)
		w.logEvent(lockCtx, EventStatusChanged, mode, bedID, "", map[string]any{
			"from": string(bed.Status),
			"to":   string(status),
		})
		return nil
	})
	return w.finish(statusAction(status), mode, bedID, err, fmt.Sprintf("Bed %s is now %s.", bedID, status))
}

func (w *Workflow) finish(action Action, mode, bedID string, err error, success string) error {
	if errors.Is(err, ErrLockNotAcquired) {
		err = ErrSubmissionInFlight
	}
	metrics.RecordBedTransition(string(action), mode, err)

	if err != nil {
		w.notices.Error(failureMessage(err))
		w.logger.Warn("bed action failed",
			zap.String("action", string(action)),
			zap.String("bed_id", bedID),
			zap.String("mode", mode),
			zap.Error(err),
		)
		return err
	}
	w.notices.Success(success)
	return nil
}

func (w *Workflow) mode() string {
	if w.directory.LocalMode() {
		return ModeMock
	}
	return ModeRemote
}

func (w *Workflow) logEvent(ctx context.Context, eventType, mode, bedID, patientID string, payload map[string]any) {
	ev := Event{
		ID:        uuid.New(),
		Type:      eventType,
		BedID:     bedID,
		PatientID: patientID,
		Mode:      mode,
		Payload:   payload,
		CreatedAt: w.now(),
	}
	if err := w.events.Record(ctx, ev); err != nil {
		w.logger.Error("failed to record bed event",
			zap.String("event_type", eventType),
			zap.String("bed_id", bedID),
			zap.Error(err),
		)
	}
}

func statusAction(status hospital.BedStatus) Action {
	switch status {
	case hospital.BedMaintenance:
		return ActionSetMaintenance
	case hospital.BedReserved:
		return ActionReserve
	default:
		return ActionSetAvailable
	}
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, ErrSubmissionInFlight):
		return "This bed is already being updated. Please wait."
	case errors.Is(err, ErrBedOccupied):
		return "This bed already has a patient."
	case errors.Is(err, ErrBedNotOccupied):
		return "This bed has no patient to discharge."
	case errors.Is(err, ErrInvalidTransition):
		return "That status change is not allowed for this bed."
	case errors.Is(err, ErrBedNotFound):
		return "This bed no longer exists."
	}
	return hospitalapi.UserMessage(err)
}
