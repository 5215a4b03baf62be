package beds

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hackgods/ward-dashboard/internal/fetch"
	"github.com/hackgods/ward-dashboard/internal/hospital"
	"github.com/hackgods/ward-dashboard/internal/hospitalapi"
	"github.com/hackgods/ward-dashboard/internal/mockdata"
)

type staticGate bool

func (g staticGate) Disconnected() bool { return bool(g) }

type switchGate struct{ down atomic.Bool }

func (g *switchGate) Disconnected() bool { return g.down.Load() }

// fakeAPI behaves like the hospital backend: mutations change what the next
// ListBeds returns.
type fakeAPI struct {
	mu          sync.Mutex
	beds        []hospital.Bed
	patients    []hospital.Patient
	listErr     error
	patientsErr error
	assignErr   error
	assigned    []string
	onAssign    func()
}

func (f *fakeAPI) ListBeds(ctx context.Context, q hospitalapi.BedQuery) ([]hospital.Bed, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]hospital.Bed, len(f.beds))
	for i, b := range f.beds {
		out[i] = cloneBed(b)
	}
	return out, nil
}

func (f *fakeAPI) ListPatientsWithAppointments(ctx context.Context) ([]hospital.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.patientsErr != nil {
		return nil, f.patientsErr
	}
	return append([]hospital.Patient(nil), f.patients...), nil
}

func (f *fakeAPI) AssignPatient(ctx context.Context, bedID, patientID string) error {
	if f.onAssign != nil {
		f.onAssign()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.assigned = append(f.assigned, bedID+"="+patientID)
	if f.assignErr != nil {
		return f.assignErr
	}
	for i := range f.beds {
		if f.beds[i].ID == bedID {
			f.beds[i].Status = hospital.BedOccupied
			f.beds[i].Patient = &hospital.PatientSummary{ID: patientID, Name: "Assigned " + patientID}
		}
	}
	return nil
}

func (f *fakeAPI) DischargePatient(ctx context.Context, bedID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.beds {
		if f.beds[i].ID == bedID {
			f.beds[i].Status = hospital.BedAvailable
			f.beds[i].Patient = nil
		}
	}
	return nil
}

func (f *fakeAPI) UpdateBedStatus(ctx context.Context, bedID string, status hospital.BedStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.beds {
		if f.beds[i].ID == bedID {
			f.beds[i].Status = status
		}
	}
	return nil
}

func (f *fakeAPI) assignCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.assigned)
}

func liveWard() *fakeAPI {
	return &fakeAPI{
		beds: []hospital.Bed{
			{ID: "BED-001", Ward: "General Ward", Room: "101", Status: hospital.BedOccupied,
				Patient: &hospital.PatientSummary{ID: "P-10001", Name: "Marko Jovanovic"}},
			{ID: "BED-002", Ward: "General Ward", Room: "101", Status: hospital.BedOccupied,
				Patient: &hospital.PatientSummary{ID: "P-10002", Name: "Jelena Markovic"}},
			{ID: "BED-003", Ward: "General Ward", Room: "102", Status: hospital.BedAvailable},
			{ID: "BED-004", Ward: "ICU", Room: "201", Status: hospital.BedMaintenance},
		},
		patients: []hospital.Patient{
			{ID: "P-10001", DisplayName: "Marko Jovanovic"},
			// upstream sent the bed's id as "id" and its own code as "patientId"
			{ID: "P-20002", RecordID: "P-10002", DisplayName: "Jelena Markovic"},
			{ID: "P-10099", DisplayName: "Milica Stojanovic"},
		},
	}
}

type harness struct {
	api       *fakeAPI
	directory *Directory
	store     *MemoryStore
	events    *MemoryEventLog
	workflow  *Workflow
}

func newHarness(api *fakeAPI, disconnected bool) *harness {
	return newHarnessWithGate(api, staticGate(disconnected))
}

func newHarnessWithGate(api *fakeAPI, gate fetch.ConnectivityGate) *harness {
	logger := zap.NewNop()
	fetcher := fetch.New(gate, logger)
	store := NewMemoryStore(mockdata.Beds)
	directory := NewDirectory(api, fetcher, store, logger)
	events := NewMemoryEventLog(10)

	workflow := NewWorkflow(WorkflowDeps{
		API:       api,
		Directory: directory,
		Fetcher:   fetcher,
		Store:     store,
		Events:    events,
		Fallback:  mockdata.Patients,
		Logger:    logger,
	})

	return &harness{api: api, directory: directory, store: store, events: events, workflow: workflow}
}

func bedByID(t *testing.T, beds []hospital.Bed, id string) hospital.Bed {
	t.Helper()
	for _, b := range beds {
		if b.ID == id {
			return b
		}
	}
	t.Fatalf("bed %s not found", id)
	return hospital.Bed{}
}

func candidateIDs(d Dialog) []string {
	ids := make([]string, 0, len(d.Candidates))
	for _, p := range d.Candidates {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestWorkflow_ExcludesPatientKnownOnBedByRecordID(t *testing.T) {
	api := liveWard()
	api.beds[0].Patient = &hospital.PatientSummary{ID: "P-10001", RecordID: "42", Name: "Marko Jovanovic"}
	api.patients = append(api.patients, hospital.Patient{ID: "42", DisplayName: "Marko Jovanovic"})
	h := newHarness(api, false)

	d, err := h.workflow.OpenAssignment(context.Background(), "BED-003")
	require.NoError(t, err)
	assert.Equal(t, []string{"P-10099"}, candidateIDs(d))

	_, err = h.workflow.ConfirmAssignment(context.Background(), "BED-003", "42")
	assert.ErrorIs(t, err, ErrPatientUnavailable)
	assert.Zero(t, api.assignCalls())
}

func TestWorkflow_AssignPatientToAvailableBed(t *testing.T) {
	h := newHarness(liveWard(), false)
	ctx := context.Background()

	d, err := h.workflow.OpenAssignment(ctx, "BED-003")
	require.NoError(t, err)
	assert.True(t, d.Open)
	assert.False(t, d.CandidatesMock)
	assert.Equal(t, []string{"P-10099"}, candidateIDs(d))

	d, err = h.workflow.ConfirmAssignment(ctx, "BED-003", "P-10099")
	require.NoError(t, err)
	assert.False(t, d.Open)
	assert.Empty(t, d.SelectedPatientID)

	_, stillOpen := h.workflow.Dialog("BED-003")
	assert.False(t, stillOpen)

	snap := h.directory.Current(ctx)
	assert.False(t, snap.UsedMock)
	bed := bedByID(t, snap.Beds, "BED-003")
	assert.Equal(t, hospital.BedOccupied, bed.Status)
	require.NotNil(t, bed.Patient)
	assert.Equal(t, "P-10099", bed.Patient.ID)
	assert.Empty(t, hospital.CheckBeds(snap.Beds))

	notice := h.workflow.Notices().Current()
	require.NotNil(t, notice)
	assert.Equal(t, NoticeSuccess, notice.Kind)

	events, err := h.events.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, EventPatientAssigned, events[0].Type)
	assert.Equal(t, ModeRemote, events[0].Mode)
}

func TestWorkflow_ConfirmWithoutPatientIsNoOp(t *testing.T) {
	h := newHarness(liveWard(), false)
	ctx := context.Background()

	_, err := h.workflow.OpenAssignment(ctx, "BED-003")
	require.NoError(t, err)
	before := h.directory.Current(ctx)

	d, err := h.workflow.ConfirmAssignment(ctx, "BED-003", "")
	require.NoError(t, err)
	assert.True(t, d.Open)
	assert.Equal(t, 0, h.api.assignCalls())
	assert.Equal(t, before.Beds, h.directory.Current(ctx).Beds)

	_, stillOpen := h.workflow.Dialog("BED-003")
	assert.True(t, stillOpen)
}

func TestWorkflow_ConfirmWithoutDialog(t *testing.T) {
	h := newHarness(liveWard(), false)

	_, err := h.workflow.ConfirmAssignment(context.Background(), "BED-003", "P-10099")
	assert.ErrorIs(t, err, ErrNoOpenDialog)
	assert.Equal(t, 0, h.api.assignCalls())
}

func TestWorkflow_OccupiedPatientCannotBeSelected(t *testing.T) {
	h := newHarness(liveWard(), false)
	ctx := context.Background()

	_, err := h.workflow.OpenAssignment(ctx, "BED-003")
	require.NoError(t, err)

	d, err := h.workflow.ConfirmAssignment(ctx, "BED-003", "P-10001")
	assert.ErrorIs(t, err, ErrPatientUnavailable)
	assert.True(t, d.Open)
	assert.Equal(t, "P-10001", d.SelectedPatientID)
	assert.NotEmpty(t, d.Error)
	assert.Equal(t, 0, h.api.assignCalls())
}

func TestWorkflow_FailureKeepsDialogAndSelection(t *testing.T) {
	api := liveWard()
	api.assignErr = &hospitalapi.Error{Op: "assign patient", Code: hospitalapi.CodeConflict, Status: http.StatusConflict, Message: "bed locked by another user"}
	h := newHarness(api, false)
	ctx := context.Background()

	_, err := h.workflow.OpenAssignment(ctx, "BED-003")
	require.NoError(t, err)

	d, err := h.workflow.ConfirmAssignment(ctx, "BED-003", "P-10099")
	require.Error(t, err)
	assert.True(t, d.Open)
	assert.False(t, d.Submitting)
	assert.Equal(t, "P-10099", d.SelectedPatientID)
	assert.Equal(t, "bed locked by another user", d.Error)

	notice := h.workflow.Notices().Current()
	require.NotNil(t, notice)
	assert.Equal(t, NoticeError, notice.Kind)

	// retry once the backend recovers
	api.mu.Lock()
	api.assignErr = nil
	api.mu.Unlock()

	d, err = h.workflow.ConfirmAssignment(ctx, "BED-003", "P-10099")
	require.NoError(t, err)
	assert.False(t, d.Open)
	assert.Equal(t, NoticeSuccess, h.workflow.Notices().Current().Kind)
}

func TestWorkflow_InvalidIdentifierGetsDedicatedMessage(t *testing.T) {
	api := liveWard()
	api.assignErr = &hospitalapi.Error{Op: "assign patient", Code: hospitalapi.CodeInvalidIdentifier, Status: 500}
	h := newHarness(api, false)
	ctx := context.Background()

	_, err := h.workflow.OpenAssignment(ctx, "BED-003")
	require.NoError(t, err)

	d, err := h.workflow.ConfirmAssignment(ctx, "BED-003", "P-10099")
	assert.Equal(t, hospitalapi.CodeInvalidIdentifier, hospitalapi.CodeOf(err))
	assert.Contains(t, d.Error, "rejected the patient identifier")
}

func TestWorkflow_ConcurrentConfirmRejected(t *testing.T) {
	api := liveWard()
	h := newHarness(api, false)
	ctx := context.Background()

	_, err := h.workflow.OpenAssignment(ctx, "BED-003")
	require.NoError(t, err)

	var nestedErr error
	var nested Dialog
	api.onAssign = func() {
		api.onAssign = nil
		nested, nestedErr = h.workflow.ConfirmAssignment(ctx, "BED-003", "P-10099")
	}

	_, err = h.workflow.ConfirmAssignment(ctx, "BED-003", "P-10099")
	require.NoError(t, err)
	assert.ErrorIs(t, nestedErr, ErrSubmissionInFlight)
	assert.True(t, nested.Submitting)
	assert.Equal(t, 1, api.assignCalls())
}

func TestWorkflow_NoCandidatesKeepsDialogOpen(t *testing.T) {
	api := liveWard()
	api.patients = []hospital.Patient{{ID: "P-10001"}, {ID: "P-10002"}}
	h := newHarness(api, false)

	d, err := h.workflow.OpenAssignment(context.Background(), "BED-003")
	require.NoError(t, err)
	assert.True(t, d.Open)
	assert.True(t, d.NoCandidates)
	assert.Empty(t, d.Candidates)
}

func TestWorkflow_OpenOnOccupiedBed(t *testing.T) {
	h := newHarness(liveWard(), false)

	_, err := h.workflow.OpenAssignment(context.Background(), "BED-001")
	assert.ErrorIs(t, err, ErrBedOccupied)

	_, err = h.workflow.OpenAssignment(context.Background(), "BED-404")
	assert.ErrorIs(t, err, ErrBedNotFound)
}

func TestWorkflow_MockModeScenario(t *testing.T) {
	api := liveWard()
	api.listErr = &hospitalapi.Error{Op: "list beds", Code: hospitalapi.CodeTimeout, Err: context.DeadlineExceeded}
	api.patientsErr = api.listErr
	h := newHarness(api, false)
	ctx := context.Background()

	snap := h.directory.Refresh(ctx)
	require.True(t, snap.UsedMock)
	assert.NotEmpty(t, snap.Advisory)
	require.NotEmpty(t, snap.Beds)
	for _, b := range snap.Beds {
		assert.True(t, b.Mock, b.ID)
	}
	assert.True(t, h.directory.LocalMode())

	d, err := h.workflow.OpenAssignment(ctx, "BED-003")
	require.NoError(t, err)
	assert.True(t, d.CandidatesMock)
	assert.NotContains(t, candidateIDs(d), "P-10001")
	assert.NotContains(t, candidateIDs(d), "P-10002")
	assert.Contains(t, candidateIDs(d), "P-10099")

	_, err = h.workflow.ConfirmAssignment(ctx, "BED-003", "P-10099")
	require.NoError(t, err)
	assert.Equal(t, 0, api.assignCalls())

	after := h.directory.Current(ctx)
	bed := bedByID(t, after.Beds, "BED-003")
	assert.Equal(t, hospital.BedOccupied, bed.Status)
	require.NotNil(t, bed.Patient)
	assert.Equal(t, "P-10099", bed.Patient.ID)
	assert.Equal(t, "Milica Stojanovic", bed.Patient.Name)
	assert.True(t, bed.Mock)
	assert.Empty(t, hospital.CheckBeds(after.Beds))

	// local state survives another refresh while the backend is still down
	again := h.directory.Refresh(ctx)
	assert.Equal(t, hospital.BedOccupied, bedByID(t, again.Beds, "BED-003").Status)

	events, _ := h.events.Recent(ctx, 1)
	require.Len(t, events, 1)
	assert.Equal(t, ModeMock, events[0].Mode)
}

func TestWorkflow_MockModeUnknownAgeStillRenders(t *testing.T) {
	h := newHarness(liveWard(), true)
	ctx := context.Background()

	_, err := h.workflow.OpenAssignment(ctx, "BED-005")
	require.NoError(t, err)
	_, err = h.workflow.ConfirmAssignment(ctx, "BED-005", "P-10004")
	require.NoError(t, err)

	bed := bedByID(t, h.directory.Current(ctx).Beds, "BED-005")
	require.NotNil(t, bed.Patient)
	assert.Equal(t, hospital.UnknownAgeLabel, bed.Patient.AgeLabel())
	assert.Equal(t, hospital.DefaultDiagnosis, bed.Patient.Diagnosis)
	assert.Equal(t, hospital.DefaultDoctor, bed.Patient.Doctor)
}

func TestWorkflow_UpstreamMockDataStillAssignsRemotely(t *testing.T) {
	api := liveWard()
	for i := range api.beds {
		api.beds[i].Mock = true
	}
	h := newHarness(api, false)
	ctx := context.Background()

	snap := h.directory.Refresh(ctx)
	assert.True(t, snap.UsedMock)
	assert.Equal(t, fetch.ReasonUpstreamMock, snap.Reason)
	assert.False(t, h.directory.LocalMode())

	_, err := h.workflow.OpenAssignment(ctx, "BED-003")
	require.NoError(t, err)
	_, err = h.workflow.ConfirmAssignment(ctx, "BED-003", "P-10099")
	require.NoError(t, err)
	assert.Equal(t, 1, api.assignCalls())
}

func TestWorkflow_DischargeAndStatusToggle(t *testing.T) {
	h := newHarness(liveWard(), false)
	ctx := context.Background()

	require.NoError(t, h.workflow.Discharge(ctx, "BED-001"))
	bed := bedByID(t, h.directory.Current(ctx).Beds, "BED-001")
	assert.Equal(t, hospital.BedAvailable, bed.Status)
	assert.Nil(t, bed.Patient)

	assert.ErrorIs(t, h.workflow.Discharge(ctx, "BED-003"), ErrBedNotOccupied)

	// occupied beds cannot go to maintenance directly
	err := h.workflow.SetStatus(ctx, "BED-002", hospital.BedMaintenance)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, NoticeSuccess, h.workflow.Notices().Current().Kind)

	require.NoError(t, h.workflow.SetStatus(ctx, "BED-004", hospital.BedAvailable))
	assert.Equal(t, hospital.BedAvailable, bedByID(t, h.directory.Current(ctx).Beds, "BED-004").Status)

	events, _ := h.events.Recent(ctx, 0)
	require.Len(t, events, 2)
	assert.Equal(t, EventStatusChanged, events[0].Type)
	assert.Equal(t, EventPatientDischarged, events[1].Type)
}

func TestWorkflow_DischargeInMockMode(t *testing.T) {
	h := newHarness(liveWard(), true)
	ctx := context.Background()

	require.NoError(t, h.workflow.Discharge(ctx, "BED-002"))
	bed := bedByID(t, h.directory.Current(ctx).Beds, "BED-002")
	assert.Equal(t, hospital.BedAvailable, bed.Status)
	assert.True(t, bed.Mock)

	require.NoError(t, h.workflow.SetStatus(ctx, "BED-002", hospital.BedMaintenance))
	assert.Equal(t, hospital.BedMaintenance, bedByID(t, h.directory.Current(ctx).Beds, "BED-002").Status)
}

func TestWorkflow_DisconnectAfterRefreshActsOnLocalBeds(t *testing.T) {
	api := liveWard()
	api.beds = append(api.beds, hospital.Bed{ID: "BED-101", Ward: "Surgery", Room: "401", Status: hospital.BedAvailable})
	gate := &switchGate{}
	h := newHarnessWithGate(api, gate)
	ctx := context.Background()

	assert.False(t, h.directory.Current(ctx).UsedMock)
	gate.down.Store(true)

	_, err := h.workflow.OpenAssignment(ctx, "BED-101")
	assert.ErrorIs(t, err, ErrBedNotFound)
	assert.ErrorIs(t, h.workflow.SetStatus(ctx, "BED-101", hospital.BedMaintenance), ErrBedNotFound)

	snap := h.directory.Current(ctx)
	assert.True(t, snap.UsedMock)
	assert.Equal(t, fetch.ReasonDisconnected, snap.Reason)

	require.NoError(t, h.workflow.Discharge(ctx, "BED-002"))
	bed := bedByID(t, h.directory.Current(ctx).Beds, "BED-002")
	assert.Equal(t, hospital.BedAvailable, bed.Status)
	assert.True(t, bed.Mock)
	assert.Zero(t, api.assignCalls())
}

type failingLocker struct{}

func (failingLocker) WithBedLock(ctx context.Context, bedID string, fn func(ctx context.Context) error) error {
	return ErrLockNotAcquired
}

func TestWorkflow_LockHeldElsewhere(t *testing.T) {
	api := liveWard()
	logger := zap.NewNop()
	fetcher := fetch.New(staticGate(false), logger)
	store := NewMemoryStore(mockdata.Beds)
	directory := NewDirectory(api, fetcher, store, logger)
	w := NewWorkflow(WorkflowDeps{
		API: api, Directory: directory, Fetcher: fetcher, Store: store,
		Locker: failingLocker{}, Fallback: mockdata.Patients, Logger: logger,
	})

	err := w.Discharge(context.Background(), "BED-001")
	assert.True(t, errors.Is(err, ErrSubmissionInFlight))
	assert.Equal(t, NoticeError, w.Notices().Current().Kind)
}
