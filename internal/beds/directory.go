package beds

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hackgods/ward-dashboard/internal/fetch"
	"github.com/hackgods/ward-dashboard/internal/hospital"
	"github.com/hackgods/ward-dashboard/internal/hospitalapi"
	"github.com/hackgods/ward-dashboard/internal/metrics"
)

// HospitalAPI is the part of the hospital REST API the bed view needs.
type HospitalAPI interface {
	ListBeds(ctx context.Context, q hospitalapi.BedQuery) ([]hospital.Bed, error)
	UpdateBedStatus(ctx context.Context, bedID string, status hospital.BedStatus) error
	AssignPatient(ctx context.Context, bedID, patientID string) error
	DischargePatient(ctx context.Context, bedID string) error
	ListPatientsWithAppointments(ctx context.Context) ([]hospital.Patient, error)
}

// Snapshot is the bed list as last fetched.
type Snapshot struct {
	Beds      []hospital.Bed `json:"beds"`
	UsedMock  bool           `json:"usedMock"`
	Reason    string         `json:"reason,omitempty"`
	Advisory  string         `json:"advisory,omitempty"`
	FetchedAt time.Time      `json:"fetchedAt"`
}

// Directory holds the bed list the dashboard renders. It is never patched in
// place: every change is followed by a full Refresh.
type Directory struct {
	api     HospitalAPI
	fetcher *fetch.Fetcher
	store   Store
	logger  *zap.Logger
	now     func() time.Time

	mu     sync.RWMutex
	snap   Snapshot
	loaded bool
}

func NewDirectory(api HospitalAPI, fetcher *fetch.Fetcher, store Store, logger *zap.Logger) *Directory {
	return &Directory{
		api:     api,
		fetcher: fetcher,
		store:   store,
		logger:  logger,
		now:     time.Now,
	}
}

// Refresh re-fetches every bed. When the backend cannot be trusted the local
// store answers instead, so local assignments stay visible.
func (d *Directory) Refresh(ctx context.Context) Snapshot {
	res := fetch.List(ctx, d.fetcher, "beds",
		func(ctx context.Context) ([]hospital.Bed, error) {
			return d.api.ListBeds(ctx, hospitalapi.BedQuery{})
		},
		d.store.Beds,
	)

	if errs := hospital.CheckBeds(res.Items); len(errs) > 0 {
		metrics.RecordInvariantViolations(len(errs))
		for _, err := range errs {
			d.logger.Warn("bed invariant violated", zap.Error(err), zap.Bool("mock", res.UsedMock))
		}
	}

	snap := Snapshot{
		Beds:      res.Items,
		UsedMock:  res.UsedMock,
		Reason:    res.Reason,
		Advisory:  res.Advisory,
		FetchedAt: d.now(),
	}

	d.mu.Lock()
	d.snap = snap
	d.loaded = true
	d.mu.Unlock()

	return snap.clone()
}

// Current returns the last snapshot, fetching once if nothing was loaded yet.
func (d *Directory) Current(ctx context.Context) Snapshot {
	d.mu.RLock()
	snap, loaded := d.snap, d.loaded
	d.mu.RUnlock()

	if !loaded {
		return d.Refresh(ctx)
	}
	return snap.clone()
}

// Settled returns the snapshot a mutation should act on. When the probe says
// the backend is down but the snapshot still holds backend beds, it refetches
// so the beds come from the local store.
func (d *Directory) Settled(ctx context.Context) Snapshot {
	snap := d.Current(ctx)
	if d.fetcher.Disconnected() && (!snap.UsedMock || snap.Reason == fetch.ReasonUpstreamMock) {
		d.logger.Debug("bed snapshot predates disconnect, refreshing")
		return d.Refresh(ctx)
	}
	return snap
}

// Find looks a bed up in the settled snapshot.
func (d *Directory) Find(ctx context.Context, bedID string) (hospital.Bed, error) {
	for _, b := range d.Settled(ctx).Beds {
		if b.ID == bedID {
			return b, nil
		}
	}
	return hospital.Bed{}, fmt.Errorf("bed %s: %w", bedID, ErrBedNotFound)
}

// LocalMode reports whether mutations must go to the local store: either the
// last probe failed or the last fetch fell back because the backend failed.
// Canned data served by the backend itself does not count.
func (d *Directory) LocalMode() bool {
	if d.fetcher.Disconnected() {
		return true
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.snap.UsedMock && d.snap.Reason != fetch.ReasonUpstreamMock
}

func (s Snapshot) clone() Snapshot {
	beds := make([]hospital.Bed, len(s.Beds))
	for i, b := range s.Beds {
		beds[i] = cloneBed(b)
	}
	s.Beds = beds
	return s
}
