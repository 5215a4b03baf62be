package fetch

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hackgods/ward-dashboard/internal/hospital"
	"github.com/hackgods/ward-dashboard/internal/hospitalapi"
	"github.com/hackgods/ward-dashboard/internal/mockdata"
)

type staticGate bool

func (g staticGate) Disconnected() bool { return bool(g) }

func liveBeds(ctx context.Context) ([]hospital.Bed, error) {
	return []hospital.Bed{{ID: "B-1", Status: hospital.BedAvailable}}, nil
}

func failingBeds(ctx context.Context) ([]hospital.Bed, error) {
	return nil, &hospitalapi.Error{Op: "list beds", Code: hospitalapi.CodeTransport, Err: errors.New("dial tcp: connection refused")}
}

func TestList_LiveData(t *testing.T) {
	f := New(staticGate(false), zap.NewNop())

	res := List(context.Background(), f, "beds", liveBeds, mockdata.Beds)
	assert.False(t, res.UsedMock)
	assert.Empty(t, res.Advisory)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "B-1", res.Items[0].ID)
}

func TestList_TransportFailureIsDeterministic(t *testing.T) {
	f := New(staticGate(false), zap.NewNop())

	first := List(context.Background(), f, "beds", failingBeds, mockdata.Beds)
	second := List(context.Background(), f, "beds", failingBeds, mockdata.Beds)

	assert.True(t, first.UsedMock)
	assert.Equal(t, ReasonRemoteError, first.Reason)
	assert.Contains(t, first.Advisory, "sample beds")
	assert.NotEmpty(t, first.Items)
	assert.Equal(t, first.Items, second.Items)
	for _, b := range first.Items {
		assert.True(t, b.Mock)
	}
}

func TestList_DisconnectedSkipsRemote(t *testing.T) {
	f := New(staticGate(true), zap.NewNop())

	called := false
	remote := func(ctx context.Context) ([]hospital.Bed, error) {
		called = true
		return liveBeds(ctx)
	}

	res := List(context.Background(), f, "beds", remote, mockdata.Beds)
	assert.False(t, called)
	assert.True(t, res.UsedMock)
	assert.Equal(t, ReasonDisconnected, res.Reason)
}

func TestList_UpstreamMockPropagates(t *testing.T) {
	f := New(staticGate(false), zap.NewNop())

	remote := func(ctx context.Context) ([]hospital.Patient, error) {
		return []hospital.Patient{{ID: "P-1", Mock: true}, {ID: "P-2", Mock: true}}, nil
	}

	res := List(context.Background(), f, "patients", remote, mockdata.Patients)
	assert.True(t, res.UsedMock)
	assert.Equal(t, ReasonUpstreamMock, res.Reason)
	require.Len(t, res.Items, 2)
	assert.Equal(t, "P-1", res.Items[0].ID)
}

func TestList_ServerErrorAdvisoryCarriesMessage(t *testing.T) {
	f := New(staticGate(false), zap.NewNop())

	remote := func(ctx context.Context) ([]hospital.Medicine, error) {
		return nil, &hospitalapi.Error{Op: "list medicines", Code: hospitalapi.CodeServer, Status: 500, Message: "inventory service down"}
	}

	res := List(context.Background(), f, "medicines", remote, mockdata.Medicines)
	assert.True(t, res.UsedMock)
	assert.Contains(t, res.Advisory, "inventory service down")
}

func TestList_EmptyLiveListIsNotMock(t *testing.T) {
	f := New(nil, zap.NewNop())

	remote := func(ctx context.Context) ([]hospital.Bed, error) { return nil, nil }

	res := List(context.Background(), f, "beds", remote, mockdata.Beds)
	assert.False(t, res.UsedMock)
	assert.NotNil(t, res.Items)
	assert.Empty(t, res.Items)
}
