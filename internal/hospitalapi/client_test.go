package hospitalapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/hackgods/ward-dashboard/internal/hospital"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewClient(Options{BaseURL: srv.URL, Timeout: time.Second}, zap.NewNop())
}

func TestClient_ListBeds_BareArray(t *testing.T) {
	var gotQuery string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/doctor/beds", r.URL.Path)
		gotQuery = r.URL.RawQuery
		_, _ = io.WriteString(w, `[
			{"id":"BED-001","ward":"ICU","room":"101","bedNumber":"1","status":"Occupied","patient":{"id":"P-1","firstName":"Ana","lastName":"Ilic"}},
			{"id":"BED-002","ward":"ICU","room":"101","bedNumber":"2","status":"Available","patient":null}
		]`)
	})

	beds, err := client.ListBeds(context.Background(), BedQuery{Ward: "ICU"})
	require.NoError(t, err)
	require.Len(t, beds, 2)

	assert.Equal(t, "ward=ICU", gotQuery)
	assert.Equal(t, hospital.BedOccupied, beds[0].Status)
	assert.Equal(t, "Ana Ilic", beds[0].Patient.Name)
	assert.Nil(t, beds[1].Patient)
}

func TestClient_ListPatients_DataEnvelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"data":[{"patientId":"P-10099","firstName":"Lena","lastName":"Kovac","mock":true}]}`)
	})

	patients, err := client.ListPatientsWithAppointments(context.Background())
	require.NoError(t, err)
	require.Len(t, patients, 1)
	assert.Equal(t, "P-10099", patients[0].ID)
	assert.True(t, patients[0].Mock)
}

func TestClient_ListBeds_MalformedPayload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"message":"ok"}`)
	})

	_, err := client.ListBeds(context.Background(), BedQuery{})
	require.Error(t, err)
	assert.Equal(t, CodeMalformed, CodeOf(err))
	assert.True(t, IsUnreachable(err))
}

func TestClient_ServerErrorCarriesMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = io.WriteString(w, `{"error":"bed already occupied"}`)
	})

	err := client.AssignPatient(context.Background(), "BED-001", "P-1")
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, CodeConflict, apiErr.Code)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.False(t, apiErr.Unreachable())
	assert.Equal(t, "bed already occupied", UserMessage(err))
}

func TestClient_UpstreamCodeMapsToInvalidIdentifier(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"code":"22P02","message":"invalid input syntax for type integer"}`)
	})

	err := client.AssignPatient(context.Background(), "BED-001", "P-1")
	assert.Equal(t, CodeInvalidIdentifier, CodeOf(err))
	assert.Contains(t, UserMessage(err), "rejected the patient identifier")
}

func TestClient_AssignSendsPatientID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/doctor/beds/BED-003/assign", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "P-10099", body["patientId"])
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.AssignPatient(context.Background(), "BED-003", "P-10099"))
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(500 * time.Millisecond):
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)

	client := NewClient(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, zap.NewNop())

	err := client.Ping(context.Background())
	require.Error(t, err)
	assert.Equal(t, CodeTimeout, CodeOf(err))
}

func TestClient_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(Options{BaseURL: url, Timeout: time.Second}, zap.NewNop())

	_, err := client.ListMedicines(context.Background())
	require.Error(t, err)
	assert.Equal(t, CodeTransport, CodeOf(err))
	assert.Contains(t, UserMessage(err), "could not be reached")
}

func TestClient_PingFailureLogsAtDebug(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	client := NewClient(Options{BaseURL: url, Timeout: time.Second}, zap.New(core))

	require.Error(t, client.Ping(context.Background()))
	assert.Zero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len())
	assert.Equal(t, 1, logs.FilterMessage("hospital API unreachable").FilterLevelExact(zapcore.DebugLevel).Len())

	_, err := client.ListMedicines(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}
