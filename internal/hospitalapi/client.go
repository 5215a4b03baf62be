// Package hospitalapi is the REST transport to the hospital backend.
package hospitalapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hackgods/ward-dashboard/internal/hospital"
)

const (
	pathBeds          = "/doctor/beds"
	pathBedStatus     = "/doctor/beds/{bedId}/status"
	pathBedAssign     = "/doctor/beds/{bedId}/assign"
	pathBedDischarge  = "/doctor/beds/{bedId}/discharge"
	pathPatientsAppts = "/doctor/patients/with-appointments"
	pathMedicines     = "/pharmacist/medicines"

	opPing = "ping"
)

var errMalformed = errors.New("response is not a JSON list")

type Options struct {
	BaseURL    string
	Timeout    time.Duration
	RetryCount int
	HealthPath string
}

type BedQuery struct {
	Ward   string
	Status string
	Search string
}

func (q BedQuery) params() map[string]string {
	params := make(map[string]string, 3)
	if q.Ward != "" {
		params["ward"] = q.Ward
	}
	if q.Status != "" {
		params["status"] = q.Status
	}
	if q.Search != "" {
		params["search"] = q.Search
	}
	return params
}

// Client talks to the hospital REST API. Every call is bounded by the
// timeout configured once here.
type Client struct {
	http       *resty.Client
	healthPath string
	logger     *zap.Logger
}

func NewClient(opts Options, logger *zap.Logger) *Client {
	if opts.HealthPath == "" {
		opts.HealthPath = "/health"
	}

	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		http:       client,
		healthPath: opts.HealthPath,
		logger:     logger,
	}
}

// Ping hits the lightweight health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.do(ctx, opPing, c.http.R().SetContext(ctx), resty.MethodGet, c.healthPath)
	return err
}

func (c *Client) ListBeds(ctx context.Context, q BedQuery) ([]hospital.Bed, error) {
	const op = "list beds"

	body, err := c.do(ctx, op, c.http.R().SetContext(ctx).SetQueryParams(q.params()), resty.MethodGet, pathBeds)
	if err != nil {
		return nil, err
	}

	records, err := decodeList[hospital.BedRecord](op, body)
	if err != nil {
		return nil, err
	}
	return hospital.NormalizeBeds(records), nil
}

func (c *Client) UpdateBedStatus(ctx context.Context, bedID string, status hospital.BedStatus) error {
	req := c.http.R().
		SetContext(ctx).
		SetPathParam("bedId", bedID).
		SetBody(map[string]string{"status": string(status)})

	_, err := c.do(ctx, "update bed status", req, resty.MethodPut, pathBedStatus)
	return err
}

func (c *Client) AssignPatient(ctx context.Context, bedID, patientID string) error {
	req := c.http.R().
		SetContext(ctx).
		SetPathParam("bedId", bedID).
		SetBody(map[string]string{"patientId": patientID})

	_, err := c.do(ctx, "assign patient", req, resty.MethodPut, pathBedAssign)
	return err
}

func (c *Client) DischargePatient(ctx context.Context, bedID string) error {
	req := c.http.R().
		SetContext(ctx).
		SetPathParam("bedId", bedID)

	_, err := c.do(ctx, "discharge patient", req, resty.MethodPut, pathBedDischarge)
	return err
}

func (c *Client) ListPatientsWithAppointments(ctx context.Context) ([]hospital.Patient, error) {
	const op = "list patients"

	body, err := c.do(ctx, op, c.http.R().SetContext(ctx), resty.MethodGet, pathPatientsAppts)
	if err != nil {
		return nil, err
	}

	records, err := decodeList[hospital.PatientRecord](op, body)
	if err != nil {
		return nil, err
	}
	return hospital.NormalizePatients(records), nil
}

func (c *Client) ListMedicines(ctx context.Context) ([]hospital.Medicine, error) {
	const op = "list medicines"

	body, err := c.do(ctx, op, c.http.R().SetContext(ctx), resty.MethodGet, pathMedicines)
	if err != nil {
		return nil, err
	}

	records, err := decodeList[hospital.MedicineRecord](op, body)
	if err != nil {
		return nil, err
	}
	return hospital.NormalizeMedicines(records), nil
}

func (c *Client) do(ctx context.Context, op string, req *resty.Request, method, path string) ([]byte, error) {
	resp, err := req.Execute(method, path)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = errors.Join(err, ctxErr)
		}
		apiErr := transportError(op, err)
		c.logger.Log(failureLevel(op), "hospital API unreachable",
			zap.String("op", op),
			zap.String("code", string(apiErr.Code)),
			zap.Error(err),
		)
		return nil, apiErr
	}

	if !resp.IsSuccess() {
		var body errorBody
		_ = json.Unmarshal(resp.Body(), &body)
		apiErr := statusError(op, resp.StatusCode(), body)
		c.logger.Log(failureLevel(op), "hospital API returned error",
			zap.String("op", op),
			zap.Int("status_code", resp.StatusCode()),
			zap.String("code", string(apiErr.Code)),
			zap.String("msg", apiErr.Message),
		)
		return nil, apiErr
	}

	c.logger.Debug("hospital API call succeeded",
		zap.String("op", op),
		zap.Int("status_code", resp.StatusCode()),
		zap.Duration("duration", resp.Time()),
	)
	return resp.Body(), nil
}

// failureLevel keeps probe failures at debug; the prober logs the
// connectivity change itself.
func failureLevel(op string) zapcore.Level {
	if op == opPing {
		return zapcore.DebugLevel
	}
	return zapcore.WarnLevel
}

// decodeList accepts a bare JSON array or an object wrapping it under "data".
func decodeList[T any](op string, body []byte) ([]T, error) {
	payload := bytes.TrimSpace(body)
	if len(payload) > 0 && payload[0] == '{' {
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(payload, &envelope); err != nil {
			return nil, &Error{Op: op, Code: CodeMalformed, Err: err}
		}
		payload = bytes.TrimSpace(envelope.Data)
	}

	if len(payload) == 0 || payload[0] != '[' {
		return nil, &Error{Op: op, Code: CodeMalformed, Err: errMalformed}
	}

	var items []T
	if err := json.Unmarshal(payload, &items); err != nil {
		return nil, &Error{Op: op, Code: CodeMalformed, Err: err}
	}
	return items, nil
}
