// Package fetch wraps remote list calls with a sample-data fallback.
package fetch

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hackgods/ward-dashboard/internal/hospitalapi"
	"github.com/hackgods/ward-dashboard/internal/metrics"
)

const (
	ReasonDisconnected = "disconnected"
	ReasonRemoteError  = "remote_error"
	ReasonUpstreamMock = "upstream_mock"
)

// Mockable is implemented by every entity that can be sample data.
type Mockable interface {
	IsMock() bool
}

// ConnectivityGate reports what the last health probe saw.
type ConnectivityGate interface {
	Disconnected() bool
}

// Result is a fetched list. Items are either all live or all sample data.
type Result[T Mockable] struct {
	Items    []T
	UsedMock bool
	Reason   string
	Advisory string
}

// Fetcher decides whether remote data can be trusted.
type Fetcher struct {
	gate   ConnectivityGate
	logger *zap.Logger
}

func New(gate ConnectivityGate, logger *zap.Logger) *Fetcher {
	return &Fetcher{gate: gate, logger: logger}
}

// Disconnected reports whether the last probe failed.
func (f *Fetcher) Disconnected() bool {
	return f.gate != nil && f.gate.Disconnected()
}

// List runs remote unless the backend is known to be down and substitutes
// fallback() on any failure. fallback must return items already tagged as mock.
func List[T Mockable](
	ctx context.Context,
	f *Fetcher,
	resource string,
	remote func(ctx context.Context) ([]T, error),
	fallback func() []T,
) Result[T] {
	if f.Disconnected() {
		return useFallback(f, resource, ReasonDisconnected, nil, fallback)
	}

	items, err := remote(ctx)
	if err != nil {
		return useFallback(f, resource, ReasonRemoteError, err, fallback)
	}

	if items == nil {
		items = []T{}
	}

	if len(items) > 0 && items[0].IsMock() {
		metrics.RecordFallback(resource, ReasonUpstreamMock)
		return Result[T]{
			Items:    items,
			UsedMock: true,
			Reason:   ReasonUpstreamMock,
			Advisory: fmt.Sprintf("Showing sample %s provided by the hospital system.", resource),
		}
	}

	return Result[T]{Items: items}
}

func useFallback[T Mockable](f *Fetcher, resource, reason string, err error, fallback func() []T) Result[T] {
	items := fallback()
	metrics.RecordFallback(resource, reason)

	advisory := fmt.Sprintf("Showing sample %s: the hospital system is unavailable.", resource)
	if err != nil && !hospitalapi.IsUnreachable(err) {
		advisory = fmt.Sprintf("Showing sample %s: %s", resource, hospitalapi.UserMessage(err))
	}

	f.logger.Warn("using sample data",
		zap.String("resource", resource),
		zap.String("reason", reason),
		zap.Int("items", len(items)),
		zap.Error(err),
	)

	return Result[T]{
		Items:    items,
		UsedMock: true,
		Reason:   reason,
		Advisory: advisory,
	}
}
