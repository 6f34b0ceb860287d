package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ruteri/ddssec-engine/interfaces"
)

// MultiStorageBackend implements interfaces.ObjectStore over several stores.
// Loads try each available store in order; stores write to every available store.
type MultiStorageBackend struct {
	backends []interfaces.ObjectStore
	log      *slog.Logger
}

// NewMultiStorageBackend creates a new multi-store with fallback.
func NewMultiStorageBackend(backends []interfaces.ObjectStore, logger *slog.Logger) *MultiStorageBackend {
	if logger == nil {
		logger = slog.Default()
	}

	return &MultiStorageBackend{
		backends: backends,
		log:      logger,
	}
}

// Load returns the object from the first store that has it. ErrObjectNotFound
// is returned only if every available store reported it missing.
func (m *MultiStorageBackend) Load(ctx context.Context, name string) ([]byte, error) {
	start := time.Now()
	var errs []error
	allNotFound := true

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable",
				slog.String("backend_name", backend.Name()),
				slog.String("object", name))
			allNotFound = false
			continue
		}

		data, err := backend.Load(ctx, name)
		if err == nil {
			m.log.Debug("Loaded object",
				slog.String("backend_name", backend.Name()),
				slog.String("object", name),
				slog.Duration("duration", time.Since(start)))
			return data, nil
		}
		if errors.Is(err, interfaces.ErrBadParameters) {
			return nil, err
		}
		if !errors.Is(err, interfaces.ErrObjectNotFound) {
			allNotFound = false
		}

		errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
		m.log.Debug("Failed to load from backend",
			slog.String("backend_name", backend.Name()),
			slog.String("object", name),
			"err", err)
	}

	if allNotFound {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrObjectNotFound, name)
	}

	m.log.Error("All backends failed to load object",
		slog.String("object", name),
		slog.Int("failed_backends", len(errs)),
		slog.Duration("duration", time.Since(start)))

	return nil, fmt.Errorf("%w: all backends failed to load %s: %w", interfaces.ErrBackendUnavailable, name, errors.Join(errs...))
}

// Store saves the object to all available backends. It succeeds if at least one backend accepted it.
func (m *MultiStorageBackend) Store(ctx context.Context, name string, data []byte) error {
	start := time.Now()
	var success bool
	var errs []error

	for _, backend := range m.backends {
		if !backend.Available(ctx) {
			m.log.Debug("Backend unavailable", slog.String("backend_name", backend.Name()))
			continue
		}

		if err := backend.Store(ctx, name, data); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", backend.Name(), err))
			m.log.Debug("Failed to store to backend",
				slog.String("backend_name", backend.Name()),
				"err", err)
			continue
		}
		success = true
	}

	if !success {
		m.log.Error("All backends failed to store object",
			slog.String("object", name),
			slog.Int("failed_backends", len(errs)),
			slog.Duration("duration", time.Since(start)))
		return fmt.Errorf("%w: all backends failed to store %s: %w", interfaces.ErrBackendUnavailable, name, errors.Join(errs...))
	}

	return nil
}

// Available checks if any backend is available
func (m *MultiStorageBackend) Available(ctx context.Context) bool {
	for _, backend := range m.backends {
		if backend.Available(ctx) {
			return true
		}
	}
	return false
}

// Name returns the name of this backend
func (m *MultiStorageBackend) Name() string {
	return "multi-storage"
}

// LocationURI returns a combined URI of all backends.
func (m *MultiStorageBackend) LocationURI() string {
	var locations []string
	for _, backend := range m.backends {
		locations = append(locations, backend.LocationURI())
	}

	return "multi:[" + strings.Join(locations, ",") + "]"
}
