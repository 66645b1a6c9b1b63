package domain

import "errors"

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("resource not found")
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrInsufficientData is returned when fewer than MinTrainingSamples usable
	// samples are available for fitting.
	ErrInsufficientData = errors.New("insufficient training data")

	// ErrDegenerateBatch marks a batch whose raw weights sum to zero. It never
	// leaves the engine: the fitter falls back to the previous weights.
	ErrDegenerateBatch = errors.New("degenerate training batch")

	// ErrReconcileRequired means a new version was persisted as active but the
	// older versions could not be deactivated. Run Reconcile for the model.
	ErrReconcileRequired = errors.New("model version reconciliation required")
)
