package domain

import "errors"

// ============================================================================
// Model Errors
// ============================================================================

var (
	ErrModelNotLoaded    = errors.New("model not loaded")
	ErrArtifactNotFound  = errors.New("model artifact not found")
	ErrInvalidArtifact   = errors.New("model artifact is invalid")
	ErrReloadInProgress  = errors.New("model reload already in progress")
	ErrSourceUnavailable = errors.New("model artifact source unavailable")
)

// ============================================================================
// Prediction Errors
// ============================================================================

// Validation errors
var (
	ErrEmptyBatch    = errors.New("batch must contain at least one record")
	ErrBatchTooLarge = errors.New("batch exceeds the maximum number of records")
)

// Inference errors
var (
	ErrPredictionFailed = errors.New("prediction failed")
)

// ============================================================================
// History Errors
// ============================================================================

var (
	ErrStoreDisabled      = errors.New("prediction history store is disabled")
	ErrPredictionNotFound = errors.New("prediction not found")
)

// PredictionError carries the underlying inference failure. It matches ErrPredictionFailed.
type PredictionError struct {
	Cause error
}

func (e *PredictionError) Error() string {
	return ErrPredictionFailed.Error() + ": " + e.Cause.Error()
}

func (e *PredictionError) Unwrap() error { return e.Cause }

func (e *PredictionError) Is(target error) bool { return target == ErrPredictionFailed }
