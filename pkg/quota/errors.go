package quota

import "errors"

var (
	// ErrStoreUnavailable is returned when the gate is constructed without
	// a store.
	ErrStoreUnavailable = errors.New("quota store unavailable")

	// ErrInvalidCost is returned for negative cost values.
	ErrInvalidCost = errors.New("invalid cost")

	// ErrUnknownMode is returned for unrecognized collection mode names.
	ErrUnknownMode = errors.New("unknown collection mode")
)
