package inspection

import "errors"

var (
	// ErrScannerNotConfigured is returned by the placeholder scanner used when
	// no external scanning service URL is configured.
	ErrScannerNotConfigured = errors.New("external scanner not configured")

	// ErrScanRejected indicates the external scanner answered with a
	// non-success status.
	ErrScanRejected = errors.New("external scanner rejected request")
)
