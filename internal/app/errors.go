package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted = errors.New("service not started")
	ErrNoSource   = errors.New("no source configured")
	ErrNoDatasets = errors.New("no datasets configured")
)
