package repository

import "errors"

// Sentinel kinds for dataset cache errors.
var (
	ErrNotFound     = errors.New("dataset not found")
	ErrNilError     = errors.New("fail called without an error")
	ErrNoDatasets   = errors.New("no datasets")
	ErrDuplicateSet = errors.New("duplicate dataset")
)
