package types

import "errors"

// Sentinel kinds for value parsing.
var (
	ErrUnknownMode    = errors.New("unknown mode")
	ErrUnknownDataset = errors.New("unknown dataset")
)
