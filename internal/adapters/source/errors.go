package source

import (
	"errors"
	"fmt"

	"github.com/okian/standings/internal/domain/types"
)

var (
	// ErrFetch matches every *FetchError.
	ErrFetch = errors.New("fetch failed")
	// ErrParse matches every ParseError and whole-body decode failures.
	ErrParse = errors.New("parse failed")
	// ErrUnknownDataset is returned for a dataset with no configured feed.
	ErrUnknownDataset = errors.New("no feed for dataset")
	// ErrUnsupportedFormat is returned for a format outside csv, json, xlsx and yaml.
	ErrUnsupportedFormat = errors.New("unsupported feed format")
	// ErrStatus is wrapped when the feed answers with a non-2xx status.
	ErrStatus = errors.New("unexpected status")
	// ErrBodyTooLarge is wrapped when a feed body exceeds the size cap.
	ErrBodyTooLarge = errors.New("feed body too large")
	// ErrInvalidFeed is returned by NewHTTPSource for an unusable feed definition.
	ErrInvalidFeed = errors.New("invalid feed")
)

// FetchError describes a failed fetch of one dataset. The caller keeps the
// last good rows for that dataset.
type FetchError struct {
	Dataset    types.DatasetID
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s from %s: status %d: %v", e.Dataset, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch %s from %s: %v", e.Dataset, e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrFetch) true for any FetchError.
func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// ParseError describes one row dropped while decoding a feed. Line counts
// data rows from 1, not counting the header.
type ParseError struct {
	Dataset types.DatasetID
	Line    int
	Reason  string
}

func (e ParseError) Error() string {
	return fmt.Sprintf("%s row %d: %s", e.Dataset, e.Line, e.Reason)
}

// Is makes errors.Is(err, ErrParse) true for any ParseError.
func (e ParseError) Is(target error) bool { return target == ErrParse }
