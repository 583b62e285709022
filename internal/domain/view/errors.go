package view

import "errors"

// ErrConfig marks a rejected view selection. The previous state is kept.
var ErrConfig = errors.New("invalid view selection")
