package source

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/okian/standings/internal/domain/types"
)

// Format is the encoding of a feed body.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts a format name; "" means infer per response.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatCSV, FormatJSON, FormatXLSX, FormatYAML:
		return f, nil
	case "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Feed tells the source where a dataset lives and how to read it.
type Feed struct {
	Dataset types.DatasetID
	// URL is http(s), file:// or a bare filesystem path.
	URL    string
	Format Format
	// DataPath is a gjson path to the row array of a JSON body, or the
	// top-level key holding the rows of a YAML mapping.
	DataPath string
	// Sheet selects the XLSX sheet; the first one when empty.
	Sheet  string
	Schema types.Schema
	// SkipUnnamed drops rows whose identity columns are all empty.
	SkipUnnamed bool
}

// local reports whether the feed is read from disk, returning the path.
func (f Feed) local() (string, bool) {
	u, err := url.Parse(f.URL)
	if err != nil || u.Scheme == "" {
		return f.URL, true
	}
	if u.Scheme == "file" {
		if u.Host != "" {
			return u.Host + u.Path, true
		}
		return u.Path, true
	}
	// windows drive letters parse as a one-letter scheme
	if len(u.Scheme) == 1 {
		return f.URL, true
	}
	return "", false
}

// formatFor resolves the body format: explicit, then the URL's format query
// parameter, then its extension, then the response content type. CSV is the
// fallback since spreadsheet publishers default to it.
func (f Feed) formatFor(contentType string) Format {
	if f.Format != "" {
		return f.Format
	}
	if u, err := url.Parse(f.URL); err == nil {
		if q, err := ParseFormat(u.Query().Get("format")); err == nil && q != "" {
			return q
		}
		if ext, err := ParseFormat(strings.TrimPrefix(path.Ext(u.Path), ".")); err == nil && ext != "" {
			return ext
		}
	}
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "json"):
		return FormatJSON
	case strings.Contains(ct, "yaml"):
		return FormatYAML
	case strings.Contains(ct, "spreadsheetml"), strings.Contains(ct, "ms-excel"):
		return FormatXLSX
	default:
		return FormatCSV
	}
}
