package feedsim

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/okian/standings/internal/adapters/source"
)

// Content types served per format.
const (
	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeJSON = "application/json"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentTypeYAML = "application/yaml"
)

// SheetName is the worksheet the XLSX encoding writes to.
const SheetName = "Sheet1"

// Encode renders t in format f. JSON and YAML bodies are a top-level array
// of objects keyed by header.
func Encode(t Table, f source.Format) (body []byte, contentType string, err error) {
	switch f {
	case source.FormatCSV, "":
		body, err = encodeCSV(t)
		return body, contentTypeCSV, err
	case source.FormatJSON:
		body, err = json.Marshal(t.Records())
		return body, contentTypeJSON, err
	case source.FormatYAML:
		body, err = yaml.Marshal(t.Records())
		return body, contentTypeYAML, err
	case source.FormatXLSX:
		body, err = encodeXLSX(t)
		return body, contentTypeXLSX, err
	default:
		return nil, "", fmt.Errorf("%w: %q", source.ErrUnsupportedFormat, f)
	}
}

func encodeCSV(t Table) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(t.Headers); err != nil {
		return nil, err
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encodeXLSX(t Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	write := func(row int, cells []string) error {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(cells))
		for i, c := range cells {
			values[i] = c
		}
		return f.SetSheetRow(SheetName, cell, &values)
	}

	if err := write(1, t.Headers); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	for i, row := range t.Rows {
		if err := write(i+2, row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
