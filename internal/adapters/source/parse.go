package source

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/okian/standings/internal/domain/types"
)

var utf8BOM = []byte("\xef\xbb\xbf")

// Decode turns a feed body into rows. Blank rows, and unnamed rows when the
// feed skips them, are dropped and reported as ParseErrors; a body that
// cannot be decoded at all is an ErrParse error.
func Decode(feed Feed, format Format, body []byte) ([]types.Row, []ParseError, error) {
	var (
		records []map[string]string
		err     error
	)
	switch format {
	case FormatCSV, "":
		records, err = decodeCSV(body)
	case FormatJSON:
		records, err = decodeJSON(body, feed.DataPath)
	case FormatXLSX:
		records, err = decodeXLSX(body, feed.Sheet)
	case FormatYAML:
		records, err = decodeYAML(body, feed.DataPath)
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrParse, format, err)
	}

	rows := make([]types.Row, 0, len(records))
	var dropped []ParseError
	for i, rec := range records {
		row := types.Row{Fields: rec}
		switch {
		case row.Blank():
			dropped = append(dropped, ParseError{Dataset: feed.Dataset, Line: i + 1, Reason: "blank row"})
		case feed.SkipUnnamed && feed.Schema.Name(row) == "":
			dropped = append(dropped, ParseError{Dataset: feed.Dataset, Line: i + 1, Reason: "no name"})
		default:
			rows = append(rows, row)
		}
	}
	return rows, dropped, nil
}

func decodeCSV(body []byte) ([]map[string]string, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(body, utf8BOM)))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	table, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	return tableRecords(table), nil
}

func decodeXLSX(body []byte, sheet string) ([]map[string]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	table, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("sheet %q: %w", sheet, err)
	}
	return tableRecords(table), nil
}

// tableRecords keys every data row by the trimmed header row. Short rows are
// padded with "", cells beyond the header are ignored, and for repeated or
// empty headers only the first named column counts.
func tableRecords(table [][]string) []map[string]string {
	if len(table) == 0 {
		return nil
	}
	header := make([]string, len(table[0]))
	seen := make(map[string]bool, len(header))
	for i, h := range table[0] {
		h = strings.TrimSpace(h)
		if h == "" || seen[h] {
			continue
		}
		seen[h] = true
		header[i] = h
	}

	out := make([]map[string]string, 0, len(table)-1)
	for _, line := range table[1:] {
		rec := make(map[string]string, len(seen))
		for i, h := range header {
			if h == "" {
				continue
			}
			v := ""
			if i < len(line) {
				v = strings.TrimSpace(line[i])
			}
			rec[h] = v
		}
		out = append(out, rec)
	}
	return out
}

func decodeJSON(body []byte, dataPath string) ([]map[string]string, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid json")
	}
	data := gjson.ParseBytes(body)
	if dataPath != "" {
		data = gjson.GetBytes(body, dataPath)
		if !data.Exists() {
			return nil, fmt.Errorf("data path %q not found", dataPath)
		}
	}

	var items []gjson.Result
	switch {
	case data.IsArray():
		items = data.Array()
	case data.IsObject():
		items = []gjson.Result{data}
	default:
		return nil, fmt.Errorf("data is not an array of objects")
	}

	out := make([]map[string]string, 0, len(items))
	for _, item := range items {
		rec := map[string]string{}
		if item.IsObject() {
			item.ForEach(func(key, value gjson.Result) bool {
				rec[strings.TrimSpace(key.String())] = jsonCell(value)
				return true
			})
		}
		out = append(out, rec)
	}
	return out, nil
}

func jsonCell(v gjson.Result) string {
	switch v.Type {
	case gjson.Null:
		return ""
	case gjson.String:
		return strings.TrimSpace(v.String())
	case gjson.Number:
		return v.Raw
	case gjson.JSON:
		return v.Raw
	default:
		return v.String()
	}
}

func decodeYAML(body []byte, dataPath string) ([]map[string]string, error) {
	var items []map[string]interface{}
	if dataPath == "" {
		if err := yaml.Unmarshal(body, &items); err != nil {
			return nil, err
		}
	} else {
		var doc map[string][]map[string]interface{}
		if err := yaml.Unmarshal(body, &doc); err != nil {
			return nil, err
		}
		var ok bool
		if items, ok = doc[dataPath]; !ok {
			return nil, fmt.Errorf("data path %q not found", dataPath)
		}
	}

	out := make([]map[string]string, 0, len(items))
	for _, item := range items {
		rec := make(map[string]string, len(item))
		for k, v := range item {
			rec[strings.TrimSpace(k)] = yamlCell(v)
		}
		out = append(out, rec)
	}
	return out, nil
}

func yamlCell(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case map[string]interface{}, []interface{}:
		b, err := yaml.Marshal(t)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(string(b))
	default:
		return fmt.Sprint(t)
	}
}
