package source_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/okian/standings/internal/adapters/source"
	"github.com/okian/standings/internal/domain/types"
	"github.com/okian/standings/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

const advisorCSV = "\xef\xbb\xbfAdvisor Name, Today Load ,Today Labour,Today VAS,PIC\n" +
	"Asha,5,8,3,https://img/asha.png\n" +
	" Binu ,1,0\n" +
	",,,,\n" +
	",4,4,4,\n"

var advisorSchema = types.Schema{NameColumns: []string{"Advisor Name", "Name"}, PictureColumn: "PIC"}

func TestDecode(t *testing.T) {
	Convey("Given a CSV export", t, func() {
		feed := source.Feed{Dataset: types.DatasetAdvisor, Schema: advisorSchema}

		Convey("When decoded", func() {
			rows, dropped, err := source.Decode(feed, source.FormatCSV, []byte(advisorCSV))

			Convey("Then headers and cells are trimmed and short rows padded", func() {
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 3)
				So(rows[0].Value("Today Load"), ShouldEqual, "5")
				So(rows[1].Fields["Advisor Name"], ShouldEqual, "Binu")
				v, ok := rows[1].Fields["Today VAS"]
				So(ok, ShouldBeTrue)
				So(v, ShouldEqual, "")
			})

			Convey("Then the blank row is dropped and reported", func() {
				So(dropped, ShouldHaveLength, 1)
				So(dropped[0].Line, ShouldEqual, 3)
				So(errors.Is(dropped[0], source.ErrParse), ShouldBeTrue)
			})
		})

		Convey("When unnamed rows are skipped", func() {
			feed.SkipUnnamed = true
			rows, dropped, err := source.Decode(feed, source.FormatCSV, []byte(advisorCSV))

			Convey("Then only named rows remain", func() {
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 2)
				So(dropped, ShouldHaveLength, 2)
				So(dropped[1].Reason, ShouldEqual, "no name")
			})
		})
	})

	Convey("Given a JSON body with a data path", t, func() {
		body := []byte(`{"meta":{"n":2},"data":{"rows":[
			{"Name":"Asha","Today Load":5,"Today VAS":"3 ","extra":{"a":1},"gone":null,"ok":true},
			{"Name":"Binu","Today Load":"1.5"}]}}`)
		feed := source.Feed{Dataset: types.DatasetTechnician, DataPath: "data.rows"}

		rows, _, err := source.Decode(feed, source.FormatJSON, body)

		Convey("Then each object becomes a row of strings", func() {
			So(err, ShouldBeNil)
			So(rows, ShouldHaveLength, 2)
			So(rows[0].Fields["Today Load"], ShouldEqual, "5")
			So(rows[0].Fields["Today VAS"], ShouldEqual, "3")
			So(rows[0].Fields["extra"], ShouldEqual, `{"a":1}`)
			So(rows[0].Fields["gone"], ShouldEqual, "")
			So(rows[0].Fields["ok"], ShouldEqual, "true")
			So(rows[1].Fields["Today Load"], ShouldEqual, "1.5")
		})

		Convey("And a missing path fails the whole body", func() {
			feed.DataPath = "data.nope"
			_, _, err := source.Decode(feed, source.FormatJSON, body)
			So(errors.Is(err, source.ErrParse), ShouldBeTrue)
		})

		Convey("And invalid JSON fails the whole body", func() {
			_, _, err := source.Decode(feed, source.FormatJSON, []byte(`{"data":`))
			So(errors.Is(err, source.ErrParse), ShouldBeTrue)
		})
	})

	Convey("Given a YAML body", t, func() {
		body := []byte("rows:\n  - Name: Asha\n    Today Load: 5\n    Today VAS: 2.5\n  - Name: Binu\n    Today Load: ~\n")
		rows, _, err := source.Decode(source.Feed{DataPath: "rows"}, source.FormatYAML, body)

		So(err, ShouldBeNil)
		So(rows, ShouldHaveLength, 2)
		So(rows[0].Fields["Today Load"], ShouldEqual, "5")
		So(rows[0].Fields["Today VAS"], ShouldEqual, "2.5")
		So(rows[1].Fields["Today Load"], ShouldEqual, "")
	})

	Convey("Given an XLSX workbook", t, func() {
		body := workbook(t, [][]interface{}{
			{"Technician Name", "Total Load", "Month Labour"},
			{"Ravi", 12, 3.5},
			{"Sara", 4},
		})

		rows, _, err := source.Decode(source.Feed{}, source.FormatXLSX, body)

		So(err, ShouldBeNil)
		So(rows, ShouldHaveLength, 2)
		So(rows[0].Fields["Technician Name"], ShouldEqual, "Ravi")
		So(rows[0].Fields["Month Labour"], ShouldEqual, "3.5")
		So(rows[1].Fields["Month Labour"], ShouldEqual, "")

		_, _, err = source.Decode(source.Feed{}, source.FormatXLSX, []byte("not a zip"))
		So(errors.Is(err, source.ErrParse), ShouldBeTrue)
	})

	Convey("Given an unknown format", t, func() {
		_, _, err := source.Decode(source.Feed{}, source.Format("xml"), nil)
		So(errors.Is(err, source.ErrUnsupportedFormat), ShouldBeTrue)
	})
}

func workbook(t *testing.T, table [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, line := range table {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatal(err)
		}
		row := line
		if err := f.SetSheetRow("Sheet1", cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestHTTPSource(t *testing.T) {
	ctx := context.Background()

	Convey("Given feeds served over HTTP", t, func() {
		mux := http.NewServeMux()
		mux.HandleFunc("/sheet", func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Query().Get("format") {
			case "json":
				_, _ = w.Write([]byte(`[{"Name":"Ravi","Total Load":"7"}]`))
			default:
				_, _ = w.Write([]byte(advisorCSV))
			}
		})
		mux.HandleFunc("/rows", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			_, _ = w.Write([]byte(`{"items":[{"Name":"Sara"}]}`))
		})
		mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "nope", http.StatusBadGateway)
		})
		srv := httptest.NewServer(mux)
		defer srv.Close()

		src, err := source.NewHTTPSource([]source.Feed{
			{Dataset: types.DatasetAdvisor, URL: srv.URL + "/sheet?format=csv&gid=1", Schema: advisorSchema},
			{Dataset: types.DatasetTechnician, URL: srv.URL + "/sheet?format=json"},
			{Dataset: "service", URL: srv.URL + "/rows", DataPath: "items"},
			{Dataset: "down", URL: srv.URL + "/broken"},
		}, source.WithTimeout(time.Second))
		So(err, ShouldBeNil)
		So(src.Datasets(), ShouldResemble, []types.DatasetID{"advisor", "down", "service", "technician"})

		Convey("When fetching a CSV export", func() {
			rows, err := src.Fetch(ctx, types.DatasetAdvisor)

			Convey("Then rows are decoded", func() {
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 3)
				So(rows[0].Value("Advisor Name"), ShouldEqual, "Asha")
			})
		})

		Convey("When the format comes from the query or content type", func() {
			tech, err1 := src.Fetch(ctx, types.DatasetTechnician)
			svc, err2 := src.Fetch(ctx, "service")

			Convey("Then JSON is decoded for both", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(tech[0].Value("Total Load"), ShouldEqual, "7")
				So(svc[0].Value("Name"), ShouldEqual, "Sara")
			})
		})

		Convey("When the feed fails", func() {
			_, err := src.Fetch(ctx, "down")

			Convey("Then a FetchError carries the status", func() {
				var fe *source.FetchError
				So(errors.As(err, &fe), ShouldBeTrue)
				So(fe.StatusCode, ShouldEqual, http.StatusBadGateway)
				So(errors.Is(err, source.ErrFetch), ShouldBeTrue)
				So(errors.Is(err, source.ErrStatus), ShouldBeTrue)
			})
		})

		Convey("When the dataset has no feed", func() {
			_, err := src.Fetch(ctx, "manager")
			So(errors.Is(err, source.ErrFetch), ShouldBeTrue)
			So(errors.Is(err, source.ErrUnknownDataset), ShouldBeTrue)
		})

		Convey("When fetching everything at once", func() {
			results := source.FetchAll(ctx, src, []types.DatasetID{types.DatasetAdvisor, "down", types.DatasetTechnician})

			Convey("Then one failure does not affect the others", func() {
				So(results, ShouldHaveLength, 3)
				So(results[0].Err, ShouldBeNil)
				So(results[0].Rows, ShouldHaveLength, 3)
				So(results[1].Err, ShouldNotBeNil)
				So(results[2].Err, ShouldBeNil)
				So(results[2].Dataset, ShouldEqual, types.DatasetTechnician)
			})
		})
	})

	Convey("Given a body larger than the size cap", t, func() {
		var big bytes.Buffer
		big.WriteString("Name,Today Load\n")
		for i := 0; i < 100; i++ {
			fmt.Fprintf(&big, "Person %02d,%d\n", i, i)
		}
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write(big.Bytes())
		}))
		defer srv.Close()

		dir := t.TempDir()
		p := filepath.Join(dir, "big.csv")
		So(os.WriteFile(p, big.Bytes(), 0o600), ShouldBeNil)

		feeds := []source.Feed{
			{Dataset: types.DatasetAdvisor, URL: srv.URL + "/big.csv"},
			{Dataset: types.DatasetTechnician, URL: p},
		}

		Convey("When the cap is below the body size", func() {
			src, err := source.NewHTTPSource(feeds, source.WithMaxBodyBytes(200))
			So(err, ShouldBeNil)

			Convey("Then the fetch fails instead of returning a partial dataset", func() {
				for _, id := range []types.DatasetID{types.DatasetAdvisor, types.DatasetTechnician} {
					rows, err := src.Fetch(ctx, id)
					So(rows, ShouldBeNil)
					So(errors.Is(err, source.ErrFetch), ShouldBeTrue)
					So(errors.Is(err, source.ErrBodyTooLarge), ShouldBeTrue)
				}
			})
		})

		Convey("When the cap equals the body size", func() {
			src, err := source.NewHTTPSource(feeds, source.WithMaxBodyBytes(int64(big.Len())))
			So(err, ShouldBeNil)

			Convey("Then every row is read", func() {
				rows, err := src.Fetch(ctx, types.DatasetAdvisor)
				So(err, ShouldBeNil)
				So(rows, ShouldHaveLength, 100)
			})
		})
	})

	Convey("Given a feed on disk", t, func() {
		dir := t.TempDir()
		p := filepath.Join(dir, "tech.yaml")
		So(os.WriteFile(p, []byte("- Name: Ravi\n  Total Load: 3\n"), 0o600), ShouldBeNil)

		src, err := source.NewHTTPSource([]source.Feed{
			{Dataset: types.DatasetTechnician, URL: "file://" + p},
			{Dataset: types.DatasetAdvisor, URL: filepath.Join(dir, "missing.csv")},
		})
		So(err, ShouldBeNil)

		rows, err := src.Fetch(ctx, types.DatasetTechnician)
		So(err, ShouldBeNil)
		So(rows[0].Value("Total Load"), ShouldEqual, "3")

		_, err = src.Fetch(ctx, types.DatasetAdvisor)
		So(errors.Is(err, source.ErrFetch), ShouldBeTrue)
		So(errors.Is(err, os.ErrNotExist), ShouldBeTrue)
	})

	Convey("Given invalid feed definitions", t, func() {
		_, err := source.NewHTTPSource([]source.Feed{{Dataset: types.DatasetAdvisor}})
		So(errors.Is(err, source.ErrInvalidFeed), ShouldBeTrue)

		_, err = source.NewHTTPSource([]source.Feed{
			{Dataset: types.DatasetAdvisor, URL: "a.csv"},
			{Dataset: types.DatasetAdvisor, URL: "b.csv"},
		})
		So(errors.Is(err, source.ErrInvalidFeed), ShouldBeTrue)

		_, err = source.NewHTTPSource([]source.Feed{{Dataset: types.DatasetAdvisor, URL: "a.csv", Format: "xml"}})
		So(errors.Is(err, source.ErrUnsupportedFormat), ShouldBeTrue)
	})
}

type slowSource struct {
	inflight, peak atomic.Int32
}

func (s *slowSource) Fetch(ctx context.Context, id types.DatasetID) ([]types.Row, error) {
	n := s.inflight.Add(1)
	defer s.inflight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	return []types.Row{{Fields: map[string]string{"Name": string(id)}}}, nil
}

func TestFetchAllConcurrency(t *testing.T) {
	Convey("Given a slow source", t, func() {
		src := &slowSource{}

		Convey("When fetching two datasets", func() {
			results := source.FetchAll(context.Background(), src, []types.DatasetID{"a", "b"})

			Convey("Then the fetches overlap", func() {
				So(src.peak.Load(), ShouldEqual, 2)
				So(results[0].Rows[0].Value("Name"), ShouldEqual, "a")
				So(results[1].Rows[0].Value("Name"), ShouldEqual, "b")
			})
		})
	})
}
