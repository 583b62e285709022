package types_test

import (
	"errors"
	"testing"

	types "github.com/okian/standings/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseMode(t *testing.T) {
	Convey("Given mode names", t, func() {
		Convey("When they are valid in any case", func() {
			today, err1 := types.ParseMode(" TODAY ")
			total, err2 := types.ParseMode("total")

			Convey("Then they parse", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(today, ShouldEqual, types.ModeToday)
				So(total, ShouldEqual, types.ModeTotal)
				So(today.Title(), ShouldEqual, "Today")
			})
		})

		Convey("When the name is unknown", func() {
			_, err := types.ParseMode("weekly")

			Convey("Then ErrUnknownMode is returned", func() {
				So(errors.Is(err, types.ErrUnknownMode), ShouldBeTrue)
			})
		})
	})
}

func TestParseDataset(t *testing.T) {
	Convey("Given dataset names", t, func() {
		id, err := types.ParseDataset("Technician")
		So(err, ShouldBeNil)
		So(id, ShouldEqual, types.DatasetTechnician)
		So(id.Title(), ShouldEqual, "Technician")

		_, err = types.ParseDataset("   ")
		So(errors.Is(err, types.ErrUnknownDataset), ShouldBeTrue)
	})
}

func TestRow(t *testing.T) {
	Convey("Given a row with padded and empty cells", t, func() {
		row := types.Row{Fields: map[string]string{
			"Advisor Name": "  ",
			"Name":         " Asha ",
			"PIC":          "http://img/asha.png",
		}}

		Convey("Then Value trims and FirstValue skips blanks", func() {
			So(row.Value("Name"), ShouldEqual, "Asha")
			So(row.Value("Missing"), ShouldEqual, "")
			So(row.FirstValue("Advisor Name", "Name"), ShouldEqual, "Asha")
			So(row.Blank(), ShouldBeFalse)
		})

		Convey("Then a schema resolves name and picture", func() {
			schema := types.Schema{NameColumns: []string{"Advisor Name", "Name"}, PictureColumn: "PIC"}
			So(schema.Name(row), ShouldEqual, "Asha")
			So(schema.Picture(row), ShouldEqual, "http://img/asha.png")
			So(types.Schema{}.Name(row), ShouldEqual, "Asha")
			So(types.Schema{}.Picture(row), ShouldEqual, "")
		})
	})

	Convey("Given rows with no content", t, func() {
		So(types.Row{}.Blank(), ShouldBeTrue)
		So(types.Row{Fields: map[string]string{"a": " ", "b": ""}}.Blank(), ShouldBeTrue)
		So(types.Row{}.Value("x"), ShouldEqual, "")
	})

	Convey("Given a board key", t, func() {
		b := types.Board{Dataset: types.DatasetAdvisor, Mode: types.ModeTotal}
		So(b.String(), ShouldEqual, "advisor/total")
	})
}
