package view_test

import (
	"errors"
	"testing"

	"github.com/okian/standings/internal/domain/types"
	"github.com/okian/standings/internal/domain/view"
	. "github.com/smartystreets/goconvey/convey"
)

var datasets = []types.DatasetID{types.DatasetAdvisor, types.DatasetTechnician}

func initial() view.State {
	return view.State{Mode: types.ModeToday, Dataset: types.DatasetAdvisor}
}

func TestSelector_Select(t *testing.T) {
	Convey("Given a selector on today/advisor", t, func() {
		sel, err := view.NewSelector(initial(), datasets, nil)
		So(err, ShouldBeNil)

		Convey("When selecting a valid mode and dataset", func() {
			_, err1 := sel.SelectMode("TOTAL")
			st, err2 := sel.SelectDataset("technician")

			Convey("Then the state follows", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(st, ShouldResemble, view.State{Mode: types.ModeTotal, Dataset: types.DatasetTechnician})
				So(sel.Current(), ShouldResemble, st)
			})
		})

		Convey("When selecting an unknown mode", func() {
			st, err := sel.SelectMode("weekly")

			Convey("Then ErrConfig is returned and the state is unchanged", func() {
				So(errors.Is(err, view.ErrConfig), ShouldBeTrue)
				So(errors.Is(err, types.ErrUnknownMode), ShouldBeTrue)
				So(st, ShouldResemble, initial())
				So(sel.Current(), ShouldResemble, initial())
			})
		})

		Convey("When selecting a dataset outside the configured set", func() {
			_, err := sel.SelectDataset("manager")

			Convey("Then ErrConfig is returned and the state is unchanged", func() {
				So(errors.Is(err, view.ErrConfig), ShouldBeTrue)
				So(sel.Current(), ShouldResemble, initial())
			})
		})

		Convey("When selecting both with one invalid", func() {
			_, err := sel.Select("total", "manager")

			Convey("Then neither field changes", func() {
				So(errors.Is(err, view.ErrConfig), ShouldBeTrue)
				So(sel.Current(), ShouldResemble, initial())
			})
		})

		Convey("When selecting only the dataset through Select", func() {
			st, err := sel.Select("", "technician")

			Convey("Then the mode is kept", func() {
				So(err, ShouldBeNil)
				So(st.Mode, ShouldEqual, types.ModeToday)
				So(st.Dataset, ShouldEqual, types.DatasetTechnician)
			})
		})
	})

	Convey("Given an invalid initial view", t, func() {
		_, err := view.NewSelector(view.State{Mode: types.ModeToday, Dataset: "manager"}, datasets, nil)
		So(errors.Is(err, view.ErrConfig), ShouldBeTrue)

		_, err = view.NewSelector(initial(), nil, nil)
		So(errors.Is(err, view.ErrConfig), ShouldBeTrue)
	})
}

func TestSelector_Advance(t *testing.T) {
	Convey("Given the default rotation", t, func() {
		sel, err := view.NewSelector(initial(), datasets, nil)
		So(err, ShouldBeNil)

		Convey("Then it cycles every mode over every dataset and wraps", func() {
			So(sel.Advance().String(), ShouldEqual, "today:technician")
			So(sel.Advance().String(), ShouldEqual, "total:advisor")
			So(sel.Advance().String(), ShouldEqual, "total:technician")
			So(sel.Advance().String(), ShouldEqual, "today:advisor")
			So(sel.Rotation(), ShouldHaveLength, 4)
		})

		Convey("When the user selects a view mid-rotation", func() {
			sel.Advance()
			_, err := sel.Select("total", "technician")
			So(err, ShouldBeNil)

			Convey("Then rotation continues after the selected view", func() {
				So(sel.Advance().String(), ShouldEqual, "today:advisor")
			})
		})
	})

	Convey("Given a custom rotation that omits the initial view", t, func() {
		rot := []view.State{
			{Mode: types.ModeTotal, Dataset: types.DatasetTechnician},
			{Mode: types.ModeTotal, Dataset: types.DatasetAdvisor},
		}
		sel, err := view.NewSelector(initial(), datasets, rot)
		So(err, ShouldBeNil)

		Convey("Then rotation starts at its first entry", func() {
			So(sel.Advance(), ShouldResemble, rot[0])
			So(sel.Advance(), ShouldResemble, rot[1])
			So(sel.Advance(), ShouldResemble, rot[0])
		})

		Convey("When the rotation repeats an entry", func() {
			a := view.State{Mode: types.ModeToday, Dataset: types.DatasetAdvisor}
			b := view.State{Mode: types.ModeToday, Dataset: types.DatasetTechnician}
			c := view.State{Mode: types.ModeTotal, Dataset: types.DatasetAdvisor}
			So(sel.SetRotation([]view.State{a, b, a, c}), ShouldBeNil)

			Convey("Then every entry is visited in order", func() {
				var got []string
				for i := 0; i < 8; i++ {
					got = append(got, sel.Advance().String())
				}
				So(got, ShouldResemble, []string{
					"today:technician", "today:advisor", "total:advisor", "today:advisor",
					"today:technician", "today:advisor", "total:advisor", "today:advisor",
				})
			})

			Convey("Then a selection resumes after its first occurrence", func() {
				sel.Advance()
				sel.Advance()
				_, err := sel.SelectDataset("advisor")
				So(err, ShouldBeNil)
				So(sel.Advance(), ShouldResemble, b)
				So(sel.Advance(), ShouldResemble, a)
				So(sel.Advance(), ShouldResemble, c)
			})
		})

		Convey("And an invalid replacement rotation is rejected", func() {
			err := sel.SetRotation([]view.State{{Mode: types.ModeToday, Dataset: "manager"}})
			So(errors.Is(err, view.ErrConfig), ShouldBeTrue)
			So(sel.Rotation(), ShouldResemble, rot)
		})
	})
}

func TestParseState(t *testing.T) {
	Convey("Given rotation entries", t, func() {
		st, err := view.ParseState(" total:Technician ")
		So(err, ShouldBeNil)
		So(st, ShouldResemble, view.State{Mode: types.ModeTotal, Dataset: types.DatasetTechnician})
		So(st.Board(), ShouldResemble, types.Board{Dataset: types.DatasetTechnician, Mode: types.ModeTotal})

		for _, bad := range []string{"today", "weekly:advisor", "today:"} {
			_, err := view.ParseState(bad)
			So(errors.Is(err, view.ErrConfig), ShouldBeTrue)
		}
	})
}
