package ranking_test

import (
	"fmt"
	"testing"

	"github.com/okian/standings/internal/domain/ranking"
	"github.com/okian/standings/internal/domain/scoring"
	"github.com/okian/standings/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func todayRow(name, load, labour, vas string) types.Row {
	return types.Row{Fields: map[string]string{
		"Name": name, "Today Load": load, "Today Labour": labour, "Today VAS": vas,
	}}
}

func names(rows []types.Row) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Value("Name")
	}
	return out
}

func TestRank(t *testing.T) {
	engine := scoring.NewEngine()

	Convey("Given rows A(5,8,3) and B(0,0,\"abc\")", t, func() {
		rows := []types.Row{todayRow("B", "0", "0", "abc"), todayRow("A", "5", "8", "3")}
		ranked := ranking.Rank(rows, types.ModeToday, engine)

		Convey("Then A scores 37 and ranks first, B scores 0 and ranks second", func() {
			So(names(ranked), ShouldResemble, []string{"A", "B"})
			So(ranked[0].Score, ShouldEqual, 37)
			So(ranked[0].Rank, ShouldEqual, 1)
			So(ranked[1].Score, ShouldEqual, 0)
			So(ranked[1].Rank, ShouldEqual, 2)
		})

		Convey("Then the input is not modified", func() {
			So(rows[0].Value("Name"), ShouldEqual, "B")
			So(rows[0].Rank, ShouldEqual, 0)
		})
	})

	Convey("Given rows with tied scores", t, func() {
		rows := []types.Row{
			todayRow("first", "1", "1", "0"),
			todayRow("top", "9", "9", "9"),
			todayRow("second", "1", "1", "0"),
			todayRow("third", "1", "1", "0"),
		}
		ranked := ranking.Rank(rows, types.ModeToday, engine)

		Convey("Then ties keep source order and get positional ranks", func() {
			So(names(ranked), ShouldResemble, []string{"top", "first", "second", "third"})
			for i, r := range ranked {
				So(r.Rank, ShouldEqual, i+1)
			}
		})

		Convey("Then re-ranking the ranked output is idempotent", func() {
			again := ranking.Rank(ranked, types.ModeToday, engine)
			So(names(again), ShouldResemble, names(ranked))
		})
	})

	Convey("Given datasets of many sizes", t, func() {
		Convey("Then the output length equals the input length", func() {
			for _, n := range []int{0, 1, 2, 17, 250} {
				rows := make([]types.Row, n)
				for i := range rows {
					rows[i] = todayRow(fmt.Sprintf("p%d", i), fmt.Sprint(i%7), "x", "")
				}
				So(ranking.Rank(rows, types.ModeToday, engine), ShouldHaveLength, n)
			}
		})
	})

	Convey("Given an empty dataset", t, func() {
		ranked := ranking.Rank(nil, types.ModeToday, engine)
		_, _, ok := ranking.Leader(ranked, types.Schema{})

		Convey("Then the list is empty and there is no leader", func() {
			So(ranked, ShouldBeEmpty)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestTracker(t *testing.T) {
	board := types.Board{Dataset: types.DatasetAdvisor, Mode: types.ModeToday}
	other := types.Board{Dataset: types.DatasetTechnician, Mode: types.ModeToday}

	Convey("Given a fresh tracker", t, func() {
		tr := ranking.NewTracker()

		Convey("When the first leader is observed", func() {
			_, changed := tr.Observe(board, "A")

			Convey("Then the first load is silent", func() {
				So(changed, ShouldBeFalse)
				So(tr.Leader(board), ShouldEqual, "A")
			})

			Convey("And the same leader again is silent", func() {
				_, changed := tr.Observe(board, "A")
				So(changed, ShouldBeFalse)
			})

			Convey("And a new leader is reported once with the previous name", func() {
				prev, changed := tr.Observe(board, "B")
				So(changed, ShouldBeTrue)
				So(prev, ShouldEqual, "A")

				_, again := tr.Observe(board, "B")
				So(again, ShouldBeFalse)
			})

			Convey("And an empty board keeps the previous record", func() {
				_, changed := tr.Observe(board, "")
				So(changed, ShouldBeFalse)
				So(tr.Leader(board), ShouldEqual, "A")

				_, changed = tr.Observe(board, "A")
				So(changed, ShouldBeFalse)
			})

			Convey("And boards are tracked independently", func() {
				_, changed := tr.Observe(other, "Z")
				So(changed, ShouldBeFalse)
				So(tr.Leader(board), ShouldEqual, "A")
			})

			Convey("And Reset makes the next observation a first load", func() {
				tr.Reset()
				_, changed := tr.Observe(board, "B")
				So(changed, ShouldBeFalse)
			})
		})
	})
}
