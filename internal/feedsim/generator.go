package feedsim

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/standings/internal/domain/types"
)

// Constants for random number generation.
const (
	randomFloatDivisor = 1000000
	performerBands     = 8
)

// Constants for metric generation ranges, as fractions of a band maximum.
const (
	avgPerformerMin     = 0.3
	avgPerformerRange   = 0.4
	highPerformerMin    = 0.7
	highPerformerRange  = 0.2
	lowPerformerMin     = 0.01
	lowPerformerRange   = 0.29
	elitePerformerMin   = 0.9
	elitePerformerRange = 0.1
	veryLowMin          = 0.0
	veryLowRange        = 0.1
	midPerformerMin     = 0.6
	midPerformerRange   = 0.2
	goodPerformerMin    = 0.2
	goodPerformerRange  = 0.2
	wideRangeMin        = 0.0
	wideRange           = 1.0
)

// Metric ceilings for one day; month totals are a multiple.
const (
	maxDailyLoad   = 12
	maxDailyLabour = 9000
	maxDailyVAS    = 2500
	monthDays      = 22
)

// Column headers shared by both datasets.
const (
	ColPicture     = "PIC"
	ColMGA         = "MGA"
	ColCategory    = "CATEGORY"
	ColTodayLoad   = "Today Load"
	ColTodayLabour = "Today Labour"
	ColTodayVAS    = "Today VAS"
	ColTotalLoad   = "Total Load"
	ColMonthLabour = "Month Labour"
	ColTotalVAS    = "Total VAS"
)

var metricHeaders = []string{ColTodayLoad, ColTodayLabour, ColTodayVAS, ColTotalLoad, ColMonthLabour, ColTotalVAS}

var givenNames = []string{
	"Asha", "Binu", "Chitra", "Deepak", "Fathima", "Gopan", "Hari", "Indu",
	"Jithin", "Kavya", "Lijo", "Meera", "Nikhil", "Parvathy", "Rahul", "Sneha",
	"Tomy", "Unni", "Vinod", "Anjali", "Biju", "Divya", "Faisal", "Geetha",
}

var categories = []string{"Gold", "Silver", "Bronze"}

// Table is a generated sheet: ordered headers and string cells.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Records returns the rows keyed by header.
func (t Table) Records() []map[string]string {
	out := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]string, len(t.Headers))
		for i, h := range t.Headers {
			if i < len(row) {
				rec[h] = row[i]
			}
		}
		out = append(out, rec)
	}
	return out
}

// TypedRows returns the rows as the board reads them.
func (t Table) TypedRows() []types.Row {
	recs := t.Records()
	out := make([]types.Row, len(recs))
	for i, r := range recs {
		out[i] = types.Row{Fields: r}
	}
	return out
}

type person struct {
	id       string
	name     string
	mga      string
	category string
	// load, labour, vas
	today [3]float64
	total [3]float64
}

// Generator holds a simulated workforce per dataset and lets it drift so
// leaders change over time. It is safe for concurrent use.
type Generator struct {
	mu     sync.Mutex
	people map[types.DatasetID][]*person
	messy  bool
	drifts int
}

// GeneratorOption applies a configuration option to the Generator.
type GeneratorOption func(*Generator)

// WithMessyCells adds an unnamed row and unparseable metric cells, the way
// hand-edited sheets look.
func WithMessyCells() GeneratorOption {
	return func(g *Generator) {
		g.messy = true
	}
}

// NewGenerator creates advisors and technicians with varied performance.
func NewGenerator(advisors, technicians int, opts ...GeneratorOption) *Generator {
	g := &Generator{people: make(map[types.DatasetID][]*person)}
	for _, opt := range opts {
		opt(g)
	}
	g.people[types.DatasetAdvisor] = generatePeople(advisors)
	g.people[types.DatasetTechnician] = generatePeople(technicians)
	return g
}

// getRandomFloat returns a random float64 between 0.0 and 1.0 using crypto/rand.
func getRandomFloat() float64 {
	n, _ := rand.Int(rand.Reader, big.NewInt(randomFloatDivisor))
	return float64(n.Int64()) / float64(randomFloatDivisor)
}

func randomIndex(n int) int {
	if n <= 1 {
		return 0
	}
	i, _ := rand.Int(rand.Reader, big.NewInt(int64(n)))
	return int(i.Int64())
}

// performance draws a fraction of the maximum from one of the performer bands.
func performance() float64 {
	switch randomIndex(performerBands) {
	case 0:
		return avgPerformerMin + getRandomFloat()*avgPerformerRange
	case 1:
		return highPerformerMin + getRandomFloat()*highPerformerRange
	case 2:
		return lowPerformerMin + getRandomFloat()*lowPerformerRange
	case 3:
		return elitePerformerMin + getRandomFloat()*elitePerformerRange
	case 4:
		return veryLowMin + getRandomFloat()*veryLowRange
	case 5:
		return midPerformerMin + getRandomFloat()*midPerformerRange
	case 6:
		return goodPerformerMin + getRandomFloat()*goodPerformerRange
	default:
		return wideRangeMin + getRandomFloat()*wideRange
	}
}

func generatePeople(n int) []*person {
	out := make([]*person, n)
	for i := range out {
		name := givenNames[i%len(givenNames)]
		if i >= len(givenNames) {
			name = fmt.Sprintf("%s %c", name, 'A'+rune(i/len(givenNames)-1)%26)
		}
		p := performance()
		today := [3]float64{
			float64(int(p * maxDailyLoad)),
			float64(int(p * maxDailyLabour)),
			float64(int(performance() * maxDailyVAS)),
		}
		month := float64(monthDays) * (0.5 + getRandomFloat()/2)
		out[i] = &person{
			id:       uuid.NewString(),
			name:     name,
			mga:      strconv.Itoa(int(performance() * 100)),
			category: categories[randomIndex(len(categories))],
			today:    today,
			total: [3]float64{
				today[0] + float64(int(p*maxDailyLoad*month)),
				today[1] + float64(int(p*maxDailyLabour*month)),
				today[2] + float64(int(performance()*maxDailyVAS*month)),
			},
		}
	}
	return out
}

// Datasets lists the simulated datasets.
func (g *Generator) Datasets() []types.DatasetID {
	return []types.DatasetID{types.DatasetAdvisor, types.DatasetTechnician}
}

// Drift adds a job's worth of work to a random third of each dataset, the
// way the day fills up. It returns the number of people updated.
func (g *Generator) Drift() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.drifts++
	updated := 0
	for _, people := range g.people {
		for _, p := range people {
			if randomIndex(3) != 0 {
				continue
			}
			add := [3]float64{
				1,
				float64(int(getRandomFloat() * maxDailyLabour / 4)),
				float64(int(getRandomFloat() * maxDailyVAS / 4)),
			}
			for i := range add {
				p.today[i] += add[i]
				p.total[i] += add[i]
			}
			updated++
		}
	}
	return updated
}

// Drifts returns how many times Drift ran.
func (g *Generator) Drifts() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.drifts
}

// Promote makes the person at index i of dataset the clear leader in both
// modes and returns their name; "" when i is out of range.
func (g *Generator) Promote(dataset types.DatasetID, i int) string {
	g.mu.Lock()
	defer g.mu.Unlock()
	people := g.people[dataset]
	if i < 0 || i >= len(people) {
		return ""
	}
	var best [2]float64
	for _, p := range people {
		best[0] = max(best[0], weighted(p.today))
		best[1] = max(best[1], weighted(p.total))
	}
	p := people[i]
	p.today[1] += best[0] + 1
	p.total[1] += best[1] + best[0] + 1
	return p.name
}

func weighted(m [3]float64) float64 { return m[0]*2 + m[1]*3 + m[2] }

// Table renders the current state of dataset; ok is false for an unknown one.
func (g *Generator) Table(dataset types.DatasetID) (Table, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	people, ok := g.people[dataset]
	if !ok {
		return Table{}, false
	}

	nameHeader := dataset.Title() + " Name"
	headers := []string{nameHeader, "Employee ID", ColPicture}
	if dataset == types.DatasetAdvisor {
		headers = append(headers, ColMGA, ColCategory)
	}
	headers = append(headers, metricHeaders...)

	t := Table{Headers: headers}
	for i, p := range people {
		row := []string{p.name, p.id, "https://i.pravatar.cc/150?u=" + p.id}
		if dataset == types.DatasetAdvisor {
			row = append(row, p.mga, p.category)
		}
		for _, v := range p.today {
			row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
		}
		for _, v := range p.total {
			row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
		}
		if g.messy && i == len(people)-1 {
			// a typo'd cell counts as zero on the board
			row[len(row)-1] = "n/a"
		}
		t.Rows = append(t.Rows, row)
	}
	if g.messy {
		unnamed := make([]string, len(headers))
		unnamed[len(headers)-len(metricHeaders)] = "1"
		t.Rows = append(t.Rows, unnamed)
	}
	return t, true
}
