package opt

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"

	"tripsched/internal/distance"
	"tripsched/internal/model"
)

type failingSource struct{ err error }

func (f failingSource) Name() string { return "failing" }
func (f failingSource) Distances(ctx context.Context, o, d []model.Location) (distance.Matrix, error) {
	return distance.Matrix{}, f.err
}

// lineSource places stops on a line; travel cost is |x_i - x_j| read from the latitude.
type lineSource struct{}

func (lineSource) Name() string { return "line" }
func (lineSource) Distances(ctx context.Context, o, d []model.Location) (distance.Matrix, error) {
	m := distance.Matrix{Meters: make([][]float64, len(o)), Seconds: make([][]float64, len(o))}
	for i := range o {
		m.Meters[i] = make([]float64, len(d))
		m.Seconds[i] = make([]float64, len(d))
		for j := range d {
			v := o[i].Point.Lat - d[j].Point.Lat
			if v < 0 {
				v = -v
			}
			m.Meters[i][j] = v * 1000
			m.Seconds[i][j] = v * 60
		}
	}
	return m, nil
}

func trip(id string, minute int, lat float64) model.Trip {
	c := model.Clock(minute)
	return model.Trip{
		ID:         id,
		PickupTime: c,
		Band:       model.BandOf(c, 12),
		Pickup:     model.Location{Address: id, Point: &model.GeoPoint{Lat: lat, Lng: 0}},
	}
}

func assertPermutation(t *testing.T, a, b []string) {
	t.Helper()
	x := append([]string(nil), a...)
	y := append([]string(nil), b...)
	sort.Strings(x)
	sort.Strings(y)
	if fmt.Sprint(x) != fmt.Sprint(y) {
		t.Fatalf("not a permutation: %v vs %v", a, b)
	}
}

func TestNearestNeighborDeterministic(t *testing.T) {
	cost := [][]float64{
		{0, 5, 1, 1},
		{5, 0, 2, 3},
		{1, 2, 0, 4},
		{1, 3, 4, 0},
	}
	got := NearestNeighbor(cost, 0)
	// from 0 the tie between 2 and 3 goes to the lower index
	if fmt.Sprint(got) != "[0 2 1 3]" {
		t.Fatalf("got %v", got)
	}
	for i := 0; i < 5; i++ {
		if fmt.Sprint(NearestNeighbor(cost, 0)) != fmt.Sprint(got) {
			t.Fatal("nearest neighbour must be deterministic")
		}
	}
}

func TestImproveOrder2OptKeepsStart(t *testing.T) {
	// nodes on a line at 0, 3, 1, 2
	xs := []float64{0, 3, 1, 2}
	cost := make([][]float64, 4)
	for i := range cost {
		cost[i] = make([]float64, 4)
		for j := range cost[i] {
			d := xs[i] - xs[j]
			if d < 0 {
				d = -d
			}
			cost[i][j] = d
		}
	}
	got := ImproveOrder2Opt(cost, []int{0, 1, 2, 3}, 5)
	if got[0] != 0 {
		t.Fatalf("start moved: %v", got)
	}
	if PathCost(cost, got) != 3 {
		t.Fatalf("expected optimal path cost 3, got %v (%v)", PathCost(cost, got), got)
	}
}

func TestProposePrecise(t *testing.T) {
	o := &Optimizer{Precise: lineSource{}, Approximate: distance.GreatCircle{}, TwoOptIterations: 2}
	trips := []model.Trip{trip("a", 480, 0), trip("b", 490, 10), trip("c", 500, 1), trip("d", 510, 2)}
	res := o.Propose(context.Background(), "d1", "2024-01-01", trips)
	pr, ok := res.(PreciseResult)
	if !ok {
		t.Fatalf("want PreciseResult, got %T", res)
	}
	if fmt.Sprint(pr.Plan.Optimized) != "[a c d b]" {
		t.Fatalf("optimized: %v", pr.Plan.Optimized)
	}
	if pr.Savings.Seconds() <= 0 || pr.Savings.Meters() <= 0 {
		t.Fatalf("expected positive savings: %+v", pr.Savings)
	}
	assertPermutation(t, pr.Plan.Original, pr.Plan.Optimized)
	if !res.Reliable() {
		t.Fatal("precise results are reliable")
	}
}

func TestProposeFallsBackToApproximate(t *testing.T) {
	o := &Optimizer{Precise: failingSource{err: errors.New("timeout")}, Approximate: distance.GreatCircle{SpeedKph: 40}}
	trips := []model.Trip{trip("a", 480, 0), trip("b", 490, 0.3), trip("c", 500, 0.1)}
	res := o.Propose(context.Background(), "d1", "2024-01-01", trips)
	ar, ok := res.(ApproximateResult)
	if !ok {
		t.Fatalf("want ApproximateResult, got %T", res)
	}
	if ar.Reliable() || ar.Warning == "" {
		t.Fatalf("approximate result must be unreliable with a warning: %+v", ar)
	}
	if fmt.Sprint(ar.Plan.Optimized) != "[a c b]" {
		t.Fatalf("optimized: %v", ar.Plan.Optimized)
	}
	assertPermutation(t, ar.Plan.Original, ar.Plan.Optimized)
}

func TestProposeWithoutPreciseSourceIsApproximate(t *testing.T) {
	o := &Optimizer{Approximate: distance.GreatCircle{}}
	res := o.Propose(context.Background(), "d1", "2024-01-01", []model.Trip{trip("a", 480, 0), trip("b", 490, 1)})
	if res.Method() != MethodApproximate {
		t.Fatalf("method: %s", res.Method())
	}
}

func TestProposeManualWhenCoordinatesMissing(t *testing.T) {
	o := &Optimizer{Precise: failingSource{err: errors.New("down")}, Approximate: distance.GreatCircle{}}
	b := trip("b", 490, 1)
	b.Pickup.Point = nil
	trips := []model.Trip{trip("a", 480, 0), b}
	res := o.Propose(context.Background(), "d1", "2024-01-01", trips)
	mr, ok := res.(ManualResult)
	if !ok {
		t.Fatalf("want ManualResult, got %T", res)
	}
	if fmt.Sprint(mr.Plan.Optimized) != fmt.Sprint(mr.Plan.Original) || mr.Warning == "" {
		t.Fatalf("manual result must keep order and warn: %+v", mr)
	}
}

func TestProposeSingleTripIsNoop(t *testing.T) {
	o := &Optimizer{Precise: failingSource{err: errors.New("unused")}}
	res := o.Propose(context.Background(), "d1", "2024-01-01", []model.Trip{trip("a", 480, 0)})
	p := res.Proposal()
	if len(p.Optimized) != 1 || p.Optimized[0] != "a" {
		t.Fatalf("single trip: %+v", p)
	}
	if res := o.Propose(context.Background(), "d1", "2024-01-01", nil); len(res.Proposal().Optimized) != 0 {
		t.Fatal("empty input must stay empty")
	}
}

func TestProposeKeepsBandsSeparate(t *testing.T) {
	o := &Optimizer{Precise: lineSource{}}
	// afternoon stop "p" sits right next to the first morning stop
	trips := []model.Trip{trip("a", 480, 0), trip("b", 500, 5), trip("p", 800, 0.1), trip("q", 820, 9)}
	res := o.Propose(context.Background(), "d1", "2024-01-01", trips)
	got := res.Proposal().Optimized
	if got[0] != "a" || got[1] != "b" || (got[2] != "p" && got[2] != "q") {
		t.Fatalf("bands mixed: %v", got)
	}
}

func TestProposePermutationProperty(t *testing.T) {
	o := &Optimizer{Precise: lineSource{}, TwoOptIterations: 3}
	for n := 2; n <= 9; n++ {
		var trips []model.Trip
		for i := 0; i < n; i++ {
			trips = append(trips, trip(fmt.Sprintf("t%d", i), 420+i*37, float64((i*7)%n)))
		}
		p := o.Propose(context.Background(), "d", "2024-01-01", trips).Proposal()
		assertPermutation(t, p.Original, p.Optimized)
		if len(p.Original) != n {
			t.Fatalf("n=%d: original has %d ids", n, len(p.Original))
		}
	}
}
