package opt

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"tripsched/internal/distance"
	"tripsched/internal/model"
)

// Optimizer proposes a new stop order for one driver-day. It never mutates trips.
type Optimizer struct {
	Precise          distance.Source // optional
	Approximate      distance.Source
	TwoOptIterations int
	Log              *zap.Logger
}

// Propose tries the precise source, then the approximate one, then falls back to manual.
// Stops are reordered within each time-of-day band; bands keep their chronological order.
func (o *Optimizer) Propose(ctx context.Context, driverID, date string, trips []model.Trip) Result {
	log := o.Log
	if log == nil {
		log = zap.NewNop()
	}
	ordered := append([]model.Trip(nil), trips...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].PickupTime != ordered[j].PickupTime {
			return ordered[i].PickupTime < ordered[j].PickupTime
		}
		return ordered[i].ID < ordered[j].ID
	})
	ids := make([]string, len(ordered))
	for i, t := range ordered {
		ids[i] = t.ID
	}
	plan := Proposal{DriverID: driverID, Date: date, Original: ids, Optimized: append([]string(nil), ids...)}
	if len(ordered) < 2 {
		return PreciseResult{Plan: plan}
	}

	stops := make([]model.Location, len(ordered))
	for i, t := range ordered {
		stops[i] = t.Pickup
	}
	groups := bandGroups(ordered)

	reason := "precise distance source not configured"
	if o.Precise != nil {
		m, err := o.Precise.Distances(ctx, stops, stops)
		if err == nil {
			err = m.Validate(len(stops), len(stops))
		}
		if err == nil {
			plan.Optimized = o.solve(ids, groups, m)
			return PreciseResult{Plan: plan, Savings: savings(ids, plan.Optimized, groups, m)}
		}
		reason = err.Error()
		log.Warn("precise distances unavailable, falling back", zap.String("driverId", driverID), zap.String("date", date), zap.Error(err))
	}

	if o.Approximate != nil {
		m, err := o.Approximate.Distances(ctx, stops, stops)
		if err == nil {
			plan.Optimized = o.solve(ids, groups, m)
			return ApproximateResult{
				Plan:    plan,
				Savings: savings(ids, plan.Optimized, groups, m),
				Warning: fmt.Sprintf("precise distances unavailable (%s); order estimated from straight-line distances", reason),
			}
		}
		reason = fmt.Sprintf("%s; %s", reason, err)
	}
	return ManualResult{
		Plan:    plan,
		Warning: fmt.Sprintf("no distance data available (%s); reorder stops manually", reason),
	}
}

// bandGroups returns index groups into ordered, one per band, in band order.
func bandGroups(ordered []model.Trip) [][]int {
	pos := map[model.Band]int{}
	var groups [][]int
	for _, b := range model.Bands {
		for i, t := range ordered {
			if t.Band != b {
				continue
			}
			if _, ok := pos[b]; !ok {
				pos[b] = len(groups)
				groups = append(groups, nil)
			}
			groups[pos[b]] = append(groups[pos[b]], i)
		}
	}
	// trips with a band outside model.Bands keep their place at the end
	for i, t := range ordered {
		known := false
		for _, b := range model.Bands {
			if t.Band == b {
				known = true
			}
		}
		if !known {
			groups = append(groups, []int{i})
		}
	}
	return groups
}

// solve orders each group by nearest neighbour on travel time from its earliest pickup,
// refines with 2-opt and keeps the original group order when that is no worse.
func (o *Optimizer) solve(ids []string, groups [][]int, m distance.Matrix) []string {
	out := make([]string, 0, len(ids))
	for _, g := range groups {
		sub := subMatrix(m.Seconds, g)
		identity := make([]int, len(g))
		for i := range identity {
			identity[i] = i
		}
		order := NearestNeighbor(sub, 0)
		if o.TwoOptIterations > 0 {
			order = ImproveOrder2Opt(sub, order, o.TwoOptIterations)
		}
		if PathCost(sub, order) >= PathCost(sub, identity) {
			order = identity
		}
		for _, k := range order {
			out = append(out, ids[g[k]])
		}
	}
	return out
}

func subMatrix(full [][]float64, idx []int) [][]float64 {
	sub := make([][]float64, len(idx))
	for i, a := range idx {
		sub[i] = make([]float64, len(idx))
		for j, b := range idx {
			sub[i][j] = full[a][b]
		}
	}
	return sub
}

// savings measures both orders band by band; there is no leg between bands.
func savings(original, optimized []string, groups [][]int, m distance.Matrix) Savings {
	index := map[string]int{}
	for i, id := range original {
		index[id] = i
	}
	var s Savings
	offset := 0
	for _, g := range groups {
		origIdx := append([]int(nil), g...)
		optIdx := make([]int, len(g))
		for i := range g {
			optIdx[i] = index[optimized[offset+i]]
		}
		offset += len(g)
		s.OriginalMeters += PathCost(m.Meters, origIdx)
		s.OriginalSeconds += PathCost(m.Seconds, origIdx)
		s.OptimizedMeters += PathCost(m.Meters, optIdx)
		s.OptimizedSeconds += PathCost(m.Seconds, optIdx)
	}
	return s
}
