package schedule

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"tripsched/internal/config"
	"tripsched/internal/metrics"
	"tripsched/internal/model"
	"tripsched/internal/opt"
	"tripsched/internal/store"
)

// Engine runs the scheduling operations against a store. Each mutating operation reads what
// it needs, plans every change in memory and persists it with a single SaveTrips call, so a
// storage failure leaves no partial result behind.
type Engine struct {
	Store     store.Store
	Optimizer *opt.Optimizer
	Cfg       config.Scheduling
	Log       *zap.Logger
	NewID     func() string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(st store.Store, o *opt.Optimizer, cfg config.Scheduling, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{Store: st, Optimizer: o, Cfg: cfg, Log: log, locks: map[string]*sync.Mutex{}}
}

// lockTenant serializes mutating invocations of one tenant within the process.
func (e *Engine) lockTenant(tenantID string) func() {
	e.mu.Lock()
	if e.locks == nil {
		e.locks = map[string]*sync.Mutex{}
	}
	l := e.locks[tenantID]
	if l == nil {
		l = &sync.Mutex{}
		e.locks[tenantID] = l
	}
	e.mu.Unlock()
	l.Lock()
	return l.Unlock
}

func (e *Engine) logger() *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}

func (e *Engine) observe(op string, start time.Time, err error) {
	result := "ok"
	var ie *InputError
	switch {
	case errors.As(err, &ie):
		result = "input_error"
	case err != nil:
		result = "error"
	}
	metrics.ScheduleRuns.WithLabelValues(op, result).Inc()
	metrics.ScheduleDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (e *Engine) detector() Detector { return NewDetector(e.Cfg) }

func (e *Engine) directory(ctx context.Context, tenantID string) (map[string]model.Driver, []model.Driver, map[string]model.Customer, error) {
	drivers, err := e.Store.ListDrivers(ctx, tenantID, true)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("list drivers: %w", err)
	}
	customers, err := e.Store.ListCustomers(ctx, tenantID)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("list customers: %w", err)
	}
	byDriver := make(map[string]model.Driver, len(drivers))
	for _, d := range drivers {
		byDriver[d.ID] = d
	}
	byCustomer := make(map[string]model.Customer, len(customers))
	for _, c := range customers {
		byCustomer[c.ID] = c
	}
	return byDriver, drivers, byCustomer, nil
}

// Generate expands schedule entries into trips for [start, end].
func (e *Engine) Generate(ctx context.Context, tenantID, start, end string, overwrite bool) (rep model.GenerateReport, err error) {
	began := time.Now()
	defer func() { e.observe("generate", began, err) }()

	r, err := ParseRange(start, end, e.Cfg.MaxRangeDays)
	if err != nil {
		return rep, err
	}
	unlock := e.lockTenant(tenantID)
	defer unlock()

	entries, err := e.Store.ListScheduleEntries(ctx, tenantID)
	if err != nil {
		return rep, fmt.Errorf("generate: list schedule entries: %w", err)
	}
	existing, err := e.Store.ListTrips(ctx, tenantID, r.Filter())
	if err != nil {
		return rep, fmt.Errorf("generate: list trips: %w", err)
	}
	drivers, _, customers, err := e.directory(ctx, tenantID)
	if err != nil {
		return rep, fmt.Errorf("generate: %w", err)
	}

	g := Generator{Detector: e.detector(), AfternoonStartHour: e.Cfg.AfternoonStartHour, NewID: e.NewID}
	changes, rep := g.Plan(GenerateInput{
		Range:     r,
		Overwrite: overwrite,
		Entries:   entries,
		Existing:  existing,
		Drivers:   drivers,
		Customers: customers,
	})
	if err := e.Store.SaveTrips(ctx, tenantID, changes); err != nil {
		return model.GenerateReport{}, fmt.Errorf("generate: save trips: %w", err)
	}
	metrics.TripsWritten.WithLabelValues("generate", "insert").Add(float64(len(changes.Inserts)))
	metrics.TripsWritten.WithLabelValues("generate", "update").Add(float64(len(changes.Updates)))
	countNotes("generate", rep.Skips, rep.Conflicts)
	e.logger().Info("trips generated",
		zap.String("op", "generate"), zap.String("tenant", tenantID), zap.Stringer("range", r),
		zap.Bool("overwrite", overwrite), zap.Int("generated", rep.Generated), zap.Int("updated", rep.Updated),
		zap.Int("skipped", rep.Skipped), zap.Int("conflicts", len(rep.Conflicts)), zap.Duration("took", time.Since(began)))
	return rep, nil
}

// AutoAssign assigns every unassigned scheduled trip in [start, end] to a feasible driver.
func (e *Engine) AutoAssign(ctx context.Context, tenantID, start, end string) (rep model.AssignReport, err error) {
	began := time.Now()
	defer func() { e.observe("auto_assign", began, err) }()

	r, err := ParseRange(start, end, e.Cfg.MaxRangeDays)
	if err != nil {
		return rep, err
	}
	unlock := e.lockTenant(tenantID)
	defer unlock()

	inRange, err := e.Store.ListTrips(ctx, tenantID, r.Filter())
	if err != nil {
		return rep, fmt.Errorf("auto-assign: list trips: %w", err)
	}
	_, drivers, customers, err := e.directory(ctx, tenantID)
	if err != nil {
		return rep, fmt.Errorf("auto-assign: %w", err)
	}
	var pending, booked []model.Trip
	for _, t := range inRange {
		switch {
		case t.Assigned():
			booked = append(booked, t)
		case t.Status == model.StatusScheduled:
			pending = append(pending, t)
		}
	}

	updates, outcomes := Assigner{Detector: e.detector()}.Plan(pending, drivers, customers, booked)
	if err := e.Store.SaveTrips(ctx, tenantID, model.TripChanges{Updates: updates}); err != nil {
		return model.AssignReport{}, fmt.Errorf("auto-assign: save trips: %w", err)
	}
	rep = model.AssignReport{
		Start:    r.Start.Format(model.DateLayout),
		End:      r.End.Format(model.DateLayout),
		Assigned: len(updates),
		Failed:   len(outcomes) - len(updates),
		Outcomes: outcomes,
	}
	metrics.TripsWritten.WithLabelValues("auto_assign", "update").Add(float64(len(updates)))
	for _, o := range rep.Failures() {
		metrics.SlotOutcomes.WithLabelValues("auto_assign", string(o.Reason)).Inc()
	}
	e.logger().Info("trips assigned",
		zap.String("op", "auto_assign"), zap.String("tenant", tenantID), zap.Stringer("range", r),
		zap.Int("assigned", rep.Assigned), zap.Int("failed", rep.Failed), zap.Int("drivers", len(drivers)),
		zap.Duration("took", time.Since(began)))
	return rep, nil
}

// dayRoute loads the driver and the driver's scheduled trips on date.
func (e *Engine) dayRoute(ctx context.Context, tenantID, driverID, date string) ([]model.Trip, error) {
	if _, err := parseDate("date", date); err != nil {
		return nil, err
	}
	if driverID == "" {
		return nil, inputErr("driverId", "required")
	}
	if _, err := e.Store.GetDriver(ctx, tenantID, driverID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, inputErr("driverId", "unknown driver %q", driverID)
		}
		return nil, fmt.Errorf("get driver: %w", err)
	}
	trips, err := e.Store.ListTrips(ctx, tenantID, model.TripFilter{
		From:     date,
		To:       date,
		DriverID: driverID,
		Statuses: []model.TripStatus{model.StatusScheduled},
	})
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	return trips, nil
}

// OptimizeRoute proposes a new stop order for the driver's scheduled trips on date.
// Nothing is written.
func (e *Engine) OptimizeRoute(ctx context.Context, tenantID, driverID, date string) (res opt.Result, err error) {
	began := time.Now()
	defer func() { e.observe("optimize_route", began, err) }()

	trips, err := e.dayRoute(ctx, tenantID, driverID, date)
	if err != nil {
		return nil, err
	}
	o := e.Optimizer
	if o == nil {
		o = &opt.Optimizer{TwoOptIterations: e.Cfg.TwoOptIterations, Log: e.Log}
	}
	res = o.Propose(ctx, driverID, date, trips)
	metrics.RouteProposals.WithLabelValues(string(res.Method())).Inc()
	e.logger().Info("route proposed",
		zap.String("op", "optimize_route"), zap.String("tenant", tenantID), zap.String("driverId", driverID),
		zap.String("date", date), zap.String("method", string(res.Method())), zap.Int("trips", len(trips)),
		zap.Duration("took", time.Since(began)))
	return res, nil
}

// CommitRoute applies a stop order to the driver's scheduled trips on date. order must list
// exactly the current trips. Within each band the existing pickup times are handed out, in
// ascending order, to the trips in their new order. All trips are written at once.
func (e *Engine) CommitRoute(ctx context.Context, tenantID, driverID, date string, order []string) (rep model.CommitReport, err error) {
	began := time.Now()
	defer func() { e.observe("commit_route", began, err) }()

	seen := map[string]bool{}
	for _, id := range order {
		if seen[id] {
			return rep, inputErr("order", "trip %q listed twice", id)
		}
		seen[id] = true
	}
	unlock := e.lockTenant(tenantID)
	defer unlock()

	trips, err := e.dayRoute(ctx, tenantID, driverID, date)
	if err != nil {
		return rep, err
	}
	byID := map[string]model.Trip{}
	for _, t := range trips {
		byID[t.ID] = t
	}
	if len(order) != len(trips) {
		return rep, fmt.Errorf("commit route: order has %d trips, driver has %d scheduled: %w", len(order), len(trips), store.ErrConflict)
	}
	for _, id := range order {
		if _, ok := byID[id]; !ok {
			return rep, fmt.Errorf("commit route: trip %s is not a scheduled trip of driver %s on %s: %w", id, driverID, date, store.ErrConflict)
		}
	}

	times := map[model.Band][]model.Clock{}
	for _, t := range trips {
		times[t.Band] = append(times[t.Band], t.PickupTime)
	}
	for _, ts := range times {
		sort.Slice(ts, func(i, j int) bool { return ts[i] < ts[j] })
	}
	next := map[model.Band]int{}
	var updates []model.Trip
	out := make([]model.Trip, 0, len(order))
	for _, id := range order {
		t := byID[id]
		at := times[t.Band][next[t.Band]]
		next[t.Band]++
		if t.PickupTime != at {
			t.PickupTime = at
			updates = append(updates, t)
		}
		out = append(out, t)
	}
	if err := e.Store.SaveTrips(ctx, tenantID, model.TripChanges{Updates: updates}); err != nil {
		return rep, fmt.Errorf("commit route: save trips: %w", err)
	}
	sortByPickup(out)
	metrics.TripsWritten.WithLabelValues("commit_route", "update").Add(float64(len(updates)))
	e.logger().Info("route committed",
		zap.String("op", "commit_route"), zap.String("tenant", tenantID), zap.String("driverId", driverID),
		zap.String("date", date), zap.Int("updated", len(updates)), zap.Duration("took", time.Since(began)))
	return model.CommitReport{DriverID: driverID, Date: date, Updated: len(updates), Trips: out}, nil
}

// CopyWeek replicates the trips of the week starting at sourceStart into the week starting at
// targetStart. Both dates must fall on the same weekday.
func (e *Engine) CopyWeek(ctx context.Context, tenantID, sourceStart, targetStart string) (rep model.CopyReport, err error) {
	began := time.Now()
	defer func() { e.observe("copy_week", began, err) }()

	src, err := parseDate("sourceStart", sourceStart)
	if err != nil {
		return rep, err
	}
	dst, err := parseDate("targetStart", targetStart)
	if err != nil {
		return rep, err
	}
	if src.Weekday() != dst.Weekday() {
		return rep, inputErr("targetStart", "%s is a %s but the source week starts on a %s", targetStart, dst.Weekday(), src.Weekday())
	}
	if src.Equal(dst) {
		return rep, inputErr("targetStart", "target week equals source week")
	}
	unlock := e.lockTenant(tenantID)
	defer unlock()

	source, err := e.Store.ListTrips(ctx, tenantID, week(src).Filter())
	if err != nil {
		return rep, fmt.Errorf("copy week: list source trips: %w", err)
	}
	target, err := e.Store.ListTrips(ctx, tenantID, week(dst).Filter())
	if err != nil {
		return rep, fmt.Errorf("copy week: list target trips: %w", err)
	}
	drivers, _, customers, err := e.directory(ctx, tenantID)
	if err != nil {
		return rep, fmt.Errorf("copy week: %w", err)
	}

	inserts, rep := Copier{Detector: e.detector(), NewID: e.NewID}.Plan(CopyInput{
		SourceStart: src,
		TargetStart: dst,
		Source:      source,
		Target:      target,
		Drivers:     drivers,
		Customers:   customers,
	})
	if err := e.Store.SaveTrips(ctx, tenantID, model.TripChanges{Inserts: inserts}); err != nil {
		return model.CopyReport{}, fmt.Errorf("copy week: save trips: %w", err)
	}
	metrics.TripsWritten.WithLabelValues("copy_week", "insert").Add(float64(len(inserts)))
	countNotes("copy_week", rep.Skips, rep.Unassigned)
	e.logger().Info("week copied",
		zap.String("op", "copy_week"), zap.String("tenant", tenantID), zap.String("sourceStart", sourceStart),
		zap.String("targetStart", targetStart), zap.Int("copied", rep.Copied), zap.Int("skipped", rep.Skipped),
		zap.Int("unassigned", len(rep.Unassigned)), zap.Duration("took", time.Since(began)))
	return rep, nil
}

// Board returns the driver/date/band view of [start, end].
func (e *Engine) Board(ctx context.Context, tenantID, start, end string) (Board, error) {
	r, err := ParseRange(start, end, e.Cfg.MaxRangeDays)
	if err != nil {
		return Board{}, err
	}
	trips, err := e.Store.ListTrips(ctx, tenantID, r.Filter())
	if err != nil {
		return Board{}, fmt.Errorf("board: list trips: %w", err)
	}
	return BuildIndex(occupying(trips)).Board(r.Start.Format(model.DateLayout), r.End.Format(model.DateLayout)), nil
}

func countNotes(op string, lists ...[]model.SlotNote) {
	for _, l := range lists {
		for _, n := range l {
			metrics.SlotOutcomes.WithLabelValues(op, string(n.Reason)).Inc()
		}
	}
}
