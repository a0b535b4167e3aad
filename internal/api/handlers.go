package api

import (
	"context"
	"net/http"
	"time"

	"tripsched/internal/buildinfo"
	"tripsched/internal/model"
	"tripsched/internal/opt"
)

// GenerateHandler handles POST /v1/schedule/generate
func (s *Server) GenerateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p, ok := s.scheduler(w, r)
	if !ok {
		return
	}
	var req rangeRequest
	if !s.decode(w, r, &req) {
		return
	}
	rep, err := s.Engine.Generate(r.Context(), p.Tenant, req.Start, req.End, req.Overwrite)
	if err != nil {
		s.writeError(w, r, "Generate trips failed", err)
		return
	}
	s.Broker.Publish(p.Tenant, Event{Type: "trips.generated", Data: map[string]any{
		"start": rep.Start, "end": rep.End, "generated": rep.Generated, "updated": rep.Updated, "skipped": rep.Skipped, "conflicts": len(rep.Conflicts),
	}})
	writeJSON(w, http.StatusOK, rep)
}

// AutoAssignHandler handles POST /v1/schedule/auto-assign
func (s *Server) AutoAssignHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p, ok := s.scheduler(w, r)
	if !ok {
		return
	}
	var req rangeRequest
	if !s.decode(w, r, &req) {
		return
	}
	rep, err := s.Engine.AutoAssign(r.Context(), p.Tenant, req.Start, req.End)
	if err != nil {
		s.writeError(w, r, "Auto-assign failed", err)
		return
	}
	s.Broker.Publish(p.Tenant, Event{Type: "trips.assigned", Data: map[string]any{
		"start": rep.Start, "end": rep.End, "assigned": rep.Assigned, "failed": rep.Failed,
	}})
	writeJSON(w, http.StatusOK, rep)
}

// CopyWeekHandler handles POST /v1/schedule/copy-week
func (s *Server) CopyWeekHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p, ok := s.scheduler(w, r)
	if !ok {
		return
	}
	var req copyWeekRequest
	if !s.decode(w, r, &req) {
		return
	}
	rep, err := s.Engine.CopyWeek(r.Context(), p.Tenant, req.SourceStart, req.TargetStart)
	if err != nil {
		s.writeError(w, r, "Copy week failed", err)
		return
	}
	s.Broker.Publish(p.Tenant, Event{Type: "week.copied", Data: map[string]any{
		"sourceStart": rep.SourceStart, "targetStart": rep.TargetStart, "copied": rep.Copied, "skipped": rep.Skipped,
	}})
	writeJSON(w, http.StatusOK, rep)
}

// BoardHandler handles GET /v1/schedule/board?start=&end=
func (s *Server) BoardHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	b, err := s.Engine.Board(r.Context(), p.Tenant, q.Get("start"), q.Get("end"))
	if err != nil {
		s.writeError(w, r, "Board failed", err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// OptimizeRouteHandler handles POST /v1/routes/optimize. The proposal is returned, never applied.
func (s *Server) OptimizeRouteHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p, ok := s.scheduler(w, r)
	if !ok {
		return
	}
	var req routeRequest
	if !s.decode(w, r, &req) {
		return
	}
	res, err := s.Engine.OptimizeRoute(r.Context(), p.Tenant, req.DriverID, req.Date)
	if err != nil {
		s.writeError(w, r, "Optimize route failed", err)
		return
	}
	writeJSON(w, http.StatusOK, proposalBody(res))
}

func proposalBody(res opt.Result) map[string]any {
	pr := res.Proposal()
	body := map[string]any{
		"method":    res.Method(),
		"reliable":  res.Reliable(),
		"driverId":  pr.DriverID,
		"date":      pr.Date,
		"original":  nonNil(pr.Original),
		"optimized": nonNil(pr.Optimized),
	}
	switch v := res.(type) {
	case opt.PreciseResult:
		body["savings"] = savingsBody(v.Savings)
	case opt.ApproximateResult:
		body["savings"] = savingsBody(v.Savings)
		body["warning"] = v.Warning
	case opt.ManualResult:
		body["warning"] = v.Warning
	}
	return body
}

func savingsBody(sv opt.Savings) map[string]any {
	return map[string]any{
		"meters":  sv.Meters(),
		"seconds": sv.Seconds(),
		"detail":  sv,
	}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// CommitRouteHandler handles POST /v1/routes/commit
func (s *Server) CommitRouteHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p, ok := s.scheduler(w, r)
	if !ok {
		return
	}
	var req commitRequest
	if !s.decode(w, r, &req) {
		return
	}
	rep, err := s.Engine.CommitRoute(r.Context(), p.Tenant, req.DriverID, req.Date, req.Order)
	if err != nil {
		s.writeError(w, r, "Commit route failed", err)
		return
	}
	s.Broker.Publish(p.Tenant, Event{Type: "route.committed", Data: map[string]any{
		"driverId": rep.DriverID, "date": rep.Date, "updated": rep.Updated, "order": req.Order,
	}})
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	body := buildinfo.Info()
	body["status"] = "ok"
	writeJSON(w, 200, body)
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	// Check DB connectivity when the store supports it
	type pinger interface{ Ping(ctx context.Context) error }
	if pg, ok := s.Store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := pg.Ping(ctx); err != nil {
			writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, 200, map[string]string{"status": "ready"})
}

// tripFilter reads the /v1/trips query parameters.
func tripFilter(r *http.Request) model.TripFilter {
	q := r.URL.Query()
	f := model.TripFilter{
		From:           q.Get("start"),
		To:             q.Get("end"),
		DriverID:       q.Get("driverId"),
		CustomerID:     q.Get("customerId"),
		UnassignedOnly: q.Get("unassigned") == "true",
	}
	for _, st := range q["status"] {
		f.Statuses = append(f.Statuses, model.TripStatus(st))
	}
	return f
}
