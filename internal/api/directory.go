package api

import (
	"fmt"
	"net/http"
	"time"

	"tripsched/internal/model"
)

// ScheduleEntriesHandler handles GET/PUT /v1/schedule-entries
func (s *Server) ScheduleEntriesHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		p, ok := s.principal(w, r)
		if !ok {
			return
		}
		items, err := s.Store.ListScheduleEntries(r.Context(), p.Tenant)
		if err != nil {
			s.writeError(w, r, "List schedule entries failed", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPut:
		p, ok := s.scheduler(w, r)
		if !ok {
			return
		}
		var req scheduleEntryRequest
		if !s.decode(w, r, &req) {
			return
		}
		e, err := req.entry()
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid request", err.Error(), r.URL.Path)
			return
		}
		saved, err := s.Store.PutScheduleEntry(r.Context(), p.Tenant, e)
		if err != nil {
			s.writeError(w, r, "Save schedule entry failed", err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// DriversHandler handles GET/PUT /v1/drivers; GET accepts ?active=true
func (s *Server) DriversHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		p, ok := s.principal(w, r)
		if !ok {
			return
		}
		items, err := s.Store.ListDrivers(r.Context(), p.Tenant, r.URL.Query().Get("active") == "true")
		if err != nil {
			s.writeError(w, r, "List drivers failed", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPut:
		p, ok := s.scheduler(w, r)
		if !ok {
			return
		}
		var req driverRequest
		if !s.decode(w, r, &req) {
			return
		}
		saved, err := s.Store.PutDriver(r.Context(), p.Tenant, req.driver())
		if err != nil {
			s.writeError(w, r, "Save driver failed", err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// CustomersHandler handles GET/PUT /v1/customers
func (s *Server) CustomersHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		p, ok := s.principal(w, r)
		if !ok {
			return
		}
		items, err := s.Store.ListCustomers(r.Context(), p.Tenant)
		if err != nil {
			s.writeError(w, r, "List customers failed", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPut:
		p, ok := s.scheduler(w, r)
		if !ok {
			return
		}
		var req customerRequest
		if !s.decode(w, r, &req) {
			return
		}
		saved, err := s.Store.PutCustomer(r.Context(), p.Tenant, model.Customer{ID: req.ID, Name: req.Name, RequiresWheelchair: req.RequiresWheelchair})
		if err != nil {
			s.writeError(w, r, "Save customer failed", err)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// TripsHandler handles GET /v1/trips?start=&end=&driverId=&customerId=&status=&unassigned=
func (s *Server) TripsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	p, ok := s.principal(w, r)
	if !ok {
		return
	}
	f := tripFilter(r)
	for _, d := range []string{f.From, f.To} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(model.DateLayout, d); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid query", fmt.Sprintf("invalid date %q", d), r.URL.Path)
			return
		}
	}
	for _, st := range f.Statuses {
		if !st.Valid() {
			writeProblem(w, http.StatusBadRequest, "Invalid query", fmt.Sprintf("unknown status %q", st), r.URL.Path)
			return
		}
	}
	items, err := s.Store.ListTrips(r.Context(), p.Tenant, f)
	if err != nil {
		s.writeError(w, r, "List trips failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
