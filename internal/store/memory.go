package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"tripsched/internal/model"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu        sync.Mutex
	trips     map[string]model.Trip                     // id -> trip
	byTen     map[string][]string                       // tenant -> trip ids
	regular   map[string]map[model.SlotKey]string       // tenant -> slot -> regular trip id
	entries   map[string]map[string]model.ScheduleEntry // tenant -> entry id -> entry
	drivers   map[string]map[string]model.Driver        // tenant -> driver id -> driver
	customers map[string]map[string]model.Customer      // tenant -> customer id -> customer
}

func NewMemory() *Memory {
	return &Memory{
		trips:     map[string]model.Trip{},
		byTen:     map[string][]string{},
		regular:   map[string]map[model.SlotKey]string{},
		entries:   map[string]map[string]model.ScheduleEntry{},
		drivers:   map[string]map[string]model.Driver{},
		customers: map[string]map[string]model.Customer{},
	}
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) ListTrips(ctx context.Context, tenantID string, f model.TripFilter) ([]model.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Trip{}
	for _, id := range m.byTen[tenantID] {
		t := m.trips[id]
		if matchTrip(t, f) {
			out = append(out, t)
		}
	}
	sortTrips(out)
	return out, nil
}

func (m *Memory) GetTrip(ctx context.Context, tenantID, id string) (model.Trip, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trips[id]
	if !ok || t.TenantID != tenantID {
		return model.Trip{}, ErrNotFound
	}
	return t, nil
}

// SaveTrips validates the whole change set against the current state before applying any of it.
func (m *Memory) SaveTrips(ctx context.Context, tenantID string, changes model.TripChanges) error {
	if changes.Empty() {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	slots := map[model.SlotKey]string{}
	for k, v := range m.regular[tenantID] {
		slots[k] = v
	}
	for _, u := range changes.Updates {
		old, ok := m.trips[u.ID]
		if !ok || old.TenantID != tenantID {
			return fmt.Errorf("update trip %s: %w", u.ID, ErrNotFound)
		}
		if old.Type == model.TripRegular && slots[old.Key()] == old.ID {
			delete(slots, old.Key())
		}
	}
	seen := map[string]bool{}
	claim := func(t model.Trip) error {
		if seen[t.ID] {
			return fmt.Errorf("trip %s appears twice in one change set", t.ID)
		}
		seen[t.ID] = true
		if t.Type != model.TripRegular {
			return nil
		}
		if other, ok := slots[t.Key()]; ok && other != t.ID {
			return fmt.Errorf("customer %s on %s (%s): %w", t.CustomerID, t.Date, t.Band, ErrDuplicateTrip)
		}
		slots[t.Key()] = t.ID
		return nil
	}
	for _, u := range changes.Updates {
		if err := claim(u); err != nil {
			return err
		}
	}
	for _, in := range changes.Inserts {
		if _, exists := m.trips[in.ID]; exists || in.ID == "" {
			return fmt.Errorf("insert trip %q: invalid or existing id", in.ID)
		}
		if err := claim(in); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	for _, u := range changes.Updates {
		u.TenantID = tenantID
		u.CreatedAt = m.trips[u.ID].CreatedAt
		u.UpdatedAt = now
		m.trips[u.ID] = u
	}
	for _, in := range changes.Inserts {
		in.TenantID = tenantID
		if in.CreatedAt.IsZero() {
			in.CreatedAt = now
		}
		in.UpdatedAt = now
		m.trips[in.ID] = in
		m.byTen[tenantID] = append(m.byTen[tenantID], in.ID)
	}
	m.regular[tenantID] = slots
	return nil
}

func (m *Memory) ListScheduleEntries(ctx context.Context, tenantID string) ([]model.ScheduleEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ScheduleEntry, 0, len(m.entries[tenantID]))
	for _, e := range m.entries[tenantID] {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CustomerID != out[j].CustomerID {
			return out[i].CustomerID < out[j].CustomerID
		}
		if out[i].Weekday != out[j].Weekday {
			return out[i].Weekday < out[j].Weekday
		}
		return out[i].PickupTime < out[j].PickupTime
	})
	return out, nil
}

func (m *Memory) PutScheduleEntry(ctx context.Context, tenantID string, e model.ScheduleEntry) (model.ScheduleEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	e.TenantID = tenantID
	if m.entries[tenantID] == nil {
		m.entries[tenantID] = map[string]model.ScheduleEntry{}
	}
	m.entries[tenantID][e.ID] = e
	return e, nil
}

func (m *Memory) ListDrivers(ctx context.Context, tenantID string, activeOnly bool) ([]model.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Driver{}
	for _, d := range m.drivers[tenantID] {
		if activeOnly && !d.Active {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetDriver(ctx context.Context, tenantID, id string) (model.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[tenantID][id]
	if !ok {
		return model.Driver{}, ErrNotFound
	}
	return d, nil
}

func (m *Memory) PutDriver(ctx context.Context, tenantID string, d model.Driver) (model.Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	d.TenantID = tenantID
	if m.drivers[tenantID] == nil {
		m.drivers[tenantID] = map[string]model.Driver{}
	}
	m.drivers[tenantID][d.ID] = d
	return d, nil
}

func (m *Memory) ListCustomers(ctx context.Context, tenantID string) ([]model.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Customer{}
	for _, c := range m.customers[tenantID] {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) PutCustomer(ctx context.Context, tenantID string, c model.Customer) (model.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	c.TenantID = tenantID
	if m.customers[tenantID] == nil {
		m.customers[tenantID] = map[string]model.Customer{}
	}
	m.customers[tenantID][c.ID] = c
	return c, nil
}
