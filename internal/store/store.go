package store

import (
	"context"
	"errors"

	"tripsched/internal/model"
)

// Trips is the trip store boundary used by the scheduling engine.
type Trips interface {
	ListTrips(ctx context.Context, tenantID string, f model.TripFilter) ([]model.Trip, error)
	GetTrip(ctx context.Context, tenantID, id string) (model.Trip, error)
	// SaveTrips applies all inserts and updates or none of them.
	SaveTrips(ctx context.Context, tenantID string, changes model.TripChanges) error
}

// Schedules holds customers' recurring weekly entries.
type Schedules interface {
	ListScheduleEntries(ctx context.Context, tenantID string) ([]model.ScheduleEntry, error)
	PutScheduleEntry(ctx context.Context, tenantID string, e model.ScheduleEntry) (model.ScheduleEntry, error)
}

// Directory is the read side of the driver/vehicle and customer rosters.
type Directory interface {
	ListDrivers(ctx context.Context, tenantID string, activeOnly bool) ([]model.Driver, error)
	GetDriver(ctx context.Context, tenantID, id string) (model.Driver, error)
	ListCustomers(ctx context.Context, tenantID string) ([]model.Customer, error)
}

// Store is the persistence interface used by the API server and the engine.
type Store interface {
	Trips
	Schedules
	Directory

	PutDriver(ctx context.Context, tenantID string, d model.Driver) (model.Driver, error)
	PutCustomer(ctx context.Context, tenantID string, c model.Customer) (model.Customer, error)
}

var (
	ErrNotFound = errors.New("not found")
	// ErrDuplicateTrip is returned when a write would create a second regular trip for one slot.
	ErrDuplicateTrip = errors.New("duplicate regular trip")
	// ErrConflict is returned when the stored state no longer matches what a caller planned against.
	ErrConflict = errors.New("conflict")
)
