package model

import (
	"strings"
	"time"
)

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

type TripStatus string

const (
	StatusScheduled  TripStatus = "scheduled"
	StatusInProgress TripStatus = "in_progress"
	StatusCompleted  TripStatus = "completed"
	StatusCancelled  TripStatus = "cancelled"
	StatusNoShow     TripStatus = "no_show"
)

// Valid reports whether s is one of the known trip statuses.
func (s TripStatus) Valid() bool {
	switch s {
	case StatusScheduled, StatusInProgress, StatusCompleted, StatusCancelled, StatusNoShow:
		return true
	}
	return false
}

type TripType string

const (
	TripRegular TripType = "regular"
	TripAdHoc   TripType = "ad_hoc"
)

type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Location is an address with optional coordinates.
type Location struct {
	Address string    `json:"address,omitempty"`
	Point   *GeoPoint `json:"point,omitempty"`
}

// Empty reports whether the location carries neither an address nor coordinates.
func (l Location) Empty() bool {
	return strings.TrimSpace(l.Address) == "" && l.Point == nil
}

// ScheduleEntry is one weekday of a customer's recurring travel pattern.
type ScheduleEntry struct {
	ID          string       `json:"id"`
	TenantID    string       `json:"tenantId,omitempty"`
	CustomerID  string       `json:"customerId"`
	Weekday     time.Weekday `json:"weekday"` // 0 = Sunday ... 6 = Saturday
	Pickup      Location     `json:"pickup"`
	Destination Location     `json:"destination"`
	PickupTime  Clock        `json:"pickupTime"`
	DailyPrice  float64      `json:"dailyPrice,omitempty"`
	DriverID    string       `json:"driverId,omitempty"` // optional pre-assignment
}

// TravelDay reports whether the entry should produce a trip at all.
// A weekday slot without a destination is not a travel day.
func (e ScheduleEntry) TravelDay() bool { return !e.Destination.Empty() }

type Trip struct {
	ID              string     `json:"id"`
	TenantID        string     `json:"tenantId,omitempty"`
	CustomerID      string     `json:"customerId"`
	DriverID        string     `json:"driverId,omitempty"`
	VehicleID       string     `json:"vehicleId,omitempty"`
	Date            string     `json:"date"`
	PickupTime      Clock      `json:"pickupTime"`
	Band            Band       `json:"band"`
	Status          TripStatus `json:"status"`
	Type            TripType   `json:"type"`
	Pickup          Location   `json:"pickup"`
	Destination     Location   `json:"destination"`
	Price           float64    `json:"price,omitempty"`
	ScheduleEntryID string     `json:"scheduleEntryId,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Assigned reports whether the trip has a driver.
func (t Trip) Assigned() bool { return t.DriverID != "" }

// Key returns the (customer, date, band) slot the trip occupies.
func (t Trip) Key() SlotKey { return SlotKey{CustomerID: t.CustomerID, Date: t.Date, Band: t.Band} }

// SlotKey identifies the unique slot of a regular trip.
type SlotKey struct {
	CustomerID string
	Date       string
	Band       Band
}

type Customer struct {
	ID                 string `json:"id"`
	TenantID           string `json:"tenantId,omitempty"`
	Name               string `json:"name"`
	RequiresWheelchair bool   `json:"requiresWheelchair,omitempty"`
}

type Vehicle struct {
	ID                   string `json:"id"`
	Capacity             int    `json:"capacity"`
	WheelchairAccessible bool   `json:"wheelchairAccessible,omitempty"`
}

// Driver is a roster member; each driver operates exactly one vehicle.
type Driver struct {
	ID             string  `json:"id"`
	TenantID       string  `json:"tenantId,omitempty"`
	Name           string  `json:"name"`
	Active         bool    `json:"active"`
	Vehicle        Vehicle `json:"vehicle"`
	MaxTripsPerDay int     `json:"maxTripsPerDay,omitempty"` // 0 = tenant default
}

// TripFilter narrows trip store reads. Empty fields do not filter.
type TripFilter struct {
	From           string
	To             string
	DriverID       string
	CustomerID     string
	Statuses       []TripStatus
	UnassignedOnly bool
}

// TripChanges is one atomic write against the trip store.
type TripChanges struct {
	Inserts []Trip
	Updates []Trip
}

// Empty reports whether there is nothing to persist.
func (c TripChanges) Empty() bool { return len(c.Inserts) == 0 && len(c.Updates) == 0 }
