package schedule

import (
	"strings"
	"time"

	"tripsched/internal/config"
	"tripsched/internal/model"
)

// Detector decides whether a driver can take a trip. It reads its inputs and never mutates them.
type Detector struct {
	// MinGap is the shortest allowed distance between two pickups of one driver.
	MinGap time.Duration
	// DayLimit caps trips per driver per date when the driver has no own limit. 0 = none.
	DayLimit int
}

func NewDetector(cfg config.Scheduling) Detector {
	return Detector{MinGap: cfg.MinGap(), DayLimit: cfg.MaxTripsPerDriverDay}
}

// Check tests, in order, vehicle accessibility, pickup gap, seat capacity of the band and
// the driver's daily limit. sameDay holds the driver's other trips on the trip's date;
// the trip itself and cancelled trips are ignored.
func (d Detector) Check(driver model.Driver, customer model.Customer, trip model.Trip, sameDay []model.Trip) (bool, model.Reason) {
	if customer.RequiresWheelchair && !driver.Vehicle.WheelchairAccessible {
		return false, model.ReasonNoAccessibleVehicle
	}
	var others []model.Trip
	for _, o := range sameDay {
		if o.ID == trip.ID || o.Status == model.StatusCancelled || o.Date != trip.Date {
			continue
		}
		others = append(others, o)
	}
	for _, o := range others {
		if d.overlaps(o, trip) {
			return false, model.ReasonTimeConflict
		}
	}
	inBand := 0
	for _, o := range others {
		if o.Band == trip.Band {
			inBand++
		}
	}
	if inBand >= driver.Vehicle.Capacity {
		return false, model.ReasonNoCapacity
	}
	limit := driver.MaxTripsPerDay
	if limit == 0 {
		limit = d.DayLimit
	}
	if limit > 0 && len(others) >= limit {
		return false, model.ReasonDriverDayLimit
	}
	return true, ""
}

// overlaps reports whether two pickups are too close for one driver to serve both.
// Riders picked up together at the same stop and time share the ride.
func (d Detector) overlaps(a, b model.Trip) bool {
	gap := a.PickupTime.Duration() - b.PickupTime.Duration()
	if gap < 0 {
		gap = -gap
	}
	if gap == 0 && sameStop(a.Pickup, b.Pickup) {
		return false
	}
	return gap < d.MinGap
}

func sameStop(a, b model.Location) bool {
	if a.Point != nil && b.Point != nil {
		return *a.Point == *b.Point
	}
	aa := strings.ToLower(strings.TrimSpace(a.Address))
	return aa != "" && aa == strings.ToLower(strings.TrimSpace(b.Address))
}

// reasonStage ranks reasons by how far a driver got through Check.
func reasonStage(r model.Reason) int {
	switch r {
	case model.ReasonNoAccessibleVehicle:
		return 1
	case model.ReasonTimeConflict:
		return 2
	case model.ReasonNoCapacity, model.ReasonDriverDayLimit:
		return 3
	}
	return 0
}
