package store

import (
	"sort"

	"tripsched/internal/model"
)

// matchTrip reports whether t passes every set field of f.
func matchTrip(t model.Trip, f model.TripFilter) bool {
	if f.From != "" && t.Date < f.From {
		return false
	}
	if f.To != "" && t.Date > f.To {
		return false
	}
	if f.DriverID != "" && t.DriverID != f.DriverID {
		return false
	}
	if f.CustomerID != "" && t.CustomerID != f.CustomerID {
		return false
	}
	if f.UnassignedOnly && t.Assigned() {
		return false
	}
	if len(f.Statuses) > 0 {
		ok := false
		for _, s := range f.Statuses {
			if t.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}

// sortTrips orders by date, pickup time, customer then id.
func sortTrips(trips []model.Trip) {
	sort.SliceStable(trips, func(i, j int) bool {
		a, b := trips[i], trips[j]
		if a.Date != b.Date {
			return a.Date < b.Date
		}
		if a.PickupTime != b.PickupTime {
			return a.PickupTime < b.PickupTime
		}
		if a.CustomerID != b.CustomerID {
			return a.CustomerID < b.CustomerID
		}
		return a.ID < b.ID
	})
}
