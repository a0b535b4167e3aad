package schedule

import (
	"fmt"
	"sort"

	"tripsched/internal/model"
)

// Assigner matches unassigned trips to drivers one at a time using the Detector as oracle.
type Assigner struct {
	Detector Detector
}

// Plan assigns pending trips. booked holds trips already assigned in the same range and
// seeds the per-driver load. It returns the trips to update and one outcome per pending trip.
func (a Assigner) Plan(pending []model.Trip, drivers []model.Driver, customers map[string]model.Customer, booked []model.Trip) ([]model.Trip, []model.AssignmentOutcome) {
	order := append([]model.Trip(nil), pending...)
	sort.SliceStable(order, func(i, j int) bool {
		x, y := order[i], order[j]
		if x.Date != y.Date {
			return x.Date < y.Date
		}
		if bx, by := bandRank(x.Band), bandRank(y.Band); bx != by {
			return bx < by
		}
		if x.PickupTime != y.PickupTime {
			return x.PickupTime < y.PickupTime
		}
		if x.CustomerID != y.CustomerID {
			return x.CustomerID < y.CustomerID
		}
		return x.ID < y.ID
	})

	ix := BuildIndex(occupying(booked))
	var updates []model.Trip
	outcomes := make([]model.AssignmentOutcome, 0, len(order))
	for _, t := range order {
		cust := lookupCustomer(customers, t.CustomerID)
		if len(drivers) == 0 {
			outcomes = append(outcomes, failure(t, cust, model.ReasonNoActiveDriver))
			continue
		}
		candidates := append([]model.Driver(nil), drivers...)
		sort.SliceStable(candidates, func(i, j int) bool {
			li, lj := ix.Load(candidates[i].ID, t.Date), ix.Load(candidates[j].ID, t.Date)
			if li != lj {
				return li < lj
			}
			return candidates[i].ID < candidates[j].ID
		})
		var chosen *model.Driver
		var worst model.Reason
		for i := range candidates {
			ok, reason := a.Detector.Check(candidates[i], cust, t, ix.Day(candidates[i].ID, t.Date))
			if ok {
				chosen = &candidates[i]
				break
			}
			if reasonStage(reason) > reasonStage(worst) {
				worst = reason
			}
		}
		if chosen == nil {
			outcomes = append(outcomes, failure(t, cust, worst))
			continue
		}
		t.DriverID = chosen.ID
		t.VehicleID = chosen.Vehicle.ID
		ix.add(t)
		updates = append(updates, t)
		outcomes = append(outcomes, model.AssignmentOutcome{
			Status:     model.OutcomeAssigned,
			TripID:     t.ID,
			CustomerID: t.CustomerID,
			Date:       t.Date,
			Band:       t.Band,
			DriverID:   chosen.ID,
			VehicleID:  chosen.Vehicle.ID,
		})
	}
	return updates, outcomes
}

func failure(t model.Trip, c model.Customer, reason model.Reason) model.AssignmentOutcome {
	return model.AssignmentOutcome{
		Status:     model.OutcomeFailed,
		TripID:     t.ID,
		CustomerID: t.CustomerID,
		Date:       t.Date,
		Band:       t.Band,
		Reason:     reason,
		Message:    describe(c, t.Date, t.Band, reason),
	}
}

// describe renders e.g. "customer Ann on Monday 2024-01-01 (morning): no driver with available capacity".
func describe(c model.Customer, date string, band model.Band, reason model.Reason) string {
	name := c.Name
	if name == "" {
		name = c.ID
	}
	return fmt.Sprintf("customer %s on %s %s (%s): %s", name, weekdayOf(date), date, band, reason.Describe())
}

func lookupCustomer(customers map[string]model.Customer, id string) model.Customer {
	if c, ok := customers[id]; ok {
		return c
	}
	return model.Customer{ID: id}
}

func bandRank(b model.Band) int {
	for i, x := range model.Bands {
		if x == b {
			return i
		}
	}
	return len(model.Bands)
}
