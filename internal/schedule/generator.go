package schedule

import (
	"sort"

	"github.com/google/uuid"

	"tripsched/internal/model"
)

// Generator expands schedule entries into dated regular trips.
type Generator struct {
	Detector           Detector
	AfternoonStartHour int
	NewID              func() string
}

// GenerateInput is everything one generation run reads.
type GenerateInput struct {
	Range     DateRange
	Overwrite bool
	Entries   []model.ScheduleEntry
	Existing  []model.Trip            // every trip of the tenant inside Range
	Drivers   map[string]model.Driver // active drivers by id
	Customers map[string]model.Customer
}

// Plan computes the trips to insert or refresh and the run report. It never fails:
// duplicates, locked trips and pre-assignment conflicts are recorded in the report.
func (g Generator) Plan(in GenerateInput) (model.TripChanges, model.GenerateReport) {
	newID := g.NewID
	if newID == nil {
		newID = func() string { return uuid.New().String() }
	}
	rep := model.GenerateReport{
		Start:     in.Range.Start.Format(model.DateLayout),
		End:       in.Range.End.Format(model.DateLayout),
		Overwrite: in.Overwrite,
		Skips:     []model.SlotNote{},
		Conflicts: []model.SlotNote{},
	}

	entries := append([]model.ScheduleEntry(nil), in.Entries...)
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].PickupTime != entries[j].PickupTime {
			return entries[i].PickupTime < entries[j].PickupTime
		}
		if entries[i].CustomerID != entries[j].CustomerID {
			return entries[i].CustomerID < entries[j].CustomerID
		}
		return entries[i].ID < entries[j].ID
	})

	slots := map[model.SlotKey]model.Trip{}
	for _, t := range in.Existing {
		if t.Type == model.TripRegular {
			slots[t.Key()] = t
		}
	}
	ix := BuildIndex(occupying(in.Existing))
	if in.Overwrite {
		// Trips about to be refreshed must not block earlier entries with their old times.
		for _, day := range in.Range.Days() {
			date := day.Format(model.DateLayout)
			for _, e := range entries {
				if e.Weekday != day.Weekday() || !e.TravelDay() {
					continue
				}
				key := model.SlotKey{CustomerID: e.CustomerID, Date: date, Band: model.BandOf(e.PickupTime, g.AfternoonStartHour)}
				if t, ok := slots[key]; ok && t.Status == model.StatusScheduled {
					ix.remove(t)
				}
			}
		}
	}
	claimed := map[model.SlotKey]bool{}

	var changes model.TripChanges
	for _, day := range in.Range.Days() {
		date := day.Format(model.DateLayout)
		for _, e := range entries {
			if e.Weekday != day.Weekday() || !e.TravelDay() {
				continue
			}
			band := model.BandOf(e.PickupTime, g.AfternoonStartHour)
			key := model.SlotKey{CustomerID: e.CustomerID, Date: date, Band: band}
			cust := lookupCustomer(in.Customers, e.CustomerID)
			if claimed[key] {
				rep.Skips = append(rep.Skips, note(model.Trip{CustomerID: e.CustomerID, Date: date, Band: band}, cust, model.ReasonDuplicate))
				continue
			}
			claimed[key] = true

			trip, exists := slots[key]
			switch {
			case exists && !in.Overwrite:
				rep.Skips = append(rep.Skips, note(trip, cust, model.ReasonDuplicate))
				continue
			case exists && trip.Status != model.StatusScheduled:
				rep.Skips = append(rep.Skips, note(trip, cust, model.ReasonLocked))
				continue
			case !exists:
				trip = model.Trip{
					ID:         newID(),
					CustomerID: e.CustomerID,
					Date:       date,
					Status:     model.StatusScheduled,
					Type:       model.TripRegular,
				}
			}
			trip.PickupTime = e.PickupTime
			trip.Band = band
			trip.Pickup = e.Pickup
			trip.Destination = e.Destination
			trip.Price = e.DailyPrice
			trip.ScheduleEntryID = e.ID

			driverID := e.DriverID
			if driverID == "" {
				driverID = trip.DriverID
			}
			ix.remove(trip)
			trip.DriverID, trip.VehicleID = "", ""
			if driverID != "" {
				if reason := g.place(&trip, driverID, cust, in.Drivers, ix); reason != "" {
					n := note(trip, cust, reason)
					n.DriverID = driverID
					rep.Conflicts = append(rep.Conflicts, n)
				}
			}
			if trip.Assigned() {
				ix.add(trip)
			}
			if exists {
				changes.Updates = append(changes.Updates, trip)
				rep.Updated++
			} else {
				changes.Inserts = append(changes.Inserts, trip)
				rep.Generated++
			}
		}
	}
	rep.Skipped = len(rep.Skips)
	return changes, rep
}

// place assigns driverID to trip when the driver is active and the Detector accepts.
// It returns the reason when it does not.
func (g Generator) place(trip *model.Trip, driverID string, cust model.Customer, drivers map[string]model.Driver, ix Index) model.Reason {
	d, ok := drivers[driverID]
	if !ok {
		return model.ReasonUnknownDriver
	}
	if ok, reason := g.Detector.Check(d, cust, *trip, ix.Day(driverID, trip.Date)); !ok {
		return reason
	}
	trip.DriverID = d.ID
	trip.VehicleID = d.Vehicle.ID
	return ""
}

func note(t model.Trip, c model.Customer, reason model.Reason) model.SlotNote {
	return model.SlotNote{
		TripID:     t.ID,
		CustomerID: t.CustomerID,
		Date:       t.Date,
		Band:       t.Band,
		DriverID:   t.DriverID,
		Reason:     reason,
		Message:    describe(c, t.Date, t.Band, reason),
	}
}
