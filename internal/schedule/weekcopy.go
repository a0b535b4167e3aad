package schedule

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"tripsched/internal/model"
)

// Copier replicates one week's trips into another week.
type Copier struct {
	Detector Detector
	NewID    func() string
}

// CopyInput is everything one week copy reads.
type CopyInput struct {
	SourceStart time.Time
	TargetStart time.Time
	Source      []model.Trip // trips of the source week
	Target      []model.Trip // trips already in the target week
	Drivers     map[string]model.Driver
	Customers   map[string]model.Customer
}

// Plan creates one trip per source trip on the same weekday of the target week with status
// reset to scheduled. A trip whose slot is taken in the target week is skipped. A driver is
// kept only if still active and feasible; otherwise the copy is left unassigned.
func (c Copier) Plan(in CopyInput) ([]model.Trip, model.CopyReport) {
	newID := c.NewID
	if newID == nil {
		newID = func() string { return uuid.New().String() }
	}
	rep := model.CopyReport{
		SourceStart: in.SourceStart.Format(model.DateLayout),
		TargetStart: in.TargetStart.Format(model.DateLayout),
		Skips:       []model.SlotNote{},
		Unassigned:  []model.SlotNote{},
	}
	shift := int(in.TargetStart.Sub(in.SourceStart).Hours() / 24)

	source := append([]model.Trip(nil), in.Source...)
	sortByPickup(source)

	taken := append([]model.Trip(nil), in.Target...)
	ix := BuildIndex(occupying(in.Target))
	var inserts []model.Trip
	for _, src := range source {
		d, err := time.Parse(model.DateLayout, src.Date)
		if err != nil {
			continue
		}
		t := src
		t.ID = newID()
		t.Date = d.AddDate(0, 0, shift).Format(model.DateLayout)
		t.Status = model.StatusScheduled
		t.CreatedAt, t.UpdatedAt = time.Time{}, time.Time{}
		cust := lookupCustomer(in.Customers, t.CustomerID)

		if collides(t, taken) {
			n := note(t, cust, model.ReasonDuplicate)
			n.TripID = src.ID
			rep.Skips = append(rep.Skips, n)
			continue
		}
		if t.Assigned() {
			driverID := t.DriverID
			t.DriverID, t.VehicleID = "", ""
			reason := model.ReasonUnknownDriver
			if drv, ok := in.Drivers[driverID]; ok {
				var feasible bool
				if feasible, reason = c.Detector.Check(drv, cust, t, ix.Day(driverID, t.Date)); feasible {
					t.DriverID, t.VehicleID = drv.ID, drv.Vehicle.ID
					ix.add(t)
				}
			}
			if !t.Assigned() {
				n := note(t, cust, reason)
				n.DriverID = driverID
				rep.Unassigned = append(rep.Unassigned, n)
			}
		}
		taken = append(taken, t)
		inserts = append(inserts, t)
	}
	sort.SliceStable(rep.Skips, func(i, j int) bool { return rep.Skips[i].Date < rep.Skips[j].Date })
	rep.Copied = len(inserts)
	rep.Skipped = len(rep.Skips)
	return inserts, rep
}

// collides reports whether t would duplicate a trip in the target week: a second regular
// trip for the slot, or any trip for the slot at the same pickup time.
func collides(t model.Trip, taken []model.Trip) bool {
	for _, o := range taken {
		if o.Key() != t.Key() {
			continue
		}
		if (o.Type == model.TripRegular && t.Type == model.TripRegular) || o.PickupTime == t.PickupTime {
			return true
		}
	}
	return false
}
