package schedule

import (
	"fmt"
	"testing"
	"time"

	"tripsched/internal/model"
)

func seqIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	}
}

func entry(id, customer string, wd time.Weekday, pickup model.Clock, dest string) model.ScheduleEntry {
	e := model.ScheduleEntry{ID: id, CustomerID: customer, Weekday: wd, PickupTime: pickup, DailyPrice: 12.5,
		Pickup: model.Location{Address: "home " + customer}}
	if dest != "" {
		e.Destination = model.Location{Address: dest}
	}
	return e
}

func mustRange(t *testing.T, start, end string) DateRange {
	t.Helper()
	r, err := ParseRange(start, end, 0)
	if err != nil {
		t.Fatalf("ParseRange: %v", err)
	}
	return r
}

func testGenerator() Generator {
	return Generator{Detector: Detector{MinGap: 55 * time.Minute}, AfternoonStartHour: 12, NewID: seqIDs("g")}
}

func TestGeneratePlanBasics(t *testing.T) {
	entries := []model.ScheduleEntry{
		entry("e1", "c1", time.Monday, at(8, 30), "centre"),
		entry("e2", "c1", time.Monday, at(15, 0), "home"),
		entry("e3", "c2", time.Tuesday, at(9, 0), "centre"),
		entry("e4", "c3", time.Monday, at(9, 0), ""), // not a travel day
	}
	changes, rep := testGenerator().Plan(GenerateInput{Range: mustRange(t, "2024-01-01", "2024-01-07"), Entries: entries})
	if rep.Generated != 3 || len(changes.Inserts) != 3 || rep.Skipped != 0 {
		t.Fatalf("report: %+v", rep)
	}
	bands := map[string]model.Band{}
	for _, tr := range changes.Inserts {
		if tr.CustomerID == "c3" {
			t.Fatal("entry without destination produced a trip")
		}
		if tr.Assigned() || tr.Status != model.StatusScheduled || tr.Type != model.TripRegular {
			t.Fatalf("new trips are unassigned scheduled regular trips: %+v", tr)
		}
		bands[tr.ScheduleEntryID] = tr.Band
	}
	if bands["e1"] != model.BandMorning || bands["e2"] != model.BandAfternoon {
		t.Fatalf("bands: %v", bands)
	}
}

func TestGeneratePlanDuplicateEntriesInOneRun(t *testing.T) {
	entries := []model.ScheduleEntry{
		entry("e1", "c1", time.Monday, at(8, 0), "centre"),
		entry("e2", "c1", time.Monday, at(9, 0), "clinic"),
	}
	changes, rep := testGenerator().Plan(GenerateInput{Range: mustRange(t, "2024-01-01", "2024-01-01"), Entries: entries})
	if len(changes.Inserts) != 1 || rep.Skipped != 1 || rep.Skips[0].Reason != model.ReasonDuplicate {
		t.Fatalf("second entry for the same slot must be skipped: %+v", rep)
	}
}

func TestGeneratePlanOverwrite(t *testing.T) {
	existing := mkTrip("old", "c1", "", "2024-01-01", at(8, 0))
	locked := mkTrip("done", "c2", "", "2024-01-01", at(8, 0))
	locked.Status = model.StatusCompleted
	entries := []model.ScheduleEntry{
		entry("e1", "c1", time.Monday, at(8, 45), "new centre"),
		entry("e2", "c2", time.Monday, at(8, 45), "centre"),
	}
	in := GenerateInput{Range: mustRange(t, "2024-01-01", "2024-01-01"), Entries: entries, Existing: []model.Trip{existing, locked}}

	changes, rep := testGenerator().Plan(in)
	if !changes.Empty() || rep.Skipped != 2 {
		t.Fatalf("without overwrite everything is a duplicate: %+v", rep)
	}

	in.Overwrite = true
	changes, rep = testGenerator().Plan(in)
	if len(changes.Updates) != 1 || len(changes.Inserts) != 0 || rep.Updated != 1 {
		t.Fatalf("overwrite report: %+v", rep)
	}
	u := changes.Updates[0]
	if u.ID != "old" || u.PickupTime != at(8, 45) || u.Destination.Address != "new centre" {
		t.Fatalf("trip not refreshed in place: %+v", u)
	}
	if rep.Skipped != 1 || rep.Skips[0].Reason != model.ReasonLocked || rep.Skips[0].TripID != "done" {
		t.Fatalf("completed trip must be reported locked: %+v", rep.Skips)
	}
}

func TestGeneratePlanPreassignedDriver(t *testing.T) {
	drivers := map[string]model.Driver{"d1": mkDriver("d1", 4, false)}
	customers := map[string]model.Customer{"c2": {ID: "c2", Name: "Bob"}}
	busy := mkTrip("busy", "c9", "d1", "2024-01-01", at(6, 30))

	e1 := entry("e1", "c1", time.Monday, at(8, 0), "centre")
	e1.DriverID = "d1"
	e2 := entry("e2", "c2", time.Monday, at(8, 20), "centre")
	e2.DriverID = "d1"
	e3 := entry("e3", "c3", time.Monday, at(14, 0), "centre")
	e3.DriverID = "gone"

	changes, rep := testGenerator().Plan(GenerateInput{
		Range:     mustRange(t, "2024-01-01", "2024-01-01"),
		Entries:   []model.ScheduleEntry{e1, e2, e3},
		Existing:  []model.Trip{busy},
		Drivers:   drivers,
		Customers: customers,
	})
	if rep.Generated != 3 {
		t.Fatalf("conflicts never block generation: %+v", rep)
	}
	byCustomer := map[string]model.Trip{}
	for _, tr := range changes.Inserts {
		byCustomer[tr.CustomerID] = tr
	}
	if tr := byCustomer["c1"]; tr.DriverID != "d1" || tr.VehicleID != "v-d1" {
		t.Fatalf("feasible pre-assignment must be kept: %+v", tr)
	}
	if byCustomer["c2"].Assigned() || byCustomer["c3"].Assigned() {
		t.Fatalf("conflicting trips are created unassigned: %+v", byCustomer)
	}
	if len(rep.Conflicts) != 2 {
		t.Fatalf("conflicts: %+v", rep.Conflicts)
	}
	got := map[string]model.Reason{}
	for _, c := range rep.Conflicts {
		got[c.CustomerID] = c.Reason
		if c.DriverID == "" || c.Message == "" {
			t.Fatalf("conflict lacks detail: %+v", c)
		}
	}
	if got["c2"] != model.ReasonTimeConflict || got["c3"] != model.ReasonUnknownDriver {
		t.Fatalf("reasons: %v", got)
	}
}

func TestGeneratePlanOverwriteMovedTripFreesItsOldTime(t *testing.T) {
	drivers := map[string]model.Driver{"d1": mkDriver("d1", 4, false)}
	moved := mkTrip("a", "ca", "d1", "2024-01-01", at(8, 0))

	ea := entry("ea", "ca", time.Monday, at(9, 30), "centre")
	ea.DriverID = "d1"
	eb := entry("eb", "cb", time.Monday, at(8, 10), "centre")
	eb.DriverID = "d1"

	changes, rep := testGenerator().Plan(GenerateInput{
		Range:     mustRange(t, "2024-01-01", "2024-01-01"),
		Overwrite: true,
		Entries:   []model.ScheduleEntry{ea, eb},
		Existing:  []model.Trip{moved},
		Drivers:   drivers,
	})
	if len(rep.Conflicts) != 0 {
		t.Fatalf("80 minutes apart is not a conflict: %+v", rep.Conflicts)
	}
	if len(changes.Inserts) != 1 || changes.Inserts[0].CustomerID != "cb" || changes.Inserts[0].DriverID != "d1" {
		t.Fatalf("inserts: %+v", changes.Inserts)
	}
	if len(changes.Updates) != 1 || changes.Updates[0].PickupTime != at(9, 30) || changes.Updates[0].DriverID != "d1" {
		t.Fatalf("updates: %+v", changes.Updates)
	}
}
