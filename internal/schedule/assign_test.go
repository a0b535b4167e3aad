package schedule

import (
	"testing"
	"time"

	"tripsched/internal/model"
)

func testAssigner() Assigner { return Assigner{Detector: Detector{MinGap: 55 * time.Minute}} }

func TestAssignCapacityScenario(t *testing.T) {
	const day = "2024-01-01"
	pending := []model.Trip{
		mkTrip("t3", "c3", "", day, at(10, 0)),
		mkTrip("t1", "c1", "", day, at(8, 0)),
		mkTrip("t2", "c2", "", day, at(9, 0)),
	}
	updates, outcomes := testAssigner().Plan(pending, []model.Driver{mkDriver("D", 2, false)}, nil, nil)
	if len(updates) != 2 {
		t.Fatalf("assigned %d trips, want 2", len(updates))
	}
	if updates[0].ID != "t1" || updates[1].ID != "t2" {
		t.Fatalf("trips must be placed earliest first: %v, %v", updates[0].ID, updates[1].ID)
	}
	last := outcomes[2]
	if last.Status != model.OutcomeFailed || last.Reason != model.ReasonNoCapacity || last.TripID != "t3" {
		t.Fatalf("third outcome: %+v", last)
	}
	if last.Message == "" {
		t.Fatal("failures carry a readable message")
	}
}

func TestAssignBalancesLoad(t *testing.T) {
	const day = "2024-01-02"
	var pending []model.Trip
	for i, h := range []int{8, 9, 10, 11} {
		pending = append(pending, mkTrip(string(rune('a'+i)), string(rune('p'+i)), "", day, at(h, 0)))
	}
	drivers := []model.Driver{mkDriver("B", 4, false), mkDriver("A", 4, false)}
	updates, _ := testAssigner().Plan(pending, drivers, nil, nil)
	want := map[string]string{"a": "A", "b": "B", "c": "A", "d": "B"}
	if len(updates) != 4 {
		t.Fatalf("assigned %d", len(updates))
	}
	for _, u := range updates {
		if u.DriverID != want[u.ID] {
			t.Fatalf("trip %s went to %s, want %s", u.ID, u.DriverID, want[u.ID])
		}
		if u.VehicleID != "v-"+u.DriverID {
			t.Fatalf("vehicle follows driver: %+v", u)
		}
	}
}

func TestAssignCountsExistingLoad(t *testing.T) {
	const day = "2024-01-02"
	booked := []model.Trip{mkTrip("x", "z", "A", day, at(7, 0))}
	updates, _ := testAssigner().Plan([]model.Trip{mkTrip("a", "c1", "", day, at(9, 0))},
		[]model.Driver{mkDriver("A", 4, false), mkDriver("B", 4, false)}, nil, booked)
	if len(updates) != 1 || updates[0].DriverID != "B" {
		t.Fatalf("least-loaded driver should win: %+v", updates)
	}
}

func TestAssignAccessibilityAndReasons(t *testing.T) {
	const day = "2024-01-03"
	customers := map[string]model.Customer{"w": {ID: "w", Name: "Wendy", RequiresWheelchair: true}}

	updates, outcomes := testAssigner().Plan([]model.Trip{mkTrip("t", "w", "", day, at(8, 0))},
		[]model.Driver{mkDriver("A", 4, false)}, customers, nil)
	if len(updates) != 0 || outcomes[0].Reason != model.ReasonNoAccessibleVehicle {
		t.Fatalf("want no_accessible_vehicle, got %+v", outcomes)
	}

	// B is accessible but busy at 08:10: the furthest check reached decides the reason
	booked := []model.Trip{mkTrip("busy", "z", "B", day, at(8, 10))}
	_, outcomes = testAssigner().Plan([]model.Trip{mkTrip("t", "w", "", day, at(8, 0))},
		[]model.Driver{mkDriver("A", 4, false), mkDriver("B", 4, true)}, customers, booked)
	if outcomes[0].Reason != model.ReasonTimeConflict {
		t.Fatalf("want time_conflict, got %+v", outcomes[0])
	}

	updates, _ = testAssigner().Plan([]model.Trip{mkTrip("t", "w", "", day, at(10, 0))},
		[]model.Driver{mkDriver("A", 4, false), mkDriver("B", 4, true)}, customers, booked)
	if len(updates) != 1 || updates[0].DriverID != "B" {
		t.Fatalf("wheelchair user must get the accessible vehicle: %+v", updates)
	}
}

func TestAssignWithoutDrivers(t *testing.T) {
	_, outcomes := testAssigner().Plan([]model.Trip{mkTrip("t", "c", "", "2024-01-01", at(8, 0))}, nil, nil, nil)
	if len(outcomes) != 1 || outcomes[0].Reason != model.ReasonNoActiveDriver {
		t.Fatalf("outcomes: %+v", outcomes)
	}
}

func TestAssignInvariants(t *testing.T) {
	days := []string{"2024-01-01", "2024-01-02"}
	customers := map[string]model.Customer{}
	var pending []model.Trip
	n := 0
	for _, day := range days {
		for h := 6; h < 18; h++ {
			for k := 0; k < 3; k++ {
				n++
				id := string(rune('A'+k)) + day + model.Clock(h*60).String()
				cust := id + "-c"
				customers[cust] = model.Customer{ID: cust, RequiresWheelchair: (n % 4) == 0}
				tr := mkTrip(id, cust, "", day, at(h, 0))
				tr.Pickup = model.Location{Address: "shared stop " + model.Clock(h*60).String()}
				pending = append(pending, tr)
			}
		}
	}
	drivers := []model.Driver{mkDriver("d1", 2, false), mkDriver("d2", 3, true), mkDriver("d3", 1, false)}
	byID := map[string]model.Driver{}
	for _, d := range drivers {
		byID[d.ID] = d
	}
	updates, outcomes := testAssigner().Plan(pending, drivers, customers, nil)
	if len(outcomes) != len(pending) {
		t.Fatalf("every trip gets exactly one outcome: %d vs %d", len(outcomes), len(pending))
	}
	load := map[[3]string]int{}
	for _, u := range updates {
		d := byID[u.DriverID]
		if customers[u.CustomerID].RequiresWheelchair && !d.Vehicle.WheelchairAccessible {
			t.Fatalf("wheelchair customer %s on non-accessible vehicle of %s", u.CustomerID, d.ID)
		}
		k := [3]string{u.DriverID, u.Date, string(u.Band)}
		load[k]++
		if load[k] > d.Vehicle.Capacity {
			t.Fatalf("capacity exceeded for %v", k)
		}
	}
}
