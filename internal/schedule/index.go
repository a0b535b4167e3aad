package schedule

import (
	"sort"

	"tripsched/internal/model"
)

// Index groups trips by driver, date and band. It is a pure projection of a trip list.
type Index struct {
	byDriver   map[string]map[string]map[model.Band][]model.Trip
	Unassigned []model.Trip
}

// BuildIndex indexes trips. Within a band trips are ordered by pickup time then id.
func BuildIndex(trips []model.Trip) Index {
	ix := Index{byDriver: map[string]map[string]map[model.Band][]model.Trip{}}
	for _, t := range trips {
		ix.add(t)
	}
	for _, days := range ix.byDriver {
		for _, bands := range days {
			for _, ts := range bands {
				sortByPickup(ts)
			}
		}
	}
	sortByPickup(ix.Unassigned)
	return ix
}

func (ix *Index) add(t model.Trip) {
	if !t.Assigned() {
		ix.Unassigned = append(ix.Unassigned, t)
		return
	}
	days := ix.byDriver[t.DriverID]
	if days == nil {
		days = map[string]map[model.Band][]model.Trip{}
		ix.byDriver[t.DriverID] = days
	}
	bands := days[t.Date]
	if bands == nil {
		bands = map[model.Band][]model.Trip{}
		days[t.Date] = bands
	}
	bands[t.Band] = append(bands[t.Band], t)
}

func (ix *Index) remove(t model.Trip) {
	if !t.Assigned() {
		return
	}
	bands := ix.byDriver[t.DriverID][t.Date]
	if bands == nil {
		return
	}
	ts := bands[t.Band]
	for i := range ts {
		if ts[i].ID == t.ID {
			bands[t.Band] = append(ts[:i:i], ts[i+1:]...)
			return
		}
	}
}

// Band returns the driver's trips in one band of one date.
func (ix Index) Band(driverID, date string, band model.Band) []model.Trip {
	return ix.byDriver[driverID][date][band]
}

// Day returns all of the driver's trips on date in pickup order.
func (ix Index) Day(driverID, date string) []model.Trip {
	var out []model.Trip
	for _, ts := range ix.byDriver[driverID][date] {
		out = append(out, ts...)
	}
	sortByPickup(out)
	return out
}

// Load is the number of trips the driver has on date.
func (ix Index) Load(driverID, date string) int {
	n := 0
	for _, ts := range ix.byDriver[driverID][date] {
		n += len(ts)
	}
	return n
}

// BoardDay is one driver-day of the board view.
type BoardDay struct {
	DriverID string                      `json:"driverId"`
	Date     string                      `json:"date"`
	Bands    map[model.Band][]model.Trip `json:"bands"`
}

// Board is the driver/day/band projection of a date range.
type Board struct {
	Start      string       `json:"start"`
	End        string       `json:"end"`
	Days       []BoardDay   `json:"days"`
	Unassigned []model.Trip `json:"unassigned"`
}

// Board renders the index ordered by driver then date.
func (ix Index) Board(start, end string) Board {
	b := Board{Start: start, End: end, Days: []BoardDay{}, Unassigned: append([]model.Trip{}, ix.Unassigned...)}
	for driverID, days := range ix.byDriver {
		for date, bands := range days {
			b.Days = append(b.Days, BoardDay{DriverID: driverID, Date: date, Bands: bands})
		}
	}
	sort.Slice(b.Days, func(i, j int) bool {
		if b.Days[i].DriverID != b.Days[j].DriverID {
			return b.Days[i].DriverID < b.Days[j].DriverID
		}
		return b.Days[i].Date < b.Days[j].Date
	})
	return b
}

// occupying drops trips that no longer hold a driver's time or seats.
func occupying(trips []model.Trip) []model.Trip {
	out := make([]model.Trip, 0, len(trips))
	for _, t := range trips {
		if t.Status != model.StatusCancelled {
			out = append(out, t)
		}
	}
	return out
}

func sortByPickup(ts []model.Trip) {
	sort.SliceStable(ts, func(i, j int) bool {
		if ts[i].Date != ts[j].Date {
			return ts[i].Date < ts[j].Date
		}
		if ts[i].PickupTime != ts[j].PickupTime {
			return ts[i].PickupTime < ts[j].PickupTime
		}
		return ts[i].ID < ts[j].ID
	})
}
