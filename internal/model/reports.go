package model

// Reason is the machine-readable cause attached to skips, conflicts and failed assignments.
type Reason string

const (
	ReasonDuplicate           Reason = "duplicate"
	ReasonLocked              Reason = "locked"
	ReasonNoCapacity          Reason = "no_capacity"
	ReasonNoAccessibleVehicle Reason = "no_accessible_vehicle"
	ReasonTimeConflict        Reason = "time_conflict"
	ReasonDriverDayLimit      Reason = "driver_day_limit"
	ReasonNoActiveDriver      Reason = "no_active_driver"
	ReasonUnknownDriver       Reason = "unknown_driver"
)

// Describe returns the human-readable cause used in report messages.
func (r Reason) Describe() string {
	switch r {
	case ReasonDuplicate:
		return "a trip already exists for this slot"
	case ReasonLocked:
		return "the existing trip is no longer scheduled and cannot be overwritten"
	case ReasonNoCapacity:
		return "no driver with available capacity"
	case ReasonNoAccessibleVehicle:
		return "no wheelchair-accessible vehicle available"
	case ReasonTimeConflict:
		return "pickup time overlaps another trip of the driver"
	case ReasonDriverDayLimit:
		return "driver has reached the daily trip limit"
	case ReasonNoActiveDriver:
		return "no active drivers on the roster"
	case ReasonUnknownDriver:
		return "driver is not an active roster member"
	}
	return string(r)
}

// SlotNote is an itemized skip, conflict or failure line in a batch report.
type SlotNote struct {
	TripID     string `json:"tripId,omitempty"`
	CustomerID string `json:"customerId"`
	Date       string `json:"date"`
	Band       Band   `json:"band"`
	DriverID   string `json:"driverId,omitempty"`
	Reason     Reason `json:"reason"`
	Message    string `json:"message"`
}

type GenerateReport struct {
	Start     string     `json:"start"`
	End       string     `json:"end"`
	Overwrite bool       `json:"overwrite"`
	Generated int        `json:"generated"`
	Updated   int        `json:"updated"`
	Skipped   int        `json:"skipped"`
	Skips     []SlotNote `json:"skips"`
	Conflicts []SlotNote `json:"conflicts"`
}

type OutcomeStatus string

const (
	OutcomeAssigned OutcomeStatus = "assigned"
	OutcomeFailed   OutcomeStatus = "failed"
)

// AssignmentOutcome is the per-customer result of an auto-assignment run.
type AssignmentOutcome struct {
	Status     OutcomeStatus `json:"status"`
	TripID     string        `json:"tripId"`
	CustomerID string        `json:"customerId"`
	Date       string        `json:"date"`
	Band       Band          `json:"band"`
	DriverID   string        `json:"driverId,omitempty"`
	VehicleID  string        `json:"vehicleId,omitempty"`
	Reason     Reason        `json:"reason,omitempty"`
	Message    string        `json:"message,omitempty"`
}

type AssignReport struct {
	Start    string              `json:"start"`
	End      string              `json:"end"`
	Assigned int                 `json:"assigned"`
	Failed   int                 `json:"failed"`
	Outcomes []AssignmentOutcome `json:"outcomes"`
}

// Failures returns the failed outcomes only.
func (r AssignReport) Failures() []AssignmentOutcome {
	out := []AssignmentOutcome{}
	for _, o := range r.Outcomes {
		if o.Status == OutcomeFailed {
			out = append(out, o)
		}
	}
	return out
}

type CopyReport struct {
	SourceStart string     `json:"sourceStart"`
	TargetStart string     `json:"targetStart"`
	Copied      int        `json:"copied"`
	Skipped     int        `json:"skipped"`
	Skips       []SlotNote `json:"skips"`
	Unassigned  []SlotNote `json:"unassigned"` // copied without their original driver
}

type CommitReport struct {
	DriverID string `json:"driverId"`
	Date     string `json:"date"`
	Updated  int    `json:"updated"`
	Trips    []Trip `json:"trips"`
}
