package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"tripsched/internal/model"
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validationDetail renders validator errors as "field: rule" pairs.
func validationDetail(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Namespace(), rule))
	}
	return strings.Join(parts, "; ")
}

type rangeRequest struct {
	Start     string `json:"start" validate:"required,datetime=2006-01-02"`
	End       string `json:"end" validate:"required,datetime=2006-01-02"`
	Overwrite bool   `json:"overwrite"`
}

type routeRequest struct {
	DriverID string `json:"driverId" validate:"required"`
	Date     string `json:"date" validate:"required,datetime=2006-01-02"`
}

type commitRequest struct {
	DriverID string   `json:"driverId" validate:"required"`
	Date     string   `json:"date" validate:"required,datetime=2006-01-02"`
	Order    []string `json:"order" validate:"required,min=1,dive,required"`
}

type copyWeekRequest struct {
	SourceStart string `json:"sourceStart" validate:"required,datetime=2006-01-02"`
	TargetStart string `json:"targetStart" validate:"required,datetime=2006-01-02"`
}

type scheduleEntryRequest struct {
	ID          string         `json:"id"`
	CustomerID  string         `json:"customerId" validate:"required"`
	Weekday     *int           `json:"weekday" validate:"required,min=0,max=6"`
	Pickup      model.Location `json:"pickup"`
	Destination model.Location `json:"destination"`
	PickupTime  string         `json:"pickupTime" validate:"required,datetime=15:04"`
	DailyPrice  float64        `json:"dailyPrice" validate:"gte=0"`
	DriverID    string         `json:"driverId"`
}

func (r scheduleEntryRequest) entry() (model.ScheduleEntry, error) {
	at, err := model.ParseClock(r.PickupTime)
	if err != nil {
		return model.ScheduleEntry{}, err
	}
	return model.ScheduleEntry{
		ID:          r.ID,
		CustomerID:  r.CustomerID,
		Weekday:     time.Weekday(*r.Weekday),
		Pickup:      r.Pickup,
		Destination: r.Destination,
		PickupTime:  at,
		DailyPrice:  r.DailyPrice,
		DriverID:    r.DriverID,
	}, nil
}

type vehicleRequest struct {
	ID                   string `json:"id" validate:"required"`
	Capacity             int    `json:"capacity" validate:"min=1"`
	WheelchairAccessible bool   `json:"wheelchairAccessible"`
}

type driverRequest struct {
	ID             string         `json:"id"`
	Name           string         `json:"name" validate:"required"`
	Active         *bool          `json:"active"`
	Vehicle        vehicleRequest `json:"vehicle"`
	MaxTripsPerDay int            `json:"maxTripsPerDay" validate:"gte=0"`
}

func (r driverRequest) driver() model.Driver {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return model.Driver{
		ID:     r.ID,
		Name:   r.Name,
		Active: active,
		Vehicle: model.Vehicle{
			ID:                   r.Vehicle.ID,
			Capacity:             r.Vehicle.Capacity,
			WheelchairAccessible: r.Vehicle.WheelchairAccessible,
		},
		MaxTripsPerDay: r.MaxTripsPerDay,
	}
}

type customerRequest struct {
	ID                 string `json:"id"`
	Name               string `json:"name" validate:"required"`
	RequiresWheelchair bool   `json:"requiresWheelchair"`
}
