package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Clock is a time of day in minutes after midnight, encoded as "HH:MM".
type Clock int

// ParseClock parses exactly "HH:MM" (24h).
func ParseClock(s string) (Clock, error) {
	t, err := time.Parse("15:04", s)
	if err != nil || len(s) != len("15:04") {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return Clock(t.Hour()*60 + t.Minute()), nil
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

func (c Clock) String() string { return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute()) }

// Duration returns the offset from midnight.
func (c Clock) Duration() time.Duration { return time.Duration(c) * time.Minute }

func (c Clock) MarshalJSON() ([]byte, error) { return json.Marshal(c.String()) }

func (c *Clock) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Band is the coarse time-of-day partition of a pickup.
type Band string

const (
	BandMorning   Band = "morning"
	BandAfternoon Band = "afternoon"
)

// Bands lists bands in chronological order.
var Bands = []Band{BandMorning, BandAfternoon}

// BandOf derives the band of a pickup time from the hour at which afternoon starts.
func BandOf(c Clock, afternoonStartHour int) Band {
	if c.Hour() >= afternoonStartHour {
		return BandAfternoon
	}
	return BandMorning
}
