package model

import (
	"encoding/json"
	"testing"
)

func TestParseClock(t *testing.T) {
	good := map[string]Clock{"00:00": 0, "08:05": 8*60 + 5, "23:59": 23*60 + 59}
	for in, want := range good {
		got, err := ParseClock(in)
		if err != nil || got != want {
			t.Fatalf("ParseClock(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	for _, in := range []string{"", "8:5", "8:05", "08:00junk", "08:00:59", "24:00", "12:60", "-1:30", "noon"} {
		if _, err := ParseClock(in); err == nil {
			t.Fatalf("ParseClock(%q) accepted", in)
		}
	}
}

func TestClockJSON(t *testing.T) {
	var c Clock
	if err := json.Unmarshal([]byte(`"07:45"`), &c); err != nil || c.String() != "07:45" {
		t.Fatalf("unmarshal: %v %v", c, err)
	}
	if err := json.Unmarshal([]byte(`"07:45 pm"`), &c); err == nil {
		t.Fatal("trailing text accepted")
	}
	b, _ := json.Marshal(Clock(13*60 + 5))
	if string(b) != `"13:05"` {
		t.Fatalf("marshal: %s", b)
	}
}
