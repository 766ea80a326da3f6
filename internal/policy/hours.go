// Package policy resolves whether the restaurant is open at a given local
// date and time. Weekly opening hours are combined with date-specific
// overrides (holidays, private events, extended nights) loaded from a YAML
// file.
package policy

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const dateLayout = "2006-01-02"

// ErrInvalidTime is returned when an "HH:mm" value cannot be parsed.
var ErrInvalidTime = errors.New("invalid HH:mm time")

// window is an opening interval in minutes after local midnight. Close may
// be smaller than Open, in which case the window runs past midnight.
type window struct {
	open  int
	close int
}

func (w window) overnight() bool { return w.close < w.open }

// Hours is the resolved opening-hours policy.
type Hours struct {
	loc       *time.Location
	weekly    map[time.Weekday]*window
	overrides map[string]*window // nil value means closed all day
}

// DaySpec is one weekday or override entry in the hours file.
type DaySpec struct {
	Open   string `yaml:"open"`
	Close  string `yaml:"close"`
	Closed bool   `yaml:"closed"`
}

// Override pins the hours of one calendar date.
type Override struct {
	Date    string `yaml:"date"`
	DaySpec `yaml:",inline"`
}

// File mirrors the YAML layout of the hours file.
type File struct {
	Timezone  string             `yaml:"timezone"`
	Weekly    map[string]DaySpec `yaml:"weekly"`
	Overrides []Override         `yaml:"overrides"`
}

// DefaultYAML is used when no hours file is configured: lunch through late
// dinner every day.
const DefaultYAML = `# restaurant opening hours
timezone: UTC
weekly:
  monday:    {open: "11:00", close: "23:30"}
  tuesday:   {open: "11:00", close: "23:30"}
  wednesday: {open: "11:00", close: "23:30"}
  thursday:  {open: "11:00", close: "23:30"}
  friday:    {open: "11:00", close: "23:59"}
  saturday:  {open: "11:00", close: "23:59"}
  sunday:    {open: "11:00", close: "22:00"}
overrides: []
`

// Load reads and parses the hours file at path. An empty path yields the
// default policy.
func Load(path string) (*Hours, error) {
	if strings.TrimSpace(path) == "" {
		return Parse([]byte(DefaultYAML))
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read hours file: %w", err)
	}
	return Parse(data)
}

// Parse builds Hours from YAML.
func Parse(data []byte) (*Hours, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse hours: %w", err)
	}
	return FromFile(f)
}

// FromFile validates a decoded hours file.
func FromFile(f File) (*Hours, error) {
	loc := time.UTC
	if tz := strings.TrimSpace(f.Timezone); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("hours timezone %q: %w", tz, err)
		}
		loc = l
	}
	h := &Hours{
		loc:       loc,
		weekly:    make(map[time.Weekday]*window, 7),
		overrides: make(map[string]*window, len(f.Overrides)),
	}
	for name, spec := range f.Weekly {
		day, ok := weekdays[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", name)
		}
		w, err := spec.window()
		if err != nil {
			return nil, fmt.Errorf("weekday %s: %w", name, err)
		}
		h.weekly[day] = w
	}
	for _, o := range f.Overrides {
		d, err := time.Parse(dateLayout, strings.TrimSpace(o.Date))
		if err != nil {
			return nil, fmt.Errorf("override date %q: %w", o.Date, err)
		}
		w, err := o.window()
		if err != nil {
			return nil, fmt.Errorf("override %s: %w", o.Date, err)
		}
		h.overrides[d.Format(dateLayout)] = w
	}
	return h, nil
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func (s DaySpec) window() (*window, error) {
	if s.Closed {
		return nil, nil
	}
	open, err := ParseHHMM(s.Open)
	if err != nil {
		return nil, err
	}
	closeAt, err := ParseHHMM(s.Close)
	if err != nil {
		return nil, err
	}
	if open == closeAt {
		return nil, fmt.Errorf("open and close are both %s", s.Open)
	}
	return &window{open: open, close: closeAt}, nil
}

// ParseHHMM converts "HH:mm" into minutes after midnight. "24:00" is
// accepted as the end of the day.
func ParseHHMM(s string) (int, error) {
	s = strings.TrimSpace(s)
	t, err := time.Parse("15:04", s)
	if err != nil {
		if s == "24:00" {
			return 24 * 60, nil
		}
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// Location returns the restaurant's timezone.
func (h *Hours) Location() *time.Location { return h.loc }

// IsOpen reports whether the restaurant is open on the calendar date of
// date (its year/month/day, in whatever location it carries) at the local
// time hhmm. Both the opening and closing minute count as open. An
// unparseable hhmm is treated as closed.
func (h *Hours) IsOpen(date time.Time, hhmm string) bool {
	m, err := ParseHHMM(hhmm)
	if err != nil {
		return false
	}
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, h.loc)
	if w := h.windowFor(day); w != nil {
		if w.overnight() {
			if m >= w.open {
				return true
			}
		} else if m >= w.open && m <= w.close {
			return true
		}
	}
	// The tail of yesterday's overnight window.
	if prev := h.windowFor(day.AddDate(0, 0, -1)); prev != nil && prev.overnight() && m <= prev.close {
		return true
	}
	return false
}

// OpenAt reports whether the restaurant is open at instant t.
func (h *Hours) OpenAt(t time.Time) bool {
	local := t.In(h.loc)
	return h.IsOpen(local, local.Format("15:04"))
}

// Describe returns the opening window for the local date of t as
// ("HH:mm", "HH:mm", true), or ok=false when closed all day.
func (h *Hours) Describe(t time.Time) (open, closeAt string, ok bool) {
	local := t.In(h.loc)
	w := h.windowFor(time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, h.loc))
	if w == nil {
		return "", "", false
	}
	return formatMinutes(w.open), formatMinutes(w.close), true
}

func (h *Hours) windowFor(day time.Time) *window {
	if w, ok := h.overrides[day.Format(dateLayout)]; ok {
		return w
	}
	return h.weekly[day.Weekday()]
}

func formatMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
